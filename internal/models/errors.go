package models

import (
	"errors"
	"fmt"
)

// ErrNoClickable 候选定位器中没有可点击的元素
var ErrNoClickable = errors.New("没有可点击的元素")

// AuthSetupError 会话凭据无效(空或无法解析出任何cookie)
type AuthSetupError struct {
	Reason string
}

// Error 实现error接口
func (e *AuthSetupError) Error() string {
	return fmt.Sprintf("认证设置失败: %s", e.Reason)
}

// NoItemsFoundError 所有候选定位器都没有匹配到条目元素
type NoItemsFoundError struct {
	Task       TaskType
	Page       int
	Candidates []string
}

// Error 实现error接口
func (e *NoItemsFoundError) Error() string {
	return fmt.Sprintf("第%d页未找到任何%s元素 (已尝试%d个选择器),选择器可能已过期",
		e.Page, e.Task, len(e.Candidates))
}

// PersistenceError 单行写入失败
type PersistenceError struct {
	Kind  EntityKind
	ID    string
	Cause error
}

// Error 实现error接口
func (e *PersistenceError) Error() string {
	return fmt.Sprintf("持久化失败 [%s %s]: %v", e.Kind, e.ID, e.Cause)
}

// Unwrap 支持errors.Unwrap
func (e *PersistenceError) Unwrap() error {
	return e.Cause
}

// NavigationError 导航失败(含超时)
type NavigationError struct {
	URL   string
	Cause error
}

// Error 实现error接口
func (e *NavigationError) Error() string {
	return fmt.Sprintf("导航失败 [%s]: %v", e.URL, e.Cause)
}

// Unwrap 支持errors.Unwrap
func (e *NavigationError) Unwrap() error {
	return e.Cause
}
