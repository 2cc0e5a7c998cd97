package models

import (
	"fmt"
	"net/http"
	"strings"
)

// Locator 候选定位器: CSS选择器,可选按可见文本过滤
type Locator struct {
	CSS  string `mapstructure:"css" yaml:"css" json:"css"`
	Text string `mapstructure:"text" yaml:"text,omitempty" json:"text,omitempty"`
}

// String 返回便于日志输出的描述
func (l Locator) String() string {
	if l.Text == "" {
		return l.CSS
	}
	return fmt.Sprintf("%s:has-text(%q)", l.CSS, l.Text)
}

// FieldSpec 单个字段的提取规则,Selectors按顺序尝试
type FieldSpec struct {
	Selectors []string `mapstructure:"selectors" yaml:"selectors"`
	Attr      string   `mapstructure:"attr" yaml:"attr,omitempty"`       // 为空时取文本
	Pattern   string   `mapstructure:"pattern" yaml:"pattern,omitempty"` // 可选正则,取第一个匹配
}

// TaskSelectors 某个任务的列表页定位规则
type TaskSelectors struct {
	Path      string               `mapstructure:"path" yaml:"path"`             // 列表页相对社区URL的路径
	PageParam string               `mapstructure:"page_param" yaml:"page_param"` // 分页查询参数
	Tab       []Locator            `mapstructure:"tab" yaml:"tab"`
	Items     []string             `mapstructure:"items" yaml:"items"`
	Next      []string             `mapstructure:"next" yaml:"next"`
	Fields    map[string]FieldSpec `mapstructure:"fields" yaml:"fields"`
}

// AuthProbe 登录状态检测规则
type AuthProbe struct {
	Indicators       []string `mapstructure:"indicators" yaml:"indicators"`
	FallbackPath     string   `mapstructure:"fallback_path" yaml:"fallback_path"`
	FallbackSelector string   `mapstructure:"fallback_selector" yaml:"fallback_selector"`
}

// Viewport 浏览器视口
type Viewport struct {
	Width  int `mapstructure:"width" yaml:"width"`
	Height int `mapstructure:"height" yaml:"height"`
}

// SiteProfile site.yaml配置文件的结构
// 包含平台域名、请求指纹和各任务的选择器
type SiteProfile struct {
	Domain    string                     `mapstructure:"domain" yaml:"domain"`
	UserAgent string                     `mapstructure:"user_agent" yaml:"user_agent"`
	Locale    string                     `mapstructure:"locale" yaml:"locale"`
	Timezone  string                     `mapstructure:"timezone" yaml:"timezone"`
	Viewport  Viewport                   `mapstructure:"viewport" yaml:"viewport"`
	Headers   map[string]string          `mapstructure:"headers" yaml:"headers"`
	Auth      AuthProbe                  `mapstructure:"auth" yaml:"auth"`
	Tasks     map[TaskType]TaskSelectors `mapstructure:"tasks" yaml:"tasks"`
}

// Task 返回任务的选择器配置
func (p *SiteProfile) Task(t TaskType) (TaskSelectors, bool) {
	sel, ok := p.Tasks[t]
	return sel, ok
}

// CliHeaders 命令行传递的头部列表,每项格式为 "Name: Value"
type CliHeaders []string

// Parse 将字符串列表解析为 http.Header
func (ch CliHeaders) Parse() (http.Header, error) {
	result := make(http.Header)
	for i, s := range ch {
		name, value, ok := strings.Cut(s, ":")
		if !ok {
			return nil, fmt.Errorf("参数 --header 第%d项格式错误: 缺少冒号分隔符,应为 'Name: Value'", i+1)
		}
		name = strings.TrimSpace(name)
		if name == "" {
			return nil, fmt.Errorf("参数 --header 第%d项格式错误: 头部名称不能为空", i+1)
		}
		result.Set(name, strings.TrimSpace(value))
	}
	return result, nil
}

// ValidationError 头部验证错误
type ValidationError struct {
	Field      string // "name" 或 "value"
	HeaderName string
	Reason     string
	Suggestion string
}

// Error 实现error接口
func (e *ValidationError) Error() string {
	msg := fmt.Sprintf("头部验证失败 [%s]: %s", e.HeaderName, e.Reason)
	if e.Suggestion != "" {
		msg += fmt.Sprintf(" (建议: %s)", e.Suggestion)
	}
	return msg
}

// ConfigError 配置文件错误
type ConfigError struct {
	FilePath string
	Cause    error
}

// Error 实现error接口
func (e *ConfigError) Error() string {
	return fmt.Sprintf("配置文件错误 [%s]: %v", e.FilePath, e.Cause)
}

// Unwrap 支持errors.Unwrap
func (e *ConfigError) Unwrap() error {
	return e.Cause
}
