package models

import "fmt"

// TaskType 采集任务类型,决定使用哪条检查点记录和哪种提取策略
type TaskType string

const (
	TaskMembers  TaskType = "members"  // 成员
	TaskThreads  TaskType = "threads"  // 主题
	TaskPosts    TaskType = "posts"    // 帖子
	TaskComments TaskType = "comments" // 评论
	TaskLikes    TaskType = "likes"    // 点赞
)

// AllTaskTypes 全部任务类型(按依赖顺序)
var AllTaskTypes = []TaskType{TaskMembers, TaskThreads, TaskPosts, TaskComments, TaskLikes}

// ParseTaskType 解析任务类型字符串
func ParseTaskType(s string) (TaskType, error) {
	for _, t := range AllTaskTypes {
		if string(t) == s {
			return t, nil
		}
	}
	return "", fmt.Errorf("无效的任务类型: %s (有效值: members, threads, posts, comments, likes)", s)
}

// TaskStatus 任务状态
type TaskStatus string

const (
	TaskStatusPending    TaskStatus = "pending"     // 待执行
	TaskStatusInProgress TaskStatus = "in_progress" // 执行中
	TaskStatusCompleted  TaskStatus = "completed"   // 已完成
	TaskStatusFailed     TaskStatus = "failed"      // 失败
)

// IsTerminal 是否为终止状态
func (s TaskStatus) IsTerminal() bool {
	return s == TaskStatusCompleted || s == TaskStatusFailed
}
