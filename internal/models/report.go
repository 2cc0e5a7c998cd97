package models

import (
	"encoding/json"
	"time"
)

// TaskReport 单个任务的运行结果
type TaskReport struct {
	Task        TaskType   `json:"task"`
	RunID       string     `json:"run_id"`
	Status      TaskStatus `json:"status"`
	StartPage   int        `json:"start_page"`
	LastPage    int        `json:"last_page"`
	Pages       int        `json:"pages"`        // 本次运行处理的页数
	Stored      int        `json:"stored"`       // 本次运行成功持久化的条目
	Skipped     int        `json:"skipped"`      // 无法解析ID而跳过的条目
	Failed      int        `json:"failed"`       // 持久化失败的条目
	Total       int        `json:"total"`        // 检查点累计总数
	AlreadyDone bool       `json:"already_done"` // 任务已完成,本次未执行
	Error       string     `json:"error,omitempty"`
	StartedAt   time.Time  `json:"started_at"`
	FinishedAt  time.Time  `json:"finished_at"`
}

// RunReport 一次进程运行的汇总报告
type RunReport struct {
	CommunityURL string         `json:"community_url"`
	StartTime    time.Time      `json:"start_time"`
	EndTime      time.Time      `json:"end_time"`
	Duration     float64        `json:"duration"` // 秒
	Verified     bool           `json:"verified"` // 登录状态预检结果
	Tasks        []TaskReport   `json:"tasks"`
	RowCounts    map[string]int `json:"row_counts"`
}

// ToJSON 序列化为JSON
func (r *RunReport) ToJSON() ([]byte, error) {
	return json.MarshalIndent(r, "", "  ")
}
