package models

import "time"

// ScrapeProgress 任务检查点(每种任务类型一行)
type ScrapeProgress struct {
	ID                int64      `json:"id"`
	TaskType          TaskType   `json:"task_type"`
	LastProcessedID   *string    `json:"last_processed_id,omitempty"`   // 最后处理的实体ID
	LastProcessedPage *int       `json:"last_processed_page,omitempty"` // 最后完成的页码
	TotalProcessed    int        `json:"total_processed"`               // 累计成功持久化数量
	Status            TaskStatus `json:"status"`
	StartedAt         *time.Time `json:"started_at,omitempty"`   // 首次进入in_progress的时间
	CompletedAt       *time.Time `json:"completed_at,omitempty"` // 完成时间
	Error             *string    `json:"error,omitempty"`        // 失败原因
}

// ResumePage 返回本次运行应开始的页码和累计总数
// 已有最后页码P时从P+1继续,并沿用检查点中的累计总数
func (p *ScrapeProgress) ResumePage() (page int, total int) {
	if p.LastProcessedPage != nil && *p.LastProcessedPage > 0 {
		return *p.LastProcessedPage + 1, p.TotalProcessed
	}
	return 1, p.TotalProcessed
}

// ProgressUpdate 检查点的部分更新,nil字段保持不变
type ProgressUpdate struct {
	LastProcessedID   *string
	LastProcessedPage *int
	TotalProcessed    *int
	Status            *TaskStatus
	Error             *string // 空字符串表示清除
}

// WithStatus 构造仅更新状态的ProgressUpdate
func WithStatus(status TaskStatus) ProgressUpdate {
	return ProgressUpdate{Status: &status}
}

// PageDone 构造页面完成后的检查点更新
func PageDone(page, total int, lastID string) ProgressUpdate {
	u := ProgressUpdate{
		LastProcessedPage: &page,
		TotalProcessed:    &total,
	}
	if lastID != "" {
		u.LastProcessedID = &lastID
	}
	return u
}

// Failed 构造失败状态更新
func Failed(err error) ProgressUpdate {
	status := TaskStatusFailed
	msg := "未知错误"
	if err != nil && err.Error() != "" {
		msg = err.Error()
	}
	return ProgressUpdate{Status: &status, Error: &msg}
}
