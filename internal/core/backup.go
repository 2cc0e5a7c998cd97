package core

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/RecoveryAshes/SkoolCrawl/internal/models"
	"github.com/RecoveryAshes/SkoolCrawl/internal/utils"
)

// PageBackup 单页备份文件内容
type PageBackup struct {
	RunID   string          `json:"run_id"`
	Task    models.TaskType `json:"task"`
	Page    int             `json:"page"`
	URL     string          `json:"url,omitempty"`
	SavedAt time.Time       `json:"saved_at"`
	Count   int             `json:"count"`
	Records []models.Entity `json:"records"`
}

// BackupWriter 按页写入JSON备份,只写不读
type BackupWriter struct {
	baseDir string
}

// NewBackupWriter 创建备份写入器,文件位于 <baseDir>/<task>/page_0001.json
func NewBackupWriter(baseDir string) *BackupWriter {
	return &BackupWriter{baseDir: baseDir}
}

// PathFor 返回某页备份的文件路径
func (w *BackupWriter) PathFor(task models.TaskType, page int) string {
	return filepath.Join(w.baseDir, string(task), fmt.Sprintf("page_%04d.json", page))
}

// Write 写入一页的备份
func (w *BackupWriter) Write(b PageBackup) (string, error) {
	if b.Records == nil {
		b.Records = []models.Entity{}
	}
	b.Count = len(b.Records)
	path := w.PathFor(b.Task, b.Page)
	if err := utils.WriteJSONFile(path, b); err != nil {
		return "", err
	}
	return path, nil
}
