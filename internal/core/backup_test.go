package core

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/RecoveryAshes/SkoolCrawl/internal/models"
)

func TestBackupWriter(t *testing.T) {
	dir := t.TempDir()
	w := NewBackupWriter(dir)

	if got, want := w.PathFor(models.TaskMembers, 7), filepath.Join(dir, "members", "page_0007.json"); got != want {
		t.Errorf("PathFor() = %q, want %q", got, want)
	}

	t.Run("写入成员记录", func(t *testing.T) {
		points := 42
		path, err := w.Write(PageBackup{
			RunID:   "run-1",
			Task:    models.TaskMembers,
			Page:    1,
			URL:     "https://www.skool.com/group/members",
			SavedAt: time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC),
			Records: []models.Entity{
				&models.Member{ID: "m1", Username: "alice", DisplayName: "Alice", Points: &points},
			},
		})
		if err != nil {
			t.Fatalf("Write() error = %v", err)
		}

		data, err := os.ReadFile(path)
		if err != nil {
			t.Fatalf("读取备份失败: %v", err)
		}
		var got map[string]any
		if err := json.Unmarshal(data, &got); err != nil {
			t.Fatalf("备份不是合法JSON: %v", err)
		}
		if got["count"] != float64(1) || got["task"] != "members" {
			t.Errorf("备份内容 = %v", got)
		}
		records := got["records"].([]any)
		if first := records[0].(map[string]any); first["id"] != "m1" {
			t.Errorf("records[0] = %v", first)
		}
	})

	t.Run("空页写入空数组", func(t *testing.T) {
		path, err := w.Write(PageBackup{Task: models.TaskMembers, Page: 2})
		if err != nil {
			t.Fatalf("Write() error = %v", err)
		}
		data, _ := os.ReadFile(path)
		var got struct {
			Count   int   `json:"count"`
			Records []any `json:"records"`
		}
		if err := json.Unmarshal(data, &got); err != nil {
			t.Fatalf("解析失败: %v", err)
		}
		if got.Count != 0 || got.Records == nil {
			t.Errorf("got = %+v, want records为[]", got)
		}
	})
}
