package core

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/RecoveryAshes/SkoolCrawl/internal/models"
	"github.com/RecoveryAshes/SkoolCrawl/internal/storage"
)

func TestLoadStatus(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "db", "skool.db")

	store, err := storage.Open(path, storage.DefaultOptions())
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	points := 5
	if err := store.Sink.Upsert(ctx, &models.Member{ID: "m1", Username: "alice", DisplayName: "Alice", Points: &points}); err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}
	if err := store.Progress.Update(ctx, models.TaskMembers, models.PageDone(4, 120, "m1")); err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	if err := store.Progress.Update(ctx, models.TaskMembers, models.Failed(errors.New("导航失败 [https://www.skool.com/group/members?p=5]: timeout"))); err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	store.Close()

	status, err := LoadStatus(ctx, path)
	if err != nil {
		t.Fatalf("LoadStatus() error = %v", err)
	}
	if len(status.Checkpoints) != 1 || status.RowCounts["members"] != 1 {
		t.Fatalf("status = %+v", status)
	}

	var buf bytes.Buffer
	status.Print(&buf)
	out := buf.String()
	for _, want := range []string{"members", "failed", "120", "导航失败", "likes"} {
		if !strings.Contains(out, want) {
			t.Errorf("输出缺少 %q:\n%s", want, out)
		}
	}
}

func TestStatusPrintEmpty(t *testing.T) {
	var buf bytes.Buffer
	(&Status{RowCounts: map[string]int{}}).Print(&buf)
	if !strings.Contains(buf.String(), "无检查点") {
		t.Errorf("输出 = %s", buf.String())
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("第一行\n第二行", 10); got != "第一行 第二行" {
		t.Errorf("truncate() = %q", got)
	}
	if got := truncate("错误错误错误", 2); got != "错误..." {
		t.Errorf("truncate() = %q", got)
	}
}
