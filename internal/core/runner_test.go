package core

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/RecoveryAshes/SkoolCrawl/internal/crawlers/crawlertest"
	"github.com/RecoveryAshes/SkoolCrawl/internal/models"
	"github.com/RecoveryAshes/SkoolCrawl/internal/storage"
)

func testConfig(t *testing.T) *Config {
	t.Helper()
	dir := t.TempDir()
	return &Config{
		Auth: AuthConfig{Cookie: "auth_token=abc; client_id=xyz"},
		Crawl: CrawlConfig{
			Tasks:      []string{"members"},
			Delay:      1,
			NavTimeout: 5,
		},
		Storage: StorageConfig{DBPath: ":memory:"},
		Output: OutputConfig{
			DataDir:    filepath.Join(dir, "data"),
			SiteConfig: filepath.Join(dir, "configs", "site.yaml"),
		},
	}
}

func TestNewRunnerValidation(t *testing.T) {
	tests := []struct {
		name    string
		url     string
		headers []string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "缺少cookie", url: "https://www.skool.com/group", mutate: func(c *Config) { c.Auth.Cookie = "" }, wantErr: "SKOOL_COOKIE"},
		{name: "非平台域名", url: "https://example.com/group", wantErr: "skool.com"},
		{name: "缺少社区路径", url: "https://www.skool.com/", wantErr: "社区路径"},
		{name: "非HTTP协议", url: "ftp://www.skool.com/group", wantErr: "HTTP"},
		{name: "尚未实现的任务", url: "https://www.skool.com/group", mutate: func(c *Config) { c.Crawl.Tasks = []string{"threads"} }, wantErr: "threads"},
		{name: "禁止的请求头", url: "https://www.skool.com/group", headers: []string{"Cookie: a=b"}, wantErr: "SKOOL_COOKIE"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig(t)
			if tt.mutate != nil {
				tt.mutate(cfg)
			}
			_, err := NewRunner(cfg, tt.url, tt.headers)
			if err == nil {
				t.Fatal("期望返回错误")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error = %v, want 包含 %q", err, tt.wantErr)
			}
		})
	}
}

func TestNewRunner(t *testing.T) {
	cfg := testConfig(t)
	r, err := NewRunner(cfg, "https://www.skool.com/group/?ref=abc", []string{"X-Debug: 1"})
	if err != nil {
		t.Fatalf("NewRunner() error = %v", err)
	}

	if r.communityURL != "https://www.skool.com/group" {
		t.Errorf("communityURL = %q", r.communityURL)
	}
	if len(r.strategies) != 1 || r.strategies[0].Task != models.TaskMembers {
		t.Errorf("strategies = %v", r.strategies)
	}
	if r.headers.Get("X-Debug") != "1" || r.headers.Get("Accept-Language") == "" {
		t.Errorf("headers = %v", r.headers)
	}
	if r.RunID() == "" {
		t.Error("RunID为空")
	}
	if r.ProgressOutput != nil {
		t.Error("ShowProgress=false时不应输出进度条")
	}
}

func TestRunnerRunTasks(t *testing.T) {
	cfg := testConfig(t)
	r, err := NewRunner(cfg, "https://www.skool.com/group", nil)
	if err != nil {
		t.Fatalf("NewRunner() error = %v", err)
	}
	if err := r.setupDirectories(); err != nil {
		t.Fatalf("setupDirectories() error = %v", err)
	}

	store, err := storage.Open(":memory:", storage.DefaultOptions())
	if err != nil {
		t.Fatalf("打开内存数据库失败: %v", err)
	}
	defer store.Close()

	strategy := r.strategies[0]
	page := crawlertest.New()
	page.HTML[strategy.EntryURL] = entryHTML
	page.ClickTargets[tabSelector] = strategy.ListingURL
	page.HTML[strategy.PageURL(1)] = crawlertest.MembersPage(cards(1, 3), boolPtr(false))
	page.HTML[strategy.PageURL(2)] = crawlertest.MembersPage(cards(4, 2), boolPtr(true))

	reports, err := r.runTasks(context.Background(), page, store.Progress, store.Sink)
	if err != nil {
		t.Fatalf("runTasks() error = %v", err)
	}
	if len(reports) != 1 || reports[0].Total != 5 || reports[0].RunID != r.RunID() {
		t.Errorf("reports = %+v", reports)
	}

	backup := NewBackupWriter(cfg.Output.DataDir).PathFor(models.TaskMembers, 2)
	if _, err := os.Stat(backup); err != nil {
		t.Errorf("第2页备份不存在: %v", err)
	}

	t.Run("任务失败时返回错误", func(t *testing.T) {
		failing := crawlertest.New()
		failing.HTML[strategy.EntryURL] = entryHTML
		failing.ClickTargets[tabSelector] = strategy.ListingURL
		failing.HTML[strategy.ListingURL] = crawlertest.MembersPage(nil, nil)

		r.cfg.Crawl.Restart = true
		reports, err := r.runTasks(context.Background(), failing, store.Progress, store.Sink)
		var noItems *models.NoItemsFoundError
		if !errors.As(err, &noItems) {
			t.Fatalf("runTasks() error = %v, want NoItemsFoundError", err)
		}
		if len(reports) != 1 || reports[0].Status != models.TaskStatusFailed {
			t.Errorf("reports = %+v", reports)
		}
	})
}

func TestPrintSummary(t *testing.T) {
	var buf bytes.Buffer
	PrintSummary(&buf, &models.RunReport{
		Duration: 12.5,
		Tasks: []models.TaskReport{
			{Task: models.TaskMembers, Status: models.TaskStatusCompleted, Pages: 3, Stored: 40, Total: 60},
			{Task: models.TaskThreads, Status: models.TaskStatusFailed, Error: "导航失败", Total: 7},
			{Task: models.TaskPosts, Status: models.TaskStatusCompleted, AlreadyDone: true, Total: 9},
		},
		RowCounts: map[string]int{"members": 60},
	})

	out := buf.String()
	for _, want := range []string{"3 页, 写入 40", "失败: 导航失败", "已完成,跳过 (累计 9)", "members    60 行", "耗时: 12.50秒"} {
		if !strings.Contains(out, want) {
			t.Errorf("输出缺少 %q:\n%s", want, out)
		}
	}
}
