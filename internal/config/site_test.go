package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/RecoveryAshes/SkoolCrawl/internal/models"
)

func TestLoadCreatesTemplate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "configs", "site.yaml")
	loader := NewSiteConfigLoader(path)

	profile, err := loader.Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Errorf("模板文件未生成: %v", err)
	}

	if profile.Domain != "skool.com" {
		t.Errorf("Domain = %q", profile.Domain)
	}
	if profile.Viewport.Width != 1920 || profile.Viewport.Height != 1080 {
		t.Errorf("Viewport = %+v", profile.Viewport)
	}
	if len(profile.Auth.Indicators) != 8 {
		t.Errorf("登录指示器数量 = %d", len(profile.Auth.Indicators))
	}

	members, ok := profile.Task(models.TaskMembers)
	if !ok {
		t.Fatal("缺少members任务配置")
	}
	if members.Items[0] != `[data-testid="member-card"]` {
		t.Errorf("第一个条目选择器 = %q", members.Items[0])
	}
	if members.Tab[1].Text != "Members" {
		t.Errorf("Tab[1] = %+v", members.Tab[1])
	}
	if members.Fields["id"].Attr != "href" || members.Fields["points"].Pattern != `\d+` {
		t.Errorf("字段规则错误: %+v", members.Fields)
	}
}

func TestLoadMergesOverTemplate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "site.yaml")
	content := `
user_agent: "custom-agent"
headers:
  X-Debug: "1"
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	profile, err := NewSiteConfigLoader(path).Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if profile.UserAgent != "custom-agent" {
		t.Errorf("UserAgent = %q", profile.UserAgent)
	}
	if _, ok := profile.Task(models.TaskMembers); !ok {
		t.Error("文件未覆盖的任务配置应来自模板")
	}
	// viper键名不区分大小写
	if profile.Headers["x-debug"] != "1" {
		t.Errorf("Headers = %v", profile.Headers)
	}
}

func TestLoadInvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "site.yaml")
	os.WriteFile(path, []byte("tasks: [unclosed"), 0644)

	_, err := NewSiteConfigLoader(path).Load()
	var ce *models.ConfigError
	if !errors.As(err, &ce) {
		t.Errorf("应返回ConfigError, 得到 %v", err)
	}
}

func TestValidateFileSize(t *testing.T) {
	path := filepath.Join(t.TempDir(), "site.yaml")
	os.WriteFile(path, []byte("# "+strings.Repeat("x", MaxConfigFileSize)), 0644)

	if err := NewSiteConfigLoader(path).ValidateFileSize(); err == nil {
		t.Error("超过1MB的配置文件应报错")
	}
}

func TestDefaultProfile(t *testing.T) {
	profile, err := DefaultProfile()
	if err != nil {
		t.Fatalf("DefaultProfile() error = %v", err)
	}
	if profile.Timezone != "America/New_York" || profile.Locale != "en-US" {
		t.Errorf("指纹配置错误: %+v", profile)
	}
}
