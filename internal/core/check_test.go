package core

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/shirou/gopsutil/v3/mem"
)

func stubChecker(cfg *Config) *EnvChecker {
	c := NewEnvChecker(cfg)
	c.lookPath = func() (string, bool) { return "/usr/bin/chromium", true }
	c.resolveURL = func(u string) (string, error) { return "ws://127.0.0.1:9222/devtools/browser/abc", nil }
	c.memory = func(context.Context) (*mem.VirtualMemoryStat, error) {
		return &mem.VirtualMemoryStat{Total: 8 << 30, Available: 4 << 30}, nil
	}
	c.cpuPercent = func(context.Context) ([]float64, error) { return []float64{12.5}, nil }
	c.cpuCount = func(context.Context) (int, error) { return 8, nil }
	return c
}

func findCheck(t *testing.T, results []CheckResult, name string) CheckResult {
	t.Helper()
	for _, r := range results {
		if r.Name == name {
			return r
		}
	}
	t.Fatalf("缺少检查项 %s", name)
	return CheckResult{}
}

func TestEnvChecker(t *testing.T) {
	t.Run("全部通过", func(t *testing.T) {
		cfg := testConfig(t)
		results := stubChecker(cfg).Run(context.Background())

		for _, r := range results {
			if r.Status != CheckOK {
				t.Errorf("%s: status = %d, detail = %s", r.Name, r.Status, r.Detail)
			}
		}
		cookie := findCheck(t, results, "会话cookie")
		if !strings.HasPrefix(cookie.Detail, "2 个cookie") || strings.Contains(cookie.Detail, "xyz") {
			t.Errorf("cookie detail = %q", cookie.Detail)
		}
		if site := findCheck(t, results, "站点配置"); !strings.HasPrefix(site.Detail, "skool.com") {
			t.Errorf("site detail = %q", site.Detail)
		}

		var buf bytes.Buffer
		if !PrintChecks(&buf, results) {
			t.Errorf("PrintChecks() = false:\n%s", buf.String())
		}
	})

	t.Run("缺少cookie", func(t *testing.T) {
		cfg := testConfig(t)
		cfg.Auth.Cookie = ""
		results := stubChecker(cfg).Run(context.Background())
		if r := findCheck(t, results, "会话cookie"); r.Status != CheckFail || r.Hint == "" {
			t.Errorf("cookie = %+v", r)
		}
		if PrintChecks(&bytes.Buffer{}, results) {
			t.Error("存在失败项时PrintChecks应返回false")
		}
	})

	t.Run("已运行的Chrome不可达", func(t *testing.T) {
		cfg := testConfig(t)
		cfg.Browser.UseExisting = true
		cfg.Browser.DebugURL = "http://localhost:9222"
		c := stubChecker(cfg)
		c.resolveURL = func(string) (string, error) { return "", errors.New("connection refused") }

		r := findCheck(t, c.Run(context.Background()), "浏览器")
		if r.Status != CheckFail || !strings.Contains(r.Detail, "localhost:9222") {
			t.Errorf("browser = %+v", r)
		}
	})

	t.Run("未找到本地Chrome只是警告", func(t *testing.T) {
		c := stubChecker(testConfig(t))
		c.lookPath = func() (string, bool) { return "", false }
		if r := findCheck(t, c.Run(context.Background()), "浏览器"); r.Status != CheckWarn {
			t.Errorf("browser = %+v", r)
		}
	})

	t.Run("资源紧张", func(t *testing.T) {
		c := stubChecker(testConfig(t))
		c.memory = func(context.Context) (*mem.VirtualMemoryStat, error) {
			return &mem.VirtualMemoryStat{Total: 2 << 30, Available: 256 << 20}, nil
		}
		c.cpuPercent = func(context.Context) ([]float64, error) { return []float64{97}, nil }

		results := c.Run(context.Background())
		if r := findCheck(t, results, "内存"); r.Status != CheckWarn {
			t.Errorf("memory = %+v", r)
		}
		if r := findCheck(t, results, "CPU"); r.Status != CheckWarn || !strings.Contains(r.Detail, "97.0%") {
			t.Errorf("cpu = %+v", r)
		}
	})

	t.Run("数据库无法打开", func(t *testing.T) {
		c := stubChecker(testConfig(t))
		c.openStorage = func(string) error { return errors.New("unable to open database file") }
		if r := findCheck(t, c.Run(context.Background()), "数据库"); r.Status != CheckFail {
			t.Errorf("storage = %+v", r)
		}
	})
}
