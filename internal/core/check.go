package core

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/RecoveryAshes/SkoolCrawl/internal/config"
	"github.com/RecoveryAshes/SkoolCrawl/internal/crawlers"
	"github.com/RecoveryAshes/SkoolCrawl/internal/models"
	"github.com/RecoveryAshes/SkoolCrawl/internal/storage"
	"github.com/RecoveryAshes/SkoolCrawl/internal/utils"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
)

// CheckStatus 检查结果等级
type CheckStatus int

const (
	CheckOK CheckStatus = iota
	CheckWarn
	CheckFail
)

func (s CheckStatus) icon() string {
	switch s {
	case CheckOK:
		return "✅"
	case CheckWarn:
		return "⚠️ "
	default:
		return "❌"
	}
}

// CheckResult 单项检查结果
type CheckResult struct {
	Name   string
	Status CheckStatus
	Detail string
	Hint   string // 失败或警告时的处理建议
}

const (
	minAvailableMemory = 1 << 30 // 1GB
	cpuBusyPercent     = 90.0
)

// EnvChecker 运行环境检查
type EnvChecker struct {
	cfg *Config

	lookPath    func() (string, bool)
	resolveURL  func(u string) (string, error)
	memory      func(ctx context.Context) (*mem.VirtualMemoryStat, error)
	cpuPercent  func(ctx context.Context) ([]float64, error)
	cpuCount    func(ctx context.Context) (int, error)
	openStorage func(path string) error
}

// NewEnvChecker 创建环境检查器
func NewEnvChecker(cfg *Config) *EnvChecker {
	return &EnvChecker{
		cfg:        cfg,
		lookPath:   launcher.LookPath,
		resolveURL: launcher.ResolveURL,
		memory:     mem.VirtualMemoryWithContext,
		cpuPercent: func(ctx context.Context) ([]float64, error) {
			return cpu.PercentWithContext(ctx, 200*time.Millisecond, false)
		},
		cpuCount: func(ctx context.Context) (int, error) {
			return cpu.CountsWithContext(ctx, true)
		},
		openStorage: func(path string) error {
			s, err := storage.Open(path, storage.DefaultOptions())
			if err != nil {
				return err
			}
			return s.Close()
		},
	}
}

// Run 执行全部检查
func (c *EnvChecker) Run(ctx context.Context) []CheckResult {
	results := []CheckResult{{
		Name:   "运行环境",
		Status: CheckOK,
		Detail: fmt.Sprintf("%s %s/%s", runtime.Version(), runtime.GOOS, runtime.GOARCH),
	}}

	domain := "skool.com"
	site, profile := c.checkSiteConfig()
	if profile != nil {
		domain = profile.Domain
	}
	results = append(results,
		c.checkCookie(domain),
		site,
		c.checkBrowser(),
		c.checkMemory(ctx),
		c.checkCPU(ctx),
		c.checkStorage(),
		c.checkDataDir(),
	)
	return results
}

func (c *EnvChecker) checkCookie(domain string) CheckResult {
	r := CheckResult{Name: "会话cookie"}
	raw := c.cfg.Auth.Cookie
	if strings.TrimSpace(raw) == "" {
		r.Status = CheckFail
		r.Detail = "未设置"
		r.Hint = "在 .env 中设置 SKOOL_COOKIE (从浏览器开发者工具复制cookie)"
		return r
	}
	cookies, err := crawlers.ParseCredential(raw, "."+domain)
	if err != nil {
		r.Status = CheckFail
		r.Detail = err.Error()
		r.Hint = "格式应为 name=value; name2=value2"
		return r
	}
	r.Status = CheckOK
	r.Detail = fmt.Sprintf("%d 个cookie: %s", len(cookies), utils.NewHeaderRedactor().RedactCookieString(raw))
	return r
}

func (c *EnvChecker) checkSiteConfig() (CheckResult, *models.SiteProfile) {
	r := CheckResult{Name: "站点配置"}
	loader := config.NewSiteConfigLoader(c.cfg.Output.SiteConfig)
	profile, err := loader.Load()
	if err != nil {
		r.Status = CheckFail
		r.Detail = err.Error()
		r.Hint = fmt.Sprintf("删除 %s 后重新运行将生成默认配置", loader.Path())
		return r, nil
	}
	r.Status = CheckOK
	r.Detail = fmt.Sprintf("%s (%d 个任务配置, %s)", profile.Domain, len(profile.Tasks), loader.Path())
	return r, profile
}

func (c *EnvChecker) checkBrowser() CheckResult {
	r := CheckResult{Name: "浏览器"}
	b := c.cfg.Browser

	switch {
	case b.UseExisting:
		u, err := c.resolveURL(b.DebugURL)
		if err != nil {
			r.Status = CheckFail
			r.Detail = fmt.Sprintf("无法连接 %s: %v", b.DebugURL, err)
			r.Hint = "使用 --remote-debugging-port=9222 启动Chrome,或关闭 USE_EXISTING_CHROME"
			return r
		}
		r.Status = CheckOK
		r.Detail = "已运行的Chrome: " + u
	case b.BinPath != "":
		if _, err := os.Stat(b.BinPath); err != nil {
			r.Status = CheckFail
			r.Detail = fmt.Sprintf("找不到 %s", b.BinPath)
			r.Hint = "检查 browser.bin_path 配置"
			return r
		}
		r.Status = CheckOK
		r.Detail = b.BinPath
	default:
		path, found := c.lookPath()
		if !found {
			r.Status = CheckWarn
			r.Detail = "未找到本地Chrome"
			r.Hint = "首次运行时会自动下载Chromium"
			return r
		}
		r.Status = CheckOK
		r.Detail = path
	}
	return r
}

func (c *EnvChecker) checkMemory(ctx context.Context) CheckResult {
	r := CheckResult{Name: "内存"}
	vm, err := c.memory(ctx)
	if err != nil {
		r.Status = CheckWarn
		r.Detail = fmt.Sprintf("获取内存信息失败: %v", err)
		return r
	}
	r.Detail = fmt.Sprintf("可用 %.2f GB / 共 %.2f GB", gb(vm.Available), gb(vm.Total))
	if vm.Available < minAvailableMemory {
		r.Status = CheckWarn
		r.Hint = "可用内存不足1GB,浏览器可能崩溃"
		return r
	}
	r.Status = CheckOK
	return r
}

func (c *EnvChecker) checkCPU(ctx context.Context) CheckResult {
	r := CheckResult{Name: "CPU"}
	n, err := c.cpuCount(ctx)
	if err != nil {
		r.Status = CheckWarn
		r.Detail = fmt.Sprintf("获取CPU信息失败: %v", err)
		return r
	}
	percent, err := c.cpuPercent(ctx)
	if err != nil || len(percent) == 0 {
		r.Status = CheckOK
		r.Detail = fmt.Sprintf("%d 核", n)
		return r
	}
	r.Detail = fmt.Sprintf("%d 核, 使用率 %.1f%%", n, percent[0])
	if percent[0] > cpuBusyPercent {
		r.Status = CheckWarn
		r.Hint = "CPU负载过高,页面加载可能超时"
		return r
	}
	r.Status = CheckOK
	return r
}

func (c *EnvChecker) checkStorage() CheckResult {
	r := CheckResult{Name: "数据库"}
	path := c.cfg.Storage.DBPath
	if err := c.openStorage(path); err != nil {
		r.Status = CheckFail
		r.Detail = err.Error()
		r.Hint = fmt.Sprintf("检查 %s 所在目录的权限,或通过 --db 指定其他路径", filepath.Dir(path))
		return r
	}
	r.Status = CheckOK
	r.Detail = path
	return r
}

func (c *EnvChecker) checkDataDir() CheckResult {
	r := CheckResult{Name: "数据目录"}
	dir := c.cfg.Output.DataDir
	if err := utils.CheckWritable(dir); err != nil {
		r.Status = CheckFail
		r.Detail = err.Error()
		r.Hint = "通过 --data-dir 指定可写目录"
		return r
	}
	r.Status = CheckOK
	r.Detail = dir
	return r
}

func gb(b uint64) float64 {
	return float64(b) / (1024 * 1024 * 1024)
}

// PrintChecks 打印检查结果,没有失败项时返回true
func PrintChecks(w io.Writer, results []CheckResult) bool {
	line := strings.Repeat("=", 46)
	fmt.Fprintln(w, line)
	fmt.Fprintln(w, "  SkoolCrawl 环境检查")
	fmt.Fprintln(w, line)

	ok := true
	for _, r := range results {
		fmt.Fprintf(w, "%s %s: %s\n", r.Status.icon(), r.Name, r.Detail)
		if r.Hint != "" {
			fmt.Fprintf(w, "   %s\n", r.Hint)
		}
		if r.Status == CheckFail {
			ok = false
		}
	}

	fmt.Fprintln(w, line)
	if ok {
		fmt.Fprintln(w, "✅ 环境检查通过")
	} else {
		fmt.Fprintln(w, "❌ 环境检查未通过,请根据上面的提示修复")
	}
	return ok
}
