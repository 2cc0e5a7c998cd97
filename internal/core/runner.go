package core

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/RecoveryAshes/SkoolCrawl/internal/config"
	"github.com/RecoveryAshes/SkoolCrawl/internal/crawlers"
	"github.com/RecoveryAshes/SkoolCrawl/internal/models"
	"github.com/RecoveryAshes/SkoolCrawl/internal/storage"
	"github.com/RecoveryAshes/SkoolCrawl/internal/utils"
	"github.com/google/uuid"
	"golang.org/x/time/rate"
)

// StrategyBuilder 根据站点配置和社区URL构造任务的提取策略
type StrategyBuilder func(profile *models.SiteProfile, communityURL string) (*crawlers.Strategy, error)

// strategyBuilders 已实现提取策略的任务
var strategyBuilders = map[models.TaskType]StrategyBuilder{
	models.TaskMembers: crawlers.NewMembersStrategy,
}

// Runner 一次完整的抓取运行
type Runner struct {
	cfg          *Config
	communityURL string
	runID        string

	profile    *models.SiteProfile
	headers    http.Header
	strategies []*crawlers.Strategy

	dataDir        string
	screenshotDir  string
	reportsDir     string
	ProgressOutput io.Writer // 进度条输出,nil时不显示
}

// NewRunner 校验配置和目标URL,加载站点配置并构造所有任务的提取策略
// 这里不做任何网络操作,配置错误在启动浏览器之前暴露
func NewRunner(cfg *Config, communityURL string, cliHeaders []string) (*Runner, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	profile, err := config.NewSiteConfigLoader(cfg.Output.SiteConfig).Load()
	if err != nil {
		return nil, err
	}

	if err := models.ValidateCommunityURL(communityURL, profile.Domain); err != nil {
		return nil, err
	}
	communityURL = models.NormalizeCommunityURL(communityURL)

	hm, err := NewHeaderManager(profile.Headers, cliHeaders)
	if err != nil {
		return nil, err
	}
	headers, err := hm.GetHeaders()
	if err != nil {
		return nil, err
	}

	var strategies []*crawlers.Strategy
	for _, task := range cfg.TaskTypes() {
		build, ok := strategyBuilders[task]
		if !ok {
			return nil, fmt.Errorf("任务 %s 尚未实现提取策略", task)
		}
		s, err := build(profile, communityURL)
		if err != nil {
			return nil, fmt.Errorf("构造 %s 提取策略失败: %w", task, err)
		}
		strategies = append(strategies, s)
	}

	r := &Runner{
		cfg:           cfg,
		communityURL:  communityURL,
		runID:         uuid.NewString(),
		profile:       profile,
		headers:       headers,
		strategies:    strategies,
		dataDir:       cfg.Output.DataDir,
		screenshotDir: filepath.Join(cfg.Output.DataDir, "screenshots"),
		reportsDir:    filepath.Join(cfg.Output.DataDir, "reports"),
	}
	if cfg.Crawl.ShowProgress {
		r.ProgressOutput = os.Stderr
	}
	return r, nil
}

// RunID 本次运行的ID
func (r *Runner) RunID() string {
	return r.runID
}

// Run 执行抓取
// 执行流程:
//  1. 创建数据目录,打开数据库
//  2. 启动或连接浏览器,注入会话凭据
//  3. 登录状态预检(一次)
//  4. 依次执行各任务的控制器
//  5. 打印汇总并保存运行报告
func (r *Runner) Run(ctx context.Context) (*models.RunReport, error) {
	report := &models.RunReport{
		CommunityURL: r.communityURL,
		StartTime:    time.Now(),
	}

	utils.Infof("🚀 开始抓取任务 (run=%s)", r.runID)
	utils.Infof("社区: %s", r.communityURL)
	utils.Infof("数据库: %s", r.cfg.Storage.DBPath)

	if err := r.setupDirectories(); err != nil {
		return nil, err
	}

	store, err := storage.Open(r.cfg.Storage.DBPath, storage.Options{
		BusyTimeout: time.Duration(r.cfg.Storage.BusyTimeout) * time.Millisecond,
		Synchronous: "NORMAL",
	})
	if err != nil {
		return nil, err
	}
	defer store.Close()

	browser, err := crawlers.LaunchBrowser(crawlers.BrowserOptions{
		Headless:    r.cfg.Browser.Headless,
		UseExisting: r.cfg.Browser.UseExisting,
		DebugURL:    r.cfg.Browser.DebugURL,
		SlowMotion:  time.Duration(r.cfg.Browser.SlowMo) * time.Millisecond,
		BinPath:     r.cfg.Browser.BinPath,
	})
	if err != nil {
		return nil, err
	}
	defer browser.Close()

	auth := crawlers.NewAuthenticator(r.profile, r.headers, r.communityURL)
	auth.NavTimeout = time.Duration(r.cfg.Crawl.NavTimeout) * time.Second
	auth.Settle = time.Duration(r.cfg.Crawl.VerifySettle) * time.Millisecond

	session, err := auth.CreateSession(ctx, browser, r.cfg.Auth.Cookie)
	if err != nil {
		return nil, err
	}
	defer session.Close()

	if r.cfg.Crawl.Verify {
		ok, err := auth.Verify(ctx, session.Page, r.communityURL)
		if err != nil {
			return nil, fmt.Errorf("登录状态预检失败: %w", err)
		}
		report.Verified = ok
		if ok {
			utils.Infof("✅ 已登录")
		} else {
			utils.Warn("⚠️  未检测到登录状态,cookie可能已过期,继续尝试抓取")
		}
	}

	tasks, runErr := r.runTasks(ctx, session.Page, store.Progress, store.Sink)
	report.Tasks = tasks

	if counts, err := store.Counts(context.WithoutCancel(ctx)); err != nil {
		utils.Warnf("统计数据行数失败: %v", err)
	} else {
		report.RowCounts = counts
	}

	report.EndTime = time.Now()
	report.Duration = report.EndTime.Sub(report.StartTime).Seconds()

	if path, err := utils.NewReporter(r.reportsDir).SaveRunReport(report); err != nil {
		utils.Warnf("保存运行报告失败: %v", err)
	} else {
		utils.Infof("📄 运行报告: %s", path)
	}

	PrintSummary(os.Stdout, report)
	return report, runErr
}

// runTasks 依次执行各任务;任务失败时默认停止,ContinueOnFailed时继续下一个
// 返回第一个任务错误
func (r *Runner) runTasks(ctx context.Context, page crawlers.Page, progress ProgressStore, sink EntitySink) ([]models.TaskReport, error) {
	var limiter *rate.Limiter
	if n := r.cfg.Crawl.MaxNavPerMinute; n > 0 {
		limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(n)), 1)
	}

	var screenshotDir string
	if r.cfg.Crawl.Screenshots {
		screenshotDir = r.screenshotDir
	}

	var (
		reports  []models.TaskReport
		firstErr error
	)
	for _, strategy := range r.strategies {
		c, err := NewController(ControllerConfig{
			Strategy:      strategy,
			Page:          page,
			Progress:      progress,
			Sink:          sink,
			Backups:       NewBackupWriter(r.dataDir),
			Delay:         NewDelayPolicy(r.cfg.Crawl.Delay, r.cfg.Crawl.DelayMin, r.cfg.Crawl.DelayMax),
			NavTimeout:    time.Duration(r.cfg.Crawl.NavTimeout) * time.Second,
			Settle:        time.Duration(r.cfg.Crawl.Settle) * time.Millisecond,
			Limiter:       limiter,
			Restart:       r.cfg.Crawl.Restart,
			ScreenshotDir: screenshotDir,
			ProgressOut:   r.ProgressOutput,
			RunID:         r.runID,
		})
		if err != nil {
			return reports, err
		}

		utils.Infof("▶️  任务 %s (延迟 %s)", strategy.Task, c.cfg.Delay)
		report, err := c.Run(ctx)
		reports = append(reports, report)
		if err == nil {
			continue
		}
		if firstErr == nil {
			firstErr = fmt.Errorf("任务 %s 失败: %w", strategy.Task, err)
		}
		if !r.cfg.Crawl.ContinueOnFailed || errors.Is(err, context.Canceled) {
			break
		}
		utils.Warnf("任务 %s 失败,继续下一个任务", strategy.Task)
	}
	return reports, firstErr
}

// setupDirectories 创建数据目录结构
func (r *Runner) setupDirectories() error {
	dirs := []string{r.dataDir, r.reportsDir}
	for _, s := range r.strategies {
		dirs = append(dirs, filepath.Join(r.dataDir, string(s.Task)))
	}
	if r.cfg.Crawl.Screenshots {
		dirs = append(dirs, r.screenshotDir)
	}
	if err := utils.EnsureDirs(dirs...); err != nil {
		return fmt.Errorf("创建数据目录失败: %w", err)
	}
	utils.Debugf("数据目录: %s", r.dataDir)
	return nil
}

// PrintSummary 打印运行汇总
func PrintSummary(w io.Writer, report *models.RunReport) {
	line := strings.Repeat("=", 50)
	fmt.Fprintln(w)
	fmt.Fprintln(w, line)
	fmt.Fprintln(w, "抓取汇总")
	fmt.Fprintln(w, line)
	for _, t := range report.Tasks {
		switch {
		case t.AlreadyDone:
			fmt.Fprintf(w, "%-10s 已完成,跳过 (累计 %d)\n", t.Task, t.Total)
		case t.Status == models.TaskStatusFailed:
			fmt.Fprintf(w, "%-10s 失败: %s (累计 %d,重新运行将从检查点继续)\n", t.Task, t.Error, t.Total)
		default:
			fmt.Fprintf(w, "%-10s 完成: %d 页, 写入 %d, 跳过 %d, 失败 %d, 累计 %d\n",
				t.Task, t.Pages, t.Stored, t.Skipped, t.Failed, t.Total)
		}
	}
	if len(report.RowCounts) > 0 {
		fmt.Fprintln(w, line)
		for _, table := range storage.ContentTables() {
			fmt.Fprintf(w, "%-10s %d 行\n", table, report.RowCounts[table])
		}
	}
	fmt.Fprintf(w, "耗时: %.2f秒\n", report.Duration)
	fmt.Fprintln(w, line)
}
