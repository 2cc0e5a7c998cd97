package core

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/RecoveryAshes/SkoolCrawl/internal/crawlers"
	"github.com/RecoveryAshes/SkoolCrawl/internal/models"
	"github.com/RecoveryAshes/SkoolCrawl/internal/utils"
	"github.com/google/uuid"
	"golang.org/x/time/rate"
)

// ProgressStore 检查点存储
type ProgressStore interface {
	GetOrCreate(ctx context.Context, task models.TaskType) (*models.ScrapeProgress, error)
	Update(ctx context.Context, task models.TaskType, u models.ProgressUpdate) error
	Reset(ctx context.Context, task models.TaskType) error
}

// EntitySink 实体写入
type EntitySink interface {
	Upsert(ctx context.Context, e models.Entity) error
}

// ControllerConfig 控制器依赖和参数
type ControllerConfig struct {
	Strategy *crawlers.Strategy
	Page     crawlers.Page
	Progress ProgressStore
	Sink     EntitySink
	Backups  *BackupWriter

	Delay      DelayPolicy
	NavTimeout time.Duration
	Settle     time.Duration
	Limiter    *rate.Limiter // 限制导航和点击频率,nil表示不限制
	Restart    bool          // 运行前重置检查点

	ScreenshotDir string    // 为空时不截图
	ProgressOut   io.Writer // 进度条输出,nil时不显示
	RunID         string

	Now   func() time.Time
	Sleep func(ctx context.Context, d time.Duration) error
}

// Controller 可恢复的分页抓取控制器
// 状态: pending → in_progress → completed | failed
type Controller struct {
	cfg ControllerConfig
}

// NewController 创建控制器
func NewController(cfg ControllerConfig) (*Controller, error) {
	if cfg.Strategy == nil || cfg.Page == nil || cfg.Progress == nil || cfg.Sink == nil {
		return nil, errors.New("控制器缺少必要依赖(strategy/page/progress/sink)")
	}
	if cfg.Strategy.PageURL == nil || cfg.Strategy.Extract == nil {
		return nil, fmt.Errorf("任务 %s 的提取策略不完整", cfg.Strategy.Task)
	}
	if cfg.NavTimeout <= 0 {
		cfg.NavTimeout = 60 * time.Second
	}
	if cfg.RunID == "" {
		cfg.RunID = uuid.NewString()
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Sleep == nil {
		cfg.Sleep = crawlers.SleepContext
	}
	return &Controller{cfg: cfg}, nil
}

// pageResult 单页处理结果
type pageResult struct {
	stored  int
	skipped int
	failed  int
	lastID  string
	records []models.Entity
}

// Run 执行任务直到没有下一页或发生不可恢复的错误
// 已完成的任务直接跳过;失败时写入failed检查点后返回原错误
func (c *Controller) Run(ctx context.Context) (models.TaskReport, error) {
	task := c.cfg.Strategy.Task
	report := models.TaskReport{
		Task:      task,
		RunID:     c.cfg.RunID,
		StartedAt: c.cfg.Now(),
	}

	if c.cfg.Restart {
		if err := c.cfg.Progress.Reset(ctx, task); err != nil {
			return c.finish(report, err)
		}
		utils.Infof("[%s] 检查点已重置", task)
	}

	cp, err := c.cfg.Progress.GetOrCreate(ctx, task)
	if err != nil {
		return c.finish(report, err)
	}
	if cp.Status == models.TaskStatusCompleted {
		utils.Infof("[%s] 任务已完成 (共 %d 条),跳过。使用 --restart 重新抓取", task, cp.TotalProcessed)
		report.AlreadyDone = true
		report.Status = models.TaskStatusCompleted
		report.Total = cp.TotalProcessed
		return c.finish(report, nil)
	}

	page, total := cp.ResumePage()
	report.StartPage = page
	report.Total = total
	if page > 1 {
		utils.Infof("[%s] 从第 %d 页继续 (已处理 %d 条)", task, page, total)
	}

	started := models.TaskStatusInProgress
	cleared := ""
	if err := c.cfg.Progress.Update(ctx, task, models.ProgressUpdate{Status: &started, Error: &cleared}); err != nil {
		return c.fail(ctx, report, err)
	}

	advanced := false
	for {
		doc, err := c.openPage(ctx, page, advanced)
		if err != nil {
			return c.fail(ctx, report, err)
		}

		items, matched, err := c.cfg.Strategy.LocateItems(doc, page)
		if err != nil {
			if page == 1 {
				return c.fail(ctx, report, err)
			}
			utils.Infof("[%s] 第 %d 页没有条目,视为最后一页", task, page)
			break
		}
		utils.Debugf("[%s] 第 %d 页使用选择器 %s 找到 %d 个条目", task, page, matched, items.Length())

		res := c.processItems(ctx, items, matched, page)
		total += res.stored
		report.Stored += res.stored
		report.Skipped += res.skipped
		report.Failed += res.failed

		c.writeBackup(page, res.records)

		if err := c.cfg.Progress.Update(ctx, task, models.PageDone(page, total, res.lastID)); err != nil {
			return c.fail(ctx, report, err)
		}
		report.LastPage = page
		report.Pages++
		report.Total = total
		utils.Infof("[%s] 第 %d 页完成: 写入 %d, 跳过 %d, 失败 %d, 累计 %d",
			task, page, res.stored, res.skipped, res.failed, total)

		next, more := c.cfg.Strategy.NextControl(doc)
		if !more {
			break
		}

		delay := c.cfg.Delay.Next()
		utils.Debugf("[%s] 翻页前等待 %v", task, delay)
		if err := c.cfg.Sleep(ctx, delay); err != nil {
			return c.fail(ctx, report, err)
		}

		page++
		advanced = c.clickNext(ctx, next, page)
	}

	done := models.TaskStatusCompleted
	if err := c.cfg.Progress.Update(ctx, task, models.ProgressUpdate{Status: &done}); err != nil {
		return c.fail(ctx, report, err)
	}
	report.Status = models.TaskStatusCompleted
	utils.Infof("[%s] 任务完成: 本次 %d 页, 写入 %d 条, 累计 %d 条", task, report.Pages, report.Stored, total)
	return c.finish(report, nil)
}

// openPage 进入指定页并返回DOM快照
// advanced表示已通过点击下一页到达;否则第1页走标签导航,其余页直接导航
func (c *Controller) openPage(ctx context.Context, page int, advanced bool) (*goquery.Document, error) {
	s := c.cfg.Strategy
	switch {
	case advanced:
		c.settle(ctx)
	case page == 1:
		if err := c.enterListing(ctx); err != nil {
			return nil, err
		}
	default:
		if err := c.navigate(ctx, s.PageURL(page)); err != nil {
			return nil, err
		}
	}

	doc, err := c.cfg.Page.Snapshot(ctx)
	if err != nil {
		return nil, fmt.Errorf("读取第 %d 页快照失败: %w", page, err)
	}
	return doc, nil
}

// enterListing 第1页: 打开社区首页并点击标签,失败时直接访问列表页
func (c *Controller) enterListing(ctx context.Context) error {
	s := c.cfg.Strategy

	if s.EntryURL != "" && len(s.TabLocators) > 0 {
		err := c.navigateOnce(ctx, s.EntryURL)
		if err == nil {
			c.settle(ctx)
			c.screenshot(ctx, "community-home.png")

			if err := c.limit(ctx); err != nil {
				return err
			}
			loc, err := c.cfg.Page.Click(ctx, s.TabLocators, c.cfg.NavTimeout)
			if err == nil {
				utils.Debugf("[%s] 通过 %s 进入列表页", s.Task, loc)
				c.settle(ctx)
				c.screenshot(ctx, string(s.Task)+"-page.png")
				return nil
			}
			utils.Warnf("[%s] 未找到可点击的标签 (%v),直接访问列表页", s.Task, err)
		} else {
			utils.Warnf("[%s] 打开社区首页失败 (%v),直接访问列表页", s.Task, err)
		}
	}

	if err := c.navigateOnce(ctx, s.PageURL(1)); err != nil {
		return err
	}
	c.settle(ctx)
	c.screenshot(ctx, string(s.Task)+"-page.png")
	return nil
}

// navigate 导航并等待条目出现,失败后重试一次
func (c *Controller) navigate(ctx context.Context, url string) error {
	err := c.navigateOnce(ctx, url)
	if err != nil {
		if ctx.Err() != nil {
			return err
		}
		utils.Warnf("[%s] 导航失败,重试一次: %v", c.cfg.Strategy.Task, err)
		if serr := c.cfg.Sleep(ctx, c.cfg.Delay.Next()); serr != nil {
			return err
		}
		if err = c.navigateOnce(ctx, url); err != nil {
			return err
		}
	}
	c.settle(ctx)
	return nil
}

func (c *Controller) navigateOnce(ctx context.Context, url string) error {
	if err := c.limit(ctx); err != nil {
		return &models.NavigationError{URL: url, Cause: err}
	}
	return c.cfg.Page.Navigate(ctx, url, c.cfg.NavTimeout)
}

// clickNext 点击下一页控件,失败时返回false,由下一轮直接导航
func (c *Controller) clickNext(ctx context.Context, selector string, page int) bool {
	if err := c.limit(ctx); err != nil {
		return false
	}
	if _, err := c.cfg.Page.Click(ctx, []models.Locator{{CSS: selector}}, c.cfg.NavTimeout); err != nil {
		utils.Warnf("[%s] 点击下一页失败 (%v),改为直接访问第 %d 页", c.cfg.Strategy.Task, err, page)
		return false
	}
	return true
}

// settle 等待条目选择器出现,最长等待Settle
func (c *Controller) settle(ctx context.Context) {
	if c.cfg.Settle <= 0 {
		return
	}
	sel := strings.Join(c.cfg.Strategy.ItemSelectors, ", ")
	if !c.cfg.Page.WaitFor(ctx, sel, c.cfg.Settle) {
		utils.Debugf("[%s] 等待 %v 后仍未出现条目", c.cfg.Strategy.Task, c.cfg.Settle)
	}
}

func (c *Controller) limit(ctx context.Context) error {
	if c.cfg.Limiter == nil {
		return nil
	}
	return c.cfg.Limiter.Wait(ctx)
}

// processItems 逐个提取并写入条目,单个条目的失败只记录不中断
func (c *Controller) processItems(ctx context.Context, items *goquery.Selection, matched string, page int) pageResult {
	var res pageResult
	task := c.cfg.Strategy.Task
	now := c.cfg.Now()

	var bar interface{ Add(int) error }
	if c.cfg.ProgressOut != nil {
		pb := utils.NewProgressBarTo(c.cfg.ProgressOut, items.Length(), fmt.Sprintf("[%s] 第%d页", task, page))
		defer pb.Finish()
		bar = pb
	}

	for i, n := 0, items.Length(); i < n; i++ {
		if bar != nil {
			bar.Add(1)
		}

		entity, missing := c.cfg.Strategy.ExtractOne(items.Eq(i), now)
		if entity == nil {
			res.skipped++
			utils.Logger.Warn().
				Str("task", string(task)).
				Int("page", page).
				Int("item", i).
				Str("selector", matched).
				Strs("missing", missing).
				Msg("无法解析条目ID,跳过")
			continue
		}
		if len(missing) > 0 {
			utils.Logger.Debug().
				Str("task", string(task)).
				Int("page", page).
				Int("item", i).
				Str("id", entity.EntityID()).
				Strs("missing", missing).
				Msg("部分字段缺失,使用默认值")
		}
		res.records = append(res.records, entity)

		if err := c.cfg.Sink.Upsert(ctx, entity); err != nil {
			res.failed++
			utils.Logger.Warn().
				Err(err).
				Str("task", string(task)).
				Int("page", page).
				Int("item", i).
				Str("id", entity.EntityID()).
				Msg("写入失败,跳过")
			continue
		}
		res.stored++
		res.lastID = entity.EntityID()
	}
	return res
}

func (c *Controller) writeBackup(page int, records []models.Entity) {
	if c.cfg.Backups == nil {
		return
	}
	path, err := c.cfg.Backups.Write(PageBackup{
		RunID:   c.cfg.RunID,
		Task:    c.cfg.Strategy.Task,
		Page:    page,
		URL:     c.cfg.Strategy.PageURL(page),
		SavedAt: c.cfg.Now(),
		Records: records,
	})
	if err != nil {
		utils.Warnf("[%s] 写入第 %d 页备份失败: %v", c.cfg.Strategy.Task, page, err)
		return
	}
	utils.Debugf("[%s] 备份已保存: %s", c.cfg.Strategy.Task, path)
}

func (c *Controller) screenshot(ctx context.Context, name string) {
	if c.cfg.ScreenshotDir == "" {
		return
	}
	path := filepath.Join(c.cfg.ScreenshotDir, name)
	if err := c.cfg.Page.Screenshot(ctx, path); err != nil {
		utils.Warnf("截图失败 [%s]: %v", path, err)
		return
	}
	utils.Debugf("截图已保存: %s", path)
}

// fail 写入failed检查点(不受ctx取消影响)后返回原错误
func (c *Controller) fail(ctx context.Context, report models.TaskReport, err error) (models.TaskReport, error) {
	task := c.cfg.Strategy.Task
	if uerr := c.cfg.Progress.Update(context.WithoutCancel(ctx), task, models.Failed(err)); uerr != nil {
		utils.Error(uerr, fmt.Sprintf("[%s] 写入失败状态出错", task))
	}
	utils.Error(err, fmt.Sprintf("[%s] 任务失败", task))
	report.Status = models.TaskStatusFailed
	return c.finish(report, err)
}

func (c *Controller) finish(report models.TaskReport, err error) (models.TaskReport, error) {
	report.FinishedAt = c.cfg.Now()
	if err != nil {
		report.Status = models.TaskStatusFailed
		report.Error = err.Error()
	}
	return report, err
}
