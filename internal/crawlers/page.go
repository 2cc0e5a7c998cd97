package crawlers

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/RecoveryAshes/SkoolCrawl/internal/models"
	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
)

// Page 浏览器页面边界,控制器和认证器只通过它操作页面
type Page interface {
	// Navigate 导航到url并等待DOMContentLoaded
	Navigate(ctx context.Context, url string, timeout time.Duration) error
	// Snapshot 返回当前渲染后DOM的快照
	Snapshot(ctx context.Context) (*goquery.Document, error)
	// Click 按顺序尝试候选定位器,点击第一个可见元素,返回实际点击的定位器
	Click(ctx context.Context, candidates []models.Locator, timeout time.Duration) (models.Locator, error)
	// WaitFor 等待选择器出现,超时返回false
	WaitFor(ctx context.Context, selector string, timeout time.Duration) bool
	// Screenshot 保存截图
	Screenshot(ctx context.Context, path string) error
}

// RodPage 基于rod.Page的Page实现
type RodPage struct {
	page *rod.Page
}

// NewRodPage 包装rod页面
func NewRodPage(page *rod.Page) *RodPage {
	return &RodPage{page: page}
}

// Navigate 实现Page接口
func (r *RodPage) Navigate(ctx context.Context, url string, timeout time.Duration) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = &models.NavigationError{URL: url, Cause: fmt.Errorf("panic: %v", rec)}
		}
	}()

	tctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	p := r.page.Context(tctx)
	wait := p.WaitNavigation(proto.PageLifecycleEventNameDOMContentLoaded)
	if err := p.Navigate(url); err != nil {
		return &models.NavigationError{URL: url, Cause: err}
	}
	// 超时后wait直接返回,不带错误
	wait()

	if err := tctx.Err(); err != nil {
		return &models.NavigationError{URL: url, Cause: err}
	}
	return nil
}

// Snapshot 实现Page接口
func (r *RodPage) Snapshot(ctx context.Context) (*goquery.Document, error) {
	html, err := r.page.Context(ctx).HTML()
	if err != nil {
		return nil, fmt.Errorf("获取页面HTML失败: %w", err)
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("解析页面HTML失败: %w", err)
	}
	return doc, nil
}

// Click 实现Page接口,点击后等待网络空闲
func (r *RodPage) Click(ctx context.Context, candidates []models.Locator, timeout time.Duration) (models.Locator, error) {
	tctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	p := r.page.Context(tctx)

	for _, loc := range candidates {
		els, err := p.Elements(loc.CSS)
		if err != nil {
			if ctx.Err() != nil {
				return models.Locator{}, ctx.Err()
			}
			continue
		}
		for _, el := range els {
			if loc.Text != "" {
				text, err := el.Text()
				if err != nil || !strings.Contains(strings.ToLower(text), strings.ToLower(loc.Text)) {
					continue
				}
			}
			if visible, err := el.Visible(); err != nil || !visible {
				continue
			}
			if r.clickAndWait(tctx, el) {
				return loc, nil
			}
		}
	}
	return models.Locator{}, models.ErrNoClickable
}

// clickAndWait 点击元素并等待网络空闲,点击失败时注销等待
func (r *RodPage) clickAndWait(ctx context.Context, el *rod.Element) bool {
	wctx, cancel := context.WithCancel(ctx)
	defer cancel()

	wait := r.page.Context(wctx).WaitRequestIdle(500*time.Millisecond, nil, nil, nil)
	if err := el.Click(proto.InputMouseButtonLeft, 1); err != nil {
		return false
	}
	wait()
	return true
}

// WaitFor 实现Page接口
func (r *RodPage) WaitFor(ctx context.Context, selector string, timeout time.Duration) bool {
	tctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	_, err := r.page.Context(tctx).Element(selector)
	return err == nil
}

// Screenshot 实现Page接口
func (r *RodPage) Screenshot(ctx context.Context, path string) error {
	data, err := r.page.Context(ctx).Screenshot(false, nil)
	if err != nil {
		return fmt.Errorf("截图失败: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// Close 关闭页面
func (r *RodPage) Close() error {
	return r.page.Close()
}
