// Package crawlertest 提供用于测试的脚本化页面,按URL返回HTML夹具
package crawlertest

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/RecoveryAshes/SkoolCrawl/internal/models"
)

// FakePage 内存中的页面,实现crawlers.Page
type FakePage struct {
	mu sync.Mutex

	// HTML URL到页面HTML的映射
	HTML map[string]string
	// NavErrors 对指定URL的导航返回错误
	NavErrors map[string]error
	// NavErrorsOnce 只对指定URL的下一次导航返回错误
	NavErrorsOnce map[string]error
	// ClickTargets CSS选择器到点击后所在URL的映射
	ClickTargets map[string]string

	current     string
	navigations []string
	clicks      []string
	shots       []string
}

// New 创建FakePage
func New() *FakePage {
	return &FakePage{
		HTML:          make(map[string]string),
		NavErrors:     make(map[string]error),
		NavErrorsOnce: make(map[string]error),
		ClickTargets:  make(map[string]string),
	}
}

// Navigate 实现crawlers.Page
func (f *FakePage) Navigate(ctx context.Context, url string, timeout time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.navigations = append(f.navigations, url)
	if err := ctx.Err(); err != nil {
		return &models.NavigationError{URL: url, Cause: err}
	}
	if err, ok := f.NavErrors[url]; ok {
		return &models.NavigationError{URL: url, Cause: err}
	}
	if err, ok := f.NavErrorsOnce[url]; ok {
		delete(f.NavErrorsOnce, url)
		return &models.NavigationError{URL: url, Cause: err}
	}
	if _, ok := f.HTML[url]; !ok {
		return &models.NavigationError{URL: url, Cause: errors.New("net::ERR_NAME_NOT_RESOLVED")}
	}
	f.current = url
	return nil
}

// Snapshot 实现crawlers.Page
func (f *FakePage) Snapshot(ctx context.Context) (*goquery.Document, error) {
	f.mu.Lock()
	html := f.HTML[f.current]
	f.mu.Unlock()
	return goquery.NewDocumentFromReader(strings.NewReader(html))
}

// Click 实现crawlers.Page,只有在ClickTargets中登记过的选择器可以点击
func (f *FakePage) Click(ctx context.Context, candidates []models.Locator, timeout time.Duration) (models.Locator, error) {
	doc, err := f.Snapshot(ctx)
	if err != nil {
		return models.Locator{}, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	for _, loc := range candidates {
		found := doc.Find(loc.CSS)
		if loc.Text != "" {
			found = found.FilterFunction(func(_ int, s *goquery.Selection) bool {
				return strings.Contains(strings.ToLower(s.Text()), strings.ToLower(loc.Text))
			})
		}
		if found.Length() == 0 {
			continue
		}
		target, ok := f.ClickTargets[loc.CSS]
		if !ok {
			continue
		}
		f.clicks = append(f.clicks, loc.String())
		f.current = target
		return loc, nil
	}
	return models.Locator{}, models.ErrNoClickable
}

// WaitFor 实现crawlers.Page
func (f *FakePage) WaitFor(ctx context.Context, selector string, timeout time.Duration) bool {
	doc, err := f.Snapshot(ctx)
	return err == nil && doc.Find(selector).Length() > 0
}

// Screenshot 实现crawlers.Page,只记录路径
func (f *FakePage) Screenshot(ctx context.Context, path string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.shots = append(f.shots, path)
	return nil
}

// Current 当前所在URL
func (f *FakePage) Current() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.current
}

// Navigations 导航过的URL(含失败的)
func (f *FakePage) Navigations() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.navigations...)
}

// Clicks 成功点击的定位器
func (f *FakePage) Clicks() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.clicks...)
}

// Screenshots 保存过的截图路径
func (f *FakePage) Screenshots() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.shots...)
}

// MemberCard 生成一个成员卡片的HTML片段
func MemberCard(class, id, name string, points int) string {
	return fmt.Sprintf(`<div class="%s">
  <a href="/group/members/%s?tab=about"><img class="avatar-img" src="https://cdn.example/%s.png"></a>
  <span class="member-name">%s</span>
  <span class="points-badge">%d points</span>
  <span class="member-joined">Joined Jan 15, 2024</span>
  <span class="last-active">2 days ago</span>
</div>`, class, id, id, name, points)
}

// MembersPage 用成员卡片组成一个列表页,nextDisabled为nil时不渲染下一页按钮
func MembersPage(cards []string, nextDisabled *bool) string {
	var b strings.Builder
	b.WriteString(`<html><body><nav><a href="/group/members">Members</a></nav><main>`)
	for _, c := range cards {
		b.WriteString(c)
	}
	if nextDisabled != nil {
		if *nextDisabled {
			b.WriteString(`<button aria-label="Next page" disabled>Next</button>`)
		} else {
			b.WriteString(`<button aria-label="Next page">Next</button>`)
		}
	}
	b.WriteString(`</main></body></html>`)
	return b.String()
}
