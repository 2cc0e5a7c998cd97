package crawlers

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/RecoveryAshes/SkoolCrawl/internal/models"
	"github.com/RecoveryAshes/SkoolCrawl/internal/utils"
	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"
	"golang.org/x/net/publicsuffix"
)

// Cookie 会话cookie
type Cookie struct {
	Name     string
	Value    string
	Domain   string
	Path     string
	HTTPOnly bool
	Secure   bool
}

// CookieDomain 从URL推导cookie域,如 https://www.skool.com → .skool.com
func CookieDomain(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil || u.Hostname() == "" {
		return "", fmt.Errorf("无法从URL推导cookie域: %s", rawURL)
	}
	etld1, err := publicsuffix.EffectiveTLDPlusOne(u.Hostname())
	if err != nil {
		return "", fmt.Errorf("无法从URL推导cookie域: %w", err)
	}
	return "." + etld1, nil
}

// ParseCredential 解析 "name=value; name2=value2" 形式的cookie字符串
// 只在第一个 '=' 处切分,值中可以包含 '='。解析不出任何cookie时返回AuthSetupError
func ParseCredential(raw, domain string) ([]Cookie, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, &models.AuthSetupError{Reason: "会话cookie为空"}
	}

	var cookies []Cookie
	for _, pair := range strings.Split(raw, ";") {
		name, value, ok := strings.Cut(strings.TrimSpace(pair), "=")
		name = strings.TrimSpace(name)
		if !ok || name == "" {
			continue
		}
		cookies = append(cookies, Cookie{
			Name:     name,
			Value:    strings.TrimSpace(value),
			Domain:   domain,
			Path:     "/",
			HTTPOnly: true,
			Secure:   true,
		})
	}

	if len(cookies) == 0 {
		return nil, &models.AuthSetupError{Reason: "未能从会话字符串中解析出任何 name=value 对"}
	}
	return cookies, nil
}

// Session 已认证的浏览会话
type Session struct {
	Page    Page
	Cookies []Cookie
	rodPage *RodPage
	reused  bool
}

// Close 关闭会话页面,复用浏览器的页面保持打开
func (s *Session) Close() error {
	if s.reused || s.rodPage == nil {
		return nil
	}
	return s.rodPage.Close()
}

// Authenticator 会话认证器
type Authenticator struct {
	profile  *models.SiteProfile
	headers  http.Header
	baseURL  string
	redactor *utils.HeaderRedactor

	// NavTimeout 验证时的导航超时
	NavTimeout time.Duration
	// Settle 导航后等待DOM稳定的时间
	Settle time.Duration
	sleep  func(ctx context.Context, d time.Duration) error
}

// NewAuthenticator 创建认证器,headers为合并后的额外请求头
func NewAuthenticator(profile *models.SiteProfile, headers http.Header, baseURL string) *Authenticator {
	return &Authenticator{
		profile:    profile,
		headers:    headers,
		baseURL:    baseURL,
		redactor:   utils.NewHeaderRedactor(),
		NavTimeout: 60 * time.Second,
		Settle:     2 * time.Second,
		sleep:      SleepContext,
	}
}

// CreateSession 把会话凭据应用到新的浏览上下文
// 复用已登录的浏览器时沿用其第一个页面,只校验凭据格式,不注入cookie
func (a *Authenticator) CreateSession(ctx context.Context, browser *Browser, rawCredential string) (*Session, error) {
	domain, err := CookieDomain(a.baseURL)
	if err != nil {
		return nil, &models.AuthSetupError{Reason: err.Error()}
	}
	cookies, err := ParseCredential(rawCredential, domain)
	if err != nil {
		return nil, err
	}
	utils.Debugf("会话cookie: %s", a.redactor.RedactCookieString(rawCredential))

	if browser.Reused() {
		pages, err := browser.Rod().Pages()
		if err != nil {
			return nil, fmt.Errorf("获取已打开的页面失败: %w", err)
		}
		var page *rod.Page
		if len(pages) > 0 {
			page = pages.First()
		} else if page, err = browser.Rod().Page(proto.TargetCreateTarget{}); err != nil {
			return nil, fmt.Errorf("创建页面失败: %w", err)
		}
		utils.Infof("复用已运行Chrome的页面,跳过cookie注入")
		rp := NewRodPage(page)
		return &Session{Page: rp, Cookies: cookies, rodPage: rp, reused: true}, nil
	}

	page, err := stealth.Page(browser.Rod())
	if err != nil {
		return nil, fmt.Errorf("创建stealth页面失败: %w", err)
	}
	if err := a.applyProfile(page); err != nil {
		page.Close()
		return nil, err
	}
	if err := page.SetCookies(toCookieParams(cookies)); err != nil {
		page.Close()
		return nil, &models.AuthSetupError{Reason: fmt.Sprintf("注入cookie失败: %v", err)}
	}

	utils.Infof("已注入 %d 个会话cookie (域: %s)", len(cookies), domain)
	rp := NewRodPage(page)
	return &Session{Page: rp, Cookies: cookies, rodPage: rp}, nil
}

// applyProfile 设置UA、视口、语言、时区和额外请求头
func (a *Authenticator) applyProfile(page *rod.Page) error {
	p := a.profile
	if p.UserAgent != "" {
		if err := page.SetUserAgent(&proto.NetworkSetUserAgentOverride{
			UserAgent:      p.UserAgent,
			AcceptLanguage: p.Locale,
		}); err != nil {
			return fmt.Errorf("设置User-Agent失败: %w", err)
		}
	}
	if p.Viewport.Width > 0 && p.Viewport.Height > 0 {
		if err := page.SetViewport(&proto.EmulationSetDeviceMetricsOverride{
			Width:             p.Viewport.Width,
			Height:            p.Viewport.Height,
			DeviceScaleFactor: 1,
		}); err != nil {
			return fmt.Errorf("设置视口失败: %w", err)
		}
	}
	if p.Locale != "" {
		if err := (proto.EmulationSetLocaleOverride{Locale: p.Locale}).Call(page); err != nil {
			utils.Warnf("设置语言失败: %v", err)
		}
	}
	if p.Timezone != "" {
		if err := (proto.EmulationSetTimezoneOverride{TimezoneID: p.Timezone}).Call(page); err != nil {
			utils.Warnf("设置时区失败: %v", err)
		}
	}

	if len(a.headers) > 0 {
		dict := make([]string, 0, len(a.headers)*2)
		for name, values := range a.headers {
			if len(values) == 0 || strings.EqualFold(name, "User-Agent") {
				continue
			}
			dict = append(dict, name, values[0])
		}
		if _, err := page.SetExtraHeaders(dict); err != nil {
			return fmt.Errorf("设置请求头失败: %w", err)
		}
		utils.Debugf("额外请求头: %s", a.redactor.RedactToString(a.headers))
	}
	return nil
}

func toCookieParams(cookies []Cookie) []*proto.NetworkCookieParam {
	params := make([]*proto.NetworkCookieParam, 0, len(cookies))
	for _, c := range cookies {
		params = append(params, &proto.NetworkCookieParam{
			Name:     c.Name,
			Value:    c.Value,
			Domain:   c.Domain,
			Path:     c.Path,
			HTTPOnly: c.HTTPOnly,
			Secure:   c.Secure,
			SameSite: proto.NetworkCookieSameSiteLax,
		})
	}
	return params
}

// Verify 检查会话是否已登录
// 检测失败只返回false;导航失败作为错误返回
func (a *Authenticator) Verify(ctx context.Context, page Page, targetURL string) (bool, error) {
	probe := a.profile.Auth

	if err := page.Navigate(ctx, targetURL, a.NavTimeout); err != nil {
		return false, err
	}
	if err := a.sleep(ctx, a.Settle); err != nil {
		return false, err
	}

	doc, err := page.Snapshot(ctx)
	if err == nil {
		for _, sel := range probe.Indicators {
			if doc.Find(sel).Length() > 0 {
				utils.Debugf("登录指示器匹配: %s", sel)
				return true, nil
			}
		}
	} else {
		utils.Warnf("读取页面快照失败: %v", err)
	}

	if probe.FallbackPath == "" || probe.FallbackSelector == "" {
		return false, nil
	}

	fallbackURL := strings.TrimRight(targetURL, "/") + probe.FallbackPath
	utils.Debugf("登录指示器均未匹配,尝试访问 %s", fallbackURL)
	if err := page.Navigate(ctx, fallbackURL, a.NavTimeout); err != nil {
		return false, err
	}
	if err := a.sleep(ctx, a.Settle); err != nil {
		return false, err
	}
	doc, err = page.Snapshot(ctx)
	if err != nil {
		utils.Warnf("读取页面快照失败: %v", err)
		return false, nil
	}
	return doc.Find(probe.FallbackSelector).Length() > 0, nil
}

// SleepContext 可被取消的等待
func SleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
