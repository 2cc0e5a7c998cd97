package crawlers

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/RecoveryAshes/SkoolCrawl/internal/config"
	"github.com/RecoveryAshes/SkoolCrawl/internal/crawlers/crawlertest"
	"github.com/RecoveryAshes/SkoolCrawl/internal/models"
)

func TestParseCredential(t *testing.T) {
	tests := []struct {
		name      string
		raw       string
		wantNames []string
		wantVals  []string
		wantErr   bool
	}{
		{"单个cookie", "auth_token=abc", []string{"auth_token"}, []string{"abc"}, false},
		{"多个cookie带空格", "a=1; b=2 ;c=3", []string{"a", "b", "c"}, []string{"1", "2", "3"}, false},
		{"值包含等号", "token=eyJ==; x=a=b=c", []string{"token", "x"}, []string{"eyJ==", "a=b=c"}, false},
		{"跳过无等号的片段", "garbage; a=1;;", []string{"a"}, []string{"1"}, false},
		{"空字符串", "", nil, nil, true},
		{"没有有效对", "foo; bar; =baz", nil, nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cookies, err := ParseCredential(tt.raw, ".skool.com")
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseCredential() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil {
				var ae *models.AuthSetupError
				if !errors.As(err, &ae) {
					t.Errorf("应返回AuthSetupError, 得到 %T", err)
				}
				return
			}
			if len(cookies) != len(tt.wantNames) {
				t.Fatalf("解析出 %d 个cookie, want %d", len(cookies), len(tt.wantNames))
			}
			for i, c := range cookies {
				if c.Name != tt.wantNames[i] || c.Value != tt.wantVals[i] {
					t.Errorf("cookie[%d] = %s=%s", i, c.Name, c.Value)
				}
				if c.Domain != ".skool.com" || c.Path != "/" || !c.Secure || !c.HTTPOnly {
					t.Errorf("cookie[%d] 属性错误: %+v", i, c)
				}
			}
		})
	}
}

func TestCookieDomain(t *testing.T) {
	tests := []struct {
		url  string
		want string
	}{
		{"https://www.skool.com/group", ".skool.com"},
		{"https://skool.com", ".skool.com"},
		{"https://app.example.co.uk/x", ".example.co.uk"},
	}
	for _, tt := range tests {
		got, err := CookieDomain(tt.url)
		if err != nil || got != tt.want {
			t.Errorf("CookieDomain(%q) = %q, %v; want %q", tt.url, got, err, tt.want)
		}
	}
	if _, err := CookieDomain("not a url"); err == nil {
		t.Error("无效URL应返回错误")
	}
}

func newTestAuthenticator(t *testing.T) *Authenticator {
	t.Helper()
	profile, err := config.DefaultProfile()
	if err != nil {
		t.Fatalf("加载默认站点配置失败: %v", err)
	}
	a := NewAuthenticator(profile, http.Header{}, "https://www.skool.com")
	a.sleep = func(ctx context.Context, d time.Duration) error { return ctx.Err() }
	return a
}

func TestVerify(t *testing.T) {
	const community = "https://www.skool.com/group"
	ctx := context.Background()

	t.Run("第二个指示器匹配", func(t *testing.T) {
		page := crawlertest.New()
		page.HTML[community] = `<html><body><div aria-label="User menu"></div></body></html>`

		ok, err := newTestAuthenticator(t).Verify(ctx, page, community)
		if err != nil || !ok {
			t.Errorf("Verify() = %v, %v; want true", ok, err)
		}
	})

	t.Run("指示器均未匹配时访问成员页", func(t *testing.T) {
		page := crawlertest.New()
		page.HTML[community] = `<html><body><p>welcome</p></body></html>`
		page.HTML[community+"/members"] = `<html><body><div data-testid="member-list"></div></body></html>`

		ok, err := newTestAuthenticator(t).Verify(ctx, page, community)
		if err != nil || !ok {
			t.Errorf("Verify() = %v, %v; want true", ok, err)
		}
		if navs := page.Navigations(); len(navs) != 2 || navs[1] != community+"/members" {
			t.Errorf("导航记录 = %v", navs)
		}
	})

	t.Run("未登录返回false而非错误", func(t *testing.T) {
		page := crawlertest.New()
		page.HTML[community] = `<html><body><a href="/login">Log in</a></body></html>`
		page.HTML[community+"/members"] = `<html><body><a href="/login">Log in</a></body></html>`

		ok, err := newTestAuthenticator(t).Verify(ctx, page, community)
		if err != nil || ok {
			t.Errorf("Verify() = %v, %v; want false, nil", ok, err)
		}
	})

	t.Run("导航失败返回错误", func(t *testing.T) {
		page := crawlertest.New()
		page.NavErrors[community] = errors.New("timeout")

		_, err := newTestAuthenticator(t).Verify(ctx, page, community)
		var ne *models.NavigationError
		if !errors.As(err, &ne) {
			t.Errorf("应返回NavigationError, 得到 %v", err)
		}
	})
}

func TestSleepContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := SleepContext(ctx, time.Hour); !errors.Is(err, context.Canceled) {
		t.Errorf("SleepContext() = %v, want context.Canceled", err)
	}
	if err := SleepContext(context.Background(), time.Millisecond); err != nil {
		t.Errorf("SleepContext() = %v", err)
	}
}
