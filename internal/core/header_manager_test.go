package core

import (
	"strings"
	"testing"
)

func TestHeaderManager_GetMergedHeaders(t *testing.T) {
	t.Run("默认头部存在", func(t *testing.T) {
		hm, err := NewHeaderManager(nil, nil)
		if err != nil {
			t.Fatalf("创建HeaderManager失败: %v", err)
		}
		if hm.GetMergedHeaders().Get("Accept-Language") == "" {
			t.Error("期望默认Accept-Language存在")
		}
	})

	t.Run("优先级: 默认 < 站点配置 < 命令行", func(t *testing.T) {
		site := map[string]string{
			"accept-language": "de-DE",
			"x-site":          "site",
		}
		hm, err := NewHeaderManager(site, []string{"X-Site: cli"})
		if err != nil {
			t.Fatalf("创建HeaderManager失败: %v", err)
		}

		headers := hm.GetMergedHeaders()
		if got := headers.Get("Accept-Language"); got != "de-DE" {
			t.Errorf("Accept-Language = %q, want de-DE", got)
		}
		if got := headers.Get("X-Site"); got != "cli" {
			t.Errorf("X-Site = %q, want cli", got)
		}
		if headers.Get("Pragma") != "no-cache" {
			t.Error("未覆盖的默认头部应保留")
		}
	})

	t.Run("命令行头部格式错误", func(t *testing.T) {
		if _, err := NewHeaderManager(nil, []string{"NoColon"}); err == nil {
			t.Error("期望返回错误")
		}
	})
}

func TestHeaderManager_GetHeaders(t *testing.T) {
	t.Run("禁止通过头部传入Cookie", func(t *testing.T) {
		hm, err := NewHeaderManager(nil, []string{"Cookie: session=abc"})
		if err != nil {
			t.Fatalf("创建HeaderManager失败: %v", err)
		}
		_, err = hm.GetHeaders()
		if err == nil {
			t.Fatal("期望Cookie头部被拒绝")
		}
		if !strings.Contains(err.Error(), "SKOOL_COOKIE") {
			t.Errorf("错误信息应提示使用SKOOL_COOKIE: %v", err)
		}
	})

	t.Run("站点配置中的禁止头部", func(t *testing.T) {
		hm, err := NewHeaderManager(map[string]string{"Host": "evil.example"}, nil)
		if err != nil {
			t.Fatalf("创建HeaderManager失败: %v", err)
		}
		if _, err := hm.GetHeaders(); err == nil {
			t.Error("期望Host头部被拒绝")
		}
	})

	t.Run("合法头部通过", func(t *testing.T) {
		hm, err := NewHeaderManager(nil, []string{"X-Debug: 1"})
		if err != nil {
			t.Fatalf("创建HeaderManager失败: %v", err)
		}
		headers, err := hm.GetHeaders()
		if err != nil {
			t.Fatalf("GetHeaders() error = %v", err)
		}
		if headers.Get("X-Debug") != "1" {
			t.Error("X-Debug未正确设置")
		}
	})
}

func TestHeaderManager_GetSafeHeaders(t *testing.T) {
	hm, err := NewHeaderManager(nil, []string{
		"Authorization: Bearer secret-token-12345",
		"X-API-Key: api-key-67890-abcdef",
		"X-Debug: 1",
	})
	if err != nil {
		t.Fatalf("创建HeaderManager失败: %v", err)
	}

	safe := hm.GetSafeHeaders()
	if safe["Authorization"] != "Bearer ***" {
		t.Errorf("Authorization = %q, want Bearer ***", safe["Authorization"])
	}
	if strings.Contains(safe["X-Api-Key"], "67890") {
		t.Errorf("X-Api-Key未脱敏: %q", safe["X-Api-Key"])
	}
	if safe["X-Debug"] != "1" {
		t.Errorf("非敏感头部不应脱敏: %q", safe["X-Debug"])
	}
}
