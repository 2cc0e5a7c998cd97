package core

import (
	"net/http"

	"github.com/RecoveryAshes/SkoolCrawl/internal/models"
	"github.com/RecoveryAshes/SkoolCrawl/internal/utils"
)

// HeaderManager 管理注入浏览器的额外请求头
// 优先级: 内置默认 < 站点配置 < 命令行
type HeaderManager struct {
	defaults  http.Header
	site      http.Header
	cli       http.Header
	validator *utils.HeaderValidator
	redactor  *utils.HeaderRedactor
}

// NewHeaderManager 创建头部管理器
func NewHeaderManager(siteHeaders map[string]string, cliHeaders []string) (*HeaderManager, error) {
	cli, err := models.CliHeaders(cliHeaders).Parse()
	if err != nil {
		return nil, err
	}

	site := make(http.Header, len(siteHeaders))
	for name, value := range siteHeaders {
		site.Set(name, value)
	}

	return &HeaderManager{
		defaults:  defaultHeaders(),
		site:      site,
		cli:       cli,
		validator: utils.NewHeaderValidator(),
		redactor:  utils.NewHeaderRedactor(),
	}, nil
}

func defaultHeaders() http.Header {
	return http.Header{
		"Accept-Language": []string{"en-US,en;q=0.9"},
		"Accept":          []string{"text/html,application/xhtml+xml,application/xml;q=0.9,image/webp,*/*;q=0.8"},
		"Cache-Control":   []string{"no-cache"},
		"Pragma":          []string{"no-cache"},
	}
}

// Validate 依次验证默认、站点配置和命令行头部
func (hm *HeaderManager) Validate() error {
	for _, h := range []http.Header{hm.defaults, hm.site, hm.cli} {
		if err := hm.validator.Validate(h); err != nil {
			return err
		}
	}
	return nil
}

// GetMergedHeaders 按优先级合并头部
func (hm *HeaderManager) GetMergedHeaders() http.Header {
	result := make(http.Header)
	for _, layer := range []http.Header{hm.defaults, hm.site, hm.cli} {
		for name, values := range layer {
			result[name] = values
		}
	}
	return result
}

// GetHeaders 验证并返回合并后的头部
func (hm *HeaderManager) GetHeaders() (http.Header, error) {
	if err := hm.Validate(); err != nil {
		return nil, err
	}
	merged := hm.GetMergedHeaders()
	utils.Debugf("生效的请求头: %s", hm.redactor.RedactToString(merged))
	return merged, nil
}

// GetSafeHeaders 返回脱敏后的头部,用于日志
func (hm *HeaderManager) GetSafeHeaders() map[string]string {
	return hm.redactor.Redact(hm.GetMergedHeaders())
}
