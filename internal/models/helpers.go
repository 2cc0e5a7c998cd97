package models

import (
	"fmt"
	"net/url"
	"strings"
)

// ValidateURL 验证URL
func ValidateURL(urlStr string) error {
	parsed, err := url.Parse(urlStr)
	if err != nil {
		return fmt.Errorf("无效的URL: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("URL必须是HTTP或HTTPS协议")
	}
	if parsed.Host == "" {
		return fmt.Errorf("URL必须包含主机名")
	}
	return nil
}

// ValidateCommunityURL 验证社区URL,主机名必须属于平台域名
func ValidateCommunityURL(urlStr string, domain string) error {
	if err := ValidateURL(urlStr); err != nil {
		return err
	}
	parsed, _ := url.Parse(urlStr)
	host := strings.ToLower(parsed.Hostname())
	domain = strings.ToLower(strings.TrimPrefix(domain, "."))
	if host != domain && !strings.HasSuffix(host, "."+domain) {
		return fmt.Errorf("URL不属于平台域名 %s: %s", domain, host)
	}
	if strings.Trim(parsed.Path, "/") == "" {
		return fmt.Errorf("URL缺少社区路径,应为 https://www.%s/<community>", domain)
	}
	return nil
}

// NormalizeCommunityURL 去掉结尾斜杠和查询参数
func NormalizeCommunityURL(urlStr string) string {
	parsed, err := url.Parse(urlStr)
	if err != nil {
		return strings.TrimRight(urlStr, "/")
	}
	parsed.RawQuery = ""
	parsed.Fragment = ""
	return strings.TrimRight(parsed.String(), "/")
}
