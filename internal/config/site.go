// Package config 加载站点配置(选择器与浏览器指纹)
package config

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/RecoveryAshes/SkoolCrawl/internal/models"
	"github.com/spf13/viper"
)

const (
	// DefaultSiteConfigFile 默认站点配置文件路径
	DefaultSiteConfigFile = "configs/site.yaml"

	// MaxConfigFileSize 配置文件最大大小 (1MB)
	MaxConfigFileSize = 1 * 1024 * 1024
)

//go:embed site_template.yaml
var defaultSiteTemplate string

// SiteConfigLoader 站点配置加载器
type SiteConfigLoader struct {
	configPath string
}

// NewSiteConfigLoader 创建站点配置加载器
func NewSiteConfigLoader(configPath string) *SiteConfigLoader {
	if configPath == "" {
		configPath = DefaultSiteConfigFile
	}
	return &SiteConfigLoader{configPath: configPath}
}

// Path 配置文件路径
func (l *SiteConfigLoader) Path() string {
	return l.configPath
}

// EnsureConfigExists 配置文件不存在时写入内置模板
func (l *SiteConfigLoader) EnsureConfigExists() error {
	if _, err := os.Stat(l.configPath); os.IsNotExist(err) {
		dir := filepath.Dir(l.configPath)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("无法创建配置目录 [%s]: %w", dir, err)
		}
		if err := os.WriteFile(l.configPath, []byte(defaultSiteTemplate), 0644); err != nil {
			return fmt.Errorf("无法生成配置文件 [%s]: %w", l.configPath, err)
		}
	}
	return nil
}

// ValidateFileSize 验证配置文件大小
func (l *SiteConfigLoader) ValidateFileSize() error {
	info, err := os.Stat(l.configPath)
	if err != nil {
		return fmt.Errorf("无法读取配置文件信息 [%s]: %w", l.configPath, err)
	}
	if info.Size() > MaxConfigFileSize {
		return &models.ConfigError{
			FilePath: l.configPath,
			Cause:    fmt.Errorf("配置文件过大: %d 字节 (最大 %d 字节)", info.Size(), MaxConfigFileSize),
		}
	}
	return nil
}

// Load 加载站点配置,文件中缺失的键使用内置模板的值
func (l *SiteConfigLoader) Load() (*models.SiteProfile, error) {
	if err := l.EnsureConfigExists(); err != nil {
		return nil, err
	}
	if err := l.ValidateFileSize(); err != nil {
		return nil, err
	}

	v, err := templateViper()
	if err != nil {
		return nil, err
	}
	v.SetConfigFile(l.configPath)
	v.SetConfigType("yaml")
	if err := v.MergeInConfig(); err != nil {
		return nil, &models.ConfigError{FilePath: l.configPath, Cause: err}
	}

	return decodeProfile(v, l.configPath)
}

// DefaultProfile 返回内置模板对应的站点配置
func DefaultProfile() (*models.SiteProfile, error) {
	v, err := templateViper()
	if err != nil {
		return nil, err
	}
	return decodeProfile(v, "<embedded>")
}

func templateViper() (*viper.Viper, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	if err := v.ReadConfig(strings.NewReader(defaultSiteTemplate)); err != nil {
		return nil, fmt.Errorf("解析内置站点模板失败: %w", err)
	}
	return v, nil
}

func decodeProfile(v *viper.Viper, path string) (*models.SiteProfile, error) {
	var profile models.SiteProfile
	if err := v.Unmarshal(&profile); err != nil {
		return nil, &models.ConfigError{FilePath: path, Cause: fmt.Errorf("配置绑定失败: %w", err)}
	}
	if profile.Headers == nil {
		profile.Headers = make(map[string]string)
	}
	if err := validateProfile(&profile); err != nil {
		return nil, &models.ConfigError{FilePath: path, Cause: err}
	}
	return &profile, nil
}

func validateProfile(p *models.SiteProfile) error {
	if p.Domain == "" {
		return fmt.Errorf("domain不能为空")
	}
	for task, sel := range p.Tasks {
		if _, err := models.ParseTaskType(string(task)); err != nil {
			return err
		}
		if len(sel.Items) == 0 {
			return fmt.Errorf("任务 %s 缺少items选择器", task)
		}
		if id, ok := sel.Fields["id"]; !ok || len(id.Selectors) == 0 {
			return fmt.Errorf("任务 %s 缺少id字段规则", task)
		}
	}
	return nil
}
