package core

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/RecoveryAshes/SkoolCrawl/internal/models"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config 应用程序配置
type Config struct {
	Auth    AuthConfig    `mapstructure:"auth"`
	Browser BrowserConfig `mapstructure:"browser"`
	Crawl   CrawlConfig   `mapstructure:"crawl"`
	Storage StorageConfig `mapstructure:"storage"`
	Output  OutputConfig  `mapstructure:"output"`
	Logging LoggingConfig `mapstructure:"logging"`
	Debug   bool          `mapstructure:"debug"`
}

// AuthConfig 会话凭据
type AuthConfig struct {
	Cookie string `mapstructure:"cookie"`
}

// BrowserConfig 浏览器配置
type BrowserConfig struct {
	Headless    bool   `mapstructure:"headless"`
	UseExisting bool   `mapstructure:"use_existing"`
	DebugURL    string `mapstructure:"debug_url"`
	SlowMo      int    `mapstructure:"slow_mo"` // 毫秒
	BinPath     string `mapstructure:"bin_path"`
}

// CrawlConfig 抓取配置
type CrawlConfig struct {
	Tasks            []string `mapstructure:"tasks"`
	Delay            int      `mapstructure:"delay"`     // 固定翻页延迟(毫秒),0表示随机
	DelayMin         int      `mapstructure:"delay_min"` // 随机延迟下限(毫秒)
	DelayMax         int      `mapstructure:"delay_max"` // 随机延迟上限(毫秒)
	NavTimeout       int      `mapstructure:"nav_timeout"`
	Settle           int      `mapstructure:"settle"`        // 导航后等待(毫秒)
	VerifySettle     int      `mapstructure:"verify_settle"` // 登录检测等待(毫秒)
	MaxNavPerMinute  int      `mapstructure:"max_nav_per_minute"`
	Verify           bool     `mapstructure:"verify"`
	Screenshots      bool     `mapstructure:"screenshots"`
	Restart          bool     `mapstructure:"restart"`
	ShowProgress     bool     `mapstructure:"show_progress"`
	ContinueOnFailed bool     `mapstructure:"continue_on_failed"`
}

// StorageConfig 存储配置
type StorageConfig struct {
	DBPath      string `mapstructure:"db_path"`
	BusyTimeout int    `mapstructure:"busy_timeout"` // 毫秒
}

// OutputConfig 输出配置
type OutputConfig struct {
	DataDir    string `mapstructure:"data_dir"`
	SiteConfig string `mapstructure:"site_config"`
}

// LoggingConfig 日志配置
type LoggingConfig struct {
	Level    string         `mapstructure:"level"`
	LogDir   string         `mapstructure:"log_dir"`
	Rotation RotationConfig `mapstructure:"rotation"`
}

// RotationConfig 日志轮转配置
type RotationConfig struct {
	MaxSize    int  `mapstructure:"max_size"`
	MaxBackups int  `mapstructure:"max_backups"`
	MaxAge     int  `mapstructure:"max_age"`
	Compress   bool `mapstructure:"compress"`
}

// envBindings 配置键与环境变量的对应关系
var envBindings = map[string]string{
	"auth.cookie":          "SKOOL_COOKIE",
	"browser.headless":     "HEADLESS",
	"browser.use_existing": "USE_EXISTING_CHROME",
	"browser.debug_url":    "CHROME_DEBUG_URL",
	"browser.slow_mo":      "SLOW_MO",
	"crawl.delay":          "SCRAPE_DELAY",
	"storage.db_path":      "SKOOL_DB_PATH",
	"debug":                "DEBUG",
}

// LoadConfig 加载配置: 默认值 < 配置文件 < .env/环境变量
func LoadConfig(configPath, envFile string) (*Config, error) {
	if err := loadEnvFile(envFile); err != nil {
		return nil, err
	}

	v := viper.New()
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./configs")
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".skoolcrawl"))
		}
	}

	setDefaults(v)

	v.SetEnvPrefix("SKOOLCRAWL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, env := range envBindings {
		if err := v.BindEnv(key, env, "SKOOLCRAWL_"+strings.ToUpper(strings.ReplaceAll(key, ".", "_"))); err != nil {
			return nil, fmt.Errorf("绑定环境变量失败 [%s]: %w", env, err)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("读取配置文件失败: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("解析配置文件失败: %w", err)
	}
	return &config, nil
}

// loadEnvFile 加载.env文件,默认文件不存在时忽略
func loadEnvFile(envFile string) error {
	if envFile == "" {
		if _, err := os.Stat(".env"); err != nil {
			return nil
		}
		envFile = ".env"
	}
	if err := godotenv.Load(envFile); err != nil {
		return fmt.Errorf("加载环境文件失败 [%s]: %w", envFile, err)
	}
	return nil
}

// setDefaults 设置默认配置值
func setDefaults(v *viper.Viper) {
	v.SetDefault("auth.cookie", "")

	v.SetDefault("browser.headless", true)
	v.SetDefault("browser.use_existing", false)
	v.SetDefault("browser.debug_url", "http://localhost:9222")
	v.SetDefault("browser.slow_mo", 0)
	v.SetDefault("browser.bin_path", "")

	v.SetDefault("crawl.tasks", []string{string(models.TaskMembers)})
	v.SetDefault("crawl.delay", 0)
	v.SetDefault("crawl.delay_min", 1000)
	v.SetDefault("crawl.delay_max", 2000)
	v.SetDefault("crawl.nav_timeout", 60)
	v.SetDefault("crawl.settle", 3000)
	v.SetDefault("crawl.verify_settle", 2000)
	v.SetDefault("crawl.max_nav_per_minute", 30)
	v.SetDefault("crawl.verify", true)
	v.SetDefault("crawl.screenshots", false)
	v.SetDefault("crawl.restart", false)
	v.SetDefault("crawl.show_progress", true)
	v.SetDefault("crawl.continue_on_failed", false)

	v.SetDefault("storage.db_path", "./db/skool.db")
	v.SetDefault("storage.busy_timeout", 10000)

	v.SetDefault("output.data_dir", "data")
	v.SetDefault("output.site_config", "configs/site.yaml")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.log_dir", "logs")
	v.SetDefault("logging.rotation.max_size", 10)
	v.SetDefault("logging.rotation.max_backups", 3)
	v.SetDefault("logging.rotation.max_age", 28)
	v.SetDefault("logging.rotation.compress", true)

	v.SetDefault("debug", false)
}

// Validate 在任何网络操作之前检查配置
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Auth.Cookie) == "" {
		return fmt.Errorf("缺少会话cookie: 请设置 SKOOL_COOKIE 环境变量")
	}
	if c.Crawl.Delay < 0 {
		return fmt.Errorf("翻页延迟不能为负数: %d", c.Crawl.Delay)
	}
	if c.Crawl.Delay == 0 && (c.Crawl.DelayMin < 0 || c.Crawl.DelayMax < c.Crawl.DelayMin) {
		return fmt.Errorf("随机延迟范围无效: [%d, %d]", c.Crawl.DelayMin, c.Crawl.DelayMax)
	}
	if c.Crawl.NavTimeout <= 0 {
		return fmt.Errorf("导航超时必须大于0: %d", c.Crawl.NavTimeout)
	}
	if c.Browser.SlowMo < 0 {
		return fmt.Errorf("SLOW_MO不能为负数: %d", c.Browser.SlowMo)
	}
	if len(c.Crawl.Tasks) == 0 {
		return fmt.Errorf("至少需要一个任务")
	}
	for _, t := range c.Crawl.Tasks {
		if _, err := models.ParseTaskType(t); err != nil {
			return err
		}
	}
	return nil
}

// TaskTypes 返回解析后的任务列表
func (c *Config) TaskTypes() []models.TaskType {
	tasks := make([]models.TaskType, 0, len(c.Crawl.Tasks))
	for _, t := range c.Crawl.Tasks {
		if tt, err := models.ParseTaskType(t); err == nil {
			tasks = append(tasks, tt)
		}
	}
	return tasks
}

// LogLevel 返回生效的日志级别,debug开关优先
func (c *Config) LogLevel() string {
	if c.Debug {
		return "debug"
	}
	return c.Logging.Level
}

// Overrides 命令行参数覆盖项,nil表示未指定
type Overrides struct {
	Headless    *bool
	UseExisting *bool
	Delay       *int
	DBPath      *string
	DataDir     *string
	SiteConfig  *string
	Screenshots *bool
	Restart     *bool
	NoVerify    *bool
	Tasks       []string
	LogLevel    *string
	Verbose     bool
}

// ApplyOverrides 命令行参数优先于配置文件和环境变量
func (c *Config) ApplyOverrides(o Overrides) {
	if o.Headless != nil {
		c.Browser.Headless = *o.Headless
	}
	if o.UseExisting != nil {
		c.Browser.UseExisting = *o.UseExisting
	}
	if o.Delay != nil {
		c.Crawl.Delay = *o.Delay
	}
	if o.DBPath != nil {
		c.Storage.DBPath = *o.DBPath
	}
	if o.DataDir != nil {
		c.Output.DataDir = *o.DataDir
	}
	if o.SiteConfig != nil {
		c.Output.SiteConfig = *o.SiteConfig
	}
	if o.Screenshots != nil {
		c.Crawl.Screenshots = *o.Screenshots
	}
	if o.Restart != nil {
		c.Crawl.Restart = *o.Restart
	}
	if o.NoVerify != nil {
		c.Crawl.Verify = !*o.NoVerify
	}
	if len(o.Tasks) > 0 {
		c.Crawl.Tasks = o.Tasks
	}
	if o.LogLevel != nil {
		c.Logging.Level = *o.LogLevel
	}
	if o.Verbose {
		c.Debug = true
	}
}
