package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/RecoveryAshes/SkoolCrawl/internal/core"
	"github.com/RecoveryAshes/SkoolCrawl/internal/utils"
	"github.com/spf13/cobra"
)

var (
	Version   = "dev"
	BuildTime = "unknown"
)

// 命令行参数
var (
	// 全局参数
	configFile string
	envFile    string
	verbose    bool
	logLevel   string
	dbPath     string
	dataDir    string
	siteConfig string

	// 抓取参数
	headers     []string
	tasks       []string
	headless    bool
	useExisting bool
	delay       int
	screenshots bool
	restart     bool
	noVerify    bool
)

// appConfig 在PersistentPreRunE中加载,子命令共用
var appConfig *core.Config

var rootCmd = &cobra.Command{
	Use:   "skoolcrawl <community-url>",
	Short: "可恢复的Skool社区抓取工具",
	Long: `SkoolCrawl - 可恢复的Skool社区抓取工具

使用已登录的会话cookie抓取社区成员等内容并写入SQLite:
  • 每页完成后写入检查点,中断后从下一页继续
  • 幂等写入,重复抓取不会产生重复数据
  • 单个条目失败不影响整页
  • 选择器按顺序回退,可通过站点配置调整

使用示例:
  # 在 .env 中设置 SKOOL_COOKIE 后
  skoolcrawl https://www.skool.com/my-community

  # 连接已登录的Chrome (先用 --remote-debugging-port=9222 启动)
  skoolcrawl https://www.skool.com/my-community --use-existing-chrome

  # 查看进度和数据量
  skoolcrawl status

版本: ` + Version + `
构建时间: ` + BuildTime,
	Version:       Version,
	Args:          cobra.MaximumNArgs(1),
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		config, err := core.LoadConfig(configFile, envFile)
		if err != nil {
			return fmt.Errorf("加载配置失败: %w", err)
		}
		config.ApplyOverrides(collectOverrides(cmd))
		appConfig = config

		logConfig := utils.LogConfig{
			Level:      config.LogLevel(),
			LogDir:     config.Logging.LogDir,
			MaxSize:    config.Logging.Rotation.MaxSize,
			MaxBackups: config.Logging.Rotation.MaxBackups,
			MaxAge:     config.Logging.Rotation.MaxAge,
			Compress:   config.Logging.Rotation.Compress,
			Console:    os.Stderr,
		}
		if err := utils.InitLogger(logConfig); err != nil {
			return fmt.Errorf("初始化日志系统失败: %w", err)
		}

		if config.Debug {
			utils.Debug("详细模式已启用")
		}
		return nil
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) == 0 {
			return cmd.Help()
		}

		// 任何网络操作之前完成校验
		if err := ValidateFlags(args[0], delay, tasks); err != nil {
			return err
		}
		runner, err := core.NewRunner(appConfig, args[0], headers)
		if err != nil {
			return err
		}

		// Ctrl+C取消ctx,控制器写入failed检查点后返回
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		_, err = runner.Run(ctx)
		if ctx.Err() != nil {
			utils.Warn("已中断,重新运行将从检查点继续")
		}
		if err != nil {
			return fmt.Errorf("抓取失败: %w", err)
		}
		utils.Info("✨ 抓取任务完成!")
		return nil
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "显示各任务的检查点和数据量",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		status, err := core.LoadStatus(cmd.Context(), appConfig.Storage.DBPath)
		if err != nil {
			return fmt.Errorf("读取状态失败: %w", err)
		}
		fmt.Printf("数据库: %s\n\n", appConfig.Storage.DBPath)
		status.Print(os.Stdout)
		return nil
	},
}

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "检查运行环境",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		results := core.NewEnvChecker(appConfig).Run(cmd.Context())
		if !core.PrintChecks(os.Stdout, results) {
			return fmt.Errorf("环境检查未通过")
		}
		return nil
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "显示版本信息",
	// 版本信息不需要加载配置
	PersistentPreRun: func(cmd *cobra.Command, args []string) {},
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("SkoolCrawl %s\n", Version)
		fmt.Printf("构建时间: %s\n", BuildTime)
	},
}

// collectOverrides 只收集用户显式指定的参数
func collectOverrides(cmd *cobra.Command) core.Overrides {
	flags := cmd.Flags()
	var o core.Overrides
	if flags.Changed("headless") {
		o.Headless = &headless
	}
	if flags.Changed("use-existing-chrome") {
		o.UseExisting = &useExisting
	}
	if flags.Changed("delay") {
		o.Delay = &delay
	}
	if flags.Changed("db") {
		o.DBPath = &dbPath
	}
	if flags.Changed("data-dir") {
		o.DataDir = &dataDir
	}
	if flags.Changed("site-config") {
		o.SiteConfig = &siteConfig
	}
	if flags.Changed("screenshots") {
		o.Screenshots = &screenshots
	}
	if flags.Changed("restart") {
		o.Restart = &restart
	}
	if flags.Changed("no-verify") {
		o.NoVerify = &noVerify
	}
	if flags.Changed("log-level") {
		o.LogLevel = &logLevel
	}
	o.Tasks = tasks
	o.Verbose = verbose
	return o
}

func init() {
	// 全局参数
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "配置文件路径 (默认查找 configs/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", "", "环境变量文件 (默认 .env)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "详细输出模式")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "日志级别 (trace|debug|info|warn|error)")
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "SQLite数据库路径 (默认 ./db/skool.db)")
	rootCmd.PersistentFlags().StringVar(&dataDir, "data-dir", "", "备份、截图和报告目录 (默认 data)")
	rootCmd.PersistentFlags().StringVar(&siteConfig, "site-config", "", "站点选择器配置 (默认 configs/site.yaml)")

	// 抓取参数
	rootCmd.Flags().StringSliceVarP(&headers, "header", "H", []string{}, "额外请求头,格式: 'Name: Value',可多次指定")
	rootCmd.Flags().StringSliceVar(&tasks, "tasks", nil, "要执行的任务,逗号分隔 (默认 members)")
	rootCmd.Flags().BoolVar(&headless, "headless", true, "无头浏览器模式")
	rootCmd.Flags().BoolVar(&useExisting, "use-existing-chrome", false, "连接已运行的Chrome而不是启动新实例")
	rootCmd.Flags().IntVar(&delay, "delay", 0, "固定翻页延迟(毫秒),0表示1-2秒随机")
	rootCmd.Flags().BoolVar(&screenshots, "screenshots", false, "保存调试截图")
	rootCmd.Flags().BoolVar(&restart, "restart", false, "忽略检查点,从第1页重新抓取")
	rootCmd.Flags().BoolVar(&noVerify, "no-verify", false, "跳过登录状态预检")

	rootCmd.AddCommand(statusCmd, checkCmd, versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "错误: %v\n", err)
		os.Exit(1)
	}
}
