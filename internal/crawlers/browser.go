package crawlers

import (
	"fmt"
	"time"

	"github.com/RecoveryAshes/SkoolCrawl/internal/utils"
	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
)

// DefaultDebugURL 复用已运行Chrome时的默认远程调试地址
const DefaultDebugURL = "http://localhost:9222"

// BrowserOptions 浏览器启动参数
type BrowserOptions struct {
	Headless    bool
	UseExisting bool          // 连接已运行的Chrome而不是启动新实例
	DebugURL    string        // 远程调试地址
	SlowMotion  time.Duration // 每个操作之间的延迟,便于观察
	BinPath     string        // Chrome可执行文件路径,为空时自动查找
}

// Browser 封装rod浏览器及其生命周期
type Browser struct {
	browser  *rod.Browser
	launcher *launcher.Launcher
	reused   bool
}

// LaunchBrowser 启动或连接浏览器
func LaunchBrowser(opts BrowserOptions) (*Browser, error) {
	var (
		controlURL string
		l          *launcher.Launcher
		err        error
	)

	if opts.UseExisting {
		debugURL := opts.DebugURL
		if debugURL == "" {
			debugURL = DefaultDebugURL
		}
		controlURL, err = launcher.ResolveURL(debugURL)
		if err != nil {
			return nil, fmt.Errorf("无法连接已运行的Chrome [%s],请用 --remote-debugging-port=9222 启动: %w", debugURL, err)
		}
		utils.Infof("连接已运行的Chrome: %s", debugURL)
	} else {
		l = launcher.New().
			Headless(opts.Headless).
			Set("disable-blink-features", "AutomationControlled").
			Set("no-sandbox").
			Set("disable-dev-shm-usage").
			Set("disable-gpu").
			Set("no-first-run")
		if opts.BinPath != "" {
			l = l.Bin(opts.BinPath)
		}

		controlURL, err = l.Launch()
		if err != nil {
			return nil, fmt.Errorf("启动浏览器失败: %w", err)
		}
		utils.Debugf("浏览器已启动: %s (headless=%v)", controlURL, opts.Headless)
	}

	b := rod.New().ControlURL(controlURL)
	if opts.SlowMotion > 0 {
		b = b.SlowMotion(opts.SlowMotion)
	}
	if err := b.Connect(); err != nil {
		if l != nil {
			l.Kill()
		}
		return nil, fmt.Errorf("连接浏览器失败: %w", err)
	}

	return &Browser{browser: b, launcher: l, reused: opts.UseExisting}, nil
}

// Reused 是否为复用的外部浏览器
func (b *Browser) Reused() bool {
	return b.reused
}

// Rod 底层rod浏览器
func (b *Browser) Rod() *rod.Browser {
	return b.browser
}

// Close 关闭自己启动的浏览器;复用的浏览器只断开连接,不关闭
func (b *Browser) Close() error {
	if b.reused {
		utils.Debugf("保留已运行的Chrome,不关闭")
		return nil
	}
	err := b.browser.Close()
	if b.launcher != nil {
		b.launcher.Cleanup()
	}
	utils.Debugf("浏览器已关闭")
	return err
}
