// Package crawlers 提供浏览器会话、页面抽象和列表页提取策略
//
// # 概述
//
// 所有抓取都通过真实浏览器(go-rod)完成:目标平台是需要登录的单页应用,
// 页面内容由JavaScript渲染。核心逻辑只依赖Page接口,不直接接触rod。
//
// # 核心组件
//
// ## Browser
//
// 启动本地Chrome(带反自动化参数),或通过远程调试端口复用已登录的Chrome。
//
//	browser, err := LaunchBrowser(BrowserOptions{Headless: true})
//	defer browser.Close()
//
// ## Authenticator
//
// 把 "name=value; name2=value2" 形式的cookie字符串注入新的stealth页面,
// 并设置User-Agent、视口、时区和额外请求头。Verify通过登录指示器判断会话是否有效。
//
//	auth := NewAuthenticator(profile, headers, "https://www.skool.com")
//	session, err := auth.CreateSession(ctx, browser, rawCookie)
//	ok, err := auth.Verify(ctx, session.Page, communityURL)
//
// ## Strategy
//
// 一个任务的列表页提取规则:候选条目选择器(第一个非空匹配生效)、
// 字段规则(每个字段独立回退)和下一页控件。members任务由NewMembersStrategy构造。
//
//	strategy, err := NewMembersStrategy(profile, communityURL)
//	items, matched, err := strategy.LocateItems(doc, page)
//
// # 选择器失效
//
// 选择器属于配置(configs/site.yaml)。第一页找不到任何条目时返回
// NoItemsFoundError,说明选择器可能已过期;单个字段缺失只使用默认值。
package crawlers
