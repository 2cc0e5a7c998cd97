package crawlers

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/RecoveryAshes/SkoolCrawl/internal/config"
	"github.com/RecoveryAshes/SkoolCrawl/internal/crawlers/crawlertest"
	"github.com/RecoveryAshes/SkoolCrawl/internal/models"
)

func mustDoc(t *testing.T, html string) *goquery.Document {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		t.Fatalf("解析HTML失败: %v", err)
	}
	return doc
}

func membersStrategy(t *testing.T) *Strategy {
	t.Helper()
	profile, err := config.DefaultProfile()
	if err != nil {
		t.Fatalf("加载默认站点配置失败: %v", err)
	}
	s, err := NewMembersStrategy(profile, "https://www.skool.com/group/")
	if err != nil {
		t.Fatalf("NewMembersStrategy() error = %v", err)
	}
	return s
}

func TestLocateItemsFallbackOrder(t *testing.T) {
	s := membersStrategy(t)

	t.Run("只有第二个候选匹配", func(t *testing.T) {
		html := crawlertest.MembersPage([]string{
			crawlertest.MemberCard("member-item", "a", "A", 1),
			crawlertest.MemberCard("member-item", "b", "B", 2),
		}, nil)
		items, matched, err := s.LocateItems(mustDoc(t, html), 1)
		if err != nil {
			t.Fatalf("LocateItems() error = %v", err)
		}
		if matched != ".member-item" || items.Length() != 2 {
			t.Errorf("matched = %q, count = %d", matched, items.Length())
		}
	})

	t.Run("首个候选优先", func(t *testing.T) {
		html := `<div data-testid="member-card"></div><div class="member-item"></div><div class="member-item"></div>`
		items, matched, _ := s.LocateItems(mustDoc(t, html), 1)
		if matched != `[data-testid="member-card"]` || items.Length() != 1 {
			t.Errorf("matched = %q, count = %d", matched, items.Length())
		}
	})

	t.Run("全部为空", func(t *testing.T) {
		_, _, err := s.LocateItems(mustDoc(t, `<p>nothing</p>`), 3)
		var nf *models.NoItemsFoundError
		if !errors.As(err, &nf) || nf.Page != 3 || len(nf.Candidates) != len(s.ItemSelectors) {
			t.Errorf("应返回NoItemsFoundError, 得到 %v", err)
		}
	})
}

func TestNextControl(t *testing.T) {
	s := membersStrategy(t)
	enabled, disabled := false, true

	tests := []struct {
		name string
		html string
		want bool
	}{
		{"可用的下一页按钮", crawlertest.MembersPage(nil, &enabled), true},
		{"disabled属性", crawlertest.MembersPage(nil, &disabled), false},
		{"没有分页控件", crawlertest.MembersPage(nil, nil), false},
		{"disabled类名", `<a rel="next" class="pager-disabled">Next</a>`, false},
		{"aria-disabled", `<a rel="next" aria-disabled="true">Next</a>`, false},
		{"rel=next链接", `<a rel="next" href="?p=2">Next</a>`, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, ok := s.NextControl(mustDoc(t, tt.html))
			if ok != tt.want {
				t.Errorf("NextControl() = %v, want %v", ok, tt.want)
			}
		})
	}
}

func TestExtractMember(t *testing.T) {
	s := membersStrategy(t)
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

	html := crawlertest.MembersPage([]string{crawlertest.MemberCard("member-item", "alice-01", "Alice Smith", 1234)}, nil)
	items, _, err := s.LocateItems(mustDoc(t, html), 1)
	if err != nil {
		t.Fatalf("LocateItems() error = %v", err)
	}

	e, missing := s.ExtractOne(items.First(), now)
	m, ok := e.(*models.Member)
	if !ok {
		t.Fatalf("应提取出Member, 得到 %T", e)
	}
	if m.ID != "alice-01" {
		t.Errorf("ID = %q", m.ID)
	}
	if m.DisplayName != "Alice Smith" || m.Username != "Alice Smith" {
		t.Errorf("名称错误: display=%q username=%q", m.DisplayName, m.Username)
	}
	if m.Points == nil || *m.Points != 1234 {
		t.Errorf("Points = %v", m.Points)
	}
	if m.Avatar != "https://cdn.example/alice-01.png" {
		t.Errorf("Avatar = %q", m.Avatar)
	}
	if !m.JoinedAt.Equal(time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("JoinedAt = %v", m.JoinedAt)
	}
	if m.LastActiveAt == nil || !m.LastActiveAt.Equal(now.Add(-48*time.Hour)) {
		t.Errorf("LastActiveAt = %v", m.LastActiveAt)
	}
	if !m.ScrapedAt.Equal(now) {
		t.Errorf("ScrapedAt = %v", m.ScrapedAt)
	}

	// 缺失的可选字段只记录,不影响提取
	for _, want := range []string{"username", "role", "bio"} {
		found := false
		for _, name := range missing {
			found = found || name == want
		}
		if !found {
			t.Errorf("缺失字段应包含 %s: %v", want, missing)
		}
	}
}

func TestExtractMemberWithoutID(t *testing.T) {
	s := membersStrategy(t)
	doc := mustDoc(t, `<div class="member-item"><span class="member-name">Ghost</span></div>`)

	e, missing := s.ExtractOne(doc.Find(".member-item"), time.Now())
	if e != nil {
		t.Errorf("无ID的条目应返回nil, 得到 %+v", e)
	}
	if len(missing) == 0 || missing[0] != "id" {
		t.Errorf("missing = %v", missing)
	}
}

func TestMemberIDFromHref(t *testing.T) {
	tests := map[string]string{
		"/group/members/abc123":           "abc123",
		"/group/members/abc123?tab=about": "abc123",
		"https://www.skool.com/@jane-doe": "jane-doe",
		"/@jane-doe?g=group":              "jane-doe",
		"/group/members/xyz/activity#top": "xyz",
		"/group/about":                    "",
		"":                                "",
	}
	for href, want := range tests {
		if got := MemberIDFromHref(href); got != want {
			t.Errorf("MemberIDFromHref(%q) = %q, want %q", href, got, want)
		}
	}
}

func TestPagedURL(t *testing.T) {
	s := membersStrategy(t)
	if got := s.PageURL(1); got != "https://www.skool.com/group/members" {
		t.Errorf("PageURL(1) = %q", got)
	}
	if got := s.PageURL(4); got != "https://www.skool.com/group/members?p=4" {
		t.Errorf("PageURL(4) = %q", got)
	}
}

func TestCompileFieldsInvalidPattern(t *testing.T) {
	_, err := CompileFields(map[string]models.FieldSpec{
		"points": {Selectors: []string{".p"}, Pattern: "(["},
	})
	if err == nil {
		t.Error("无效正则应返回错误")
	}
}

func TestFieldReaderFallback(t *testing.T) {
	fields, err := CompileFields(map[string]models.FieldSpec{
		"title": {Selectors: []string{".missing", "h2", "h1"}},
		"count": {Selectors: []string{".count"}, Pattern: `[\d,]+`},
	})
	if err != nil {
		t.Fatal(err)
	}

	doc := mustDoc(t, `<article><h2>  Hello
	world </h2><h1>ignored</h1><span class="count">1,024 views</span></article>`)
	r := fields.Reader(doc.Find("article"))

	if got := r.String("title"); got != "Hello world" {
		t.Errorf("title = %q", got)
	}
	if got := r.Int("count"); got == nil || *got != 1024 {
		t.Errorf("count = %v", got)
	}
	if got := r.String("unknown"); got != "" {
		t.Errorf("unknown = %q", got)
	}
	if m := r.Missing(); len(m) != 1 || m[0] != "unknown" {
		t.Errorf("Missing() = %v", m)
	}
}
