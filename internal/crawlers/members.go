package crawlers

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/RecoveryAshes/SkoolCrawl/internal/models"
)

// NewMembersStrategy 根据站点配置构造成员列表的提取策略
func NewMembersStrategy(profile *models.SiteProfile, communityURL string) (*Strategy, error) {
	sel, ok := profile.Task(models.TaskMembers)
	if !ok {
		return nil, fmt.Errorf("站点配置缺少 %s 任务", models.TaskMembers)
	}
	fields, err := CompileFields(sel.Fields)
	if err != nil {
		return nil, err
	}

	entry := strings.TrimRight(communityURL, "/")
	listing := entry + sel.Path
	return &Strategy{
		Task:          models.TaskMembers,
		EntryURL:      entry,
		ListingURL:    listing,
		TabLocators:   sel.Tab,
		ItemSelectors: sel.Items,
		NextSelectors: sel.Next,
		Fields:        fields,
		PageURL:       pagedURL(listing, sel.PageParam),
		Extract:       extractMember,
	}, nil
}

// pagedURL 第1页为列表页本身,之后追加分页参数
func pagedURL(listing, param string) func(page int) string {
	if param == "" {
		param = "p"
	}
	return func(page int) string {
		if page <= 1 {
			return listing
		}
		u, err := url.Parse(listing)
		if err != nil {
			return fmt.Sprintf("%s?%s=%d", listing, param, page)
		}
		q := u.Query()
		q.Set(param, strconv.Itoa(page))
		u.RawQuery = q.Encode()
		return u.String()
	}
}

func extractMember(r *FieldReader, now time.Time) models.Entity {
	id := MemberIDFromHref(r.String("id"))
	if id == "" {
		return nil
	}

	name := r.String("name")
	username := r.String("username")
	if username == "" {
		username = name
	}
	if username == "" {
		username = id
	}
	if name == "" {
		name = username
	}

	m := &models.Member{
		ID:          id,
		Username:    strings.TrimPrefix(username, "@"),
		DisplayName: name,
		Avatar:      r.String("avatar"),
		Bio:         r.String("bio"),
		JoinedAt:    ParseRelativeTime(r.String("joined"), now),
		Role:        strings.ToLower(r.String("role")),
		Points:      r.Int("points"),
		ScrapedAt:   now,
	}
	if active := r.String("active"); active != "" {
		t := ParseRelativeTime(active, now)
		m.LastActiveAt = &t
	}
	return m
}

// MemberIDFromHref 从个人主页链接提取成员ID
// 支持 /<community>/members/<id>?... 和 /@<username> 两种形式
func MemberIDFromHref(href string) string {
	var rest string
	if _, after, ok := strings.Cut(href, "/members/"); ok {
		rest = after
	} else if _, after, ok := strings.Cut(href, "/@"); ok {
		rest = after
	} else {
		return ""
	}

	for _, sep := range []string{"?", "#", "/"} {
		rest, _, _ = strings.Cut(rest, sep)
	}
	return strings.TrimSpace(rest)
}
