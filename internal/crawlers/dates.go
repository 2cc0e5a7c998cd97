package crawlers

import (
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var unitSeconds = map[string]int64{
	"second": 1, "sec": 1, "s": 1,
	"minute": 60, "min": 60, "m": 60,
	"hour": 3600, "hr": 3600, "h": 3600,
	"day": 86400, "d": 86400,
	"week": 7 * 86400, "wk": 7 * 86400, "w": 7 * 86400,
	"month": 30 * 86400, "mo": 30 * 86400,
	"year": 365 * 86400, "yr": 365 * 86400, "y": 365 * 86400,
}

const (
	maxSpanSeconds = math.MaxInt64 / int64(time.Second)
	maxSpanYears   = 10000
)

var relativePattern = regexp.MustCompile(`^(\d+|an?)\s*([a-z]+?)s?(?:\s+ago)?$`)

var datePrefixes = []string{"joined", "last active", "active", "updated", "posted", "edited"}

var absoluteLayouts = []string{
	"Jan 2, 2006",
	"January 2, 2006",
	"Jan 2 2006",
	"January 2 2006",
	"2 Jan 2006",
	"2006-01-02",
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"01/02/2006",
	"Jan 2006",
	"January 2006",
}

var yearlessLayouts = []string{"Jan 2", "January 2"}

// ParseRelativeTime 把人类可读的时间文本规范化为绝对时间
// 相对表达基于now计算(月按30天、年按365天近似);无法解析时返回now
func ParseRelativeTime(text string, now time.Time) time.Time {
	s := strings.TrimSpace(text)
	lower := strings.ToLower(s)
	for _, prefix := range datePrefixes {
		if strings.HasPrefix(lower, prefix) {
			s = strings.TrimSpace(s[len(prefix):])
			s = strings.TrimSpace(strings.TrimPrefix(s, ":"))
			lower = strings.ToLower(s)
			break
		}
	}

	switch lower {
	case "", "now", "just now", "today", "online now", "moments ago":
		return now
	case "yesterday":
		return now.Add(-24 * time.Hour)
	}

	if m := relativePattern.FindStringSubmatch(lower); m != nil {
		unit, ok := unitSeconds[m[2]]
		if !ok {
			unit, ok = unitSeconds[strings.TrimSuffix(m[2], "s")]
		}
		if ok {
			n := int64(1)
			if m[1] != "a" && m[1] != "an" {
				n, _ = strconv.ParseInt(m[1], 10, 64)
			}
			return subtractSpan(now, n, unit)
		}
	}

	for _, layout := range absoluteLayouts {
		if t, err := time.ParseInLocation(layout, s, now.Location()); err == nil {
			return t
		}
	}
	for _, layout := range yearlessLayouts {
		if t, err := time.ParseInLocation(layout, s, now.Location()); err == nil {
			t = t.AddDate(now.Year(), 0, 0)
			if t.After(now) {
				t = t.AddDate(-1, 0, 0)
			}
			return t
		}
	}

	return now
}

// subtractSpan 返回now往前n个unit秒的时间,超出time.Duration范围时按年回退
func subtractSpan(now time.Time, n, unit int64) time.Time {
	if n <= maxSpanSeconds/unit {
		return now.Add(-time.Duration(n*unit) * time.Second)
	}
	years := float64(n) * float64(unit) / float64(unitSeconds["year"])
	return now.AddDate(-int(math.Min(years, maxSpanYears)), 0, 0)
}
