package crawlers

import (
	"testing"
	"time"
)

func TestParseRelativeTime(t *testing.T) {
	now := time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		text string
		want time.Time
	}{
		{"2 days ago", now.Add(-172800 * time.Second)},
		{"1 second ago", now.Add(-time.Second)},
		{"5 minutes ago", now.Add(-5 * time.Minute)},
		{"an hour ago", now.Add(-time.Hour)},
		{"a week ago", now.Add(-7 * 24 * time.Hour)},
		{"3 months ago", now.Add(-90 * 24 * time.Hour)},
		{"2 years ago", now.Add(-730 * 24 * time.Hour)},
		{"300 years ago", now.AddDate(-300, 0, 0)},
		{"99999999999999999999 years ago", now.AddDate(-10000, 0, 0)},
		{"3d", now.Add(-72 * time.Hour)},
		{"10m ago", now.Add(-10 * time.Minute)},
		{"Active 4h ago", now.Add(-4 * time.Hour)},
		{"just now", now},
		{"yesterday", now.Add(-24 * time.Hour)},
		{"Jan 15, 2024", time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)},
		{"January 15, 2024", time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)},
		{"Joined Mar 3, 2023", time.Date(2023, 3, 3, 0, 0, 0, 0, time.UTC)},
		{"2023-11-20", time.Date(2023, 11, 20, 0, 0, 0, 0, time.UTC)},
		{"Feb 10", time.Date(2024, 2, 10, 0, 0, 0, 0, time.UTC)},
		{"Dec 25", time.Date(2023, 12, 25, 0, 0, 0, 0, time.UTC)},
		{"not a date", now},
		{"", now},
		{"7 fortnights ago", now},
	}

	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			got := ParseRelativeTime(tt.text, now)
			if d := got.Sub(tt.want); d > time.Second || d < -time.Second {
				t.Errorf("ParseRelativeTime(%q) = %v, want %v", tt.text, got, tt.want)
			}
		})
	}
}
