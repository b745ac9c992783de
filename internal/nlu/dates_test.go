package nlu

import (
	"testing"
	"time"
)

func TestResolveDatePhrase(t *testing.T) {
	// Monday 2026-01-05.
	now := time.Date(2026, time.January, 5, 10, 0, 0, 0, time.UTC)
	day := func(d int) time.Time {
		return time.Date(2026, time.January, d, 0, 0, 0, 0, time.UTC)
	}

	tests := []struct {
		text   string
		want   time.Time
		wantOK bool
	}{
		{"can I come in today", day(5), true},
		{"tomorrow works", day(6), true},
		{"the day after tomorrow", day(7), true},
		{"tuesday please", day(6), true},
		{"next tuesday please", day(13), true},
		{"how about friday", day(9), true},
		{"next friday", day(9), true},
		{"monday", day(12), true}, // today's weekday rolls a week forward
		{"whenever", time.Time{}, false},
		{"", time.Time{}, false},
	}
	for _, tt := range tests {
		got, ok := ResolveDatePhrase(tt.text, now)
		if ok != tt.wantOK || (ok && !got.Equal(tt.want)) {
			t.Errorf("ResolveDatePhrase(%q) = %v, %v; want %v, %v", tt.text, got, ok, tt.want, tt.wantOK)
		}
	}
}

func TestParseTimeOfDay(t *testing.T) {
	tests := []struct {
		text string
		want TimeOfDay
	}{
		{"tuesday morning", Morning},
		{"in the afternoon", Afternoon},
		{"evening if possible", Evening},
		{"sometime after work", Evening},
		{"anytime", ""},
	}
	for _, tt := range tests {
		if got := ParseTimeOfDay(tt.text); got != tt.want {
			t.Errorf("ParseTimeOfDay(%q) = %q, want %q", tt.text, got, tt.want)
		}
	}
}

func TestTimeOfDayWindow(t *testing.T) {
	tests := []struct {
		tod      TimeOfDay
		from, to int
	}{
		{Morning, 0, 720},
		{Afternoon, 720, 1020},
		{Evening, 1020, 1440},
		{"", 0, 1440},
	}
	for _, tt := range tests {
		from, to := tt.tod.Window()
		if from != tt.from || to != tt.to {
			t.Errorf("%q.Window() = %d, %d; want %d, %d", tt.tod, from, to, tt.from, tt.to)
		}
	}
}
