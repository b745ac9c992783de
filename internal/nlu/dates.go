package nlu

import (
	"regexp"
	"strings"
	"time"
)

var weekdayNames = map[string]time.Weekday{
	"sunday":    time.Sunday,
	"monday":    time.Monday,
	"tuesday":   time.Tuesday,
	"wednesday": time.Wednesday,
	"thursday":  time.Thursday,
	"friday":    time.Friday,
	"saturday":  time.Saturday,
}

var weekdayRE = regexp.MustCompile(`\b(next\s+)?(sunday|monday|tuesday|wednesday|thursday|friday|saturday)\b`)

// ResolveDatePhrase finds a relative date phrase in text and resolves it to
// the nearest future calendar date. "next tuesday" and a bare "tuesday" both
// resolve forward; a weekday that names today rolls to next week.
func ResolveDatePhrase(text string, now time.Time) (time.Time, bool) {
	text = strings.ToLower(text)

	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	switch {
	case strings.Contains(text, "day after tomorrow"):
		return today.AddDate(0, 0, 2), true
	case strings.Contains(text, "tomorrow"):
		return today.AddDate(0, 0, 1), true
	case strings.Contains(text, "today"):
		return today, true
	}

	if m := weekdayRE.FindStringSubmatch(text); m != nil {
		target := weekdayNames[m[2]]
		days := int(target-now.Weekday()+7) % 7
		if days == 0 {
			days = 7
		}
		// "next <weekday>" within the coming three days usually means the
		// following week's occurrence.
		if m[1] != "" && days <= 3 {
			days += 7
		}
		return today.AddDate(0, 0, days), true
	}

	return time.Time{}, false
}

// ParseTimeOfDay finds a coarse time-of-day preference in text.
func ParseTimeOfDay(text string) TimeOfDay {
	text = strings.ToLower(text)
	switch {
	case strings.Contains(text, "morning"):
		return Morning
	case strings.Contains(text, "afternoon"):
		return Afternoon
	case strings.Contains(text, "evening"), strings.Contains(text, "after work"):
		return Evening
	default:
		return ""
	}
}

// Window returns the clock bounds of the time-of-day preference, in minutes
// past midnight. An empty preference spans the whole day.
func (t TimeOfDay) Window() (from, to int) {
	switch t {
	case Morning:
		return 0, 12 * 60
	case Afternoon:
		return 12 * 60, 17 * 60
	case Evening:
		return 17 * 60, 24 * 60
	default:
		return 0, 24 * 60
	}
}
