package callflow

import (
	"testing"

	"github.com/wolfman30/clinic-voice-agent/internal/clinic"
)

func TestParseSlotChoice(t *testing.T) {
	tests := []struct {
		in   string
		n    int
		want int
		ok   bool
	}{
		{"1", 3, 0, true},
		{"number 2", 3, 1, true},
		{"the first one", 3, 0, true},
		{"second", 3, 1, true},
		{"three please", 3, 2, true},
		{"4", 3, 0, false},
		{"0", 3, 0, false},
		{"whenever", 3, 0, false},
		{"none of those", 3, 0, false},
		{"", 3, 0, false},
	}
	for _, tt := range tests {
		got, ok := parseSlotChoice(tt.in, tt.n)
		if ok != tt.ok || (ok && got != tt.want) {
			t.Errorf("parseSlotChoice(%q, %d) = (%d, %v), want (%d, %v)", tt.in, tt.n, got, ok, tt.want, tt.ok)
		}
	}
}

func TestPlausibleName(t *testing.T) {
	tests := []struct {
		in   string
		want string
		ok   bool
	}{
		{"riley chen", "Riley Chen", true},
		{"Dana", "Dana", true},
		{"mary anne smith", "Mary Anne Smith", true},
		{"yes", "", false},
		{"no thanks", "", false},
		{"sounds great", "", false},
		{"sounds good", "", false},
		{"um okay", "", false},
		{"thanks", "", false},
		{"", "", false},
		{"it's 555-1234", "", false},
		{"i would really like to book something", "", false},
	}
	for _, tt := range tests {
		got, ok := plausibleName(tt.in)
		if ok != tt.ok || got != tt.want {
			t.Errorf("plausibleName(%q) = (%q, %v), want (%q, %v)", tt.in, got, ok, tt.want, tt.ok)
		}
	}
}

func TestJoinSpoken(t *testing.T) {
	tests := []struct {
		in   []string
		want string
	}{
		{nil, ""},
		{[]string{"massage"}, "massage"},
		{[]string{"massage", "acupuncture"}, "massage or acupuncture"},
		{[]string{"a", "b", "c"}, "a, b, or c"},
	}
	for _, tt := range tests {
		if got := joinSpoken(tt.in); got != tt.want {
			t.Errorf("joinSpoken(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestHoursPhraseFromTemplates(t *testing.T) {
	if got := hoursPhrase(clinic.Default()); got != "weekdays 9:00 AM to 5:00 PM" {
		t.Errorf("hoursPhrase(default) = %q", got)
	}

	weekend := &clinic.Directory{
		Doctors: []clinic.Doctor{{
			ID: "d1", Name: "Dr. Test",
			Week: map[string][]clinic.Interval{
				"saturday": {{Open: "10:00", Close: "14:00"}},
			},
		}},
	}
	if got := hoursPhrase(weekend); got != "10:00 AM to 2:00 PM" {
		t.Errorf("hoursPhrase(weekend) = %q", got)
	}

	if got := hoursPhrase(&clinic.Directory{}); got != "" {
		t.Errorf("hoursPhrase(empty) = %q, want empty", got)
	}
}
