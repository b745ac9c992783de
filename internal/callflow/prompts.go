package callflow

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/wolfman30/clinic-voice-agent/internal/clinic"
	"github.com/wolfman30/clinic-voice-agent/internal/scheduling"
)

func greetingPrompt(clinicName string) string {
	return fmt.Sprintf("Thank you for calling %s. Would you like to schedule, reschedule, or cancel an appointment?", clinicName)
}

func intentReprompt() string {
	return "I can help you schedule, reschedule, or cancel an appointment. What would you like to do?"
}

func inquiryPrompt(dir *clinic.Directory) string {
	services := make([]string, 0, len(clinic.ServiceTypes()))
	for _, s := range clinic.ServiceTypes() {
		services = append(services, string(s))
	}
	locations := make([]string, 0, len(dir.Locations))
	for _, loc := range dir.Locations {
		locations = append(locations, loc.Name)
	}
	if hours := hoursPhrase(dir); hours != "" {
		return fmt.Sprintf("We offer %s at our %s locations, %s. Would you like to schedule an appointment?",
			joinSpoken(services), joinSpoken(locations), hours)
	}
	return fmt.Sprintf("We offer %s at our %s locations. Would you like to schedule an appointment?",
		joinSpoken(services), joinSpoken(locations))
}

// hoursPhrase summarizes the broadest open hours across the doctors' weekly
// templates, e.g. "weekdays 9:00 AM to 5:00 PM".
func hoursPhrase(dir *clinic.Directory) string {
	minOpen, maxClose := 24*60, 0
	weekend := false
	for _, doc := range dir.Doctors {
		for day, intervals := range doc.Week {
			for _, iv := range intervals {
				open, close, err := iv.Clock()
				if err != nil {
					continue
				}
				if day == "saturday" || day == "sunday" {
					weekend = true
				}
				if open < minOpen {
					minOpen = open
				}
				if close > maxClose {
					maxClose = close
				}
			}
		}
	}
	if maxClose == 0 {
		return ""
	}
	span := speakClock(minOpen) + " to " + speakClock(maxClose)
	if weekend {
		return span
	}
	return "weekdays " + span
}

func speakClock(minutes int) string {
	return time.Date(0, 1, 1, minutes/60, minutes%60, 0, 0, time.UTC).Format("3:04 PM")
}

func servicePrompt() string {
	services := make([]string, 0, len(clinic.ServiceTypes()))
	for _, s := range clinic.ServiceTypes() {
		services = append(services, string(s))
	}
	return fmt.Sprintf("What type of service would you like? We offer %s.", joinSpoken(services))
}

func serviceReprompt() string {
	return "I'm sorry, I didn't catch a service we offer. " + servicePrompt()
}

func locationPrompt(dir *clinic.Directory) string {
	locations := make([]string, 0, len(dir.Locations))
	for _, loc := range dir.Locations {
		locations = append(locations, loc.Name)
	}
	return fmt.Sprintf("Which location would you prefer, %s?", joinSpoken(locations))
}

func locationReprompt(dir *clinic.Directory) string {
	return "I'm sorry, I didn't catch that location. " + locationPrompt(dir)
}

func timePrompt() string {
	return "What day works for you? You can say things like tomorrow, or next Tuesday afternoon."
}

func noSlotsPrompt() string {
	return "I'm sorry, I don't see any openings that match. Could you try a different day or time of day?"
}

func offerPrompt(slots []scheduling.Slot) string {
	lines := make([]string, 0, len(slots))
	for i, s := range slots {
		lines = append(lines, fmt.Sprintf("%d. %s at %s with %s", i+1, speakDate(s.Start), speakTime(s.Start), s.DoctorName))
	}
	return fmt.Sprintf("Here's what I found: %s. Which one would you like? You can say the number, or yes for the first one.", strings.Join(lines, ". "))
}

func chooseSlotReprompt(n int) string {
	return fmt.Sprintf("Please choose a number between 1 and %d, or say no for different times.", n)
}

func askNamePrompt() string {
	return "Can I get your name for the appointment?"
}

func askNameForLookupPrompt() string {
	return "Sure, I can help with that. What's the name the appointment is under?"
}

func noAppointmentPrompt(name string) string {
	return fmt.Sprintf("I couldn't find an upcoming appointment under the name %s. Could you give me the name on the appointment again?", name)
}

func confirmCancelPrompt(appt scheduling.Appointment, locationName string) string {
	return fmt.Sprintf("I found your %s appointment on %s at %s at our %s location. Should I cancel it?",
		appt.Service, speakDate(appt.Start), speakTime(appt.Start), locationName)
}

func askNewTimePrompt(appt scheduling.Appointment) string {
	return fmt.Sprintf("I found your %s appointment on %s at %s. What day would you like to move it to?",
		appt.Service, speakDate(appt.Start), speakTime(appt.Start))
}

func bookedPrompt(appt scheduling.Appointment, doctorName, locationName string) string {
	return fmt.Sprintf("Perfect! I've scheduled your %s appointment with %s on %s at %s at our %s location. Thank you for calling!",
		appt.Service, doctorName, speakDate(appt.Start), speakTime(appt.Start), locationName)
}

func rescheduledPrompt(appt scheduling.Appointment, doctorName string) string {
	return fmt.Sprintf("All set! I've moved your %s appointment to %s at %s with %s. Thank you for calling!",
		appt.Service, speakDate(appt.Start), speakTime(appt.Start), doctorName)
}

func cancelledPrompt() string {
	return "Your appointment has been cancelled. Thank you for calling, and we hope to see you again soon!"
}

func slotTakenPrompt() string {
	return "I'm sorry, that time was just taken. Could you give me another day or time that works?"
}

func comboNotOfferedPrompt(service clinic.ServiceType, dir *clinic.Directory) string {
	var offered []string
	for _, loc := range dir.Locations {
		if len(dir.DoctorsFor(service, loc.ID)) > 0 {
			offered = append(offered, loc.Name)
		}
	}
	if len(offered) == 0 {
		return fmt.Sprintf("I'm sorry, we don't currently offer %s. %s", service, servicePrompt())
	}
	return fmt.Sprintf("I'm sorry, we only offer %s at %s. Which location would you like?", service, joinSpoken(offered))
}

func startOverPrompt() string {
	return "No problem, let's start over. Would you like to schedule, reschedule, or cancel an appointment?"
}

func keepAppointmentPrompt() string {
	return "No problem, your appointment stays as scheduled. Is there anything else I can help you with?"
}

func handoffPrompt() string {
	return "I'm sorry I'm having trouble helping you today. Let me transfer you to our front desk. Please hold."
}

func goodbyePrompt() string {
	return "Thank you for calling. Goodbye!"
}

func speakDate(t time.Time) string {
	return t.Format("Monday, January 2")
}

func speakTime(t time.Time) string {
	return t.Format("3:04 PM")
}

func joinSpoken(items []string) string {
	switch len(items) {
	case 0:
		return ""
	case 1:
		return items[0]
	case 2:
		return items[0] + " or " + items[1]
	default:
		return strings.Join(items[:len(items)-1], ", ") + ", or " + items[len(items)-1]
	}
}

var (
	affirmativeRE = regexp.MustCompile(`\b(yes|yeah|yep|yup|sure|correct|sounds (?:good|great)|that works|great|perfect|absolutely|definitely|okay|ok)\b`)
	negativeRE    = regexp.MustCompile(`\b(no|nope|neither|none|nothing|different time)\b`)
	startOverRE   = regexp.MustCompile(`\b(start over|start again|restart)\b`)
	slotNumberRE  = regexp.MustCompile(`\b([0-9]+)\b`)
	plainNameRE   = regexp.MustCompile(`^[a-z]+(?:\s+[a-z]+){0,2}$`)
)

var ordinalWords = map[string]int{
	"one": 1, "first": 1,
	"two": 2, "second": 2,
	"three": 3, "third": 3,
	"four": 4, "fourth": 4,
	"five": 5, "fifth": 5,
}

func isAffirmative(text string) bool {
	return affirmativeRE.MatchString(strings.ToLower(text))
}

func isNegative(text string) bool {
	return negativeRE.MatchString(strings.ToLower(text))
}

func wantsStartOver(text string) bool {
	return startOverRE.MatchString(strings.ToLower(text))
}

// parseSlotChoice extracts a 1-based slot selection from speech, accepting
// digits and ordinal words. Returns a 0-based index.
func parseSlotChoice(text string, n int) (int, bool) {
	text = strings.ToLower(text)
	if m := slotNumberRE.FindStringSubmatch(text); m != nil {
		var v int
		fmt.Sscanf(m[1], "%d", &v)
		if v >= 1 && v <= n {
			return v - 1, true
		}
		return 0, false
	}
	for _, word := range strings.Fields(text) {
		word = strings.Trim(word, ".,!?")
		if v, ok := ordinalWords[word]; ok && v >= 1 && v <= n {
			return v - 1, true
		}
	}
	return 0, false
}

// nameStopWords are filler words that short-circuit treating a bare reply as
// a patient name.
var nameStopWords = map[string]bool{
	"sounds": true, "good": true, "great": true, "fine": true, "right": true,
	"thanks": true, "thank": true, "please": true, "works": true, "maybe": true,
	"hello": true, "hi": true, "hey": true, "um": true, "uh": true, "hmm": true,
	"appointment": true, "whatever": true,
}

// plausibleName accepts a short bare-words reply as a patient name when the
// agent has just asked for one.
func plausibleName(text string) (string, bool) {
	text = strings.ToLower(strings.TrimSpace(text))
	text = strings.TrimSuffix(text, ".")
	if text == "" || !plainNameRE.MatchString(text) {
		return "", false
	}
	if isAffirmative(text) || isNegative(text) {
		return "", false
	}
	for _, w := range strings.Fields(text) {
		if nameStopWords[w] {
			return "", false
		}
	}
	words := strings.Fields(text)
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " "), true
}
