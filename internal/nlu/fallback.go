package nlu

import (
	"regexp"
	"strings"
	"time"

	"github.com/wolfman30/clinic-voice-agent/internal/clinic"
)

// serviceSynonyms maps spoken phrases to services. Checked in order so the
// more specific phrases win.
var serviceSynonyms = []struct {
	phrase  string
	service clinic.ServiceType
}{
	{"chiropractic", clinic.ServiceChiropractic},
	{"chiropractor", clinic.ServiceChiropractic},
	{"adjustment", clinic.ServiceChiropractic},
	{"acupuncture", clinic.ServiceAcupuncture},
	{"needles", clinic.ServiceAcupuncture},
	{"massage", clinic.ServiceMassage},
	{"consultation", clinic.ServiceConsultation},
	{"consult", clinic.ServiceConsultation},
}

var (
	doctorRE = regexp.MustCompile(`\b(?:dr\.?|doctor)\s+([a-z]+)`)
	nameRE   = regexp.MustCompile(`\b(?:my name is|this is)\s+([a-z]+(?:\s+[a-z]+)?)\b`)
)

// keywordExtract is the deterministic fallback path. It is total: any input,
// including the empty string, yields an Extraction without error.
func keywordExtract(utterance string, summary ContextSummary, dir *clinic.Directory, now time.Time) Extraction {
	text := strings.ToLower(strings.TrimSpace(utterance))

	ext := Extraction{
		Intent:     IntentUnknown,
		Confidence: 0.6,
		Source:     "fallback",
	}
	if text == "" {
		return ext
	}

	switch {
	case containsAny(text, "reschedule", "move my appointment", "change my appointment", "different time"):
		ext.Intent = IntentReschedule
	case containsAny(text, "cancel"):
		ext.Intent = IntentCancel
	case containsAny(text, "schedule", "book", "make an appointment", "new appointment", "come in", "appointment"):
		ext.Intent = IntentSchedule
	case containsAny(text, "what are your hours", "are you open", "how much", "where are you", "question"):
		ext.Intent = IntentInquiry
	}

	for _, syn := range serviceSynonyms {
		if strings.Contains(text, syn.phrase) {
			ext.Entities.Service = syn.service
			break
		}
	}

	for _, loc := range dir.Locations {
		if strings.Contains(text, strings.ToLower(loc.Name)) {
			ext.Entities.LocationID = loc.ID
			break
		}
	}

	if m := doctorRE.FindStringSubmatch(text); m != nil {
		if doc, ok := dir.DoctorByName(m[1]); ok {
			ext.Entities.DoctorID = doc.ID
		}
	}

	if date, ok := ResolveDatePhrase(text, now); ok {
		ext.Entities.Date = date
	}
	ext.Entities.TimeOfDay = ParseTimeOfDay(text)

	if m := nameRE.FindStringSubmatch(text); m != nil {
		ext.Entities.PatientName = titleCase(m[1])
	}

	return ext
}

func containsAny(text string, phrases ...string) bool {
	for _, p := range phrases {
		if strings.Contains(text, p) {
			return true
		}
	}
	return false
}

func titleCase(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		if len(w) > 0 {
			words[i] = strings.ToUpper(w[:1]) + w[1:]
		}
	}
	return strings.Join(words, " ")
}
