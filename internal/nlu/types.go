// Package nlu maps caller utterances to a classified intent and extracted
// entities. The primary path asks a language-model backend for strict JSON;
// a deterministic keyword matcher covers every failure of that path.
package nlu

import (
	"time"

	"github.com/wolfman30/clinic-voice-agent/internal/clinic"
)

// Intent is what the caller wants from the call.
type Intent string

const (
	IntentSchedule   Intent = "schedule"
	IntentReschedule Intent = "reschedule"
	IntentCancel     Intent = "cancel"
	IntentInquiry    Intent = "inquiry"
	IntentUnknown    Intent = "unknown"
)

// ParseIntent maps a string to a known intent, defaulting to unknown.
func ParseIntent(raw string) Intent {
	switch Intent(raw) {
	case IntentSchedule, IntentReschedule, IntentCancel, IntentInquiry:
		return Intent(raw)
	default:
		return IntentUnknown
	}
}

// TimeOfDay is a coarse preferred window within a day.
type TimeOfDay string

const (
	Morning   TimeOfDay = "morning"   // before 12:00
	Afternoon TimeOfDay = "afternoon" // 12:00-17:00
	Evening   TimeOfDay = "evening"   // 17:00 onward
)

// Entities is the partial slot-filling state extracted from speech. Zero
// values mean "not yet provided".
type Entities struct {
	Service     clinic.ServiceType `json:"service,omitempty"`
	LocationID  string             `json:"location_id,omitempty"`
	DoctorID    string             `json:"doctor_id,omitempty"`
	Date        time.Time          `json:"date,omitempty"`
	TimeOfDay   TimeOfDay          `json:"time_of_day,omitempty"`
	PatientName string             `json:"patient_name,omitempty"`
}

// Merge overlays non-empty fields from latest onto e. The latest extraction
// wins, which doubles as the correction mechanism.
func (e *Entities) Merge(latest Entities) {
	if latest.Service != "" {
		e.Service = latest.Service
	}
	if latest.LocationID != "" {
		e.LocationID = latest.LocationID
	}
	if latest.DoctorID != "" {
		e.DoctorID = latest.DoctorID
	}
	if !latest.Date.IsZero() {
		e.Date = latest.Date
	}
	if latest.TimeOfDay != "" {
		e.TimeOfDay = latest.TimeOfDay
	}
	if latest.PatientName != "" {
		e.PatientName = latest.PatientName
	}
}

// Clear empties the named slots, used when the caller corrects an earlier answer.
func (e *Entities) Clear(slots []string) {
	for _, name := range slots {
		switch name {
		case "service":
			e.Service = ""
		case "location":
			e.LocationID = ""
		case "doctor":
			e.DoctorID = ""
		case "date":
			e.Date = time.Time{}
		case "time_of_day":
			e.TimeOfDay = ""
		case "patient_name":
			e.PatientName = ""
		}
	}
}

// Extraction is the result of one extraction pass.
type Extraction struct {
	Intent      Intent
	Entities    Entities
	Corrections []string
	Confidence  float64
	// Source records which path produced the result: "llm" or "fallback".
	Source string
}

// ContextSummary is the minimal call context the extractor needs: the current
// dialogue state and what is already known. Never the full turn history.
type ContextSummary struct {
	State  string
	Intent Intent
	Known  Entities
	Today  time.Time
}
