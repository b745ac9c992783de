// Package callflow drives a single phone call through the booking dialogue.
// One CallState exists per active call; the engine advances it turn by turn.
package callflow

import (
	"time"

	"github.com/wolfman30/clinic-voice-agent/internal/nlu"
	"github.com/wolfman30/clinic-voice-agent/internal/scheduling"
)

// DialogueState is the call's position in the conversation state machine.
type DialogueState string

const (
	StateGreeting                 DialogueState = "greeting"
	StateCollectingIntent         DialogueState = "collecting_intent"
	StateCollectingService        DialogueState = "collecting_service"
	StateCollectingLocation       DialogueState = "collecting_location"
	StateCollectingTime           DialogueState = "collecting_time"
	StateCollectingAppointmentRef DialogueState = "collecting_appointment_ref"
	StateCollectingNewTime        DialogueState = "collecting_new_time"
	StateConfirming               DialogueState = "confirming"
	StateBooked                   DialogueState = "booked"
	StateRescheduled              DialogueState = "rescheduled"
	StateCancelled                DialogueState = "cancelled"
	StateFailed                   DialogueState = "failed"
)

// Terminal reports whether the state ends the engine's involvement with the call.
func (s DialogueState) Terminal() bool {
	switch s {
	case StateBooked, StateRescheduled, StateCancelled, StateFailed:
		return true
	}
	return false
}

// TurnRecord is one entry in the bounded per-call history.
type TurnRecord struct {
	Role string    `json:"role"` // "caller" or "agent"
	Text string    `json:"text"`
	At   time.Time `json:"at"`
}

// maxHistory bounds the per-call turn history.
const maxHistory = 20

// CallState is the per-call record. It is owned by the engine for the
// duration of the call and destroyed when the call ends or goes idle.
type CallState struct {
	CallID   string        `json:"call_id"`
	State    DialogueState `json:"state"`
	Intent   nlu.Intent    `json:"intent,omitempty"`
	Entities nlu.Entities  `json:"entities"`

	// OfferedSlots are the slots last read back to the caller; SelectedSlot
	// is the one they picked, pending confirmation details.
	OfferedSlots []scheduling.Slot `json:"offered_slots,omitempty"`
	SelectedSlot *scheduling.Slot  `json:"selected_slot,omitempty"`

	// AppointmentID is the resolved target of a reschedule or cancel.
	AppointmentID string `json:"appointment_id,omitempty"`

	// Retries counts consecutive failed attempts in the current state.
	Retries int `json:"retries"`

	History []TurnRecord `json:"history,omitempty"`

	StartedAt      time.Time `json:"started_at"`
	LastActivityAt time.Time `json:"last_activity_at"`
}

// NewCallState creates the initial record for a call.
func NewCallState(callID string, now time.Time) *CallState {
	return &CallState{
		CallID:         callID,
		State:          StateGreeting,
		StartedAt:      now,
		LastActivityAt: now,
	}
}

// To moves the call to a new state and resets the retry counter.
func (cs *CallState) To(s DialogueState) {
	if cs.State != s {
		cs.Retries = 0
	}
	cs.State = s
}

// Record appends a turn to the bounded history.
func (cs *CallState) Record(role, text string, at time.Time) {
	cs.History = append(cs.History, TurnRecord{Role: role, Text: text, At: at})
	if len(cs.History) > maxHistory {
		cs.History = cs.History[len(cs.History)-maxHistory:]
	}
}

// Reset clears everything the caller has told us, for a "start over".
func (cs *CallState) Reset() {
	cs.Intent = ""
	cs.Entities = nlu.Entities{}
	cs.OfferedSlots = nil
	cs.SelectedSlot = nil
	cs.AppointmentID = ""
	cs.Retries = 0
	cs.State = StateCollectingIntent
}
