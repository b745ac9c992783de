package scheduling

import (
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Store keeps appointments in process memory. It is the only shared mutable
// state across concurrent calls; every compound operation runs under one lock
// so a free-check-then-create sequence is atomic.
type Store struct {
	mu   sync.Mutex
	byID map[string]*Appointment
	now  func() time.Time
}

// NewStore creates an empty appointment store.
func NewStore() *Store {
	return &Store{
		byID: make(map[string]*Appointment),
		now:  time.Now,
	}
}

// conflictLocked reports whether a live appointment for the doctor overlaps
// [start, start+d). Callers must hold s.mu.
func (s *Store) conflictLocked(doctorID string, start time.Time, d time.Duration, ignoreID string) bool {
	end := start.Add(d)
	for _, appt := range s.byID {
		if appt.DoctorID != doctorID || appt.Status == StatusCancelled || appt.ID == ignoreID {
			continue
		}
		if appt.Start.Before(end) && start.Before(appt.End()) {
			return true
		}
	}
	return false
}

// Book re-checks the slot under the lock and creates the appointment. Two
// callers racing for the same slot get exactly one success; the loser sees
// ErrSlotUnavailable.
func (s *Store) Book(slot Slot, patient Patient) (*Appointment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.conflictLocked(slot.DoctorID, slot.Start, slot.Duration, "") {
		return nil, ErrSlotUnavailable
	}

	appt := &Appointment{
		ID:         uuid.NewString(),
		Patient:    patient,
		Service:    slot.Service,
		LocationID: slot.LocationID,
		DoctorID:   slot.DoctorID,
		Start:      slot.Start,
		Duration:   slot.Duration,
		Status:     StatusScheduled,
		CreatedAt:  s.now().UTC(),
	}
	s.byID[appt.ID] = appt

	out := *appt
	return &out, nil
}

// Reschedule atomically cancels the prior appointment and creates a new one
// at the requested slot. The cancel and the create happen under the same lock
// acquisition so no intermediate state is observable.
func (s *Store) Reschedule(appointmentID string, slot Slot) (*Appointment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	old, ok := s.byID[appointmentID]
	if !ok || old.Status != StatusScheduled {
		return nil, ErrAppointmentNotFound
	}
	if s.conflictLocked(slot.DoctorID, slot.Start, slot.Duration, old.ID) {
		return nil, ErrSlotUnavailable
	}

	old.Status = StatusCancelled

	appt := &Appointment{
		ID:         uuid.NewString(),
		Patient:    old.Patient,
		Service:    slot.Service,
		LocationID: slot.LocationID,
		DoctorID:   slot.DoctorID,
		Start:      slot.Start,
		Duration:   slot.Duration,
		Status:     StatusScheduled,
		CreatedAt:  s.now().UTC(),
	}
	s.byID[appt.ID] = appt

	out := *appt
	return &out, nil
}

// Cancel marks an appointment cancelled. The record stays in the store.
func (s *Store) Cancel(appointmentID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	appt, ok := s.byID[appointmentID]
	if !ok || appt.Status != StatusScheduled {
		return ErrAppointmentNotFound
	}
	appt.Status = StatusCancelled
	return nil
}

// Get returns a copy of an appointment by id.
func (s *Store) Get(appointmentID string) (*Appointment, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	appt, ok := s.byID[appointmentID]
	if !ok {
		return nil, false
	}
	out := *appt
	return &out, true
}

// Active returns copies of the doctor's non-cancelled appointments that
// overlap [from, to), for slot subtraction.
func (s *Store) Active(doctorID string, from, to time.Time) []Appointment {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []Appointment
	for _, appt := range s.byID {
		if appt.DoctorID != doctorID || appt.Status == StatusCancelled {
			continue
		}
		if appt.Start.Before(to) && from.Before(appt.End()) {
			out = append(out, *appt)
		}
	}
	return out
}

// FindByPatient returns the patient's scheduled appointments, soonest first.
// Matching is by case-insensitive name; phone narrows the match when given.
func (s *Store) FindByPatient(name, phone string) []Appointment {
	s.mu.Lock()
	defer s.mu.Unlock()

	name = strings.ToLower(strings.TrimSpace(name))
	var out []Appointment
	for _, appt := range s.byID {
		if appt.Status != StatusScheduled {
			continue
		}
		if name != "" && strings.ToLower(appt.Patient.Name) != name {
			continue
		}
		if phone != "" && appt.Patient.Phone != phone {
			continue
		}
		out = append(out, *appt)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Start.Before(out[j].Start) })
	return out
}

// All returns copies of every appointment, soonest first. Used by the admin
// surface.
func (s *Store) All() []Appointment {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Appointment, 0, len(s.byID))
	for _, appt := range s.byID {
		out = append(out, *appt)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Start.Before(out[j].Start) })
	return out
}
