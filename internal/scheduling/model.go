// Package scheduling resolves bookable slots and owns the appointment store.
package scheduling

import (
	"errors"
	"time"

	"github.com/wolfman30/clinic-voice-agent/internal/clinic"
)

var (
	// ErrSlotUnavailable means the requested slot overlaps a live appointment,
	// typically because another caller booked it first.
	ErrSlotUnavailable = errors.New("scheduling: slot is no longer available")
	// ErrInvalidInput means the service/location/doctor combination is not
	// offered by the clinic.
	ErrInvalidInput = errors.New("scheduling: combination not offered")
	// ErrAppointmentNotFound means the appointment id is unknown or already
	// cancelled.
	ErrAppointmentNotFound = errors.New("scheduling: appointment not found")
)

// AppointmentStatus tracks the lifecycle of an appointment. Appointments are
// never deleted; cancellation is a status change.
type AppointmentStatus string

const (
	StatusScheduled AppointmentStatus = "scheduled"
	StatusCancelled AppointmentStatus = "cancelled"
	StatusCompleted AppointmentStatus = "completed"
)

// Patient is the minimal caller identity captured during a call.
type Patient struct {
	Name  string `json:"name"`
	Phone string `json:"phone,omitempty"`
}

// Appointment is a booked visit.
type Appointment struct {
	ID         string             `json:"id"`
	Patient    Patient            `json:"patient"`
	Service    clinic.ServiceType `json:"service"`
	LocationID string             `json:"location_id"`
	DoctorID   string             `json:"doctor_id"`
	Start      time.Time          `json:"start"`
	Duration   time.Duration      `json:"duration"`
	Status     AppointmentStatus  `json:"status"`
	CreatedAt  time.Time          `json:"created_at"`
}

// End returns the appointment's end time.
func (a Appointment) End() time.Time {
	return a.Start.Add(a.Duration)
}

// Slot is a concrete bookable (doctor, location, start, duration) tuple. Slots
// are computed on demand and never stored.
type Slot struct {
	DoctorID   string             `json:"doctor_id"`
	DoctorName string             `json:"doctor_name"`
	LocationID string             `json:"location_id"`
	Service    clinic.ServiceType `json:"service"`
	Start      time.Time          `json:"start"`
	Duration   time.Duration      `json:"duration"`
}

// End returns the slot's end time.
func (s Slot) End() time.Time {
	return s.Start.Add(s.Duration)
}
