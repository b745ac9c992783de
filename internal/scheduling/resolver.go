package scheduling

import (
	"context"
	"fmt"
	"sort"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/wolfman30/clinic-voice-agent/internal/clinic"
	"github.com/wolfman30/clinic-voice-agent/pkg/logging"
)

var schedulingTracer = otel.Tracer("clinicvoice.internal.scheduling")

// slotStep is the granularity at which candidate start times are generated.
const slotStep = 30 * time.Minute

// Resolver turns a (service, location, doctor?, range) query into concrete
// bookable slots and performs the terminal booking actions against the store.
type Resolver struct {
	dir    *clinic.Directory
	store  *Store
	logger *logging.Logger
	now    func() time.Time
}

// NewResolver constructs an availability resolver.
func NewResolver(dir *clinic.Directory, store *Store, logger *logging.Logger) *Resolver {
	if dir == nil {
		panic("scheduling: clinic directory required")
	}
	if store == nil {
		panic("scheduling: appointment store required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Resolver{dir: dir, store: store, logger: logger, now: time.Now}
}

// FindSlots returns bookable slots for the service at the location within
// [from, to], earliest first with doctor id as tie-break. A non-empty doctorID
// restricts the search to that doctor. Slots never fall outside a doctor's
// template, never overlap a live appointment, and never start in the past.
func (r *Resolver) FindSlots(ctx context.Context, service clinic.ServiceType, locationID, doctorID string, from, to time.Time) ([]Slot, error) {
	ctx, span := schedulingTracer.Start(ctx, "scheduling.find_slots")
	defer span.End()
	span.SetAttributes(
		attribute.String("clinicvoice.service", string(service)),
		attribute.String("clinicvoice.location_id", locationID),
	)
	_ = ctx

	if _, ok := r.dir.LocationByID(locationID); !ok {
		return nil, fmt.Errorf("%w: unknown location %q", ErrInvalidInput, locationID)
	}
	doctors := r.dir.DoctorsFor(service, locationID)
	if doctorID != "" {
		filtered := doctors[:0]
		for _, doc := range doctors {
			if doc.ID == doctorID {
				filtered = append(filtered, doc)
			}
		}
		doctors = filtered
	}
	if len(doctors) == 0 {
		return nil, fmt.Errorf("%w: no doctor offers %s at %s", ErrInvalidInput, service, locationID)
	}

	now := r.now()
	duration := service.Duration()
	var slots []Slot

	for day := startOfDay(from); !day.After(to); day = day.AddDate(0, 0, 1) {
		for _, doc := range doctors {
			for _, iv := range doc.IntervalsOn(day.Weekday()) {
				open, close, err := iv.Clock()
				if err != nil {
					// Validated at load; a bad interval here is a programming error.
					return nil, err
				}
				booked := r.store.Active(doc.ID, day, day.AddDate(0, 0, 1))
				for m := open; m+int(duration.Minutes()) <= close; m += int(slotStep.Minutes()) {
					start := day.Add(time.Duration(m) * time.Minute)
					if !start.After(now) || start.Before(from) || start.After(to) {
						continue
					}
					if overlapsAny(start, duration, booked) {
						continue
					}
					slots = append(slots, Slot{
						DoctorID:   doc.ID,
						DoctorName: doc.Name,
						LocationID: locationID,
						Service:    service,
						Start:      start,
						Duration:   duration,
					})
				}
			}
		}
	}

	sort.Slice(slots, func(i, j int) bool {
		if !slots[i].Start.Equal(slots[j].Start) {
			return slots[i].Start.Before(slots[j].Start)
		}
		return slots[i].DoctorID < slots[j].DoctorID
	})
	return slots, nil
}

// Book validates the combination and creates the appointment, re-checking the
// slot under the store lock.
func (r *Resolver) Book(ctx context.Context, slot Slot, patient Patient) (*Appointment, error) {
	ctx, span := schedulingTracer.Start(ctx, "scheduling.book")
	defer span.End()
	span.SetAttributes(attribute.String("clinicvoice.doctor_id", slot.DoctorID))
	_ = ctx

	if err := r.validateSlot(slot); err != nil {
		return nil, err
	}
	appt, err := r.store.Book(slot, patient)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	r.logger.Info("appointment booked",
		"appointment_id", appt.ID,
		"doctor_id", appt.DoctorID,
		"service", appt.Service,
		"start", appt.Start,
	)
	return appt, nil
}

// Reschedule moves an appointment to a new slot: the old record is cancelled
// and a new one created atomically.
func (r *Resolver) Reschedule(ctx context.Context, appointmentID string, slot Slot) (*Appointment, error) {
	ctx, span := schedulingTracer.Start(ctx, "scheduling.reschedule")
	defer span.End()
	span.SetAttributes(attribute.String("clinicvoice.appointment_id", appointmentID))
	_ = ctx

	if err := r.validateSlot(slot); err != nil {
		return nil, err
	}
	appt, err := r.store.Reschedule(appointmentID, slot)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	r.logger.Info("appointment rescheduled",
		"old_appointment_id", appointmentID,
		"appointment_id", appt.ID,
		"start", appt.Start,
	)
	return appt, nil
}

// Cancel marks an appointment cancelled.
func (r *Resolver) Cancel(ctx context.Context, appointmentID string) error {
	ctx, span := schedulingTracer.Start(ctx, "scheduling.cancel")
	defer span.End()
	span.SetAttributes(attribute.String("clinicvoice.appointment_id", appointmentID))
	_ = ctx

	if err := r.store.Cancel(appointmentID); err != nil {
		span.RecordError(err)
		return err
	}
	r.logger.Info("appointment cancelled", "appointment_id", appointmentID)
	return nil
}

// FindByPatient returns the patient's upcoming scheduled appointments.
func (r *Resolver) FindByPatient(ctx context.Context, name, phone string) []Appointment {
	_, span := schedulingTracer.Start(ctx, "scheduling.find_by_patient")
	defer span.End()
	return r.store.FindByPatient(name, phone)
}

// Appointment looks up a single appointment by id.
func (r *Resolver) Appointment(appointmentID string) (*Appointment, error) {
	appt, ok := r.store.Get(appointmentID)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrAppointmentNotFound, appointmentID)
	}
	return appt, nil
}

// Appointments returns every appointment in the store, for the admin surface.
func (r *Resolver) Appointments() []Appointment {
	return r.store.All()
}

func (r *Resolver) validateSlot(slot Slot) error {
	doc, ok := r.dir.DoctorByID(slot.DoctorID)
	if !ok {
		return fmt.Errorf("%w: unknown doctor %q", ErrInvalidInput, slot.DoctorID)
	}
	if !doc.Performs(slot.Service) {
		return fmt.Errorf("%w: %s does not perform %s", ErrInvalidInput, doc.Name, slot.Service)
	}
	if !doc.WorksAt(slot.LocationID) {
		return fmt.Errorf("%w: %s does not work at %s", ErrInvalidInput, doc.Name, slot.LocationID)
	}
	return nil
}

func overlapsAny(start time.Time, d time.Duration, booked []Appointment) bool {
	end := start.Add(d)
	for _, appt := range booked {
		if appt.Start.Before(end) && start.Before(appt.End()) {
			return true
		}
	}
	return false
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
