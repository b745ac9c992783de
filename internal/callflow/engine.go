package callflow

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"

	"github.com/wolfman30/clinic-voice-agent/internal/clinic"
	"github.com/wolfman30/clinic-voice-agent/internal/nlu"
	"github.com/wolfman30/clinic-voice-agent/internal/observability/metrics"
	"github.com/wolfman30/clinic-voice-agent/internal/scheduling"
	"github.com/wolfman30/clinic-voice-agent/pkg/logging"
)

var callflowTracer = otel.Tracer("clinicvoice.internal.callflow")

// ErrMissingCallID rejects turn events that arrive without a call id.
var ErrMissingCallID = errors.New("callflow: missing call id")

// EntityExtractor classifies an utterance given the call's context. The
// contract is total: implementations always return a usable Extraction.
type EntityExtractor interface {
	Extract(ctx context.Context, utterance string, summary nlu.ContextSummary) nlu.Extraction
}

// Turn is one caller utterance handed to the engine.
type Turn struct {
	CallID      string
	Utterance   string
	IsCallStart bool
	IsCallEnd   bool
}

// TurnResult is what the engine wants spoken back, plus call-control flags.
type TurnResult struct {
	Prompt        string
	State         DialogueState
	ShouldEndCall bool
}

// EngineConfig wires the engine's collaborators.
type EngineConfig struct {
	Store      CallStateStore
	Resolver   *scheduling.Resolver
	Extractor  EntityExtractor
	Directory  *clinic.Directory
	Metrics    *metrics.CallMetrics
	Logger     *logging.Logger
	ClinicName string

	// MaxRetries is the per-state misunderstanding budget before handoff.
	MaxRetries int
	// SearchWindow bounds how far ahead slot search looks when the caller
	// names no date.
	SearchWindow time.Duration
	// OfferLimit caps how many slots are read back per offer.
	OfferLimit int
}

// Engine advances calls through the dialogue state machine. It is stateless
// itself; all per-call state lives in the CallStateStore.
type Engine struct {
	store      CallStateStore
	resolver   *scheduling.Resolver
	extractor  EntityExtractor
	dir        *clinic.Directory
	metrics    *metrics.CallMetrics
	logger     *logging.Logger
	clinicName string
	maxRetries int
	window     time.Duration
	offerLimit int
	now        func() time.Time
}

// NewEngine builds an engine. Store, resolver, extractor, and directory are
// required; metrics may be nil.
func NewEngine(cfg EngineConfig) *Engine {
	if cfg.Store == nil || cfg.Resolver == nil || cfg.Extractor == nil || cfg.Directory == nil {
		panic("callflow: store, resolver, extractor, and directory are required")
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.Default()
	}
	if cfg.ClinicName == "" {
		cfg.ClinicName = cfg.Directory.Name
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}
	if cfg.SearchWindow <= 0 {
		cfg.SearchWindow = 7 * 24 * time.Hour
	}
	if cfg.OfferLimit <= 0 {
		cfg.OfferLimit = 3
	}
	return &Engine{
		store:      cfg.Store,
		resolver:   cfg.Resolver,
		extractor:  cfg.Extractor,
		dir:        cfg.Directory,
		metrics:    cfg.Metrics,
		logger:     cfg.Logger,
		clinicName: cfg.ClinicName,
		maxRetries: cfg.MaxRetries,
		window:     cfg.SearchWindow,
		offerLimit: cfg.OfferLimit,
		now:        time.Now,
	}
}

// HandleTurn processes one caller turn and returns the agent's reply.
func (e *Engine) HandleTurn(ctx context.Context, turn Turn) (TurnResult, error) {
	ctx, span := callflowTracer.Start(ctx, "engine.handle_turn")
	defer span.End()
	started := e.now()

	if turn.CallID == "" {
		return TurnResult{}, ErrMissingCallID
	}
	log := e.logger.WithCall(turn.CallID)

	cs, err := e.store.Get(ctx, turn.CallID)
	if err != nil {
		return TurnResult{}, fmt.Errorf("callflow: load call state: %w", err)
	}
	if cs == nil {
		cs = NewCallState(turn.CallID, e.now())
	}
	cs.LastActivityAt = e.now()

	if turn.IsCallEnd {
		if err := e.store.End(ctx, turn.CallID); err != nil {
			log.Warn("failed to end call state", "error", err)
		}
		return TurnResult{Prompt: goodbyePrompt(), State: cs.State, ShouldEndCall: true}, nil
	}

	prompt := e.advance(ctx, cs, turn, log)

	cs.Record("caller", turn.Utterance, e.now())
	cs.Record("agent", prompt, e.now())

	e.metrics.ObserveTurn(string(cs.State), string(cs.Intent))
	e.metrics.ObserveTurnLatency(string(cs.State), e.now().Sub(started).Seconds())

	result := TurnResult{Prompt: prompt, State: cs.State}
	if cs.State.Terminal() {
		result.ShouldEndCall = true
		if err := e.store.End(ctx, turn.CallID); err != nil {
			log.Warn("failed to end call state", "error", err)
		}
		return result, nil
	}
	if err := e.store.Save(ctx, cs); err != nil {
		if errors.Is(err, ErrCallEnded) {
			// The call-end event won the race; drop this turn's result.
			log.Debug("discarding turn for ended call")
			result.ShouldEndCall = true
			return result, nil
		}
		return TurnResult{}, fmt.Errorf("callflow: save call state: %w", err)
	}
	return result, nil
}

// advance runs one step of the state machine and returns the agent prompt.
func (e *Engine) advance(ctx context.Context, cs *CallState, turn Turn, log *logging.Logger) string {
	if turn.IsCallStart || cs.State == StateGreeting {
		cs.To(StateCollectingIntent)
		if turn.Utterance == "" {
			return greetingPrompt(e.clinicName)
		}
		// Caller spoke over the greeting; treat it as the first real turn.
	}

	if wantsStartOver(turn.Utterance) {
		cs.Reset()
		return startOverPrompt()
	}

	ext := e.extractor.Extract(ctx, turn.Utterance, nlu.ContextSummary{
		State:  string(cs.State),
		Intent: cs.Intent,
		Known:  cs.Entities,
		Today:  e.now(),
	})
	e.metrics.ObserveExtraction(ext.Source)
	cs.Entities.Clear(ext.Corrections)
	cs.Entities.Merge(ext.Entities)
	log.Debug("turn extracted",
		"state", cs.State, "intent", ext.Intent, "source", ext.Source, "confidence", ext.Confidence)

	switch cs.State {
	case StateCollectingIntent:
		return e.handleCollectingIntent(ctx, cs, turn, ext, log)
	case StateCollectingService:
		return e.handleCollectingService(ctx, cs, ext, log)
	case StateCollectingLocation:
		return e.handleCollectingLocation(ctx, cs, ext, log)
	case StateCollectingTime, StateCollectingNewTime:
		return e.handleCollectingTime(ctx, cs, turn, ext, log)
	case StateCollectingAppointmentRef:
		return e.handleCollectingAppointmentRef(ctx, cs, turn, log)
	case StateConfirming:
		return e.handleConfirming(ctx, cs, turn, ext, log)
	default:
		// Terminal states never reach here; treat anything else as a fresh
		// intent collection.
		cs.To(StateCollectingIntent)
		return e.handleCollectingIntent(ctx, cs, turn, ext, log)
	}
}

func (e *Engine) handleCollectingIntent(ctx context.Context, cs *CallState, turn Turn, ext nlu.Extraction, log *logging.Logger) string {
	switch ext.Intent {
	case nlu.IntentSchedule:
		cs.Intent = nlu.IntentSchedule
		return e.nextScheduleStep(ctx, cs, log)
	case nlu.IntentReschedule, nlu.IntentCancel:
		cs.Intent = ext.Intent
		cs.To(StateCollectingAppointmentRef)
		if cs.Entities.PatientName != "" {
			return e.handleCollectingAppointmentRef(ctx, cs, turn, log)
		}
		return askNameForLookupPrompt()
	case nlu.IntentInquiry:
		// Answered in place; the call stays in intent collection.
		return inquiryPrompt(e.dir)
	default:
		return e.retryOrFail(cs, intentReprompt())
	}
}

// nextScheduleStep routes the schedule flow to the first unfilled slot.
func (e *Engine) nextScheduleStep(ctx context.Context, cs *CallState, log *logging.Logger) string {
	if cs.Entities.Service == "" {
		cs.To(StateCollectingService)
		return servicePrompt()
	}
	if cs.Entities.LocationID == "" {
		if loc, ok := e.onlyLocationFor(cs.Entities.Service); ok {
			cs.Entities.LocationID = loc
		} else {
			cs.To(StateCollectingLocation)
			return locationPrompt(e.dir)
		}
	}
	if len(e.dir.DoctorsFor(cs.Entities.Service, cs.Entities.LocationID)) == 0 {
		loc := cs.Entities.LocationID
		cs.Entities.LocationID = ""
		cs.To(StateCollectingLocation)
		e.logger.Debug("service not offered at location", "service", cs.Entities.Service, "location", loc)
		return comboNotOfferedPrompt(cs.Entities.Service, e.dir)
	}
	cs.To(StateCollectingTime)
	if !cs.Entities.Date.IsZero() || cs.Entities.TimeOfDay != "" {
		return e.offerSlots(ctx, cs, log)
	}
	return timePrompt()
}

// onlyLocationFor returns the single location offering a service, if exactly
// one does.
func (e *Engine) onlyLocationFor(service clinic.ServiceType) (string, bool) {
	var found string
	for _, loc := range e.dir.Locations {
		if len(e.dir.DoctorsFor(service, loc.ID)) > 0 {
			if found != "" {
				return "", false
			}
			found = loc.ID
		}
	}
	return found, found != ""
}

func (e *Engine) handleCollectingService(ctx context.Context, cs *CallState, ext nlu.Extraction, log *logging.Logger) string {
	if cs.Entities.Service == "" {
		return e.retryOrFail(cs, serviceReprompt())
	}
	return e.nextScheduleStep(ctx, cs, log)
}

func (e *Engine) handleCollectingLocation(ctx context.Context, cs *CallState, ext nlu.Extraction, log *logging.Logger) string {
	if cs.Entities.LocationID == "" {
		return e.retryOrFail(cs, locationReprompt(e.dir))
	}
	return e.nextScheduleStep(ctx, cs, log)
}

func (e *Engine) handleCollectingTime(ctx context.Context, cs *CallState, _ Turn, _ nlu.Extraction, log *logging.Logger) string {
	if cs.Entities.Date.IsZero() && cs.Entities.TimeOfDay == "" {
		return e.retryOrFail(cs, timePrompt())
	}
	return e.offerSlots(ctx, cs, log)
}

// offerSlots searches availability for the caller's constraints, reads back
// the first few matches with the earliest pre-selected, and moves the call to
// confirmation.
func (e *Engine) offerSlots(ctx context.Context, cs *CallState, log *logging.Logger) string {
	now := e.now()
	from, to := now, now.Add(e.window)
	if !cs.Entities.Date.IsZero() {
		from = cs.Entities.Date
		if from.Before(now) {
			from = now
		}
		to = cs.Entities.Date.AddDate(0, 0, 1)
	}

	service, locationID := cs.Entities.Service, cs.Entities.LocationID
	if cs.Intent == nlu.IntentReschedule && cs.AppointmentID != "" {
		// Reschedules keep the original service and location.
		if appt, err := e.resolver.Appointment(cs.AppointmentID); err == nil {
			service, locationID = appt.Service, appt.LocationID
		}
	}

	slots, err := e.resolver.FindSlots(ctx, service, locationID, cs.Entities.DoctorID, from, to)
	if err != nil {
		if errors.Is(err, scheduling.ErrInvalidInput) {
			cs.Entities.LocationID = ""
			cs.To(StateCollectingLocation)
			return comboNotOfferedPrompt(service, e.dir)
		}
		log.Error("slot search failed", "error", err)
		return e.retryOrFail(cs, noSlotsPrompt())
	}

	if cs.Entities.TimeOfDay != "" {
		slots = filterByTimeOfDay(slots, cs.Entities.TimeOfDay)
	}
	if len(slots) == 0 {
		cs.OfferedSlots = nil
		cs.Entities.Clear([]string{"date", "time_of_day"})
		return e.retryOrFail(cs, noSlotsPrompt())
	}
	if len(slots) > e.offerLimit {
		slots = slots[:e.offerLimit]
	}
	first := slots[0]
	cs.OfferedSlots = slots
	cs.SelectedSlot = &first
	cs.Retries = 0
	cs.To(StateConfirming)
	return offerPrompt(slots)
}

func filterByTimeOfDay(slots []scheduling.Slot, pref nlu.TimeOfDay) []scheduling.Slot {
	from, to := pref.Window()
	out := slots[:0:0]
	for _, s := range slots {
		minutes := s.Start.Hour()*60 + s.Start.Minute()
		if minutes >= from && minutes < to {
			out = append(out, s)
		}
	}
	return out
}

func (e *Engine) confirmPrompt(cs *CallState) string {
	s := cs.SelectedSlot
	locName := s.LocationID
	if loc, ok := e.dir.LocationByID(s.LocationID); ok {
		locName = loc.Name
	}
	forWhom := ""
	if cs.Intent == nlu.IntentSchedule && cs.Entities.PatientName != "" {
		forWhom = " for " + cs.Entities.PatientName
	}
	return fmt.Sprintf("Just to confirm: a %s appointment%s with %s on %s at %s at our %s location. Shall I book it?",
		s.Service, forWhom, s.DoctorName, speakDate(s.Start), speakTime(s.Start), locName)
}

func (e *Engine) handleCollectingAppointmentRef(ctx context.Context, cs *CallState, turn Turn, log *logging.Logger) string {
	name := cs.Entities.PatientName
	if name == "" {
		if candidate, ok := plausibleName(turn.Utterance); ok {
			name = candidate
			cs.Entities.PatientName = candidate
		}
	}
	if name == "" {
		return e.retryOrFail(cs, askNameForLookupPrompt())
	}

	appts := e.resolver.FindByPatient(ctx, name, "")
	var target *scheduling.Appointment
	now := e.now()
	for i := range appts {
		if appts[i].Status == scheduling.StatusScheduled && appts[i].Start.After(now) {
			target = &appts[i]
			break
		}
	}
	if target == nil {
		cs.Entities.PatientName = ""
		return e.retryOrFail(cs, noAppointmentPrompt(name))
	}

	cs.AppointmentID = target.ID
	if cs.Intent == nlu.IntentCancel {
		cs.To(StateConfirming)
		locName := target.LocationID
		if loc, ok := e.dir.LocationByID(target.LocationID); ok {
			locName = loc.Name
		}
		return confirmCancelPrompt(*target, locName)
	}
	cs.Entities.Service = target.Service
	cs.Entities.LocationID = target.LocationID
	cs.To(StateCollectingNewTime)
	return askNewTimePrompt(*target)
}

func (e *Engine) handleConfirming(ctx context.Context, cs *CallState, turn Turn, ext nlu.Extraction, log *logging.Logger) string {
	// A numbered reply re-pins the selection from the last offer.
	if len(cs.OfferedSlots) > 0 {
		if idx, ok := parseSlotChoice(turn.Utterance, len(cs.OfferedSlots)); ok {
			slot := cs.OfferedSlots[idx]
			cs.SelectedSlot = &slot
			if cs.Intent == nlu.IntentSchedule && cs.Entities.PatientName == "" {
				return askNamePrompt()
			}
			return e.confirmPrompt(cs)
		}
	}

	// The caller asked for a different day or window instead of answering.
	if cs.Intent != nlu.IntentCancel && (!ext.Entities.Date.IsZero() || ext.Entities.TimeOfDay != "") {
		cs.SelectedSlot = nil
		cs.OfferedSlots = nil
		if cs.Intent == nlu.IntentReschedule {
			cs.To(StateCollectingNewTime)
		} else {
			cs.To(StateCollectingTime)
		}
		return e.offerSlots(ctx, cs, log)
	}

	if isNegative(turn.Utterance) {
		switch cs.Intent {
		case nlu.IntentCancel:
			cs.Reset()
			return keepAppointmentPrompt()
		default:
			cs.SelectedSlot = nil
			cs.OfferedSlots = nil
			cs.Entities.Clear([]string{"date", "time_of_day"})
			if cs.Intent == nlu.IntentReschedule {
				cs.To(StateCollectingNewTime)
			} else {
				cs.To(StateCollectingTime)
			}
			return timePrompt()
		}
	}

	// Bookings need a name on file before the final read-back.
	if cs.Intent == nlu.IntentSchedule && cs.Entities.PatientName == "" {
		if candidate, ok := plausibleName(turn.Utterance); ok {
			cs.Entities.PatientName = candidate
			return e.confirmPrompt(cs)
		}
		if isAffirmative(turn.Utterance) {
			return askNamePrompt()
		}
		return e.retryOrFail(cs, askNamePrompt())
	}
	if cs.Intent == nlu.IntentSchedule && ext.Entities.PatientName != "" && !isAffirmative(turn.Utterance) {
		// The caller just gave their name; read the confirmation back.
		return e.confirmPrompt(cs)
	}

	if !isAffirmative(turn.Utterance) {
		if len(cs.OfferedSlots) > 1 {
			return e.retryOrFail(cs, chooseSlotReprompt(len(cs.OfferedSlots)))
		}
		return e.retryOrFail(cs, "Sorry, was that a yes or a no?")
	}

	switch cs.Intent {
	case nlu.IntentCancel:
		if err := e.resolver.Cancel(ctx, cs.AppointmentID); err != nil {
			log.Error("cancel failed", "appointment_id", cs.AppointmentID, "error", err)
			e.metrics.ObserveBooking("failed")
			cs.To(StateFailed)
			return handoffPrompt()
		}
		e.metrics.ObserveBooking("cancelled")
		cs.To(StateCancelled)
		return cancelledPrompt()

	case nlu.IntentReschedule:
		appt, err := e.resolver.Reschedule(ctx, cs.AppointmentID, *cs.SelectedSlot)
		if err != nil {
			return e.handleBookingError(cs, err, log)
		}
		e.metrics.ObserveBooking("rescheduled")
		cs.To(StateRescheduled)
		return rescheduledPrompt(*appt, cs.SelectedSlot.DoctorName)

	default:
		appt, err := e.resolver.Book(ctx, *cs.SelectedSlot, scheduling.Patient{Name: cs.Entities.PatientName})
		if err != nil {
			return e.handleBookingError(cs, err, log)
		}
		e.metrics.ObserveBooking("booked")
		cs.To(StateBooked)
		locName := appt.LocationID
		if loc, ok := e.dir.LocationByID(appt.LocationID); ok {
			locName = loc.Name
		}
		return bookedPrompt(*appt, cs.SelectedSlot.DoctorName, locName)
	}
}

// handleBookingError maps resolver failures back into the dialogue.
func (e *Engine) handleBookingError(cs *CallState, err error, log *logging.Logger) string {
	switch {
	case errors.Is(err, scheduling.ErrSlotUnavailable):
		// Lost the race for the slot; offer alternatives.
		e.metrics.ObserveBooking("conflict")
		cs.SelectedSlot = nil
		cs.OfferedSlots = nil
		if cs.Intent == nlu.IntentReschedule {
			cs.To(StateCollectingNewTime)
		} else {
			cs.To(StateCollectingTime)
		}
		return slotTakenPrompt()
	case errors.Is(err, scheduling.ErrAppointmentNotFound):
		cs.AppointmentID = ""
		cs.Entities.PatientName = ""
		cs.To(StateCollectingAppointmentRef)
		return askNameForLookupPrompt()
	default:
		log.Error("booking failed", "error", err)
		e.metrics.ObserveBooking("failed")
		cs.To(StateFailed)
		return handoffPrompt()
	}
}

// retryOrFail spends one unit of the per-state retry budget, handing the call
// off once it is exhausted.
func (e *Engine) retryOrFail(cs *CallState, reprompt string) string {
	cs.Retries++
	if cs.Retries >= e.maxRetries {
		cs.To(StateFailed)
		return handoffPrompt()
	}
	return reprompt
}
