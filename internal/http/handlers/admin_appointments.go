package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/wolfman30/clinic-voice-agent/internal/clinic"
	"github.com/wolfman30/clinic-voice-agent/internal/http/middleware"
	"github.com/wolfman30/clinic-voice-agent/internal/scheduling"
	"github.com/wolfman30/clinic-voice-agent/pkg/logging"
)

// AdminAppointmentsHandler exposes the appointment book to staff.
type AdminAppointmentsHandler struct {
	resolver *scheduling.Resolver
	dir      *clinic.Directory
	logger   *logging.Logger
}

// NewAdminAppointmentsHandler creates an admin appointments handler.
func NewAdminAppointmentsHandler(resolver *scheduling.Resolver, dir *clinic.Directory, logger *logging.Logger) *AdminAppointmentsHandler {
	if resolver == nil || dir == nil {
		panic("handlers: resolver and directory cannot be nil")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &AdminAppointmentsHandler{resolver: resolver, dir: dir, logger: logger}
}

// AppointmentItem is one appointment in list responses.
type AppointmentItem struct {
	ID          string `json:"id"`
	PatientName string `json:"patient_name"`
	Service     string `json:"service"`
	DoctorID    string `json:"doctor_id"`
	DoctorName  string `json:"doctor_name"`
	LocationID  string `json:"location_id"`
	Location    string `json:"location"`
	Start       string `json:"start"`
	End         string `json:"end"`
	Status      string `json:"status"`
}

// AppointmentsListResponse is the list payload.
type AppointmentsListResponse struct {
	Appointments []AppointmentItem `json:"appointments"`
	Total        int               `json:"total"`
}

// List handles GET /admin/appointments. The optional status query parameter
// filters by appointment status; a location-scoped staff token only sees its
// own site's book.
func (h *AdminAppointmentsHandler) List(w http.ResponseWriter, r *http.Request) {
	statusFilter := r.URL.Query().Get("status")
	locationFilter := ""
	if claims, ok := middleware.StaffFromContext(r.Context()); ok {
		locationFilter = claims.LocationID
	}

	appts := h.resolver.Appointments()
	items := make([]AppointmentItem, 0, len(appts))
	for _, appt := range appts {
		if statusFilter != "" && string(appt.Status) != statusFilter {
			continue
		}
		if locationFilter != "" && appt.LocationID != locationFilter {
			continue
		}
		items = append(items, h.toItem(appt))
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(AppointmentsListResponse{
		Appointments: items,
		Total:        len(items),
	}); err != nil {
		h.logger.Error("failed to encode appointments response", "error", err)
	}
}

func (h *AdminAppointmentsHandler) toItem(appt scheduling.Appointment) AppointmentItem {
	item := AppointmentItem{
		ID:          appt.ID,
		PatientName: appt.Patient.Name,
		Service:     string(appt.Service),
		DoctorID:    appt.DoctorID,
		LocationID:  appt.LocationID,
		Start:       appt.Start.Format(time.RFC3339),
		End:         appt.End().Format(time.RFC3339),
		Status:      string(appt.Status),
	}
	if doc, ok := h.dir.DoctorByID(appt.DoctorID); ok {
		item.DoctorName = doc.Name
	}
	if loc, ok := h.dir.LocationByID(appt.LocationID); ok {
		item.Location = loc.Name
	}
	return item
}
