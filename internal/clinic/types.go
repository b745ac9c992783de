// Package clinic holds the static clinic directory: services, locations,
// doctors and their weekly availability templates. The directory is loaded
// once at startup and treated as read-only afterwards.
package clinic

import (
	"fmt"
	"strings"
	"time"
)

// ServiceType identifies one of the services the clinic offers.
type ServiceType string

const (
	ServiceChiropractic ServiceType = "chiropractic"
	ServiceAcupuncture  ServiceType = "acupuncture"
	ServiceMassage      ServiceType = "massage"
	ServiceConsultation ServiceType = "consultation"
)

// ServiceTypes lists every offered service in a stable order.
func ServiceTypes() []ServiceType {
	return []ServiceType{ServiceChiropractic, ServiceAcupuncture, ServiceMassage, ServiceConsultation}
}

// Duration returns the standard appointment length for the service.
func (s ServiceType) Duration() time.Duration {
	if s == ServiceConsultation {
		return 30 * time.Minute
	}
	return 60 * time.Minute
}

// ParseServiceType maps a string to a known service type.
func ParseServiceType(raw string) (ServiceType, bool) {
	raw = strings.ToLower(strings.TrimSpace(raw))
	for _, s := range ServiceTypes() {
		if raw == string(s) {
			return s, true
		}
	}
	return "", false
}

// Location is a clinic site.
type Location struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Address string `json:"address"`
}

// Interval is an open period within a working day, in "HH:MM" clock time.
type Interval struct {
	Open  string `json:"open"`
	Close string `json:"close"`
}

// Clock returns the interval bounds as minutes past midnight.
func (iv Interval) Clock() (open, close int, err error) {
	open, err = parseClock(iv.Open)
	if err != nil {
		return 0, 0, fmt.Errorf("clinic: bad open time %q: %w", iv.Open, err)
	}
	close, err = parseClock(iv.Close)
	if err != nil {
		return 0, 0, fmt.Errorf("clinic: bad close time %q: %w", iv.Close, err)
	}
	if close <= open {
		return 0, 0, fmt.Errorf("clinic: interval %s-%s closes before it opens", iv.Open, iv.Close)
	}
	return open, close, nil
}

func parseClock(s string) (int, error) {
	t, err := time.Parse("15:04", strings.TrimSpace(s))
	if err != nil {
		return 0, err
	}
	return t.Hour()*60 + t.Minute(), nil
}

// Doctor is a practitioner with a fixed weekly availability template.
type Doctor struct {
	ID        string        `json:"id"`
	Name      string        `json:"name"`
	Services  []ServiceType `json:"services"`
	Locations []string      `json:"locations"`
	// Week maps lowercase day names ("monday"…) to open intervals.
	Week map[string][]Interval `json:"week"`
}

// Performs reports whether the doctor offers the given service.
func (d Doctor) Performs(s ServiceType) bool {
	for _, svc := range d.Services {
		if svc == s {
			return true
		}
	}
	return false
}

// WorksAt reports whether the doctor sees patients at the given location.
func (d Doctor) WorksAt(locationID string) bool {
	for _, loc := range d.Locations {
		if loc == locationID {
			return true
		}
	}
	return false
}

// IntervalsOn returns the doctor's open intervals for a weekday.
func (d Doctor) IntervalsOn(day time.Weekday) []Interval {
	return d.Week[strings.ToLower(day.String())]
}
