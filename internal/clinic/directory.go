package clinic

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"
)

// Directory is the immutable clinic dataset handed to the core at startup.
type Directory struct {
	Name      string     `json:"name"`
	Locations []Location `json:"locations"`
	Doctors   []Doctor   `json:"doctors"`
}

// Load reads a directory from a JSON file and validates it.
func Load(path string) (*Directory, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("clinic: read %s: %w", path, err)
	}
	var dir Directory
	if err := json.Unmarshal(data, &dir); err != nil {
		return nil, fmt.Errorf("clinic: parse %s: %w", path, err)
	}
	if err := dir.Validate(); err != nil {
		return nil, err
	}
	return &dir, nil
}

// Validate checks internal consistency: location references resolve and
// every availability interval parses.
func (d *Directory) Validate() error {
	if len(d.Locations) == 0 {
		return fmt.Errorf("clinic: no locations configured")
	}
	if len(d.Doctors) == 0 {
		return fmt.Errorf("clinic: no doctors configured")
	}
	locs := make(map[string]bool, len(d.Locations))
	for _, loc := range d.Locations {
		if loc.ID == "" || loc.Name == "" {
			return fmt.Errorf("clinic: location missing id or name")
		}
		locs[loc.ID] = true
	}
	for _, doc := range d.Doctors {
		if doc.ID == "" || doc.Name == "" {
			return fmt.Errorf("clinic: doctor missing id or name")
		}
		if len(doc.Services) == 0 {
			return fmt.Errorf("clinic: doctor %s has no services", doc.ID)
		}
		for _, locID := range doc.Locations {
			if !locs[locID] {
				return fmt.Errorf("clinic: doctor %s references unknown location %q", doc.ID, locID)
			}
		}
		for day, ivs := range doc.Week {
			if !validDay(day) {
				return fmt.Errorf("clinic: doctor %s has unknown day %q", doc.ID, day)
			}
			for _, iv := range ivs {
				if _, _, err := iv.Clock(); err != nil {
					return fmt.Errorf("clinic: doctor %s: %w", doc.ID, err)
				}
			}
		}
	}
	return nil
}

func validDay(day string) bool {
	for d := time.Sunday; d <= time.Saturday; d++ {
		if strings.ToLower(d.String()) == day {
			return true
		}
	}
	return false
}

// LocationByID looks up a location by its identifier.
func (d *Directory) LocationByID(id string) (Location, bool) {
	for _, loc := range d.Locations {
		if loc.ID == id {
			return loc, true
		}
	}
	return Location{}, false
}

// LocationByName matches a spoken location name, case-insensitively.
func (d *Directory) LocationByName(name string) (Location, bool) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return Location{}, false
	}
	for _, loc := range d.Locations {
		if strings.ToLower(loc.Name) == name || loc.ID == name {
			return loc, true
		}
	}
	return Location{}, false
}

// DoctorByID looks up a doctor by identifier.
func (d *Directory) DoctorByID(id string) (Doctor, bool) {
	for _, doc := range d.Doctors {
		if doc.ID == id {
			return doc, true
		}
	}
	return Doctor{}, false
}

// DoctorByName matches a (possibly partial) spoken doctor name, e.g. "Vuong"
// or "dr. vuong" against "Dr. Minh Vuong".
func (d *Directory) DoctorByName(name string) (Doctor, bool) {
	name = strings.ToLower(strings.TrimSpace(name))
	name = strings.TrimPrefix(name, "dr. ")
	name = strings.TrimPrefix(name, "dr ")
	name = strings.TrimPrefix(name, "doctor ")
	if name == "" {
		return Doctor{}, false
	}
	for _, doc := range d.Doctors {
		if strings.Contains(strings.ToLower(doc.Name), name) {
			return doc, true
		}
	}
	return Doctor{}, false
}

// DoctorsFor returns the doctors qualified for a service at a location,
// in directory order.
func (d *Directory) DoctorsFor(service ServiceType, locationID string) []Doctor {
	var out []Doctor
	for _, doc := range d.Doctors {
		if doc.Performs(service) && doc.WorksAt(locationID) {
			out = append(out, doc)
		}
	}
	return out
}

// weekdayTemplate is the default 9-to-5, Monday-through-Friday week.
func weekdayTemplate() map[string][]Interval {
	week := make(map[string][]Interval, 5)
	for _, day := range []string{"monday", "tuesday", "wednesday", "thursday", "friday"} {
		week[day] = []Interval{{Open: "09:00", Close: "17:00"}}
	}
	return week
}

// Default returns the built-in two-site directory used when no data file is
// configured.
func Default() *Directory {
	return &Directory{
		Name: "North Shore Wellness Clinic",
		Locations: []Location{
			{ID: "highland_park", Name: "Highland Park", Address: "1775 St Johns Ave, Highland Park, IL"},
			{ID: "arlington_heights", Name: "Arlington Heights", Address: "120 W Campbell St, Arlington Heights, IL"},
		},
		Doctors: []Doctor{
			{
				ID:        "dr_vuong",
				Name:      "Dr. Minh Vuong",
				Services:  []ServiceType{ServiceChiropractic, ServiceConsultation},
				Locations: []string{"highland_park", "arlington_heights"},
				Week:      weekdayTemplate(),
			},
			{
				ID:        "dr_ye",
				Name:      "Dr. Lian Ye",
				Services:  []ServiceType{ServiceAcupuncture, ServiceConsultation},
				Locations: []string{"highland_park"},
				Week:      weekdayTemplate(),
			},
			{
				ID:        "dr_li",
				Name:      "Dr. Ana Li",
				Services:  []ServiceType{ServiceMassage, ServiceChiropractic},
				Locations: []string{"arlington_heights"},
				Week:      weekdayTemplate(),
			},
		},
	}
}
