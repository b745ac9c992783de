package clinic

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultValidates(t *testing.T) {
	dir := Default()
	if err := dir.Validate(); err != nil {
		t.Fatalf("Default directory invalid: %v", err)
	}
}

func TestLocationLookups(t *testing.T) {
	dir := Default()

	if _, ok := dir.LocationByID("arlington_heights"); !ok {
		t.Error("LocationByID(arlington_heights) not found")
	}
	if _, ok := dir.LocationByID("nowhere"); ok {
		t.Error("LocationByID(nowhere) unexpectedly found")
	}

	loc, ok := dir.LocationByName("Arlington Heights")
	if !ok || loc.ID != "arlington_heights" {
		t.Errorf("LocationByName = %+v, %v", loc, ok)
	}
	if _, ok := dir.LocationByName(""); ok {
		t.Error("empty name should not match")
	}
}

func TestDoctorByName(t *testing.T) {
	dir := Default()

	tests := []struct {
		name   string
		wantID string
		wantOK bool
	}{
		{"Vuong", "dr_vuong", true},
		{"dr. vuong", "dr_vuong", true},
		{"doctor ye", "dr_ye", true},
		{"Smith", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		doc, ok := dir.DoctorByName(tt.name)
		if ok != tt.wantOK || doc.ID != tt.wantID {
			t.Errorf("DoctorByName(%q) = %q, %v; want %q, %v", tt.name, doc.ID, ok, tt.wantID, tt.wantOK)
		}
	}
}

func TestDoctorsFor(t *testing.T) {
	dir := Default()

	docs := dir.DoctorsFor(ServiceChiropractic, "arlington_heights")
	if len(docs) != 2 {
		t.Fatalf("DoctorsFor(chiropractic, arlington_heights) = %d doctors, want 2", len(docs))
	}

	docs = dir.DoctorsFor(ServiceAcupuncture, "arlington_heights")
	if len(docs) != 0 {
		t.Errorf("acupuncture is not offered in arlington_heights, got %d doctors", len(docs))
	}
}

func TestIntervalClock(t *testing.T) {
	iv := Interval{Open: "09:00", Close: "17:00"}
	open, close, err := iv.Clock()
	if err != nil {
		t.Fatalf("Clock() error: %v", err)
	}
	if open != 9*60 || close != 17*60 {
		t.Errorf("Clock() = %d, %d", open, close)
	}

	if _, _, err := (Interval{Open: "17:00", Close: "09:00"}).Clock(); err == nil {
		t.Error("inverted interval should fail")
	}
	if _, _, err := (Interval{Open: "9am", Close: "5pm"}).Clock(); err == nil {
		t.Error("non HH:MM times should fail")
	}
}

func TestDoctorTemplateHelpers(t *testing.T) {
	doc, ok := Default().DoctorByID("dr_ye")
	if !ok {
		t.Fatal("dr_ye missing")
	}
	if !doc.Performs(ServiceAcupuncture) {
		t.Error("dr_ye should perform acupuncture")
	}
	if doc.Performs(ServiceMassage) {
		t.Error("dr_ye should not perform massage")
	}
	if !doc.WorksAt("highland_park") {
		t.Error("dr_ye should work at highland_park")
	}
	if len(doc.IntervalsOn(time.Monday)) != 1 {
		t.Error("dr_ye should have one Monday interval")
	}
	if len(doc.IntervalsOn(time.Sunday)) != 0 {
		t.Error("dr_ye should be off on Sunday")
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "clinic.json")
	data := `{
		"name": "Test Clinic",
		"locations": [{"id": "main", "name": "Main", "address": "1 Main St"}],
		"doctors": [{
			"id": "d1", "name": "Dr. Test",
			"services": ["massage"],
			"locations": ["main"],
			"week": {"monday": [{"open": "10:00", "close": "14:00"}]}
		}]
	}`
	if err := os.WriteFile(path, []byte(data), 0o600); err != nil {
		t.Fatal(err)
	}

	dir, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if dir.Name != "Test Clinic" || len(dir.Doctors) != 1 {
		t.Errorf("unexpected directory: %+v", dir)
	}
}

func TestLoadRejectsBadReferences(t *testing.T) {
	path := filepath.Join(t.TempDir(), "clinic.json")
	data := `{
		"name": "Broken",
		"locations": [{"id": "main", "name": "Main", "address": ""}],
		"doctors": [{
			"id": "d1", "name": "Dr. Test",
			"services": ["massage"],
			"locations": ["elsewhere"],
			"week": {}
		}]
	}`
	if err := os.WriteFile(path, []byte(data), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("Load() should reject unknown location reference")
	}
}
