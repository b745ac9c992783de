package nlu

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/wolfman30/clinic-voice-agent/internal/clinic"
	"github.com/wolfman30/clinic-voice-agent/pkg/logging"
)

const extractionPrompt = `Today is %s (caller local calendar). You extract structured slots for a clinic phone agent.
Resolve relative dates ("this friday", "next tuesday") to the nearest FUTURE calendar date; if a date would be in the past, use null.

Clinic vocabulary:
- services: %s
- locations: %s
- doctors: %s

Dialogue state: %s
Already known: %s

Return STRICT JSON only (no prose), matching this schema:
{
  "intent": one of ["schedule", "reschedule", "cancel", "inquiry", "unknown"],
  "service": service name or null,
  "location": location name or null,
  "doctor": doctor name or null,
  "date": ISO date "YYYY-MM-DD" or null,
  "time_of_day": one of ["morning", "afternoon", "evening"] or null,
  "patient_name": string or null,
  "corrections": array of slot names the caller is correcting (may be empty)
}
Do not include any additional keys or commentary.`

// llmExtraction is the wire schema the model is asked to produce.
type llmExtraction struct {
	Intent      string   `json:"intent"`
	Service     string   `json:"service"`
	Location    string   `json:"location"`
	Doctor      string   `json:"doctor"`
	Date        string   `json:"date"`
	TimeOfDay   string   `json:"time_of_day"`
	PatientName string   `json:"patient_name"`
	Corrections []string `json:"corrections"`
}

// Extractor classifies utterances. The LLM path is optional; when it is
// absent, times out, errors, or returns malformed output, the keyword
// fallback answers instead. Extract never returns an error.
type Extractor struct {
	llm     LLMClient
	model   string
	dir     *clinic.Directory
	timeout time.Duration
	logger  *logging.Logger
	now     func() time.Time
}

// NewExtractor builds an extractor. A nil llm disables the primary path.
func NewExtractor(llm LLMClient, model string, dir *clinic.Directory, timeout time.Duration, logger *logging.Logger) *Extractor {
	if dir == nil {
		panic("nlu: clinic directory required")
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Extractor{
		llm:     llm,
		model:   model,
		dir:     dir,
		timeout: timeout,
		logger:  logger,
		now:     time.Now,
	}
}

// Extract runs the primary path with a bounded timeout and degrades to the
// keyword fallback on any failure.
func (e *Extractor) Extract(ctx context.Context, utterance string, summary ContextSummary) Extraction {
	now := e.now()
	if !summary.Today.IsZero() {
		now = summary.Today
	}

	if e.llm == nil {
		return keywordExtract(utterance, summary, e.dir, now)
	}

	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	resp, err := e.llm.Complete(ctx, LLMRequest{
		Model:       e.model,
		System:      []string{e.buildPrompt(summary, now)},
		Messages:    []ChatMessage{{Role: ChatRoleUser, Content: utterance}},
		MaxTokens:   300,
		Temperature: 0.1,
	})
	if err != nil {
		e.logger.Warn("llm extraction failed, using keyword fallback", "error", err)
		return keywordExtract(utterance, summary, e.dir, now)
	}

	ext, ok := e.parseResponse(resp.Text, now)
	if !ok {
		e.logger.Warn("llm extraction returned malformed output, using keyword fallback",
			"output_len", len(resp.Text),
		)
		return keywordExtract(utterance, summary, e.dir, now)
	}
	return ext
}

func (e *Extractor) buildPrompt(summary ContextSummary, now time.Time) string {
	services := make([]string, 0, len(clinic.ServiceTypes()))
	for _, s := range clinic.ServiceTypes() {
		services = append(services, string(s))
	}
	locations := make([]string, 0, len(e.dir.Locations))
	for _, loc := range e.dir.Locations {
		locations = append(locations, loc.Name)
	}
	doctors := make([]string, 0, len(e.dir.Doctors))
	for _, doc := range e.dir.Doctors {
		doctors = append(doctors, doc.Name)
	}

	known, _ := json.Marshal(summary.Known)
	state := summary.State
	if state == "" {
		state = "greeting"
	}

	return fmt.Sprintf(extractionPrompt,
		now.Format("2006-01-02"),
		strings.Join(services, ", "),
		strings.Join(locations, ", "),
		strings.Join(doctors, ", "),
		state,
		string(known),
	)
}

// parseResponse extracts the JSON object from the model output and validates
// every field against the clinic vocabulary. Unknown values are dropped, not
// errors: a partially-usable answer beats a fallback re-run.
func (e *Extractor) parseResponse(text string, now time.Time) (Extraction, bool) {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end <= start {
		return Extraction{}, false
	}

	var raw llmExtraction
	if err := json.Unmarshal([]byte(text[start:end+1]), &raw); err != nil {
		return Extraction{}, false
	}

	ext := Extraction{
		Intent:      ParseIntent(raw.Intent),
		Corrections: raw.Corrections,
		Confidence:  0.9,
		Source:      "llm",
	}

	if svc, ok := clinic.ParseServiceType(raw.Service); ok {
		ext.Entities.Service = svc
	}
	if loc, ok := e.dir.LocationByName(raw.Location); ok {
		ext.Entities.LocationID = loc.ID
	}
	if doc, ok := e.dir.DoctorByName(raw.Doctor); ok {
		ext.Entities.DoctorID = doc.ID
	}
	if raw.Date != "" {
		if date, err := time.ParseInLocation("2006-01-02", raw.Date, now.Location()); err == nil {
			today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
			if !date.Before(today) {
				ext.Entities.Date = date
			}
		}
	}
	switch TimeOfDay(raw.TimeOfDay) {
	case Morning, Afternoon, Evening:
		ext.Entities.TimeOfDay = TimeOfDay(raw.TimeOfDay)
	}
	if name := strings.TrimSpace(raw.PatientName); name != "" && strings.ToLower(name) != "null" {
		ext.Entities.PatientName = name
	}

	return ext, true
}
