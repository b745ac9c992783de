package router

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/wolfman30/clinic-voice-agent/internal/callflow"
	"github.com/wolfman30/clinic-voice-agent/internal/clinic"
	"github.com/wolfman30/clinic-voice-agent/internal/http/handlers"
	"github.com/wolfman30/clinic-voice-agent/internal/http/middleware"
	"github.com/wolfman30/clinic-voice-agent/internal/nlu"
	"github.com/wolfman30/clinic-voice-agent/internal/scheduling"
	"github.com/wolfman30/clinic-voice-agent/pkg/logging"
)

const testAdminSecret = "router-test-secret"

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()

	dir := clinic.Default()
	logger := logging.New("error")
	resolver := scheduling.NewResolver(dir, scheduling.NewStore(), logger)
	store := callflow.NewMemoryStore(time.Minute)
	t.Cleanup(store.Close)
	engine := callflow.NewEngine(callflow.EngineConfig{
		Store:     store,
		Resolver:  resolver,
		Extractor: nlu.NewExtractor(nil, "", dir, time.Second, logger),
		Directory: dir,
		Logger:    logger,
	})

	cfg := &Config{
		Logger:            logger,
		VoiceWebhook:      handlers.NewVoiceWebhookHandler(engine, logger),
		AdminAppointments: handlers.NewAdminAppointmentsHandler(resolver, dir, logger),
		AdminAuthSecret:   testAdminSecret,
	}
	return New(cfg)
}

func TestRouterHealthEndpoint(t *testing.T) {
	router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rr.Code)
	}
	var resp map[string]string
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode health response: %v", err)
	}
	if resp["status"] != "healthy" {
		t.Errorf("expected status 'healthy', got %q", resp["status"])
	}
}

func TestRouterVoiceTurnEndpoint(t *testing.T) {
	router := newTestRouter(t)

	body, err := json.Marshal(handlers.TurnRequest{CallID: "call-1", IsCallStart: true})
	if err != nil {
		t.Fatal(err)
	}
	req := httptest.NewRequest(http.MethodPost, "/webhooks/voice/turn", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rr.Code)
	}
	var resp handlers.TurnResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatal(err)
	}
	if resp.Prompt == "" || resp.ShouldEndCall {
		t.Errorf("unexpected turn response: %+v", resp)
	}
}

func TestRouterAdminRequiresAuth(t *testing.T) {
	router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/admin/appointments", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected status %d, got %d", http.StatusUnauthorized, rr.Code)
	}
}

func staffRouterToken(t *testing.T, role string) string {
	t.Helper()
	claims := middleware.StaffClaims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "staff",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Minute)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testAdminSecret))
	if err != nil {
		t.Fatal(err)
	}
	return token
}

func TestRouterAdminWithToken(t *testing.T) {
	router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/admin/appointments", nil)
	req.Header.Set("Authorization", "Bearer "+staffRouterToken(t, "front_desk"))
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rr.Code)
	}
	var resp handlers.AppointmentsListResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatal(err)
	}
	if resp.Total != 0 {
		t.Errorf("expected empty book, got %d", resp.Total)
	}
}

func TestRouterAdminRejectsUnknownRole(t *testing.T) {
	router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/admin/appointments", nil)
	req.Header.Set("Authorization", "Bearer "+staffRouterToken(t, "vendor"))
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusForbidden {
		t.Fatalf("expected status %d, got %d", http.StatusForbidden, rr.Code)
	}
}
