package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/wolfman30/clinic-voice-agent/pkg/logging"
)

func TestRequestLoggerPassesResponseThrough(t *testing.T) {
	handler := RequestLogger(logging.New("error"))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
		_, _ = w.Write([]byte("short and stout"))
	}))

	for _, path := range []string{"/webhooks/voice/turn", "/health"} {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		if rec.Code != http.StatusTeapot {
			t.Errorf("%s: status = %d, want %d", path, rec.Code, http.StatusTeapot)
		}
		if rec.Body.String() != "short and stout" {
			t.Errorf("%s: body = %q", path, rec.Body.String())
		}
	}
}
