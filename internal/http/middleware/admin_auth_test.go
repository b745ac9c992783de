package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func staffToken(t *testing.T, secret, role, locationID string, expiresIn time.Duration) string {
	t.Helper()
	claims := StaffClaims{
		Role:       role,
		LocationID: locationID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "staff-1",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(expiresIn)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return signed
}

func serveStaffAuth(t *testing.T, token string, roles ...string) (*httptest.ResponseRecorder, *StaffClaims) {
	t.Helper()
	var got *StaffClaims
	handler := StaffAuth("secret", roles...)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if claims, ok := StaffFromContext(r.Context()); ok {
			got = &claims
		}
		w.WriteHeader(http.StatusOK)
	}))
	req := httptest.NewRequest(http.MethodGet, "/admin/appointments", nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec, got
}

func TestStaffAuthRejectsWithoutToken(t *testing.T) {
	rec, _ := serveStaffAuth(t, "")
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusUnauthorized)
	}
}

func TestStaffAuthRejectsBadSignature(t *testing.T) {
	forged := staffToken(t, "not-the-secret", "admin", "", time.Minute)
	rec, _ := serveStaffAuth(t, forged)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusUnauthorized)
	}
}

func TestStaffAuthRejectsExpiredToken(t *testing.T) {
	expired := staffToken(t, "secret", "admin", "", -time.Minute)
	rec, _ := serveStaffAuth(t, expired)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusUnauthorized)
	}
}

func TestStaffAuthRejectsWrongRole(t *testing.T) {
	token := staffToken(t, "secret", "billing", "", time.Minute)
	rec, _ := serveStaffAuth(t, token, "admin", "front_desk")
	if rec.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusForbidden)
	}
}

func TestStaffAuthPassesClaimsThrough(t *testing.T) {
	token := staffToken(t, "secret", "front_desk", "highland_park", time.Minute)
	rec, claims := serveStaffAuth(t, token, "admin", "front_desk")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	if claims == nil {
		t.Fatal("staff claims missing from context")
	}
	if claims.Role != "front_desk" || claims.LocationID != "highland_park" {
		t.Errorf("claims = %+v", claims)
	}
}

func TestStaffAuthDisabledWithoutSecret(t *testing.T) {
	handler := StaffAuth("")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	req := httptest.NewRequest(http.MethodGet, "/admin/appointments", nil)
	req.Header.Set("Authorization", "Bearer "+staffToken(t, "secret", "admin", "", time.Minute))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusUnauthorized)
	}
}
