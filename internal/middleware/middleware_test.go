package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"eeg-data-sharing/internal/platform/logger"
	"eeg-data-sharing/internal/ports/auth"

	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/stretchr/testify/assert"
)

func TestAuthContext_DevHeaders(t *testing.T) {
	var got auth.Claims
	h := AuthContext(nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, _ = GetClaims(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Debug-User-ID", "u-1")
	req.Header.Set("X-Debug-Role", "department_head")
	req.Header.Set("X-Debug-Department", "neuro")
	h.ServeHTTP(httptest.NewRecorder(), req)

	assert.Equal(t, auth.Claims{UserID: "u-1", Role: auth.RoleDepartmentHead, Department: "neuro"}, got)
}

func TestAuthContext_BearerToken(t *testing.T) {
	verifier := auth.VerifierFunc(func(_ context.Context, token string) (auth.Claims, error) {
		if token != "good" {
			return auth.Claims{}, errors.New("bad token")
		}
		return auth.Claims{UserID: "u-7", Role: auth.RoleAdmin}, nil
	})

	cases := []struct {
		name    string
		header  string
		wantID  string
		wantSet bool
	}{
		{"válido", "Bearer good", "u-7", true},
		{"esquema en minúsculas", "bearer good", "u-7", true},
		{"token inválido", "Bearer bad", "", false},
		{"sin header", "", "", false},
		{"otro esquema", "Basic good", "", false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var (
				got auth.Claims
				set bool
			)
			h := AuthContext(verifier)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				got, set = GetClaims(r.Context())
			}))

			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			// con verifier los headers de debug se ignoran
			req.Header.Set("X-Debug-User-ID", "intruder")
			h.ServeHTTP(httptest.NewRecorder(), req)

			assert.Equal(t, tc.wantSet, set)
			assert.Equal(t, tc.wantID, got.UserID)
		})
	}
}

func TestRequireRole(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusNoContent) })
	h := AuthContext(nil)(RequireRole(auth.RoleAdmin)(ok))

	cases := []struct {
		name   string
		userID string
		role   string
		want   int
	}{
		{"sin claims", "", "", http.StatusUnauthorized},
		{"user", "u-1", "user", http.StatusForbidden},
		{"admin", "a-1", "admin", http.StatusNoContent},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/", nil)
			if tc.userID != "" {
				req.Header.Set("X-Debug-User-ID", tc.userID)
				req.Header.Set("X-Debug-Role", tc.role)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			assert.Equal(t, tc.want, rec.Code)
		})
	}
}

type captureLogger struct {
	logger.Logger
	debug []map[string]any
}

func (l *captureLogger) Debug(_ string, fields map[string]any) { l.debug = append(l.debug, fields) }

func TestRequestLog_IncludesUserAfterAuthContext(t *testing.T) {
	log := &captureLogger{Logger: logger.NewNop()}
	ok := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusAccepted) })
	h := chimw.RequestID(AuthContext(nil)(RequestLog(log)(ok)))

	req := httptest.NewRequest(http.MethodGet, "/records", nil)
	req.Header.Set("X-Debug-User-ID", "u-5")
	h.ServeHTTP(httptest.NewRecorder(), req)

	if assert.Len(t, log.debug, 1) {
		assert.Equal(t, "u-5", log.debug[0]["user_id"])
		assert.Equal(t, http.StatusAccepted, log.debug[0]["status"])
		assert.NotEmpty(t, log.debug[0]["request_id"])
	}
}

func TestRecover_Returns500(t *testing.T) {
	h := Recover(logger.NewNop())(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}
