package middleware

import (
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	id "disciplina/pkg/domain"
	"disciplina/pkg/requestcontext"
)

const testSigningKey = "test-signing-key"

func signToken(t *testing.T, subject string, key string) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": subject,
		"exp": time.Now().Add(time.Hour).Unix(),
	})
	signed, err := token.SignedString([]byte(key))
	require.NoError(t, err)
	return signed
}

func authedHandler(t *testing.T, captured *id.EmployeeID) http.Handler {
	t.Helper()
	validator := NewJWTValidator(testSigningKey)
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*captured = requestcontext.ActorID(r.Context())
		w.WriteHeader(http.StatusNoContent)
	})
	return RequireAuth(validator, slog.Default())(next)
}

func TestRequireAuthValidToken(t *testing.T) {
	actor := id.NewEmployeeID()
	var captured id.EmployeeID

	req := httptest.NewRequest(http.MethodGet, "/cases", nil)
	req.Header.Set("Authorization", "Bearer "+signToken(t, actor.String(), testSigningKey))
	rec := httptest.NewRecorder()
	authedHandler(t, &captured).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, actor, captured)
}

func TestRequireAuthRejects(t *testing.T) {
	tests := []struct {
		name   string
		header string
	}{
		{"no header", ""},
		{"not bearer", "Basic abc"},
		{"empty token", "Bearer "},
		{"wrong key", "Bearer " + signToken(t, id.NewEmployeeID().String(), "other-key")},
		{"subject not an employee id", "Bearer " + signToken(t, "service-account", testSigningKey)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var captured id.EmployeeID
			req := httptest.NewRequest(http.MethodGet, "/cases", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			authedHandler(t, &captured).ServeHTTP(rec, req)

			assert.Equal(t, http.StatusUnauthorized, rec.Code)
			assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
			assert.True(t, captured.IsNil(), "handler must not run")
		})
	}
}

func TestRequireAuthRejectsUnsignedToken(t *testing.T) {
	unsigned := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{
		"sub": id.NewEmployeeID().String(),
	})
	raw, err := unsigned.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	var captured id.EmployeeID
	req := httptest.NewRequest(http.MethodGet, "/cases", nil)
	req.Header.Set("Authorization", "Bearer "+raw)
	rec := httptest.NewRecorder()
	authedHandler(t, &captured).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRequireSchedulerKey(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("sweep-key"), bcrypt.MinCost)
	require.NoError(t, err)

	var called bool
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		w.WriteHeader(http.StatusOK)
	})
	handler := RequireSchedulerKey(string(hash), slog.Default())(next)

	req := httptest.NewRequest(http.MethodGet, "/cases/rebuttal-due", nil)
	req.Header.Set("X-Scheduler-Key", "sweep-key")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, called)

	called = false
	req = httptest.NewRequest(http.MethodGet, "/cases/rebuttal-due", nil)
	req.Header.Set("X-Scheduler-Key", "wrong")
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.False(t, called)

	req = httptest.NewRequest(http.MethodGet, "/cases/rebuttal-due", nil)
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRequireSchedulerKeyUnconfigured(t *testing.T) {
	handler := RequireSchedulerKey("", slog.Default())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler must not run")
	}))

	req := httptest.NewRequest(http.MethodGet, "/cases/rebuttal-due", nil)
	req.Header.Set("X-Scheduler-Key", "anything")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}
