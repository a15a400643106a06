package middleware

import (
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	id "disciplina/pkg/domain"
	"disciplina/pkg/requestcontext"
)

// ActorValidator validates a bearer token and returns the actor it belongs to.
// Token issuance is handled by the upstream identity service; this process
// only verifies.
type ActorValidator interface {
	ValidateToken(tokenString string) (id.EmployeeID, error)
}

// JWTValidator verifies HS256 tokens whose subject claim carries the actor's
// employee UUID.
type JWTValidator struct {
	signingKey []byte
}

func NewJWTValidator(signingKey string) *JWTValidator {
	return &JWTValidator{signingKey: []byte(signingKey)}
}

func (v *JWTValidator) ValidateToken(tokenString string) (id.EmployeeID, error) {
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return v.signingKey, nil
	})
	if err != nil {
		return id.EmployeeID{}, fmt.Errorf("parse token: %w", err)
	}
	if !token.Valid {
		return id.EmployeeID{}, fmt.Errorf("token is not valid")
	}
	sub, err := token.Claims.GetSubject()
	if err != nil {
		return id.EmployeeID{}, fmt.Errorf("token subject: %w", err)
	}
	actorID, err := id.ParseEmployeeID(sub)
	if err != nil {
		return id.EmployeeID{}, fmt.Errorf("token subject is not an employee ID: %w", err)
	}
	return actorID, nil
}

func writeJSONError(w http.ResponseWriter, status int, errCode, errDesc string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(fmt.Appendf(nil, `{"error":%q,"error_description":%q}`, errCode, errDesc))
}

// RequireAuth authenticates the request via bearer token and injects the
// actor employee ID into the context. Every engine call downstream reads the
// actor from context; there is no ambient "current user".
func RequireAuth(validator ActorValidator, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			token, ok := strings.CutPrefix(authHeader, "Bearer ")
			if !ok || token == "" {
				writeJSONError(w, http.StatusUnauthorized, "unauthorized", "missing bearer token")
				return
			}
			actorID, err := validator.ValidateToken(token)
			if err != nil {
				logger.WarnContext(r.Context(), "unauthorized access - invalid token",
					"error", err,
					"request_id", GetRequestID(r.Context()),
				)
				writeJSONError(w, http.StatusUnauthorized, "unauthorized", "invalid bearer token")
				return
			}
			ctx := requestcontext.WithActorID(r.Context(), actorID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireSchedulerKey authenticates the deadline-sweep scheduler via a
// pre-shared API key compared against its bcrypt hash. An empty hash
// disables the route entirely rather than leaving it open.
func RequireSchedulerKey(keyHash string, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if keyHash == "" {
				writeJSONError(w, http.StatusForbidden, "forbidden", "scheduler access is not configured")
				return
			}
			key := r.Header.Get("X-Scheduler-Key")
			if key == "" {
				writeJSONError(w, http.StatusUnauthorized, "unauthorized", "missing scheduler key")
				return
			}
			if err := bcrypt.CompareHashAndPassword([]byte(keyHash), []byte(key)); err != nil {
				logger.WarnContext(r.Context(), "unauthorized scheduler access",
					"request_id", GetRequestID(r.Context()),
				)
				writeJSONError(w, http.StatusUnauthorized, "unauthorized", "invalid scheduler key")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
