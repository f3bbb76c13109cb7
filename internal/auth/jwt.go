// Package auth verifies bearer tokens issued by the external identity
// provider and puts the caller on the request context.
package auth

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"spendlog/internal/core"
)

type ctxKey string

const userKey ctxKey = "user"

var (
	ErrMissingToken = errors.New("missing auth token")
	ErrInvalidToken = errors.New("invalid token")
	ErrMissingUser  = errors.New("token has no user id")
)

// Verifier checks HS256 tokens against a shared secret.
type Verifier struct {
	secret []byte
}

func NewVerifier(secret string) *Verifier {
	return &Verifier{secret: []byte(secret)}
}

// Verify parses the token and returns the user it names. The subject claim
// wins over user_id when both are present.
func (v *Verifier) Verify(tokenStr string) (core.User, error) {
	token, err := jwt.Parse(tokenStr, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("invalid signing method")
		}
		return v.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !token.Valid {
		return core.User{}, ErrInvalidToken
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return core.User{}, ErrInvalidToken
	}

	id, _ := claims["sub"].(string)
	if strings.TrimSpace(id) == "" {
		id, _ = claims["user_id"].(string)
	}
	if strings.TrimSpace(id) == "" {
		return core.User{}, ErrMissingUser
	}
	email, _ := claims["email"].(string)
	return core.User{ID: strings.TrimSpace(id), Email: email}, nil
}

// Middleware rejects requests without a valid bearer token with a 401 JSON body.
func (v *Verifier) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := r.Header.Get("Authorization")
		if h == "" || !strings.HasPrefix(h, "Bearer ") {
			unauthorized(w, ErrMissingToken)
			return
		}

		u, err := v.Verify(strings.TrimSpace(strings.TrimPrefix(h, "Bearer ")))
		if err != nil {
			slog.WarnContext(r.Context(), "Rejected bearer token", "error", err, "path", r.URL.Path)
			unauthorized(w, err)
			return
		}

		next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), u)))
	})
}

// WithUser stores u on ctx.
func WithUser(ctx context.Context, u core.User) context.Context {
	return context.WithValue(ctx, userKey, u)
}

// UserFromContext returns the authenticated caller.
func UserFromContext(ctx context.Context) (core.User, bool) {
	u, ok := ctx.Value(userKey).(core.User)
	return u, ok && u.ID != ""
}

func unauthorized(w http.ResponseWriter, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("WWW-Authenticate", `Bearer realm="spendlog"`)
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
}
