package http

import (
	"errors"
	"net/http"
	"strings"

	"spendlog/internal/auth"
	"spendlog/internal/core"
	applog "spendlog/internal/log"
	"spendlog/internal/store"
)

// errBadRequest marks malformed query or body input that never reached validation.
var errBadRequest = errors.New("bad request")

var validationErrors = []error{
	core.ErrInvalidAmount,
	core.ErrEmptyDescription,
	core.ErrDescriptionTooLong,
	core.ErrInvalidPaymentMode,
	core.ErrInvalidCategory,
	core.ErrInvalidDate,
}

// statusFor maps a service error to an HTTP status and a client-safe message.
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, errBadRequest):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound, "transaction not found"
	case errors.Is(err, store.ErrConflict):
		return http.StatusConflict, "transaction was modified concurrently"
	case errors.Is(err, core.ErrEmptyUser):
		return http.StatusUnauthorized, "missing user"
	}
	for _, v := range validationErrors {
		if errors.Is(err, v) {
			return http.StatusUnprocessableEntity, err.Error()
		}
	}
	return http.StatusInternalServerError, "internal server error"
}

// respondError logs server-side failures and writes the mapped JSON error.
func (s *Server) respondError(w http.ResponseWriter, r *http.Request, op string, err error) {
	code, msg := statusFor(err)
	if code >= http.StatusInternalServerError {
		applog.NewStructuredLogger(applog.FromContext(r.Context())).
			LogFailure(r.Context(), "Request failed", op, err, applog.NewFields().WithPath(r.URL.Path))
	}
	writeError(w, code, msg)
}

// currentUser returns the authenticated caller or writes a 401.
func currentUser(w http.ResponseWriter, r *http.Request) (core.User, bool) {
	u, ok := auth.UserFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, auth.ErrMissingUser.Error())
		return core.User{}, false
	}
	return u, true
}

// sanitizeInput removes control characters and trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}
