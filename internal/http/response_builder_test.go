package http

import (
	"errors"
	"fmt"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"spendlog/internal/core"
	"spendlog/internal/store"
)

func TestResponseBuilder_JSON(t *testing.T) {
	w := httptest.NewRecorder()

	NewJSONResponse().
		Status(http.StatusCreated).
		Header("Location", "/api/transactions/1").
		JSON(map[string]core.Money{"amount": core.NewMoney(12, 50)}).
		Write(w)

	if w.Code != http.StatusCreated {
		t.Errorf("Status code = %d, want %d", w.Code, http.StatusCreated)
	}
	if got := w.Header().Get("Content-Type"); got != "application/json; charset=utf-8" {
		t.Errorf("Content-Type = %q", got)
	}
	if got := w.Header().Get("Location"); got != "/api/transactions/1" {
		t.Errorf("Location = %q", got)
	}
	if got := strings.TrimSpace(w.Body.String()); got != `{"amount":12.5}` {
		t.Errorf("Body = %q", got)
	}
}

func TestResponseBuilder_EncodeFailure(t *testing.T) {
	w := httptest.NewRecorder()
	NewJSONResponse().JSON(math.Inf(1)).Write(w)

	if w.Code != http.StatusInternalServerError {
		t.Errorf("Status code = %d, want 500", w.Code)
	}
	if !strings.Contains(w.Body.String(), "internal server error") {
		t.Errorf("Body = %q", w.Body.String())
	}
}

func TestResponseBuilder_Attachment(t *testing.T) {
	w := httptest.NewRecorder()
	NewJSONResponse().Attachment("Expense_Report_January_2024_to_March_2024.csv", "text/csv; charset=utf-8", []byte("a,b\n")).Write(w)

	if got := w.Header().Get("Content-Disposition"); got != "attachment; filename=Expense_Report_January_2024_to_March_2024.csv" {
		t.Errorf("Content-Disposition = %q", got)
	}
	if got := w.Header().Get("Content-Length"); got != "4" {
		t.Errorf("Content-Length = %q", got)
	}
	if w.Body.String() != "a,b\n" {
		t.Errorf("Body = %q", w.Body.String())
	}
}

func TestErrorResponses(t *testing.T) {
	tests := []struct {
		name     string
		builder  *ResponseBuilder
		wantCode int
	}{
		{"BadRequest", BadRequestError("bad"), http.StatusBadRequest},
		{"UnprocessableEntity", UnprocessableEntityError("invalid"), http.StatusUnprocessableEntity},
		{"InternalServer", InternalServerError("boom"), http.StatusInternalServerError},
		{"NotFound", NotFoundError("missing"), http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			tt.builder.Write(w)
			if w.Code != tt.wantCode {
				t.Errorf("Status code = %d, want %d", w.Code, tt.wantCode)
			}
			if !strings.HasPrefix(w.Body.String(), `{"error":`) {
				t.Errorf("Body = %q", w.Body.String())
			}
		})
	}
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err      error
		wantCode int
	}{
		{fmt.Errorf("get: %w", store.ErrNotFound), http.StatusNotFound},
		{store.ErrConflict, http.StatusConflict},
		{fmt.Errorf("%w: month", errBadRequest), http.StatusBadRequest},
		{core.ErrEmptyUser, http.StatusUnauthorized},
		{core.ErrInvalidAmount, http.StatusUnprocessableEntity},
		{fmt.Errorf("%w: \"x\"", core.ErrInvalidPaymentMode), http.StatusUnprocessableEntity},
		{core.ErrDescriptionTooLong, http.StatusUnprocessableEntity},
		{errors.New("disk full"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		code, msg := statusFor(tt.err)
		if code != tt.wantCode {
			t.Errorf("statusFor(%v) = %d, want %d", tt.err, code, tt.wantCode)
		}
		if code == http.StatusInternalServerError && strings.Contains(msg, "disk") {
			t.Errorf("internal details leaked: %q", msg)
		}
	}
}
