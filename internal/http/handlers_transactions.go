package http

import (
	"net/http"
	"strings"
	"sync/atomic"

	"github.com/go-chi/chi/v5"

	"spendlog/internal/aggregate"
	"spendlog/internal/core"
	applog "spendlog/internal/log"
)

type listResponse struct {
	Transactions []core.Transaction `json:"transactions"`
	TotalExpense core.Money         `json:"totalExpense"`
	Count        int                `json:"count"`
}

// handleListTransactions returns the caller's transactions newest first,
// optionally narrowed by ?mode=.
func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	u, ok := currentUser(w, r)
	if !ok {
		return
	}
	mode, err := aggregate.ParseModeFilter(r.URL.Query().Get("mode"))
	if err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}

	txs, err := s.svc.List(r.Context(), u.ID)
	if err != nil {
		s.respondError(w, r, applog.OpList, err)
		return
	}
	txs = aggregate.SortByDateDesc(aggregate.FilterMode(txs, mode))
	sum := aggregate.Summary(txs)

	NewJSONResponse().JSON(listResponse{
		Transactions: txs,
		TotalExpense: sum.Total,
		Count:        sum.Count,
	}).Write(w)
}

func (s *Server) handleGetTransaction(w http.ResponseWriter, r *http.Request) {
	u, ok := currentUser(w, r)
	if !ok {
		return
	}
	t, err := s.svc.Get(r.Context(), u.ID, transactionID(r))
	if err != nil {
		s.respondError(w, r, applog.OpRead, err)
		return
	}
	NewJSONResponse().JSON(t).Write(w)
}

func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	u, ok := currentUser(w, r)
	if !ok {
		return
	}
	p := NewRequestBodyParser(w, r)
	if err := p.Parse(); err != nil {
		s.respondError(w, r, applog.OpCreate, err)
		return
	}
	in, err := ParseTransactionInput(p, s.now(), s.loc)
	if err != nil {
		s.respondError(w, r, applog.OpValidate, err)
		return
	}

	t, err := s.svc.Create(r.Context(), u, in)
	if err != nil {
		s.respondError(w, r, applog.OpCreate, err)
		return
	}
	atomic.AddInt64(&s.metrics.transactionsCreated, 1)
	applog.NewStructuredLogger(applog.FromContext(r.Context())).LogTransactionWritten(r.Context(),
		applog.OpCreate, u.ID, t.ID, t.Amount.Paise, string(t.PaymentMode), string(t.Category))

	NewJSONResponse().
		Status(http.StatusCreated).
		Header("Location", "/api/transactions/"+t.ID).
		JSON(t).
		Write(w)
}

// handleUpdateTransaction applies the fields present in the body; absent
// fields keep their stored values.
func (s *Server) handleUpdateTransaction(w http.ResponseWriter, r *http.Request) {
	u, ok := currentUser(w, r)
	if !ok {
		return
	}
	p := NewRequestBodyParser(w, r)
	if err := p.Parse(); err != nil {
		s.respondError(w, r, applog.OpUpdate, err)
		return
	}
	patch, err := ParseTransactionPatch(p, s.loc)
	if err != nil {
		s.respondError(w, r, applog.OpValidate, err)
		return
	}

	t, err := s.svc.Update(r.Context(), u.ID, transactionID(r), patch)
	if err != nil {
		s.respondError(w, r, applog.OpUpdate, err)
		return
	}
	atomic.AddInt64(&s.metrics.transactionsUpdated, 1)
	applog.NewStructuredLogger(applog.FromContext(r.Context())).LogTransactionWritten(r.Context(),
		applog.OpUpdate, u.ID, t.ID, t.Amount.Paise, string(t.PaymentMode), string(t.Category))

	NewJSONResponse().JSON(t).Write(w)
}

func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	u, ok := currentUser(w, r)
	if !ok {
		return
	}
	id := transactionID(r)
	if err := s.svc.Delete(r.Context(), u.ID, id); err != nil {
		s.respondError(w, r, applog.OpDelete, err)
		return
	}
	atomic.AddInt64(&s.metrics.transactionsDeleted, 1)
	applog.FromContext(r.Context()).InfoContext(r.Context(), "Transaction deleted",
		applog.FieldUserID, u.ID,
		applog.FieldTransactionID, id)

	NewJSONResponse().JSON(map[string]string{"message": "Transaction deleted"}).Write(w)
}

// handleMeta exposes the payment mode and category tables.
func (s *Server) handleMeta(w http.ResponseWriter, r *http.Request) {
	NewJSONResponse().
		Header("Cache-Control", "public, max-age=3600").
		JSON(map[string]any{
			"currency":     "INR",
			"symbol":       core.CurrencySymbol,
			"paymentModes": core.PaymentModeTable(),
			"categories":   core.CategoryTable(),
		}).Write(w)
}

func transactionID(r *http.Request) string {
	return strings.TrimSpace(chi.URLParam(r, "id"))
}
