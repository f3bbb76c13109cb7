package http

import (
	"bytes"
	"net/http"
	"strings"
	"sync/atomic"

	"spendlog/internal/aggregate"
	"spendlog/internal/core"
	applog "spendlog/internal/log"
	"spendlog/internal/report"
)

type monthlyResponse struct {
	aggregate.MonthSeries
	DailyAverage core.Money                `json:"dailyAverage"`
	Count        int                       `json:"count"`
	ByCategory   []aggregate.CategoryTotal `json:"byCategory"`
}

// handleMonthlyStats returns the dense daily series for ?year=&month=.
func (s *Server) handleMonthlyStats(w http.ResponseWriter, r *http.Request) {
	u, ok := currentUser(w, r)
	if !ok {
		return
	}
	mp, err := ParseMonthParams(r.URL.Query(), s.now(), s.loc)
	if err != nil {
		s.respondError(w, r, applog.OpRead, err)
		return
	}

	txs, err := s.svc.List(r.Context(), u.ID)
	if err != nil {
		s.respondError(w, r, applog.OpList, err)
		return
	}
	series := aggregate.MonthlySeries(aggregate.SortByDateDesc(txs), mp.Year, mp.Month, s.loc)

	NewJSONResponse().JSON(monthlyResponse{
		MonthSeries:  series,
		DailyAverage: series.DailyAverage(),
		Count:        len(series.Transactions),
		ByCategory:   aggregate.CategoryBreakdown(series.Transactions),
	}).Write(w)
}

// handleRangeStats filters by month range and payment mode.
func (s *Server) handleRangeStats(w http.ResponseWriter, r *http.Request) {
	u, ok := currentUser(w, r)
	if !ok {
		return
	}
	rp, err := ParseRangeParams(r.URL.Query(), s.now(), s.loc)
	if err != nil {
		s.respondError(w, r, applog.OpRead, err)
		return
	}

	txs, err := s.svc.List(r.Context(), u.ID)
	if err != nil {
		s.respondError(w, r, applog.OpList, err)
		return
	}
	NewJSONResponse().
		JSON(aggregate.RangeFilter(aggregate.SortByDateDesc(txs), rp.Range, rp.Mode, s.loc)).
		Write(w)
}

// handleExport renders the filtered range as a PDF or CSV attachment.
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	u, ok := currentUser(w, r)
	if !ok {
		return
	}
	rp, err := ParseRangeParams(r.URL.Query(), s.now(), s.loc)
	if err != nil {
		s.respondError(w, r, applog.OpExport, err)
		return
	}
	format := strings.ToLower(strings.TrimSpace(r.URL.Query().Get("format")))
	if format == "" {
		format = "pdf"
	}
	if format != "pdf" && format != "csv" {
		BadRequestError("unsupported format " + format + " (expected pdf or csv)").Write(w)
		return
	}

	txs, err := s.svc.List(r.Context(), u.ID)
	if err != nil {
		s.respondError(w, r, applog.OpList, err)
		return
	}
	res := aggregate.RangeFilter(aggregate.SortByDateDesc(txs), rp.Range, rp.Mode, s.loc)
	rep := report.Format(res.Transactions, report.Params{
		Range:       rp.Range,
		Mode:        rp.Mode,
		Total:       res.TotalAmount,
		Location:    s.loc,
		GeneratedAt: s.now(),
	})

	var buf bytes.Buffer
	contentType := "application/pdf"
	if format == "csv" {
		contentType = "text/csv; charset=utf-8"
		err = report.WriteCSV(&buf, rep)
	} else {
		err = report.WritePDF(&buf, rep)
	}
	if err != nil {
		s.respondError(w, r, applog.OpExport, err)
		return
	}

	atomic.AddInt64(&s.metrics.reportsExported, 1)
	applog.FromContext(r.Context()).InfoContext(r.Context(), "Report exported",
		applog.FieldUserID, u.ID,
		applog.FieldFormat, format,
		"rows", len(rep.Rows))

	NewJSONResponse().
		Attachment(rep.Filename+"."+format, contentType, buf.Bytes()).
		Write(w)
}
