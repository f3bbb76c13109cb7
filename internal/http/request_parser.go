// Package http provides HTTP server and handler implementations.
//
// This file implements utilities for parsing and validating HTTP request data:
// body decoding for JSON and form posts, month and range query parameters and
// the mapping from raw fields to transaction input.

package http

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"spendlog/internal/aggregate"
	"spendlog/internal/core"
)

// maxBodyBytes bounds request bodies; a transaction is a handful of fields.
const maxBodyBytes = 64 << 10

// MonthParams holds parsed year/month values from request parameters.
type MonthParams struct {
	Year  int
	Month time.Month
}

// ParseMonthParams extracts year and month from query parameters, using the
// current month in loc as defaults. Month is 1-12.
func ParseMonthParams(query url.Values, now time.Time, loc *time.Location) (MonthParams, error) {
	now = now.In(loc)
	params := MonthParams{Year: now.Year(), Month: now.Month()}

	if v := strings.TrimSpace(query.Get("year")); v != "" {
		y, err := parseYear(v)
		if err != nil {
			return MonthParams{}, err
		}
		params.Year = y
	}
	if v := strings.TrimSpace(query.Get("month")); v != "" {
		m, err := parseMonth(v)
		if err != nil {
			return MonthParams{}, err
		}
		params.Month = m
	}
	return params, nil
}

// RangeParams is a parsed month range with its payment mode filter.
type RangeParams struct {
	Range aggregate.Range
	Mode  aggregate.ModeFilter
}

// ParseRangeParams reads startMonth/startYear/endMonth/endYear/mode. Missing
// bounds default to the current month in loc.
func ParseRangeParams(query url.Values, now time.Time, loc *time.Location) (RangeParams, error) {
	now = now.In(loc)
	r := aggregate.Range{
		StartYear: now.Year(), StartMonth: now.Month(),
		EndYear: now.Year(), EndMonth: now.Month(),
	}

	years := []struct {
		key string
		dst *int
	}{{"startYear", &r.StartYear}, {"endYear", &r.EndYear}}
	for _, f := range years {
		if v := strings.TrimSpace(query.Get(f.key)); v != "" {
			y, err := parseYear(v)
			if err != nil {
				return RangeParams{}, fmt.Errorf("%s: %w", f.key, err)
			}
			*f.dst = y
		}
	}

	months := []struct {
		key string
		dst *time.Month
	}{{"startMonth", &r.StartMonth}, {"endMonth", &r.EndMonth}}
	for _, f := range months {
		if v := strings.TrimSpace(query.Get(f.key)); v != "" {
			m, err := parseMonth(v)
			if err != nil {
				return RangeParams{}, fmt.Errorf("%s: %w", f.key, err)
			}
			*f.dst = m
		}
	}

	mode, err := aggregate.ParseModeFilter(query.Get("mode"))
	if err != nil {
		return RangeParams{}, fmt.Errorf("%w: %v", errBadRequest, err)
	}
	return RangeParams{Range: r, Mode: mode}, nil
}

func parseYear(v string) (int, error) {
	y, err := strconv.Atoi(v)
	if err != nil || y < 1 || y > 9999 {
		return 0, fmt.Errorf("%w: invalid year %q", errBadRequest, v)
	}
	return y, nil
}

func parseMonth(v string) (time.Month, error) {
	m, err := strconv.Atoi(v)
	if err != nil || m < 1 || m > 12 {
		return 0, fmt.Errorf("%w: invalid month %q (expected 1-12)", errBadRequest, v)
	}
	return time.Month(m), nil
}

// RequestBodyParser handles different content types for request body parsing.
// It supports both JSON objects and form-encoded data.
type RequestBodyParser struct {
	body        []byte
	contentType string
	jsonData    map[string]any
	formData    url.Values
	parsed      bool
	err         error
}

// NewRequestBodyParser creates a parser for the given request.
// It reads the body once and stores it for subsequent parsing.
func NewRequestBodyParser(w http.ResponseWriter, r *http.Request) *RequestBodyParser {
	p := &RequestBodyParser{
		contentType: r.Header.Get("Content-Type"),
	}
	p.body, p.err = io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	return p
}

// Parse attempts to parse the body as JSON or form data. JSON numbers are kept
// as json.Number so amounts never pass through float64.
func (p *RequestBodyParser) Parse() error {
	if p.parsed {
		return p.err
	}
	p.parsed = true

	if p.err != nil {
		p.err = fmt.Errorf("%w: %v", errBadRequest, p.err)
		return p.err
	}

	body := bytes.TrimSpace(p.body)
	if len(body) == 0 {
		p.formData = url.Values{}
		return nil
	}

	if body[0] == '{' || strings.HasPrefix(p.contentType, "application/json") {
		dec := json.NewDecoder(bytes.NewReader(body))
		dec.UseNumber()
		p.jsonData = make(map[string]any)
		if err := dec.Decode(&p.jsonData); err != nil {
			p.jsonData = nil
			p.err = fmt.Errorf("%w: malformed JSON body", errBadRequest)
			return p.err
		}
		return nil
	}

	form, err := url.ParseQuery(string(body))
	if err != nil {
		p.err = fmt.Errorf("%w: malformed form body", errBadRequest)
		return p.err
	}
	p.formData = form
	return nil
}

// Has reports whether key was sent with a non-null value.
func (p *RequestBodyParser) Has(key string) bool {
	if p.jsonData != nil {
		v, ok := p.jsonData[key]
		return ok && v != nil
	}
	if p.formData != nil {
		_, ok := p.formData[key]
		return ok
	}
	return false
}

// Get returns a string value from the parsed data (JSON or form).
func (p *RequestBodyParser) Get(key string) string {
	if p.jsonData != nil {
		if val, ok := p.jsonData[key]; ok {
			return sanitizeInput(stringValue(val))
		}
		return ""
	}
	if p.formData != nil {
		return sanitizeInput(p.formData.Get(key))
	}
	return ""
}

// IsJSON returns true if the parsed content was JSON.
func (p *RequestBodyParser) IsJSON() bool {
	return p.jsonData != nil
}

// stringValue converts a decoded JSON value to string.
func stringValue(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case json.Number:
		return val.String()
	case bool:
		return strconv.FormatBool(val)
	default:
		return ""
	}
}

// ParseTransactionInput maps a parsed body to a new transaction. Payment mode
// defaults to CASH, category to OTHER and date to now.
func ParseTransactionInput(p *RequestBodyParser, now time.Time, loc *time.Location) (core.TransactionInput, error) {
	in := core.TransactionInput{
		Description: p.Get("description"),
		PaymentMode: core.PaymentCash,
		Category:    core.CategoryOther,
		IsSplit:     parseBool(p.Get("isSplit")),
		SplitWith:   p.Get("splitWith"),
		Date:        now,
	}

	amount, err := core.ParseAmount(p.Get("amount"))
	if err != nil {
		return core.TransactionInput{}, err
	}
	in.Amount = amount

	if v := p.Get("paymentMode"); v != "" {
		if in.PaymentMode, err = core.ParsePaymentMode(v); err != nil {
			return core.TransactionInput{}, err
		}
	}
	if in.Category, err = core.ParseCategory(p.Get("category")); err != nil {
		return core.TransactionInput{}, err
	}
	if v := p.Get("date"); v != "" {
		if in.Date, err = parseDate(v, loc); err != nil {
			return core.TransactionInput{}, err
		}
	}
	return in, nil
}

// ParseTransactionPatch maps the fields present in the body to a patch.
func ParseTransactionPatch(p *RequestBodyParser, loc *time.Location) (core.TransactionPatch, error) {
	var patch core.TransactionPatch

	if p.Has("amount") {
		m, err := core.ParseAmount(p.Get("amount"))
		if err != nil {
			return patch, err
		}
		patch.Amount = &m
	}
	if p.Has("description") {
		d := p.Get("description")
		patch.Description = &d
	}
	if p.Has("paymentMode") {
		m, err := core.ParsePaymentMode(p.Get("paymentMode"))
		if err != nil {
			return patch, err
		}
		patch.PaymentMode = &m
	}
	if p.Has("category") {
		c, err := core.ParseCategory(p.Get("category"))
		if err != nil {
			return patch, err
		}
		patch.Category = &c
	}
	if p.Has("isSplit") {
		b := parseBool(p.Get("isSplit"))
		patch.IsSplit = &b
	}
	if p.Has("splitWith") {
		s := p.Get("splitWith")
		patch.SplitWith = &s
	}
	if p.Has("date") {
		d, err := parseDate(p.Get("date"), loc)
		if err != nil {
			return patch, err
		}
		patch.Date = &d
	}
	return patch, nil
}

// parseDate accepts RFC3339 timestamps or YYYY-MM-DD (midnight in loc).
func parseDate(v string, loc *time.Location) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, v); err == nil {
		return t, nil
	}
	if t, err := time.ParseInLocation("2006-01-02", v, loc); err == nil {
		return t, nil
	}
	return time.Time{}, fmt.Errorf("%w: %q", core.ErrInvalidDate, v)
}

func parseBool(v string) bool {
	switch strings.ToLower(v) {
	case "true", "1", "on", "yes":
		return true
	}
	return false
}
