package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	"spendlog/internal/core"
	ports "spendlog/internal/sheets"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

const defaultSheetName = "Transactions"

type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	sheetName     string
	loc           *time.Location

	// Serializes find-then-write so two events for one sheet cannot race
	// each other into duplicate rows.
	writeMu sync.Mutex

	sheetIDMu sync.Mutex
	sheetID   *int64
}

var _ ports.Mirror = (*Client)(nil)

// NewFromEnv creates a Sheets client from environment variables.
// Required: GOOGLE_SPREADSHEET_ID
// Optional: GOOGLE_SHEET_NAME (default "Transactions"). Credentials come from a
// service account (GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE or
// GOOGLE_APPLICATION_CREDENTIALS) or, failing that, from an OAuth client plus
// the token written by cmd/oauth-init.
func NewFromEnv(ctx context.Context, loc *time.Location) (*Client, error) {
	spreadsheetID := strings.TrimSpace(os.Getenv("GOOGLE_SPREADSHEET_ID"))
	if spreadsheetID == "" {
		return nil, errors.New("missing GOOGLE_SPREADSHEET_ID")
	}
	opts, err := clientOptionsFromEnv(ctx)
	if err != nil {
		return nil, err
	}
	return New(ctx, spreadsheetID, os.Getenv("GOOGLE_SHEET_NAME"), loc, opts...)
}

func clientOptionsFromEnv(ctx context.Context) ([]goption.ClientOption, error) {
	creds, err := credentialsFromEnv(ctx)
	if err == nil {
		return []goption.ClientOption{
			goption.WithCredentialsJSON(creds),
			goption.WithScopes(gsheet.SpreadsheetsScope),
		}, nil
	}
	if !oauthConfigured() {
		return nil, err
	}
	ts, err := oauthTokenSource(ctx)
	if err != nil {
		return nil, err
	}
	return []goption.ClientOption{goption.WithTokenSource(ts)}, nil
}

// New builds a client with explicit options. Tests point it at a fake
// endpoint with option.WithEndpoint and option.WithoutAuthentication.
func New(ctx context.Context, spreadsheetID, sheetName string, loc *time.Location, opts ...goption.ClientOption) (*Client, error) {
	svc, err := gsheet.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	sheetName = strings.TrimSpace(sheetName)
	if sheetName == "" {
		sheetName = defaultSheetName
	}
	if loc == nil {
		loc = time.UTC
	}
	return &Client{svc: svc, spreadsheetID: spreadsheetID, sheetName: sheetName, loc: loc}, nil
}

func credentialsFromEnv(ctx context.Context) ([]byte, error) {
	serviceAccountJSON := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_JSON"))
	serviceAccountFile := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_FILE"))
	if serviceAccountJSON == "" && serviceAccountFile == "" {
		serviceAccountFile = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}

	switch {
	case serviceAccountJSON != "":
		slog.DebugContext(ctx, "Using inline service account credentials")
		return []byte(serviceAccountJSON), nil
	case serviceAccountFile != "":
		slog.DebugContext(ctx, "Reading service account credentials", "path", serviceAccountFile)
		b, err := os.ReadFile(serviceAccountFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		return b, nil
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
	}
}

// UpsertTransaction writes t into the row holding its ID, or appends a row.
func (c *Client) UpsertTransaction(ctx context.Context, t core.Transaction) error {
	if c.svc == nil {
		return errors.New("sheets service not initialized")
	}
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	ids, err := c.readIDs(ctx)
	if err != nil {
		return err
	}
	vr := &gsheet.ValueRange{Values: [][]any{ports.ToRow(t, c.loc)}}

	if len(ids) == 0 {
		header := &gsheet.ValueRange{Values: [][]any{ports.Header}}
		rng := fmt.Sprintf("%s!A1:%s1", c.sheetName, ports.LastColumn)
		if _, err := c.svc.Spreadsheets.Values.Update(c.spreadsheetID, rng, header).
			ValueInputOption("RAW").Context(ctx).Do(); err != nil {
			return fmt.Errorf("write header: %w", err)
		}
		ids = []string{"ID"}
	}

	if row := rowOf(ids, t.ID); row > 0 {
		rng := fmt.Sprintf("%s!A%d:%s%d", c.sheetName, row, ports.LastColumn, row)
		if _, err := c.svc.Spreadsheets.Values.Update(c.spreadsheetID, rng, vr).
			ValueInputOption("USER_ENTERED").Context(ctx).Do(); err != nil {
			return fmt.Errorf("update row %d: %w", row, err)
		}
		slog.DebugContext(ctx, "Updated mirror row", "id", t.ID, "row", row)
		return nil
	}

	rng := fmt.Sprintf("%s!A:%s", c.sheetName, ports.LastColumn)
	if _, err := c.svc.Spreadsheets.Values.Append(c.spreadsheetID, rng, vr).
		ValueInputOption("USER_ENTERED").InsertDataOption("INSERT_ROWS").Context(ctx).Do(); err != nil {
		return fmt.Errorf("append row: %w", err)
	}
	slog.DebugContext(ctx, "Appended mirror row", "id", t.ID)
	return nil
}

// DeleteTransaction removes the row holding id. A missing row is not an error.
func (c *Client) DeleteTransaction(ctx context.Context, userID, id string) error {
	if c.svc == nil {
		return errors.New("sheets service not initialized")
	}
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	ids, err := c.readIDs(ctx)
	if err != nil {
		return err
	}
	row := rowOf(ids, id)
	if row <= 0 {
		slog.DebugContext(ctx, "Mirror row already absent", "id", id, "user_id", userID)
		return nil
	}
	sheetID, err := c.resolveSheetID(ctx)
	if err != nil {
		return err
	}
	req := &gsheet.BatchUpdateSpreadsheetRequest{Requests: []*gsheet.Request{{
		DeleteDimension: &gsheet.DeleteDimensionRequest{Range: &gsheet.DimensionRange{
			SheetId:    sheetID,
			Dimension:  "ROWS",
			StartIndex: int64(row - 1),
			EndIndex:   int64(row),
		}},
	}}}
	if _, err := c.svc.Spreadsheets.BatchUpdate(c.spreadsheetID, req).Context(ctx).Do(); err != nil {
		return fmt.Errorf("delete row %d: %w", row, err)
	}
	slog.DebugContext(ctx, "Deleted mirror row", "id", id, "row", row)
	return nil
}

func (c *Client) readIDs(ctx context.Context) ([]string, error) {
	rng := fmt.Sprintf("%s!A:A", c.sheetName)
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", rng, err)
	}
	ids := make([]string, len(resp.Values))
	for i, row := range resp.Values {
		if len(row) > 0 {
			ids[i] = strings.TrimSpace(fmt.Sprint(row[0]))
		}
	}
	return ids, nil
}

func (c *Client) resolveSheetID(ctx context.Context) (int64, error) {
	c.sheetIDMu.Lock()
	defer c.sheetIDMu.Unlock()
	if c.sheetID != nil {
		return *c.sheetID, nil
	}
	ss, err := c.svc.Spreadsheets.Get(c.spreadsheetID).Fields("sheets.properties").Context(ctx).Do()
	if err != nil {
		return 0, fmt.Errorf("read spreadsheet properties: %w", err)
	}
	for _, s := range ss.Sheets {
		if s.Properties != nil && s.Properties.Title == c.sheetName {
			id := s.Properties.SheetId
			c.sheetID = &id
			return id, nil
		}
	}
	return 0, fmt.Errorf("sheet %q not found", c.sheetName)
}

// rowOf returns the 1-based row holding id, skipping the header, or 0.
func rowOf(ids []string, id string) int {
	for i := 1; i < len(ids); i++ {
		if ids[i] == id {
			return i + 1
		}
	}
	return 0
}
