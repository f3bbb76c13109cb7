package google

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"golang.org/x/oauth2"
	googleoauth "golang.org/x/oauth2/google"
	gsheet "google.golang.org/api/sheets/v4"
)

func oauthConfigured() bool {
	return strings.TrimSpace(os.Getenv("GOOGLE_OAUTH_CLIENT_JSON")) != "" ||
		strings.TrimSpace(os.Getenv("GOOGLE_OAUTH_CLIENT_FILE")) != ""
}

// OAuthConfigFromEnv loads the installed-app OAuth client with the
// spreadsheets scope.
func OAuthConfigFromEnv() (*oauth2.Config, error) {
	clientJSON, err := readEnvOrFile("GOOGLE_OAUTH_CLIENT_JSON", "GOOGLE_OAUTH_CLIENT_FILE")
	if err != nil {
		return nil, fmt.Errorf("read oauth client: %w", err)
	}
	if clientJSON == nil {
		return nil, errors.New("missing oauth client (set GOOGLE_OAUTH_CLIENT_JSON or GOOGLE_OAUTH_CLIENT_FILE)")
	}
	cfg, err := googleoauth.ConfigFromJSON(clientJSON, gsheet.SpreadsheetsScope)
	if err != nil {
		return nil, fmt.Errorf("oauth config: %w", err)
	}
	return cfg, nil
}

// SaveToken writes tok as JSON, readable only by the owner.
func SaveToken(path string, tok *oauth2.Token) error {
	b, err := json.Marshal(tok)
	if err != nil {
		return fmt.Errorf("encode oauth token: %w", err)
	}
	if err := os.WriteFile(path, b, 0o600); err != nil {
		return fmt.Errorf("write oauth token: %w", err)
	}
	return nil
}

// oauthTokenSource builds a refreshing token source from an installed-app
// OAuth client and a saved token.
func oauthTokenSource(ctx context.Context) (oauth2.TokenSource, error) {
	cfg, err := OAuthConfigFromEnv()
	if err != nil {
		return nil, err
	}

	tokenJSON, err := readEnvOrFile("GOOGLE_OAUTH_TOKEN_JSON", "GOOGLE_OAUTH_TOKEN_FILE")
	if err != nil {
		return nil, fmt.Errorf("read oauth token: %w", err)
	}
	if tokenJSON == nil {
		return nil, errors.New("missing oauth token (set GOOGLE_OAUTH_TOKEN_JSON or GOOGLE_OAUTH_TOKEN_FILE)")
	}
	var tok oauth2.Token
	if err := json.Unmarshal(tokenJSON, &tok); err != nil {
		return nil, fmt.Errorf("decode oauth token: %w", err)
	}
	return cfg.TokenSource(ctx, &tok), nil
}

// readEnvOrFile returns inline JSON from jsonKey, else the file named by
// fileKey, else nil.
func readEnvOrFile(jsonKey, fileKey string) ([]byte, error) {
	if v := strings.TrimSpace(os.Getenv(jsonKey)); v != "" {
		return []byte(v), nil
	}
	if path := strings.TrimSpace(os.Getenv(fileKey)); path != "" {
		return os.ReadFile(path)
	}
	return nil, nil
}
