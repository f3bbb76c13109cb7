// Command oauth-init runs the installed-app OAuth flow once and saves the
// token the Sheets mirror reads from GOOGLE_OAUTH_TOKEN_FILE.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"golang.org/x/oauth2"

	"spendlog/internal/cli"
	applog "spendlog/internal/log"
	gsheet "spendlog/internal/sheets/google"
)

const authTimeout = 5 * time.Minute

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLoggerTo(os.Stderr, os.Getenv("LOG_LEVEL"), applog.ComponentCLI)

	cfg, err := gsheet.OAuthConfigFromEnv()
	if err != nil {
		logger.Error("OAuth client unavailable", "error", err)
		os.Exit(1)
	}

	// The OAuth client must list this redirect URI.
	port := os.Getenv("OAUTH_REDIRECT_PORT")
	if port == "" {
		port = "8085"
	}
	cfg.RedirectURL = "http://localhost:" + port + "/callback"

	outFile := os.Getenv("GOOGLE_OAUTH_TOKEN_FILE")
	if outFile == "" {
		outFile = "token.json"
	}

	state := uuid.NewString()
	codeCh := make(chan string, 1)
	errCh := make(chan error, 1)

	r := chi.NewRouter()
	r.Get("/callback", func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if e := q.Get("error"); e != "" {
			http.Error(w, "OAuth error: "+e, http.StatusBadRequest)
			errCh <- fmt.Errorf("authorization denied: %s", e)
			return
		}
		if q.Get("state") != state {
			http.Error(w, "state mismatch", http.StatusBadRequest)
			return
		}
		fmt.Fprintln(w, "You may close this window and return to the terminal.")
		select {
		case codeCh <- q.Get("code"):
		default:
		}
	})
	srv := &http.Server{Addr: "localhost:" + port, Handler: r, ReadHeaderTimeout: 10 * time.Second}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	fmt.Printf("Open this URL to authorize:\n%s\n", cfg.AuthCodeURL(state, oauth2.AccessTypeOffline))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, authTimeout)
	defer cancel()

	code, err := waitForCode(ctx, codeCh, errCh)
	shutdownCtx, done := context.WithTimeout(context.Background(), 2*time.Second)
	_ = srv.Shutdown(shutdownCtx)
	done()
	if err != nil {
		logger.Error("Authorization failed", "error", err)
		os.Exit(1)
	}

	tok, err := cfg.Exchange(context.Background(), code)
	if err != nil {
		logger.Error("Token exchange failed", "error", err)
		os.Exit(1)
	}
	if err := gsheet.SaveToken(outFile, tok); err != nil {
		logger.Error("Saving token failed", "error", err, "path", outFile)
		os.Exit(1)
	}
	logger.Info("Saved OAuth token", "path", outFile)
	fmt.Printf("Saved token to %s\n", outFile)
}

func waitForCode(ctx context.Context, codeCh <-chan string, errCh <-chan error) (string, error) {
	select {
	case code := <-codeCh:
		return code, nil
	case err := <-errCh:
		return "", err
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return "", errors.New("authorization timed out")
		}
		return "", errors.New("interrupted")
	}
}
