// Package googleauth implements the Authorizer port using the Google OAuth2
// authorization-code flow with a loopback redirect listener.
package googleauth

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/google/uuid"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	drive "google.golang.org/api/drive/v3"

	"github.com/ericfisherdev/payvault/internal/domain/model"
	"github.com/ericfisherdev/payvault/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.Authorizer = (*Authorizer)(nil)

const callbackPath = "/oauth/callback"

// Authorizer drives an interactive Google consent flow. It serves a one-shot
// callback endpoint on the loopback redirect address, logs the consent URL
// for the user to open, and exchanges the returned code for a bearer token.
// AuthSession guarantees at most one flow is in flight, so the listener port
// is never contended.
type Authorizer struct {
	cfg          *oauth2.Config
	redirectAddr string
}

// New creates an Authorizer. With an empty client id or secret the authorizer
// is constructed but every Authorize call fails as unavailable, letting the
// app start without Google credentials configured.
func New(clientID, clientSecret, redirectAddr string) *Authorizer {
	var cfg *oauth2.Config
	if clientID != "" && clientSecret != "" {
		cfg = &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			Endpoint:     google.Endpoint,
			RedirectURL:  "http://" + redirectAddr + callbackPath,
			Scopes:       []string{drive.DriveFileScope, drive.DriveReadonlyScope},
		}
	}

	return &Authorizer{cfg: cfg, redirectAddr: redirectAddr}
}

// callbackResult carries the outcome of the redirect back to Authorize.
type callbackResult struct {
	code     string
	errParam string
}

// Authorize runs one interactive authorization flow and returns the acquired
// credential.
func (a *Authorizer) Authorize(ctx context.Context) (model.Credential, error) {
	if a.cfg == nil {
		return model.Credential{}, fmt.Errorf("%w: google client id/secret not configured", model.ErrAuthUnavailable)
	}

	ln, err := net.Listen("tcp", a.redirectAddr)
	if err != nil {
		return model.Credential{}, fmt.Errorf("%w: listen on %s: %v", model.ErrAuthUnavailable, a.redirectAddr, err)
	}

	state := uuid.NewString()
	results := make(chan callbackResult, 1)

	mux := http.NewServeMux()
	mux.HandleFunc(callbackPath, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("state") != state {
			http.Error(w, "state mismatch", http.StatusBadRequest)
			return
		}

		res := callbackResult{
			code:     r.URL.Query().Get("code"),
			errParam: r.URL.Query().Get("error"),
		}

		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		fmt.Fprint(w, "<html><body>Authorization complete. You can close this window.</body></html>")

		select {
		case results <- res:
		default:
		}
	})

	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() { _ = srv.Serve(ln) }()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	authURL := a.cfg.AuthCodeURL(state, oauth2.AccessTypeOffline)
	slog.Info("authorization required, open the consent URL in a browser", "url", authURL)

	var res callbackResult
	select {
	case res = <-results:
	case <-ctx.Done():
		return model.Credential{}, ctx.Err()
	}

	if res.errParam != "" {
		return model.Credential{}, fmt.Errorf("%w: provider returned %q", model.ErrAuthDenied, res.errParam)
	}
	if res.code == "" {
		return model.Credential{}, fmt.Errorf("%w: callback carried no code", model.ErrAuthDenied)
	}

	token, err := a.cfg.Exchange(ctx, res.code)
	if err != nil {
		return model.Credential{}, fmt.Errorf("%w: code exchange: %v", model.ErrAuthDenied, err)
	}
	if token.AccessToken == "" {
		return model.Credential{}, fmt.Errorf("%w: provider returned empty token", model.ErrAuthDenied)
	}

	slog.Info("authorization granted")
	return model.Credential{Token: token.AccessToken, AcquiredAt: time.Now().UTC()}, nil
}
