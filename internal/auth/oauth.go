// Package auth bootstraps Google API access: the OAuth client, the local
// callback flow and a session whose token refreshes are persisted.
package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/tasks/v1"

	"github.com/smartscheduler/smartscheduler/internal/core"
)

// DefaultCallbackPort is where the local callback server listens.
const DefaultCallbackPort = 8765

// Scopes grants read/write access to calendars and task lists.
var Scopes = []string{
	calendar.CalendarScope,
	tasks.TasksScope,
}

// OAuthConfig holds Google OAuth client configuration
type OAuthConfig struct {
	// CredentialsFile is a client secrets JSON downloaded from the Google
	// Cloud console. It wins over ClientID/ClientSecret when present.
	CredentialsFile string
	ClientID        string
	ClientSecret    string
	CallbackPort    int
	Scopes          []string
	// Endpoint overrides google.Endpoint.
	Endpoint oauth2.Endpoint
}

// OAuthClient handles OAuth2 authentication for Google APIs
type OAuthClient struct {
	config *oauth2.Config
	port   int
}

// NewOAuthClient creates a new OAuth client
func NewOAuthClient(cfg OAuthConfig) (*OAuthClient, error) {
	if cfg.CallbackPort == 0 {
		cfg.CallbackPort = DefaultCallbackPort
	}
	if len(cfg.Scopes) == 0 {
		cfg.Scopes = Scopes
	}

	var config *oauth2.Config
	data, err := readCredentialsFile(cfg.CredentialsFile)
	switch {
	case err != nil:
		return nil, err
	case data != nil:
		config, err = google.ConfigFromJSON(data, cfg.Scopes...)
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", cfg.CredentialsFile, err)
		}
	case cfg.ClientID != "" && cfg.ClientSecret != "":
		config = &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			Scopes:       cfg.Scopes,
			Endpoint:     google.Endpoint,
		}
	default:
		return nil, fmt.Errorf("%w: %w: no OAuth client credentials (set GOOGLE_OAUTH_CREDENTIALS or GOOGLE_CLIENT_ID/GOOGLE_CLIENT_SECRET)", core.ErrStoreUnavailable, core.ErrNotAuthorized)
	}

	if cfg.Endpoint.TokenURL != "" {
		config.Endpoint = cfg.Endpoint
	}
	config.RedirectURL = fmt.Sprintf("http://localhost:%d/callback", cfg.CallbackPort)

	return &OAuthClient{config: config, port: cfg.CallbackPort}, nil
}

func readCredentialsFile(path string) ([]byte, error) {
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return data, nil
}

// GetAuthURL returns the URL for user authorization
func (c *OAuthClient) GetAuthURL(state string) string {
	return c.config.AuthCodeURL(state, oauth2.AccessTypeOffline, oauth2.ApprovalForce)
}

// ExchangeCode exchanges the authorization code for tokens
func (c *OAuthClient) ExchangeCode(ctx context.Context, code string) (*oauth2.Token, error) {
	return c.config.Exchange(ctx, code)
}

// TokenSource returns a source that refreshes token when it expires
func (c *OAuthClient) TokenSource(ctx context.Context, token *oauth2.Token) oauth2.TokenSource {
	return c.config.TokenSource(ctx, token)
}

// StartOAuthFlow performs the complete OAuth flow with local callback
func (c *OAuthClient) StartOAuthFlow(ctx context.Context, out io.Writer) (*oauth2.Token, error) {
	state, err := newState()
	if err != nil {
		return nil, err
	}

	server := NewLocalAuthServer(state)
	if err := server.Start(c.port); err != nil {
		return nil, fmt.Errorf("failed to start auth server: %w", err)
	}
	defer server.Stop(context.Background())

	fmt.Fprintf(out, "\nOpen this URL in your browser to authorize SmartScheduler:\n\n%s\n\n", c.GetAuthURL(state))
	fmt.Fprintln(out, "Waiting for authorization...")

	code, err := server.WaitForCode(ctx, 5*time.Minute)
	if err != nil {
		return nil, fmt.Errorf("%w: %w: %w", core.ErrStoreUnavailable, core.ErrNotAuthorized, err)
	}

	token, err := c.ExchangeCode(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("%w: %w: failed to exchange code: %w", core.ErrStoreUnavailable, core.ErrNotAuthorized, err)
	}

	return token, nil
}

func newState() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate state: %w", err)
	}
	return hex.EncodeToString(b), nil
}

// LocalAuthServer handles the OAuth callback locally
type LocalAuthServer struct {
	server   *http.Server
	state    string
	codeChan chan string
	errChan  chan error
}

// NewLocalAuthServer creates a callback server accepting only state.
func NewLocalAuthServer(state string) *LocalAuthServer {
	return &LocalAuthServer{
		state:    state,
		codeChan: make(chan string, 1),
		errChan:  make(chan error, 1),
	}
}

// Router returns the callback routes.
func (s *LocalAuthServer) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Get("/callback", s.handleCallback)
	return r
}

// Start listens on localhost:port. A busy port is reported here, not later.
func (s *LocalAuthServer) Start(port int) error {
	ln, err := net.Listen("tcp", fmt.Sprintf("localhost:%d", port))
	if err != nil {
		return err
	}

	s.server = &http.Server{
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		if err := s.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.report(err)
		}
	}()
	return nil
}

// WaitForCode waits for the OAuth callback
func (s *LocalAuthServer) WaitForCode(ctx context.Context, timeout time.Duration) (string, error) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case code := <-s.codeChan:
		return code, nil
	case err := <-s.errChan:
		return "", err
	case <-ctx.Done():
		return "", ctx.Err()
	case <-timer.C:
		return "", fmt.Errorf("OAuth timeout - no callback received within %v", timeout)
	}
}

// Stop stops the auth server
func (s *LocalAuthServer) Stop(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}

func (s *LocalAuthServer) report(err error) {
	select {
	case s.errChan <- err:
	default:
	}
}

func (s *LocalAuthServer) handleCallback(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	if q.Get("state") != s.state {
		s.report(errors.New("OAuth error: state mismatch"))
		http.Error(w, "Authorization failed", http.StatusBadRequest)
		return
	}

	code := q.Get("code")
	if code == "" {
		errMsg := q.Get("error")
		if errMsg == "" {
			errMsg = "unknown error"
		}
		s.report(fmt.Errorf("OAuth error: %s", errMsg))
		http.Error(w, "Authorization failed", http.StatusBadRequest)
		return
	}

	select {
	case s.codeChan <- code:
	default:
	}

	w.Header().Set("Content-Type", "text/html")
	fmt.Fprint(w, `<!DOCTYPE html>
<html>
<head><title>SmartScheduler - Connected</title></head>
<body style="font-family: system-ui; text-align: center; margin-top: 20vh;">
	<h1>Google Calendar and Tasks connected</h1>
	<p>You can close this window and return to the terminal.</p>
</body>
</html>
`)
}

// TokenToJSON serializes a token to JSON
func TokenToJSON(token *oauth2.Token) ([]byte, error) {
	return json.Marshal(token)
}

// TokenFromJSON deserializes a token from JSON
func TokenFromJSON(data []byte) (*oauth2.Token, error) {
	var token oauth2.Token
	if err := json.Unmarshal(data, &token); err != nil {
		return nil, err
	}
	return &token, nil
}
