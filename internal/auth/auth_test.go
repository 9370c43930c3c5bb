package auth

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"golang.org/x/oauth2"

	"github.com/smartscheduler/smartscheduler/internal/core"
)

type memCache struct {
	data   map[string][]byte
	stores int
}

func newMemCache() *memCache {
	return &memCache{data: make(map[string][]byte)}
}

func (c *memCache) Get(provider string) ([]byte, error) {
	return c.data[provider], nil
}

func (c *memCache) Store(provider, tokenType string, data []byte, expiresAt *time.Time) error {
	c.data[provider] = data
	c.stores++
	return nil
}

// ============================================================================
// OAuthClient Tests
// ============================================================================

func TestNewOAuthClient_FromCredentialsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "oauth_credentials.json")
	secrets := `{"installed":{"client_id":"file-id.apps.googleusercontent.com","client_secret":"file-secret",` +
		`"auth_uri":"https://accounts.google.com/o/oauth2/auth","token_uri":"https://oauth2.googleapis.com/token",` +
		`"redirect_uris":["http://localhost"]}}`
	if err := os.WriteFile(path, []byte(secrets), 0600); err != nil {
		t.Fatal(err)
	}

	client, err := NewOAuthClient(OAuthConfig{CredentialsFile: path, ClientID: "ignored", ClientSecret: "ignored"})
	if err != nil {
		t.Fatalf("NewOAuthClient() error = %v", err)
	}
	if client.config.ClientID != "file-id.apps.googleusercontent.com" {
		t.Errorf("ClientID = %q, credentials file should win", client.config.ClientID)
	}
	if client.config.RedirectURL != "http://localhost:8765/callback" {
		t.Errorf("RedirectURL = %q", client.config.RedirectURL)
	}
	if len(client.config.Scopes) != 2 {
		t.Errorf("Scopes = %v", client.config.Scopes)
	}
}

func TestNewOAuthClient_FromClientID(t *testing.T) {
	client, err := NewOAuthClient(OAuthConfig{
		CredentialsFile: filepath.Join(t.TempDir(), "missing.json"),
		ClientID:        "id",
		ClientSecret:    "secret",
		CallbackPort:    9999,
	})
	if err != nil {
		t.Fatalf("NewOAuthClient() error = %v", err)
	}
	if client.config.ClientID != "id" || client.config.RedirectURL != "http://localhost:9999/callback" {
		t.Errorf("config = %+v", client.config)
	}
}

func TestNewOAuthClient_NoCredentials(t *testing.T) {
	_, err := NewOAuthClient(OAuthConfig{ClientID: "id"})
	if !errors.Is(err, core.ErrNotAuthorized) {
		t.Errorf("NewOAuthClient() error = %v, want ErrNotAuthorized", err)
	}
}

func TestOAuthClient_GetAuthURL(t *testing.T) {
	client, err := NewOAuthClient(OAuthConfig{ClientID: "id", ClientSecret: "secret"})
	if err != nil {
		t.Fatal(err)
	}

	u, err := url.Parse(client.GetAuthURL("state-123"))
	if err != nil {
		t.Fatal(err)
	}
	q := u.Query()
	if q.Get("state") != "state-123" || q.Get("access_type") != "offline" || q.Get("client_id") != "id" {
		t.Errorf("auth URL query = %v", q)
	}
	if !strings.Contains(q.Get("scope"), "calendar") || !strings.Contains(q.Get("scope"), "tasks") {
		t.Errorf("scope = %q", q.Get("scope"))
	}
}

// ============================================================================
// LocalAuthServer Tests
// ============================================================================

func TestLocalAuthServer_Callback(t *testing.T) {
	tests := []struct {
		name     string
		query    string
		wantCode int
		wantErr  string
	}{
		{"success", "?state=s1&code=auth-code", http.StatusOK, ""},
		{"state mismatch", "?state=other&code=auth-code", http.StatusBadRequest, "state mismatch"},
		{"denied", "?state=s1&error=access_denied", http.StatusBadRequest, "access_denied"},
		{"no code", "?state=s1", http.StatusBadRequest, "unknown error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := NewLocalAuthServer("s1")
			req := httptest.NewRequest(http.MethodGet, "/callback"+tt.query, nil)
			w := httptest.NewRecorder()

			server.Router().ServeHTTP(w, req)

			if w.Code != tt.wantCode {
				t.Errorf("status = %d, want %d", w.Code, tt.wantCode)
			}

			code, err := server.WaitForCode(context.Background(), time.Second)
			if tt.wantErr == "" {
				if err != nil || code != "auth-code" {
					t.Errorf("WaitForCode() = %q, %v", code, err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("WaitForCode() error = %v, want %q", err, tt.wantErr)
			}
		})
	}
}

func TestLocalAuthServer_WaitForCode_Timeout(t *testing.T) {
	server := NewLocalAuthServer("s1")

	_, err := server.WaitForCode(context.Background(), 10*time.Millisecond)
	if err == nil || !strings.Contains(err.Error(), "timeout") {
		t.Errorf("WaitForCode() error = %v, want timeout", err)
	}
}

func TestLocalAuthServer_WaitForCode_Cancelled(t *testing.T) {
	server := NewLocalAuthServer("s1")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := server.WaitForCode(ctx, time.Minute); !errors.Is(err, context.Canceled) {
		t.Errorf("WaitForCode() error = %v, want context.Canceled", err)
	}
}

func TestLocalAuthServer_Stop_NilServer(t *testing.T) {
	if err := NewLocalAuthServer("s").Stop(context.Background()); err != nil {
		t.Errorf("Stop() error = %v", err)
	}
}

// ============================================================================
// Session Tests
// ============================================================================

func TestNewSession_NoTokenNonInteractive(t *testing.T) {
	client, _ := NewOAuthClient(OAuthConfig{ClientID: "id", ClientSecret: "secret"})

	_, err := NewSession(context.Background(), client, newMemCache(), SessionOptions{Out: io.Discard})
	if !errors.Is(err, core.ErrNotAuthorized) {
		t.Errorf("NewSession() error = %v, want ErrNotAuthorized", err)
	}
}

func TestNewSession_UsesCachedToken(t *testing.T) {
	var gotAuth string
	api := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
	}))
	defer api.Close()

	cache := newMemCache()
	data, _ := TokenToJSON(&oauth2.Token{AccessToken: "cached", TokenType: "Bearer", Expiry: time.Now().Add(time.Hour)})
	cache.data[Provider] = data

	client, _ := NewOAuthClient(OAuthConfig{ClientID: "id", ClientSecret: "secret"})
	session, err := NewSession(context.Background(), client, cache, SessionOptions{})
	if err != nil {
		t.Fatalf("NewSession() error = %v", err)
	}

	resp, err := session.HTTPClient().Get(api.URL)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()

	if gotAuth != "Bearer cached" {
		t.Errorf("Authorization = %q", gotAuth)
	}
	if cache.stores != 0 {
		t.Errorf("valid token should not be rewritten, stores = %d", cache.stores)
	}
}

func TestNewSession_PersistsRefreshedToken(t *testing.T) {
	tokenServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		r.ParseForm()
		if r.Form.Get("grant_type") != "refresh_token" || r.Form.Get("refresh_token") != "refresh-1" {
			http.Error(w, "bad grant", http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"access_token":"fresh","token_type":"Bearer","expires_in":3600}`)
	}))
	defer tokenServer.Close()

	cache := newMemCache()
	data, _ := TokenToJSON(&oauth2.Token{
		AccessToken:  "stale",
		RefreshToken: "refresh-1",
		TokenType:    "Bearer",
		Expiry:       time.Now().Add(-time.Hour),
	})
	cache.data[Provider] = data

	client, err := NewOAuthClient(OAuthConfig{
		ClientID:     "id",
		ClientSecret: "secret",
		Endpoint:     oauth2.Endpoint{AuthURL: tokenServer.URL + "/auth", TokenURL: tokenServer.URL + "/token"},
	})
	if err != nil {
		t.Fatal(err)
	}

	session, err := NewSession(context.Background(), client, cache, SessionOptions{})
	if err != nil {
		t.Fatalf("NewSession() error = %v", err)
	}

	token, err := session.Token()
	if err != nil {
		t.Fatalf("Token() error = %v", err)
	}
	if token.AccessToken != "fresh" {
		t.Errorf("AccessToken = %q, want fresh", token.AccessToken)
	}

	saved, err := TokenFromJSON(cache.data[Provider])
	if err != nil {
		t.Fatal(err)
	}
	if saved.AccessToken != "fresh" || saved.RefreshToken != "refresh-1" {
		t.Errorf("cached token = %+v, want refreshed token keeping the refresh token", saved)
	}
}
