package auth

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"golang.org/x/oauth2"

	"github.com/smartscheduler/smartscheduler/internal/core"
	"github.com/smartscheduler/smartscheduler/internal/logging"
)

// Provider is the credential store key for the Google token.
const Provider = "google"

// TokenCache persists the OAuth token between runs.
type TokenCache interface {
	Get(provider string) ([]byte, error)
	Store(provider, tokenType string, data []byte, expiresAt *time.Time) error
}

// SessionOptions controls how a session is obtained.
type SessionOptions struct {
	// Interactive allows running the browser flow when no token is cached.
	Interactive bool
	// Out receives the authorization prompt.
	Out io.Writer
}

// Session is an authorized connection to Google, built once per process and
// handed to the stores.
type Session struct {
	client *http.Client
	source oauth2.TokenSource
}

// NewSession loads the cached token, running the OAuth flow first when there
// is none and opts allows it. Refreshed tokens are written back to cache.
func NewSession(ctx context.Context, oauth *OAuthClient, cache TokenCache, opts SessionOptions) (*Session, error) {
	token, err := loadToken(cache)
	if err != nil {
		return nil, err
	}

	if token == nil {
		if !opts.Interactive {
			return nil, fmt.Errorf("%w: %w: no Google token cached, run `smartscheduler auth`", core.ErrStoreUnavailable, core.ErrNotAuthorized)
		}
		if token, err = Authorize(ctx, oauth, cache, opts.Out); err != nil {
			return nil, err
		}
	}

	source := oauth2.ReuseTokenSource(token, &persistingSource{
		base:  oauth.TokenSource(ctx, token),
		cache: cache,
		last:  token.AccessToken,
		log:   logging.WithField("component", "auth"),
	})

	return &Session{
		client: oauth2.NewClient(ctx, source),
		source: source,
	}, nil
}

// Authorize runs the browser flow and caches the resulting token.
func Authorize(ctx context.Context, oauth *OAuthClient, cache TokenCache, out io.Writer) (*oauth2.Token, error) {
	token, err := oauth.StartOAuthFlow(ctx, out)
	if err != nil {
		return nil, err
	}
	if err := saveToken(cache, token); err != nil {
		return nil, err
	}
	return token, nil
}

// HTTPClient returns a client that authorizes every request.
func (s *Session) HTTPClient() *http.Client {
	return s.client
}

// Token returns a valid token, refreshing it if needed.
func (s *Session) Token() (*oauth2.Token, error) {
	return s.source.Token()
}

func loadToken(cache TokenCache) (*oauth2.Token, error) {
	data, err := cache.Get(Provider)
	if err != nil {
		return nil, fmt.Errorf("load token: %w", err)
	}
	if data == nil {
		return nil, nil
	}
	token, err := TokenFromJSON(data)
	if err != nil {
		return nil, fmt.Errorf("decode cached token: %w", err)
	}
	return token, nil
}

func saveToken(cache TokenCache, token *oauth2.Token) error {
	data, err := TokenToJSON(token)
	if err != nil {
		return fmt.Errorf("encode token: %w", err)
	}
	var expiry *time.Time
	if !token.Expiry.IsZero() {
		expiry = &token.Expiry
	}
	if err := cache.Store(Provider, token.Type(), data, expiry); err != nil {
		return fmt.Errorf("save token: %w", err)
	}
	return nil
}

// persistingSource writes every newly minted token back to the cache.
type persistingSource struct {
	mu    sync.Mutex
	base  oauth2.TokenSource
	cache TokenCache
	last  string
	log   *logging.Logger
}

func (p *persistingSource) Token() (*oauth2.Token, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	token, err := p.base.Token()
	if err != nil {
		return nil, fmt.Errorf("%w: %w: refresh token: %w", core.ErrStoreUnavailable, core.ErrNotAuthorized, err)
	}
	if token.AccessToken != p.last {
		// A failed save only costs a refresh on the next run
		if err := saveToken(p.cache, token); err != nil {
			p.log.Warn("could not persist refreshed token: %v", err)
		} else {
			p.log.Debug("persisted refreshed token")
		}
		p.last = token.AccessToken
	}
	return token, nil
}
