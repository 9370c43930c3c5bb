package assistant

import (
	"context"
	"fmt"
	"io"

	"google.golang.org/api/option"

	"github.com/smartscheduler/smartscheduler/internal/actions"
	"github.com/smartscheduler/smartscheduler/internal/auth"
	"github.com/smartscheduler/smartscheduler/internal/backend"
	"github.com/smartscheduler/smartscheduler/internal/config"
	"github.com/smartscheduler/smartscheduler/internal/datetime"
	"github.com/smartscheduler/smartscheduler/internal/email"
	"github.com/smartscheduler/smartscheduler/internal/extraction"
	"github.com/smartscheduler/smartscheduler/internal/llm"
	gcalendar "github.com/smartscheduler/smartscheduler/internal/spaces/calendar"
	gtasks "github.com/smartscheduler/smartscheduler/internal/spaces/tasks"
	"github.com/smartscheduler/smartscheduler/internal/storage"
)

// Options adjusts how a Runtime is built.
type Options struct {
	// Interactive allows the OAuth browser flow when no token is cached.
	Interactive bool
	// Out receives authorization prompts.
	Out io.Writer

	// Completer replaces the configured language model.
	Completer llm.Completer
	// GoogleOptions are appended to the Calendar and Tasks client options.
	GoogleOptions []option.ClientOption
}

// Runtime owns everything one process needs to serve requests.
type Runtime struct {
	Assistant *Assistant
	Times     *datetime.Resolver
	DB        *storage.DB
}

// Open builds a runtime from configuration. The database is always opened:
// it holds the OAuth token for the Google backend and all data for the
// local one.
func Open(ctx context.Context, cfg *config.Config, opts Options) (*Runtime, error) {
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}

	db, err := storage.Open(storage.Config{Path: cfg.DBPath()})
	if err != nil {
		return nil, err
	}
	if err := db.Migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	rt, err := build(ctx, cfg, db, datetime.NewResolver(loc), opts)
	if err != nil {
		db.Close()
		return nil, err
	}
	return rt, nil
}

func build(ctx context.Context, cfg *config.Config, db *storage.DB, times *datetime.Resolver, opts Options) (*Runtime, error) {
	events, tasks, err := Stores(ctx, cfg, db, opts)
	if err != nil {
		return nil, err
	}

	completer := opts.Completer
	if completer == nil {
		completer, err = llm.New(llm.Provider(cfg.LLM.Provider), llm.Config{
			APIKey:  cfg.LLM.APIKey,
			BaseURL: cfg.LLM.BaseURL,
			Model:   cfg.LLM.Model,
			Timeout: cfg.LLM.Timeout,
		})
		if err != nil {
			return nil, err
		}
	}

	deps := actions.Deps{
		Events:          events,
		Tasks:           tasks,
		Times:           times,
		DefaultAttendee: cfg.DefaultAttendee,
		Conferencing:    cfg.Conferencing,
	}
	if cfg.Email.Enabled {
		deps.Notifier = email.NewSender(email.FromConfig(cfg.Email))
	}

	return &Runtime{
		Assistant: New(extraction.New(completer), deps),
		Times:     times,
		DB:        db,
	}, nil
}

// Stores returns the event and task stores for the configured backend.
func Stores(ctx context.Context, cfg *config.Config, db *storage.DB, opts Options) (backend.EventStore, backend.TaskStore, error) {
	loc, err := cfg.Location()
	if err != nil {
		return nil, nil, err
	}

	if cfg.Backend == config.BackendLocal {
		return storage.NewEventStore(db, loc), storage.NewTaskStore(db, loc), nil
	}

	oauth, err := OAuthClient(cfg)
	if err != nil {
		return nil, nil, err
	}
	session, err := auth.NewSession(ctx, oauth, storage.NewCredentialStore(db, cfg.Google.TokenPassphrase), auth.SessionOptions{
		Interactive: opts.Interactive,
		Out:         opts.Out,
	})
	if err != nil {
		return nil, nil, err
	}

	clientOpts := append([]option.ClientOption{option.WithHTTPClient(session.HTTPClient())}, opts.GoogleOptions...)

	events, err := gcalendar.NewClient(ctx, cfg.Google.CalendarID, loc, clientOpts...)
	if err != nil {
		return nil, nil, err
	}
	tasks, err := gtasks.NewClient(ctx, cfg.Google.TaskListID, loc, clientOpts...)
	if err != nil {
		return nil, nil, err
	}
	return events, tasks, nil
}

// OAuthClient builds the Google OAuth client from configuration.
func OAuthClient(cfg *config.Config) (*auth.OAuthClient, error) {
	return auth.NewOAuthClient(auth.OAuthConfig{
		CredentialsFile: cfg.Google.CredentialsFile,
		ClientID:        cfg.Google.ClientID,
		ClientSecret:    cfg.Google.ClientSecret,
		CallbackPort:    cfg.Google.CallbackPort,
	})
}

// Close releases the database.
func (r *Runtime) Close() error {
	return r.DB.Close()
}
