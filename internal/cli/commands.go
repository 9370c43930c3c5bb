package cli

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/smartscheduler/smartscheduler/internal/assistant"
	"github.com/smartscheduler/smartscheduler/internal/auth"
	"github.com/smartscheduler/smartscheduler/internal/email"
	"github.com/smartscheduler/smartscheduler/internal/storage"
)

// authCmd runs the Google OAuth flow and caches the token
func authCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "auth",
		Short: "Authorize access to Google Calendar and Tasks",
		Long: `Opens the Google consent page and stores the resulting token in the
local database. Set SMARTSCHEDULER_TOKEN_PASSPHRASE to encrypt it.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			p := newPrinter(app.Out)

			oauth, err := assistant.OAuthClient(app.cfg)
			if err != nil {
				p.fail("%v", err)
				return reportedError{err}
			}

			db, err := storage.Open(storage.Config{Path: app.cfg.DBPath()})
			if err != nil {
				return err
			}
			defer db.Close()
			if err := db.Migrate(); err != nil {
				return fmt.Errorf("migrate: %w", err)
			}

			cache := storage.NewCredentialStore(db, app.cfg.Google.TokenPassphrase)
			if _, err := auth.Authorize(cmd.Context(), oauth, cache, app.Out); err != nil {
				p.fail("Authorization failed: %v", err)
				return reportedError{err}
			}

			p.ok("Google access authorized. Token saved to %s", app.cfg.DBPath())
			return nil
		},
	}
}

// checkEmailCmd verifies the SMTP settings by logging in
func checkEmailCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "check-email",
		Short: "Test the SMTP login used for confirmation emails",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			p := newPrinter(app.Out)

			if !app.cfg.Email.Enabled {
				err := fmt.Errorf("email is not configured")
				p.fail("Email is not configured. Set EMAIL_ADDRESS, EMAIL_PASSWORD and EMAIL_HOST.")
				return reportedError{err}
			}

			sender := email.NewSender(email.FromConfig(app.cfg.Email))
			if err := sender.TestConnection(cmd.Context()); err != nil {
				p.fail("Login failed: %v", err)
				return reportedError{err}
			}

			p.ok("Login successful.")
			return nil
		},
	}
}

// initCmd writes the effective configuration to disk
func initCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Write the current configuration to the config file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path := app.configPath
			if path == "" {
				path = filepath.Join(app.cfg.DataDir, "config.json")
			}
			if err := app.cfg.Save(path); err != nil {
				return fmt.Errorf("save config: %w", err)
			}

			newPrinter(app.Out).ok("Configuration written to %s", path)
			fmt.Fprintln(app.Out, "\nNext steps:")
			fmt.Fprintln(app.Out, "   smartscheduler auth         - Authorize Google Calendar and Tasks")
			fmt.Fprintln(app.Out, "   smartscheduler check-email  - Test confirmation email settings")
			fmt.Fprintln(app.Out, "   smartscheduler              - Make a request")
			return nil
		},
	}
}

// versionCmd shows version info
func versionCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Args:  cobra.NoArgs,
		// Needs no configuration
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return nil },
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(app.Out, "smartscheduler %s\n", app.Version)
		},
	}
}
