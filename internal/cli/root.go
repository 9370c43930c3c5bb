// Package cli implements the smartscheduler command line.
package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/smartscheduler/smartscheduler/internal/assistant"
	"github.com/smartscheduler/smartscheduler/internal/config"
	"github.com/smartscheduler/smartscheduler/internal/core"
	"github.com/smartscheduler/smartscheduler/internal/logging"
)

// App holds the streams and settings shared by all commands.
type App struct {
	In      io.Reader
	Out     io.Writer
	Err     io.Writer
	Version string

	// Options are passed to every runtime the commands open.
	Options assistant.Options

	configPath string
	envFile    string
	cfg        *config.Config
}

// reportedError marks an error already shown to the user.
type reportedError struct{ error }

func (e reportedError) Unwrap() error { return e.error }

// Reported reports whether err was already printed by a command.
func Reported(err error) bool {
	var r reportedError
	return errors.As(err, &r)
}

// NewRootCommand builds the command tree.
func NewRootCommand(app *App) *cobra.Command {
	if app.In == nil {
		app.In = os.Stdin
	}
	if app.Out == nil {
		app.Out = os.Stdout
	}
	if app.Err == nil {
		app.Err = os.Stderr
	}

	root := &cobra.Command{
		Use:   "smartscheduler",
		Short: "SmartScheduler - schedule meetings and tasks in plain language",
		Long: `SmartScheduler reads one request such as

  "Reschedule my sync with john@acme.io to Friday 3pm"
  "Add a task to renew my passport tomorrow and show my tasks"
  "What's on today?"

works out what you meant and updates your calendar and task list.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return app.loadConfig()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.runRequest(cmd)
		},
	}

	root.PersistentFlags().StringVar(&app.configPath, "config", "", "config file (default <data dir>/config.json)")
	root.PersistentFlags().StringVar(&app.envFile, "env-file", ".env", "dotenv file loaded before reading the environment")

	root.SetIn(app.In)
	root.SetOut(app.Out)
	root.SetErr(app.Err)

	root.AddCommand(authCmd(app))
	root.AddCommand(checkEmailCmd(app))
	root.AddCommand(initCmd(app))
	root.AddCommand(versionCmd(app))

	return root
}

func (app *App) loadConfig() error {
	if err := config.LoadEnvFile(app.envFile); err != nil {
		return fmt.Errorf("load %s: %w", app.envFile, err)
	}
	cfg, err := config.Load(app.configPath)
	if err != nil {
		return err
	}
	app.cfg = cfg

	logging.SetOutput(app.Err)
	logging.SetLevel(logging.ParseLevel(cfg.LogLevel))
	return nil
}

// runRequest prompts once, handles the request and prints the outcome.
func (app *App) runRequest(cmd *cobra.Command) error {
	ctx := cmd.Context()
	p := newPrinter(app.Out)
	interactive := isTerminal(app.In)

	if interactive {
		fmt.Fprintln(app.Out, "📅 Welcome to SmartScheduler!")
		fmt.Fprint(app.Out, "What would you like to do? ")
	}
	text, err := readLine(app.In)
	if err != nil {
		return fmt.Errorf("read request: %w", err)
	}
	if text == "" {
		p.fail("Please type a request.")
		return reportedError{fmt.Errorf("%w: request text", core.ErrMissingRequiredField)}
	}

	opts := app.Options
	opts.Interactive = interactive
	if opts.Out == nil {
		opts.Out = app.Out
	}

	rt, err := assistant.Open(ctx, app.cfg, opts)
	if err != nil {
		p.fail("%s", assistant.Describe(err))
		logging.Debug("open runtime: %v", err)
		return reportedError{err}
	}
	defer rt.Close()

	resp, err := rt.Assistant.Handle(ctx, text)
	p.lines(assistant.Report(resp))
	if err != nil {
		p.fail("%s", assistant.Describe(err))
		logging.Debug("handle %q: %v", text, err)
		return reportedError{err}
	}
	return nil
}

func readLine(r io.Reader) (string, error) {
	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

func isTerminal(r io.Reader) bool {
	f, ok := r.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}
