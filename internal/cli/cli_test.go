package cli

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/smartscheduler/smartscheduler/internal/core"
	"github.com/smartscheduler/smartscheduler/internal/testutil/mockservers"
)

// isolate points every setting the CLI reads at test-owned values.
func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("SMARTSCHEDULER_DATA_DIR", dir)
	t.Setenv("SMARTSCHEDULER_BACKEND", "local")
	t.Setenv("SMARTSCHEDULER_LOG_LEVEL", "error")
	t.Setenv("GOOGLE_API_KEY", "test-key")

	// Set-but-empty values would still be parsed, so clear them instead.
	for _, key := range []string{
		"SMARTSCHEDULER_LLM_PROVIDER",
		"SMARTSCHEDULER_LLM_BASE_URL",
		"SMARTSCHEDULER_TIMEZONE",
		"EMAIL_ADDRESS",
		"EMAIL_PASSWORD",
		"EMAIL_HOST",
		"EMAIL_PORT",
	} {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}
	return dir
}

func run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	app := &App{
		In:      strings.NewReader(stdin),
		Out:     &out,
		Err:     &errOut,
		Version: "test",
	}
	root := NewRootCommand(app)
	root.SetArgs(append([]string{"--env-file", filepath.Join(t.TempDir(), "missing.env")}, args...))
	err := root.Execute()
	return out.String(), err
}

func TestRequest_AddTask(t *testing.T) {
	isolate(t)
	gemini := mockservers.NewGeminiMockServer(t, `{
		"task_details": {"title": "Pay rent", "due_date": "tomorrow", "category": "personal", "action": "add"},
		"action": "add",
		"confirmation_message": "Rent reminder saved."
	}`)
	t.Setenv("SMARTSCHEDULER_LLM_BASE_URL", gemini.URL())

	out, err := run(t, "Add a task to pay rent tomorrow\n")
	if err != nil {
		t.Fatalf("Execute() error = %v\n%s", err, out)
	}

	for _, want := range []string{"Task added. ID:", "Reminder scheduled on calendar:", "Rent reminder saved."} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
	if calls := gemini.Calls(); len(calls) != 1 || !strings.Contains(calls[0], "pay rent") {
		t.Errorf("model calls = %v", calls)
	}
}

func TestRequest_MeetingSendsConfirmation(t *testing.T) {
	isolate(t)
	smtp := mockservers.NewSMTPMockServer(t)
	t.Setenv("EMAIL_ADDRESS", "me@example.com")
	t.Setenv("EMAIL_HOST", smtp.Host())
	t.Setenv("EMAIL_PORT", strconv.Itoa(smtp.Port()))

	gemini := mockservers.NewGeminiMockServer(t, `{
		"meeting_details": {"attendees": ["john@acme.io"], "date_time": "tomorrow at 3pm", "purpose": "Budget review"}
	}`)
	t.Setenv("SMARTSCHEDULER_LLM_BASE_URL", gemini.URL())

	out, err := run(t, "Book a budget review with john@acme.io tomorrow at 3pm\n")
	if err != nil {
		t.Fatalf("Execute() error = %v\n%s", err, out)
	}
	if !strings.Contains(out, "Meeting scheduled") || !strings.Contains(out, "smartscheduler://event/") {
		t.Errorf("output = %s", out)
	}

	msgs := smtp.Messages()
	if len(msgs) != 1 {
		t.Fatalf("sent %d emails, want 1", len(msgs))
	}
	if len(msgs[0].To) != 1 || msgs[0].To[0] != "john@acme.io" {
		t.Errorf("To = %v", msgs[0].To)
	}
	if !strings.Contains(msgs[0].Data, "Meeting Confirmation - Budget review") {
		t.Errorf("message = %s", msgs[0].Data)
	}
}

func TestRequest_Failures(t *testing.T) {
	tests := []struct {
		name      string
		stdin     string
		reply     string
		want      string
		wantCalls int
	}{
		{"empty input", "\n", "{}", "Please type a request.", 0},
		{"no newline", "", "{}", "Please type a request.", 0},
		{"unparseable reply", "do the thing\n", "I am not sure what you mean.", "Failed to parse input", 1},
		{"nothing extracted", "hello\n", `{"meeting_details": {}, "task_details": {}}`, "Could not extract any valid task or meeting information", 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			isolate(t)
			gemini := mockservers.NewGeminiMockServer(t, tt.reply)
			t.Setenv("SMARTSCHEDULER_LLM_BASE_URL", gemini.URL())

			out, err := run(t, tt.stdin)
			if err == nil || !Reported(err) {
				t.Fatalf("Execute() error = %v, want a reported error", err)
			}
			if !strings.Contains(out, tt.want) {
				t.Errorf("output missing %q:\n%s", tt.want, out)
			}
			if n := len(gemini.Calls()); n != tt.wantCalls {
				t.Errorf("model calls = %d, want %d", n, tt.wantCalls)
			}
		})
	}
}

func TestRequest_EmptyInputIsMissingField(t *testing.T) {
	isolate(t)

	_, err := run(t, "   \n")
	if !errors.Is(err, core.ErrMissingRequiredField) {
		t.Errorf("error = %v, want ErrMissingRequiredField", err)
	}
}

func TestRequest_ModelUnavailable(t *testing.T) {
	isolate(t)
	gemini := mockservers.NewGeminiMockServer(t, "{}")
	gemini.Status = 503
	t.Setenv("SMARTSCHEDULER_LLM_BASE_URL", gemini.URL())

	out, err := run(t, "what's on today\n")
	if !errors.Is(err, core.ErrExtractionFailed) {
		t.Fatalf("error = %v, want ErrExtractionFailed", err)
	}
	if !strings.Contains(out, "❌") {
		t.Errorf("output = %s", out)
	}
}

func TestCheckEmail(t *testing.T) {
	isolate(t)

	out, err := run(t, "", "check-email")
	if err == nil || !strings.Contains(out, "Email is not configured") {
		t.Errorf("unconfigured: err = %v, out = %s", err, out)
	}

	smtp := mockservers.NewSMTPMockServer(t)
	t.Setenv("EMAIL_ADDRESS", "me@example.com")
	t.Setenv("EMAIL_HOST", smtp.Host())
	t.Setenv("EMAIL_PORT", strconv.Itoa(smtp.Port()))

	out, err = run(t, "", "check-email")
	if err != nil {
		t.Fatalf("check-email error = %v\n%s", err, out)
	}
	if !strings.Contains(out, "Login successful.") {
		t.Errorf("output = %s", out)
	}
	if n := len(smtp.Messages()); n != 0 {
		t.Errorf("check-email sent %d messages", n)
	}
}

func TestInit(t *testing.T) {
	dir := isolate(t)
	t.Setenv("SMARTSCHEDULER_TIMEZONE", "Europe/Berlin")

	out, err := run(t, "", "init")
	if err != nil {
		t.Fatalf("init error = %v", err)
	}
	path := filepath.Join(dir, "config.json")
	if !strings.Contains(out, path) {
		t.Errorf("output = %s", out)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "Europe/Berlin") || strings.Contains(string(data), "test-key") {
		t.Errorf("config = %s", data)
	}
}

func TestAuth_RequiresClientCredentials(t *testing.T) {
	isolate(t)
	t.Setenv("GOOGLE_OAUTH_CREDENTIALS", filepath.Join(t.TempDir(), "none.json"))
	t.Setenv("GOOGLE_CLIENT_ID", "")
	t.Setenv("GOOGLE_CLIENT_SECRET", "")

	out, err := run(t, "", "auth")
	if !errors.Is(err, core.ErrNotAuthorized) {
		t.Errorf("error = %v, want ErrNotAuthorized", err)
	}
	if !strings.Contains(out, "GOOGLE_CLIENT_ID") {
		t.Errorf("output = %s", out)
	}
}

func TestVersion(t *testing.T) {
	t.Setenv("SMARTSCHEDULER_TIMEZONE", "Not/AZone")

	out, err := run(t, "", "version")
	if err != nil {
		t.Fatalf("version error = %v", err)
	}
	if strings.TrimSpace(out) != "smartscheduler test" {
		t.Errorf("output = %q", out)
	}
}
