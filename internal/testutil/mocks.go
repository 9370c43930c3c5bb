package testutil

import (
	"context"
	"sync"

	"github.com/smartscheduler/smartscheduler/internal/backend"
	"github.com/smartscheduler/smartscheduler/internal/core"
)

// FlakyEventStore wraps an EventStore and fails selected operations.
// A nil error field lets the call through.
type FlakyEventStore struct {
	backend.EventStore

	ListErr   error
	CreateErr error
	UpdateErr error
	DeleteErr error

	mu          sync.Mutex
	CreateCalls int
	DeleteCalls int
}

func (s *FlakyEventStore) ListEvents(ctx context.Context, q backend.EventQuery) ([]core.CalendarEvent, error) {
	if s.ListErr != nil {
		return nil, s.ListErr
	}
	return s.EventStore.ListEvents(ctx, q)
}

func (s *FlakyEventStore) CreateEvent(ctx context.Context, spec backend.EventSpec) (*core.CalendarEvent, error) {
	s.mu.Lock()
	s.CreateCalls++
	s.mu.Unlock()
	if s.CreateErr != nil {
		return nil, s.CreateErr
	}
	return s.EventStore.CreateEvent(ctx, spec)
}

func (s *FlakyEventStore) UpdateEvent(ctx context.Context, id string, patch backend.EventPatch) (*core.CalendarEvent, error) {
	if s.UpdateErr != nil {
		return nil, s.UpdateErr
	}
	return s.EventStore.UpdateEvent(ctx, id, patch)
}

func (s *FlakyEventStore) DeleteEvent(ctx context.Context, id string) error {
	s.mu.Lock()
	s.DeleteCalls++
	s.mu.Unlock()
	if s.DeleteErr != nil {
		return s.DeleteErr
	}
	return s.EventStore.DeleteEvent(ctx, id)
}

// FlakyTaskStore wraps a TaskStore and fails selected operations.
type FlakyTaskStore struct {
	backend.TaskStore

	ListErr   error
	CreateErr error
	GetErr    error
	UpdateErr error
	DeleteErr error

	mu          sync.Mutex
	UpdateCalls int
}

func (s *FlakyTaskStore) ListTasks(ctx context.Context, f backend.TaskFilter) ([]core.Task, error) {
	if s.ListErr != nil {
		return nil, s.ListErr
	}
	return s.TaskStore.ListTasks(ctx, f)
}

func (s *FlakyTaskStore) CreateTask(ctx context.Context, spec backend.TaskSpec) (*core.Task, error) {
	if s.CreateErr != nil {
		return nil, s.CreateErr
	}
	return s.TaskStore.CreateTask(ctx, spec)
}

func (s *FlakyTaskStore) GetTask(ctx context.Context, id string) (*core.Task, error) {
	if s.GetErr != nil {
		return nil, s.GetErr
	}
	return s.TaskStore.GetTask(ctx, id)
}

func (s *FlakyTaskStore) UpdateTask(ctx context.Context, id string, patch backend.TaskPatch) (*core.Task, error) {
	s.mu.Lock()
	s.UpdateCalls++
	s.mu.Unlock()
	if s.UpdateErr != nil {
		return nil, s.UpdateErr
	}
	return s.TaskStore.UpdateTask(ctx, id, patch)
}

func (s *FlakyTaskStore) DeleteTask(ctx context.Context, id string) error {
	if s.DeleteErr != nil {
		return s.DeleteErr
	}
	return s.TaskStore.DeleteTask(ctx, id)
}

// SentConfirmation is one call recorded by MockNotifier.
type SentConfirmation struct {
	Recipients []string
	Subject    string
	Body       string
}

// MockNotifier records confirmations and optionally fails.
type MockNotifier struct {
	Err error

	mu   sync.Mutex
	Sent []SentConfirmation
}

// SendConfirmation records the call and returns Err.
func (m *MockNotifier) SendConfirmation(ctx context.Context, recipients []string, subject, body string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Sent = append(m.Sent, SentConfirmation{
		Recipients: append([]string(nil), recipients...),
		Subject:    subject,
		Body:       body,
	})
	return m.Err
}

// MockCompleter returns canned model replies in order; the last one repeats.
type MockCompleter struct {
	Replies []string
	Err     error

	mu    sync.Mutex
	Calls []string
}

// Chat records the user message and returns the next reply.
func (m *MockCompleter) Chat(ctx context.Context, system, userMessage string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls = append(m.Calls, userMessage)
	if m.Err != nil {
		return "", m.Err
	}
	if len(m.Replies) == 0 {
		return "", nil
	}
	i := len(m.Calls) - 1
	if i >= len(m.Replies) {
		i = len(m.Replies) - 1
	}
	return m.Replies[i], nil
}
