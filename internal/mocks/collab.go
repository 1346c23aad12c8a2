package mocks

import (
	"database/sql"
	"sync"
	"time"

	"github.com/PaschalTrueFans/tf-backend-sub000/internal/apperrors"
	"github.com/PaschalTrueFans/tf-backend-sub000/internal/notifier"
)

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullTimeNow() sql.NullTime {
	return sql.NullTime{Time: time.Now(), Valid: true}
}

// FakeNotifier records published events for assertions.
type FakeNotifier struct {
	mu     sync.Mutex
	Events []notifier.Event
	Err    error
}

func (n *FakeNotifier) Notify(event notifier.Event) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.Err != nil {
		return n.Err
	}
	n.Events = append(n.Events, event)
	return nil
}

func (n *FakeNotifier) ByKind(kind string) []notifier.Event {
	n.mu.Lock()
	defer n.mu.Unlock()

	var matched []notifier.Event
	for _, event := range n.Events {
		if event.Kind == kind {
			matched = append(matched, event)
		}
	}
	return matched
}

// FakeCodeStore is a map-backed stand-in for the redis cache, honoring
// expirations against the wall clock.
type FakeCodeStore struct {
	mu     sync.Mutex
	values map[string]storedValue
}

type storedValue struct {
	value     string
	expiresAt time.Time
}

func NewFakeCodeStore() *FakeCodeStore {
	return &FakeCodeStore{values: map[string]storedValue{}}
}

func (s *FakeCodeStore) Set(key, value string, expiration time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.values[key] = storedValue{value: value, expiresAt: time.Now().Add(expiration)}
	return nil
}

func (s *FakeCodeStore) Get(key string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.values[key]
	if !ok || time.Now().After(stored.expiresAt) {
		return "", false, nil
	}
	return stored.value, true, nil
}

func (s *FakeCodeStore) Exists(key string) (bool, error) {
	_, found, err := s.Get(key)
	return found, err
}

func (s *FakeCodeStore) Delete(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.values, key)
	return nil
}

// Expire forces a key past its TTL without waiting.
func (s *FakeCodeStore) Expire(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if stored, ok := s.values[key]; ok {
		stored.expiresAt = time.Now().Add(-time.Second)
		s.values[key] = stored
	}
}

// FakeMailer records outbound emails.
type FakeMailer struct {
	mu   sync.Mutex
	Sent []SentEmail
	Err  error
}

type SentEmail struct {
	Recipient string
	Data      any
	Patterns  []string
}

func (m *FakeMailer) Send(recipient string, data any, patterns ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.Err != nil {
		return m.Err
	}
	m.Sent = append(m.Sent, SentEmail{Recipient: recipient, Data: data, Patterns: patterns})
	return nil
}

// FakeUserDirectory resolves user emails from a fixed map.
type FakeUserDirectory struct {
	Emails map[string]string
}

func (d *FakeUserDirectory) Email(userID string) (string, error) {
	email, ok := d.Emails[userID]
	if !ok {
		return "", apperrors.ErrNotFound
	}
	return email, nil
}
