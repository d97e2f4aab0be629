package conversation

import (
	"context"
	"errors"
	"time"

	"github.com/neorisk-server/internal/domain"
)

// ErrSessionStoreUnavailable is returned when the backing store cannot be reached.
var ErrSessionStoreUnavailable = errors.New("session store unavailable")

// ErrSessionConflict is returned by Save when the stored session changed
// since it was loaded.
var ErrSessionConflict = errors.New("session changed concurrently")

// Session is the sequential-entry state of one chat.
type Session struct {
	ChatID    string                          `json:"chat_id"`
	Values    map[domain.ParameterKey]float64 `json:"values"`
	Step      int                             `json:"step"`
	Revision  int64                           `json:"revision"`
	UpdatedAt time.Time                       `json:"updated_at"`
}

// NewSession creates an empty session positioned at the first parameter.
func NewSession(chatID string) *Session {
	return &Session{
		ChatID:    chatID,
		Values:    make(map[domain.ParameterKey]float64, domain.ParameterCount),
		UpdatedAt: time.Now().UTC(),
	}
}

// Current returns the parameter awaiting entry.
func (s *Session) Current() (domain.ParameterKey, bool) {
	if s.Step < 0 || s.Step >= len(domain.ParameterOrder) {
		return "", false
	}
	return domain.ParameterOrder[s.Step], true
}

// InProgress reports whether sequential entry has started and not finished.
func (s *Session) InProgress() bool {
	return s.Step > 0 && !s.Complete()
}

// Accept records the value for the current parameter and advances.
func (s *Session) Accept(value float64) {
	key, ok := s.Current()
	if !ok {
		return
	}
	s.Values[key] = value
	s.Step++
	s.UpdatedAt = time.Now().UTC()
}

// Complete reports whether all seven values are collected.
func (s *Session) Complete() bool {
	return s.Step >= domain.ParameterCount
}

// Input returns the collected values as an assessment input.
func (s *Session) Input() domain.AssessmentInput {
	input := make(domain.AssessmentInput, len(s.Values))
	for k, v := range s.Values {
		input[k] = v
	}
	return input
}

// Clone returns a deep copy.
func (s *Session) Clone() *Session {
	c := *s
	c.Values = make(map[domain.ParameterKey]float64, len(s.Values))
	for k, v := range s.Values {
		c.Values[k] = v
	}
	return &c
}

// SessionStore persists per-chat sessions between turns. Load returns
// (nil, nil) when the chat has no session. Save is a compare-and-set on
// Revision: it succeeds only while the stored revision equals the session's
// (a missing session counts as revision 0), then bumps session.Revision.
// Otherwise it returns ErrSessionConflict and stores nothing.
type SessionStore interface {
	Load(ctx context.Context, chatID string) (*Session, error)
	Save(ctx context.Context, session *Session) error
	Delete(ctx context.Context, chatID string) error
}
