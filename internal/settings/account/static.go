package account

import (
	"context"
	"sync"
)

// StaticService keeps a single summary in memory. It backs local development
// and tests when no chat backend is configured.
type StaticService struct {
	mu      sync.RWMutex
	summary Summary
}

// NewStaticService seeds the service. A nil summary starts with an online placeholder user.
func NewStaticService(summary *Summary) *StaticService {
	s := &StaticService{summary: Summary{UserID: "local", Username: "local", Presence: PresenceOnline}}
	if summary != nil {
		s.summary = *summary
	}
	return s
}

// Summary returns a copy of the stored summary.
func (s *StaticService) Summary(ctx context.Context, token string) (*Summary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := s.summary
	return &out, nil
}

// SetStatusText stores the sanitized status text.
func (s *StaticService) SetStatusText(ctx context.Context, token, text string) (*Summary, error) {
	s.mu.Lock()
	s.summary.StatusText = SanitizeStatusText(text)
	out := s.summary
	s.mu.Unlock()
	return &out, nil
}

// ClearStatusText drops the status text.
func (s *StaticService) ClearStatusText(ctx context.Context, token string) (*Summary, error) {
	return s.SetStatusText(ctx, token, "")
}

// SetPresence stores the presence after validating it.
func (s *StaticService) SetPresence(ctx context.Context, token string, presence Presence) (*Summary, error) {
	if _, err := ParsePresence(string(presence)); err != nil {
		return nil, err
	}
	s.mu.Lock()
	s.summary.Presence = presence
	out := s.summary
	s.mu.Unlock()
	return &out, nil
}
