// Package authtest provides in-memory stand-ins for the session store and identity provider.
package authtest

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"

	"github.com/hackgods/clinic-appointments/internal/auth"
	redisclient "github.com/hackgods/clinic-appointments/internal/redis"
)

type Sessions struct {
	mu   sync.Mutex
	byID map[string]string
}

func NewSessions() *Sessions {
	return &Sessions{byID: make(map[string]string)}
}

func (s *Sessions) Create(_ context.Context, userID string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := uuid.NewString()
	s.byID[id] = userID
	return id, nil
}

func (s *Sessions) Lookup(_ context.Context, id string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	userID, ok := s.byID[id]
	if !ok {
		return "", redisclient.ErrSessionNotFound
	}
	return userID, nil
}

func (s *Sessions) Destroy(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.byID, id)
	return nil
}

func (s *Sessions) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.byID)
}

var ErrBadCode = errors.New("bad authorization code")

// Provider hands out Profile for the code "good" and fails every other code.
type Provider struct {
	Profile auth.Profile
}

func (p *Provider) AuthCodeURL(state string) string {
	return "https://accounts.example.test/auth?state=" + state
}

func (p *Provider) Exchange(_ context.Context, code string) (*auth.Profile, error) {
	if code != "good" {
		return nil, ErrBadCode
	}
	prof := p.Profile
	return &prof, nil
}
