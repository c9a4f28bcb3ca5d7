package auth

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/hackgods/clinic-appointments/internal/audit"
	"github.com/hackgods/clinic-appointments/internal/clinic"
)

var (
	ErrEmailRequired = errors.New("email is required")
	ErrNameRequired  = errors.New("first name and last name are required")
)

// ResolveProfileUser decides which user a provider profile signs in as.
// A known user only gets its last login refreshed. Otherwise a new user is
// built from the profile: admin when its email is in admins, doctor otherwise.
// The returned bool reports whether the user is new.
func ResolveProfileUser(existing *clinic.User, p Profile, admins []string, now time.Time) (*clinic.User, bool, error) {
	if existing != nil {
		existing.LastLogin = &now
		return existing, false, nil
	}

	email := strings.ToLower(strings.TrimSpace(p.Email))
	if email == "" {
		return nil, false, ErrEmailRequired
	}
	if p.GivenName == "" || p.FamilyName == "" {
		return nil, false, ErrNameRequired
	}

	role := clinic.RoleDoctor
	if slices.Contains(admins, email) {
		role = clinic.RoleAdmin
	}

	return &clinic.User{
		GoogleID:  p.ID,
		FirstName: p.GivenName,
		LastName:  p.FamilyName,
		Email:     email,
		Picture:   p.Picture,
		Role:      role,
		LastLogin: &now,
	}, true, nil
}

// Linker maps provider profiles onto stored users.
type Linker struct {
	users  clinic.UserRepository
	audit  audit.Recorder
	admins []string
	now    func() time.Time
}

func NewLinker(users clinic.UserRepository, rec audit.Recorder, admins []string) *Linker {
	return &Linker{
		users:  users,
		audit:  rec,
		admins: admins,
		now:    func() time.Time { return time.Now().UTC().Truncate(time.Millisecond) },
	}
}

func (l *Linker) FindOrCreate(ctx context.Context, p Profile) (*clinic.User, error) {
	existing, err := l.users.GetUserByGoogleID(ctx, p.ID)
	if err != nil {
		if !errors.Is(err, clinic.ErrUserNotFound) {
			return nil, fmt.Errorf("find user by google id: %w", err)
		}
		existing = nil
	}

	u, isNew, err := ResolveProfileUser(existing, p, l.admins, l.now())
	if err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Str("google_id", p.ID).Msg("incomplete google profile")
		return nil, err
	}

	if !isNew {
		if err := l.users.TouchLastLogin(ctx, u.ID, *u.LastLogin); err != nil {
			return nil, fmt.Errorf("touch last login: %w", err)
		}
		l.audit.Record(ctx, audit.Event{Type: audit.EventUserLoggedIn, EntityID: u.ID.Hex(),
			Payload: map[string]any{"channel": "google"}})
		return u, nil
	}

	if err := l.users.CreateUser(ctx, u); err != nil {
		return nil, fmt.Errorf("create google user: %w", err)
	}
	l.audit.Record(ctx, audit.Event{Type: audit.EventUserLinkedOAuth, EntityID: u.ID.Hex(),
		Payload: map[string]any{"email": u.Email, "role": u.Role}})
	return u, nil
}
