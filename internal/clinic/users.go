package clinic

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/hackgods/clinic-appointments/internal/audit"
	"github.com/hackgods/clinic-appointments/internal/password"
)

type UserService struct {
	repo  UserRepository
	audit audit.Recorder
}

func NewUserService(repo UserRepository, rec audit.Recorder) *UserService {
	return &UserService{repo: repo, audit: rec}
}

func (s *UserService) List(ctx context.Context) ([]User, error) {
	return s.repo.ListUsers(ctx)
}

func (s *UserService) Get(ctx context.Context, id primitive.ObjectID) (*User, error) {
	return s.repo.GetUser(ctx, id)
}

func (s *UserService) GetByEmail(ctx context.Context, email string) (*User, error) {
	return s.repo.GetUserByEmail(ctx, normalizeEmail(email))
}

func (s *UserService) Create(ctx context.Context, in SignupInput) (*User, error) {
	return s.create(ctx, in, audit.EventUserCreated)
}

// Signup is Create for a caller registering themselves.
func (s *UserService) Signup(ctx context.Context, in SignupInput) (*User, error) {
	return s.create(ctx, in, audit.EventUserSignedUp)
}

// create stores a password user from validated signup input.
// The password only ever reaches the store as a bcrypt hash.
func (s *UserService) create(ctx context.Context, in SignupInput, event string) (*User, error) {
	if _, err := s.repo.GetUserByEmail(ctx, in.Email); err == nil {
		return nil, ErrEmailTaken
	} else if !errors.Is(err, ErrUserNotFound) {
		return nil, fmt.Errorf("check email: %w", err)
	}

	hash, err := password.Hash(in.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	role := RoleUser
	if in.Role != nil {
		role = Role(*in.Role)
	}

	u := &User{
		FirstName:    in.FirstName,
		LastName:     in.LastName,
		Email:        in.Email,
		PasswordHash: hash,
		Phone:        in.Phone,
		Address:      in.Address,
		Role:         role,
	}
	if err := s.repo.CreateUser(ctx, u); err != nil {
		return nil, err
	}

	record(ctx, s.audit, event, u.ID, map[string]any{"email": u.Email, "role": u.Role})
	return u, nil
}

func (s *UserService) Update(ctx context.Context, id primitive.ObjectID, in UserUpdate) (*User, error) {
	ch := UserChanges{
		FirstName: in.FirstName,
		LastName:  in.LastName,
		Email:     in.Email,
		Phone:     in.Phone,
		Address:   in.Address,
	}
	if in.Role != nil {
		r := Role(*in.Role)
		ch.Role = &r
	}
	if in.Password != nil {
		hash, err := password.Hash(*in.Password)
		if err != nil {
			return nil, fmt.Errorf("hash password: %w", err)
		}
		ch.PasswordHash = &hash
	}

	u, err := s.repo.UpdateUser(ctx, id, ch)
	if err != nil {
		return nil, err
	}
	record(ctx, s.audit, audit.EventUserUpdated, id, nil)
	return u, nil
}

// RecordLogin refreshes the user's last login time.
func (s *UserService) RecordLogin(ctx context.Context, id primitive.ObjectID, channel string) error {
	if err := s.repo.TouchLastLogin(ctx, id, time.Now().UTC().Truncate(time.Millisecond)); err != nil {
		return err
	}
	record(ctx, s.audit, audit.EventUserLoggedIn, id, map[string]any{"channel": channel})
	return nil
}

func (s *UserService) Delete(ctx context.Context, id primitive.ObjectID) (*User, error) {
	u, err := s.repo.DeleteUser(ctx, id)
	if err != nil {
		return nil, err
	}
	record(ctx, s.audit, audit.EventUserDeleted, id, nil)
	return u, nil
}

func record(ctx context.Context, rec audit.Recorder, eventType string, id primitive.ObjectID, payload map[string]any) {
	rec.Record(ctx, audit.Event{Type: eventType, EntityID: id.Hex(), Payload: payload})
}
