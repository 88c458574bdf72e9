// Package auth keeps the user directory and the current-user session cache.
// Credentials are not checked: knowing an account's email is enough to log in.
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"
	"time"

	jsoniter "github.com/json-iterator/go"

	"agenda/internal/kv"
	"agenda/internal/models"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

var (
	ErrUserNotFound = errors.New("user not found")
	ErrEmailTaken   = errors.New("user already exists")
	ErrInvalidEmail = errors.New("invalid email")
)

// MockUsers returns the accounts present before anyone registers.
func MockUsers() []models.User {
	return []models.User{
		{
			ID:          "user-1",
			Email:       "john@example.com",
			DisplayName: "João Silva",
			PhotoURL:    "https://i.pravatar.cc/150?img=68",
			CreatedAt:   time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC),
		},
		{
			ID:          "user-2",
			Email:       "mary@example.com",
			DisplayName: "Maria Souza",
			PhotoURL:    "https://i.pravatar.cc/150?img=49",
			CreatedAt:   time.Date(2023, 2, 15, 0, 0, 0, 0, time.UTC),
		},
	}
}

// Authenticator logs users in and out against a directory kept in a kv.Store.
type Authenticator struct {
	store  kv.Store
	logger *slog.Logger
	now    func() time.Time
}

// Option configures an Authenticator.
type Option func(*Authenticator)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(a *Authenticator) {
		a.now = now
	}
}

// NewAuthenticator creates an Authenticator persisting into store.
func NewAuthenticator(store kv.Store, logger *slog.Logger, opts ...Option) *Authenticator {
	if logger == nil {
		logger = slog.Default()
	}
	a := &Authenticator{store: store, logger: logger, now: time.Now}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Users returns the directory. The mock users are used until the first write.
func (a *Authenticator) Users(ctx context.Context) ([]models.User, error) {
	raw, err := a.store.Get(ctx, kv.KeyUsers)
	if errors.Is(err, kv.ErrKeyNotFound) {
		return MockUsers(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read users: %w", err)
	}

	var users []models.User
	if err := json.Unmarshal(raw, &users); err != nil {
		a.logger.Warn("User directory is corrupt, falling back to mock users.", "error", err)
		return MockUsers(), nil
	}
	return users, nil
}

func (a *Authenticator) saveUsers(ctx context.Context, users []models.User) error {
	data, err := json.Marshal(users)
	if err != nil {
		return fmt.Errorf("failed to marshal users: %w", err)
	}
	if err := a.store.Set(ctx, kv.KeyUsers, data); err != nil {
		return fmt.Errorf("failed to write users: %w", err)
	}
	return nil
}

// Login marks the account registered under email as the current user.
func (a *Authenticator) Login(ctx context.Context, email string) (models.User, error) {
	users, err := a.Users(ctx)
	if err != nil {
		return models.User{}, err
	}

	email = normalizeEmail(email)
	for i := range users {
		if normalizeEmail(users[i].Email) != email {
			continue
		}
		now := a.now()
		users[i].LastLogin = &now
		if err := a.saveUsers(ctx, users); err != nil {
			return models.User{}, err
		}
		if err := a.setCurrent(ctx, users[i]); err != nil {
			return models.User{}, err
		}
		a.logger.Info("User logged in.", "user", users[i].ID)
		return users[i], nil
	}

	return models.User{}, fmt.Errorf("%w: %s", ErrUserNotFound, email)
}

// Register creates an account and logs it in.
func (a *Authenticator) Register(ctx context.Context, email, displayName string) (models.User, error) {
	addr, err := mail.ParseAddress(strings.TrimSpace(email))
	if err != nil {
		return models.User{}, fmt.Errorf("%w: %s", ErrInvalidEmail, email)
	}
	email = normalizeEmail(addr.Address)

	users, err := a.Users(ctx)
	if err != nil {
		return models.User{}, err
	}
	for _, u := range users {
		if normalizeEmail(u.Email) == email {
			return models.User{}, fmt.Errorf("%w: %s", ErrEmailTaken, email)
		}
	}

	displayName = strings.TrimSpace(displayName)
	if displayName == "" {
		displayName, _, _ = strings.Cut(email, "@")
	}

	now := a.now()
	user := models.User{
		ID:          fmt.Sprintf("user-%d", len(users)+1),
		Email:       email,
		DisplayName: displayName,
		CreatedAt:   now,
		LastLogin:   &now,
	}
	users = append(users, user)

	if err := a.saveUsers(ctx, users); err != nil {
		return models.User{}, err
	}
	if err := a.setCurrent(ctx, user); err != nil {
		return models.User{}, err
	}
	a.logger.Info("User registered.", "user", user.ID, "email", user.Email)
	return user, nil
}

// Logout clears the session cache.
func (a *Authenticator) Logout(ctx context.Context) error {
	if err := a.store.Delete(ctx, kv.KeyCurrentUser); err != nil {
		return fmt.Errorf("failed to clear current user: %w", err)
	}
	a.logger.Info("User logged out.")
	return nil
}

// Current returns the cached user. A corrupt cache entry is removed and
// treated as logged out.
func (a *Authenticator) Current(ctx context.Context) (*models.User, error) {
	raw, err := a.store.Get(ctx, kv.KeyCurrentUser)
	if errors.Is(err, kv.ErrKeyNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read current user: %w", err)
	}

	var user models.User
	if err := json.Unmarshal(raw, &user); err != nil || user.ID == "" {
		a.logger.Warn("Discarding corrupt session cache.", "error", err)
		if err := a.store.Delete(ctx, kv.KeyCurrentUser); err != nil {
			return nil, fmt.Errorf("failed to clear current user: %w", err)
		}
		return nil, nil
	}
	return &user, nil
}

// Session builds the session for the cached user under policy.
func (a *Authenticator) Session(ctx context.Context, policy Policy) (Session, error) {
	user, err := a.Current(ctx)
	if err != nil {
		return Session{}, err
	}
	return NewSession(user, policy), nil
}

func (a *Authenticator) setCurrent(ctx context.Context, user models.User) error {
	data, err := json.Marshal(user)
	if err != nil {
		return fmt.Errorf("failed to marshal current user: %w", err)
	}
	if err := a.store.Set(ctx, kv.KeyCurrentUser, data); err != nil {
		return fmt.Errorf("failed to write current user: %w", err)
	}
	return nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
