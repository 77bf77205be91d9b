package identity

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

const (
	// MinUsernameLength is the shortest username accepted at creation or rotation.
	MinUsernameLength = 2
	// MinPasswordLength is the shortest raw password accepted at creation.
	MinPasswordLength = 8
)

var (
	// ErrMissingField indicates a required field was empty.
	ErrMissingField = errors.New("all fields are required")
	// ErrInvalidEmail indicates the email lacks an @ or a dotted domain.
	ErrInvalidEmail = errors.New("email address is malformed")
	// ErrUsernameTooShort indicates the username is below the minimum length.
	ErrUsernameTooShort = errors.New("username is too short")
	// ErrPasswordTooShort indicates the password is below the minimum length.
	ErrPasswordTooShort = errors.New("password is too short")
	// ErrUsernameTaken indicates another identity already uses the username.
	ErrUsernameTaken = errors.New("username already taken")
	// ErrMultipleMatches signals a violated uniqueness invariant: more than one
	// identity shares a username. It marks a defect in uniqueness enforcement
	// and is never silently swallowed.
	ErrMultipleMatches = errors.New("multiple users share one username")
)

// Purger cascades a bulk identity reset through ledger-owned data.
type Purger interface {
	PurgeAll(ctx context.Context) error
}

// Service manages identity lifecycle and credential policy.
type Service struct {
	repo   Repository
	purger Purger
	logger *slog.Logger
}

// NewService creates a new identity service. The purger may be nil when no
// ledger data needs cascading on DeleteAll.
func NewService(repo Repository, purger Purger, logger *slog.Logger) *Service {
	return &Service{repo: repo, purger: purger, logger: logger}
}

// Create validates the supplied fields, hashes the password and stores a new
// user. Usernames are unique under case-insensitive comparison.
func (s *Service) Create(ctx context.Context, fullName, email, username, rawPassword string) (User, error) {
	if fullName == "" || email == "" || username == "" || rawPassword == "" {
		return User{}, ErrMissingField
	}
	if !validEmail(email) {
		return User{}, ErrInvalidEmail
	}
	if utf8.RuneCountInString(username) < MinUsernameLength {
		return User{}, ErrUsernameTooShort
	}
	if utf8.RuneCountInString(rawPassword) < MinPasswordLength {
		return User{}, ErrPasswordTooShort
	}

	// Cheap pre-check before the bcrypt work. The repository re-checks
	// atomically on insert, so racing creates still collapse to one winner.
	existing, err := s.repo.FindByUsername(ctx, username)
	if err != nil {
		return User{}, fmt.Errorf("lookup username: %w", err)
	}
	if len(existing) > 0 {
		return User{}, ErrUsernameTaken
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(rawPassword), bcrypt.DefaultCost)
	if err != nil {
		return User{}, err
	}

	user := User{
		ID:             uuid.New().String(),
		FullName:       fullName,
		Email:          email,
		Username:       username,
		HashedPassword: hash,
		CreatedAt:      time.Now().UTC(),
	}

	if err := s.repo.Create(ctx, user); err != nil {
		return User{}, err
	}

	return user, nil
}

// FindByUsername resolves a user by case-insensitive exact username match.
// A multiple-match condition is logged at error severity and surfaced as
// ErrMultipleMatches.
func (s *Service) FindByUsername(ctx context.Context, username string) (User, error) {
	users, err := s.repo.FindByUsername(ctx, username)
	if err != nil {
		return User{}, err
	}
	if len(users) == 0 {
		return User{}, ErrNotFound
	}
	if len(users) > 1 {
		s.logger.Error("username uniqueness violated",
			slog.String("username", username),
			slog.Int("matches", len(users)))
		return User{}, ErrMultipleMatches
	}
	return users[0], nil
}

// FindByID resolves a user by identifier.
func (s *Service) FindByID(ctx context.Context, id string) (User, error) {
	return s.repo.FindByID(ctx, id)
}

// VerifyCredential recomputes the hash for the supplied raw password and
// compares it against the stored one. The bcrypt comparison is the only
// timing channel.
func (s *Service) VerifyCredential(user User, rawPassword string) bool {
	if err := bcrypt.CompareHashAndPassword(user.HashedPassword, []byte(rawPassword)); err != nil {
		s.logger.Warn("credential verification failed",
			slog.String("user_id", user.ID),
			slog.String("username", user.Username))
		return false
	}
	return true
}

// RotatePassword replaces the stored hash when the old password verifies and
// the new password matches its confirmation. Any expected failure leaves the
// stored hash untouched and reports false; the error is non-nil only for
// storage faults.
func (s *Service) RotatePassword(ctx context.Context, user User, oldRaw, newRaw, newConfirm string) (bool, error) {
	if !s.VerifyCredential(user, oldRaw) {
		return false, nil
	}
	if newRaw == "" || newRaw != newConfirm {
		return false, nil
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(newRaw), bcrypt.DefaultCost)
	if err != nil {
		return false, err
	}
	if err := s.repo.UpdatePassword(ctx, user.ID, hash, user.TokenVersion+1); err != nil {
		return false, err
	}
	return true, nil
}

// RotateUsername updates the username in place when the confirmation password
// verifies, the new username meets policy, and no other identity holds it.
// The token version is bumped so the caller's layer re-establishes sessions.
func (s *Service) RotateUsername(ctx context.Context, user User, confirmPassword, newUsername string) (bool, error) {
	if !s.VerifyCredential(user, confirmPassword) {
		return false, nil
	}
	if newUsername == "" || utf8.RuneCountInString(newUsername) < MinUsernameLength {
		return false, nil
	}

	existing, err := s.repo.FindByUsername(ctx, newUsername)
	if err != nil {
		return false, err
	}
	for _, other := range existing {
		if other.ID != user.ID {
			return false, nil
		}
	}

	if err := s.repo.UpdateUsername(ctx, user.ID, newUsername, user.TokenVersion+1); err != nil {
		// The repository enforces uniqueness under its own lock; a taken
		// name that slipped past the pre-check is an expected outcome.
		if errors.Is(err, ErrUsernameTaken) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// DeleteAll removes every identity, cascading through ledger-owned data
// first. Test/reset harness use only.
func (s *Service) DeleteAll(ctx context.Context) error {
	if s.purger != nil {
		if err := s.purger.PurgeAll(ctx); err != nil {
			return fmt.Errorf("purge ledger data: %w", err)
		}
	}
	return s.repo.DeleteAll(ctx)
}

// validEmail requires an @ with a dotted domain segment after it.
func validEmail(email string) bool {
	at := strings.Index(email, "@")
	if at < 1 {
		return false
	}
	domain := email[at+1:]
	dot := strings.Index(domain, ".")
	return dot > 0 && dot < len(domain)-1
}
