package progress

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/casecracker/casecracker/internal/apperror"
)

// minUsernameLen and minPasswordLen are the registration validation floors.
const (
	minUsernameLen = 2
	minPasswordLen = 4
)

// ProgressService defines the business logic contract for the progress
// store. Handlers call these methods -- they never touch the repository
// directly.
type ProgressService interface {
	Register(ctx context.Context, username, password string) (*UserRecord, error)
	Authenticate(ctx context.Context, username, password string) (*UserRecord, error)
	Sessions(ctx context.Context, username string) ([]SessionRecord, error)
	SaveSession(ctx context.Context, username string, session SessionRecord) error
	Friends(ctx context.Context) ([]FriendSummary, error)
}

// progressService implements ProgressService on top of a UserRepository.
// Every mutating operation runs as a per-username critical section: lock
// the username, read the record, apply the change, write it back. Two
// concurrent saves for the same user can therefore never lose an update,
// and operations on different usernames proceed in parallel.
type progressService struct {
	repo     UserRepository
	digester Digester
	locks    *userLocker

	// now is swappable in tests.
	now func() time.Time
}

// NewProgressService creates the service with the given backend and digest.
func NewProgressService(repo UserRepository, digester Digester) ProgressService {
	return &progressService{
		repo:     repo,
		digester: digester,
		locks:    newUserLocker(),
		now:      time.Now,
	}
}

// Register creates a new user account. The username is trimmed and
// lower-cased before any validation, so "Alice" and "alice" collide.
func (s *progressService) Register(ctx context.Context, username, password string) (*UserRecord, error) {
	username = normalizeUsername(username)

	if username == "" || password == "" {
		return nil, apperror.NewInvalidInput("Username and password required")
	}
	if len(username) < minUsernameLen {
		return nil, apperror.NewInvalidInput(fmt.Sprintf("Username must be at least %d characters", minUsernameLen))
	}
	if len(password) < minPasswordLen {
		return nil, apperror.NewInvalidInput(fmt.Sprintf("Password must be at least %d characters", minPasswordLen))
	}

	lock := s.locks.forUser(username)
	lock.Lock()
	defer lock.Unlock()

	existing, err := s.repo.FindByUsername(ctx, username)
	if err != nil {
		return nil, apperror.NewBackendUnavailable(fmt.Errorf("checking username: %w", err))
	}
	if existing != nil {
		return nil, apperror.NewDuplicateUser("Username already exists")
	}

	now := s.timestamp()
	user := &UserRecord{
		Username:       username,
		PasswordDigest: s.digester.Digest(password),
		CreatedAt:      now,
		LastActive:     now,
		Sessions:       []SessionRecord{},
	}

	if err := s.repo.UpsertUser(ctx, user); err != nil {
		return nil, apperror.NewBackendUnavailable(fmt.Errorf("creating user: %w", err))
	}

	slog.Info("user registered", slog.String("username", username))
	return user, nil
}

// Authenticate checks a username/password pair. An unknown username and a
// wrong password return the identical AuthFailed error so callers cannot
// probe which usernames exist. On success the user's lastActive timestamp
// is advanced and persisted.
func (s *progressService) Authenticate(ctx context.Context, username, password string) (*UserRecord, error) {
	username = normalizeUsername(username)

	lock := s.locks.forUser(username)
	lock.Lock()
	defer lock.Unlock()

	user, err := s.repo.FindByUsername(ctx, username)
	if err != nil {
		return nil, apperror.NewBackendUnavailable(fmt.Errorf("finding user: %w", err))
	}
	if user == nil {
		return nil, apperror.NewAuthFailed()
	}
	if user.PasswordDigest != s.digester.Digest(password) {
		return nil, apperror.NewAuthFailed()
	}

	s.touchActivity(user)
	if err := s.repo.UpsertUser(ctx, user); err != nil {
		return nil, apperror.NewBackendUnavailable(fmt.Errorf("updating last active: %w", err))
	}

	slog.Info("user logged in", slog.String("username", username))
	return user, nil
}

// Sessions returns the user's session history in insertion order. An
// unknown username yields an empty list, not an error: the caller was
// already vetted by the routing layer, and the quiz page treats a fresh
// account and a missing account the same way.
func (s *progressService) Sessions(ctx context.Context, username string) ([]SessionRecord, error) {
	user, err := s.repo.FindByUsername(ctx, username)
	if err != nil {
		return nil, apperror.NewBackendUnavailable(fmt.Errorf("finding user: %w", err))
	}
	if user == nil || user.Sessions == nil {
		return []SessionRecord{}, nil
	}
	return user.Sessions, nil
}

// SaveSession upserts one completed quiz session into the user's history.
// Resubmitting a sessionId replaces that entry in place; a new id appends.
// The store stamps the session's timestamp when the caller omitted it, and
// lastActive advances on every successful save.
func (s *progressService) SaveSession(ctx context.Context, username string, session SessionRecord) error {
	lock := s.locks.forUser(username)
	lock.Lock()
	defer lock.Unlock()

	user, err := s.repo.FindByUsername(ctx, username)
	if err != nil {
		return apperror.NewBackendUnavailable(fmt.Errorf("finding user: %w", err))
	}
	if user == nil {
		return apperror.NewUnknownUser("User not found")
	}

	if session.SessionID == "" {
		return apperror.NewInvalidInput("Session ID required")
	}

	if session.Timestamp == "" {
		session.Timestamp = s.timestamp()
	}

	user.Sessions = upsertSession(user.Sessions, session)
	s.touchActivity(user)

	if err := s.repo.UpsertUser(ctx, user); err != nil {
		return apperror.NewBackendUnavailable(fmt.Errorf("saving session: %w", err))
	}

	slog.Debug("session saved",
		slog.String("username", username),
		slog.String("session_id", session.SessionID),
	)
	return nil
}

// Friends builds the leaderboard from a full snapshot of the user mapping.
func (s *progressService) Friends(ctx context.Context) ([]FriendSummary, error) {
	users, err := s.repo.ListAll(ctx)
	if err != nil {
		return nil, apperror.NewBackendUnavailable(fmt.Errorf("listing users: %w", err))
	}
	return BuildLeaderboard(users), nil
}

// timestamp formats the current time for storage.
func (s *progressService) timestamp() string {
	return s.now().UTC().Format(timeFormat)
}

// touchActivity advances lastActive to now. It never moves backward, even
// if the wall clock does.
func (s *progressService) touchActivity(user *UserRecord) {
	if ts := s.timestamp(); ts > user.LastActive {
		user.LastActive = ts
	}
}

// normalizeUsername trims surrounding whitespace and lower-cases, matching
// how usernames are keyed in the store.
func normalizeUsername(username string) string {
	return strings.ToLower(strings.TrimSpace(username))
}
