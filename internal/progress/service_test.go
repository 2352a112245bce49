package progress

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/casecracker/casecracker/internal/apperror"
)

// --- Mock Repository ---

// mockUserRepo implements UserRepository for testing.
type mockUserRepo struct {
	findFn   func(ctx context.Context, username string) (*UserRecord, error)
	upsertFn func(ctx context.Context, user *UserRecord) error
	listFn   func(ctx context.Context) ([]UserRecord, error)
}

func (m *mockUserRepo) FindByUsername(ctx context.Context, username string) (*UserRecord, error) {
	if m.findFn != nil {
		return m.findFn(ctx, username)
	}
	return nil, nil
}

func (m *mockUserRepo) UpsertUser(ctx context.Context, user *UserRecord) error {
	if m.upsertFn != nil {
		return m.upsertFn(ctx, user)
	}
	return nil
}

func (m *mockUserRepo) ListAll(ctx context.Context) ([]UserRecord, error) {
	if m.listFn != nil {
		return m.listFn(ctx)
	}
	return nil, nil
}

// --- Test Helpers ---

// newTestService creates a progressService with a mock repo, SHA-256
// digests, and a fixed clock.
func newTestService(repo UserRepository) *progressService {
	digester, _ := NewDigester("sha256")
	return &progressService{
		repo:     repo,
		digester: digester,
		locks:    newUserLocker(),
		now: func() time.Time {
			return time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
		},
	}
}

// assertAppError checks that err is an *apperror.AppError with the expected code.
func assertAppError(t *testing.T, err error, expectedCode int) *apperror.AppError {
	t.Helper()
	if err == nil {
		t.Fatalf("expected error with code %d, got nil", expectedCode)
	}
	var appErr *apperror.AppError
	if !errors.As(err, &appErr) {
		t.Fatalf("expected *apperror.AppError, got %T: %v", err, err)
	}
	if appErr.Code != expectedCode {
		t.Errorf("expected status %d, got %d (message: %s)", expectedCode, appErr.Code, appErr.Message)
	}
	return appErr
}

// --- Register Tests ---

func TestRegister_Success(t *testing.T) {
	var created *UserRecord
	repo := &mockUserRepo{
		upsertFn: func(ctx context.Context, user *UserRecord) error {
			created = user
			return nil
		},
	}

	svc := newTestService(repo)
	user, err := svc.Register(context.Background(), "  Alice  ", "secret")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if user.Username != "alice" {
		t.Errorf("expected normalized username alice, got %q", user.Username)
	}
	if user.PasswordDigest == "" || user.PasswordDigest == "secret" {
		t.Error("expected password digest, never plaintext")
	}
	if user.CreatedAt == "" || user.CreatedAt != user.LastActive {
		t.Errorf("expected createdAt == lastActive, got %q / %q", user.CreatedAt, user.LastActive)
	}
	if user.Sessions == nil || len(user.Sessions) != 0 {
		t.Error("expected empty session list")
	}
	if created == nil {
		t.Fatal("expected record to be persisted")
	}
}

func TestRegister_ValidationOrder(t *testing.T) {
	tests := []struct {
		name     string
		username string
		password string
		message  string
	}{
		{"empty username", "", "secret", "Username and password required"},
		{"whitespace username", "   ", "secret", "Username and password required"},
		{"empty password", "alice", "", "Username and password required"},
		{"short username", "a", "secret", "Username must be at least 2 characters"},
		{"short password", "alice", "abc", "Password must be at least 4 characters"},
	}

	// Validation failures must be rejected before any backend access.
	repo := &mockUserRepo{
		findFn: func(ctx context.Context, username string) (*UserRecord, error) {
			t.Error("repository should not be touched on validation failure")
			return nil, nil
		},
	}
	svc := newTestService(repo)

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Register(context.Background(), tt.username, tt.password)
			appErr := assertAppError(t, err, 400)
			if appErr.Message != tt.message {
				t.Errorf("expected message %q, got %q", tt.message, appErr.Message)
			}
		})
	}
}

func TestRegister_DuplicateCaseInsensitive(t *testing.T) {
	store := make(map[string]*UserRecord)
	repo := &mockUserRepo{
		findFn: func(ctx context.Context, username string) (*UserRecord, error) {
			return store[username], nil
		},
		upsertFn: func(ctx context.Context, user *UserRecord) error {
			store[user.Username] = user
			return nil
		},
	}

	svc := newTestService(repo)
	if _, err := svc.Register(context.Background(), "Alice", "secret"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	_, err := svc.Register(context.Background(), "alice", "secret")
	assertAppError(t, err, 409)
}

func TestRegister_BackendError(t *testing.T) {
	repo := &mockUserRepo{
		findFn: func(ctx context.Context, username string) (*UserRecord, error) {
			return nil, errors.New("disk full")
		},
	}

	svc := newTestService(repo)
	_, err := svc.Register(context.Background(), "alice", "secret")
	assertAppError(t, err, 503)
}

// --- Authenticate Tests ---

func TestAuthenticate_FailureIndistinguishable(t *testing.T) {
	digester, _ := NewDigester("sha256")
	repo := &mockUserRepo{
		findFn: func(ctx context.Context, username string) (*UserRecord, error) {
			if username == "alice" {
				return &UserRecord{Username: "alice", PasswordDigest: digester.Digest("right")}, nil
			}
			return nil, nil
		},
	}
	svc := newTestService(repo)

	_, unknownErr := svc.Authenticate(context.Background(), "nobody", "whatever")
	_, wrongPassErr := svc.Authenticate(context.Background(), "alice", "wrong")

	unknown := assertAppError(t, unknownErr, 401)
	wrongPass := assertAppError(t, wrongPassErr, 401)
	if unknown.Type != wrongPass.Type || unknown.Message != wrongPass.Message {
		t.Errorf("expected identical errors, got %v vs %v", unknown, wrongPass)
	}
}

func TestAuthenticate_SuccessAdvancesLastActive(t *testing.T) {
	digester, _ := NewDigester("sha256")
	stored := &UserRecord{
		Username:       "alice",
		PasswordDigest: digester.Digest("secret"),
		CreatedAt:      "2025-01-01T00:00:00Z",
		LastActive:     "2025-01-01T00:00:00Z",
	}
	var persisted *UserRecord
	repo := &mockUserRepo{
		findFn: func(ctx context.Context, username string) (*UserRecord, error) {
			return stored, nil
		},
		upsertFn: func(ctx context.Context, user *UserRecord) error {
			persisted = user
			return nil
		},
	}

	svc := newTestService(repo)
	user, err := svc.Authenticate(context.Background(), " ALICE ", "secret")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if user.LastActive != "2025-06-01T12:00:00.000000Z" {
		t.Errorf("expected lastActive advanced, got %q", user.LastActive)
	}
	if persisted == nil {
		t.Fatal("expected updated record to be persisted")
	}
	if user.CreatedAt != "2025-01-01T00:00:00Z" {
		t.Error("expected createdAt untouched")
	}
}

func TestAuthenticate_LastActiveNeverMovesBackward(t *testing.T) {
	digester, _ := NewDigester("sha256")
	stored := &UserRecord{
		Username:       "alice",
		PasswordDigest: digester.Digest("secret"),
		LastActive:     "2026-01-01T00:00:00Z", // Ahead of the test clock.
	}
	repo := &mockUserRepo{
		findFn: func(ctx context.Context, username string) (*UserRecord, error) {
			return stored, nil
		},
	}

	svc := newTestService(repo)
	user, err := svc.Authenticate(context.Background(), "alice", "secret")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if user.LastActive != "2026-01-01T00:00:00Z" {
		t.Errorf("expected lastActive to stay put, got %q", user.LastActive)
	}
}

// --- Sessions Tests ---

func TestSessions_UnknownUserYieldsEmpty(t *testing.T) {
	svc := newTestService(&mockUserRepo{})

	sessions, err := svc.Sessions(context.Background(), "ghost")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sessions == nil {
		t.Fatal("expected empty slice, got nil")
	}
	if len(sessions) != 0 {
		t.Errorf("expected no sessions, got %d", len(sessions))
	}
}

// --- SaveSession Tests ---

func TestSaveSession_UnknownUser(t *testing.T) {
	svc := newTestService(&mockUserRepo{})

	err := svc.SaveSession(context.Background(), "ghost", SessionRecord{SessionID: "s1"})
	assertAppError(t, err, 401)
}

func TestSaveSession_MissingSessionID(t *testing.T) {
	repo := &mockUserRepo{
		findFn: func(ctx context.Context, username string) (*UserRecord, error) {
			return &UserRecord{Username: "alice"}, nil
		},
		upsertFn: func(ctx context.Context, user *UserRecord) error {
			t.Error("nothing may be persisted after a validation failure")
			return nil
		},
	}

	svc := newTestService(repo)
	err := svc.SaveSession(context.Background(), "alice", SessionRecord{})
	assertAppError(t, err, 400)
}

func TestSaveSession_StampsTimestampWhenAbsent(t *testing.T) {
	var persisted *UserRecord
	repo := &mockUserRepo{
		findFn: func(ctx context.Context, username string) (*UserRecord, error) {
			return &UserRecord{Username: "alice"}, nil
		},
		upsertFn: func(ctx context.Context, user *UserRecord) error {
			persisted = user
			return nil
		},
	}

	svc := newTestService(repo)
	if err := svc.SaveSession(context.Background(), "alice", SessionRecord{SessionID: "s1"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if persisted.Sessions[0].Timestamp != "2025-06-01T12:00:00.000000Z" {
		t.Errorf("expected stamped timestamp, got %q", persisted.Sessions[0].Timestamp)
	}
	if persisted.LastActive != "2025-06-01T12:00:00.000000Z" {
		t.Errorf("expected lastActive advanced, got %q", persisted.LastActive)
	}
}

func TestSaveSession_KeepsCallerTimestamp(t *testing.T) {
	var persisted *UserRecord
	repo := &mockUserRepo{
		findFn: func(ctx context.Context, username string) (*UserRecord, error) {
			return &UserRecord{Username: "alice"}, nil
		},
		upsertFn: func(ctx context.Context, user *UserRecord) error {
			persisted = user
			return nil
		},
	}

	svc := newTestService(repo)
	session := SessionRecord{SessionID: "s1", Timestamp: "2025-05-05T05:05:05Z"}
	if err := svc.SaveSession(context.Background(), "alice", session); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if persisted.Sessions[0].Timestamp != "2025-05-05T05:05:05Z" {
		t.Errorf("expected caller timestamp kept, got %q", persisted.Sessions[0].Timestamp)
	}
}

func TestSaveSession_ResubmitReplacesInPlace(t *testing.T) {
	stored := &UserRecord{
		Username: "alice",
		Sessions: []SessionRecord{
			{SessionID: "first", Correct: 1},
			{SessionID: "second", Correct: 2},
		},
	}
	repo := &mockUserRepo{
		findFn: func(ctx context.Context, username string) (*UserRecord, error) {
			return stored, nil
		},
	}

	svc := newTestService(repo)
	err := svc.SaveSession(context.Background(), "alice", SessionRecord{SessionID: "first", Correct: 42})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(stored.Sessions) != 2 {
		t.Fatalf("expected session count unchanged, got %d", len(stored.Sessions))
	}
	if stored.Sessions[0].Correct != 42 {
		t.Errorf("expected replacement at index 0, got %+v", stored.Sessions[0])
	}
	if stored.Sessions[1].SessionID != "second" {
		t.Error("expected other sessions untouched")
	}
}

func TestSaveSession_BackendWriteError(t *testing.T) {
	repo := &mockUserRepo{
		findFn: func(ctx context.Context, username string) (*UserRecord, error) {
			return &UserRecord{Username: "alice"}, nil
		},
		upsertFn: func(ctx context.Context, user *UserRecord) error {
			return errors.New("write failed")
		},
	}

	svc := newTestService(repo)
	err := svc.SaveSession(context.Background(), "alice", SessionRecord{SessionID: "s1"})
	appErr := assertAppError(t, err, 503)
	// Storage details must not leak into the client-safe message.
	if appErr.Message == "write failed" {
		t.Error("expected backend details to stay internal")
	}
}

// --- Concurrency ---

func TestSaveSession_ConcurrentDistinctIDs(t *testing.T) {
	// Real file backend: two concurrent saves for the same user must both
	// survive the read-modify-write cycle.
	repo := NewFileRepository(filepath.Join(t.TempDir(), "quiz_data.json"))
	digester, _ := NewDigester("sha256")
	svc := NewProgressService(repo, digester)

	if _, err := svc.Register(context.Background(), "alice", "secret"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	const writers = 8
	var wg sync.WaitGroup
	errs := make([]error, writers)
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			errs[n] = svc.SaveSession(context.Background(), "alice", SessionRecord{
				SessionID: string(rune('a' + n)),
			})
		}(i)
	}
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	sessions, err := svc.Sessions(context.Background(), "alice")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(sessions) != writers {
		t.Errorf("expected %d sessions (no lost updates), got %d", writers, len(sessions))
	}
	seen := make(map[string]bool)
	for _, session := range sessions {
		if seen[session.SessionID] {
			t.Errorf("duplicate sessionId %q", session.SessionID)
		}
		seen[session.SessionID] = true
	}
}

// --- Friends Tests ---

func TestFriends_BuildsFromSnapshot(t *testing.T) {
	repo := &mockUserRepo{
		listFn: func(ctx context.Context) ([]UserRecord, error) {
			return []UserRecord{
				{Username: "slow", LastActive: "2025-01-01T00:00:00Z"},
				{Username: "fast", LastActive: "2025-02-01T00:00:00Z"},
			}, nil
		},
	}

	svc := newTestService(repo)
	friends, err := svc.Friends(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(friends) != 2 || friends[0].Username != "fast" {
		t.Errorf("expected fast first, got %+v", friends)
	}
}

func TestFriends_BackendError(t *testing.T) {
	repo := &mockUserRepo{
		listFn: func(ctx context.Context) ([]UserRecord, error) {
			return nil, errors.New("connection refused")
		},
	}

	svc := newTestService(repo)
	_, err := svc.Friends(context.Background())
	assertAppError(t, err, 503)
}
