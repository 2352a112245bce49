package progress

import "context"

// UserRepository is the persistence backend contract. Two interchangeable
// implementations exist -- a single JSON document on disk and a Redis hash
// with one document per user -- selected by configuration, never mixed.
//
// Write atomicity: UpsertUser must persist one user's full record so that
// concurrent upserts of *different* users never clobber each other. The
// service layer serializes read-modify-write cycles per username on top of
// this, so lost updates within one username cannot occur either.
type UserRepository interface {
	// FindByUsername returns the stored record, or nil (with a nil error)
	// when the user does not exist.
	FindByUsername(ctx context.Context, username string) (*UserRecord, error)

	// UpsertUser durably writes the user's record, creating or replacing it.
	UpsertUser(ctx context.Context, user *UserRecord) error

	// ListAll returns a point-in-time snapshot of every user record,
	// ordered by username so output is deterministic. Callers own the
	// returned slice.
	ListAll(ctx context.Context) ([]UserRecord, error)
}
