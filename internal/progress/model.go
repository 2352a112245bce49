// Package progress implements the per-user quiz progress store: account
// registration and login, session submission with upsert-by-id semantics,
// aggregate statistics, and the friends leaderboard. Persistence sits behind
// the UserRepository contract with two interchangeable backends (local JSON
// document or Redis).
//
// This is the core of the application -- the HTTP layer is a thin shell
// around the service defined here.
package progress


// UserRecord is one registered user. Usernames are stored lower-cased and
// act as the unique key. Timestamps are RFC 3339 strings so they compare
// lexicographically, which the leaderboard ordering relies on.
type UserRecord struct {
	Username       string          `json:"username"`
	PasswordDigest string          `json:"passwordDigest"` // Never plaintext.
	CreatedAt      string          `json:"createdAt"`
	LastActive     string          `json:"lastActive"`
	Sessions       []SessionRecord `json:"sessions"`
}

// Clone returns a deep-enough copy of the record: the sessions slice is
// copied so callers can mutate their view without aliasing the stored one.
func (u *UserRecord) Clone() *UserRecord {
	if u == nil {
		return nil
	}
	cp := *u
	cp.Sessions = append([]SessionRecord(nil), u.Sessions...)
	return &cp
}

// Stats holds the aggregate statistics folded from a user's session list.
// Accuracy is an integer percentage; 0 when the user has answered nothing.
type Stats struct {
	TotalQuestions int `json:"totalQuestions"`
	TotalCorrect   int `json:"totalCorrect"`
	Accuracy       int `json:"accuracy"`
	BestStreak     int `json:"bestStreak"`
}

// FriendSummary is one row of the friends leaderboard.
type FriendSummary struct {
	Username       string `json:"username"`
	TotalSessions  int    `json:"totalSessions"`
	TotalQuestions int    `json:"totalQuestions"`
	TotalCorrect   int    `json:"totalCorrect"`
	Accuracy       int    `json:"accuracy"`
	BestStreak     int    `json:"bestStreak"`
	LastActive     string `json:"lastActive"`
}

// CredentialsRequest is the body of the register and login endpoints.
type CredentialsRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// timeFormat is the wire format for createdAt/lastActive/timestamp values.
// The fractional part has fixed width so timestamps of equal length compare
// lexicographically in chronological order; plain RFC 3339 only has second
// precision, which would tie users registered in the same second.
const timeFormat = "2006-01-02T15:04:05.000000Z07:00"
