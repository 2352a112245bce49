package progress

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"
)

// fileDocument is the on-disk layout: one top-level mapping keyed by
// username. The whole document is rewritten on every mutation.
type fileDocument struct {
	Users map[string]*UserRecord `json:"users"`
}

// fileRepository stores the user mapping as a single JSON document on disk.
// Every read-modify-write cycle runs under a process-wide mutex: two
// concurrent requests must not both read the old document and have one
// overwrite the other's change.
type fileRepository struct {
	path string
	mu   sync.Mutex
}

// NewFileRepository creates a repository backed by the JSON document at
// path. The file is created lazily on the first write.
func NewFileRepository(path string) UserRepository {
	return &fileRepository{path: path}
}

func (r *fileRepository) FindByUsername(ctx context.Context, username string) (*UserRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	doc := r.load()
	return doc.Users[username].Clone(), nil
}

func (r *fileRepository) UpsertUser(ctx context.Context, user *UserRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	doc := r.load()
	doc.Users[user.Username] = user.Clone()
	return r.save(doc)
}

func (r *fileRepository) ListAll(ctx context.Context) ([]UserRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	doc := r.load()
	usernames := make([]string, 0, len(doc.Users))
	for username := range doc.Users {
		usernames = append(usernames, username)
	}
	sort.Strings(usernames)

	users := make([]UserRecord, 0, len(usernames))
	for _, username := range usernames {
		users = append(users, *doc.Users[username].Clone())
	}
	return users, nil
}

// load reads the document from disk. A missing, partial, or corrupt file
// degrades to an empty mapping instead of failing the caller; corruption is
// logged so operators can recover the file from a backup.
// Callers must hold r.mu.
func (r *fileRepository) load() *fileDocument {
	doc := &fileDocument{Users: make(map[string]*UserRecord)}

	data, err := os.ReadFile(r.path)
	if err != nil {
		if !os.IsNotExist(err) {
			slog.Warn("data file unreadable, starting from empty mapping",
				slog.String("path", r.path),
				slog.Any("error", err),
			)
		}
		return doc
	}

	if err := json.Unmarshal(data, doc); err != nil {
		slog.Warn("data file corrupt, starting from empty mapping",
			slog.String("path", r.path),
			slog.Any("error", err),
		)
		return &fileDocument{Users: make(map[string]*UserRecord)}
	}
	if doc.Users == nil {
		doc.Users = make(map[string]*UserRecord)
	}
	return doc
}

// save writes the document wholesale via a temp file in the same directory
// followed by a rename, so readers never observe a half-written document.
// Callers must hold r.mu.
func (r *fileRepository) save(doc *fileDocument) error {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding data file: %w", err)
	}

	dir := filepath.Dir(r.path)
	tmp, err := os.CreateTemp(dir, filepath.Base(r.path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("creating temp data file: %w", err)
	}

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("writing temp data file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("closing temp data file: %w", err)
	}

	if err := os.Rename(tmp.Name(), r.path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("replacing data file: %w", err)
	}
	return nil
}
