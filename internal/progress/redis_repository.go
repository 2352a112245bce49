package progress

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"github.com/redis/go-redis/v9"
)

// usersHashKey is the Redis hash holding the user mapping: one field per
// username, each value the JSON-encoded UserRecord.
const usersHashKey = "users"

// redisRepository stores each user as a separate document inside a Redis
// hash. Writing a single field is atomic at the granularity of that user's
// document, so unlike the file backend there is no whole-mapping critical
// section here.
type redisRepository struct {
	client *redis.Client
}

// NewRedisRepository creates a repository backed by the given Redis client.
func NewRedisRepository(client *redis.Client) UserRepository {
	return &redisRepository{client: client}
}

func (r *redisRepository) FindByUsername(ctx context.Context, username string) (*UserRecord, error) {
	data, err := r.client.HGet(ctx, usersHashKey, username).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading user document: %w", err)
	}

	var user UserRecord
	if err := json.Unmarshal(data, &user); err != nil {
		// A corrupt document degrades to "no user" rather than failing the
		// caller, mirroring the file backend's behavior.
		slog.Warn("user document corrupt, treating as absent",
			slog.String("username", username),
			slog.Any("error", err),
		)
		return nil, nil
	}
	return &user, nil
}

func (r *redisRepository) UpsertUser(ctx context.Context, user *UserRecord) error {
	data, err := json.Marshal(user)
	if err != nil {
		return fmt.Errorf("encoding user document: %w", err)
	}
	if err := r.client.HSet(ctx, usersHashKey, user.Username, data).Err(); err != nil {
		return fmt.Errorf("writing user document: %w", err)
	}
	return nil
}

func (r *redisRepository) ListAll(ctx context.Context) ([]UserRecord, error) {
	fields, err := r.client.HGetAll(ctx, usersHashKey).Result()
	if err != nil {
		return nil, fmt.Errorf("reading user mapping: %w", err)
	}

	usernames := make([]string, 0, len(fields))
	for username := range fields {
		usernames = append(usernames, username)
	}
	sort.Strings(usernames)

	users := make([]UserRecord, 0, len(usernames))
	for _, username := range usernames {
		var user UserRecord
		if err := json.Unmarshal([]byte(fields[username]), &user); err != nil {
			slog.Warn("user document corrupt, skipping",
				slog.String("username", username),
				slog.Any("error", err),
			)
			continue
		}
		users = append(users, user)
	}
	return users, nil
}
