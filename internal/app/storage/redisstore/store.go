// Package redisstore keeps registered users in Redis, one key per user.
package redisstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/go-redis/redis/v8"

	"github.com/R3E-Network/thrones_api/internal/app/domain/account"
	"github.com/R3E-Network/thrones_api/internal/app/storage"
)

// DefaultPrefix namespaces user keys.
const DefaultPrefix = "thrones:user:"

// Store implements storage.CredentialStore.
type Store struct {
	rdb    redis.UniversalClient
	prefix string
}

var _ storage.CredentialStore = (*Store)(nil)

// New wraps an existing client. An empty prefix selects DefaultPrefix.
func New(rdb redis.UniversalClient, prefix string) *Store {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return &Store{rdb: rdb, prefix: prefix}
}

// Options configures Dial.
type Options struct {
	Addr     string
	Password string
	DB       int
	Prefix   string
}

// Dial connects to a single Redis node and pings it.
func Dial(ctx context.Context, opts Options) (*Store, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("ping redis %s: %w", opts.Addr, err)
	}
	return New(rdb, opts.Prefix), nil
}

// Close closes the client.
func (s *Store) Close() error {
	return s.rdb.Close()
}

func (s *Store) GetCredential(ctx context.Context, username string) (account.Credential, error) {
	raw, err := s.rdb.Get(ctx, s.key(username)).Bytes()
	if errors.Is(err, redis.Nil) {
		return account.Credential{}, storage.ErrNotFound
	}
	if err != nil {
		return account.Credential{}, fmt.Errorf("%w: get user: %w", storage.ErrUnavailable, err)
	}

	var cred account.Credential
	if err := json.Unmarshal(raw, &cred); err != nil {
		return account.Credential{}, fmt.Errorf("%w: decode user: %w", storage.ErrUnavailable, err)
	}
	cred.Username = username
	return cred, nil
}

// CreateCredential uses SETNX so concurrent registrations of the same name
// cannot both succeed.
func (s *Store) CreateCredential(ctx context.Context, cred account.Credential) error {
	raw, err := json.Marshal(cred)
	if err != nil {
		return fmt.Errorf("%w: encode user: %w", storage.ErrWrite, err)
	}
	created, err := s.rdb.SetNX(ctx, s.key(cred.Username), raw, 0).Result()
	if err != nil {
		return fmt.Errorf("%w: set user: %w", storage.ErrWrite, err)
	}
	if !created {
		return storage.ErrAlreadyExists
	}
	return nil
}

func (s *Store) key(username string) string {
	return s.prefix + username
}
