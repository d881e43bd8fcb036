package storage

import (
	"context"
	"errors"

	"github.com/R3E-Network/thrones_api/internal/app/domain/account"
	"github.com/R3E-Network/thrones_api/internal/app/domain/character"
)

var (
	// ErrNotFound is returned when a keyed lookup misses.
	ErrNotFound = errors.New("storage: not found")
	// ErrAlreadyExists is returned when creating a record whose key is taken.
	ErrAlreadyExists = errors.New("storage: already exists")
	// ErrUnavailable is returned when the backing data cannot be read. Stores
	// wrap the cause, so a missing file also matches fs.ErrNotExist.
	ErrUnavailable = errors.New("storage: unavailable")
	// ErrWrite is returned when a snapshot cannot be persisted.
	ErrWrite = errors.New("storage: write failed")
)

// CharacterStore owns the canonical character list. Implementations must be
// safe for concurrent use; callers receive copies and never alias stored
// values.
type CharacterStore interface {
	// LoadCharacters returns a snapshot of every character in list order. On
	// failure it returns an empty slice together with an error wrapping
	// ErrUnavailable.
	LoadCharacters(ctx context.Context) ([]character.Character, error)
	// PersistCharacters replaces the stored list with records. Readers never
	// observe a partially written list.
	PersistCharacters(ctx context.Context, records []character.Character) error
	// NextCharacterID hands out a fresh id greater than every id in existing
	// and every id previously returned by this store.
	NextCharacterID(ctx context.Context, existing []character.Character) (int64, error)
}

// CredentialStore persists registered users keyed by username.
type CredentialStore interface {
	GetCredential(ctx context.Context, username string) (account.Credential, error)
	CreateCredential(ctx context.Context, cred account.Credential) error
}
