package memory

import (
	"context"
	"sync"

	"github.com/R3E-Network/thrones_api/internal/app/domain/account"
	"github.com/R3E-Network/thrones_api/internal/app/domain/character"
	"github.com/R3E-Network/thrones_api/internal/app/storage"
)

// Store is an in-memory implementation of the storage interfaces. It is safe
// for concurrent use and is primarily intended for tests and local development.
type Store struct {
	mu          sync.RWMutex
	seq         storage.IDSequence
	characters  []character.Character
	credentials map[string]account.Credential
}

var _ storage.CharacterStore = (*Store)(nil)
var _ storage.CredentialStore = (*Store)(nil)

// New creates a store seeded with the given characters.
func New(seed ...character.Character) *Store {
	s := &Store{
		characters:  character.CloneAll(seed),
		credentials: make(map[string]account.Credential),
	}
	s.seq.Observe(seed)
	return s
}

// CharacterStore implementation -----------------------------------------------

func (s *Store) LoadCharacters(_ context.Context) ([]character.Character, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return character.CloneAll(s.characters), nil
}

func (s *Store) PersistCharacters(_ context.Context, records []character.Character) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.characters = character.CloneAll(records)
	return nil
}

func (s *Store) NextCharacterID(_ context.Context, existing []character.Character) (int64, error) {
	return s.seq.Next(existing), nil
}

// CredentialStore implementation ----------------------------------------------

func (s *Store) GetCredential(_ context.Context, username string) (account.Credential, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	cred, ok := s.credentials[username]
	if !ok {
		return account.Credential{}, storage.ErrNotFound
	}
	return cred, nil
}

func (s *Store) CreateCredential(_ context.Context, cred account.Credential) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.credentials[cred.Username]; exists {
		return storage.ErrAlreadyExists
	}
	s.credentials[cred.Username] = cred
	return nil
}
