package file

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sync"

	"github.com/R3E-Network/thrones_api/internal/app/domain/account"
	"github.com/R3E-Network/thrones_api/internal/app/storage"
)

// CredentialStore keeps users in a JSON object file keyed by username:
// {"arya": {"password": "...", "role": "user"}}.
type CredentialStore struct {
	mu   sync.Mutex
	path string
}

var _ storage.CredentialStore = (*CredentialStore)(nil)

// NewCredentialStore returns a store backed by path.
func NewCredentialStore(path string) *CredentialStore {
	return &CredentialStore{path: path}
}

func (s *CredentialStore) GetCredential(_ context.Context, username string) (account.Credential, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	users, err := s.readLocked()
	if err != nil {
		return account.Credential{}, err
	}
	cred, ok := users[username]
	if !ok {
		return account.Credential{}, storage.ErrNotFound
	}
	cred.Username = username
	return cred, nil
}

func (s *CredentialStore) CreateCredential(_ context.Context, cred account.Credential) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	users, err := s.readLocked()
	if err != nil {
		return err
	}
	if _, exists := users[cred.Username]; exists {
		return storage.ErrAlreadyExists
	}
	users[cred.Username] = cred

	if err := writeJSONAtomic(s.path, users); err != nil {
		return fmt.Errorf("%w: %w", storage.ErrWrite, err)
	}
	return nil
}

// readLocked loads the user map. A missing file is an empty map since the
// first registration creates it.
func (s *CredentialStore) readLocked() (map[string]account.Credential, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return make(map[string]account.Credential), nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %w", storage.ErrUnavailable, s.path, err)
	}

	users := make(map[string]account.Credential)
	if err := json.Unmarshal(data, &users); err != nil {
		return nil, fmt.Errorf("%w: decode %s: %w", storage.ErrUnavailable, s.path, err)
	}
	if users == nil {
		users = make(map[string]account.Credential)
	}
	return users, nil
}
