package file

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"github.com/R3E-Network/thrones_api/internal/app/domain/character"
	"github.com/R3E-Network/thrones_api/internal/app/storage"
)

// CharacterStore keeps characters in a JSON array file.
type CharacterStore struct {
	mu   sync.RWMutex
	path string
	seq  storage.IDSequence
}

var _ storage.CharacterStore = (*CharacterStore)(nil)

// NewCharacterStore returns a store backed by path. The file is not touched
// until the first load or persist.
func NewCharacterStore(path string) *CharacterStore {
	return &CharacterStore{path: path}
}

// Path returns the backing file path.
func (s *CharacterStore) Path() string {
	return s.path
}

func (s *CharacterStore) LoadCharacters(_ context.Context) ([]character.Character, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	data, err := os.ReadFile(s.path)
	if err != nil {
		return []character.Character{}, fmt.Errorf("%w: read %s: %w", storage.ErrUnavailable, s.path, err)
	}

	var records []character.Character
	if err := json.Unmarshal(data, &records); err != nil {
		return []character.Character{}, fmt.Errorf("%w: decode %s: %w", storage.ErrUnavailable, s.path, err)
	}
	if records == nil {
		records = []character.Character{}
	}
	s.seq.Observe(records)
	return records, nil
}

func (s *CharacterStore) PersistCharacters(_ context.Context, records []character.Character) error {
	if records == nil {
		records = []character.Character{}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := writeJSONAtomic(s.path, records); err != nil {
		return fmt.Errorf("%w: %w", storage.ErrWrite, err)
	}
	return nil
}

func (s *CharacterStore) NextCharacterID(_ context.Context, existing []character.Character) (int64, error) {
	return s.seq.Next(existing), nil
}
