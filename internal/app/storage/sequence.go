package storage

import (
	"sync"

	"github.com/R3E-Network/thrones_api/internal/app/domain/character"
)

// IDSequence is a process-local id counter for stores without a native
// sequence. The zero value is ready to use.
type IDSequence struct {
	mu   sync.Mutex
	last int64
}

// Observe raises the high-water mark to the largest id in records so that
// ids seen once are never handed out again, even after their record is
// deleted.
func (s *IDSequence) Observe(records []character.Character) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.observeLocked(records)
}

// Next returns an id greater than the highest id in existing, every id
// observed before, and the last id returned.
func (s *IDSequence) Next(existing []character.Character) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.observeLocked(existing)
	s.last++
	return s.last
}

func (s *IDSequence) observeLocked(records []character.Character) {
	if max := MaxID(records); max > s.last {
		s.last = max
	}
}

// MaxID returns the highest id in records, or 0 when records is empty.
func MaxID(records []character.Character) int64 {
	var max int64
	for _, c := range records {
		if c.ID > max {
			max = c.ID
		}
	}
	return max
}
