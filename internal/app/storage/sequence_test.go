package storage

import (
	"sync"
	"testing"

	"github.com/R3E-Network/thrones_api/internal/app/domain/character"
)

func TestIDSequenceStartsAfterExisting(t *testing.T) {
	var seq IDSequence
	existing := []character.Character{{ID: 1}, {ID: 3}, {ID: 2}}

	if got := seq.Next(existing); got != 4 {
		t.Fatalf("Next() = %d, want 4", got)
	}
	if got := seq.Next(existing); got != 5 {
		t.Fatalf("Next() = %d, want 5", got)
	}
}

func TestIDSequenceEmptyStartsAtOne(t *testing.T) {
	var seq IDSequence
	if got := seq.Next(nil); got != 1 {
		t.Fatalf("Next() = %d, want 1", got)
	}
}

func TestIDSequenceDoesNotReuseAfterDelete(t *testing.T) {
	var seq IDSequence
	records := []character.Character{{ID: 1}, {ID: 2}, {ID: 3}}
	if got := seq.Next(records); got != 4 {
		t.Fatalf("Next() = %d, want 4", got)
	}
	// id 4 was handed out and then removed again
	if got := seq.Next(records); got != 5 {
		t.Fatalf("Next() = %d, want 5", got)
	}
}

func TestIDSequenceConcurrentCallersGetUniqueIDs(t *testing.T) {
	var seq IDSequence
	const n = 64

	var wg sync.WaitGroup
	ids := make(chan int64, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ids <- seq.Next(nil)
		}()
	}
	wg.Wait()
	close(ids)

	seen := make(map[int64]bool, n)
	for id := range ids {
		if seen[id] {
			t.Fatalf("duplicate id %d", id)
		}
		seen[id] = true
	}
	if len(seen) != n {
		t.Fatalf("got %d ids, want %d", len(seen), n)
	}
}

func TestMaxID(t *testing.T) {
	if got := MaxID(nil); got != 0 {
		t.Fatalf("MaxID(nil) = %d", got)
	}
	if got := MaxID([]character.Character{{ID: 9}, {ID: 4}}); got != 9 {
		t.Fatalf("MaxID = %d, want 9", got)
	}
}

func TestIDSequenceObserveRemembersDeletedIDs(t *testing.T) {
	var seq IDSequence
	seq.Observe([]character.Character{{ID: 1}, {ID: 2}, {ID: 3}})

	// record 3 is gone by the time the next id is requested
	if got := seq.Next([]character.Character{{ID: 1}, {ID: 2}}); got != 4 {
		t.Fatalf("Next() = %d, want 4", got)
	}
}
