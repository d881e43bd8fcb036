// Package characters reads and mutates the character collection.
package characters

import (
	"context"
	stderrors "errors"
	"io/fs"
	"net/url"
	"sync"

	"github.com/R3E-Network/thrones_api/internal/app/domain/character"
	"github.com/R3E-Network/thrones_api/internal/app/metrics"
	"github.com/R3E-Network/thrones_api/internal/app/query"
	"github.com/R3E-Network/thrones_api/internal/app/storage"
	"github.com/R3E-Network/thrones_api/internal/errors"
	"github.com/R3E-Network/thrones_api/internal/logging"
)

// Service answers queries and applies mutations. Mutations are serialised
// so that load, modify and persist happen as one step.
type Service struct {
	store   storage.CharacterStore
	engine  *query.Engine
	metrics *metrics.Metrics
	log     *logging.Logger

	mu sync.Mutex
}

// Option configures a Service.
type Option func(*Service)

// WithEngine replaces the default query engine.
func WithEngine(e *query.Engine) Option {
	return func(s *Service) {
		if e != nil {
			s.engine = e
		}
	}
}

// WithMetrics enables mutation and query counters.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// New constructs a character service.
func New(store storage.CharacterStore, log *logging.Logger, opts ...Option) *Service {
	if log == nil {
		log = logging.NewDefault("characters")
	}
	s := &Service{store: store, engine: query.NewEngine(), log: log}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Query runs the filter/sort/paginate pipeline over a snapshot of the store.
// An unreadable store is treated as empty.
func (s *Service) Query(ctx context.Context, values url.Values) ([]character.Character, error) {
	records := s.snapshot(ctx)
	res, err := s.engine.Run(records, values)
	if err != nil {
		return nil, err
	}
	s.metrics.RecordQuery(string(res.Mode))
	return res.Characters, nil
}

// All returns every character in store order.
func (s *Service) All(ctx context.Context) []character.Character {
	return s.snapshot(ctx)
}

// Get returns the character with id.
func (s *Service) Get(ctx context.Context, id int64) (character.Character, error) {
	for _, c := range s.snapshot(ctx) {
		if c.ID == id {
			return c, nil
		}
	}
	return character.Character{}, errors.RecordNotFound(id)
}

// Create validates payload, assigns a fresh id and appends the record.
// Attributes missing from payload are null.
func (s *Service) Create(ctx context.Context, payload []byte) (created character.Character, err error) {
	defer func() { s.recordMutation("create", err) }()

	patch, err := ParsePatch(payload)
	if err != nil {
		return character.Character{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.loadForWrite(ctx)
	if err != nil {
		return character.Character{}, err
	}
	id, err := s.store.NextCharacterID(ctx, records)
	if err != nil {
		return character.Character{}, errors.StorageUnavailable(err)
	}

	created = character.Character{ID: id}
	patch.Apply(&created)
	records = append(records, created)

	if err := s.persist(ctx, records); err != nil {
		return character.Character{}, err
	}
	s.log.WithContext(ctx).WithField("character_id", id).Info("character created")
	return created, nil
}

// Update applies the attributes present in payload to the first record
// with id. Explicit nulls clear the attribute.
func (s *Service) Update(ctx context.Context, id int64, payload []byte) (updated character.Character, err error) {
	defer func() { s.recordMutation("update", err) }()

	patch, err := ParseUpdate(payload)
	if err != nil {
		return character.Character{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.loadForWrite(ctx)
	if err != nil {
		return character.Character{}, err
	}
	idx := indexOf(records, id)
	if idx < 0 {
		return character.Character{}, errors.RecordNotFound(id)
	}
	patch.Apply(&records[idx])

	if err := s.persist(ctx, records); err != nil {
		return character.Character{}, err
	}
	s.log.WithContext(ctx).
		WithField("character_id", id).
		WithField("fields", patch.Fields()).
		Info("character updated")
	return records[idx], nil
}

// Delete removes the first record with id.
func (s *Service) Delete(ctx context.Context, id int64) (err error) {
	defer func() { s.recordMutation("delete", err) }()

	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.loadForWrite(ctx)
	if err != nil {
		return err
	}
	idx := indexOf(records, id)
	if idx < 0 {
		return errors.RecordNotFound(id)
	}
	records = append(records[:idx], records[idx+1:]...)

	if err := s.persist(ctx, records); err != nil {
		return err
	}
	s.log.WithContext(ctx).WithField("character_id", id).Info("character deleted")
	return nil
}

func (s *Service) snapshot(ctx context.Context) []character.Character {
	records, err := s.store.LoadCharacters(ctx)
	if err != nil {
		s.log.WithContext(ctx).WithError(err).Warn("character store unavailable; serving empty collection")
		return []character.Character{}
	}
	return records
}

// loadForWrite treats a store that does not exist yet as empty so the first
// create can bootstrap it. Any other read failure aborts the mutation.
func (s *Service) loadForWrite(ctx context.Context) ([]character.Character, error) {
	records, err := s.store.LoadCharacters(ctx)
	if err == nil {
		return records, nil
	}
	if stderrors.Is(err, fs.ErrNotExist) {
		return []character.Character{}, nil
	}
	s.log.WithContext(ctx).WithError(err).Error("character store unavailable")
	return nil, errors.StorageUnavailable(err)
}

func (s *Service) persist(ctx context.Context, records []character.Character) error {
	if err := s.store.PersistCharacters(ctx, records); err != nil {
		s.log.WithContext(ctx).WithError(err).Error("persist characters failed")
		return errors.StorageWrite(err)
	}
	return nil
}

func (s *Service) recordMutation(op string, err error) {
	s.metrics.RecordMutation(op, mutationResult(err))
}

// mutationResult labels an outcome by error class to keep the metric's
// cardinality fixed.
func mutationResult(err error) string {
	if err == nil {
		return "ok"
	}
	for _, kind := range []errors.Kind{errors.KindValidation, errors.KindNotFound, errors.KindStorage} {
		if errors.IsKind(err, kind) {
			return string(kind)
		}
	}
	return string(errors.KindInternal)
}

func indexOf(records []character.Character, id int64) int {
	for i, c := range records {
		if c.ID == id {
			return i
		}
	}
	return -1
}
