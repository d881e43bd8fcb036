// Package query turns a request's query string into a filtered, sorted and
// paginated view of the character collection.
//
// The pipeline is fixed: validate parameter names, filter, validate and
// apply the sort, then paginate. A request with no filters, no sort and no
// limit/skip takes a separate path and returns a random sample of the
// unfiltered collection instead of a page.
package query

import (
	"math/rand/v2"
	"net/url"
	"sync"

	"github.com/R3E-Network/thrones_api/internal/app/domain/character"
)

// DefaultSampleSize bounds the random sample returned for bare requests.
const DefaultSampleSize = 20

// Mode reports which path produced a result.
type Mode string

const (
	ModeSample Mode = "sample"
	ModePage   Mode = "page"
)

// Result is the outcome of Run.
type Result struct {
	Characters []character.Character
	Mode       Mode
	// Matched is the number of records that passed the filters.
	Matched int
}

// Engine runs queries. It is safe for concurrent use.
type Engine struct {
	sampleSize   int
	defaultLimit int

	mu   sync.Mutex
	intN func(int) int
}

// Option configures an Engine.
type Option func(*Engine)

// WithSampleSize overrides DefaultSampleSize.
func WithSampleSize(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.sampleSize = n
		}
	}
}

// WithDefaultLimit overrides DefaultLimit.
func WithDefaultLimit(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.defaultLimit = n
		}
	}
}

// WithRand makes sampling deterministic.
func WithRand(r *rand.Rand) Option {
	return func(e *Engine) {
		if r != nil {
			e.intN = r.IntN
		}
	}
}

// NewEngine creates an Engine.
func NewEngine(opts ...Option) *Engine {
	e := &Engine{
		sampleSize:   DefaultSampleSize,
		defaultLimit: DefaultLimit,
		intN:         rand.IntN,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Run evaluates values against records. records is treated as read-only.
// The first validation failure aborts the pipeline.
func (e *Engine) Run(records []character.Character, values url.Values) (Result, error) {
	if err := ValidateKeys(values); err != nil {
		return Result{}, err
	}

	filters := ParseFilters(values)
	filtered, err := ApplyFilters(records, filters)
	if err != nil {
		return Result{}, err
	}

	directive, err := ParseSort(values)
	if err != nil {
		return Result{}, err
	}
	ordered := filtered
	if directive != nil {
		ordered = Sort(filtered, *directive)
	}

	page, err := ParsePage(values, e.defaultLimit)
	if err != nil {
		return Result{}, err
	}

	if len(filters) == 0 && directive == nil && !page.Explicit {
		return Result{
			Characters: e.sample(records),
			Mode:       ModeSample,
			Matched:    len(records),
		}, nil
	}

	paged, err := Paginate(ordered, page)
	if err != nil {
		return Result{}, err
	}
	return Result{Characters: paged, Mode: ModePage, Matched: len(filtered)}, nil
}

func (e *Engine) sample(records []character.Character) []character.Character {
	e.mu.Lock()
	defer e.mu.Unlock()
	return Sample(records, e.sampleSize, e.intN)
}
