package app

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/R3E-Network/thrones_api/internal/app/metrics"
	"github.com/R3E-Network/thrones_api/internal/app/query"
	"github.com/R3E-Network/thrones_api/internal/app/services/accounts"
	"github.com/R3E-Network/thrones_api/internal/app/services/characters"
	"github.com/R3E-Network/thrones_api/internal/app/storage"
	"github.com/R3E-Network/thrones_api/internal/app/storage/memory"
	"github.com/R3E-Network/thrones_api/internal/auth"
	"github.com/R3E-Network/thrones_api/internal/logging"
)

// Stores encapsulates persistence dependencies. Nil stores default to the
// in-memory implementation.
type Stores struct {
	Characters  storage.CharacterStore
	Credentials storage.CredentialStore
}

// Options tunes the services built by New. Zero values select defaults.
type Options struct {
	Secret       string
	TokenTTL     time.Duration
	SampleSize   int
	DefaultLimit int
	BcryptCost   int
	Metrics      *metrics.Metrics
}

// Application ties domain services together.
type Application struct {
	log     *logging.Logger
	closers []io.Closer

	Metrics    *metrics.Metrics
	Tokens     *auth.Manager
	Characters *characters.Service
	Accounts   *accounts.Service
}

// New builds a fully initialised application with the provided stores.
func New(stores Stores, opts Options, log *logging.Logger) (*Application, error) {
	if log == nil {
		log = logging.NewDefault("app")
	}

	mem := memory.New()
	if stores.Characters == nil {
		stores.Characters = mem
	}
	if stores.Credentials == nil {
		stores.Credentials = mem
	}

	if opts.TokenTTL <= 0 {
		opts.TokenTTL = auth.DefaultTTL
	}
	tokens, err := auth.NewManager(opts.Secret, opts.TokenTTL)
	if err != nil {
		return nil, fmt.Errorf("configure tokens: %w", err)
	}

	m := opts.Metrics
	if m == nil {
		m = metrics.New()
	}

	engine := query.NewEngine(
		query.WithSampleSize(opts.SampleSize),
		query.WithDefaultLimit(opts.DefaultLimit),
	)

	accountOpts := []accounts.Option{accounts.WithMetrics(m)}
	if opts.BcryptCost > 0 {
		accountOpts = append(accountOpts, accounts.WithBcryptCost(opts.BcryptCost))
	}

	application := &Application{
		log:        log,
		Metrics:    m,
		Tokens:     tokens,
		Characters: characters.New(stores.Characters, log, characters.WithEngine(engine), characters.WithMetrics(m)),
		Accounts:   accounts.New(stores.Credentials, tokens, log, accountOpts...),
	}
	application.track(stores.Characters)
	application.track(stores.Credentials)
	return application, nil
}

// track remembers stores that hold connections so Close can release them.
// A store serving both roles is closed once.
func (a *Application) track(store interface{}) {
	c, ok := store.(io.Closer)
	if !ok {
		return
	}
	for _, existing := range a.closers {
		if existing == c {
			return
		}
	}
	a.closers = append(a.closers, c)
}

// Close releases store connections.
func (a *Application) Close() error {
	var errs []error
	for _, c := range a.closers {
		if err := c.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	if err := errors.Join(errs...); err != nil {
		a.log.WithError(err).Warn("error closing stores")
		return err
	}
	return nil
}
