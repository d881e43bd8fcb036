package runtime

import (
	"context"
	"errors"
	"fmt"
	"io"

	app "github.com/R3E-Network/thrones_api/internal/app"
	"github.com/R3E-Network/thrones_api/internal/app/storage"
	"github.com/R3E-Network/thrones_api/internal/app/storage/file"
	"github.com/R3E-Network/thrones_api/internal/app/storage/memory"
	"github.com/R3E-Network/thrones_api/internal/app/storage/postgres"
	"github.com/R3E-Network/thrones_api/internal/app/storage/redisstore"
	"github.com/R3E-Network/thrones_api/internal/app/storage/sqlite"
	"github.com/R3E-Network/thrones_api/internal/config"
	"github.com/R3E-Network/thrones_api/internal/logging"
	"github.com/R3E-Network/thrones_api/internal/platform/migrations"
)

// storeSet opens each backend at most once so a driver shared by the
// character and credential roles uses a single connection.
type storeSet struct {
	cfg    *config.Config
	log    *logging.Logger
	opened map[string]interface{}
}

// BuildStores opens the backends selected by cfg. Postgres schemas are
// migrated first when cfg.Storage.AutoMigrate is set.
func BuildStores(ctx context.Context, cfg *config.Config, log *logging.Logger) (app.Stores, error) {
	set := newStoreSet(cfg, log)

	characters, err := set.characters(ctx)
	if err != nil {
		return app.Stores{}, err
	}
	credentials, err := set.credentials(ctx)
	if err != nil {
		set.closeAll()
		return app.Stores{}, err
	}

	set.log.WithField("characters", cfg.Storage.Driver).
		WithField("credentials", cfg.CredentialsDriver()).
		Info("storage configured")
	return app.Stores{Characters: characters, Credentials: credentials}, nil
}

// BuildCharacterStore opens only the character backend. The caller closes
// it when it implements io.Closer.
func BuildCharacterStore(ctx context.Context, cfg *config.Config, log *logging.Logger) (storage.CharacterStore, error) {
	return newStoreSet(cfg, log).characters(ctx)
}

// BuildCredentialStore opens only the credential backend. The caller closes
// it when it implements io.Closer.
func BuildCredentialStore(ctx context.Context, cfg *config.Config, log *logging.Logger) (storage.CredentialStore, error) {
	return newStoreSet(cfg, log).credentials(ctx)
}

func newStoreSet(cfg *config.Config, log *logging.Logger) *storeSet {
	if log == nil {
		log = logging.NewDefault("runtime")
	}
	return &storeSet{cfg: cfg, log: log, opened: make(map[string]interface{})}
}

func (s *storeSet) characters(ctx context.Context) (storage.CharacterStore, error) {
	driver := s.cfg.Storage.Driver
	if driver == config.DriverFile {
		return file.NewCharacterStore(s.cfg.Storage.CharactersFile), nil
	}
	backend, err := s.open(ctx, driver)
	if err != nil {
		return nil, err
	}
	store, ok := backend.(storage.CharacterStore)
	if !ok {
		s.closeAll()
		return nil, fmt.Errorf("driver %q cannot store characters", driver)
	}
	return store, nil
}

func (s *storeSet) credentials(ctx context.Context) (storage.CredentialStore, error) {
	driver := s.cfg.CredentialsDriver()
	if driver == config.DriverFile {
		return file.NewCredentialStore(s.cfg.Storage.UsersFile), nil
	}
	backend, err := s.open(ctx, driver)
	if err != nil {
		return nil, err
	}
	store, ok := backend.(storage.CredentialStore)
	if !ok {
		return nil, fmt.Errorf("driver %q cannot store credentials", driver)
	}
	return store, nil
}

func (s *storeSet) open(ctx context.Context, driver string) (interface{}, error) {
	if backend, ok := s.opened[driver]; ok {
		return backend, nil
	}

	var (
		backend interface{}
		err     error
	)
	switch driver {
	case config.DriverMemory:
		backend = memory.New()
	case config.DriverSQLite:
		backend, err = sqlite.Open(s.cfg.Storage.SQLitePath)
	case config.DriverPostgres:
		backend, err = s.openPostgres(ctx)
	case config.DriverRedis:
		backend, err = redisstore.Dial(ctx, redisstore.Options{
			Addr:     s.cfg.Redis.Addr,
			Password: s.cfg.Redis.Password,
			DB:       s.cfg.Redis.DB,
			Prefix:   s.cfg.Redis.Prefix,
		})
	default:
		err = fmt.Errorf("unsupported storage driver %q", driver)
	}
	if err != nil {
		return nil, fmt.Errorf("open %s store: %w", driver, err)
	}
	s.opened[driver] = backend
	return backend, nil
}

func (s *storeSet) openPostgres(ctx context.Context) (*postgres.Store, error) {
	if s.cfg.Storage.AutoMigrate {
		if err := migrations.Up(s.cfg.Storage.PostgresDSN); err != nil {
			return nil, fmt.Errorf("migrate: %w", err)
		}
		s.log.Info("postgres schema up to date")
	}
	return postgres.Open(ctx, s.cfg.Storage.PostgresDSN)
}

func (s *storeSet) closeAll() {
	var errs []error
	for _, backend := range s.opened {
		if c, ok := backend.(io.Closer); ok {
			errs = append(errs, c.Close())
		}
	}
	if err := errors.Join(errs...); err != nil {
		s.log.WithError(err).Warn("error closing stores")
	}
}
