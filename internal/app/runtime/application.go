// Package runtime assembles the API process from configuration.
package runtime

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	app "github.com/R3E-Network/thrones_api/internal/app"
	"github.com/R3E-Network/thrones_api/internal/app/httpapi"
	"github.com/R3E-Network/thrones_api/internal/app/system"
	"github.com/R3E-Network/thrones_api/internal/config"
	"github.com/R3E-Network/thrones_api/internal/logging"
	"github.com/R3E-Network/thrones_api/internal/middleware"
)

// janitorInterval is how often idle rate-limit buckets are dropped.
const janitorInterval = time.Minute

// Application wires core dependencies and manages the HTTP server lifecycle.
type Application struct {
	cfg       *config.Config
	log       *logging.Logger
	app       *app.Application
	handler   http.Handler
	server    *http.Server
	limiter   *middleware.RateLimiter
	auditSink *httpapi.FileAuditSink
	manager   *system.Manager

	mu       sync.Mutex
	addr     net.Addr
	errCh    chan error
	stopJobs context.CancelFunc
}

// NewApplication opens the configured stores and builds the HTTP stack.
func NewApplication(ctx context.Context, cfg *config.Config, log *logging.Logger) (*Application, error) {
	if log == nil {
		log = logging.New("thrones-api", cfg.Logging.Level, cfg.Logging.Format)
	}

	stores, err := BuildStores(ctx, cfg, log)
	if err != nil {
		return nil, fmt.Errorf("configure stores: %w", err)
	}

	core, err := app.New(stores, app.Options{
		Secret:       cfg.Auth.SecretKey,
		TokenTTL:     cfg.Auth.TokenTTL,
		SampleSize:   cfg.Query.SampleSize,
		DefaultLimit: cfg.Query.DefaultLimit,
		BcryptCost:   cfg.Auth.BcryptCost,
	}, log)
	if err != nil {
		return nil, err
	}

	sink, err := httpapi.NewFileAuditSink(cfg.Audit.File)
	if err != nil {
		_ = core.Close()
		return nil, fmt.Errorf("open audit log: %w", err)
	}
	var auditSink httpapi.AuditSink
	if sink != nil {
		auditSink = sink
	}

	limiter := middleware.NewRateLimiter(cfg.RateLimit.RPS, cfg.RateLimit.Burst, log)
	handler := httpapi.NewHandler(core, log,
		httpapi.WithAllowedOrigins(cfg.CORS.Origins()),
		httpapi.WithRateLimiter(limiter),
		httpapi.WithAuditLog(httpapi.NewAuditLog(cfg.Audit.Size, auditSink, log)),
		httpapi.WithMaxBodyBytes(cfg.Server.MaxBodyBytes),
	)

	a := &Application{
		cfg:       cfg,
		log:       log,
		app:       core,
		handler:   handler,
		limiter:   limiter,
		auditSink: sink,
		manager:   system.NewManager(),
		errCh:     make(chan error, 1),
		server: &http.Server{
			Addr:              cfg.Server.Addr,
			Handler:           handler,
			ReadHeaderTimeout: 10 * time.Second,
		},
	}

	for _, svc := range []system.Service{
		system.Func{ServiceName: "ratelimit-janitor", OnStart: a.startJanitor, OnStop: a.stopJanitor},
		system.Func{ServiceName: "http", OnStart: a.startHTTP, OnStop: a.server.Shutdown},
	} {
		if err := a.manager.Register(svc); err != nil {
			_ = a.close()
			return nil, fmt.Errorf("register %s: %w", svc.Name(), err)
		}
	}
	return a, nil
}

// App exposes the wired services.
func (a *Application) App() *app.Application {
	return a.app
}

// Handler returns the HTTP stack without starting a listener.
func (a *Application) Handler() http.Handler {
	return a.handler
}

// Addr returns the bound listener address once Run has started.
func (a *Application) Addr() net.Addr {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.addr
}

// Run starts the HTTP server and blocks until the context is cancelled or
// the server fails.
func (a *Application) Run(ctx context.Context) error {
	if err := a.manager.Start(ctx); err != nil {
		return err
	}

	select {
	case <-ctx.Done():
		return nil
	case err := <-a.errCh:
		return err
	}
}

// Shutdown gracefully shuts down the HTTP server and releases stores.
func (a *Application) Shutdown(ctx context.Context) error {
	timeout := a.cfg.Server.ShutdownTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	stopErr := a.manager.Stop(shutdownCtx)
	return errors.Join(stopErr, a.close())
}

func (a *Application) close() error {
	var errs []error
	if err := a.auditSink.Close(); err != nil {
		errs = append(errs, err)
	}
	if err := a.app.Close(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

func (a *Application) startHTTP(_ context.Context) error {
	ln, err := net.Listen("tcp", a.server.Addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", a.server.Addr, err)
	}
	a.mu.Lock()
	a.addr = ln.Addr()
	a.mu.Unlock()

	go func() {
		a.log.Infof("HTTP server listening on %s", ln.Addr())
		if err := a.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.errCh <- err
		}
	}()
	return nil
}

func (a *Application) startJanitor(ctx context.Context) error {
	jobCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	a.mu.Lock()
	a.stopJobs = cancel
	a.mu.Unlock()
	a.limiter.StartCleanup(jobCtx, janitorInterval)
	return nil
}

func (a *Application) stopJanitor(context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.stopJobs != nil {
		a.stopJobs()
		a.stopJobs = nil
	}
	return nil
}
