// Package accounts registers users and exchanges credentials for tokens.
package accounts

import (
	"context"
	stderrors "errors"
	"io/fs"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/R3E-Network/thrones_api/internal/app/domain/account"
	"github.com/R3E-Network/thrones_api/internal/app/metrics"
	"github.com/R3E-Network/thrones_api/internal/app/storage"
	"github.com/R3E-Network/thrones_api/internal/auth"
	"github.com/R3E-Network/thrones_api/internal/errors"
	"github.com/R3E-Network/thrones_api/internal/logging"
)

// Token is the result of a successful login.
type Token struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Service manages user credentials.
type Service struct {
	store   storage.CredentialStore
	tokens  *auth.Manager
	metrics *metrics.Metrics
	log     *logging.Logger
	cost    int

	// dummyHash is compared against when the user does not exist so both
	// failure paths take the same time.
	dummyHash []byte
}

// Option configures a Service.
type Option func(*Service)

// WithBcryptCost overrides bcrypt.DefaultCost.
func WithBcryptCost(cost int) Option {
	return func(s *Service) {
		if cost >= bcrypt.MinCost && cost <= bcrypt.MaxCost {
			s.cost = cost
		}
	}
}

// WithMetrics enables login counters.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// New constructs an account service.
func New(store storage.CredentialStore, tokens *auth.Manager, log *logging.Logger, opts ...Option) *Service {
	if log == nil {
		log = logging.NewDefault("accounts")
	}
	s := &Service{store: store, tokens: tokens, log: log, cost: bcrypt.DefaultCost}
	for _, opt := range opts {
		opt(s)
	}
	s.dummyHash, _ = bcrypt.GenerateFromPassword([]byte("not-a-real-password"), s.cost)
	return s
}

// Register stores a new user with the default role.
func (s *Service) Register(ctx context.Context, username, password string) error {
	return s.Import(ctx, username, password, account.RoleUser)
}

// Import stores a user whose plaintext password comes from an earlier
// users file. An empty role becomes the default role.
func (s *Service) Import(ctx context.Context, username, password, role string) error {
	if role == "" {
		role = account.RoleUser
	}
	if username == "" || password == "" {
		return errors.MissingCredentials()
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if stderrors.Is(err, bcrypt.ErrPasswordTooLong) {
		return errors.BadRequest("Password must be at most 72 bytes.")
	}
	if err != nil {
		return errors.Internal("Failed to hash password", err)
	}

	cred := account.Credential{Username: username, PasswordHash: string(hash), Role: role}
	if err := s.store.CreateCredential(ctx, cred); err != nil {
		switch {
		case stderrors.Is(err, storage.ErrAlreadyExists):
			return errors.UsernameTaken()
		case stderrors.Is(err, storage.ErrUnavailable):
			s.log.WithContext(ctx).WithError(err).Error("credential store unavailable")
			return errors.StorageUnavailable(err)
		default:
			s.log.WithContext(ctx).WithError(err).Error("persist credential failed")
			return errors.StorageWrite(err)
		}
	}

	s.log.WithContext(ctx).WithField("username", username).WithField("role", role).Info("user registered")
	return nil
}

// Login verifies the password and issues a token.
func (s *Service) Login(ctx context.Context, username, password string) (Token, error) {
	cred, err := s.store.GetCredential(ctx, username)
	switch {
	case err == nil:
	case stderrors.Is(err, storage.ErrNotFound), stderrors.Is(err, fs.ErrNotExist):
		_ = bcrypt.CompareHashAndPassword(s.dummyHash, []byte(password))
		return Token{}, s.loginFailed(ctx, username, "unknown user")
	default:
		s.log.WithContext(ctx).WithError(err).Error("credential store unavailable")
		s.metrics.RecordLogin("error")
		return Token{}, errors.StorageUnavailable(err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(cred.PasswordHash), []byte(password)); err != nil {
		return Token{}, s.loginFailed(ctx, username, "password mismatch")
	}

	signed, expiresAt, err := s.tokens.Issue(username, cred.Role)
	if err != nil {
		s.metrics.RecordLogin("error")
		return Token{}, err
	}
	s.metrics.RecordLogin("success")
	s.log.WithContext(ctx).WithField("username", username).Info("user logged in")
	return Token{Token: signed, ExpiresAt: expiresAt}, nil
}

func (s *Service) loginFailed(ctx context.Context, username, reason string) error {
	s.metrics.RecordLogin("failure")
	s.log.LogSecurityEvent(ctx, "login_failed", map[string]interface{}{
		"username": username,
		"reason":   reason,
	})
	return errors.InvalidCredentials()
}
