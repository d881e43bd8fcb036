package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq" // postgres driver

	"github.com/R3E-Network/thrones_api/internal/app/domain/account"
	"github.com/R3E-Network/thrones_api/internal/app/domain/character"
	"github.com/R3E-Network/thrones_api/internal/app/storage"
)

// Store implements the storage interfaces backed by PostgreSQL. The schema
// lives in internal/platform/migrations.
type Store struct {
	db *sqlx.DB
}

var _ storage.CharacterStore = (*Store)(nil)
var _ storage.CredentialStore = (*Store)(nil)

// New creates a Store using the provided database handle.
func New(db *sqlx.DB) *Store {
	return &Store{db: db}
}

// Open connects to dsn and verifies the connection.
func Open(ctx context.Context, dsn string) (*Store, error) {
	db, err := sqlx.ConnectContext(ctx, "postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	return New(db), nil
}

// Close releases the underlying connection pool.
func (s *Store) Close() error {
	return s.db.Close()
}

// --- CharacterStore ---------------------------------------------------------

const selectCharacters = `
		SELECT id, age, animal, death, house, name, nickname, role, strength, symbol
		FROM characters
		ORDER BY position
	`

const insertCharacter = `
		INSERT INTO characters (id, position, age, animal, death, house, name, nickname, role, strength, symbol)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`

func (s *Store) LoadCharacters(ctx context.Context) ([]character.Character, error) {
	records := []character.Character{}
	if err := s.db.SelectContext(ctx, &records, selectCharacters); err != nil {
		return []character.Character{}, fmt.Errorf("%w: select characters: %w", storage.ErrUnavailable, err)
	}
	return records, nil
}

// PersistCharacters replaces the table contents in a single transaction.
func (s *Store) PersistCharacters(ctx context.Context, records []character.Character) (retErr error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: begin: %w", storage.ErrWrite, err)
	}
	defer func() {
		if retErr != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err := tx.ExecContext(ctx, `DELETE FROM characters`); err != nil {
		return fmt.Errorf("%w: clear characters: %w", storage.ErrWrite, err)
	}
	for i, c := range records {
		if _, err := tx.ExecContext(ctx, insertCharacter,
			c.ID, i, c.Age, c.Animal, c.Death, c.House, c.Name, c.Nickname, c.Role, c.Strength, c.Symbol,
		); err != nil {
			return fmt.Errorf("%w: insert character %d: %w", storage.ErrWrite, c.ID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: commit: %w", storage.ErrWrite, err)
	}
	return nil
}

// NextCharacterID draws from characters_id_seq, first lifting the sequence
// above the largest existing id.
func (s *Store) NextCharacterID(ctx context.Context, existing []character.Character) (int64, error) {
	floor := storage.MaxID(existing) + 1

	var id int64
	err := s.db.QueryRowxContext(ctx,
		`SELECT setval('characters_id_seq', GREATEST(nextval('characters_id_seq'), $1::bigint))`,
		floor,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("%w: next character id: %w", storage.ErrUnavailable, err)
	}
	return id, nil
}

// --- CredentialStore --------------------------------------------------------

func (s *Store) GetCredential(ctx context.Context, username string) (account.Credential, error) {
	var cred account.Credential
	err := s.db.GetContext(ctx, &cred, `
		SELECT username, password_hash, role
		FROM users
		WHERE username = $1
	`, username)
	if errors.Is(err, sql.ErrNoRows) {
		return account.Credential{}, storage.ErrNotFound
	}
	if err != nil {
		return account.Credential{}, fmt.Errorf("%w: select user: %w", storage.ErrUnavailable, err)
	}
	return cred, nil
}

func (s *Store) CreateCredential(ctx context.Context, cred account.Credential) error {
	result, err := s.db.ExecContext(ctx, `
		INSERT INTO users (username, password_hash, role)
		VALUES ($1, $2, $3)
		ON CONFLICT (username) DO NOTHING
	`, cred.Username, cred.PasswordHash, cred.Role)
	if err != nil {
		return fmt.Errorf("%w: insert user: %w", storage.ErrWrite, err)
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return storage.ErrAlreadyExists
	}
	return nil
}
