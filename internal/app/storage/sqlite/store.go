// Package sqlite implements the storage interfaces on an embedded SQLite
// database using the pure Go modernc driver.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite" // pure go sqlite driver

	"github.com/R3E-Network/thrones_api/internal/app/domain/account"
	"github.com/R3E-Network/thrones_api/internal/app/domain/character"
	"github.com/R3E-Network/thrones_api/internal/app/storage"
)

const schema = `
CREATE TABLE IF NOT EXISTS characters (
	id        INTEGER PRIMARY KEY,
	position  INTEGER NOT NULL,
	age       INTEGER,
	animal    TEXT,
	death     TEXT,
	house     TEXT,
	name      TEXT,
	nickname  TEXT,
	role      TEXT,
	strength  TEXT,
	symbol    TEXT
);
CREATE TABLE IF NOT EXISTS sequences (
	name TEXT PRIMARY KEY,
	last INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS users (
	username      TEXT PRIMARY KEY,
	password_hash TEXT NOT NULL,
	role          TEXT NOT NULL
);`

// Store persists characters and credentials in a single SQLite file.
type Store struct {
	db *sqlx.DB
}

var _ storage.CharacterStore = (*Store)(nil)
var _ storage.CredentialStore = (*Store)(nil)

// Open opens (creating if needed) the database at path and ensures the
// schema exists. ":memory:" is accepted for tests.
func Open(path string) (*Store, error) {
	if path == "" {
		path = "thrones.db"
	}
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil && !errors.Is(err, os.ErrExist) {
			return nil, fmt.Errorf("create dirs: %w", err)
		}
	}
	db, err := sqlx.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// a single writer avoids SQLITE_BUSY and keeps :memory: on one connection
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) LoadCharacters(ctx context.Context) ([]character.Character, error) {
	records := []character.Character{}
	err := s.db.SelectContext(ctx, &records, `
		SELECT id, age, animal, death, house, name, nickname, role, strength, symbol
		FROM characters
		ORDER BY position`)
	if err != nil {
		return []character.Character{}, fmt.Errorf("%w: select characters: %w", storage.ErrUnavailable, err)
	}
	return records, nil
}

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
	stmt, err := tx.PreparexContext(ctx, `
		INSERT INTO characters (id, position, age, animal, death, house, name, nickname, role, strength, symbol)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("%w: prepare insert: %w", storage.ErrWrite, err)
	}
	defer stmt.Close()

	for i, c := range records {
		if _, err := stmt.ExecContext(ctx,
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

// NextCharacterID keeps the high-water mark in the sequences table so ids
// are not reused across restarts.
func (s *Store) NextCharacterID(ctx context.Context, existing []character.Character) (id int64, retErr error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("%w: begin: %w", storage.ErrUnavailable, err)
	}
	defer func() {
		if retErr != nil {
			_ = tx.Rollback()
		}
	}()

	var last int64
	err = tx.GetContext(ctx, &last, `SELECT last FROM sequences WHERE name = 'characters'`)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("%w: read sequence: %w", storage.ErrUnavailable, err)
	}
	if max := storage.MaxID(existing); max > last {
		last = max
	}
	id = last + 1

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO sequences (name, last) VALUES ('characters', ?)
		ON CONFLICT (name) DO UPDATE SET last = excluded.last`, id); err != nil {
		return 0, fmt.Errorf("%w: advance sequence: %w", storage.ErrUnavailable, err)
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("%w: commit: %w", storage.ErrUnavailable, err)
	}
	return id, nil
}

func (s *Store) GetCredential(ctx context.Context, username string) (account.Credential, error) {
	var cred account.Credential
	err := s.db.GetContext(ctx, &cred,
		`SELECT username, password_hash, role FROM users WHERE username = ?`, username)
	if errors.Is(err, sql.ErrNoRows) {
		return account.Credential{}, storage.ErrNotFound
	}
	if err != nil {
		return account.Credential{}, fmt.Errorf("%w: select user: %w", storage.ErrUnavailable, err)
	}
	return cred, nil
}

func (s *Store) CreateCredential(ctx context.Context, cred account.Credential) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO users (username, password_hash, role) VALUES (?, ?, ?)`,
		cred.Username, cred.PasswordHash, cred.Role)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return storage.ErrAlreadyExists
		}
		return fmt.Errorf("%w: insert user: %w", storage.ErrWrite, err)
	}
	return nil
}
