package postgres

import (
	"context"
	"errors"
	"os"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"

	"github.com/R3E-Network/thrones_api/internal/app/domain/account"
	"github.com/R3E-Network/thrones_api/internal/app/domain/character"
	"github.com/R3E-Network/thrones_api/internal/app/storage"
	"github.com/R3E-Network/thrones_api/internal/platform/migrations"
)

var characterColumns = []string{"id", "age", "animal", "death", "house", "name", "nickname", "role", "strength", "symbol"}

func newMockStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock new: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return New(sqlx.NewDb(db, "postgres")), mock
}

func TestLoadCharactersKeepsNulls(t *testing.T) {
	store, mock := newMockStore(t)

	rows := sqlmock.NewRows(characterColumns).
		AddRow(int64(1), int64(23), "Direwolf", nil, "Stark", "Jon Snow", nil, nil, nil, nil).
		AddRow(int64(2), nil, nil, nil, nil, "Hodor", nil, nil, nil, nil)
	mock.ExpectQuery(regexp.QuoteMeta("FROM characters")).WillReturnRows(rows)

	got, err := store.LoadCharacters(context.Background())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 characters, got %d", len(got))
	}
	if got[0].Age == nil || *got[0].Age != 23 || *got[0].House != "Stark" || got[0].Death != nil {
		t.Fatalf("unexpected first record: %+v", got[0])
	}
	if got[1].Age != nil || *got[1].Name != "Hodor" {
		t.Fatalf("unexpected second record: %+v", got[1])
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestLoadCharactersUnavailable(t *testing.T) {
	store, mock := newMockStore(t)
	mock.ExpectQuery(regexp.QuoteMeta("FROM characters")).WillReturnError(errors.New("connection refused"))

	got, err := store.LoadCharacters(context.Background())
	if !errors.Is(err, storage.ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
	if got == nil || len(got) != 0 {
		t.Fatalf("expected empty slice, got %v", got)
	}
}

func TestPersistCharactersRewritesInOrder(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM characters")).WillReturnResult(sqlmock.NewResult(0, 3))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO characters")).
		WithArgs(int64(7), int64(0), int64(40), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(),
			"Tywin", sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO characters")).
		WithArgs(int64(3), int64(1), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(),
			"Cersei", sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	records := []character.Character{
		{ID: 7, Name: character.Str("Tywin"), Age: character.Int64(40)},
		{ID: 3, Name: character.Str("Cersei")},
	}
	if err := store.PersistCharacters(context.Background(), records); err != nil {
		t.Fatalf("persist: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestPersistCharactersRollsBackOnFailure(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM characters")).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO characters")).WillReturnError(errors.New("disk full"))
	mock.ExpectRollback()

	err := store.PersistCharacters(context.Background(), []character.Character{{ID: 1}})
	if !errors.Is(err, storage.ErrWrite) {
		t.Fatalf("expected ErrWrite, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestNextCharacterIDLiftsSequence(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT setval('characters_id_seq'")).
		WithArgs(int64(4)).
		WillReturnRows(sqlmock.NewRows([]string{"setval"}).AddRow(int64(4)))

	id, err := store.NextCharacterID(context.Background(), []character.Character{{ID: 1}, {ID: 2}, {ID: 3}})
	if err != nil {
		t.Fatalf("next id: %v", err)
	}
	if id != 4 {
		t.Fatalf("expected id 4, got %d", id)
	}
}

func TestCredentials(t *testing.T) {
	store, mock := newMockStore(t)
	ctx := context.Background()

	mock.ExpectQuery(regexp.QuoteMeta("FROM users")).
		WithArgs("bran").
		WillReturnRows(sqlmock.NewRows([]string{"username", "password_hash", "role"}))
	if _, err := store.GetCredential(ctx, "bran"); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO users")).
		WithArgs("bran", "$2a$hash", account.RoleUser).
		WillReturnResult(sqlmock.NewResult(0, 1))
	if err := store.CreateCredential(ctx, account.Credential{Username: "bran", PasswordHash: "$2a$hash", Role: account.RoleUser}); err != nil {
		t.Fatalf("create: %v", err)
	}

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO users")).
		WillReturnResult(sqlmock.NewResult(0, 0))
	if err := store.CreateCredential(ctx, account.Credential{Username: "bran"}); !errors.Is(err, storage.ErrAlreadyExists) {
		t.Fatalf("expected ErrAlreadyExists, got %v", err)
	}

	mock.ExpectQuery(regexp.QuoteMeta("FROM users")).
		WithArgs("bran").
		WillReturnRows(sqlmock.NewRows([]string{"username", "password_hash", "role"}).AddRow("bran", "$2a$hash", "user"))
	cred, err := store.GetCredential(ctx, "bran")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if cred.Username != "bran" || cred.PasswordHash != "$2a$hash" || cred.Role != "user" {
		t.Fatalf("unexpected credential: %+v", cred)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestStoreIntegration(t *testing.T) {
	dsn := os.Getenv("TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("TEST_POSTGRES_DSN not set; skipping postgres integration test")
	}
	if err := migrations.Up(dsn); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	ctx := context.Background()
	store, err := Open(ctx, dsn)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer store.Close()

	records := []character.Character{
		{ID: 1, Name: character.Str("Arya Stark"), Age: character.Int64(11)},
		{ID: 2, Name: character.Str("Sandor Clegane"), Nickname: character.Str("The Hound")},
	}
	if err := store.PersistCharacters(ctx, records); err != nil {
		t.Fatalf("persist: %v", err)
	}
	loaded, err := store.LoadCharacters(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(loaded) != 2 || *loaded[1].Nickname != "The Hound" {
		t.Fatalf("unexpected load: %+v", loaded)
	}

	first, err := store.NextCharacterID(ctx, loaded)
	if err != nil {
		t.Fatalf("next id: %v", err)
	}
	second, err := store.NextCharacterID(ctx, loaded)
	if err != nil {
		t.Fatalf("next id: %v", err)
	}
	if first < 3 || second <= first {
		t.Fatalf("ids not increasing: %d then %d", first, second)
	}
}
