package redisstore

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/google/uuid"

	"github.com/R3E-Network/thrones_api/internal/app/domain/account"
	"github.com/R3E-Network/thrones_api/internal/app/storage"
)

func TestStoreIntegration(t *testing.T) {
	addr := os.Getenv("TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("TEST_REDIS_ADDR not set; skipping redis integration test")
	}

	ctx := context.Background()
	prefix := "thrones:test:" + uuid.NewString() + ":"
	store, err := Dial(ctx, Options{Addr: addr, Prefix: prefix})
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer store.Close()
	defer store.rdb.Del(ctx, store.key("gendry"))

	if _, err := store.GetCredential(ctx, "gendry"); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	cred := account.Credential{Username: "gendry", PasswordHash: "$2a$hash", Role: account.RoleUser}
	if err := store.CreateCredential(ctx, cred); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := store.CreateCredential(ctx, cred); !errors.Is(err, storage.ErrAlreadyExists) {
		t.Fatalf("expected ErrAlreadyExists, got %v", err)
	}

	got, err := store.GetCredential(ctx, "gendry")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got != cred {
		t.Fatalf("got %+v, want %+v", got, cred)
	}
}

func TestDialUnreachable(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := Dial(ctx, Options{Addr: "127.0.0.1:1"}); err == nil {
		t.Fatal("expected dial error")
	}
}
