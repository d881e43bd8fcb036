package runtime

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/R3E-Network/thrones_api/internal/app/storage/file"
	"github.com/R3E-Network/thrones_api/internal/app/storage/memory"
	"github.com/R3E-Network/thrones_api/internal/app/storage/sqlite"
	"github.com/R3E-Network/thrones_api/internal/config"
	"github.com/R3E-Network/thrones_api/internal/logging"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.Auth.SecretKey = "runtime-secret"
	cfg.Auth.BcryptCost = 4
	cfg.Server.Addr = "127.0.0.1:0"
	cfg.Storage.Driver = config.DriverMemory
	return cfg
}

func TestBuildStoresFileDriver(t *testing.T) {
	dir := t.TempDir()
	cfg := testConfig(t)
	cfg.Storage.Driver = config.DriverFile
	cfg.Storage.CharactersFile = filepath.Join(dir, "characters.json")
	cfg.Storage.UsersFile = filepath.Join(dir, "users.json")

	stores, err := BuildStores(context.Background(), cfg, logging.NewDiscard())
	require.NoError(t, err)
	assert.IsType(t, &file.CharacterStore{}, stores.Characters)
	assert.IsType(t, &file.CredentialStore{}, stores.Credentials)
}

func TestBuildStoresSharesBackend(t *testing.T) {
	cfg := testConfig(t)
	cfg.Storage.Driver = config.DriverSQLite
	cfg.Storage.SQLitePath = filepath.Join(t.TempDir(), "thrones.db")

	stores, err := BuildStores(context.Background(), cfg, logging.NewDiscard())
	require.NoError(t, err)
	store, ok := stores.Characters.(*sqlite.Store)
	require.True(t, ok)
	t.Cleanup(func() { _ = store.Close() })
	assert.Same(t, store, stores.Credentials)

	cfg.Storage.Driver = config.DriverMemory
	stores, err = BuildStores(context.Background(), cfg, logging.NewDiscard())
	require.NoError(t, err)
	assert.IsType(t, &memory.Store{}, stores.Characters)
	assert.Same(t, stores.Characters, stores.Credentials)
}

func TestBuildStoresRejectsUnknownDriver(t *testing.T) {
	cfg := testConfig(t)
	cfg.Storage.Driver = "mongo"
	_, err := BuildStores(context.Background(), cfg, logging.NewDiscard())
	require.Error(t, err)

	cfg = testConfig(t)
	cfg.Storage.CredentialsDriver = "mongo"
	_, err = BuildStores(context.Background(), cfg, logging.NewDiscard())
	require.Error(t, err)
}

func TestApplicationServesAndShutsDown(t *testing.T) {
	cfg := testConfig(t)
	cfg.Audit.File = filepath.Join(t.TempDir(), "audit.jsonl")

	application, err := NewApplication(context.Background(), cfg, logging.NewDiscard())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- application.Run(ctx) }()

	require.Eventually(t, func() bool { return application.Addr() != nil }, 5*time.Second, 10*time.Millisecond)
	base := "http://" + application.Addr().String()

	resp, err := http.Get(base + "/healthz")
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	creds := `{"username":"tyrion","password":"wine"}`
	resp, err = http.Post(base+"/api/register", "application/json", strings.NewReader(creds))
	require.NoError(t, err)
	_ = resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = http.Post(base+"/api/login", "application/json", strings.NewReader(creds))
	require.NoError(t, err)
	var login struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&login))
	_ = resp.Body.Close()

	req, _ := http.NewRequest(http.MethodPost, base+"/api/characters", strings.NewReader(`{"name":"Bronn"}`))
	req.Header.Set("Authorization", "Bearer "+login.Token)
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	_, _ = io.Copy(io.Discard, resp.Body)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusCreated, resp.StatusCode)

	cancel()
	require.NoError(t, <-done)
	require.NoError(t, application.Shutdown(context.Background()))

	audit, err := os.ReadFile(cfg.Audit.File)
	require.NoError(t, err)
	assert.Contains(t, string(audit), `"user":"tyrion"`)
}

func TestRunFailsWhenAddressInUse(t *testing.T) {
	first, err := NewApplication(context.Background(), testConfig(t), logging.NewDiscard())
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = first.Run(ctx) }()
	require.Eventually(t, func() bool { return first.Addr() != nil }, 5*time.Second, 10*time.Millisecond)
	t.Cleanup(func() { _ = first.Shutdown(context.Background()) })

	cfg := testConfig(t)
	cfg.Server.Addr = first.Addr().String()
	second, err := NewApplication(context.Background(), cfg, logging.NewDiscard())
	require.NoError(t, err)
	err = second.Run(context.Background())
	require.Error(t, err)
	require.NoError(t, second.Shutdown(context.Background()))
}

func TestBuildCharacterStoreRejectsRedis(t *testing.T) {
	cfg := testConfig(t)
	cfg.Storage.Driver = config.DriverRedis
	cfg.Redis.Addr = "127.0.0.1:1"
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	_, err := BuildCharacterStore(ctx, cfg, logging.NewDiscard())
	require.Error(t, err)
}
