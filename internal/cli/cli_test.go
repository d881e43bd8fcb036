package cli

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/R3E-Network/thrones_api/internal/app/storage/file"
)

func TestRootCommand(t *testing.T) {
	cmd := NewRootCommand()
	require.NotNil(t, cmd)
	assert.Equal(t, "thrones-api", cmd.Use)

	for _, name := range []string{"serve", "seed", "import-users", "migrate"} {
		t.Run(name, func(t *testing.T) {
			sub, _, err := cmd.Find([]string{name})
			require.NoError(t, err)
			assert.Equal(t, name, sub.Name())
		})
	}

	envFlag := cmd.PersistentFlags().Lookup("env-file")
	require.NotNil(t, envFlag)
	assert.Equal(t, ".env", envFlag.DefValue)
}

func TestMigrateSubcommands(t *testing.T) {
	cmd := NewRootCommand()
	for _, name := range []string{"up", "down", "version"} {
		sub, _, err := cmd.Find([]string{"migrate", name})
		require.NoError(t, err)
		assert.Equal(t, name, sub.Name())
	}
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append([]string{"--env-file", ""}, args...))
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func seedEnv(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "characters.json")
	t.Setenv("CONFIG_FILE", "")
	t.Setenv("STORAGE_DRIVER", "file")
	t.Setenv("CHARACTERS_FILE", path)
	t.Setenv("LOG_LEVEL", "panic")
	return path
}

func writeSeed(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "seed.json")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestSeedAppendsWithFreshIDs(t *testing.T) {
	target := seedEnv(t)
	seed := writeSeed(t, `[{"id": 40, "name": "Jaime Lannister", "age": 45}, {"name": "Brienne", "house": "Tarth"}]`)

	out, err := execute(t, "seed", "--from", seed)
	require.NoError(t, err)
	assert.Contains(t, out, "added 2 characters")

	records, err := file.NewCharacterStore(target).LoadCharacters(context.Background())
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.EqualValues(t, 1, records[0].ID)
	assert.EqualValues(t, 2, records[1].ID)
	assert.Equal(t, "Tarth", *records[1].House)
}

func TestSeedRejectsInvalidElement(t *testing.T) {
	seedEnv(t)
	seed := writeSeed(t, `[{"name": "Ok"}, {"age": "old"}]`)

	out, err := execute(t, "seed", "--from", seed)
	require.Error(t, err)
	assert.Contains(t, out, "element 1")
}

func TestSeedReplaceKeepsIDs(t *testing.T) {
	target := seedEnv(t)
	seed := writeSeed(t, `[{"id": 7, "name": "Varys"}, {"id": 3, "name": "Littlefinger"}]`)

	_, err := execute(t, "seed", "--replace", "--from", seed)
	require.NoError(t, err)

	records, err := file.NewCharacterStore(target).LoadCharacters(context.Background())
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.EqualValues(t, 7, records[0].ID)

	dup := writeSeed(t, `[{"id": 1}, {"id": 1}]`)
	_, err = execute(t, "seed", "--replace", "--from", dup)
	require.Error(t, err)
}

func TestSeedRequiresArray(t *testing.T) {
	seedEnv(t)
	_, err := execute(t, "seed", "--from", writeSeed(t, `{"name": "x"}`))
	require.Error(t, err)

	_, err = execute(t, "seed")
	require.Error(t, err)
}

func TestMigrateRequiresDSN(t *testing.T) {
	t.Setenv("CONFIG_FILE", "")
	t.Setenv("POSTGRES_DSN", "")
	_, err := execute(t, "migrate", "up")
	require.Error(t, err)
}

func TestProgressBarRendersCounts(t *testing.T) {
	var buf bytes.Buffer
	bar := NewPrinter(&buf).NewProgressBar(2, "seeding")
	bar.Increment()
	bar.Finish()
	assert.Contains(t, buf.String(), "1/2")
	assert.Contains(t, buf.String(), "2/2")
}

func TestImportUsersHashesPlaintextPasswords(t *testing.T) {
	target := filepath.Join(t.TempDir(), "users.json")
	t.Setenv("CONFIG_FILE", "")
	t.Setenv("STORAGE_DRIVER", "file")
	t.Setenv("CREDENTIALS_DRIVER", "file")
	t.Setenv("USERS_FILE", target)
	t.Setenv("BCRYPT_COST", "4")
	t.Setenv("LOG_LEVEL", "panic")

	legacy := writeSeed(t, `{"arya": {"password": "needle", "role": "admin"}, "bran": {"password": "crow"}}`)
	out, err := execute(t, "import-users", "--from", legacy)
	require.NoError(t, err)
	assert.Contains(t, out, "imported 2 users, skipped 0")

	store := file.NewCredentialStore(target)
	arya, err := store.GetCredential(context.Background(), "arya")
	require.NoError(t, err)
	assert.Equal(t, "admin", arya.Role)
	assert.NotEqual(t, "needle", arya.PasswordHash)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(arya.PasswordHash), []byte("needle")))

	bran, err := store.GetCredential(context.Background(), "bran")
	require.NoError(t, err)
	assert.Equal(t, "user", bran.Role)

	out, err = execute(t, "import-users", "--from", legacy)
	require.NoError(t, err)
	assert.Contains(t, out, "imported 0 users, skipped 2")

	hashed := writeSeed(t, `{"sansa": {"password": "`+arya.PasswordHash+`", "role": "user"}}`)
	out, err = execute(t, "import-users", "--from", hashed)
	require.NoError(t, err)
	assert.Contains(t, out, "already hashed")
}
