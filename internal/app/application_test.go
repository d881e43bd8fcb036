package app

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/R3E-Network/thrones_api/internal/app/domain/character"
	"github.com/R3E-Network/thrones_api/internal/app/storage/memory"
	"github.com/R3E-Network/thrones_api/internal/logging"
)

type closingStore struct {
	*memory.Store
	closed int
}

func (s *closingStore) Close() error {
	s.closed++
	return nil
}

func TestNewDefaultsToMemoryStores(t *testing.T) {
	application, err := New(Stores{}, Options{Secret: "s3cret"}, logging.NewDiscard())
	require.NoError(t, err)

	ctx := context.Background()
	created, err := application.Characters.Create(ctx, []byte(`{"name":"Jon Snow"}`))
	require.NoError(t, err)
	assert.EqualValues(t, 1, created.ID)

	require.NoError(t, application.Accounts.Register(ctx, "sam", "pw"))
	tok, err := application.Accounts.Login(ctx, "sam", "pw")
	require.NoError(t, err)

	claims, err := application.Tokens.Verify(tok.Token)
	require.NoError(t, err)
	assert.Equal(t, "sam", claims.Username)
	assert.NotNil(t, application.Metrics)
}

func TestNewRequiresSecret(t *testing.T) {
	_, err := New(Stores{}, Options{}, logging.NewDiscard())
	require.Error(t, err)
}

func TestCloseReleasesSharedStoreOnce(t *testing.T) {
	store := &closingStore{Store: memory.New(character.Character{ID: 1})}
	application, err := New(Stores{Characters: store, Credentials: store}, Options{Secret: "x"}, logging.NewDiscard())
	require.NoError(t, err)

	require.NoError(t, application.Close())
	require.NoError(t, application.Close())
	assert.Equal(t, 1, store.closed)
}
