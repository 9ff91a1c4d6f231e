package telegram

import (
	"context"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/gotd/td/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func testStorage(t *testing.T) *Storage {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	store, err := NewStorage(db)
	require.NoError(t, err)
	return store
}

func TestStorage_LoadEmpty(t *testing.T) {
	store := testStorage(t)

	_, err := store.LoadSession(context.Background())
	assert.ErrorIs(t, err, session.ErrNotFound)
}

func TestStorage_RoundTrip(t *testing.T) {
	store := testStorage(t)
	ctx := context.Background()

	payload := []byte(`{"Version":1,"Data":{"DC":2}}`)
	require.NoError(t, store.StoreSession(ctx, payload))

	got, err := store.LoadSession(ctx)
	require.NoError(t, err)
	assert.Equal(t, payload, got)
}

func TestStorage_Overwrite(t *testing.T) {
	store := testStorage(t)
	ctx := context.Background()

	require.NoError(t, store.StoreSession(ctx, []byte("first")))
	require.NoError(t, store.StoreSession(ctx, []byte("second")))

	got, err := store.LoadSession(ctx)
	require.NoError(t, err)
	assert.Equal(t, []byte("second"), got)
}

func TestSessionToken_ExportSeedRoundTrip(t *testing.T) {
	ctx := context.Background()

	// save a session the way the auth flow would
	source := &session.StorageMemory{}
	loader := session.Loader{Storage: source}
	require.NoError(t, loader.Save(ctx, &session.Data{
		DC:      2,
		Addr:    "1.2.3.4:443",
		AuthKey: []byte("test-key-32-bytes-long-abc-12345"),
	}))

	token, err := ExportSessionToken(ctx, source)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	// seed a fresh store from the token
	target := testStorage(t)
	require.NoError(t, SeedSessionToken(ctx, target, token))

	data, err := (&session.Loader{Storage: target}).Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, data.DC)
	assert.Equal(t, "1.2.3.4:443", data.Addr)
}

func TestSeedSessionToken_InvalidToken(t *testing.T) {
	store := testStorage(t)

	err := SeedSessionToken(context.Background(), store, "not base64!!!")
	assert.Error(t, err)
}

func TestSeedSessionToken_KeepsStoredSession(t *testing.T) {
	ctx := context.Background()
	store := testStorage(t)

	stored := []byte(`{"Version":1,"Data":{"DC":4}}`)
	require.NoError(t, store.StoreSession(ctx, stored))

	// seeding must not clobber the fresher stored session
	source := &session.StorageMemory{}
	require.NoError(t, (&session.Loader{Storage: source}).Save(ctx, &session.Data{DC: 2}))
	token, err := ExportSessionToken(ctx, source)
	require.NoError(t, err)

	require.NoError(t, SeedSessionToken(ctx, store, token))

	got, err := store.LoadSession(ctx)
	require.NoError(t, err)
	assert.Equal(t, stored, got)
}
