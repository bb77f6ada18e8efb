package remote

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/existflow/ironhabit/internal/model"
	"github.com/existflow/ironhabit/server"
)

func newTestBackend(t *testing.T) *httptest.Server {
	t.Helper()

	srv, err := server.New("sqlite://:memory:")
	require.NoError(t, err)
	ts := httptest.NewServer(srv.Router())
	t.Cleanup(func() {
		ts.Close()
		_ = srv.Close()
	})
	return ts
}

func todo(id, text string) model.TodoItem {
	return model.TodoItem{ID: id, Text: text, Date: "2026-10-19", Category: "general", Priority: model.PriorityLow}
}

func TestSignInUpsertAndList(t *testing.T) {
	ts := newTestBackend(t)
	ctx := context.Background()
	client := NewClient(ts.URL, 5*time.Second)

	require.NoError(t, client.Health(ctx))

	id, err := client.SignInAnonymously(ctx)
	require.NoError(t, err)
	require.True(t, id.Valid())
	require.NoError(t, client.Verify(ctx, id))

	col := client.Scoped(id)
	require.NoError(t, col.Upsert(ctx, "a", todo("a", "first")))
	require.NoError(t, col.Upsert(ctx, "b", todo("b", "second")))

	items, err := col.ListAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, []model.TodoItem{todo("a", "first"), todo("b", "second")}, items)
}

func TestUpsertTwiceEqualsOnce(t *testing.T) {
	ts := newTestBackend(t)
	ctx := context.Background()
	client := NewClient(ts.URL, 5*time.Second)

	id, err := client.SignInAnonymously(ctx)
	require.NoError(t, err)
	col := client.Scoped(id)

	item := todo("a", "same")
	require.NoError(t, col.Upsert(ctx, "a", item))
	once, err := col.ListAll(ctx)
	require.NoError(t, err)

	require.NoError(t, col.Upsert(ctx, "a", item))
	twice, err := col.ListAll(ctx)
	require.NoError(t, err)

	assert.Equal(t, once, twice)
}

func TestSealedDocuments(t *testing.T) {
	ts := newTestBackend(t)
	ctx := context.Background()

	sealedClient := NewClient(ts.URL, 5*time.Second, WithPassphrase("correct horse"))
	id, err := sealedClient.SignInAnonymously(ctx)
	require.NoError(t, err)

	require.NoError(t, sealedClient.Scoped(id).Upsert(ctx, "a", todo("a", "secret")))

	items, err := sealedClient.Scoped(id).ListAll(ctx)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "secret", items[0].Text)

	plain := NewClient(ts.URL, 5*time.Second)
	items, err = plain.Scoped(id).ListAll(ctx)
	assert.ErrorIs(t, err, ErrSealed)
	assert.Nil(t, items)

	wrong := NewClient(ts.URL, 5*time.Second, WithPassphrase("wrong"))
	items, err = wrong.Scoped(id).ListAll(ctx)
	assert.ErrorIs(t, err, ErrDecrypt)
	assert.Nil(t, items)
}

func TestListAll_MixedSealedAndPlainFailsWhole(t *testing.T) {
	ts := newTestBackend(t)
	ctx := context.Background()

	sealedClient := NewClient(ts.URL, 5*time.Second, WithPassphrase("correct horse"))
	id, err := sealedClient.SignInAnonymously(ctx)
	require.NoError(t, err)
	require.NoError(t, sealedClient.Scoped(id).Upsert(ctx, "s1", todo("s1", "sealed")))

	plain := NewClient(ts.URL, 5*time.Second)
	require.NoError(t, plain.Scoped(id).Upsert(ctx, "p1", todo("p1", "plain")))

	items, err := plain.Scoped(id).ListAll(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrSealed)
	assert.Contains(t, err.Error(), "s1")
	assert.Nil(t, items)

	// The passphrase holder reads both.
	items, err = sealedClient.Scoped(id).ListAll(ctx)
	require.NoError(t, err)
	require.Len(t, items, 2)
}

func TestDelete(t *testing.T) {
	ts := newTestBackend(t)
	ctx := context.Background()
	client := NewClient(ts.URL, 5*time.Second)
	id, err := client.SignInAnonymously(ctx)
	require.NoError(t, err)
	col := client.Scoped(id)

	require.NoError(t, col.Upsert(ctx, "a", todo("a", "x")))
	require.NoError(t, col.Delete(ctx, "a"))
	require.NoError(t, col.Delete(ctx, "a"))

	items, err := col.ListAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestUnauthorizedAndMissingIdentity(t *testing.T) {
	ts := newTestBackend(t)
	ctx := context.Background()
	client := NewClient(ts.URL, 5*time.Second)

	bad := client.Scoped(model.Identity{UID: "nobody", Token: "nope"})
	err := bad.Upsert(ctx, "a", todo("a", "x"))
	assert.ErrorIs(t, err, ErrUnauthorized)

	_, err = client.Scoped(model.Identity{}).ListAll(ctx)
	assert.ErrorIs(t, err, ErrNoIdentity)
}

func TestNetworkFailureIsReturned(t *testing.T) {
	ts := httptest.NewServer(http.NotFoundHandler())
	url := ts.URL
	ts.Close()

	client := NewClient(url, time.Second)
	_, err := client.SignInAnonymously(context.Background())
	assert.Error(t, err)
	assert.Error(t, client.Health(context.Background()))
}

func TestCryptoRoundTrip(t *testing.T) {
	c := NewCrypto("pw", IdentitySalt("uid-1"))
	sealed, err := c.Encrypt([]byte("hello"))
	require.NoError(t, err)

	plain, err := c.Decrypt(sealed)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(plain))

	other := NewCrypto("pw", IdentitySalt("uid-2"))
	_, err = other.Decrypt(sealed)
	assert.ErrorIs(t, err, ErrDecrypt)

	assert.Equal(t, "users/u/todos/i", DocPath("u", "i"))
}
