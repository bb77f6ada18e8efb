package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T) (*Server, *SQLStore) {
	t.Helper()

	store, err := OpenStore("sqlite://:memory:")
	require.NoError(t, err)
	srv := NewWithStore(store)
	t.Cleanup(func() { _ = srv.Close() })
	return srv, store
}

func doJSON(t *testing.T, srv *Server, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)
	return rec
}

func signIn(t *testing.T, srv *Server) authResponse {
	t.Helper()

	rec := doJSON(t, srv, http.MethodPost, "/api/v1/auth/anonymous", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var auth authResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &auth))
	require.NotEmpty(t, auth.UID)
	require.NotEmpty(t, auth.Token)
	return auth
}

func listDocs(t *testing.T, srv *Server, auth authResponse) []documentBody {
	t.Helper()

	rec := doJSON(t, srv, http.MethodGet, "/api/v1/users/"+auth.UID+"/todos", auth.Token, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp listResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp.Items
}

func TestHealth(t *testing.T) {
	srv, _ := newTestServer(t)
	rec := doJSON(t, srv, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAnonymousSignIn_DistinctIdentities(t *testing.T) {
	srv, _ := newTestServer(t)
	a := signIn(t, srv)
	b := signIn(t, srv)
	assert.NotEqual(t, a.UID, b.UID)
	assert.NotEqual(t, a.Token, b.Token)

	rec := doJSON(t, srv, http.MethodGet, "/api/v1/auth/me", a.Token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), a.UID)
}

func TestAuthRequired(t *testing.T) {
	srv, _ := newTestServer(t)
	auth := signIn(t, srv)

	rec := doJSON(t, srv, http.MethodGet, "/api/v1/users/"+auth.UID+"/todos", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = doJSON(t, srv, http.MethodGet, "/api/v1/users/"+auth.UID+"/todos", "bogus", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	other := signIn(t, srv)
	rec = doJSON(t, srv, http.MethodGet, "/api/v1/users/"+auth.UID+"/todos", other.Token, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestUpsertIsIdempotent(t *testing.T) {
	srv, _ := newTestServer(t)
	auth := signIn(t, srv)

	body := map[string]interface{}{"data": map[string]interface{}{"id": "a", "text": "milk", "done": false}}
	path := "/api/v1/users/" + auth.UID + "/todos/a"

	rec := doJSON(t, srv, http.MethodPut, path, auth.Token, body)
	require.Equal(t, http.StatusOK, rec.Code)
	once := listDocs(t, srv, auth)

	rec = doJSON(t, srv, http.MethodPut, path, auth.Token, body)
	require.Equal(t, http.StatusOK, rec.Code)
	twice := listDocs(t, srv, auth)

	require.Len(t, once, 1)
	require.Len(t, twice, 1)
	assert.Equal(t, once[0].ID, twice[0].ID)
	assert.JSONEq(t, string(once[0].Data), string(twice[0].Data))
}

func TestUpsertReplacesWholeDocumentAndKeepsOrder(t *testing.T) {
	srv, _ := newTestServer(t)
	auth := signIn(t, srv)
	base := "/api/v1/users/" + auth.UID + "/todos/"

	for _, id := range []string{"b", "a", "c"} {
		rec := doJSON(t, srv, http.MethodPut, base+id, auth.Token,
			map[string]interface{}{"data": map[string]interface{}{"id": id, "text": "v1", "category": "x"}})
		require.Equal(t, http.StatusOK, rec.Code)
	}
	rec := doJSON(t, srv, http.MethodPut, base+"a", auth.Token,
		map[string]interface{}{"data": map[string]interface{}{"id": "a", "text": "v2"}})
	require.Equal(t, http.StatusOK, rec.Code)

	docs := listDocs(t, srv, auth)
	require.Len(t, docs, 3)
	assert.Equal(t, []string{"b", "c", "a"}, []string{docs[0].ID, docs[1].ID, docs[2].ID})
	assert.JSONEq(t, `{"id":"a","text":"v2"}`, string(docs[2].Data))
}

func TestUpsertValidation(t *testing.T) {
	srv, _ := newTestServer(t)
	auth := signIn(t, srv)
	base := "/api/v1/users/" + auth.UID

	rec := doJSON(t, srv, http.MethodPut, base+"/todos/a", auth.Token, map[string]interface{}{"id": "b", "data": map[string]string{}})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(t, srv, http.MethodPut, base+"/todos/a", auth.Token, map[string]interface{}{"id": "a"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(t, srv, http.MethodPut, base+"/secrets/a", auth.Token, map[string]interface{}{"data": 1})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHabitsCollectionIsNotServed(t *testing.T) {
	srv, _ := newTestServer(t)
	auth := signIn(t, srv)
	base := "/api/v1/users/" + auth.UID + "/habits"

	rec := doJSON(t, srv, http.MethodPut, base+"/h", auth.Token, map[string]interface{}{"data": map[string]string{"name": "read"}})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = doJSON(t, srv, http.MethodGet, base, auth.Token, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDeleteDocument(t *testing.T) {
	srv, _ := newTestServer(t)
	auth := signIn(t, srv)
	path := "/api/v1/users/" + auth.UID + "/todos/a"

	rec := doJSON(t, srv, http.MethodPut, path, auth.Token, map[string]interface{}{"data": map[string]string{"id": "a"}})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, srv, http.MethodDelete, path, auth.Token, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Empty(t, listDocs(t, srv, auth))

	rec = doJSON(t, srv, http.MethodDelete, path, auth.Token, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestStore_CollectionsAreScopedPerUser(t *testing.T) {
	_, store := newTestServer(t)
	ctx := context.Background()

	a, err := store.CreateAnonymousUser(ctx)
	require.NoError(t, err)
	b, err := store.CreateAnonymousUser(ctx)
	require.NoError(t, err)

	require.NoError(t, store.UpsertDocument(ctx, a.UserID, "todos", Document{ID: "x", Data: `{"id":"x"}`}))
	require.NoError(t, store.UpsertDocument(ctx, a.UserID, "other", Document{ID: "h", Data: `{"name":"h"}`}))

	docs, err := store.ListDocuments(ctx, b.UserID, "todos")
	require.NoError(t, err)
	assert.Empty(t, docs)

	docs, err = store.ListDocuments(ctx, a.UserID, "todos")
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "x", docs[0].ID)

	session, err := store.GetSession(ctx, a.Token)
	require.NoError(t, err)
	assert.Equal(t, a.UserID, session.UserID)
	assert.False(t, session.IsExpired())

	_, err = store.GetSession(ctx, "missing")
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestRebind(t *testing.T) {
	pg := &SQLStore{postgres: true}
	assert.Equal(t, "a = $1 AND b = $2", pg.rebind("a = ? AND b = ?"))

	lite := &SQLStore{}
	assert.Equal(t, "a = ?", lite.rebind("a = ?"))
}

func TestOpenStore_RejectsUnknownScheme(t *testing.T) {
	_, err := OpenStore("mysql://localhost/db")
	assert.Error(t, err)
}
