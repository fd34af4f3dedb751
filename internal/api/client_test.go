package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, h http.HandlerFunc) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	c, err := New(Options{BaseURL: srv.URL})
	require.NoError(t, err)
	return c, srv
}

func TestClient_NonSuccessCarriesStatusAndBody(t *testing.T) {
	cases := []struct {
		status  int
		body    string
		want    any
		wantMsg string
	}{
		{http.StatusBadRequest, `{"message":"name too short","field":"name"}`, map[string]any{"message": "name too short", "field": "name"}, "name too short"},
		{http.StatusForbidden, `{"error":"forbidden"}`, map[string]any{"error": "forbidden"}, "forbidden"},
		{http.StatusNotFound, `not here`, "not here", "request failed with status 404"},
		{http.StatusInternalServerError, ``, nil, "request failed with status 500"},
		{http.StatusConflict, `[1,2]`, []any{float64(1), float64(2)}, "request failed with status 409"},
	}
	for _, tc := range cases {
		c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(tc.status)
			_, _ = w.Write([]byte(tc.body))
		})
		_, err := c.Do(context.Background(), Request{Method: http.MethodGet, Path: "/api/teams"})
		require.Error(t, err)

		var ae *Error
		require.True(t, errors.As(err, &ae))
		assert.Equal(t, tc.status, ae.Status)
		assert.Equal(t, tc.want, ae.Data)
		assert.Equal(t, KindHTTP, ae.Kind)
		assert.Equal(t, tc.wantMsg, ae.Message)
		assert.True(t, IsStatus(err, tc.status))
	}
}

func TestClient_InjectsSessionAndUserIdentity(t *testing.T) {
	var gotSession, gotUser, gotFilter string
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotSession = r.URL.Query().Get("session_id")
		gotFilter = r.URL.Query().Get("entity_type")
		gotUser = r.Header.Get("x-user-id")
		_, _ = w.Write([]byte(`[]`))
	})

	ctx := context.Background()
	require.NoError(t, c.Get(ctx, "/api/custom-fields", map[string][]string{"entity_type": {"task"}}, nil))
	assert.Empty(t, gotSession)
	assert.Empty(t, gotUser)
	assert.Equal(t, "task", gotFilter)

	c.SetSessionID("sess-1")
	c.SetUserID(42)
	require.NoError(t, c.Get(ctx, "/api/custom-fields", nil, nil))
	assert.Equal(t, "sess-1", gotSession)
	assert.Equal(t, "42", gotUser)

	c.ClearIdentity()
	require.NoError(t, c.Get(ctx, "/api/custom-fields", nil, nil))
	assert.Empty(t, gotSession)
	assert.Empty(t, gotUser)
}

func TestClient_SuccessReturnsDataAndStatus(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "Platform", body["name"])
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"id":7,"name":"Platform"}`))
	})

	resp, err := c.Do(context.Background(), Request{Method: http.MethodPost, Path: "/api/teams", Body: map[string]any{"name": "Platform"}})
	require.NoError(t, err)
	assert.Equal(t, http.StatusCreated, resp.Status)
	assert.JSONEq(t, `{"id":7,"name":"Platform"}`, string(resp.Data))
}

func TestClient_NetworkFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	url := srv.URL
	srv.Close()

	c, err := New(Options{BaseURL: url})
	require.NoError(t, err)
	_, err = c.Do(context.Background(), Request{Path: "/api/users/me"})
	require.Error(t, err)

	var ae *Error
	require.True(t, errors.As(err, &ae))
	assert.Equal(t, KindNetwork, ae.Kind)
	assert.Equal(t, 0, ae.Status)
	assert.True(t, IsNetwork(err))
}

func TestNew_RejectsBadBaseURL(t *testing.T) {
	_, err := New(Options{BaseURL: "localhost"})
	assert.Error(t, err)
}

func TestClient_NewSession(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/_synthetic/new_session", r.URL.Path)
		assert.Equal(t, http.MethodPost, r.Method)
		_, _ = w.Write([]byte(`{"session_id":"abc"}`))
	})
	id, err := c.NewSession(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "abc", id)
}
