package auth

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newAPI(t *testing.T) *http.ServeMux {
	t.Helper()
	mux := http.NewServeMux()
	NewHTTPHandler(NewManager(testSecret, time.Hour)).RegisterRoutes(mux)
	return mux
}

func call(t *testing.T, mux *http.ServeMux, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	return rec
}

func TestHTTP_RegisterLoginWhoami(t *testing.T) {
	mux := newAPI(t)

	rec := call(t, mux, http.MethodPost, "/api/auth/register", "", credentials{Username: "alice", Password: "hunter2!"})
	require.Equal(t, http.StatusCreated, rec.Code)
	var session sessionReply
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&session))
	require.NotZero(t, session.AccountID)
	require.NotEmpty(t, session.Token)

	rec = call(t, mux, http.MethodGet, "/api/auth/me", session.Token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var who whoamiReply
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&who))
	assert.Equal(t, session.AccountID, who.AccountID)
	assert.Equal(t, "alice", who.Username)

	rec = call(t, mux, http.MethodPost, "/api/auth/login", "", credentials{Username: "alice", Password: "hunter2!"})
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestHTTP_RegisterErrors(t *testing.T) {
	mux := newAPI(t)

	rec := call(t, mux, http.MethodPost, "/api/auth/register", "", credentials{Username: "alice", Password: "hunter2!"})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = call(t, mux, http.MethodPost, "/api/auth/register", "", credentials{Username: "ALICE", Password: "hunter2!"})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = call(t, mux, http.MethodPost, "/api/auth/register", "", credentials{Username: "x", Password: "hunter2!"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	req := httptest.NewRequest(http.MethodPost, "/api/auth/register", bytes.NewBufferString("{not json"))
	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHTTP_LoginRejectsBadCredentials(t *testing.T) {
	mux := newAPI(t)
	call(t, mux, http.MethodPost, "/api/auth/register", "", credentials{Username: "alice", Password: "hunter2!"})

	rec := call(t, mux, http.MethodPost, "/api/auth/login", "", credentials{Username: "alice", Password: "wrong"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestHTTP_LogoutRevokesToken(t *testing.T) {
	mux := newAPI(t)

	rec := call(t, mux, http.MethodPost, "/api/auth/register", "", credentials{Username: "alice", Password: "hunter2!"})
	var session sessionReply
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&session))

	rec = call(t, mux, http.MethodPost, "/api/auth/logout", session.Token, nil)
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = call(t, mux, http.MethodGet, "/api/auth/me", session.Token, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = call(t, mux, http.MethodPost, "/api/auth/logout", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestHTTP_MethodMatching(t *testing.T) {
	mux := newAPI(t)
	rec := call(t, mux, http.MethodGet, "/api/auth/register", "", nil)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}
