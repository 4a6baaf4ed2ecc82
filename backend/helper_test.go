package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/kansalharshit22/solace-project/store"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const testJWTSecret = "test-secret-key-for-testing"

// newTestServer returns a server backed by an empty in-memory store.
func newTestServer(t *testing.T) *server {
	t.Helper()
	cfg := DefaultConfig()
	cfg.MemoryStore = true
	cfg.JWTSecret = testJWTSecret
	return newServer(cfg, store.NewMemory(), zap.NewNop(), NewMetrics())
}

// doJSON sends body as JSON through h and returns the recorded response.
func doJSON(t *testing.T, h http.Handler, method, path string, body interface{}, token string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if raw, ok := body.(string); ok {
			buf.WriteString(raw)
		} else {
			require.NoError(t, json.NewEncoder(&buf).Encode(body))
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

type testUser struct {
	ID    int
	Email string
	Token string
}

// registerTestUser registers through the real handler and fails the test
// on anything but 201.
func registerTestUser(t *testing.T, h http.Handler, payload map[string]interface{}) testUser {
	t.Helper()
	if _, ok := payload["password"]; !ok {
		payload["password"] = "secret"
	}
	w := doJSON(t, h, http.MethodPost, "/api/register", payload, "")
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var resp struct {
		User  store.PublicUser `json:"user"`
		Token string           `json:"token"`
	}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	return testUser{ID: resp.User.ID, Email: resp.User.Email, Token: resp.Token}
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var body map[string]string
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	return body["error"]
}
