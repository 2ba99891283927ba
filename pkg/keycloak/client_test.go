package keycloak

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/booklend/booklend/pkg/config"
	"github.com/booklend/booklend/pkg/errcodes"
	"github.com/pkg/errors"
	"github.com/segmentio/encoding/json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeKeycloak is a minimal admin API double: a token endpoint plus the
// user management routes the client touches.
type fakeKeycloak struct {
	t            *testing.T
	tokenCalls   atomic.Int32
	createStatus int
	users        map[string]string
}

func newFakeKeycloak(t *testing.T) (*fakeKeycloak, *httptest.Server) {
	t.Helper()

	f := &fakeKeycloak{
		t:            t,
		createStatus: http.StatusCreated,
		users:        map[string]string{"demo_user_1": "kc-id-1"},
	}
	srv := httptest.NewServer(f)
	t.Cleanup(srv.Close)
	return f, srv
}

func (f *fakeKeycloak) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch {
	case r.URL.Path == "/realms/master/protocol/openid-connect/token":
		f.tokenCalls.Add(1)
		require.NoError(f.t, r.ParseForm())
		assert.Equal(f.t, "password", r.Form.Get("grant_type"))

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"access_token": "admin-token",
			"token_type":   "Bearer",
			"expires_in":   60,
		})
	case r.URL.Path == "/admin/realms/library/users" && r.Method == http.MethodPost:
		assert.Equal(f.t, "Bearer admin-token", r.Header.Get("Authorization"))
		if f.createStatus == http.StatusCreated {
			w.Header().Set("Location", "/admin/realms/library/users/kc-id-99")
		}
		w.WriteHeader(f.createStatus)
	case r.URL.Path == "/admin/realms/library/users" && r.Method == http.MethodGet:
		username := r.URL.Query().Get("username")
		users := []UserRepresentation{}
		if id, ok := f.users[username]; ok {
			users = append(users, UserRepresentation{ID: id, Username: username})
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(users)
	case r.Method == http.MethodDelete:
		w.WriteHeader(http.StatusNoContent)
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func newTestClient(serverURL string) *Client {
	return New(&config.Config{
		KeycloakBaseURL:       serverURL,
		KeycloakRealm:         "library",
		KeycloakAdminClientID: "admin-cli",
		KeycloakAdminUsername: "admin",
		KeycloakAdminPassword: "admin",
	})
}

func TestClientCreateUser(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	t.Run("returns the assigned id", func(tt *testing.T) {
		_, srv := newFakeKeycloak(tt)
		client := newTestClient(srv.URL)

		id, err := client.CreateUser(ctx, UserRepresentation{Username: "newuser", Email: "newuser@example.com"})
		require.NoError(tt, err)
		assert.Equal(tt, "kc-id-99", id)
	})

	t.Run("duplicate user conflicts", func(tt *testing.T) {
		f, srv := newFakeKeycloak(tt)
		f.createStatus = http.StatusConflict
		client := newTestClient(srv.URL)

		_, err := client.CreateUser(ctx, UserRepresentation{Username: "demo_user_1"})
		var e *errcodes.Error
		require.True(tt, errors.As(err, &e))
		assert.Equal(tt, "conflict", e.Code)
	})
}

func TestClientDeleteUser(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	t.Run("looks up the id and deletes", func(tt *testing.T) {
		_, srv := newFakeKeycloak(tt)
		client := newTestClient(srv.URL)

		require.NoError(tt, client.DeleteUser(ctx, "demo_user_1"))
	})

	t.Run("unknown username is not found", func(tt *testing.T) {
		_, srv := newFakeKeycloak(tt)
		client := newTestClient(srv.URL)

		err := client.DeleteUser(ctx, "missing")
		var e *errcodes.Error
		require.True(tt, errors.As(err, &e))
		assert.Equal(tt, "not_found", e.Code)
	})
}

func TestClientTokenCaching(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	f, srv := newFakeKeycloak(t)
	client := newTestClient(srv.URL)

	_, err := client.CreateUser(ctx, UserRepresentation{Username: "a"})
	require.NoError(t, err)
	_, err = client.CreateUser(ctx, UserRepresentation{Username: "b"})
	require.NoError(t, err)

	// both calls ride the same cached admin token
	assert.EqualValues(t, 1, f.tokenCalls.Load())

	// force the cached token past the refresh window
	client.mu.Lock()
	client.token.Expiry = client.token.Expiry.Add(-time.Hour)
	client.mu.Unlock()

	_, err = client.CreateUser(ctx, UserRepresentation{Username: "c"})
	require.NoError(t, err)
	assert.EqualValues(t, 2, f.tokenCalls.Load())
}
