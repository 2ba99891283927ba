package web

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/booklend/booklend/pkg/config"
	"github.com/booklend/booklend/pkg/keycloak"
	"github.com/labstack/echo/v4"
	"github.com/segmentio/encoding/json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// provisioningFixture wires the handler against stub lending API and
// identity provider servers.
type provisioningFixture struct {
	handler        *handler
	backendDeletes atomic.Int32
	kcCreateStatus int
}

func newProvisioningFixture(t *testing.T) *provisioningFixture {
	t.Helper()

	f := &provisioningFixture{kcCreateStatus: http.StatusCreated}

	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodPost && r.URL.Path == "/library/api/users":
			req := CreateUserParams{}
			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))

			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusCreated)
			_ = json.NewEncoder(w).Encode(map[string]string{
				"username":  req.Username,
				"firstname": req.Firstname,
				"lastname":  req.Lastname,
				"email":     req.Email,
			})
		case r.Method == http.MethodDelete && strings.HasPrefix(r.URL.Path, "/library/api/users/"):
			f.backendDeletes.Add(1)
			w.WriteHeader(http.StatusNoContent)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(backend.Close)

	idp := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/realms/master/protocol/openid-connect/token":
			w.Header().Set("Content-Type", "application/json")
			_ = json.NewEncoder(w).Encode(map[string]interface{}{
				"access_token": "admin-token",
				"token_type":   "Bearer",
				"expires_in":   60,
			})
		case "/admin/realms/library/users":
			if f.kcCreateStatus == http.StatusCreated {
				w.Header().Set("Location", "/admin/realms/library/users/kc-id-1")
			}
			w.WriteHeader(f.kcCreateStatus)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(idp.Close)

	kc := keycloak.New(&config.Config{
		KeycloakBaseURL:       idp.URL,
		KeycloakRealm:         "library",
		KeycloakAdminClientID: "admin-cli",
		KeycloakAdminUsername: "admin",
		KeycloakAdminPassword: "admin",
	})

	f.handler = &handler{api: NewClient(backend.URL), kc: kc}
	return f
}

func newSessionContext(t *testing.T) echo.Context {
	t.Helper()

	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/library/rest/admin/users", nil)
	rr := httptest.NewRecorder()
	c := e.NewContext(req, rr)
	c.Set(webIdentityContextKey, &Session{
		Username:    "demo_librarian",
		Roles:       "ROLE_LIBRARIAN",
		AccessToken: "relay-token",
	})
	return c
}

func TestProvisionUser(t *testing.T) {
	t.Parallel()

	params := CreateUserParams{
		Username:  "newuser",
		Firstname: "New",
		Lastname:  "User",
		Email:     "newuser@example.com",
	}

	t.Run("creates in both systems", func(tt *testing.T) {
		f := newProvisioningFixture(tt)
		c := newSessionContext(tt)

		user, err := f.handler.provisionUser(c, SessionFromContext(c), params, "initial-pw")
		require.NoError(tt, err)

		assert.Equal(tt, "newuser", user.Username)
		assert.Zero(tt, f.backendDeletes.Load())
	})

	t.Run("rolls the lending api record back when the identity provider fails", func(tt *testing.T) {
		f := newProvisioningFixture(tt)
		f.kcCreateStatus = http.StatusInternalServerError
		c := newSessionContext(tt)

		_, err := f.handler.provisionUser(c, SessionFromContext(c), params, "initial-pw")
		require.Error(tt, err)

		assert.EqualValues(tt, 1, f.backendDeletes.Load())
	})
}

func TestSessionHasRole(t *testing.T) {
	t.Parallel()

	s := &Session{Roles: "ROLE_LIBRARIAN,ROLE_offline_access"}
	assert.True(t, s.HasRole("LIBRARIAN"))
	assert.False(t, s.HasRole("ADMIN"))

	empty := &Session{}
	assert.False(t, empty.HasRole("LIBRARIAN"))
}
