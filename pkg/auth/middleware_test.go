package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/booklend/booklend/pkg/errcodes"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newAuthTestContext(t *testing.T, authorization string) echo.Context {
	t.Helper()

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/library/api/books", nil)
	if authorization != "" {
		req.Header.Set(echo.HeaderAuthorization, authorization)
	}
	rr := httptest.NewRecorder()
	return e.NewContext(req, rr)
}

func okHandler(c echo.Context) error {
	return c.NoContent(http.StatusOK)
}

func assertErrCode(t *testing.T, err error, code string) {
	t.Helper()

	var e *errcodes.Error
	require.True(t, errors.As(err, &e), "expected a typed error, got %v", err)
	assert.Equal(t, code, e.Code)
}

func TestMiddlewareAuthenticate(t *testing.T) {
	t.Parallel()

	key := newTestKey(t)
	verifier, err := NewStaticVerifier(testIssuer, key.jwkSetJSON(t))
	require.NoError(t, err)
	m := NewMiddleware(verifier)

	t.Run("no header is unauthorized", func(tt *testing.T) {
		c := newAuthTestContext(tt, "")
		err := m.Authenticate(okHandler)(c)
		assertErrCode(tt, err, "unauthorized")
	})

	t.Run("non-bearer header is unauthorized", func(tt *testing.T) {
		c := newAuthTestContext(tt, "Basic dXNlcjpwYXNz")
		err := m.Authenticate(okHandler)(c)
		assertErrCode(tt, err, "unauthorized")
	})

	t.Run("invalid token is unauthorized", func(tt *testing.T) {
		c := newAuthTestContext(tt, "Bearer bogus")
		err := m.Authenticate(okHandler)(c)
		assertErrCode(tt, err, "unauthorized")
	})

	t.Run("valid token stores the identity", func(tt *testing.T) {
		token := key.sign(tt, testClaims("demo_user_1", "LIBRARIAN"))
		c := newAuthTestContext(tt, "Bearer "+token)

		err := m.Authenticate(okHandler)(c)
		require.NoError(tt, err)

		identity := IdentityFromContext(c)
		require.NotNil(tt, identity)
		assert.Equal(tt, "demo_user_1", identity.Username)
		assert.True(tt, identity.HasRole("LIBRARIAN"))
	})
}

func TestMiddlewareRequireLibrarian(t *testing.T) {
	t.Parallel()

	m := NewMiddleware(nil)

	t.Run("librarian passes", func(tt *testing.T) {
		c := newAuthTestContext(tt, "")
		SetIdentity(c, &Identity{Username: "demo_librarian", Authorities: map[string]struct{}{"ROLE_LIBRARIAN": {}}})

		require.NoError(tt, m.RequireLibrarian(okHandler)(c))
	})

	t.Run("member is forbidden", func(tt *testing.T) {
		c := newAuthTestContext(tt, "")
		SetIdentity(c, &Identity{Username: "demo_user_1", Authorities: map[string]struct{}{}})

		err := m.RequireLibrarian(okHandler)(c)
		assertErrCode(tt, err, "forbidden")
	})

	t.Run("missing identity is unauthorized", func(tt *testing.T) {
		c := newAuthTestContext(tt, "")
		err := m.RequireLibrarian(okHandler)(c)
		assertErrCode(tt, err, "unauthorized")
	})
}

func TestMiddlewareRequireSelf(t *testing.T) {
	t.Parallel()

	m := NewMiddleware(nil)

	newCtx := func(tt *testing.T, username string) echo.Context {
		c := newAuthTestContext(tt, "")
		c.SetParamNames("userName")
		c.SetParamValues("demo_user_1")
		if username != "" {
			SetIdentity(c, &Identity{Username: username, Authorities: map[string]struct{}{}})
		}
		return c
	}

	t.Run("self passes", func(tt *testing.T) {
		c := newCtx(tt, "demo_user_1")
		require.NoError(tt, m.RequireSelf("userName")(okHandler)(c))
	})

	t.Run("another user is forbidden", func(tt *testing.T) {
		c := newCtx(tt, "demo_user_2")
		err := m.RequireSelf("userName")(okHandler)(c)
		assertErrCode(tt, err, "forbidden")
	})
}

func TestMiddlewareRequireLibrarianOrSelf(t *testing.T) {
	t.Parallel()

	m := NewMiddleware(nil)

	newCtx := func(tt *testing.T, identity *Identity) echo.Context {
		c := newAuthTestContext(tt, "")
		c.SetParamNames("userName")
		c.SetParamValues("demo_user_1")
		if identity != nil {
			SetIdentity(c, identity)
		}
		return c
	}

	t.Run("librarian passes for any user", func(tt *testing.T) {
		c := newCtx(tt, &Identity{Username: "demo_librarian", Authorities: map[string]struct{}{"ROLE_LIBRARIAN": {}}})
		require.NoError(tt, m.RequireLibrarianOrSelf("userName")(okHandler)(c))
	})

	t.Run("self passes", func(tt *testing.T) {
		c := newCtx(tt, &Identity{Username: "demo_user_1", Authorities: map[string]struct{}{}})
		require.NoError(tt, m.RequireLibrarianOrSelf("userName")(okHandler)(c))
	})

	t.Run("another member is forbidden", func(tt *testing.T) {
		c := newCtx(tt, &Identity{Username: "demo_user_2", Authorities: map[string]struct{}{}})
		err := m.RequireLibrarianOrSelf("userName")(okHandler)(c)
		assertErrCode(tt, err, "forbidden")
	})
}
