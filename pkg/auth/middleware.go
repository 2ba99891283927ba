package auth

import (
	"strings"

	"github.com/booklend/booklend/pkg/errcodes"
	"github.com/labstack/echo/v4"
	"github.com/robinjoseph08/golib/echo/v4/middleware/logger"
	golog "github.com/robinjoseph08/golib/logger"
)

const identityContextKey = "identity"

// Middleware provides authentication and authorization middleware.
type Middleware struct {
	verifier *Verifier
}

// NewMiddleware creates a new auth middleware.
func NewMiddleware(verifier *Verifier) *Middleware {
	return &Middleware{verifier: verifier}
}

// Authenticate extracts and validates the bearer token from the
// Authorization header and stores the resulting identity in the context.
// Requests without a valid token get 401.
func (m *Middleware) Authenticate(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		header := c.Request().Header.Get(echo.HeaderAuthorization)
		if !strings.HasPrefix(header, "Bearer ") {
			return errcodes.Unauthorized("Authentication required")
		}

		identity, err := m.verifier.Verify(strings.TrimPrefix(header, "Bearer "))
		if err != nil {
			return errcodes.Unauthorized("Invalid or expired token")
		}

		roles := make([]string, 0, len(identity.Authorities))
		for role := range identity.Authorities {
			roles = append(roles, role)
		}
		logger.FromEchoContext(c).Debug("authenticated request", golog.Data{
			"username": identity.Username,
			"roles":    roles,
		})

		c.Set(identityContextKey, identity)

		return next(c)
	}
}

// RequireLibrarian gates a route on the librarian role. Must be used after
// Authenticate.
func (m *Middleware) RequireLibrarian(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		identity := IdentityFromContext(c)
		if identity == nil {
			return errcodes.Unauthorized("Authentication required")
		}
		if !CanListUsers(identity) {
			return errcodes.Forbidden("Accessing the user directory")
		}
		return next(c)
	}
}

// RequireSelf gates a route so only the user named by the given path
// parameter may call it.
func (m *Middleware) RequireSelf(paramName string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			identity := IdentityFromContext(c)
			if identity == nil {
				return errcodes.Unauthorized("Authentication required")
			}
			if !CanManageLoan(identity, c.Param(paramName)) {
				return errcodes.Forbidden("Acting on another user's loans")
			}
			return next(c)
		}
	}
}

// RequireLibrarianOrSelf gates a route so a librarian or the user named by
// the path parameter may call it.
func (m *Middleware) RequireLibrarianOrSelf(paramName string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			identity := IdentityFromContext(c)
			if identity == nil {
				return errcodes.Unauthorized("Authentication required")
			}
			if !CanViewUser(identity, c.Param(paramName)) {
				return errcodes.Forbidden("Accessing another user's profile")
			}
			return next(c)
		}
	}
}

// IdentityFromContext retrieves the authenticated identity, or nil.
func IdentityFromContext(c echo.Context) *Identity {
	identity, _ := c.Get(identityContextKey).(*Identity)
	return identity
}

// SetIdentity stores an identity in the context. Exposed for handler tests.
func SetIdentity(c echo.Context, identity *Identity) {
	c.Set(identityContextKey, identity)
}
