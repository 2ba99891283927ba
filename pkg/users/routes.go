package users

import (
	"github.com/booklend/booklend/pkg/auth"
	"github.com/labstack/echo/v4"
	"github.com/uptrace/bun"
)

// RegisterRoutesWithGroup registers user directory routes on a
// pre-configured (authenticated) group.
func RegisterRoutesWithGroup(g *echo.Group, db *bun.DB, authMiddleware *auth.Middleware) *Service {
	userService := NewService(db)

	h := &handler{userService: userService}

	// Listing and management are librarian-only; a single profile may also
	// be read by the user it belongs to.
	g.GET("", h.list, authMiddleware.RequireLibrarian)
	g.POST("", h.create, authMiddleware.RequireLibrarian)
	g.GET("/:userName", h.retrieve, authMiddleware.RequireLibrarianOrSelf("userName"))
	g.DELETE("/:userName", h.delete, authMiddleware.RequireLibrarian)

	return userService
}
