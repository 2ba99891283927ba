package books

import (
	"github.com/labstack/echo/v4"
	"github.com/uptrace/bun"
)

// RegisterRoutesWithGroup registers catalog routes on a pre-configured
// group. Any authenticated identity may browse the catalog, so the group
// only carries the Authenticate middleware.
func RegisterRoutesWithGroup(g *echo.Group, db *bun.DB) *Service {
	bookService := NewService(db)

	h := &handler{bookService: bookService}

	g.GET("", h.list)
	g.GET("/:isbn", h.retrieve)

	return bookService
}
