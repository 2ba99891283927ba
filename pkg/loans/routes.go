package loans

import (
	"github.com/booklend/booklend/pkg/auth"
	"github.com/labstack/echo/v4"
	"github.com/uptrace/bun"
)

// RegisterRoutesWithGroup registers the loan ledger routes on the users
// group, nested under a single user.
func RegisterRoutesWithGroup(g *echo.Group, db *bun.DB, authMiddleware *auth.Middleware) *Service {
	loanService := NewService(db)

	h := &handler{service: loanService}

	// Borrowing and returning are strictly self-service; librarians may
	// additionally read any user's loan history.
	g.GET("/:userName/loans", h.list, authMiddleware.RequireLibrarianOrSelf("userName"))
	g.POST("/:userName/loans", h.borrow, authMiddleware.RequireSelf("userName"))
	g.DELETE("/:userName/loans/:loanId", h.returnLoan, authMiddleware.RequireSelf("userName"))

	return loanService
}
