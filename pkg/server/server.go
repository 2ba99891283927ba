package server

import (
	"fmt"
	"net/http"
	"time"

	"github.com/booklend/booklend/pkg/auth"
	"github.com/booklend/booklend/pkg/binder"
	"github.com/booklend/booklend/pkg/books"
	"github.com/booklend/booklend/pkg/config"
	"github.com/booklend/booklend/pkg/errcodes"
	"github.com/booklend/booklend/pkg/loans"
	"github.com/booklend/booklend/pkg/users"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"
	"github.com/robinjoseph08/golib/echo/v4/health"
	"github.com/robinjoseph08/golib/echo/v4/middleware/logger"
	"github.com/robinjoseph08/golib/echo/v4/middleware/recovery"
	"github.com/uptrace/bun"
)

// New builds the lending API server. Every route under /library/api
// requires a valid bearer token.
func New(cfg *config.Config, db *bun.DB, verifier *auth.Verifier) (*http.Server, error) {
	e := echo.New()

	b, err := binder.New()
	if err != nil {
		return nil, errors.WithStack(err)
	}
	e.Binder = b

	e.Use(logger.Middleware())
	e.Use(recovery.Middleware())
	e.Use(middleware.CORS())

	health.RegisterRoutes(e)

	authMiddleware := auth.NewMiddleware(verifier)

	registerAPIRoutes(e, db, authMiddleware)

	echo.NotFoundHandler = notFoundHandler
	e.HTTPErrorHandler = errcodes.NewHandler().Handle

	srv := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.ServerHost, cfg.ServerPort),
		Handler:           e,
		ReadHeaderTimeout: 3 * time.Second,
	}

	return srv, nil
}

func registerAPIRoutes(e *echo.Echo, db *bun.DB, authMiddleware *auth.Middleware) {
	api := e.Group("/library/api")
	api.Use(authMiddleware.Authenticate)

	booksGroup := api.Group("/books")
	books.RegisterRoutesWithGroup(booksGroup, db)

	usersGroup := api.Group("/users")
	users.RegisterRoutesWithGroup(usersGroup, db, authMiddleware)
	loans.RegisterRoutesWithGroup(usersGroup, db, authMiddleware)
}

func notFoundHandler(c echo.Context) error {
	c.SetPath("/:path")
	return errcodes.NotFound("Page")
}
