package web

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/booklend/booklend/pkg/binder"
	"github.com/booklend/booklend/pkg/config"
	"github.com/booklend/booklend/pkg/errcodes"
	"github.com/booklend/booklend/pkg/keycloak"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"github.com/robinjoseph08/golib/echo/v4/health"
	"github.com/robinjoseph08/golib/echo/v4/middleware/logger"
	"github.com/robinjoseph08/golib/echo/v4/middleware/recovery"
)

// NewServer builds the frontend server: the login flow, the rendered pages,
// and the REST facade.
func NewServer(cfg *config.Config, auth *Authenticator, api *Client, kc *keycloak.Client) (*http.Server, error) {
	e := echo.New()

	b, err := binder.New()
	if err != nil {
		return nil, errors.WithStack(err)
	}
	e.Binder = b

	r, err := newRenderer()
	if err != nil {
		return nil, err
	}
	e.Renderer = r

	e.Use(logger.Middleware())
	e.Use(recovery.Middleware())

	health.RegisterRoutes(e)

	h := &handler{api: api, kc: kc}

	e.GET("/login", auth.login)
	e.GET("/oauth2/callback", auth.callback)
	e.GET("/logout", auth.logout)

	pages := e.Group("", auth.RequireSession)
	pages.GET("/", h.home)
	pages.GET("/books", h.booksPage)
	pages.GET("/books/:isbn", h.bookPage)
	pages.POST("/books/:isbn/borrow", h.borrowAction)
	pages.GET("/loans", h.loansPage)
	pages.POST("/loans/:loanId/return", h.returnAction)

	admin := e.Group("/admin", auth.RequireSession, auth.RequireLibrarian)
	admin.GET("/users", h.usersPage)
	admin.GET("/users/:userName", h.userPage)
	admin.POST("/users", h.createUserAction)
	admin.POST("/users/:userName/delete", h.deleteUserAction)

	rest := e.Group("/library/rest", auth.RequireSessionJSON)
	rest.POST("/me/borrowBook/:isbn", h.restBorrowBook)
	rest.POST("/me/returnBook/:loanId", h.restReturnBook)

	restAdmin := rest.Group("/admin", auth.RequireLibrarian)
	restAdmin.POST("/users", h.restCreateUser)
	restAdmin.DELETE("/users/:userName", h.restDeleteUser)

	e.HTTPErrorHandler = newErrorHandler()

	srv := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.WebHost, cfg.WebPort),
		Handler:           e,
		ReadHeaderTimeout: 3 * time.Second,
	}

	return srv, nil
}

// newErrorHandler serves JSON errors on the facade and rendered error pages
// everywhere else.
func newErrorHandler() echo.HTTPErrorHandler {
	jsonHandler := errcodes.NewHandler()

	return func(err error, c echo.Context) {
		if strings.HasPrefix(c.Request().URL.Path, "/library/rest") {
			jsonHandler.Handle(err, c)
			return
		}

		code := http.StatusInternalServerError
		msg := "Something went wrong."

		var he *echo.HTTPError
		if errors.As(err, &he) {
			code = he.Code
			if s, ok := he.Message.(string); ok {
				msg = s
			}
		}
		var ec *errcodes.Error
		if errors.As(err, &ec) {
			code = ec.HTTPCode
			msg = ec.Message
		}

		if code == http.StatusInternalServerError {
			logger.FromEchoContext(c).Err(err).Error("server error")
		}

		data := newPage(c, http.StatusText(code))
		data["Message"] = msg
		if renderErr := c.Render(code, "error", data); renderErr != nil {
			logger.FromEchoContext(c).Err(renderErr).Error("error page render error")
		}
	}
}
