package web

import (
	"net/http"
	"net/url"
	"strconv"

	"github.com/booklend/booklend/pkg/keycloak"
	"github.com/booklend/booklend/pkg/models"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"github.com/robinjoseph08/golib/echo/v4/middleware/logger"
	golog "github.com/robinjoseph08/golib/logger"
)

const defaultPageSize = 10

type handler struct {
	api *Client
	kc  *keycloak.Client
}

func (h *handler) home(c echo.Context) error {
	return c.Redirect(http.StatusFound, "/books")
}

func (h *handler) booksPage(c echo.Context) error {
	ctx := c.Request().Context()
	s := SessionFromContext(c)

	search := c.QueryParam("searchString")
	pageNum, _ := strconv.Atoi(c.QueryParam("page"))

	result, err := h.api.SearchBooks(ctx, s.AccessToken, search, pageNum, defaultPageSize)
	if err != nil {
		return h.pageError(err)
	}

	data := newPage(c, "Books")
	data["Search"] = search
	data["Page"] = result
	data["PageNumber"] = result.Page + 1
	data["PrevPage"] = result.Page - 1
	data["NextPage"] = result.Page + 1

	return c.Render(http.StatusOK, "books", data)
}

func (h *handler) bookPage(c echo.Context) error {
	ctx := c.Request().Context()
	s := SessionFromContext(c)
	isbn := c.Param("isbn")

	book, err := h.api.Book(ctx, s.AccessToken, isbn)
	if err != nil {
		return h.pageError(err)
	}

	data := newPage(c, book.Title)
	data["Book"] = book
	data["Error"] = c.QueryParam("error")

	// show a return button when the open loan is the viewer's own
	if !book.LoanStatus.Available {
		loans, err := h.api.Loans(ctx, s.AccessToken, s.Username)
		if err != nil {
			return h.pageError(err)
		}
		for _, loan := range loans {
			if loan.Open() && loan.Book != nil && loan.Book.ISBN == isbn {
				data["OwnLoan"] = loan
				break
			}
		}
	}

	return c.Render(http.StatusOK, "book", data)
}

func (h *handler) loansPage(c echo.Context) error {
	ctx := c.Request().Context()
	s := SessionFromContext(c)

	loans, err := h.api.Loans(ctx, s.AccessToken, s.Username)
	if err != nil {
		return h.pageError(err)
	}

	data := newPage(c, "My Loans")
	data["Loans"] = loans
	data["Error"] = c.QueryParam("error")

	return c.Render(http.StatusOK, "loans", data)
}

func (h *handler) usersPage(c echo.Context) error {
	ctx := c.Request().Context()
	s := SessionFromContext(c)

	search := c.QueryParam("searchString")
	pageNum, _ := strconv.Atoi(c.QueryParam("page"))

	result, err := h.api.SearchUsers(ctx, s.AccessToken, search, pageNum, defaultPageSize)
	if err != nil {
		return h.pageError(err)
	}

	data := newPage(c, "Users")
	data["Search"] = search
	data["Page"] = result
	data["PageNumber"] = result.Page + 1
	data["PrevPage"] = result.Page - 1
	data["NextPage"] = result.Page + 1
	data["Error"] = c.QueryParam("error")

	return c.Render(http.StatusOK, "users", data)
}

// userPage shows a user's profile together with their loan history.
func (h *handler) userPage(c echo.Context) error {
	ctx := c.Request().Context()
	s := SessionFromContext(c)
	username := c.Param("userName")

	user, err := h.api.User(ctx, s.AccessToken, username)
	if err != nil {
		return h.pageError(err)
	}

	loans, err := h.api.Loans(ctx, s.AccessToken, username)
	if err != nil {
		return h.pageError(err)
	}

	data := newPage(c, user.Username)
	data["User"] = user
	data["Loans"] = loans

	return c.Render(http.StatusOK, "user", data)
}

// borrowAction handles the borrow form post on a book page. Conflicts come
// back to the page as a banner instead of an error page.
func (h *handler) borrowAction(c echo.Context) error {
	ctx := c.Request().Context()
	s := SessionFromContext(c)
	isbn := c.Param("isbn")

	_, err := h.api.Borrow(ctx, s.AccessToken, s.Username, isbn)
	if err != nil {
		var conflict *ConflictError
		if errors.As(err, &conflict) {
			return redirectWithError(c, "/books/"+url.PathEscape(isbn), conflict.Message)
		}
		return h.pageError(err)
	}

	return c.Redirect(http.StatusFound, "/books/"+url.PathEscape(isbn))
}

// returnAction handles the return form post on the loans and book pages.
func (h *handler) returnAction(c echo.Context) error {
	ctx := c.Request().Context()
	s := SessionFromContext(c)

	loanID, err := strconv.Atoi(c.Param("loanId"))
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "Loan not found")
	}

	if err := h.api.Return(ctx, s.AccessToken, s.Username, loanID); err != nil {
		if errors.Is(err, ErrNotFound) {
			return redirectWithError(c, "/loans", "Loan not found")
		}
		return h.pageError(err)
	}

	return c.Redirect(http.StatusFound, "/loans")
}

// createUserAction provisions a user from the admin form: first in the
// lending API, then in the identity provider. When the identity provider
// call fails, the lending API record is deleted again so the two systems
// stay in step.
func (h *handler) createUserAction(c echo.Context) error {
	s := SessionFromContext(c)

	params := CreateUserParams{
		Username:  c.FormValue("username"),
		Firstname: c.FormValue("firstname"),
		Lastname:  c.FormValue("lastname"),
		Email:     c.FormValue("email"),
	}
	password := c.FormValue("password")

	if _, err := h.provisionUser(c, s, params, password); err != nil {
		var conflict *ConflictError
		if errors.As(err, &conflict) {
			return redirectWithError(c, "/admin/users", conflict.Error())
		}
		return h.pageError(err)
	}

	return c.Redirect(http.StatusFound, "/admin/users")
}

// deleteUserAction removes a user from both systems.
func (h *handler) deleteUserAction(c echo.Context) error {
	ctx := c.Request().Context()
	s := SessionFromContext(c)
	username := c.Param("userName")

	if err := h.api.DeleteUser(ctx, s.AccessToken, username); err != nil {
		var conflict *ConflictError
		if errors.As(err, &conflict) {
			return redirectWithError(c, "/admin/users", conflict.Message)
		}
		if errors.Is(err, ErrNotFound) {
			return redirectWithError(c, "/admin/users", "User not found")
		}
		return h.pageError(err)
	}

	if err := h.kc.DeleteUser(ctx, username); err != nil {
		logger.FromEchoContext(c).Err(err).Error("identity provider user delete failed")
		return redirectWithError(c, "/admin/users", "User removed locally but the identity provider delete failed")
	}

	return c.Redirect(http.StatusFound, "/admin/users")
}

func (h *handler) provisionUser(c echo.Context, s *Session, params CreateUserParams, password string) (*models.User, error) {
	ctx := c.Request().Context()

	user, err := h.api.CreateUser(ctx, s.AccessToken, params)
	if err != nil {
		return nil, err
	}

	_, err = h.kc.CreateUser(ctx, keycloak.UserRepresentation{
		Username:  user.Username,
		Firstname: user.Firstname,
		Lastname:  user.Lastname,
		Email:     user.Email,
		Credentials: []keycloak.Credential{
			{Type: "password", Value: password, Temporary: true},
		},
	})
	if err != nil {
		// roll the lending API record back so a retry starts clean
		if delErr := h.api.DeleteUser(ctx, s.AccessToken, user.Username); delErr != nil {
			logger.FromEchoContext(c).Err(delErr).Error("provisioning rollback failed", golog.Data{
				"username": user.Username,
			})
		}
		return nil, err
	}

	return user, nil
}

// pageError maps client errors onto HTTP errors the page error handler can
// render.
func (h *handler) pageError(err error) error {
	switch {
	case errors.Is(err, ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, "Not found")
	case errors.Is(err, ErrForbidden):
		return echo.NewHTTPError(http.StatusForbidden, "You are not allowed to do that")
	}
	return err
}

func redirectWithError(c echo.Context, path, msg string) error {
	return c.Redirect(http.StatusFound, path+"?error="+url.QueryEscape(msg))
}
