package loans

import (
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/booklend/booklend/pkg/errcodes"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
)

type handler struct {
	service *Service
}

func (h *handler) list(c echo.Context) error {
	ctx := c.Request().Context()

	loanList, err := h.service.ListForUser(ctx, c.Param("userName"))
	if err != nil {
		return err
	}

	return errors.WithStack(c.JSON(http.StatusOK, loanList))
}

// borrow reads the ISBN as a plain text body. Clients that send the ISBN as
// a quoted JSON string work too.
func (h *handler) borrow(c echo.Context) error {
	ctx := c.Request().Context()

	body, err := io.ReadAll(io.LimitReader(c.Request().Body, 256))
	if err != nil {
		return errors.WithStack(err)
	}

	isbn := strings.Trim(strings.TrimSpace(string(body)), `"`)
	if isbn == "" {
		return errcodes.EmptyRequestBody()
	}

	loan, err := h.service.Borrow(ctx, isbn, c.Param("userName"))
	if err != nil {
		return err
	}

	return errors.WithStack(c.JSON(http.StatusOK, loan))
}

func (h *handler) returnLoan(c echo.Context) error {
	ctx := c.Request().Context()

	loanID, err := strconv.Atoi(c.Param("loanId"))
	if err != nil {
		return errcodes.NotFound("Loan")
	}

	if err := h.service.Return(ctx, loanID, c.Param("userName")); err != nil {
		return err
	}

	return errors.WithStack(c.NoContent(http.StatusOK))
}
