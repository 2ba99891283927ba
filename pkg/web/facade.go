package web

import (
	"net/http"
	"strconv"

	"github.com/booklend/booklend/pkg/errcodes"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"github.com/robinjoseph08/golib/echo/v4/middleware/logger"
)

// The REST facade mirrors the page actions as JSON endpoints for scripted
// clients. It acts with the session identity, not a relayed path parameter.

type createUserRequest struct {
	Username  string `json:"username" validate:"required,min=3,max=50"`
	Firstname string `json:"firstname"`
	Lastname  string `json:"lastname"`
	Email     string `json:"email" validate:"required,email"`
	Password  string `json:"password" validate:"required,min=8"`
}

func (h *handler) restBorrowBook(c echo.Context) error {
	ctx := c.Request().Context()
	s := SessionFromContext(c)

	loan, err := h.api.Borrow(ctx, s.AccessToken, s.Username, c.Param("isbn"))
	if err != nil {
		return facadeError(err)
	}

	return errors.WithStack(c.JSON(http.StatusOK, loan))
}

func (h *handler) restReturnBook(c echo.Context) error {
	ctx := c.Request().Context()
	s := SessionFromContext(c)

	loanID, err := strconv.Atoi(c.Param("loanId"))
	if err != nil {
		return errcodes.NotFound("Loan")
	}

	if err := h.api.Return(ctx, s.AccessToken, s.Username, loanID); err != nil {
		return facadeError(err)
	}

	return errors.WithStack(c.NoContent(http.StatusOK))
}

func (h *handler) restCreateUser(c echo.Context) error {
	s := SessionFromContext(c)

	req := createUserRequest{}
	if err := c.Bind(&req); err != nil {
		return errors.WithStack(err)
	}

	params := CreateUserParams{
		Username:  req.Username,
		Firstname: req.Firstname,
		Lastname:  req.Lastname,
		Email:     req.Email,
	}
	user, err := h.provisionUser(c, s, params, req.Password)
	if err != nil {
		return facadeError(err)
	}

	return errors.WithStack(c.JSON(http.StatusCreated, user))
}

func (h *handler) restDeleteUser(c echo.Context) error {
	ctx := c.Request().Context()
	s := SessionFromContext(c)
	username := c.Param("userName")

	if err := h.api.DeleteUser(ctx, s.AccessToken, username); err != nil {
		return facadeError(err)
	}

	if err := h.kc.DeleteUser(ctx, username); err != nil {
		logger.FromEchoContext(c).Err(err).Error("identity provider user delete failed")
		return facadeError(err)
	}

	return errors.WithStack(c.NoContent(http.StatusNoContent))
}

// facadeError translates lending API client errors back into the error
// codes the facade's own error handler serializes.
func facadeError(err error) error {
	var conflict *ConflictError
	switch {
	case errors.Is(err, ErrNotFound):
		return errcodes.NotFound("Resource")
	case errors.Is(err, ErrForbidden):
		return errcodes.Forbidden("Acting on this resource")
	case errors.As(err, &conflict):
		return errcodes.Conflict(conflict.Message, conflict.Hints...)
	}
	return err
}
