package books

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
)

type handler struct {
	bookService *Service
}

func (h *handler) list(c echo.Context) error {
	ctx := c.Request().Context()

	params := SearchBooksQuery{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	page, err := h.bookService.Search(ctx, SearchOptions{
		Search: params.SearchString,
		Page:   params.Page,
		Size:   params.Size,
		Sort:   params.Sort,
	})
	if err != nil {
		return err
	}

	return errors.WithStack(c.JSON(http.StatusOK, page))
}

func (h *handler) retrieve(c echo.Context) error {
	ctx := c.Request().Context()

	book, err := h.bookService.RetrieveByISBN(ctx, c.Param("isbn"))
	if err != nil {
		return err
	}

	return errors.WithStack(c.JSON(http.StatusOK, book))
}
