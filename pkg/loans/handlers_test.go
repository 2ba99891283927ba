package loans

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/segmentio/encoding/json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newLoansTestContext(t *testing.T, method, path, payload string) (echo.Context, *httptest.ResponseRecorder) {
	t.Helper()

	e := echo.New()

	req := httptest.NewRequest(method, path, strings.NewReader(payload))
	req.Header.Set(echo.HeaderContentType, echo.MIMETextPlain)
	rr := httptest.NewRecorder()
	return e.NewContext(req, rr), rr
}

func TestHandlerBorrow(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	h := &handler{service: NewService(db)}

	t.Run("reads the isbn from a plain text body", func(tt *testing.T) {
		c, rr := newLoansTestContext(tt, http.MethodPost, "/library/api/users/demo_user_1/loans", "9780132350884\n")
		c.SetParamNames("userName")
		c.SetParamValues("demo_user_1")

		require.NoError(tt, h.borrow(c))
		assert.Equal(tt, http.StatusOK, rr.Code)

		body := struct {
			ID   int `json:"id"`
			Book struct {
				ISBN string `json:"isbn"`
			} `json:"book"`
		}{}
		require.NoError(tt, json.Unmarshal(rr.Body.Bytes(), &body))
		assert.NotZero(tt, body.ID)
		assert.Equal(tt, "9780132350884", body.Book.ISBN)
	})

	t.Run("accepts a quoted json string body", func(tt *testing.T) {
		c, rr := newLoansTestContext(tt, http.MethodPost, "/library/api/users/demo_user_2/loans", `"9781617294945"`)
		c.SetParamNames("userName")
		c.SetParamValues("demo_user_2")

		require.NoError(tt, h.borrow(c))
		assert.Equal(tt, http.StatusOK, rr.Code)
	})

	t.Run("empty body is rejected", func(tt *testing.T) {
		c, _ := newLoansTestContext(tt, http.MethodPost, "/library/api/users/demo_user_1/loans", "  ")
		c.SetParamNames("userName")
		c.SetParamValues("demo_user_1")

		err := h.borrow(c)
		require.Error(tt, err)
		assert.Contains(tt, err.Error(), "empty")
	})
}

func TestHandlerReturnLoan(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	h := &handler{service: NewService(db)}

	loan, err := h.service.Borrow(context.Background(), "9780134685991", "demo_user_1")
	require.NoError(t, err)

	t.Run("non-numeric loan id is not found", func(tt *testing.T) {
		c, _ := newLoansTestContext(tt, http.MethodDelete, "/library/api/users/demo_user_1/loans/abc", "")
		c.SetParamNames("userName", "loanId")
		c.SetParamValues("demo_user_1", "abc")

		err := h.returnLoan(c)
		require.Error(tt, err)
	})

	t.Run("owner returns the loan", func(tt *testing.T) {
		id := strconv.Itoa(loan.ID)
		c, rr := newLoansTestContext(tt, http.MethodDelete, "/library/api/users/demo_user_1/loans/"+id, "")
		c.SetParamNames("userName", "loanId")
		c.SetParamValues("demo_user_1", id)

		require.NoError(tt, h.returnLoan(c))
		assert.Equal(tt, http.StatusOK, rr.Code)
	})
}
