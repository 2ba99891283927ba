package web

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/booklend/booklend/pkg/books"
	"github.com/booklend/booklend/pkg/models"
	"github.com/booklend/booklend/pkg/pagination"
	"github.com/pkg/errors"
	"github.com/robinjoseph08/golib/logger"
	"github.com/segmentio/encoding/json"
)

// ErrNotFound is returned when the lending API reports 404 for a resource.
var ErrNotFound = errors.New("resource not found")

// ErrForbidden is returned when the lending API rejects the relayed token's
// authorization.
var ErrForbidden = errors.New("forbidden")

// ConflictError carries the conflict message and field hints the lending
// API returns on 409.
type ConflictError struct {
	Message string
	Hints   []string
}

func (e *ConflictError) Error() string {
	if len(e.Hints) > 0 {
		return fmt.Sprintf("%s (%s)", e.Message, strings.Join(e.Hints, ", "))
	}
	return e.Message
}

// CreateUserParams is the payload for provisioning a user in the lending
// API.
type CreateUserParams struct {
	Username  string `json:"username"`
	Firstname string `json:"firstname"`
	Lastname  string `json:"lastname"`
	Email     string `json:"email"`
}

// Client calls the lending API on behalf of a logged-in session, relaying
// the session's access token on every request.
type Client struct {
	baseURL    string
	httpClient *http.Client
	log        logger.Logger
}

// NewClient creates a lending API client.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/") + "/library/api",
		httpClient: &http.Client{Timeout: 10 * time.Second},
		log:        logger.New(),
	}
}

// SearchBooks fetches a page of the catalog.
func (c *Client) SearchBooks(ctx context.Context, token, search string, page, size int) (pagination.Page[*books.BookWithLoan], error) {
	result := pagination.Page[*books.BookWithLoan]{}
	q := url.Values{
		"page": {strconv.Itoa(page)},
		"size": {strconv.Itoa(size)},
	}
	if search != "" {
		q.Set("searchString", search)
	}
	err := c.do(ctx, token, http.MethodGet, "/books?"+q.Encode(), nil, &result)
	return result, err
}

// Book fetches a single catalog entry by ISBN.
func (c *Client) Book(ctx context.Context, token, isbn string) (*books.BookWithLoan, error) {
	book := &books.BookWithLoan{}
	err := c.do(ctx, token, http.MethodGet, "/books/"+url.PathEscape(isbn), nil, book)
	if err != nil {
		return nil, err
	}
	return book, nil
}

// SearchUsers fetches a page of the user directory. Librarian only.
func (c *Client) SearchUsers(ctx context.Context, token, search string, page, size int) (pagination.Page[*models.User], error) {
	result := pagination.Page[*models.User]{}
	q := url.Values{
		"page": {strconv.Itoa(page)},
		"size": {strconv.Itoa(size)},
	}
	if search != "" {
		q.Set("searchString", search)
	}
	err := c.do(ctx, token, http.MethodGet, "/users?"+q.Encode(), nil, &result)
	return result, err
}

// User fetches a single user by username.
func (c *Client) User(ctx context.Context, token, username string) (*models.User, error) {
	user := &models.User{}
	err := c.do(ctx, token, http.MethodGet, "/users/"+url.PathEscape(username), nil, user)
	if err != nil {
		return nil, err
	}
	return user, nil
}

// CreateUser provisions a user record in the lending API.
func (c *Client) CreateUser(ctx context.Context, token string, params CreateUserParams) (*models.User, error) {
	body, err := json.Marshal(params)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	user := &models.User{}
	err = c.do(ctx, token, http.MethodPost, "/users", bytes.NewReader(body), user)
	if err != nil {
		return nil, err
	}
	return user, nil
}

// DeleteUser removes a user record from the lending API.
func (c *Client) DeleteUser(ctx context.Context, token, username string) error {
	return c.do(ctx, token, http.MethodDelete, "/users/"+url.PathEscape(username), nil, nil)
}

// Loans fetches a user's loan history, open and closed.
func (c *Client) Loans(ctx context.Context, token, username string) ([]*models.Loan, error) {
	loans := []*models.Loan{}
	err := c.do(ctx, token, http.MethodGet, "/users/"+url.PathEscape(username)+"/loans", nil, &loans)
	return loans, err
}

// Borrow lends the book with the given ISBN to the user. The ISBN travels
// as a plain text body.
func (c *Client) Borrow(ctx context.Context, token, username, isbn string) (*models.Loan, error) {
	loan := &models.Loan{}
	err := c.do(ctx, token, http.MethodPost, "/users/"+url.PathEscape(username)+"/loans", strings.NewReader(isbn), loan)
	if err != nil {
		return nil, err
	}
	return loan, nil
}

// Return closes one of the user's loans.
func (c *Client) Return(ctx context.Context, token, username string, loanID int) error {
	return c.do(ctx, token, http.MethodDelete, "/users/"+url.PathEscape(username)+"/loans/"+strconv.Itoa(loanID), nil, nil)
}

// do is the single call site for outgoing lending API requests: it attaches
// the relayed bearer token, logs method/path/status, and maps error
// responses to the typed errors above.
func (c *Client) do(ctx context.Context, token, method, path string, body io.Reader, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return errors.WithStack(err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	if body != nil {
		if method == http.MethodPost && strings.HasSuffix(path, "/loans") {
			req.Header.Set("Content-Type", "text/plain")
		} else {
			req.Header.Set("Content-Type", "application/json")
		}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return errors.Wrap(err, "lending api request failed")
	}
	defer resp.Body.Close()

	c.log.Debug("lending api call", logger.Data{
		"method": method,
		"path":   path,
		"status": resp.StatusCode,
	})

	if resp.StatusCode >= http.StatusBadRequest {
		return c.mapError(resp)
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return errors.WithStack(err)
		}
	}
	return nil
}

func (c *Client) mapError(resp *http.Response) error {
	payload := struct {
		Error struct {
			Code    string   `json:"code"`
			Message string   `json:"message"`
			Hints   []string `json:"hints"`
		} `json:"error"`
	}{}
	// a failed decode still maps the status code below
	_ = json.NewDecoder(io.LimitReader(resp.Body, 4096)).Decode(&payload)

	switch resp.StatusCode {
	case http.StatusNotFound:
		return ErrNotFound
	case http.StatusUnauthorized, http.StatusForbidden:
		return ErrForbidden
	case http.StatusConflict:
		msg := payload.Error.Message
		if msg == "" {
			msg = "Conflict"
		}
		return &ConflictError{Message: msg, Hints: payload.Error.Hints}
	}

	if payload.Error.Message != "" {
		return errors.Errorf("lending api returned %d: %s", resp.StatusCode, payload.Error.Message)
	}
	return errors.Errorf("lending api returned %d", resp.StatusCode)
}
