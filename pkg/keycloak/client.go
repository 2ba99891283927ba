package keycloak

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/url"
	"path"
	"strings"
	"sync"
	"time"

	"github.com/booklend/booklend/pkg/config"
	"github.com/booklend/booklend/pkg/errcodes"
	"github.com/pkg/errors"
	"github.com/segmentio/encoding/json"
	"golang.org/x/oauth2"
)

// tokenSkew is subtracted from the advertised token lifetime so we never
// send a token that expires mid-flight.
const tokenSkew = 30 * time.Second

// UserRepresentation is the subset of Keycloak's user representation the
// provisioning flow needs.
type UserRepresentation struct {
	ID            string       `json:"id,omitempty"`
	Username      string       `json:"username"`
	Firstname     string       `json:"firstName"`
	Lastname      string       `json:"lastName"`
	Email         string       `json:"email"`
	Enabled       bool         `json:"enabled"`
	EmailVerified bool         `json:"emailVerified"`
	Credentials   []Credential `json:"credentials,omitempty"`
}

// Credential is a Keycloak credential representation. Only password
// credentials are provisioned here.
type Credential struct {
	Type      string `json:"type"`
	Value     string `json:"value"`
	Temporary bool   `json:"temporary"`
}

// Client talks to the Keycloak admin REST API. The admin token is fetched
// with the password grant and cached until shortly before it expires.
type Client struct {
	baseURL    string
	realm      string
	username   string
	password   string
	oauth      *oauth2.Config
	httpClient *http.Client

	mu    sync.Mutex
	token *oauth2.Token
}

// New creates an admin client from config. The admin account authenticates
// against the master realm; users are managed in the application realm.
func New(cfg *config.Config) *Client {
	return &Client{
		baseURL:  strings.TrimSuffix(cfg.KeycloakBaseURL, "/"),
		realm:    cfg.KeycloakRealm,
		username: cfg.KeycloakAdminUsername,
		password: cfg.KeycloakAdminPassword,
		oauth: &oauth2.Config{
			ClientID: cfg.KeycloakAdminClientID,
			Endpoint: oauth2.Endpoint{
				TokenURL: strings.TrimSuffix(cfg.KeycloakBaseURL, "/") + "/realms/master/protocol/openid-connect/token",
			},
		},
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

// CreateUser creates an enabled user in the application realm and returns
// the Keycloak-assigned ID. A username or email collision yields Conflict.
func (c *Client) CreateUser(ctx context.Context, user UserRepresentation) (string, error) {
	user.Enabled = true
	user.EmailVerified = true

	body, err := json.Marshal(user)
	if err != nil {
		return "", errors.WithStack(err)
	}

	resp, err := c.do(ctx, http.MethodPost, c.adminURL("users"), bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusCreated:
		// the new user's ID is the last segment of the Location header
		loc := resp.Header.Get("Location")
		if loc == "" {
			return "", errors.New("identity provider returned no Location header")
		}
		return path.Base(loc), nil
	case http.StatusConflict:
		return "", errcodes.Conflict("User already exists in the identity provider")
	default:
		return "", unexpectedStatus(resp)
	}
}

// DeleteUser removes the user with the given username from the application
// realm.
func (c *Client) DeleteUser(ctx context.Context, username string) error {
	id, err := c.lookupUserID(ctx, username)
	if err != nil {
		return err
	}

	resp, err := c.do(ctx, http.MethodDelete, c.adminURL("users", id), nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNoContent {
		return unexpectedStatus(resp)
	}
	return nil
}

// DeleteUserByID removes a user by their Keycloak ID. Used to roll back a
// provisioning run that failed halfway.
func (c *Client) DeleteUserByID(ctx context.Context, id string) error {
	resp, err := c.do(ctx, http.MethodDelete, c.adminURL("users", id), nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNoContent {
		return unexpectedStatus(resp)
	}
	return nil
}

func (c *Client) lookupUserID(ctx context.Context, username string) (string, error) {
	u := c.adminURL("users") + "?" + url.Values{
		"username": {username},
		"exact":    {"true"},
	}.Encode()

	resp, err := c.do(ctx, http.MethodGet, u, nil)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", unexpectedStatus(resp)
	}

	users := []UserRepresentation{}
	if err := json.NewDecoder(resp.Body).Decode(&users); err != nil {
		return "", errors.WithStack(err)
	}
	if len(users) == 0 {
		return "", errcodes.NotFound("User")
	}
	return users[0].ID, nil
}

func (c *Client) do(ctx context.Context, method, u string, body io.Reader) (*http.Response, error) {
	token, err := c.accessToken(ctx)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "identity provider request failed")
	}
	return resp, nil
}

// accessToken returns the cached admin token, fetching a fresh one when the
// cached token is within tokenSkew of expiry.
func (c *Client) accessToken(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.token != nil && time.Until(c.token.Expiry) > tokenSkew {
		return c.token.AccessToken, nil
	}

	ctx = context.WithValue(ctx, oauth2.HTTPClient, c.httpClient)
	token, err := c.oauth.PasswordCredentialsToken(ctx, c.username, c.password)
	if err != nil {
		return "", errors.Wrap(err, "admin token request failed")
	}

	c.token = token
	return token.AccessToken, nil
}

func (c *Client) adminURL(parts ...string) string {
	return c.baseURL + "/admin/realms/" + c.realm + "/" + strings.Join(parts, "/")
}

func unexpectedStatus(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	return errors.Errorf("identity provider returned %d: %s", resp.StatusCode, string(body))
}
