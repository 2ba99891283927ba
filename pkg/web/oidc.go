package web

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/booklend/booklend/pkg/config"
	"github.com/booklend/booklend/pkg/models"
	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/google/uuid"
	"github.com/gorilla/sessions"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"golang.org/x/oauth2"
)

const sessionName = "library_session"

const webIdentityContextKey = "web_identity"

// Session is the logged-in state carried in the session cookie. Roles are
// stored comma-joined because the cookie codec only handles flat values.
type Session struct {
	Username     string
	Roles        string
	AccessToken  string
	RefreshToken string
	Expiry       time.Time
}

// HasRole reports whether the session carries the given prefixed role.
func (s *Session) HasRole(role string) bool {
	for _, r := range strings.Split(s.Roles, ",") {
		if r == models.RolePrefix+role {
			return true
		}
	}
	return false
}

// Authenticator runs the authorization-code login against the identity
// provider and manages the resulting session cookies.
type Authenticator struct {
	provider  *oidc.Provider
	verifier  *oidc.IDTokenVerifier
	oauth     *oauth2.Config
	store     sessions.Store
	issuerURL string
	clientID  string
}

// NewAuthenticator discovers the identity provider's endpoints and prepares
// the session store.
func NewAuthenticator(ctx context.Context, cfg *config.Config) (*Authenticator, error) {
	provider, err := oidc.NewProvider(ctx, cfg.OIDCIssuerURL)
	if err != nil {
		return nil, errors.Wrap(err, "identity provider discovery failed")
	}

	store := sessions.NewCookieStore([]byte(cfg.SessionSecret))
	store.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   int((8 * time.Hour).Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}

	return &Authenticator{
		provider: provider,
		verifier: provider.Verifier(&oidc.Config{ClientID: cfg.OAuthClientID}),
		oauth: &oauth2.Config{
			ClientID:     cfg.OAuthClientID,
			ClientSecret: cfg.OAuthClientSecret,
			RedirectURL:  cfg.OAuthRedirectURL,
			Endpoint:     provider.Endpoint(),
			Scopes:       []string{oidc.ScopeOpenID, "profile", "email"},
		},
		store:     store,
		issuerURL: strings.TrimSuffix(cfg.OIDCIssuerURL, "/"),
		clientID:  cfg.OAuthClientID,
	}, nil
}

// login starts the authorization-code flow with a fresh state nonce.
func (a *Authenticator) login(c echo.Context) error {
	state := uuid.NewString()

	sess, _ := a.store.Get(c.Request(), sessionName)
	sess.Values["state"] = state
	if err := sess.Save(c.Request(), c.Response()); err != nil {
		return errors.WithStack(err)
	}

	return c.Redirect(http.StatusFound, a.oauth.AuthCodeURL(state))
}

// callback exchanges the authorization code, verifies the ID token, and
// stores the session.
func (a *Authenticator) callback(c echo.Context) error {
	ctx := c.Request().Context()

	sess, _ := a.store.Get(c.Request(), sessionName)
	state, _ := sess.Values["state"].(string)
	if state == "" || c.QueryParam("state") != state {
		return echo.NewHTTPError(http.StatusBadRequest, "state mismatch")
	}

	token, err := a.oauth.Exchange(ctx, c.QueryParam("code"))
	if err != nil {
		return errors.Wrap(err, "code exchange failed")
	}

	rawIDToken, ok := token.Extra("id_token").(string)
	if !ok {
		return errors.New("token response contained no id_token")
	}
	idToken, err := a.verifier.Verify(ctx, rawIDToken)
	if err != nil {
		return errors.Wrap(err, "id token verification failed")
	}

	claims := struct {
		PreferredUsername string `json:"preferred_username"`
		RealmAccess       struct {
			Roles []string `json:"roles"`
		} `json:"realm_access"`
	}{}
	if err := idToken.Claims(&claims); err != nil {
		return errors.WithStack(err)
	}

	roles := make([]string, 0, len(claims.RealmAccess.Roles))
	for _, role := range claims.RealmAccess.Roles {
		roles = append(roles, models.RolePrefix+role)
	}

	delete(sess.Values, "state")
	sess.Values["username"] = claims.PreferredUsername
	sess.Values["roles"] = strings.Join(roles, ",")
	sess.Values["access_token"] = token.AccessToken
	sess.Values["refresh_token"] = token.RefreshToken
	sess.Values["expiry"] = token.Expiry.Unix()
	if err := sess.Save(c.Request(), c.Response()); err != nil {
		return errors.WithStack(err)
	}

	return c.Redirect(http.StatusFound, "/books")
}

// logout drops the session and ends the identity provider session too.
func (a *Authenticator) logout(c echo.Context) error {
	sess, _ := a.store.Get(c.Request(), sessionName)
	sess.Options.MaxAge = -1
	if err := sess.Save(c.Request(), c.Response()); err != nil {
		return errors.WithStack(err)
	}

	logoutURL := a.issuerURL + "/protocol/openid-connect/logout?" + url.Values{
		"client_id": {a.clientID},
	}.Encode()
	return c.Redirect(http.StatusFound, logoutURL)
}

// session loads the logged-in session, refreshing the access token through
// the oauth2 token source when it has expired. Returns nil when not logged
// in.
func (a *Authenticator) session(c echo.Context) (*Session, error) {
	sess, err := a.store.Get(c.Request(), sessionName)
	if err != nil {
		return nil, nil
	}

	username, _ := sess.Values["username"].(string)
	if username == "" {
		return nil, nil
	}

	roles, _ := sess.Values["roles"].(string)
	accessToken, _ := sess.Values["access_token"].(string)
	refreshToken, _ := sess.Values["refresh_token"].(string)
	expiryUnix, _ := sess.Values["expiry"].(int64)

	s := &Session{
		Username:     username,
		Roles:        roles,
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		Expiry:       time.Unix(expiryUnix, 0),
	}

	if time.Until(s.Expiry) < 30*time.Second && s.RefreshToken != "" {
		token, err := a.oauth.TokenSource(c.Request().Context(), &oauth2.Token{
			AccessToken:  s.AccessToken,
			RefreshToken: s.RefreshToken,
			Expiry:       s.Expiry,
		}).Token()
		if err != nil {
			// refresh token expired or revoked; force a new login
			return nil, nil
		}

		s.AccessToken = token.AccessToken
		s.RefreshToken = token.RefreshToken
		s.Expiry = token.Expiry

		sess.Values["access_token"] = token.AccessToken
		sess.Values["refresh_token"] = token.RefreshToken
		sess.Values["expiry"] = token.Expiry.Unix()
		if err := sess.Save(c.Request(), c.Response()); err != nil {
			return nil, errors.WithStack(err)
		}
	}

	return s, nil
}

// RequireSession gates HTML pages: anonymous requests are redirected to the
// login flow.
func (a *Authenticator) RequireSession(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		s, err := a.session(c)
		if err != nil {
			return err
		}
		if s == nil {
			return c.Redirect(http.StatusFound, "/login")
		}
		c.Set(webIdentityContextKey, s)
		return next(c)
	}
}

// RequireSessionJSON gates the REST facade: anonymous requests get 401.
func (a *Authenticator) RequireSessionJSON(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		s, err := a.session(c)
		if err != nil {
			return err
		}
		if s == nil {
			return echo.NewHTTPError(http.StatusUnauthorized, "Login required")
		}
		c.Set(webIdentityContextKey, s)
		return next(c)
	}
}

// RequireLibrarian gates admin surfaces. Must run after a session
// middleware.
func (a *Authenticator) RequireLibrarian(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		s := SessionFromContext(c)
		if s == nil || !s.HasRole(models.RoleLibrarian) {
			return echo.NewHTTPError(http.StatusForbidden, "Librarian role required")
		}
		return next(c)
	}
}

// SessionFromContext retrieves the logged-in session, or nil.
func SessionFromContext(c echo.Context) *Session {
	s, _ := c.Get(webIdentityContextKey).(*Session)
	return s
}
