package auth

import (
	"context"

	"github.com/MicahParks/keyfunc/v3"
	"github.com/booklend/booklend/pkg/models"
	"github.com/golang-jwt/jwt/v5"
	"github.com/pkg/errors"
	"github.com/segmentio/encoding/json"
)

// Identity is the authenticated caller: the preferred username from the
// token plus the realm roles mapped to prefixed authorities.
type Identity struct {
	Username    string
	Authorities map[string]struct{}
}

// HasRole checks whether the identity carries the given realm role.
func (id *Identity) HasRole(role string) bool {
	_, ok := id.Authorities[models.RolePrefix+role]
	return ok
}

// Claims are the token claims the backend cares about. Roles live in a
// realm-scoped nested claim, the Keycloak way.
type Claims struct {
	PreferredUsername string `json:"preferred_username"`
	RealmAccess       struct {
		Roles []string `json:"roles"`
	} `json:"realm_access"`
	jwt.RegisteredClaims
}

// Verifier validates bearer tokens against the identity provider's
// published key set and turns their claims into an Identity.
type Verifier struct {
	keyfunc jwt.Keyfunc
	issuer  string
}

// NewVerifier builds a Verifier that fetches (and background-refreshes) the
// key set from the given JWKS URL.
func NewVerifier(ctx context.Context, issuer, jwksURL string) (*Verifier, error) {
	kf, err := keyfunc.NewDefaultCtx(ctx, []string{jwksURL})
	if err != nil {
		return nil, errors.Wrap(err, "failed to load JWKS")
	}
	return &Verifier{keyfunc: kf.Keyfunc, issuer: issuer}, nil
}

// NewStaticVerifier builds a Verifier from an in-memory JWK set. Used in
// tests where no identity provider is running.
func NewStaticVerifier(issuer string, jwkSetJSON json.RawMessage) (*Verifier, error) {
	kf, err := keyfunc.NewJWKSetJSON(jwkSetJSON)
	if err != nil {
		return nil, errors.Wrap(err, "failed to parse JWK set")
	}
	return &Verifier{keyfunc: kf.Keyfunc, issuer: issuer}, nil
}

// Verify parses and validates a bearer token. Signature, expiry, and issuer
// checks are enforced; anything invalid comes back as an error.
func (v *Verifier) Verify(tokenString string) (*Identity, error) {
	token, err := jwt.ParseWithClaims(
		tokenString,
		&Claims{},
		v.keyfunc,
		jwt.WithIssuer(v.issuer),
		jwt.WithValidMethods([]string{"RS256", "RS384", "RS512", "ES256"}),
	)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token")
	}
	if claims.PreferredUsername == "" {
		return nil, errors.New("token has no preferred_username claim")
	}

	authorities := make(map[string]struct{}, len(claims.RealmAccess.Roles))
	for _, role := range claims.RealmAccess.Roles {
		authorities[models.RolePrefix+role] = struct{}{}
	}

	return &Identity{
		Username:    claims.PreferredUsername,
		Authorities: authorities,
	}, nil
}
