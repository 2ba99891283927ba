package auth

import (
	"crypto/rand"
	"crypto/rsa"
	"encoding/base64"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/segmentio/encoding/json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testIssuer = "http://localhost:8180/realms/library"

type testKey struct {
	key *rsa.PrivateKey
	kid string
}

func newTestKey(t *testing.T) *testKey {
	t.Helper()

	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	return &testKey{key: key, kid: "test-key"}
}

// jwkSetJSON renders the public half of the key as a JWK set document, the
// same shape Keycloak publishes on its certs endpoint.
func (k *testKey) jwkSetJSON(t *testing.T) json.RawMessage {
	t.Helper()

	pub := k.key.Public().(*rsa.PublicKey)
	set := map[string]interface{}{
		"keys": []map[string]string{{
			"kty": "RSA",
			"kid": k.kid,
			"use": "sig",
			"alg": "RS256",
			"n":   base64.RawURLEncoding.EncodeToString(pub.N.Bytes()),
			"e":   "AQAB",
		}},
	}
	raw, err := json.Marshal(set)
	require.NoError(t, err)

	return raw
}

func (k *testKey) sign(t *testing.T, claims jwt.Claims) string {
	t.Helper()

	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	token.Header["kid"] = k.kid

	signed, err := token.SignedString(k.key)
	require.NoError(t, err)

	return signed
}

func testClaims(username string, roles ...string) jwt.MapClaims {
	claims := jwt.MapClaims{
		"iss": testIssuer,
		"sub": "subject-" + username,
		"exp": time.Now().Add(time.Hour).Unix(),
		"iat": time.Now().Unix(),
	}
	if username != "" {
		claims["preferred_username"] = username
	}
	if len(roles) > 0 {
		claims["realm_access"] = map[string]interface{}{"roles": roles}
	}
	return claims
}

func TestVerifierVerify(t *testing.T) {
	t.Parallel()

	key := newTestKey(t)
	verifier, err := NewStaticVerifier(testIssuer, key.jwkSetJSON(t))
	require.NoError(t, err)

	t.Run("accepts a signed token and maps roles", func(tt *testing.T) {
		token := key.sign(tt, testClaims("demo_librarian", "LIBRARIAN", "offline_access"))

		identity, err := verifier.Verify(token)
		require.NoError(tt, err)

		assert.Equal(tt, "demo_librarian", identity.Username)
		assert.True(tt, identity.HasRole("LIBRARIAN"))
		assert.True(tt, identity.HasRole("offline_access"))
		assert.False(tt, identity.HasRole("ADMIN"))
	})

	t.Run("rejects a wrong issuer", func(tt *testing.T) {
		claims := testClaims("demo_user_1")
		claims["iss"] = "http://evil.example.com/realms/library"
		token := key.sign(tt, claims)

		_, err := verifier.Verify(token)
		require.Error(tt, err)
	})

	t.Run("rejects an expired token", func(tt *testing.T) {
		claims := testClaims("demo_user_1")
		claims["exp"] = time.Now().Add(-time.Minute).Unix()
		token := key.sign(tt, claims)

		_, err := verifier.Verify(token)
		require.Error(tt, err)
	})

	t.Run("rejects a token without preferred_username", func(tt *testing.T) {
		token := key.sign(tt, testClaims(""))

		_, err := verifier.Verify(token)
		require.Error(tt, err)
		assert.Contains(tt, err.Error(), "preferred_username")
	})

	t.Run("rejects a token signed with the wrong key", func(tt *testing.T) {
		other := newTestKey(tt)
		token := other.sign(tt, testClaims("demo_user_1"))

		_, err := verifier.Verify(token)
		require.Error(tt, err)
	})

	t.Run("rejects hmac tokens", func(tt *testing.T) {
		token := jwt.NewWithClaims(jwt.SigningMethodHS256, testClaims("demo_user_1"))
		token.Header["kid"] = key.kid
		signed, err := token.SignedString([]byte("shared-secret"))
		require.NoError(tt, err)

		_, err = verifier.Verify(signed)
		require.Error(tt, err)
	})

	t.Run("rejects garbage", func(tt *testing.T) {
		_, err := verifier.Verify("not.a.token")
		require.Error(tt, err)
	})
}

func TestPolicy(t *testing.T) {
	t.Parallel()

	librarian := &Identity{
		Username:    "demo_librarian",
		Authorities: map[string]struct{}{"ROLE_LIBRARIAN": {}},
	}
	member := &Identity{
		Username:    "demo_user_1",
		Authorities: map[string]struct{}{},
	}

	cases := []struct {
		name    string
		allowed bool
		check   func() bool
	}{
		{"librarian lists users", true, func() bool { return CanListUsers(librarian) }},
		{"member does not list users", false, func() bool { return CanListUsers(member) }},
		{"librarian manages users", true, func() bool { return CanManageUsers(librarian) }},
		{"member does not manage users", false, func() bool { return CanManageUsers(member) }},
		{"librarian views any profile", true, func() bool { return CanViewUser(librarian, "demo_user_1") }},
		{"member views own profile", true, func() bool { return CanViewUser(member, "demo_user_1") }},
		{"member does not view other profiles", false, func() bool { return CanViewUser(member, "demo_user_2") }},
		{"member manages own loans", true, func() bool { return CanManageLoan(member, "demo_user_1") }},
		{"member does not manage other loans", false, func() bool { return CanManageLoan(member, "demo_user_2") }},
		{"librarian does not manage other loans", false, func() bool { return CanManageLoan(librarian, "demo_user_1") }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(tt *testing.T) {
			assert.Equal(tt, tc.allowed, tc.check())
		})
	}
}
