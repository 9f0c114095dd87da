// Package auth verifies session tokens at the HTTP boundary and maps
// them to a caller identity.
package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/1800agents/saki/pkg/xerrors"
)

// Identity is the verified caller of a request.
type Identity struct {
	// Owner is the identity string (an email, usually) apps are
	// scoped by.
	Owner string

	// Admin allows listing every app, not just the caller's own.
	Admin bool
}

type sessionClaims struct {
	Admin bool `json:"admin,omitempty"`
	jwt.RegisteredClaims
}

type Verifier interface {
	// Verify parses and checks a session token.
	Verify(token string) (Identity, error)
}

type verifier struct {
	key    []byte
	admins map[string]struct{}
}

var _ Verifier = &verifier{}

// New returns a Verifier for HS256 tokens signed with signingKey.
//
// Admin scope requires both: the token carries an admin claim, and
// the subject is in adminIdentities. A leaked signing key alone does
// not mint admins for unknown subjects.
func New(signingKey []byte, adminIdentities []string) Verifier {
	admins := map[string]struct{}{}
	for _, a := range adminIdentities {
		admins[a] = struct{}{}
	}
	return &verifier{key: signingKey, admins: admins}
}

func (v *verifier) Verify(token string) (Identity, error) {
	claims := new(sessionClaims)

	if _, err := jwt.ParseWithClaims(
		token, claims,
		func(t *jwt.Token) (interface{}, error) { return v.key, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Name}),
	); err != nil {
		return Identity{}, xerrors.WrapWithNote("session token rejected", err)
	}

	if claims.Subject == "" {
		return Identity{}, xerrors.New("session token carries no subject")
	}

	_, configured := v.admins[claims.Subject]
	return Identity{
		Owner: claims.Subject,
		Admin: claims.Admin && configured,
	}, nil
}

// Sign mints a session token. Used by operator tooling and tests; the
// control plane itself only verifies.
func Sign(signingKey []byte, identity Identity, ttl time.Duration) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, sessionClaims{
		Admin: identity.Admin,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   identity.Owner,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	})

	signed, err := token.SignedString(signingKey)
	if err != nil {
		return "", xerrors.Wrap(err)
	}
	return signed, nil
}
