// Package auth issues and verifies identity tokens and decides whether an
// identity may call a role-gated operation.
package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"weatherapi/m/domain"
	"weatherapi/m/internal/common"
)

// Identity is the caller decoded from a verified token.
type Identity struct {
	UserID int64
	Role   domain.Role
}

type claims struct {
	UserID int64  `json:"id"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}

// Issuer signs and verifies HS256 tokens with a fixed secret and lifetime.
type Issuer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewIssuer constructs an Issuer signing with secret.
func NewIssuer(secret []byte, ttl time.Duration) *Issuer {
	return &Issuer{secret: secret, ttl: ttl, now: time.Now}
}

// Issue returns a signed token for the user that expires ttl from now.
func (i *Issuer) Issue(userID int64, role domain.Role) (string, error) {
	now := i.now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		UserID: userID,
		Role:   string(role),
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(i.ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	})
	return token.SignedString(i.secret)
}

// Verify decodes a token produced by Issue with the same secret.
// Expired tokens yield common.ErrExpiredToken; every other failure yields
// common.ErrInvalidToken.
func (i *Issuer) Verify(tokenString string) (Identity, error) {
	c := &claims{}
	token, err := jwt.ParseWithClaims(tokenString, c, func(*jwt.Token) (interface{}, error) {
		return i.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(i.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return Identity{}, common.ErrExpiredToken
		}
		return Identity{}, common.ErrInvalidToken
	}
	if !token.Valid || c.UserID <= 0 {
		return Identity{}, common.ErrInvalidToken
	}
	role, err := domain.ParseRole(c.Role)
	if err != nil {
		return Identity{}, common.ErrInvalidToken
	}
	return Identity{UserID: c.UserID, Role: role}, nil
}
