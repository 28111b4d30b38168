// Package auth verifies the bearer tokens presented to the HTTP and gRPC
// boundaries. Tokens are issued elsewhere; only the uid claim is used.
package auth

import (
	"context"
	"errors"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

var ErrUnauthenticated = errors.New("unauthenticated")

type Claims struct {
	UserID string `json:"uid"`
	jwt.RegisteredClaims
}

type Verifier struct {
	secret []byte
	parser *jwt.Parser
}

func NewVerifier(secret []byte) *Verifier {
	return &Verifier{
		secret: secret,
		parser: jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})),
	}
}

// Verify checks an HS256 token and returns its uid.
func (v *Verifier) Verify(raw string) (string, error) {
	claims := new(Claims)
	token, err := v.parser.ParseWithClaims(raw, claims, func(*jwt.Token) (any, error) {
		return v.secret, nil
	})
	if err != nil || !token.Valid || claims.UserID == "" {
		return "", ErrUnauthenticated
	}
	return claims.UserID, nil
}

// VerifyHeader accepts an "Authorization: Bearer <token>" value.
func (v *Verifier) VerifyHeader(header string) (string, error) {
	raw, ok := strings.CutPrefix(header, "Bearer ")
	if !ok || raw == "" {
		return "", ErrUnauthenticated
	}
	return v.Verify(raw)
}

// Sign issues a token for uid. Used by tests and the operator CLI.
func Sign(secret []byte, uid string, claims jwt.RegisteredClaims) (string, error) {
	return jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{UserID: uid, RegisteredClaims: claims}).SignedString(secret)
}

type userKey struct{}

func WithUser(ctx context.Context, uid string) context.Context {
	return context.WithValue(ctx, userKey{}, uid)
}

func UserFrom(ctx context.Context) string {
	uid, _ := ctx.Value(userKey{}).(string)
	return uid
}
