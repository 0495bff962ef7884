package auth

import (
	"chatroom/domain"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const issuerName = "chatroom"

// Resolver turns a connection's signed claim set into a user identifier.
// The secret is injected; nothing is read from ambient state.
type Resolver struct {
	key []byte
}

func NewResolver(secret []byte) *Resolver {
	return &Resolver{key: secret}
}

// Resolve parses and verifies an HS256 token and reads its numeric subject.
// A missing, malformed, expired or non-positive subject yields (Unresolved, false).
func (r *Resolver) Resolve(creds domain.Credentials) (domain.UserID, bool) {
	if creds.Token == "" {
		return domain.Unresolved, false
	}

	token, err := jwt.ParseWithClaims(creds.Token, &jwt.RegisteredClaims{},
		func(token *jwt.Token) (interface{}, error) {
			return r.key, nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	)
	if err != nil || !token.Valid {
		return domain.Unresolved, false
	}

	claims, ok := token.Claims.(*jwt.RegisteredClaims)
	if !ok {
		return domain.Unresolved, false
	}
	id, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil || id <= 0 {
		return domain.Unresolved, false
	}
	return domain.UserID(id), true
}

// Issuer mints tokens the Resolver accepts.
// Only used by tooling and tests, the identity provider lives elsewhere.
type Issuer struct {
	key []byte
}

func NewIssuer(secret []byte) *Issuer {
	return &Issuer{key: secret}
}

// Issue creates a signed JWT whose subject is the decimal user id.
func (i *Issuer) Issue(userID domain.UserID, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := &jwt.RegisteredClaims{
		Subject:   strconv.FormatInt(int64(userID), 10),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		IssuedAt:  jwt.NewNumericDate(now),
		Issuer:    issuerName,
	}

	// Create the token using the HS256 algorithm (HMAC with SHA256).
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(i.key)
}

// BearerToken expects the standard "Bearer <token>" format.
func BearerToken(header string) string {
	token, ok := strings.CutPrefix(strings.TrimSpace(header), "Bearer ")
	if !ok {
		return ""
	}
	return strings.TrimSpace(token)
}
