package auth

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/alexedwards/argon2id"
	"github.com/golang-jwt/jwt/v5"
)

type ContextKey string

const ClaimsKey ContextKey = "claims"

var (
	ErrInvalidToken = errors.New("internal/auth: token is invalid")
	ErrNoClaims     = errors.New("internal/auth: no claims in context")
)

// Identity is what a token asserts about its bearer.
type Identity struct {
	UserID   int64
	Username string
	Email    string
	IsAdmin  bool
}

type Claims struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	IsAdmin  bool   `json:"is_admin"`
	jwt.RegisteredClaims
}

// Identity converts the claims back into the identity they were minted from.
func (c *Claims) Identity() (Identity, error) {
	id, err := strconv.ParseInt(c.Subject, 10, 64)
	if err != nil {
		return Identity{}, fmt.Errorf("internal/auth: bad subject %q: %w", c.Subject, err)
	}
	return Identity{UserID: id, Username: c.Username, Email: c.Email, IsAdmin: c.IsAdmin}, nil
}

func HashPassword(password string) (string, error) {
	hashedPw, err := argon2id.CreateHash(password, argon2id.DefaultParams)
	if err != nil {
		return "", fmt.Errorf("internal/auth: pw hash failed: %w", err)
	}

	return hashedPw, nil
}

// CheckPasswordHash reports whether password matches hash. A mismatch is not
// an error; a corrupt hash is.
func CheckPasswordHash(password, hash string) (bool, error) {
	isMatch, err := argon2id.ComparePasswordAndHash(password, hash)
	if err != nil {
		return false, fmt.Errorf("internal/auth: pw and hash comparison failed: %w", err)
	}

	return isMatch, nil
}

func MakeJWT(id Identity, issuer, tokenSecret string, expiresIn time.Duration) (string, error) {
	now := time.Now().UTC()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		Username: id.Username,
		Email:    id.Email,
		IsAdmin:  id.IsAdmin,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   strconv.FormatInt(id.UserID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(expiresIn)),
		},
	})

	return token.SignedString([]byte(tokenSecret))
}

func ValidateJWT(tokenString, tokenSecret string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(
		tokenString,
		claims,
		func(t *jwt.Token) (any, error) { return []byte(tokenSecret), nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, fmt.Errorf("internal/auth: failed to parse token: %w", errors.Join(ErrInvalidToken, err))
	}

	if !token.Valid {
		return nil, ErrInvalidToken
	}

	if claims.Subject == "" || claims.Username == "" {
		return nil, fmt.Errorf("%w: subject or username claim is missing", ErrInvalidToken)
	}

	return claims, nil
}

// Verifier checks bearer tokens against a shared secret.
type Verifier struct {
	Secret string
}

// Verify returns the identity carried by a valid token.
func (v Verifier) Verify(token string) (Identity, error) {
	claims, err := ValidateJWT(token, v.Secret)
	if err != nil {
		return Identity{}, err
	}
	return claims.Identity()
}

func WithClaims(ctx context.Context, claims *Claims) context.Context {
	return context.WithValue(ctx, ClaimsKey, claims)
}

func GetClaimsFromContext(ctx context.Context) (*Claims, error) {
	claims, ok := ctx.Value(ClaimsKey).(*Claims)
	if !ok || claims == nil {
		return nil, ErrNoClaims
	}
	return claims, nil
}
