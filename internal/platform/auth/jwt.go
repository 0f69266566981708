package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/golang-jwt/jwt/v4"
)

var (
	// ErrTokenInvalid is returned when a token fails verification.
	ErrTokenInvalid = errors.New("auth: token invalid")
	// ErrTokenRejected is returned when the auth service answers but refuses the token.
	ErrTokenRejected = errors.New("auth: token rejected")
)

// Verifier turns a bearer token into an identity.
type Verifier interface {
	Verify(ctx context.Context, token string) (*Identity, error)
}

// VerifierFunc adapts a function to Verifier.
type VerifierFunc func(ctx context.Context, token string) (*Identity, error)

func (f VerifierFunc) Verify(ctx context.Context, token string) (*Identity, error) {
	return f(ctx, token)
}

type platformClaims struct {
	UserID string `json:"userId"`
	Role   string `json:"role"`
	Email  string `json:"email,omitempty"`
	jwt.RegisteredClaims
}

// HS256Verifier checks tokens signed with the shared platform secret.
type HS256Verifier struct {
	secret []byte
	parser *jwt.Parser
}

// NewHS256Verifier returns nil when no secret is configured.
func NewHS256Verifier(secret string) *HS256Verifier {
	if strings.TrimSpace(secret) == "" {
		return nil
	}
	return &HS256Verifier{
		secret: []byte(secret),
		parser: jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})),
	}
}

func (v *HS256Verifier) Verify(_ context.Context, token string) (*Identity, error) {
	if v == nil {
		return nil, fmt.Errorf("%w: no signing secret", ErrTokenInvalid)
	}
	claims := &platformClaims{}
	parsed, err := v.parser.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return v.secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTokenInvalid, err)
	}
	if !parsed.Valid || claims.UserID == "" {
		return nil, ErrTokenInvalid
	}
	return &Identity{
		UserID: claims.UserID,
		Role:   strings.ToLower(strings.TrimSpace(claims.Role)),
		Email:  strings.TrimSpace(claims.Email),
	}, nil
}
