package auth

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/AmolSonawane1026/order-service/internal/platform/httpx"
	"github.com/AmolSonawane1026/order-service/internal/platform/requestctx"
)

const (
	msgNoToken        = "No token provided. Authorization denied."
	msgInvalidToken   = "Invalid token"
	msgVerifyFailed   = "Token verification failed"
	msgRoleNotFound   = "User role not found. Please authenticate first."
	accessDeniedShape = "Access denied. Required role: %s. Your role: %s"
)

// Authenticator verifies bearer tokens locally and falls back to the auth service.
type Authenticator struct {
	local  Verifier
	remote Verifier
}

// NewAuthenticator accepts nil verifiers; a nil local verifier sends every token to remote.
func NewAuthenticator(local, remote Verifier) *Authenticator {
	a := &Authenticator{}
	if local != nil && !isNilVerifier(local) {
		a.local = local
	}
	if remote != nil && !isNilVerifier(remote) {
		a.remote = remote
	}
	return a
}

func isNilVerifier(v Verifier) bool {
	switch typed := v.(type) {
	case *HS256Verifier:
		return typed == nil
	case *RemoteVerifier:
		return typed == nil
	}
	return false
}

// Authenticate rejects requests without a verifiable bearer token and stores the identity on the context.
func (a *Authenticator) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		token, ok := bearerToken(r.Header.Get("Authorization"))
		if !ok {
			httpx.WriteError(ctx, w, httpx.NewError(http.StatusUnauthorized, msgNoToken))
			return
		}

		var identity *Identity
		var err error
		if a.local != nil {
			identity, err = a.local.Verify(ctx, token)
		}
		if identity == nil && a.remote != nil {
			identity, err = a.remote.Verify(ctx, token)
		}
		if identity == nil {
			requestctx.Logger(ctx).Debug("auth: token verification failed", zap.Error(err))
			message := msgVerifyFailed
			if errors.Is(err, ErrTokenRejected) {
				message = msgInvalidToken
			}
			httpx.WriteError(ctx, w, httpx.NewError(http.StatusUnauthorized, message))
			return
		}

		next.ServeHTTP(w, r.WithContext(WithIdentity(ctx, identity)))
	})
}

// Authorize admits only identities holding one of roles. It must run after Authenticate.
func Authorize(roles ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			identity, ok := IdentityFromContext(ctx)
			if !ok || identity.Role == "" {
				httpx.WriteError(ctx, w, httpx.NewError(http.StatusUnauthorized, msgRoleNotFound))
				return
			}
			for _, role := range roles {
				if identity.HasRole(role) {
					next.ServeHTTP(w, r)
					return
				}
			}
			message := fmt.Sprintf(accessDeniedShape, strings.Join(roles, " or "), identity.Role)
			httpx.WriteError(ctx, w, httpx.NewError(http.StatusForbidden, message))
		})
	}
}

func bearerToken(header string) (string, bool) {
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || scheme != "Bearer" {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}
