package middleware

import (
	"context"

	"github.com/angelmondragon/pizzeria-backend/internal/sessions"
	pkgauth "github.com/angelmondragon/pizzeria-backend/pkg/auth"
)

type contextKey string

const (
	ctxClaims  contextKey = "claims"
	ctxSession contextKey = "session"
)

// ClaimsFromContext returns the verified token claims, or nil for guests.
func ClaimsFromContext(ctx context.Context) *pkgauth.AccessTokenClaims {
	if ctx == nil {
		return nil
	}
	claims, _ := ctx.Value(ctxClaims).(*pkgauth.AccessTokenClaims)
	return claims
}

func UserIDFromContext(ctx context.Context) string {
	return ClaimsFromContext(ctx).UserID()
}

func RoleFromContext(ctx context.Context) string {
	if claims := ClaimsFromContext(ctx); claims != nil {
		return string(claims.Role)
	}
	return ""
}

// WithClaims injects verified claims into the context.
func WithClaims(ctx context.Context, claims *pkgauth.AccessTokenClaims) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, ctxClaims, claims)
}

// SessionFromContext returns the visitor session resolved by Session.
func SessionFromContext(ctx context.Context) *sessions.Session {
	if ctx == nil {
		return nil
	}
	sess, _ := ctx.Value(ctxSession).(*sessions.Session)
	return sess
}

// WithSession injects the visitor session into the context.
func WithSession(ctx context.Context, sess *sessions.Session) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, ctxSession, sess)
}
