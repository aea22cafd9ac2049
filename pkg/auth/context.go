package auth

import (
	"context"

	jwtlib "github.com/golang-jwt/jwt/v5"

	"github.com/torhaus-dev/torhaus/pkg/api"
)

// RequestContext is the request-scoped carrier for everything the chain
// produces. It is created at the start of the chain, written once by each
// stage, and discarded with the request. Instances are never shared
// between requests.
type RequestContext struct {
	// RequestID is the correlation identifier assigned by the transport
	// layer.
	RequestID string

	// Token is the raw token located for this request.
	Token RawToken

	// SecretMatched records which signing secret verified the token.
	// Observability only; see SecretLabel.
	SecretMatched SecretLabel

	// Identity is the validated identity projection. Non-nil once the
	// populate stage has run.
	Identity *IdentityContext

	// Decision is the entitlement verdict. It reflects the most recent
	// gate sub-check that ran.
	Decision api.Decision

	// claims is the decoded token payload, handed from the verify stage
	// to the populate stage and not exposed beyond them.
	claims jwtlib.MapClaims
}

// identityKey is a private type for the identity context key.
type identityKey struct{}

// SetIdentity stores the validated identity in the context for handlers
// and the view layer. The stored value is read-only by contract.
func SetIdentity(ctx context.Context, id *IdentityContext) context.Context {
	return context.WithValue(ctx, identityKey{}, id)
}

// IdentityFromContext retrieves the validated identity. Returns nil when
// the chain has not run (bypass endpoints) or did not complete.
func IdentityFromContext(ctx context.Context) *IdentityContext {
	if v, ok := ctx.Value(identityKey{}).(*IdentityContext); ok {
		return v
	}
	return nil
}
