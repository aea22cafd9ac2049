package entitlement

import (
	"context"
	"sort"

	"github.com/torhaus-dev/torhaus/pkg/api"
)

// Gate computes entitlement decisions for verified identities. It keeps
// the decision (Check*) separate from its enforcement (Enforce) so each
// can be exercised on its own.
type Gate struct {
	billing BillingClient
	perms   PermissionsClient
}

// NewGate creates a gate over the two collaborators.
func NewGate(billing BillingClient, perms PermissionsClient) *Gate {
	return &Gate{billing: billing, perms: perms}
}

// CheckSubscription queries billing for the account's subscription status
// and computes the resulting decision. A collaborator failure is returned
// as an error, never folded into a denial.
func (g *Gate) CheckSubscription(ctx context.Context, accountID string) (api.Decision, error) {
	status, err := g.billing.SubscriptionStatus(ctx, accountID)
	if err != nil {
		return api.Decision{}, err
	}

	if status != api.SubscriptionActive {
		return api.SubscriptionDeniedDecision(status), nil
	}
	return api.AllowedDecision(status), nil
}

// CheckPermissions queries the permissions collaborator and computes the
// resulting decision. The identity is entitled only when it holds every
// required permission; an empty required set is trivially allowed without
// a collaborator call.
func (g *Gate) CheckPermissions(ctx context.Context, id IdentityRef, required []string) (api.Decision, error) {
	if len(required) == 0 {
		return api.AllowedDecision(api.SubscriptionActive), nil
	}

	held, err := g.perms.HeldPermissions(ctx, id, required)
	if err != nil {
		return api.Decision{}, err
	}

	heldSet := make(map[string]bool, len(held))
	for _, p := range held {
		heldSet[p] = true
	}

	var missing []string
	for _, p := range required {
		if !heldSet[p] {
			missing = append(missing, p)
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return api.PermissionDeniedDecision(missing), nil
	}

	return api.AllowedDecision(api.SubscriptionActive), nil
}

// Enforce converts a decision into its chain halt. An allowed decision
// enforces to nil; denials map to their classified errors.
func Enforce(d api.Decision) error {
	switch d.Outcome {
	case api.OutcomeAllowed:
		return nil
	case api.OutcomeSubscriptionDenied:
		return api.NewSubscriptionDeniedError(d.Subscription)
	case api.OutcomePermissionDenied:
		return api.NewPermissionDeniedError(d.Missing)
	default:
		return api.NewEntitlementUnavailableError(nil)
	}
}
