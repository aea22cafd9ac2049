package entitlement

import (
	"context"
	"net/http"

	"github.com/torhaus-dev/torhaus/pkg/api"
	"github.com/torhaus-dev/torhaus/pkg/auth"
)

// SubscriptionStage runs the gate's subscription check as a pipeline
// stage. It must come after the populate stage: it reads the identity the
// populator attached.
type SubscriptionStage struct {
	Gate *Gate
}

func (SubscriptionStage) Name() string { return "subscription" }

func (s SubscriptionStage) Run(ctx context.Context, _ *http.Request, rc *auth.RequestContext) error {
	decision, err := s.Gate.CheckSubscription(ctx, rc.Identity.AccountID)
	if err != nil {
		return api.NewEntitlementUnavailableError(err)
	}
	rc.Decision = decision
	return Enforce(decision)
}

// PermissionStage runs the gate's permission check as a pipeline stage.
// Required is the route's declared permission set, fixed at registration
// time.
type PermissionStage struct {
	Gate     *Gate
	Required []string
}

func (PermissionStage) Name() string { return "permission" }

func (s PermissionStage) Run(ctx context.Context, _ *http.Request, rc *auth.RequestContext) error {
	id := IdentityRef{
		AccountID: rc.Identity.AccountID,
		UserID:    rc.Identity.UserID,
		AppID:     rc.Identity.AppID,
	}

	decision, err := s.Gate.CheckPermissions(ctx, id, s.Required)
	if err != nil {
		return api.NewEntitlementUnavailableError(err)
	}
	rc.Decision = decision
	return Enforce(decision)
}
