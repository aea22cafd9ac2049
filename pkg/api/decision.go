package api

// SubscriptionStatus is the billing collaborator's verdict for an account.
type SubscriptionStatus string

const (
	SubscriptionActive   SubscriptionStatus = "active"
	SubscriptionExpired  SubscriptionStatus = "expired"
	SubscriptionNotFound SubscriptionStatus = "not_found"
)

// Outcome is the tagged result of the entitlement gate.
type Outcome string

const (
	OutcomeAllowed            Outcome = "allowed"
	OutcomeSubscriptionDenied Outcome = "subscription_denied"
	OutcomePermissionDenied   Outcome = "permission_denied"
)

// Decision is the computed entitlement verdict for one request. It is
// produced per request and never persisted as authorization state; the
// audit log records it for operators only.
type Decision struct {
	Outcome Outcome

	// Subscription is the billing status observed during the subscription
	// check. Empty until that check has run.
	Subscription SubscriptionStatus

	// Missing lists the required permissions the identity does not hold.
	// Populated only for OutcomePermissionDenied.
	Missing []string
}

// Allowed reports whether the decision permits the request to proceed.
func (d Decision) Allowed() bool {
	return d.Outcome == OutcomeAllowed
}

// AllowedDecision is the verdict for a fully entitled request.
func AllowedDecision(status SubscriptionStatus) Decision {
	return Decision{Outcome: OutcomeAllowed, Subscription: status}
}

// SubscriptionDeniedDecision is the verdict for a non-active subscription.
func SubscriptionDeniedDecision(status SubscriptionStatus) Decision {
	return Decision{Outcome: OutcomeSubscriptionDenied, Subscription: status}
}

// PermissionDeniedDecision is the verdict for an identity missing part of
// the required permission set.
func PermissionDeniedDecision(missing []string) Decision {
	return Decision{
		Outcome:      OutcomePermissionDenied,
		Subscription: SubscriptionActive,
		Missing:      missing,
	}
}
