// Package entitlement implements the two-stage gate that follows
// authentication: a subscription check against the billing collaborator,
// then a permission check against the permissions collaborator.
//
// The gate separates computing a decision (CheckSubscription,
// CheckPermissions) from acting on it (Enforce). Both checks are
// request-scoped network calls with explicit timeouts and no caching; a
// collaborator failure surfaces as EntitlementUnavailable, which is
// deliberately distinct from a denial.
package entitlement
