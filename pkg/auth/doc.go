// Package auth implements the per-request authentication chain: token
// location, dual-secret signature verification, and claim validation with
// identity projection.
//
// The chain is an explicit pipeline of Stage values composed at route
// registration time. Each stage either enriches the request-scoped
// RequestContext or halts with a classified *api.ChainError; stages run
// strictly in order and at most once per request. Nothing is cached or
// shared between requests: the signing secrets are the only process-wide
// state, and they are read-only.
//
// The entitlement stages (subscription and permission checks) live in
// pkg/entitlement and plug into the same pipeline.
package auth
