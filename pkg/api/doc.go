// Package api defines the types shared across the torhaus request chain:
// the classified error taxonomy every stage halts with, and the entitlement
// decision produced by the gate.
//
// The package is deliberately free of HTTP concerns. Mapping a ChainError
// to a status code lives in pkg/transport; producing one lives in pkg/auth
// and pkg/entitlement.
package api
