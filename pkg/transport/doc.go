// Package transport provides the HTTP glue around the request chain:
// request-ID assignment, structured request logging, panic recovery, and
// the mapping from classified chain errors to HTTP responses.
package transport
