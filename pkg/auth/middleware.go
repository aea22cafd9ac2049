package auth

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/torhaus-dev/torhaus/pkg/api"
	"github.com/torhaus-dev/torhaus/pkg/audit"
	"github.com/torhaus-dev/torhaus/pkg/observability"
	"github.com/torhaus-dev/torhaus/pkg/transport"
)

// auditTimeout bounds how long a chain outcome may take to record. The
// audit write must never hold up the response.
const auditTimeout = 2 * time.Second

// Middleware creates HTTP middleware that runs the request chain. It
// checks the bypass list, executes the pipeline, records the outcome, and
// injects the identity into the request context for the handler.
//
// A nil sink disables auditing.
func Middleware(pipeline *Pipeline, sink audit.Sink, bypassEndpoints []string) func(http.Handler) http.Handler {
	bypass := make(map[string]bool, len(bypassEndpoints))
	for _, ep := range bypassEndpoints {
		bypass[ep] = true
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if bypass[r.URL.Path] {
				next.ServeHTTP(w, r)
				return
			}

			rc := &RequestContext{
				RequestID: transport.RequestIDFromContext(r.Context()),
			}

			stage, err := pipeline.Run(r.Context(), r, rc)

			if err != nil {
				// Client gone: abandon without writing a response.
				if r.Context().Err() != nil {
					slog.Debug("request chain abandoned",
						"path", r.URL.Path,
						"stage", stage,
					)
					return
				}

				chainErr := asChainError(err)
				slog.Warn("request chain halted",
					"path", r.URL.Path,
					"remote_addr", r.RemoteAddr,
					"stage", stage,
					"code", chainErr.Code,
					"error", chainErr,
				)
				observability.ChainHaltsTotal.WithLabelValues(string(chainErr.Code), stage).Inc()
				recordOutcome(sink, r, rc, string(chainErr.Code))
				transport.WriteChainError(w, chainErr)
				return
			}

			if rc.Identity == nil {
				// A pipeline without a populate stage is a wiring bug,
				// not a client error.
				slog.Error("request chain completed without identity", "path", r.URL.Path)
				transport.WriteChainError(w, &api.ChainError{
					Code:    api.CodeEntitlementUnavailable,
					Message: "internal authentication error",
				})
				return
			}

			slog.Debug("request chain allowed",
				"account_id", rc.Identity.AccountID,
				"user_id", rc.Identity.UserID,
				"path", r.URL.Path,
				"secret", rc.SecretMatched,
				"token_source", rc.Token.Source,
			)
			observability.ChainAllowedTotal.Inc()
			observability.SecretMatchedTotal.WithLabelValues(string(rc.SecretMatched)).Inc()
			recordOutcome(sink, r, rc, "allowed")

			next.ServeHTTP(w, r.WithContext(SetIdentity(r.Context(), rc.Identity)))
		})
	}
}

// asChainError normalizes any stage error into a ChainError. Stages only
// return classified errors; anything else is surfaced as an unavailable
// entitlement so the client sees a 5xx rather than a bogus denial.
func asChainError(err error) *api.ChainError {
	var chainErr *api.ChainError
	if errors.As(err, &chainErr) {
		return chainErr
	}
	return api.NewEntitlementUnavailableError(err)
}

// recordOutcome writes the terminal chain outcome to the audit sink with
// its own deadline, detached from the request context so a client
// disconnect cannot lose the record.
func recordOutcome(sink audit.Sink, r *http.Request, rc *RequestContext, outcome string) {
	if sink == nil {
		return
	}

	rec := audit.Record{
		RequestID:   rc.RequestID,
		Path:        r.URL.Path,
		Outcome:     outcome,
		TokenSource: string(rc.Token.Source),
		At:          time.Now().UTC(),
	}
	if rc.Identity != nil {
		rec.AccountID = rc.Identity.AccountID
		rec.UserID = rc.Identity.UserID
	}

	go func() {
		ctx, cancel := audit.DetachedContext(auditTimeout)
		defer cancel()
		if err := sink.Record(ctx, rec); err != nil {
			slog.Warn("audit record failed", "error", err, "request_id", rec.RequestID)
		}
	}()
}

// DefaultBypassEndpoints lists endpoints that skip the chain.
var DefaultBypassEndpoints = []string{"/healthz", "/readyz", "/metrics"}
