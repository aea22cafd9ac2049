package transport

import (
	"encoding/json"
	"net/http"

	"github.com/torhaus-dev/torhaus/pkg/api"
)

// HTTPStatusFromCode maps a chain error code to its HTTP status. The
// mapping is part of the external contract: clients distinguish the exact
// classification from the body code, and the status from this table.
func HTTPStatusFromCode(code api.Code) int {
	switch code {
	case api.CodeInvalidPayload:
		return http.StatusBadRequest
	case api.CodeMissingToken, api.CodeTokenMalformed, api.CodeTokenExpired, api.CodeSignatureInvalid:
		return http.StatusUnauthorized
	case api.CodeSubscriptionDenied, api.CodePermissionDenied:
		return http.StatusForbidden
	case api.CodeEntitlementUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// WriteChainError writes a classified chain halt as a JSON error response,
// deriving the HTTP status from the error code.
func WriteChainError(w http.ResponseWriter, chainErr *api.ChainError) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(HTTPStatusFromCode(chainErr.Code))
	json.NewEncoder(w).Encode(api.ErrorResponse{Error: chainErr})
}
