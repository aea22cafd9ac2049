package entitlement

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/torhaus-dev/torhaus/pkg/observability"
)

// PermissionsClient answers held-permission queries for an identity.
type PermissionsClient interface {
	// HeldPermissions returns the subset of required permissions the
	// identity actually holds.
	HeldPermissions(ctx context.Context, id IdentityRef, required []string) ([]string, error)
}

// IdentityRef names the identity a permissions query is about.
type IdentityRef struct {
	AccountID string `json:"account_id"`
	UserID    string `json:"user_id"`
	AppID     string `json:"app_id"`
}

// HTTPPermissionsClient queries the permissions collaborator over
// JSON/HTTP. A client is immutable after construction and shared across
// requests.
type HTTPPermissionsClient struct {
	baseURL string
	timeout time.Duration
	client  *http.Client
}

// Ensure HTTPPermissionsClient implements PermissionsClient at compile time.
var _ PermissionsClient = (*HTTPPermissionsClient)(nil)

// NewHTTPPermissionsClient creates a permissions client for the given base
// URL.
func NewHTTPPermissionsClient(baseURL string, timeout time.Duration) (*HTTPPermissionsClient, error) {
	if baseURL == "" {
		return nil, fmt.Errorf("permissions: base URL is required")
	}
	if timeout <= 0 {
		timeout = DefaultCollaboratorTimeout
	}
	return &HTTPPermissionsClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		timeout: timeout,
		client:  &http.Client{Timeout: timeout},
	}, nil
}

// permissionsRequest is the permissions collaborator's request shape.
type permissionsRequest struct {
	IdentityRef
	Required []string `json:"required"`
}

// permissionsResponse is the permissions collaborator's response shape.
type permissionsResponse struct {
	Held []string `json:"held"`
}

// HeldPermissions asks the collaborator which of the required permissions
// the identity holds. Failures are transport errors, never denials; the
// call is abandoned when ctx is canceled.
func (c *HTTPPermissionsClient) HeldPermissions(ctx context.Context, id IdentityRef, required []string) ([]string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	body, err := json.Marshal(permissionsRequest{IdentityRef: id, Required: required})
	if err != nil {
		return nil, fmt.Errorf("marshaling permissions request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/permissions", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("creating permissions request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.client.Do(req)
	observability.CollaboratorLatency.WithLabelValues("permissions").Observe(time.Since(start).Seconds())
	if err != nil {
		observability.CollaboratorRequestsTotal.WithLabelValues("permissions", "error").Inc()
		return nil, fmt.Errorf("calling permissions: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		observability.CollaboratorRequestsTotal.WithLabelValues("permissions", "error").Inc()
		return nil, fmt.Errorf("permissions returned status %d", resp.StatusCode)
	}

	var perms permissionsResponse
	if err := json.NewDecoder(resp.Body).Decode(&perms); err != nil {
		observability.CollaboratorRequestsTotal.WithLabelValues("permissions", "error").Inc()
		return nil, fmt.Errorf("decoding permissions response: %w", err)
	}

	observability.CollaboratorRequestsTotal.WithLabelValues("permissions", "ok").Inc()
	return perms.Held, nil
}
