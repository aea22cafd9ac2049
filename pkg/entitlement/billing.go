package entitlement

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/torhaus-dev/torhaus/pkg/api"
	"github.com/torhaus-dev/torhaus/pkg/observability"
)

// BillingClient answers subscription status queries.
type BillingClient interface {
	SubscriptionStatus(ctx context.Context, accountID string) (api.SubscriptionStatus, error)
}

// HTTPBillingClient queries the billing collaborator over JSON/HTTP. A
// client is immutable after construction and shared across requests.
type HTTPBillingClient struct {
	baseURL string
	timeout time.Duration
	client  *http.Client
}

// Ensure HTTPBillingClient implements BillingClient at compile time.
var _ BillingClient = (*HTTPBillingClient)(nil)

// DefaultCollaboratorTimeout bounds one billing or permissions call when
// the configuration does not set a timeout.
const DefaultCollaboratorTimeout = 3 * time.Second

// NewHTTPBillingClient creates a billing client for the given base URL.
func NewHTTPBillingClient(baseURL string, timeout time.Duration) (*HTTPBillingClient, error) {
	if baseURL == "" {
		return nil, fmt.Errorf("billing: base URL is required")
	}
	if timeout <= 0 {
		timeout = DefaultCollaboratorTimeout
	}
	return &HTTPBillingClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		timeout: timeout,
		client:  &http.Client{Timeout: timeout},
	}, nil
}

// subscriptionRequest is the billing collaborator's request shape.
type subscriptionRequest struct {
	AccountID string `json:"account_id"`
}

// subscriptionResponse is the billing collaborator's response shape.
type subscriptionResponse struct {
	Status api.SubscriptionStatus `json:"status"`
}

// SubscriptionStatus asks the collaborator for the account's subscription
// status. Any transport, timeout, or protocol failure is returned as an
// error; callers must treat it as "could not determine", never as a
// denial. The call is abandoned when ctx is canceled.
func (c *HTTPBillingClient) SubscriptionStatus(ctx context.Context, accountID string) (api.SubscriptionStatus, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	body, err := json.Marshal(subscriptionRequest{AccountID: accountID})
	if err != nil {
		return "", fmt.Errorf("marshaling subscription request: %w", err)
	}

	start := time.Now()
	resp, err := c.post(ctx, c.baseURL+"/v1/subscription", body)
	observability.CollaboratorLatency.WithLabelValues("billing").Observe(time.Since(start).Seconds())
	if err != nil {
		observability.CollaboratorRequestsTotal.WithLabelValues("billing", "error").Inc()
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		observability.CollaboratorRequestsTotal.WithLabelValues("billing", "error").Inc()
		return "", fmt.Errorf("billing returned status %d", resp.StatusCode)
	}

	var sub subscriptionResponse
	if err := json.NewDecoder(resp.Body).Decode(&sub); err != nil {
		observability.CollaboratorRequestsTotal.WithLabelValues("billing", "error").Inc()
		return "", fmt.Errorf("decoding subscription response: %w", err)
	}

	switch sub.Status {
	case api.SubscriptionActive, api.SubscriptionExpired, api.SubscriptionNotFound:
	default:
		observability.CollaboratorRequestsTotal.WithLabelValues("billing", "error").Inc()
		return "", fmt.Errorf("billing returned unknown status %q", sub.Status)
	}

	observability.CollaboratorRequestsTotal.WithLabelValues("billing", "ok").Inc()
	return sub.Status, nil
}

func (c *HTTPBillingClient) post(ctx context.Context, url string, body []byte) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("creating billing request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("calling billing: %w", err)
	}
	return resp, nil
}
