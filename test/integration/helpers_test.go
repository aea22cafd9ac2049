// Package integration provides end-to-end tests for the request chain.
//
// Tests run against a real torhaus HTTP server backed by mock billing and
// permissions collaborators, all started in-process using
// net/http/httptest.
package integration

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"sync"
	"testing"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"

	"github.com/torhaus-dev/torhaus/pkg/api"
	"github.com/torhaus-dev/torhaus/pkg/audit"
	"github.com/torhaus-dev/torhaus/pkg/auth"
	"github.com/torhaus-dev/torhaus/pkg/entitlement"
	"github.com/torhaus-dev/torhaus/pkg/transport"
	"github.com/torhaus-dev/torhaus/pkg/view"
)

const (
	testSecretA = "integration-secret-a"
	testSecretB = "integration-secret-b"

	// collaboratorTimeout is deliberately short so the unavailability
	// scenario completes quickly.
	collaboratorTimeout = 300 * time.Millisecond

	pagePermission = "read"
)

// testEnv holds the shared servers for all integration tests.
var testEnv *TestEnvironment

// TestEnvironment holds the torhaus server, the mock collaborators, and
// the mutable entitlement state the collaborators serve from.
type TestEnvironment struct {
	Server            *httptest.Server
	BillingServer     *httptest.Server
	PermissionsServer *httptest.Server
	Audit             *audit.MemorySink

	mu sync.Mutex
	// subscriptions maps account IDs to the status the mock billing
	// collaborator reports. Unknown accounts report not_found.
	subscriptions map[string]api.SubscriptionStatus
	// permissions maps account IDs to the permissions the mock
	// permissions collaborator reports as held.
	permissions map[string][]string
	// billingDelay, when non-zero, stalls every billing response.
	billingDelay time.Duration
}

// TestMain starts the collaborators and the torhaus server before running
// tests.
func TestMain(m *testing.M) {
	testEnv = setupTestEnvironment()
	code := m.Run()
	testEnv.Teardown()
	os.Exit(code)
}

// setupTestEnvironment creates the mock collaborators and a torhaus server
// wired to them, matching the production handler stack.
func setupTestEnvironment() *TestEnvironment {
	env := &TestEnvironment{
		subscriptions: make(map[string]api.SubscriptionStatus),
		permissions:   make(map[string][]string),
		Audit:         audit.NewMemorySink(256),
	}

	env.BillingServer = httptest.NewServer(http.HandlerFunc(env.handleSubscription))
	env.PermissionsServer = httptest.NewServer(http.HandlerFunc(env.handlePermissions))

	billing, err := entitlement.NewHTTPBillingClient(env.BillingServer.URL, collaboratorTimeout)
	if err != nil {
		panic(fmt.Sprintf("creating billing client: %v", err))
	}
	perms, err := entitlement.NewHTTPPermissionsClient(env.PermissionsServer.URL, collaboratorTimeout)
	if err != nil {
		panic(fmt.Sprintf("creating permissions client: %v", err))
	}
	gate := entitlement.NewGate(billing, perms)

	pipeline := auth.NewPipeline(
		auth.LocateStage{},
		auth.VerifyStage{Verifier: auth.NewVerifier(testSecretA, testSecretB, auth.DefaultClockSkew)},
		auth.PopulateStage{Populator: auth.NewPopulator(testSecretA, testSecretB, auth.DefaultShortTokenTTL)},
		entitlement.SubscriptionStage{Gate: gate},
		entitlement.PermissionStage{Gate: gate, Required: []string{pagePermission}},
	)

	// Build the handler stack matching production layout.
	mux := http.NewServeMux()
	mux.Handle("/", view.Handler())
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok\n"))
	})

	var handler http.Handler = mux
	handler = auth.Middleware(pipeline, env.Audit, auth.DefaultBypassEndpoints)(handler)
	handler = transport.Logging(nil)(handler)
	handler = transport.Recovery(handler)
	handler = transport.RequestID(handler)

	env.Server = httptest.NewServer(handler)
	return env
}

// Teardown stops all servers.
func (env *TestEnvironment) Teardown() {
	if env.Server != nil {
		env.Server.Close()
	}
	if env.BillingServer != nil {
		env.BillingServer.Close()
	}
	if env.PermissionsServer != nil {
		env.PermissionsServer.Close()
	}
}

// BaseURL returns the torhaus server base URL.
func (env *TestEnvironment) BaseURL() string {
	return env.Server.URL
}

// SetSubscription sets the status the billing mock reports for an account.
func (env *TestEnvironment) SetSubscription(accountID string, status api.SubscriptionStatus) {
	env.mu.Lock()
	defer env.mu.Unlock()
	env.subscriptions[accountID] = status
}

// SetPermissions sets the permissions the permissions mock reports as held
// for an account.
func (env *TestEnvironment) SetPermissions(accountID string, held []string) {
	env.mu.Lock()
	defer env.mu.Unlock()
	env.permissions[accountID] = held
}

// SetBillingDelay stalls every billing response by d. Zero restores normal
// behavior.
func (env *TestEnvironment) SetBillingDelay(d time.Duration) {
	env.mu.Lock()
	defer env.mu.Unlock()
	env.billingDelay = d
}

// handleSubscription mimics the billing collaborator.
func (env *TestEnvironment) handleSubscription(w http.ResponseWriter, r *http.Request) {
	var req struct {
		AccountID string `json:"account_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}

	env.mu.Lock()
	delay := env.billingDelay
	status, ok := env.subscriptions[req.AccountID]
	env.mu.Unlock()

	if delay > 0 {
		time.Sleep(delay)
	}
	if !ok {
		status = api.SubscriptionNotFound
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{"status": status})
}

// handlePermissions mimics the permissions collaborator: it intersects the
// required set with the permissions registered for the account.
func (env *TestEnvironment) handlePermissions(w http.ResponseWriter, r *http.Request) {
	var req struct {
		AccountID string   `json:"account_id"`
		UserID    string   `json:"user_id"`
		AppID     string   `json:"app_id"`
		Required  []string `json:"required"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}

	env.mu.Lock()
	granted := env.permissions[req.AccountID]
	env.mu.Unlock()

	held := []string{}
	for _, want := range req.Required {
		for _, have := range granted {
			if want == have {
				held = append(held, want)
				break
			}
		}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{"held": held})
}

// --- Token helpers ---

// signToken creates an HS256 token with the given claims and secret.
func signToken(t *testing.T, secret string, claims jwtlib.MapClaims) string {
	t.Helper()
	token := jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("signing token: %v", err)
	}
	return signed
}

// identityClaims returns well-formed identity claims expiring in an hour.
func identityClaims(accountID, userID, appID string) jwtlib.MapClaims {
	now := time.Now()
	return jwtlib.MapClaims{
		"accountId": accountID,
		"userId":    userID,
		"appId":     appID,
		"iat":       now.Unix(),
		"exp":       now.Add(time.Hour).Unix(),
	}
}

// --- HTTP helpers ---

// getWithToken sends a GET request carrying the token as a Bearer header.
func getWithToken(t *testing.T, url, token string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(http.MethodGet, url, nil)
	if err != nil {
		t.Fatalf("creating request: %v", err)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("GET %s: %v", url, err)
	}
	return resp
}

// readBody reads and returns the response body as a string.
func readBody(t *testing.T, resp *http.Response) string {
	t.Helper()
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("reading response body: %v", err)
	}
	return string(body)
}

// decodeError reads the response body as a chain error response.
func decodeError(t *testing.T, resp *http.Response) *api.ChainError {
	t.Helper()
	defer resp.Body.Close()
	var er api.ErrorResponse
	if err := json.NewDecoder(resp.Body).Decode(&er); err != nil {
		t.Fatalf("decoding error response: %v", err)
	}
	if er.Error == nil {
		t.Fatal("error response has no error object")
	}
	return er.Error
}
