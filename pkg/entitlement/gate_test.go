package entitlement

import (
	"context"
	"errors"
	"fmt"
	"net/http/httptest"
	"testing"

	"github.com/torhaus-dev/torhaus/pkg/api"
	"github.com/torhaus-dev/torhaus/pkg/auth"
)

// fakeBilling returns a fixed status (or error) and counts calls.
type fakeBilling struct {
	status api.SubscriptionStatus
	err    error
	calls  int
}

func (f *fakeBilling) SubscriptionStatus(_ context.Context, _ string) (api.SubscriptionStatus, error) {
	f.calls++
	return f.status, f.err
}

// fakePermissions returns a fixed held set (or error) and counts calls.
type fakePermissions struct {
	held  []string
	err   error
	calls int
}

func (f *fakePermissions) HeldPermissions(_ context.Context, _ IdentityRef, _ []string) ([]string, error) {
	f.calls++
	return f.held, f.err
}

func testIdentity() IdentityRef {
	return IdentityRef{AccountID: "a1", UserID: "u1", AppID: "ap1"}
}

func TestCheckSubscription(t *testing.T) {
	tests := []struct {
		name        string
		status      api.SubscriptionStatus
		wantOutcome api.Outcome
	}{
		{name: "active proceeds", status: api.SubscriptionActive, wantOutcome: api.OutcomeAllowed},
		{name: "expired denies", status: api.SubscriptionExpired, wantOutcome: api.OutcomeSubscriptionDenied},
		{name: "not found denies", status: api.SubscriptionNotFound, wantOutcome: api.OutcomeSubscriptionDenied},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := NewGate(&fakeBilling{status: tt.status}, &fakePermissions{})

			decision, err := g.CheckSubscription(context.Background(), "a1")
			if err != nil {
				t.Fatalf("CheckSubscription() error = %v", err)
			}
			if decision.Outcome != tt.wantOutcome {
				t.Errorf("Outcome = %q, want %q", decision.Outcome, tt.wantOutcome)
			}
			if decision.Subscription != tt.status {
				t.Errorf("Subscription = %q, want %q", decision.Subscription, tt.status)
			}
		})
	}
}

func TestCheckSubscription_CollaboratorFailure(t *testing.T) {
	g := NewGate(&fakeBilling{err: errors.New("connection refused")}, &fakePermissions{})

	_, err := g.CheckSubscription(context.Background(), "a1")
	if err == nil {
		t.Fatal("CheckSubscription() folded a collaborator failure into a decision")
	}
}

func TestCheckPermissions_ExactMissingSet(t *testing.T) {
	g := NewGate(&fakeBilling{}, &fakePermissions{held: []string{"read"}})

	decision, err := g.CheckPermissions(context.Background(), testIdentity(), []string{"write", "read", "admin"})
	if err != nil {
		t.Fatalf("CheckPermissions() error = %v", err)
	}
	if decision.Outcome != api.OutcomePermissionDenied {
		t.Fatalf("Outcome = %q, want permission_denied", decision.Outcome)
	}
	if len(decision.Missing) != 2 || decision.Missing[0] != "admin" || decision.Missing[1] != "write" {
		t.Errorf("Missing = %v, want [admin write]", decision.Missing)
	}
}

func TestCheckPermissions_SupersetAllowed(t *testing.T) {
	g := NewGate(&fakeBilling{}, &fakePermissions{held: []string{"read", "write"}})

	decision, err := g.CheckPermissions(context.Background(), testIdentity(), []string{"read"})
	if err != nil {
		t.Fatalf("CheckPermissions() error = %v", err)
	}
	if !decision.Allowed() {
		t.Errorf("decision = %+v, want allowed", decision)
	}
}

func TestCheckPermissions_EmptyRequiredSkipsCollaborator(t *testing.T) {
	perms := &fakePermissions{}
	g := NewGate(&fakeBilling{}, perms)

	decision, err := g.CheckPermissions(context.Background(), testIdentity(), nil)
	if err != nil {
		t.Fatalf("CheckPermissions() error = %v", err)
	}
	if !decision.Allowed() {
		t.Errorf("decision = %+v, want allowed", decision)
	}
	if perms.calls != 0 {
		t.Errorf("collaborator called %d times for empty required set", perms.calls)
	}
}

func TestEnforce(t *testing.T) {
	tests := []struct {
		name     string
		decision api.Decision
		wantCode api.Code
		wantNil  bool
	}{
		{
			name:     "allowed enforces to nil",
			decision: api.AllowedDecision(api.SubscriptionActive),
			wantNil:  true,
		},
		{
			name:     "subscription denial",
			decision: api.SubscriptionDeniedDecision(api.SubscriptionExpired),
			wantCode: api.CodeSubscriptionDenied,
		},
		{
			name:     "permission denial",
			decision: api.PermissionDeniedDecision([]string{"write"}),
			wantCode: api.CodePermissionDenied,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Enforce(tt.decision)
			if tt.wantNil {
				if err != nil {
					t.Fatalf("Enforce() = %v, want nil", err)
				}
				return
			}

			var chainErr *api.ChainError
			if !errors.As(err, &chainErr) {
				t.Fatalf("Enforce() = %v, want ChainError", err)
			}
			if chainErr.Code != tt.wantCode {
				t.Errorf("Code = %q, want %q", chainErr.Code, tt.wantCode)
			}
		})
	}
}

func TestEnforce_PermissionDenialListsMissing(t *testing.T) {
	err := Enforce(api.PermissionDeniedDecision([]string{"admin", "write"}))

	var chainErr *api.ChainError
	if !errors.As(err, &chainErr) {
		t.Fatalf("Enforce() = %v, want ChainError", err)
	}
	if chainErr.Param != "admin,write" {
		t.Errorf("Param = %q, want %q", chainErr.Param, "admin,write")
	}
}

func TestStages_SubscriptionShortCircuit(t *testing.T) {
	// A non-active subscription must halt the pipeline before the
	// permission collaborator is ever queried.
	billing := &fakeBilling{status: api.SubscriptionExpired}
	perms := &fakePermissions{held: []string{"read"}}
	g := NewGate(billing, perms)

	pipeline := newEntitlementPipeline(g, []string{"read"})
	rc := &auth.RequestContext{Identity: &auth.IdentityContext{AccountID: "a1", UserID: "u1", AppID: "ap1"}}

	stage, err := pipeline.Run(context.Background(), httptest.NewRequest("GET", "/", nil), rc)
	if stage != "subscription" {
		t.Errorf("halting stage = %q, want subscription", stage)
	}

	var chainErr *api.ChainError
	if !errors.As(err, &chainErr) || chainErr.Code != api.CodeSubscriptionDenied {
		t.Fatalf("error = %v, want SubscriptionDenied", err)
	}
	if perms.calls != 0 {
		t.Errorf("permission collaborator called %d times after subscription denial", perms.calls)
	}
}

func TestStages_UnavailableIsNotDenial(t *testing.T) {
	billing := &fakeBilling{err: fmt.Errorf("billing timeout: %w", context.DeadlineExceeded)}
	g := NewGate(billing, &fakePermissions{})

	pipeline := newEntitlementPipeline(g, []string{"read"})
	rc := &auth.RequestContext{Identity: &auth.IdentityContext{AccountID: "a1", UserID: "u1", AppID: "ap1"}}

	_, err := pipeline.Run(context.Background(), httptest.NewRequest("GET", "/", nil), rc)

	var chainErr *api.ChainError
	if !errors.As(err, &chainErr) {
		t.Fatalf("error = %v, want ChainError", err)
	}
	if chainErr.Code != api.CodeEntitlementUnavailable {
		t.Errorf("Code = %q, want EntitlementUnavailable, never a denial", chainErr.Code)
	}
}

func TestStages_FullyEntitled(t *testing.T) {
	g := NewGate(
		&fakeBilling{status: api.SubscriptionActive},
		&fakePermissions{held: []string{"read", "write"}},
	)

	pipeline := newEntitlementPipeline(g, []string{"read"})
	rc := &auth.RequestContext{Identity: &auth.IdentityContext{AccountID: "a1", UserID: "u1", AppID: "ap1"}}

	if _, err := pipeline.Run(context.Background(), httptest.NewRequest("GET", "/", nil), rc); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if !rc.Decision.Allowed() {
		t.Errorf("Decision = %+v, want allowed", rc.Decision)
	}
}

// newEntitlementPipeline composes just the two gate stages.
func newEntitlementPipeline(g *Gate, required []string) *auth.Pipeline {
	return auth.NewPipeline(
		SubscriptionStage{Gate: g},
		PermissionStage{Gate: g, Required: required},
	)
}
