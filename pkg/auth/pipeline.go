package auth

import (
	"context"
	"net/http"
)

// Stage is one unit of the linear request chain. A stage either enriches
// the RequestContext and returns nil, or halts the chain with a classified
// error (normally an *api.ChainError). Stages hold no per-request state of
// their own; everything request-scoped lives in the RequestContext.
type Stage interface {
	// Name identifies the stage in logs and metrics.
	Name() string

	// Run executes the stage against the current request.
	Run(ctx context.Context, r *http.Request, rc *RequestContext) error
}

// Pipeline is an explicit, ordered list of stages composed at route
// registration time. There is no dynamic dispatch: the stages a route
// requires are visible in its construction.
type Pipeline struct {
	stages []Stage
}

// NewPipeline composes stages in execution order.
func NewPipeline(stages ...Stage) *Pipeline {
	return &Pipeline{stages: stages}
}

// Run executes the stages strictly in order, stopping at the first error.
// No stage runs more than once, and no stage runs after a halt.
func (p *Pipeline) Run(ctx context.Context, r *http.Request, rc *RequestContext) (string, error) {
	for _, stage := range p.stages {
		if err := stage.Run(ctx, r, rc); err != nil {
			return stage.Name(), err
		}
	}
	return "", nil
}

// LocateStage wraps LocateToken as the first chain stage.
type LocateStage struct{}

func (LocateStage) Name() string { return "locate" }

func (LocateStage) Run(_ context.Context, r *http.Request, rc *RequestContext) error {
	tok, err := LocateToken(r)
	if err != nil {
		return err
	}
	rc.Token = tok
	return nil
}

// VerifyStage validates the located token's signature and expiry.
type VerifyStage struct {
	Verifier *Verifier
}

func (VerifyStage) Name() string { return "verify" }

func (s VerifyStage) Run(_ context.Context, _ *http.Request, rc *RequestContext) error {
	claims, matched, err := s.Verifier.Verify(rc.Token)
	if err != nil {
		return err
	}
	rc.SecretMatched = matched
	rc.claims = claims
	return nil
}

// PopulateStage validates the decoded claims and projects the identity.
type PopulateStage struct {
	Populator *Populator
}

func (PopulateStage) Name() string { return "populate" }

func (s PopulateStage) Run(_ context.Context, _ *http.Request, rc *RequestContext) error {
	identity, err := s.Populator.Populate(rc.claims, rc.SecretMatched)
	if err != nil {
		return err
	}
	rc.Identity = identity
	return nil
}
