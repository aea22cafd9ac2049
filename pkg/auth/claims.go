package auth

import (
	"fmt"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"

	"github.com/torhaus-dev/torhaus/pkg/api"
)

// IdentityContext is the minimal, typed identity projected from verified
// claims. All four fields are non-empty once populated, and the short-lived
// token is attributable to the same account/user/app. Read-only after
// creation.
type IdentityContext struct {
	AccountID       string
	UserID          string
	AppID           string
	ShortLivedToken string
}

// Claim names expected in the verified token payload.
const (
	claimAccountID = "accountId"
	claimUserID    = "userId"
	claimAppID     = "appId"
)

// maxIdentifierLen bounds accountId/userId/appId claim values. Identifiers
// longer than this are rejected as schema violations rather than truncated.
const maxIdentifierLen = 64

// DefaultShortTokenTTL is the lifetime of the derived short-lived token
// when the configuration does not set one.
const DefaultShortTokenTTL = 5 * time.Minute

// Populator validates decoded claims against the identity schema and
// projects them into an IdentityContext. It performs no I/O: given the
// same claims and clock it is deterministic.
type Populator struct {
	secretA  []byte
	secretB  []byte
	tokenTTL time.Duration

	// now is the clock used when minting short-lived tokens; tests
	// override it.
	now func() time.Time
}

// NewPopulator creates a populator that mints short-lived tokens with the
// same secret pair the verifier accepts. A zero ttl falls back to
// DefaultShortTokenTTL.
func NewPopulator(secretA, secretB string, ttl time.Duration) *Populator {
	if ttl <= 0 {
		ttl = DefaultShortTokenTTL
	}
	p := &Populator{secretA: []byte(secretA), tokenTTL: ttl, now: time.Now}
	if secretB != "" {
		p.secretB = []byte(secretB)
	}
	return p
}

// Populate validates the claims against the identity schema and returns
// the projected IdentityContext. On any schema violation it halts with an
// InvalidPayloadError naming the offending field.
//
// The short-lived token is signed with the same secret that verified the
// inbound token, so the identity provider can validate it without knowing
// which secret a given installation uses.
func (p *Populator) Populate(claims jwtlib.MapClaims, matched SecretLabel) (*IdentityContext, error) {
	accountID, err := identifierClaim(claims, claimAccountID)
	if err != nil {
		return nil, err
	}
	userID, err := identifierClaim(claims, claimUserID)
	if err != nil {
		return nil, err
	}
	appID, err := identifierClaim(claims, claimAppID)
	if err != nil {
		return nil, err
	}

	shortToken, err := p.mint(accountID, userID, appID, matched)
	if err != nil {
		return nil, fmt.Errorf("minting short-lived token: %w", err)
	}

	return &IdentityContext{
		AccountID:       accountID,
		UserID:          userID,
		AppID:           appID,
		ShortLivedToken: shortToken,
	}, nil
}

// mint signs a fresh HS256 token carrying the same identity with a short
// expiry.
func (p *Populator) mint(accountID, userID, appID string, matched SecretLabel) (string, error) {
	secret := p.secretA
	if matched == SecretB && p.secretB != nil {
		secret = p.secretB
	}

	now := p.now()
	token := jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, jwtlib.MapClaims{
		claimAccountID: accountID,
		claimUserID:    userID,
		claimAppID:     appID,
		"iat":          now.Unix(),
		"exp":          now.Add(p.tokenTTL).Unix(),
	})
	return token.SignedString(secret)
}

// identifierClaim extracts a required identifier claim, enforcing type,
// non-emptiness, length, and charset.
func identifierClaim(claims jwtlib.MapClaims, field string) (string, error) {
	val, ok := claims[field]
	if !ok {
		return "", api.NewInvalidPayloadError(field, "required claim is missing")
	}

	s, ok := val.(string)
	if !ok {
		return "", api.NewInvalidPayloadError(field, "claim must be a string")
	}
	if s == "" {
		return "", api.NewInvalidPayloadError(field, "claim must not be empty")
	}
	if len(s) > maxIdentifierLen {
		return "", api.NewInvalidPayloadError(field, "claim exceeds maximum identifier length")
	}
	for _, r := range s {
		if !isIdentifierRune(r) {
			return "", api.NewInvalidPayloadError(field, "claim contains invalid characters")
		}
	}
	return s, nil
}

// isIdentifierRune reports whether r is allowed in an identifier claim.
func isIdentifierRune(r rune) bool {
	switch {
	case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		return true
	case r == '-' || r == '_' || r == '.':
		return true
	}
	return false
}
