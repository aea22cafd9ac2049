package auth

import (
	"errors"
	"fmt"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"

	"github.com/torhaus-dev/torhaus/pkg/api"
)

// DefaultClockSkew is the leeway applied to expiry checks when the
// configuration does not set one. It absorbs small clock drift between
// the identity provider and this process.
const DefaultClockSkew = 30 * time.Second

// SecretLabel records which of the two accepted signing secrets verified a
// token. It exists for logging and metrics only; no downstream logic may
// branch on it.
type SecretLabel string

const (
	SecretA SecretLabel = "a"
	SecretB SecretLabel = "b"
)

// Verifier validates raw tokens against two alternative HMAC signing
// secrets. Secrets are process-wide, read-only configuration; a Verifier
// is safe for concurrent use.
type Verifier struct {
	secretA []byte
	secretB []byte
	leeway  time.Duration
}

// NewVerifier creates a verifier for the given secrets. If secretB is
// empty, secret A is the only accepted secret. A zero leeway falls back to
// DefaultClockSkew.
func NewVerifier(secretA, secretB string, leeway time.Duration) *Verifier {
	if leeway <= 0 {
		leeway = DefaultClockSkew
	}
	v := &Verifier{secretA: []byte(secretA), leeway: leeway}
	if secretB != "" {
		v.secretB = []byte(secretB)
	}
	return v
}

// Verify checks the token's algorithm, signature, and expiry, trying
// secret A first and secret B on failure. On success it returns the
// decoded claims and the label of the secret that matched. On failure it
// returns a ChainError classified as TokenExpired, TokenMalformed, or
// SignatureInvalid.
//
// Unsigned and "none"-algorithm tokens are rejected: only HS256 is
// accepted.
func (v *Verifier) Verify(raw RawToken) (jwtlib.MapClaims, SecretLabel, error) {
	claims, errA := v.verifyWith(raw.Value, v.secretA)
	if errA == nil {
		return claims, SecretA, nil
	}

	errB := errA
	if v.secretB != nil {
		claims, errB = v.verifyWith(raw.Value, v.secretB)
		if errB == nil {
			return claims, SecretB, nil
		}
	}

	return nil, "", classifyVerification(errA, errB)
}

// verifyWith runs one verification attempt against a single secret.
func (v *Verifier) verifyWith(token string, secret []byte) (jwtlib.MapClaims, error) {
	parsed, err := jwtlib.Parse(token,
		func(t *jwtlib.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwtlib.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
			}
			return secret, nil
		},
		jwtlib.WithValidMethods([]string{"HS256"}),
		jwtlib.WithLeeway(v.leeway),
		jwtlib.WithExpirationRequired(),
	)
	if err != nil {
		return nil, err
	}

	claims, ok := parsed.Claims.(jwtlib.MapClaims)
	if !ok || !parsed.Valid {
		return nil, jwtlib.ErrTokenUnverifiable
	}
	return claims, nil
}

// classifyVerification maps the two per-secret failures onto one chain
// halt. An expiry failure wins over a signature failure: a token that is
// validly signed under either secret but expired must always surface as
// TokenExpired.
func classifyVerification(errA, errB error) error {
	for _, err := range []error{errA, errB} {
		if errors.Is(err, jwtlib.ErrTokenExpired) {
			return api.NewTokenExpiredError(err)
		}
	}
	for _, err := range []error{errA, errB} {
		if errors.Is(err, jwtlib.ErrTokenMalformed) {
			return api.NewTokenMalformedError(err)
		}
	}
	return api.NewSignatureInvalidError(errB)
}
