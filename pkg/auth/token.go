package auth

import (
	"bytes"
	"encoding/json"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strings"

	"github.com/torhaus-dev/torhaus/pkg/api"
)

// TokenSource tags where in the request a raw token was found.
type TokenSource string

const (
	SourceHeader TokenSource = "header"
	SourceCookie TokenSource = "cookie"
	SourceQuery  TokenSource = "query"
	SourceBody   TokenSource = "body"
)

// RawToken is an opaque credential string tagged with its carrier. It is
// created once per request and never mutated.
type RawToken struct {
	Value  string
	Source TokenSource
}

// maxTokenBodyBytes bounds how much of a request body the locator will
// buffer while looking for a body-carried token.
const maxTokenBodyBytes = 1 << 20

// LocateToken extracts the first bearer token found in the request,
// checking carriers in strict priority order:
//
//  1. Authorization header as "Bearer <token>" (any other scheme is
//     treated as absent)
//  2. cookie "token"
//  3. query parameter "token", then "sessionToken"
//  4. body field "token" (JSON or form-encoded)
//
// The request is never mutated: a consumed body is buffered and restored
// so downstream handlers can still read it. A request with no token in any
// carrier halts with MissingTokenError.
func LocateToken(r *http.Request) (RawToken, error) {
	if header := r.Header.Get("Authorization"); header != "" {
		if tok, ok := strings.CutPrefix(header, "Bearer "); ok {
			if tok = strings.TrimSpace(tok); tok != "" {
				return RawToken{Value: tok, Source: SourceHeader}, nil
			}
		}
		// Wrong scheme or empty value: fall through to the next carrier.
	}

	if c, err := r.Cookie("token"); err == nil && c.Value != "" {
		return RawToken{Value: c.Value, Source: SourceCookie}, nil
	}

	query := r.URL.Query()
	if tok := query.Get("token"); tok != "" {
		return RawToken{Value: tok, Source: SourceQuery}, nil
	}
	if tok := query.Get("sessionToken"); tok != "" {
		return RawToken{Value: tok, Source: SourceQuery}, nil
	}

	if tok := tokenFromBody(r); tok != "" {
		return RawToken{Value: tok, Source: SourceBody}, nil
	}

	return RawToken{}, api.NewMissingTokenError()
}

// tokenFromBody looks for a "token" field in a JSON or form-encoded body.
// The body is restored on the request before returning.
func tokenFromBody(r *http.Request) string {
	if r.Body == nil || r.Method == http.MethodGet || r.Method == http.MethodHead {
		return ""
	}

	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err != nil {
		return ""
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxTokenBodyBytes))
	r.Body.Close()
	r.Body = io.NopCloser(bytes.NewReader(body))
	if err != nil {
		return ""
	}

	switch mediaType {
	case "application/json":
		var fields struct {
			Token string `json:"token"`
		}
		if json.Unmarshal(body, &fields) != nil {
			return ""
		}
		return fields.Token

	case "application/x-www-form-urlencoded":
		values, err := url.ParseQuery(string(body))
		if err != nil {
			return ""
		}
		return values.Get("token")
	}

	return ""
}
