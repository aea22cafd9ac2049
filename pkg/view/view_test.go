package view

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/torhaus-dev/torhaus/pkg/auth"
)

func TestHandler_RendersIdentity(t *testing.T) {
	r := httptest.NewRequest("GET", "/", nil)
	r = r.WithContext(auth.SetIdentity(r.Context(), &auth.IdentityContext{
		AccountID:       "acct-1",
		UserID:          "user-1",
		AppID:           "app-1",
		ShortLivedToken: "short.token.value",
	}))

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, r)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/html") {
		t.Errorf("Content-Type = %q, want text/html", ct)
	}

	body := rec.Body.String()
	for _, want := range []string{"acct-1", "user-1", "app-1", "short.token.value"} {
		if !strings.Contains(body, want) {
			t.Errorf("body missing %q", want)
		}
	}
}

func TestHandler_WithoutIdentity(t *testing.T) {
	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/", nil))

	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", rec.Code)
	}
	if strings.Contains(rec.Body.String(), "__SESSION_TOKEN__") {
		t.Error("page rendered without identity")
	}
}
