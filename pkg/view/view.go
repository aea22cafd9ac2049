// Package view renders the server-side page for requests that passed the
// full chain. It is the downstream consumer of the identity context: it
// reads the validated identity from the request context and never mutates
// it.
package view

import (
	"html/template"
	"log/slog"
	"net/http"

	"github.com/torhaus-dev/torhaus/pkg/auth"
)

// pageTemplate is the minimal server-rendered page. Real deployments
// replace this with the application's view tree; the contract exercised
// here — identity in, HTML out, no writes back — stays the same.
var pageTemplate = template.Must(template.New("page").Parse(`<!DOCTYPE html>
<html>
<head><title>torhaus</title></head>
<body>
<h1>Welcome</h1>
<p>Account: {{.AccountID}}</p>
<p>User: {{.UserID}}</p>
<p>App: {{.AppID}}</p>
<script>window.__SESSION_TOKEN__ = {{.ShortLivedToken}};</script>
</body>
</html>
`))

// pageData is the read-only projection handed to the template.
type pageData struct {
	AccountID       string
	UserID          string
	AppID           string
	ShortLivedToken string
}

// Handler returns the protected page handler. It requires the chain to
// have run: a missing identity means the handler was wired onto an
// unprotected route, which is a server error, not a client one.
func Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := auth.IdentityFromContext(r.Context())
		if id == nil {
			slog.Error("view handler reached without identity", "path", r.URL.Path)
			http.Error(w, "internal server error", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		if err := pageTemplate.Execute(w, pageData{
			AccountID:       id.AccountID,
			UserID:          id.UserID,
			AppID:           id.AppID,
			ShortLivedToken: id.ShortLivedToken,
		}); err != nil {
			slog.Error("rendering page", "error", err)
		}
	})
}
