package handlers

import (
	"context"
	"html/template"
	"io"
	"net/http"

	"github.com/a-h/templ"

	"sukoonai.org/sukoon-web/internal/middleware"
	"sukoonai.org/sukoon-web/internal/session"
	"sukoonai.org/sukoon-web/internal/shell"
)

var signInTmpl = template.Must(template.New("signin").Parse(`<section class="container mx-auto max-w-md px-4 py-16" data-sign-in>
<h1 class="text-2xl font-semibold">Sign in</h1>
<p class="mt-2 text-sm text-muted-foreground">Sign in to keep your journal, mood history and conversations in one place.</p>
{{- with .Error}}
<p class="mt-4 rounded-md border border-red-300 bg-red-50 p-3 text-sm text-red-800 dark:border-red-800 dark:bg-red-950 dark:text-red-200" role="alert" data-sign-in-error>{{.}}</p>
{{- end}}
<form method="post" action="{{.Action}}" class="mt-6 space-y-4" data-sign-in-form>
{{- if .CSRF}}<input type="hidden" name="_csrf" value="{{.CSRF}}">{{end}}
{{- if .Next}}<input type="hidden" name="next" value="{{.Next}}">{{end}}
<label class="block text-sm font-medium" for="sign-in-token">Sign-in token</label>
<input id="sign-in-token" type="password" name="token" autocomplete="off" required class="h-10 w-full rounded-md border bg-background px-3 text-sm" data-id-token>
<button type="submit" class="inline-flex h-10 w-full items-center justify-center rounded-md bg-primary px-4 text-sm font-medium text-primary-foreground" data-sign-in-submit>Continue</button>
</form>
</section>`))

type signInView struct {
	Action string
	CSRF   string
	Next   string
	Error  string
}

var signInErrors = map[string]string{
	session.ReasonMissingToken: "Please sign in with your account to continue.",
	session.ReasonTokenExpired: "Your sign-in expired. Please try again.",
	session.ReasonTokenInvalid: "We couldn't verify your sign-in. Please try again.",
}

// SignInPage renders the sign-in form. The token field takes a Firebase ID token (filled by the
// identity provider's client script) or, outside production, a debug:<uid> token.
func SignInPage(sh *shell.Shell) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if user := session.UserFromContext(r.Context()); user != nil {
			http.Redirect(w, r, session.SafeRedirect(r.URL.Query().Get("next"), "/"), http.StatusSeeOther)
			return
		}
		view := signInView{
			Action: session.SignInPath,
			Next:   session.SafeRedirect(r.URL.Query().Get("next"), ""),
			Error:  signInErrors[r.URL.Query().Get("error")],
		}
		content := templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
			view.CSRF = middleware.CSRFTokenFromContext(ctx)
			return signInTmpl.Execute(w, view)
		})
		sh.Serve(w, r, http.StatusOK, content, shell.Page{Title: "Sign in", NoIndex: true})
	}
}
