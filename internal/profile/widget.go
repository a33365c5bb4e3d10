// Package profile renders the header widget showing who is signed in.
package profile

import (
	"context"
	"html/template"
	"io"
	"net/url"

	"github.com/a-h/templ"

	"sukoonai.org/sukoon-web/internal/middleware"
	"sukoonai.org/sukoon-web/internal/session"
)

// AvatarBaseURL generates initials avatars for users without a picture.
const AvatarBaseURL = "https://api.dicebear.com/7.x/initials/svg"

var widgetTmpl = template.Must(template.New("profile").Parse(`{{if .Name -}}
<div class="flex items-center gap-2" data-profile data-profile-state="signed-in">
<img src="{{.Avatar}}" alt="" width="32" height="32" class="h-8 w-8 rounded-full" referrerpolicy="no-referrer">
<span class="hidden text-sm font-medium sm:inline truncate max-w-[10rem]" data-profile-name>{{.Name}}</span>
<form method="post" action="/sign-out" data-profile-signout>
{{- if .CSRF}}<input type="hidden" name="_csrf" value="{{.CSRF}}">{{end -}}
<button type="submit" class="text-sm text-muted-foreground hover:text-foreground">Sign out</button>
</form>
</div>
{{- else -}}
<a href="{{.SignIn}}" class="inline-flex h-9 items-center rounded-md border px-3 text-sm font-medium hover:bg-accent" data-profile data-profile-state="anonymous">Sign in</a>
{{- end}}`))

type widgetView struct {
	Name   string
	Avatar string
	CSRF   string
	SignIn string
}

// Widget renders the signed-in user's avatar, name and a sign-out form, or a "Sign in" link
// for anonymous visitors and requests without a session.
func Widget() templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		return widgetTmpl.Execute(w, view(ctx))
	})
}

func view(ctx context.Context) widgetView {
	user := session.UserFromContext(ctx)
	if user == nil {
		return widgetView{SignIn: signInHref(middleware.RequestPathFromContext(ctx))}
	}
	return widgetView{
		Name:   user.Name(),
		Avatar: AvatarURL(user),
		CSRF:   middleware.CSRFTokenFromContext(ctx),
	}
}

// AvatarURL prefers the identity provider's picture and falls back to an initials avatar.
func AvatarURL(user *session.User) string {
	if user == nil {
		return ""
	}
	if u, err := url.Parse(user.AvatarURL); err == nil && u.Scheme == "https" && u.Host != "" {
		return user.AvatarURL
	}
	q := url.Values{"seed": {user.Name()}}
	return AvatarBaseURL + "?" + q.Encode()
}

func signInHref(current string) string {
	if current == "" || current == "/" || current == session.SignInPath {
		return session.SignInPath
	}
	return session.SignInPath + "?" + url.Values{"next": {current}}.Encode()
}
