package theme

import (
	"encoding/json"
	"net/http"
	"net/url"
	"strings"

	"go.uber.org/zap"

	"sukoonai.org/sukoon-web/internal/middleware"
	"sukoonai.org/sukoon-web/internal/observability"
)

// SetHandler stores the posted preference (form field "theme"). htmx requests receive the
// re-rendered toggle plus a change event; plain form posts are redirected back.
func (p *Provider) SetHandler(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	mode, ok := ParseMode(r.PostForm.Get("theme"))
	if !ok || (mode == System && !p.opts.EnableSystem) {
		http.Error(w, "unknown theme", http.StatusBadRequest)
		return
	}

	http.SetCookie(w, p.cookie(mode))
	state := State{Mode: mode, Stored: true, Resolved: p.resolve(mode, r.Header.Get(ClientHintHeader))}
	ctx := WithState(r.Context(), state)
	observability.FromContext(ctx).Debug("theme preference stored", zap.String("mode", string(mode)))

	if !middleware.IsHTMX(ctx) {
		http.Redirect(w, r, backTo(r), http.StatusSeeOther)
		return
	}

	trigger, err := json.Marshal(map[string]any{ChangeEvent: map[string]string{"mode": string(mode)}})
	if err == nil {
		w.Header().Set("HX-Trigger", string(trigger))
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := p.Toggle().Render(ctx, w); err != nil {
		observability.FromContext(ctx).Error("theme toggle render failed", zap.Error(err))
	}
}

// backTo picks the page the visitor came from: the posted "next" field, else a same-host Referer.
func backTo(r *http.Request) string {
	if next := localPath(r.PostForm.Get("next")); next != "" {
		return next
	}
	if ref, err := url.Parse(r.Referer()); err == nil && ref.Host == r.Host {
		if p := localPath(ref.RequestURI()); p != "" {
			return p
		}
	}
	return "/"
}

func localPath(target string) string {
	target = strings.TrimSpace(target)
	if !strings.HasPrefix(target, "/") || strings.HasPrefix(target, "//") || strings.Contains(target, `\`) {
		return ""
	}
	return target
}
