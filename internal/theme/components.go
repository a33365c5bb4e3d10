package theme

import (
	"context"
	"encoding/json"
	"fmt"
	"html/template"
	"io"

	"github.com/a-h/templ"

	"sukoonai.org/sukoon-web/internal/middleware"
)

// SetPath is where the toggle posts the new preference.
const SetPath = "/theme"

// ChangeEvent is dispatched (via HX-Trigger) after a preference change so the page can re-apply it.
const ChangeEvent = "sukoon:theme"

var toggleTmpl = template.Must(template.New("toggle").Parse(`<form method="post" action="{{.Action}}" hx-post="{{.Action}}" hx-target="this" hx-swap="outerHTML" class="inline-flex" data-theme-toggle data-theme-mode="{{.Mode}}">
{{- if .CSRF}}<input type="hidden" name="_csrf" value="{{.CSRF}}">{{end -}}
<input type="hidden" name="theme" value="{{.Next}}">
{{- if .Back}}<input type="hidden" name="next" value="{{.Back}}">{{end -}}
<button type="submit" class="inline-flex h-9 w-9 items-center justify-center rounded-md hover:bg-accent" aria-label="Switch to {{.Next}} theme" title="Theme: {{.Mode}}"><span aria-hidden="true">{{.Icon}}</span><span class="sr-only">Current theme: {{.Mode}}</span></button>
</form>`))

type toggleView struct {
	Action string
	Mode   Mode
	Next   Mode
	Icon   string
	CSRF   string
	Back   string
}

var icons = map[Mode]string{
	Light:  "☀",
	Dark:   "☾",
	System: "◐",
}

// Toggle renders the control that cycles the stored preference. It reads the state from ctx.
func (p *Provider) Toggle() templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		state := Current(ctx)
		return toggleTmpl.Execute(w, toggleView{
			Action: SetPath,
			Mode:   state.Mode,
			Next:   state.Mode.Next(p.opts.EnableSystem),
			Icon:   icons[state.Mode],
			CSRF:   middleware.CSRFTokenFromContext(ctx),
			Back:   middleware.RequestPathFromContext(ctx),
		})
	})
}

const bootstrapJS = `(function(){
var d=document.documentElement,attr=%s,sys=%t,noTx=%t,q="(prefers-color-scheme: dark)";
function resolve(m){if(!m||m==="system"){return sys&&window.matchMedia(q).matches?"dark":"light"}return m}
function apply(m){var r=resolve(m),s;
if(noTx&&document.body){s=document.createElement("style");s.appendChild(document.createTextNode("*,*::before,*::after{transition:none!important}"));document.head.appendChild(s)}
if(attr==="class"){d.classList.remove("light","dark");d.classList.add(r)}else{d.setAttribute(attr,r)}
d.style.colorScheme=r;d.setAttribute("data-theme-mode",m||"system");
if(s){window.getComputedStyle(document.body);setTimeout(function(){document.head.removeChild(s)},1)}}
try{apply(d.getAttribute("data-theme-mode"))}catch(e){}
document.addEventListener(%s,function(e){apply(e.detail&&e.detail.mode)});
if(sys){window.matchMedia(q).addEventListener("change",function(){if(d.getAttribute("data-theme-mode")==="system"){apply("system")}})}
})();`

// Script renders the inline bootstrap that applies the appearance before first paint and
// re-applies it after a toggle or an operating-system change.
func (p *Provider) Script() templ.Component {
	return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		attr, err := json.Marshal(p.opts.Attribute)
		if err != nil {
			return err
		}
		event, err := json.Marshal(ChangeEvent)
		if err != nil {
			return err
		}
		if _, err := io.WriteString(w, "<script data-theme-bootstrap>"); err != nil {
			return err
		}
		if _, err := fmt.Fprintf(w, bootstrapJS, string(attr), p.opts.EnableSystem, p.opts.DisableTransitionOnChange, string(event)); err != nil {
			return err
		}
		_, err = io.WriteString(w, "</script>")
		return err
	})
}
