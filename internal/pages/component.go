package pages

import (
	"context"
	"html/template"
	"io"

	"github.com/a-h/templ"
)

var pageTmpl = template.Must(template.New("page").Parse(`<article class="container mx-auto max-w-3xl px-4 py-10" data-page="{{.Slug}}">
{{- with .Banner}}
<aside class="mb-6 rounded-lg border p-4{{if eq .Variant "urgent"}} border-red-300 bg-red-50 dark:border-red-800 dark:bg-red-950{{end}}" role="note" data-page-banner>
{{- if .Title}}<p class="font-semibold">{{.Title}}</p>{{end}}
{{- if .Message}}<p class="mt-1 text-sm">{{.Message}}</p>{{end}}
{{- if and .LinkText .LinkURL}}<a class="mt-2 inline-block text-sm font-medium underline" href="{{.LinkURL}}">{{.LinkText}}</a>{{end}}
</aside>
{{- end}}
<h1 class="text-3xl font-bold tracking-tight">{{.Title}}</h1>
{{- if .Summary}}
<p class="mt-2 text-lg text-muted-foreground">{{.Summary}}</p>
{{- end}}
<div class="prose dark:prose-invert mt-8">{{.Body}}</div>
</article>`))

// Component renders the page as main-slot content.
func (p Page) Component() templ.Component {
	return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		return pageTmpl.Execute(w, p)
	})
}
