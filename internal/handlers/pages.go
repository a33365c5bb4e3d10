// Package handlers serves the routes whose content fills the shell's main slot.
package handlers

import (
	"context"
	"errors"
	"html/template"
	"io"
	"net/http"

	"github.com/a-h/templ"
	"go.uber.org/zap"

	"sukoonai.org/sukoon-web/internal/observability"
	"sukoonai.org/sukoon-web/internal/pages"
	"sukoonai.org/sukoon-web/internal/shell"
)

// Pages renders content pages inside the shell.
type Pages struct {
	shell   *shell.Shell
	library *pages.Library
}

// NewPages wires the page handlers.
func NewPages(sh *shell.Shell, library *pages.Library) *Pages {
	if sh == nil || library == nil {
		panic("handlers: shell and page library are required")
	}
	return &Pages{shell: sh, library: library}
}

// Page serves the content page matching the request path.
func (h *Pages) Page(w http.ResponseWriter, r *http.Request) {
	page, err := h.library.ForPath(r.Context(), r.URL.Path)
	switch {
	case errors.Is(err, pages.ErrNotFound), err == nil && page.Slug == pages.NotFoundSlug:
		h.NotFound(w, r)
		return
	case err != nil:
		h.failure(w, r, err)
		return
	}
	h.shell.Serve(w, r, http.StatusOK, page.Component(), shell.Page{
		Title:       page.Title,
		Description: page.Description,
	})
}

// NotFound renders the not-found page with a 404 status.
func (h *Pages) NotFound(w http.ResponseWriter, r *http.Request) {
	page, err := h.library.Get(r.Context(), pages.NotFoundSlug)
	if err != nil {
		observability.FromContext(r.Context()).Warn("not-found page unavailable", zap.Error(err))
		page = pages.Page{Slug: pages.NotFoundSlug, Title: "Page not found"}
	}
	h.shell.Serve(w, r, http.StatusNotFound, page.Component(), shell.Page{Title: page.Title, NoIndex: true})
}

var errorTmpl = template.Must(template.New("error").Parse(`<section class="container mx-auto max-w-3xl px-4 py-16 text-center" data-error>
<h1 class="text-2xl font-semibold">Something went wrong</h1>
<p class="mt-2 text-muted-foreground">Please try again in a moment.</p>
</section>`))

func (h *Pages) failure(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, context.Canceled) {
		return
	}
	observability.FromContext(r.Context()).Error("page load failed", zap.String("path", r.URL.Path), zap.Error(err))
	content := templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		return errorTmpl.Execute(w, nil)
	})
	h.shell.Serve(w, r, http.StatusInternalServerError, content, shell.Page{Title: "Error", NoIndex: true})
}
