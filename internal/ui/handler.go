// Package ui serves the product manager as a server-rendered page and as JSON.
package ui

import (
	"bytes"
	"context"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"

	"github.com/abgdnv/productmanager/internal/catalog"
	"github.com/abgdnv/productmanager/internal/manager"
	"github.com/abgdnv/productmanager/pkg/web"
	"github.com/go-chi/chi/v5"
)

//go:embed templates/*.html
var templateFS embed.FS

// refreshSeconds is how often the page reloads itself while an operation is pending.
const refreshSeconds = 1

// ViewModel is the part of manager.Manager the handlers drive.
type ViewModel interface {
	Snapshot() manager.View
	ConsumeNotice() string
	Load(ctx context.Context) []*manager.Operation
	SelectPage(p catalog.Page) error
	NextPage() bool
	PreviousPage() bool
	SetSearchTerm(term string)
	TriggerSearch()
	SetSelected(id int64, checked bool) error
	SetSelectAll(checked bool)
	SetAddForm(form manager.Form)
	AddProduct(ctx context.Context) (*manager.Operation, error)
	StartEdit(id int64) error
	EditingID() (int64, bool)
	SetEditForm(form manager.Form) error
	SaveEdit(ctx context.Context, id int64) (*manager.Operation, error)
	CancelEdit()
	DeleteProduct(ctx context.Context, id int64) *manager.Operation
}

var _ ViewModel = (*manager.Manager)(nil)

type Handler struct {
	vm     ViewModel
	logger *slog.Logger
	tmpl   *template.Template
}

type page struct {
	View           manager.View
	Notice         string
	Pages          []catalog.Page
	RefreshSeconds int
}

// NewHandler parses the embedded templates. It panics if they are malformed.
func NewHandler(vm ViewModel, logger *slog.Logger) *Handler {
	tmpl := template.Must(template.New("view.html").Funcs(template.FuncMap{
		"highlightClass": highlightClass,
	}).ParseFS(templateFS, "templates/view.html"))
	return &Handler{
		vm:     vm,
		logger: logger.With("component", "ui"),
		tmpl:   tmpl,
	}
}

// RegisterRoutes registers the UI routes on the provided router.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.Index)
	r.Get("/api/v1/view", h.ViewJSON)
	r.Get("/healthz", h.Health)

	r.Post("/reload", h.Reload)
	r.Post("/search", h.Search)

	r.Post("/pages/next", h.NextPage)
	r.Post("/pages/prev", h.PreviousPage)
	r.Post("/pages/{page}", h.SelectPage)

	r.Post("/selection/all", h.SelectAll)
	r.Post("/selection/{id}", h.Select)

	r.Post("/products", h.AddProduct)
	r.Post("/products/{id}/edit", h.StartEdit)
	r.Post("/products/{id}/save", h.SaveEdit)
	r.Post("/products/{id}/cancel", h.CancelEdit)
	r.Post("/products/{id}/delete", h.DeleteProduct)
}

// highlightClass maps a row highlight mode to its CSS class.
func highlightClass(mode manager.HighlightMode) string {
	switch mode {
	case manager.HighlightLive:
		return "plain-highlight"
	case manager.HighlightTriggered:
		return "highlight"
	default:
		return ""
	}
}

// Index renders the view. A validation notice is shown once.
func (h *Handler) Index(w http.ResponseWriter, r *http.Request) {
	data := page{
		View:           h.vm.Snapshot(),
		Pages:          catalog.Pages(),
		RefreshSeconds: refreshSeconds,
	}
	data.Notice = h.vm.ConsumeNotice()

	var buf bytes.Buffer
	if err := h.tmpl.Execute(&buf, data); err != nil {
		h.logger.ErrorContext(r.Context(), "Failed to render view", "error", err)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	_, _ = buf.WriteTo(w)
}

func (h *Handler) ViewJSON(w http.ResponseWriter, r *http.Request) {
	web.RespondJSON(w, h.logger, http.StatusOK, h.vm.Snapshot())
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	web.RespondJSON(w, h.logger, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) Reload(w http.ResponseWriter, r *http.Request) {
	h.vm.Load(r.Context())
	h.redirect(w, r)
}

// Search stores the term. mode=submit switches to triggered highlighting.
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	h.vm.SetSearchTerm(r.FormValue("term"))
	if r.FormValue("mode") == "submit" {
		h.vm.TriggerSearch()
	}
	h.redirect(w, r)
}

func (h *Handler) NextPage(w http.ResponseWriter, r *http.Request) {
	h.vm.NextPage()
	h.redirect(w, r)
}

func (h *Handler) PreviousPage(w http.ResponseWriter, r *http.Request) {
	h.vm.PreviousPage()
	h.redirect(w, r)
}

func (h *Handler) SelectPage(w http.ResponseWriter, r *http.Request) {
	n, ok := web.ParsePathRange(w, r, h.logger, "page", 1, catalog.TotalPages)
	if !ok {
		return
	}
	if err := h.vm.SelectPage(catalog.Page(n)); err != nil {
		h.respondErr(w, r, err)
		return
	}
	h.redirect(w, r)
}

func (h *Handler) SelectAll(w http.ResponseWriter, r *http.Request) {
	h.vm.SetSelectAll(isChecked(r))
	h.redirect(w, r)
}

func (h *Handler) Select(w http.ResponseWriter, r *http.Request) {
	id, ok := web.ParseID(w, r, h.logger)
	if !ok {
		return
	}
	if err := h.vm.SetSelected(id, isChecked(r)); err != nil {
		h.respondErr(w, r, err)
		return
	}
	h.redirect(w, r)
}

// AddProduct stores the submitted add form and adds it. A rejected form is reported
// through the notice on the redirected page.
func (h *Handler) AddProduct(w http.ResponseWriter, r *http.Request) {
	h.vm.SetAddForm(formFrom(r))
	if _, err := h.vm.AddProduct(r.Context()); err != nil && !errors.Is(err, manager.ErrValidation) {
		h.respondErr(w, r, err)
		return
	}
	h.redirect(w, r)
}

func (h *Handler) StartEdit(w http.ResponseWriter, r *http.Request) {
	id, ok := web.ParseID(w, r, h.logger)
	if !ok {
		return
	}
	if err := h.vm.StartEdit(id); err != nil {
		h.respondErr(w, r, err)
		return
	}
	h.redirect(w, r)
}

func (h *Handler) SaveEdit(w http.ResponseWriter, r *http.Request) {
	id, ok := web.ParseID(w, r, h.logger)
	if !ok {
		return
	}
	// the form belongs to the row in edit mode only
	if editing, ok := h.vm.EditingID(); !ok || editing != id {
		h.respondErr(w, r, fmt.Errorf("%w: %d", manager.ErrNotEditing, id))
		return
	}
	if err := h.vm.SetEditForm(formFrom(r)); err != nil {
		h.respondErr(w, r, err)
		return
	}
	if _, err := h.vm.SaveEdit(r.Context(), id); err != nil {
		h.respondErr(w, r, err)
		return
	}
	h.redirect(w, r)
}

func (h *Handler) CancelEdit(w http.ResponseWriter, r *http.Request) {
	h.vm.CancelEdit()
	h.redirect(w, r)
}

func (h *Handler) DeleteProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := web.ParseID(w, r, h.logger)
	if !ok {
		return
	}
	h.vm.DeleteProduct(r.Context(), id)
	h.redirect(w, r)
}

func (h *Handler) redirect(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// respondErr maps manager errors to HTTP statuses.
func (h *Handler) respondErr(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, catalog.ErrInvalidPage),
		errors.Is(err, manager.ErrInvalidPrice),
		errors.Is(err, manager.ErrProductNotVisible):
		status = http.StatusBadRequest
	case errors.Is(err, catalog.ErrProductNotFound):
		status = http.StatusNotFound
	case errors.Is(err, manager.ErrNotEditing):
		status = http.StatusConflict
	}
	if status == http.StatusInternalServerError {
		h.logger.ErrorContext(r.Context(), "Request failed", "error", err)
		web.RespondError(w, h.logger, status, "Internal server error")
		return
	}
	h.logger.WarnContext(r.Context(), "Request rejected", "status", status, "error", err)
	web.RespondError(w, h.logger, status, err.Error())
}

func formFrom(r *http.Request) manager.Form {
	return manager.Form{
		Title:       r.FormValue("title"),
		Description: r.FormValue("description"),
		Price:       r.FormValue("price"),
	}
}

func isChecked(r *http.Request) bool {
	switch r.FormValue("checked") {
	case "on", "true", "1":
		return true
	default:
		return false
	}
}
