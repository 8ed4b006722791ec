// Package rest serves the page collections over the json-server style REST contract.
package rest

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/abgdnv/productmanager/internal/catalog"
	"github.com/abgdnv/productmanager/internal/pageapi/store"
	"github.com/abgdnv/productmanager/pkg/web"
	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
)

// productRequest is the body of create and update requests.
type productRequest struct {
	Title       string   `json:"title" validate:"max=200"`
	Description string   `json:"description" validate:"max=2000"`
	Price       *float64 `json:"price" validate:"required,gte=0"`
}

func (p productRequest) input() catalog.ProductInput {
	return catalog.ProductInput{Title: p.Title, Description: p.Description, Price: *p.Price}
}

type Handler struct {
	store    store.PageStore
	validate *validator.Validate
	logger   *slog.Logger
}

// NewHandler creates a new Handler serving every page of s.
func NewHandler(s store.PageStore, logger *slog.Logger) *Handler {
	return &Handler{
		store:    s,
		validate: validator.New(),
		logger:   logger.With("component", "rest"),
	}
}

// RegisterRoutes registers /page{N}Products for every page.
func (h *Handler) RegisterRoutes(r *chi.Mux) {
	for _, page := range catalog.Pages() {
		r.Route("/"+page.Resource(), func(r chi.Router) {
			r.Get("/", h.List(page))
			r.Post("/", h.Create(page))

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", h.Get(page))
				r.Put("/", h.Update(page))
				r.Delete("/", h.Delete(page))
			})
		})
	}

	r.Get("/healthz", h.HealthCheck)
}

// List returns the products of page in insertion order.
func (h *Handler) List(page catalog.Page) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		mLogger := h.pageLogger(page)
		products, err := h.store.List(r.Context(), page)
		if err != nil {
			mLogger.ErrorContext(r.Context(), "Error retrieving product list", "error", err)
			web.RespondError(w, mLogger, http.StatusInternalServerError, "Failed to fetch products")
			return
		}
		mLogger.DebugContext(r.Context(), "Successfully retrieved product list", "count", len(products))
		web.RespondJSON(w, mLogger, http.StatusOK, products)
	}
}

// Get returns a single product of page.
func (h *Handler) Get(page catalog.Page) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		mLogger := h.pageLogger(page)
		id, ok := web.ParseID(w, r, mLogger)
		if !ok {
			return
		}
		found, err := h.store.Get(r.Context(), page, id)
		if err != nil {
			h.respondStoreError(w, r, mLogger, id, "retrieve", err)
			return
		}
		web.RespondJSON(w, mLogger, http.StatusOK, found)
	}
}

// Create appends a product to page and returns it with its assigned id.
func (h *Handler) Create(page catalog.Page) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		mLogger := h.pageLogger(page)
		req, ok := h.decode(w, r, mLogger)
		if !ok {
			return
		}
		created, err := h.store.Create(r.Context(), page, req.input())
		if err != nil {
			mLogger.ErrorContext(r.Context(), "Error creating product", "error", err)
			web.RespondError(w, mLogger, http.StatusInternalServerError, "Failed to create product")
			return
		}
		mLogger.InfoContext(r.Context(), "Product created successfully", "ID", created.ID, "Title", created.Title)
		web.RespondJSON(w, mLogger, http.StatusCreated, created)
	}
}

// Update replaces the fields of a product of page.
func (h *Handler) Update(page catalog.Page) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		mLogger := h.pageLogger(page)
		id, ok := web.ParseID(w, r, mLogger)
		if !ok {
			return
		}
		req, ok := h.decode(w, r, mLogger)
		if !ok {
			return
		}
		updated, err := h.store.Update(r.Context(), page, id, req.input())
		if err != nil {
			h.respondStoreError(w, r, mLogger, id, "update", err)
			return
		}
		mLogger.InfoContext(r.Context(), "Product updated successfully", "ID", updated.ID, "Title", updated.Title)
		web.RespondJSON(w, mLogger, http.StatusOK, updated)
	}
}

// Delete removes a product of page.
func (h *Handler) Delete(page catalog.Page) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		mLogger := h.pageLogger(page)
		id, ok := web.ParseID(w, r, mLogger)
		if !ok {
			return
		}
		if err := h.store.Delete(r.Context(), page, id); err != nil {
			h.respondStoreError(w, r, mLogger, id, "delete", err)
			return
		}
		mLogger.InfoContext(r.Context(), "Product deleted successfully", "ID", id)
		w.WriteHeader(http.StatusNoContent)
	}
}

// HealthCheck is a simple health check endpoint.
func (h *Handler) HealthCheck(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, mLogger *slog.Logger) (productRequest, bool) {
	var req productRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		mLogger.ErrorContext(r.Context(), "Error decoding request body", "error", err)
		web.RespondError(w, mLogger, http.StatusBadRequest, "Invalid request body")
		return req, false
	}
	if err := h.validate.Struct(req); err != nil {
		web.RespondValidationError(w, r, mLogger, err)
		return req, false
	}
	return req, true
}

func (h *Handler) respondStoreError(w http.ResponseWriter, r *http.Request, mLogger *slog.Logger, id int64, action string, err error) {
	if errors.Is(err, catalog.ErrProductNotFound) {
		mLogger.WarnContext(r.Context(), "Product not found", "ID", id)
		web.RespondError(w, mLogger, http.StatusNotFound, fmt.Sprintf("Product with ID %d not found", id))
		return
	}
	mLogger.ErrorContext(r.Context(), "Error accessing product", "ID", id, "action", action, "error", err)
	web.RespondError(w, mLogger, http.StatusInternalServerError, fmt.Sprintf("Failed to %s product with ID %d", action, id))
}

// pageLogger tags records with the page. The request id is added by the context handler.
func (h *Handler) pageLogger(page catalog.Page) *slog.Logger {
	return h.logger.With("page", int(page))
}
