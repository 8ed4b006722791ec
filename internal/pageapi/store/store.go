// Package store provides the storage of the reference page API.
package store

import (
	"context"

	"github.com/abgdnv/productmanager/internal/catalog"
)

// PageStore keeps one ordered product collection per page.
// Ids are assigned per page and collections keep insertion order.
type PageStore interface {
	// List returns the products of page in insertion order, never nil.
	List(ctx context.Context, page catalog.Page) ([]catalog.Product, error)

	// Get returns a single product.
	// Returns catalog.ErrProductNotFound if page has no product with the given id.
	Get(ctx context.Context, page catalog.Page, id int64) (*catalog.Product, error)

	// Create appends a product to page with the next free id of that page.
	Create(ctx context.Context, page catalog.Page, in catalog.ProductInput) (*catalog.Product, error)

	// Insert appends p keeping its id. Used to seed the store.
	// Returns ErrDuplicateID if page already holds that id.
	Insert(ctx context.Context, page catalog.Page, p catalog.Product) error

	// Update replaces the fields of a product in place.
	// Returns catalog.ErrProductNotFound if page has no product with the given id.
	Update(ctx context.Context, page catalog.Page, id int64, in catalog.ProductInput) (*catalog.Product, error)

	// Delete removes a product.
	// Returns catalog.ErrProductNotFound if page has no product with the given id.
	Delete(ctx context.Context, page catalog.Page, id int64) error

	// Count returns the number of products of page.
	Count(ctx context.Context, page catalog.Page) (int, error)
}
