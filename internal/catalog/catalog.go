// Package catalog holds the product records shared by the manager, its page API client and the reference page API.
package catalog

import (
	"errors"
	"fmt"
	"strconv"
)

// TotalPages is the number of independently addressed product collections.
const TotalPages = 3

var (
	ErrInvalidPage     = errors.New("invalid page")
	ErrProductNotFound = errors.New("product not found")
)

// Product is a record of one page collection. Its id is unique within that page only.
type Product struct {
	ID          int64   `json:"id"`
	Title       string  `json:"title"`
	Description string  `json:"description"`
	Price       float64 `json:"price"`
}

// ProductInput is the body of create and update requests.
type ProductInput struct {
	Title       string  `json:"title"`
	Description string  `json:"description"`
	Price       float64 `json:"price"`
}

// Page is one of the fixed collections, numbered from 1 to TotalPages.
type Page int

// Pages returns every page in order.
func Pages() []Page {
	pages := make([]Page, 0, TotalPages)
	for p := Page(1); p <= TotalPages; p++ {
		pages = append(pages, p)
	}
	return pages
}

// Valid reports whether p names an existing page.
func (p Page) Valid() bool {
	return p >= 1 && p <= TotalPages
}

// Resource returns the collection name the page API serves the page under.
func (p Page) Resource() string {
	return fmt.Sprintf("page%dProducts", int(p))
}

// ParsePage converts s into a Page.
func ParsePage(s string) (Page, error) {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidPage, s)
	}
	p := Page(n)
	if !p.Valid() {
		return 0, fmt.Errorf("%w: %d", ErrInvalidPage, n)
	}
	return p, nil
}

// PageFromResource is the inverse of Page.Resource.
func PageFromResource(resource string) (Page, error) {
	var n int
	if _, err := fmt.Sscanf(resource, "page%dProducts", &n); err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidPage, resource)
	}
	p := Page(n)
	if !p.Valid() || p.Resource() != resource {
		return 0, fmt.Errorf("%w: %q", ErrInvalidPage, resource)
	}
	return p, nil
}
