package store

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/abgdnv/productmanager/internal/catalog"
)

// inMemory implements PageStore with one slice per page.
type inMemory struct {
	mu    sync.RWMutex
	pages map[catalog.Page][]catalog.Product
}

// NewInMemoryStore creates an empty PageStore held in memory.
func NewInMemoryStore() PageStore {
	pages := make(map[catalog.Page][]catalog.Product, catalog.TotalPages)
	for _, p := range catalog.Pages() {
		pages[p] = []catalog.Product{}
	}
	return &inMemory{pages: pages}
}

func (s *inMemory) List(_ context.Context, page catalog.Page) ([]catalog.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.pages[page]), nil
}

func (s *inMemory) Get(_ context.Context, page catalog.Page, id int64) (*catalog.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	idx := s.indexLocked(page, id)
	if idx < 0 {
		return nil, notFound(page, id)
	}
	p := s.pages[page][idx]
	return &p, nil
}

// Create assigns one more than the highest id of the page.
func (s *inMemory) Create(_ context.Context, page catalog.Page, in catalog.ProductInput) (*catalog.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var maxID int64
	for _, p := range s.pages[page] {
		maxID = max(maxID, p.ID)
	}
	product := catalog.Product{
		ID:          maxID + 1,
		Title:       in.Title,
		Description: in.Description,
		Price:       in.Price,
	}
	s.pages[page] = append(s.pages[page], product)
	return &product, nil
}

func (s *inMemory) Insert(_ context.Context, page catalog.Page, p catalog.Product) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.indexLocked(page, p.ID) >= 0 {
		return fmt.Errorf("%w: %d on page %d", ErrDuplicateID, p.ID, page)
	}
	s.pages[page] = append(s.pages[page], p)
	return nil
}

func (s *inMemory) Update(_ context.Context, page catalog.Page, id int64, in catalog.ProductInput) (*catalog.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	idx := s.indexLocked(page, id)
	if idx < 0 {
		return nil, notFound(page, id)
	}
	product := catalog.Product{ID: id, Title: in.Title, Description: in.Description, Price: in.Price}
	s.pages[page][idx] = product
	return &product, nil
}

func (s *inMemory) Delete(_ context.Context, page catalog.Page, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	idx := s.indexLocked(page, id)
	if idx < 0 {
		return notFound(page, id)
	}
	s.pages[page] = slices.Delete(s.pages[page], idx, idx+1)
	return nil
}

func (s *inMemory) Count(_ context.Context, page catalog.Page) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.pages[page]), nil
}

func (s *inMemory) indexLocked(page catalog.Page, id int64) int {
	return slices.IndexFunc(s.pages[page], func(p catalog.Product) bool { return p.ID == id })
}

func notFound(page catalog.Page, id int64) error {
	return fmt.Errorf("%w: %d on page %d", catalog.ErrProductNotFound, id, page)
}
