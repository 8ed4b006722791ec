// Package clienttest provides a testify mock of client.PageClient.
package clienttest

import (
	"context"

	"github.com/abgdnv/productmanager/internal/catalog"
	"github.com/abgdnv/productmanager/internal/catalog/client"
	"github.com/stretchr/testify/mock"
)

type MockPageClient struct {
	mock.Mock
}

var _ client.PageClient = (*MockPageClient)(nil)

func (m *MockPageClient) List(ctx context.Context, page catalog.Page) ([]catalog.Product, error) {
	args := m.Called(ctx, page)

	var products []catalog.Product
	if args.Get(0) != nil {
		products = args.Get(0).([]catalog.Product)
	}
	return products, args.Error(1)
}

func (m *MockPageClient) Create(ctx context.Context, page catalog.Page, in catalog.ProductInput) (*catalog.Product, error) {
	args := m.Called(ctx, page, in)

	var product *catalog.Product
	if args.Get(0) != nil {
		product = args.Get(0).(*catalog.Product)
	}
	return product, args.Error(1)
}

func (m *MockPageClient) Update(ctx context.Context, page catalog.Page, id int64, in catalog.ProductInput) (*catalog.Product, error) {
	args := m.Called(ctx, page, id, in)

	var product *catalog.Product
	if args.Get(0) != nil {
		product = args.Get(0).(*catalog.Product)
	}
	return product, args.Error(1)
}

func (m *MockPageClient) Delete(ctx context.Context, page catalog.Page, id int64) error {
	args := m.Called(ctx, page, id)
	return args.Error(0)
}

// ListPages expects one List call per page returning the given collections.
func (m *MockPageClient) ListPages(pages map[catalog.Page][]catalog.Product) {
	for page, products := range pages {
		m.On("List", mock.Anything, page).Return(products, nil).Once()
	}
}
