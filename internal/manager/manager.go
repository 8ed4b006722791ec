// Package manager holds the product manager view: the three page collections, the
// current page with its search and selection, the add and edit forms, and the
// page API operations that keep the collections in step with the server.
package manager

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/abgdnv/productmanager/internal/catalog"
	"github.com/abgdnv/productmanager/internal/catalog/client"
	"github.com/go-playground/validator/v10"
	"go.opentelemetry.io/otel"
)

var (
	ErrValidation        = errors.New("title and price required")
	ErrProductNotVisible = errors.New("product not visible")
	ErrNotEditing        = errors.New("product is not being edited")
	ErrClosed            = errors.New("manager closed")
)

// ValidationNotice is shown to the user when an add is rejected.
const ValidationNotice = "Title and Price required"

// historySize bounds the operations kept for display.
const historySize = 20

// Form holds the text of the add or the edit form as typed.
type Form struct {
	Title       string `json:"title" validate:"required"`
	Description string `json:"description"`
	Price       string `json:"price" validate:"required"`
}

// Manager is safe for concurrent use. Page API calls run on their own goroutines
// and their results are applied under the same lock as user actions.
type Manager struct {
	client   client.PageClient
	logger   *slog.Logger
	validate *validator.Validate
	metrics  operationMetrics

	baseCtx context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup

	mu         sync.Mutex
	closed     bool
	pages      map[catalog.Page][]catalog.Product
	loads      map[catalog.Page]*Operation
	current    catalog.Page
	searchTerm string
	triggered  bool
	selected   map[int64]struct{}
	addForm    Form
	editForm   Form
	editingID  *int64
	editPage   catalog.Page
	notice     string
	history    []*Operation
	pending    int
	nextOpID   uint64
}

// New creates a Manager showing page 1 with empty collections. Call Load to fetch them.
func New(pageClient client.PageClient, logger *slog.Logger) *Manager {
	baseCtx, cancel := context.WithCancel(context.Background())
	pages := make(map[catalog.Page][]catalog.Product, catalog.TotalPages)
	for _, p := range catalog.Pages() {
		pages[p] = []catalog.Product{}
	}
	return &Manager{
		client:   pageClient,
		logger:   logger.With("component", "manager"),
		validate: validator.New(),
		metrics:  newOperationMetrics(otel.GetMeterProvider()),
		baseCtx:  baseCtx,
		cancel:   cancel,
		pages:    pages,
		loads:    make(map[catalog.Page]*Operation, catalog.TotalPages),
		current:  1,
		selected: make(map[int64]struct{}),
	}
}

// Load fetches every page. Each successful response replaces its page collection;
// a failed one leaves the collection as it was.
func (m *Manager) Load(ctx context.Context) []*Operation {
	m.mu.Lock()
	defer m.mu.Unlock()
	ops := make([]*Operation, 0, catalog.TotalPages)
	for _, page := range catalog.Pages() {
		op := m.startLocked(ctx, KindLoad, page, 0, func(ctx context.Context) (func(), error) {
			products, err := m.client.List(ctx, page)
			if err != nil {
				return nil, err
			}
			return func() { m.pages[page] = products }, nil
		})
		m.loads[page] = op
		ops = append(ops, op)
	}
	return ops
}

// SelectPage shows page p and clears the search term, the triggered flag and the selection.
// Nothing is refetched.
func (m *Manager) SelectPage(p catalog.Page) error {
	if !p.Valid() {
		return fmt.Errorf("%w: %d", catalog.ErrInvalidPage, p)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.selectPageLocked(p)
	return nil
}

// NextPage moves one page forward. It reports false on the last page.
func (m *Manager) NextPage() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current >= catalog.TotalPages {
		return false
	}
	m.selectPageLocked(m.current + 1)
	return true
}

// PreviousPage moves one page back. It reports false on the first page.
func (m *Manager) PreviousPage() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current <= 1 {
		return false
	}
	m.selectPageLocked(m.current - 1)
	return true
}

func (m *Manager) selectPageLocked(p catalog.Page) {
	m.current = p
	m.searchTerm = ""
	m.triggered = false
	clear(m.selected)
}

// CurrentPage returns the page on display.
func (m *Manager) CurrentPage() catalog.Page {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current
}

// Products returns a copy of the collection of page p.
func (m *Manager) Products(p catalog.Page) []catalog.Product {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.pages[p])
}

// Visible returns the products of the current page whose title contains the search term.
func (m *Manager) Visible() []catalog.Product {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.visibleLocked()
}

func (m *Manager) visibleLocked() []catalog.Product {
	visible := make([]catalog.Product, 0, len(m.pages[m.current]))
	for _, p := range m.pages[m.current] {
		if ContainsFold(p.Title, m.searchTerm) {
			visible = append(visible, p)
		}
	}
	return visible
}

// SetSearchTerm replaces the search term and returns to live highlighting.
func (m *Manager) SetSearchTerm(term string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.searchTerm = term
	m.triggered = false
}

// TriggerSearch switches to triggered highlighting of the current term.
func (m *Manager) TriggerSearch() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.triggered = true
}

// SetSelected adds or removes a visible product from the selection.
func (m *Manager) SetSelected(id int64, checked bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !slices.ContainsFunc(m.visibleLocked(), func(p catalog.Product) bool { return p.ID == id }) {
		return fmt.Errorf("%w: %d", ErrProductNotVisible, id)
	}
	if checked {
		m.selected[id] = struct{}{}
	} else {
		delete(m.selected, id)
	}
	return nil
}

// SetSelectAll selects exactly the visible products, or clears the selection.
func (m *Manager) SetSelectAll(checked bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	clear(m.selected)
	if !checked {
		return
	}
	for _, p := range m.visibleLocked() {
		m.selected[p.ID] = struct{}{}
	}
}

// SelectAllChecked reports whether the visible list is non-empty and fully selected.
func (m *Manager) SelectAllChecked() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.selectAllLocked(m.visibleLocked())
}

func (m *Manager) selectAllLocked(visible []catalog.Product) bool {
	if len(visible) == 0 {
		return false
	}
	for _, p := range visible {
		if _, ok := m.selected[p.ID]; !ok {
			return false
		}
	}
	return true
}

// Selected returns the selected ids in ascending order, never nil.
func (m *Manager) Selected() []int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	ids := slices.Sorted(maps.Keys(m.selected))
	if ids == nil {
		return []int64{}
	}
	return ids
}

// SetAddForm replaces the add form and dismisses the validation notice.
func (m *Manager) SetAddForm(form Form) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.addForm = form
	m.notice = ""
}

// AddProduct creates the product of the add form on the current page.
// A form without title or price sets the validation notice and returns ErrValidation
// without contacting the page API.
func (m *Manager) AddProduct(ctx context.Context) (*Operation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.validate.Struct(m.addForm); err != nil {
		var validationErrors validator.ValidationErrors
		if !errors.As(err, &validationErrors) {
			return nil, fmt.Errorf("failed to validate add form: %w", err)
		}
		m.notice = ValidationNotice
		fields := make([]string, 0, len(validationErrors))
		for _, fieldErr := range validationErrors {
			fields = append(fields, fieldErr.Field())
		}
		m.logger.InfoContext(ctx, "Add form rejected", "fields", fields)
		return nil, fmt.Errorf("%w: missing %v", ErrValidation, fields)
	}
	price, err := parsePrice(m.addForm.Price)
	if err != nil {
		return nil, err
	}
	in := catalog.ProductInput{Title: m.addForm.Title, Description: m.addForm.Description, Price: price}
	page := m.current
	op := m.startLocked(ctx, KindCreate, page, 0, func(ctx context.Context) (func(), error) {
		created, err := m.client.Create(ctx, page, in)
		if err != nil {
			return nil, err
		}
		return func() {
			m.pages[page] = append(m.pages[page], *created)
			m.addForm = Form{}
			m.notice = ""
		}, nil
	})
	return op, nil
}

// StartEdit puts a product of the current page in edit mode, discarding any other edit in progress.
func (m *Manager) StartEdit(id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	idx := slices.IndexFunc(m.pages[m.current], func(p catalog.Product) bool { return p.ID == id })
	if idx < 0 {
		return fmt.Errorf("%w: %d on page %d", catalog.ErrProductNotFound, id, m.current)
	}
	p := m.pages[m.current][idx]
	m.editingID = &id
	m.editPage = m.current
	m.editForm = Form{Title: p.Title, Description: p.Description, Price: priceText(p.Price)}
	return nil
}

// SetEditForm replaces the edit form of the product in edit mode.
func (m *Manager) SetEditForm(form Form) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.editingID == nil || m.editPage != m.current {
		return ErrNotEditing
	}
	m.editForm = form
	return nil
}

// SaveEdit sends the edit form of product id to the current page.
// On success the product is replaced in place and edit mode ends if id is still being edited.
// A blank price is sent as zero.
func (m *Manager) SaveEdit(ctx context.Context, id int64) (*Operation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.editingLocked(id) {
		return nil, fmt.Errorf("%w: %d", ErrNotEditing, id)
	}
	price, err := parsePrice(m.editForm.Price)
	if err != nil {
		return nil, err
	}
	in := catalog.ProductInput{Title: m.editForm.Title, Description: m.editForm.Description, Price: price}
	page := m.current
	op := m.startLocked(ctx, KindUpdate, page, id, func(ctx context.Context) (func(), error) {
		updated, err := m.client.Update(ctx, page, id, in)
		if err != nil {
			return nil, err
		}
		return func() {
			if idx := slices.IndexFunc(m.pages[page], func(p catalog.Product) bool { return p.ID == id }); idx >= 0 {
				m.pages[page][idx] = *updated
			}
			if m.editingID != nil && *m.editingID == id && m.editPage == page {
				m.exitEditLocked()
			}
		}, nil
	})
	return op, nil
}

// CancelEdit leaves edit mode and discards the edit form.
func (m *Manager) CancelEdit() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.exitEditLocked()
}

func (m *Manager) exitEditLocked() {
	m.editingID = nil
	m.editPage = 0
	m.editForm = Form{}
}

// editingLocked reports whether product id of the current page is in edit mode.
// Ids repeat across pages, so an edit started on another page does not count.
func (m *Manager) editingLocked(id int64) bool {
	return m.editingID != nil && *m.editingID == id && m.editPage == m.current
}

// EditingID returns the id of the product of the current page in edit mode.
// An edit started on another page stays pending until that page is shown again.
func (m *Manager) EditingID() (int64, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.editingID == nil || m.editPage != m.current {
		return 0, false
	}
	return *m.editingID, true
}

// DeleteProduct deselects id at once and deletes it from the current page.
// The product leaves the collection only when the page API confirms the delete.
func (m *Manager) DeleteProduct(ctx context.Context, id int64) *Operation {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.selected, id)
	page := m.current
	return m.startLocked(ctx, KindDelete, page, id, func(ctx context.Context) (func(), error) {
		if err := m.client.Delete(ctx, page, id); err != nil {
			return nil, err
		}
		return func() {
			m.pages[page] = slices.DeleteFunc(m.pages[page], func(p catalog.Product) bool { return p.ID == id })
		}, nil
	})
}

// Notice returns the pending validation notice, if any.
func (m *Manager) Notice() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.notice
}

// ConsumeNotice returns the validation notice and dismisses it.
func (m *Manager) ConsumeNotice() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	notice := m.notice
	m.notice = ""
	return notice
}

// Close cancels the operations in flight and waits for them to finish.
// Operations issued after Close fail with ErrClosed.
func (m *Manager) Close(ctx context.Context) error {
	m.mu.Lock()
	m.closed = true
	m.mu.Unlock()
	m.cancel()

	done := make(chan struct{})
	go func() {
		m.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("waiting for operations: %w", ctx.Err())
	}
}

// startLocked registers an operation and runs call on its own goroutine.
// When call succeeds, the function it returns is applied under the lock.
// The operation keeps the values of ctx but not its cancellation: it outlives the
// request that issued it and is only cancelled by Close. m.mu must be held.
func (m *Manager) startLocked(ctx context.Context, kind Kind, page catalog.Page, productID int64, call func(context.Context) (func(), error)) *Operation {
	m.nextOpID++
	op := newOperation(m.nextOpID, kind, page, productID, time.Now())
	m.history = append(m.history, op)
	if len(m.history) > historySize {
		m.history = slices.Clone(m.history[len(m.history)-historySize:])
	}
	if m.closed {
		op.finish(ErrClosed, time.Now())
		return op
	}

	m.pending++
	opCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	stop := context.AfterFunc(m.baseCtx, cancel)
	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		defer cancel()
		defer stop()

		start := time.Now()
		apply, err := call(opCtx)

		m.mu.Lock()
		defer m.mu.Unlock()
		m.pending--
		if err == nil && apply != nil {
			apply()
		}
		op.finish(err, time.Now())
		m.logOutcome(opCtx, op, err)
		m.metrics.record(opCtx, op, time.Since(start))
	}()
	return op
}

func (m *Manager) logOutcome(ctx context.Context, op *Operation, err error) {
	attrs := []any{"operation_id", op.ID, "kind", op.Kind, "page", int(op.Page)}
	if op.ProductID != 0 {
		attrs = append(attrs, "product_id", op.ProductID)
	}
	if err != nil {
		m.logger.WarnContext(ctx, "Operation failed", append(attrs, "error", err)...)
		return
	}
	m.logger.DebugContext(ctx, "Operation succeeded", attrs...)
}
