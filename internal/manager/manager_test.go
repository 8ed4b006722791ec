package manager

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/abgdnv/productmanager/internal/catalog"
	"github.com/abgdnv/productmanager/internal/catalog/client/clienttest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var discard = slog.New(slog.DiscardHandler)

var (
	watch = catalog.Product{ID: 1, Title: "Watch", Description: "Gold", Price: 500}
	ring  = catalog.Product{ID: 2, Title: "Ring", Description: "Silver", Price: 12.5}
	strap = catalog.Product{ID: 3, Title: "Watch strap", Description: "Leather", Price: 40}
	lamp  = catalog.Product{ID: 1, Title: "Desk lamp", Description: "", Price: 1234.5}
	chair = catalog.Product{ID: 1, Title: "Chair (oak)", Description: "Wood", Price: 99.99}
)

func defaultPages() map[catalog.Page][]catalog.Product {
	return map[catalog.Page][]catalog.Product{
		1: {watch, ring, strap},
		2: {lamp},
		3: {chair},
	}
}

// waitDone blocks until op has finished, failing the test after a second.
func waitDone(t *testing.T, op *Operation) {
	t.Helper()
	require.NotNil(t, op)
	select {
	case <-op.Done():
	case <-time.After(time.Second):
		t.Fatalf("operation %d (%s) did not finish", op.ID, op.Kind)
	}
}

func newManager(t *testing.T) (*Manager, *clienttest.MockPageClient) {
	t.Helper()
	mc := new(clienttest.MockPageClient)
	m := New(mc, discard)
	t.Cleanup(func() { _ = m.Close(context.Background()) })
	return m, mc
}

// newLoadedManager returns a manager whose pages hold the given collections.
func newLoadedManager(t *testing.T, pages map[catalog.Page][]catalog.Product) (*Manager, *clienttest.MockPageClient) {
	t.Helper()
	m, mc := newManager(t)
	full := make(map[catalog.Page][]catalog.Product, catalog.TotalPages)
	for _, p := range catalog.Pages() {
		full[p] = append([]catalog.Product{}, pages[p]...)
	}
	mc.ListPages(full)
	for _, op := range m.Load(context.Background()) {
		waitDone(t, op)
		require.Equal(t, StatusSucceeded, op.Status())
	}
	return m, mc
}

func ids(products []catalog.Product) []int64 {
	out := make([]int64, 0, len(products))
	for _, p := range products {
		out = append(out, p.ID)
	}
	return out
}

func Test_Manager_Load(t *testing.T) {
	// given
	m, mc := newManager(t)
	pages := defaultPages()
	gates := map[catalog.Page]chan struct{}{1: make(chan struct{}), 2: make(chan struct{}), 3: make(chan struct{})}
	for page, products := range pages {
		gate := gates[page]
		mc.On("List", mock.Anything, page).Run(func(mock.Arguments) { <-gate }).Return(products, nil).Once()
	}

	// when
	ops := m.Load(context.Background())
	require.Len(t, ops, 3)
	assert.True(t, m.Snapshot().Busy)
	for _, page := range []catalog.Page{3, 1, 2} {
		close(gates[page])
		waitDone(t, ops[page-1])
	}

	// then
	for _, page := range catalog.Pages() {
		assert.Equal(t, pages[page], m.Products(page), "page %d", page)
		assert.Equal(t, StatusSucceeded, ops[page-1].Status())
		assert.Equal(t, KindLoad, ops[page-1].Kind)
		assert.Equal(t, page, ops[page-1].Page)
	}
	assert.False(t, m.Snapshot().Busy)
	mc.AssertExpectations(t)
}

func Test_Manager_LoadFailureLeavesPageEmpty(t *testing.T) {
	// given
	m, mc := newManager(t)
	boom := errors.New("connection refused")
	mc.On("List", mock.Anything, catalog.Page(1)).Return([]catalog.Product{watch}, nil).Once()
	mc.On("List", mock.Anything, catalog.Page(2)).Return(nil, boom).Once()
	mc.On("List", mock.Anything, catalog.Page(3)).Return([]catalog.Product{chair}, nil).Once()

	// when
	ops := m.Load(context.Background())
	for _, op := range ops {
		waitDone(t, op)
	}

	// then
	assert.Equal(t, []catalog.Product{watch}, m.Products(1))
	assert.Empty(t, m.Products(2))
	assert.Equal(t, []catalog.Product{chair}, m.Products(3))
	assert.ErrorIs(t, ops[1].Err(), boom)
	assert.ErrorIs(t, ops[1].Wait(context.Background()), boom)

	loads := m.Snapshot().Loads
	require.Len(t, loads, 3)
	assert.Equal(t, LoadState{Page: 1, Status: StatusSucceeded}, loads[0])
	assert.Equal(t, LoadState{Page: 2, Status: StatusFailed, Error: "connection refused"}, loads[1])
	assert.Equal(t, LoadState{Page: 3, Status: StatusSucceeded}, loads[2])
}

func Test_Manager_Visible(t *testing.T) {
	pages := map[catalog.Page][]catalog.Product{
		1: {
			watch,
			ring,
			strap,
			{ID: 4, Title: "Mug (large)", Price: 8},
			{ID: 5, Title: "a.b", Price: 1},
			{ID: 6, Title: "ÉCLAIR", Price: 3},
		},
	}
	testCases := []struct {
		name string
		term string
		want []int64
	}{
		{name: "empty term shows everything", term: "", want: []int64{1, 2, 3, 4, 5, 6}},
		{name: "case insensitive", term: "WATCH", want: []int64{1, 3}},
		{name: "inner substring", term: "in", want: []int64{2}},
		{name: "no match", term: "sofa", want: []int64{}},
		{name: "unbalanced paren is literal", term: "(", want: []int64{4}},
		{name: "dot is literal", term: ".", want: []int64{5}},
		{name: "star is literal", term: "*", want: []int64{}},
		{name: "non-ascii folding", term: "éclair", want: []int64{6}},
		{name: "description is not searched", term: "gold", want: []int64{}},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// given
			m, _ := newLoadedManager(t, pages)
			// when
			m.SetSearchTerm(tc.term)
			// then
			assert.Equal(t, tc.want, ids(m.Visible()))
		})
	}
}

func Test_Manager_SelectAllInvariant(t *testing.T) {
	// given
	m, _ := newLoadedManager(t, defaultPages())
	check := func(step string) {
		t.Helper()
		visible := m.Visible()
		selected := make(map[int64]bool)
		for _, id := range m.Selected() {
			selected[id] = true
		}
		want := len(visible) > 0
		for _, p := range visible {
			want = want && selected[p.ID]
		}
		assert.Equal(t, want, m.SelectAllChecked(), step)
		assert.Equal(t, want, m.Snapshot().SelectAll, step)
	}

	// when / then
	check("initial")
	require.NoError(t, m.SetSelected(1, true))
	check("select one")
	require.NoError(t, m.SetSelected(2, true))
	require.NoError(t, m.SetSelected(3, true))
	check("select every row")
	assert.True(t, m.SelectAllChecked())

	m.SetSearchTerm("watch")
	check("filter to a fully selected subset")
	assert.True(t, m.SelectAllChecked())

	require.NoError(t, m.SetSelected(3, false))
	check("deselect a visible row")
	assert.False(t, m.SelectAllChecked())

	m.SetSelectAll(true)
	check("select all visible")
	assert.Equal(t, []int64{1, 3}, m.Selected(), "select all picks exactly the visible rows")

	m.SetSearchTerm("sofa")
	check("empty filter")
	assert.False(t, m.SelectAllChecked())

	m.SetSearchTerm("")
	m.SetSelectAll(false)
	check("clear")
	assert.Empty(t, m.Selected())
}

func Test_Manager_SetSelected_NotVisible(t *testing.T) {
	// given
	m, _ := newLoadedManager(t, defaultPages())
	m.SetSearchTerm("ring")

	// when
	err := m.SetSelected(1, true)

	// then
	assert.ErrorIs(t, err, ErrProductNotVisible)
	assert.Empty(t, m.Selected())
}

func Test_Manager_SelectPageResets(t *testing.T) {
	testCases := []struct {
		name    string
		prepare func(m *Manager)
		target  catalog.Page
	}{
		{
			name: "live search and selection",
			prepare: func(m *Manager) {
				m.SetSearchTerm("wat")
				_ = m.SetSelected(1, true)
			},
			target: 2,
		},
		{
			name: "triggered search on the same page",
			prepare: func(m *Manager) {
				m.SetSearchTerm("ring")
				m.TriggerSearch()
				m.SetSelectAll(true)
			},
			target: 1,
		},
		{
			name:    "nothing to reset",
			prepare: func(m *Manager) {},
			target:  3,
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// given
			m, _ := newLoadedManager(t, defaultPages())
			tc.prepare(m)

			// when
			require.NoError(t, m.SelectPage(tc.target))

			// then
			v := m.Snapshot()
			assert.Equal(t, tc.target, v.Page)
			assert.Empty(t, v.SearchTerm)
			assert.Equal(t, HighlightNone, v.SearchMode)
			assert.Empty(t, m.Selected())
			assert.False(t, v.SelectAll)
		})
	}
}

func Test_Manager_SelectPageDoesNotRefetch(t *testing.T) {
	// given
	m, mc := newLoadedManager(t, defaultPages())

	// when
	require.NoError(t, m.SelectPage(2))

	// then
	assert.Equal(t, []catalog.Product{lamp}, m.Visible())
	mc.AssertNumberOfCalls(t, "List", 3)
}

func Test_Manager_SelectPageInvalid(t *testing.T) {
	// given
	m, _ := newLoadedManager(t, defaultPages())
	m.SetSearchTerm("wat")

	// when
	err := m.SelectPage(4)

	// then
	assert.ErrorIs(t, err, catalog.ErrInvalidPage)
	assert.Equal(t, catalog.Page(1), m.CurrentPage())
	assert.Equal(t, "wat", m.Snapshot().SearchTerm)
}

func Test_Manager_NextPreviousPage(t *testing.T) {
	// given
	m, _ := newManager(t)

	// when / then
	assert.False(t, m.PreviousPage())
	assert.True(t, m.NextPage())
	assert.True(t, m.NextPage())
	assert.Equal(t, catalog.Page(3), m.CurrentPage())
	m.SetSearchTerm("x")
	assert.False(t, m.NextPage())
	assert.Equal(t, "x", m.Snapshot().SearchTerm, "no state change at the bound")
	assert.True(t, m.PreviousPage())
	assert.Equal(t, catalog.Page(2), m.CurrentPage())
	assert.Empty(t, m.Snapshot().SearchTerm)
}

func Test_Manager_AddProduct(t *testing.T) {
	// given
	m, mc := newLoadedManager(t, defaultPages())
	m.SetAddForm(Form{Title: "Watch", Description: "Gold", Price: "500"})
	created := &catalog.Product{ID: 7, Title: "Watch", Description: "Gold", Price: 500}
	mc.On("Create", mock.Anything, catalog.Page(1), catalog.ProductInput{Title: "Watch", Description: "Gold", Price: 500}).
		Return(created, nil).Once()

	// when
	op, err := m.AddProduct(context.Background())
	require.NoError(t, err)
	waitDone(t, op)

	// then
	assert.Equal(t, StatusSucceeded, op.Status())
	assert.Equal(t, KindCreate, op.Kind)
	assert.Equal(t, []catalog.Product{watch, ring, strap, *created}, m.Products(1))
	assert.Equal(t, Form{}, m.Snapshot().AddForm)
	mc.AssertExpectations(t)
}

func Test_Manager_AddProductValidation(t *testing.T) {
	testCases := []struct {
		name string
		form Form
	}{
		{name: "empty title", form: Form{Description: "Gold", Price: "500"}},
		{name: "empty price", form: Form{Title: "Watch", Description: "Gold"}},
		{name: "empty form", form: Form{}},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// given
			m, mc := newLoadedManager(t, defaultPages())
			require.NoError(t, m.SetSelected(2, true))
			m.SetSearchTerm("")
			m.SetAddForm(tc.form)
			before := m.Snapshot()

			// when
			op, err := m.AddProduct(context.Background())

			// then
			assert.Nil(t, op)
			assert.ErrorIs(t, err, ErrValidation)
			after := m.Snapshot()
			assert.Equal(t, ValidationNotice, after.Notice)
			after.Notice = ""
			assert.Equal(t, before, after, "nothing but the notice changes")
			mc.AssertNotCalled(t, "Create", mock.Anything, mock.Anything, mock.Anything)
		})
	}
}

func Test_Manager_NoticeLifecycle(t *testing.T) {
	// given
	m, _ := newLoadedManager(t, defaultPages())
	_, err := m.AddProduct(context.Background())
	require.ErrorIs(t, err, ErrValidation)

	// when / then
	assert.Equal(t, ValidationNotice, m.Notice())
	m.SetAddForm(Form{Title: "T"})
	assert.Empty(t, m.Notice(), "editing the add form dismisses the notice")

	_, err = m.AddProduct(context.Background())
	require.ErrorIs(t, err, ErrValidation)
	assert.Equal(t, ValidationNotice, m.ConsumeNotice())
	assert.Empty(t, m.Notice())
}

func Test_Manager_AddProductInvalidPrice(t *testing.T) {
	testCases := []struct {
		name  string
		price string
	}{
		{name: "not a number", price: "abc"},
		{name: "nan", price: "NaN"},
		{name: "infinity", price: "Inf"},
		{name: "trailing garbage", price: "12kg"},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// given
			m, mc := newLoadedManager(t, defaultPages())
			m.SetAddForm(Form{Title: "Watch", Price: tc.price})

			// when
			op, err := m.AddProduct(context.Background())

			// then
			assert.Nil(t, op)
			assert.ErrorIs(t, err, ErrInvalidPrice)
			assert.Empty(t, m.Notice())
			mc.AssertNotCalled(t, "Create", mock.Anything, mock.Anything, mock.Anything)
		})
	}
}

func Test_Manager_AddProductFailure(t *testing.T) {
	// given
	m, mc := newLoadedManager(t, defaultPages())
	form := Form{Title: "Watch", Description: "Gold", Price: " 500 "}
	m.SetAddForm(form)
	mc.On("Create", mock.Anything, catalog.Page(1), catalog.ProductInput{Title: "Watch", Description: "Gold", Price: 500}).
		Return(nil, errors.New("bad gateway")).Once()

	// when
	op, err := m.AddProduct(context.Background())
	require.NoError(t, err)
	waitDone(t, op)

	// then
	assert.Equal(t, StatusFailed, op.Status())
	assert.EqualError(t, op.Err(), "bad gateway")
	assert.Equal(t, []catalog.Product{watch, ring, strap}, m.Products(1))
	assert.Equal(t, form, m.Snapshot().AddForm, "the form is kept for another try")
}

func Test_Manager_ResponseAppliesToIssuingPage(t *testing.T) {
	// given
	m, mc := newLoadedManager(t, defaultPages())
	gate := make(chan struct{})
	created := &catalog.Product{ID: 9, Title: "Clock", Price: 30}
	mc.On("Create", mock.Anything, catalog.Page(1), mock.Anything).
		Run(func(mock.Arguments) { <-gate }).Return(created, nil).Once()
	m.SetAddForm(Form{Title: "Clock", Price: "30"})

	// when
	op, err := m.AddProduct(context.Background())
	require.NoError(t, err)
	require.NoError(t, m.SelectPage(2))
	close(gate)
	waitDone(t, op)

	// then
	assert.Equal(t, catalog.Page(1), op.Page)
	assert.Equal(t, []catalog.Product{watch, ring, strap, *created}, m.Products(1))
	assert.Equal(t, []catalog.Product{lamp}, m.Products(2))
	assert.Equal(t, []catalog.Product{lamp}, m.Visible())
}

func Test_Manager_OperationOutlivesCallerContext(t *testing.T) {
	// given
	m, mc := newLoadedManager(t, defaultPages())
	ctx, cancel := context.WithCancel(context.Background())
	gate := make(chan struct{})
	mc.On("Delete", mock.MatchedBy(func(ctx context.Context) bool { return ctx.Err() == nil }), catalog.Page(1), int64(2)).
		Run(func(mock.Arguments) { <-gate }).Return(nil).Once()

	// when
	op := m.DeleteProduct(ctx, 2)
	cancel()
	close(gate)
	waitDone(t, op)

	// then
	assert.Equal(t, StatusSucceeded, op.Status())
	assert.Equal(t, []int64{1, 3}, ids(m.Products(1)))
}

func Test_Manager_EditRoundTrip(t *testing.T) {
	// given
	m, mc := newLoadedManager(t, defaultPages())
	require.NoError(t, m.StartEdit(2))
	v := m.Snapshot()
	require.NotNil(t, v.EditingID)
	assert.Equal(t, int64(2), *v.EditingID)
	assert.Equal(t, Form{Title: "Ring", Description: "Silver", Price: "12.5"}, v.EditForm)

	require.NoError(t, m.SetEditForm(Form{Title: "Ring", Description: "Platinum", Price: "99"}))
	updated := &catalog.Product{ID: 2, Title: "Ring", Description: "Platinum", Price: 99}
	mc.On("Update", mock.Anything, catalog.Page(1), int64(2), catalog.ProductInput{Title: "Ring", Description: "Platinum", Price: 99}).
		Return(updated, nil).Once()

	// when
	op, err := m.SaveEdit(context.Background(), 2)
	require.NoError(t, err)
	waitDone(t, op)

	// then
	assert.Equal(t, StatusSucceeded, op.Status())
	assert.Equal(t, int64(2), op.ProductID)
	assert.Equal(t, []catalog.Product{watch, *updated, strap}, m.Products(1), "order is preserved")
	_, editing := m.EditingID()
	assert.False(t, editing)
	mc.AssertExpectations(t)
}

func Test_Manager_StartEditSeedsPrice(t *testing.T) {
	testCases := []struct {
		price float64
		want  string
	}{
		{price: 500, want: "500"},
		{price: 12.5, want: "12.5"},
		{price: 0, want: "0"},
		{price: 0.1, want: "0.1"},
		{price: 1234567.891, want: "1234567.891"},
	}
	for _, tc := range testCases {
		t.Run(tc.want, func(t *testing.T) {
			// given
			m, _ := newLoadedManager(t, map[catalog.Page][]catalog.Product{1: {{ID: 1, Title: "X", Price: tc.price}}})
			// when
			require.NoError(t, m.StartEdit(1))
			// then
			assert.Equal(t, tc.want, m.Snapshot().EditForm.Price)
		})
	}
}

func Test_Manager_StartEditUnknownProduct(t *testing.T) {
	// given
	m, _ := newLoadedManager(t, defaultPages())

	// when
	err := m.StartEdit(42)

	// then
	assert.ErrorIs(t, err, catalog.ErrProductNotFound)
	_, editing := m.EditingID()
	assert.False(t, editing)
}

func Test_Manager_StartAnotherEditDiscardsForm(t *testing.T) {
	// given
	m, _ := newLoadedManager(t, defaultPages())
	require.NoError(t, m.StartEdit(1))
	require.NoError(t, m.SetEditForm(Form{Title: "unsaved", Price: "1"}))

	// when
	require.NoError(t, m.StartEdit(3))

	// then
	v := m.Snapshot()
	assert.Equal(t, int64(3), *v.EditingID)
	assert.Equal(t, Form{Title: "Watch strap", Description: "Leather", Price: "40"}, v.EditForm)
}

func Test_Manager_EditModeIsScopedToPage(t *testing.T) {
	// given
	m, mc := newLoadedManager(t, defaultPages())
	require.NoError(t, m.StartEdit(1))
	require.NoError(t, m.SetEditForm(Form{Title: "Watch", Description: "Gold", Price: "500"}))

	// when
	require.NoError(t, m.SelectPage(2))

	// then
	_, editing := m.EditingID()
	assert.False(t, editing, "page 2 has its own product 1")
	v := m.Snapshot()
	assert.Nil(t, v.EditingID)
	assert.Equal(t, Form{}, v.EditForm)
	require.Len(t, v.Rows, 1)
	assert.False(t, v.Rows[0].Editing)
	_, err := m.SaveEdit(context.Background(), 1)
	assert.ErrorIs(t, err, ErrNotEditing)
	assert.ErrorIs(t, m.SetEditForm(Form{Title: "x"}), ErrNotEditing)
	mc.AssertNotCalled(t, "Update", mock.Anything, mock.Anything, mock.Anything, mock.Anything)

	// and when the first page is shown again the edit resumes
	require.NoError(t, m.SelectPage(1))
	id, editing := m.EditingID()
	assert.True(t, editing)
	assert.Equal(t, int64(1), id)
	assert.Equal(t, Form{Title: "Watch", Description: "Gold", Price: "500"}, m.Snapshot().EditForm)
}

func Test_Manager_SelectedIsNeverNil(t *testing.T) {
	// given
	m, _ := newLoadedManager(t, defaultPages())
	require.NoError(t, m.SetSelected(2, true))

	// when
	require.NoError(t, m.SetSelected(2, false))

	// then
	assert.NotNil(t, m.Selected())
	assert.Equal(t, []int64{}, m.Selected())
}

func Test_Manager_SaveEditErrors(t *testing.T) {
	t.Run("not editing", func(t *testing.T) {
		m, mc := newLoadedManager(t, defaultPages())
		_, err := m.SaveEdit(context.Background(), 1)
		assert.ErrorIs(t, err, ErrNotEditing)
		assert.ErrorIs(t, m.SetEditForm(Form{}), ErrNotEditing)
		mc.AssertNotCalled(t, "Update", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("editing another row", func(t *testing.T) {
		m, _ := newLoadedManager(t, defaultPages())
		require.NoError(t, m.StartEdit(2))
		_, err := m.SaveEdit(context.Background(), 1)
		assert.ErrorIs(t, err, ErrNotEditing)
	})

	t.Run("invalid price", func(t *testing.T) {
		m, mc := newLoadedManager(t, defaultPages())
		require.NoError(t, m.StartEdit(1))
		require.NoError(t, m.SetEditForm(Form{Title: "Watch", Price: "cheap"}))
		_, err := m.SaveEdit(context.Background(), 1)
		assert.ErrorIs(t, err, ErrInvalidPrice)
		mc.AssertNotCalled(t, "Update", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})
}

func Test_Manager_SaveEditBlankPriceIsZero(t *testing.T) {
	// given
	m, mc := newLoadedManager(t, defaultPages())
	require.NoError(t, m.StartEdit(1))
	require.NoError(t, m.SetEditForm(Form{Title: "Watch", Description: "Gold", Price: ""}))
	mc.On("Update", mock.Anything, catalog.Page(1), int64(1), catalog.ProductInput{Title: "Watch", Description: "Gold", Price: 0}).
		Return(&catalog.Product{ID: 1, Title: "Watch", Description: "Gold"}, nil).Once()

	// when
	op, err := m.SaveEdit(context.Background(), 1)
	require.NoError(t, err)
	waitDone(t, op)

	// then
	assert.Equal(t, float64(0), m.Products(1)[0].Price)
	mc.AssertExpectations(t)
}

func Test_Manager_SaveEditFailureKeepsEditMode(t *testing.T) {
	// given
	m, mc := newLoadedManager(t, defaultPages())
	require.NoError(t, m.StartEdit(1))
	form := Form{Title: "Watch v2", Description: "Gold", Price: "600"}
	require.NoError(t, m.SetEditForm(form))
	mc.On("Update", mock.Anything, catalog.Page(1), int64(1), mock.Anything).Return(nil, catalog.ErrProductNotFound).Once()

	// when
	op, err := m.SaveEdit(context.Background(), 1)
	require.NoError(t, err)
	waitDone(t, op)

	// then
	assert.Equal(t, StatusFailed, op.Status())
	assert.ErrorIs(t, op.Err(), catalog.ErrProductNotFound)
	assert.Equal(t, []catalog.Product{watch, ring, strap}, m.Products(1))
	id, editing := m.EditingID()
	assert.True(t, editing)
	assert.Equal(t, int64(1), id)
	assert.Equal(t, form, m.Snapshot().EditForm)
}

func Test_Manager_SaveEditKeepsNewerEdit(t *testing.T) {
	// given
	m, mc := newLoadedManager(t, defaultPages())
	gate := make(chan struct{})
	mc.On("Update", mock.Anything, catalog.Page(1), int64(1), mock.Anything).
		Run(func(mock.Arguments) { <-gate }).
		Return(&catalog.Product{ID: 1, Title: "Watch", Description: "Gold", Price: 550}, nil).Once()
	require.NoError(t, m.StartEdit(1))
	require.NoError(t, m.SetEditForm(Form{Title: "Watch", Description: "Gold", Price: "550"}))

	// when
	op, err := m.SaveEdit(context.Background(), 1)
	require.NoError(t, err)
	require.NoError(t, m.StartEdit(2))
	close(gate)
	waitDone(t, op)

	// then
	assert.Equal(t, float64(550), m.Products(1)[0].Price)
	id, editing := m.EditingID()
	assert.True(t, editing)
	assert.Equal(t, int64(2), id)
	assert.Equal(t, "Ring", m.Snapshot().EditForm.Title)
}

func Test_Manager_CancelEdit(t *testing.T) {
	// given
	m, mc := newLoadedManager(t, defaultPages())
	require.NoError(t, m.StartEdit(1))
	require.NoError(t, m.SetEditForm(Form{Title: "changed"}))

	// when
	m.CancelEdit()

	// then
	v := m.Snapshot()
	assert.Nil(t, v.EditingID)
	assert.Equal(t, Form{}, v.EditForm)
	assert.Equal(t, []catalog.Product{watch, ring, strap}, m.Products(1))
	mc.AssertNotCalled(t, "Update", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func Test_Manager_DeleteProduct(t *testing.T) {
	testCases := []struct {
		name         string
		selected     []int64
		deleteErr    error
		wantProducts []int64
		wantSelected []int64
		wantStatus   Status
	}{
		{
			name:         "selected product",
			selected:     []int64{1, 2},
			wantProducts: []int64{1, 3},
			wantSelected: []int64{1},
			wantStatus:   StatusSucceeded,
		},
		{
			name:         "unselected product",
			selected:     []int64{3},
			wantProducts: []int64{1, 3},
			wantSelected: []int64{3},
			wantStatus:   StatusSucceeded,
		},
		{
			name:         "failed delete keeps the product",
			selected:     []int64{2},
			deleteErr:    errors.New("service unavailable"),
			wantProducts: []int64{1, 2, 3},
			wantSelected: []int64{},
			wantStatus:   StatusFailed,
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// given
			m, mc := newLoadedManager(t, defaultPages())
			for _, id := range tc.selected {
				require.NoError(t, m.SetSelected(id, true))
			}
			gate := make(chan struct{})
			mc.On("Delete", mock.Anything, catalog.Page(1), int64(2)).
				Run(func(mock.Arguments) { <-gate }).Return(tc.deleteErr).Once()

			// when
			op := m.DeleteProduct(context.Background(), 2)

			// then
			assert.Equal(t, tc.wantSelected, m.Selected(), "selection is updated before the response")
			assert.Equal(t, []int64{1, 2, 3}, ids(m.Products(1)), "collection waits for the response")
			close(gate)
			waitDone(t, op)
			assert.Equal(t, tc.wantStatus, op.Status())
			assert.Equal(t, tc.wantProducts, ids(m.Products(1)))
			mc.AssertExpectations(t)
		})
	}
}

func Test_Manager_Snapshot(t *testing.T) {
	// given
	m, _ := newLoadedManager(t, defaultPages())
	require.NoError(t, m.SetSelected(1, true))

	t.Run("no search", func(t *testing.T) {
		v := m.Snapshot()
		assert.Equal(t, catalog.Page(1), v.Page)
		assert.Equal(t, 3, v.TotalPages)
		assert.False(t, v.HasPrevious())
		assert.True(t, v.HasNext())
		require.Len(t, v.Rows, 3)
		assert.Equal(t, Row{
			Product:   watch,
			Price:     "$500",
			Selected:  true,
			Highlight: HighlightNone,
			Segments:  []Segment{{Text: "Watch"}},
		}, v.Rows[0])
		assert.Equal(t, "$12.5", v.Rows[1].Price)
		assert.Len(t, v.Operations, 3)
	})

	t.Run("live search", func(t *testing.T) {
		m.SetSearchTerm("WAT")
		v := m.Snapshot()
		assert.Equal(t, HighlightLive, v.SearchMode)
		require.Len(t, v.Rows, 2)
		assert.Equal(t, HighlightLive, v.Rows[0].Highlight)
		assert.Equal(t, []Segment{{Text: "Wat", Match: true}, {Text: "ch"}}, v.Rows[0].Segments)
		assert.Equal(t, []Segment{{Text: "Wat", Match: true}, {Text: "ch strap"}}, v.Rows[1].Segments)
	})

	t.Run("triggered search with a row in edit mode", func(t *testing.T) {
		m.TriggerSearch()
		require.NoError(t, m.StartEdit(3))
		v := m.Snapshot()
		assert.Equal(t, HighlightTriggered, v.SearchMode)
		assert.Equal(t, HighlightTriggered, v.Rows[0].Highlight)
		assert.True(t, v.Rows[1].Editing)
		assert.Equal(t, HighlightNone, v.Rows[1].Highlight)
		assert.Equal(t, []Segment{{Text: "Watch strap"}}, v.Rows[1].Segments)
	})

	t.Run("typing again returns to live mode", func(t *testing.T) {
		m.SetSearchTerm("WATC")
		assert.Equal(t, HighlightLive, m.Snapshot().SearchMode)
	})
}

func Test_Manager_OperationHistoryIsBounded(t *testing.T) {
	// given
	m, mc := newLoadedManager(t, defaultPages())
	mc.On("Delete", mock.Anything, catalog.Page(1), int64(99)).Return(catalog.ErrProductNotFound)

	// when
	var last *Operation
	for range historySize + 5 {
		last = m.DeleteProduct(context.Background(), 99)
		waitDone(t, last)
	}

	// then
	ops := m.Snapshot().Operations
	require.Len(t, ops, historySize)
	assert.Equal(t, last.ID, ops[0].ID, "newest first")
	assert.Equal(t, StatusFailed, ops[0].Status)
	assert.NotNil(t, ops[0].FinishedAt)
	assert.Contains(t, ops[0].Error, "product not found")
}

func Test_Manager_Close(t *testing.T) {
	// given
	m, mc := newLoadedManager(t, defaultPages())
	started := make(chan struct{})
	mc.On("Delete", mock.Anything, catalog.Page(1), int64(1)).
		Run(func(args mock.Arguments) {
			close(started)
			<-args.Get(0).(context.Context).Done()
		}).Return(context.Canceled).Once()
	inFlight := m.DeleteProduct(context.Background(), 1)
	<-started

	// when
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, m.Close(ctx))

	// then
	assert.Equal(t, StatusFailed, inFlight.Status())
	assert.ErrorIs(t, inFlight.Err(), context.Canceled)

	after := m.DeleteProduct(context.Background(), 2)
	waitDone(t, after)
	assert.ErrorIs(t, after.Err(), ErrClosed)
	for _, op := range m.Load(context.Background()) {
		assert.ErrorIs(t, op.Err(), ErrClosed)
	}
	mc.AssertNotCalled(t, "Delete", mock.Anything, catalog.Page(1), int64(2))
}

func Test_Operation_WaitHonoursContext(t *testing.T) {
	op := newOperation(1, KindLoad, 1, 0, time.Now())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, op.Wait(ctx), context.Canceled)
	assert.Equal(t, StatusPending, op.Status())

	op.finish(nil, time.Now())
	op.finish(errors.New("ignored"), time.Now())
	assert.Equal(t, StatusSucceeded, op.Status())
	assert.NoError(t, op.Wait(context.Background()))
}
