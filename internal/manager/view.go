package manager

import (
	"slices"

	"github.com/abgdnv/productmanager/internal/catalog"
)

// LoadState is the status of the latest load of a page.
// Status is empty until the page has been requested.
type LoadState struct {
	Page   catalog.Page `json:"page"`
	Status Status       `json:"status,omitempty"`
	Error  string       `json:"error,omitempty"`
}

// Row is one visible product as rendered.
type Row struct {
	Product   catalog.Product `json:"product"`
	Price     string          `json:"price"`
	Selected  bool            `json:"selected"`
	Editing   bool            `json:"editing"`
	Highlight HighlightMode   `json:"highlight"`
	Segments  []Segment       `json:"segments"`
}

// View is a copy of everything needed to render the manager.
type View struct {
	Page       catalog.Page    `json:"page"`
	TotalPages int             `json:"total_pages"`
	Rows       []Row           `json:"rows"`
	SelectAll  bool            `json:"select_all"`
	SearchTerm string          `json:"search_term"`
	SearchMode HighlightMode   `json:"search_mode"`
	AddForm    Form            `json:"add_form"`
	EditForm   Form            `json:"edit_form"`
	EditingID  *int64          `json:"editing_id"`
	Notice     string          `json:"notice,omitempty"`
	Loads      []LoadState     `json:"loads"`
	Operations []OperationView `json:"operations"`
	Busy       bool            `json:"busy"`
}

// HasPrevious reports whether a page precedes the current one.
func (v View) HasPrevious() bool {
	return v.Page > 1
}

// HasNext reports whether a page follows the current one.
func (v View) HasNext() bool {
	return int(v.Page) < v.TotalPages
}

// Snapshot returns the current view. Operations are listed newest first.
func (m *Manager) Snapshot() View {
	m.mu.Lock()
	defer m.mu.Unlock()

	visible := m.visibleLocked()
	v := View{
		Page:       m.current,
		TotalPages: catalog.TotalPages,
		Rows:       make([]Row, 0, len(visible)),
		SelectAll:  m.selectAllLocked(visible),
		SearchTerm: m.searchTerm,
		SearchMode: m.searchModeLocked(),
		AddForm:    m.addForm,
		Notice:     m.notice,
		Loads:      make([]LoadState, 0, catalog.TotalPages),
		Operations: make([]OperationView, 0, len(m.history)),
		Busy:       m.pending > 0,
	}
	if m.editingID != nil && m.editPage == m.current {
		id := *m.editingID
		v.EditingID = &id
		v.EditForm = m.editForm
	}
	for _, p := range visible {
		_, selected := m.selected[p.ID]
		mode := m.rowHighlightLocked(p.ID)
		row := Row{
			Product:   p,
			Price:     FormatPrice(p.Price),
			Selected:  selected,
			Editing:   m.editingLocked(p.ID),
			Highlight: mode,
		}
		if mode == HighlightNone {
			row.Segments = Highlight(p.Title, "")
		} else {
			row.Segments = Highlight(p.Title, m.searchTerm)
		}
		v.Rows = append(v.Rows, row)
	}
	for _, page := range catalog.Pages() {
		state := LoadState{Page: page}
		if op, ok := m.loads[page]; ok {
			ov := op.view()
			state.Status = ov.Status
			state.Error = ov.Error
		}
		v.Loads = append(v.Loads, state)
	}
	for _, op := range slices.Backward(m.history) {
		v.Operations = append(v.Operations, op.view())
	}
	return v
}

func (m *Manager) searchModeLocked() HighlightMode {
	switch {
	case m.searchTerm == "":
		return HighlightNone
	case m.triggered:
		return HighlightTriggered
	default:
		return HighlightLive
	}
}

// rowHighlightLocked suppresses highlighting on the row in edit mode.
func (m *Manager) rowHighlightLocked(id int64) HighlightMode {
	if m.editingLocked(id) {
		return HighlightNone
	}
	return m.searchModeLocked()
}
