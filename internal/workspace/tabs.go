package workspace

import (
	"errors"

	"github.com/google/uuid"

	"restdeck/internal/core"
)

// ErrBusy is returned when a send or save is attempted on a tab that
// already has one in flight. The second attempt is rejected, not
// queued.
var ErrBusy = errors.New("tab already has an operation in flight")

// Tab is an open editing session for one request. Tabs are ephemeral
// client state with locally generated ids; they are never persisted.
type Tab struct {
	ID       string
	Name     string
	Request  core.Request
	Response *core.Response
	Loading  bool
	Saved    bool
}

// RequestPatch is a partial update to a tab's draft. Nil fields leave
// the draft untouched; SetBody and SetCollectionID distinguish
// "clear" from "leave alone".
type RequestPatch struct {
	Name            *string
	Method          *string
	URL             *string
	Headers         map[string]string
	PathParams      map[string]string
	Body            core.Body
	SetBody         bool
	CollectionID    *string
	SetCollectionID bool
}

// TabManager owns the tab list and the active-tab pointer.
type TabManager struct {
	tabs     []*Tab
	activeID string
}

// NewTabManager creates an empty tab manager.
func NewTabManager() *TabManager {
	return &TabManager{}
}

// Tabs returns the open tabs in order.
func (m *TabManager) Tabs() []*Tab {
	return m.tabs
}

// ActiveTab returns the active tab, or nil when no tab is open.
func (m *TabManager) ActiveTab() *Tab {
	return m.find(m.activeID)
}

// ActiveID returns the active tab id, or "" when none.
func (m *TabManager) ActiveID() string {
	return m.activeID
}

func (m *TabManager) find(id string) *Tab {
	for _, tab := range m.tabs {
		if tab.ID == id {
			return tab
		}
	}
	return nil
}

func (m *TabManager) indexOf(id string) int {
	for i, tab := range m.tabs {
		if tab.ID == id {
			return i
		}
	}
	return -1
}

// FindByRequestID returns the tab showing a persisted request, or nil.
func (m *TabManager) FindByRequestID(requestID string) *Tab {
	if requestID == "" {
		return nil
	}
	for _, tab := range m.tabs {
		if tab.Request.ID == requestID {
			return tab
		}
	}
	return nil
}

// AddTab opens a new tab seeded from a request draft and makes it
// active. A tab opened from a persisted request starts saved; a blank
// draft starts unsaved.
func (m *TabManager) AddTab(seed core.Request) *Tab {
	tab := &Tab{
		ID:      uuid.New().String(),
		Name:    seed.Name,
		Request: seed.Clone(),
		Saved:   seed.Saved(),
	}
	m.tabs = append(m.tabs, tab)
	m.activeID = tab.ID
	return tab
}

// LoadRequest opens a persisted request, switching to an existing tab
// when one already shows the same request id instead of duplicating it.
func (m *TabManager) LoadRequest(req core.Request) *Tab {
	if existing := m.FindByRequestID(req.ID); existing != nil {
		m.activeID = existing.ID
		return existing
	}
	return m.AddTab(req)
}

// SelectTab makes a tab active. Unknown ids are ignored.
func (m *TabManager) SelectTab(id string) {
	if m.find(id) != nil {
		m.activeID = id
	}
}

// CloseTab removes a tab. When the active tab closes, the tab at the
// same index in the remaining list becomes active, clamped to the last
// tab; closing the only tab leaves no tab active. Closing a non-active
// tab never changes the active tab.
func (m *TabManager) CloseTab(id string) {
	idx := m.indexOf(id)
	if idx < 0 {
		return
	}
	wasActive := m.activeID == id

	m.tabs = append(m.tabs[:idx], m.tabs[idx+1:]...)
	if !wasActive {
		return
	}
	if len(m.tabs) == 0 {
		m.activeID = ""
		return
	}
	if idx > len(m.tabs)-1 {
		idx = len(m.tabs) - 1
	}
	m.activeID = m.tabs[idx].ID
}

// CloseWhere removes every tab matching the predicate in one pass,
// applying the same closest-neighbor active selection as CloseTab.
func (m *TabManager) CloseWhere(match func(*Tab) bool) {
	activeIdx := m.indexOf(m.activeID)
	activeClosed := false

	kept := m.tabs[:0]
	for i, tab := range m.tabs {
		if match(tab) {
			if i == activeIdx {
				activeClosed = true
			}
			continue
		}
		kept = append(kept, tab)
	}
	m.tabs = kept

	if !activeClosed {
		return
	}
	if len(m.tabs) == 0 {
		m.activeID = ""
		return
	}
	idx := activeIdx
	if idx > len(m.tabs)-1 {
		idx = len(m.tabs) - 1
	}
	m.activeID = m.tabs[idx].ID
}

// UpdateRequest merges a patch into a tab's draft. Any patch marks the
// tab unsaved, even when the values are unchanged. A name patch also
// updates the tab's display name.
func (m *TabManager) UpdateRequest(tabID string, patch RequestPatch) {
	tab := m.find(tabID)
	if tab == nil {
		return
	}

	if patch.Name != nil {
		tab.Request.Name = *patch.Name
		tab.Name = *patch.Name
	}
	if patch.Method != nil {
		tab.Request.Method = *patch.Method
	}
	if patch.URL != nil {
		tab.Request.URL = *patch.URL
	}
	if patch.Headers != nil {
		tab.Request.Headers = patch.Headers
	}
	if patch.PathParams != nil {
		tab.Request.PathParams = patch.PathParams
	}
	if patch.SetBody {
		tab.Request.Body = patch.Body
	}
	if patch.SetCollectionID {
		tab.Request.CollectionID = patch.CollectionID
	}
	tab.Saved = false
}

// MarkSaved replaces a tab's draft with the authoritative record the
// backend returned and marks it saved.
func (m *TabManager) MarkSaved(tabID string, record core.Request) {
	tab := m.find(tabID)
	if tab == nil {
		return
	}
	tab.Request = record.Clone()
	tab.Name = record.Name
	tab.Saved = true
}

// StartFlight marks a tab as having an outstanding send or save.
// A tab already in flight rejects the second attempt with ErrBusy.
func (m *TabManager) StartFlight(tabID string) error {
	tab := m.find(tabID)
	if tab == nil {
		return nil
	}
	if tab.Loading {
		return ErrBusy
	}
	tab.Loading = true
	return nil
}

// EndFlight clears a tab's in-flight flag. It is called on both the
// success and failure paths so a tab never shows a perpetual spinner.
func (m *TabManager) EndFlight(tabID string) {
	if tab := m.find(tabID); tab != nil {
		tab.Loading = false
	}
}

// clone deep-copies the manager for snapshot/restore.
func (m *TabManager) clone() *TabManager {
	c := &TabManager{activeID: m.activeID}
	c.tabs = make([]*Tab, len(m.tabs))
	for i, tab := range m.tabs {
		copied := *tab
		copied.Request = tab.Request.Clone()
		if tab.Response != nil {
			resp := *tab.Response
			copied.Response = &resp
		}
		c.tabs[i] = &copied
	}
	return c
}
