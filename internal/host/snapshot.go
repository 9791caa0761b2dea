package host

import (
	"errors"
	"fmt"
)

// Snapshot is the persisted form of a document.
type Snapshot struct {
	Title      string      `json:"title"`
	Episode    string      `json:"episode"`
	Version    uint64      `json:"version"`
	NextID     ElementID   `json:"nextId"`
	ActiveView ElementID   `json:"activeView"`
	OpenViews  []ElementID `json:"openViews,omitempty"`
	Selection  []ElementID `json:"selection,omitempty"`
	Elements   []*Element  `json:"elements"`
}

// Snapshot deep-copies the committed document state.
func (d *Document) Snapshot() (*Snapshot, error) {
	if d.tx != nil {
		return nil, fmt.Errorf("snapshot: %w (%q)", ErrTransactionOpen, d.tx.name)
	}
	s := &Snapshot{
		Title:      d.title,
		Episode:    d.episode,
		Version:    d.version,
		NextID:     d.nextID,
		ActiveView: d.activeView,
		OpenViews:  cloneSlice(d.openViews),
		Selection:  cloneSlice(d.selection),
		Elements:   make([]*Element, 0, len(d.order)),
	}
	for _, id := range d.order {
		s.Elements = append(s.Elements, d.elements[id].Clone())
	}
	return s, nil
}

// Restore rebuilds a document from a snapshot.
func Restore(s *Snapshot) (*Document, error) {
	if s == nil {
		return nil, errors.New("restore: nil snapshot")
	}
	d := NewDocument(s.Title)
	if s.Episode != "" {
		d.episode = s.Episode
	}
	d.version = s.Version
	d.activeView = s.ActiveView
	if d.activeView == 0 {
		d.activeView = InvalidElementID
	}
	d.openViews = cloneSlice(s.OpenViews)
	d.selection = cloneSlice(s.Selection)

	maxID := ElementID(0)
	for _, e := range s.Elements {
		if e == nil || !e.ID.Valid() {
			return nil, errors.New("restore: element without id")
		}
		if _, dup := d.elements[e.ID]; dup {
			return nil, fmt.Errorf("restore: duplicate element id %d", e.ID)
		}
		c := e.Clone()
		d.elements[c.ID] = c
		d.order = append(d.order, c.ID)
		maxID = max(maxID, c.ID)
	}
	d.nextID = max(s.NextID, maxID+1)

	if d.activeView.Valid() {
		if v, ok := d.elements[d.activeView]; !ok || v.View == nil {
			return nil, fmt.Errorf("restore: active view %d is not a view", d.activeView)
		}
	}
	return d, nil
}
