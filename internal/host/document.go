package host

import (
	"errors"
	"fmt"
	"sort"

	"github.com/google/uuid"
)

// Host errors.
var (
	ErrNoTransaction    = errors.New("modification outside of a transaction")
	ErrTransactionOpen  = errors.New("another transaction is already open")
	ErrTransactionState = errors.New("transaction is not started")
	ErrElementNotFound  = errors.New("element not found")
	ErrNotAView         = errors.New("element is not a view")
	ErrStopped          = errors.New("host application stopped")
)

// ChangeEvent describes one committed transaction.
type ChangeEvent struct {
	Transaction string
	Version     uint64
	Added       []ElementID
	Modified    []ElementID
	Deleted     []ElementID
}

// Document is an open model. It is not safe for concurrent use: every call
// must come from the host UI goroutine.
type Document struct {
	title      string
	episode    string
	elements   map[ElementID]*Element
	order      []ElementID
	nextID     ElementID
	activeView ElementID
	openViews  []ElementID
	selection  []ElementID
	version    uint64
	tx         *Transaction
	listeners  map[int]func(ChangeEvent)
	listenerID int
	onVersion  func(uint64)
}

// NewDocument creates an empty document.
func NewDocument(title string) *Document {
	return &Document{
		title:      title,
		episode:    uuid.NewString(),
		elements:   make(map[ElementID]*Element),
		nextID:     1,
		activeView: InvalidElementID,
		listeners:  make(map[int]func(ChangeEvent)),
	}
}

// Title returns the document title.
func (d *Document) Title() string { return d.title }

// Version increases on every committed change and every UI state change.
func (d *Document) Version() uint64 { return d.version }

// Len returns the number of elements.
func (d *Document) Len() int { return len(d.order) }

// Element looks up an element by id.
func (d *Document) Element(id ElementID) (*Element, bool) {
	e, ok := d.elements[id]
	return e, ok
}

// MustElement looks up an element and reports a wrapped ErrElementNotFound.
func (d *Document) MustElement(id ElementID) (*Element, error) {
	e, ok := d.elements[id]
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrElementNotFound, id)
	}
	return e, nil
}

// Each calls fn for every element in creation order until fn returns false.
func (d *Document) Each(fn func(*Element) bool) {
	for _, id := range d.order {
		if !fn(d.elements[id]) {
			return
		}
	}
}

// Levels returns all levels sorted by elevation.
func (d *Document) Levels() []*Element {
	var out []*Element
	d.Each(func(e *Element) bool {
		if e.Class == ClassLevel {
			out = append(out, e)
		}
		return true
	})
	sort.SliceStable(out, func(i, j int) bool { return out[i].Elevation < out[j].Elevation })
	return out
}

// LevelAt returns the highest level at or below elevation z (feet), or the
// lowest level when everything is above z.
func (d *Document) LevelAt(z float64) (*Element, bool) {
	levels := d.Levels()
	if len(levels) == 0 {
		return nil, false
	}
	best := levels[0]
	for _, l := range levels {
		if l.Elevation <= z+1e-9 {
			best = l
		}
	}
	return best, true
}

// DefaultType returns the first type element of a category in creation order.
func (d *Document) DefaultType(category string) (*Element, bool) {
	var found *Element
	d.Each(func(e *Element) bool {
		if e.IsElementType() && e.Category == category {
			found = e
			return false
		}
		return true
	})
	return found, found != nil
}

// ActiveView returns the active view.
func (d *Document) ActiveView() (*Element, bool) {
	return d.Element(d.activeView)
}

// SetActiveView activates a view and opens it if needed.
func (d *Document) SetActiveView(id ElementID) error {
	e, err := d.MustElement(id)
	if err != nil {
		return err
	}
	if e.View == nil {
		return fmt.Errorf("%w: %d", ErrNotAView, id)
	}
	d.activeView = id
	if !d.IsOpen(id) {
		d.openViews = append(d.openViews, id)
	}
	d.bumpVersion()
	return nil
}

// OpenViews returns the ids of the open views.
func (d *Document) OpenViews() []ElementID { return cloneSlice(d.openViews) }

// IsOpen reports whether a view is open.
func (d *Document) IsOpen(id ElementID) bool {
	for _, v := range d.openViews {
		if v == id {
			return true
		}
	}
	return false
}

// Selection returns the selected element ids.
func (d *Document) Selection() []ElementID { return cloneSlice(d.selection) }

// SetSelection replaces the selection. Unknown ids are rejected.
func (d *Document) SetSelection(ids []ElementID) error {
	seen := make(map[ElementID]bool, len(ids))
	sel := make([]ElementID, 0, len(ids))
	for _, id := range ids {
		if _, ok := d.elements[id]; !ok {
			return fmt.Errorf("%w: %d", ErrElementNotFound, id)
		}
		if !seen[id] {
			seen[id] = true
			sel = append(sel, id)
		}
	}
	d.selection = sel
	d.bumpVersion()
	return nil
}

// InTransaction reports whether a transaction is open.
func (d *Document) InTransaction() bool { return d.tx != nil }

// Subscribe registers fn for committed changes. It runs on the UI goroutine.
func (d *Document) Subscribe(fn func(ChangeEvent)) (unsubscribe func()) {
	d.listenerID++
	id := d.listenerID
	d.listeners[id] = fn
	return func() { delete(d.listeners, id) }
}

// Add inserts e, assigning its id and unique id.
func (d *Document) Add(e *Element) (ElementID, error) {
	if d.tx == nil {
		return InvalidElementID, ErrNoTransaction
	}
	id := d.nextID
	d.nextID++
	d.tx.touch(id, nil)
	d.tx.saveOrder()

	e.ID = id
	e.UniqueID = fmt.Sprintf("%s-%08x", d.episode, uint64(id))
	d.elements[id] = e
	d.order = append(d.order, id)
	return id, nil
}

// Modify applies fn to the element with the given id.
func (d *Document) Modify(id ElementID, fn func(*Element)) error {
	if d.tx == nil {
		return ErrNoTransaction
	}
	e, err := d.MustElement(id)
	if err != nil {
		return err
	}
	d.tx.touch(id, e)
	uid := e.UniqueID
	fn(e)
	e.ID, e.UniqueID = id, uid
	return nil
}

// Delete removes elements and everything that depends on them: instances of
// a deleted type, elements on a deleted level and view-specific elements of a
// deleted view. It returns every removed id.
func (d *Document) Delete(ids ...ElementID) ([]ElementID, error) {
	if d.tx == nil {
		return nil, ErrNoTransaction
	}
	doomed := make(map[ElementID]bool)
	queue := make([]ElementID, 0, len(ids))
	for _, id := range ids {
		if _, err := d.MustElement(id); err != nil {
			return nil, err
		}
		if !doomed[id] {
			doomed[id] = true
			queue = append(queue, id)
		}
	}
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		d.Each(func(e *Element) bool {
			if !doomed[e.ID] && (e.TypeID == id || e.LevelID == id || e.OwnerViewID == id) {
				doomed[e.ID] = true
				queue = append(queue, e.ID)
			}
			return true
		})
	}

	d.tx.saveOrder()
	removed := make([]ElementID, 0, len(doomed))
	kept := d.order[:0:0]
	for _, id := range d.order {
		if doomed[id] {
			d.tx.touch(id, d.elements[id])
			delete(d.elements, id)
			removed = append(removed, id)
			continue
		}
		kept = append(kept, id)
	}
	d.order = kept

	for _, id := range d.order {
		e := d.elements[id]
		if e.Class != ClassGroup || !anyIn(e.Members, doomed) {
			continue
		}
		d.tx.touch(id, e)
		e.Members = without(e.Members, doomed)
	}
	d.selection = without(d.selection, doomed)
	d.openViews = without(d.openViews, doomed)
	if doomed[d.activeView] {
		d.activeView = InvalidElementID
		if len(d.openViews) > 0 {
			d.activeView = d.openViews[0]
		}
	}
	return removed, nil
}

func anyIn(ids []ElementID, set map[ElementID]bool) bool {
	for _, id := range ids {
		if set[id] {
			return true
		}
	}
	return false
}

func without(ids []ElementID, set map[ElementID]bool) []ElementID {
	out := ids[:0:0]
	for _, id := range ids {
		if !set[id] {
			out = append(out, id)
		}
	}
	return out
}

// bumpVersion advances the version and publishes it before anyone is told
// about the change.
func (d *Document) bumpVersion() uint64 {
	d.version++
	if d.onVersion != nil {
		d.onVersion(d.version)
	}
	return d.version
}

func (d *Document) notify(ev ChangeEvent) {
	keys := make([]int, 0, len(d.listeners))
	for k := range d.listeners {
		keys = append(keys, k)
	}
	sort.Ints(keys)
	for _, k := range keys {
		d.listeners[k](ev)
	}
}
