package host

import (
	"fmt"
	"sort"
)

// TransactionStatus is the lifecycle state of a transaction.
type TransactionStatus uint8

// Transaction states.
const (
	TxUninitialized TransactionStatus = iota
	TxStarted
	TxCommitted
	TxRolledBack
)

func (s TransactionStatus) String() string {
	switch s {
	case TxStarted:
		return "started"
	case TxCommitted:
		return "committed"
	case TxRolledBack:
		return "rolled back"
	default:
		return "uninitialized"
	}
}

// Transaction groups document modifications so they commit or roll back
// together. The pre-image of every touched element is journaled, so
// RollBack restores the document exactly as it was at Start.
type Transaction struct {
	doc    *Document
	name   string
	status TransactionStatus

	before     map[ElementID]*Element // nil value: element did not exist
	order      []ElementID
	orderSaved bool
	nextID     ElementID
	activeView ElementID
	openViews  []ElementID
	selection  []ElementID
}

// NewTransaction creates a named transaction on doc.
func NewTransaction(doc *Document, name string) *Transaction {
	return &Transaction{doc: doc, name: name}
}

// Name returns the transaction name.
func (t *Transaction) Name() string { return t.name }

// Status returns the current state.
func (t *Transaction) Status() TransactionStatus { return t.status }

// Start opens the transaction. Only one transaction may be open per document.
func (t *Transaction) Start() error {
	if t.status != TxUninitialized {
		return fmt.Errorf("start %q: %w", t.name, ErrTransactionState)
	}
	if t.doc.tx != nil {
		return fmt.Errorf("start %q: %w (%q)", t.name, ErrTransactionOpen, t.doc.tx.name)
	}
	t.before = make(map[ElementID]*Element)
	t.nextID = t.doc.nextID
	t.activeView = t.doc.activeView
	t.openViews = cloneSlice(t.doc.openViews)
	t.selection = cloneSlice(t.doc.selection)
	t.status = TxStarted
	t.doc.tx = t
	return nil
}

// Commit makes the changes permanent and notifies subscribers when anything changed.
func (t *Transaction) Commit() error {
	if t.status != TxStarted {
		return fmt.Errorf("commit %q: %w", t.name, ErrTransactionState)
	}
	t.status = TxCommitted
	t.doc.tx = nil

	ev := ChangeEvent{Transaction: t.name}
	for id, pre := range t.before {
		_, now := t.doc.elements[id]
		switch {
		case pre == nil && now:
			ev.Added = append(ev.Added, id)
		case pre != nil && !now:
			ev.Deleted = append(ev.Deleted, id)
		case pre != nil && now:
			ev.Modified = append(ev.Modified, id)
		}
	}
	if len(ev.Added)+len(ev.Modified)+len(ev.Deleted) == 0 {
		return nil
	}
	sortIDs(ev.Added)
	sortIDs(ev.Modified)
	sortIDs(ev.Deleted)

	ev.Version = t.doc.bumpVersion()
	t.doc.notify(ev)
	return nil
}

// RollBack discards every change made since Start.
func (t *Transaction) RollBack() error {
	if t.status != TxStarted {
		return fmt.Errorf("roll back %q: %w", t.name, ErrTransactionState)
	}
	d := t.doc
	for id, pre := range t.before {
		if pre == nil {
			delete(d.elements, id)
			continue
		}
		d.elements[id] = pre
	}
	if t.orderSaved {
		d.order = t.order
	}
	d.nextID = t.nextID
	d.activeView = t.activeView
	d.openViews = t.openViews
	d.selection = t.selection

	t.status = TxRolledBack
	d.tx = nil
	return nil
}

// touch journals the pre-image of id on first modification.
func (t *Transaction) touch(id ElementID, current *Element) {
	if _, ok := t.before[id]; ok {
		return
	}
	if current == nil {
		t.before[id] = nil
		return
	}
	t.before[id] = current.Clone()
}

func (t *Transaction) saveOrder() {
	if t.orderSaved {
		return
	}
	t.order = cloneSlice(t.doc.order)
	t.orderSaved = true
}

func sortIDs(ids []ElementID) {
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
}
