package dom

import (
	"errors"
	"fmt"
)

// RecordKind identifies what a MutationRecord describes.
type RecordKind int

const (
	// ChildList records nodes added to or removed from Target.
	ChildList RecordKind = iota
	// CharacterData records a change to the data of a text or comment node.
	CharacterData
	// Attributes records an attribute change on Target.
	Attributes
)

func (k RecordKind) String() string {
	switch k {
	case ChildList:
		return "childList"
	case CharacterData:
		return "characterData"
	case Attributes:
		return "attributes"
	default:
		return "unknown"
	}
}

// MutationRecord describes one change to a document tree.
type MutationRecord struct {
	Kind   RecordKind
	Target *Node

	// ChildList only.
	Added       []*Node
	Removed     []*Node
	PrevSibling *Node
	NextSibling *Node

	// Attributes only.
	AttributeName string

	// Previous attribute value or character data.
	OldValue string
}

// ObserveOptions selects which mutations an Observer receives.
type ObserveOptions struct {
	ChildList     bool
	CharacterData bool
	Attributes    bool
	// Subtree extends observation from the target to all its descendants.
	Subtree bool
}

// Callback receives a batch of records in the order they were produced.
type Callback func(records []MutationRecord)

// Observer is a registered mutation subscription.
type Observer struct {
	doc      *Document
	target   *Node
	opts     ObserveOptions
	callback Callback
	queue    []MutationRecord
}

// Observe subscribes callback to mutations of target. Records are queued as
// mutations happen and delivered by Flush.
func (d *Document) Observe(target *Node, opts ObserveOptions, callback Callback) *Observer {
	o := &Observer{doc: d, target: target, opts: opts, callback: callback}
	d.observers = append(d.observers, o)
	return o
}

// Disconnect stops delivery and drops queued records.
func (o *Observer) Disconnect() {
	o.queue = nil
	obs := o.doc.observers
	for i, other := range obs {
		if other == o {
			o.doc.observers = append(obs[:i:i], obs[i+1:]...)
			return
		}
	}
}

// TakeRecords returns and clears the queued records.
func (o *Observer) TakeRecords() []MutationRecord {
	recs := o.queue
	o.queue = nil
	return recs
}

func (o *Observer) wants(rec MutationRecord) bool {
	switch rec.Kind {
	case ChildList:
		if !o.opts.ChildList {
			return false
		}
	case CharacterData:
		if !o.opts.CharacterData {
			return false
		}
	case Attributes:
		if !o.opts.Attributes {
			return false
		}
	}
	if rec.Target == o.target {
		return true
	}
	return o.opts.Subtree && o.target.Contains(rec.Target)
}

func (o *Observer) deliver(recs []MutationRecord) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("dom: observer callback panicked: %v", r)
		}
	}()
	o.callback(recs)
	return nil
}

func (d *Document) enqueue(rec MutationRecord) {
	for _, o := range d.observers {
		if o.wants(rec) {
			o.queue = append(o.queue, rec)
		}
	}
}

// Pending reports whether any observer has undelivered records.
func (d *Document) Pending() bool {
	for _, o := range d.observers {
		if len(o.queue) > 0 {
			return true
		}
	}
	return false
}

// Flush delivers queued records to their observers, in registration order,
// until no observer has records left. Records produced by callbacks are
// delivered by the same Flush. A panicking callback does not stop delivery
// to the others; the recovered panics are returned joined. Flush called from
// inside a callback returns immediately.
func (d *Document) Flush() error {
	if d.flushing {
		return nil
	}
	d.flushing = true
	defer func() { d.flushing = false }()

	var errs []error
	for {
		delivered := false
		for _, o := range append([]*Observer(nil), d.observers...) {
			recs := o.TakeRecords()
			if len(recs) == 0 {
				continue
			}
			delivered = true
			if err := o.deliver(recs); err != nil {
				errs = append(errs, err)
			}
		}
		if !delivered {
			return errors.Join(errs...)
		}
	}
}
