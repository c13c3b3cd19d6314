package attachment

import (
	"sync"
	"time"
)

// EventKind identifies the kind of store mutation an observer is told about.
type EventKind string

const (
	EventAppended  EventKind = "appended"
	EventUpdated   EventKind = "updated"
	EventRemoved   EventKind = "removed"
	EventCleared   EventKind = "cleared"
	EventUploading EventKind = "uploading"
)

// Event describes a single committed store mutation. Record is zero for
// EventCleared; Uploading is meaningful only for EventUploading.
type Event struct {
	Kind      EventKind
	Record    Record
	Uploading bool
}

// Store is the in-memory ordered collection of attachment records for one
// session, plus the batch-in-progress flag. All status mutation goes through
// it, and every committed mutation is delivered synchronously to subscribed
// observers in program order.
type Store struct {
	mu        sync.Mutex
	records   []Record
	uploading bool

	subMu   sync.Mutex
	subs    map[int]func(Event)
	nextSub int
}

func NewStore() *Store {
	return &Store{subs: make(map[int]func(Event))}
}

// Subscribe registers an observer and returns its unsubscribe function.
// Observers run on the mutating goroutine, after the mutation has committed.
func (s *Store) Subscribe(fn func(Event)) func() {
	s.subMu.Lock()
	defer s.subMu.Unlock()

	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn

	return func() {
		s.subMu.Lock()
		defer s.subMu.Unlock()

		delete(s.subs, id)
	}
}

func (s *Store) notify(events ...Event) {
	s.subMu.Lock()

	fns := make([]func(Event), 0, len(s.subs))
	for _, fn := range s.subs {
		fns = append(fns, fn)
	}

	s.subMu.Unlock()

	for _, ev := range events {
		for _, fn := range fns {
			fn(ev)
		}
	}
}

// Append inserts records at the end of the collection, preserving order.
// If any incoming ID collides with an existing record, nothing is committed
// and a DuplicateIDError is returned.
func (s *Store) Append(records []Record) error {
	if len(records) == 0 {
		return nil
	}

	s.mu.Lock()

	held := make(map[string]bool, len(s.records)+len(records))
	for _, rec := range s.records {
		held[rec.ID] = true
	}

	for _, rec := range records {
		if held[rec.ID] {
			s.mu.Unlock()

			return &DuplicateIDError{ID: rec.ID}
		}

		held[rec.ID] = true
	}

	s.records = append(s.records, records...)
	s.mu.Unlock()

	events := make([]Event, 0, len(records))
	for _, rec := range records {
		events = append(events, Event{Kind: EventAppended, Record: rec})
	}

	s.notify(events...)

	return nil
}

// UpdateStatus replaces the record's status and status-dependent fields.
// The field not matching the new status is always cleared, keeping
// ErrorMessage and RemotePath mutually exclusive. An absent ID is a no-op
// returning false: a transfer may legitimately resolve after the user removed
// the record.
func (s *Store) UpdateStatus(id string, status Status, res Resolution) bool {
	s.mu.Lock()

	idx := s.indexOf(id)
	if idx < 0 {
		s.mu.Unlock()

		return false
	}

	rec := s.records[idx]
	rec.Status = status
	rec.ErrorMessage = ""
	rec.RemotePath = ""
	rec.ResolvedAt = time.Time{}

	switch status {
	case StatusError:
		rec.ErrorMessage = res.ErrorMessage
		rec.ResolvedAt = time.Now()
	case StatusSuccess:
		rec.RemotePath = res.RemotePath
		rec.ResolvedAt = time.Now()
	}

	s.records[idx] = rec
	s.mu.Unlock()

	s.notify(Event{Kind: EventUpdated, Record: rec})

	return true
}

// Remove deletes the record with the given ID. Removing an absent ID has no
// effect.
func (s *Store) Remove(id string) {
	s.mu.Lock()

	idx := s.indexOf(id)
	if idx < 0 {
		s.mu.Unlock()

		return
	}

	rec := s.records[idx]
	s.records = append(s.records[:idx], s.records[idx+1:]...)
	s.mu.Unlock()

	s.notify(Event{Kind: EventRemoved, Record: rec})
}

// Clear empties the collection.
func (s *Store) Clear() {
	s.mu.Lock()
	s.records = nil
	s.mu.Unlock()

	s.notify(Event{Kind: EventCleared})
}

// ClearTerminal removes every record in a terminal status, preserving the
// relative order of the pending and uploading records it keeps.
func (s *Store) ClearTerminal() {
	s.mu.Lock()

	kept := s.records[:0]

	var removed []Record

	for _, rec := range s.records {
		if rec.Status.Terminal() {
			removed = append(removed, rec)
		} else {
			kept = append(kept, rec)
		}
	}

	s.records = kept
	s.mu.Unlock()

	events := make([]Event, 0, len(removed))
	for _, rec := range removed {
		events = append(events, Event{Kind: EventRemoved, Record: rec})
	}

	s.notify(events...)
}

// Records returns a snapshot of the collection in insertion order.
func (s *Store) Records() []Record {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Record, len(s.records))
	copy(out, s.records)

	return out
}

// Pending returns a snapshot of the records currently in pending status.
func (s *Store) Pending() []Record {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []Record

	for _, rec := range s.records {
		if rec.Status == StatusPending {
			out = append(out, rec)
		}
	}

	return out
}

// Get returns the record with the given ID, if held.
func (s *Store) Get(id string) (Record, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if idx := s.indexOf(id); idx >= 0 {
		return s.records[idx], true
	}

	return Record{}, false
}

// Len returns the number of records held.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.records)
}

// SetUploading flips the batch-in-progress flag.
func (s *Store) SetUploading(uploading bool) {
	s.mu.Lock()
	s.uploading = uploading
	s.mu.Unlock()

	s.notify(Event{Kind: EventUploading, Uploading: uploading})
}

// Uploading reports whether a batch transfer is in progress.
func (s *Store) Uploading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.uploading
}

// indexOf is called with s.mu held.
func (s *Store) indexOf(id string) int {
	for i, rec := range s.records {
		if rec.ID == id {
			return i
		}
	}

	return -1
}
