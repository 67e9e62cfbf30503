package session

import (
	"fmt"
	"sync"
	"time"

	"github.com/JonMunkholm/usergroups/internal/tabular"
)

// Store holds the one current session. There are no session IDs: a new
// upload supersedes whatever came before it.
//
// The store guards its own fields so a reader never sees a half-written
// record, but it does not serialize whole pipelines; callers that run
// upload/select/download concurrently must hold a wider lock.
type Store struct {
	mu      sync.RWMutex
	rec     Record
	grouper Grouper
	now     func() time.Time
}

// StoreOption configures a Store.
type StoreOption func(*Store)

// WithGrouper replaces the default RateGrouper.
func WithGrouper(g Grouper) StoreOption {
	return func(s *Store) {
		if g != nil {
			s.grouper = g
		}
	}
}

// WithClock replaces time.Now, mainly for tests.
func WithClock(now func() time.Time) StoreOption {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// NewStore returns an empty store.
func NewStore(opts ...StoreOption) *Store {
	s := &Store{grouper: RateGrouper{}, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// State returns the current lifecycle state.
func (s *Store) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.rec.State
}

// Upload replaces the session with ids and discards any previous
// selection. It is legal from every state. An empty record fails with
// ErrEmptyRecord and leaves the session unchanged.
func (s *Store) Upload(ids tabular.IdentifierRecord, src Source) error {
	if ids.IsZero() {
		return ErrEmptyRecord
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.rec = Record{
		State:       StateUploaded,
		Source:      src,
		Identifiers: ids,
		UploadedAt:  s.now(),
	}
	return nil
}

// Select computes stats for the uploaded identifiers and moves the session
// to Selected. It fails with ErrOutOfOrder before any upload, and with
// ErrInvalidSelection for bad parameters. A failed Select leaves the
// session unchanged.
func (s *Store) Select(sel Selection) (Preview, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.rec.State < StateUploaded {
		return Preview{}, fmt.Errorf("%w: select requires an uploaded identifier file", ErrOutOfOrder)
	}
	if err := sel.Validate(); err != nil {
		return Preview{}, err
	}
	if sel.FileID != "" && sel.FileID != s.rec.Source.FileID {
		return Preview{}, fmt.Errorf("%w: file %q is not the current upload", ErrOutOfOrder, sel.FileID)
	}

	category := NormalizeCategory(sel.Category)
	if category == "" {
		return Preview{}, fmt.Errorf("%w: category is empty after normalization", ErrInvalidSelection)
	}

	now := s.now()
	ids := s.rec.Identifiers.Values()
	groups := s.grouper.Group(ids, sel.Rate)

	s.rec.State = StateSelected
	s.rec.Timestamp = now.Format(TimestampLayout)
	s.rec.Category = category
	s.rec.Rate = sel.Rate
	s.rec.Content = sel.Content
	s.rec.Groups = groups.clone()
	s.rec.Stats = statsFor(len(ids), sel.Rate, groups)
	s.rec.SelectedAt = now

	return Preview{
		Stats:       s.rec.Stats,
		ArchiveName: s.rec.ArchiveName(),
		Filename:    s.rec.ArchiveName() + ArchiveExt,
	}, nil
}

// Current returns a copy of the session. It fails with ErrOutOfOrder when
// nothing has been uploaded.
func (s *Store) Current() (Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.rec.State == StateEmpty {
		return Record{}, fmt.Errorf("%w: no identifier file uploaded", ErrOutOfOrder)
	}
	return s.snapshot(), nil
}

// Selected returns a copy of the session if Select has completed.
func (s *Store) Selected() (Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.rec.State != StateSelected {
		return Record{}, fmt.Errorf("%w: run select before generating (state %s)", ErrOutOfOrder, s.rec.State)
	}
	return s.snapshot(), nil
}

func (s *Store) snapshot() Record {
	rec := s.rec
	rec.Groups = s.rec.Groups.clone()
	return rec
}
