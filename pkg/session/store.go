package session

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/chazu/partforge/pkg/analysis"
)

var (
	// ErrEmpty is returned by operations that need a current part.
	ErrEmpty = errors.New("session: no current part")
	// ErrUnknownSession is returned for an ID the store does not hold.
	ErrUnknownSession = errors.New("session: unknown session")
)

// Store keeps sessions by ID. Sessions are independent, so the store uses a
// sync.Map rather than one lock around all of them.
type Store struct {
	sessions  sync.Map // uuid.UUID -> *Session
	count     atomic.Int64
	validator *analysis.Validator
}

// NewStore returns an empty store whose sessions validate with v.
func NewStore(v *analysis.Validator) *Store {
	return &Store{validator: v}
}

// Open creates an empty session and returns its ID.
func (st *Store) Open() (uuid.UUID, *Session) {
	id := uuid.New()
	s := New(st.validator)
	st.sessions.Store(id, s)
	st.count.Add(1)
	return id, s
}

// Get returns the session with the given ID.
func (st *Store) Get(id uuid.UUID) (*Session, error) {
	v, ok := st.sessions.Load(id)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownSession, id)
	}
	return v.(*Session), nil
}

// Close drops a session. Closing an unknown ID is an error.
func (st *Store) Close(id uuid.UUID) error {
	if _, ok := st.sessions.LoadAndDelete(id); !ok {
		return fmt.Errorf("%w: %s", ErrUnknownSession, id)
	}
	st.count.Add(-1)
	return nil
}

// Len returns the number of open sessions.
func (st *Store) Len() int {
	return int(st.count.Load())
}
