package session

import (
	"errors"
)

// ErrNotEnoughMedia is returned by LastMedia when fewer items are
// buffered than requested.
var ErrNotEnoughMedia = errors.New("not enough media buffered")

// AppendTurn appends a turn and drops the oldest entries so that at most
// the configured window of turns is retained.
func (s *Session) AppendTurn(t Turn) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.history = append(s.history, t)
	if n := len(s.history) - s.window; n > 0 {
		s.history = append(s.history[:0:0], s.history[n:]...)
	}
}

// AppendMedia appends a media reference and returns the new buffer size.
// The buffer is unbounded until a combine request reads it.
func (s *Session) AppendMedia(ref MediaRef) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.media = append(s.media, ref)
	return len(s.media)
}

// LastMedia returns the k most recently buffered media items in arrival
// order. The items stay in the buffer; reading is non-destructive.
func (s *Session) LastMedia(k int) ([]MediaRef, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.media) < k {
		return nil, ErrNotEnoughMedia
	}

	out := make([]MediaRef, k)
	copy(out, s.media[len(s.media)-k:])
	return out, nil
}

// MediaCount returns the current media buffer size.
func (s *Session) MediaCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.media)
}

// History returns a point-in-time copy of the retained turns,
// oldest first.
func (s *Session) History() []Turn {
	s.mu.Lock()
	defer s.mu.Unlock()

	copied := make([]Turn, len(s.history))
	copy(copied, s.history)

	return copied
}

// Acquire blocks until this session's processing lock is held. Events
// for one user are handled strictly in arrival order; other users are
// never blocked by it.
func (s *Session) Acquire() {
	s.processing.Lock()
}

// Release releases the processing lock.
func (s *Session) Release() {
	s.processing.Unlock()
}

func NewStore(historyWindow int) *Store {
	if historyWindow <= 0 {
		historyWindow = DefaultHistoryWindow
	}
	return &Store{window: historyWindow, sessions: make(map[string]*Session)}
}

// Get returns the session for a user, creating it on first contact.
func (s *Store) Get(userID string) *Session {
	s.mu.RLock()

	sess, ok := s.sessions[userID]
	s.mu.RUnlock()

	if ok {
		return sess
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if sess, ok = s.sessions[userID]; ok {
		return sess
	}

	sess = &Session{window: s.window}
	s.sessions[userID] = sess

	return sess
}

// Len returns the number of known users.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.sessions)
}

// Range calls fn for every known session. Used by maintenance sweeps.
func (s *Store) Range(fn func(userID string, sess *Session)) {
	s.mu.RLock()
	ids := make([]string, 0, len(s.sessions))
	for id := range s.sessions {
		ids = append(ids, id)
	}
	s.mu.RUnlock()

	for _, id := range ids {
		s.mu.RLock()
		sess := s.sessions[id]
		s.mu.RUnlock()
		if sess != nil {
			fn(id, sess)
		}
	}
}
