package store

import (
	"sync"

	"boltalka/internal/models"
)

// Store holds the ordered, deduplicated message log for one room activation.
// It is created when a room is activated and discarded on room switch; Reset
// exists for callers that want to reuse the allocation, a switch normally
// just builds a fresh Store.
//
// The log is kept non-decreasing by CreatedAt: live messages usually arrive
// in order and append; a straggler is insertion-sorted without disturbing
// messages already in place.
type Store struct {
	mu            sync.Mutex
	roomID        string
	log           []models.Message
	historyLoaded bool
	onUpdate      func()
}

func New(roomID string) *Store {
	return &Store{roomID: roomID}
}

// OnUpdate registers the re-render callback fired after every successful
// mutation. At most one consumer; last registration wins.
func (s *Store) OnUpdate(fn func()) {
	s.mu.Lock()
	s.onUpdate = fn
	s.mu.Unlock()
}

func (s *Store) RoomID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.roomID
}

// Ingest appends a live message to the log. Typing events never enter the
// log, and duplicates are dropped. Returns whether the log changed.
func (s *Store) Ingest(msg models.Message) bool {
	if msg.Type == models.EventTyping {
		return false
	}

	s.mu.Lock()
	for _, existing := range s.log {
		if existing.Same(msg) {
			s.mu.Unlock()
			return false
		}
	}

	// Find the insertion point from the tail; equal timestamps keep arrival
	// order so re-ingestion cannot shuffle the log.
	i := len(s.log)
	for i > 0 && s.log[i-1].CreatedAt.After(msg.CreatedAt) {
		i--
	}
	s.log = append(s.log, models.Message{})
	copy(s.log[i+1:], s.log[i:])
	s.log[i] = msg

	fn := s.onUpdate
	s.mu.Unlock()

	if fn != nil {
		fn()
	}
	return true
}

// LoadHistory merges one page of past messages, ordered ascending by
// CreatedAt. It is accepted at most once per activation; later calls are
// no-ops. The merge is keyed by CreatedAt rather than a blind prepend so an
// overlapping window cannot reorder messages already ingested live; on equal
// timestamps history sorts before live.
func (s *Store) LoadHistory(page []models.Message) bool {
	s.mu.Lock()
	if s.historyLoaded {
		s.mu.Unlock()
		return false
	}
	s.historyLoaded = true

	merged := make([]models.Message, 0, len(page)+len(s.log))
	j := 0
	for _, h := range page {
		if h.Type == models.EventTyping {
			continue
		}
		for j < len(s.log) && s.log[j].CreatedAt.Before(h.CreatedAt) {
			merged = append(merged, s.log[j])
			j++
		}
		if containsSame(merged, h) || containsSame(s.log[j:], h) {
			continue
		}
		merged = append(merged, h)
	}
	merged = append(merged, s.log[j:]...)
	s.log = merged

	fn := s.onUpdate
	s.mu.Unlock()

	if fn != nil {
		fn()
	}
	return true
}

func (s *Store) HistoryLoaded() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.historyLoaded
}

// Reset clears the log and the history latch for a new room identity. Must
// happen before any ingestion for the new room.
func (s *Store) Reset(roomID string) {
	s.mu.Lock()
	s.roomID = roomID
	s.log = nil
	s.historyLoaded = false
	fn := s.onUpdate
	s.mu.Unlock()

	if fn != nil {
		fn()
	}
}

func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.log)
}

// Messages returns a copy of the log in order.
func (s *Store) Messages() []models.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.Message, len(s.log))
	copy(out, s.log)
	return out
}

// Entry is a render-ready log item: the message plus the tags the UI needs
// to distinguish system notices and the viewer's own messages.
type Entry struct {
	models.Message
	Own    bool
	System bool
}

// Entries returns the log tagged against the current identity.
func (s *Store) Entries(selfUserID int64) []Entry {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Entry, len(s.log))
	for i, msg := range s.log {
		out[i] = Entry{
			Message: msg,
			Own:     msg.UserID == selfUserID,
			System:  msg.IsSystem(),
		}
	}
	return out
}

func containsSame(list []models.Message, msg models.Message) bool {
	for _, existing := range list {
		if existing.Same(msg) {
			return true
		}
	}
	return false
}
