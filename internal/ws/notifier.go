package ws

import (
	"github.com/google/uuid"

	"boltalka/internal/models"
)

type EventKind int

const (
	KindConnected EventKind = iota
	KindMessage
	KindDisconnected
)

func (k EventKind) String() string {
	switch k {
	case KindConnected:
		return "connected"
	case KindMessage:
		return "message"
	case KindDisconnected:
		return "disconnected"
	}
	return "unknown"
}

// Event is what subscribers receive from a session. Message is set only for
// KindMessage.
type Event struct {
	Kind    EventKind
	Message *models.Message
}

const subscriberBuffer = 64

// Subscribe registers an observer and returns its id together with the event
// channel. The channel is buffered; a subscriber that stops draining loses
// events rather than stalling the read loop.
func (s *Session) Subscribe() (string, <-chan Event) {
	id := uuid.NewString()
	ch := make(chan Event, subscriberBuffer)

	s.mu.Lock()
	s.subs[id] = ch
	s.mu.Unlock()

	return id, ch
}

// Unsubscribe removes the observer and closes its channel.
func (s *Session) Unsubscribe(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if ch, ok := s.subs[id]; ok {
		close(ch)
		delete(s.subs, id)
	}
}

func (s *Session) notify(ev Event) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, ch := range s.subs {
		select {
		case ch <- ev:
		default:
			s.log.Warn("subscriber lagging, dropping event", "subscriber", id, "kind", ev.Kind.String())
		}
	}
}
