package presence

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/c-pro/geche"

	"boltalka/internal/models"
)

// Tracker follows the ephemeral side of the room: who is typing right now
// and who has joined or left. Typing events never reach the message log, so
// this is the only place they leave a trace, and only for one TTL window.
type Tracker struct {
	selfID  int64
	ttl     time.Duration
	now     func() time.Time
	typists geche.Geche[string, int64]

	mu     sync.Mutex
	online map[string]bool
}

func New(ctx context.Context, ttl time.Duration, selfID int64) *Tracker {
	if ttl <= 0 {
		ttl = 3 * time.Second
	}
	return &Tracker{
		selfID:  selfID,
		ttl:     ttl,
		now:     time.Now,
		typists: geche.NewMapTTLCache[string, int64](ctx, ttl, time.Second),
		online:  make(map[string]bool),
	}
}

// Observe feeds one inbound event into the tracker. Regular messages from a
// user clear their typing indicator; the message itself is none of the
// tracker's business.
func (t *Tracker) Observe(msg models.Message) {
	switch msg.Type {
	case models.EventTyping:
		if msg.UserID == t.selfID || msg.Username == "" {
			return
		}
		t.typists.Set(msg.Username, t.now().Add(t.ttl).UnixNano())
	case models.EventMessage:
		_ = t.typists.Del(msg.Username)
	case models.EventUserJoined:
		t.mu.Lock()
		t.online[msg.Username] = true
		t.mu.Unlock()
	case models.EventUserLeft:
		t.mu.Lock()
		delete(t.online, msg.Username)
		t.mu.Unlock()
		_ = t.typists.Del(msg.Username)
	}
}

// TypingUsers returns who is typing, sorted. The TTL cache evicts lazily, so
// entries are double-checked against their recorded deadline.
func (t *Tracker) TypingUsers() []string {
	cutoff := t.now().UnixNano()

	var users []string
	for username, deadline := range t.typists.Snapshot() {
		if deadline > cutoff {
			users = append(users, username)
		}
	}
	sort.Strings(users)
	return users
}

// Online returns usernames seen joining and not yet leaving, sorted.
func (t *Tracker) Online() []string {
	t.mu.Lock()
	users := make([]string, 0, len(t.online))
	for username := range t.online {
		users = append(users, username)
	}
	t.mu.Unlock()

	sort.Strings(users)
	return users
}
