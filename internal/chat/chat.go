package chat

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"boltalka/internal/history"
	"boltalka/internal/models"
	"boltalka/internal/presence"
	"boltalka/internal/store"
	"boltalka/internal/typing"
	"boltalka/internal/ws"
)

type Config struct {
	ServerURL string
	Identity  *models.User
	Token     string

	// Fetcher provides the paginated message history, normally the api client.
	Fetcher  history.Fetcher
	PageSize int

	TypingInterval   time.Duration
	HandshakeTimeout time.Duration

	Dial   ws.Dialer
	Logger *slog.Logger
}

// Client maintains at most one active room. Joining a room builds a fresh
// Activation; joining another tears the previous one down completely. A room
// switch is a full reset, never an incremental update.
type Client struct {
	cfg Config
	log *slog.Logger

	mu      sync.Mutex
	current *Activation
}

// Activation owns everything bound to one room: the socket session, the
// message log, the typing debouncer, the one-shot history merge and the
// presence tracker. It is discarded, not reused, when the room changes.
type Activation struct {
	RoomID   string
	Store    *store.Store
	Session  *ws.Session
	Typing   *typing.Controller
	History  *history.Coordinator
	Presence *presence.Tracker

	subID  string
	cancel context.CancelFunc
	done   chan struct{}
}

func NewClient(cfg Config) *Client {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{cfg: cfg, log: logger}
}

// Join activates a room: it connects the transport and kicks off the history
// fetch. Any previously active room is deactivated first.
func (c *Client) Join(ctx context.Context, roomID string) (*Activation, error) {
	if roomID == "" {
		return nil, errors.New("room id is empty")
	}

	c.Leave()

	actCtx, cancel := context.WithCancel(ctx)

	st := store.New(roomID)
	sess := ws.NewSession(ws.Config{
		ServerURL:        c.cfg.ServerURL,
		RoomID:           roomID,
		Identity:         c.cfg.Identity,
		Token:            c.cfg.Token,
		HandshakeTimeout: c.cfg.HandshakeTimeout,
		Dial:             c.cfg.Dial,
		Logger:           c.log,
	})

	var selfID int64
	if c.cfg.Identity != nil {
		selfID = c.cfg.Identity.ID
	}

	a := &Activation{
		RoomID:   roomID,
		Store:    st,
		Session:  sess,
		Typing:   typing.New(sess, c.cfg.TypingInterval),
		History:  history.New(c.cfg.Fetcher, st, c.cfg.PageSize, c.log),
		Presence: presence.New(actCtx, c.cfg.TypingInterval, selfID),
		cancel:   cancel,
		done:     make(chan struct{}),
	}

	subID, events := sess.Subscribe()
	a.subID = subID
	go a.pump(events)

	sess.Connect(actCtx)

	if c.cfg.Fetcher != nil {
		go c.loadHistory(actCtx, a, roomID)
	}

	c.mu.Lock()
	c.current = a
	c.mu.Unlock()

	c.log.Info("room activated", "room_id", roomID)
	return a, nil
}

func (c *Client) loadHistory(ctx context.Context, a *Activation, roomID string) {
	if err := a.History.Load(ctx, roomID); err != nil {
		// The store simply shows no history; live messaging is unaffected.
		c.log.Warn("history load failed", "room_id", roomID, "error", err)
	}
}

// Leave deactivates the current room, if any.
func (c *Client) Leave() {
	c.mu.Lock()
	a := c.current
	c.current = nil
	c.mu.Unlock()

	if a != nil {
		a.teardown()
		c.log.Info("room deactivated", "room_id", a.RoomID)
	}
}

func (c *Client) Current() *Activation {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

// Send transmits a chat message while the session is open; otherwise it is
// silently dropped, like the transport itself.
func (a *Activation) Send(content string) {
	a.Session.Send(content, models.EventMessage)
}

// NotifyTyping reports local input activity to the typing debouncer.
func (a *Activation) NotifyTyping() {
	a.Typing.NotifyActivity()
}

func (a *Activation) Connected() bool {
	return a.Session.IsOpen()
}

func (a *Activation) pump(events <-chan ws.Event) {
	defer close(a.done)
	for ev := range events {
		if ev.Kind != ws.KindMessage || ev.Message == nil {
			continue
		}
		a.Presence.Observe(*ev.Message)
		// Typing events are rejected by the store itself.
		a.Store.Ingest(*ev.Message)
	}
}

func (a *Activation) teardown() {
	a.Typing.Stop()
	a.Session.Unsubscribe(a.subID)
	a.Session.Disconnect()
	// An in-flight history fetch is cancelled; a response that still slips
	// through merges into this discarded store and is never rendered.
	a.cancel()
	<-a.done
}
