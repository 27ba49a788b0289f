package ws

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/url"
	"sync"
	"sync/atomic"
	"time"

	"boltalka/internal/models"

	"github.com/gorilla/websocket"
)

// State is the session's connection lifecycle. Transitions are guarded with
// atomic check-and-set so redundant Connect calls cannot race a second socket
// into existence.
type State int32

const (
	StateIdle State = iota
	StateConnecting
	StateOpen
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateConnecting:
		return "connecting"
	case StateOpen:
		return "open"
	case StateClosed:
		return "closed"
	}
	return "unknown"
}

const defaultHandshakeTimeout = 10 * time.Second

// socket is the subset of *websocket.Conn the session needs. Tests substitute
// their own implementation through Config.Dial.
type socket interface {
	ReadMessage() (messageType int, p []byte, err error)
	WriteJSON(v any) error
	WriteControl(messageType int, data []byte, deadline time.Time) error
	Close() error
}

type Dialer func(ctx context.Context, url string) (socket, error)

type Config struct {
	// ServerURL is the http(s) base address; the session derives the ws(s)
	// endpoint from it.
	ServerURL string
	RoomID    string
	Identity  *models.User
	Token     string

	HandshakeTimeout time.Duration
	Dial             Dialer
	Logger           *slog.Logger
}

// Session owns exactly one realtime socket for one room. It is not reusable
// across rooms: a room switch tears the session down and builds a new one.
// There is no automatic reconnection; a dropped connection stays dropped
// until the caller re-activates the room.
type Session struct {
	cfg   Config
	log   *slog.Logger
	dial  Dialer
	state atomic.Int32

	mu   sync.Mutex
	conn socket
	subs map[string]chan Event
}

func NewSession(cfg Config) *Session {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	dial := cfg.Dial
	if dial == nil {
		timeout := cfg.HandshakeTimeout
		if timeout <= 0 {
			timeout = defaultHandshakeTimeout
		}
		dial = gorillaDialer(timeout)
	}

	return &Session{
		cfg:  cfg,
		log:  logger.With("room_id", cfg.RoomID),
		dial: dial,
		subs: make(map[string]chan Event),
	}
}

func (s *Session) State() State {
	return State(s.state.Load())
}

func (s *Session) IsOpen() bool {
	return s.State() == StateOpen
}

// Connect opens the realtime connection. It is a silent no-op when identity,
// token or room are missing, when a connect is already in flight, or when the
// session is already open or closed. Dial failures release the connecting
// guard so an explicit retry stays possible; they are logged, never returned.
func (s *Session) Connect(ctx context.Context) {
	if s.cfg.Identity == nil || s.cfg.Token == "" || s.cfg.RoomID == "" {
		s.log.Debug("connect skipped, missing identity, token or room")
		return
	}

	if !s.state.CompareAndSwap(int32(StateIdle), int32(StateConnecting)) {
		s.log.Debug("connect skipped", "state", s.State().String())
		return
	}

	endpoint, err := s.endpoint()
	if err != nil {
		s.log.Warn("invalid server URL", "error", err)
		s.state.Store(int32(StateIdle))
		return
	}

	conn, err := s.dial(ctx, endpoint)
	if err != nil {
		s.log.Warn("websocket dial failed", "error", err)
		s.state.Store(int32(StateIdle))
		return
	}

	s.mu.Lock()
	s.conn = conn
	s.mu.Unlock()

	// Disconnect may have raced the dial; only the connecting state may
	// transition to open, anything else discards the fresh socket.
	if !s.state.CompareAndSwap(int32(StateConnecting), int32(StateOpen)) {
		s.mu.Lock()
		if s.conn == conn {
			s.conn = nil
		}
		s.mu.Unlock()
		_ = conn.Close()
		s.log.Debug("discarding socket, session no longer connecting", "state", s.State().String())
		return
	}

	s.log.Info("connected")
	s.notify(Event{Kind: KindConnected})

	go s.readLoop(conn)
}

// Send transmits a structured event while the session is open. Anything else
// is a no-op: no queueing, no error.
func (s *Session) Send(content string, typ models.EventType) {
	if s.State() != StateOpen {
		return
	}

	s.mu.Lock()
	conn := s.conn
	s.mu.Unlock()
	if conn == nil {
		return
	}

	out := models.Outbound{Type: typ, Content: content, RoomID: s.cfg.RoomID}
	if err := conn.WriteJSON(out); err != nil {
		s.log.Warn("send failed", "type", string(typ), "error", err)
	}
}

// Disconnect closes the connection with a normal-closure frame and resets the
// session to idle. Safe to call multiple times, in any state.
func (s *Session) Disconnect() {
	s.mu.Lock()
	conn := s.conn
	s.conn = nil
	s.mu.Unlock()

	if conn != nil {
		deadline := time.Now().Add(time.Second)
		frame := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "room deactivated")
		if err := conn.WriteControl(websocket.CloseMessage, frame, deadline); err != nil {
			s.log.Debug("failed to write close frame", "error", err)
		}
		_ = conn.Close()
	}

	if State(s.state.Swap(int32(StateIdle))) == StateOpen {
		s.log.Info("disconnected")
		s.notify(Event{Kind: KindDisconnected})
	}
}

func (s *Session) readLoop(conn socket) {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			// A deliberate Disconnect already moved the state off open;
			// only a remote close or transport error lands the CAS.
			if s.state.CompareAndSwap(int32(StateOpen), int32(StateClosed)) {
				s.log.Info("connection closed", "error", err)
				s.notify(Event{Kind: KindDisconnected})
			}
			return
		}

		var msg models.Message
		if err := json.Unmarshal(data, &msg); err != nil {
			s.log.Warn("dropping malformed frame", "error", err)
			continue
		}

		s.notify(Event{Kind: KindMessage, Message: &msg})
	}
}

func (s *Session) endpoint() (string, error) {
	u, err := url.Parse(s.cfg.ServerURL)
	if err != nil {
		return "", err
	}

	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	u.Path = "/api/v1/ws"

	query := url.Values{}
	query.Set("room_id", s.cfg.RoomID)
	query.Set("username", s.cfg.Identity.Username)
	query.Set("token", s.cfg.Token)
	u.RawQuery = query.Encode()

	return u.String(), nil
}

func gorillaDialer(timeout time.Duration) Dialer {
	return func(ctx context.Context, endpoint string) (socket, error) {
		d := websocket.Dialer{HandshakeTimeout: timeout}
		conn, resp, err := d.DialContext(ctx, endpoint, nil)
		if err != nil {
			if resp != nil && resp.Body != nil {
				_ = resp.Body.Close()
			}
			return nil, err
		}
		return conn, nil
	}
}
