package typing

import (
	"sync"
	"time"

	"boltalka/internal/models"
)

const (
	DefaultInterval = 3 * time.Second

	indicatorContent = "is typing..."
)

type transport interface {
	IsOpen() bool
	Send(content string, typ models.EventType)
}

// Controller debounces local typing activity on the leading edge: the first
// keystroke emits a typing event immediately, repeats are suppressed until
// the interval passes with no further activity. The remote side sees
// "is typing" promptly instead of after a pause.
type Controller struct {
	session  transport
	interval time.Duration

	mu     sync.Mutex
	timer  *time.Timer
	typing bool
}

func New(session transport, interval time.Duration) *Controller {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Controller{
		session:  session,
		interval: interval,
	}
}

// NotifyActivity is called on every local input change. No-op while the
// transport is not open. Each call re-arms the single reset timer; there is
// never more than one outstanding.
func (c *Controller) NotifyActivity() {
	if !c.session.IsOpen() {
		return
	}

	c.mu.Lock()
	first := !c.typing
	c.typing = true
	if c.timer != nil {
		c.timer.Stop()
	}
	c.timer = time.AfterFunc(c.interval, c.expire)
	c.mu.Unlock()

	if first {
		c.session.Send(indicatorContent, models.EventTyping)
	}
}

func (c *Controller) IsTyping() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.typing
}

// Stop cancels the outstanding timer and clears the flag. Must be called on
// teardown so the callback cannot fire against a disposed session.
func (c *Controller) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
	c.typing = false
}

func (c *Controller) expire() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.typing = false
	c.timer = nil
}
