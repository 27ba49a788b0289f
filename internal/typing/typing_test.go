package typing

import (
	"sync"
	"testing"
	"time"

	"boltalka/internal/models"
)

type mockTransport struct {
	mu    sync.Mutex
	open  bool
	sends []models.EventType
}

func (m *mockTransport) IsOpen() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.open
}

func (m *mockTransport) Send(content string, typ models.EventType) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sends = append(m.sends, typ)
}

func (m *mockTransport) sendCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sends)
}

func TestNotifyActivity_LeadingEdgeDebounce(t *testing.T) {
	tr := &mockTransport{open: true}
	c := New(tr, 50*time.Millisecond)
	defer c.Stop()

	// Three activities within the interval: exactly one event.
	c.NotifyActivity()
	time.Sleep(15 * time.Millisecond)
	c.NotifyActivity()
	time.Sleep(15 * time.Millisecond)
	c.NotifyActivity()

	if got := tr.sendCount(); got != 1 {
		t.Fatalf("expected 1 typing event, got %d", got)
	}
	if !c.IsTyping() {
		t.Error("flag should still be set")
	}

	// Let the timer fire, then a fresh activity emits again.
	time.Sleep(80 * time.Millisecond)
	if c.IsTyping() {
		t.Error("flag should have been cleared by the timer")
	}

	c.NotifyActivity()
	if got := tr.sendCount(); got != 2 {
		t.Errorf("expected 2 typing events, got %d", got)
	}
}

func TestNotifyActivity_TimerRearmed(t *testing.T) {
	tr := &mockTransport{open: true}
	c := New(tr, 50*time.Millisecond)
	defer c.Stop()

	// Keep the timer re-armed past the original deadline.
	c.NotifyActivity()
	time.Sleep(30 * time.Millisecond)
	c.NotifyActivity()
	time.Sleep(30 * time.Millisecond)

	// 60ms after the first activity but only 30ms after the last: the
	// original timer must not have fired.
	if !c.IsTyping() {
		t.Error("flag cleared by a stale timer")
	}
	if got := tr.sendCount(); got != 1 {
		t.Errorf("expected 1 typing event, got %d", got)
	}
}

func TestNotifyActivity_NotOpen(t *testing.T) {
	tr := &mockTransport{open: false}
	c := New(tr, 50*time.Millisecond)
	defer c.Stop()

	c.NotifyActivity()

	if got := tr.sendCount(); got != 0 {
		t.Errorf("expected no typing events, got %d", got)
	}
	if c.IsTyping() {
		t.Error("flag set while transport closed")
	}
}

func TestStop_CancelsTimer(t *testing.T) {
	tr := &mockTransport{open: true}
	c := New(tr, 50*time.Millisecond)

	c.NotifyActivity()
	c.Stop()

	if c.IsTyping() {
		t.Error("flag survived Stop")
	}

	// The cancelled timer must not fire against the controller.
	time.Sleep(80 * time.Millisecond)

	c.NotifyActivity()
	if got := tr.sendCount(); got != 2 {
		t.Errorf("expected 2 typing events, got %d", got)
	}
	c.Stop()
}
