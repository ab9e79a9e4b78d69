package application

import (
	"context"
	"encoding/json"
	"sync"
	"sync/atomic"
	"time"

	"github.com/bnema/whitebunny-cli/internal/domain"
)

// fakeClock fires every timer immediately unless its duration is held, and
// records the requested waits.
type fakeClock struct {
	mu    sync.Mutex
	now   time.Time
	waits []time.Duration
	held  map[time.Duration]bool
}

func newFakeClock(held ...time.Duration) *fakeClock {
	c := &fakeClock{
		now:  time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
		held: map[time.Duration]bool{},
	}
	for _, d := range held {
		c.held[d] = true
	}
	return c
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) After(d time.Duration) <-chan time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.waits = append(c.waits, d)
	ch := make(chan time.Time, 1)
	if !c.held[d] {
		c.now = c.now.Add(d)
		ch <- c.now
	}
	return ch
}

func (c *fakeClock) Waits() []time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]time.Duration(nil), c.waits...)
}

type emitted struct {
	Event   string
	Payload string
}

// fakeTransport is an in-memory session. connect decides the outcome of each
// Connect call; a nil hook always succeeds.
type fakeTransport struct {
	mu        sync.Mutex
	state     domain.ConnectionState
	endpoints []string
	emits     []emitted
	connect   func(ctx context.Context, endpoint string) error
	onEmit    func(event string, payload any)
	closed    atomic.Int64
}

func (t *fakeTransport) State() domain.ConnectionState {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

func (t *fakeTransport) setState(state domain.ConnectionState) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.state = state
}

func (t *fakeTransport) Emit(event string, payload any) bool {
	t.mu.Lock()
	if t.state != domain.StateOpen {
		t.mu.Unlock()
		return false
	}
	raw := ""
	if payload != nil {
		data, _ := json.Marshal(payload)
		raw = string(data)
	}
	t.emits = append(t.emits, emitted{Event: event, Payload: raw})
	hook := t.onEmit
	t.mu.Unlock()

	if hook != nil {
		hook(event, payload)
	}
	return true
}

func (t *fakeTransport) Connect(ctx context.Context, endpoint string) (domain.Session, error) {
	t.mu.Lock()
	t.endpoints = append(t.endpoints, endpoint)
	hook := t.connect
	t.mu.Unlock()

	if hook != nil {
		if err := hook(ctx, endpoint); err != nil {
			return domain.Session{}, err
		}
	}

	t.setState(domain.StateOpen)
	return domain.Session{Endpoint: endpoint, ID: "sid-" + endpoint}, nil
}

func (t *fakeTransport) Close() error {
	t.closed.Add(1)
	t.setState(domain.StateDisconnected)
	return nil
}

func (t *fakeTransport) Endpoints() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]string(nil), t.endpoints...)
}

func (t *fakeTransport) Emits(event string) []emitted {
	t.mu.Lock()
	defer t.mu.Unlock()
	var out []emitted
	for _, e := range t.emits {
		if e.Event == event {
			out = append(out, e)
		}
	}
	return out
}

type fakeReconnector struct {
	ok    bool
	calls atomic.Int64
}

func (r *fakeReconnector) EnsureConnected(context.Context) bool {
	r.calls.Add(1)
	return r.ok
}

// scriptedViewer returns results in order and then repeats the last one.
type scriptedViewer struct {
	mu      sync.Mutex
	results []bool
	calls   int
	block   bool
}

func (v *scriptedViewer) View(ctx context.Context) bool {
	v.mu.Lock()
	v.calls++
	idx := v.calls - 1
	block := v.block
	var result bool
	if len(v.results) > 0 {
		if idx >= len(v.results) {
			idx = len(v.results) - 1
		}
		result = v.results[idx]
	}
	v.mu.Unlock()

	if block {
		<-ctx.Done()
		return false
	}
	return result
}

func (v *scriptedViewer) Calls() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.calls
}
