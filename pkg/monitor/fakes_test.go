package monitor

import (
	"context"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/go-go-golems/trainmon/pkg/protocol"
	"github.com/go-go-golems/trainmon/pkg/sse"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu      sync.Mutex
	now     time.Time
	timers  []*fakeTimer
	created chan *fakeTimer
}

func newFakeClock() *fakeClock {
	return &fakeClock{
		now:     time.Date(2026, 10, 18, 9, 30, 5, 0, time.Local),
		created: make(chan *fakeTimer, 64),
	}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) NewTimer(d time.Duration) Timer {
	t := &fakeTimer{d: d, c: make(chan time.Time, 1), clock: c}
	c.mu.Lock()
	c.timers = append(c.timers, t)
	c.mu.Unlock()
	c.created <- t
	return t
}

// Pending counts timers that were neither fired nor stopped.
func (c *fakeClock) Pending() int {
	c.mu.Lock()
	timers := append([]*fakeTimer(nil), c.timers...)
	c.mu.Unlock()
	n := 0
	for _, t := range timers {
		t.mu.Lock()
		if !t.fired && !t.stopped {
			n++
		}
		t.mu.Unlock()
	}
	return n
}

func (c *fakeClock) nextTimer(t *testing.T) *fakeTimer {
	t.Helper()
	select {
	case tm := <-c.created:
		return tm
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for a reconnect timer")
		return nil
	}
}

type fakeTimer struct {
	mu      sync.Mutex
	d       time.Duration
	c       chan time.Time
	clock   *fakeClock
	fired   bool
	stopped bool
}

func (t *fakeTimer) C() <-chan time.Time { return t.c }

func (t *fakeTimer) Stop() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.fired || t.stopped {
		return false
	}
	t.stopped = true
	return true
}

func (t *fakeTimer) Fire() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.fired || t.stopped {
		return
	}
	t.fired = true
	t.c <- t.clock.Now()
}

type fakeTransport struct {
	mu        sync.Mutex
	opens     int
	failFirst int
	failAll   bool
	// blockOpen makes Open hang until its context is canceled.
	blockOpen bool
	blocked   chan struct{}
	live      map[*fakeStream]bool
	streams   chan *fakeStream
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{
		live:    map[*fakeStream]bool{},
		streams: make(chan *fakeStream, 64),
		blocked: make(chan struct{}, 64),
	}
}

func (f *fakeTransport) Open(ctx context.Context) (Stream, error) {
	f.mu.Lock()
	f.opens++
	n := f.opens
	fail := f.failAll || n <= f.failFirst
	block := f.blockOpen
	f.mu.Unlock()

	if block {
		f.blocked <- struct{}{}
		<-ctx.Done()
		return nil, ctx.Err()
	}

	if fail {
		return nil, errors.New("connection refused")
	}
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	s := &fakeStream{
		ctx:       ctx,
		events:    make(chan sse.Event, 64),
		errs:      make(chan error, 1),
		closed:    make(chan struct{}),
		transport: f,
	}
	f.mu.Lock()
	f.live[s] = true
	f.mu.Unlock()
	f.streams <- s
	return s, nil
}

func (f *fakeTransport) waitBlocked(t *testing.T) {
	t.Helper()
	select {
	case <-f.blocked:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for a blocked open")
	}
}

func (f *fakeTransport) Opens() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.opens
}

// OpenStreams counts streams handed out and not yet closed.
func (f *fakeTransport) OpenStreams() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.live)
}

func (f *fakeTransport) nextStream(t *testing.T) *fakeStream {
	t.Helper()
	select {
	case s := <-f.streams:
		return s
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for a stream to open")
		return nil
	}
}

type fakeStream struct {
	ctx       context.Context
	events    chan sse.Event
	errs      chan error
	closed    chan struct{}
	closeOnce sync.Once
	transport *fakeTransport
}

func (s *fakeStream) Next() (sse.Event, error) {
	select {
	case ev := <-s.events:
		return ev, nil
	case err := <-s.errs:
		return sse.Event{}, err
	case <-s.closed:
		return sse.Event{}, io.ErrClosedPipe
	case <-s.ctx.Done():
		return sse.Event{}, s.ctx.Err()
	}
}

func (s *fakeStream) Close() error {
	s.closeOnce.Do(func() {
		close(s.closed)
		s.transport.mu.Lock()
		delete(s.transport.live, s)
		s.transport.mu.Unlock()
	})
	return nil
}

func (s *fakeStream) send(data string) {
	s.events <- sse.Event{Type: sse.DefaultEventType, Data: data}
}

func (s *fakeStream) fail(err error) {
	s.errs <- err
}

type recordingHandler struct {
	mu          sync.Mutex
	transitions []Transition
	steps       []protocol.TrainingStep
	malformed   []string
}

func (h *recordingHandler) HandleTransition(t Transition) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.transitions = append(h.transitions, t)
}

func (h *recordingHandler) HandleStep(step protocol.TrainingStep) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.steps = append(h.steps, step)
}

func (h *recordingHandler) HandleMalformed(data string, err error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.malformed = append(h.malformed, data)
}

func (h *recordingHandler) states() []ConnectorState {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]ConnectorState, 0, len(h.transitions))
	for _, t := range h.transitions {
		out = append(out, t.To)
	}
	return out
}

func (h *recordingHandler) stepCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.steps)
}

func (h *recordingHandler) malformedCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.malformed)
}

func eventually(t *testing.T, cond func() bool, msg string) {
	t.Helper()
	require.Eventually(t, cond, 2*time.Second, 5*time.Millisecond, msg)
}
