package monitor

import (
	"context"
	"io"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/go-go-golems/trainmon/pkg/protocol"
	"github.com/go-go-golems/trainmon/pkg/sse"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

type ConnectorState string

const (
	StateIdle         ConnectorState = "idle"
	StateConnecting   ConnectorState = "connecting"
	StateConnected    ConnectorState = "connected"
	StateReconnecting ConnectorState = "reconnecting"
	StateExhausted    ConnectorState = "exhausted"
)

type ConnectionState string

const (
	ConnectionConnecting   ConnectionState = "connecting"
	ConnectionConnected    ConnectionState = "connected"
	ConnectionDisconnected ConnectionState = "disconnected"
)

func (s ConnectorState) Connection() ConnectionState {
	switch s {
	case StateConnecting:
		return ConnectionConnecting
	case StateConnected:
		return ConnectionConnected
	default:
		return ConnectionDisconnected
	}
}

// Transition describes one state change. Attempt and Delay are set when entering Reconnecting;
// Err carries the stream error that caused Reconnecting or Exhausted.
type Transition struct {
	From       ConnectorState
	To         ConnectorState
	Attempt    int
	MaxRetries int
	Delay      time.Duration
	Err        error
}

// Handler receives everything the connector observes, in order, from the connector's goroutine.
type Handler interface {
	HandleTransition(t Transition)
	HandleStep(step protocol.TrainingStep)
	HandleMalformed(data string, err error)
}

type ConnectorOptions struct {
	Transport Transport
	Clock     Clock
	Backoff   Backoff
	Handler   Handler
}

// Connector keeps one live event stream open while Run is active and reconnects with backoff.
type Connector struct {
	transport Transport
	clock     Clock
	backoff   Backoff
	handler   Handler

	mu    sync.RWMutex
	state ConnectorState
}

var ErrExhausted = errors.New("maximum retry attempts reached")

var errStreamEnded = errors.New("stream closed by server")

func NewConnector(opts ConnectorOptions) *Connector {
	if opts.Clock == nil {
		opts.Clock = SystemClock{}
	}
	if opts.Backoff == (Backoff{}) {
		opts.Backoff = DefaultBackoff()
	}
	return &Connector{
		transport: opts.Transport,
		clock:     opts.Clock,
		backoff:   opts.Backoff,
		handler:   opts.Handler,
		state:     StateIdle,
	}
}

func (c *Connector) State() ConnectorState {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

// Reset returns an exhausted connector to Idle. It is a no-op in any other state, and must not
// be called while Run is active.
func (c *Connector) Reset() {
	c.mu.Lock()
	if c.state != StateExhausted {
		c.mu.Unlock()
		return
	}
	c.mu.Unlock()
	c.transition(Transition{To: StateIdle})
}

// handle owns the resources of one activation. release runs on every exit path of Run.
type handle struct {
	stream Stream
	timer  Timer
}

func (h *handle) closeStream() {
	if h.stream != nil {
		_ = h.stream.Close()
		h.stream = nil
	}
}

func (h *handle) stopTimer() {
	if h.timer != nil {
		h.timer.Stop()
		h.timer = nil
	}
}

func (h *handle) release() {
	h.closeStream()
	h.stopTimer()
}

// Run drives Idle → Connecting → Connected ⇄ Reconnecting until ctx is canceled (returns nil,
// state back to Idle) or the retry budget is spent (returns ErrExhausted, state Exhausted).
func (c *Connector) Run(ctx context.Context) error {
	if c.transport == nil {
		return errors.New("missing transport")
	}

	h := &handle{}
	defer h.release()

	c.transition(Transition{To: StateConnecting})

	policy := c.backoff.NewPolicy()
	retry := 0
	for {
		err := c.connectOnce(ctx, h, policy, &retry)
		h.closeStream()

		if ctx.Err() != nil {
			c.transition(Transition{To: StateIdle})
			return nil
		}

		delay := policy.NextBackOff()
		if delay == backoff.Stop {
			c.transition(Transition{To: StateExhausted, Attempt: retry, MaxRetries: c.backoff.MaxRetries, Err: err})
			return errors.Wrap(ErrExhausted, err.Error())
		}

		retry++
		c.transition(Transition{To: StateReconnecting, Attempt: retry, MaxRetries: c.backoff.MaxRetries, Delay: delay, Err: err})
		log.Debug().Err(err).Int("attempt", retry).Dur("delay", delay).Msg("stream reconnect scheduled")

		h.timer = c.clock.NewTimer(delay)
		select {
		case <-ctx.Done():
			h.stopTimer()
			c.transition(Transition{To: StateIdle})
			return nil
		case <-h.timer.C():
			h.timer = nil
		}

		c.transition(Transition{To: StateConnecting, Attempt: retry, MaxRetries: c.backoff.MaxRetries})
	}
}

// connectOnce opens a stream and consumes it until it fails. It always returns a non-nil error.
func (c *Connector) connectOnce(ctx context.Context, h *handle, policy backoff.BackOff, retry *int) error {
	h.closeStream()

	stream, err := c.transport.Open(ctx)
	if err != nil {
		return err
	}
	h.stream = stream

	policy.Reset()
	*retry = 0
	c.transition(Transition{To: StateConnected})

	for {
		ev, err := stream.Next()
		if err != nil {
			if err == io.EOF {
				return errStreamEnded
			}
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		c.dispatch(ev)
	}
}

func (c *Connector) dispatch(ev sse.Event) {
	if ev.Type != sse.DefaultEventType {
		log.Debug().Str("event", ev.Type).Msg("ignoring named stream event")
		return
	}
	step, err := protocol.DecodeStep([]byte(ev.Data))
	if err != nil {
		log.Warn().Err(err).Str("data", ev.Data).Msg("malformed step payload")
		if c.handler != nil {
			c.handler.HandleMalformed(ev.Data, err)
		}
		return
	}
	if c.handler != nil {
		c.handler.HandleStep(step)
	}
}

func (c *Connector) transition(t Transition) {
	c.mu.Lock()
	t.From = c.state
	c.state = t.To
	c.mu.Unlock()

	if c.handler != nil {
		c.handler.HandleTransition(t)
	}
}
