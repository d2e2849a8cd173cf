package monitor

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/go-go-golems/trainmon/pkg/api"
	"github.com/go-go-golems/trainmon/pkg/artifact"
	"github.com/go-go-golems/trainmon/pkg/protocol"
	"github.com/go-go-golems/trainmon/pkg/state"
	"github.com/rs/zerolog/log"
)

// FinalStepName is the label of the last pipeline stage; its completion means the artifact exists.
const FinalStepName = "Finalizing results..."

type ChangeKind string

const (
	ChangeStep       ChangeKind = "step"
	ChangeLog        ChangeKind = "log"
	ChangeConnection ChangeKind = "connection"
	ChangeTraining   ChangeKind = "training"
	ChangeComplete   ChangeKind = "complete"
	ChangeDownload   ChangeKind = "download"
	ChangeDataset    ChangeKind = "dataset"
)

type Change struct {
	Kind       ChangeKind
	At         time.Time
	Step       *protocol.TrainingStep
	Entry      *LogEntry
	Transition *Transition
}

// Notifier is called synchronously, in mutation order. It may read the session (Snapshot)
// but must not mutate it.
type Notifier interface {
	Notify(c Change)
}

type NotifierFunc func(c Change)

func (f NotifierFunc) Notify(c Change) { f(c) }

type ResultsFetcher interface {
	FetchModelResults(ctx context.Context) ([]api.ModelResult, error)
}

type SessionOptions struct {
	Transport Transport
	Clock     Clock
	Backoff   Backoff

	// Results is consulted once on Start; nil skips the check.
	Results ResultsFetcher
	// StateDir holds the stored dataset selection; empty skips loading it.
	StateDir string

	DownloadURL func(id int) string
	Saver       artifact.Saver

	Notifier Notifier
}

type Snapshot struct {
	State       ConnectorState          `json:"state"`
	Connection  ConnectionState         `json:"connection"`
	Training    bool                    `json:"training"`
	Complete    bool                    `json:"complete"`
	Downloading bool                    `json:"downloading"`
	Dataset     state.SelectedDataset   `json:"dataset"`
	Steps       []protocol.TrainingStep `json:"steps"`
	Progress    Progress                `json:"progress"`
	Log         []LogEntry              `json:"log"`
}

// Session is one monitoring session: it owns the registry, the log and the single connector
// activation. Close releases everything and must be called on every exit path.
type Session struct {
	opts       SessionOptions
	clock      Clock
	registry   *Registry
	log        *Log
	connector  *Connector
	downloader *artifact.Downloader

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	// toggleMu serializes activation changes so at most one connector goroutine exists.
	toggleMu sync.Mutex
	active   *activation

	// notifyMu keeps mutation order and notification order identical.
	notifyMu sync.Mutex

	mu          sync.RWMutex
	training    bool
	complete    bool
	downloading bool
	dataset     state.SelectedDataset

	startOnce sync.Once
	closeOnce sync.Once
}

type activation struct {
	cancel context.CancelFunc
	done   chan struct{}
}

func (a *activation) stop() {
	a.cancel()
	<-a.done
}

func NewSession(opts SessionOptions) *Session {
	if opts.Clock == nil {
		opts.Clock = SystemClock{}
	}
	ctx, cancel := context.WithCancel(context.Background())
	s := &Session{
		opts:     opts,
		clock:    opts.Clock,
		registry: NewRegistry(),
		log:      NewLog(opts.Clock.Now),
		ctx:      ctx,
		cancel:   cancel,
	}
	s.connector = NewConnector(ConnectorOptions{
		Transport: opts.Transport,
		Clock:     opts.Clock,
		Backoff:   opts.Backoff,
		Handler:   sessionHandler{s: s},
	})
	if opts.DownloadURL != nil {
		s.downloader = artifact.NewDownloader(opts.DownloadURL, opts.Saver, s)
	}
	return s
}

func (s *Session) Registry() *Registry { return s.registry }

func (s *Session) Log() *Log { return s.log }

func (s *Session) ConnectorState() ConnectorState { return s.connector.State() }

// Start runs the one-time setup: load the dataset selection and check for prior results.
// When ctx is canceled the session is closed.
func (s *Session) Start(ctx context.Context) {
	s.startOnce.Do(func() {
		s.loadDataset()

		if s.opts.Results != nil {
			s.wg.Add(1)
			go func() {
				defer s.wg.Done()
				s.checkPriorResults()
			}()
		}

		go func() {
			select {
			case <-ctx.Done():
				s.Close()
			case <-s.ctx.Done():
			}
		}()
	})
}

func (s *Session) loadDataset() {
	if s.opts.StateDir == "" {
		return
	}
	d, err := state.LoadSelectedDataset(s.opts.StateDir)
	if err != nil {
		log.Error().Err(err).Str("dir", s.opts.StateDir).Msg("error parsing stored dataset")
		s.Append(fmt.Sprintf("Error parsing stored dataset: %s", err.Error()))
		return
	}
	if d.ID != nil {
		log.Info().Int("dataset_id", *d.ID).Msg("dataset loaded")
	}
	s.mutate(func() Change {
		s.dataset = d
		return Change{Kind: ChangeDataset}
	})
}

func (s *Session) checkPriorResults() {
	log.Debug().Msg("fetching model results")
	results, err := s.opts.Results.FetchModelResults(s.ctx)
	if err != nil {
		if s.ctx.Err() != nil {
			return
		}
		log.Warn().Err(err).Msg("could not fetch model results")
		s.Append(fmt.Sprintf("Could not check for previous results: %s", err.Error()))
		return
	}
	if len(results) > 0 {
		s.markComplete()
	}
}

// SetTraining activates or deactivates the stream connector. Deactivation returns only after
// the stream is closed and any pending reconnect timer is stopped.
func (s *Session) SetTraining(on bool) {
	s.toggleMu.Lock()
	defer s.toggleMu.Unlock()

	s.mu.RLock()
	unchanged := s.training == on
	s.mu.RUnlock()
	if unchanged {
		return
	}

	if on {
		if s.ctx.Err() != nil {
			return
		}
		ctx, cancel := context.WithCancel(s.ctx)
		act := &activation{cancel: cancel, done: make(chan struct{})}
		s.active = act
		s.mutate(func() Change {
			s.training = true
			return Change{Kind: ChangeTraining}
		})
		go func() {
			defer close(act.done)
			if err := s.connector.Run(ctx); err != nil {
				log.Warn().Err(err).Msg("stream connector stopped")
			}
		}()
		return
	}

	if s.active != nil {
		s.active.stop()
		s.active = nil
	}
	s.connector.Reset()
	s.mutate(func() Change {
		s.training = false
		return Change{Kind: ChangeTraining}
	})
}

func (s *Session) Training() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.training
}

func (s *Session) Complete() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.complete
}

func (s *Session) markComplete() {
	s.mu.RLock()
	already := s.complete
	s.mu.RUnlock()
	if already {
		return
	}
	s.mutate(func() Change {
		s.complete = true
		return Change{Kind: ChangeComplete}
	})
}

// Download fetches the artifact for the selected dataset. It refuses while training is not
// complete or another download is running.
func (s *Session) Download(ctx context.Context) bool {
	if s.downloader == nil {
		s.Append("Error downloading model: downloads are not configured")
		return false
	}

	var (
		refused string
		id      *int
	)
	s.mutate(func() Change {
		switch {
		case !s.complete:
			refused = "Model is not ready for download yet"
		case s.downloading:
			refused = "A download is already in progress"
		default:
			s.downloading = true
			id = s.dataset.ID
		}
		return Change{Kind: ChangeDownload}
	})
	if refused != "" {
		s.Append(refused)
		return false
	}

	defer s.mutate(func() Change {
		s.downloading = false
		return Change{Kind: ChangeDownload}
	})
	return s.downloader.Download(ctx, id)
}

// Append adds a timestamped line to the session log.
func (s *Session) Append(message string) {
	s.notifyMu.Lock()
	defer s.notifyMu.Unlock()

	e := s.log.Append(message)
	log.Debug().Str("component", "monitor").Msg(e.String())
	s.notify(Change{Kind: ChangeLog, At: e.At, Entry: &e})
}

func (s *Session) Snapshot() Snapshot {
	s.mu.RLock()
	snap := Snapshot{
		Training:    s.training,
		Complete:    s.complete,
		Downloading: s.downloading,
		Dataset:     s.dataset,
	}
	s.mu.RUnlock()

	snap.State = s.connector.State()
	snap.Connection = snap.State.Connection()
	snap.Steps = s.registry.Steps()
	snap.Progress = s.registry.Progress()
	snap.Log = s.log.Entries()
	return snap
}

// Close is the single teardown routine: it stops the connector, cancels the prior-results
// check and waits for both.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		s.SetTraining(false)
		s.cancel()
		s.wg.Wait()
	})
}

func (s *Session) mutate(fn func() Change) {
	s.notifyMu.Lock()
	defer s.notifyMu.Unlock()

	s.mu.Lock()
	c := fn()
	s.mu.Unlock()

	c.At = s.clock.Now()
	s.notify(c)
}

func (s *Session) notify(c Change) {
	if s.opts.Notifier != nil {
		s.opts.Notifier.Notify(c)
	}
}

// sessionHandler keeps the connector callbacks off Session's public surface.
type sessionHandler struct {
	s *Session
}

func (h sessionHandler) HandleTransition(t Transition) {
	s := h.s
	s.notifyMu.Lock()
	tt := t
	s.notify(Change{Kind: ChangeConnection, At: s.clock.Now(), Transition: &tt})
	s.notifyMu.Unlock()

	switch t.To {
	case StateConnected:
		s.Append("Connected to SSE stream")
	case StateReconnecting:
		s.Append(fmt.Sprintf("SSE connection error. Retrying in %gs (%d/%d)", t.Delay.Seconds(), t.Attempt, t.MaxRetries))
	case StateExhausted:
		s.Append("Maximum retry attempts reached. Restart the monitor to reconnect.")
	case StateIdle:
		if t.From == StateConnected {
			s.Append("Disconnected from SSE stream")
		}
	}
}

func (h sessionHandler) HandleStep(step protocol.TrainingStep) {
	s := h.s
	s.notifyMu.Lock()
	s.registry.Apply(step)
	st := step
	s.notify(Change{Kind: ChangeStep, At: s.clock.Now(), Step: &st})
	s.notifyMu.Unlock()

	s.Append(fmt.Sprintf("%s %s: %s", statusMarker(step.Status), step.Name, step.Status))

	if step.Status == protocol.StepCompleted && strings.EqualFold(strings.TrimSpace(step.Name), FinalStepName) {
		s.markComplete()
	}
}

func (h sessionHandler) HandleMalformed(data string, err error) {
	h.s.Append(fmt.Sprintf("Error parsing SSE message: %s", err.Error()))
}

func statusMarker(st protocol.StepStatus) string {
	switch st {
	case protocol.StepCompleted:
		return "✓"
	case protocol.StepProcessing:
		return "▶"
	case protocol.StepError:
		return "✗"
	default:
		return "○"
	}
}
