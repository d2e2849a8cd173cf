package monitor

import (
	"context"
	"os"
	"strings"
	"sync"
	"testing"

	"github.com/go-go-golems/trainmon/pkg/api"
	"github.com/go-go-golems/trainmon/pkg/artifact"
	"github.com/go-go-golems/trainmon/pkg/protocol"
	"github.com/go-go-golems/trainmon/pkg/state"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
)

type staticResults struct {
	results []api.ModelResult
	err     error
}

func (s staticResults) FetchModelResults(ctx context.Context) ([]api.ModelResult, error) {
	return s.results, s.err
}

type recordingSaver struct {
	mu   sync.Mutex
	reqs []artifact.Request
}

func (s *recordingSaver) Save(ctx context.Context, req artifact.Request) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reqs = append(s.reqs, req)
	return nil
}

type changeRecorder struct {
	mu      sync.Mutex
	changes []Change
}

func (r *changeRecorder) Notify(c Change) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.changes = append(r.changes, c)
}

func (r *changeRecorder) logTexts() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []string
	for _, c := range r.changes {
		if c.Kind == ChangeLog {
			out = append(out, c.Entry.Text)
		}
	}
	return out
}

func (r *changeRecorder) lastState() ConnectorState {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := len(r.changes) - 1; i >= 0; i-- {
		if c := r.changes[i]; c.Kind == ChangeConnection {
			return c.Transition.To
		}
	}
	return ""
}

func downloadURL(id int) string {
	return api.NewClient("http://localhost:8000").DownloadURL(id)
}

func newTestSession(t *testing.T, opts SessionOptions) (*Session, *fakeClock, *fakeTransport) {
	t.Helper()
	clock := newFakeClock()
	tr := newFakeTransport()
	if opts.Transport == nil {
		opts.Transport = tr
	}
	opts.Clock = clock
	s := NewSession(opts)
	t.Cleanup(s.Close)
	return s, clock, tr
}

func logContains(s *Session, sub string) bool {
	for _, e := range s.Log().Entries() {
		if strings.Contains(e.Text, sub) {
			return true
		}
	}
	return false
}

func TestSession_StepTransitionsApplyInOrder(t *testing.T) {
	s, _, tr := newTestSession(t, SessionOptions{})
	s.SetTraining(true)

	st := tr.nextStream(t)
	eventually(t, func() bool { return s.ConnectorState() == StateConnected }, "connected")

	st.send(`{"id":1,"name":"RandomForest","status":"processing","details":{}}`)
	st.send(`{"id":1,"name":"RandomForest","status":"completed","details":{"score":0.93}}`)
	eventually(t, func() bool { return s.Log().Len() == 3 }, "connected + two step lines")

	require.Equal(t, 1, s.Registry().Len())
	step, ok := s.Registry().Get(1)
	require.True(t, ok)
	require.Equal(t, protocol.StepCompleted, step.Status)

	entries := s.Log().Entries()
	require.Equal(t, "Connected to SSE stream", entries[0].Text)
	require.Equal(t, "▶ RandomForest: processing", entries[1].Text)
	require.Equal(t, "✓ RandomForest: completed", entries[2].Text)
	require.Equal(t, "[09:30:05] ✓ RandomForest: completed", entries[2].String())
}

func TestSession_MalformedPayloadAddsOneLine(t *testing.T) {
	s, _, tr := newTestSession(t, SessionOptions{})
	s.SetTraining(true)

	st := tr.nextStream(t)
	eventually(t, func() bool { return s.Log().Len() == 1 }, "connected line")

	st.send(`garbage`)
	eventually(t, func() bool { return s.Log().Len() == 2 }, "diagnostic line")
	st.send(`{"id":2,"name":"Lasso","status":"pending"}`)
	eventually(t, func() bool { return s.Log().Len() == 3 }, "step line")

	require.Equal(t, 1, s.Registry().Len())
	require.True(t, strings.HasPrefix(s.Log().Entries()[1].Text, "Error parsing SSE message"))
	require.Equal(t, StateConnected, s.ConnectorState())
	require.Equal(t, 1, tr.Opens())
}

func TestSession_DeactivateWhileConnectedReleasesStream(t *testing.T) {
	s, clock, tr := newTestSession(t, SessionOptions{})
	s.SetTraining(true)
	tr.nextStream(t)
	eventually(t, func() bool { return s.ConnectorState() == StateConnected }, "connected")

	s.SetTraining(false)

	require.Equal(t, 0, tr.OpenStreams())
	require.Equal(t, 0, clock.Pending())
	require.Equal(t, StateIdle, s.ConnectorState())
	require.False(t, s.Training())
	require.True(t, logContains(s, "Disconnected from SSE stream"))
}

func TestSession_DeactivateWhileReconnectPendingStopsTimer(t *testing.T) {
	tr := newFakeTransport()
	tr.failAll = true
	s, clock, _ := newTestSession(t, SessionOptions{Transport: tr})
	s.SetTraining(true)

	tm := clock.nextTimer(t)
	require.Equal(t, 1, clock.Pending())

	s.SetTraining(false)

	require.Equal(t, 0, clock.Pending())
	require.True(t, tm.stopped)
	require.Equal(t, 1, tr.Opens())
	require.Equal(t, 0, tr.OpenStreams())
	require.True(t, logContains(s, "Retrying in 2s (1/10)"))
}

func TestSession_CloseIsIdempotentAndFinal(t *testing.T) {
	s, clock, tr := newTestSession(t, SessionOptions{})
	s.SetTraining(true)
	tr.nextStream(t)

	s.Close()
	s.Close()
	require.Equal(t, 0, tr.OpenStreams())
	require.Equal(t, 0, clock.Pending())

	s.SetTraining(true)
	require.False(t, s.Training())
	require.Equal(t, 1, tr.Opens())
}

func TestSession_StartCancelClosesSession(t *testing.T) {
	s, _, tr := newTestSession(t, SessionOptions{})
	ctx, cancel := context.WithCancel(context.Background())
	s.Start(ctx)
	s.SetTraining(true)
	tr.nextStream(t)

	cancel()
	eventually(t, func() bool { return tr.OpenStreams() == 0 && !s.Training() }, "teardown on cancel")
}

func TestSession_ExhaustionLogsFinalLine(t *testing.T) {
	tr := newFakeTransport()
	tr.failAll = true
	s, clock, _ := newTestSession(t, SessionOptions{Transport: tr, Backoff: Backoff{Base: 1, Max: 4, MaxRetries: 2}})
	s.SetTraining(true)

	clock.nextTimer(t).Fire()
	clock.nextTimer(t).Fire()

	eventually(t, func() bool { return s.ConnectorState() == StateExhausted }, "exhausted")
	eventually(t, func() bool { return logContains(s, "Maximum retry attempts reached") }, "final line")
	require.Equal(t, 3, tr.Opens())
	require.Equal(t, ConnectionDisconnected, s.Snapshot().Connection)
}

func TestSession_DeactivateFromExhaustedReturnsToIdle(t *testing.T) {
	tr := newFakeTransport()
	tr.failAll = true
	rec := &changeRecorder{}
	s, clock, _ := newTestSession(t, SessionOptions{Transport: tr, Backoff: Backoff{Base: 1, Max: 4, MaxRetries: 1}, Notifier: rec})
	s.SetTraining(true)

	clock.nextTimer(t).Fire()
	eventually(t, func() bool { return s.ConnectorState() == StateExhausted }, "exhausted")

	s.SetTraining(false)

	snap := s.Snapshot()
	require.False(t, snap.Training)
	require.Equal(t, StateIdle, snap.State)
	require.Equal(t, ConnectionDisconnected, snap.Connection)
	require.Equal(t, 0, clock.Pending())
	require.Equal(t, 0, tr.OpenStreams())
	require.Equal(t, StateIdle, rec.lastState())

	tr.mu.Lock()
	tr.failAll = false
	tr.mu.Unlock()
	s.SetTraining(true)
	tr.nextStream(t)
	eventually(t, func() bool { return s.ConnectorState() == StateConnected }, "reconnected after reactivation")
}

func TestSession_DeactivateWhileConnectingCancelsOpen(t *testing.T) {
	tr := newFakeTransport()
	tr.blockOpen = true
	s, clock, _ := newTestSession(t, SessionOptions{Transport: tr})
	s.SetTraining(true)

	tr.waitBlocked(t)
	require.Equal(t, StateConnecting, s.ConnectorState())

	s.SetTraining(false)

	require.Equal(t, StateIdle, s.ConnectorState())
	require.False(t, s.Training())
	require.Equal(t, 1, tr.Opens())
	require.Equal(t, 0, tr.OpenStreams())
	require.Equal(t, 0, clock.Pending())
	require.False(t, logContains(s, "Retrying"))
}

func TestSession_PriorResultsEnableDownload(t *testing.T) {
	dir := t.TempDir()
	id := 42
	require.NoError(t, state.SaveSelectedDataset(dir, state.SelectedDataset{ID: &id}))

	saver := &recordingSaver{}
	rec := &changeRecorder{}
	s, _, _ := newTestSession(t, SessionOptions{
		Results:     staticResults{results: []api.ModelResult{{ModelName: "Ridge"}}},
		StateDir:    dir,
		DownloadURL: downloadURL,
		Saver:       saver,
		Notifier:    rec,
	})
	s.Start(context.Background())

	eventually(t, s.Complete, "complete from prior results")
	require.Equal(t, 42, *s.Snapshot().Dataset.ID)

	require.True(t, s.Download(context.Background()))
	require.Len(t, saver.reqs, 1)
	require.True(t, strings.HasSuffix(saver.reqs[0].URL, "/api/download-model/42/"))
	require.Equal(t, "model-42.pkl", saver.reqs[0].Filename)
	require.False(t, s.Snapshot().Downloading)
	require.Contains(t, rec.logTexts(), "Download started for model: 42")
}

func TestSession_DownloadRequiresID(t *testing.T) {
	saver := &recordingSaver{}
	s, _, _ := newTestSession(t, SessionOptions{
		Results:     staticResults{results: []api.ModelResult{{}}},
		DownloadURL: downloadURL,
		Saver:       saver,
	})
	s.Start(context.Background())
	eventually(t, s.Complete, "complete")

	require.False(t, s.Download(context.Background()))
	require.Empty(t, saver.reqs)
	require.True(t, logContains(s, "required"))
}

func TestSession_DownloadRefusedBeforeComplete(t *testing.T) {
	saver := &recordingSaver{}
	s, _, _ := newTestSession(t, SessionOptions{DownloadURL: downloadURL, Saver: saver})
	require.False(t, s.Download(context.Background()))
	require.Empty(t, saver.reqs)
	require.True(t, logContains(s, "not ready"))
}

func TestSession_FinalStepMarksComplete(t *testing.T) {
	s, _, tr := newTestSession(t, SessionOptions{Results: staticResults{}})
	s.Start(context.Background())
	s.SetTraining(true)
	st := tr.nextStream(t)

	st.send(`{"id":19,"name":"Finalizing results...","status":"processing"}`)
	eventually(t, func() bool { return s.Registry().Len() == 1 }, "processing applied")
	require.False(t, s.Complete())

	st.send(`{"id":19,"name":"Finalizing results...","status":"completed"}`)
	eventually(t, s.Complete, "complete after final step")
}

func TestSession_ResultsErrorIsLogged(t *testing.T) {
	s, _, _ := newTestSession(t, SessionOptions{Results: staticResults{err: errors.New("dial tcp: refused")}})
	s.Start(context.Background())
	eventually(t, func() bool { return logContains(s, "Could not check for previous results") }, "results error logged")
	require.False(t, s.Complete())
}

func TestSession_MalformedDatasetLeavesFieldsNil(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(state.SelectedDatasetPath(dir), []byte(`{"id":`), 0o644))

	s, _, _ := newTestSession(t, SessionOptions{StateDir: dir})
	s.Start(context.Background())

	snap := s.Snapshot()
	require.Nil(t, snap.Dataset.ID)
	require.Nil(t, snap.Dataset.Name)
	require.True(t, logContains(s, "Error parsing stored dataset"))
}

func TestSession_NullDatasetIsLogged(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(state.SelectedDatasetPath(dir), []byte(`null`), 0o644))

	s, _, _ := newTestSession(t, SessionOptions{StateDir: dir})
	s.Start(context.Background())

	require.Nil(t, s.Snapshot().Dataset.ID)
	require.True(t, logContains(s, "Error parsing stored dataset"))
}

func TestSession_NotificationsFollowMutationOrder(t *testing.T) {
	rec := &changeRecorder{}
	s, _, tr := newTestSession(t, SessionOptions{Notifier: rec})
	s.SetTraining(true)
	st := tr.nextStream(t)
	for _, status := range []string{"pending", "processing", "completed"} {
		st.send(`{"id":5,"name":"KNN","status":"` + status + `"}`)
	}
	eventually(t, func() bool { return len(rec.logTexts()) == 4 }, "all lines notified")

	var fromLog []string
	for _, e := range s.Log().Entries() {
		fromLog = append(fromLog, e.Text)
	}
	require.Equal(t, fromLog, rec.logTexts())
}
