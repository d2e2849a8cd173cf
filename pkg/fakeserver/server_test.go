package fakeserver

import (
	"context"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/go-go-golems/trainmon/pkg/api"
	"github.com/go-go-golems/trainmon/pkg/artifact"
	"github.com/go-go-golems/trainmon/pkg/monitor"
	"github.com/go-go-golems/trainmon/pkg/protocol"
	"github.com/go-go-golems/trainmon/pkg/state"
	"github.com/stretchr/testify/require"
)

func TestFrame(t *testing.T) {
	f, err := Frame("", map[string]int{"id": 1})
	require.NoError(t, err)
	require.Equal(t, "data: {\"id\":1}\n\n", f)

	f, err = Frame("connected", map[string]string{"message": "hi"})
	require.NoError(t, err)
	require.Equal(t, "event: connected\ndata: {\"message\":\"hi\"}\n\n", f)
}

func TestPublish_RejectsUnknownStatus(t *testing.T) {
	s := New(Options{})
	err := s.Publish(protocol.TrainingStep{ID: 1, Name: "Ridge", Status: "paused"})
	require.Error(t, err)
	require.Contains(t, err.Error(), protocol.ErrUnknownStatus)
}

func TestResultsAndDownload_BeforeAndAfterFinish(t *testing.T) {
	s := New(Options{Models: []string{"Preparing data...", "Ridge", "Finalizing results..."}, Interval: time.Millisecond})
	srv := httptest.NewServer(s.Handler())
	defer srv.Close()

	client := api.NewClient(srv.URL)
	results, err := client.FetchModelResults(context.Background())
	require.NoError(t, err)
	require.Empty(t, results)

	saver := &artifact.HTTPSaver{Dir: t.TempDir()}
	err = saver.Save(context.Background(), artifact.Request{ID: 3, URL: client.DownloadURL(3), Filename: artifact.Filename(3)})
	require.Error(t, err)
	require.Contains(t, err.Error(), "404")

	require.NoError(t, s.Run(context.Background()))

	results, err = client.FetchModelResults(context.Background())
	require.NoError(t, err)
	require.Len(t, results, 1)
	require.Equal(t, "Ridge", results[0].ModelName)
	_, err = results[0].CreatedTime()
	require.NoError(t, err)

	require.NoError(t, saver.Save(context.Background(), artifact.Request{ID: 3, URL: client.DownloadURL(3), Filename: artifact.Filename(3)}))
	body, err := os.ReadFile(filepath.Join(saver.Dir, "model-3.pkl"))
	require.NoError(t, err)
	require.Equal(t, s.opts.Artifact, body)
}

func TestSessionAgainstFakeServer(t *testing.T) {
	models := []string{"Preparing data...", "Ridge", "Lasso", "Finalizing results..."}
	s := New(Options{Models: models, Interval: 2 * time.Millisecond, Fail: []string{"Lasso"}, WaitForClient: true})
	srv := httptest.NewServer(s.Handler())
	defer srv.Close()

	stateDir := t.TempDir()
	id := 7
	require.NoError(t, state.SaveSelectedDataset(stateDir, state.SelectedDataset{ID: &id}))

	client := api.NewClient(srv.URL)
	outDir := t.TempDir()
	sess := monitor.NewSession(monitor.SessionOptions{
		Transport:   monitor.NewHTTPTransport(client.StreamURL(), nil),
		Results:     client,
		StateDir:    stateDir,
		DownloadURL: client.DownloadURL,
		Saver:       &artifact.HTTPSaver{Client: client.HTTPClient(), Dir: outDir},
	})
	defer sess.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sess.Start(ctx)
	sess.SetTraining(true)

	runErr := make(chan error, 1)
	go func() { runErr <- s.Run(ctx) }()

	require.Eventually(t, sess.Complete, 5*time.Second, 5*time.Millisecond)
	require.NoError(t, <-runErr)

	snap := sess.Snapshot()
	require.Len(t, snap.Steps, len(models))
	require.Equal(t, protocol.StepError, snap.Steps[2].Status)
	require.Equal(t, 100, snap.Progress.Percent)
	require.Equal(t, 1, snap.Progress.Failed)
	require.Equal(t, monitor.ConnectionConnected, snap.Connection)

	require.True(t, sess.Download(context.Background()))
	_, err := os.Stat(filepath.Join(outDir, "model-7.pkl"))
	require.NoError(t, err)

	sess.SetTraining(false)
	require.Eventually(t, func() bool { return s.Broker().Clients() == 0 }, 5*time.Second, 5*time.Millisecond)
}

func TestSessionReconnectsAfterServerDrop(t *testing.T) {
	s := New(Options{})
	srv := httptest.NewServer(s.Handler())
	defer srv.Close()

	client := api.NewClient(srv.URL)
	sess := monitor.NewSession(monitor.SessionOptions{
		Transport: monitor.NewHTTPTransport(client.StreamURL(), nil),
		Backoff:   monitor.Backoff{Base: 5 * time.Millisecond, Max: 20 * time.Millisecond, MaxRetries: 3},
	})
	defer sess.Close()
	sess.SetTraining(true)

	require.Eventually(t, func() bool { return s.Broker().Clients() == 1 }, 5*time.Second, 5*time.Millisecond)
	s.Broker().DisconnectAll()

	require.Eventually(t, func() bool {
		n := 0
		for _, line := range sess.Log().Lines() {
			if strings.Contains(line, "Connected to SSE stream") {
				n++
			}
		}
		return n == 2
	}, 5*time.Second, 5*time.Millisecond)
	require.Equal(t, monitor.StateConnected, sess.ConnectorState())
}
