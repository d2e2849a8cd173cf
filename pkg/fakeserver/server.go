// Package fakeserver is a stand-in for the training service: it replays a scripted training
// run over SSE and serves the results and download endpoints the monitor talks to.
package fakeserver

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/go-go-golems/trainmon/pkg/api"
	"github.com/go-go-golems/trainmon/pkg/artifact"
	"github.com/go-go-golems/trainmon/pkg/protocol"
	"github.com/rs/zerolog/log"
)

var DefaultModels = []string{
	"Preparing data...",
	"Ridge",
	"Lasso",
	"ElasticNet",
	"RandomForest",
	"GradientBoosting",
	"LogisticRegression",
	"XGBoost",
	"LightGBM",
	"CatBoost",
	"SVM",
	"SVR",
	"KNN",
	"DecisionTree",
	"NaiveBayes",
	"MLP",
	"ExtraTrees",
	"AdaBoost",
	"SGDRegressor",
	"Finalizing results...",
}

type Options struct {
	Models []string
	// Interval separates the processing and completed events of one model.
	Interval time.Duration
	// Fail lists model names reported with status error instead of completed.
	Fail []string
	// WaitForClient holds the script until a stream client is connected.
	WaitForClient bool
	// Artifact is the body served by the download endpoint.
	Artifact []byte
	// Finished starts the server with results already present.
	Finished bool
}

type Server struct {
	opts   Options
	broker *Broker

	mu       sync.RWMutex
	results  []api.ModelResult
	finished bool
}

func New(opts Options) *Server {
	if len(opts.Models) == 0 {
		opts.Models = DefaultModels
	}
	if opts.Interval <= 0 {
		opts.Interval = 500 * time.Millisecond
	}
	if opts.Artifact == nil {
		opts.Artifact = []byte("trainmon fake model artifact\n")
	}
	s := &Server{opts: opts, broker: NewBroker()}
	if opts.Finished {
		s.finish(s.scoreAll(nil))
	}
	return s
}

func (s *Server) Broker() *Broker { return s.broker }

func (s *Server) Finished() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.finished
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/stream/", s.handleStream)
	mux.HandleFunc("GET /api/model-results/", s.handleResults)
	mux.HandleFunc("GET /api/download-model/{id}/", s.handleDownload)
	return mux
}

// Publish validates step and broadcasts it as an unnamed event.
func (s *Server) Publish(step protocol.TrainingStep) error {
	if err := protocol.ValidateStep(step); err != nil {
		return err
	}
	return s.broker.Broadcast("", step)
}

// Run plays the scripted training run once. Each model goes processing → completed (or error),
// and the results endpoint becomes non-empty after the last model.
func (s *Server) Run(ctx context.Context) error {
	if s.opts.WaitForClient {
		if err := s.broker.WaitForClient(ctx); err != nil {
			return err
		}
	}

	failed := map[string]bool{}
	for _, name := range s.opts.Fail {
		failed[name] = true
	}

	for i, name := range s.opts.Models {
		id := i + 1
		if err := s.Publish(protocol.TrainingStep{ID: id, Name: name, Status: protocol.StepProcessing, Details: map[string]any{}}); err != nil {
			return err
		}
		if err := sleep(ctx, s.opts.Interval); err != nil {
			return err
		}

		final := protocol.TrainingStep{ID: id, Name: name, Status: protocol.StepCompleted, Details: map[string]any{"score": score(i)}}
		if failed[name] {
			final.Status = protocol.StepError
			final.Details = map[string]any{"error": fmt.Sprintf("%s did not converge", name)}
		}
		if err := s.Publish(final); err != nil {
			return err
		}
		log.Info().Int("id", id).Str("model", name).Str("status", string(final.Status)).Msg("step finished")
	}

	s.finish(s.scoreAll(failed))
	log.Info().Msg("training run finished")
	return nil
}

func (s *Server) finish(results []api.ModelResult) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.results = results
	s.finished = true
}

func (s *Server) scoreAll(failed map[string]bool) []api.ModelResult {
	created := time.Now().UTC().Format(time.RFC3339)
	var out []api.ModelResult
	for i, name := range s.opts.Models {
		if i == 0 || i == len(s.opts.Models)-1 || failed[name] {
			continue
		}
		out = append(out, api.ModelResult{
			ID:        len(out) + 1,
			DatasetID: 1,
			ModelName: name,
			Metrics:   map[string]any{"score": score(i)},
			CreatedAt: created,
		})
	}
	return out
}

func score(i int) float64 {
	return 0.5 + float64(i%10)/20
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("Access-Control-Allow-Origin", "*")

	client := make(chan string, 64)
	s.broker.Register(client)
	defer s.broker.Unregister(client)

	flusher, _ := w.(http.Flusher)
	flush := func() {
		if flusher != nil {
			flusher.Flush()
		}
	}

	hello, _ := Frame("connected", map[string]string{"message": "Connected to training stream"})
	_, _ = fmt.Fprint(w, hello)
	flush()

	for {
		select {
		case frame, ok := <-client:
			if !ok {
				return
			}
			if _, err := fmt.Fprint(w, frame); err != nil {
				return
			}
			flush()
		case <-r.Context().Done():
			return
		}
	}
}

func (s *Server) handleResults(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	results := s.results
	s.mu.RUnlock()
	if results == nil {
		results = []api.ModelResult{}
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(results); err != nil {
		log.Warn().Err(err).Msg("encode model results")
	}
}

func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(r.PathValue("id"))
	if err != nil {
		http.Error(w, "invalid model id", http.StatusBadRequest)
		return
	}
	if !s.Finished() {
		http.Error(w, "model not ready", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", artifact.Filename(id)))
	_, _ = w.Write(s.opts.Artifact)
}
