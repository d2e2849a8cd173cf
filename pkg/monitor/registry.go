package monitor

import (
	"sync"

	"github.com/go-go-golems/trainmon/pkg/protocol"
)

const PreparingLabel = "Preparing data..."

// Registry holds the latest known record per step id. Apply is last-write-wins; iteration
// follows first-seen order.
type Registry struct {
	mu    sync.RWMutex
	byID  map[int]protocol.TrainingStep
	order []int

	current    int
	hasCurrent bool
}

func NewRegistry() *Registry {
	return &Registry{byID: map[int]protocol.TrainingStep{}}
}

func (r *Registry) Apply(step protocol.TrainingStep) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.byID[step.ID]; !ok {
		r.order = append(r.order, step.ID)
	}
	r.byID[step.ID] = step

	if step.Status == protocol.StepProcessing {
		r.current = step.ID
		r.hasCurrent = true
	} else if r.hasCurrent && r.current == step.ID {
		r.hasCurrent = false
	}
}

func (r *Registry) Get(id int) (protocol.TrainingStep, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.byID[id]
	return s, ok
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byID)
}

func (r *Registry) Steps() []protocol.TrainingStep {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]protocol.TrainingStep, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.byID[id])
	}
	return out
}

func (r *Registry) Map() map[int]protocol.TrainingStep {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[int]protocol.TrainingStep, len(r.byID))
	for id, s := range r.byID {
		out[id] = s
	}
	return out
}

type Progress struct {
	Total     int    `json:"total"`
	Completed int    `json:"completed"`
	Failed    int    `json:"failed"`
	Percent   int    `json:"percent"`
	Current   string `json:"current"`
}

// Progress derives a completion percentage over the steps seen so far. Steps the service
// has not announced yet are unknown, so the percentage can move backwards when new ids appear.
func (r *Registry) Progress() Progress {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p := Progress{Total: len(r.byID), Current: PreparingLabel}
	for _, s := range r.byID {
		switch s.Status {
		case protocol.StepCompleted:
			p.Completed++
		case protocol.StepError:
			p.Failed++
		}
	}
	if p.Total > 0 {
		p.Percent = (p.Completed + p.Failed) * 100 / p.Total
	}
	if r.hasCurrent {
		if s, ok := r.byID[r.current]; ok && s.Name != "" {
			p.Current = s.Name
		}
	}
	return p
}
