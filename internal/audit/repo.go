package audit

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/google/uuid"
)

var ErrNotFound = errors.New("run not found")

type RunRepository interface {
	Save(ctx context.Context, run *Run) error
	GetByID(ctx context.Context, id uuid.UUID) (*Run, error)
	List(ctx context.Context, limit int) ([]*Run, error)
}

// memRepo keeps runs in memory. It backs deployments without a database and
// the tests.
type memRepo struct {
	mu   sync.RWMutex
	runs map[uuid.UUID]*Run
}

func NewMemRepo() RunRepository {
	return &memRepo{runs: make(map[uuid.UUID]*Run)}
}

func (r *memRepo) Save(_ context.Context, run *Run) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *run
	cp.Outcomes = append(cp.Outcomes[:0:0], run.Outcomes...)
	r.runs[run.ID] = &cp
	return nil
}

func (r *memRepo) GetByID(_ context.Context, id uuid.UUID) (*Run, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	run, ok := r.runs[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *run
	return &cp, nil
}

func (r *memRepo) List(_ context.Context, limit int) ([]*Run, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Run, 0, len(r.runs))
	for _, run := range r.runs {
		cp := *run
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartedAt.After(out[j].StartedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
