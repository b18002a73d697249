package dispatch

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/postroom/postroom/internal/models"
)

// RunState is the lifecycle of one background dispatch run.
type RunState string

const (
	RunStateRunning   RunState = "running"
	RunStateDone      RunState = "done"
	RunStateFailed    RunState = "failed"
	RunStateCancelled RunState = "cancelled"
)

// Run is a point-in-time snapshot of a dispatch run.
type Run struct {
	ID         uuid.UUID
	State      RunState
	Total      int
	Processed  int
	Result     *models.DispatchResult
	Error      string
	StartedAt  time.Time
	FinishedAt *time.Time
}

type runHandle struct {
	run    Run
	cancel context.CancelFunc
}

// Runner executes dispatch runs on background goroutines. A run can span
// minutes on large lists, so callers start it, then poll Get for progress
// and the final result instead of blocking.
type Runner struct {
	engine *Engine

	mu   sync.Mutex
	runs map[uuid.UUID]*runHandle
}

func NewRunner(engine *Engine) *Runner {
	return &Runner{
		engine: engine,
		runs:   make(map[uuid.UUID]*runHandle),
	}
}

// Start launches SendBulk on a new goroutine and returns the run ID used to
// observe it.
func (r *Runner) Start(req BulkRequest) uuid.UUID {
	ctx, cancel := context.WithCancel(context.Background())

	h := &runHandle{
		run: Run{
			ID:        uuid.New(),
			State:     RunStateRunning,
			Total:     len(req.Recipients),
			StartedAt: time.Now().UTC(),
		},
		cancel: cancel,
	}

	r.mu.Lock()
	r.runs[h.run.ID] = h
	r.mu.Unlock()

	callerProgress := req.Progress
	req.Progress = func(processed, total int) {
		r.mu.Lock()
		h.run.Processed = processed
		r.mu.Unlock()
		if callerProgress != nil {
			callerProgress(processed, total)
		}
	}

	go func() {
		defer cancel()

		result, err := r.engine.SendBulk(ctx, req)
		finished := time.Now().UTC()

		r.mu.Lock()
		defer r.mu.Unlock()
		h.run.Result = result
		h.run.FinishedAt = &finished
		switch {
		case err == nil:
			h.run.State = RunStateDone
		case errors.Is(err, context.Canceled):
			h.run.State = RunStateCancelled
		default:
			h.run.State = RunStateFailed
			h.run.Error = err.Error()
		}
	}()

	return h.run.ID
}

// Get returns a snapshot of the run, or false if the ID is unknown.
func (r *Runner) Get(id uuid.UUID) (Run, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	h, ok := r.runs[id]
	if !ok {
		return Run{}, false
	}

	snapshot := h.run
	if h.run.Result != nil {
		result := *h.run.Result
		result.Errors = append([]string(nil), h.run.Result.Errors...)
		snapshot.Result = &result
	}
	return snapshot, true
}

// Cancel requests the run stop at its next loop iteration. It reports
// whether the run was known.
func (r *Runner) Cancel(id uuid.UUID) bool {
	r.mu.Lock()
	h, ok := r.runs[id]
	r.mu.Unlock()

	if !ok {
		return false
	}
	h.cancel()
	return true
}
