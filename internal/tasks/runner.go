package tasks

import (
	"context"
	"sync"
	"time"

	"agora.events/internal/obs"
)

// Runner schedules best-effort background work. Task outcomes are observed
// only by the runner itself; callers never wait on them.
type Runner interface {
	Go(name string, fn func(ctx context.Context) error)
}

// Background runs each task on its own goroutine with a bounded lifetime and
// logs failures.
type Background struct {
	Timeout time.Duration

	wg sync.WaitGroup
}

// NewBackground creates a runner with the given per-task timeout.
func NewBackground(timeout time.Duration) *Background {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Background{Timeout: timeout}
}

func (b *Background) Go(name string, fn func(ctx context.Context) error) {
	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), b.Timeout)
		defer cancel()
		if err := fn(ctx); err != nil {
			obs.Log("warn", "background task failed", map[string]any{
				"task":  name,
				"error": err.Error(),
			})
		}
	}()
}

// Wait blocks until all scheduled tasks finish. Used during shutdown.
func (b *Background) Wait() {
	b.wg.Wait()
}

// Sync runs tasks inline and records their errors, making background writes
// deterministic in tests.
type Sync struct {
	mu   sync.Mutex
	runs []Run
}

// Run is one recorded task execution.
type Run struct {
	Name string
	Err  error
}

func (s *Sync) Go(name string, fn func(ctx context.Context) error) {
	err := fn(context.Background())
	s.mu.Lock()
	s.runs = append(s.runs, Run{Name: name, Err: err})
	s.mu.Unlock()
}

// Runs returns the recorded executions in order.
func (s *Sync) Runs() []Run {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Run, len(s.runs))
	copy(out, s.runs)
	return out
}

// Discard drops every task without running it, modelling an absent executor.
type Discard struct{}

func (Discard) Go(string, func(ctx context.Context) error) {}
