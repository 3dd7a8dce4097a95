// Package scheduler owns the recurring and one-shot timers of the client
// core. Tasks are registered by name and stopped together, so a logout or a
// duress exit cannot leak tickers.
package scheduler

import (
	"context"
	"sync"
	"time"
)

type task struct {
	cancel context.CancelFunc
	done   chan struct{}
}

// Scheduler runs named background tasks. Re-registering a name replaces the
// previous task. The zero value is not usable; call New.
type Scheduler struct {
	mu    sync.Mutex
	tasks map[string]*task
}

func New() *Scheduler {
	return &Scheduler{tasks: make(map[string]*task)}
}

// Every runs fn on a fixed interval until Stop(name) or StopAll is called.
// The first run happens after one full interval, not immediately.
func (s *Scheduler) Every(name string, interval time.Duration, fn func(ctx context.Context)) {
	s.register(name, func(ctx context.Context) {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				fn(ctx)
			case <-ctx.Done():
				return
			}
		}
	})
}

// After runs fn once after the delay elapses, unless the task is stopped
// first. Stopping before the timer fires cancels the run entirely.
func (s *Scheduler) After(name string, delay time.Duration, fn func(ctx context.Context)) {
	s.register(name, func(ctx context.Context) {
		timer := time.NewTimer(delay)
		defer timer.Stop()
		select {
		case <-timer.C:
			fn(ctx)
		case <-ctx.Done():
		}
	})
}

func (s *Scheduler) register(name string, run func(ctx context.Context)) {
	ctx, cancel := context.WithCancel(context.Background())
	t := &task{cancel: cancel, done: make(chan struct{})}

	s.mu.Lock()
	if prev, ok := s.tasks[name]; ok {
		prev.cancel()
	}
	s.tasks[name] = t
	s.mu.Unlock()

	go func() {
		defer close(t.done)
		run(ctx)
	}()
}

// Cancel signals the named task to stop without waiting for its goroutine
// to exit. Unlike Stop it is safe to call from inside the task itself. The
// name is released immediately, so a re-registration cannot be hit by the
// stale cancellation. Cancelling an unknown name is a no-op.
func (s *Scheduler) Cancel(name string) {
	s.mu.Lock()
	t, ok := s.tasks[name]
	if ok {
		delete(s.tasks, name)
	}
	s.mu.Unlock()

	if ok {
		t.cancel()
	}
}

// Stop cancels the named task and waits for its goroutine to exit.
// Stopping an unknown name is a no-op.
func (s *Scheduler) Stop(name string) {
	s.mu.Lock()
	t, ok := s.tasks[name]
	if ok {
		delete(s.tasks, name)
	}
	s.mu.Unlock()

	if ok {
		t.cancel()
		<-t.done
	}
}

// StopAll cancels every registered task and waits for them to exit.
func (s *Scheduler) StopAll() {
	s.mu.Lock()
	tasks := s.tasks
	s.tasks = make(map[string]*task)
	s.mu.Unlock()

	for _, t := range tasks {
		t.cancel()
	}
	for _, t := range tasks {
		<-t.done
	}
}

// Active reports whether a task with the given name is currently registered.
func (s *Scheduler) Active(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.tasks[name]
	return ok
}
