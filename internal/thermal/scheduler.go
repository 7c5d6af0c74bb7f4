package thermal

import (
	"fmt"
	"sync"
	"time"
)

// Scheduler runs a callback once after a delay.
//
// Implementations must run each callback on its own goroutine, never on
// the goroutine calling Schedule or Cancel.
type Scheduler interface {
	Schedule(delay time.Duration, fn func()) (Task, error)
}

// Task is a handle to one scheduled callback.
type Task interface {
	// Cancel prevents a pending callback from running. If the callback is
	// already running, Cancel blocks until it returns. Cancelling a task
	// that already finished is a no-op. Cancel must not be called from
	// inside the task's own callback.
	Cancel() error

	// Pending reports whether the callback has neither started nor been
	// cancelled.
	Pending() bool
}

type taskState int

const (
	taskPending taskState = iota
	taskRunning
	taskFinished
	taskCancelled
)

// TimerScheduler is the production Scheduler, built on time.AfterFunc.
//
// Thread Safety:
//   - All methods are safe for concurrent use from multiple goroutines.
type TimerScheduler struct {
	mu     sync.Mutex
	closed bool
	tasks  map[*timerTask]struct{}
}

// NewTimerScheduler creates a ready-to-use TimerScheduler.
func NewTimerScheduler() *TimerScheduler {
	return &TimerScheduler{
		tasks: make(map[*timerTask]struct{}),
	}
}

// Schedule arms fn to run after delay. Negative delays run immediately.
//
// Returns:
//   - Task: Handle used to cancel the callback
//   - error: ErrScheduler if fn is nil or the scheduler is closed
func (s *TimerScheduler) Schedule(delay time.Duration, fn func()) (Task, error) {
	if fn == nil {
		return nil, fmt.Errorf("%w: nil callback", ErrScheduler)
	}
	if delay < 0 {
		delay = 0
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, fmt.Errorf("%w: scheduler closed", ErrScheduler)
	}

	t := &timerTask{
		sched: s,
		fn:    fn,
		done:  make(chan struct{}),
	}
	s.tasks[t] = struct{}{}
	// t.run takes t.mu before touching state, so the timer may fire before
	// t.timer is assigned without harm.
	t.mu.Lock()
	t.timer = time.AfterFunc(delay, t.run)
	t.mu.Unlock()

	return t, nil
}

// Pending returns the number of tasks that are pending or running.
func (s *TimerScheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.tasks)
}

// Close refuses new tasks, cancels pending ones and waits for running
// callbacks to return. Calling Close more than once is safe.
func (s *TimerScheduler) Close() error {
	s.mu.Lock()
	s.closed = true
	tasks := make([]*timerTask, 0, len(s.tasks))
	for t := range s.tasks {
		tasks = append(tasks, t)
	}
	s.mu.Unlock()

	for _, t := range tasks {
		_ = t.Cancel() //nolint:errcheck // timerTask.Cancel never fails
	}
	return nil
}

func (s *TimerScheduler) forget(t *timerTask) {
	s.mu.Lock()
	delete(s.tasks, t)
	s.mu.Unlock()
}

// timerTask is a single armed callback.
type timerTask struct {
	sched *TimerScheduler
	fn    func()
	done  chan struct{}

	mu    sync.Mutex
	timer *time.Timer
	state taskState
}

func (t *timerTask) run() {
	t.mu.Lock()
	if t.state != taskPending {
		t.mu.Unlock()
		return
	}
	t.state = taskRunning
	t.mu.Unlock()

	defer func() {
		t.mu.Lock()
		t.state = taskFinished
		t.mu.Unlock()
		t.complete()
	}()
	t.fn()
}

func (t *timerTask) complete() {
	close(t.done)
	t.sched.forget(t)
}

// Pending implements Task.
func (t *timerTask) Pending() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state == taskPending
}

// Cancel implements Task.
func (t *timerTask) Cancel() error {
	t.mu.Lock()
	switch t.state {
	case taskPending:
		t.state = taskCancelled
		if t.timer != nil {
			t.timer.Stop()
		}
		t.mu.Unlock()
		t.complete()
		return nil
	case taskRunning:
		t.mu.Unlock()
		<-t.done
		return nil
	default:
		t.mu.Unlock()
		return nil
	}
}
