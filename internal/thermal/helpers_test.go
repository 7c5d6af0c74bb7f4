package thermal

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

// fakeScheduler records scheduled callbacks; tests fire them explicitly.
type fakeScheduler struct {
	mu          sync.Mutex
	tasks       []*fakeTask
	scheduleErr error
	cancelErr   error

	// beforeCancelErr runs inside a failing Cancel, before the error returns.
	beforeCancelErr func(t *fakeTask)
}

type fakeTask struct {
	sched *fakeScheduler
	delay time.Duration
	fn    func()
	done  chan struct{}

	mu    sync.Mutex
	state taskState
}

func newFakeScheduler() *fakeScheduler {
	return &fakeScheduler{}
}

func (s *fakeScheduler) Schedule(delay time.Duration, fn func()) (Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.scheduleErr != nil {
		return nil, s.scheduleErr
	}
	t := &fakeTask{sched: s, delay: delay, fn: fn, done: make(chan struct{})}
	s.tasks = append(s.tasks, t)
	return t, nil
}

func (s *fakeScheduler) setScheduleErr(err error) {
	s.mu.Lock()
	s.scheduleErr = err
	s.mu.Unlock()
}

func (s *fakeScheduler) setCancelErr(err error) {
	s.mu.Lock()
	s.cancelErr = err
	s.mu.Unlock()
}

func (s *fakeScheduler) setBeforeCancelErr(fn func(t *fakeTask)) {
	s.mu.Lock()
	s.beforeCancelErr = fn
	s.mu.Unlock()
}

// scheduled returns the number of Schedule calls that succeeded.
func (s *fakeScheduler) scheduled() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.tasks)
}

// pending returns tasks that have neither run nor been cancelled.
func (s *fakeScheduler) pending() []*fakeTask {
	s.mu.Lock()
	tasks := append([]*fakeTask(nil), s.tasks...)
	s.mu.Unlock()

	var out []*fakeTask
	for _, t := range tasks {
		t.mu.Lock()
		if t.state == taskPending {
			out = append(out, t)
		}
		t.mu.Unlock()
	}
	return out
}

// only returns the single pending task, failing the test otherwise.
func (s *fakeScheduler) only(t *testing.T) *fakeTask {
	t.Helper()
	p := s.pending()
	if len(p) != 1 {
		t.Fatalf("pending tasks = %d, want 1", len(p))
	}
	return p[0]
}

// fire runs the callback on the calling goroutine.
func (t *fakeTask) fire() bool {
	t.mu.Lock()
	if t.state != taskPending {
		t.mu.Unlock()
		return false
	}
	t.state = taskRunning
	t.mu.Unlock()

	t.fn()

	t.mu.Lock()
	t.state = taskFinished
	t.mu.Unlock()
	close(t.done)
	return true
}

func (t *fakeTask) Pending() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state == taskPending
}

func (t *fakeTask) Cancel() error {
	t.sched.mu.Lock()
	cancelErr := t.sched.cancelErr
	hook := t.sched.beforeCancelErr
	t.sched.mu.Unlock()
	if cancelErr != nil {
		if hook != nil {
			hook(t)
		}
		return cancelErr
	}

	t.mu.Lock()
	switch t.state {
	case taskPending:
		t.state = taskCancelled
		t.mu.Unlock()
		close(t.done)
	case taskRunning:
		t.mu.Unlock()
		<-t.done
	default:
		t.mu.Unlock()
	}
	return nil
}

// stepSensor returns scripted results, one per read. The last step repeats.
type stepSensor struct {
	mu    sync.Mutex
	steps []func(ctx context.Context) (Temperature, error)
	reads int
}

func newStepSensor(steps ...func(ctx context.Context) (Temperature, error)) *stepSensor {
	return &stepSensor{steps: steps}
}

func (s *stepSensor) ReadTemperature(ctx context.Context) (Temperature, error) {
	s.mu.Lock()
	i := s.reads
	s.reads++
	if i >= len(s.steps) {
		i = len(s.steps) - 1
	}
	step := s.steps[i]
	s.mu.Unlock()
	return step(ctx)
}

func (s *stepSensor) readCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reads
}

func value(v Temperature) func(context.Context) (Temperature, error) {
	return func(context.Context) (Temperature, error) { return v, nil }
}

var errBusy = errors.New("adc busy")

func fail() func(context.Context) (Temperature, error) {
	return func(context.Context) (Temperature, error) { return 0, errBusy }
}

// blockUntil signals entered, then waits for release before returning v.
func blockUntil(entered chan<- struct{}, release <-chan struct{}, v Temperature) func(context.Context) (Temperature, error) {
	return func(ctx context.Context) (Temperature, error) {
		close(entered)
		select {
		case <-release:
			return v, nil
		case <-ctx.Done():
			return 0, ctx.Err()
		}
	}
}

// testProps matches the end-to-end scenario: 10s normal, 2s hot, 80 threshold.
func testProps() PropertyMap {
	return PropertyMap{
		PropPollTime:    10000,
		PropHotPollTime: 2000,
		PropHotCritTemp: 80,
	}
}

func newTestMonitor(t *testing.T, sensor Sensor, sched Scheduler) *Monitor {
	t.Helper()
	m, err := NewMonitor(Options{
		Name:      "xo-therm",
		Sensor:    sensor,
		Scheduler: sched,
	})
	if err != nil {
		t.Fatalf("NewMonitor() error = %v", err)
	}
	return m
}

func startTestMonitor(t *testing.T, sensor Sensor, sched Scheduler) *Monitor {
	t.Helper()
	m := newTestMonitor(t, sensor, sched)
	if err := m.Start(context.Background(), testProps()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	return m
}

// returnsWithin reports whether done is closed within d.
func returnsWithin(done <-chan struct{}, d time.Duration) bool {
	select {
	case <-done:
		return true
	case <-time.After(d):
		return false
	}
}
