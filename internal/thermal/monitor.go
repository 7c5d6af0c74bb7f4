package thermal

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

// defaultReadTimeout bounds a single sensor read when Options.ReadTimeout is zero.
const defaultReadTimeout = 5 * time.Second

// Sensor is the gateway to the underlying temperature driver.
//
// ReadTemperature should honour ctx and must have no side effects on
// failure. A read still running when ctx expires is abandoned and its
// result discarded.
type Sensor interface {
	ReadTemperature(ctx context.Context) (Temperature, error)
}

// SensorFunc adapts a plain function to the Sensor interface.
type SensorFunc func(ctx context.Context) (Temperature, error)

// ReadTemperature implements Sensor.
func (f SensorFunc) ReadTemperature(ctx context.Context) (Temperature, error) {
	return f(ctx)
}

// Logger defines the logging interface for the monitor.
// Compatible with logging.Logger and slog.Logger.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Reading describes the outcome of one poll cycle.
type Reading struct {
	Monitor string `json:"monitor"`

	// Value is the last known temperature. When Err is set it is the value
	// carried over from an earlier cycle.
	Value    Temperature `json:"value"`
	HasValue bool        `json:"has_value"`

	Hot      bool          `json:"hot"`
	Interval time.Duration `json:"interval"`
	Err      error         `json:"-"`
	Time     time.Time     `json:"time"`
}

// Observer receives a Reading after every completed poll cycle.
//
// Observers run on the poll goroutine, outside the monitor lock but while
// the cycle is still in flight. They must not call SetEnabled or Stop on
// the same monitor synchronously.
type Observer interface {
	ObserveReading(r Reading)
}

// ObserverFunc adapts a plain function to the Observer interface.
type ObserverFunc func(r Reading)

// ObserveReading implements Observer.
func (f ObserverFunc) ObserveReading(r Reading) { f(r) }

// Options configures a Monitor.
type Options struct {
	// Name identifies the monitor in logs, topics and routes.
	Name string

	Sensor    Sensor
	Scheduler Scheduler
	Logger    Logger

	// ReadTimeout bounds each sensor read. Expiry counts as a sensor failure.
	ReadTimeout time.Duration

	Observers []Observer
}

// Monitor is the adaptive thermal polling loop for one sensor.
//
// Thread Safety:
//   - All exported methods are safe for concurrent use.
//   - At most one poll cycle is pending or running at any time.
type Monitor struct {
	name        string
	sensor      Sensor
	scheduler   Scheduler
	logger      Logger
	readTimeout time.Duration

	obsMu     sync.RWMutex
	observers []Observer

	// toggleMu serialises Start, SetEnabled and Stop callers.
	toggleMu sync.Mutex

	mu       sync.Mutex
	idle     *sync.Cond
	cfg      Config
	started  bool
	stopped  bool
	enabled  bool
	last     Temperature
	hasLast  bool
	task     Task
	inFlight bool
	ctx      context.Context
	cancel   context.CancelFunc
	stats    counters
}

type counters struct {
	polls            uint64
	readFailures     uint64
	scheduleFailures uint64
	lastErr          error
	lastPoll         time.Time
}

// NewMonitor creates a stopped Monitor. Call Start to begin polling.
//
// Returns:
//   - *Monitor: Monitor ready to start
//   - error: ErrInvalidOptions if the name, sensor or scheduler is missing
func NewMonitor(opts Options) (*Monitor, error) {
	if opts.Name == "" {
		return nil, fmt.Errorf("%w: name is required", ErrInvalidOptions)
	}
	if opts.Sensor == nil {
		return nil, fmt.Errorf("%w: sensor is required", ErrInvalidOptions)
	}
	if opts.Scheduler == nil {
		return nil, fmt.Errorf("%w: scheduler is required", ErrInvalidOptions)
	}
	if opts.Logger == nil {
		opts.Logger = noopLogger{}
	}
	if opts.ReadTimeout <= 0 {
		opts.ReadTimeout = defaultReadTimeout
	}

	m := &Monitor{
		name:        opts.Name,
		sensor:      opts.Sensor,
		scheduler:   opts.Scheduler,
		logger:      opts.Logger,
		readTimeout: opts.ReadTimeout,
		observers:   append([]Observer(nil), opts.Observers...),
	}
	m.idle = sync.NewCond(&m.mu)
	return m, nil
}

// Name returns the monitor name.
func (m *Monitor) Name() string {
	return m.name
}

// AddObserver registers an observer for subsequent poll cycles.
func (m *Monitor) AddObserver(o Observer) {
	if o == nil {
		return
	}
	m.obsMu.Lock()
	m.observers = append(m.observers, o)
	m.obsMu.Unlock()
}

// Start loads the configuration from src, enables the monitor and arms the
// first poll after the normal interval.
//
// Sensor reads use a context derived from ctx; once ctx is cancelled the
// loop stops rearming.
//
// Returns:
//   - error: ErrConfig if a property is missing (nothing is scheduled),
//     ErrScheduler if the first poll could not be armed,
//     ErrAlreadyStarted on a second call
func (m *Monitor) Start(ctx context.Context, src PropertySource) error {
	cfg, err := LoadConfig(src)
	if err != nil {
		return err
	}

	m.toggleMu.Lock()
	defer m.toggleMu.Unlock()

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.started {
		return ErrAlreadyStarted
	}

	runCtx, cancel := context.WithCancel(ctx)
	task, err := m.scheduler.Schedule(cfg.NormalInterval, m.runPollCycle)
	if err != nil {
		cancel()
		return schedulerError("arming first poll", err)
	}

	m.cfg = cfg
	m.started = true
	m.enabled = true
	m.last = 0
	m.hasLast = false
	m.task = task
	m.ctx = runCtx
	m.cancel = cancel

	m.logger.Info("thermal monitor initialised",
		"monitor", m.name,
		"poll_time", cfg.NormalInterval,
		"hot_poll_time", cfg.HotInterval,
		"hot_crit_temp", int64(cfg.HotThreshold),
	)
	return nil
}

// runPollCycle reads the sensor once, updates state and rearms.
func (m *Monitor) runPollCycle() {
	m.mu.Lock()
	if !m.enabled || m.inFlight {
		m.mu.Unlock()
		return
	}
	m.inFlight = true
	// The task that invoked us has fired; nothing is pending until we rearm.
	m.task = nil
	ctx := m.ctx
	m.mu.Unlock()

	temp, readErr := m.read(ctx)
	if readErr != nil {
		readErr = sensorError(readErr)
	}

	m.mu.Lock()
	now := time.Now()
	m.stats.polls++
	m.stats.lastPoll = now
	if readErr != nil {
		m.stats.readFailures++
		m.stats.lastErr = readErr
	} else {
		m.last = temp
		m.hasLast = true
	}
	delay := m.cfg.NextInterval(m.last, m.hasLast)
	reading := Reading{
		Monitor:  m.name,
		Value:    m.last,
		HasValue: m.hasLast,
		Hot:      m.hasLast && m.cfg.IsHot(m.last),
		Interval: delay,
		Err:      readErr,
		Time:     now,
	}
	m.mu.Unlock()

	switch {
	case readErr == nil:
		m.logger.Debug("thermal reading",
			"monitor", m.name,
			"temperature", int64(temp),
			"hot", reading.Hot,
			"next_poll", delay,
		)
	case ctx.Err() != nil:
		m.logger.Debug("thermal read aborted", "monitor", m.name, "error", readErr)
	default:
		m.logger.Warn("thermal read failed, keeping last reading",
			"monitor", m.name,
			"error", readErr,
			"next_poll", delay,
		)
	}

	m.notify(reading)

	m.mu.Lock()
	defer m.mu.Unlock()

	// enabled may have been cleared while the sensor was being read.
	if m.enabled && ctx.Err() == nil {
		task, err := m.scheduler.Schedule(delay, m.runPollCycle)
		if err != nil {
			m.stats.scheduleFailures++
			m.stats.lastErr = schedulerError("rearming poll", err)
			m.logger.Error("failed to rearm thermal poll", "monitor", m.name, "error", err)
		} else {
			m.task = task
		}
	}
	m.inFlight = false
	m.idle.Broadcast()
}

// read performs one sensor read bounded by the read timeout, whether or not
// the sensor honours its context.
func (m *Monitor) read(ctx context.Context) (Temperature, error) {
	readCtx, cancel := context.WithTimeout(ctx, m.readTimeout)
	defer cancel()

	type result struct {
		temp Temperature
		err  error
	}
	done := make(chan result, 1)
	go func() {
		temp, err := m.sensor.ReadTemperature(readCtx)
		done <- result{temp: temp, err: err}
	}()

	select {
	case r := <-done:
		return r.temp, r.err
	case <-readCtx.Done():
	}
	// Prefer a result that raced the deadline.
	select {
	case r := <-done:
		return r.temp, r.err
	default:
		m.logger.Debug("abandoning sensor read", "monitor", m.name, "timeout", m.readTimeout)
		return 0, readCtx.Err()
	}
}

func (m *Monitor) notify(r Reading) {
	m.obsMu.RLock()
	observers := m.observers
	m.obsMu.RUnlock()

	for _, o := range observers {
		o.ObserveReading(r)
	}
}

// SetEnabled enables or disables polling.
//
// Disabling cancels the pending poll and waits for an in-flight cycle to
// finish, so when SetEnabled(false) returns no poll is running or pending.
// Enabling a disabled monitor arms one poll after the normal interval.
// Requests matching the current state are no-ops.
//
// Returns:
//   - error: ErrScheduler if cancelling or arming failed (state unchanged,
//     the caller may retry), ErrNotStarted or ErrStopped
func (m *Monitor) SetEnabled(enable bool) error {
	m.toggleMu.Lock()
	defer m.toggleMu.Unlock()

	if enable {
		return m.enable()
	}
	return m.disable()
}

func (m *Monitor) enable() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.checkLiveLocked(); err != nil {
		return err
	}
	if m.enabled && (m.task != nil || m.inFlight) {
		return nil
	}

	// Either a disabled monitor, or an enabled one whose last rearm failed.
	task, err := m.scheduler.Schedule(m.cfg.NormalInterval, m.runPollCycle)
	if err != nil {
		return schedulerError("arming poll", err)
	}
	m.task = task
	if !m.enabled {
		m.enabled = true
		m.logger.Info("thermal monitoring enabled", "monitor", m.name)
	}
	return nil
}

func (m *Monitor) disable() error {
	m.mu.Lock()
	if err := m.checkLiveLocked(); err != nil {
		m.mu.Unlock()
		return err
	}
	if !m.enabled {
		m.mu.Unlock()
		return nil
	}
	m.enabled = false
	task := m.task
	m.task = nil
	m.mu.Unlock()

	if task != nil {
		if err := task.Cancel(); err != nil {
			m.mu.Lock()
			if m.task == nil {
				m.enabled = true
				// A task that already fired saw enabled=false and will not
				// rearm; leave task nil so the next enable arms a fresh poll.
				if task.Pending() {
					m.task = task
				}
			}
			m.mu.Unlock()
			return schedulerError("cancelling pending poll", err)
		}
	}

	m.waitIdle()
	m.logger.Info("thermal monitoring disabled", "monitor", m.name)
	return nil
}

// Stop cancels any pending poll, aborts an in-flight read and waits for
// the cycle to finish. The monitor cannot be restarted afterwards.
func (m *Monitor) Stop() error {
	m.toggleMu.Lock()
	defer m.toggleMu.Unlock()

	m.mu.Lock()
	if !m.started || m.stopped {
		m.mu.Unlock()
		return nil
	}
	m.stopped = true
	m.enabled = false
	task := m.task
	m.task = nil
	cancel := m.cancel
	m.mu.Unlock()

	cancel()

	var err error
	if task != nil {
		if cErr := task.Cancel(); cErr != nil {
			err = schedulerError("cancelling pending poll", cErr)
		}
	}
	m.waitIdle()

	m.logger.Info("thermal monitor stopped", "monitor", m.name)
	return err
}

func (m *Monitor) waitIdle() {
	m.mu.Lock()
	for m.inFlight {
		m.idle.Wait()
	}
	m.mu.Unlock()
}

func (m *Monitor) checkLiveLocked() error {
	if !m.started {
		return ErrNotStarted
	}
	if m.stopped {
		return ErrStopped
	}
	return nil
}

// Enabled reports whether polling is enabled.
func (m *Monitor) Enabled() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.enabled
}

// Config returns the loaded configuration (zero before Start).
func (m *Monitor) Config() Config {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cfg
}

// Status returns the control surface status line from a consistent snapshot.
//
// Example: "En:0 Poll-time:10 sec\n"
func (m *Monitor) Status() string {
	m.mu.Lock()
	enabled, interval := m.enabled, m.cfg.NormalInterval
	m.mu.Unlock()
	return FormatStatus(enabled, interval)
}

// Snapshot is a point-in-time view of a monitor.
type Snapshot struct {
	Name             string        `json:"name"`
	Started          bool          `json:"started"`
	Enabled          bool          `json:"enabled"`
	Temperature      Temperature   `json:"temperature"`
	HasTemperature   bool          `json:"has_temperature"`
	Hot              bool          `json:"hot"`
	NextInterval     time.Duration `json:"next_interval"`
	Pending          bool          `json:"pending"`
	Polling          bool          `json:"polling"`
	Polls            uint64        `json:"polls"`
	ReadFailures     uint64        `json:"read_failures"`
	ScheduleFailures uint64        `json:"schedule_failures"`
	LastError        string        `json:"last_error,omitempty"`
	LastPoll         time.Time     `json:"last_poll,omitempty"`
	Config           Config        `json:"-"`
}

// Snapshot returns the current state of the monitor.
func (m *Monitor) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()

	s := Snapshot{
		Name:             m.name,
		Started:          m.started && !m.stopped,
		Enabled:          m.enabled,
		Temperature:      m.last,
		HasTemperature:   m.hasLast,
		Hot:              m.hasLast && m.cfg.IsHot(m.last),
		NextInterval:     m.cfg.NextInterval(m.last, m.hasLast),
		Pending:          m.task != nil,
		Polling:          m.inFlight,
		Polls:            m.stats.polls,
		ReadFailures:     m.stats.readFailures,
		ScheduleFailures: m.stats.scheduleFailures,
		LastPoll:         m.stats.lastPoll,
		Config:           m.cfg,
	}
	if m.stats.lastErr != nil {
		s.LastError = m.stats.lastErr.Error()
	}
	return s
}

func sensorError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: read timed out: %w", ErrSensor, err)
	}
	if errors.Is(err, ErrSensor) {
		return err
	}
	return fmt.Errorf("%w: %w", ErrSensor, err)
}

func schedulerError(op string, err error) error {
	if errors.Is(err, ErrScheduler) {
		return fmt.Errorf("%s: %w", op, err)
	}
	return fmt.Errorf("%w: %s: %w", ErrScheduler, op, err)
}
