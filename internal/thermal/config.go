package thermal

import (
	"fmt"
	"strconv"
	"time"
)

// Temperature is a sensor reading in the sensor's native units.
// The threshold is expressed in the same units; no conversion is applied.
type Temperature int64

// String implements fmt.Stringer.
func (t Temperature) String() string {
	return strconv.FormatInt(int64(t), 10)
}

// Property names looked up in the configuration source.
const (
	PropPollTime    = "poll-time"     // normal poll interval, milliseconds
	PropHotPollTime = "hot-poll-time" // hot poll interval, milliseconds
	PropHotCritTemp = "hot-crit-temp" // hot threshold, sensor units
)

// PropertySource is the external configuration source a monitor is
// started from. Property reports whether name is present.
type PropertySource interface {
	Property(name string) (int64, bool)
}

// PropertyMap is a PropertySource backed by a map.
type PropertyMap map[string]int64

// Property implements PropertySource.
func (p PropertyMap) Property(name string) (int64, bool) {
	v, ok := p[name]
	return v, ok
}

// Config holds the cadence and threshold of a monitor.
// It is immutable once loaded.
type Config struct {
	NormalInterval time.Duration
	HotInterval    time.Duration
	HotThreshold   Temperature
}

// LoadConfig reads the three required properties from src.
//
// Returns:
//   - Config: Loaded configuration
//   - error: ErrConfig naming the first missing or negative property
func LoadConfig(src PropertySource) (Config, error) {
	if src == nil {
		return Config{}, fmt.Errorf("%w: no configuration source", ErrConfig)
	}

	hotMS, err := requireProperty(src, PropHotPollTime)
	if err != nil {
		return Config{}, err
	}
	crit, err := requireProperty(src, PropHotCritTemp)
	if err != nil {
		return Config{}, err
	}
	pollMS, err := requireProperty(src, PropPollTime)
	if err != nil {
		return Config{}, err
	}

	if hotMS < 0 {
		return Config{}, fmt.Errorf("%w: %s must not be negative", ErrConfig, PropHotPollTime)
	}
	if pollMS < 0 {
		return Config{}, fmt.Errorf("%w: %s must not be negative", ErrConfig, PropPollTime)
	}

	return Config{
		NormalInterval: time.Duration(pollMS) * time.Millisecond,
		HotInterval:    time.Duration(hotMS) * time.Millisecond,
		HotThreshold:   Temperature(crit),
	}, nil
}

func requireProperty(src PropertySource, name string) (int64, error) {
	v, ok := src.Property(name)
	if !ok {
		return 0, fmt.Errorf("%w: reading %s failed", ErrConfig, name)
	}
	return v, nil
}

// IsHot reports whether t is at or above the hot threshold.
func (c Config) IsHot(t Temperature) bool {
	return t >= c.HotThreshold
}

// NextInterval returns the delay before the next poll given the last
// known temperature. Without a reading the normal interval is used.
func (c Config) NextInterval(last Temperature, haveReading bool) time.Duration {
	if haveReading && c.IsHot(last) {
		return c.HotInterval
	}
	return c.NormalInterval
}

// FormatStatus renders the control surface status line.
//
// En echoes the disable control: 1 while monitoring is disabled, 0 while
// it runs. Example for an enabled monitor: "En:0 Poll-time:10 sec\n"
func FormatStatus(enabled bool, normalInterval time.Duration) string {
	en := 0
	if !enabled {
		en = 1
	}
	return fmt.Sprintf("En:%d Poll-time:%d sec\n", en, int64(normalInterval/time.Second))
}
