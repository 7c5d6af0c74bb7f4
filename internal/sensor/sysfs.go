package sensor

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/nerrad567/gray-logic-thermal/internal/thermal"
)

// Sysfs reads a temperature from a single integer attribute file.
type Sysfs struct {
	path    string
	divisor int64
}

// NewSysfs creates a Sysfs sensor. A divisor of 0 or 1 leaves values unscaled.
func NewSysfs(path string, divisor int64) *Sysfs {
	if divisor <= 1 {
		divisor = 1
	}
	return &Sysfs{path: path, divisor: divisor}
}

// ReadTemperature implements thermal.Sensor.
//
// The file read runs on its own goroutine so a stalled driver cannot hold
// the caller past ctx; a late result is discarded.
func (s *Sysfs) ReadTemperature(ctx context.Context) (thermal.Temperature, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	type result struct {
		data []byte
		err  error
	}
	done := make(chan result, 1)
	go func() {
		data, err := os.ReadFile(s.path)
		done <- result{data: data, err: err}
	}()

	var r result
	select {
	case r = <-done:
	case <-ctx.Done():
		return 0, fmt.Errorf("reading %s: %w", s.path, ctx.Err())
	}
	if r.err != nil {
		return 0, fmt.Errorf("reading %s: %w", s.path, r.err)
	}

	raw, err := strconv.ParseInt(strings.TrimSpace(string(r.data)), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %s: %w", ErrParse, s.path, err)
	}
	return thermal.Temperature(raw / s.divisor), nil
}
