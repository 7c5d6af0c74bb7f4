package influxdb

import (
	"context"
	"errors"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"

	"github.com/nerrad567/gray-logic-thermal/internal/infrastructure/config"
	"github.com/nerrad567/gray-logic-thermal/internal/thermal"
)

// testConfig matches the local development InfluxDB.
func testConfig() config.InfluxDBConfig {
	return config.InfluxDBConfig{
		Enabled:       true,
		URL:           "http://127.0.0.1:8086",
		Token:         "graylogic-dev-token",
		Org:           "graylogic",
		Bucket:        "metrics",
		BatchSize:     100,
		FlushInterval: 1,
	}
}

func connectOrSkip(t *testing.T) *Client {
	t.Helper()
	if testing.Short() && os.Getenv("RUN_INTEGRATION") == "" {
		t.Skip("skipping InfluxDB integration test in short mode")
	}
	client, err := Connect(testConfig(), "test-site")
	if err != nil {
		t.Skipf("InfluxDB not available: %v", err)
	}
	t.Cleanup(func() { client.Close() }) //nolint:errcheck // Test cleanup
	return client
}

func lineProtocol(p *write.Point) string {
	return write.PointToLineProtocol(p, time.Nanosecond)
}

func TestReadingPoint(t *testing.T) {
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		reading thermal.Reading
		want    []string
		notWant []string
	}{
		{
			name: "hot reading",
			reading: thermal.Reading{
				Monitor: "xo-therm", Value: 85, HasValue: true, Hot: true,
				Interval: 2 * time.Second, Time: at,
			},
			want: []string{
				"thermal_reading,monitor=xo-therm,site=lab ",
				"value=85i", "hot=true", "interval_ms=2000i", "read_error=false",
			},
		},
		{
			name: "failure before first reading",
			reading: thermal.Reading{
				Monitor: "xo-therm", Interval: 10 * time.Second,
				Err: errors.New("busy"), Time: at,
			},
			want:    []string{"read_error=true", "hot=false", "interval_ms=10000i"},
			notWant: []string{"value="},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			line := lineProtocol(readingPoint("lab", tt.reading))
			for _, w := range tt.want {
				if !strings.Contains(line, w) {
					t.Errorf("line %q does not contain %q", line, w)
				}
			}
			for _, w := range tt.notWant {
				if strings.Contains(line, w) {
					t.Errorf("line %q contains %q", line, w)
				}
			}
			if !strings.HasSuffix(strings.TrimSpace(line), "1772366400000000000") {
				t.Errorf("line %q does not end with the reading time", line)
			}
		})
	}
}

func TestTogglePoint(t *testing.T) {
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	line := lineProtocol(togglePoint("", "xo-therm", false, "mqtt", at))

	if !strings.HasPrefix(line, "thermal_control,monitor=xo-therm,source=mqtt enabled=false ") {
		t.Errorf("line = %q", line)
	}
	if strings.Contains(line, "site=") {
		t.Errorf("empty site produced a tag: %q", line)
	}
}

func TestConnect_Disabled(t *testing.T) {
	cfg := testConfig()
	cfg.Enabled = false

	if _, err := Connect(cfg, ""); !errors.Is(err, ErrDisabled) {
		t.Errorf("Connect() error = %v, want ErrDisabled", err)
	}
}

func TestConnect_Unreachable(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping connection timeout test in short mode")
	}
	cfg := testConfig()
	cfg.URL = "http://127.0.0.1:59999"

	if _, err := Connect(cfg, ""); !errors.Is(err, ErrConnectionFailed) {
		t.Errorf("Connect() error = %v, want ErrConnectionFailed", err)
	}
}

func TestZeroClient(t *testing.T) {
	var c *Client
	if c.IsConnected() {
		t.Error("nil client reports connected")
	}
	if err := c.Close(); err != nil {
		t.Errorf("Close() on nil client error = %v", err)
	}

	zero := &Client{}
	zero.WriteReading(thermal.Reading{Monitor: "cpu"})
	zero.Flush()
	if err := zero.HealthCheck(context.Background()); !errors.Is(err, ErrNotConnected) {
		t.Errorf("HealthCheck() error = %v, want ErrNotConnected", err)
	}
}

func TestWriteReading_Integration(t *testing.T) {
	client := connectOrSkip(t)

	writeErrs := make(chan error, 8)
	client.SetOnError(func(err error) {
		select {
		case writeErrs <- err:
		default:
		}
	})

	client.WriteReading(thermal.Reading{
		Monitor: "xo-therm", Value: 50, HasValue: true,
		Interval: 10 * time.Second, Time: time.Now(),
	})
	client.WriteToggle("xo-therm", false, "http", time.Now())
	client.Flush()

	if err := client.HealthCheck(context.Background()); err != nil {
		t.Errorf("HealthCheck() error = %v", err)
	}
	select {
	case err := <-writeErrs:
		t.Errorf("async write error = %v", err)
	default:
	}
}
