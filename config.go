package meter

import (
	"os"
	"strconv"
	"sync/atomic"
)

// defaultProgressPeriodMillis is the out-of-the-box progress throttle; test
// harnesses set it to 0 to disable throttling.
const defaultProgressPeriodMillis = 5000

// Config holds the process-wide settings a Meter reads from: progress
// throttling, telemetry collection, and DATA_* envelope decoration. Reads
// are lock-free; writes are assumed infrequent and are the host's
// responsibility to serialize.
type Config struct {
	progressPeriodMillis   atomic.Int64
	collectSystemTelemetry atomic.Bool
	dataPrefix             atomic.Value // string
	dataSuffix             atomic.Value // string
}

// ConfigOption configures a Config at construction time.
type ConfigOption func(*Config)

// WithProgressPeriodMillis sets the progress throttle period in milliseconds.
// Zero disables throttling entirely (every progress() call with an
// advanced iteration count emits).
func WithProgressPeriodMillis(ms int64) ConfigOption {
	return func(c *Config) { c.progressPeriodMillis.Store(ms) }
}

// WithSystemTelemetry enables or disables SystemProbe snapshots on every
// transition. Disabled by default.
func WithSystemTelemetry(enabled bool) ConfigOption {
	return func(c *Config) { c.collectSystemTelemetry.Store(enabled) }
}

// WithDataEnvelope sets the prefix/suffix wrapped around the serialized
// MeterData for DATA_* events.
func WithDataEnvelope(prefix, suffix string) ConfigOption {
	return func(c *Config) {
		c.dataPrefix.Store(prefix)
		c.dataSuffix.Store(suffix)
	}
}

// NewConfig returns a Config with library defaults applied, then each
// option in order.
func NewConfig(opts ...ConfigOption) *Config {
	c := &Config{}
	c.progressPeriodMillis.Store(defaultProgressPeriodMillis)
	c.dataPrefix.Store("")
	c.dataSuffix.Store("")
	c.loadFromEnv()
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Config) loadFromEnv() {
	if v := os.Getenv("METER_PROGRESS_PERIOD_MILLIS"); v != "" {
		if ms, err := strconv.ParseInt(v, 10, 64); err == nil {
			c.progressPeriodMillis.Store(ms)
		}
	}
	if v := os.Getenv("METER_COLLECT_SYSTEM_TELEMETRY"); v != "" {
		if enabled, err := strconv.ParseBool(v); err == nil {
			c.collectSystemTelemetry.Store(enabled)
		}
	}
}

// ProgressPeriodMillis returns the current throttle period.
func (c *Config) ProgressPeriodMillis() int64 { return c.progressPeriodMillis.Load() }

// SetProgressPeriodMillis updates the throttle period; test harnesses use
// this to set it to 0.
func (c *Config) SetProgressPeriodMillis(ms int64) { c.progressPeriodMillis.Store(ms) }

// CollectSystemTelemetry reports whether the emission layer should ask the
// SystemProbe to populate telemetry fields.
func (c *Config) CollectSystemTelemetry() bool { return c.collectSystemTelemetry.Load() }

// SetCollectSystemTelemetry toggles telemetry collection at runtime.
func (c *Config) SetCollectSystemTelemetry(enabled bool) { c.collectSystemTelemetry.Store(enabled) }

// DataEnvelope returns the configured prefix/suffix for DATA_* payloads.
func (c *Config) DataEnvelope() (prefix, suffix string) {
	return c.dataPrefix.Load().(string), c.dataSuffix.Load().(string)
}

// ResetForTest restores library defaults, disables telemetry, and clears
// the envelope decoration. It does not disable progress throttling; call
// SetProgressPeriodMillis(0) explicitly if a test needs every progress()
// call to emit.
func (c *Config) ResetForTest() {
	c.progressPeriodMillis.Store(defaultProgressPeriodMillis)
	c.collectSystemTelemetry.Store(false)
	c.dataPrefix.Store("")
	c.dataSuffix.Store("")
}

// globalConfig is the process-wide Config every Meter created via the
// package-level constructors reads from, unless overridden per call.
var globalConfig = NewConfig()

// DefaultConfig returns the process-wide Config.
func DefaultConfig() *Config { return globalConfig }
