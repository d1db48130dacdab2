package splitclient

import (
	"log/slog"

	"github.com/splitio/go-client/v6/splitio/conf"
)

const (
	// LocalhostKey switches the Split SDK to localhost mode, reading
	// treatments from Config.SplitFile.
	LocalhostKey = "localhost"

	// DefaultTrafficType is the Split traffic type conversions are tracked under.
	DefaultTrafficType = "user"

	// defaultBlockUntilReady is the readiness timeout in seconds.
	defaultBlockUntilReady = 10

	// customDataAttributePrefix prefixes the Split attribute holding a custom
	// data slot, e.g. "customData_3".
	customDataAttributePrefix = "customData_"

	// conversionEventPrefix prefixes the Split event type of a conversion,
	// e.g. "conversion_42".
	conversionEventPrefix = "conversion_"
)

// Config configures a Client.
type Config struct {
	// SDKKey is the Split SDK key, or LocalhostKey. Required.
	SDKKey string

	// SplitFile is the treatments file used in localhost mode.
	SplitFile string

	// VisitorCode identifies the visitor every evaluation and conversion is
	// attributed to. A random UUID is used when empty.
	VisitorCode string

	// TrafficType is the Split traffic type of tracked conversions.
	// Defaults to DefaultTrafficType.
	TrafficType string

	// BlockUntilReady is the readiness timeout in seconds. Defaults to 10.
	BlockUntilReady int

	// Logger receives both client and Split SDK logs. Defaults to slog.Default().
	Logger *slog.Logger

	// SplitConfig overrides the Split SDK configuration. SplitFile,
	// BlockUntilReady and the SDK logger are applied on top of it.
	SplitConfig *conf.SplitSdkConfig
}

func (c Config) withDefaults() Config {
	if c.TrafficType == "" {
		c.TrafficType = DefaultTrafficType
	}
	if c.BlockUntilReady <= 0 {
		c.BlockUntilReady = defaultBlockUntilReady
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
	return c
}

// splitConfig builds the Split SDK configuration for c.
func (c Config) splitConfig() *conf.SplitSdkConfig {
	cfg := c.SplitConfig
	if cfg == nil {
		cfg = conf.Default()
	}
	if c.SplitFile != "" {
		cfg.SplitFile = c.SplitFile
	}
	cfg.BlockUntilReady = c.BlockUntilReady
	cfg.Logger = NewSplitLogger(c.Logger)
	return cfg
}

// TestConfig returns a Split SDK configuration tuned for tests and examples:
// short timeouts, small queues and minimum sync intervals.
//
// Usage:
//
//	client, err := splitclient.New(splitclient.Config{
//	    SDKKey:      splitclient.LocalhostKey,
//	    SplitFile:   "./split.yaml",
//	    SplitConfig: splitclient.TestConfig(),
//	})
func TestConfig() *conf.SplitSdkConfig {
	cfg := conf.Default()

	cfg.BlockUntilReady = 5
	cfg.Advanced.HTTPTimeout = 5

	// Debug mode sends every impression instead of batching them
	cfg.ImpressionsMode = "debug"

	cfg.Advanced.EventsQueueSize = 100
	cfg.Advanced.ImpressionsQueueSize = 100
	cfg.Advanced.EventsBulkSize = 100
	cfg.Advanced.ImpressionsBulkSize = 100

	cfg.TaskPeriods.SplitSync = 5       // minimum: 5s
	cfg.TaskPeriods.SegmentSync = 30    // minimum: 30s
	cfg.TaskPeriods.ImpressionSync = 60 // minimum: 60s (debug mode)
	cfg.TaskPeriods.EventsSync = 1      // minimum: 1s
	cfg.TaskPeriods.TelemetrySync = 60

	return cfg
}
