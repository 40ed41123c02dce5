package imgsim

import (
	"log/slog"
	"strings"

	"github.com/hupe1980/imgsim/resource"
)

// DefaultExtensions is the set of file extensions ingested by default.
var DefaultExtensions = []string{".jpg", ".jpeg", ".png", ".gif", ".bmp", ".tiff", ".webp", ".heic"}

type options struct {
	logger           *Logger
	metricsCollector MetricsCollector
	extensions       []string
	resources        resource.Config
}

// Option configures Engine constructor behavior.
type Option func(*options)

// WithLogger configures structured logging for operations.
//
// Example with JSON logging:
//
//	logger := imgsim.NewJSONLogger(slog.LevelInfo)
//	engine, _ := imgsim.New(emb, store, imgsim.WithLogger(logger))
func WithLogger(logger *Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithLogLevel creates a text logger with the specified level and sets it.
// Convenience wrapper for WithLogger(NewTextLogger(level)).
func WithLogLevel(level slog.Level) Option {
	return func(o *options) {
		o.logger = NewTextLogger(level)
	}
}

// WithMetricsCollector configures a metrics collector for monitoring
// operations.
//
// Example with BasicMetricsCollector:
//
//	metrics := &imgsim.BasicMetricsCollector{}
//	engine, _ := imgsim.New(emb, store, imgsim.WithMetricsCollector(metrics))
//	// ... use engine ...
//	stats := metrics.GetStats()
func WithMetricsCollector(mc MetricsCollector) Option {
	return func(o *options) {
		o.metricsCollector = mc
	}
}

// WithExtensions replaces the set of file extensions considered during
// BuildDatabase. Matching is case-insensitive; a leading dot is optional.
func WithExtensions(exts ...string) Option {
	return func(o *options) {
		o.extensions = exts
	}
}

// WithEmbedWorkers sets the number of concurrent embedding computations
// during BuildDatabase. Defaults to 1 (sequential ingestion). Progress
// callbacks stay in enumeration order regardless of worker count.
func WithEmbedWorkers(n int) Option {
	return func(o *options) {
		o.resources.MaxEmbedWorkers = int64(n)
	}
}

// WithIOLimit caps the rate at which image bytes are read from disk during
// ingestion, in bytes per second. 0 means unlimited.
func WithIOLimit(bytesPerSec int64) Option {
	return func(o *options) {
		o.resources.IOLimitBytesPerSec = bytesPerSec
	}
}

func normalizeExt(ext string) string {
	ext = strings.ToLower(ext)
	if ext != "" && ext[0] != '.' {
		ext = "." + ext
	}
	return ext
}

func applyOptions(optFns []Option) options {
	o := options{
		logger:           NoopLogger(),
		metricsCollector: NoopMetricsCollector{},
		extensions:       DefaultExtensions,
	}
	for _, fn := range optFns {
		if fn != nil {
			fn(&o)
		}
	}
	return o
}
