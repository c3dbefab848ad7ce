// Package scheduler runs periodic housekeeping on the quote store: it
// rebuilds the index from the record files and prunes stale previews.
package scheduler

import "time"

// Config holds scheduler configuration options.
type Config struct {
	// Schedule is a cron spec or descriptor such as "@daily" or "0 3 * * *".
	// Default: @daily.
	Schedule string

	// PreviewMaxAge is the age after which preview documents are removed.
	// Zero disables pruning. Default: 1 hour.
	PreviewMaxAge time.Duration

	// RunOnStart controls whether to run a cycle immediately on startup.
	// Default: false.
	RunOnStart bool
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Schedule:      "@daily",
		PreviewMaxAge: time.Hour,
		RunOnStart:    false,
	}
}

// Option is a function that modifies Config.
type Option func(*Config)

// WithSchedule sets the cron spec.
func WithSchedule(spec string) Option {
	return func(c *Config) {
		c.Schedule = spec
	}
}

// WithPreviewMaxAge sets the preview retention.
func WithPreviewMaxAge(d time.Duration) Option {
	return func(c *Config) {
		c.PreviewMaxAge = d
	}
}

// WithRunOnStart controls whether to run immediately on start.
func WithRunOnStart(b bool) Option {
	return func(c *Config) {
		c.RunOnStart = b
	}
}
