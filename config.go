package untrusted

import (
	"github.com/pior/untrusted/display"
	"github.com/pior/untrusted/scan"
)

// ExpectPolicy decides which context label describes a failure when nested
// stages fail together.
type ExpectPolicy uint8

const (
	// InnermostWins keeps the most specific expectation. A context label is
	// only used when the failing operation did not describe itself.
	InnermostWins ExpectPolicy = iota

	// OutermostWins lets every enclosing context overwrite the expectation,
	// so errors describe the broadest stage that failed.
	OutermostWins
)

func (p ExpectPolicy) String() string {
	switch p {
	case InnermostWins:
		return "innermost"
	case OutermostWins:
		return "outermost"
	default:
		return "unknown"
	}
}

// Config controls failure-path detail and scanning throughput.
// No option changes the result of a successful parse.
type Config struct {
	// AllocErrors produces *Expected errors instead of *Invalid.
	AllocErrors bool

	// FullBacktrace records every context frame into *Expected errors.
	// Ignored unless AllocErrors is set.
	FullBacktrace bool

	// Vectorized selects scan.Vectorized instead of scan.Scalar.
	Vectorized bool

	// DecodeText renders valid UTF-8 as characters in error previews.
	DecodeText bool

	// Policy selects how context labels relabel failures.
	Policy ExpectPolicy

	// MaxUnits is the preview window size. Defaults to display.DefaultMaxUnits.
	MaxUnits int
}

// DefaultConfig is used by inputs that were not given a Config.
// Minimal errors and scalar scanning.
var DefaultConfig = Config{}

// VerboseConfig returns a Config with every diagnostic option enabled.
func VerboseConfig() Config {
	return Config{
		AllocErrors:   true,
		FullBacktrace: true,
		Vectorized:    true,
		DecodeText:    true,
	}
}

func (c *Config) strategy() scan.Strategy {
	return scan.Select(c.Vectorized)
}

func (c *Config) displayOptions() display.Options {
	return display.Options{MaxUnits: c.MaxUnits, DecodeText: c.DecodeText}
}

func (c *Config) backtrace() bool {
	return c.AllocErrors && c.FullBacktrace
}
