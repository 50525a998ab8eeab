package stream

import (
	"errors"
	"log/slog"
	"time"

	"github.com/sony/gobreaker/v2"

	"github.com/pior/untrusted"
)

// NewBreakerSettings returns breaker settings that open after
// maxConsecutiveFatal malformed frames in a row and let a trial frame through
// after timeout.
func NewBreakerSettings(name string, maxConsecutiveFatal uint32, timeout time.Duration) gobreaker.Settings {
	return gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Timeout:     timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= maxConsecutiveFatal
		},
	}
}

// isHealthy reports whether err leaves the breaker closed. Only malformed
// input counts against it: end of stream, cancellation and I/O failures do
// not.
func isHealthy(err error) bool {
	return !errors.Is(err, untrusted.ErrFatal)
}

func newBreaker[T any](settings gobreaker.Settings, logger *slog.Logger) *gobreaker.CircuitBreaker[T] {
	if settings.IsSuccessful == nil {
		settings.IsSuccessful = isHealthy
	}
	onStateChange := settings.OnStateChange
	settings.OnStateChange = func(name string, from, to gobreaker.State) {
		logger.Warn("untrusted: decoder breaker state changed", "name", name, "from", from.String(), "to", to.String())
		if onStateChange != nil {
			onStateChange(name, from, to)
		}
	}
	return gobreaker.NewCircuitBreaker[T](settings)
}
