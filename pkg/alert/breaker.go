package alert

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/sony/gobreaker"
	"github.com/soundprediction/schemagraph/pkg/config"
)

// minTripRequests is the number of calls in an interval before the failure
// ratio is considered.
const minTripRequests = 3

// BreakerSettings builds gobreaker settings from cfg. Opening the breaker
// raises an alert naming what, and other transitions are logged at info.
func BreakerSettings(name, what string, cfg config.CircuitBreakerConfig, alerter Alerter, logger *slog.Logger) gobreaker.Settings {
	if logger == nil {
		logger = slog.Default()
	}
	return gobreaker.Settings{
		Name:        name,
		MaxRequests: cfg.MaxRequests,
		Interval:    time.Duration(cfg.Interval) * time.Second,
		Timeout:     time.Duration(cfg.Timeout) * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < minTripRequests {
				return false
			}
			return float64(counts.TotalFailures)/float64(counts.Requests) >= cfg.ReadyToTripRatio
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Info("circuit breaker state change", "breaker", name, "from", from.String(), "to", to.String())
			if to != gobreaker.StateOpen || alerter == nil {
				return
			}
			subject := "URGENT: Circuit Breaker Tripped - " + name
			body := fmt.Sprintf("Circuit breaker %q went from %s to %s after repeated %s failures.", name, from, to, what)
			if err := alerter.Alert(subject, body); err != nil {
				logger.Warn("alert delivery failed", "breaker", name, "error", err)
			}
		},
	}
}

// Guard runs fn through cb and restores the result type.
func Guard[T any](cb *gobreaker.CircuitBreaker, fn func() (T, error)) (T, error) {
	out, err := cb.Execute(func() (any, error) {
		return fn()
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return out.(T), nil
}
