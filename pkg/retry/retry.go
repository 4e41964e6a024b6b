// Package retry provides the retry policy and backoff schedule used by the request orchestrator.
package retry

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
)

const (
	DefaultRetries         = 5
	DefaultStartingBackoff = time.Second
	DefaultMaxBackoff      = 64 * time.Second
)

// Policy defines retry behavior for one connection.
type Policy struct {
	// Retries is the number of attempts allowed after the first one.
	Retries int `yaml:"retries" json:"retries" validate:"gte=0"`

	// StartingBackoff is the delay before the first retry.
	StartingBackoff time.Duration `yaml:"starting_backoff" json:"starting_backoff" validate:"gte=0"`

	// MaxBackoff caps the doubling delay.
	MaxBackoff time.Duration `yaml:"max_backoff" json:"max_backoff" validate:"gte=0"`

	// RetryOnRateLimit retries 498 responses instead of failing.
	RetryOnRateLimit bool `yaml:"retry_on_ratelimit" json:"retry_on_ratelimit"`
}

// DefaultPolicy returns the default retry policy.
func DefaultPolicy() Policy {
	return Policy{
		Retries:         DefaultRetries,
		StartingBackoff: DefaultStartingBackoff,
		MaxBackoff:      DefaultMaxBackoff,
	}
}

// Validate checks the policy for impossible values.
func (p Policy) Validate() error {
	if p.Retries < 0 {
		return fmt.Errorf("retries must be non-negative, got %d", p.Retries)
	}
	if p.StartingBackoff < 0 || p.MaxBackoff < 0 {
		return fmt.Errorf("backoff durations must be non-negative")
	}
	if p.MaxBackoff < p.StartingBackoff {
		return fmt.Errorf("max backoff %s is below starting backoff %s", p.MaxBackoff, p.StartingBackoff)
	}
	return nil
}

// NewBackoff returns the schedule for one call: StartingBackoff, doubling
// after every use, never exceeding MaxBackoff.
func (p Policy) NewBackoff() *Backoff {
	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = p.StartingBackoff
	eb.MaxInterval = p.MaxBackoff
	eb.Multiplier = 2
	eb.RandomizationFactor = 0
	eb.MaxElapsedTime = 0
	eb.Reset()
	return &Backoff{eb: eb}
}

// Backoff is a deterministic doubling delay sequence.
type Backoff struct {
	eb *backoff.ExponentialBackOff
}

// Next returns the delay to sleep now and advances the schedule.
func (b *Backoff) Next() time.Duration {
	if b.eb.InitialInterval <= 0 {
		return 0
	}
	return b.eb.NextBackOff()
}

// Reset restarts the schedule at the starting delay.
func (b *Backoff) Reset() {
	b.eb.Reset()
}

// Sleeper waits for d or until ctx is done.
type Sleeper func(ctx context.Context, d time.Duration) error

// Sleep is the default Sleeper.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return fmt.Errorf("backoff interrupted: %w", ctx.Err())
	case <-timer.C:
		return nil
	}
}

// Stats tracks retry statistics across calls.
type Stats struct {
	TotalCalls      int           `json:"total_calls"`
	SuccessfulCalls int           `json:"successful_calls"`
	FailedCalls     int           `json:"failed_calls"`
	Retries         int           `json:"retries"`
	Reauths         int           `json:"reauths"`
	AverageAttempts float64       `json:"average_attempts"`
	TotalDelay      time.Duration `json:"total_delay"`
	MaxAttemptsUsed int           `json:"max_attempts_used"`
}

// StatsCollector collects retry statistics
type StatsCollector struct {
	mu            sync.Mutex
	stats         Stats
	totalAttempts int
}

// NewStatsCollector creates a new stats collector
func NewStatsCollector() *StatsCollector {
	return &StatsCollector{}
}

// RecordRetry records one backoff before another attempt.
func (sc *StatsCollector) RecordRetry(delay time.Duration, reauth bool) {
	sc.mu.Lock()
	defer sc.mu.Unlock()

	sc.stats.Retries++
	sc.stats.TotalDelay += delay
	if reauth {
		sc.stats.Reauths++
	}
}

// RecordCall records the outcome of a whole call.
func (sc *StatsCollector) RecordCall(attempts int, success bool) {
	sc.mu.Lock()
	defer sc.mu.Unlock()

	sc.stats.TotalCalls++
	if success {
		sc.stats.SuccessfulCalls++
	} else {
		sc.stats.FailedCalls++
	}
	if attempts > sc.stats.MaxAttemptsUsed {
		sc.stats.MaxAttemptsUsed = attempts
	}
	sc.totalAttempts += attempts
	sc.stats.AverageAttempts = float64(sc.totalAttempts) / float64(sc.stats.TotalCalls)
}

// GetStats returns current statistics
func (sc *StatsCollector) GetStats() Stats {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	return sc.stats
}

// Reset resets statistics
func (sc *StatsCollector) Reset() {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	sc.stats = Stats{}
	sc.totalAttempts = 0
}
