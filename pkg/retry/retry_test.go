package retry

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestDefaultPolicy(t *testing.T) {
	p := DefaultPolicy()

	if p.Retries != 5 {
		t.Errorf("Expected 5 retries, got %d", p.Retries)
	}
	if p.StartingBackoff != time.Second {
		t.Errorf("Expected 1s starting backoff, got %v", p.StartingBackoff)
	}
	if p.MaxBackoff != 64*time.Second {
		t.Errorf("Expected 64s max backoff, got %v", p.MaxBackoff)
	}
	if p.RetryOnRateLimit {
		t.Error("Expected rate limit retries to be off by default")
	}
	if err := p.Validate(); err != nil {
		t.Errorf("Expected default policy to validate, got %v", err)
	}
}

func TestPolicy_Validate(t *testing.T) {
	tests := []struct {
		name    string
		policy  Policy
		wantErr bool
	}{
		{"zero retries", Policy{Retries: 0, StartingBackoff: time.Second, MaxBackoff: time.Second}, false},
		{"negative retries", Policy{Retries: -1}, true},
		{"negative backoff", Policy{StartingBackoff: -time.Second}, true},
		{"max below start", Policy{StartingBackoff: 2 * time.Second, MaxBackoff: time.Second}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.policy.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestBackoff_DoublesAndCaps(t *testing.T) {
	b := DefaultPolicy().NewBackoff()

	want := []time.Duration{1, 2, 4, 8, 16, 32, 64, 64, 64}
	for i, w := range want {
		got := b.Next()
		if got != w*time.Second {
			t.Errorf("step %d: Expected %v, got %v", i, w*time.Second, got)
		}
	}

	b.Reset()
	if got := b.Next(); got != time.Second {
		t.Errorf("Expected reset to restart at 1s, got %v", got)
	}
}

func TestBackoff_UnevenCap(t *testing.T) {
	b := Policy{StartingBackoff: 3 * time.Second, MaxBackoff: 10 * time.Second}.NewBackoff()

	want := []time.Duration{3, 6, 10, 10}
	for i, w := range want {
		if got := b.Next(); got != w*time.Second {
			t.Errorf("step %d: Expected %v, got %v", i, w*time.Second, got)
		}
	}
}

func TestBackoff_Zero(t *testing.T) {
	b := Policy{}.NewBackoff()
	for i := 0; i < 3; i++ {
		if got := b.Next(); got != 0 {
			t.Errorf("Expected zero backoff, got %v", got)
		}
	}
}

func TestSleep_ContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	start := time.Now()
	err := Sleep(ctx, time.Minute)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
	if time.Since(start) > time.Second {
		t.Error("Sleep did not return promptly after cancellation")
	}
}

func TestSleep_Elapses(t *testing.T) {
	if err := Sleep(context.Background(), 5*time.Millisecond); err != nil {
		t.Errorf("Expected nil error, got %v", err)
	}
	if err := Sleep(context.Background(), 0); err != nil {
		t.Errorf("Expected nil error for zero sleep, got %v", err)
	}
}

func TestStatsCollector(t *testing.T) {
	sc := NewStatsCollector()

	sc.RecordRetry(time.Second, false)
	sc.RecordRetry(2*time.Second, true)
	sc.RecordCall(3, true)
	sc.RecordCall(1, false)

	stats := sc.GetStats()
	if stats.TotalCalls != 2 {
		t.Errorf("Expected 2 calls, got %d", stats.TotalCalls)
	}
	if stats.SuccessfulCalls != 1 || stats.FailedCalls != 1 {
		t.Errorf("Expected 1 success and 1 failure, got %d/%d", stats.SuccessfulCalls, stats.FailedCalls)
	}
	if stats.Retries != 2 || stats.Reauths != 1 {
		t.Errorf("Expected 2 retries and 1 reauth, got %d/%d", stats.Retries, stats.Reauths)
	}
	if stats.TotalDelay != 3*time.Second {
		t.Errorf("Expected 3s total delay, got %v", stats.TotalDelay)
	}
	if stats.AverageAttempts != 2 {
		t.Errorf("Expected average of 2 attempts, got %v", stats.AverageAttempts)
	}
	if stats.MaxAttemptsUsed != 3 {
		t.Errorf("Expected max attempts 3, got %d", stats.MaxAttemptsUsed)
	}

	sc.Reset()
	if sc.GetStats().TotalCalls != 0 {
		t.Error("Expected stats to be cleared")
	}
}
