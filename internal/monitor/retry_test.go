package monitor

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestRetryExhaustsAttemptsAndReturnsLastError(t *testing.T) {
	boom := errors.New("boom")
	calls := 0

	_, err := Retry(context.Background(), RetryPolicy{
		MaxRetries:    3,
		InitialDelay:  time.Millisecond,
		BackoffFactor: 2,
	}, func() (int, error) {
		calls++
		return 0, boom
	})

	if calls != 4 {
		t.Fatalf("expected 4 attempts (maxRetries+1), got %d", calls)
	}
	if !errors.Is(err, boom) {
		t.Fatalf("expected original error to propagate unchanged, got %v", err)
	}
	if err.Error() != "boom" {
		t.Fatalf("expected unwrapped error, got %q", err.Error())
	}
}

func TestRetryStopsOnFirstSuccess(t *testing.T) {
	calls := 0

	v, err := Retry(context.Background(), RetryPolicy{
		MaxRetries:    3,
		InitialDelay:  time.Millisecond,
		BackoffFactor: 2,
	}, func() (int, error) {
		calls++
		if calls < 3 {
			return 0, errors.New("transient")
		}
		return 42, nil
	})

	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v != 42 {
		t.Fatalf("expected 42, got %d", v)
	}
	if calls != 3 {
		t.Fatalf("expected 3 attempts, got %d", calls)
	}
}

func TestRetryDelaysFollowBackoffFactor(t *testing.T) {
	var stamps []time.Time

	_, _ = Retry(context.Background(), RetryPolicy{
		MaxRetries:    3,
		InitialDelay:  20 * time.Millisecond,
		BackoffFactor: 2,
	}, func() (int, error) {
		stamps = append(stamps, time.Now())
		return 0, errors.New("always")
	})

	if len(stamps) != 4 {
		t.Fatalf("expected 4 attempts, got %d", len(stamps))
	}

	var gaps []time.Duration
	for i := 1; i < len(stamps); i++ {
		gaps = append(gaps, stamps[i].Sub(stamps[i-1]))
	}

	// Delays must be non-decreasing and at least the configured minimums
	// (20ms, 40ms, 80ms).
	want := []time.Duration{20 * time.Millisecond, 40 * time.Millisecond, 80 * time.Millisecond}
	for i, gap := range gaps {
		if gap < want[i] {
			t.Errorf("gap %d = %v, want >= %v", i, gap, want[i])
		}
		if i > 0 && gap < gaps[i-1] {
			t.Errorf("gap %d = %v decreased from %v", i, gap, gaps[i-1])
		}
	}
}

func TestRetryHonorsContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	calls := 0
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	_, err := Retry(ctx, RetryPolicy{
		MaxRetries:    10,
		InitialDelay:  time.Hour, // would hang without cancellation
		BackoffFactor: 2,
	}, func() (int, error) {
		calls++
		return 0, errors.New("always")
	})

	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if calls != 1 {
		t.Fatalf("expected a single attempt before cancellation, got %d", calls)
	}
}
