package retry_test

import (
	"errors"
	"testing"
	"time"

	"plexdigest/internal/retry"
)

func TestDoSucceedsAfterTransientFailures(t *testing.T) {
	t.Parallel()

	var sleeps []time.Duration
	policy := retry.Policy{
		MaxAttempts: 3,
		BaseDelay:   time.Second,
		Sleep:       func(d time.Duration) { sleeps = append(sleeps, d) },
	}

	calls := 0
	err := policy.Do(func() error {
		calls++
		if calls < 3 {
			return errors.New("transient")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Do: %v", err)
	}
	if calls != 3 {
		t.Fatalf("expected 3 calls, got %d", calls)
	}
	if len(sleeps) != 2 || sleeps[0] != time.Second || sleeps[1] != 2*time.Second {
		t.Fatalf("expected backoff [1s 2s], got %v", sleeps)
	}
}

func TestDoReturnsLastErrorOnExhaustion(t *testing.T) {
	t.Parallel()

	var sleeps []time.Duration
	policy := retry.Policy{
		MaxAttempts: 3,
		BaseDelay:   time.Second,
		Sleep:       func(d time.Duration) { sleeps = append(sleeps, d) },
	}

	calls := 0
	wantErr := errors.New("still broken")
	err := policy.Do(func() error {
		calls++
		return wantErr
	})
	if !errors.Is(err, wantErr) {
		t.Fatalf("expected last error, got %v", err)
	}
	if calls != 3 {
		t.Fatalf("expected 3 calls, got %d", calls)
	}
	if len(sleeps) != 2 {
		t.Fatalf("expected 2 sleeps (no sleep after final attempt), got %d", len(sleeps))
	}
}

func TestDoStopsImmediatelyOnPermanentError(t *testing.T) {
	t.Parallel()

	policy := retry.Policy{
		MaxAttempts: 5,
		BaseDelay:   time.Second,
		Sleep:       func(time.Duration) { t.Fatal("permanent error must not back off") },
	}

	calls := 0
	sentinel := errors.New("shape mismatch")
	err := policy.Do(func() error {
		calls++
		return retry.Permanent(sentinel)
	})
	if !errors.Is(err, sentinel) {
		t.Fatalf("expected sentinel, got %v", err)
	}
	if calls != 1 {
		t.Fatalf("expected 1 call, got %d", calls)
	}
}

func TestValidateRejectsZeroAttempts(t *testing.T) {
	t.Parallel()

	policy := retry.Policy{MaxAttempts: 0}
	if err := policy.Do(func() error { return nil }); !errors.Is(err, retry.ErrNoAttempts) {
		t.Fatalf("expected ErrNoAttempts, got %v", err)
	}
}

func TestBackoffDoubles(t *testing.T) {
	t.Parallel()

	policy := retry.Policy{MaxAttempts: 4, BaseDelay: time.Second}
	want := []time.Duration{time.Second, 2 * time.Second, 4 * time.Second, 8 * time.Second}
	for i, expected := range want {
		if got := policy.Backoff(i); got != expected {
			t.Fatalf("Backoff(%d) = %v, want %v", i, got, expected)
		}
	}
	if got := policy.Backoff(-1); got != time.Second {
		t.Fatalf("negative attempt should clamp to base delay, got %v", got)
	}
}

func TestNotifyReportsFailedAttempts(t *testing.T) {
	t.Parallel()

	var attempts []int
	policy := retry.Policy{
		MaxAttempts: 3,
		BaseDelay:   time.Second,
		Sleep:       func(time.Duration) {},
		Notify: func(attempt int, delay time.Duration, err error) {
			attempts = append(attempts, attempt)
		},
	}

	_ = policy.Do(func() error { return errors.New("nope") })
	if len(attempts) != 2 || attempts[0] != 1 || attempts[1] != 2 {
		t.Fatalf("expected notifications for attempts [1 2], got %v", attempts)
	}
}
