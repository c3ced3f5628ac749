package scheduler_test

import (
	"context"
	"io"
	"log"
	"testing"

	"plexdigest/internal/config"
	"plexdigest/internal/scheduler"
)

func quietLogger() *log.Logger {
	return log.New(io.Discard, "", 0)
}

func TestRunOneShotReturnsJobExitCode(t *testing.T) {
	t.Parallel()

	var cfg config.Config
	cfg.RunOnce = true

	calls := 0
	code := scheduler.Run(context.Background(), cfg, func(context.Context) int {
		calls++
		return 1
	}, quietLogger())
	if code != 1 {
		t.Fatalf("expected job exit code 1, got %d", code)
	}
	if calls != 1 {
		t.Fatalf("expected exactly one run, got %d", calls)
	}
}

func TestRunWithoutCronSpecFallsBackToOneShot(t *testing.T) {
	t.Parallel()

	var cfg config.Config

	calls := 0
	code := scheduler.Run(context.Background(), cfg, func(context.Context) int {
		calls++
		return 0
	}, quietLogger())
	if code != 0 || calls != 1 {
		t.Fatalf("expected one successful run, got code=%d calls=%d", code, calls)
	}
}

func TestRunScheduledContainsJobFailures(t *testing.T) {
	t.Parallel()

	var cfg config.Config
	cfg.Schedule.CronSpec = "0 9 * * MON"

	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	code := scheduler.Run(ctx, cfg, func(context.Context) int {
		calls++
		cancel()
		return 1 // failing job must not escalate in scheduled mode
	}, quietLogger())
	if code != 0 {
		t.Fatalf("scheduled mode must exit 0 on shutdown, got %d", code)
	}
	if calls != 1 {
		t.Fatalf("expected the initial run only, got %d", calls)
	}
}

func TestRunRejectsInvalidCronSpec(t *testing.T) {
	t.Parallel()

	var cfg config.Config
	cfg.Schedule.CronSpec = "not a cron spec"

	code := scheduler.Run(context.Background(), cfg, func(context.Context) int { return 0 }, quietLogger())
	if code != 1 {
		t.Fatalf("expected exit 1 for invalid cron spec, got %d", code)
	}
}
