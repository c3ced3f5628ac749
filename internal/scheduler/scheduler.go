package scheduler

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"time"

	"plexdigest/internal/config"
	"plexdigest/internal/util"

	"github.com/robfig/cron/v3"
)

const scheduleTagText = "[SCHEDULE]"

// Run executes job per the configured mode. One-shot mode (run_once, or no
// cron spec) runs the job once and returns its exit code. Scheduled mode
// performs an initial run, then triggers on the cron spec until ctx is
// cancelled; job failures are logged but never escalate to a process exit.
func Run(ctx context.Context, cfg config.Config, job func(context.Context) int, appLogger *log.Logger) int {
	if appLogger == nil {
		appLogger = log.Default()
	}
	tag := util.YellowBold(scheduleTagText)

	if cfg.RunOnce || cfg.Schedule.CronSpec == "" {
		appLogger.Println(util.BlueBold("--- One-Shot Mode ---"))
		return job(ctx)
	}

	appLogger.Println(util.BlueBold("--- Scheduler Mode ---"))
	appLogger.Printf("%s Cron Spec: %s.", tag, util.Yellow(cfg.Schedule.CronSpec))
	appLogger.Printf("%s Performing initial run...", tag)
	if code := job(ctx); code != 0 {
		appLogger.Printf("%s Initial run completed with %s (exit code %d).", tag, util.Yellow("issues"), code)
	}

	jobFuncWrapper := func() {
		runStartTime := time.Now()
		code := job(ctx)
		duration := time.Since(runStartTime).Round(time.Millisecond)

		if code == 0 {
			dayWithSuffix := strconv.Itoa(runStartTime.Day()) + util.GetOrdinalSuffix(runStartTime.Day())
			details := fmt.Sprintf("%s %s %d at %s, took %s",
				dayWithSuffix, runStartTime.Month().String(), runStartTime.Year(),
				runStartTime.Format("15:04"), duration)
			appLogger.Printf("%s Summary run completed. %s", tag, util.Gray("("+details+")"))
		} else {
			appLogger.Printf("%s Scheduled run finished with %s (exit code %d, duration %s).",
				tag, util.Yellow("issues"), code, duration)
		}
	}

	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DefaultLogger)))
	if _, err := c.AddFunc(cfg.Schedule.CronSpec, jobFuncWrapper); err != nil {
		appLogger.Printf("%s Failed to add cron job for spec %q: %v",
			util.RedBold("!!! FATAL"), cfg.Schedule.CronSpec, err)
		return 1
	}
	c.Start()
	appLogger.Printf("%s Scheduler active. Waiting for next run...", tag)

	<-ctx.Done()
	appLogger.Printf("%s Shutdown requested, stopping scheduler...", tag)
	<-c.Stop().Done()
	appLogger.Printf("%s Scheduler shutdown complete.", tag)
	return 0
}
