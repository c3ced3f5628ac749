package summary

import (
	"context"
	"log"

	"plexdigest/internal/config"
	"plexdigest/internal/discord"
	"plexdigest/internal/tautulli"
	"plexdigest/internal/util"
)

// Notifier is the dispatch surface the runner reports to.
type Notifier interface {
	SetPlexServerID(id string)
	SendSummary(ctx context.Context, items []discord.MediaItem, daysBack, totalCount int) bool
}

// Runner executes one complete fetch-and-notify cycle. Each cycle builds
// its own fetch state from scratch; nothing is shared between cycles.
type Runner struct {
	Config   config.Config
	Client   *tautulli.Client
	Notifier Notifier // nil disables Discord dispatch
	Logger   *log.Logger
}

// Run performs one summary cycle and returns a process exit code: 0 on
// success, 1 on a fetch or delivery failure. The caller decides whether a
// nonzero code is fatal (one-shot) or merely logged (scheduled).
func (r *Runner) Run(ctx context.Context) int {
	logger := r.Logger
	if logger == nil {
		logger = log.Default()
	}
	days := r.Config.Summary.DaysBack

	logger.Printf("%s Starting Plex summary (last %d %s)",
		util.Green("[RUN]"), days, util.Plural(days, "day", "days"))

	fetcher := NewFetcher(r.Client, logger)
	items, err := fetcher.FetchItems(ctx, days, r.Config.Summary.InitialBatchSize)
	if err != nil {
		logger.Printf("%s Fetching recently added items failed: %v", util.RedBold("!!! ERROR"), err)
		return 1
	}

	payload := BuildPayload(items, logger)

	exitCode := 0
	if r.Notifier != nil {
		if r.Config.Plex.ServerID == "" {
			r.autoDetectServerID(logger)
		}
		if !r.Notifier.SendSummary(ctx, payload, days, len(items)) {
			exitCode = 1
		}
	} else {
		logger.Printf("%s No Discord webhook configured, skipping notification", util.Gray("[RUN]"))
	}

	logger.Printf("%s Run complete: %s items in the last %d %s",
		util.Green("[RUN]"), util.GreenBold(len(items)), days, util.Plural(days, "day", "days"))
	return exitCode
}

// autoDetectServerID asks Tautulli for the Plex machine identifier so items
// can link into the library. Failure only costs the deep links.
func (r *Runner) autoDetectServerID(logger *log.Logger) {
	identity, err := r.Client.GetServerIdentity()
	if err != nil {
		logger.Printf("%s Could not fetch Plex server identity: %v", util.Yellow("[RUN WARN]"), err)
		return
	}
	if identity.MachineIdentifier == "" {
		logger.Printf("%s Could not auto-detect Plex Server ID from Tautulli", util.Yellow("[RUN WARN]"))
		return
	}
	logger.Printf("%s Auto-detected Plex Server ID: %s", util.Cyan("[RUN]"), identity.MachineIdentifier)
	r.Notifier.SetPlexServerID(identity.MachineIdentifier)
}
