package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"plexdigest/internal/config"
	"plexdigest/internal/discord"
	"plexdigest/internal/scheduler"
	"plexdigest/internal/summary"
	"plexdigest/internal/tautulli"
	"plexdigest/internal/util"
)

func main() {
	log.SetFlags(0)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	log.Println(util.BlueBold("--- Plex Recently Added Digest (plexdigest) ---"))

	appConfig, err := config.LoadConfig(config.Path())
	if err != nil {
		log.Printf("%s %v", util.RedBold("FATAL:"), err)
		os.Exit(1)
	}

	appBaseLogger := log.Default()
	tClient := tautulli.NewClient(appConfig, appBaseLogger)

	runner := &summary.Runner{
		Config: appConfig,
		Client: tClient,
		Logger: appBaseLogger,
	}
	if appConfig.Discord.WebhookURL != "" {
		runner.Notifier = discord.NewNotifier(appConfig, appBaseLogger)
	} else {
		log.Printf("%s No Discord webhook URL configured; summaries will only be logged.", util.Yellow("[INFO]"))
	}

	os.Exit(scheduler.Run(ctx, appConfig, runner.Run, appBaseLogger))
}
