package summary

import (
	"log"
	"sort"
	"strings"
	"time"

	"plexdigest/internal/discord"
	"plexdigest/internal/tautulli"
	"plexdigest/internal/util"
)

// infoDisplayLimit caps how many items per media type get their own log
// line; the rest are counted into a single summary line.
const infoDisplayLimit = 10

// BuildPayload converts filtered raw items into notification items with
// fully resolved display titles and short dates.
func BuildPayload(items []tautulli.MediaItem, appLogger *log.Logger) []discord.MediaItem {
	if appLogger == nil {
		appLogger = log.Default()
	}

	payload := make([]discord.MediaItem, 0, len(items))
	displayedByType := map[string]int{}
	suppressedByType := map[string]int{}

	for _, item := range items {
		addedAt := time.Unix(int64(item.AddedAt), 0).UTC()
		displayTitle := FormatDisplayTitle(item)
		mediaType := item.MediaType
		if mediaType == "" {
			mediaType = "unknown"
		}

		if displayedByType[mediaType] < infoDisplayLimit {
			appLogger.Printf("  %s %s | added: %s", util.Green("➕"), displayTitle, addedAt.Format("2006-01-02 15:04"))
			displayedByType[mediaType]++
		} else {
			suppressedByType[mediaType]++
		}

		payload = append(payload, discord.MediaItem{
			Type:      mediaType,
			Title:     displayTitle,
			AddedAt:   addedAt.Format("2006-01-02"),
			RatingKey: string(item.RatingKey),
		})
	}

	if len(suppressedByType) > 0 {
		types := make([]string, 0, len(suppressedByType))
		for mediaType := range suppressedByType {
			types = append(types, mediaType)
		}
		sort.Strings(types)
		parts := make([]string, 0, len(types))
		for _, mediaType := range types {
			parts = append(parts, mediaType+": "+util.Bold(suppressedByType[mediaType]))
		}
		appLogger.Printf("  %s ... additional items hidden by type (%s)",
			util.Gray("[SUMMARY]"), strings.Join(parts, ", "))
	}

	return payload
}
