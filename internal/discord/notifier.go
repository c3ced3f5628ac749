package discord

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"math/rand"
	"net/http"
	"regexp"
	"sort"
	"strings"
	"time"

	"plexdigest/internal/config"
	"plexdigest/internal/retry"
	"plexdigest/internal/tautulli"
	"plexdigest/internal/util"

	"github.com/go-resty/resty/v2"
)

const (
	// Discord limits. 25 fields per embed is a hard platform cap; the size
	// buffer sits below the 6000-character embed limit to absorb JSON
	// overhead.
	maxFieldValue   = 1024
	maxItemsTotal   = 25
	embedSizeBuffer = 5800

	maxTrimAttempts     = 5
	trimReductionFactor = 0.8

	interMessageDelay = 500 * time.Millisecond

	colorBlurple = 0x5865F2
	colorGreen   = 0x57F287
)

// Display order for category messages. Other collects unrecognized media
// types so nothing is silently dropped.
var categoryOrder = []string{
	"Movies", "TV Shows", "TV Seasons", "TV Episodes", "Music Albums", "Music Tracks", "Other",
}

var mediaIcons = map[string]string{
	"Movies":       "🎬",
	"TV Shows":     "📺",
	"TV Seasons":   "📺",
	"TV Episodes":  "📺",
	"Music Albums": "💿",
	"Music Tracks": "🎵",
	"Other":        "📁",
}

var noNewTitles = []string{
	"🛋️ Quiet Plex vibes",
	"🍃 Nothing new this round",
	"📭 No fresh arrivals",
	"🌙 Calm library check-in",
}

var noNewMessages = []string{
	"No new releases in the last %d %s. Time to add something awesome to the library 🍿",
	"Your Plex library stayed peaceful for %d %s. Maybe tonight is a perfect time to queue a new download ✨",
	"Nothing new landed in the past %d %s. Give your future self a surprise and add something fun 🎬",
	"No new content in %d %s. Friendly reminder: your watchlist won't fill itself 😄",
}

var markdownChars = regexp.MustCompile("([\\\\`*_~\\[\\]])")

// escapeMarkdown keeps titles looking raw in Discord by escaping the
// metacharacters that would alter their visible text.
func escapeMarkdown(s string) string {
	return markdownChars.ReplaceAllString(s, `\$1`)
}

// Notifier sends grouped media summaries to a Discord webhook.
type Notifier struct {
	resty        *resty.Client
	webhookURL   string
	plexURL      string
	plexServerID string
	policy       retry.Policy
	sleep        func(time.Duration)
	now          func() time.Time
	pick         func(n int) int
	logger       *log.Logger
}

func NewNotifier(cfg config.Config, appLogger *log.Logger) *Notifier {
	if appLogger == nil {
		appLogger = log.Default()
	}
	restyClient := resty.New().
		SetTimeout(time.Duration(cfg.Discord.TimeoutSeconds) * time.Second)
	return &Notifier{
		resty:        restyClient,
		webhookURL:   cfg.Discord.WebhookURL,
		plexURL:      strings.TrimSuffix(cfg.Plex.URL, "/"),
		plexServerID: cfg.Plex.ServerID,
		policy: retry.Policy{
			MaxAttempts: cfg.Discord.RetryCount,
			BaseDelay:   time.Second,
		},
		sleep:  time.Sleep,
		now:    time.Now,
		pick:   rand.Intn,
		logger: appLogger,
	}
}

// SetPlexServerID installs an auto-detected machine identifier so items can
// be rendered as deep links.
func (n *Notifier) SetPlexServerID(id string) {
	n.plexServerID = id
}

// SetSleep swaps every sleep (backoff, rate-limit wait, inter-message
// delay); tests use it to avoid real delays.
func (n *Notifier) SetSleep(sleep func(time.Duration)) {
	n.sleep = sleep
	n.policy.Sleep = sleep
}

// SendSummary delivers the grouped summary, one message per category part.
// Delivery failures never surface as errors; the return value is true only
// if every attempted message succeeded.
func (n *Notifier) SendSummary(ctx context.Context, items []MediaItem, daysBack, totalCount int) bool {
	if len(items) == 0 || totalCount == 0 {
		return n.sendNoNewItems(daysBack)
	}

	grouped := groupByCategory(items)

	totalMessages, successCount := 0, 0
	for _, category := range categoryOrder {
		catItems := grouped[category]
		if len(catItems) == 0 {
			continue
		}

		// Oldest first within the category.
		sort.SliceStable(catItems, func(i, j int) bool {
			return catItems[i].AddedAt < catItems[j].AddedAt
		})

		remaining := catItems
		partNum := 1
		for len(remaining) > 0 {
			if ctx.Err() != nil {
				n.logger.Printf("  %s Dispatch cancelled with %d %s items unsent.",
					util.Yellow("[DISCORD]"), len(remaining), category)
				n.logPartial(successCount, totalMessages)
				return false
			}
			totalMessages++

			chunk := remaining
			if len(chunk) > maxItemsTotal {
				chunk = chunk[:maxItemsTotal]
			}

			embed, itemsSent := n.validateAndTrim(category, chunk, daysBack, partNum, len(catItems), remaining)

			resp, err := n.sendWithRetry(embed)
			if err != nil {
				n.logger.Printf("  %s Sending %s part %d failed: %v",
					util.RedBold("[DISCORD ERR]"), category, partNum, err)
				n.logPartial(successCount, totalMessages)
				return false
			}

			switch {
			case resp.IsSuccess():
				successCount++
				remaining = remaining[itemsSent:]
				if len(remaining) > 0 {
					n.logger.Printf("  %s Notification sent: %s (part %d, %d items sent, %d remaining)",
						util.Green("[DISCORD]"), category, partNum, itemsSent, len(remaining))
					n.sleep(interMessageDelay)
				} else {
					n.logger.Printf("  %s Notification sent: %s (%d items total)",
						util.Green("[DISCORD]"), category, len(catItems))
				}
				partNum++
			case resp.StatusCode() == http.StatusBadRequest:
				n.logger.Printf("  %s Discord rejected message (invalid payload): %s (%s part %d). Skipping remaining %d items.",
					util.RedBold("[DISCORD ERR]"), resp.String(), category, partNum, len(remaining))
				remaining = nil
			default:
				n.logger.Printf("  %s Discord webhook failed with status %d: %s (%s part %d). Skipping remaining %d items.",
					util.RedBold("[DISCORD ERR]"), resp.StatusCode(), resp.String(), category, partNum, len(remaining))
				remaining = nil
			}
		}
	}

	if successCount == totalMessages {
		n.logger.Printf("  %s All Discord notifications sent (%d/%d messages)",
			util.GreenBold("[DISCORD]"), successCount, totalMessages)
		return true
	}
	n.logPartial(successCount, totalMessages)
	return false
}

func (n *Notifier) logPartial(successCount, totalMessages int) {
	n.logger.Printf("  %s Partial delivery: %d/%d messages sent successfully.",
		util.YellowBold("[DISCORD WARN]"), successCount, totalMessages)
}

func (n *Notifier) sendNoNewItems(daysBack int) bool {
	embed := n.noNewItemsEmbed(daysBack)
	resp, err := n.sendWithRetry(embed)
	if err != nil {
		n.logger.Printf("  %s Sending no-new-items message failed: %v", util.RedBold("[DISCORD ERR]"), err)
		return false
	}
	if resp.IsSuccess() {
		n.logger.Printf("  %s No-new-items notification sent", util.Green("[DISCORD]"))
		return true
	}
	if resp.StatusCode() == http.StatusBadRequest {
		n.logger.Printf("  %s Discord rejected no-new-items message (invalid payload): %s",
			util.RedBold("[DISCORD ERR]"), resp.String())
	} else {
		n.logger.Printf("  %s Discord webhook failed with status %d for no-new-items message: %s",
			util.RedBold("[DISCORD ERR]"), resp.StatusCode(), resp.String())
	}
	return false
}

func (n *Notifier) noNewItemsEmbed(daysBack int) Embed {
	dayWord := util.Plural(daysBack, "day", "days")
	title := noNewTitles[n.pick(len(noNewTitles))]
	description := fmt.Sprintf(noNewMessages[n.pick(len(noNewMessages))], daysBack, dayWord)
	return Embed{
		Title:       title,
		Description: description,
		Color:       colorBlurple,
		Footer:      &EmbedFooter{Text: "Checked on " + n.now().Format("2006-01-02 15:04:05")},
		Timestamp:   n.now().UTC().Format(time.RFC3339),
	}
}

func groupByCategory(items []MediaItem) map[string][]MediaItem {
	grouped := make(map[string][]MediaItem, len(categoryOrder))
	for _, item := range items {
		grouped[categoryFor(item.Type)] = append(grouped[categoryFor(item.Type)], item)
	}
	return grouped
}

func categoryFor(mediaType string) string {
	switch tautulli.ParseMediaType(mediaType) {
	case tautulli.TypeMovie:
		return "Movies"
	case tautulli.TypeShow:
		return "TV Shows"
	case tautulli.TypeSeason:
		return "TV Seasons"
	case tautulli.TypeEpisode:
		return "TV Episodes"
	case tautulli.TypeAlbum:
		return "Music Albums"
	case tautulli.TypeTrack:
		return "Music Tracks"
	default:
		return "Other"
	}
}

// validateAndTrim builds the category embed and re-measures it against the
// size buffer, shrinking the candidate batch by the reduction factor until
// it fits or attempts run out. Oversized embeds are returned anyway after
// the last attempt; data is never silently dropped.
func (n *Notifier) validateAndTrim(
	category string,
	chunk []MediaItem,
	daysBack, partNum, categoryTotal int,
	remaining []MediaItem,
) (Embed, int) {
	current := chunk
	var embed Embed

	for attempt := 0; attempt < maxTrimAttempts; attempt++ {
		estimatedParts := 1
		if len(current) > 0 {
			estimatedParts = (len(remaining) + len(current) - 1) / len(current)
		}
		embed = n.categoryEmbed(category, current, daysBack, partNum, estimatedParts, categoryTotal)

		size := embedSize(embed)
		if size <= embedSizeBuffer {
			if len(current) < len(chunk) {
				n.logger.Printf("  %s Trimmed %d items from %s part %d to fit Discord size limit (final size: %d chars). They will go out in the next message.",
					util.YellowBold("[DISCORD WARN]"), len(chunk)-len(current), category, partNum, size)
			}
			return embed, len(current)
		}

		if len(current) <= 1 {
			n.logger.Printf("  %s Cannot reduce %s embed further (size: %d chars, limit: %d). Discord may reject this message.",
				util.RedBold("[DISCORD ERR]"), category, size, embedSizeBuffer)
			return embed, len(current)
		}

		newCount := int(float64(len(current)) * trimReductionFactor)
		if newCount < 1 {
			newCount = 1
		}
		n.logger.Printf("  %s Embed too large (%d chars), reducing %s from %d to %d items (attempt %d/%d)",
			util.YellowBold("[DISCORD WARN]"), size, category, len(current), newCount, attempt+1, maxTrimAttempts)
		current = current[:newCount]
	}

	// Smallest version we managed to build; still over budget.
	return embed, len(current)
}

func (n *Notifier) categoryEmbed(
	category string,
	items []MediaItem,
	daysBack, partNum, estimatedParts, categoryTotal int,
) Embed {
	dateRange := fmt.Sprintf("Last %d %s", daysBack, util.Plural(daysBack, "day", "days"))
	icon := mediaIcons[category]

	title := fmt.Sprintf("%s %s - %s", icon, category, dateRange)
	if estimatedParts > 1 || partNum > 1 {
		title = fmt.Sprintf("%s (Part %d)", title, partNum)
	}

	noun := strings.TrimSuffix(strings.ToLower(category), "s")
	if categoryTotal != 1 {
		noun = strings.ToLower(category)
	}
	description := fmt.Sprintf("**%d %s added**", categoryTotal, noun)

	embed := Embed{
		Title:       title,
		Description: description,
		Color:       colorGreen,
		Footer:      &EmbedFooter{Text: "Generated on " + n.now().Format("2006-01-02 15:04:05")},
		Timestamp:   n.now().UTC().Format(time.RFC3339),
	}
	n.addItemFields(&embed, items)
	return embed
}

// addItemFields appends the item list as one or more fields, each capped
// below the per-field value limit and named by the date range it covers.
func (n *Notifier) addItemFields(embed *Embed, items []MediaItem) {
	var lines []string
	var fieldItems []MediaItem
	chars := 0
	chunkNum := 1

	flush := func() {
		if len(lines) == 0 {
			return
		}
		embed.Fields = append(embed.Fields, EmbedField{
			Name:  dateRangeFieldName(fieldItems, chunkNum),
			Value: strings.Join(lines, "\n"),
		})
		chunkNum++
		lines, fieldItems, chars = nil, nil, 0
	}

	for _, item := range items {
		text := n.formatItem(item)
		length := len(text) + 1
		if chars+length > maxFieldValue-50 && len(lines) > 0 {
			flush()
		}
		lines = append(lines, text)
		fieldItems = append(fieldItems, item)
		chars += length
	}
	flush()
}

// dateRangeFieldName renders "DD/MM - DD/MM" from the sorted items of a
// field, collapsing to a single date when the range is one day.
func dateRangeFieldName(items []MediaItem, chunkNum int) string {
	fallback := "Items"
	if chunkNum > 1 {
		fallback = fmt.Sprintf("Items (%d)", chunkNum)
	}
	if len(items) == 0 {
		return fallback
	}
	first, errFirst := time.Parse("2006-01-02", items[0].AddedAt)
	last, errLast := time.Parse("2006-01-02", items[len(items)-1].AddedAt)
	if errFirst != nil || errLast != nil {
		return fallback
	}
	firstFormatted := first.Format("02/01")
	lastFormatted := last.Format("02/01")
	if firstFormatted == lastFormatted {
		return firstFormatted
	}
	return firstFormatted + " - " + lastFormatted
}

func (n *Notifier) formatItem(item MediaItem) string {
	safeTitle := escapeMarkdown(item.Title)

	if n.plexURL != "" && n.plexServerID != "" && item.RatingKey != "" {
		encodedKey := "%2Flibrary%2Fmetadata%2F" + item.RatingKey
		var linkURL string
		if strings.Contains(strings.ToLower(n.plexURL), "plex.tv") {
			linkURL = fmt.Sprintf("%s/desktop#!/server/%s/details?key=%s", n.plexURL, n.plexServerID, encodedKey)
		} else {
			linkURL = fmt.Sprintf("%s/web/index.html#!/server/%s/details?key=%s", n.plexURL, n.plexServerID, encodedKey)
		}
		return fmt.Sprintf("• [%s](%s)", safeTitle, linkURL)
	}
	return fmt.Sprintf("• **%s**", safeTitle)
}

// sendWithRetry posts one message. A 400 is returned immediately (a
// malformed payload will not fix itself); a 429 waits out the
// server-specified retry_after within the attempts budget; anything else
// backs off exponentially.
func (n *Notifier) sendWithRetry(embed Embed) (*resty.Response, error) {
	if err := n.policy.Validate(); err != nil {
		return nil, err
	}

	var lastResp *resty.Response
	var lastErr error
	for attempt := 0; attempt < n.policy.MaxAttempts; attempt++ {
		resp, err := n.resty.R().
			SetBody(webhookPayload{Embeds: []Embed{embed}}).
			Post(n.webhookURL)
		if err != nil {
			lastErr = err
			if attempt < n.policy.MaxAttempts-1 {
				delay := n.policy.Backoff(attempt)
				n.logger.Printf("  %s Webhook attempt %d failed: %v. Retrying in %s...",
					util.Yellow("[DISCORD]"), attempt+1, err, delay)
				n.policy.Wait(delay)
				continue
			}
			return nil, err
		}
		lastResp = resp

		if resp.StatusCode() == http.StatusBadRequest {
			n.logger.Printf("  %s Discord webhook validation failed (400 Bad Request): %s",
				util.RedBold("[DISCORD ERR]"), resp.String())
			return resp, nil
		}
		if resp.StatusCode() == http.StatusTooManyRequests {
			retryAfter := parseRetryAfter(resp.Body())
			n.logger.Printf("  %s Discord rate limit hit, retrying after %s (attempt %d/%d)",
				util.Yellow("[DISCORD]"), retryAfter, attempt+1, n.policy.MaxAttempts)
			n.policy.Wait(retryAfter)
			continue
		}
		return resp, nil
	}

	// Every attempt hit the rate-limit path; surface the last response so
	// the caller sees the 429.
	if lastResp != nil {
		return lastResp, nil
	}
	return nil, lastErr
}

func parseRetryAfter(body []byte) time.Duration {
	var rateLimit struct {
		RetryAfter float64 `json:"retry_after"`
	}
	if err := json.Unmarshal(body, &rateLimit); err != nil || rateLimit.RetryAfter <= 0 {
		return time.Second
	}
	return time.Duration(rateLimit.RetryAfter * float64(time.Second))
}
