package summary

import (
	"fmt"
	"strconv"

	"plexdigest/internal/tautulli"
)

func orDefault(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}

// FormatDisplayTitle renders one raw item as a human-readable title. Pure:
// same item in, same string out, with deterministic "Unknown X" fallbacks
// for missing names.
func FormatDisplayTitle(item tautulli.MediaItem) string {
	switch item.Type() {
	case tautulli.TypeEpisode:
		show := orDefault(item.GrandparentTitle, "Unknown Show")
		episodeTitle := orDefault(item.Title, "Unknown Episode")
		season := orDefault(string(item.ParentMediaIndex), "?")
		episode := orDefault(string(item.MediaIndex), "?")

		seasonNum, episodeNum := 0, 0
		numeric := true
		if season != "?" {
			if n, err := strconv.Atoi(season); err == nil {
				seasonNum = n
			} else {
				numeric = false
			}
		}
		if episode != "?" {
			if n, err := strconv.Atoi(episode); err == nil {
				episodeNum = n
			} else {
				numeric = false
			}
		}
		if numeric {
			return fmt.Sprintf("%s - S%02dE%02d - %s", show, seasonNum, episodeNum, episodeTitle)
		}
		// Non-numeric season/episode markers are rendered verbatim.
		return fmt.Sprintf("%s - S%sE%s - %s", show, season, episode, episodeTitle)

	case tautulli.TypeSeason:
		show := orDefault(item.ParentTitle, "Unknown Show")
		season := orDefault(string(item.MediaIndex), "?")
		return fmt.Sprintf("%s - Season %s", show, season)

	case tautulli.TypeShow:
		show := orDefault(item.Title, "Unknown Show")
		if item.Year != "" {
			return fmt.Sprintf("%s (%s)", show, item.Year)
		}
		return fmt.Sprintf("%s (New Series)", show)

	case tautulli.TypeTrack:
		artist := orDefault(item.GrandparentTitle, "Unknown Artist")
		album := orDefault(item.ParentTitle, "Unknown Album")
		track := orDefault(item.Title, "Unknown Track")
		return fmt.Sprintf("%s - %s - %s", artist, album, track)

	case tautulli.TypeAlbum:
		artist := orDefault(item.ParentTitle, "Unknown Artist")
		album := orDefault(item.Title, "Unknown Album")
		return fmt.Sprintf("%s - %s", artist, album)

	case tautulli.TypeMovie:
		title := orDefault(item.Title, "Unknown Movie")
		if item.Year != "" {
			return fmt.Sprintf("%s (%s)", title, item.Year)
		}
		return title

	default:
		return orDefault(item.Title, "Unknown")
	}
}
