package tautulli

import (
	"encoding/json"
	"strconv"
	"strings"
)

// MediaType is the closed set of categories the rest of the pipeline
// switches over. Anything Tautulli reports outside the known six maps to
// TypeOther so items are never silently lost.
type MediaType string

const (
	TypeMovie   MediaType = "movie"
	TypeShow    MediaType = "show"
	TypeSeason  MediaType = "season"
	TypeEpisode MediaType = "episode"
	TypeAlbum   MediaType = "album"
	TypeTrack   MediaType = "track"
	TypeOther   MediaType = "other"
)

func ParseMediaType(s string) MediaType {
	switch MediaType(strings.ToLower(strings.TrimSpace(s))) {
	case TypeMovie:
		return TypeMovie
	case TypeShow:
		return TypeShow
	case TypeSeason:
		return TypeSeason
	case TypeEpisode:
		return TypeEpisode
	case TypeAlbum:
		return TypeAlbum
	case TypeTrack:
		return TypeTrack
	default:
		return TypeOther
	}
}

// UnixTime decodes Tautulli's added_at field, which arrives either as an
// integer or as a numeric string. Missing or unparseable values decode to 0,
// which places the item outside any reasonable window.
type UnixTime int64

func (t *UnixTime) UnmarshalJSON(b []byte) error {
	s := strings.TrimSpace(strings.Trim(string(b), `"`))
	if s == "" || s == "null" {
		*t = 0
		return nil
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		*t = 0
		return nil
	}
	*t = UnixTime(n)
	return nil
}

// FlexString decodes a field that Tautulli serves as either a JSON string
// or a JSON number.
type FlexString string

func (f *FlexString) UnmarshalJSON(b []byte) error {
	if len(b) == 0 || string(b) == "null" {
		*f = ""
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = FlexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*f = FlexString(n.String())
	return nil
}

// MediaItem is one recently-added entry. No field is guaranteed present;
// display formatting degrades to "Unknown X" fallbacks downstream.
type MediaItem struct {
	MediaType        string     `json:"media_type"`
	AddedAt          UnixTime   `json:"added_at"`
	Title            string     `json:"title"`
	GrandparentTitle string     `json:"grandparent_title"`
	ParentTitle      string     `json:"parent_title"`
	ParentMediaIndex FlexString `json:"parent_media_index"`
	MediaIndex       FlexString `json:"media_index"`
	Year             FlexString `json:"year"`
	RatingKey        FlexString `json:"rating_key"`
}

func (m MediaItem) Type() MediaType {
	return ParseMediaType(m.MediaType)
}

// ServerIdentity holds the Plex machine identifier used for deep links.
type ServerIdentity struct {
	MachineIdentifier string `json:"machine_identifier"`
}

// DecodeRecentlyAdded normalizes the two shapes the get_recently_added data
// payload is known to take: an object wrapping a "recently_added" list
// (newer Tautulli) or a bare list (older Tautulli). ok is false when the
// payload is neither.
func DecodeRecentlyAdded(raw json.RawMessage) (items []MediaItem, ok bool) {
	var wrapped struct {
		RecentlyAdded []MediaItem `json:"recently_added"`
	}
	if err := json.Unmarshal(raw, &wrapped); err == nil && wrapped.RecentlyAdded != nil {
		return wrapped.RecentlyAdded, true
	}
	var bare []MediaItem
	if err := json.Unmarshal(raw, &bare); err == nil {
		return bare, true
	}
	return nil, false
}
