package summary_test

import (
	"io"
	"log"
	"testing"

	"plexdigest/internal/summary"
	"plexdigest/internal/tautulli"
)

func TestBuildPayloadResolvesTitlesAndDates(t *testing.T) {
	t.Parallel()

	items := []tautulli.MediaItem{
		{MediaType: "movie", Title: "Dune", Year: "2021", AddedAt: 1700000000, RatingKey: "101"},
		{MediaType: "episode", GrandparentTitle: "X", ParentMediaIndex: "1", MediaIndex: "2", Title: "Y", AddedAt: 1700086400},
		{MediaType: "clip", Title: "Behind the Scenes", AddedAt: 1700000000},
	}

	payload := summary.BuildPayload(items, log.New(io.Discard, "", 0))
	if len(payload) != 3 {
		t.Fatalf("expected 3 payload items, got %d", len(payload))
	}

	if payload[0].Type != "movie" || payload[0].Title != "Dune (2021)" {
		t.Fatalf("movie payload: %+v", payload[0])
	}
	// 1700000000 is 2023-11-14 UTC.
	if payload[0].AddedAt != "2023-11-14" {
		t.Fatalf("short date = %q", payload[0].AddedAt)
	}
	if payload[0].RatingKey != "101" {
		t.Fatalf("rating key = %q", payload[0].RatingKey)
	}

	if payload[1].Title != "X - S01E02 - Y" {
		t.Fatalf("episode payload title = %q", payload[1].Title)
	}
	if payload[1].RatingKey != "" {
		t.Fatalf("missing rating key should stay empty, got %q", payload[1].RatingKey)
	}

	// Unrecognized types keep their raw type string for the dispatcher's
	// Other bucket.
	if payload[2].Type != "clip" || payload[2].Title != "Behind the Scenes" {
		t.Fatalf("clip payload: %+v", payload[2])
	}
}

func TestBuildPayloadEmptyTypeBecomesUnknown(t *testing.T) {
	t.Parallel()

	payload := summary.BuildPayload([]tautulli.MediaItem{{Title: "Mystery", AddedAt: 1700000000}}, log.New(io.Discard, "", 0))
	if len(payload) != 1 || payload[0].Type != "unknown" {
		t.Fatalf("expected type to default to unknown, got %+v", payload)
	}
}
