package discord

import (
	"unicode/utf8"
)

// MediaItem is one pre-formatted notification entry. Title is fully
// resolved upstream; no further business logic is applied here beyond
// markdown escaping and link building.
type MediaItem struct {
	Type      string
	Title     string
	AddedAt   string
	RatingKey string
}

type Embed struct {
	Title       string       `json:"title,omitempty"`
	Description string       `json:"description,omitempty"`
	Color       int          `json:"color,omitempty"`
	Fields      []EmbedField `json:"fields,omitempty"`
	Footer      *EmbedFooter `json:"footer,omitempty"`
	Author      *EmbedAuthor `json:"author,omitempty"`
	Timestamp   string       `json:"timestamp,omitempty"`
}

type EmbedField struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline"`
}

type EmbedFooter struct {
	Text string `json:"text,omitempty"`
}

type EmbedAuthor struct {
	Name string `json:"name,omitempty"`
}

type webhookPayload struct {
	Embeds []Embed `json:"embeds"`
}

// embedSize is the character count Discord applies its 6000-character embed
// limit to: title + description + field names/values + footer + author.
func embedSize(e Embed) int {
	total := utf8.RuneCountInString(e.Title) + utf8.RuneCountInString(e.Description)
	for _, f := range e.Fields {
		total += utf8.RuneCountInString(f.Name) + utf8.RuneCountInString(f.Value)
	}
	if e.Footer != nil {
		total += utf8.RuneCountInString(e.Footer.Text)
	}
	if e.Author != nil {
		total += utf8.RuneCountInString(e.Author.Name)
	}
	return total
}
