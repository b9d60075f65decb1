package updates

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

type Jurisdiction string

const (
	JurisdictionFederal  Jurisdiction = "US-Federal"
	JurisdictionIRS      Jurisdiction = "US-IRS"
	JurisdictionCongress Jurisdiction = "US-Congress"
	JurisdictionTurkey   Jurisdiction = "TR"
	JurisdictionGeneral  Jurisdiction = "General"
)

var jurisdictions = []Jurisdiction{
	JurisdictionFederal,
	JurisdictionIRS,
	JurisdictionCongress,
	JurisdictionTurkey,
	JurisdictionGeneral,
}

func (j Jurisdiction) Valid() bool {
	for _, known := range jurisdictions {
		if j == known {
			return true
		}
	}
	return false
}

func ParseJurisdiction(s string) (Jurisdiction, error) {
	j := Jurisdiction(s)
	if !j.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidJurisdiction, s)
	}
	return j, nil
}

type Status string

const (
	StatusDraft     Status = "draft"
	StatusPublished Status = "published"
)

func (s Status) Valid() bool {
	return s == StatusDraft || s == StatusPublished
}

func ParseStatus(s string) (Status, error) {
	status := Status(s)
	if !status.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidStatus, s)
	}
	return status, nil
}

// CanTransition reports whether a record in status from may move to status to.
// Publishing is one-way; re-publishing is a no-op.
func CanTransition(from, to Status) bool {
	if !from.Valid() || !to.Valid() {
		return false
	}
	return from == to || (from == StatusDraft && to == StatusPublished)
}

var (
	ErrInvalidJurisdiction = errors.New("invalid jurisdiction")
	ErrInvalidStatus       = errors.New("invalid status")
	ErrInvalidInput        = errors.New("invalid legal update input")
)

// LegalUpdate is a persisted update record.
type LegalUpdate struct {
	ID           string       `json:"id"`
	Title        string       `json:"title"`
	Slug         string       `json:"slug"`
	PublishedAt  time.Time    `json:"publishedAt"`
	Jurisdiction Jurisdiction `json:"jurisdiction"`
	Tags         []string     `json:"tags"`
	Summary      string       `json:"summary"`
	SummaryTr    *string      `json:"summaryTr,omitempty"`
	SourceName   string       `json:"sourceName"`
	SourceURL    string       `json:"sourceUrl"`
	SourceURLs   []string     `json:"sourceUrls"`
	Status       Status       `json:"status"`
	Hash         string       `json:"hash"`
	CreatedAt    time.Time    `json:"createdAt"`
	UpdatedAt    time.Time    `json:"updatedAt"`
}

// Input is what an ingestor produces. The storage layer assigns the rest.
type Input struct {
	Title        string
	Slug         string
	PublishedAt  time.Time
	Jurisdiction Jurisdiction
	Tags         []string
	Summary      string
	SummaryTr    *string
	SourceName   string
	SourceURL    string
	SourceURLs   []string
}

// Hash returns the dedup key of the input.
func (in Input) Hash() string {
	return GenerateUpdateHash(in.Title, in.PublishedAt)
}

// Normalize lowercases and dedups tags and defaults SourceURLs to the canonical URL.
func (in Input) Normalize() Input {
	in.Title = strings.TrimSpace(in.Title)
	in.Tags = MergeTags(in.Tags)
	if len(in.SourceURLs) == 0 && in.SourceURL != "" {
		in.SourceURLs = []string{in.SourceURL}
	}
	return in
}

func (in Input) Validate() error {
	switch {
	case strings.TrimSpace(in.Title) == "":
		return fmt.Errorf("%w: title is required", ErrInvalidInput)
	case in.Slug == "":
		return fmt.Errorf("%w: slug is required", ErrInvalidInput)
	case in.SourceURL == "":
		return fmt.Errorf("%w: source url is required", ErrInvalidInput)
	case in.PublishedAt.IsZero():
		return fmt.Errorf("%w: published date is required", ErrInvalidInput)
	}

	if !in.Jurisdiction.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidJurisdiction, in.Jurisdiction)
	}

	for _, tag := range in.Tags {
		if tag == "" || tag != strings.ToLower(tag) {
			return fmt.Errorf("%w: tag %q must be non-empty lowercase", ErrInvalidInput, tag)
		}
	}

	return nil
}

// NewRecord builds a draft record from a normalized input.
func NewRecord(id string, in Input, now time.Time) LegalUpdate {
	in = in.Normalize()
	return LegalUpdate{
		ID:           id,
		Title:        in.Title,
		Slug:         in.Slug,
		PublishedAt:  in.PublishedAt.UTC(),
		Jurisdiction: in.Jurisdiction,
		Tags:         in.Tags,
		Summary:      in.Summary,
		SummaryTr:    in.SummaryTr,
		SourceName:   in.SourceName,
		SourceURL:    in.SourceURL,
		SourceURLs:   in.SourceURLs,
		Status:       StatusDraft,
		Hash:         in.Hash(),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}
