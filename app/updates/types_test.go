package updates

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validInput() Input {
	return Input{
		Title:        "Notice 2024-01",
		Slug:         "notice-2024-01",
		PublishedAt:  time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC),
		Jurisdiction: JurisdictionIRS,
		Tags:         []string{"irs", "tax"},
		Summary:      "summary",
		SourceName:   "IRS News Releases",
		SourceURL:    "https://www.irs.gov/newsroom/notice-2024-01",
	}
}

func TestInputValidate(t *testing.T) {
	require.NoError(t, validInput().Validate())

	in := validInput()
	in.Jurisdiction = "EU"
	assert.True(t, errors.Is(in.Validate(), ErrInvalidJurisdiction))

	in = validInput()
	in.Title = "  "
	assert.True(t, errors.Is(in.Validate(), ErrInvalidInput))

	in = validInput()
	in.Tags = []string{"Tax"}
	assert.True(t, errors.Is(in.Validate(), ErrInvalidInput))
}

func TestInputNormalize(t *testing.T) {
	in := validInput()
	in.Tags = []string{"Tax", "irs", "tax", " IRS "}

	normalized := in.Normalize()
	assert.Equal(t, []string{"tax", "irs"}, normalized.Tags)
	assert.Equal(t, []string{in.SourceURL}, normalized.SourceURLs)

	in.SourceURLs = []string{"https://a", "https://b"}
	assert.Equal(t, []string{"https://a", "https://b"}, in.Normalize().SourceURLs)
}

func TestNewRecord(t *testing.T) {
	now := time.Date(2024, 2, 1, 12, 0, 0, 0, time.UTC)
	record := NewRecord("id-1", validInput(), now)

	assert.Equal(t, "id-1", record.ID)
	assert.Equal(t, StatusDraft, record.Status)
	assert.Equal(t, now, record.CreatedAt)
	assert.Equal(t, now, record.UpdatedAt)
	assert.Equal(t, validInput().Hash(), record.Hash)
	assert.Equal(t, []string{validInput().SourceURL}, record.SourceURLs)
}

func TestParseEnums(t *testing.T) {
	j, err := ParseJurisdiction("US-Congress")
	require.NoError(t, err)
	assert.Equal(t, JurisdictionCongress, j)

	_, err = ParseJurisdiction("us-congress")
	assert.ErrorIs(t, err, ErrInvalidJurisdiction)

	s, err := ParseStatus("published")
	require.NoError(t, err)
	assert.Equal(t, StatusPublished, s)

	_, err = ParseStatus("archived")
	assert.ErrorIs(t, err, ErrInvalidStatus)
}

func TestCanTransition(t *testing.T) {
	assert.True(t, CanTransition(StatusDraft, StatusPublished))
	assert.True(t, CanTransition(StatusPublished, StatusPublished))
	assert.False(t, CanTransition(StatusPublished, StatusDraft))
	assert.False(t, CanTransition(StatusDraft, "archived"))
}

func TestTagRulesMatch(t *testing.T) {
	rules := TagRules{
		{Tag: "tax", Keywords: []string{"tax", "revenue"}},
		{Tag: "refund", Keywords: []string{"refund"}},
		{Tag: "immigration", Keywords: []string{"visa"}},
	}

	assert.Equal(t, []string{"tax", "refund"}, rules.Match("Your Tax REFUND status"))
	assert.Empty(t, rules.Match("nothing relevant"))
}

func TestFiltersApply(t *testing.T) {
	base := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	all := []LegalUpdate{
		{Slug: "a", Title: "Tax rule", Summary: "s", Jurisdiction: JurisdictionFederal, Tags: []string{"tax"}, Status: StatusPublished, PublishedAt: base},
		{Slug: "b", Title: "Visa bill", Summary: "immigration reform", Jurisdiction: JurisdictionCongress, Tags: []string{"immigration"}, Status: StatusDraft, PublishedAt: base.Add(48 * time.Hour)},
		{Slug: "c", Title: "Refunds", Summary: "tax refunds", Jurisdiction: JurisdictionIRS, Tags: []string{"refund", "tax"}, Status: StatusPublished, PublishedAt: base.Add(24 * time.Hour)},
	}

	slugs := func(list []LegalUpdate) []string {
		out := make([]string, 0, len(list))
		for _, u := range list {
			out = append(out, u.Slug)
		}
		return out
	}

	assert.Equal(t, []string{"b", "c", "a"}, slugs(UpdateFilters{}.Apply(all)))
	assert.Equal(t, []string{"c", "a"}, slugs(UpdateFilters{Tag: "TAX"}.Apply(all)))
	assert.Equal(t, []string{"b"}, slugs(UpdateFilters{Search: "REFORM"}.Apply(all)))
	assert.Equal(t, []string{"c", "a"}, slugs(UpdateFilters{Status: StatusPublished}.Apply(all)))
	assert.Equal(t, []string{"a"}, slugs(UpdateFilters{Jurisdiction: JurisdictionFederal}.Apply(all)))

	from := base.Add(12 * time.Hour)
	to := base.Add(24 * time.Hour)
	assert.Equal(t, []string{"c"}, slugs(UpdateFilters{From: &from, To: &to}.Apply(all)))

	assert.Equal(t, []string{"c"}, slugs(UpdateFilters{Limit: 1, Offset: 1}.Apply(all)))
	assert.Empty(t, UpdateFilters{Offset: 5}.Apply(all))
}
