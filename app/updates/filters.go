package updates

import (
	"sort"
	"strings"
	"time"
)

// UpdateFilters narrows a List query. Zero values mean "no constraint".
type UpdateFilters struct {
	Jurisdiction Jurisdiction
	Tag          string
	Search       string
	From         *time.Time
	To           *time.Time
	Status       Status
	Limit        int
	Offset       int
}

// Matches applies every set constraint except paging.
func (f UpdateFilters) Matches(u LegalUpdate) bool {
	if f.Jurisdiction != "" && u.Jurisdiction != f.Jurisdiction {
		return false
	}
	if f.Status != "" && u.Status != f.Status {
		return false
	}
	if f.Tag != "" && !hasTag(u.Tags, strings.ToLower(f.Tag)) {
		return false
	}
	if f.From != nil && u.PublishedAt.Before(*f.From) {
		return false
	}
	if f.To != nil && u.PublishedAt.After(*f.To) {
		return false
	}
	if f.Search != "" {
		needle := strings.ToLower(f.Search)
		if !strings.Contains(strings.ToLower(u.Title), needle) &&
			!strings.Contains(strings.ToLower(u.Summary), needle) {
			return false
		}
	}
	return true
}

// Apply filters, sorts newest first and pages a slice of records.
func (f UpdateFilters) Apply(all []LegalUpdate) []LegalUpdate {
	matched := make([]LegalUpdate, 0, len(all))
	for _, u := range all {
		if f.Matches(u) {
			matched = append(matched, u)
		}
	}

	sort.SliceStable(matched, func(i, j int) bool {
		return matched[i].PublishedAt.After(matched[j].PublishedAt)
	})

	if f.Offset > 0 {
		if f.Offset >= len(matched) {
			return []LegalUpdate{}
		}
		matched = matched[f.Offset:]
	}
	if f.Limit > 0 && len(matched) > f.Limit {
		matched = matched[:f.Limit]
	}
	return matched
}

func hasTag(tags []string, tag string) bool {
	for _, t := range tags {
		if t == tag {
			return true
		}
	}
	return false
}
