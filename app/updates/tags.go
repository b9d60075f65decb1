package updates

import "strings"

// TagRule attaches Tag when any keyword occurs as a substring of the scanned text.
type TagRule struct {
	Tag      string
	Keywords []string
}

// TagRules is an ordered keyword table. Match output follows table order.
type TagRules []TagRule

// Match returns the tag of every rule with at least one keyword in text.
// Matching is case-insensitive.
func (rules TagRules) Match(text string) []string {
	lower := strings.ToLower(text)

	var tags []string
	for _, rule := range rules {
		for _, keyword := range rule.Keywords {
			if strings.Contains(lower, strings.ToLower(keyword)) {
				tags = append(tags, rule.Tag)
				break
			}
		}
	}
	return tags
}

// MergeTags concatenates tag lists into a lowercase set, keeping first occurrence order.
func MergeTags(lists ...[]string) []string {
	seen := make(map[string]struct{})
	merged := make([]string, 0)
	for _, list := range lists {
		for _, tag := range list {
			tag = strings.ToLower(strings.TrimSpace(tag))
			if tag == "" {
				continue
			}
			if _, ok := seen[tag]; ok {
				continue
			}
			seen[tag] = struct{}{}
			merged = append(merged, tag)
		}
	}
	return merged
}
