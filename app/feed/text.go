package feed

import (
	"html"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// CleanText strips markup from a feed field, decodes HTML entities and
// collapses whitespace. Non-breaking spaces become plain spaces.
func CleanText(s string) string {
	if s == "" {
		return ""
	}

	text := s
	if strings.ContainsAny(s, "<&") {
		doc, err := goquery.NewDocumentFromReader(strings.NewReader(s))
		if err == nil {
			text = doc.Text()
		} else {
			text = html.UnescapeString(s)
		}
	}

	text = strings.ReplaceAll(text, "\u00a0", " ")
	return strings.Join(strings.Fields(text), " ")
}
