package feed

import (
	"bytes"
	"fmt"
	"html"
	"time"

	"github.com/lysyi3m/legal-updates/app/updates"
)

// Generator renders stored legal updates as an RSS 2.0 channel.
type Generator struct {
	title       string
	link        string
	description string
	selfLink    string
	version     string
}

func NewGenerator(baseURL, version string) *Generator {
	return &Generator{
		title:       "Legal Updates",
		link:        baseURL,
		description: "Federal Register, IRS and Congress.gov updates. Always consult the primary source.",
		selfLink:    baseURL + "/feeds/updates.xml",
		version:     version,
	}
}

func (g *Generator) Run(items []updates.LegalUpdate) (string, error) {
	var buf bytes.Buffer

	buf.WriteString(`<?xml version="1.0" encoding="UTF-8"?>`)
	buf.WriteString("\n")
	buf.WriteString(`<rss version="2.0" xmlns:atom="http://www.w3.org/2005/Atom">`)
	buf.WriteString("\n  <channel>\n")

	g.writeElement(&buf, "title", g.title, 4)
	g.writeElement(&buf, "link", g.link, 4)
	g.writeElement(&buf, "description", g.description, 4)

	if g.selfLink != "" {
		buf.WriteString(fmt.Sprintf("    <atom:link href=\"%s\" rel=\"self\" type=\"application/rss+xml\" />\n",
			html.EscapeString(g.selfLink)))
	}

	lastBuildDate := time.Now().In(time.Local)
	if len(items) > 0 {
		lastBuildDate = items[0].PublishedAt
	}

	g.writeElement(&buf, "lastBuildDate", lastBuildDate.Format(time.RFC1123Z), 4)
	g.writeElement(&buf, "generator", fmt.Sprintf("Legal-Updates/%s", g.version), 4)
	g.writeElement(&buf, "language", "en-us", 4)

	for _, item := range items {
		g.writeItem(&buf, item)
	}

	buf.WriteString("  </channel>\n</rss>")

	return buf.String(), nil
}

func (g *Generator) writeItem(buf *bytes.Buffer, item updates.LegalUpdate) {
	buf.WriteString("    <item>\n")

	buf.WriteString("      <guid isPermaLink=\"false\">")
	buf.WriteString(html.EscapeString(item.Slug))
	buf.WriteString("</guid>\n")

	g.writeElement(buf, "title", item.Title, 6)
	g.writeElement(buf, "link", item.SourceURL, 6)
	g.writeElement(buf, "description", item.Summary, 6)
	g.writeElement(buf, "pubDate", item.PublishedAt.Format(time.RFC1123Z), 6)
	g.writeElement(buf, "source", item.SourceName, 6)

	g.writeElement(buf, "category", string(item.Jurisdiction), 6)
	for _, tag := range item.Tags {
		g.writeElement(buf, "category", tag, 6)
	}

	buf.WriteString("    </item>\n")
}

func (g *Generator) writeElement(buf *bytes.Buffer, tag, content string, indent int) {
	if content == "" {
		return
	}

	for i := 0; i < indent; i++ {
		buf.WriteByte(' ')
	}

	buf.WriteString("<")
	buf.WriteString(tag)
	buf.WriteString(">")
	buf.WriteString(html.EscapeString(content))
	buf.WriteString("</")
	buf.WriteString(tag)
	buf.WriteString(">\n")
}
