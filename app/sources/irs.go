package sources

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/lysyi3m/legal-updates/app/feed"
	"github.com/lysyi3m/legal-updates/app/updates"
)

const irsDisclaimer = "This is an automated summary. Refer to the official IRS publication for complete and authoritative information."

// DefaultIRSFeeds is used when no feed list file is configured.
var DefaultIRSFeeds = []feed.Config{
	{
		Name:       "irs-news-releases",
		URL:        "https://www.irs.gov/newsroom/news-releases-for-current-month/rss.xml",
		SourceName: "IRS News Releases",
		Tags:       []string{"irs", "tax", "news"},
	},
	{
		Name:       "irs-legal-guidance",
		URL:        "https://www.irs.gov/downloads/rss/irs-guidance.xml",
		SourceName: "IRS Legal Guidance",
		Tags:       []string{"irs", "tax", "legal-guidance", "regulations"},
	},
}

var irsTagRules = updates.TagRules{
	{Tag: "tax", Keywords: []string{"tax", "taxpayer"}},
	{Tag: "filing", Keywords: []string{"filing", "file", "return", "deadline", "extension"}},
	{Tag: "refund", Keywords: []string{"refund"}},
	{Tag: "business", Keywords: []string{"business", "employer", "corporation", "partnership", "self-employed"}},
	{Tag: "individual", Keywords: []string{"individual", "personal", "family", "household"}},
	{Tag: "credits", Keywords: []string{"credit"}},
	{Tag: "deductions", Keywords: []string{"deduction", "deductible"}},
	{Tag: "irs-notice", Keywords: []string{"notice", "announcement", "bulletin", "revenue procedure", "revenue ruling"}},
	{Tag: "treasury", Keywords: []string{"treasury"}},
	{Tag: "regulations", Keywords: []string{"regulation", "proposed rule", "final rule", "guidance"}},
}

// IRSSource reads the configured IRS RSS feeds.
type IRSSource struct {
	client *Client
	parser *feed.Parser
	feeds  []feed.Config
	clock  clock
}

func NewIRSSource(client *Client, feeds []feed.Config) *IRSSource {
	if feeds == nil {
		feeds = DefaultIRSFeeds
	}
	return &IRSSource{
		client: client,
		parser: feed.NewParser(),
		feeds:  feeds,
	}
}

func (s *IRSSource) Name() string { return "irs" }

func (s *IRSSource) Fetch(ctx context.Context) []updates.Input {
	results := make([][]updates.Input, len(s.feeds))
	errs := make([]error, len(s.feeds))

	var wg sync.WaitGroup
	for i, cfg := range s.feeds {
		wg.Add(1)
		go func(i int, cfg feed.Config) {
			defer wg.Done()
			results[i], errs[i] = s.fetchFeed(ctx, cfg)
		}(i, cfg)
	}
	wg.Wait()

	var inputs []updates.Input
	failed := 0
	for i, cfg := range s.feeds {
		if errs[i] != nil {
			failed++
			slog.Error("Failed to fetch IRS feed", "feed", cfg.Name, "url", cfg.URL, "error", errs[i])
			continue
		}
		inputs = append(inputs, results[i]...)
	}

	if failed > 0 {
		slog.Warn("IRS ingestion finished with errors", "failed_feeds", failed, "total_feeds", len(s.feeds), "items", len(inputs))
	}

	return inputs
}

func (s *IRSSource) fetchFeed(ctx context.Context, cfg feed.Config) ([]updates.Input, error) {
	data, err := s.client.Get(ctx, cfg.URL, "application/rss+xml, application/xml;q=0.9, */*;q=0.8")
	if err != nil {
		return nil, err
	}

	items, err := s.parser.Run(data)
	if err != nil {
		return nil, parseError(err, cfg.URL)
	}

	inputs := make([]updates.Input, 0, len(items))
	for _, item := range items {
		inputs = append(inputs, s.mapItem(cfg, item))
	}

	slog.Debug("Fetched IRS feed", "feed", cfg.Name, "items", len(inputs))
	return inputs, nil
}

func (s *IRSSource) mapItem(cfg feed.Config, item feed.Item) updates.Input {
	publishedAt := s.clock.now()
	if item.PublishedAt != nil {
		publishedAt = item.PublishedAt.UTC()
	}

	summary := item.Description
	if summary == "" {
		summary = fmt.Sprintf("IRS announcement: %s.", item.Title)
	}

	sourceName := cfg.SourceName
	if sourceName == "" {
		sourceName = cfg.Name
	}

	return updates.Input{
		Title:        item.Title,
		Slug:         updates.GenerateSlug(item.Title),
		PublishedAt:  publishedAt,
		Jurisdiction: updates.JurisdictionIRS,
		Tags:         updates.MergeTags(cfg.Tags, irsTagRules.Match(item.Title+" "+item.Description)),
		Summary:      summary + " " + irsDisclaimer,
		SourceName:   sourceName,
		SourceURL:    item.Link,
		SourceURLs:   []string{item.Link},
	}
}
