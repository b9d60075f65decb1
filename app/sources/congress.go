package sources

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/lysyi3m/legal-updates/app/updates"
)

const (
	CongressAPIURL = "https://api.congress.gov/v3"

	congressPageSize   = 20
	congressTitleLimit = 100

	congressDisclaimer = "This is an automated summary. Visit Congress.gov for the full text and legislative history."
)

var congressTypeNames = map[string]string{
	"hr":      "H.R.",
	"s":       "S.",
	"hjres":   "H.J.Res.",
	"sjres":   "S.J.Res.",
	"hconres": "H.Con.Res.",
	"sconres": "S.Con.Res.",
	"hres":    "H.Res.",
	"sres":    "S.Res.",
}

// Path segments used by congress.gov bill pages.
var congressTypePaths = map[string]string{
	"hr":      "house-bill",
	"s":       "senate-bill",
	"hjres":   "house-joint-resolution",
	"sjres":   "senate-joint-resolution",
	"hconres": "house-concurrent-resolution",
	"sconres": "senate-concurrent-resolution",
	"hres":    "house-resolution",
	"sres":    "senate-resolution",
}

var congressTagRules = updates.TagRules{
	{Tag: "tax", Keywords: []string{"tax", "revenue", "internal revenue code"}},
	{Tag: "immigration", Keywords: []string{"immigration", "immigrant", "visa", "citizenship", "asylum", "border", "naturalization"}},
	{Tag: "business", Keywords: []string{"business", "commerce", "corporate", "trade", "enterprise"}},
	{Tag: "employment", Keywords: []string{"employment", "employee", "labor", "worker", "wage", "workforce"}},
	{Tag: "healthcare", Keywords: []string{"health", "medicare", "medicaid", "hospital", "medical", "drug"}},
	{Tag: "appropriations", Keywords: []string{"appropriation", "funding", "budget", "spending"}},
	{Tag: "national-security", Keywords: []string{"defense", "national security", "military", "armed forces", "intelligence"}},
	{Tag: "environment", Keywords: []string{"environment", "climate", "energy", "pollution", "conservation", "emission"}},
}

// flexString accepts a JSON string or number.
type flexString string

func (f *flexString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = flexString(s)
		return nil
	}
	if bytes.Equal(data, []byte("null")) {
		*f = ""
		return nil
	}
	*f = flexString(data)
	return nil
}

type congressAction struct {
	ActionDate string `json:"actionDate"`
	Text       string `json:"text"`
}

type congressBill struct {
	Congress     int             `json:"congress"`
	Number       flexString      `json:"number"`
	Title        string          `json:"title"`
	Type         string          `json:"type"`
	UpdateDate   string          `json:"updateDate"`
	LatestAction *congressAction `json:"latestAction"`
}

type congressResponse struct {
	Bills []congressBill `json:"bills"`
}

// CurrentCongress returns the number of the Congress in session in year.
func CurrentCongress(year int) int {
	return (year-1789)/2 + 1
}

// CongressSource lists recently updated bills of the current Congress.
type CongressSource struct {
	client  *Client
	apiKey  string
	baseURL string
	clock   clock
}

func NewCongressSource(client *Client, apiKey string) *CongressSource {
	return &CongressSource{client: client, apiKey: apiKey, baseURL: CongressAPIURL}
}

func (s *CongressSource) Name() string { return "congress" }

func (s *CongressSource) Fetch(ctx context.Context) []updates.Input {
	if s.apiKey == "" {
		slog.Warn("CONGRESS_API_KEY is not set, skipping Congress.gov ingestion")
		return nil
	}

	congress := CurrentCongress(s.clock.now().Year())
	requestURL := s.buildURL(congress)

	data, err := s.client.Get(ctx, requestURL, "application/json")
	if err != nil {
		slog.Error("Failed to fetch Congress.gov bills", "congress", congress, "error", err)
		return nil
	}

	var resp congressResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		slog.Error("Failed to decode Congress.gov response", "congress", congress, "error", parseError(err, requestURL))
		return nil
	}

	inputs := make([]updates.Input, 0, len(resp.Bills))
	for _, bill := range resp.Bills {
		if bill.Number == "" || bill.Type == "" || bill.Title == "" {
			continue
		}
		if bill.Congress == 0 {
			bill.Congress = congress
		}
		inputs = append(inputs, s.mapBill(bill))
	}

	slog.Debug("Fetched Congress.gov bills", "congress", congress, "items", len(inputs))
	return inputs
}

func (s *CongressSource) buildURL(congress int) string {
	q := url.Values{}
	q.Set("api_key", s.apiKey)
	q.Set("format", "json")
	q.Set("limit", strconv.Itoa(congressPageSize))
	q.Set("sort", "updateDate desc")

	return fmt.Sprintf("%s/bill/%d?%s", s.baseURL, congress, q.Encode())
}

func (s *CongressSource) mapBill(bill congressBill) updates.Input {
	code := strings.ToLower(bill.Type)
	typeName, ok := congressTypeNames[code]
	if !ok {
		typeName = bill.Type
	}
	number := string(bill.Number)

	scanned := bill.Title
	if bill.LatestAction != nil {
		scanned += " " + bill.LatestAction.Text
	}

	summary := fmt.Sprintf("%s %s: %s", typeName, number, bill.Title)
	if bill.LatestAction != nil && bill.LatestAction.Text != "" {
		summary += fmt.Sprintf("\n\nLatest Action (%s): %s", bill.LatestAction.ActionDate, bill.LatestAction.Text)
	}
	summary += "\n\n" + congressDisclaimer

	sourceURL := congressBillURL(bill.Congress, code, number)

	return updates.Input{
		Title:        fmt.Sprintf("%s %s: %s", typeName, number, updates.Truncate(bill.Title, congressTitleLimit)),
		Slug:         updates.GenerateSlug(fmt.Sprintf("congress-%s-%s-%d", code, number, bill.Congress)),
		PublishedAt:  s.publishedAt(bill),
		Jurisdiction: updates.JurisdictionCongress,
		Tags:         updates.MergeTags([]string{"legislation"}, congressTagRules.Match(scanned)),
		Summary:      summary,
		SourceName:   "Congress.gov",
		SourceURL:    sourceURL,
		SourceURLs:   []string{sourceURL},
	}
}

func (s *CongressSource) publishedAt(bill congressBill) time.Time {
	candidates := []string{bill.UpdateDate}
	if bill.LatestAction != nil {
		candidates = append([]string{bill.LatestAction.ActionDate}, candidates...)
	}

	for _, candidate := range candidates {
		if candidate == "" {
			continue
		}
		if t, err := time.Parse("2006-01-02", candidate); err == nil {
			return t
		}
		if t, err := time.Parse(time.RFC3339, candidate); err == nil {
			return t.UTC()
		}
	}
	return s.clock.now()
}

func congressBillURL(congress int, code, number string) string {
	path, ok := congressTypePaths[code]
	if !ok {
		path = code
	}
	return fmt.Sprintf("https://www.congress.gov/bill/%s-congress/%s/%s", ordinal(congress), path, number)
}

func ordinal(n int) string {
	suffix := "th"
	switch n % 100 {
	case 11, 12, 13:
	default:
		switch n % 10 {
		case 1:
			suffix = "st"
		case 2:
			suffix = "nd"
		case 3:
			suffix = "rd"
		}
	}
	return strconv.Itoa(n) + suffix
}
