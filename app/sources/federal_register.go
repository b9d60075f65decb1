package sources

import (
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
	FederalRegisterURL = "https://www.federalregister.gov/api/v1/documents.json"

	frPageSize      = 25
	frLookbackDays  = 30
	frMaxRetries    = 3
	frMaxTopics     = 3
	frTitleLimit    = 200
	frAbstractLimit = 500

	frDisclaimer = "This summary is generated automatically. Consult the official Federal Register document for the authoritative text."
)

// FederalRegisterAgencies is the agency allowlist sent with every query.
var FederalRegisterAgencies = []string{
	"internal-revenue-service",
	"treasury-department",
	"u-s-citizenship-and-immigration-services",
	"homeland-security-department",
	"labor-department",
	"small-business-administration",
	"commerce-department",
}

var frFields = []string{
	"document_number",
	"title",
	"type",
	"abstract",
	"publication_date",
	"html_url",
	"pdf_url",
	"agencies",
	"topics",
	"significant",
	"presidential_document_type",
}

var frTypeNames = map[string]string{
	"RULE":     "Final Rule",
	"PRORULE":  "Proposed Rule",
	"NOTICE":   "Notice",
	"PRESDOCU": "Presidential Document",
}

var frTypeTags = map[string]string{
	"RULE":     "regulations",
	"PRORULE":  "proposed-rules",
	"PRESDOCU": "executive-order",
}

// The API reports document types by label in some responses.
var frTypeCodes = map[string]string{
	"rule":                  "RULE",
	"proposed rule":         "PRORULE",
	"notice":                "NOTICE",
	"presidential document": "PRESDOCU",
}

type frAgency struct {
	Name    string `json:"name"`
	RawName string `json:"raw_name"`
	Slug    string `json:"slug"`
}

type frDocument struct {
	DocumentNumber           string     `json:"document_number"`
	Title                    string     `json:"title"`
	Type                     string     `json:"type"`
	Abstract                 string     `json:"abstract"`
	PublicationDate          string     `json:"publication_date"`
	HTMLURL                  string     `json:"html_url"`
	PDFURL                   string     `json:"pdf_url"`
	Agencies                 []frAgency `json:"agencies"`
	Topics                   []string   `json:"topics"`
	Significant              bool       `json:"significant"`
	PresidentialDocumentType string     `json:"presidential_document_type"`
}

type frResponse struct {
	Count   int          `json:"count"`
	Results []frDocument `json:"results"`
}

// FederalRegisterSource queries the Federal Register documents API.
type FederalRegisterSource struct {
	client     *Client
	baseURL    string
	baseDelay  time.Duration
	maxRetries int
	sleep      func(ctx context.Context, d time.Duration) error
	clock      clock
}

func NewFederalRegisterSource(client *Client) *FederalRegisterSource {
	return &FederalRegisterSource{
		client:     client,
		baseURL:    FederalRegisterURL,
		baseDelay:  time.Second,
		maxRetries: frMaxRetries,
		sleep:      sleepContext,
	}
}

func (s *FederalRegisterSource) Name() string { return "federal-register" }

func (s *FederalRegisterSource) Fetch(ctx context.Context) []updates.Input {
	requestURL := s.buildURL(s.clock.now().AddDate(0, 0, -frLookbackDays))

	data, err := s.getWithRetry(ctx, requestURL)
	if err != nil {
		slog.Error("Failed to fetch Federal Register documents", "url", requestURL, "error", err)
		return nil
	}

	var resp frResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		slog.Error("Failed to decode Federal Register response", "url", requestURL, "error", parseError(err, requestURL))
		return nil
	}

	inputs := make([]updates.Input, 0, len(resp.Results))
	for _, doc := range resp.Results {
		if doc.DocumentNumber == "" || doc.Title == "" {
			slog.Debug("Skipping incomplete Federal Register document", "document_number", doc.DocumentNumber)
			continue
		}
		inputs = append(inputs, s.mapDocument(doc))
	}

	slog.Debug("Fetched Federal Register documents", "count", resp.Count, "items", len(inputs))
	return inputs
}

func (s *FederalRegisterSource) buildURL(since time.Time) string {
	q := url.Values{}
	q.Set("conditions[publication_date][gte]", since.Format("2006-01-02"))
	for _, agency := range FederalRegisterAgencies {
		q.Add("conditions[agencies][]", agency)
	}
	for _, field := range frFields {
		q.Add("fields[]", field)
	}
	q.Set("per_page", strconv.Itoa(frPageSize))
	q.Set("order", "newest")

	return s.baseURL + "?" + q.Encode()
}

// getWithRetry retries rate-limited requests with a doubling delay.
// Other failures are returned immediately.
func (s *FederalRegisterSource) getWithRetry(ctx context.Context, requestURL string) ([]byte, error) {
	delay := s.baseDelay

	for attempt := 0; ; attempt++ {
		data, err := s.client.Get(ctx, requestURL, "application/json")
		if err == nil {
			return data, nil
		}
		if !IsRateLimited(err) || attempt >= s.maxRetries {
			if attempt > 0 {
				return nil, fmt.Errorf("failed after %d retries: %w", attempt, err)
			}
			return nil, err
		}

		slog.Warn("Federal Register rate limited, retrying", "attempt", attempt+1, "delay", delay)
		if err := s.sleep(ctx, delay); err != nil {
			return nil, fmt.Errorf("failed to wait for retry: %w", err)
		}
		delay *= 2
	}
}

func (s *FederalRegisterSource) mapDocument(doc frDocument) updates.Input {
	code := frTypeCode(doc.Type)
	typeName, ok := frTypeNames[code]
	if !ok {
		typeName = doc.Type
	}

	tags := []string{"federal-register"}
	if tag, ok := frTypeTags[code]; ok {
		tags = append(tags, tag)
	}
	tags = append(tags, frAgencyTags(doc.Agencies)...)
	for i, topic := range doc.Topics {
		if i >= frMaxTopics {
			break
		}
		tags = append(tags, strings.ReplaceAll(strings.ToLower(strings.TrimSpace(topic)), " ", "-"))
	}

	publishedAt, err := time.Parse("2006-01-02", doc.PublicationDate)
	if err != nil {
		publishedAt = s.clock.now()
	}

	sourceURL := doc.HTMLURL
	if sourceURL == "" {
		sourceURL = "https://www.federalregister.gov/d/" + doc.DocumentNumber
	}
	sourceURLs := []string{sourceURL}
	if doc.PDFURL != "" {
		sourceURLs = append(sourceURLs, doc.PDFURL)
	}

	return updates.Input{
		Title:        updates.Truncate(doc.Title, frTitleLimit),
		Slug:         updates.GenerateSlug("fr-" + doc.DocumentNumber),
		PublishedAt:  publishedAt,
		Jurisdiction: updates.JurisdictionFederal,
		Tags:         updates.MergeTags(tags),
		Summary:      frSummary(typeName, doc),
		SourceName:   "Federal Register",
		SourceURL:    sourceURL,
		SourceURLs:   sourceURLs,
	}
}

func frSummary(typeName string, doc frDocument) string {
	names := make([]string, 0, len(doc.Agencies))
	for _, agency := range doc.Agencies {
		name := agency.Name
		if name == "" {
			name = agency.RawName
		}
		if name != "" {
			names = append(names, name)
		}
	}
	agencies := strings.Join(names, ", ")
	if agencies == "" {
		agencies = "a federal agency"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s from %s.", typeName, agencies)
	if abstract := strings.TrimSpace(doc.Abstract); abstract != "" {
		b.WriteString(" ")
		b.WriteString(updates.Truncate(abstract, frAbstractLimit))
	}
	fmt.Fprintf(&b, " Document number: %s. %s", doc.DocumentNumber, frDisclaimer)
	return b.String()
}

func frTypeCode(raw string) string {
	if code, ok := frTypeCodes[strings.ToLower(strings.TrimSpace(raw))]; ok {
		return code
	}
	return strings.ToUpper(strings.TrimSpace(raw))
}

func frAgencyTags(agencies []frAgency) []string {
	var tags []string
	for _, agency := range agencies {
		key := strings.ToLower(agency.Slug + " " + agency.Name + " " + agency.RawName)
		switch {
		case strings.Contains(key, "internal-revenue"), strings.Contains(key, "internal revenue"),
			strings.Contains(key, "treasury"):
			tags = append(tags, "tax", "irs-notice")
		case strings.Contains(key, "citizenship-and-immigration"), strings.Contains(key, "citizenship and immigration"),
			strings.Contains(key, "homeland-security"), strings.Contains(key, "homeland security"):
			tags = append(tags, "immigration", "dhs")
		case strings.Contains(key, "labor"):
			tags = append(tags, "employment")
		case strings.Contains(key, "small-business"), strings.Contains(key, "small business"):
			tags = append(tags, "business")
		}
	}
	return tags
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
