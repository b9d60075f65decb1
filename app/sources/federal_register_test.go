package sources

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lysyi3m/legal-updates/app/updates"
)

func frResponseJSON(publicationDate string) string {
	return fmt.Sprintf(`{
  "count": 1,
  "results": [
    {
      "document_number": "2024-12345",
      "title": "Clean Vehicle Credit Rules",
      "type": "RULE",
      "abstract": "This document contains final regulations regarding the clean vehicle credit.",
      "publication_date": %q,
      "html_url": "https://www.federalregister.gov/documents/2024/05/06/2024-12345/clean-vehicle-credit",
      "pdf_url": "https://www.govinfo.gov/content/pkg/FR-2024-05-06/pdf/2024-12345.pdf",
      "agencies": [
        {"name": "Internal Revenue Service", "raw_name": "INTERNAL REVENUE SERVICE", "slug": "internal-revenue-service"}
      ],
      "topics": ["Income taxes", "Reporting and recordkeeping requirements", "Motor vehicles", "Electric power"],
      "significant": true
    }
  ]
}`, publicationDate)
}

type recordedSleeps struct {
	delays []time.Duration
}

func (r *recordedSleeps) sleep(_ context.Context, d time.Duration) error {
	r.delays = append(r.delays, d)
	return nil
}

func newTestFederalRegister(baseURL string, now time.Time, sleeps *recordedSleeps) *FederalRegisterSource {
	source := NewFederalRegisterSource(newTestClient())
	source.baseURL = baseURL
	source.clock = func() time.Time { return now }
	source.sleep = sleeps.sleep
	return source
}

func TestFederalRegister_EndToEnd(t *testing.T) {
	now := time.Date(2024, 5, 11, 12, 0, 0, 0, time.UTC)
	published := now.AddDate(0, 0, -5).Format("2006-01-02")

	var query map[string][]string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		query = r.URL.Query()
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(frResponseJSON(published)))
	}))
	defer server.Close()

	source := newTestFederalRegister(server.URL, now, &recordedSleeps{})
	inputs := source.Fetch(context.Background())
	require.Len(t, inputs, 1)

	in := inputs[0]
	assert.Equal(t, updates.JurisdictionFederal, in.Jurisdiction)
	assert.Equal(t, "fr-2024-12345", in.Slug)
	assert.Equal(t, "Clean Vehicle Credit Rules", in.Title)
	for _, tag := range []string{"federal-register", "regulations", "tax", "irs-notice"} {
		assert.Contains(t, in.Tags, tag)
	}
	assert.Contains(t, in.Tags, "income-taxes")
	assert.Contains(t, in.Tags, "motor-vehicles")
	assert.NotContains(t, in.Tags, "electric-power")
	assert.Contains(t, in.Summary, "Final Rule from Internal Revenue Service.")
	assert.Contains(t, in.Summary, "2024-12345")
	assert.Contains(t, in.Summary, frDisclaimer)
	assert.Equal(t, []string{
		"https://www.federalregister.gov/documents/2024/05/06/2024-12345/clean-vehicle-credit",
		"https://www.govinfo.gov/content/pkg/FR-2024-05-06/pdf/2024-12345.pdf",
	}, in.SourceURLs)
	assert.Equal(t, in.SourceURLs[0], in.SourceURL)
	assert.Equal(t, "2024-05-06", in.PublishedAt.Format("2006-01-02"))
	require.NoError(t, in.Validate())

	assert.Equal(t, []string{"2024-04-11"}, query["conditions[publication_date][gte]"])
	assert.Equal(t, FederalRegisterAgencies, query["conditions[agencies][]"])
	assert.Equal(t, []string{"25"}, query["per_page"])
	assert.Equal(t, []string{"newest"}, query["order"])
	assert.Contains(t, query["fields[]"], "presidential_document_type")
}

func TestFederalRegister_RetriesRateLimit(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if atomic.AddInt32(&calls, 1) <= 3 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		_, _ = w.Write([]byte(frResponseJSON("2024-05-06")))
	}))
	defer server.Close()

	sleeps := &recordedSleeps{}
	source := newTestFederalRegister(server.URL, time.Date(2024, 5, 11, 0, 0, 0, 0, time.UTC), sleeps)

	inputs := source.Fetch(context.Background())
	require.Len(t, inputs, 1)
	assert.Equal(t, int32(4), atomic.LoadInt32(&calls))
	assert.Equal(t, []time.Duration{time.Second, 2 * time.Second, 4 * time.Second}, sleeps.delays)
}

func TestFederalRegister_GivesUpAfterRetries(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	sleeps := &recordedSleeps{}
	source := newTestFederalRegister(server.URL, time.Now(), sleeps)

	_, err := source.getWithRetry(context.Background(), server.URL)
	require.Error(t, err)
	assert.True(t, IsRateLimited(err))
	assert.Equal(t, int32(4), atomic.LoadInt32(&calls))
	assert.Len(t, sleeps.delays, 3)

	assert.Empty(t, source.Fetch(context.Background()))
}

func TestFederalRegister_NoRetryOnServerError(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	sleeps := &recordedSleeps{}
	source := newTestFederalRegister(server.URL, time.Now(), sleeps)

	assert.Empty(t, source.Fetch(context.Background()))
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
	assert.Empty(t, sleeps.delays)
}

func TestFederalRegister_MapDocument(t *testing.T) {
	source := newTestFederalRegister("", time.Date(2024, 5, 11, 0, 0, 0, 0, time.UTC), &recordedSleeps{})

	in := source.mapDocument(frDocument{
		DocumentNumber:  "2024-00001",
		Title:           strings.Repeat("Long title ", 30),
		Type:            "Proposed Rule",
		Abstract:        strings.Repeat("a", 600),
		PublicationDate: "not-a-date",
		Agencies: []frAgency{
			{Name: "U.S. Citizenship and Immigration Services", Slug: "u-s-citizenship-and-immigration-services"},
			{Name: "Labor Department", Slug: "labor-department"},
			{Name: "Small Business Administration", Slug: "small-business-administration"},
		},
	})

	assert.LessOrEqual(t, len([]rune(in.Title)), 200)
	assert.True(t, strings.HasSuffix(in.Title, "..."))
	assert.Equal(t, []string{"federal-register", "proposed-rules", "immigration", "dhs", "employment", "business"}, in.Tags)
	assert.True(t, strings.HasPrefix(in.Summary, "Proposed Rule from U.S. Citizenship and Immigration Services, Labor Department, Small Business Administration."))
	assert.Contains(t, in.Summary, strings.Repeat("a", 497)+"...")
	assert.NotContains(t, in.Summary, strings.Repeat("a", 498))
	assert.Equal(t, "https://www.federalregister.gov/d/2024-00001", in.SourceURL)
	assert.Equal(t, []string{in.SourceURL}, in.SourceURLs)
	assert.Equal(t, time.Date(2024, 5, 11, 0, 0, 0, 0, time.UTC), in.PublishedAt)
}

func TestFederalRegister_UnknownTypePassesThrough(t *testing.T) {
	source := newTestFederalRegister("", time.Now(), &recordedSleeps{})

	in := source.mapDocument(frDocument{DocumentNumber: "2024-2", Title: "Sunshine Act Meeting", Type: "UNKNOWN"})
	assert.True(t, strings.HasPrefix(in.Summary, "UNKNOWN from a federal agency."))
	assert.Equal(t, []string{"federal-register"}, in.Tags)
}
