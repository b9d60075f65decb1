package sources

import (
	"context"
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

const congressJSON = `{
  "bills": [
    {
      "congress": 118,
      "number": "4521",
      "title": "Small Business Tax Relief Act of 2024",
      "type": "HR",
      "updateDate": "2024-05-02",
      "latestAction": {"actionDate": "2024-05-01", "text": "Referred to the Committee on Ways and Means."}
    },
    {
      "congress": 118,
      "number": 77,
      "title": "A resolution supporting the designation of National Park Week",
      "type": "SRES",
      "updateDate": "2024-04-30T10:00:00Z"
    },
    {
      "congress": 118,
      "number": "",
      "title": "Incomplete",
      "type": "S"
    }
  ]
}`

func TestCurrentCongress(t *testing.T) {
	tests := map[int]int{
		1789: 1,
		1790: 1,
		1791: 2,
		2023: 118,
		2024: 118,
		2025: 119,
	}
	for year, expected := range tests {
		assert.Equal(t, expected, CurrentCongress(year), "year %d", year)
	}
}

func TestCongress_NoAPIKeyIsNoop(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		atomic.AddInt32(&calls, 1)
	}))
	defer server.Close()

	source := NewCongressSource(newTestClient(), "")
	source.baseURL = server.URL

	assert.Empty(t, source.Fetch(context.Background()))
	assert.Equal(t, int32(0), atomic.LoadInt32(&calls))
}

func TestCongress_Fetch(t *testing.T) {
	var path, apiKey, limit, sort string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		apiKey = r.URL.Query().Get("api_key")
		limit = r.URL.Query().Get("limit")
		sort = r.URL.Query().Get("sort")
		_, _ = w.Write([]byte(congressJSON))
	}))
	defer server.Close()

	source := NewCongressSource(newTestClient(), "secret-key")
	source.baseURL = server.URL
	source.clock = func() time.Time { return time.Date(2024, 5, 10, 0, 0, 0, 0, time.UTC) }

	inputs := source.Fetch(context.Background())
	require.Len(t, inputs, 2)

	assert.Equal(t, "/bill/118", path)
	assert.Equal(t, "secret-key", apiKey)
	assert.Equal(t, "20", limit)
	assert.Equal(t, "updateDate desc", sort)

	bill := inputs[0]
	assert.Equal(t, "H.R. 4521: Small Business Tax Relief Act of 2024", bill.Title)
	assert.Equal(t, "congress-hr-4521-118", bill.Slug)
	assert.Equal(t, updates.JurisdictionCongress, bill.Jurisdiction)
	assert.Equal(t, []string{"legislation", "tax", "business"}, bill.Tags)
	assert.Equal(t, "Congress.gov", bill.SourceName)
	assert.Equal(t, "https://www.congress.gov/bill/118th-congress/house-bill/4521", bill.SourceURL)
	assert.Equal(t, time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC), bill.PublishedAt)
	assert.True(t, strings.HasPrefix(bill.Summary, "H.R. 4521: Small Business Tax Relief Act of 2024"))
	assert.Contains(t, bill.Summary, "\n\nLatest Action (2024-05-01): Referred to the Committee on Ways and Means.")
	assert.True(t, strings.HasSuffix(bill.Summary, congressDisclaimer))
	require.NoError(t, bill.Validate())

	resolution := inputs[1]
	assert.Equal(t, "S.Res. 77: A resolution supporting the designation of National Park Week", resolution.Title)
	assert.Equal(t, "congress-sres-77-118", resolution.Slug)
	assert.Equal(t, "https://www.congress.gov/bill/118th-congress/senate-resolution/77", resolution.SourceURL)
	assert.Equal(t, time.Date(2024, 4, 30, 10, 0, 0, 0, time.UTC), resolution.PublishedAt)
	assert.NotContains(t, resolution.Summary, "Latest Action")
}

func TestCongress_LongTitleTruncated(t *testing.T) {
	source := NewCongressSource(newTestClient(), "key")
	long := strings.Repeat("x", 150)

	in := source.mapBill(congressBill{Congress: 118, Number: "1", Title: long, Type: "xyz"})
	assert.Equal(t, "xyz 1: "+strings.Repeat("x", 97)+"...", in.Title)
	assert.Contains(t, in.Summary, long)
}

func TestCongress_ErrorsAreSwallowed(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer server.Close()

	source := NewCongressSource(newTestClient(), "bad-key")
	source.baseURL = server.URL
	assert.Empty(t, source.Fetch(context.Background()))
}

func TestFetchErrorRedactsAPIKey(t *testing.T) {
	err := classifyStatus(http.StatusForbidden, "https://api.congress.gov/v3/bill/118?api_key=secret&limit=20")
	assert.Equal(t, ErrKindForbidden, err.Kind)
	assert.NotContains(t, err.Error(), "secret")
}

func TestOrdinal(t *testing.T) {
	tests := map[int]string{1: "1st", 2: "2nd", 3: "3rd", 11: "11th", 112: "112th", 118: "118th", 121: "121st"}
	for n, expected := range tests {
		assert.Equal(t, expected, ordinal(n))
	}
}
