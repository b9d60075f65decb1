package updates

import (
	"errors"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var slugPattern = regexp.MustCompile(`^[a-z0-9-]*$`)

func TestGenerateSlug(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"federal register seed", "fr-2024-01234", "fr-2024-01234"},
		{"congress seed", "congress-hr-1234-118", "congress-hr-1234-118"},
		{"punctuation stripped", "IRS: New Tax Credits for 2025!", "irs-new-tax-credits-for-2025"},
		{"whitespace runs", "Tax   Relief\tNow", "tax-relief-now"},
		{"hyphen runs", "a -- b", "a-b"},
		{"dropped chars join words", "e.g. rule", "eg-rule"},
		{"non ascii stripped", "Vergi Usulü Kanunu", "vergi-usul-kanunu"},
		{"trailing space", "notice ", "notice-"},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, GenerateSlug(tt.input))
		})
	}
}

func TestGenerateSlug_Properties(t *testing.T) {
	inputs := []string{
		"Final Rule: Amendments to Section 1.401(k)-1 --- Treasury & IRS",
		strings.Repeat("very long title with many words ", 10),
		"  leading and trailing  ",
		"ÇĞİÖŞÜ çğıöşü",
		"---",
		"a b c",
		"<b>tags</b> &amp; entities",
	}

	for _, input := range inputs {
		slug := GenerateSlug(input)
		assert.Regexp(t, slugPattern, slug, "input %q", input)
		assert.LessOrEqual(t, len(slug), MaxSlugLength, "input %q", input)
		assert.NotContains(t, slug, "--", "input %q", input)
		assert.Equal(t, slug, GenerateSlug(input), "slug must be deterministic for %q", input)
	}
}

func TestGenerateUpdateHash(t *testing.T) {
	published := time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)

	base := GenerateUpdateHash("IRS Announces New Guidance", published)
	require.NotEmpty(t, base)

	assert.Equal(t, base, GenerateUpdateHash("  irs announces new guidance ", published),
		"hash ignores case and surrounding whitespace")
	assert.Equal(t, base, GenerateUpdateHash("IRS Announces New Guidance", published.In(time.FixedZone("EST", -5*3600))),
		"hash depends on the instant, not the zone")

	assert.NotEqual(t, base, GenerateUpdateHash("IRS Announces Newer Guidance", published))
	assert.NotEqual(t, base, GenerateUpdateHash("IRS Announces New Guidance", published.Add(time.Second)))

	assert.Regexp(t, regexp.MustCompile(`^[0-9a-z]+$`), base)
}

func TestGenerateUpdateHash_KnownValue(t *testing.T) {
	// "a|1970-01-01T00:00:00.000Z" hashed with the 31-multiplier rolling hash.
	var h int32
	for _, c := range "a|1970-01-01T00:00:00.000Z" {
		h = h*31 + int32(c)
	}
	abs := int64(h)
	if abs < 0 {
		abs = -abs
	}

	got := GenerateUpdateHash("A", time.Unix(0, 0))
	assert.Equal(t, formatBase36(abs), got)
}

func formatBase36(v int64) string {
	const digits = "0123456789abcdefghijklmnopqrstuvwxyz"
	if v == 0 {
		return "0"
	}
	var out []byte
	for v > 0 {
		out = append([]byte{digits[v%36]}, out...)
		v /= 36
	}
	return string(out)
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", Truncate("short", 10))
	assert.Equal(t, "abcdefg...", Truncate("abcdefghijklmnop", 10))
	assert.Len(t, []rune(Truncate(strings.Repeat("ş", 300), 200)), 200)
}

func TestUniqueSlug(t *testing.T) {
	taken := map[string]bool{"tax-update": true, "tax-update-2": true}
	lookup := func(slug string) (bool, error) { return taken[slug], nil }

	slug, err := UniqueSlug("fresh", lookup)
	require.NoError(t, err)
	assert.Equal(t, "fresh", slug)

	slug, err = UniqueSlug("tax-update", lookup)
	require.NoError(t, err)
	assert.Equal(t, "tax-update-3", slug)

	long := strings.Repeat("a", 79) + "b"
	taken[long] = true
	slug, err = UniqueSlug(long, lookup)
	require.NoError(t, err)
	assert.Equal(t, strings.Repeat("a", 78)+"-2", slug)
	assert.LessOrEqual(t, len(slug), MaxSlugLength)

	_, err = UniqueSlug("x", func(string) (bool, error) { return false, errors.New("boom") })
	assert.Error(t, err)
}
