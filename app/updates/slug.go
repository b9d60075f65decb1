package updates

import (
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode"
	"unicode/utf16"

	"golang.org/x/text/unicode/norm"
)

const MaxSlugLength = 80

// isoMillis matches the ISO-8601 form stored for publishedAt and used in hash seeds.
const isoMillis = "2006-01-02T15:04:05.000Z"

// GenerateSlug turns a title (or a source-specific seed) into a URL-safe slug.
// The result is not unique; the storage layer disambiguates collisions.
func GenerateSlug(title string) string {
	lower := strings.ToLower(title)

	var b strings.Builder
	b.Grow(len(lower))

	pendingSpace := false
	lastHyphen := false
	for _, r := range lower {
		switch {
		case isSlugSpace(r):
			pendingSpace = true
			continue
		case (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '-':
		default:
			continue
		}

		if pendingSpace {
			if !lastHyphen {
				b.WriteByte('-')
			}
			lastHyphen = true
			pendingSpace = false
		}

		if r == '-' {
			if !lastHyphen {
				b.WriteByte('-')
			}
			lastHyphen = true
			continue
		}

		b.WriteRune(r)
		lastHyphen = false
	}
	if pendingSpace && !lastHyphen {
		b.WriteByte('-')
	}

	slug := b.String()
	if len(slug) > MaxSlugLength {
		slug = slug[:MaxSlugLength]
	}
	return slug
}

func isSlugSpace(r rune) bool {
	return unicode.IsSpace(r) || r == '\ufeff'
}

// FormatTimestamp renders t the way publishedAt is stored and hashed.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(isoMillis)
}

// GenerateUpdateHash returns the dedup key for a (title, publishedAt) pair.
// It is a 32-bit rolling hash over UTF-16 code units, base36 encoded, so keys
// stay stable with records produced before this service existed.
func GenerateUpdateHash(title string, publishedAt time.Time) string {
	seed := NormalizeTitle(title) + "|" + FormatTimestamp(publishedAt)

	var h int32
	for _, unit := range utf16.Encode([]rune(seed)) {
		h = h*31 + int32(unit)
	}

	abs := int64(h)
	if abs < 0 {
		abs = -abs
	}
	return strconv.FormatInt(abs, 36)
}

// NormalizeTitle is the title form that participates in the dedup key.
func NormalizeTitle(title string) string {
	return strings.ToLower(strings.TrimSpace(norm.NFC.String(title)))
}

// Truncate caps s at max runes, replacing the tail with "..." when cut.
func Truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	if max <= 3 {
		return string(runes[:max])
	}
	return strings.TrimRightFunc(string(runes[:max-3]), unicode.IsSpace) + "..."
}

const maxSlugSuffix = 1000

// UniqueSlug returns base, or base with the first free "-N" suffix (N >= 2).
// The base is trimmed so the result never exceeds MaxSlugLength.
func UniqueSlug(base string, taken func(slug string) (bool, error)) (string, error) {
	candidate := base
	for n := 2; n <= maxSlugSuffix; n++ {
		exists, err := taken(candidate)
		if err != nil {
			return "", err
		}
		if !exists {
			return candidate, nil
		}

		suffix := "-" + strconv.Itoa(n)
		trimmed := base
		if len(trimmed)+len(suffix) > MaxSlugLength {
			trimmed = strings.TrimRight(trimmed[:MaxSlugLength-len(suffix)], "-")
		}
		candidate = trimmed + suffix
	}
	return "", fmt.Errorf("%w: no free slug for %q", ErrInvalidInput, base)
}
