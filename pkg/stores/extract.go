package stores

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

var (
	postcodePattern = regexp.MustCompile(`(?i)^(GIR ?0AA|[A-Z]{1,2}\d{1,2}[A-Z]?\s*\d[A-Z]{2})$`)

	// postcodeInText finds postcodes inside free text. Matching is
	// case-sensitive there, or ordinary words would be taken for postcodes.
	postcodeInText = regexp.MustCompile(`\b(GIR ?0AA|[A-Z]{1,2}\d{1,2}[A-Z]?\s*\d[A-Z]{2})\b`)

	phonePattern = regexp.MustCompile(`(\+?\d[\d\s().-]{7,}\d)`)
)

// addressWindow is how many characters either side of a postcode are kept.
const addressWindow = 80

// NormalizePostcode trims and upper-cases a postcode.
func NormalizePostcode(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}

// ValidPostcode reports whether s is a UK postcode.
func ValidPostcode(s string) bool {
	return postcodePattern.MatchString(NormalizePostcode(s))
}

// ExtractPhone returns the first phone-number-like run in texts.
func ExtractPhone(texts ...string) string {
	for _, text := range texts {
		if text == "" {
			continue
		}
		if m := phonePattern.FindStringSubmatch(text); m != nil {
			return strings.TrimSpace(m[1])
		}
	}
	return ""
}

// ExtractAddress returns the text surrounding the first postcode in text.
func ExtractAddress(text string) string {
	loc := postcodeInText.FindStringIndex(text)
	if loc == nil {
		return ""
	}

	start := loc[0]
	for i := 0; i < addressWindow && start > 0; i++ {
		_, size := utf8.DecodeLastRuneInString(text[:start])
		start -= size
	}

	end := loc[1]
	for i := 0; i < addressWindow && end < len(text); i++ {
		_, size := utf8.DecodeRuneInString(text[end:])
		end += size
	}

	return strings.TrimSpace(text[start:end])
}
