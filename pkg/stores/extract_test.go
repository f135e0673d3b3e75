package stores

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
)

func TestValidPostcode(t *testing.T) {
	valid := []string{"SW1A 1AA", "sw1a1aa", " E1 6AN ", "GIR 0AA", "gir0aa", "M1 1AE", "B33 8TH", "CR2 6XH", "DN55 1PT"}
	for _, pc := range valid {
		assert.True(t, ValidPostcode(pc), pc)
	}

	invalid := []string{"", "12345", "SW1A", "SW1A 1A", "London", "SW1A 1AA extra", "1AA SW1"}
	for _, pc := range invalid {
		assert.False(t, ValidPostcode(pc), pc)
	}
}

func TestNormalizePostcode(t *testing.T) {
	assert.Equal(t, "SW1A 1AA", NormalizePostcode("  sw1a 1aa\n"))
}

func TestExtractPhone(t *testing.T) {
	assert.Equal(t, "020 7946 0958", ExtractPhone("Call us on 020 7946 0958 today"))
	assert.Equal(t, "+44 (0)20 7946 0958", ExtractPhone("Tel: +44 (0)20 7946 0958"))
	assert.Equal(t, "01632 960123", ExtractPhone("", "no digits here", "Phone 01632 960123."))
	assert.Empty(t, ExtractPhone("Open 8-5", "call 123"))
	assert.Empty(t, ExtractPhone())
}

func TestExtractAddress(t *testing.T) {
	t.Run("short text", func(t *testing.T) {
		text := "Pipe World, 12 High Street, London SW1A 1AA. Open 8-5."
		assert.Equal(t, text, ExtractAddress(text))
	})

	t.Run("window around postcode", func(t *testing.T) {
		text := strings.Repeat("a", 200) + " 12 Mill Lane, Leeds LS1 4AP " + strings.Repeat("b", 200)
		got := ExtractAddress(text)
		assert.Contains(t, got, "Mill Lane, Leeds LS1 4AP")
		assert.LessOrEqual(t, len(got), 80+len("LS1 4AP")+80)
		assert.True(t, strings.HasPrefix(got, "a"))
		assert.True(t, strings.HasSuffix(got, "b"))
	})

	t.Run("multibyte text", func(t *testing.T) {
		text := strings.Repeat("é", 100) + " M1 1AE " + strings.Repeat("ü", 100)
		got := ExtractAddress(text)
		assert.Contains(t, got, "M1 1AE")
		assert.Equal(t, 80+len("M1 1AE")+80, utf8.RuneCountInString(got))
	})

	t.Run("no postcode", func(t *testing.T) {
		assert.Empty(t, ExtractAddress("We sell copper pipe and fittings."))
		assert.Empty(t, ExtractAddress(""))
	})
}
