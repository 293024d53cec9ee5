package utils

import (
	"regexp"
	"strings"
	"testing"
	"unicode"

	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"
)

func TestNormalizePhoneLocalNumbers(t *testing.T) {
	assert.Equal(t, "6591234567", NormalizePhone("91234567"))
	assert.Equal(t, "6591234567", NormalizePhone("9123 4567"))
	assert.Equal(t, "6591234567", NormalizePhone("+65 9123 4567"))
	assert.Equal(t, "6591234567", NormalizePhone("65-9123-4567"))
}

func TestNormalizePhoneKeepsForeignNumbers(t *testing.T) {
	assert.Equal(t, "60123456789", NormalizePhone("+60 12 345 6789"))
	assert.Equal(t, "", NormalizePhone("no digits here"))
}

func TestWhatsAppID(t *testing.T) {
	assert.Equal(t, "6591234567@c.us", WhatsAppID("9123 4567"))
	assert.Equal(t, "", WhatsAppID(""))
}

var sgPhonePattern = regexp.MustCompile(`^65\d{8}$`)

// Normalization is idempotent, and an 8-digit local number always lands in
// canonical 65-prefixed form.
func TestNormalizePhoneProperties(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		raw := rapid.StringMatching(`[0-9 +()-]{0,16}`).Draw(t, "raw")

		once := NormalizePhone(raw)
		assert.Equal(t, once, NormalizePhone(once))
		assert.True(t, strings.IndexFunc(once, func(r rune) bool {
			return !unicode.IsDigit(r)
		}) == -1, "normalized form %q must be digits only", once)

		local := rapid.StringMatching(`[0-9]{8}`).Draw(t, "local")
		assert.True(t, sgPhonePattern.MatchString(NormalizePhone(local)),
			"8-digit local %q must normalize to 65-prefixed form, got %q", local, NormalizePhone(local))
	})
}
