package utils

import "strings"

// NormalizePhone strips every non-digit character and prefixes the Singapore
// country code when the number is a bare 8-digit local number.
func NormalizePhone(raw string) string {
	var b strings.Builder
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	digits := b.String()
	if len(digits) == 8 {
		return "65" + digits
	}
	return digits
}

// WhatsAppID converts a phone number into the individual-chat JID form.
func WhatsAppID(phone string) string {
	normalized := NormalizePhone(phone)
	if normalized == "" {
		return ""
	}
	return normalized + "@c.us"
}

// IsGroupJID reports whether the chat identifier addresses a group.
func IsGroupJID(jid string) bool {
	return strings.HasSuffix(jid, "@g.us")
}
