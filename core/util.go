package core

import (
	"net/mail"
	"strings"
	"unicode/utf8"
)

const maxEmailLen = 254

// CleanString trims all leading and trailing whitespace in `s` and optionally lowers it.
func CleanString(s string, lower ...bool) string {
	s = strings.TrimSpace(s)
	if len(lower) > 0 && lower[0] {
		return strings.ToLower(s)
	}
	return s
}

// Truncate cuts `s` down to at most `n` runes.
func Truncate(s string, n int) string {
	if n < 0 || utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}

// ParseEmail cleans and validates a single bare email address.
func ParseEmail(raw string) (string, bool) {
	email := CleanString(raw, true /* lower */)
	if email == "" || len(email) > maxEmailLen {
		return "", false
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", false
	}
	return email, true
}

// ParseAddressList parses a comma separated list of emails.
// Invalid entries are dropped; `onInvalid` (if set) is called for each of them.
func ParseAddressList(raw string, onInvalid func(string)) []mail.Address {
	if CleanString(raw) == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	addrs := make([]mail.Address, 0, len(parts))
	for _, part := range parts {
		if CleanString(part) == "" {
			continue
		}
		email, ok := ParseEmail(part)
		if !ok {
			if onInvalid != nil {
				onInvalid(part)
			}
			continue
		}
		addrs = append(addrs, mail.Address{Address: email})
	}
	return addrs
}

// MaskSecret hides all but the last 4 chars of a secret. Empty secrets render as "Not Set".
func MaskSecret(secret string) string {
	if secret == "" {
		return "Not Set"
	}
	if len(secret) <= 4 {
		return "******"
	}
	return "******" + secret[len(secret)-4:]
}

// JoinAddresses renders addresses as a comma separated list of bare emails.
func JoinAddresses(addrs []mail.Address) string {
	emails := make([]string, 0, len(addrs))
	for _, a := range addrs {
		emails = append(emails, a.Address)
	}
	return strings.Join(emails, ", ")
}
