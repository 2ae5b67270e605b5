package sanitize

import (
	"regexp"
	"unicode/utf8"
)

var reEmail = regexp.MustCompile(`(?i)[A-Z0-9._%+\-]+@[A-Z0-9.\-]+\.[A-Z]{2,}`)

// Phones: +52 55 1234 5678, (55) 1234-5678, 5512345678...
// At least 9 digits overall so dates and amounts survive.
var rePhone = regexp.MustCompile(`\+?\d[\d\s\-.()]{7,}\d`)

// CURP: 18-character Mexican national id.
var reCURP = regexp.MustCompile(`(?i)\b[A-Z]{4}\d{6}[HM][A-Z]{5}[A-Z0-9]\d\b`)

// RedactPII masks emails, phone numbers and CURPs before text reaches the logs.
func RedactPII(s string) string {
	if s == "" {
		return s
	}
	s = reEmail.ReplaceAllString(s, "[redacted email]")
	s = reCURP.ReplaceAllString(s, "[redacted curp]")
	s = rePhone.ReplaceAllStringFunc(s, func(m string) string {
		if countDigits(m) < 9 {
			return m
		}
		return "[redacted phone]"
	})
	return s
}

func countDigits(s string) int {
	n := 0
	for i := 0; i < len(s); i++ {
		if s[i] >= '0' && s[i] <= '9' {
			n++
		}
	}
	return n
}

// Summary cuts s at a word boundary no later than max bytes and appends an ellipsis.
func Summary(s string, max int) string {
	if len(s) <= max {
		return s
	}
	i := max
	for i > 0 && s[i] != ' ' {
		i--
	}
	if i <= 0 {
		i = max
	}
	for i > 0 && !utf8.RuneStart(s[i]) {
		i--
	}
	return s[:i] + "…"
}
