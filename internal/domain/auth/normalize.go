package auth

import (
	"regexp"
	"strings"
)

var kyrgyzPhone = regexp.MustCompile(`^\+996\d{9}$`)

// normalizePhone brings a Kyrgyz phone number to +996XXXXXXXXX form.
func normalizePhone(raw string) (string, error) {
	cleaned := strings.Map(func(r rune) rune {
		switch r {
		case ' ', '-', '(', ')':
			return -1
		}
		return r
	}, strings.TrimSpace(raw))

	switch {
	case strings.HasPrefix(cleaned, "0") && len(cleaned) == 10:
		cleaned = "+996" + cleaned[1:]
	case strings.HasPrefix(cleaned, "996"):
		cleaned = "+" + cleaned
	}

	if !kyrgyzPhone.MatchString(cleaned) {
		return "", ErrInvalidPhoneNumber
	}
	return cleaned, nil
}
