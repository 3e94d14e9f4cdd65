package service

import (
	"fmt"
	"net/mail"
	"strings"
	"unicode/utf8"

	"github.com/sakif/devsnap/internal/apperror"
)

// Validation limits. Lengths count characters, not bytes.
const (
	MaxNameLength  = 100
	MaxEmailLength = 255
	MaxTitleLength = 255
	MaxLinkLength  = 255
	MaxThemeLength = 20

	DefaultListLimit = 100
	MaxListLimit     = 100
)

// requireText trims s and checks it is non-empty and at most max characters.
func requireText(field, s string, max int) (string, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", apperror.ValidationFailed(field, field+" is required")
	}
	if utf8.RuneCountInString(s) > max {
		return "", apperror.ValidationFailed(field, fmt.Sprintf("%s must be %d characters or less", field, max))
	}
	return s, nil
}

// optionalText trims an optional value. Blank becomes nil so the column
// stays NULL instead of holding "".
func optionalText(field string, s *string, max int) (*string, error) {
	if s == nil {
		return nil, nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil, nil
	}
	if max > 0 && utf8.RuneCountInString(v) > max {
		return nil, apperror.ValidationFailed(field, fmt.Sprintf("%s must be %d characters or less", field, max))
	}
	return &v, nil
}

// validateEmail checks that s is a single bare address such as
// "octo@example.com" and returns it trimmed.
func validateEmail(s string) (string, error) {
	s, err := requireText("email", s, MaxEmailLength)
	if err != nil {
		return "", err
	}
	addr, err := mail.ParseAddress(s)
	if err != nil || addr.Address != s || addr.Name != "" {
		return "", apperror.ValidationFailed("email", "email is not a valid address")
	}
	return s, nil
}

// validateTheme lower-cases the theme name. The frontend owns the list of
// themes, so any short name is accepted.
func validateTheme(s string) (string, error) {
	return requireText("theme_preference", strings.ToLower(s), MaxThemeLength)
}

// cleanTags trims tags and drops blanks while keeping order.
func cleanTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		if t = strings.TrimSpace(t); t != "" {
			out = append(out, t)
		}
	}
	return out
}

// clampPage applies the list defaults: limit in [1, MaxListLimit], skip >= 0.
func clampPage(skip, limit int) (int, int) {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	if limit > MaxListLimit {
		limit = MaxListLimit
	}
	if skip < 0 {
		skip = 0
	}
	return skip, limit
}
