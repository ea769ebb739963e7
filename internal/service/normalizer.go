package service

import (
	"regexp"
	"strings"
)

var (
	whitespaceRegex = regexp.MustCompile(`\s+`)
	unsafeFileRegex = regexp.MustCompile(`[^A-Za-z0-9._-]+`)
)

// sanitizeString collapses whitespace and trims the result.
func sanitizeString(value string) string {
	value = whitespaceRegex.ReplaceAllString(value, " ")
	return strings.TrimSpace(value)
}

// fileStem turns an identifier or free-text name into a safe file name prefix.
func fileStem(value string) string {
	stem := unsafeFileRegex.ReplaceAllString(sanitizeString(value), "_")
	stem = strings.Trim(stem, "_.")
	if stem == "" {
		return "unnamed"
	}
	return stem
}
