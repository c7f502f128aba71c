package harvest

import (
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"
)

var emailPattern = regexp.MustCompile(`[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}`)

func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// ExtractEmails returns every email-shaped token of text, normalized, in order
// of appearance. Repeats are kept; dedup belongs to the run State.
func ExtractEmails(text string) []string {
	matches := emailPattern.FindAllString(text, -1)
	emails := make([]string, 0, len(matches))
	for _, m := range matches {
		emails = append(emails, NormalizeEmail(m))
	}
	return emails
}

func FirstLine(text string) string {
	line, _, _ := strings.Cut(text, "\n")
	return line
}

// FoldText applies NFKC so ligatures and full-width forms produced by
// document text extraction match the ASCII email pattern.
func FoldText(text string) string {
	return norm.NFKC.String(text)
}
