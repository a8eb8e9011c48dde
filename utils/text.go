package utils

import (
	"regexp"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"golang.org/x/net/html"
)

var (
	// strictPolicy removes all markup from body text
	strictPolicy = bluemonday.StrictPolicy()

	tagPattern        = regexp.MustCompile(`<[^>]*>`)
	whitespacePattern = regexp.MustCompile(`\s+`)
)

// SanitizeBody turns an inbound email body into safe plain text. HTML
// markup (including scripts and styles) is stripped, entities are
// decoded and whitespace is normalized line by line.
func SanitizeBody(body string) string {
	if !looksLikeHTML(body) {
		return strings.TrimSpace(body)
	}

	text := strings.NewReplacer(
		"<br>", "\n",
		"<br/>", "\n",
		"<br />", "\n",
		"<p>", "\n",
		"</p>", "\n",
		"&nbsp;", " ",
	).Replace(body)

	text = strictPolicy.Sanitize(text)
	text = tagPattern.ReplaceAllString(text, "")
	text = html.UnescapeString(text)

	lines := strings.Split(text, "\n")
	cleaned := make([]string, 0, len(lines))
	for _, line := range lines {
		cleaned = append(cleaned, strings.TrimSpace(line))
	}

	return strings.TrimSpace(strings.Join(cleaned, "\n"))
}

// CreatePreview builds a short single-line preview of body text.
func CreatePreview(text string, max int) string {
	text = whitespacePattern.ReplaceAllString(text, " ")
	text = strings.TrimSpace(text)

	if len(text) > max {
		return text[:max] + "..."
	}
	return text
}

// Truncate limits text to max bytes without adding an ellipsis.
func Truncate(text string, max int) string {
	if len(text) <= max {
		return text
	}
	return text[:max]
}

// looksLikeHTML reports whether the body appears to contain markup
func looksLikeHTML(body string) bool {
	return strings.Contains(body, "<") && strings.Contains(body, ">")
}
