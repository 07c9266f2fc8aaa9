package generator

import (
	"fmt"
	"html"
	"regexp"
	"strings"

	"github.com/microcosm-cc/bluemonday"

	"DailyHoller/internal/domain"
)

var (
	strictPolicy = bluemonday.StrictPolicy()
	headingMark  = regexp.MustCompile(`^#{1,6}\s*`)
	titleLabel   = regexp.MustCompile(`(?i)^(headline|title)\s*:\s*`)
)

// Parse splits model output into a title (first non-empty line) and body.
func Parse(raw string) (domain.Draft, error) {
	text := html.UnescapeString(strictPolicy.Sanitize(raw))
	text = strings.ReplaceAll(text, "\r\n", "\n")

	var lines []string
	for _, line := range strings.Split(text, "\n") {
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			lines = append(lines, trimmed)
		}
	}
	if len(lines) < 2 {
		return domain.Draft{}, fmt.Errorf("%w: expected headline and body, got %d lines", domain.ErrMalformedOutput, len(lines))
	}

	title := cleanTitle(lines[0])
	if title == "" {
		return domain.Draft{}, fmt.Errorf("%w: empty headline", domain.ErrMalformedOutput)
	}

	body := strings.Join(lines[1:], "\n\n")
	return domain.Draft{Title: title, Body: body}, nil
}

func cleanTitle(line string) string {
	t := headingMark.ReplaceAllString(line, "")
	t = strings.Trim(t, "*_ ")
	t = titleLabel.ReplaceAllString(t, "")
	t = strings.Trim(t, "*_ ")
	t = strings.Trim(t, `"“”`)
	t = strings.TrimPrefix(t, "[")
	t = strings.TrimSuffix(t, "]")
	return strings.TrimSpace(t)
}
