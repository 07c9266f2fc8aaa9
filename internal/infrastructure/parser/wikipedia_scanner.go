package parser

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"
	"unicode"

	"github.com/PuerkitoBio/goquery"

	"DailyHoller/internal/domain"
	"DailyHoller/internal/scanner"
)

const wikipediaBaseURL = "https://en.wikipedia.org/wiki/"

var (
	citationExpr = regexp.MustCompile(`\[[^\]]*\]`)
	spaceExpr    = regexp.MustCompile(`\s+`)
)

// WikipediaScanner reads the lead section of a city's Wikipedia article.
type WikipediaScanner struct {
	client  *http.Client
	baseURL string
	logger  *slog.Logger
}

var _ scanner.Scanner = (*WikipediaScanner)(nil)

// NewWikipediaScanner wires an HTTP client; baseURL defaults to English Wikipedia.
func NewWikipediaScanner(client *http.Client, baseURL string, logger *slog.Logger) *WikipediaScanner {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	if baseURL == "" {
		baseURL = wikipediaBaseURL
	}
	return &WikipediaScanner{client: client, baseURL: baseURL, logger: logger}
}

// Name identifies the strategy inside the registry.
func (w *WikipediaScanner) Name() string {
	return "wikipedia"
}

// Scan returns up to req.Limit sentences from the article lead.
func (w *WikipediaScanner) Scan(ctx context.Context, req scanner.Request) ([]string, error) {
	pageURL, err := buildPageURL(w.baseURL, req.City)
	if err != nil {
		return nil, err
	}

	doc, err := w.fetchDocument(ctx, pageURL)
	if err != nil {
		return nil, fmt.Errorf("city %s: %w", req.City.Name, err)
	}

	facts := extractFacts(doc, req.Limit)
	if w.logger != nil {
		w.logger.Debug("wikipedia facts", "city", req.City.Name, "state", req.City.State, "count", len(facts))
	}
	return facts, nil
}

func (w *WikipediaScanner) fetchDocument(ctx context.Context, pageURL string) (*goquery.Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", "DailyHoller/1.0 (satirical local news)")

	resp, err := w.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request document: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("wikipedia returned %s", resp.Status)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parse document: %w", err)
	}

	return doc, nil
}

func extractFacts(doc *goquery.Document, limit int) []string {
	if limit <= 0 {
		limit = 2
	}
	doc.Find("sup.reference, span.noprint, style").Remove()

	var facts []string
	doc.Find("#mw-content-text p").EachWithBreak(func(_ int, p *goquery.Selection) bool {
		if p.HasClass("mw-empty-elt") {
			return true
		}
		text := cleanText(p.Text())
		if text == "" {
			return true
		}
		for _, sentence := range splitSentences(text) {
			if len(sentence) < 20 {
				continue
			}
			facts = append(facts, sentence)
			if len(facts) >= limit {
				return false
			}
		}
		return true
	})

	return facts
}

// splitSentences cuts after terminal punctuation followed by a space and a capital letter,
// so abbreviations such as "U.S. state" stay intact.
func splitSentences(text string) []string {
	runes := []rune(text)
	var (
		out   []string
		start int
	)
	for i := 0; i < len(runes); i++ {
		if !strings.ContainsRune(".!?", runes[i]) {
			continue
		}
		end := i + 1
		if end == len(runes) {
			break
		}
		if runes[end] == ' ' && end+1 < len(runes) && unicode.IsUpper(runes[end+1]) {
			out = append(out, strings.TrimSpace(string(runes[start:end])))
			start = end + 1
		}
	}
	if tail := strings.TrimSpace(string(runes[start:])); tail != "" {
		out = append(out, tail)
	}
	return out
}

func cleanText(text string) string {
	text = citationExpr.ReplaceAllString(text, "")
	text = spaceExpr.ReplaceAllString(text, " ")
	return strings.TrimSpace(text)
}

func buildPageURL(base string, city domain.City) (string, error) {
	if city.Name == "" {
		return "", fmt.Errorf("city name is required")
	}
	state := city.StateName
	if state == "" {
		state = city.State
	}

	title := city.Name
	if state != "" {
		title += ", " + state
	}
	title = strings.ReplaceAll(title, " ", "_")

	parsed, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("invalid wikipedia url %s: %w", base, err)
	}
	return parsed.JoinPath(title).String(), nil
}
