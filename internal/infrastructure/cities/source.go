// Package cities provides the fixed universe of US cities a run iterates over.
package cities

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"

	"DailyHoller/internal/domain"
	"DailyHoller/internal/ports"
	"DailyHoller/internal/slug"
)

//go:embed cities.json
var embeddedCities []byte

var regions = map[string][]string{
	"Northeast": {"CT", "ME", "MA", "NH", "RI", "VT", "NJ", "NY", "PA"},
	"Southeast": {"AL", "AR", "DE", "FL", "GA", "KY", "LA", "MD", "MS", "NC", "SC", "TN", "VA", "WV"},
	"Midwest":   {"IL", "IN", "IA", "KS", "MI", "MN", "MO", "NE", "ND", "OH", "SD", "WI"},
	"Southwest": {"AZ", "NM", "OK", "TX"},
	"West":      {"AK", "CA", "CO", "HI", "ID", "MT", "NV", "OR", "UT", "WA", "WY"},
}

// Region maps a state code to its census-style region.
func Region(state string) string {
	for region, states := range regions {
		for _, s := range states {
			if s == state {
				return region
			}
		}
	}
	return "Other"
}

// Source serves cities ordered by descending population. IDs are 1-based ranks in that order.
type Source struct {
	cities []domain.City
	byID   map[string]int
	bySlug map[string]int
}

var _ ports.WorkUnitSource = (*Source)(nil)

// Load reads the city list from path, or the embedded list when path is empty.
// A positive limit keeps only the most populous cities.
func Load(path string, limit int) (*Source, error) {
	raw := embeddedCities
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read cities %s: %w", path, err)
		}
		raw = data
	}

	var list []domain.City
	if err := json.Unmarshal(raw, &list); err != nil {
		return nil, fmt.Errorf("parse cities: %w", err)
	}
	return New(list, limit)
}

// New orders the given cities and assigns identifiers.
func New(list []domain.City, limit int) (*Source, error) {
	if len(list) == 0 {
		return nil, domain.ErrNoWorkUnits
	}

	ordered := append([]domain.City(nil), list...)
	sort.SliceStable(ordered, func(i, j int) bool {
		a, b := ordered[i], ordered[j]
		if a.Population != b.Population {
			return a.Population > b.Population
		}
		if a.State != b.State {
			return a.State < b.State
		}
		return a.Name < b.Name
	})
	if limit > 0 && len(ordered) > limit {
		ordered = ordered[:limit]
	}

	byID := make(map[string]int, len(ordered))
	bySlug := make(map[string]int, len(ordered))
	for i := range ordered {
		ordered[i].ID = strconv.Itoa(i + 1)
		if ordered[i].Region == "" {
			ordered[i].Region = Region(ordered[i].State)
		}
		byID[ordered[i].ID] = i
		if _, taken := bySlug[Slug(ordered[i])]; !taken {
			bySlug[Slug(ordered[i])] = i
		}
	}

	return &Source{cities: ordered, byID: byID, bySlug: bySlug}, nil
}

// ListWorkUnits returns a copy of the ordered cities.
func (s *Source) ListWorkUnits(context.Context) ([]domain.City, error) {
	if len(s.cities) == 0 {
		return nil, domain.ErrNoWorkUnits
	}
	return append([]domain.City(nil), s.cities...), nil
}

// Get returns a city by identifier.
func (s *Source) Get(id string) (domain.City, error) {
	idx, ok := s.byID[id]
	if !ok {
		return domain.City{}, fmt.Errorf("city %s: %w", id, domain.ErrNotFound)
	}
	return s.cities[idx], nil
}

// Slug renders the "{name}-{state}" path segment of a city, e.g. "st-louis-mo".
func Slug(c domain.City) string {
	name := slug.Normalize(c.Name)
	if name == "" || c.State == "" {
		return ""
	}
	return name + "-" + strings.ToLower(c.State)
}

// BySlug resolves a city path segment. "saint-" and "st-" prefixes are interchangeable.
func (s *Source) BySlug(value string) (domain.City, error) {
	key := slug.Normalize(value)
	candidates := []string{key}
	switch {
	case strings.HasPrefix(key, "saint-"):
		candidates = append(candidates, "st-"+strings.TrimPrefix(key, "saint-"))
	case strings.HasPrefix(key, "st-"):
		candidates = append(candidates, "saint-"+strings.TrimPrefix(key, "st-"))
	}
	for _, c := range candidates {
		if idx, ok := s.bySlug[c]; ok {
			return s.cities[idx], nil
		}
	}
	return domain.City{}, fmt.Errorf("city %s: %w", value, domain.ErrNotFound)
}

// Len reports the size of the universe.
func (s *Source) Len() int {
	return len(s.cities)
}

// Query filters the city listing.
type Query struct {
	Search string
	State  string
	Region string
	Page   int
	Limit  int
}

// Page is one slice of a filtered listing.
type Page struct {
	Cities     []domain.City `json:"cities"`
	Total      int           `json:"total"`
	Page       int           `json:"page"`
	TotalPages int           `json:"totalPages"`
}

// Find filters by name/state-name substring, state code and region, then paginates.
func (s *Source) Find(q Query) Page {
	if q.Page < 1 {
		q.Page = 1
	}
	if q.Limit < 1 {
		q.Limit = 50
	}
	search := strings.ToLower(strings.TrimSpace(q.Search))

	matched := []domain.City{}
	for _, c := range s.cities {
		if search != "" &&
			!strings.Contains(strings.ToLower(c.Name), search) &&
			!strings.Contains(strings.ToLower(c.StateName), search) {
			continue
		}
		if q.State != "" && c.State != q.State {
			continue
		}
		if q.Region != "" && c.Region != q.Region {
			continue
		}
		matched = append(matched, c)
	}

	start := (q.Page - 1) * q.Limit
	end := start + q.Limit
	if start > len(matched) {
		start = len(matched)
	}
	if end > len(matched) {
		end = len(matched)
	}

	return Page{
		Cities:     matched[start:end],
		Total:      len(matched),
		Page:       q.Page,
		TotalPages: (len(matched) + q.Limit - 1) / q.Limit,
	}
}
