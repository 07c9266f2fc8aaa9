// Package slug derives URL-safe article identifiers.
package slug

import (
	"regexp"
	"strconv"
	"strings"
)

var (
	disallowed = regexp.MustCompile(`[^a-z0-9\s-]`)
	spaces     = regexp.MustCompile(`\s+`)
	hyphens    = regexp.MustCompile(`-+`)
)

// Set answers whether a slug is already taken.
type Set interface {
	Has(slug string) bool
}

// SetFunc adapts a function to Set.
type SetFunc func(string) bool

// Has implements Set.
func (f SetFunc) Has(s string) bool { return f(s) }

// Used is an in-memory Set.
type Used map[string]struct{}

// Has implements Set.
func (u Used) Has(s string) bool {
	_, ok := u[s]
	return ok
}

// Add marks s as taken.
func (u Used) Add(s string) { u[s] = struct{}{} }

// Normalize lowercases value and reduces it to hyphen-joined [a-z0-9] tokens.
func Normalize(value string) string {
	s := strings.ToLower(value)
	s = disallowed.ReplaceAllString(s, "")
	s = spaces.ReplaceAllString(strings.TrimSpace(s), "-")
	s = hyphens.ReplaceAllString(s, "-")
	return strings.Trim(s, "-")
}

// Base returns "{city}-{title}" or an empty string when either part normalizes to nothing.
func Base(title, city string) string {
	t := Normalize(title)
	c := Normalize(city)
	if t == "" || c == "" {
		return ""
	}
	return c + "-" + t
}

// Assign returns the base slug, suffixed with -1, -2, ... until it is not in used.
func Assign(title, city string, used Set) string {
	base := Base(title, city)
	if base == "" {
		return ""
	}
	if used == nil || !used.Has(base) {
		return base
	}
	for i := 1; ; i++ {
		candidate := base + "-" + strconv.Itoa(i)
		if !used.Has(candidate) {
			return candidate
		}
	}
}
