package generator

import (
	_ "embed"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"DailyHoller/internal/domain"
)

//go:embed flavor.yaml
var flavorYAML []byte

// Flavor is curated local color for a city.
type Flavor struct {
	Name       string   `yaml:"name"`
	State      string   `yaml:"state"`
	Nickname   string   `yaml:"nickname"`
	Landmarks  []string `yaml:"landmarks"`
	Streets    []string `yaml:"streets"`
	Sports     []string `yaml:"sports"`
	Businesses []string `yaml:"businesses"`
	Terms      []string `yaml:"terms"`
}

// FlavorCatalog indexes local color by "city|state".
type FlavorCatalog struct {
	byKey map[string]Flavor
}

// LoadFlavorCatalog parses the embedded catalog.
func LoadFlavorCatalog() (*FlavorCatalog, error) {
	return ParseFlavorCatalog(flavorYAML)
}

// ParseFlavorCatalog parses a YAML catalog document.
func ParseFlavorCatalog(raw []byte) (*FlavorCatalog, error) {
	var doc struct {
		Cities []Flavor `yaml:"cities"`
	}
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("parse flavor catalog: %w", err)
	}

	catalog := &FlavorCatalog{byKey: make(map[string]Flavor, len(doc.Cities))}
	for _, f := range doc.Cities {
		catalog.byKey[flavorKey(f.Name, f.State)] = f
	}
	return catalog, nil
}

// Lookup returns the flavor for a city when one is curated.
func (c *FlavorCatalog) Lookup(city domain.City) (Flavor, bool) {
	if c == nil {
		return Flavor{}, false
	}
	f, ok := c.byKey[flavorKey(city.Name, city.State)]
	return f, ok
}

// Lines renders the flavor as prompt bullet points.
func (f Flavor) Lines() []string {
	var lines []string
	add := func(label string, values []string) {
		if len(values) > 0 {
			lines = append(lines, fmt.Sprintf("%s: %s", label, strings.Join(values, ", ")))
		}
	}
	if f.Nickname != "" {
		lines = append(lines, "Residents are called "+f.Nickname)
	}
	add("Landmarks", f.Landmarks)
	add("Streets", f.Streets)
	add("Sports teams", f.Sports)
	add("Local businesses", f.Businesses)
	add("Local slang", f.Terms)
	return lines
}

func flavorKey(name, state string) string {
	return strings.ToLower(strings.TrimSpace(name)) + "|" + strings.ToUpper(strings.TrimSpace(state))
}
