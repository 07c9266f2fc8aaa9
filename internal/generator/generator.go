// Package generator turns a city and theme into a satirical article draft.
package generator

import (
	"context"
	"fmt"
	"log/slog"

	"DailyHoller/internal/domain"
	"DailyHoller/internal/ports"
)

// Deps wires the collaborators of a Generator.
type Deps struct {
	Completer    ports.Completer
	Facts        ports.FactSource
	Flavor       *FlavorCatalog
	SystemPrompt string
	Logger       *slog.Logger
}

// Generator implements ports.ContentGenerator on top of an LLM completer.
type Generator struct {
	completer    ports.Completer
	facts        ports.FactSource
	flavor       *FlavorCatalog
	systemPrompt string
	logger       *slog.Logger
}

var _ ports.ContentGenerator = (*Generator)(nil)

// New builds a Generator.
func New(deps Deps) *Generator {
	system := deps.SystemPrompt
	if system == "" {
		system = DefaultSystemPrompt
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Generator{
		completer:    deps.Completer,
		facts:        deps.Facts,
		flavor:       deps.Flavor,
		systemPrompt: system,
		logger:       logger,
	}
}

// Generate asks the completer for an article and parses the reply.
func (g *Generator) Generate(ctx context.Context, city domain.City, theme domain.Theme) (domain.Draft, error) {
	if g.completer == nil {
		return domain.Draft{}, fmt.Errorf("generator has no completer")
	}

	var flavor []string
	if f, ok := g.flavor.Lookup(city); ok {
		flavor = f.Lines()
	}

	var facts []string
	if g.facts != nil {
		found, err := g.facts.Facts(ctx, city)
		if err != nil {
			g.logger.Debug("local facts unavailable", "city_id", city.ID, "error", err)
		} else {
			facts = found
		}
	}

	prompt, err := BuildPrompt(city, theme, flavor, facts)
	if err != nil {
		return domain.Draft{}, err
	}

	raw, err := g.completer.Complete(ctx, g.systemPrompt, prompt)
	if err != nil {
		return domain.Draft{}, fmt.Errorf("complete prompt for %s: %w", city.ID, err)
	}

	draft, err := Parse(raw)
	if err != nil {
		return domain.Draft{}, fmt.Errorf("parse output for %s: %w", city.ID, err)
	}
	return draft, nil
}
