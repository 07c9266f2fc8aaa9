package parser

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"DailyHoller/internal/domain"
	"DailyHoller/internal/ports"
	"DailyHoller/internal/scanner"
)

// StrategySource implements ports.FactSource via registered scanner strategies.
type StrategySource struct {
	registry *scanner.Registry
	names    []string
	limit    int
	logger   *slog.Logger

	mu    sync.Mutex
	cache map[string][]string
}

var _ ports.FactSource = (*StrategySource)(nil)

// NewStrategySource wires the registry with the scanners to consult, in order.
// An empty names list consults every registered scanner.
func NewStrategySource(reg *scanner.Registry, names []string, limit int, log *slog.Logger) *StrategySource {
	if len(names) == 0 && reg != nil {
		names = reg.Names()
	}
	return &StrategySource{
		registry: reg,
		names:    names,
		limit:    limit,
		logger:   log,
		cache:    map[string][]string{},
	}
}

// Facts queries scanners until the limit is reached. Results are cached per city.
func (s *StrategySource) Facts(ctx context.Context, city domain.City) ([]string, error) {
	if s.registry == nil {
		return nil, fmt.Errorf("scanner registry is not configured")
	}

	key := city.Name + "|" + city.State
	s.mu.Lock()
	cached, ok := s.cache[key]
	s.mu.Unlock()
	if ok {
		return cached, nil
	}

	var (
		facts []string
		errs  []error
	)
	for _, name := range s.names {
		strategy, err := s.registry.Resolve(name)
		if err != nil {
			errs = append(errs, err)
			continue
		}

		results, err := strategy.Scan(ctx, scanner.Request{City: city, Limit: s.limit - len(facts)})
		if err != nil {
			s.debug("scanner failed", "scanner", name, "city", city.Name, "error", err)
			errs = append(errs, fmt.Errorf("scan %s: %w", name, err))
			continue
		}
		facts = append(facts, results...)
		if s.limit > 0 && len(facts) >= s.limit {
			facts = facts[:s.limit]
			break
		}
	}

	if len(facts) == 0 && len(errs) > 0 {
		return nil, errors.Join(errs...)
	}

	s.mu.Lock()
	s.cache[key] = facts
	s.mu.Unlock()

	s.debug("facts collected", "city", city.Name, "state", city.State, "count", len(facts))
	return facts, nil
}

func (s *StrategySource) debug(msg string, args ...interface{}) {
	if s.logger != nil {
		s.logger.Debug(msg, args...)
	}
}
