package generator

import (
	"math/rand"
	"sync"
	"time"

	"DailyHoller/internal/domain"
)

// themeTitles is the fixed premise bank; IDs are 1-based positions.
var themeTitles = []string{
	"Local thrift store introduces bizarre membership rules",
	"Residents panic when town clock moves ahead one year",
	"Local brewery sparks outrage with strange new flavor",
	"Entire town takes part in confusing scavenger hunt",
	"Residents feud over misplaced statue",
	"Local carnival game sparks federal investigation",
	"City council debates outlawing squirrels",
	"Local marching band sparks international incident",
	"Farmers protest by painting absurd slogans on cows",
	"Entire town convinced famous celebrity is hiding locally",
	"Town builds unnecessary underground tunnel",
	"Residents feud over hot dog toppings",
	"Local marathon devolves into absurd chaos",
	"Public park swings cause surreal controversy",
	"Entire town starts speaking in rhymes",
	"Residents panic over oddly shaped cloud",
	"Local theater troupe sparks nationwide protest",
	"Town introduces absurd bedtime curfew for adults",
	"Residents forced to adopt ridiculous new handshake",
	"Entire town's GPS points to same house",
	"Local coin-operated machine becomes source of chaos",
	"Residents feud over absurd mural",
	"Local mayor hosts bizarre talent show",
	"Residents panic after strange sound from water pipes",
	"Local barber sparks scandal with eccentric haircut rules",
	"Town debates banning plastic flamingos",
	"Entire town obsessed with a board game",
	"Middle school principal introduces surreal grading system",
	"Residents panic when elevators stop working mysteriously",
	"Town hall roof caves in from bizarre cause",
	"Residents feud over absurd dog leash law",
	"Local coffee shop sparks moral panic",
	"Residents panic after bizarre rainbow appears",
	"Local fisherman claims to catch mythical creature",
	"Town introduces absurd recycling tokens",
	"Local choir sparks global controversy",
	"Residents feud over absurd shoe ban",
	"Town parade accidentally enters another state",
	"Residents panic over giant pothole",
	"Local bookstore introduces surreal late fees",
	"Town debates banning whistling in public",
	"Residents panic after sun sets at wrong time",
	"Local mall sparks nationwide scandal",
	"Town installs unnecessary lighthouse",
	"Residents feud over absurd mascot redesign",
	"Local playground sparks surreal conspiracy",
	"Town hall flooded with gelatin",
	"Residents panic when town fountain runs chocolate",
	"Local mayor sparks outrage with karaoke contest",
	"Residents feud over absurd fishing rule",
	"Local diner serves food in bizarre fashion",
	"Town celebrates strange holiday nobody understands",
	"Residents panic when statues start talking",
	"Local bus stop becomes international tourist attraction",
	"Town creates absurd no-laughing ordinance",
	"Residents feud over bizarre bell tower ringing",
	"Local chef sparks scandal with absurd cooking method",
	"Town builds unnecessary suspension bridge",
	"Residents panic over fake snowstorm",
	"Local zoo sparks chaos with new exhibit",
	"Town debates banning flip-flop sandals",
	"Residents panic after discovering extra Monday in calendar",
	"Local high school holds absurd prom theme",
	"Town introduces bizarre left-turn-only law",
	"Residents feud over absurd gardening rule",
	"Local musician sparks scandal with one-note concert",
	"Residents panic after lake disappears overnight",
	"Town builds unnecessary Ferris wheel",
	"Local mall Santa sparks surreal controversy",
	"Residents feud over absurd cat leash law",
	"Town introduces bizarre hat tax",
	"Local fireworks display sparks alien rumors",
	"Residents panic over upside-down street signs",
	"Local donut shop sparks health crisis",
	"Town builds absurdly small courthouse",
	"Residents feud over absurd dance ban",
	"Local lifeguard sparks scandal with odd whistle",
	"Town introduces bizarre holiday called Chair Day",
	"Residents panic after night sky turns green",
	"Local mayor sparks chaos with interpretive dance speech",
}

// ThemeMode selects how themes are chosen for successive jobs.
type ThemeMode string

const (
	ThemeRandom ThemeMode = "random"
	ThemeCycle  ThemeMode = "cycle"
)

// Themes is the enumerated catalog of premises.
type Themes struct {
	items []domain.Theme
}

// DefaultThemes returns the built-in catalog.
func DefaultThemes() Themes {
	items := make([]domain.Theme, len(themeTitles))
	for i, title := range themeTitles {
		items[i] = domain.Theme{ID: i + 1, Title: title}
	}
	return Themes{items: items}
}

// Len reports the catalog size.
func (t Themes) Len() int { return len(t.items) }

// ByIndex returns the theme for position i, wrapping around the catalog.
func (t Themes) ByIndex(i int) domain.Theme {
	if len(t.items) == 0 {
		return domain.Theme{}
	}
	if i < 0 {
		i = -i
	}
	return t.items[i%len(t.items)]
}

// Random picks a theme using rng.
func (t Themes) Random(rng *rand.Rand) domain.Theme {
	if len(t.items) == 0 {
		return domain.Theme{}
	}
	return t.items[rng.Intn(len(t.items))]
}

// Picker chooses the theme for each work unit.
type Picker struct {
	themes Themes
	mode   ThemeMode

	mu  sync.Mutex
	rng *rand.Rand
}

// NewPicker builds a picker. Unknown modes fall back to random selection.
func NewPicker(themes Themes, mode ThemeMode, seed int64) *Picker {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &Picker{themes: themes, mode: mode, rng: rand.New(rand.NewSource(seed))}
}

// Pick returns the theme for the unit at index.
func (p *Picker) Pick(index int) domain.Theme {
	if p.mode == ThemeCycle {
		return p.themes.ByIndex(index)
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.themes.Random(p.rng)
}
