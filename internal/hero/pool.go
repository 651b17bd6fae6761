package hero

import (
	"encoding/json"
	"errors"
	"fmt"
	"math/rand/v2"
	"os"
	"sort"
)

var (
	ErrUnknownHero  = errors.New("unknown hero")
	ErrPoolTooSmall = errors.New("hero pool too small")
)

// Pool is the read-only set of characters a game may offer.
type Pool struct {
	heroes   map[string]Hero
	all      []string
	monarchs []string
}

// NewPool indexes heroes by uni name. Later duplicates are ignored.
func NewPool(heroes []Hero) *Pool {
	p := &Pool{heroes: make(map[string]Hero, len(heroes))}
	for _, h := range heroes {
		if h.HPMax == 0 {
			h.HPMax = h.HP
		}
		if h.Camp == "" {
			h.Camp = CampUnknown
		}
		uni := h.UniName()
		if _, ok := p.heroes[uni]; ok {
			continue
		}
		p.heroes[uni] = h
		p.all = append(p.all, uni)
		if h.Monarch {
			p.monarchs = append(p.monarchs, uni)
		}
	}
	sort.Strings(p.all)
	sort.Strings(p.monarchs)
	return p
}

// Load reads a JSON array of heroes from path.
func Load(path string) (*Pool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read hero roster: %w", err)
	}
	var heroes []Hero
	if err := json.Unmarshal(data, &heroes); err != nil {
		return nil, fmt.Errorf("decode hero roster: %w", err)
	}
	if len(heroes) == 0 {
		return nil, fmt.Errorf("%w: %s has no heroes", ErrPoolTooSmall, path)
	}
	return NewPool(heroes), nil
}

// Default returns the built-in roster.
func Default() *Pool {
	return NewPool(defaultRoster)
}

// Monarchs lists the uni names of heroes with a monarch skill.
func (p *Pool) Monarchs() []string {
	return append([]string(nil), p.monarchs...)
}

// All lists every uni name in the pool.
func (p *Pool) All() []string {
	return append([]string(nil), p.all...)
}

// Lookup finds a hero by uni name.
func (p *Pool) Lookup(uni string) (Hero, bool) {
	h, ok := p.heroes[uni]
	return h, ok
}

// Len returns the number of heroes.
func (p *Pool) Len() int { return len(p.all) }

// Sample picks n distinct names from names, excluding any in exclude.
func Sample(names []string, n int, exclude ...string) ([]string, error) {
	skip := make(map[string]struct{}, len(exclude))
	for _, e := range exclude {
		skip[e] = struct{}{}
	}
	candidates := make([]string, 0, len(names))
	for _, name := range names {
		if _, ok := skip[name]; !ok {
			candidates = append(candidates, name)
		}
	}
	if n > len(candidates) {
		return nil, fmt.Errorf("%w: want %d, have %d", ErrPoolTooSmall, n, len(candidates))
	}
	rand.Shuffle(len(candidates), func(i, j int) { candidates[i], candidates[j] = candidates[j], candidates[i] })
	return candidates[:n], nil
}
