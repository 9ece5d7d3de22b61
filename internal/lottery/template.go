package lottery

import (
	"errors"
	"fmt"
)

// PrizeTemplate is the default configuration of one level.
type PrizeTemplate struct {
	Probability float64 `json:"probability"`
	Count       int     `json:"count"`
	Name        string  `json:"name"`
}

// Template holds the default prize table copied into every new activity.
// It is never mutated after NewTemplate returns.
type Template struct {
	levels map[PrizeLevel]PrizeTemplate
}

var ErrEmptyTemplate = errors.New("prize template has no levels")

// NewTemplate validates identifier-keyed config (keys are case-insensitive).
func NewTemplate(raw map[string]PrizeTemplate) (Template, error) {
	if len(raw) == 0 {
		return Template{}, ErrEmptyTemplate
	}
	levels := make(map[PrizeLevel]PrizeTemplate, len(raw))
	for key, cfg := range raw {
		lvl, ok := ParseLevel(key)
		if !ok {
			return Template{}, fmt.Errorf("unknown prize level %q", key)
		}
		if _, dup := levels[lvl]; dup {
			return Template{}, fmt.Errorf("prize level %s configured twice", lvl)
		}
		if cfg.Probability < 0 || cfg.Probability > 1 {
			return Template{}, fmt.Errorf("prize level %s: probability %v out of [0,1]", lvl, cfg.Probability)
		}
		if cfg.Count < 0 {
			return Template{}, fmt.Errorf("prize level %s: negative count %d", lvl, cfg.Count)
		}
		if lvl == LevelNone && cfg.Count > 0 {
			return Template{}, fmt.Errorf("prize level %s cannot have stock", lvl)
		}
		if cfg.Name == "" {
			cfg.Name = DisplayName(lvl)
		}
		levels[lvl] = cfg
	}
	return Template{levels: levels}, nil
}

// DefaultTemplate is used when no template file is configured.
func DefaultTemplate() Template {
	t, _ := NewTemplate(map[string]PrizeTemplate{
		"special":     {Probability: 0.01, Count: 1},
		"first":       {Probability: 0.05, Count: 3},
		"second":      {Probability: 0.10, Count: 5},
		"third":       {Probability: 0.20, Count: 10},
		"participate": {Probability: 0.50, Count: 50},
	})
	return t
}

// Lookup returns the template entry for a level.
func (t Template) Lookup(l PrizeLevel) (PrizeTemplate, bool) {
	cfg, ok := t.levels[l]
	return cfg, ok
}

// Levels returns the configured levels in ordinal order.
func (t Template) Levels() []PrizeLevel {
	var out []PrizeLevel
	for _, l := range Levels() {
		if _, ok := t.levels[l]; ok {
			out = append(out, l)
		}
	}
	return out
}

func (t Template) prizes() map[PrizeLevel]PrizeConfig {
	out := make(map[PrizeLevel]PrizeConfig, len(t.levels))
	for l, cfg := range t.levels {
		out[l] = PrizeConfig{
			Probability: cfg.Probability,
			Count:       cfg.Count,
			Remaining:   cfg.Count,
			Name:        cfg.Name,
		}
	}
	return out
}
