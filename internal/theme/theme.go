// Package theme loads named wheel themes from YAML files. A theme supplies
// the segment count and the weighted outcome table for one wheel; the spin
// engine itself never reads files.
package theme

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/spindriftlabs/prizewheel/internal/wheel"
)

// Segment is one wheel slice as declared in a theme file. Payout is kept
// as a string in YAML and parsed to a decimal so theme authors spell
// amounts exactly.
type Segment struct {
	Label       string  `yaml:"label"`
	Kind        string  `yaml:"kind"`
	Color       string  `yaml:"color"`
	Payout      string  `yaml:"payout"`
	Probability float64 `yaml:"probability"`
}

// Theme is a named wheel definition.
type Theme struct {
	Name     string    `yaml:"name"`
	Segments []Segment `yaml:"segments"`

	table *wheel.OutcomeTable
}

// Load reads and validates a single theme file. The outcome table is built
// eagerly so a malformed theme fails at load, not at the first spin.
func Load(path string) (*Theme, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read theme: %w", err)
	}
	return Parse(data)
}

// Parse builds a theme from raw YAML.
func Parse(data []byte) (*Theme, error) {
	var t Theme
	if err := yaml.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("failed to parse theme: %w", err)
	}
	if t.Name == "" {
		return nil, fmt.Errorf("theme is missing a name")
	}

	outcomes := make([]wheel.Outcome, len(t.Segments))
	for i, s := range t.Segments {
		payout := decimal.Zero
		if s.Payout != "" {
			p, err := decimal.NewFromString(s.Payout)
			if err != nil {
				return nil, fmt.Errorf("theme %q segment %d: bad payout %q: %w", t.Name, i, s.Payout, err)
			}
			payout = p
		}
		outcomes[i] = wheel.Outcome{
			Label:       s.Label,
			Kind:        s.Kind,
			Payout:      payout,
			Probability: s.Probability,
		}
	}

	table, err := wheel.NewOutcomeTable(outcomes)
	if err != nil {
		return nil, fmt.Errorf("theme %q: %w", t.Name, err)
	}
	t.table = table

	return &t, nil
}

// Table returns the validated outcome table for this theme.
func (t *Theme) Table() *wheel.OutcomeTable {
	return t.table
}

// SegmentCount returns the number of wheel segments.
func (t *Theme) SegmentCount() int {
	return len(t.Segments)
}

// LoadDir loads every *.yaml theme in a directory, keyed by theme name.
func LoadDir(dir string) (map[string]*Theme, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read theme dir: %w", err)
	}

	themes := make(map[string]*Theme)
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".yaml") {
			continue
		}
		t, err := Load(filepath.Join(dir, e.Name()))
		if err != nil {
			return nil, fmt.Errorf("%s: %w", e.Name(), err)
		}
		if _, dup := themes[t.Name]; dup {
			return nil, fmt.Errorf("duplicate theme name %q", t.Name)
		}
		themes[t.Name] = t
	}

	if len(themes) == 0 {
		return nil, fmt.Errorf("no themes found in %s", dir)
	}
	return themes, nil
}

// Names returns the sorted theme names of a loaded set.
func Names(themes map[string]*Theme) []string {
	names := make([]string, 0, len(themes))
	for name := range themes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
