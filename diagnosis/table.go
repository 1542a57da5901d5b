package diagnosis

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed conditions.yaml
var defaultTableYAML []byte

// Advice is the advisory text attached to a condition.
type Advice struct {
	Symptoms   string `json:"symptoms" yaml:"symptoms"`
	Causes     string `json:"causes" yaml:"causes"`
	Treatment  string `json:"treatment" yaml:"treatment"`
	Prevention string `json:"prevention" yaml:"prevention"`
}

// Condition is one entry of the static condition table.
type Condition struct {
	Name       string   `json:"name" yaml:"name"`
	Synonyms   []string `json:"synonyms" yaml:"synonyms"`
	ColorHints []string `json:"color_hints,omitempty" yaml:"color_hints"`
	Advice     `yaml:",inline"`
}

// Table is an insertion-ordered, read-only set of conditions keyed by name.
type Table struct {
	conditions []Condition
	byName     map[string]int
}

type tableFile struct {
	Conditions []Condition `yaml:"conditions"`
}

var ErrEmptyTable = errors.New("condition table is empty")

// NewTable validates the entries and keeps them in the given order.
func NewTable(conditions []Condition) (*Table, error) {
	if len(conditions) == 0 {
		return nil, ErrEmptyTable
	}
	t := &Table{
		conditions: make([]Condition, 0, len(conditions)),
		byName:     make(map[string]int, len(conditions)),
	}
	for i, c := range conditions {
		name := normalize(c.Name)
		if name == "" {
			return nil, fmt.Errorf("condition #%d: name is required", i+1)
		}
		if _, dup := t.byName[name]; dup {
			return nil, fmt.Errorf("condition %q: duplicate name", c.Name)
		}
		syns := make([]string, 0, len(c.Synonyms))
		for _, s := range c.Synonyms {
			if s = normalize(s); s != "" {
				syns = append(syns, s)
			}
		}
		if len(syns) == 0 {
			return nil, fmt.Errorf("condition %q: at least one synonym is required", c.Name)
		}
		c.Synonyms = syns
		hints := make([]string, 0, len(c.ColorHints))
		for _, h := range c.ColorHints {
			if h = normalize(h); h != "" {
				hints = append(hints, h)
			}
		}
		c.ColorHints = hints

		t.byName[name] = len(t.conditions)
		t.conditions = append(t.conditions, c)
	}
	return t, nil
}

// ParseTable decodes a YAML document with a top-level "conditions" list.
func ParseTable(data []byte) (*Table, error) {
	var f tableFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse condition table: %w", err)
	}
	return NewTable(f.Conditions)
}

// LoadTable reads a table from path, or returns the built-in table when path is empty.
func LoadTable(path string) (*Table, error) {
	if strings.TrimSpace(path) == "" {
		return DefaultTable()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read condition table: %w", err)
	}
	return ParseTable(data)
}

// DefaultTable returns the embedded plant-disease table.
func DefaultTable() (*Table, error) {
	return ParseTable(defaultTableYAML)
}

// Conditions returns a copy of the entries in table order.
func (t *Table) Conditions() []Condition {
	out := make([]Condition, len(t.conditions))
	copy(out, t.conditions)
	return out
}

func (t *Table) Len() int { return len(t.conditions) }

// Lookup finds a condition by name, case-insensitively.
func (t *Table) Lookup(name string) (Condition, bool) {
	i, ok := t.byName[normalize(name)]
	if !ok {
		return Condition{}, false
	}
	return t.conditions[i], true
}
