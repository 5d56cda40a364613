// Package knowledge holds the per-domain tables that drive the domain
// expertise evaluator: expected terminology, red-flag phrases, and
// best-practice and regulatory-awareness markers.
package knowledge

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Table is the knowledge configuration for one domain.
type Table struct {
	Domain            string   `yaml:"domain" json:"domain"`
	Terminology       []string `yaml:"terminology,omitempty" json:"terminology,omitempty"`
	RedFlags          []string `yaml:"red_flags,omitempty" json:"red_flags,omitempty"`
	BestPractices     []string `yaml:"best_practices,omitempty" json:"best_practices,omitempty"`
	RegulatoryMarkers []string `yaml:"regulatory_markers,omitempty" json:"regulatory_markers,omitempty"`
}

// Base is a lookup of knowledge tables keyed by domain (case-insensitive).
type Base struct {
	tables map[string]Table
}

// NewBase builds a Base from a set of tables.
func NewBase(tables ...Table) (*Base, error) {
	b := &Base{tables: make(map[string]Table, len(tables))}
	for _, t := range tables {
		key := strings.ToLower(strings.TrimSpace(t.Domain))
		if key == "" {
			return nil, fmt.Errorf("knowledge table has no domain")
		}
		if _, dup := b.tables[key]; dup {
			return nil, fmt.Errorf("duplicate knowledge table for domain %q", t.Domain)
		}
		b.tables[key] = t
	}
	return b, nil
}

// Load reads a YAML file containing a list of knowledge tables.
func Load(path string) (*Base, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var doc struct {
		Tables []Table `yaml:"tables"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parsing knowledge tables: %w", err)
	}
	return NewBase(doc.Tables...)
}

// Lookup returns the table for a domain, if one is configured.
func (b *Base) Lookup(domain string) (Table, bool) {
	if b == nil {
		return Table{}, false
	}
	t, ok := b.tables[strings.ToLower(strings.TrimSpace(domain))]
	return t, ok
}

// Domains lists the configured domains.
func (b *Base) Domains() []string {
	if b == nil {
		return nil
	}
	out := make([]string, 0, len(b.tables))
	for d := range b.tables {
		out = append(out, d)
	}
	return out
}
