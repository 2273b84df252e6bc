// Package rules provides human-readable descriptions of Checkstyle rules.
package rules

import (
	_ "embed"
	"fmt"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"
)

//go:embed catalog.toml
var builtin string

// Rule describes one Checkstyle rule.
type Rule struct {
	Name        string `toml:"-"`
	Category    string `toml:"category"`
	Description string `toml:"description"`
}

type catalogFile struct {
	Rules map[string]Rule `toml:"rules"`
}

// Catalog is an immutable rule lookup. It implements
// ports.RuleMetadataProvider and is safe for concurrent use.
type Catalog struct {
	byName map[string]Rule
}

// New returns the built-in catalog.
func New() (*Catalog, error) {
	c := &Catalog{byName: make(map[string]Rule)}
	if err := c.merge(builtin, "builtin catalog"); err != nil {
		return nil, err
	}
	return c, nil
}

// Load returns the built-in catalog overlaid with the rules of a TOML file.
// An empty path returns the built-in catalog.
func Load(path string) (*Catalog, error) {
	c, err := New()
	if err != nil || strings.TrimSpace(path) == "" {
		return c, err
	}
	var file catalogFile
	if _, err := toml.DecodeFile(path, &file); err != nil {
		return nil, fmt.Errorf("decode rule descriptions %s: %w", path, err)
	}
	c.add(file.Rules)
	return c, nil
}

func (c *Catalog) merge(data, source string) error {
	var file catalogFile
	if _, err := toml.Decode(data, &file); err != nil {
		return fmt.Errorf("decode %s: %w", source, err)
	}
	c.add(file.Rules)
	return nil
}

func (c *Catalog) add(rules map[string]Rule) {
	for name, r := range rules {
		name = strings.TrimSuffix(name, "Check")
		if existing, ok := c.byName[name]; ok && r.Category == "" {
			r.Category = existing.Category
		}
		r.Name = name
		c.byName[name] = r
	}
}

// Rule looks a rule up by name, retrying without a trailing "Check". An
// unknown rule yields a Rule with only its name set.
func (c *Catalog) Rule(name string) Rule {
	if r, ok := c.byName[name]; ok {
		return r
	}
	if r, ok := c.byName[strings.TrimSuffix(name, "Check")]; ok {
		return r
	}
	return Rule{Name: name}
}

func (c *Catalog) Description(ruleType string) string {
	return c.Rule(ruleType).Description
}

// Names lists every known rule in sorted order.
func (c *Catalog) Names() []string {
	names := make([]string, 0, len(c.byName))
	for name := range c.byName {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
