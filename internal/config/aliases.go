// Package config loads and persists user alias tables for the health log.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/pbaille/healthlog/internal/parse"
)

// DefaultPath returns the standard alias file location, ~/.healthlog/aliases.yaml.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to locate home directory: %w", err)
	}
	return filepath.Join(home, ".healthlog", "aliases.yaml"), nil
}

// AliasConfig is the on-disk alias table, one map per category.
type AliasConfig struct {
	Exercises  map[string]string `yaml:"exercises"`
	HRVMetrics map[string]string `yaml:"hrv_metrics"`
	Conditions map[string]string `yaml:"conditions"`
	Tags       map[string]string `yaml:"tags"`
}

// DefaultAliases returns the built-in starter table.
func DefaultAliases() *AliasConfig {
	return &AliasConfig{
		Exercises: map[string]string{
			"sq":  "squat",
			"bp":  "bench press",
			"dl":  "deadlift",
			"ohp": "overhead press",
			"pu":  "pullups",
			"rdl": "romanian deadlift",
		},
		HRVMetrics: map[string]string{},
		Conditions: map[string]string{
			"rest":     "resting",
			"post":     "post-workout",
			"workout":  "post-workout",
			"stress":   "stressed",
			"pp":       "postprandial",
			"fed":      "postprandial",
			"meal":     "postprandial",
			"arm":      "underarm",
			"ir":       "forehead_ir",
			"mouth":    "oral",
			"tympanic": "ear",
		},
		Tags: map[string]string{},
	}
}

// LoadAliases reads an alias file. Missing categories fall back to empty maps,
// not defaults, so a user can deliberately clear a category.
func LoadAliases(path string) (*AliasConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read alias file: %w", err)
	}

	cfg := &AliasConfig{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse alias file: %w", err)
	}
	cfg.ensureMaps()
	return cfg, nil
}

// EnsureAliases loads the alias file, writing the defaults first if it does
// not exist yet.
func EnsureAliases(path string) (*AliasConfig, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		cfg := DefaultAliases()
		if err := cfg.SaveToFile(path); err != nil {
			return nil, err
		}
		return cfg, nil
	}
	return LoadAliases(path)
}

// SaveToFile writes the table as YAML, creating the parent directory.
func (c *AliasConfig) SaveToFile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal aliases: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write alias file: %w", err)
	}
	return nil
}

// Table converts the config into the parser's lookup form.
func (c *AliasConfig) Table() parse.AliasTable {
	return parse.AliasTable{
		parse.CategoryExercises:  c.Exercises,
		parse.CategoryHRVMetrics: c.HRVMetrics,
		parse.CategoryConditions: c.Conditions,
		parse.CategoryTags:       c.Tags,
	}
}

// Set adds or replaces one alias. Unknown categories are an error.
func (c *AliasConfig) Set(category parse.Category, abbrev, canonical string) error {
	m, err := c.categoryMap(category)
	if err != nil {
		return err
	}
	m[abbrev] = canonical
	return nil
}

// Remove deletes one alias. Removing an absent alias is an error so the
// caller can report the typo.
func (c *AliasConfig) Remove(category parse.Category, abbrev string) error {
	m, err := c.categoryMap(category)
	if err != nil {
		return err
	}
	if _, ok := m[abbrev]; !ok {
		return fmt.Errorf("no alias %q in category %q", abbrev, category)
	}
	delete(m, abbrev)
	return nil
}

func (c *AliasConfig) categoryMap(category parse.Category) (map[string]string, error) {
	c.ensureMaps()
	switch category {
	case parse.CategoryExercises:
		return c.Exercises, nil
	case parse.CategoryHRVMetrics:
		return c.HRVMetrics, nil
	case parse.CategoryConditions:
		return c.Conditions, nil
	case parse.CategoryTags:
		return c.Tags, nil
	default:
		return nil, fmt.Errorf("unknown alias category %q", category)
	}
}

func (c *AliasConfig) ensureMaps() {
	if c.Exercises == nil {
		c.Exercises = map[string]string{}
	}
	if c.HRVMetrics == nil {
		c.HRVMetrics = map[string]string{}
	}
	if c.Conditions == nil {
		c.Conditions = map[string]string{}
	}
	if c.Tags == nil {
		c.Tags = map[string]string{}
	}
}
