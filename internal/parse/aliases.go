package parse

import "sync/atomic"

// Category identifies an alias namespace.
type Category string

// Alias categories.
const (
	CategoryExercises  Category = "exercises"
	CategoryHRVMetrics Category = "hrv_metrics"
	CategoryConditions Category = "conditions"
	CategoryTags       Category = "tags"
)

// AllCategories lists every alias category.
func AllCategories() []Category {
	return []Category{CategoryExercises, CategoryHRVMetrics, CategoryConditions, CategoryTags}
}

// AliasTable maps category -> abbreviation -> canonical term.
type AliasTable map[Category]map[string]string

// Aliases resolves user abbreviations to canonical terms. Lookups are
// lock-free; Reload builds a fresh table and swaps it in atomically, so
// concurrent readers see either the old table or the new one, never a
// partially updated map. A nil *Aliases resolves everything to itself.
type Aliases struct {
	table atomic.Pointer[AliasTable]
}

// NewAliases creates a resolver from an initial table. The table is copied;
// the caller may keep mutating its own maps.
func NewAliases(table AliasTable) *Aliases {
	a := &Aliases{}
	a.Reload(table)
	return a
}

// Resolve maps an abbreviation to its canonical term within a category.
// Unknown abbreviations pass through unchanged; validity of the result is
// the caller's concern.
func (a *Aliases) Resolve(category Category, token string) string {
	if a == nil {
		return token
	}
	table := *a.table.Load()
	if canonical, ok := table[category][token]; ok {
		return canonical
	}
	return token
}

// Reload replaces the whole table. The input is deep-copied before the swap.
func (a *Aliases) Reload(table AliasTable) {
	fresh := make(AliasTable, len(table))
	for category, entries := range table {
		m := make(map[string]string, len(entries))
		for abbrev, canonical := range entries {
			m[abbrev] = canonical
		}
		fresh[category] = m
	}
	a.table.Store(&fresh)
}

// Snapshot returns a deep copy of the current table, for listing and search.
func (a *Aliases) Snapshot() AliasTable {
	if a == nil {
		return AliasTable{}
	}
	table := *a.table.Load()
	out := make(AliasTable, len(table))
	for category, entries := range table {
		m := make(map[string]string, len(entries))
		for abbrev, canonical := range entries {
			m[abbrev] = canonical
		}
		out[category] = m
	}
	return out
}
