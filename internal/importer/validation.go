package importer

import (
	"fmt"
	"sort"
	"strings"
)

// taxonomy checks model output against the source types and expense
// categories offered in the prompt, and returns their canonical spelling.
type taxonomy struct {
	sourceTypes   map[string]string
	categories    map[string]string
	subcategories map[string]map[string]string
}

func newTaxonomy() *taxonomy {
	t := &taxonomy{
		sourceTypes:   make(map[string]string),
		categories:    make(map[string]string),
		subcategories: make(map[string]map[string]string),
	}
	for _, s := range incomeSourceTypes {
		t.sourceTypes[normalizeCategory(s)] = s
	}
	for _, c := range expenseCategories {
		key := normalizeCategory(c.name)
		t.categories[key] = c.name
		if len(c.subcategories) == 0 {
			continue
		}
		subs := make(map[string]string, len(c.subcategories))
		for _, s := range c.subcategories {
			subs[normalizeCategory(s)] = s
		}
		t.subcategories[key] = subs
	}
	return t
}

// SourceType returns the canonical income source type.
func (t *taxonomy) SourceType(sourceType string) (string, error) {
	canonical, ok := t.sourceTypes[normalizeCategory(sourceType)]
	if !ok {
		return "", fmt.Errorf("invalid source type: %q", sourceType)
	}
	return canonical, nil
}

// Category returns the canonical category and subcategory. An empty
// subcategory is accepted for every category.
func (t *taxonomy) Category(category, subcategory string) (string, string, error) {
	normCat := normalizeCategory(category)
	canonical, ok := t.categories[normCat]
	if !ok {
		return "", "", fmt.Errorf("invalid category: %q (normalized: %q)", category, normCat)
	}

	normSub := normalizeCategory(subcategory)
	if normSub == "" {
		return canonical, "", nil
	}

	subs, ok := t.subcategories[normCat]
	if !ok {
		return "", "", fmt.Errorf("category %q takes no subcategory, got %q", canonical, subcategory)
	}
	canonicalSub, ok := subs[normSub]
	if !ok {
		valid := make([]string, 0, len(subs))
		for _, s := range subs {
			valid = append(valid, s)
		}
		sort.Strings(valid)
		return "", "", fmt.Errorf("invalid subcategory %q for category %q. Valid subcategories: %v",
			subcategory, canonical, valid)
	}
	return canonical, canonicalSub, nil
}

// normalizeCategory uppercases and trims a name for comparison.
func normalizeCategory(name string) string {
	return strings.ToUpper(strings.TrimSpace(name))
}
