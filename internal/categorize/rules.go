// Package categorize assigns conversations to categories by keyword rules.
package categorize

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

// Uncategorized is the fallback category when no rule matches.
const Uncategorized = "uncategorized"

// Rule maps a category name to the lower-case keywords that select it.
type Rule struct {
	Name     string   `yaml:"name"`
	Keywords []string `yaml:"keywords"`
}

// Rules is an ordered rule set. Treat it as immutable once built.
type Rules []Rule

// DefaultRules returns the built-in rule set.
func DefaultRules() Rules {
	return Rules{
		{Name: "housing court case", Keywords: []string{"housing court", "eviction", "lease", "landlord", "tenant"}},
		{Name: "dog", Keywords: []string{"dog", "puppy", "canine", "vet"}},
		{Name: "restaurant", Keywords: []string{"restaurant", "menu", "reservation", "chef", "dining"}},
	}
}

// Match returns the names of every rule with a keyword occurring in text,
// in rule order. Matching is case-insensitive substring search.
func (rs Rules) Match(text string) []string {
	lowered := strings.ToLower(text)
	var names []string
	for _, r := range rs {
		for _, kw := range r.Keywords {
			if strings.Contains(lowered, kw) {
				names = append(names, r.Name)
				break
			}
		}
	}
	return names
}

type rulesFile struct {
	Categories []Rule `yaml:"categories"`
}

// LoadRules reads a YAML rule file of the form
//
//	categories:
//	  - name: dog
//	    keywords: [dog, puppy]
func LoadRules(path string) (Rules, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read rules: %w", err)
	}

	var f rulesFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse rules: %w", err)
	}
	if len(f.Categories) == 0 {
		return nil, fmt.Errorf("rules file %s defines no categories", path)
	}

	rules := make(Rules, 0, len(f.Categories))
	for i, r := range f.Categories {
		name := strings.TrimSpace(r.Name)
		if name == "" {
			return nil, fmt.Errorf("rule %d: name is required", i)
		}
		var kws []string
		for _, kw := range r.Keywords {
			if kw = strings.ToLower(strings.TrimSpace(kw)); kw != "" {
				kws = append(kws, kw)
			}
		}
		if len(kws) == 0 {
			return nil, fmt.Errorf("rule %q: at least one keyword is required", name)
		}
		rules = append(rules, Rule{Name: name, Keywords: kws})
	}
	return rules, nil
}

var nonSlug = regexp.MustCompile(`[^a-z0-9]+`)

// Slugify derives the URL-safe slug of a category name.
func Slugify(name string) string {
	slug := strings.Trim(nonSlug.ReplaceAllString(strings.ToLower(name), "-"), "-")
	if slug == "" {
		return "category"
	}
	return slug
}
