package categorize

import (
	"context"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/malegalny/Brain/internal/model"
)

type edge struct {
	conv, cat, source string
	confidence        *float64
}

type memCategories struct {
	bySlug map[string]*model.Category
	edges  map[[2]string]edge
}

func newMemCategories() *memCategories {
	return &memCategories{bySlug: map[string]*model.Category{}, edges: map[[2]string]edge{}}
}

func (m *memCategories) EnsureCategory(_ context.Context, exportID, name string, system bool) (*model.Category, error) {
	slug := Slugify(name)
	if c, ok := m.bySlug[slug]; ok {
		return c, nil
	}
	c := &model.Category{ID: "cat-" + slug, ExportID: exportID, Name: name, Slug: slug, IsSystem: system}
	m.bySlug[slug] = c
	return c, nil
}

func (m *memCategories) AssignCategory(_ context.Context, conv, cat, source string, confidence *float64) error {
	key := [2]string{conv, cat}
	if _, ok := m.edges[key]; ok {
		return nil
	}
	m.edges[key] = edge{conv, cat, source, confidence}
	return nil
}

func TestSlugify(t *testing.T) {
	cases := map[string]string{
		"Housing Court Case": "housing-court-case",
		"  Dog!!  ":          "dog",
		"a--b__c":            "a-b-c",
		"!!!":                "category",
		"":                   "category",
		"Café Menu":          "caf-menu",
		"2024 Taxes":         "2024-taxes",
	}
	for in, want := range cases {
		if got := Slugify(in); got != want {
			t.Errorf("Slugify(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestMatch(t *testing.T) {
	rules := DefaultRules()
	got := rules.Match("Our LANDLORD said the puppy can stay")
	want := []string{"housing court case", "dog"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("expected %v, got %v", want, got)
	}
	if got := rules.Match("nothing relevant"); got != nil {
		t.Errorf("expected no match, got %v", got)
	}
}

func TestCategorizeMatches(t *testing.T) {
	store := newMemCategories()
	c := New(store, DefaultRules())

	names, err := c.Categorize(context.Background(), "e1", "conv1", "My Dog Visit\nMy dog needs a vet checkup.")
	if err != nil {
		t.Fatalf("categorize: %v", err)
	}
	if !reflect.DeepEqual(names, []string{"dog"}) {
		t.Fatalf("expected [dog], got %v", names)
	}
	e, ok := store.edges[[2]string{"conv1", "cat-dog"}]
	if !ok {
		t.Fatal("expected edge to dog")
	}
	if e.source != model.SourceAuto || e.confidence == nil || *e.confidence != 1.0 {
		t.Errorf("unexpected edge %+v", e)
	}

	// Re-running is duplicate safe.
	if _, err := c.Categorize(context.Background(), "e1", "conv1", "dog"); err != nil {
		t.Fatalf("categorize again: %v", err)
	}
	if len(store.edges) != 1 || len(store.bySlug) != 1 {
		t.Errorf("expected 1 edge and 1 category, got %d and %d", len(store.edges), len(store.bySlug))
	}
}

func TestCategorizeFallback(t *testing.T) {
	store := newMemCategories()
	c := New(store, DefaultRules())

	names, err := c.Categorize(context.Background(), "e1", "conv1", "quarterly tax planning")
	if err != nil {
		t.Fatalf("categorize: %v", err)
	}
	if !reflect.DeepEqual(names, []string{Uncategorized}) {
		t.Fatalf("expected [uncategorized], got %v", names)
	}
	if len(store.edges) != 1 {
		t.Fatalf("expected exactly 1 edge, got %d", len(store.edges))
	}
	if _, ok := store.edges[[2]string{"conv1", "cat-uncategorized"}]; !ok {
		t.Error("expected edge to uncategorized")
	}
}

func TestCategorizeInjectedRules(t *testing.T) {
	store := newMemCategories()
	c := New(store, Rules{{Name: "Taxes", Keywords: []string{"tax"}}})

	names, _ := c.Categorize(context.Background(), "e1", "conv1", "quarterly TAX planning")
	if !reflect.DeepEqual(names, []string{"Taxes"}) {
		t.Errorf("expected [Taxes], got %v", names)
	}
	if _, ok := store.bySlug["taxes"]; !ok {
		t.Error("expected category with slug taxes")
	}
}

func TestLoadRules(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "rules.yaml")
	os.WriteFile(path, []byte(`
categories:
  - name: Travel
    keywords: [Flight, " hotel ", ""]
  - name: dog
    keywords: [dog]
`), 0o644)

	rules, err := LoadRules(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	want := Rules{
		{Name: "Travel", Keywords: []string{"flight", "hotel"}},
		{Name: "dog", Keywords: []string{"dog"}},
	}
	if !reflect.DeepEqual(rules, want) {
		t.Errorf("expected %+v, got %+v", want, rules)
	}

	bad := filepath.Join(dir, "bad.yaml")
	os.WriteFile(bad, []byte("categories:\n  - name: empty\n    keywords: []\n"), 0o644)
	if _, err := LoadRules(bad); err == nil {
		t.Error("expected error for rule without keywords")
	}

	none := filepath.Join(dir, "none.yaml")
	os.WriteFile(none, []byte("categories: []\n"), 0o644)
	if _, err := LoadRules(none); err == nil {
		t.Error("expected error for empty rule set")
	}
}
