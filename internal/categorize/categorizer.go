package categorize

import (
	"context"
	"fmt"

	"github.com/malegalny/Brain/internal/metrics"
	"github.com/malegalny/Brain/internal/model"
)

// autoConfidence is recorded on every keyword-rule edge.
const autoConfidence = 1.0

// categoryStore is the persistence the categorizer needs.
type categoryStore interface {
	EnsureCategory(ctx context.Context, exportID, name string, system bool) (*model.Category, error)
	AssignCategory(ctx context.Context, conversationID, categoryID, source string, confidence *float64) error
}

// Categorizer attaches auto category edges to conversations.
type Categorizer struct {
	store categoryStore
	rules Rules
}

// New creates a Categorizer over an injected rule set.
func New(store categoryStore, rules Rules) *Categorizer {
	return &Categorizer{store: store, rules: rules}
}

// Categorize scores text against the rules and records an auto edge for
// each match, or a single edge to Uncategorized when nothing matches. It
// returns the assigned category names.
func (c *Categorizer) Categorize(ctx context.Context, exportID, conversationID, text string) ([]string, error) {
	names := c.rules.Match(text)
	if len(names) == 0 {
		names = []string{Uncategorized}
	}

	confidence := autoConfidence
	for _, name := range names {
		cat, err := c.store.EnsureCategory(ctx, exportID, name, true)
		if err != nil {
			return nil, fmt.Errorf("ensure category %q: %w", name, err)
		}
		if err := c.store.AssignCategory(ctx, conversationID, cat.ID, model.SourceAuto, &confidence); err != nil {
			return nil, fmt.Errorf("assign category %q: %w", name, err)
		}
		metrics.CategoryAssignmentsTotal.WithLabelValues(model.SourceAuto).Inc()
	}
	return names, nil
}
