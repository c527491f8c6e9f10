// Package linker associates registered assets with the messages that
// mention them by file name.
package linker

import (
	"context"
	"fmt"
	"strings"

	"github.com/malegalny/Brain/internal/asset"
	"github.com/malegalny/Brain/internal/metrics"
	"github.com/malegalny/Brain/internal/model"
)

// assetLinker is the persistence the linker needs. LinkAsset must not
// overwrite an existing association.
type assetLinker interface {
	LinkAsset(ctx context.Context, assetID, conversationID, messageID string) error
}

// Linker links assets for one export. The first mention of a file name
// wins; later mentions anywhere in the export are no-ops.
type Linker struct {
	store  assetLinker
	index  asset.Index
	names  []string
	linked map[string]bool
}

// New creates a Linker over the registrar's name index.
func New(store assetLinker, index asset.Index) *Linker {
	return &Linker{
		store:  store,
		index:  index,
		names:  index.Names(),
		linked: make(map[string]bool),
	}
}

// LinkMessages scans each message of one conversation for indexed file
// names and links every not-yet-linked asset sharing a matched name. It
// returns the number of assets newly linked.
func (l *Linker) LinkMessages(ctx context.Context, conversationID string, msgs []model.Message) (int, error) {
	if len(l.names) == 0 {
		return 0, nil
	}

	n := 0
	for _, m := range msgs {
		if m.Text == "" {
			continue
		}
		lowered := strings.ToLower(m.Text)
		for _, name := range l.names {
			if !strings.Contains(lowered, name) {
				continue
			}
			for _, id := range l.index[name] {
				if l.linked[id] {
					continue
				}
				if err := l.store.LinkAsset(ctx, id, conversationID, m.ID); err != nil {
					return n, fmt.Errorf("link asset %s: %w", id, err)
				}
				l.linked[id] = true
				n++
				metrics.AssetsLinkedTotal.Inc()
			}
		}
	}
	return n, nil
}
