package core

import (
	"context"
	"log/slog"
	"sort"

	"fieldreport/internal/localstore"
	"fieldreport/pkg/domain"
)

// Aggregator merges local and cloud record sets for a technician into one
// deduplicated, newest-first view.
type Aggregator struct {
	cloud  DocumentStore
	local  *localstore.Adapter
	logger *slog.Logger
}

// NewAggregator constructs an Aggregator over the two store adapters.
func NewAggregator(cloud DocumentStore, local *localstore.Adapter, logger *slog.Logger) *Aggregator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Aggregator{cloud: cloud, local: local, logger: logger}
}

// List returns the technician's saved records across both backends, sorted
// descending by timestamp and deduplicated by id (last-merged wins). A cloud
// query failure degrades to local-only results; a device-storage failure is
// the one hard error.
func (a *Aggregator) List(ctx context.Context, formType FormType, techID string) ([]HistoryEntry, error) {
	collection := formType.Collection()

	local, err := a.local.ListByTech(collection, techID)
	if err != nil {
		return nil, err
	}

	var cloud []HistoryEntry
	docs, err := a.cloud.Query(ctx, collection, domain.FieldTechID, techID)
	if err != nil {
		a.logger.Warn("cloud history unavailable, serving local results only",
			"collection", collection, "tech_id", techID, "error", err)
	} else {
		cloud = make([]HistoryEntry, 0, len(docs))
		for _, doc := range docs {
			cloud = append(cloud, HistoryEntry{ID: doc.ID, Timestamp: doc.Timestamp, Data: doc.Data})
		}
	}

	merged := append(local, cloud...)
	// Local timestamps are client clock reads, cloud ones server-assigned;
	// the clocks need not agree, so minor misordering is accepted.
	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].Timestamp > merged[j].Timestamp
	})

	seen := make(map[string]int, len(merged))
	out := merged[:0]
	for _, entry := range merged {
		if idx, dup := seen[entry.ID]; dup {
			out[idx] = entry
			continue
		}
		seen[entry.ID] = len(out)
		out = append(out, entry)
	}
	return out, nil
}
