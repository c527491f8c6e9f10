// Package metrics defines Prometheus metrics for export ingestion.
package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	IngestionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "brain_ingestions_total",
			Help: "Finished ingestions by final status",
		},
		[]string{"status"},
	)

	IngestDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "brain_ingest_duration_seconds",
			Help:    "Wall time of one export ingestion",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 12),
		},
	)

	SkippedEntriesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "brain_archive_entries_skipped_total",
			Help: "Archive entries skipped because they would escape the extraction directory",
		},
	)

	AssetsRegisteredTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "brain_assets_registered_total",
			Help: "Registered assets by kind",
		},
		[]string{"kind"},
	)

	AssetsLinkedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "brain_assets_linked_total",
			Help: "Assets linked to a conversation message by name mention",
		},
	)

	ConversationsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "brain_conversations_total",
			Help: "Conversations normalized and stored",
		},
	)

	MessagesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "brain_messages_total",
			Help: "Messages normalized and stored",
		},
	)

	CategoryAssignmentsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "brain_category_assignments_total",
			Help: "Category edges written by source",
		},
		[]string{"source"},
	)
)

// Registry holds every brain collector. It is separate from the default
// registerer so textfile output carries only ingestion series.
var Registry = prometheus.NewRegistry()

func init() {
	Registry.MustRegister(
		IngestionsTotal, IngestDuration, SkippedEntriesTotal,
		AssetsRegisteredTotal, AssetsLinkedTotal,
		ConversationsTotal, MessagesTotal, CategoryAssignmentsTotal,
	)
}

// WriteTextfile writes the current metric values in the node_exporter
// textfile format.
func WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, Registry); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}
	return nil
}
