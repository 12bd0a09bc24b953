// Package prompush implements a Reporter that pushes per-collection
// pipeline metrics to a Prometheus Pushgateway.
//
// Metrics accumulate in a private registry and the whole registry is pushed
// after every collection, so the gateway always holds the run's totals.
package prompush

import (
	"context"
	"fmt"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"

	"github.com/custodia-labs/tabula/internal/core/domain"
	"github.com/custodia-labs/tabula/internal/core/ports/driven"
)

// Ensure Reporter implements the interface.
var _ driven.Reporter = (*Reporter)(nil)

// Reporter is a Prometheus Pushgateway reporter.
type Reporter struct {
	gatewayURL string
	jobName    string
	reg        *prometheus.Registry

	mu sync.Mutex

	collections *prometheus.CounterVec // tabula_collections_total
	documents   *prometheus.CounterVec // tabula_documents_total
	rows        *prometheus.CounterVec // tabula_rows_total
	skipped     *prometheus.CounterVec // tabula_skipped_documents_total
	columns     *prometheus.GaugeVec   // tabula_columns
	duration    *prometheus.SummaryVec // tabula_collection_duration_seconds
}

// NewReporter constructs a reporter pushing to gatewayURL under jobName.
func NewReporter(jobName, gatewayURL string) (*Reporter, error) {
	if gatewayURL == "" {
		return nil, fmt.Errorf("prompush: gateway URL is required")
	}
	if jobName == "" {
		jobName = domain.DefaultMetricsJob
	}

	r := &Reporter{
		gatewayURL: gatewayURL,
		jobName:    jobName,
		reg:        prometheus.NewRegistry(),
		collections: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tabula_collections_total",
				Help: "Collections processed, partitioned by status and classification.",
			},
			[]string{"status", "classification"},
		),
		documents: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tabula_documents_total",
				Help: "Documents read per collection.",
			},
			[]string{"collection"},
		),
		rows: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tabula_rows_total",
				Help: "Rows written per collection.",
			},
			[]string{"collection"},
		),
		skipped: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tabula_skipped_documents_total",
				Help: "Documents skipped with a document-level error, per collection.",
			},
			[]string{"collection"},
		),
		columns: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "tabula_columns",
				Help: "Column count per collection before (flat keys) and after denormalization.",
			},
			[]string{"collection", "stage"},
		),
		duration: prometheus.NewSummaryVec(
			prometheus.SummaryOpts{
				Name:       "tabula_collection_duration_seconds",
				Help:       "Collection processing time in seconds, partitioned by status.",
				Objectives: map[float64]float64{0.5: 0.05, 0.9: 0.01, 0.99: 0.001},
			},
			[]string{"status"},
		),
	}

	collectors := []prometheus.Collector{r.collections, r.documents, r.rows, r.skipped, r.columns, r.duration}
	for _, c := range collectors {
		if err := r.reg.Register(c); err != nil {
			return nil, fmt.Errorf("prompush: register: %w", err)
		}
	}
	return r, nil
}

// Report records one collection and pushes the registry.
func (r *Reporter) Report(ctx context.Context, report domain.CollectionReport) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.collections.WithLabelValues(string(report.Status), string(report.Classification)).Inc()
	r.documents.WithLabelValues(report.Collection).Add(float64(report.DocumentsIn))
	r.rows.WithLabelValues(report.Collection).Add(float64(report.RowsOut))
	r.skipped.WithLabelValues(report.Collection).Add(float64(report.Skipped))
	r.columns.WithLabelValues(report.Collection, "before").Set(float64(report.ColumnsBefore))
	r.columns.WithLabelValues(report.Collection, "after").Set(float64(report.ColumnsAfter))
	r.duration.WithLabelValues(string(report.Status)).Observe(report.Duration.Seconds())

	if err := push.New(r.gatewayURL, r.jobName).Gatherer(r.reg).PushContext(ctx); err != nil {
		return fmt.Errorf("prompush: push: %w", err)
	}
	return nil
}
