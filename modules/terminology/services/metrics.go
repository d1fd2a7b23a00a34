package services

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/iota-uz/termstore/modules/terminology/domain/concept"
)

var (
	termImportBatches = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "terminology",
		Subsystem: "import",
		Name:      "batches_total",
		Help:      "Total number of import batches broken down by result.",
	}, []string{"result"})

	termConceptUpserts = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "terminology",
		Subsystem: "import",
		Name:      "concept_upserts_total",
		Help:      "Total number of concept upserts broken down by outcome.",
	}, []string{"outcome"})

	termUpsertRaces = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "terminology",
		Subsystem: "import",
		Name:      "upsert_races_total",
		Help:      "Total number of concept inserts that lost a uniqueness race and fell back to a fetch.",
	})

	termPropertyAssignments = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "terminology",
		Subsystem: "import",
		Name:      "property_assignments_total",
		Help:      "Total number of property assignments broken down by kind and result.",
	}, []string{"kind", "result"})

	termImportDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "terminology",
		Subsystem: "import",
		Name:      "batch_duration_seconds",
		Help:      "Duration of import batches.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"result"})
)

func recordBatch(result string, elapsed time.Duration) {
	if result == "" {
		result = "unknown"
	}
	termImportBatches.WithLabelValues(result).Inc()
	termImportDuration.WithLabelValues(result).Observe(elapsed.Seconds())
}

func recordUpsert(res *concept.UpsertResult) {
	termConceptUpserts.WithLabelValues(string(res.Outcome)).Inc()
	if res.Raced {
		termUpsertRaces.Inc()
	}
}

func recordAssignment(kind, result string) {
	termPropertyAssignments.WithLabelValues(kind, result).Inc()
}
