package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"gorm.io/gorm"
)

var (
	// RedisErrorRate counts Redis errors by operation type.
	RedisErrorRate = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "mural_redis_error_rate_total",
		Help: "Total number of Redis errors by operation type",
	}, []string{"operation"})

	// DatabaseQueryLatency records database query latency by operation and table.
	DatabaseQueryLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "mural_database_query_latency_seconds",
		Help:    "Database query latency in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation", "table"})

	// ActivitiesRecorded counts activity log entries written by action type.
	ActivitiesRecorded = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "mural_activities_recorded_total",
		Help: "Total number of activity log entries written",
	}, []string{"action_type"})

	// ActivityRecordFailures counts failed activity log writes. Activity
	// recording is best-effort, so failures surface here instead of in
	// request errors.
	ActivityRecordFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "mural_activity_record_failures_total",
		Help: "Total number of failed activity log writes",
	}, []string{"action_type"})

	// ModerationActions counts moderator and owner interventions.
	ModerationActions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "mural_moderation_actions_total",
		Help: "Total number of moderation actions by type and role",
	}, []string{"action", "role"})

	// UploadsTotal counts image uploads by outcome.
	UploadsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "mural_uploads_total",
		Help: "Total number of image uploads by outcome",
	}, []string{"outcome"})
)

// DatabaseMetrics wraps DB access for recording query latency.
type DatabaseMetrics struct {
	db *gorm.DB
}

// NewDatabaseMetrics returns a new DatabaseMetrics instance.
func NewDatabaseMetrics(db *gorm.DB) *DatabaseMetrics {
	return &DatabaseMetrics{db: db}
}

// ObserveQuery records the latency of a database query.
func (m *DatabaseMetrics) ObserveQuery(operation, table string, start time.Time) {
	latency := time.Since(start).Seconds()
	DatabaseQueryLatency.WithLabelValues(operation, table).Observe(latency)
}
