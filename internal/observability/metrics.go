// Package observability holds the prometheus collectors and the
// OpenTelemetry tracer shared by the API process.
package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"gorm.io/gorm"
)

var (
	// VotesTotal counts vote mutations by action ("add" or "remove").
	VotesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ideaboard_votes_total",
		Help: "Total number of vote toggles by resulting action",
	}, []string{"action"})

	// FlagsTotal counts flag submissions by target type and outcome.
	FlagsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ideaboard_flags_total",
		Help: "Total number of flag submissions",
	}, []string{"target_type", "result"})

	// ModerationActions counts moderator and admin mutations by action.
	ModerationActions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ideaboard_moderation_actions_total",
		Help: "Total number of moderation actions",
	}, []string{"action"})

	// VoteDriftRepaired counts ideas whose vote_count was rewritten by the audit.
	VoteDriftRepaired = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ideaboard_vote_drift_repaired_total",
		Help: "Ideas whose stored vote count disagreed with their votes",
	})

	// MailSendTotal counts outgoing mail attempts by result.
	MailSendTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ideaboard_mail_send_total",
		Help: "Outgoing mail attempts by result",
	}, []string{"result"})

	// RedisErrors counts Redis errors by command.
	RedisErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ideaboard_redis_errors_total",
		Help: "Total number of Redis errors by command",
	}, []string{"command"})

	// DatabaseQueryLatency records database query latency by operation and table.
	DatabaseQueryLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "ideaboard_database_query_latency_seconds",
		Help:    "Database query latency in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation", "table"})
)

const queryStartKey = "observability:query_start"

// RegisterQueryMetrics installs gorm callbacks that feed DatabaseQueryLatency.
func RegisterQueryMetrics(db *gorm.DB) error {
	cb := db.Callback()
	hooks := []struct {
		op     string
		before func(string, func(*gorm.DB)) error
		after  func(string, func(*gorm.DB)) error
	}{
		{"create", cb.Create().Before("gorm:create").Register, cb.Create().After("gorm:create").Register},
		{"query", cb.Query().Before("gorm:query").Register, cb.Query().After("gorm:query").Register},
		{"update", cb.Update().Before("gorm:update").Register, cb.Update().After("gorm:update").Register},
		{"delete", cb.Delete().Before("gorm:delete").Register, cb.Delete().After("gorm:delete").Register},
		{"raw", cb.Raw().Before("gorm:raw").Register, cb.Raw().After("gorm:raw").Register},
		{"row", cb.Row().Before("gorm:row").Register, cb.Row().After("gorm:row").Register},
	}
	for _, h := range hooks {
		op := h.op
		if err := h.before("observability:before_"+op, startTimer); err != nil {
			return err
		}
		if err := h.after("observability:after_"+op, func(tx *gorm.DB) { observe(tx, op) }); err != nil {
			return err
		}
	}
	return nil
}

func startTimer(tx *gorm.DB) {
	tx.InstanceSet(queryStartKey, time.Now())
}

func observe(tx *gorm.DB, op string) {
	v, ok := tx.InstanceGet(queryStartKey)
	if !ok {
		return
	}
	start, ok := v.(time.Time)
	if !ok {
		return
	}
	table := tx.Statement.Table
	if table == "" {
		table = "unknown"
	}
	DatabaseQueryLatency.WithLabelValues(op, table).Observe(time.Since(start).Seconds())
}
