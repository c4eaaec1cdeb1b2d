package metrics

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/heraerp/hera/internal/guardrail"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/prometheus/client_golang/prometheus"
	"gorm.io/gorm"
)

const (
	StoreErrorDeadlineExceeded     = "deadline_exceeded"
	StoreErrorUniqueViolation      = "unique_violation"
	StoreErrorForeignKeyViolation  = "foreign_key_violation"
	StoreErrorSerializationFailure = "serialization_failure"
	StoreErrorNotFound             = "not_found"
	StoreErrorUnknown              = "unknown"
)

const (
	SeverityError   = "error"
	SeverityWarning = "warning"
)

// GuardrailMetrics exposes validator findings on the Prometheus scrape endpoint.
type GuardrailMetrics struct {
	findings   *prometheus.CounterVec
	decisions  *prometheus.CounterVec
	autoFixes  *prometheus.CounterVec
	storeFails *prometheus.CounterVec
}

var (
	guardrailMetricsOnce sync.Once
	guardrailMetrics     *GuardrailMetrics
)

// GuardrailWithConfig returns the process-wide registry using config labels.
func GuardrailWithConfig(cfg Config) *GuardrailMetrics {
	guardrailMetricsOnce.Do(func() {
		guardrailMetrics = newGuardrailMetrics(prometheus.DefaultRegisterer, cfg)
	})
	return guardrailMetrics
}

func newGuardrailMetrics(registerer prometheus.Registerer, cfg Config) *GuardrailMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	serviceName := strings.TrimSpace(cfg.ServiceName)
	if serviceName == "" {
		serviceName = "hera"
	}
	environment := strings.TrimSpace(cfg.Environment)
	if environment == "" {
		environment = "unknown"
	}
	constLabels := prometheus.Labels{
		"service": serviceName,
		"env":     environment,
	}

	findings := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name:        "hera_guardrail_findings_total",
		Help:        "Convention findings by table, code and severity.",
		ConstLabels: constLabels,
	}, []string{"table", "code", "severity"})
	decisions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name:        "hera_guardrail_decisions_total",
		Help:        "Policy decisions taken on validated writes.",
		ConstLabels: constLabels,
	}, []string{"mode", "decision"})
	autoFixes := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name:        "hera_guardrail_autofix_total",
		Help:        "Auto-fixes applied by the universal dispatcher.",
		ConstLabels: constLabels,
	}, []string{"table"})
	storeFails := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name:        "hera_store_errors_total",
		Help:        "Storage failures after validation by reason.",
		ConstLabels: constLabels,
	}, []string{"table", "reason"})

	registerer.MustRegister(findings, decisions, autoFixes, storeFails)

	return &GuardrailMetrics{
		findings:   findings,
		decisions:  decisions,
		autoFixes:  autoFixes,
		storeFails: storeFails,
	}
}

// ObserveResult counts every error and warning in res.
func (m *GuardrailMetrics) ObserveResult(table string, res guardrail.Result) {
	if m == nil {
		return
	}
	table = normalizeLabel(table)
	for _, issue := range res.Errors {
		m.findings.WithLabelValues(table, issue.Code, SeverityError).Inc()
	}
	for _, issue := range res.Warnings {
		m.findings.WithLabelValues(table, issue.Code, SeverityWarning).Inc()
	}
}

func (m *GuardrailMetrics) ObserveDecision(mode, decision string) {
	if m == nil {
		return
	}
	m.decisions.WithLabelValues(normalizeLabel(mode), normalizeLabel(decision)).Inc()
}

func (m *GuardrailMetrics) IncAutoFix(table string) {
	if m == nil {
		return
	}
	m.autoFixes.WithLabelValues(normalizeLabel(table)).Inc()
}

func (m *GuardrailMetrics) IncStoreError(table string, err error) {
	if m == nil || err == nil {
		return
	}
	m.storeFails.WithLabelValues(normalizeLabel(table), ClassifyStoreError(err)).Inc()
}

// ClassifyStoreError maps a storage error onto a bounded reason label.
func ClassifyStoreError(err error) string {
	if err == nil {
		return ""
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return StoreErrorDeadlineExceeded
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return StoreErrorNotFound
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return StoreErrorUniqueViolation
	}
	if errors.Is(err, gorm.ErrForeignKeyViolated) {
		return StoreErrorForeignKeyViolation
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505":
			return StoreErrorUniqueViolation
		case "23503":
			return StoreErrorForeignKeyViolation
		case "40001":
			return StoreErrorSerializationFailure
		}
	}
	return StoreErrorUnknown
}

func normalizeLabel(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return "unknown"
	}
	return value
}
