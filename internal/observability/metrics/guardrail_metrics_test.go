package metrics

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/heraerp/hera/internal/guardrail"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"gorm.io/gorm"
)

func TestClassifyStoreError(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want string
	}{
		{name: "deadline", err: fmt.Errorf("insert: %w", context.DeadlineExceeded), want: StoreErrorDeadlineExceeded},
		{name: "unique", err: &pgconn.PgError{Code: "23505"}, want: StoreErrorUniqueViolation},
		{name: "foreign_key", err: &pgconn.PgError{Code: "23503"}, want: StoreErrorForeignKeyViolation},
		{name: "serialization", err: &pgconn.PgError{Code: "40001"}, want: StoreErrorSerializationFailure},
		{name: "gorm_duplicate", err: gorm.ErrDuplicatedKey, want: StoreErrorUniqueViolation},
		{name: "not_found", err: gorm.ErrRecordNotFound, want: StoreErrorNotFound},
		{name: "unknown", err: errors.New("boom"), want: StoreErrorUnknown},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := ClassifyStoreError(tc.err); got != tc.want {
				t.Fatalf("expected reason %q, got %q", tc.want, got)
			}
		})
	}
}

func TestObserveResultCountsFindings(t *testing.T) {
	registry := prometheus.NewRegistry()
	m := newGuardrailMetrics(registry, Config{ServiceName: "hera", Environment: "test"})

	res := guardrail.Validate(guardrail.Request{
		Table:     guardrail.TableRelationships,
		Operation: guardrail.OperationCreate,
		Payload:   guardrail.Payload{"source_entity_id": "x", "target_entity_id": "y", "smart_code": "BAD"},
	})
	m.ObserveResult(guardrail.TableRelationships, res)

	got := testutil.ToFloat64(m.findings.WithLabelValues(guardrail.TableRelationships, guardrail.CodeMissingOrganizationID, SeverityError))
	if got != 1 {
		t.Fatalf("expected 1 tenancy finding, got %v", got)
	}
	got = testutil.ToFloat64(m.findings.WithLabelValues(guardrail.TableRelationships, guardrail.CodeInvalidSmartCode, SeverityWarning))
	if got != 1 {
		t.Fatalf("expected 1 smart code warning, got %v", got)
	}
}
