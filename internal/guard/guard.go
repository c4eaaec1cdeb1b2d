// Package guard applies the configured guardrail policy to convention
// findings before a write reaches the table services.
package guard

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/heraerp/hera/internal/config"
	"github.com/heraerp/hera/internal/guardrail"
	"github.com/heraerp/hera/internal/observability/logger"
	"github.com/heraerp/hera/internal/observability/metrics"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Decisions reported to metrics and logs.
const (
	DecisionAllow    = "allow"
	DecisionAdvisory = "advisory"
	DecisionFixed    = "fixed"
	DecisionReject   = "reject"
)

var ErrRejected = errors.New("guardrail_rejected")

// RejectedError carries the full validator result of a rejected request.
type RejectedError struct {
	Table     string
	Operation string
	Mode      string
	Result    guardrail.Result
}

func (e *RejectedError) Error() string {
	msgs := e.Result.ErrorMessages()
	if len(msgs) == 0 {
		msgs = e.Result.WarningMessages()
	}
	return fmt.Sprintf("%s: %s %s: %s", ErrRejected, e.Operation, e.Table, strings.Join(msgs, "; "))
}

func (e *RejectedError) Unwrap() error { return ErrRejected }

// Decision is the outcome of Check. Request is the request to execute, which
// differs from the input only when an auto-fix was applied.
type Decision struct {
	Request  guardrail.Request
	Result   guardrail.Result
	Mode     string
	Decision string
	Fixed    bool
}

type Params struct {
	fx.In

	Config    *config.GuardrailConfigHolder
	Log       *zap.Logger
	Metrics   *metrics.GuardrailMetrics `optional:"true"`
	Telemetry *metrics.Metrics          `optional:"true"`
}

type Guard struct {
	cfg       *config.GuardrailConfigHolder
	log       *zap.Logger
	metrics   *metrics.GuardrailMetrics
	telemetry *metrics.Metrics
}

var Module = fx.Module("guard",
	fx.Provide(New),
)

func New(p Params) *Guard {
	log := p.Log
	if log == nil {
		log = zap.NewNop()
	}
	return &Guard{
		cfg:       p.Config,
		log:       log.Named("guardrail"),
		metrics:   p.Metrics,
		telemetry: p.Telemetry,
	}
}

// Check validates req and applies the current policy:
// advisory logs findings and proceeds, enforce rejects invalid requests,
// autofix applies the suggested fix and rejects only if the fixed request is
// still invalid. A non-nil error is always a *RejectedError.
func (g *Guard) Check(ctx context.Context, req guardrail.Request) (Decision, error) {
	policy := g.cfg.Get()
	res := guardrail.Validate(req)
	g.observe(ctx, req, res)

	log := logger.WithContext(ctx, g.log)
	decision := Decision{Request: req, Result: res, Mode: policy.Mode, Decision: DecisionAllow}

	if policy.Mode == config.GuardrailModeAutofix && !res.Valid && res.AutoFix != nil {
		fixed := guardrail.ApplyAutoFix(req, res.AutoFix)
		fixedRes := guardrail.Validate(fixed)
		g.metrics.IncAutoFix(req.Table)
		logger.WithGuardrail(log, req.Table, req.Operation, DecisionFixed).Info("guardrail auto-fix applied",
			zap.String("fixed_table", fixed.Table),
			zap.String("description", res.AutoFix.Description),
		)
		decision.Request = fixed
		decision.Result = fixedRes
		decision.Fixed = true
		decision.Decision = DecisionFixed
		res = fixedRes
	}

	rejected := !res.Valid || (policy.RejectWarnings && len(res.Warnings) > 0)
	switch {
	case !rejected:
		if len(res.Warnings) > 0 {
			logger.WithGuardrail(log, decision.Request.Table, req.Operation, decision.Decision).Warn("guardrail warnings",
				zap.Strings("warnings", res.WarningMessages()),
			)
		}
	case policy.Mode == config.GuardrailModeAdvisory:
		decision.Decision = DecisionAdvisory
		logger.WithGuardrail(log, req.Table, req.Operation, DecisionAdvisory).Warn("guardrail findings ignored in advisory mode",
			zap.Strings("errors", res.ErrorMessages()),
			zap.Strings("warnings", res.WarningMessages()),
		)
	default:
		decision.Decision = DecisionReject
		g.metrics.ObserveDecision(policy.Mode, decision.Decision)
		logger.WithGuardrail(log, decision.Request.Table, req.Operation, DecisionReject).Info("guardrail rejected request",
			zap.Strings("errors", res.ErrorMessages()),
		)
		return decision, &RejectedError{
			Table:     decision.Request.Table,
			Operation: req.Operation,
			Mode:      policy.Mode,
			Result:    res,
		}
	}

	g.metrics.ObserveDecision(policy.Mode, decision.Decision)
	return decision, nil
}

// CheckOnce is Check for table services: it does nothing when req.Table was
// already checked upstream (see WithChecked).
func (g *Guard) CheckOnce(ctx context.Context, req guardrail.Request) error {
	if g == nil || Checked(ctx, req.Table) {
		return nil
	}
	_, err := g.Check(ctx, req)
	return err
}

func (g *Guard) observe(ctx context.Context, req guardrail.Request, res guardrail.Result) {
	g.metrics.ObserveResult(req.Table, res)

	outcome := "valid"
	switch {
	case !res.Valid:
		outcome = "invalid"
	case len(res.Warnings) > 0:
		outcome = "warning"
	}
	g.telemetry.RecordGuardrailCheck(ctx, req.Table, req.Operation, outcome)
}

type checkedKey struct{}

// WithChecked marks table as validated on ctx under the current policy. Rows
// of other tables written while serving the request are still checked.
func WithChecked(ctx context.Context, table string) context.Context {
	prev, _ := ctx.Value(checkedKey{}).(map[string]struct{})
	tables := make(map[string]struct{}, len(prev)+1)
	for t := range prev {
		tables[t] = struct{}{}
	}
	tables[table] = struct{}{}
	return context.WithValue(ctx, checkedKey{}, tables)
}

func Checked(ctx context.Context, table string) bool {
	if ctx == nil {
		return false
	}
	tables, _ := ctx.Value(checkedKey{}).(map[string]struct{})
	_, ok := tables[table]
	return ok
}
