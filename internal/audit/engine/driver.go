package engine

import (
	"context"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/sinKettu/cruster-audit/internal/audit/auderr"
	"github.com/sinKettu/cruster-audit/internal/audit/capture"
	auditmetrics "github.com/sinKettu/cruster-audit/internal/audit/metrics"
	"github.com/sinKettu/cruster-audit/internal/audit/rule"
	"github.com/sinKettu/cruster-audit/internal/audit/runctx"
	"github.com/sinKettu/cruster-audit/internal/audit/runid"
)

// Driver runs validated rules against captured pairs. It holds no
// per-run state of its own; every field is shared, read-only
// collaborator infrastructure, so one Driver serves many concurrent
// (rule, pair) executions.
type Driver struct {
	client  rule.HTTPClient
	logger  *zap.Logger
	metrics *auditmetrics.Metrics
}

// New builds a Driver. client dispatches every send action's requests;
// logger receives one warning per aborted (rule, pair) execution;
// metrics may be nil, in which case no instrumentation is recorded.
func New(client rule.HTTPClient, logger *zap.Logger, metrics *auditmetrics.Metrics) *Driver {
	return &Driver{client: client, logger: logger, metrics: metrics}
}

// Run executes a checked-up rule's actions against pair in declaration
// order and returns the aggregated result. A validation-time error
// reaching here (a rule that skipped CheckUp) is a programming error
// and panics; runtime evaluation errors abort this execution and
// return nil with the error, emitting no partial result.
func (d *Driver) Run(ctx context.Context, r *rule.Rule, pair *capture.Pair) (*RuleResult, error) {
	runID := runid.New(r.ID)
	rctx := runctx.New(r.ID, pair)
	start := time.Now()

	if d.metrics != nil {
		d.metrics.IncActive()
		defer d.metrics.DecActive()
	}

	for _, entry := range r.Entries {
		switch entry.Kind {
		case rule.KindWatch:
			entry.Watch.Exec(rctx, pair)

		case rule.KindChange:
			if err := entry.Change.Exec(rctx, rctx.WatchResults(), pair); err != nil {
				return d.abort(r.ID, err, start)
			}

		case rule.KindSend:
			if err := entry.Send.Exec(ctx, rctx, rctx.ChangeResults(), d.client); err != nil {
				if d.metrics != nil {
					d.metrics.ObserveSendFailure(r.ID)
				}
				return d.abort(r.ID, err, start)
			}

		case rule.KindFind:
			if err := entry.Find.Exec(rctx, rctx); err != nil {
				return d.abort(r.ID, err, start)
			}

		case rule.KindGet:
			entry.Get.Exec(rctx)
		}
	}

	if d.logger != nil {
		d.logger.Debug("rule execution finished", zap.String("rule_id", r.ID), zap.String("run_id", runID))
	}

	result := d.makeResult(r, runID, rctx)
	if d.metrics != nil {
		d.metrics.ObserveExecution(r.ID, result.FoundAnything, false, time.Since(start))
	}
	return result, nil
}

func (d *Driver) abort(ruleID string, err error, start time.Time) (*RuleResult, error) {
	if d.logger != nil {
		d.logger.Warn("aborting rule execution", zap.String("rule_id", ruleID), zap.Error(err))
	}
	if d.metrics != nil {
		d.metrics.ObserveExecution(ruleID, false, true, time.Since(start))
	}
	return nil, auderr.Wrap(ruleID, err)
}

// makeResult builds the public RuleResult from the context's
// accumulated vectors, pairing each get action with the find/send
// indices its rule declaration named.
func (d *Driver) makeResult(r *rule.Rule, runID string, rctx *runctx.Context) *RuleResult {
	result := &RuleResult{
		RuleID:        r.ID,
		RunID:         runID,
		PairIndex:     rctx.Pair().Index,
		FoundAnything: rctx.FoundAnything(),
	}

	getResults := rctx.GetResults()
	getIndex := 0
	for _, entry := range r.Entries {
		if entry.Kind != rule.KindGet {
			continue
		}
		if getIndex >= len(getResults) {
			break
		}
		gr := getResults[getIndex]
		getIndex++
		if !gr.Found {
			continue
		}

		findID, _ := strconv.Atoi(entry.Get.IfSucceed)
		sendID, _ := strconv.Atoi(entry.Get.From)
		result.Evidence = append(result.Evidence, Evidence{
			FindID:      findID,
			SendID:      sendID,
			ExtractMode: entry.Get.Extract,
			Bytes:       gr.Bytes,
		})
	}

	return result
}
