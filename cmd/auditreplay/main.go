// Command auditreplay loads one or more audit rules and a recorded
// request/response pair from disk, runs the rules against the pair,
// and prints the resulting verdicts. It exists to exercise the audit
// engine against a captured pair outside of a running proxy, and
// doubles as a smoke test a rule author can run before deploying a
// rule document.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/sinKettu/cruster-audit/internal/audit/capture"
	"github.com/sinKettu/cruster-audit/internal/audit/engine"
	"github.com/sinKettu/cruster-audit/internal/audit/evidence"
	auditmetrics "github.com/sinKettu/cruster-audit/internal/audit/metrics"
	"github.com/sinKettu/cruster-audit/internal/audit/rule"
	"github.com/sinKettu/cruster-audit/internal/audit/sender"
	"github.com/sinKettu/cruster-audit/internal/audit/workerpool"
	"github.com/sinKettu/cruster-audit/internal/auditconfig"
	"github.com/sinKettu/cruster-audit/internal/common/logger"
	"github.com/sinKettu/cruster-audit/internal/common/metricsserver"
	"github.com/sinKettu/cruster-audit/internal/ruleload"
)

func main() {
	rulesPath := flag.String("rules", "", "path to a rule document (YAML)")
	pairPath := flag.String("pair", "", "path to a recorded request/response pair (JSON)")
	targetURL := flag.String("target", "", "base URL send actions are dispatched against")
	insecure := flag.Bool("insecure", false, "skip TLS certificate verification when dispatching send actions")
	serveMetrics := flag.String("metrics-listen", "", "if set, serve Prometheus metrics on this address while replaying")
	configPath := flag.String("config", "", "path to an engine config file; defaults are used when omitted")
	flag.Parse()

	if *rulesPath == "" || *pairPath == "" || *targetURL == "" {
		fmt.Fprintln(os.Stderr, "usage: auditreplay -rules <file> -pair <file> -target <url>")
		os.Exit(2)
	}

	zapLogger, err := logger.NewDefaultLogger()
	if err != nil {
		log.Fatalf("failed to create logger: %v", err)
	}
	defer zapLogger.Sync()

	engineCfg := auditconfig.Default()
	if *configPath != "" {
		engineCfg, err = auditconfig.LoadFile(*configPath)
		if err != nil {
			zapLogger.Fatal("failed to load engine config", zap.Error(err))
		}
	}

	rules, err := ruleload.LoadFile(*rulesPath)
	if err != nil {
		zapLogger.Fatal("failed to load rules", zap.Error(err))
	}

	pair, err := loadPair(*pairPath)
	if err != nil {
		zapLogger.Fatal("failed to load pair", zap.Error(err))
	}

	client, err := sender.New(sender.Config{BaseURL: *targetURL, InsecureSkipVerify: *insecure}, zapLogger.Logger)
	if err != nil {
		zapLogger.Fatal("failed to build send client", zap.Error(err))
	}

	metrics := auditmetrics.New(engineCfg.MetricsNamespace, zapLogger.Logger)

	if _, err := metricsserver.StartMetricsServer(*serveMetrics != "", *serveMetrics, "/metrics", metrics, zapLogger.Logger); err != nil {
		zapLogger.Fatal("failed to start metrics server", zap.Error(err))
	}

	var verdicts *evidence.Cache
	if engineCfg.Evidence.Enabled {
		verdicts, err = evidence.New(engineCfg.Evidence.ToEvidenceConfig(), zapLogger.Logger)
		if err != nil {
			zapLogger.Fatal("failed to connect to evidence cache", zap.Error(err))
		}
		defer verdicts.Close()
	}

	driver := engine.New(client, zapLogger.Logger, metrics)

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	pool := workerpool.New(engineCfg.WorkerPoolSize, zapLogger.Logger)
	defer pool.Close()

	jobs := make([]workerpool.Job, len(rules))
	for i, r := range rules {
		r := r
		jobs[i] = func(ctx context.Context) (any, error) {
			return runOne(ctx, driver, verdicts, r, pair, zapLogger.Logger)
		}
	}

	exitCode := 0
	for res := range pool.Submit(ctx, jobs) {
		if res.Err != nil {
			zapLogger.Error("rule execution aborted", zap.String("rule_id", rules[res.Index].ID), zap.Error(res.Err))
			exitCode = 1
			continue
		}
		printResult(res.Value.(*engine.RuleResult))
	}

	os.Exit(exitCode)
}

// runOne executes one rule against pair, consulting and then
// populating the verdict cache when one is configured.
func runOne(ctx context.Context, driver *engine.Driver, verdicts *evidence.Cache, r *rule.Rule, pair *capture.Pair, zapLogger *zap.Logger) (*engine.RuleResult, error) {
	if verdicts != nil {
		if cached, ok, err := verdicts.Get(ctx, r.ID, pair.Index); err == nil && ok {
			return &engine.RuleResult{
				RuleID:        cached.RuleID,
				RunID:         cached.RunID,
				PairIndex:     cached.PairIndex,
				FoundAnything: cached.FoundAnything,
				Evidence:      toEngineEvidence(cached.Evidence),
			}, nil
		}
	}

	result, err := driver.Run(ctx, r, pair)
	if err != nil {
		return nil, err
	}

	if verdicts != nil {
		if err := verdicts.Put(ctx, &evidence.Verdict{
			RuleID:        result.RuleID,
			RunID:         result.RunID,
			PairIndex:     result.PairIndex,
			FoundAnything: result.FoundAnything,
			Evidence:      toCacheEvidence(result.Evidence),
		}); err != nil && zapLogger != nil {
			zapLogger.Warn("failed to populate evidence cache", zap.String("rule_id", r.ID), zap.Error(err))
		}
	}

	return result, nil
}

func toCacheEvidence(in []engine.Evidence) []evidence.Blob {
	out := make([]evidence.Blob, len(in))
	for i, e := range in {
		out[i] = evidence.Blob{FindID: e.FindID, SendID: e.SendID, ExtractMode: e.ExtractMode, Bytes: e.Bytes}
	}
	return out
}

func toEngineEvidence(in []evidence.Blob) []engine.Evidence {
	out := make([]engine.Evidence, len(in))
	for i, e := range in {
		out[i] = engine.Evidence{FindID: e.FindID, SendID: e.SendID, ExtractMode: e.ExtractMode, Bytes: e.Bytes}
	}
	return out
}

func loadPair(path string) (*capture.Pair, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading pair file: %w", err)
	}
	var pair capture.Pair
	if err := json.Unmarshal(data, &pair); err != nil {
		return nil, fmt.Errorf("parsing pair file: %w", err)
	}
	return &pair, nil
}

func printResult(result *engine.RuleResult) {
	out, _ := json.MarshalIndent(result, "", "  ")
	fmt.Println(string(out))
}
