// Package evidence caches the verdict of a (rule, pair) execution in
// Redis, keyed by a hash of the rule id and pair index, so the same
// pair replayed against the same rule set a second time (a retried
// capture, a rule reload) skips redundant send traffic against the
// origin. This is a verdict cache, not a replay history: it stores
// only the outcome of a run, never the captured traffic itself.
package evidence

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/pierrec/lz4/v4"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Verdict is the cached shape of one (rule, pair) execution outcome.
// It mirrors engine.RuleResult but is independent of that package so
// evidence has no dependency on engine.
type Verdict struct {
	RuleID        string `json:"rule_id"`
	RunID         string `json:"run_id"`
	PairIndex     int    `json:"pair_index"`
	FoundAnything bool   `json:"found_anything"`
	Evidence      []Blob `json:"evidence,omitempty"`
}

// Blob is one piece of extracted evidence, addressed back to the
// find/send actions that produced it.
type Blob struct {
	FindID      int    `json:"find_id"`
	SendID      int    `json:"send_id"`
	ExtractMode string `json:"extract_mode"`
	Bytes       []byte `json:"bytes"`
}

// Cache stores Verdicts in Redis, compressing the serialized form with
// LZ4 since evidence blobs can carry full response bodies.
type Cache struct {
	rdb       *redis.Client
	logger    *zap.Logger
	namespace string
	ttl       time.Duration
}

// Config controls how Cache reaches Redis and how long entries live.
type Config struct {
	Addr      string
	Password  string
	DB        int
	Namespace string        // key prefix, e.g. "cruster-audit"
	TTL       time.Duration // 0 means entries never expire
}

// New connects to Redis and verifies reachability with a ping.
func New(cfg Config, logger *zap.Logger) (*Cache, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("connecting to evidence cache redis: %w", err)
	}

	namespace := cfg.Namespace
	if namespace == "" {
		namespace = "cruster-audit"
	}

	return &Cache{rdb: rdb, logger: logger, namespace: namespace, ttl: cfg.TTL}, nil
}

// key hashes the rule id and pair index into a fixed-width Redis key,
// so a rule document's id never needs escaping for use as part of a
// key and two rules with the same id never collide across namespaces.
func (c *Cache) key(ruleID string, pairIndex int) string {
	h := xxhash.Sum64String(fmt.Sprintf("%s:%d", ruleID, pairIndex))
	return fmt.Sprintf("%s:verdict:%016x", c.namespace, h)
}

// Get returns a previously stored Verdict, or ok=false if none exists.
func (c *Cache) Get(ctx context.Context, ruleID string, pairIndex int) (*Verdict, bool, error) {
	raw, err := c.rdb.Get(ctx, c.key(ruleID, pairIndex)).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("reading evidence cache: %w", err)
	}

	data, err := decompress(raw)
	if err != nil {
		return nil, false, fmt.Errorf("decompressing cached verdict: %w", err)
	}

	var v Verdict
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, false, fmt.Errorf("unmarshaling cached verdict: %w", err)
	}

	return &v, true, nil
}

// Put stores v, overwriting any existing entry for the same rule and
// pair index.
func (c *Cache) Put(ctx context.Context, v *Verdict) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshaling verdict: %w", err)
	}

	compressed, err := compress(data)
	if err != nil {
		return fmt.Errorf("compressing verdict: %w", err)
	}

	if err := c.rdb.Set(ctx, c.key(v.RuleID, v.PairIndex), compressed, c.ttl).Err(); err != nil {
		if c.logger != nil {
			c.logger.Warn("failed to write evidence cache entry", zap.String("rule_id", v.RuleID), zap.Error(err))
		}
		return fmt.Errorf("writing evidence cache: %w", err)
	}

	return nil
}

// Close releases the underlying Redis connection pool.
func (c *Cache) Close() error {
	return c.rdb.Close()
}

func compress(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	w := lz4.NewWriter(&buf)
	if _, err := w.Write(data); err != nil {
		w.Close()
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func decompress(data []byte) ([]byte, error) {
	r := lz4.NewReader(bytes.NewReader(data))
	return io.ReadAll(r)
}
