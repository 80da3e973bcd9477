// Package auditconfig loads the engine-wide settings a running audit
// engine needs beyond the rule documents themselves: how many
// (rule, pair) executions run concurrently, a default send timeout, and
// where the verdict cache lives.
package auditconfig

import (
	"fmt"
	"os"
	"time"

	"github.com/sinKettu/cruster-audit/internal/audit/evidence"
	"github.com/sinKettu/cruster-audit/internal/common/yamlutil"
)

// Config is the top-level engine configuration document.
// DefaultSendTimeout is parsed and defaulted here but no other component
// reads it: a send action without timeout_after runs without a timeout.
type Config struct {
	WorkerPoolSize     int            `yaml:"worker_pool_size"`
	DefaultSendTimeout time.Duration  `yaml:"default_send_timeout"`
	MetricsNamespace   string         `yaml:"metrics_namespace"`
	Evidence           EvidenceConfig `yaml:"evidence"`
}

// EvidenceConfig controls the optional Redis-backed verdict cache. A
// zero value (Enabled: false) means the engine never consults or
// populates a cache and every (rule, pair) execution runs fresh.
type EvidenceConfig struct {
	Enabled   bool          `yaml:"enabled"`
	Addr      string        `yaml:"addr"`
	Password  string        `yaml:"password"`
	DB        int           `yaml:"db"`
	Namespace string        `yaml:"namespace"`
	TTL       time.Duration `yaml:"ttl"`
}

// ToEvidenceConfig converts the on-disk shape to evidence.Config.
func (e EvidenceConfig) ToEvidenceConfig() evidence.Config {
	return evidence.Config{
		Addr:      e.Addr,
		Password:  e.Password,
		DB:        e.DB,
		Namespace: e.Namespace,
		TTL:       e.TTL,
	}
}

// Default returns the configuration a caller gets when no config file
// is supplied: a worker per logical CPU (workerpool.New resolves 0 to
// its own default), a generous send timeout, and no evidence cache.
func Default() Config {
	return Config{
		WorkerPoolSize:     0,
		DefaultSendTimeout: 30 * time.Second,
		MetricsNamespace:   "cruster_audit",
	}
}

// LoadFile reads and strictly parses path, filling in Default() for
// anything the document omits.
func LoadFile(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("reading engine config %s: %w", path, err)
	}
	return LoadBytes(data)
}

// LoadBytes is LoadFile without the filesystem read, used directly by
// tests.
func LoadBytes(data []byte) (Config, error) {
	cfg := Default()
	if err := yamlutil.UnmarshalStrict(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parsing engine config: %w", err)
	}
	if cfg.WorkerPoolSize < 0 {
		return Config{}, fmt.Errorf("worker_pool_size must not be negative, got %d", cfg.WorkerPoolSize)
	}
	return cfg, nil
}
