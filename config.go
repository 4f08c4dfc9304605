package laeproxy

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/getlantern/laeproxy/internal/relay"
)

// Config is the proxy's full runtime configuration: where to listen, the
// quotas of relay.Quotas (overridable so tests and non-production
// deployments can run against smaller limits without recompiling), and the
// dev/production environment discriminator.
type Config struct {
	ListenAddr string        `yaml:"listen_addr"`
	MetricsAddr string       `yaml:"metrics_addr"`
	Dev        bool          `yaml:"dev"`
	Quotas     relay.Quotas  `yaml:"-"`

	URLFetchReqMaxBytes int64         `yaml:"urlfetch_req_max_bytes"`
	URLFetchResMaxBytes int64         `yaml:"urlfetch_res_max_bytes"`
	URLFetchReqMaxSecs  time.Duration `yaml:"urlfetch_req_max_secs"`
	GAEReqMaxSecs       time.Duration `yaml:"gae_req_max_secs"`
	RangeReqSize        int64         `yaml:"range_req_size"`

	// OutboundQPS bounds outbound fetches per second via a token bucket,
	// modeling the platform's outbound quota (see internal/relay.HTTPFetcher).
	OutboundQPS float64 `yaml:"outbound_qps"`
}

// DefaultConfig returns a Config seeded from relay.DefaultQuotas, listening
// on :8080 in production mode.
func DefaultConfig() Config {
	q := relay.DefaultQuotas
	return Config{
		ListenAddr:          ":8080",
		MetricsAddr:         ":8081",
		Dev:                 false,
		URLFetchReqMaxBytes: q.URLFetchReqMaxBytes,
		URLFetchResMaxBytes: q.URLFetchResMaxBytes,
		URLFetchReqMaxSecs:  q.URLFetchReqMaxSecs,
		GAEReqMaxSecs:       q.GAEReqMaxSecs,
		RangeReqSize:        q.RangeReqSize,
		OutboundQPS:         50,
	}
}

// LoadConfigFile merges a YAML file at path onto cfg, returning an error if
// the file exists but cannot be parsed. A missing file is not an error;
// the caller is expected to have started from DefaultConfig.
func LoadConfigFile(cfg *Config, path string) error {
	if path == "" {
		return nil
	}
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("reading config file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parsing config file %s: %w", path, err)
	}
	return nil
}

// ApplyEnv overlays process environment variables onto cfg: the single
// LAEPROXY_ENV=production/anything-else environment discriminator, plus a
// handful of operational overrides that make sense to flip without a config
// file (listen address, metrics address).
func ApplyEnv(cfg *Config) {
	if v := os.Getenv("LAEPROXY_ENV"); v != "" {
		cfg.Dev = v != "production"
	}
	if v := os.Getenv("LAEPROXY_LISTEN_ADDR"); v != "" {
		cfg.ListenAddr = v
	}
	if v := os.Getenv("LAEPROXY_METRICS_ADDR"); v != "" {
		cfg.MetricsAddr = v
	}
}

// ResolveQuotas copies the flattened quota fields back into cfg.Quotas,
// called once after all config layers (defaults, file, env, flags) have
// been applied.
func (c *Config) ResolveQuotas() {
	c.Quotas = relay.Quotas{
		URLFetchReqMaxBytes: c.URLFetchReqMaxBytes,
		URLFetchResMaxBytes: c.URLFetchResMaxBytes,
		URLFetchReqMaxSecs:  c.URLFetchReqMaxSecs,
		GAEReqMaxSecs:       c.GAEReqMaxSecs,
		RangeReqSize:        c.RangeReqSize,
	}
}
