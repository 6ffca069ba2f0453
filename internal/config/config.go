// Package config loads grtinfo settings from a YAML file and the environment.
//
// Precedence, highest first:
//  1. environment variables (THEGRAPH_NETWORK_SUBGRAPH_URL, ENS_SUBGRAPH_URL, ...)
//  2. the YAML file (default ~/.grtinfo/config.yaml)
//  3. built-in defaults applied by Validate
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/mitchellh/go-homedir"
	"gopkg.in/yaml.v3"
)

// Dir is the per-user configuration directory, relative to the home directory.
const Dir = ".grtinfo"

// ensSubgraphID is the ENS subgraph deployment on The Graph's decentralized network.
const ensSubgraphID = "QmcE8RpWtsiN5hkJKdfCXGfTDoTgPEjMbQwnjLPfThT7kZ"

// Cache backends accepted by ens.cache_backend.
const (
	BackendJSON   = "json"
	BackendBolt   = "bolt"
	BackendMemory = "memory"
)

// Environment variables overriding file values.
const (
	EnvNetworkSubgraphURL   = "THEGRAPH_NETWORK_SUBGRAPH_URL"
	EnvENSSubgraphURL       = "ENS_SUBGRAPH_URL"
	EnvRPCURL               = "RPC_URL"
	EnvMyIndexerID          = "MY_INDEXER_ID"
	EnvAnalyticsSubgraphURL = "ANALYTICS_SUBGRAPH_URL"
)

// Config is the root configuration structure.
type Config struct {
	NetworkSubgraphURL   string   `yaml:"network_subgraph_url"`
	SubgraphURL          string   `yaml:"subgraph_url"` // older spelling of network_subgraph_url
	ENSSubgraphURL       string   `yaml:"ens_subgraph_url"`
	RPCURL               string   `yaml:"rpc_url"`
	MyIndexerID          string   `yaml:"my_indexer_id"`
	AnalyticsSubgraphURL string   `yaml:"analytics_subgraph_url"`
	Defaults             Defaults `yaml:"defaults"`
	ENS                  ENS      `yaml:"ens"`
	Log                  Log      `yaml:"log"`
}

// Defaults apply to every outbound query.
type Defaults struct {
	Timeout    time.Duration `yaml:"timeout"`     // per-request timeout (e.g., "10s")
	MaxRetries int           `yaml:"max_retries"` // retry attempts on transport failure (0 = none)
}

// ENS configures name resolution and its cache.
type ENS struct {
	CacheTTL     time.Duration `yaml:"cache_ttl"`     // freshness window for cached names (e.g., "24h")
	CachePath    string        `yaml:"cache_path"`    // cache location, "~" is expanded
	CacheBackend string        `yaml:"cache_backend"` // "json", "bolt" or "memory"
	BatchSize    int           `yaml:"batch_size"`    // addresses per batch query
	SearchLimit  int           `yaml:"search_limit"`  // results per partial search
}

// Log configures the stderr logger.
type Log struct {
	Level string `yaml:"level"` // debug, info, warn, error
}

// DefaultPath returns ~/.grtinfo/config.yaml.
func DefaultPath() (string, error) {
	home, err := homedir.Dir()
	if err != nil {
		return "", fmt.Errorf("failed to locate home directory: %w", err)
	}
	return filepath.Join(home, Dir, "config.yaml"), nil
}

// Load reads the YAML file at path, applies environment overrides and validates
// the result. An empty path means DefaultPath, which may be absent; an explicit
// path must exist.
func Load(path string) (*Config, error) {
	explicit := path != ""
	if !explicit {
		p, err := DefaultPath()
		if err != nil {
			return nil, err
		}
		path = p
	}

	var cfg Config
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		// Expand environment variables in the YAML content: url: ${ENS_URL}
		expanded := os.ExpandEnv(string(data))
		if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist) && !explicit:
	default:
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	cfg.ApplyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// ApplyEnv overrides file values with any non-empty environment variable.
func (c *Config) ApplyEnv() {
	set := func(dst *string, key string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}
	set(&c.NetworkSubgraphURL, EnvNetworkSubgraphURL)
	set(&c.ENSSubgraphURL, EnvENSSubgraphURL)
	set(&c.RPCURL, EnvRPCURL)
	set(&c.MyIndexerID, EnvMyIndexerID)
	set(&c.AnalyticsSubgraphURL, EnvAnalyticsSubgraphURL)
}

// Validate applies defaults and reports every invalid field at once.
// It may emit warnings (to stderr) for suspicious values but does not fail on warnings.
func (c *Config) Validate() error {
	if c.NetworkSubgraphURL == "" {
		c.NetworkSubgraphURL = c.SubgraphURL
	}
	c.NetworkSubgraphURL = trimURL(c.NetworkSubgraphURL)
	c.ENSSubgraphURL = trimURL(c.ENSSubgraphURL)
	c.RPCURL = trimURL(c.RPCURL)
	c.AnalyticsSubgraphURL = trimURL(c.AnalyticsSubgraphURL)
	c.MyIndexerID = strings.ToLower(strings.TrimSpace(c.MyIndexerID))

	if c.ENSSubgraphURL == "" {
		c.ENSSubgraphURL = deriveENSURL(c.NetworkSubgraphURL)
	}

	if c.Defaults.Timeout == 0 {
		c.Defaults.Timeout = 10 * time.Second
	}
	if c.ENS.CacheTTL == 0 {
		c.ENS.CacheTTL = 24 * time.Hour
	}
	if c.ENS.CacheBackend == "" {
		c.ENS.CacheBackend = BackendJSON
	}
	if c.ENS.BatchSize == 0 {
		c.ENS.BatchSize = 100
	}
	if c.ENS.SearchLimit == 0 {
		c.ENS.SearchLimit = 20
	}
	if c.Log.Level == "" {
		c.Log.Level = "warn"
	}

	var result *multierror.Error
	if c.Defaults.Timeout < 0 {
		result = multierror.Append(result, fmt.Errorf("defaults.timeout must be > 0"))
	}
	if c.Defaults.MaxRetries < 0 {
		result = multierror.Append(result, fmt.Errorf("defaults.max_retries must be >= 0"))
	}
	if c.ENS.CacheTTL < 0 {
		result = multierror.Append(result, fmt.Errorf("ens.cache_ttl must be > 0"))
	}
	if c.ENS.BatchSize < 0 || c.ENS.BatchSize > 1000 {
		result = multierror.Append(result, fmt.Errorf("ens.batch_size must be between 1 and 1000"))
	}
	if c.ENS.SearchLimit < 0 || c.ENS.SearchLimit > 1000 {
		result = multierror.Append(result, fmt.Errorf("ens.search_limit must be between 1 and 1000"))
	}
	switch c.ENS.CacheBackend {
	case BackendJSON, BackendBolt, BackendMemory:
	default:
		result = multierror.Append(result, fmt.Errorf("ens.cache_backend %q is not one of json, bolt, memory", c.ENS.CacheBackend))
	}

	for _, u := range []struct{ key, value string }{
		{"network_subgraph_url", c.NetworkSubgraphURL},
		{"ens_subgraph_url", c.ENSSubgraphURL},
		{"rpc_url", c.RPCURL},
		{"analytics_subgraph_url", c.AnalyticsSubgraphURL},
	} {
		if u.value == "" {
			continue
		}
		if err := checkURL(u.value); err != nil {
			result = multierror.Append(result, fmt.Errorf("%s: %w", u.key, err))
		}
	}

	if c.ENS.CachePath == "" {
		home, err := homedir.Dir()
		if err != nil {
			result = multierror.Append(result, fmt.Errorf("ens.cache_path: %w", err))
		} else {
			c.ENS.CachePath = filepath.Join(home, Dir, defaultCacheFile(c.ENS.CacheBackend))
		}
	} else {
		p, err := homedir.Expand(c.ENS.CachePath)
		if err != nil {
			result = multierror.Append(result, fmt.Errorf("ens.cache_path: %w", err))
		} else {
			c.ENS.CachePath = p
		}
	}

	const low = 500 * time.Millisecond
	const high = 2 * time.Minute
	if d := c.Defaults.Timeout; d > 0 && d < low {
		fmt.Fprintf(os.Stderr, "Warning: timeout is very low (%s); requests may fail under normal network jitter\n", d)
	}
	if d := c.Defaults.Timeout; d > high {
		fmt.Fprintf(os.Stderr, "Warning: timeout is very high (%s); failures may take a long time to surface\n", d)
	}

	return result.ErrorOrNil()
}

// RequireENS returns an error explaining how to configure the ENS endpoint when it is unset.
func (c *Config) RequireENS() error {
	if c.ENSSubgraphURL != "" {
		return nil
	}
	return fmt.Errorf("no ENS subgraph URL configured: set %s, add ens_subgraph_url to ~/%s/config.yaml, "+
		"or configure a network_subgraph_url on the gateway", EnvENSSubgraphURL, Dir)
}

// deriveENSURL builds the ENS subgraph URL on the same gateway as a network
// subgraph URL of the form <base>/subgraphs/id/<deployment>.
func deriveENSURL(networkURL string) string {
	const marker = "/subgraphs/id/"
	i := strings.Index(networkURL, marker)
	if i < 0 {
		return ""
	}
	return networkURL[:i] + marker + ensSubgraphID
}

func defaultCacheFile(backend string) string {
	if backend == BackendBolt {
		return "ens_cache.db"
	}
	return "ens_cache.json"
}

func trimURL(s string) string {
	return strings.TrimRight(strings.TrimSpace(s), "/")
}

func checkURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid url: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("invalid url (missing scheme or host)")
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("invalid url scheme %q (expected http or https)", u.Scheme)
	}
	return nil
}
