package types

import "errors"

// Config holds backend selection and parameters for opening a lineage
// store. The zero value is not valid; use DefaultConfig as a base.
type Config struct {
	Backend     string `json:"backend" yaml:"backend"`           // sqlite or noop
	DataDir     string `json:"data_dir" yaml:"data_dir"`         // sqlite database directory
	Strategy    string `json:"strategy" yaml:"strategy"`         // direct, batched, or compressed
	Resource    string `json:"resource" yaml:"resource"`         // graph identifier; generated when empty
	Namespace   string `json:"namespace" yaml:"namespace"`       // qualified-name namespace
	MaxElements int    `json:"max_elements" yaml:"max_elements"` // batched pool flush threshold
	CacheTTL    int    `json:"cache_ttl" yaml:"cache_ttl"`       // cache entry TTL in seconds
	CacheSize   int    `json:"cache_size" yaml:"cache_size"`     // max cached entries per map; 0 = unbounded
	PendingMax  int    `json:"pending_max" yaml:"pending_max"`   // pending-write queue flush threshold
}

// Supported backend names.
const (
	BackendSQLite = "sqlite"
	BackendNoop   = "noop"
)

// Supported log-index strategies.
const (
	StrategyDirect     = "direct"
	StrategyBatched    = "batched"
	StrategyCompressed = "compressed"
)

// Defaults applied by DefaultConfig and by Validate-time normalization.
const (
	DefaultNamespace   = "https://mesh-intelligence.com/lineage#"
	DefaultMaxElements = 16384
	DefaultCacheTTL    = 300
	DefaultPendingMax  = 10000
)

// Config validation errors.
var (
	ErrBackendEmpty    = errors.New("backend must not be empty")
	ErrBackendUnknown  = errors.New("unknown backend")
	ErrStrategyUnknown = errors.New("unknown strategy")
	ErrNegativeLimit   = errors.New("limits must not be negative")
)

// knownBackends lists the backends that Validate accepts.
var knownBackends = map[string]bool{
	BackendSQLite: true,
	BackendNoop:   true,
}

// knownStrategies lists the log-index strategies that Validate accepts.
var knownStrategies = map[string]bool{
	StrategyDirect:     true,
	StrategyBatched:    true,
	StrategyCompressed: true,
}

// DefaultConfig returns a Config with the sqlite backend, the batched
// strategy, and default limits.
func DefaultConfig() Config {
	return Config{
		Backend:     BackendSQLite,
		Strategy:    StrategyBatched,
		Namespace:   DefaultNamespace,
		MaxElements: DefaultMaxElements,
		CacheTTL:    DefaultCacheTTL,
		PendingMax:  DefaultPendingMax,
	}
}

// Validate checks that the Config is well-formed. It returns a sentinel
// error from this package on failure. An empty Strategy is accepted and
// treated as direct.
func (c Config) Validate() error {
	if c.Backend == "" {
		return ErrBackendEmpty
	}
	if !knownBackends[c.Backend] {
		return ErrBackendUnknown
	}
	if c.Strategy != "" && !knownStrategies[c.Strategy] {
		return ErrStrategyUnknown
	}
	if c.MaxElements < 0 || c.CacheTTL < 0 || c.CacheSize < 0 || c.PendingMax < 0 {
		return ErrNegativeLimit
	}
	return nil
}
