// Package config loads the detector's YAML configuration file: the
// WebSocket source, optional proxy, optional persistence sink, the
// tracked pool list, and router tuning.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config is the root of the YAML document.
type Config struct {
	WebSocket   WebSocketConfig     `yaml:"websocket"`
	Proxy       *ProxyConfig        `yaml:"proxy,omitempty"`
	Database    *DatabaseConfig     `yaml:"database,omitempty"`
	Pools       []PoolConfig        `yaml:"pools"`
	Router      *RouterConfig       `yaml:"router,omitempty"`
	EventDriven *EventDrivenConfig  `yaml:"event_driven,omitempty"`
	Simulation  *SimulationConfig   `yaml:"simulation,omitempty"`
	Init        *InitializationConfig `yaml:"initialization,omitempty"`
	Logging     *LoggingConfig      `yaml:"logging,omitempty"`
	API         *APIConfig          `yaml:"api,omitempty"`
}

// EventDrivenConfig tunes the debounced, threshold-gated scan trigger
// that rides on price-update events, as distinct from the timer-driven
// fallback scan.
type EventDrivenConfig struct {
	Enabled                    bool    `yaml:"enabled"`
	DebounceMillis             int     `yaml:"debounce_ms"`
	PriceChangeThresholdPercent float64 `yaml:"price_change_threshold_percent"`
	ValidationStrategy         string  `yaml:"validation_strategy"`
	MaxConcurrentScans         int     `yaml:"max_concurrent_scans"`
	ScanIntervalSeconds        int     `yaml:"scan_interval_seconds"`
}

// SimulationConfig gates the simulator's on-chain re-read of
// high-confidence opportunities.
type SimulationConfig struct {
	Enabled                  bool   `yaml:"enabled"`
	RPCURL                   string `yaml:"rpc_url"`
	MinConfidenceForSimulation float64 `yaml:"min_confidence_for_simulation"`
	MaxConcurrentSimulations int    `yaml:"max_concurrent_simulations"`
	SimulationTimeoutMillis  int    `yaml:"simulation_timeout_ms"`
}

// InitializationConfig pre-fills the cache from a batch of plain
// account reads before the subscription stream opens.
type InitializationConfig struct {
	Enabled    bool     `yaml:"enabled"`
	RPCURLs    []string `yaml:"rpc_urls"`
	BatchSize  int      `yaml:"batch_size"`
	TimeoutMillis int   `yaml:"timeout_ms"`
	MaxRetries int      `yaml:"max_retries"`
}

// LoggingConfig tunes the slog handler level and whether a file sink
// is attached alongside stdout.
type LoggingConfig struct {
	Level                      string  `yaml:"level"`
	FileEnabled                bool    `yaml:"file_enabled"`
	PriceChangeThresholdPercent float64 `yaml:"price_change_threshold_percent"`
}

// APIConfig addresses the read-only health/errors/data-quality HTTP server.
type APIConfig struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`
}

// WebSocketConfig names the account-subscription source.
type WebSocketConfig struct {
	URL string `yaml:"url"`
}

// ProxyConfig optionally routes the websocket connection through an
// upstream proxy.
type ProxyConfig struct {
	Enabled bool   `yaml:"enabled"`
	Host    string `yaml:"host"`
	Port    uint16 `yaml:"port"`
}

// DatabaseConfig gates the optional persistence sink.
type DatabaseConfig struct {
	Enabled             bool   `yaml:"enabled"`
	URL                 string `yaml:"url"`
	RecordOpportunities bool   `yaml:"record_opportunities"`
	RecordPoolUpdates   bool   `yaml:"record_pool_updates"`
	RecordPerformance   bool   `yaml:"record_performance"`
}

// PoolConfig describes one tracked pool. PoolType may be "unknown" or
// omitted to trigger the decoder factory's length-based auto-detect.
type PoolConfig struct {
	Address  string `yaml:"address"`
	Name     string `yaml:"name"`
	PoolType string `yaml:"pool_type"`
}

// RouterConfig tunes AdvancedRouter; every field defaults to the
// AdvancedRouterConfig defaults when the section or field is omitted.
type RouterConfig struct {
	Mode                    string                `yaml:"mode"`
	MinROIPercent           float64               `yaml:"min_roi_percent"`
	MaxHops                 int                   `yaml:"max_hops"`
	EnableSplitOptimization bool                  `yaml:"enable_split_optimization"`
	BellmanFord             *BellmanFordConfig    `yaml:"bellman_ford,omitempty"`
	SplitOptimizer          *SplitOptimizerConfig `yaml:"split_optimizer,omitempty"`
}

// BellmanFordConfig tunes the deep scanner's relaxation loop.
type BellmanFordConfig struct {
	MaxIterations        int     `yaml:"max_iterations"`
	ConvergenceThreshold float64 `yaml:"convergence_threshold"`
}

// SplitOptimizerConfig tunes capital-split behavior.
type SplitOptimizerConfig struct {
	MaxSplits      int     `yaml:"max_splits"`
	MinSplitAmount float64 `yaml:"min_split_amount"`
	SlippageModel  string  `yaml:"slippage_model"`
}

const (
	defaultPoolType             = "unknown"
	defaultRouterMode           = "complete"
	defaultMinROIPercent        = 0.3
	defaultMaxHops              = 6
	defaultEnableSplit          = true
	defaultMaxIterations        = 10
	defaultConvergenceThreshold = 0.0001
	defaultMaxSplits            = 5
	defaultMinSplitAmount       = 100.0
	defaultSlippageModel        = "constant_product"

	defaultDebounceMillis            = 200
	defaultPriceChangeThresholdPct   = 1.0
	defaultValidationStrategy        = "immediate"
	defaultMaxConcurrentScans        = 10
	defaultScanIntervalSeconds       = 5

	defaultMinConfidenceForSimulation = 80.0
	defaultMaxConcurrentSimulations   = 10
	defaultSimulationTimeoutMillis    = 500

	defaultInitBatchSize     = 100
	defaultInitTimeoutMillis = 5000
	defaultInitMaxRetries    = 3

	defaultLogLevel = "info"

	defaultAPIAddr = ":9090"
)

// Load reads, parses and validates path, filling in every default left
// unset by the document.
func Load(path string) (*Config, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(content, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config YAML: %w", err)
	}

	cfg.applyDefaults()

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	for i := range c.Pools {
		if c.Pools[i].PoolType == "" {
			c.Pools[i].PoolType = defaultPoolType
		}
	}

	if c.Router == nil {
		c.Router = &RouterConfig{}
	}
	if c.Router.Mode == "" {
		c.Router.Mode = defaultRouterMode
	}
	if c.Router.MinROIPercent == 0 {
		c.Router.MinROIPercent = defaultMinROIPercent
	}
	if c.Router.MaxHops == 0 {
		c.Router.MaxHops = defaultMaxHops
	}
	if !c.Router.EnableSplitOptimization {
		c.Router.EnableSplitOptimization = defaultEnableSplit
	}

	if c.Router.BellmanFord == nil {
		c.Router.BellmanFord = &BellmanFordConfig{}
	}
	if c.Router.BellmanFord.MaxIterations == 0 {
		c.Router.BellmanFord.MaxIterations = defaultMaxIterations
	}
	if c.Router.BellmanFord.ConvergenceThreshold == 0 {
		c.Router.BellmanFord.ConvergenceThreshold = defaultConvergenceThreshold
	}

	if c.Router.SplitOptimizer == nil {
		c.Router.SplitOptimizer = &SplitOptimizerConfig{}
	}
	if c.Router.SplitOptimizer.MaxSplits == 0 {
		c.Router.SplitOptimizer.MaxSplits = defaultMaxSplits
	}
	if c.Router.SplitOptimizer.MinSplitAmount == 0 {
		c.Router.SplitOptimizer.MinSplitAmount = defaultMinSplitAmount
	}
	if c.Router.SplitOptimizer.SlippageModel == "" {
		c.Router.SplitOptimizer.SlippageModel = defaultSlippageModel
	}

	if c.EventDriven == nil {
		c.EventDriven = &EventDrivenConfig{}
	}
	if c.EventDriven.DebounceMillis == 0 {
		c.EventDriven.DebounceMillis = defaultDebounceMillis
	}
	if c.EventDriven.PriceChangeThresholdPercent == 0 {
		c.EventDriven.PriceChangeThresholdPercent = defaultPriceChangeThresholdPct
	}
	if c.EventDriven.ValidationStrategy == "" {
		c.EventDriven.ValidationStrategy = defaultValidationStrategy
	}
	if c.EventDriven.MaxConcurrentScans == 0 {
		c.EventDriven.MaxConcurrentScans = defaultMaxConcurrentScans
	}
	if c.EventDriven.ScanIntervalSeconds == 0 {
		c.EventDriven.ScanIntervalSeconds = defaultScanIntervalSeconds
	}

	if c.Simulation == nil {
		c.Simulation = &SimulationConfig{}
	}
	if c.Simulation.MinConfidenceForSimulation == 0 {
		c.Simulation.MinConfidenceForSimulation = defaultMinConfidenceForSimulation
	}
	if c.Simulation.MaxConcurrentSimulations == 0 {
		c.Simulation.MaxConcurrentSimulations = defaultMaxConcurrentSimulations
	}
	if c.Simulation.SimulationTimeoutMillis == 0 {
		c.Simulation.SimulationTimeoutMillis = defaultSimulationTimeoutMillis
	}

	if c.Init == nil {
		c.Init = &InitializationConfig{}
	}
	if c.Init.BatchSize == 0 {
		c.Init.BatchSize = defaultInitBatchSize
	}
	if c.Init.TimeoutMillis == 0 {
		c.Init.TimeoutMillis = defaultInitTimeoutMillis
	}
	if c.Init.MaxRetries == 0 {
		c.Init.MaxRetries = defaultInitMaxRetries
	}

	if c.Logging == nil {
		c.Logging = &LoggingConfig{}
	}
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	if c.Logging.PriceChangeThresholdPercent == 0 {
		c.Logging.PriceChangeThresholdPercent = defaultPriceChangeThresholdPct
	}

	if c.API == nil {
		c.API = &APIConfig{}
	}
	if c.API.Addr == "" {
		c.API.Addr = defaultAPIAddr
	}
}

func (c *Config) validate() error {
	if c.WebSocket.URL == "" {
		return fmt.Errorf("websocket url cannot be empty")
	}
	if len(c.Pools) == 0 {
		return fmt.Errorf("at least one pool must be configured")
	}
	for _, p := range c.Pools {
		if p.Address == "" {
			return fmt.Errorf("pool address cannot be empty")
		}
		if p.Name == "" {
			return fmt.Errorf("pool name cannot be empty")
		}
	}
	if c.Init != nil && c.Init.BatchSize > 100 {
		return fmt.Errorf("initialization batch_size must be <= 100, got %d", c.Init.BatchSize)
	}
	return nil
}
