package config

import (
	"fmt"
	"net/url"
	"slices"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"

	internalcommon "github.com/goran-ethernal/TokenLedger/internal/common"
	"github.com/goran-ethernal/TokenLedger/internal/logger"
)

const (
	defaultHistoryBlockRange  = 3000
	defaultEventsPullInterval = 30 * time.Second
	defaultCatchUpInterval    = 5 * time.Second
	defaultLivenessInterval   = 60 * time.Second
	defaultSnapshotSuffix     = "holders-snapshot.json"
	defaultTransfersSuffix    = "transfers.db"
)

// Config represents the complete configuration for TokenLedger.
type Config struct {
	// Chains lists every chain a worker is started for
	Chains []ChainConfig `yaml:"chains" json:"chains" toml:"chains"`

	// Storage holds the locations of balance snapshots and transfer partitions
	Storage StorageConfig `yaml:"storage" json:"storage" toml:"storage"`

	// Retry contains the RPC retry policy shared by every chain
	Retry *RetryConfig `yaml:"retry,omitempty" json:"retry,omitempty" toml:"retry,omitempty"`

	// Cache sizes the in-process RPC response cache
	Cache *CacheConfig `yaml:"cache,omitempty" json:"cache,omitempty" toml:"cache,omitempty"`

	// Supervisor configures worker liveness checks
	Supervisor *SupervisorConfig `yaml:"supervisor,omitempty" json:"supervisor,omitempty" toml:"supervisor,omitempty"`

	// Logging contains logging configuration
	Logging *LoggingConfig `yaml:"logging,omitempty" json:"logging,omitempty" toml:"logging,omitempty"`

	// Metrics contains Prometheus metrics configuration
	Metrics *MetricsConfig `yaml:"metrics,omitempty" json:"metrics,omitempty" toml:"metrics,omitempty"`

	// API contains the read API configuration
	API *APIConfig `yaml:"api,omitempty" json:"api,omitempty" toml:"api,omitempty"`
}

// ChainConfig describes a single indexed chain.
type ChainConfig struct {
	// ID is the unique chain name used in file names, logs and metrics (e.g. "ethereum", "polygon")
	ID string `yaml:"id" json:"id" toml:"id"`

	// RPC holds the endpoint settings
	RPC RPCConfig `yaml:"rpc" json:"rpc" toml:"rpc"`

	// Finalization is the number of most recent blocks withheld from indexing
	Finalization uint64 `yaml:"finalization" json:"finalization" toml:"finalization"`

	// EventsPullInterval is the steady-state poll cadence once the worker reached the head
	EventsPullInterval internalcommon.Duration `yaml:"events_pull_interval" json:"events_pull_interval" toml:"events_pull_interval"` //nolint:lll

	// CatchUpInterval is the pause between polls while the worker is catching up
	CatchUpInterval internalcommon.Duration `yaml:"catch_up_interval" json:"catch_up_interval" toml:"catch_up_interval"`

	// Token identifies the indexed ERC20 contract on this chain
	Token TokenConfig `yaml:"token" json:"token" toml:"token"`
}

// RPCConfig configures the JSON-RPC endpoint of a chain.
type RPCConfig struct {
	// URL is the HTTP(S) or WS(S) endpoint
	URL string `yaml:"url" json:"url" toml:"url"`

	// HistoryBlockRange is the maximum block span of a single eth_getLogs call
	HistoryBlockRange uint64 `yaml:"history_block_range" json:"history_block_range" toml:"history_block_range"`

	// RequestsPerSecond limits calls to the endpoint (0 = unlimited)
	RequestsPerSecond float64 `yaml:"requests_per_second" json:"requests_per_second" toml:"requests_per_second"`

	// Burst is the limiter burst size, defaults to 1 when a rate is set
	Burst int `yaml:"burst" json:"burst" toml:"burst"`
}

// TokenConfig identifies the token contract on a chain.
type TokenConfig struct {
	// Address is the ERC20 contract address
	Address string `yaml:"address" json:"address" toml:"address"`

	// StartBlock is the token deployment block; indexing begins here
	StartBlock uint64 `yaml:"start_block" json:"start_block" toml:"start_block"`
}

// ApplyDefaults sets default values for optional chain configuration fields.
func (c *ChainConfig) ApplyDefaults() {
	if c.RPC.HistoryBlockRange == 0 {
		c.RPC.HistoryBlockRange = defaultHistoryBlockRange
	}
	if c.RPC.RequestsPerSecond > 0 && c.RPC.Burst == 0 {
		c.RPC.Burst = 1
	}
	if c.EventsPullInterval.Duration == 0 {
		c.EventsPullInterval = internalcommon.NewDuration(defaultEventsPullInterval)
	}
	if c.CatchUpInterval.Duration == 0 {
		c.CatchUpInterval = internalcommon.NewDuration(defaultCatchUpInterval)
	}
}

// Validate checks if the chain configuration is valid.
func (c *ChainConfig) Validate() error {
	if c.ID == "" {
		return fmt.Errorf("id is required")
	}
	if strings.ContainsAny(c.ID, `/\ `) {
		return fmt.Errorf("id must not contain path separators or spaces")
	}

	if c.RPC.URL == "" {
		return fmt.Errorf("rpc.url is required")
	}
	u, err := url.Parse(c.RPC.URL)
	if err != nil {
		return fmt.Errorf("rpc.url: %w", err)
	}
	if !slices.Contains([]string{"http", "https", "ws", "wss"}, u.Scheme) {
		return fmt.Errorf("rpc.url: unsupported scheme %q", u.Scheme)
	}

	if c.RPC.RequestsPerSecond < 0 {
		return fmt.Errorf("rpc.requests_per_second must not be negative")
	}

	if !common.IsHexAddress(c.Token.Address) {
		return fmt.Errorf("token.address: invalid address %q", c.Token.Address)
	}

	if c.Token.StartBlock == 0 {
		return fmt.Errorf("token.start_block must be at least 1")
	}

	if c.EventsPullInterval.Duration <= 0 {
		return fmt.Errorf("events_pull_interval must be positive")
	}

	if c.CatchUpInterval.Duration < 0 {
		return fmt.Errorf("catch_up_interval must not be negative")
	}

	return nil
}

// TokenAddress returns the parsed token address. Valid only after Validate.
func (c *ChainConfig) TokenAddress() common.Address {
	return common.HexToAddress(c.Token.Address)
}

// StorageConfig locates the per-chain persisted state.
type StorageConfig struct {
	// SnapshotDir holds one balance snapshot file per chain
	SnapshotDir string `yaml:"snapshot_dir" json:"snapshot_dir" toml:"snapshot_dir"`

	// SnapshotSuffix is appended to the chain id to form the snapshot file name
	SnapshotSuffix string `yaml:"snapshot_suffix" json:"snapshot_suffix" toml:"snapshot_suffix"`

	// TransfersDir holds the monthly transfer partitions of every chain
	TransfersDir string `yaml:"transfers_dir" json:"transfers_dir" toml:"transfers_dir"`

	// TransfersSuffix is appended to "{chain}-{YYYYMM}-" to form a partition file name
	TransfersSuffix string `yaml:"transfers_suffix" json:"transfers_suffix" toml:"transfers_suffix"`

	// DB holds the SQLite settings applied to every transfer partition
	DB DatabaseConfig `yaml:"db" json:"db" toml:"db"`
}

// ApplyDefaults sets default values for optional storage configuration fields.
func (s *StorageConfig) ApplyDefaults() {
	if s.SnapshotSuffix == "" {
		s.SnapshotSuffix = defaultSnapshotSuffix
	}
	if s.TransfersSuffix == "" {
		s.TransfersSuffix = defaultTransfersSuffix
	}

	s.DB.ApplyDefaults()
}

// Validate checks if the storage configuration is valid.
func (s *StorageConfig) Validate() error {
	if s.SnapshotDir == "" {
		return fmt.Errorf("snapshot_dir is required")
	}
	if s.TransfersDir == "" {
		return fmt.Errorf("transfers_dir is required")
	}

	if err := s.DB.Validate(); err != nil {
		return fmt.Errorf("db: %w", err)
	}

	return nil
}

// RetryConfig represents the RPC retry policy. The default multiplier of 1 yields a fixed
// delay between attempts.
type RetryConfig struct {
	// MaxAttempts is the maximum number of attempts (including initial request)
	MaxAttempts int `yaml:"max_attempts" json:"max_attempts" toml:"max_attempts"`

	// Delay is the wait before the first retry
	Delay internalcommon.Duration `yaml:"delay" json:"delay" toml:"delay"`

	// MaxDelay caps the wait between attempts
	MaxDelay internalcommon.Duration `yaml:"max_delay" json:"max_delay" toml:"max_delay"`

	// BackoffMultiplier grows the delay after every failed attempt
	BackoffMultiplier float64 `yaml:"backoff_multiplier" json:"backoff_multiplier" toml:"backoff_multiplier"`
}

// ApplyDefaults sets default values for retry configuration.
func (r *RetryConfig) ApplyDefaults() {
	if r.MaxAttempts == 0 {
		r.MaxAttempts = 2
	}
	if r.Delay.Duration == 0 {
		r.Delay = internalcommon.NewDuration(5 * time.Second) //nolint:mnd
	}
	if r.MaxDelay.Duration == 0 {
		r.MaxDelay = r.Delay
	}
	if r.BackoffMultiplier == 0 {
		r.BackoffMultiplier = 1.0
	}
}

// Validate checks if the retry configuration is valid.
func (r *RetryConfig) Validate() error {
	if r.MaxAttempts < 1 {
		return fmt.Errorf("max_attempts must be at least 1")
	}
	if r.BackoffMultiplier < 1 {
		return fmt.Errorf("backoff_multiplier must be at least 1")
	}
	if r.MaxDelay.Duration < r.Delay.Duration {
		return fmt.Errorf("max_delay must not be lower than delay")
	}

	return nil
}

// CacheConfig sizes the RPC response cache.
type CacheConfig struct {
	// BlockTimestamps is the number of (endpoint, block hash) timestamps kept
	BlockTimestamps int `yaml:"block_timestamps" json:"block_timestamps" toml:"block_timestamps"`

	// TokenMetadata is the number of (endpoint, token) decimals/symbol entries kept
	TokenMetadata int `yaml:"token_metadata" json:"token_metadata" toml:"token_metadata"`
}

// ApplyDefaults sets default values for cache configuration.
func (c *CacheConfig) ApplyDefaults() {
	if c.BlockTimestamps == 0 {
		c.BlockTimestamps = 100_000
	}
	if c.TokenMetadata == 0 {
		c.TokenMetadata = 64
	}
}

// Validate checks if the cache configuration is valid.
func (c *CacheConfig) Validate() error {
	if c.BlockTimestamps < 0 || c.TokenMetadata < 0 {
		return fmt.Errorf("cache sizes must not be negative")
	}

	return nil
}

// SupervisorConfig configures the worker supervisor.
type SupervisorConfig struct {
	// LivenessInterval is how often dead workers are detected and restarted
	LivenessInterval internalcommon.Duration `yaml:"liveness_interval" json:"liveness_interval" toml:"liveness_interval"`
}

// ApplyDefaults sets default values for supervisor configuration.
func (s *SupervisorConfig) ApplyDefaults() {
	if s.LivenessInterval.Duration == 0 {
		s.LivenessInterval = internalcommon.NewDuration(defaultLivenessInterval)
	}
}

// DatabaseConfig represents SQLite configuration.
type DatabaseConfig struct {
	// JournalMode sets the SQLite journal mode (e.g., "WAL", "DELETE")
	// WAL mode is recommended for better concurrency
	JournalMode string `yaml:"journal_mode" json:"journal_mode" toml:"journal_mode"`

	// Synchronous sets the synchronization level ("FULL", "NORMAL", "OFF")
	Synchronous string `yaml:"synchronous" json:"synchronous" toml:"synchronous"`

	// BusyTimeout is the time in milliseconds to wait when the database is locked
	BusyTimeout int `yaml:"busy_timeout" json:"busy_timeout" toml:"busy_timeout"`

	// CacheSize is the size of the page cache (negative = KB, positive = pages)
	CacheSize int `yaml:"cache_size" json:"cache_size" toml:"cache_size"`

	// MaxOpenConnections is the maximum number of open connections per partition
	MaxOpenConnections int `yaml:"max_open_connections" json:"max_open_connections" toml:"max_open_connections"`

	// MaxIdleConnections is the maximum number of idle connections per partition
	MaxIdleConnections int `yaml:"max_idle_connections" json:"max_idle_connections" toml:"max_idle_connections"`
}

// ApplyDefaults sets default values for optional database configuration fields.
func (d *DatabaseConfig) ApplyDefaults() {
	if d.JournalMode == "" {
		d.JournalMode = "WAL"
	}
	if d.Synchronous == "" {
		d.Synchronous = "FULL"
	}
	if d.BusyTimeout == 0 {
		d.BusyTimeout = 5000
	}
	if d.CacheSize == 0 {
		d.CacheSize = 2000
	}
	if d.MaxOpenConnections == 0 {
		d.MaxOpenConnections = 4
	}
	if d.MaxIdleConnections == 0 {
		d.MaxIdleConnections = 1
	}
}

// Validate checks the pragma values.
func (d *DatabaseConfig) Validate() error {
	if d.JournalMode != "" &&
		!slices.Contains([]string{"WAL", "DELETE", "TRUNCATE", "PERSIST", "MEMORY"}, d.JournalMode) {
		return fmt.Errorf("journal_mode must be one of: WAL, DELETE, TRUNCATE, PERSIST, MEMORY")
	}

	if d.Synchronous != "" && !slices.Contains([]string{"FULL", "NORMAL", "OFF"}, d.Synchronous) {
		return fmt.Errorf("synchronous must be one of: FULL, NORMAL, OFF")
	}

	return nil
}

// LoggingConfig configures logging behavior with per-component log levels.
type LoggingConfig struct {
	// DefaultLevel is the default log level for all components
	// Options: "debug", "info", "warn", "error"
	DefaultLevel string `yaml:"default_level" json:"default_level" toml:"default_level"`

	// Development enables development mode (stack traces, console encoder)
	Development bool `yaml:"development" json:"development" toml:"development"`

	// ComponentLevels sets log levels for specific components
	// Available components:
	//   - supervisor: Worker supervision and restarts
	//   - chain-worker: Per-chain polling state machine
	//   - coordinator: Poll cycles
	//   - transfer-fetcher: Transfer event retrieval
	//   - balance-ledger: Balance snapshot store
	//   - transfer-log: Transfer partitions
	//   - rpc: RPC client
	//   - api: Read API
	//   - metrics: Metrics server
	ComponentLevels map[string]string `yaml:"component_levels,omitempty" json:"component_levels,omitempty" toml:"component_levels,omitempty"` //nolint:lll
}

// ApplyDefaults sets default values for optional logging configuration fields.
func (l *LoggingConfig) ApplyDefaults() {
	if l.DefaultLevel == "" {
		l.DefaultLevel = "info"
	}
	// Development defaults to false (zero value)
	if l.ComponentLevels == nil {
		l.ComponentLevels = make(map[string]string)
	}
}

// Validate checks if the logging configuration is valid.
func (l *LoggingConfig) Validate() error {
	if l.DefaultLevel != "" {
		if _, valid := logger.ValidLogLevels[internalcommon.ToLowerWithTrim(l.DefaultLevel)]; !valid {
			return fmt.Errorf("logging.default_level: must be one of: debug, info, warn, error")
		}
	}

	for component, level := range l.ComponentLevels {
		if _, validComponent := internalcommon.AllComponents[internalcommon.ToLowerWithTrim(component)]; !validComponent {
			return fmt.Errorf("logging.component_levels: unknown component '%s'", component)
		}

		if _, valid := logger.ValidLogLevels[internalcommon.ToLowerWithTrim(level)]; !valid {
			return fmt.Errorf("logging.component_levels[%s]: must be one of: debug, info, warn, error", component)
		}
	}

	return nil
}

// GetComponentLevel returns the log level for a specific component.
// Falls back to DefaultLevel if no component-specific level is set.
func (l *LoggingConfig) GetComponentLevel(component string) string {
	if level, ok := l.ComponentLevels[component]; ok {
		return internalcommon.ToLowerWithTrim(level)
	}
	return internalcommon.ToLowerWithTrim(l.DefaultLevel)
}

// GetDefaultLevel returns the default log level.
func (l *LoggingConfig) GetDefaultLevel() string {
	return internalcommon.ToLowerWithTrim(l.DefaultLevel)
}

// IsDevelopment returns whether development mode is enabled.
func (l *LoggingConfig) IsDevelopment() bool {
	return l.Development
}

// MetricsConfig configures Prometheus metrics exposition.
type MetricsConfig struct {
	// Enabled controls whether metrics collection and HTTP endpoint are active
	Enabled bool `yaml:"enabled" json:"enabled" toml:"enabled"`

	// ListenAddress is the address to bind the metrics HTTP server to
	// Format: "host:port" or ":port"
	ListenAddress string `yaml:"listen_address" json:"listen_address" toml:"listen_address"`

	// Path is the HTTP path where metrics are exposed
	Path string `yaml:"path" json:"path" toml:"path"`
}

// ApplyDefaults sets default values for optional metrics configuration fields.
func (m *MetricsConfig) ApplyDefaults() {
	if m.ListenAddress == "" {
		m.ListenAddress = ":9090"
	}
	if m.Path == "" {
		m.Path = "/metrics"
	}
}

// Validate checks if the metrics configuration is valid.
func (m *MetricsConfig) Validate() error {
	if m.Enabled {
		if m.ListenAddress == "" {
			return fmt.Errorf("listen_address is required when metrics are enabled")
		}
		if m.Path == "" {
			return fmt.Errorf("path is required when metrics are enabled")
		}
		if m.Path[0] != '/' {
			return fmt.Errorf("path must start with '/'")
		}
	}
	return nil
}

// APIConfig configures the read API server.
type APIConfig struct {
	// Enabled controls whether the API server is started
	Enabled bool `yaml:"enabled" json:"enabled" toml:"enabled"`

	// ListenAddress is the address to bind the API server to
	ListenAddress string `yaml:"listen_address" json:"listen_address" toml:"listen_address"`

	// ReadTimeout is the maximum duration for reading a request
	ReadTimeout internalcommon.Duration `yaml:"read_timeout" json:"read_timeout" toml:"read_timeout"`

	// WriteTimeout is the maximum duration before timing out a response write
	WriteTimeout internalcommon.Duration `yaml:"write_timeout" json:"write_timeout" toml:"write_timeout"`

	// IdleTimeout is the keep-alive timeout
	IdleTimeout internalcommon.Duration `yaml:"idle_timeout" json:"idle_timeout" toml:"idle_timeout"`

	// CORS configures cross-origin requests
	CORS CORSConfig `yaml:"cors" json:"cors" toml:"cors"`
}

// CORSConfig configures cross-origin resource sharing.
type CORSConfig struct {
	Enabled        bool     `yaml:"enabled" json:"enabled" toml:"enabled"`
	AllowedOrigins []string `yaml:"allowed_origins" json:"allowed_origins" toml:"allowed_origins"`
}

// ApplyDefaults sets default values for optional API configuration fields.
func (a *APIConfig) ApplyDefaults() {
	if a.ListenAddress == "" {
		a.ListenAddress = ":8080"
	}
	if a.ReadTimeout.Duration == 0 {
		a.ReadTimeout = internalcommon.NewDuration(15 * time.Second) //nolint:mnd
	}
	if a.WriteTimeout.Duration == 0 {
		a.WriteTimeout = internalcommon.NewDuration(15 * time.Second) //nolint:mnd
	}
	if a.IdleTimeout.Duration == 0 {
		a.IdleTimeout = internalcommon.NewDuration(60 * time.Second) //nolint:mnd
	}
	if a.CORS.Enabled && len(a.CORS.AllowedOrigins) == 0 {
		a.CORS.AllowedOrigins = []string{"*"}
	}
}

// Validate checks if the API configuration is valid.
func (a *APIConfig) Validate() error {
	if a.Enabled && a.ListenAddress == "" {
		return fmt.Errorf("listen_address is required when the API is enabled")
	}
	return nil
}

// ApplyDefaults sets default values for optional configuration fields.
// Optional sections are always materialized so callers never deal with nil sections.
func (c *Config) ApplyDefaults() {
	for i := range c.Chains {
		c.Chains[i].ApplyDefaults()
	}

	c.Storage.ApplyDefaults()

	if c.Retry == nil {
		c.Retry = &RetryConfig{}
	}
	c.Retry.ApplyDefaults()

	if c.Cache == nil {
		c.Cache = &CacheConfig{}
	}
	c.Cache.ApplyDefaults()

	if c.Supervisor == nil {
		c.Supervisor = &SupervisorConfig{}
	}
	c.Supervisor.ApplyDefaults()

	if c.Logging == nil {
		c.Logging = &LoggingConfig{}
	}
	c.Logging.ApplyDefaults()

	if c.Metrics == nil {
		c.Metrics = &MetricsConfig{}
	}
	c.Metrics.ApplyDefaults()

	if c.API == nil {
		c.API = &APIConfig{}
	}
	c.API.ApplyDefaults()
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if len(c.Chains) == 0 {
		return fmt.Errorf("at least one chain must be configured")
	}

	ids := make(map[string]bool, len(c.Chains))
	for i := range c.Chains {
		chain := &c.Chains[i]
		if err := chain.Validate(); err != nil {
			return fmt.Errorf("chains[%d] (%s): %w", i, chain.ID, err)
		}

		if ids[chain.ID] {
			return fmt.Errorf("chains[%d]: duplicate chain id '%s'", i, chain.ID)
		}
		ids[chain.ID] = true
	}

	if err := c.Storage.Validate(); err != nil {
		return fmt.Errorf("storage: %w", err)
	}

	if c.Retry != nil {
		if err := c.Retry.Validate(); err != nil {
			return fmt.Errorf("retry: %w", err)
		}
	}

	if c.Cache != nil {
		if err := c.Cache.Validate(); err != nil {
			return fmt.Errorf("cache: %w", err)
		}
	}

	if c.Supervisor != nil && c.Supervisor.LivenessInterval.Duration <= 0 {
		return fmt.Errorf("supervisor.liveness_interval must be positive")
	}

	if c.Logging != nil {
		if err := c.Logging.Validate(); err != nil {
			return err
		}
	}

	if c.Metrics != nil {
		if err := c.Metrics.Validate(); err != nil {
			return fmt.Errorf("metrics: %w", err)
		}
	}

	if c.API != nil {
		if err := c.API.Validate(); err != nil {
			return fmt.Errorf("api: %w", err)
		}
	}

	return nil
}

// Chain returns the configuration of the chain with the given id.
func (c *Config) Chain(id string) (*ChainConfig, bool) {
	for i := range c.Chains {
		if c.Chains[i].ID == id {
			return &c.Chains[i], true
		}
	}
	return nil, false
}
