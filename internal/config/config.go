package config

import "time"

// BridgeConfig is the root configuration for the bridge daemon.
type BridgeConfig struct {
	Instance InstanceConfig `yaml:"instance"`
	Endpoint EndpointConfig `yaml:"endpoint"`
	Channel  ChannelConfig  `yaml:"channel"`
	Adaptive AdaptiveConfig `yaml:"adaptive"`
	Journal  JournalConfig  `yaml:"journal"`
	Database DBConfig       `yaml:"database"`
	Metrics  MetricsConfig  `yaml:"metrics"`
}

// InstanceConfig identifies this bridge instance.
type InstanceConfig struct {
	ID string `yaml:"id"`
}

// EndpointConfig describes the remote endpoint.
type EndpointConfig struct {
	// URL is the WebSocket endpoint (e.g. wss://host/channel).
	URL string `yaml:"url"`

	// Token, when set, is sent as a bearer Authorization header on dial.
	Token string `yaml:"token"`

	DialTimeout     time.Duration `yaml:"dial_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	ResponseTimeout time.Duration `yaml:"response_timeout"`
}

// ChannelConfig tunes the connection manager.
type ChannelConfig struct {
	// Heartbeat cadence and failure detection.
	PingInterval  time.Duration `yaml:"ping_interval"`
	CheckInterval time.Duration `yaml:"check_interval"`
	PongTimeout   time.Duration `yaml:"pong_timeout"`
	FailureLimit  int           `yaml:"failure_limit"`

	// Outbound queue bounds.
	QueueCapacity          int      `yaml:"queue_capacity"`
	QueuePriorityAllowance int      `yaml:"queue_priority_allowance"`
	PriorityTypes          []string `yaml:"priority_types"`

	// Reconnection backoff.
	ReconnectBaseDelay   time.Duration `yaml:"reconnect_base_delay"`
	ReconnectMaxDelay    time.Duration `yaml:"reconnect_max_delay"`
	ReconnectMaxAttempts int           `yaml:"reconnect_max_attempts"`
}

// AdaptiveConfig enables the mobile adaptation layer with a pinned link
// profile. Deployments with live signals wire providers in code instead.
type AdaptiveConfig struct {
	Enabled bool `yaml:"enabled"`

	// NetworkType pins the effective network type ("slow-2g".."4g").
	NetworkType string `yaml:"network_type"`

	// BatteryLevel pins the battery reading in [0, 1]; negative means
	// no battery signal.
	BatteryLevel float64 `yaml:"battery_level"`
}

// JournalConfig tunes the traffic journal.
type JournalConfig struct {
	Enabled       bool          `yaml:"enabled"`
	BatchSize     int           `yaml:"batch_size"`
	FlushInterval time.Duration `yaml:"flush_interval"`
	BufferSize    int           `yaml:"buffer_size"`
}

// DBConfig describes the journal's PostgreSQL store.
type DBConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Name     string `yaml:"name"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	SSLMode  string `yaml:"ssl_mode"`
	MaxConns int    `yaml:"max_conns"`
	MinConns int    `yaml:"min_conns"`
}

// MetricsConfig describes the status/metrics HTTP server.
type MetricsConfig struct {
	Port int    `yaml:"port"`
	Path string `yaml:"path"`
}
