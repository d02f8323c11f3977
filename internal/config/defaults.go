package config

import "time"

// Default values for optional configuration fields.
const (
	DefaultDialTimeout     = 10 * time.Second
	DefaultWriteTimeout    = 5 * time.Second
	DefaultResponseTimeout = 30 * time.Second

	DefaultPingInterval  = 15 * time.Second
	DefaultCheckInterval = 5 * time.Second
	DefaultPongTimeout   = 10 * time.Second
	DefaultFailureLimit  = 3

	DefaultQueueCapacity          = 100
	DefaultQueuePriorityAllowance = 20

	DefaultReconnectBaseDelay   = 1 * time.Second
	DefaultReconnectMaxDelay    = 30 * time.Second
	DefaultReconnectMaxAttempts = 10

	DefaultJournalBatchSize     = 500
	DefaultJournalFlushInterval = 1 * time.Second
	DefaultJournalBufferSize    = 5000

	DefaultDBPort    = 5432
	DefaultDBSSLMode = "prefer"
	DefaultMaxConns  = 10
	DefaultMinConns  = 2

	DefaultMetricsPort = 9090
	DefaultMetricsPath = "/metrics"
)

func (c *BridgeConfig) applyDefaults() {
	// Endpoint defaults
	if c.Endpoint.DialTimeout == 0 {
		c.Endpoint.DialTimeout = DefaultDialTimeout
	}
	if c.Endpoint.WriteTimeout == 0 {
		c.Endpoint.WriteTimeout = DefaultWriteTimeout
	}
	if c.Endpoint.ResponseTimeout == 0 {
		c.Endpoint.ResponseTimeout = DefaultResponseTimeout
	}

	// Channel defaults
	if c.Channel.PingInterval == 0 {
		c.Channel.PingInterval = DefaultPingInterval
	}
	if c.Channel.CheckInterval == 0 {
		c.Channel.CheckInterval = DefaultCheckInterval
	}
	if c.Channel.PongTimeout == 0 {
		c.Channel.PongTimeout = DefaultPongTimeout
	}
	if c.Channel.FailureLimit == 0 {
		c.Channel.FailureLimit = DefaultFailureLimit
	}
	if c.Channel.QueueCapacity == 0 {
		c.Channel.QueueCapacity = DefaultQueueCapacity
	}
	if c.Channel.QueuePriorityAllowance == 0 {
		c.Channel.QueuePriorityAllowance = DefaultQueuePriorityAllowance
	}
	if c.Channel.ReconnectBaseDelay == 0 {
		c.Channel.ReconnectBaseDelay = DefaultReconnectBaseDelay
	}
	if c.Channel.ReconnectMaxDelay == 0 {
		c.Channel.ReconnectMaxDelay = DefaultReconnectMaxDelay
	}
	if c.Channel.ReconnectMaxAttempts == 0 {
		c.Channel.ReconnectMaxAttempts = DefaultReconnectMaxAttempts
	}

	// Journal defaults
	if c.Journal.BatchSize == 0 {
		c.Journal.BatchSize = DefaultJournalBatchSize
	}
	if c.Journal.FlushInterval == 0 {
		c.Journal.FlushInterval = DefaultJournalFlushInterval
	}
	if c.Journal.BufferSize == 0 {
		c.Journal.BufferSize = DefaultJournalBufferSize
	}

	// Database defaults
	if c.Database.Port == 0 {
		c.Database.Port = DefaultDBPort
	}
	if c.Database.SSLMode == "" {
		c.Database.SSLMode = DefaultDBSSLMode
	}
	if c.Database.MaxConns == 0 {
		c.Database.MaxConns = DefaultMaxConns
	}
	if c.Database.MinConns == 0 {
		c.Database.MinConns = DefaultMinConns
	}

	// Metrics defaults
	if c.Metrics.Port == 0 {
		c.Metrics.Port = DefaultMetricsPort
	}
	if c.Metrics.Path == "" {
		c.Metrics.Path = DefaultMetricsPath
	}
}
