package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate checks that all required fields are set and values are valid.
func (c *BridgeConfig) Validate() error {
	if c.Instance.ID == "" {
		return errors.New("instance.id is required")
	}

	if c.Endpoint.URL == "" {
		return errors.New("endpoint.url is required")
	}
	if !strings.HasPrefix(c.Endpoint.URL, "ws://") && !strings.HasPrefix(c.Endpoint.URL, "wss://") {
		return fmt.Errorf("endpoint.url must be a ws:// or wss:// URL, got %q", c.Endpoint.URL)
	}

	if c.Channel.PongTimeout >= c.Channel.PingInterval {
		return fmt.Errorf("channel.pong_timeout (%v) must be shorter than ping_interval (%v)",
			c.Channel.PongTimeout, c.Channel.PingInterval)
	}
	if c.Channel.FailureLimit < 1 {
		return errors.New("channel.failure_limit must be >= 1")
	}
	if c.Channel.QueueCapacity < 1 {
		return errors.New("channel.queue_capacity must be >= 1")
	}
	if c.Channel.QueuePriorityAllowance < 0 {
		return errors.New("channel.queue_priority_allowance must be >= 0")
	}
	if c.Channel.ReconnectBaseDelay > c.Channel.ReconnectMaxDelay {
		return fmt.Errorf("channel.reconnect_base_delay (%v) cannot exceed reconnect_max_delay (%v)",
			c.Channel.ReconnectBaseDelay, c.Channel.ReconnectMaxDelay)
	}

	if c.Adaptive.Enabled {
		switch c.Adaptive.NetworkType {
		case "", "slow-2g", "2g", "3g", "4g":
		default:
			return fmt.Errorf("adaptive.network_type must be one of slow-2g, 2g, 3g, 4g, got %q", c.Adaptive.NetworkType)
		}
		if c.Adaptive.BatteryLevel > 1 {
			return fmt.Errorf("adaptive.battery_level must be <= 1, got %v", c.Adaptive.BatteryLevel)
		}
	}

	if c.Journal.Enabled {
		if c.Journal.BatchSize < 1 {
			return errors.New("journal.batch_size must be >= 1")
		}
		if c.Journal.BufferSize < 1 {
			return errors.New("journal.buffer_size must be >= 1")
		}
		if err := c.Database.validate("database"); err != nil {
			return err
		}
	}

	if c.Metrics.Port < 1 || c.Metrics.Port > 65535 {
		return fmt.Errorf("metrics.port must be between 1 and 65535, got %d", c.Metrics.Port)
	}

	return nil
}

func (db *DBConfig) validate(prefix string) error {
	if db.Host == "" {
		return fmt.Errorf("%s.host is required", prefix)
	}
	if db.Name == "" {
		return fmt.Errorf("%s.name is required", prefix)
	}
	if db.User == "" {
		return fmt.Errorf("%s.user is required", prefix)
	}
	if db.Password == "" {
		return fmt.Errorf("%s.password is required", prefix)
	}
	if db.MaxConns < 1 {
		return fmt.Errorf("%s.max_conns must be >= 1", prefix)
	}
	if db.MinConns < 0 {
		return fmt.Errorf("%s.min_conns must be >= 0", prefix)
	}
	if db.MinConns > db.MaxConns {
		return fmt.Errorf("%s.min_conns (%d) cannot exceed max_conns (%d)", prefix, db.MinConns, db.MaxConns)
	}
	return nil
}
