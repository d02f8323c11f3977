package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/fikri2992/remote-coding-extension-sub009/internal/backoff"
	"github.com/fikri2992/remote-coding-extension-sub009/internal/channel"
	"github.com/fikri2992/remote-coding-extension-sub009/internal/config"
	"github.com/fikri2992/remote-coding-extension-sub009/internal/database"
	"github.com/fikri2992/remote-coding-extension-sub009/internal/envelope"
	"github.com/fikri2992/remote-coding-extension-sub009/internal/health"
	"github.com/fikri2992/remote-coding-extension-sub009/internal/journal"
	"github.com/fikri2992/remote-coding-extension-sub009/internal/metrics"
	"github.com/fikri2992/remote-coding-extension-sub009/internal/mobile"
	"github.com/fikri2992/remote-coding-extension-sub009/internal/version"
)

func main() {
	configPath := flag.String("config", "configs/bridge.local.yaml", "path to config file")
	showVersion := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println(version.String())
		return
	}

	// Set up structured logging
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))
	slog.SetDefault(logger)

	logger.Info("starting bridge",
		"version", version.Version,
		"commit", version.Commit,
		"config", *configPath,
	)

	// Load configuration
	cfg, err := config.LoadAndValidate(*configPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger.Info("configuration loaded",
		"instance_id", cfg.Instance.ID,
		"endpoint", cfg.Endpoint.URL,
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Info("received shutdown signal", "signal", sig)
		cancel()
	}()

	// Metrics registry
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	m := metrics.New(metrics.Config{
		Registry:    registry,
		ConstLabels: prometheus.Labels{"instance": cfg.Instance.ID},
	})

	// Traffic journal (optional)
	var jw *journal.Writer
	if cfg.Journal.Enabled {
		logger.Info("connecting to database",
			"host", cfg.Database.Host,
			"port", cfg.Database.Port,
			"database", cfg.Database.Name,
		)
		pool, err := database.Connect(ctx, cfg.Database)
		if err != nil {
			logger.Error("failed to connect to database", "error", err)
			os.Exit(1)
		}
		defer pool.Close()

		buf := journal.NewBuffer(cfg.Journal.BufferSize)
		jw = journal.NewWriter(cfg.Journal, buf, pool, logger)
		if err := jw.Start(ctx); err != nil {
			logger.Error("failed to start journal writer", "error", err)
			os.Exit(1)
		}
		logger.Info("traffic journal enabled")
	}

	// Channel
	chCfg := channelConfig(cfg)
	if cfg.Adaptive.Enabled {
		adapter := mobile.New(mobile.Config{}, adaptiveSignals(cfg.Adaptive), adaptiveSignals(cfg.Adaptive))
		chCfg = adapter.Apply(chCfg)
		logger.Info("mobile adaptation enabled",
			"network_type", cfg.Adaptive.NetworkType,
			"battery_level", cfg.Adaptive.BatteryLevel,
		)
	}
	ch := channel.New(chCfg, logger)

	wireObservers(ch, m, jw, logger)

	if err := ch.Connect(ctx); err != nil {
		logger.Error("failed to start channel", "error", err)
		os.Exit(1)
	}

	// Status and metrics server
	router := chi.NewRouter()
	router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		h := ch.Health()
		w.Header().Set("Content-Type", "application/json")
		if !h.Healthy && ch.State() == channel.StateConnected {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
		json.NewEncoder(w).Encode(map[string]any{
			"state":   ch.State(),
			"healthy": h.Healthy,
		})
	})
	router.Get("/status", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(ch.ConnectionInfo())
	})
	router.Method(http.MethodGet, cfg.Metrics.Path,
		promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))

	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Metrics.Port),
		Handler: router,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("starting status server", "port", cfg.Metrics.Port)
		if err := server.ListenAndServe(); err != http.ErrServerClosed {
			return fmt.Errorf("status server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		return server.Shutdown(shutdownCtx)
	})

	// Gauge sampler
	g.Go(func() error {
		ticker := time.NewTicker(5 * time.Second)
		defer ticker.Stop()
		var lastDropped int64
		for {
			select {
			case <-gctx.Done():
				return nil
			case <-ticker.C:
				m.QueueDepth.Set(float64(ch.QueueDepth()))
				m.ConnectionState.Set(metrics.StateValue(string(ch.State())))
				if d := ch.QueueDropped(); d > lastDropped {
					m.MessagesDropped.Add(float64(d - lastDropped))
					lastDropped = d
				}
			}
		}
	})

	logger.Info("bridge running",
		"instance_id", cfg.Instance.ID,
		"status_url", fmt.Sprintf("http://localhost:%d/status", cfg.Metrics.Port),
	)

	if err := g.Wait(); err != nil {
		logger.Error("bridge terminated", "error", err)
	}

	logger.Info("shutting down...")
	ch.Disconnect()
	if jw != nil {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		jw.Stop(shutdownCtx)
	}

	logger.Info("bridge stopped")
}

// channelConfig maps the file configuration onto the channel's runtime config.
func channelConfig(cfg *config.BridgeConfig) channel.Config {
	return channel.Config{
		URL:                    cfg.Endpoint.URL,
		Token:                  cfg.Endpoint.Token,
		DialTimeout:            cfg.Endpoint.DialTimeout,
		WriteTimeout:           cfg.Endpoint.WriteTimeout,
		ResponseTimeout:        cfg.Endpoint.ResponseTimeout,
		QueueCapacity:          cfg.Channel.QueueCapacity,
		QueuePriorityAllowance: cfg.Channel.QueuePriorityAllowance,
		PriorityTypes:          cfg.Channel.PriorityTypes,
		Backoff: backoff.Policy{
			Base:        cfg.Channel.ReconnectBaseDelay,
			Max:         cfg.Channel.ReconnectMaxDelay,
			MaxAttempts: cfg.Channel.ReconnectMaxAttempts,
		},
		Heartbeat: health.Config{
			PingInterval:  cfg.Channel.PingInterval,
			CheckInterval: cfg.Channel.CheckInterval,
			PongTimeout:   cfg.Channel.PongTimeout,
			FailureLimit:  cfg.Channel.FailureLimit,
		},
	}
}

// adaptiveSignals pins the link profile from configuration.
func adaptiveSignals(cfg config.AdaptiveConfig) mobile.StaticSignals {
	return mobile.StaticSignals{
		Net:      mobile.NetworkStatus{EffectiveType: cfg.NetworkType},
		HasNet:   cfg.NetworkType != "",
		Level:    cfg.BatteryLevel,
		HasLevel: cfg.BatteryLevel >= 0,
	}
}

// wireObservers connects the channel's hooks to metrics and the journal.
func wireObservers(ch *channel.Channel, m *metrics.Metrics, jw *journal.Writer, logger *slog.Logger) {
	ch.OnConnect(func() {
		m.ConnectionState.Set(metrics.StateValue(string(channel.StateConnected)))
	})
	ch.OnDisconnect(func() {
		state := ch.State()
		m.ConnectionState.Set(metrics.StateValue(string(state)))
		if state == channel.StateReconnecting {
			m.Reconnects.Inc()
		}
	})
	ch.OnError(func(err error) {
		m.ChannelErrors.Inc()
		logger.Warn("channel error", "error", err)
	})
	ch.OnHealthChange(func(h health.Health) {
		if h.Healthy {
			m.Healthy.Set(1)
		} else {
			m.Healthy.Set(0)
		}
		m.LatencyMillis.Set(float64(h.Latency.Milliseconds()))
	})
	ch.OnMessage(func(env envelope.Envelope) {
		m.MessagesReceived.Inc()
		if jw != nil {
			jw.Capture(journal.DirectionInbound, env)
		}
	})
	ch.OnSend(func(env envelope.Envelope) {
		m.MessagesSent.Inc()
		if jw != nil {
			jw.Capture(journal.DirectionOutbound, env)
		}
	})
}
