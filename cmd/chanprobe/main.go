// chanprobe connects to a channel endpoint and streams received envelopes to
// the console. Usage: go run ./cmd/chanprobe --url wss://host/channel
//
// With --probe, it periodically sends a request envelope and prints the
// correlated response, exercising the full request/response path.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fikri2992/remote-coding-extension-sub009/internal/channel"
	"github.com/fikri2992/remote-coding-extension-sub009/internal/envelope"
	"github.com/fikri2992/remote-coding-extension-sub009/internal/health"
)

func main() {
	url := flag.String("url", "", "channel endpoint (ws:// or wss://)")
	token := flag.String("token", "", "bearer token for the dial handshake")
	probe := flag.String("probe", "", "message type to send periodically with a correlation id")
	interval := flag.Duration("interval", 10*time.Second, "probe interval")
	verbose := flag.Bool("verbose", false, "print full envelope JSON")
	flag.Parse()

	// Setup logger
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))

	if *url == "" {
		logger.Error("--url is required")
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		logger.Info("received shutdown signal")
		cancel()
	}()

	cfg := channel.DefaultConfig(*url)
	cfg.Token = *token
	ch := channel.New(cfg, logger)

	ch.OnConnect(func() {
		logger.Info("connected", "url", *url)
	})
	ch.OnDisconnect(func() {
		logger.Info("disconnected", "state", ch.State())
	})
	ch.OnError(func(err error) {
		logger.Warn("channel error", "error", err)
	})
	ch.OnHealthChange(func(h health.Health) {
		logger.Info("health changed", "healthy", h.Healthy, "latency", h.Latency)
	})
	ch.OnMessage(func(env envelope.Envelope) {
		if *verbose {
			data, _ := json.MarshalIndent(env, "", "  ")
			fmt.Printf("[MESSAGE] %s\n", data)
		} else {
			fmt.Printf("[MESSAGE] type=%s id=%s bytes=%d ts=%d\n",
				env.Type, env.ID, len(env.Data), env.Timestamp)
		}
	})

	if err := ch.Connect(ctx); err != nil {
		logger.Error("failed to start channel", "error", err)
		os.Exit(1)
	}

	// Probe loop
	if *probe != "" {
		go func() {
			ticker := time.NewTicker(*interval)
			defer ticker.Stop()
			for {
				select {
				case <-ctx.Done():
					return
				case <-ticker.C:
					env, err := envelope.New(*probe, nil)
					if err != nil {
						logger.Error("build probe envelope", "error", err)
						continue
					}
					start := time.Now()
					data, err := ch.SendWithResponse(ctx, env, 0)
					if err != nil {
						logger.Warn("probe failed", "type", *probe, "error", err)
						continue
					}
					fmt.Printf("[RESPONSE] type=%s rtt=%s data=%s\n",
						*probe, time.Since(start).Round(time.Millisecond), data)
				}
			}
		}()
	}

	// Stats printer
	go func() {
		ticker := time.NewTicker(10 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				info := ch.ConnectionInfo()
				logger.Info("stats",
					"state", info.State,
					"attempt", info.Attempt,
					"queue_depth", info.QueueDepth,
					"healthy", info.Health.Healthy,
					"latency", info.Health.Latency,
				)
			}
		}
	}()

	logger.Info("streaming started - press Ctrl+C to stop")

	// Wait for shutdown
	<-ctx.Done()

	logger.Info("shutting down...")
	ch.Disconnect()
	logger.Info("shutdown complete")
}
