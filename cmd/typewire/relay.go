package main

import (
	"context"
	stderrors "errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"github.com/typewire-dev/typewire/internal/config"
	"github.com/typewire-dev/typewire/internal/errors"
	"github.com/typewire-dev/typewire/pkg/relay"
	"github.com/typewire-dev/typewire/pkg/telemetry"
)

func relayCmd(configPath *string) *cobra.Command {
	var (
		addr  string
		topic string
	)

	cmd := &cobra.Command{
		Use:   "relay",
		Short: "Run a relay server",
		Long: `Run a relay that assigns participant ids and broadcasts every
frame to every connection.

Endpoints:
  GET  /ws       WebSocket (path from relay.path)
  POST /topic    set the topic to the request body
  GET  /healthz  health check
  GET  /metrics  Prometheus metrics

Examples:
  typewire relay
  typewire relay --addr=0.0.0.0:9270 --topic="standup"
  TYPEWIRE_RELAY_ADDR=:8080 typewire relay`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Resolve(*configPath)
			if err != nil {
				return err
			}
			if addr != "" {
				cfg.Relay.Addr = addr
			}
			if cmd.Flags().Changed("topic") {
				cfg.Relay.Topic = topic
			}
			return runRelay(cmd.Context(), cfg)
		},
	}

	cmd.Flags().StringVarP(&addr, "addr", "a", "", "Address to listen on (default from typewire.json)")
	cmd.Flags().StringVarP(&topic, "topic", "t", "", "Initial topic")

	return cmd
}

func runRelay(ctx context.Context, cfg *config.Config) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger := newLogger(cfg.Log, os.Stderr)

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	hub := relay.NewHub(relay.Config{
		Path:           cfg.Relay.Path,
		Topic:          cfg.Relay.Topic,
		SendQueue:      cfg.Relay.SendQueue,
		WriteTimeout:   cfg.Relay.WriteTimeout.Std(),
		MaxFrameSize:   cfg.Relay.MaxFrameSize,
		AllowedOrigins: cfg.Relay.AllowedOrigins,
	},
		relay.WithLogger(logger),
		relay.WithMetrics(telemetry.NewMetrics(
			telemetry.WithRegistry(reg),
			telemetry.WithConstLabels(prometheus.Labels{"version": version}),
		)),
		relay.WithGatherer(reg),
		relay.WithTracer(telemetry.Tracer("typewire/relay")),
	)

	ln, err := net.Listen("tcp", cfg.Relay.Addr)
	if err != nil {
		return errors.New("T010").WithDetailf("listen %s", cfg.Relay.Addr).Wrap(err)
	}
	srv := &http.Server{
		Handler:           hub.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	hubCtx, cancelHub := context.WithCancel(ctx)
	defer cancelHub()
	go hub.Run(hubCtx)

	serveErr := make(chan error, 1)
	go func() { serveErr <- srv.Serve(ln) }()

	printBanner()
	success("Relay listening on ws://%s%s", ln.Addr(), cfg.Relay.Path)
	info("Topic: %q", cfg.Relay.Topic)
	if path := cfg.Path(); path != "" {
		info("Config: %s", path)
	}
	fmt.Println()

	select {
	case <-ctx.Done():
		fmt.Println("\n  Shutting down...")
	case err := <-serveErr:
		cancelHub()
		<-hub.Done()
		return errors.New("T010").Wrap(err)
	}

	// Close WebSocket connections first; Shutdown does not wait for
	// hijacked connections.
	cancelHub()
	<-hub.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil && !stderrors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
