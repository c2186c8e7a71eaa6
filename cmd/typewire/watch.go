package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gorilla/websocket"
	"github.com/spf13/cobra"

	"github.com/typewire-dev/typewire/internal/config"
	"github.com/typewire-dev/typewire/internal/errors"
	"github.com/typewire-dev/typewire/pkg/client"
	"github.com/typewire-dev/typewire/pkg/session"
	"github.com/typewire-dev/typewire/pkg/telemetry"
)

func watchCmd(configPath *string) *cobra.Command {
	var url string

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Follow a conversation",
		Long: `Connect to a relay and print the conversation every time it changes.

Examples:
  typewire watch
  typewire watch --url=ws://chat.example:9270/ws`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Resolve(*configPath)
			if err != nil {
				return err
			}
			if url != "" {
				cfg.Client.URL = url
			}
			return runWatch(cmd.Context(), cfg, os.Stdout)
		},
	}

	cmd.Flags().StringVarP(&url, "url", "u", "", "Relay WebSocket URL (default from typewire.json)")

	return cmd
}

func runWatch(ctx context.Context, cfg *config.Config, w io.Writer) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger := newLogger(cfg.Log, os.Stderr)
	sess := session.New(session.WithLogger(logger))
	c, err := dialClient(ctx, cfg, sess, logger)
	if err != nil {
		return err
	}
	defer c.Close()

	// Keep only the latest snapshot; rendering may lag behind typing.
	changes := make(chan session.Snapshot, 1)
	unsubscribe := sess.OnChange(func(snap session.Snapshot) {
		select {
		case <-changes:
		default:
		}
		changes <- snap
	})
	defer unsubscribe()

	c.Start()
	success("Watching %s", cfg.Client.URL)

	for {
		select {
		case snap := <-changes:
			fmt.Fprintln(w, styleMuted.Sprintf("── latency %s", c.Latency()))
			renderSnapshot(w, snap)
			fmt.Fprintln(w)
		case <-c.Closed():
			// The session now holds every frame the relay sent.
			renderSnapshot(w, sess.Current())
			fmt.Fprintln(w)
			warn("Relay closed the connection")
			return nil
		case <-ctx.Done():
			return nil
		}
	}
}

// dialClient connects a client configured from cfg.
func dialClient(ctx context.Context, cfg *config.Config, sess *session.Session, logger *slog.Logger) (*client.Client, error) {
	ccfg := client.Config{
		URL:          cfg.Client.URL,
		QueueSize:    cfg.Client.QueueSize,
		PingInterval: cfg.Client.PingInterval.Std(),
		WriteTimeout: cfg.Client.WriteTimeout.Std(),
	}
	dialer := &websocket.Dialer{
		Proxy:            http.ProxyFromEnvironment,
		HandshakeTimeout: cfg.Client.WriteTimeout.Std(),
	}
	c, err := client.Dial(ctx, ccfg, sess,
		client.WithLogger(logger),
		client.WithDialer(dialer),
		client.WithTracer(telemetry.Tracer("typewire/client")),
	)
	if err != nil {
		return nil, errors.New("T011").WithDetailf("dial %s", cfg.Client.URL).Wrap(err)
	}
	return c, nil
}
