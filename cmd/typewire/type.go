package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/typewire-dev/typewire/internal/config"
	"github.com/typewire-dev/typewire/internal/errors"
	"github.com/typewire-dev/typewire/pkg/client"
	"github.com/typewire-dev/typewire/pkg/session"
)

// maxLine is the longest line sent; offsets are 16 bits.
const maxLine = 1<<16 - 1

func typeCmd(configPath *string) *cobra.Command {
	var (
		url   string
		name  string
		color uint8
		delay time.Duration
	)

	cmd := &cobra.Command{
		Use:   "type",
		Short: "Send stdin lines as live messages",
		Long: `Connect to a relay and send each line of standard input as one
message, one keystroke at a time.

Examples:
  typewire type --name=Al
  echo "hello" | typewire type --delay=0
  fortune | typewire type --color=9`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Resolve(*configPath)
			if err != nil {
				return err
			}
			if url != "" {
				cfg.Client.URL = url
			}
			if name != "" {
				cfg.Client.Name = name
			}
			if cmd.Flags().Changed("color") {
				cfg.Client.Color = color
			}
			return runType(cmd.Context(), cfg, os.Stdin, delay)
		},
	}

	cmd.Flags().StringVarP(&url, "url", "u", "", "Relay WebSocket URL (default from typewire.json)")
	cmd.Flags().StringVarP(&name, "name", "n", "", "Participant name (default from typewire.json)")
	cmd.Flags().Uint8Var(&color, "color", 0, "Participant color")
	cmd.Flags().DurationVarP(&delay, "delay", "d", 40*time.Millisecond, "Pause between keystrokes")

	return cmd
}

func runType(ctx context.Context, cfg *config.Config, in io.Reader, delay time.Duration) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger := newLogger(cfg.Log, os.Stderr)
	c, err := dialClient(ctx, cfg, session.New(session.WithLogger(logger)), logger)
	if err != nil {
		return err
	}
	defer c.Close()
	c.Start()

	success("Connected to %s as %q", cfg.Client.URL, cfg.Client.Name)

	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 4096), maxLine+1)
	sent := 0
	for scanner.Scan() {
		line := scanner.Text()
		if len(line) > maxLine {
			line = line[:maxLine]
		}
		if err := typeLine(ctx, c, cfg.Client.Color, cfg.Client.Name, line, delay); err != nil {
			if ctx.Err() != nil {
				return errors.New("T031")
			}
			return errors.New("T012").Wrap(err)
		}
		sent++
	}
	if err := scanner.Err(); err != nil {
		return errors.New("T030").WithDetail("reading stdin").Wrap(err)
	}

	if err := flush(ctx, c, sent); err != nil {
		warn("Not every message was confirmed by the relay: %v", err)
	}
	info("%d messages sent", sent)
	return nil
}

// flushTimeout bounds how long type waits for the relay to confirm.
const flushTimeout = 5 * time.Second

// flush waits until the relay has relayed back every message this client
// published, so closing the connection cannot overtake them.
func flush(ctx context.Context, c *client.Client, sent int) error {
	settled := func(snap session.Snapshot) bool {
		n := 0
		for _, m := range snap.Messages {
			if !m.Mine {
				continue
			}
			if m.Active {
				return false
			}
			n++
		}
		return n >= sent
	}

	changed := make(chan struct{}, 1)
	unsubscribe := c.Session().OnChange(func(session.Snapshot) {
		select {
		case changed <- struct{}{}:
		default:
		}
	})
	defer unsubscribe()

	timeout := time.After(flushTimeout)
	for !settled(c.Session().Current()) {
		select {
		case <-changed:
		case <-ctx.Done():
			return ctx.Err()
		case <-c.Closed():
			return client.ErrClosed
		case <-timeout:
			return fmt.Errorf("no confirmation after %s", flushTimeout)
		}
	}
	return nil
}

// typeLine sends one line as Init, one Append per byte, then Done.
func typeLine(ctx context.Context, c *client.Client, color uint8, name, line string, delay time.Duration) error {
	if err := c.Init(color, name); err != nil {
		return err
	}
	for i := 0; i < len(line); i++ {
		if err := c.Append(uint16(i), line[i:i+1]); err != nil {
			return err
		}
		if delay > 0 {
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return ctx.Err()
			case <-c.Closed():
				return client.ErrClosed
			}
		}
	}
	return c.Done()
}
