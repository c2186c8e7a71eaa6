package main

import (
	"bufio"
	"context"
	stderrors "errors"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/typewire-dev/typewire/internal/config"
	"github.com/typewire-dev/typewire/internal/errors"
	"github.com/typewire-dev/typewire/pkg/loadgen"
	"github.com/typewire-dev/typewire/pkg/protocol"
	"github.com/typewire-dev/typewire/pkg/session"
)

type fuzzOptions struct {
	seed   uint64
	steps  int
	pauses bool
	record string
	show   bool
}

func fuzzCmd(configPath *string) *cobra.Command {
	var opts fuzzOptions

	cmd := &cobra.Command{
		Use:   "fuzz",
		Short: "Generate reproducible traffic",
		Long: `Run the load generator against a local session and print what it did.

The same seed always produces the same frames. Use --record to save them
as a capture file for "typewire replay".

Examples:
  typewire fuzz --steps=100000
  typewire fuzz --seed=7 --record=traffic.cap
  typewire fuzz --pauses --steps=2000`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Resolve(*configPath)
			if err != nil {
				return err
			}
			if opts.steps < 0 {
				return errors.New("T030").
					WithDetailf("--steps must not be negative, got %d", opts.steps).
					WithSuggestion("Pass --steps=0 to only print empty stats")
			}
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runFuzz(ctx, opts, newLogger(cfg.Log, os.Stderr), os.Stdout)
		},
	}

	cmd.Flags().Uint64Var(&opts.seed, "seed", 1, "Generator seed")
	cmd.Flags().IntVarP(&opts.steps, "steps", "n", 10000, "Number of steps to generate")
	cmd.Flags().BoolVar(&opts.pauses, "pauses", false, "Sleep on pause steps")
	cmd.Flags().StringVarP(&opts.record, "record", "r", "", "Write generated frames to a capture file")
	cmd.Flags().BoolVar(&opts.show, "show", false, "Print the final conversation")

	return cmd
}

func runFuzz(ctx context.Context, opts fuzzOptions, logger *slog.Logger, w io.Writer) (err error) {
	var genOpts []loadgen.Option
	if !opts.pauses {
		genOpts = append(genOpts, loadgen.WithoutPauses())
	}
	gen := loadgen.New(opts.seed, genOpts...)
	sess := session.New(session.WithLogger(logger))

	var rec *bufio.Writer
	if opts.record != "" {
		f, cerr := os.Create(opts.record)
		if cerr != nil {
			return errors.New("T020").WithDetail(opts.record).Wrap(cerr)
		}
		defer func() {
			if cerr := f.Close(); err == nil && cerr != nil {
				err = errors.New("T020").WithDetail(opts.record).Wrap(cerr)
			}
		}()
		rec = bufio.NewWriter(f)
	}

	start := time.Now()
	runErr := gen.Run(ctx, opts.steps, func(step loadgen.Step) error {
		if rec != nil {
			if err := protocol.WriteStreamFrame(rec, step.Frame); err != nil {
				return err
			}
		}
		_, err := sess.ApplyFrame(step.Frame)
		return err
	})
	elapsed := time.Since(start)

	if rec != nil {
		if err := rec.Flush(); err != nil {
			return errors.New("T020").WithDetail(opts.record).Wrap(err)
		}
	}

	interrupted := stderrors.Is(runErr, context.Canceled)
	if runErr != nil && !interrupted {
		return runErr
	}

	if opts.show {
		renderSnapshot(w, sess.Current())
		io.WriteString(w, "\n")
	}
	renderStats(w, gen.Stats(), sess.Current(), elapsed)
	if interrupted {
		return errors.New("T031").WithDetailf("stopped after %d steps", gen.Stats().Steps)
	}
	if opts.record != "" {
		success("Recorded %s", opts.record)
	}
	return nil
}
