package main

import (
	"bufio"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/typewire-dev/typewire/internal/config"
	"github.com/typewire-dev/typewire/internal/errors"
	"github.com/typewire-dev/typewire/pkg/protocol"
	"github.com/typewire-dev/typewire/pkg/session"
)

func replayCmd(configPath *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "replay FILE",
		Short: "Rebuild a conversation from a capture file",
		Long: `Feed a capture file through a session and print the final conversation.

A capture file is a sequence of frames, each preceded by its length as a
big-endian uint16. "typewire fuzz --record" writes them.

Examples:
  typewire replay traffic.cap`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Resolve(*configPath)
			if err != nil {
				return err
			}
			_, err = runReplay(args[0], newLogger(cfg.Log, os.Stderr), os.Stdout)
			return err
		},
	}

	return cmd
}

type replayResult struct {
	frames   int
	rejected int
	snapshot session.Snapshot
}

// runReplay applies every frame in the file at path to a fresh session.
// Frames the session rejects are counted and skipped.
func runReplay(path string, logger *slog.Logger, w io.Writer) (replayResult, error) {
	var res replayResult

	f, err := os.Open(path)
	if err != nil {
		return res, errors.New("T020").WithDetail(path).Wrap(err)
	}
	defer f.Close()

	sess := session.New(session.WithLogger(logger))
	err = protocol.ReadStream(bufio.NewReader(f), func(frame []byte) error {
		res.frames++
		if _, err := sess.ApplyFrame(frame); err != nil {
			res.rejected++
		}
		return nil
	})
	if err != nil {
		return res, errors.New("T021").
			WithDetailf("%s: stopped after %d frames", path, res.frames).
			Wrap(err)
	}

	res.snapshot = sess.Current()
	renderSnapshot(w, res.snapshot)
	io.WriteString(w, "\n")
	info("%d frames replayed, %d rejected", res.frames, res.rejected)
	return res, nil
}
