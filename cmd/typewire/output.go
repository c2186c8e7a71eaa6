package main

import (
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"time"

	"github.com/olekukonko/tablewriter"

	"github.com/typewire-dev/typewire/internal/config"
	"github.com/typewire-dev/typewire/pkg/loadgen"
	"github.com/typewire-dev/typewire/pkg/session"
)

// newLogger builds the process logger from the log settings.
func newLogger(cfg config.LogConfig, w io.Writer) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}

	var h slog.Handler
	if cfg.Format == "json" {
		h = slog.NewJSONHandler(w, opts)
	} else {
		h = slog.NewTextHandler(w, opts)
	}
	return slog.New(h)
}

func newTable(w io.Writer, header ...string) *tablewriter.Table {
	table := tablewriter.NewWriter(w)
	table.SetHeader(header)
	table.SetAutoWrapText(false)
	table.SetAutoFormatHeaders(true)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetCenterSeparator("")
	table.SetColumnSeparator("")
	table.SetRowSeparator("")
	table.SetHeaderLine(false)
	table.SetBorder(false)
	table.SetTablePadding("\t")
	return table
}

// renderSnapshot prints the topic and one row per message.
func renderSnapshot(w io.Writer, snap session.Snapshot) {
	fmt.Fprintf(w, "%s %s\n\n", styleTopic.Sprint("#"), snap.Topic)
	if snap.Len() == 0 {
		fmt.Fprintln(w, styleMuted.Sprint("  (no messages)"))
		return
	}

	table := newTable(w, "ID", "Name", "Color", "Status", "Text")
	for _, m := range snap.Messages {
		table.Append([]string{
			strconv.FormatUint(uint64(m.ID), 10),
			m.Name,
			strconv.Itoa(int(m.Color)),
			messageStatus(m),
			m.Text,
		})
	}
	table.Render()
}

func messageStatus(m session.Message) string {
	status := "sent"
	if m.Active {
		status = "typing"
	}
	if m.Mine {
		status += " (you)"
	}
	return status
}

// renderStats prints generator counts and the resulting session size.
func renderStats(w io.Writer, stats loadgen.Stats, snap session.Snapshot, elapsed time.Duration) {
	table := newTable(w, "Step", "Count")
	rows := []struct {
		name  string
		count int
	}{
		{"steps", stats.Steps},
		{"appends", stats.Appends},
		{"inits", stats.Inits},
		{"dones", stats.Dones},
		{"topics", stats.Topics},
		{"pauses", stats.Pauses},
		{"skipped", stats.Skipped},
		{"messages", snap.Len()},
		{"typing", len(snap.Active())},
	}
	for _, r := range rows {
		table.Append([]string{r.name, strconv.Itoa(r.count)})
	}
	table.Render()

	fmt.Fprintf(w, "\n%s %s\n", styleMuted.Sprint("elapsed"), elapsed.Round(time.Microsecond))
}
