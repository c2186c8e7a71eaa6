package main

import (
	"fmt"
	"io"
	"runtime"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/typewire-dev/typewire/pkg/protocol"
)

func versionCmd() *cobra.Command {
	var short bool

	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print version and wire format information",
		Long: `Print the build of this typewire binary and the limits of the
frame format it speaks. Two binaries interoperate when their frame
header sizes match.`,
		Args: cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			w := cmd.OutOrStdout()
			if short {
				fmt.Fprintln(w, version)
				return
			}
			fmt.Fprint(w, banner)
			fmt.Fprintln(w)
			renderVersion(w)
		},
	}

	cmd.Flags().BoolVarP(&short, "short", "s", false, "Print only the version number")

	return cmd
}

func renderVersion(w io.Writer) {
	table := newTable(w, "Build", "")
	for _, row := range [][]string{
		{"version", version},
		{"commit", commit},
		{"built", date},
		{"go", runtime.Version()},
		{"platform", runtime.GOOS + "/" + runtime.GOARCH},
		{"frame header", strconv.Itoa(protocol.HeaderSize) + " bytes"},
		{"max frame", strconv.Itoa(protocol.MaxFrameSize) + " bytes"},
	} {
		table.Append(row)
	}
	table.Render()
}
