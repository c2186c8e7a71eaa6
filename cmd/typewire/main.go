package main

import (
	"fmt"
	"os"

	"github.com/gookit/color"
	"github.com/spf13/cobra"

	"github.com/typewire-dev/typewire/internal/errors"
)

// Version information set at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

const banner = `
  ┌┬┐┬ ┬┌─┐┌─┐┬ ┬┬┬─┐┌─┐
   │ └┬┘├─┘├┤ ││││├┬┘├┤
   ┴  ┴ ┴  └─┘└┴┘┴┴└─└─┘
`

var (
	styleOK    = color.New(color.FgGreen)
	styleWarn  = color.New(color.FgYellow)
	styleTopic = color.New(color.FgCyan, color.OpBold)
	styleMuted = color.New(color.FgGray)
)

// jsonErrors switches failure output to one JSON object on stderr.
var jsonErrors bool

func main() {
	if err := newRootCmd().Execute(); err != nil {
		// Flag and argument errors from cobra carry no code.
		err = errors.FromError(err, "T030")
		if jsonErrors {
			errors.FprintJSON(os.Stderr, err)
		} else {
			errors.Fprint(os.Stderr, err)
		}
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		configPath string
		noColor    bool
	)

	rootCmd := &cobra.Command{
		Use:   "typewire",
		Short: "Live keystroke chat over a tiny binary protocol",
		Long: `typewire relays chat messages while they are being typed.

Every keystroke travels as a small binary frame through a relay to
every connected participant, so everyone sees messages appear and
change letter by letter.

  • relay   serve the relay
  • watch   follow a conversation
  • type    send stdin lines as live messages
  • fuzz    generate reproducible traffic
  • replay  rebuild a conversation from a capture file`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if noColor {
				errors.DisableColors()
			}
		},
	}

	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to typewire.json (default: ./typewire.json if present)")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "Disable colored output")
	rootCmd.PersistentFlags().BoolVar(&jsonErrors, "json-errors", false, "Print failures as JSON")

	rootCmd.AddCommand(
		relayCmd(&configPath),
		watchCmd(&configPath),
		typeCmd(&configPath),
		fuzzCmd(&configPath),
		replayCmd(&configPath),
		versionCmd(),
	)

	return rootCmd
}

// printBanner prints the typewire ASCII art banner.
func printBanner() {
	fmt.Print(banner)
}

// success prints a success message.
func success(format string, args ...any) {
	fmt.Printf("%s %s\n", styleOK.Sprint("✓"), fmt.Sprintf(format, args...))
}

// info prints an info message.
func info(format string, args ...any) {
	fmt.Printf("  %s\n", fmt.Sprintf(format, args...))
}

// warn prints a warning message.
func warn(format string, args ...any) {
	fmt.Printf("%s %s\n", styleWarn.Sprint("⚠"), fmt.Sprintf(format, args...))
}
