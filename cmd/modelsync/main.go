package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/markvii/modelsync/internal/ui"
)

var (
	configFile  string
	targetName  string
	backendName string
	verbose     bool
	noColor     bool
	logFile     string
)

var rootCmd = &cobra.Command{
	Use:   "modelsync",
	Short: "Publish AI model catalogs from CSV to a document store",
	Long: `modelsync reads a CSV file of AI model metadata and publishes it as the
"list" field of one document (default app_config/models), where the
mobile app picks it up.

Run without a subcommand to sync the target's default CSV file.

CSV format (columns in any order, extra columns ignored):
  displayName,apiModel,isAvailable,order
  Gemini 1.5 Flash,gemini-1.5-flash,TRUE,2`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		ui.Configure(os.Stdout, noColor)
	},
	Run: func(cmd *cobra.Command, args []string) {
		finish(withApp(cmd, func(a *app) error {
			return runSync(cmd.Context(), a, syncOptions{})
		}))
	},
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&configFile, "config", "", "config file (default ./modelsync.yaml or ./modelsync.toml)")
	pf.StringVarP(&targetName, "target", "t", "", "target preset: models or gemini (default models)")
	pf.StringVarP(&backendName, "backend", "b", "", "store backend: firestore, sqlite, redis or postgres (default firestore)")
	pf.BoolVarP(&verbose, "verbose", "v", false, "log progress to stderr")
	pf.BoolVar(&noColor, "no-color", false, "disable colored output")
	pf.StringVar(&logFile, "log-file", "", "also write logs to this file (rotated)")
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		// flag and argument errors; command failures exit from finish
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var (
	// errInterrupted ends a command early at the user's request.
	errInterrupted = errors.New("interrupted by user")

	// errReported marks a failure whose message was already printed.
	errReported = errors.New("error already reported")
)

// reported wraps err so that finish does not print it again.
func reported(err error) error {
	return fmt.Errorf("%w: %w", errReported, err)
}

// finish exits the process according to err.
func finish(err error) {
	if err == nil {
		return
	}
	os.Exit(report(os.Stdout, os.Stderr, err))
}

// report prints err and returns the exit status for it. An interruption is
// not a failure.
func report(stdout, stderr io.Writer, err error) int {
	switch {
	case err == nil:
		return 0
	case errors.Is(err, errInterrupted), errors.Is(err, context.Canceled):
		fmt.Fprintln(stdout, "\n\n👋 Interrupted by user. Goodbye!")
		return 0
	case errors.Is(err, errReported):
		return 1
	default:
		fmt.Fprintf(stderr, "%s %v\n", ui.RenderFail("❌ Error:"), err)
		return 1
	}
}
