package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/spf13/cobra"

	"github.com/markvii/modelsync/internal/catalog"
	"github.com/markvii/modelsync/internal/sync"
	"github.com/markvii/modelsync/internal/ui"
	"github.com/markvii/modelsync/internal/watch"
)

type syncOptions struct {
	csv      string
	yes      bool
	noVerify bool
	dryRun   bool
	watch    bool
}

var syncFlags syncOptions

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Upload models from a CSV file",
	Long: `Parse a CSV file, preview the models, ask for confirmation and replace
the stored list with them.

The whole list is replaced on every sync and lastUpdated is set from the
store's clock. Other fields of the document are left alone. Rows that
fail validation are reported and skipped.

With --watch the file is re-synced whenever it changes until Ctrl+C.`,
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		finish(withApp(cmd, func(a *app) error {
			return runSync(cmd.Context(), a, syncFlags)
		}))
	},
}

func init() {
	syncCmd.Flags().StringVarP(&syncFlags.csv, "csv", "f", "", "CSV file to upload (default: the target's CSV file)")
	syncCmd.Flags().BoolVarP(&syncFlags.yes, "yes", "y", false, "skip the confirmation prompt")
	syncCmd.Flags().BoolVar(&syncFlags.noVerify, "no-verify", false, "skip reading the document back after the write")
	syncCmd.Flags().BoolVar(&syncFlags.dryRun, "dry-run", false, "parse and preview without uploading")
	syncCmd.Flags().BoolVarP(&syncFlags.watch, "watch", "w", false, "re-sync when the CSV file changes (requires --yes)")
	rootCmd.AddCommand(syncCmd)
}

func runSync(ctx context.Context, a *app, opts syncOptions) error {
	if opts.watch && !opts.yes {
		return errors.New("--watch requires --yes")
	}
	if opts.watch && opts.dryRun {
		return errors.New("--watch cannot be combined with --dry-run")
	}

	a.banner()

	path := opts.csv
	usingDefault := path == ""
	if usingDefault {
		path = a.target.CSV
		fmt.Fprintf(a.out, "\n📤 Using default CSV file: %s\n", path)
	}

	if usingDefault && a.target.Sample != "" {
		if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
			a.printSampleHint()
			return reported(fmt.Errorf("%w: %s", catalog.ErrFileNotFound, path))
		}
	}

	models, err := a.loadModels(path)
	if err != nil {
		return err
	}

	a.printPreview(models)

	if opts.dryRun {
		fmt.Fprintf(a.out, "\n%s Dry run: nothing was uploaded\n", ui.RenderAccent("ℹ️"))
		return nil
	}

	fmt.Fprintf(a.out, "\n%s This will upload %d %s to %s\n", ui.RenderWarn("⚠️"), len(models), a.target.Noun(), a.backend())

	st, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	defer st.Close()

	if !opts.yes {
		ok, err := a.confirm(ctx, "Continue?")
		if err != nil {
			return err
		}
		if !ok {
			fmt.Fprintf(a.out, "%s Cancelled\n", ui.RenderFail("❌"))
			return nil
		}
	}

	syncer := sync.New(st, a.cfg.Ref(), a.logs.Logger("[sync] "))
	if err := a.publish(ctx, syncer, models, !opts.noVerify); err != nil {
		return err
	}

	if opts.watch {
		return a.watchFile(ctx, syncer, path, !opts.noVerify)
	}
	return nil
}

// publish writes models, prints the outcome and optionally verifies.
func (a *app) publish(ctx context.Context, syncer *sync.Syncer, models []catalog.Model, verify bool) error {
	res, err := syncer.Write(ctx, models)
	if err != nil {
		if ctx.Err() != nil {
			return errInterrupted
		}
		fmt.Fprintf(a.out, "%s Error updating %s: %v\n", ui.RenderFail("❌"), a.target.Noun(), err)
		return reported(err)
	}
	a.printWritten(res, models)

	if verify {
		a.printVerification(syncer.Verify(ctx, res.Count))
	}
	return nil
}

// watchFile re-publishes path on every change until ctx is done. A file that
// fails to parse leaves the stored list untouched.
func (a *app) watchFile(ctx context.Context, syncer *sync.Syncer, path string, verify bool) error {
	fw, err := watch.NewFileWatcher(path, a.logs.Logger("[watch] "))
	if err != nil {
		return err
	}

	if err := fw.Start(); err != nil {
		_ = fw.Stop()
		return err
	}
	fmt.Fprintf(a.out, "\n👀 Watching %s for changes (Ctrl+C to stop)\n", path)

	err = fw.Run(ctx, watch.DefaultDebounce, func(ctx context.Context) {
		fmt.Fprintf(a.out, "\n🔄 %s changed, syncing...\n", path)
		models, err := a.loadModels(path)
		if err != nil {
			fmt.Fprintf(a.out, "%s Keeping the current %s list\n", ui.RenderWarn("⚠️"), a.backend())
			return
		}
		// errors are printed by publish; keep watching
		_ = a.publish(ctx, syncer, models, verify)
	})
	if err != nil {
		return err
	}

	fmt.Fprintln(a.out, "\n👋 Stopped watching. Goodbye!")
	return nil
}

func (a *app) printSampleHint() {
	name := a.cfg.Target
	fmt.Fprintf(a.out, "\n%s Default CSV file not found: %s\n", ui.RenderFail("❌"), a.target.CSV)
	fmt.Fprintf(a.out, "\n💡 Create it using: modelsync --target %s sample\n", name)
	fmt.Fprintf(a.out, "   Or specify a file: modelsync --target %s sync --csv your_file.csv\n", name)
}
