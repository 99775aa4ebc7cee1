package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/markvii/modelsync/internal/sync"
	"github.com/markvii/modelsync/internal/ui"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List the models currently stored",
	Long: `Read the target document and print its model list.

Entries missing a name or API model are shown as N/A; entries without
isAvailable are shown as available.`,
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		finish(withApp(cmd, func(a *app) error {
			return runList(cmd.Context(), a)
		}))
	},
}

func init() {
	rootCmd.AddCommand(listCmd)
}

func runList(ctx context.Context, a *app) error {
	a.banner()

	st, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	defer st.Close()

	listing, err := sync.New(st, a.cfg.Ref(), a.logs.Logger("[sync] ")).List(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return errInterrupted
		}
		fmt.Fprintf(a.out, "%s Error listing %s: %v\n", ui.RenderFail("❌"), a.target.Noun(), err)
		return reported(err)
	}

	a.printListing(listing)
	return nil
}
