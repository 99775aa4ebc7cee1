package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/markvii/modelsync/internal/catalog"
	"github.com/markvii/modelsync/internal/ui"
)

var sampleOutput string

var sampleCmd = &cobra.Command{
	Use:   "sample",
	Short: "Write a sample CSV file for the target",
	Long: `Write the target's built-in sample catalog as a CSV file to edit and
then upload with 'sync --csv'. Only targets with a sample (gemini) support
this.`,
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		finish(withApp(cmd, func(a *app) error {
			return runSample(a, sampleOutput)
		}))
	},
}

func init() {
	sampleCmd.Flags().StringVarP(&sampleOutput, "output", "o", "", "file to write (default: <target csv>_sample.csv)")
	rootCmd.AddCommand(sampleCmd)
}

func runSample(a *app, output string) error {
	models, ok := catalog.Sample(a.target.Sample)
	if a.target.Sample == "" || !ok {
		return fmt.Errorf("target %q has no sample catalog", a.cfg.Target)
	}

	path := output
	if path == "" {
		path = a.target.SampleFile()
	}

	if err := catalog.WriteSample(path, models); err != nil {
		fmt.Fprintf(a.out, "%s Error creating sample CSV: %v\n", ui.RenderFail("❌"), err)
		return reported(err)
	}

	fmt.Fprintf(a.out, "%s Sample CSV created: %s\n", ui.RenderPass("✅"), path)
	fmt.Fprintln(a.out, "📝 Edit this file and run:")
	fmt.Fprintf(a.out, "   modelsync --target %s sync --csv %s\n", a.cfg.Target, path)
	return nil
}
