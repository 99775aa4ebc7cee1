package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/markvii/modelsync/internal/config"
	"github.com/markvii/modelsync/internal/ui"
)

var (
	configInitFormat string
	configShowFormat string
	configForce      bool
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage modelsync configuration",
	Long: `Settings are read from, in increasing precedence: built-in defaults,
modelsync.yaml or modelsync.toml in the working directory (or --config),
MODELSYNC_* environment variables (a .env file is loaded first) and flags.

Nested keys map to variables with underscores, e.g. sqlite.path is
MODELSYNC_SQLITE_PATH.

The Firestore backend uses the firestore.credentials key file when it
exists and otherwise falls back to GOOGLE_APPLICATION_CREDENTIALS.`,
}

var configInitCmd = &cobra.Command{
	Use:   "init [path]",
	Short: "Write a starter config file",
	Args:  cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		path := ""
		if len(args) == 1 {
			path = args[0]
		}
		finish(runConfigInit(cmd.OutOrStdout(), path, configInitFormat, configForce))
	},
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		finish(withApp(cmd, func(a *app) error {
			return runConfigShow(a, configShowFormat)
		}))
	},
}

func init() {
	configInitCmd.Flags().StringVar(&configInitFormat, "format", "", "file format: yaml or toml (default: from the file extension)")
	configInitCmd.Flags().BoolVar(&configForce, "force", false, "overwrite an existing file")
	configShowCmd.Flags().StringVar(&configShowFormat, "format", config.FormatYAML, "output format: yaml or toml")

	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configShowCmd)
	rootCmd.AddCommand(configCmd)
}

func runConfigInit(out io.Writer, path, format string, force bool) error {
	if path == "" {
		path = configFile
	}
	if path == "" {
		ext := config.FormatYAML
		if format == config.FormatTOML {
			ext = config.FormatTOML
		}
		path = config.DefaultConfigName + "." + ext
	}

	if err := config.Default().WriteFile(path, format, force); err != nil {
		return err
	}

	fmt.Fprintf(out, "%s Wrote %s\n", ui.RenderPass("✅"), path)
	if _, err := os.Stat(config.Default().Firestore.Credentials); os.IsNotExist(err) && os.Getenv("GOOGLE_APPLICATION_CREDENTIALS") == "" {
		fmt.Fprintf(out, "   Set firestore.credentials, GOOGLE_APPLICATION_CREDENTIALS or choose another backend before syncing.\n")
	}
	return nil
}

func runConfigShow(a *app, format string) error {
	data, err := a.cfg.Marshal(format)
	if err != nil {
		return err
	}
	if file := a.cfg.File(); file != "" {
		fmt.Fprintf(a.out, "# loaded from %s\n", file)
	}
	_, err = a.out.Write(data)
	return err
}
