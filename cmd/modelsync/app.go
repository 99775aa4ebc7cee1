package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/markvii/modelsync/internal/config"
	"github.com/markvii/modelsync/internal/logging"
	"github.com/markvii/modelsync/internal/store"
	"github.com/markvii/modelsync/internal/ui"

	// Store backends register themselves with the store registry.
	_ "github.com/markvii/modelsync/internal/store/firestore"
	_ "github.com/markvii/modelsync/internal/store/postgres"
	_ "github.com/markvii/modelsync/internal/store/redis"
	_ "github.com/markvii/modelsync/internal/store/sqlite"
)

// app carries what a command needs once flags and config are resolved.
type app struct {
	cfg         *config.Config
	target      config.Target
	logs        *logging.Sink
	out         io.Writer
	in          io.Reader
	interactive bool
}

func newApp(cmd *cobra.Command) (*app, error) {
	cfg, err := config.Load(config.LoadOptions{
		ConfigFile: configFile,
		Flags:      cmd.Flags(),
	})
	if err != nil {
		return nil, err
	}

	logs := logging.New(logging.Options{
		Verbose:    verbose,
		File:       cfg.Log.File,
		MaxSize:    cfg.Log.MaxSize,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAge:     cfg.Log.MaxAge,
		Compress:   cfg.Log.Compress,
		Stderr:     cmd.ErrOrStderr(),
	})
	if file := cfg.File(); file != "" {
		logs.Logger("[config] ").Printf("Loaded %s", file)
	}

	return &app{
		cfg:         cfg,
		target:      cfg.ActiveTarget(),
		logs:        logs,
		out:         cmd.OutOrStdout(),
		in:          cmd.InOrStdin(),
		interactive: ui.IsTerminal(os.Stdin) && ui.IsTerminal(os.Stdout),
	}, nil
}

// withApp builds the app for cmd, runs fn and releases the app.
func withApp(cmd *cobra.Command, fn func(a *app) error) error {
	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()
	return fn(a)
}

func (a *app) Close() {
	if err := a.logs.Close(); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to close log file: %v\n", err)
	}
}

// backend returns the display name of the selected store.
func (a *app) backend() string {
	return a.cfg.Kind().DisplayName()
}

// product names the service in banners and errors: Firebase rather than
// Firestore for the default backend.
func (a *app) product() string {
	if a.cfg.Kind() == store.KindFirestore {
		return "Firebase"
	}
	return a.backend()
}

// openStore connects to the selected backend, explaining missing
// credentials the way users expect.
func (a *app) openStore(ctx context.Context) (store.Store, error) {
	st, err := store.Open(ctx, a.cfg.Kind(), a.cfg.StoreOptions())
	if err == nil {
		a.logs.Logger("[store] ").Printf("Opened %s store", a.backend())
		return st, nil
	}

	if errors.Is(err, store.ErrNotConfigured) && a.cfg.Kind() == store.KindFirestore {
		a.printCredentialsHelp()
		return nil, reported(err)
	}
	fmt.Fprintf(a.out, "%s Error initializing %s: %v\n", ui.RenderFail("❌"), a.product(), err)
	return nil, reported(err)
}

func (a *app) printCredentialsHelp() {
	fmt.Fprintf(a.out, "%s Error: Service account key not found!\n", ui.RenderFail("❌"))
	fmt.Fprintln(a.out, "📥 Download it from:")
	fmt.Fprintln(a.out, "   Firebase Console → Project Settings → Service Accounts")
	fmt.Fprintln(a.out, "   → Generate New Private Key")
	fmt.Fprintf(a.out, "📁 Save it as: %s\n", a.cfg.Firestore.Credentials)
}
