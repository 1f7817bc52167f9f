// Package commands implements the contactctl operator CLI.
package commands

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/JonMunkholm/audience/internal/config"
	"github.com/JonMunkholm/audience/internal/core"
	"github.com/JonMunkholm/audience/internal/logging"
	"github.com/JonMunkholm/audience/internal/store"
)

// noStore marks commands that run without opening the store.
const noStore = "no-store"

// ServiceFactory builds the engine a command runs against. The returned
// close function is called after the command finishes.
type ServiceFactory func(ctx context.Context, cfg *config.Config) (*core.Service, func(), error)

// OpenService opens the configured store and wraps it in a Service.
func OpenService(ctx context.Context, cfg *config.Config) (*core.Service, func(), error) {
	st, closeStore, err := store.Open(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}
	return core.NewService(st, core.OptionsFromConfig(cfg)), closeStore, nil
}

// app is the state shared by the subcommands of one invocation.
type app struct {
	factory ServiceFactory
	cfg     *config.Config
	service *core.Service
	close   func()
}

// Execute runs contactctl against the configured store and prints any error
// in its user-facing form.
func Execute() error {
	root, cleanup := NewRootCmd(OpenService)
	err := root.Execute()
	cleanup()
	if err != nil {
		msg := err.Error()
		if core.IsUserFacing(err) {
			msg = core.FormatUserError(err)
		}
		fmt.Fprintln(os.Stderr, "Error:", msg)
	}
	return err
}

// NewRootCmd builds the command tree. factory is called once per
// invocation, after configuration is loaded. cleanup releases whatever the
// factory opened and must be called after Execute returns.
func NewRootCmd(factory ServiceFactory) (root *cobra.Command, cleanup func()) {
	a := &app{factory: factory}

	root = &cobra.Command{
		Use:           "contactctl",
		Short:         "Manage contacts and groups from the command line",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Annotations[noStore] != "" {
				return nil
			}
			return a.open(cmd.Context())
		},
	}

	root.AddCommand(importCmd(a), sampleCmd(), groupsCmd(a), exportCmd(a))
	return root, func() {
		if a.close != nil {
			a.close()
			a.close = nil
		}
	}
}

func (a *app) open(ctx context.Context) error {
	// A missing .env is fine; the environment may be set directly.
	_ = godotenv.Overload()

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	// Logs go to stderr so CSV output on stdout stays clean.
	slog.SetDefault(logging.New(os.Stderr, cfg.Logging.Level, cfg.Logging.Format))

	svc, closeFn, err := a.factory(ctx, cfg)
	if err != nil {
		return err
	}
	a.cfg, a.service, a.close = cfg, svc, closeFn
	return nil
}

// createOutput returns stdout for "" or "-", else the created file.
func createOutput(cmd *cobra.Command, path string) (io.Writer, func() error, error) {
	if path == "" || path == "-" {
		return cmd.OutOrStdout(), func() error { return nil }, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, nil, err
	}
	return f, f.Close, nil
}
