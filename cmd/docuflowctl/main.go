// Command docuflowctl is the DocuFlow admin CLI.
//
// Subcommands:
//
//	seed           load reference fixtures (institutions, members, system config)
//	extract FILE   print the text the intake pipeline would extract from FILE
//	jobs           enqueue, retry and list pipeline jobs
//	users create   create a password account
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"docuflow/internal/bootstrap"
	"docuflow/internal/shared/config"
	"docuflow/internal/shared/telemetry"
)

// appFactory builds the application the subcommands operate on.
type appFactory func(ctx context.Context) (*bootstrap.App, error)

func loadApp(ctx context.Context) (*bootstrap.App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	telemetry.Setup(cfg.LogLevel, cfg.LogPretty)
	return bootstrap.Build(ctx, cfg, bootstrap.RoleCLI)
}

func newRootCmd(build appFactory) *cobra.Command {
	root := &cobra.Command{
		Use:           "docuflowctl",
		Short:         "DocuFlow administration",
		SilenceErrors: true,
		SilenceUsage:  true,
	}
	root.AddCommand(
		seedCmd(build),
		extractCmd(build),
		jobsCmd(build),
		usersCmd(build),
	)
	return root
}

func main() {
	if err := newRootCmd(loadApp).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

// withApp builds the app, runs fn and closes it.
func withApp(cmd *cobra.Command, build appFactory, fn func(app *bootstrap.App) error) error {
	app, err := build(cmd.Context())
	if err != nil {
		return err
	}
	defer app.Close()
	return fn(app)
}
