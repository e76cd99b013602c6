// Command graphctl runs maintenance tasks against the photogram stores: schema
// migration and follower-mirror reconciliation.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/spf13/cobra"

	"photogram/internal/app"
	"photogram/internal/config"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "graphctl",
		Short:         "Maintenance commands for the photogram stores",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	reconcile := &cobra.Command{
		Use:   "reconcile",
		Short: "Repair asymmetric follow relationships",
	}
	reconcile.AddCommand(newSweepCmd(), newPairCmd())

	root.AddCommand(newMigrateCmd(), reconcile)
	return root
}

// withApp loads configuration, assembles the app and runs fn against it.
func withApp(cmd *cobra.Command, fn func(ctx context.Context, a *app.App) error) error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	a, err := app.New(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	return fn(cmd.Context(), a)
}

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply the relational schema",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app.App) error {
				if err := a.Migrate(ctx); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "schema up to date")
				return nil
			})
		},
	}
}

func newSweepCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sweep",
		Short: "Reconcile every relationship in the store",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app.App) error {
				repaired, err := a.Reconciler.Sweep(ctx)
				if err != nil {
					return fmt.Errorf("sweep stopped after %d repairs: %w", repaired, err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "sweep complete: %d repaired\n", repaired)
				return nil
			})
		},
	}
}

func newPairCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "pair <actor-id> <target-id>",
		Short: "Reconcile a single follow relationship",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			actorID, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid actor id %q", args[0])
			}
			targetID, err := strconv.ParseInt(args[1], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid target id %q", args[1])
			}

			return withApp(cmd, func(ctx context.Context, a *app.App) error {
				changed, err := a.Reconciler.ReconcilePair(ctx, actorID, targetID)
				if err != nil {
					return err
				}
				if changed {
					fmt.Fprintf(cmd.OutOrStdout(), "repaired %d -> %d\n", actorID, targetID)
				} else {
					fmt.Fprintf(cmd.OutOrStdout(), "%d -> %d already consistent\n", actorID, targetID)
				}
				return nil
			})
		},
	}
}
