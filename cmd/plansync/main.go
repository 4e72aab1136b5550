package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/railzwaylabs/plansync/internal/clock"
	"github.com/railzwaylabs/plansync/internal/config"
	"github.com/railzwaylabs/plansync/internal/event"
	"github.com/railzwaylabs/plansync/internal/hooks"
	"github.com/railzwaylabs/plansync/internal/observability"
	"github.com/railzwaylabs/plansync/internal/plan"
	"github.com/railzwaylabs/plansync/internal/plan/ledger"
	"github.com/railzwaylabs/plansync/internal/plan/lock"
	"github.com/railzwaylabs/plansync/internal/plan/reconcile"
	"github.com/railzwaylabs/plansync/internal/plan/registry"
	"github.com/railzwaylabs/plansync/internal/redis"
	"github.com/railzwaylabs/plansync/internal/scheduler"
	"github.com/railzwaylabs/plansync/internal/server"
	"github.com/railzwaylabs/plansync/internal/stripe"
	"github.com/railzwaylabs/plansync/pkg/db"
	"github.com/spf13/cobra"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

type rootFlags struct {
	configPath string
	envFile    string
	plansFile  string
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	flags := &rootFlags{}
	root := &cobra.Command{
		Use:           "plansync",
		Short:         "Declare Stripe plans locally and keep the account in step",
		Version:       readVersionFromEnv(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&flags.configPath, "config", "", "path to a config file")
	root.PersistentFlags().StringVar(&flags.envFile, "env-file", "", "path to a .env file (default .env)")
	root.PersistentFlags().StringVar(&flags.plansFile, "plans", "", "plan declaration file, overrides plans.file")

	root.AddCommand(
		newValidateCmd(flags),
		newPlansCmd(flags),
		newSyncCmd(flags),
		newServeCmd(flags),
		newPruneCmd(flags),
	)
	return root
}

func newValidateCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Validate plan declarations without calling Stripe",
		RunE: func(cmd *cobra.Command, args []string) error {
			var reg *registry.Registry
			if err := runOnce(flags, []fx.Option{plan.Module}, fx.Populate(&reg)); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d plan(s) valid\n", reg.Len())
			return nil
		},
	}
}

func newPlansCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "plans",
		Short: "List declared plans",
		RunE: func(cmd *cobra.Command, args []string) error {
			var reg *registry.Registry
			if err := runOnce(flags, []fx.Option{plan.Module}, fx.Populate(&reg)); err != nil {
				return err
			}
			printPlans(cmd.OutOrStdout(), reg)
			return nil
		},
	}
}

func newSyncCmd(flags *rootFlags) *cobra.Command {
	var apiVersion string
	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Create declared plans that do not exist on Stripe yet",
		RunE: func(cmd *cobra.Command, args []string) error {
			var (
				cfg    config.Config
				reg    *registry.Registry
				svc    *reconcile.Service
				locker lock.Locker
				log    *zap.Logger
			)
			modules := []fx.Option{
				plan.Module,
				clock.Module,
				fx.Provide(registerSnowflake),
				db.Module,
				ledger.Module,
				redis.Module,
				lock.Module,
				stripe.Module,
				reconcile.Module,
			}
			return withApp(flags, modules, func(ctx context.Context) error {
				version := reconcile.APIVersion(cfg.Stripe.APIVersion)
				if cmd.Flags().Changed("api-version") {
					version = reconcile.APIVersion(apiVersion)
				}

				release, err := locker.Acquire(ctx, "sync")
				if err != nil {
					if errors.Is(err, lock.ErrHeld) {
						return fmt.Errorf("another sync run is in progress")
					}
					return err
				}
				defer func() {
					if err := release(context.Background()); err != nil {
						log.Warn("failed to release sync lock", zap.Error(err))
					}
				}()

				outcomes := svc.ReconcileAll(ctx, version, reg.All())
				return reportOutcomes(cmd.OutOrStdout(), outcomes)
			}, fx.Populate(&cfg, &reg, &svc, &locker, &log))
		},
	}
	cmd.Flags().StringVar(&apiVersion, "api-version", "", "Stripe API version used to shape create requests")
	return cmd
}

func newServeCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Receive Stripe webhooks and serve the plan API",
		RunE: func(cmd *cobra.Command, args []string) error {
			app := fx.New(append(baseOptions(flags),
				plan.Module,
				clock.Module,
				fx.Provide(registerSnowflake),
				db.Module,
				ledger.Module,
				stripe.Module,
				event.Module,
				hooks.Module,
				scheduler.Module,
				server.Module,
			)...)
			if err := app.Err(); err != nil {
				return err
			}
			app.Run()
			return nil
		},
	}
}

func newPruneCmd(flags *rootFlags) *cobra.Command {
	var olderThan time.Duration
	cmd := &cobra.Command{
		Use:   "prune",
		Short: "Delete sync records past the retention window",
		RunE: func(cmd *cobra.Command, args []string) error {
			var (
				cfg  config.Config
				repo *ledger.Repository
			)
			modules := []fx.Option{
				clock.Module,
				fx.Provide(registerSnowflake),
				db.Module,
				ledger.Module,
			}
			return withApp(flags, modules, func(ctx context.Context) error {
				retention := cfg.Database.Retention
				if cmd.Flags().Changed("older-than") {
					retention = olderThan
				}
				if retention <= 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "retention disabled, nothing pruned")
					return nil
				}
				deleted, err := repo.Prune(ctx, retention)
				if err != nil {
					return fmt.Errorf("prune sync records: %w", err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%d sync record(s) pruned\n", deleted)
				return nil
			}, fx.Populate(&cfg, &repo))
		},
	}
	cmd.Flags().DurationVar(&olderThan, "older-than", 0, "override database.retention for this run")
	return cmd
}

func baseOptions(flags *rootFlags) []fx.Option {
	return []fx.Option{
		fx.Supply(config.Source{Path: flags.configPath, EnvFile: flags.envFile, PlansFile: flags.plansFile}),
		config.Module,
		observability.Module,
		fx.WithLogger(func(log *zap.Logger) fxevent.Logger {
			return &fxevent.ZapLogger{Logger: log.Named("fx").WithOptions(zap.IncreaseLevel(zap.WarnLevel))}
		}),
	}
}

// runOnce builds the graph, runs its start hooks and stops it again.
func runOnce(flags *rootFlags, modules []fx.Option, extra ...fx.Option) error {
	return withApp(flags, modules, func(context.Context) error { return nil }, extra...)
}

func withApp(flags *rootFlags, modules []fx.Option, fn func(ctx context.Context) error, extra ...fx.Option) error {
	opts := append(baseOptions(flags), modules...)
	opts = append(opts, extra...)
	app := fx.New(opts...)
	if err := app.Err(); err != nil {
		return err
	}

	startCtx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()
	if err := app.Start(startCtx); err != nil {
		return err
	}
	defer func() {
		stopCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		_ = app.Stop(stopCtx)
	}()

	return fn(context.Background())
}

func printPlans(w io.Writer, reg *registry.Registry) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "IDENTIFIER\tID\tNAME\tAMOUNT\tINTERVAL\tSCHEME")
	for _, p := range reg.All() {
		amount := "-"
		if v, ok := p.Amount(); ok {
			amount = fmt.Sprintf("%d %s", v, strings.ToUpper(p.Currency()))
		}
		name := p.Name()
		if name == "" {
			name = p.ProductID()
		}
		interval := string(p.Interval())
		if p.IntervalCount() > 1 {
			interval = fmt.Sprintf("%d %ss", p.IntervalCount(), p.Interval())
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n", p.Identifier(), p.Key(), name, amount, interval, p.BillingScheme())
	}
	_ = tw.Flush()
}

func reportOutcomes(w io.Writer, outcomes []reconcile.Outcome) error {
	var errs error
	for _, o := range outcomes {
		if o.Err != nil {
			fmt.Fprintf(w, "%-16s %s: %v\n", o.Status, o.Key, o.Err)
			errs = multierr.Append(errs, o.Err)
			continue
		}
		fmt.Fprintf(w, "%-16s %s\n", o.Status, o.Key)
	}
	if errs != nil {
		return fmt.Errorf("%d plan(s) failed to sync: %w", len(multierr.Errors(errs)), errs)
	}
	return nil
}

func registerSnowflake() *snowflake.Node {
	node, err := snowflake.NewNode(1)
	if err != nil {
		panic(err)
	}
	return node
}

func readVersionFromEnv() string {
	if v := strings.TrimSpace(os.Getenv("APP_VERSION")); v != "" {
		return v
	}
	return "dev"
}
