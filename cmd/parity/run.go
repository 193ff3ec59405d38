package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/peter-kozarec/parity/internal/store"
	"github.com/peter-kozarec/parity/pkg/algorithm"
	"github.com/peter-kozarec/parity/pkg/check"
	"github.com/peter-kozarec/parity/pkg/datasource/custom"
	"github.com/peter-kozarec/parity/pkg/middleware"
	"github.com/peter-kozarec/parity/pkg/report"
	"github.com/peter-kozarec/parity/pkg/scenario"
)

type runFlags struct {
	failAll  bool
	seed     int64
	source   string
	inMemory bool
}

func newRunCmd(a *app) *cobra.Command {
	var flags runFlags

	cmd := &cobra.Command{
		Use:   "run [scenario...]",
		Short: "Run scenarios and record their reports",
		Long:  "Run the named scenarios, or the configured ones, or all of them. Scenarios run concurrently, each on its own engine.",
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("fail-all") {
				a.cfg.Engine.FailAll = flags.failAll
			}
			if cmd.Flags().Changed("seed") {
				a.cfg.Data.Seed = flags.seed
			}
			if cmd.Flags().Changed("source") {
				a.cfg.Data.Source = flags.source
			}
			if cmd.Flags().Changed("in-memory") {
				a.cfg.Store.InMemory = flags.inMemory
			}
			if err := a.cfg.Validate(); err != nil {
				return err
			}

			names := args
			if len(names) == 0 {
				names = a.cfg.Scenarios
			}
			defs, err := scenario.Select(names...)
			if err != nil {
				return err
			}

			ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			return a.run(ctx, cmd.OutOrStdout(), defs)
		},
	}

	cmd.Flags().BoolVar(&flags.failAll, "fail-all", false, "report every model mismatch of a security instead of the first")
	cmd.Flags().Int64Var(&flags.seed, "seed", 1, "seed of the synthetic data source")
	cmd.Flags().StringVar(&flags.source, "source", "", "data source: synthetic, duckdb or binary")
	cmd.Flags().BoolVar(&flags.inMemory, "in-memory", false, "keep the run ledger in memory")
	return cmd
}

type outcome struct {
	report report.Report
	err    error
}

func (a *app) run(ctx context.Context, out io.Writer, defs []scenario.Definition) error {
	ledger, err := store.NewSQLite(ctx, a.cfg.Store, a.logger)
	if err != nil {
		return err
	}
	defer func() { _ = ledger.Close() }()

	lines := newLineSource(a.cfg.Custom, a.logger)
	outcomes := make([]outcome, len(defs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.cfg.Engine.Parallelism)
	for i, def := range defs {
		g.Go(func() error {
			res, err := a.runOne(gctx, def, ledger, lines)
			outcomes[i] = res
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	var failures error
	for _, o := range outcomes {
		failures = multierr.Append(failures, o.err)
	}
	printSummary(out, outcomes)
	return failures
}

// runOne returns an error only when the ledger fails. Scenario failures travel in the outcome.
func (a *app) runOne(ctx context.Context, def scenario.Definition, ledger *store.Store, lines custom.LineSource) (outcome, error) {
	provider, release, err := newProvider(a.cfg.Data, lines, a.logger)
	if err != nil {
		return outcome{}, err
	}
	defer release()

	checkOpts := []check.Option{check.WithLogger(a.logger)}
	if a.cfg.Engine.FailAll {
		checkOpts = append(checkOpts, check.WithFailAll())
	}

	engine := algorithm.NewEngine(def.Name, def.New(checkOpts...), provider,
		algorithm.WithLogger(a.logger),
		algorithm.WithRouterCapacity(a.cfg.Engine.RouterCapacity),
		algorithm.WithMonitorFlags(middleware.ParseMonitorFlags(a.cfg.Engine.MonitorFlags)),
		algorithm.WithRecorder(ledger))

	runCtx, cancel := ctx, context.CancelFunc(func() {})
	if a.cfg.Engine.Timeout > 0 {
		runCtx, cancel = context.WithTimeout(ctx, a.cfg.Engine.Timeout)
	}
	rep, runErr := engine.Run(runCtx)
	cancel()

	if err := ledger.SaveRun(context.WithoutCancel(ctx), rep); err != nil {
		return outcome{report: rep}, err
	}

	if runErr == nil {
		runErr = rep.Compare(def.Expected)
	}
	if runErr != nil {
		runErr = fmt.Errorf("%s: %w", def.Name, runErr)
		a.logger.Error("scenario failed", append(rep.Fields(), zap.Error(runErr))...)
	} else {
		a.logger.Info("scenario passed", rep.Fields()...)
	}
	return outcome{report: rep, err: runErr}, nil
}

func printSummary(out io.Writer, outcomes []outcome) {
	pass := color.New(color.FgGreen).SprintFunc()
	fail := color.New(color.FgRed).SprintFunc()

	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "RESULT\tSCENARIO\tEID\tDATA POINTS\tORDERS\tCHECKS\tMAPPINGS")
	for _, o := range outcomes {
		r := o.report
		status := pass("PASS")
		if o.err != nil {
			status = fail("FAIL")
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%d\t%d\t%d\n",
			status, r.Scenario, r.ExecutionID, r.DataPoints, r.TotalOrders, r.ModelChecks, r.Mappings)
	}
	_ = w.Flush()

	for _, o := range outcomes {
		if o.err != nil {
			_, _ = fmt.Fprintln(out, fail(o.err.Error()))
		}
	}
}
