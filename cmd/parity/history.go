package main

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/peter-kozarec/parity/internal/store"
	"github.com/peter-kozarec/parity/pkg/utility"
)

func newHistoryCmd(a *app) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recorded runs, latest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ledger, err := store.NewSQLite(cmd.Context(), a.cfg.Store, a.logger)
			if err != nil {
				return err
			}
			defer func() { _ = ledger.Close() }()

			runs, err := ledger.Runs(cmd.Context(), limit)
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			_, _ = fmt.Fprintln(w, "EID\tSCENARIO\tSTATE\tSTART\tEND\tDATA POINTS\tORDERS\tFEES\tCHECKS\tMAPPINGS")
			for _, r := range runs {
				_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%d\t%d\t%s\t%d\t%d\n",
					r.ExecutionID, r.Scenario, r.State, r.Start.Format(time.DateOnly), r.End.Format(time.DateOnly),
					r.DataPoints, r.TotalOrders, r.TotalFees, r.ModelChecks, r.Mappings)
			}
			return w.Flush()
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "number of runs to show, 0 for all")

	cmd.AddCommand(newShowCmd(a))
	return cmd
}

func newShowCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "show <eid>",
		Short: "Show the orders and contract mappings recorded by one run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			eid, err := utility.ParseExecutionID(args[0])
			if err != nil {
				return err
			}

			ledger, err := store.NewSQLite(cmd.Context(), a.cfg.Store, a.logger)
			if err != nil {
				return err
			}
			defer func() { _ = ledger.Close() }()

			ctx := cmd.Context()
			rep, err := ledger.Run(ctx, eid)
			if err != nil {
				return err
			}
			orders, err := ledger.OrderEvents(ctx, eid)
			if err != nil {
				return err
			}
			changes, err := ledger.SymbolChanges(ctx, eid)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			_, _ = fmt.Fprintf(out, "%s %s %s\n", rep.Scenario, rep.State, rep.ExecutionID)
			if rep.Error != "" {
				_, _ = fmt.Fprintf(out, "error: %s\n", rep.Error)
			}

			w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			for _, o := range orders {
				_, _ = fmt.Fprintf(w, "order\t%d\t%s\t%s\t%s @ %s\t%s\t%s\n",
					o.OrderId, o.TimeStamp.Format(time.DateTime), o.Symbol, o.FillQuantity, o.FillPrice, o.Status, o.Fee)
			}
			for _, c := range changes {
				_, _ = fmt.Fprintf(w, "mapping\t%s\t%s\t%s -> %s\n",
					c.TimeStamp.Format(time.DateOnly), c.Symbol, c.OldSymbol, c.NewSymbol)
			}
			return w.Flush()
		},
	}
}
