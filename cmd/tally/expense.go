package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/aretw0/tally"
	"github.com/aretw0/tally/pkg/core"
	"github.com/aretw0/tally/pkg/expense"
)

type expenseRow struct {
	ID core.RecordID `json:"id"`
	expense.Expense
}

func newExpenseCommand(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "expense",
		Short: "Record and summarize expenses",
	}

	cmd.AddCommand(newExpenseAddCommand(opts))
	cmd.AddCommand(newExpenseListCommand(opts))
	cmd.AddCommand(newExpenseUpdateCommand(opts))
	cmd.AddCommand(newExpenseDeleteCommand(opts))
	cmd.AddCommand(newExpenseSummaryCommand(opts))
	cmd.AddCommand(newExpenseStateCommand(opts))

	return cmd
}

func (o *rootOptions) openExpenses(ctx context.Context, readOnly bool) (*expense.Service, error) {
	return tally.OpenExpenses(ctx, o.location(tally.DefaultExpenseFile), o.storeOptions(readOnly)...)
}

func newExpenseAddCommand(opts *rootOptions) *cobra.Command {
	var (
		description string
		amount      float64
		category    string
	)

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add an expense dated today",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cat, err := expense.ParseCategory(category)
			if err != nil {
				return err
			}

			svc, err := opts.openExpenses(cmd.Context(), false)
			if err != nil {
				return err
			}
			defer svc.Close()

			id, err := svc.Add(cmd.Context(), description, amount, cat)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Expense added successfully (ID: %d)\n", id)
			return nil
		},
	}

	cmd.Flags().StringVar(&description, "description", "", "what the money was spent on")
	cmd.Flags().Float64Var(&amount, "amount", 0, "amount spent")
	cmd.Flags().StringVar(&category, "category", "", "expense category (default general)")
	_ = cmd.MarkFlagRequired("description")
	_ = cmd.MarkFlagRequired("amount")

	return cmd
}

func newExpenseListCommand(opts *rootOptions) *cobra.Command {
	var (
		category string
		match    string
		asJSON   bool
		watch    bool
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List expenses",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			listOpts := expense.ListOptions{Category: expense.Category(category), Match: match}

			render := func() error {
				svc, err := opts.openExpenses(cmd.Context(), true)
				if err != nil {
					return err
				}
				defer svc.Close()

				seq, err := svc.List(listOpts)
				if err != nil {
					return err
				}

				rows := []expenseRow{}
				for id, e := range seq {
					rows = append(rows, expenseRow{ID: id, Expense: e})
				}
				if asJSON {
					return writeJSON(cmd.OutOrStdout(), rows)
				}

				tw := newTable(cmd.OutOrStdout())
				fmt.Fprintln(tw, "ID\tDate\tDescription\tCategory\tAmount")
				for _, r := range rows {
					fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\n", r.ID, r.Date, r.Description, r.Category, formatAmount(r.Amount))
				}
				return tw.Flush()
			}

			if watch {
				return watchStore(cmd, opts, opts.location(tally.DefaultExpenseFile), render)
			}
			return render()
		},
	}

	cmd.Flags().StringVar(&category, "category", "", "only this category")
	cmd.Flags().StringVar(&match, "match", "", "glob on the description, e.g. '*coffee*'")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output in JSON format")
	cmd.Flags().BoolVar(&watch, "watch", false, "re-render when the store changes")

	return cmd
}

func newExpenseUpdateCommand(opts *rootOptions) *cobra.Command {
	var (
		id          int
		description string
		amount      float64
		category    string
	)

	cmd := &cobra.Command{
		Use:   "update",
		Short: "Change an expense; it is re-dated to today",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var patch expense.Patch
			flags := cmd.Flags()
			if flags.Changed("description") {
				patch.Description = &description
			}
			if flags.Changed("amount") {
				patch.Amount = &amount
			}
			if flags.Changed("category") {
				cat, err := expense.ParseCategory(category)
				if err != nil {
					return err
				}
				patch.Category = &cat
			}

			svc, err := opts.openExpenses(cmd.Context(), false)
			if err != nil {
				return err
			}
			defer svc.Close()

			if _, err := svc.Update(cmd.Context(), core.RecordID(id), patch); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Expense %d updated successfully\n", id)
			return nil
		},
	}

	cmd.Flags().IntVar(&id, "id", 0, "expense id")
	cmd.Flags().StringVar(&description, "description", "", "new description")
	cmd.Flags().Float64Var(&amount, "amount", 0, "new amount")
	cmd.Flags().StringVar(&category, "category", "", "new category")
	_ = cmd.MarkFlagRequired("id")

	return cmd
}

func newExpenseDeleteCommand(opts *rootOptions) *cobra.Command {
	var id int

	cmd := &cobra.Command{
		Use:   "delete",
		Short: "Delete an expense",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := opts.openExpenses(cmd.Context(), false)
			if err != nil {
				return err
			}
			defer svc.Close()

			if err := svc.Delete(cmd.Context(), core.RecordID(id)); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Expense deleted successfully\n")
			return nil
		},
	}

	cmd.Flags().IntVar(&id, "id", 0, "expense id")
	_ = cmd.MarkFlagRequired("id")

	return cmd
}

func newExpenseSummaryCommand(opts *rootOptions) *cobra.Command {
	var (
		month      int
		year       int
		category   string
		byCategory bool
	)

	cmd := &cobra.Command{
		Use:   "summary",
		Short: "Total the expenses, optionally for one month",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			summaryOpts := expense.SummaryOptions{Month: month, Year: year, Category: expense.Category(category)}

			svc, err := opts.openExpenses(cmd.Context(), true)
			if err != nil {
				return err
			}
			defer svc.Close()

			out := cmd.OutOrStdout()
			if byCategory {
				totals, err := svc.SummaryByCategory(summaryOpts)
				if err != nil {
					return err
				}
				tw := newTable(out)
				for _, c := range sortedKeys(totals) {
					fmt.Fprintf(tw, "%s\t%s\n", c, formatAmount(totals[c]))
				}
				return tw.Flush()
			}

			total, err := svc.Summary(summaryOpts)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "Total expenses%s: %s\n", summaryScope(summaryOpts), formatAmount(total))
			return nil
		},
	}

	cmd.Flags().IntVar(&month, "month", 0, "month (1-12)")
	cmd.Flags().IntVar(&year, "year", 0, "year, requires --month")
	cmd.Flags().StringVar(&category, "category", "", "only this category")
	cmd.Flags().BoolVar(&byCategory, "by-category", false, "one total per category")

	return cmd
}

func summaryScope(o expense.SummaryOptions) string {
	scope := ""
	if o.Month != 0 {
		scope = " for " + monthName(o.Month)
		if o.Year != 0 {
			scope += fmt.Sprintf(" %d", o.Year)
		}
	}
	if o.Category != "" {
		scope += fmt.Sprintf(" (%s)", o.Category)
	}
	return scope
}

func newExpenseStateCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "state",
		Short: "Print the store and table state as JSON",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := opts.openExpenses(cmd.Context(), true)
			if err != nil {
				return err
			}
			defer svc.Close()
			return writeJSON(cmd.OutOrStdout(), svc.Table().State())
		},
	}
}
