package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/aretw0/tally"
	"github.com/aretw0/tally/pkg/core"
	"github.com/aretw0/tally/pkg/task"
)

type taskRow struct {
	ID core.RecordID `json:"id"`
	task.Task
}

func newTaskCommand(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "task",
		Short: "Track tasks through todo, in-progress and done",
	}

	cmd.AddCommand(newTaskAddCommand(opts))
	cmd.AddCommand(newTaskUpdateCommand(opts))
	cmd.AddCommand(newTaskDeleteCommand(opts))
	cmd.AddCommand(newTaskMarkCommand(opts, task.Todo))
	cmd.AddCommand(newTaskMarkCommand(opts, task.InProgress))
	cmd.AddCommand(newTaskMarkCommand(opts, task.Done))
	cmd.AddCommand(newTaskListCommand(opts))
	cmd.AddCommand(newTaskStateCommand(opts))

	return cmd
}

func (o *rootOptions) openTasks(ctx context.Context, readOnly bool) (*task.Service, error) {
	return tally.OpenTasks(ctx, o.location(tally.DefaultTaskFile), o.storeOptions(readOnly)...)
}

func newTaskAddCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "add <description>",
		Short: "Add a task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := opts.openTasks(cmd.Context(), false)
			if err != nil {
				return err
			}
			defer svc.Close()

			id, err := svc.Add(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Task added successfully (ID: %d)\n", id)
			return nil
		},
	}
}

func newTaskUpdateCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "update <id> <description>",
		Short: "Replace the description of a task",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}

			svc, err := opts.openTasks(cmd.Context(), false)
			if err != nil {
				return err
			}
			defer svc.Close()

			old, err := svc.Get(id)
			if err != nil {
				return err
			}
			updated, err := svc.UpdateDescription(cmd.Context(), id, args[1])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Task %d\nOld Description: %s\nNew Description: %s\n", id, old.Description, updated.Description)
			return nil
		},
	}
}

func newTaskDeleteCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}

			svc, err := opts.openTasks(cmd.Context(), false)
			if err != nil {
				return err
			}
			defer svc.Close()

			if err := svc.Delete(cmd.Context(), id); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Task %d deleted successfully\n", id)
			return nil
		},
	}
}

func newTaskMarkCommand(opts *rootOptions, status task.Status) *cobra.Command {
	return &cobra.Command{
		Use:   "mark-" + string(status) + " <id>",
		Short: "Mark a task as " + string(status),
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}

			svc, err := opts.openTasks(cmd.Context(), false)
			if err != nil {
				return err
			}
			defer svc.Close()

			if _, err := svc.Mark(cmd.Context(), id, status); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Task %d marked as %s\n", id, status)
			return nil
		},
	}
}

func newTaskListCommand(opts *rootOptions) *cobra.Command {
	var (
		match  string
		asJSON bool
		watch  bool
	)

	cmd := &cobra.Command{
		Use:       "list [all|todo|in-progress|done]",
		Short:     "List tasks, optionally by status",
		Args:      cobra.MatchAll(cobra.MaximumNArgs(1), cobra.OnlyValidArgs),
		ValidArgs: []string{"all", string(task.Todo), string(task.InProgress), string(task.Done)},
		RunE: func(cmd *cobra.Command, args []string) error {
			listOpts := task.ListOptions{Match: match}
			if len(args) == 1 && args[0] != "all" {
				listOpts.Status = task.Status(args[0])
			}

			render := func() error {
				svc, err := opts.openTasks(cmd.Context(), true)
				if err != nil {
					return err
				}
				defer svc.Close()

				seq, err := svc.List(listOpts)
				if err != nil {
					return err
				}

				rows := []taskRow{}
				for id, t := range seq {
					rows = append(rows, taskRow{ID: id, Task: t})
				}
				if asJSON {
					return writeJSON(cmd.OutOrStdout(), rows)
				}
				if len(rows) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No tasks found")
					return nil
				}

				tw := newTable(cmd.OutOrStdout())
				fmt.Fprintln(tw, "ID\tStatus\tDescription\tCreated\tUpdated")
				for _, r := range rows {
					fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\n", r.ID, r.Status, r.Description, formatWhen(&r.CreatedAt), formatWhen(r.UpdatedAt))
				}
				if err := tw.Flush(); err != nil {
					return err
				}

				counts := svc.Counts()
				parts := make([]string, 0, len(task.Statuses))
				for _, st := range task.Statuses {
					parts = append(parts, fmt.Sprintf("%s: %d", st, counts[st]))
				}
				fmt.Fprintln(cmd.OutOrStdout(), strings.Join(parts, ", "))
				return nil
			}

			if watch {
				return watchStore(cmd, opts, opts.location(tally.DefaultTaskFile), render)
			}
			return render()
		},
	}

	cmd.Flags().StringVar(&match, "match", "", "glob on the description, e.g. '*milk*'")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output in JSON format")
	cmd.Flags().BoolVar(&watch, "watch", false, "re-render when the store changes")

	return cmd
}

func newTaskStateCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "state",
		Short: "Print the store and table state as JSON",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := opts.openTasks(cmd.Context(), true)
			if err != nil {
				return err
			}
			defer svc.Close()
			return writeJSON(cmd.OutOrStdout(), svc.Table().State())
		},
	}
}
