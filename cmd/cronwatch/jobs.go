package main

import (
	"fmt"
	"strings"

	"github.com/0xPuncker/cronwatch/internal/notifications"
	"github.com/spf13/cobra"
)

func viewCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "view",
		Short: "List watch jobs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := opts.container(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			printJobs(cmd.OutOrStdout(), c.Jobs().List())
			return nil
		},
	}
}

func addCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:     "add <url> [name...]",
		Short:   "Add a watch job",
		Example: "  cronwatch add https://example.com/pricing Pricing page",
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := opts.container(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			added, err := c.Jobs().Add(args[0], strings.Join(args[1:], " "))
			if err != nil {
				return err
			}
			c.Notifier().JobChanged(cmd.Context(), notifications.ActionAdded, *added)
			fmt.Fprintf(cmd.OutOrStdout(), "Added job %d: %s\n", added.Index, added.Name)
			fmt.Fprintf(cmd.OutOrStdout(), "Schedule it with: cronwatch crontab add %d <minutes>\n", added.Index)
			return nil
		},
	}
}

func editCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "edit <index> <url> [name...]",
		Short: "Change a job's URL and name",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := opts.container(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			result, err := c.Jobs().Edit(args[0], args[1], strings.Join(args[2:], " "))
			if err != nil {
				return err
			}
			c.Notifier().JobChanged(cmd.Context(), notifications.ActionUpdated, result.Job)
			fmt.Fprintf(cmd.OutOrStdout(), "Updated job %d: %s -> %s\n", result.Job.Index, result.OldName, result.Job.Name)
			return nil
		},
	}
}

func deleteCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <index>",
		Short: "Delete a watch job",
		Long:  "Delete a watch job. Jobs after it move up by one, so schedules that point at them by index are checked by `cronwatch audit`.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := opts.container(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			removed, err := c.Jobs().Delete(args[0])
			if err != nil {
				return err
			}
			c.Notifier().JobChanged(cmd.Context(), notifications.ActionDeleted, *removed)
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted job %d: %s\n", removed.Index, removed.Name)
			return nil
		},
	}
}

func editFilterCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "editfilter <index> [filter...]",
		Short: "Replace a job's filters; no filters removes them",
		Example: "  cronwatch editfilter 1 css:div.price html2text strip\n" +
			"  cronwatch editfilter 1",
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := opts.container(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			updated, err := c.Jobs().EditFilter(args[0], args[1:])
			if err != nil {
				return err
			}
			if len(updated.Filter) == 0 {
				fmt.Fprintf(cmd.OutOrStdout(), "Removed filters from job %d\n", updated.Index)
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Updated filters of job %d: %s\n", updated.Index, formatFilters(updated.Filter))
			return nil
		},
	}
}

func editPropCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "editprop <index> [key:value...]",
		Short: "Show or set a job's extra properties",
		Example: "  cronwatch editprop 1 timeout:30 headers.User-Agent:cronwatch\n" +
			"  cronwatch editprop 1",
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := opts.container(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			result, err := c.Jobs().EditProperties(args[0], args[1:])
			if err != nil {
				return err
			}
			if len(result.Updated) > 0 {
				fmt.Fprintf(cmd.OutOrStdout(), "Updated job %d: %s\n", result.Index, strings.Join(result.Updated, ", "))
			}
			printProperties(cmd.OutOrStdout(), result.Index, result.Properties)
			return nil
		},
	}
}
