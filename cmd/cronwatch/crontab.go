package main

import (
	"fmt"

	"github.com/0xPuncker/cronwatch/internal/notifications"
	"github.com/0xPuncker/cronwatch/pkg/calendar"
	"github.com/spf13/cobra"
)

func crontabCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "crontab",
		Short: "Manage the crontab entries that run watch jobs",
	}
	cmd.AddCommand(
		crontabViewCmd(opts),
		crontabAddCmd(opts),
		crontabEditCmd(opts),
		crontabDeleteCmd(opts),
		crontabNextCmd(opts),
	)
	return cmd
}

func crontabViewCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "view",
		Short: "List scheduled jobs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := opts.container(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			schedules, err := c.Schedules().List(cmd.Context())
			if err != nil {
				return err
			}
			printSchedules(cmd.OutOrStdout(), schedules)
			return nil
		},
	}
}

func crontabAddCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "add <job_index> <minutes>",
		Short: "Run a job every <minutes>",
		Long: "Run a job every <minutes>. Accepted intervals are 1-59 minutes, " +
			"whole hours that divide a day, and whole days.",
		Example: "  cronwatch crontab add 2 15",
		Args:    cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := opts.container(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			added, err := c.Schedules().Add(cmd.Context(), args[0], args[1])
			if err != nil {
				return err
			}
			c.Notifier().ScheduleChanged(cmd.Context(), notifications.ActionAdded, *added)
			printScheduleChange(cmd.OutOrStdout(), "Added", added)
			return nil
		},
	}
}

func crontabEditCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "edit <position> <minutes>",
		Short: "Change how often a scheduled job runs",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := opts.container(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			updated, err := c.Schedules().Edit(cmd.Context(), args[0], args[1])
			if err != nil {
				return err
			}
			c.Notifier().ScheduleChanged(cmd.Context(), notifications.ActionUpdated, *updated)
			printScheduleChange(cmd.OutOrStdout(), "Updated", updated)
			return nil
		},
	}
}

func crontabDeleteCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <position>",
		Short: "Remove a scheduled job",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := opts.container(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			removed, err := c.Schedules().Delete(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			c.Notifier().ScheduleChanged(cmd.Context(), notifications.ActionDeleted, *removed)
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted schedule %d (%s)\n", removed.Position, removed.Expression)
			return nil
		},
	}
}

func crontabNextCmd(opts *options) *cobra.Command {
	var count int
	cmd := &cobra.Command{
		Use:   "next <position>",
		Short: "Show the upcoming runs of a scheduled job",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := opts.container(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			schedule, err := c.Schedules().Get(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			runs, err := c.Calendar().Upcoming(schedule.Expression, count)
			if err != nil {
				return err
			}
			printRuns(cmd.OutOrStdout(), schedule, runs)
			return nil
		},
	}
	cmd.Flags().IntVarP(&count, "count", "n", calendar.DefaultRuns, "number of runs to show")
	return cmd
}

func auditCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "audit",
		Short: "Report schedules whose job no longer exists",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := opts.container(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			report, err := c.Auditor().Run(cmd.Context())
			if err != nil {
				return err
			}
			printAudit(cmd.OutOrStdout(), report)
			return nil
		},
	}
}
