package main

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/0xPuncker/cronwatch/internal/cron"
	"github.com/0xPuncker/cronwatch/internal/jobs"
	"github.com/0xPuncker/cronwatch/pkg/utils"
)

func printJobs(out io.Writer, listing []jobs.Listing) {
	if len(listing) == 0 {
		fmt.Fprintln(out, "No jobs configured. Add one with: cronwatch add <url> [name]")
		return
	}
	for _, job := range listing {
		fmt.Fprintf(out, "%d. %s\n", job.Index, job.Name)
		fmt.Fprintf(out, "   url: %s\n", job.URL)
		if len(job.Filter) > 0 {
			fmt.Fprintf(out, "   filter: %s\n", formatFilters(job.Filter))
		}
		if job.Properties.Len() > 0 {
			fmt.Fprintf(out, "   properties: %s\n", formatProperties(job.Properties))
		}
	}
}

func printProperties(out io.Writer, index int, props *jobs.Properties) {
	if props.Len() == 0 {
		fmt.Fprintf(out, "Job %d has no extra properties\n", index)
		return
	}
	fmt.Fprintf(out, "Properties of job %d:\n", index)
	for _, key := range props.Keys() {
		value, _ := props.Get(key)
		fmt.Fprintf(out, "  %s: %s\n", key, formatValue(value))
	}
}

func printSchedules(out io.Writer, schedules []cron.Schedule) {
	if len(schedules) == 0 {
		fmt.Fprintln(out, "No scheduled jobs.")
		return
	}
	fmt.Fprintf(out, "%-4s %-16s %-6s %-20s %s\n", "#", "Schedule", "Job", "Next Run", "Command")
	fmt.Fprintln(out, strings.Repeat("-", 72))
	for _, s := range schedules {
		next := "-"
		if s.NextRun != nil {
			next = "in " + utils.FormatDuration(time.Until(*s.NextRun))
		}
		fmt.Fprintf(out, "%-4d %-16s %-6d %-20s %s\n", s.Position, s.Expression, s.JobIndex, next, s.Command)
	}
}

func printScheduleChange(out io.Writer, verb string, s *cron.Schedule) {
	fmt.Fprintf(out, "%s schedule %d: job %d runs %s (%s)\n", verb, s.Position, s.JobIndex, s.Description, s.Expression)
}

func printRuns(out io.Writer, s *cron.Schedule, runs []time.Time) {
	fmt.Fprintf(out, "Schedule %d (%s) runs job %d next at:\n", s.Position, s.Expression, s.JobIndex)
	for _, run := range runs {
		fmt.Fprintf(out, "  %s\n", run.Format(time.RFC3339))
	}
}

func printAudit(out io.Writer, report *cron.AuditReport) {
	if len(report.Orphans) == 0 {
		fmt.Fprintf(out, "All %d schedule(s) point at existing jobs (%d job(s)).\n", report.Checked, report.JobCount)
		return
	}
	fmt.Fprintf(out, "%d of %d schedule(s) point at missing jobs (%d job(s) configured):\n",
		len(report.Orphans), report.Checked, report.JobCount)
	for _, o := range report.Orphans {
		fmt.Fprintf(out, "  %d. %s %s # %s\n", o.Position, o.Expression, o.Command, o.Annotation)
	}
}

func formatFilters(filters []jobs.FilterSpec) string {
	parts := make([]string, len(filters))
	for i, f := range filters {
		parts[i] = f.String()
	}
	return strings.Join(parts, ", ")
}

func formatProperties(props *jobs.Properties) string {
	parts := make([]string, 0, props.Len())
	for _, key := range props.Keys() {
		value, _ := props.Get(key)
		parts = append(parts, key+"="+formatValue(value))
	}
	return strings.Join(parts, ", ")
}

func formatValue(value interface{}) string {
	nested, ok := value.(*jobs.Properties)
	if !ok {
		return fmt.Sprintf("%v", value)
	}
	m := nested.ToMap()
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = fmt.Sprintf("%s: %v", k, m[k])
	}
	return "{" + strings.Join(parts, ", ") + "}"
}
