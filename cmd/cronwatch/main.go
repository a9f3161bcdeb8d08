// Package main is the cronwatch command line client.
package main

import (
	"fmt"
	"io"
	"os"

	"github.com/0xPuncker/cronwatch/internal/config"
	"github.com/0xPuncker/cronwatch/internal/container"
	"github.com/0xPuncker/cronwatch/pkg/utils"
	"github.com/spf13/cobra"
)

// Set by ldflags.
var version = "dev"

type options struct {
	configPath string
	verbose    bool
}

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	opts := &options{}
	root := &cobra.Command{
		Use:           "cronwatch",
		Short:         "Manage urlwatch jobs and their crontab schedules",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "path to config file (defaults to environment)")
	root.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "log operations to stderr")

	root.AddCommand(
		viewCmd(opts),
		addCmd(opts),
		editCmd(opts),
		deleteCmd(opts),
		editFilterCmd(opts),
		editPropCmd(opts),
		crontabCmd(opts),
		auditCmd(opts),
	)
	return root
}

func (o *options) container(errOut io.Writer) (*container.Container, error) {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return nil, err
	}

	level := "warn"
	if o.verbose {
		level = cfg.LogLevel
	}
	return container.New(cfg, utils.NewLogger(level, errOut))
}
