package main

import (
	"time"

	"github.com/spf13/cobra"

	flense "github.com/flense-dev/flense-go"
)

type cliOptions struct {
	apiKey       string
	baseURL      string
	timeout      time.Duration
	pollInterval time.Duration
	failLogPath  string
	debug        bool
}

func newRootCmd() *cobra.Command {
	opts := &cliOptions{}

	cmd := &cobra.Command{
		Use:           "flense",
		Short:         "Flense document parsing CLI",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVar(&opts.apiKey, "api-key", "", "Flense API key (or set FLENSE_API_KEY)")
	cmd.PersistentFlags().StringVar(&opts.baseURL, "base-url", flense.DefaultBaseURL, "Base URL for the Flense API")
	cmd.PersistentFlags().DurationVar(&opts.timeout, "timeout", flense.DefaultTimeout, "HTTP timeout for API requests")
	cmd.PersistentFlags().DurationVar(&opts.pollInterval, "interval", flense.DefaultPollInterval, "Polling interval when waiting for jobs")
	cmd.PersistentFlags().StringVar(&opts.failLogPath, "fail-log", "fail.log", "Path to write failed job logs")
	cmd.PersistentFlags().BoolVar(&opts.debug, "debug", false, "Enable debug logging of requests and stream events")

	cmd.AddCommand(newParseCmd(opts))
	cmd.AddCommand(newWatchCmd(opts))
	cmd.AddCommand(newQuickCmd(opts))
	cmd.AddCommand(newCompletionCmd())

	return cmd
}
