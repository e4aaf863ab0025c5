package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"
)

func newQuickCmd(opts *cliOptions) *cobra.Command {
	qo := &quickCmdOptions{
		opts: opts,
	}

	cmd := &cobra.Command{
		Use:   "quick",
		Short: "Parse a file synchronously, bypassing the job queue",
		Long:  "Parse a file in one blocking call. No job is created and no progress is reported; suitable for small documents.",
		RunE: func(cmd *cobra.Command, args []string) error {
			if qo.filePath == "" {
				return fmt.Errorf("flag --file is required")
			}
			return qo.Run(cmd)
		},
	}

	cmd.Flags().StringVarP(&qo.filePath, "file", "f", "", "File path to parse")
	cmd.Flags().StringVarP(&qo.output, "output", "o", "", "Optional path to save the extracted markdown")
	cmd.ValidArgsFunction = positionalAlwaysFlags

	return cmd
}

type quickCmdOptions struct {
	filePath string
	output   string
	opts     *cliOptions
}

func (o *quickCmdOptions) Run(cmd *cobra.Command) error {
	apiKey, err := resolveAPIKey(o.opts)
	if err != nil {
		return err
	}

	cli, err := buildClient(apiKey, o.opts)
	if err != nil {
		return err
	}

	result, err := cli.ParseSyncFile(cmd.Context(), o.filePath)
	if err != nil {
		return err
	}

	if o.output != "" {
		if err := writeText(o.output, result.Text()); err != nil {
			return err
		}
		printWithJob(cmd, "info", "", "Saved markdown",
			slog.String("path", o.output),
			slog.Int("chars", len(result.Text())),
		)
		return nil
	}

	fmt.Fprintln(cmd.OutOrStdout(), result.Text())
	return nil
}
