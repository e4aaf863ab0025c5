package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/spf13/cobra"

	flense "github.com/flense-dev/flense-go"
)

func newWatchCmd(opts *cliOptions) *cobra.Command {
	wo := &watchCmdOptions{
		opts: opts,
	}

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Queue a parse job and stream its events live",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := wo.Complete(); err != nil {
				return err
			}
			return wo.Run(cmd)
		},
	}

	wo.addFlags(cmd)
	cmd.ValidArgsFunction = positionalAlwaysFlags

	return cmd
}

type watchCmdOptions struct {
	url         string
	filePath    string
	jobID       string
	output      string
	assemble    bool
	maxDuration time.Duration
	toggles     parseToggles
	opts        *cliOptions
}

func (o *watchCmdOptions) addFlags(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&o.url, "url", "u", "", "Document URL to parse")
	cmd.Flags().StringVarP(&o.filePath, "file", "f", "", "File path to upload and parse")
	cmd.Flags().StringVar(&o.jobID, "job", "", "Watch an already-queued job by id")
	cmd.Flags().StringVarP(&o.output, "output", "o", "", "Save page-assembled markdown here when the job completes")
	cmd.Flags().BoolVar(&o.assemble, "assemble", false, "Collect per-page content events and print the assembled markdown")
	cmd.Flags().DurationVar(&o.maxDuration, "max-duration", 6*time.Minute, "Give up watching after this long (the server drops streams at 5m)")
	o.toggles.addFlags(cmd)
}

func (o *watchCmdOptions) Complete() error {
	sources := 0
	for _, s := range []string{o.url, o.filePath, o.jobID} {
		if s != "" {
			sources++
		}
	}
	if sources == 0 {
		return errors.New("one of --url, --file, or --job is required")
	}
	if sources > 1 {
		return errors.New("--url, --file, and --job are mutually exclusive")
	}

	if o.output != "" {
		o.assemble = true
	}
	if o.assemble {
		// Per-page events only arrive when page streaming is on.
		o.toggles.pages = true
	}

	return nil
}

func (o *watchCmdOptions) Run(cmd *cobra.Command) error {
	apiKey, err := resolveAPIKey(o.opts)
	if err != nil {
		return err
	}

	cli, err := buildClient(apiKey, o.opts)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), o.maxDuration)
	defer cancel()

	var (
		done      = make(chan struct{})
		closeOnce sync.Once
		mu        sync.Mutex
		failure   error
		assembler = flense.NewContentAssembler()
	)
	finish := func() { closeOnce.Do(func() { close(done) }) }

	cb := flense.Callbacks{
		OnStatus: func(job *flense.Job) {
			printWithJob(cmd, "info", job.ID, "Status",
				slog.String("state", string(job.State)),
			)
			if job.State.Terminal() {
				finish()
			}
		},
		OnProgress: func(p *flense.Progress) {
			attrs := []slog.Attr{
				slog.Float64("pct", p.Progress),
				slog.String("stage", p.Stage),
			}
			if p.TotalPages > 0 {
				attrs = append(attrs, slog.Int("page", p.CurrentPage), slog.Int("pages", p.TotalPages))
			}
			printWithJob(cmd, "info", "", "Progress", attrs...)
		},
		OnContent: func(chunk *flense.ContentChunk) {
			assembler.Add(chunk)
			printWithJob(cmd, "info", "", "Content",
				slog.Int("page", chunk.Page),
				slog.Int("chars", len(chunk.Text())),
			)
		},
		OnComplete: func(job *flense.Job) {
			printWithJob(cmd, "info", job.ID, "Completed",
				slog.Int("chars", len(job.Text())),
			)
		},
		OnFailed: func(job *flense.Job) {
			msg := job.Error
			if msg == "" {
				msg = "unknown error"
			}
			mu.Lock()
			failure = &flense.JobFailedError{JobID: job.ID, Message: msg}
			mu.Unlock()
			printWithJob(cmd, "error", job.ID, "Failed",
				slog.String("error", msg),
			)
		},
		OnError: func(err error) {
			printWithJob(cmd, "error", "", "Stream error",
				slog.String("error", err.Error()),
			)
		},
	}

	unsubscribe, err := o.subscribe(ctx, cli, cb)
	if err != nil {
		return err
	}
	defer unsubscribe()

	select {
	case <-ctx.Done():
		return fmt.Errorf("watch ended before the job finished: %w", ctx.Err())
	case <-done:
	}

	mu.Lock()
	result := failure
	mu.Unlock()
	if result != nil {
		return result
	}

	if o.assemble && assembler.Len() > 0 {
		markdown := assembler.Markdown()
		if o.output != "" {
			if err := writeText(o.output, markdown); err != nil {
				return err
			}
			printWithJob(cmd, "info", "", "Saved assembled markdown",
				slog.String("path", o.output),
				slog.Int("pages", assembler.Len()),
			)
		} else {
			fmt.Fprintln(cmd.OutOrStdout(), markdown)
		}
	}

	return nil
}

func (o *watchCmdOptions) subscribe(ctx context.Context, cli flense.Client, cb flense.Callbacks) (flense.UnsubscribeFunc, error) {
	if o.jobID != "" {
		return cli.SubscribeJob(ctx, o.jobID, cb)
	}

	var handle *flense.JobHandle
	if o.url != "" {
		handle = cli.CreateJobFromURL(o.url)
	} else {
		handle = cli.CreateJobFromFile(o.filePath)
	}
	o.toggles.apply(handle)

	return handle.Subscribe(ctx, cb), nil
}
