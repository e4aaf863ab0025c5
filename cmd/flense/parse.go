package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	flense "github.com/flense-dev/flense-go"
)

func newParseCmd(opts *cliOptions) *cobra.Command {
	po := &parseCmdOptions{
		opts: opts,
	}

	cmd := &cobra.Command{
		Use:   "parse",
		Short: "Queue a parse job for a URL, a file, or a directory of files",
		RunE: func(cmd *cobra.Command, args []string) error {
			po.failLog = newFailureLog(po.opts.failLogPath)

			if err := po.Complete(); err != nil {
				return po.failLog.note("", po.target(), err)
			}

			if err := po.Validate(); err != nil {
				return err
			}

			return po.Run(cmd)
		},
	}

	po.addFlags(cmd)
	cmd.ValidArgsFunction = positionalAlwaysFlags

	return cmd
}

type parseCmdOptions struct {
	url            string
	filePath       string
	inputPath      string
	wait           bool
	output         string
	outputDir      string
	concurrency    int
	downloadImages bool
	imagesDir      string
	toggles        parseToggles
	opts           *cliOptions
	failLog        *failureLog
	files          []string
	apiKey         string
}

type parseJobConfig struct {
	wait           bool
	output         string
	outputDir      string
	failLog        *failureLog
	downloadImages bool
	imagesDir      string
	toggles        parseToggles
}

func (o *parseCmdOptions) addFlags(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&o.url, "url", "u", "", "Document URL to parse")
	cmd.Flags().StringVarP(&o.filePath, "file", "f", "", "File path to upload and parse")
	cmd.Flags().StringVarP(&o.inputPath, "path", "p", "", "Path to a file or a directory of documents")
	cmd.Flags().BoolVar(&o.wait, "wait", true, "Wait for parsing to finish")
	cmd.Flags().StringVarP(&o.output, "output", "o", "", "Optional path to save the extracted markdown")
	cmd.Flags().StringVar(&o.outputDir, "output-dir", "", "Directory to store markdown when parsing multiple files")
	cmd.Flags().IntVar(&o.concurrency, "concurrency", 3, "Number of concurrent uploads when using --path")
	cmd.Flags().BoolVar(&o.downloadImages, "download-images", false, "Download extracted image artifacts after completion (implies --images)")
	cmd.Flags().StringVar(&o.imagesDir, "images-dir", ".", "Directory to store downloaded image artifacts")
	o.toggles.addFlags(cmd)
}

func (o *parseCmdOptions) target() string {
	if o.url != "" {
		return o.url
	}
	if o.filePath != "" {
		return o.filePath
	}
	return o.inputPath
}

func (o *parseCmdOptions) Complete() error {
	sources := 0
	for _, s := range []string{o.url, o.filePath, o.inputPath} {
		if s != "" {
			sources++
		}
	}
	if sources == 0 {
		return errors.New("one of --url, --file, or --path is required")
	}
	if sources > 1 {
		return errors.New("--url, --file, and --path are mutually exclusive")
	}

	if o.concurrency <= 0 {
		o.concurrency = 3
	}

	if o.downloadImages {
		o.toggles.images = true
	}

	if o.url != "" {
		return nil
	}

	targetPath := o.filePath
	if targetPath == "" {
		targetPath = o.inputPath
	}

	files, err := collectInputFiles(targetPath)
	if err != nil {
		return err
	}
	o.files = files

	return nil
}

func (o *parseCmdOptions) Validate() error {
	if o.url == "" && len(o.files) == 0 {
		return fmt.Errorf("no supported documents found in %s", o.inputPath)
	}
	return nil
}

func (o *parseCmdOptions) Run(cmd *cobra.Command) error {
	apiKey, err := resolveAPIKey(o.opts)
	if err != nil {
		return o.failLog.note("", o.target(), err)
	}
	o.apiKey = apiKey

	cli, err := buildClient(o.apiKey, o.opts)
	if err != nil {
		return err
	}
	ctx := cmd.Context()

	jobCfg := parseJobConfig{
		wait:           o.wait,
		output:         o.output,
		outputDir:      o.outputDir,
		failLog:        o.failLog,
		downloadImages: o.downloadImages,
		imagesDir:      o.imagesDir,
		toggles:        o.toggles,
	}

	if o.url != "" {
		handle := jobCfg.toggles.apply(cli.CreateJobFromURL(o.url))
		return handleParseJob(ctx, cmd, cli, handle, o.url, jobCfg)
	}

	if len(o.files) == 1 {
		handle := jobCfg.toggles.apply(cli.CreateJobFromFile(o.files[0]))
		return handleParseJob(ctx, cmd, cli, handle, o.files[0], jobCfg)
	}

	return runParseBatch(ctx, cmd, cli, o.files, o.concurrency, jobCfg)
}

func handleParseJob(ctx context.Context, cmd *cobra.Command, cli flense.Client, handle *flense.JobHandle, source string, job parseJobConfig) error {
	label := filepath.Base(source)

	created, err := handle.CreateResponse(ctx)
	if err != nil {
		return job.failLog.note("", source, fmt.Errorf("queue job for %s: %w", source, err))
	}

	attrs := []slog.Attr{slog.String("source", label)}
	if created.Unlimited {
		attrs = append(attrs, slog.Bool("unlimited", true))
	} else if created.Remaining != nil {
		attrs = append(attrs, slog.Int("remaining", *created.Remaining))
	}
	printWithJob(cmd, "info", created.JobID, "Job queued", attrs...)

	if !job.wait {
		return nil
	}

	result, err := cli.WaitForJob(ctx, created.JobID)
	if err != nil {
		return job.failLog.note(created.JobID, source, err)
	}

	printWithJob(cmd, "info", created.JobID, "Parse completed",
		slog.String("source", label),
		slog.String("state", string(result.State)),
		slog.Int("chars", len(result.Markdown)),
	)

	target := job.output
	if job.outputDir != "" {
		target = filepath.Join(job.outputDir, changeExt(label, ".md"))
	}

	if target != "" {
		if err := writeText(target, result.Markdown); err != nil {
			return job.failLog.note(created.JobID, source, err)
		}
		printWithJob(cmd, "info", created.JobID, "Saved markdown",
			slog.String("path", target),
		)
	}

	if job.downloadImages {
		if err := downloadJobImages(ctx, cmd, cli, created.JobID, job.imagesDir); err != nil {
			return job.failLog.note(created.JobID, source, err)
		}
	}

	return nil
}

func downloadJobImages(ctx context.Context, cmd *cobra.Command, cli flense.Client, jobID, dir string) error {
	snapshot, err := cli.GetJob(ctx, jobID)
	if err != nil {
		return err
	}

	if snapshot.Output == nil || len(snapshot.Output.Images) == 0 {
		printWithJob(cmd, "info", jobID, "No image artifacts to download")
		return nil
	}

	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create images dir: %w", err)
	}

	for i, artifactURL := range snapshot.Output.Images {
		// Prefix with the index so artifacts sharing a fallback name
		// do not overwrite each other.
		name := fmt.Sprintf("%02d-%s", i+1, flense.FilenameFromURL(artifactURL))
		target := filepath.Join(dir, name)

		f, err := os.Create(target)
		if err != nil {
			return fmt.Errorf("create image file: %w", err)
		}

		if err := cli.DownloadArtifactTo(ctx, artifactURL, f); err != nil {
			f.Close()
			return err
		}
		if err := f.Close(); err != nil {
			return fmt.Errorf("close image file: %w", err)
		}

		printWithJob(cmd, "info", jobID, "Downloaded image artifact",
			slog.String("path", target),
		)
	}

	return nil
}

func runParseBatch(ctx context.Context, cmd *cobra.Command, cli flense.Client, files []string, concurrency int, job parseJobConfig) error {
	eg, ctx := errgroup.WithContext(ctx)
	if concurrency > 0 {
		eg.SetLimit(concurrency)
	}

	var (
		errs []error
		mu   sync.Mutex
	)

	for _, file := range files {
		file := file
		eg.Go(func() error {
			handle := job.toggles.apply(cli.CreateJobFromFile(file))
			if err := handleParseJob(ctx, cmd, cli, handle, file, job); err != nil {
				mu.Lock()
				errs = append(errs, err)
				mu.Unlock()
			}
			return nil
		})
	}

	if err := eg.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}

	if len(errs) > 0 {
		return fmt.Errorf("batch completed with %d errors, first: %w", len(errs), errs[0])
	}

	return nil
}
