package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	flense "github.com/flense-dev/flense-go"
)

func buildClient(apiKey string, opts *cliOptions) (flense.Client, error) {
	options := []flense.Option{
		flense.WithAPIKey(apiKey),
		flense.WithBaseURL(opts.baseURL),
		flense.WithTimeout(opts.timeout),
		flense.WithPollInterval(opts.pollInterval),
	}

	if opts.debug {
		logger, err := zap.NewDevelopment()
		if err != nil {
			return nil, fmt.Errorf("build debug logger: %w", err)
		}
		options = append(options, flense.WithLogger(logger))
	}

	return flense.NewClient(options...)
}

func resolveAPIKey(opts *cliOptions) (string, error) {
	if opts.apiKey != "" {
		return opts.apiKey, nil
	}

	if env := os.Getenv(flense.EnvAPIKey); env != "" {
		opts.apiKey = env
		return env, nil
	}

	return "", errors.New("api key is required (flag --api-key or " + flense.EnvAPIKey + ")")
}

// parseToggles are the per-job feature flags shared by parse and watch.
type parseToggles struct {
	ocr     bool
	tables  bool
	images  bool
	pages   bool
	noCache bool
}

func (t *parseToggles) addFlags(cmd *cobra.Command) {
	cmd.Flags().BoolVar(&t.ocr, "ocr", false, "Run OCR on scanned pages")
	cmd.Flags().BoolVar(&t.tables, "tables", false, "Detect and extract tables")
	cmd.Flags().BoolVar(&t.images, "images", false, "Extract embedded images")
	cmd.Flags().BoolVar(&t.pages, "pages", false, "Request per-page content streaming")
	cmd.Flags().BoolVar(&t.noCache, "no-cache", false, "Bypass the server-side result cache")
}

func (t *parseToggles) apply(h *flense.JobHandle) *flense.JobHandle {
	if t.ocr {
		h.EnableOCR()
	}
	if t.tables {
		h.EnableTables()
	}
	if t.images {
		h.EnableImages()
	}
	if t.pages {
		h.EnablePageStreaming()
	}
	if t.noCache {
		h.DisableCache()
	}
	return h
}

// supportedExts limits directory scans to formats the service accepts.
var supportedExts = map[string]struct{}{
	".pdf": {}, ".doc": {}, ".docx": {}, ".ppt": {}, ".pptx": {},
	".xls": {}, ".xlsx": {}, ".txt": {}, ".md": {}, ".html": {},
	".htm": {}, ".png": {}, ".jpg": {}, ".jpeg": {}, ".gif": {},
	".webp": {}, ".tiff": {}, ".tif": {},
}

func collectInputFiles(p string) ([]string, error) {
	info, err := os.Stat(p)
	if err != nil {
		return nil, fmt.Errorf("stat path: %w", err)
	}

	if info.Mode().IsRegular() {
		if _, ok := supportedExts[strings.ToLower(filepath.Ext(p))]; ok {
			return []string{p}, nil
		}
		return nil, fmt.Errorf("unsupported file type: %s", p)
	}

	if !info.IsDir() {
		return nil, fmt.Errorf("path is neither file nor directory: %s", p)
	}

	entries, err := os.ReadDir(p)
	if err != nil {
		return nil, fmt.Errorf("read dir: %w", err)
	}

	var files []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if _, ok := supportedExts[strings.ToLower(filepath.Ext(entry.Name()))]; ok {
			files = append(files, filepath.Join(p, entry.Name()))
		}
	}

	return files, nil
}

func writeText(path, content string) error {
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create output dir: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return fmt.Errorf("write file: %w", err)
	}
	return nil
}

func changeExt(name, ext string) string {
	base := strings.TrimSuffix(name, filepath.Ext(name))
	return base + ext
}

func printWithJob(cmd *cobra.Command, level string, jobID string, msg string, attrs ...slog.Attr) {
	lvl := slog.LevelInfo
	if strings.ToLower(level) == "error" {
		lvl = slog.LevelError
	}

	logger := newLogger(cmd.OutOrStdout(), lvl)
	if jobID != "" {
		attrs = append([]slog.Attr{slog.String("job", jobID)}, attrs...)
	}
	logger.LogAttrs(cmd.Context(), lvl, msg, attrs...)
}

func newLogger(w io.Writer, level slog.Level) *slog.Logger {
	handler := slog.NewTextHandler(w, &slog.HandlerOptions{
		Level: level,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.TimeKey {
				return slog.Attr{}
			}
			return a
		},
	})
	return slog.New(handler)
}
