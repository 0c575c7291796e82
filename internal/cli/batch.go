package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"time"

	"github.com/ppiankov/clauseguard/internal/worker"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	concurrency  int
	outputDir    string
	batchTimeout time.Duration
)

// batchCmd represents the batch command
var batchCmd = &cobra.Command{
	Use:   "batch <file>",
	Short: "Analyze many documents listed in a file",
	Long: `Batch analyzes documents concurrently in standard mode:
- Read document paths from the input file (one per line, # for comments)
- Validate each document (type, size) before upload
- Submit with a bounded number of workers and a request rate limit
- Write a JSON and a Markdown report per document

Example:
  clauseguard batch contracts.txt
  clauseguard batch contracts.txt --concurrency 8 --output-dir ./reports
  clauseguard batch contracts.txt --timeout 30m`,
	Args: cobra.ExactArgs(1),
	RunE: runBatch,
}

func init() {
	rootCmd.AddCommand(batchCmd)

	batchCmd.Flags().IntVar(&concurrency, "concurrency", 0, "number of concurrent workers (default concurrency.workers)")
	batchCmd.Flags().StringVar(&outputDir, "output-dir", "./clauseguard-reports", "output directory for reports")
	batchCmd.Flags().DurationVar(&batchTimeout, "batch-timeout", 30*time.Minute, "total timeout for batch processing")
	batchCmd.Flags().BoolVar(&noFooter, "no-footer", false, "disable footer in Markdown reports")

	_ = viper.BindPFlag("concurrency.workers", batchCmd.Flags().Lookup("concurrency"))
}

func runBatch(cmd *cobra.Command, args []string) error {
	listFile := args[0]

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, batchTimeout)
	defer cancel()

	a, err := appFromViper()
	if err != nil {
		return err
	}
	if noFooter {
		a.cfg.Output.IncludeFooter = false
		a.renderer = newRenderer(a.cfg)
	}
	workers := a.cfg.Concurrency.Workers

	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "  ClauseGuard Batch Analysis\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "  Input file:   %s\n", listFile)
	fmt.Fprintf(os.Stderr, "  Service:      %s\n", a.client.BaseURL())
	fmt.Fprintf(os.Stderr, "  Workers:      %d\n", workers)
	fmt.Fprintf(os.Stderr, "  Rate limit:   %.1f req/s\n", a.cfg.RateLimiting.RequestsPerSecond)
	fmt.Fprintf(os.Stderr, "  Output dir:   %s\n", outputDir)
	fmt.Fprintf(os.Stderr, "\n")

	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}

	processor := worker.NewBatchProcessor(a.client, a.loader, workers, a.log).
		WithLimiter(a.limiter, a.client.BaseURL()).
		WithTimeout(a.cfg.Submit.Timeout)

	used := make(map[string]int)
	results, err := processor.ProcessFile(ctx, listFile, func(res *worker.AnalyzeResult) {
		if res.Error != nil {
			fmt.Fprintf(os.Stderr, "✗ %s: %s\n", res.Path, describeError(res.Error))
			return
		}

		slug := uniqueSlug(used, sanitizeFilename(strings.TrimSuffix(filepath.Base(res.Path), filepath.Ext(res.Path))))
		jsonPath := filepath.Join(outputDir, slug+".json")
		mdPath := filepath.Join(outputDir, slug+".md")
		if err := a.renderer.WriteFiles(res.Result, jsonPath, mdPath); err != nil {
			res.Error = err
			fmt.Fprintf(os.Stderr, "✗ %s: %v\n", res.Path, err)
			return
		}

		fmt.Fprintf(os.Stderr, "✓ %s (%s)\n", res.Path, a.renderer.Summary(res.Result))
	})
	if err != nil {
		return fmt.Errorf("process file: %w", err)
	}

	succeeded, failed := worker.Summarize(results)

	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "  Batch Complete\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "  Total:     %d documents\n", len(results))
	fmt.Fprintf(os.Stderr, "  Success:   %d\n", succeeded)
	fmt.Fprintf(os.Stderr, "  Failures:  %d\n", failed)
	fmt.Fprintf(os.Stderr, "  Output:    %s\n", outputDir)
	fmt.Fprintf(os.Stderr, "\n")

	if failed > 0 && succeeded == 0 {
		return fmt.Errorf("all %d documents failed", failed)
	}
	return nil
}

// sanitizeFilename turns a document name into a safe report file stem
func sanitizeFilename(s string) string {
	replacer := strings.NewReplacer(
		"/", "_",
		"\\", "_",
		":", "_",
		"*", "_",
		"?", "_",
		"\"", "_",
		"<", "_",
		">", "_",
		"|", "_",
		" ", "-",
	)
	s = replacer.Replace(strings.TrimSpace(s))

	if len(s) > 100 {
		s = s[:100]
	}
	if s == "" || s == "." || s == ".." {
		s = "document"
	}
	return s
}

// uniqueSlug appends -2, -3... when two documents share a name
func uniqueSlug(used map[string]int, slug string) string {
	used[slug]++
	if n := used[slug]; n > 1 {
		return fmt.Sprintf("%s-%d", slug, n)
	}
	return slug
}
