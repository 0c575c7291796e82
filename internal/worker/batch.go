package worker

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ppiankov/clauseguard/internal/api"
	"github.com/ppiankov/clauseguard/internal/input"
	"github.com/ppiankov/clauseguard/internal/model"
	"github.com/samber/lo"
)

// Analyzer submits one document for standard analysis
type Analyzer interface {
	AnalyzeFile(ctx context.Context, file *model.FileRef) (*api.Analysis, error)
}

// AnalyzeJob loads one document and analyzes it
type AnalyzeJob struct {
	Index    int
	Path     string
	Loader   *input.Loader
	Analyzer Analyzer
	Limiter  *Limiter
	Endpoint string
	Timeout  time.Duration
}

// Execute executes the analysis job
func (j *AnalyzeJob) Execute(ctx context.Context) Result {
	start := time.Now()
	res := &AnalyzeResult{Index: j.Index, Path: j.Path}

	file, err := j.Loader.LoadFile(j.Path)
	if err != nil {
		res.Error = err
		return res
	}

	if j.Limiter != nil {
		if err := j.Limiter.Wait(ctx, j.Endpoint); err != nil {
			res.Error = fmt.Errorf("rate limit: %w", err)
			return res
		}
	}

	if j.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, j.Timeout)
		defer cancel()
	}

	analysis, err := j.Analyzer.AnalyzeFile(ctx, file)
	res.Duration = time.Since(start)
	if err != nil {
		res.Error = err
		return res
	}

	res.Result = &model.AnalysisResult{
		Clauses:    analysis.Clauses,
		Source:     model.InputSource{File: file}.Describe(),
		RequestID:  analysis.RequestID,
		ReceivedAt: time.Now().UTC(),
	}
	return res
}

// AnalyzeResult is the outcome for one document in a batch
type AnalyzeResult struct {
	Index    int
	Path     string
	Result   *model.AnalysisResult
	Duration time.Duration
	Error    error
}

// GetError returns the error from the analysis
func (r *AnalyzeResult) GetError() error {
	return r.Error
}

// BatchProcessor analyzes many documents concurrently
type BatchProcessor struct {
	analyzer    Analyzer
	loader      *input.Loader
	concurrency int
	limiter     *Limiter
	endpoint    string
	timeout     time.Duration
	log         *slog.Logger
}

// NewBatchProcessor creates a new batch processor
func NewBatchProcessor(analyzer Analyzer, loader *input.Loader, concurrency int, log *slog.Logger) *BatchProcessor {
	if log == nil {
		log = slog.Default()
	}
	return &BatchProcessor{
		analyzer:    analyzer,
		loader:      loader,
		concurrency: concurrency,
		log:         log,
	}
}

// WithLimiter throttles calls to the analysis service at endpoint
func (b *BatchProcessor) WithLimiter(l *Limiter, endpoint string) *BatchProcessor {
	b.limiter = l
	b.endpoint = endpoint
	return b
}

// WithTimeout bounds each document's analysis
func (b *BatchProcessor) WithTimeout(d time.Duration) *BatchProcessor {
	b.timeout = d
	return b
}

// ProcessPaths analyzes the documents and returns results in input order.
// onResult, if set, is called as each document finishes.
func (b *BatchProcessor) ProcessPaths(ctx context.Context, paths []string, onResult func(*AnalyzeResult)) []*AnalyzeResult {
	if len(paths) == 0 {
		return []*AnalyzeResult{}
	}

	pool := NewPool(ctx, b.concurrency)
	pool.Start()

	go func() {
		for i, path := range paths {
			job := &AnalyzeJob{
				Index:    i,
				Path:     path,
				Loader:   b.loader,
				Analyzer: b.analyzer,
				Limiter:  b.limiter,
				Endpoint: b.endpoint,
				Timeout:  b.timeout,
			}
			if !pool.Submit(job) {
				break
			}
		}
		pool.Close()
	}()

	ordered := make([]*AnalyzeResult, len(paths))
	for r := range pool.Results() {
		res := r.(*AnalyzeResult)
		ordered[res.Index] = res
		if res.Error != nil {
			b.log.Warn("document failed", "path", res.Path, "error", res.Error)
		} else {
			b.log.Debug("document analyzed", "path", res.Path, "clauses", len(res.Result.Clauses), "elapsed", res.Duration.Round(time.Millisecond))
		}
		if onResult != nil {
			onResult(res)
		}
	}

	// Documents never started because the context ended
	for i, res := range ordered {
		if res == nil {
			err := ctx.Err()
			if err == nil {
				err = context.Canceled
			}
			ordered[i] = &AnalyzeResult{Index: i, Path: paths[i], Error: err}
		}
	}

	return ordered
}

// ProcessFile reads document paths from a list file and analyzes them
func (b *BatchProcessor) ProcessFile(ctx context.Context, listPath string, onResult func(*AnalyzeResult)) ([]*AnalyzeResult, error) {
	paths, err := ReadPathsFromFile(listPath)
	if err != nil {
		return nil, fmt.Errorf("read document list: %w", err)
	}
	return b.ProcessPaths(ctx, paths, onResult), nil
}

// Summarize counts successful and failed documents
func Summarize(results []*AnalyzeResult) (succeeded, failed int) {
	failed = lo.CountBy(results, func(r *AnalyzeResult) bool { return r.Error != nil })
	return len(results) - failed, failed
}

// ReadPathsFromFile reads document paths from a file (one per line).
// Relative paths resolve against the list file's directory.
func ReadPathsFromFile(listPath string) ([]string, error) {
	file, err := os.Open(listPath)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}
	defer func() { _ = file.Close() }()

	base := filepath.Dir(listPath)
	var paths []string

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())

		// Skip empty lines and comments
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		if !filepath.IsAbs(line) {
			line = filepath.Join(base, line)
		}
		paths = append(paths, filepath.Clean(line))
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan file: %w", err)
	}

	return lo.Uniq(paths), nil
}
