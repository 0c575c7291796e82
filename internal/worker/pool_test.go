package worker

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/ppiankov/clauseguard/internal/api"
	"github.com/ppiankov/clauseguard/internal/input"
	"github.com/ppiankov/clauseguard/internal/model"
)

// trackingAnalyzer records how many analyses overlap and can hold
// documents back by name
type trackingAnalyzer struct {
	delays map[string]time.Duration

	mu      sync.Mutex
	active  int
	maxSeen int
}

func (a *trackingAnalyzer) AnalyzeFile(ctx context.Context, file *model.FileRef) (*api.Analysis, error) {
	a.mu.Lock()
	a.active++
	if a.active > a.maxSeen {
		a.maxSeen = a.active
	}
	a.mu.Unlock()
	defer func() {
		a.mu.Lock()
		a.active--
		a.mu.Unlock()
	}()

	delay := a.delays[file.Name]
	if delay == 0 {
		delay = 20 * time.Millisecond
	}
	select {
	case <-time.After(delay):
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	return &api.Analysis{RequestID: "req-" + file.Name}, nil
}

func (a *trackingAnalyzer) peak() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.maxSeen
}

func analyzeJobs(loader *input.Loader, analyzer Analyzer, paths []string) []*AnalyzeJob {
	jobs := make([]*AnalyzeJob, len(paths))
	for i, path := range paths {
		jobs[i] = &AnalyzeJob{Index: i, Path: path, Loader: loader, Analyzer: analyzer}
	}
	return jobs
}

func docPaths(t *testing.T, names ...string) []string {
	t.Helper()
	docs := make(map[string]string, len(names))
	for _, name := range names {
		docs[name] = "Terms for " + name
	}
	dir := writeDocs(t, docs)
	paths := make([]string, len(names))
	for i, name := range names {
		paths[i] = filepath.Join(dir, name)
	}
	return paths
}

func TestNewPool_MinimumOneWorker(t *testing.T) {
	pool := NewPool(context.Background(), 0)
	if pool.workers != 1 {
		t.Errorf("Expected 1 worker, got %d", pool.workers)
	}
}

func TestPool_RunsAnalyzeJobs(t *testing.T) {
	paths := docPaths(t, "tos.txt", "privacy.txt", "cookies.txt")
	loader := input.NewLoader(1<<20, discardLogger())

	pool := NewPool(context.Background(), 2)
	pool.Start()
	for _, job := range analyzeJobs(loader, &trackingAnalyzer{}, paths) {
		if !pool.Submit(job) {
			t.Fatalf("Expected job %s to be accepted", job.Path)
		}
	}
	results := pool.Wait()

	if len(results) != len(paths) {
		t.Fatalf("Expected %d results, got %d", len(paths), len(results))
	}
	seen := make(map[int]bool)
	for _, r := range results {
		res := r.(*AnalyzeResult)
		if res.GetError() != nil {
			t.Errorf("Unexpected error for %s: %v", res.Path, res.GetError())
			continue
		}
		name := filepath.Base(paths[res.Index])
		if res.Result.Source != "file:"+name {
			t.Errorf("Expected source file:%s, got %s", name, res.Result.Source)
		}
		if res.Result.RequestID != "req-"+name {
			t.Errorf("Expected request id req-%s, got %s", name, res.Result.RequestID)
		}
		seen[res.Index] = true
	}
	if len(seen) != len(paths) {
		t.Errorf("Expected every index once, got %v", seen)
	}
}

func TestPool_BoundsConcurrentAnalyses(t *testing.T) {
	paths := docPaths(t, "a.txt", "b.txt", "c.txt", "d.txt", "e.txt", "f.txt")
	loader := input.NewLoader(1<<20, discardLogger())
	analyzer := &trackingAnalyzer{}

	pool := NewPool(context.Background(), 2)
	pool.Start()
	go func() {
		for _, job := range analyzeJobs(loader, analyzer, paths) {
			pool.Submit(job)
		}
		pool.Close()
	}()

	count := 0
	for range pool.Results() {
		count++
	}

	if count != len(paths) {
		t.Errorf("Expected %d results, got %d", len(paths), count)
	}
	if peak := analyzer.peak(); peak > 2 || peak == 0 {
		t.Errorf("Expected at most 2 overlapping analyses, saw %d", peak)
	}
}

func TestPool_JobErrorsSurfaceInResults(t *testing.T) {
	paths := docPaths(t, "ok.txt", "bad.txt")
	paths = append(paths, filepath.Join(filepath.Dir(paths[0]), "missing.txt"))
	loader := input.NewLoader(1<<20, discardLogger())

	pool := NewPool(context.Background(), 3)
	pool.Start()
	for _, job := range analyzeJobs(loader, &fakeAnalyzer{failFor: "bad.txt"}, paths) {
		pool.Submit(job)
	}

	byIndex := make(map[int]error)
	for _, r := range pool.Wait() {
		res := r.(*AnalyzeResult)
		byIndex[res.Index] = res.GetError()
	}

	if byIndex[0] != nil {
		t.Errorf("Expected ok.txt to succeed, got %v", byIndex[0])
	}
	if !errors.Is(byIndex[1], api.ErrServerBusy) {
		t.Errorf("Expected server error for bad.txt, got %v", byIndex[1])
	}
	if !errors.Is(byIndex[2], os.ErrNotExist) {
		t.Errorf("Expected not-exist for missing.txt, got %v", byIndex[2])
	}
}

// ProcessPaths reassembles by Index because results stream in completion order
func TestPool_ResultsArriveInCompletionOrder(t *testing.T) {
	paths := docPaths(t, "slow.txt", "fast.txt")
	loader := input.NewLoader(1<<20, discardLogger())
	analyzer := &trackingAnalyzer{delays: map[string]time.Duration{
		"slow.txt": 200 * time.Millisecond,
		"fast.txt": time.Millisecond,
	}}

	pool := NewPool(context.Background(), 2)
	pool.Start()
	for _, job := range analyzeJobs(loader, analyzer, paths) {
		pool.Submit(job)
	}
	pool.Close()

	var order []int
	for r := range pool.Results() {
		order = append(order, r.(*AnalyzeResult).Index)
	}

	if len(order) != 2 || order[0] != 1 || order[1] != 0 {
		t.Errorf("Expected fast.txt (1) before slow.txt (0), got %v", order)
	}
}

func TestPool_ShutdownStopsInFlightAnalysis(t *testing.T) {
	paths := docPaths(t, "long.txt")
	loader := input.NewLoader(1<<20, discardLogger())
	analyzer := &trackingAnalyzer{delays: map[string]time.Duration{"long.txt": time.Minute}}

	pool := NewPool(context.Background(), 1)
	pool.Start()
	pool.Submit(analyzeJobs(loader, analyzer, paths)[0])

	deadline := time.Now().Add(2 * time.Second)
	for analyzer.peak() == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}

	done := make(chan struct{})
	go func() {
		pool.Shutdown()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Shutdown did not cancel the running analysis")
	}

	if pool.Submit(analyzeJobs(loader, analyzer, paths)[0]) {
		t.Error("Expected Submit to fail after Shutdown")
	}
}

func TestPool_ParentCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	pool := NewPool(ctx, 2)
	pool.Start()
	cancel()

	loader := input.NewLoader(1<<20, discardLogger())
	job := analyzeJobs(loader, &trackingAnalyzer{}, docPaths(t, "tos.txt"))[0]
	if pool.Submit(job) {
		t.Error("Expected Submit to fail after parent cancel")
	}
	pool.Shutdown()
}
