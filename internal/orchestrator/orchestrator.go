// Package orchestrator owns client state for a clause analysis session and
// decides, on each submit, which remote operation to run and how to apply its result.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/ppiankov/clauseguard/internal/api"
	"github.com/ppiankov/clauseguard/internal/audio"
	"github.com/ppiankov/clauseguard/internal/model"
)

var (
	// ErrNoInput is returned by Submit when neither a file nor text is selected.
	// No call is made and state is unchanged.
	ErrNoInput = errors.New("no document selected")

	// ErrSubmissionInFlight is returned by Submit while another submission runs
	ErrSubmissionInFlight = errors.New("a submission is already in flight")

	// ErrSuperseded is returned when Clear or Close discarded an in-flight submission
	ErrSuperseded = errors.New("submission discarded by clear")
)

// Orchestrator is safe for concurrent use
type Orchestrator struct {
	backend Backend
	store   *audio.Store
	player  *audio.Player
	timeout time.Duration
	log     *slog.Logger

	mu      sync.Mutex
	input   model.InputSource
	mode    model.Mode
	status  model.Status
	op      Operation
	outcome Outcome
	lastErr error
	cancel  context.CancelFunc
	gen     uint64
}

// New creates an orchestrator. timeout bounds each submission (0 disables it).
func New(backend Backend, store *audio.Store, timeout time.Duration, log *slog.Logger) *Orchestrator {
	return &Orchestrator{
		backend: backend,
		store:   store,
		player:  audio.NewPlayer(store),
		timeout: timeout,
		log:     log,
		status:  model.StatusIdle,
		outcome: NoOutcome{},
	}
}

// Player controls playback of the held narration
func (o *Orchestrator) Player() *audio.Player {
	return o.player
}

// SelectFile sets the file input. Pasted text is kept.
func (o *Orchestrator) SelectFile(f *model.FileRef) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.input.File = f
}

// RemoveFile drops the selected file, falling back to any pasted text
func (o *Orchestrator) RemoveFile() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.input.File = nil
}

// SetText replaces the pasted text
func (o *Orchestrator) SetText(text string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.input.Text = text
}

// SetMode switches between standard and narrated submission.
// Held results are not touched.
func (o *Orchestrator) SetMode(m model.Mode) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.mode = m
}

// Snapshot returns a copy of the current state
func (o *Orchestrator) Snapshot() Snapshot {
	o.mu.Lock()
	defer o.mu.Unlock()
	return Snapshot{
		Input:     o.input,
		Mode:      o.mode,
		Status:    o.status,
		Operation: o.op,
		Outcome:   o.outcome,
		Err:       o.lastErr,
	}
}

// Submit runs the operation selected by the current input and mode and blocks
// until it settles. Status is back to idle when Submit returns.
func (o *Orchestrator) Submit(ctx context.Context) (Operation, error) {
	o.mu.Lock()
	if o.status == model.StatusInFlight {
		o.mu.Unlock()
		return OpNone, ErrSubmissionInFlight
	}

	op := SelectOperation(o.input, o.mode)
	if op == OpNone {
		o.mu.Unlock()
		return OpNone, ErrNoInput
	}

	// The other result kind is dropped before the call, whatever its outcome
	if op.Narrated() {
		if _, ok := o.outcome.(AnalysisOutcome); ok {
			o.outcome = NoOutcome{}
		}
	} else {
		o.releaseAudioLocked()
	}

	var cancel context.CancelFunc
	if o.timeout > 0 {
		ctx, cancel = context.WithTimeout(ctx, o.timeout)
	} else {
		ctx, cancel = context.WithCancel(ctx)
	}
	defer cancel()

	o.gen++
	gen := o.gen
	input := o.input
	o.status = model.StatusInFlight
	o.op = op
	o.lastErr = nil
	o.cancel = cancel
	o.mu.Unlock()

	o.log.Info("submission started", "operation", op, "input", input.Describe())
	start := time.Now()

	outcome, err := o.call(ctx, op, input)

	o.mu.Lock()
	defer o.mu.Unlock()

	if o.gen != gen {
		// Clear or Close ran while we were waiting; their state wins
		o.log.Info("submission discarded", "operation", op)
		return op, ErrSuperseded
	}

	o.status = model.StatusIdle
	o.cancel = nil

	if err == nil {
		err = o.applyLocked(outcome, input)
	}
	if err != nil {
		o.lastErr = err
		o.log.Warn("submission failed", "operation", op, "error", err, "elapsed", time.Since(start).Round(time.Millisecond))
		return op, err
	}

	o.log.Info("submission finished", "operation", op, "elapsed", time.Since(start).Round(time.Millisecond))
	return op, nil
}

// pending is what a remote call produced before it is applied to state
type pending struct {
	analysis  *model.AnalysisResult
	narration []byte
	meta      *model.AudioArtifact
}

func (o *Orchestrator) call(ctx context.Context, op Operation, in model.InputSource) (*pending, error) {
	switch op {
	case OpAnalyzeFile, OpAnalyzeText:
		var (
			res *api.Analysis
			err error
		)
		if op == OpAnalyzeFile {
			res, err = o.backend.AnalyzeFile(ctx, in.File)
		} else {
			res, err = o.backend.AnalyzeText(ctx, in.Text)
		}
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		return &pending{analysis: &model.AnalysisResult{
			Clauses:    res.Clauses,
			RequestID:  res.RequestID,
			ReceivedAt: time.Now().UTC(),
		}}, nil

	case OpNarrateFile, OpNarrateText:
		var (
			res *api.Narration
			err error
		)
		if op == OpNarrateFile {
			res, err = o.backend.NarrateFile(ctx, in.File)
		} else {
			res, err = o.backend.NarrateText(ctx, in.Text)
		}
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		return &pending{
			narration: res.Data,
			meta: &model.AudioArtifact{
				ContentType: res.ContentType,
				Filename:    res.Filename,
				RequestID:   res.RequestID,
			},
		}, nil
	}
	return nil, fmt.Errorf("unknown operation %d", op)
}

func (o *Orchestrator) applyLocked(p *pending, in model.InputSource) error {
	if p.analysis != nil {
		p.analysis.Source = in.Describe()
		o.outcome = AnalysisOutcome{Result: p.analysis}
		return nil
	}

	artifact, err := o.store.Put(p.narration, p.meta.ContentType, p.meta.Filename)
	if err != nil {
		return err
	}
	artifact.RequestID = p.meta.RequestID
	artifact.Source = in.Describe()

	// Superseded handle is released before the new one takes its place
	o.releaseAudioLocked()
	o.outcome = NarrationOutcome{Audio: artifact}
	o.player.Load(artifact)
	return nil
}

// Cancel aborts the in-flight submission, if any
func (o *Orchestrator) Cancel() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.cancel == nil {
		return false
	}
	o.cancel()
	return true
}

// Clear resets input and results and releases held audio. Mode is kept.
// An in-flight submission is cancelled and its result discarded.
func (o *Orchestrator) Clear() {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.abortLocked()
	o.input = model.InputSource{}
	o.releaseAudioLocked()
	o.outcome = NoOutcome{}
	o.lastErr = nil
	o.op = OpNone
}

// Close cancels any in-flight submission and releases held audio
func (o *Orchestrator) Close() {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.abortLocked()
	o.releaseAudioLocked()
	o.outcome = NoOutcome{}
}

func (o *Orchestrator) abortLocked() {
	if o.cancel != nil {
		o.cancel()
		o.cancel = nil
	}
	o.gen++
	o.status = model.StatusIdle
}

// releaseAudioLocked stops playback and frees the held audio handle
func (o *Orchestrator) releaseAudioLocked() {
	n, ok := o.outcome.(NarrationOutcome)
	if !ok {
		return
	}
	o.player.Unload()
	o.store.Release(n.Audio.Handle)
	o.outcome = NoOutcome{}
}
