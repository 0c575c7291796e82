package orchestrator

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/ppiankov/clauseguard/internal/api"
	"github.com/ppiankov/clauseguard/internal/audio"
	"github.com/ppiankov/clauseguard/internal/cache"
	"github.com/ppiankov/clauseguard/internal/mocks"
	"github.com/ppiankov/clauseguard/internal/model"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func setup(t *testing.T) (*Orchestrator, *mocks.MockBackend, *audio.Store) {
	ctrl := gomock.NewController(t)
	backend := mocks.NewMockBackend(ctrl)
	store := audio.NewStore(cache.NewMemoryCache(time.Minute, time.Minute), discardLogger())
	o := New(backend, store, 5*time.Second, discardLogger())
	t.Cleanup(o.Close)
	return o, backend, store
}

var pdfFile = &model.FileRef{Name: "tos.pdf", ContentType: "application/pdf", Size: 8, Data: []byte("%PDF-1.4")}

func wav(payload string) *api.Narration {
	return &api.Narration{Data: []byte(payload), ContentType: "audio/wav", Filename: "podcast.wav", RequestID: "req-n"}
}

func TestSelectOperation(t *testing.T) {
	tests := []struct {
		name  string
		input model.InputSource
		mode  model.Mode
		want  Operation
	}{
		{"standard file", model.InputSource{File: pdfFile}, model.ModeStandard, OpAnalyzeFile},
		{"standard text", model.InputSource{Text: "terms"}, model.ModeStandard, OpAnalyzeText},
		{"narrated file", model.InputSource{File: pdfFile}, model.ModeNarrated, OpNarrateFile},
		{"narrated text", model.InputSource{Text: "terms"}, model.ModeNarrated, OpNarrateText},
		{"file wins over text", model.InputSource{File: pdfFile, Text: "terms"}, model.ModeStandard, OpAnalyzeFile},
		{"file wins over text narrated", model.InputSource{File: pdfFile, Text: "terms"}, model.ModeNarrated, OpNarrateFile},
		{"nothing", model.InputSource{}, model.ModeStandard, OpNone},
		{"blank text", model.InputSource{Text: " \n "}, model.ModeNarrated, OpNone},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, SelectOperation(tt.input, tt.mode))
		})
	}
}

func TestSubmit_NoInputIsNoOp(t *testing.T) {
	req := require.New(t)
	o, _, _ := setup(t) // no expectations: any backend call fails the test

	o.SetText("   ")
	before := o.Snapshot()

	op, err := o.Submit(context.Background())
	req.ErrorIs(err, ErrNoInput)
	req.Equal(OpNone, op)

	after := o.Snapshot()
	req.Equal(before, after)
	req.Equal(model.StatusIdle, after.Status)
}

func TestSubmit_StandardText(t *testing.T) {
	req := require.New(t)
	o, backend, _ := setup(t)

	text := "You waive all rights to a refund."
	backend.EXPECT().AnalyzeText(gomock.Any(), text).Return(&api.Analysis{
		Clauses: []model.Clause{{
			ID: "1", Text: text, RiskLevel: model.RiskHigh, Explanation: "You cannot get your money back.",
		}},
		RequestID: "req-1",
	}, nil)

	o.SetText(text)
	op, err := o.Submit(context.Background())
	req.NoError(err)
	req.Equal(OpAnalyzeText, op)

	snap := o.Snapshot()
	req.Equal(model.StatusIdle, snap.Status)
	req.Nil(snap.Audio())
	result := snap.Analysis()
	req.NotNil(result)
	req.Len(result.Clauses, 1)
	req.Equal(model.RiskHigh, result.Clauses[0].RiskLevel)
	req.Equal("req-1", result.RequestID)
	req.Equal("text:33 chars", result.Source)
}

func TestSubmit_FilePreferredOverText(t *testing.T) {
	req := require.New(t)
	o, backend, _ := setup(t)

	backend.EXPECT().AnalyzeFile(gomock.Any(), pdfFile).Return(&api.Analysis{}, nil)

	o.SetText("pasted terms")
	o.SelectFile(pdfFile)
	op, err := o.Submit(context.Background())
	req.NoError(err)
	req.Equal(OpAnalyzeFile, op)
	req.Equal("pasted terms", o.Snapshot().Input.Text, "selecting a file keeps text")
}

func TestSubmit_NarratedFile(t *testing.T) {
	req := require.New(t)
	o, backend, store := setup(t)

	backend.EXPECT().NarrateFile(gomock.Any(), pdfFile).Return(wav("RIFF-audio"), nil)

	o.SelectFile(pdfFile)
	o.SetMode(model.ModeNarrated)
	op, err := o.Submit(context.Background())
	req.NoError(err)
	req.Equal(OpNarrateFile, op)

	snap := o.Snapshot()
	req.Equal(model.StatusIdle, snap.Status)
	req.Nil(snap.Analysis())
	a := snap.Audio()
	req.NotNil(a)
	req.Equal("audio/wav", a.ContentType)
	req.Equal(int64(10), a.Size)
	req.Equal(1, store.Live())

	var out bytes.Buffer
	n, err := o.Player().Play(context.Background(), &out)
	req.NoError(err)
	req.Equal(int64(10), n)
	req.Equal("RIFF-audio", out.String())
}

func TestSubmit_NarrationClearsAnalysis(t *testing.T) {
	req := require.New(t)
	o, backend, _ := setup(t)

	backend.EXPECT().AnalyzeText(gomock.Any(), "terms").Return(&api.Analysis{
		Clauses: []model.Clause{{ID: "1", Text: "a", RiskLevel: model.RiskLow}},
	}, nil)
	backend.EXPECT().NarrateText(gomock.Any(), "terms").Return(wav("RIFF"), nil)

	o.SetText("terms")
	_, err := o.Submit(context.Background())
	req.NoError(err)
	req.NotNil(o.Snapshot().Analysis())

	o.SetMode(model.ModeNarrated)
	req.NotNil(o.Snapshot().Analysis(), "mode switch alone keeps results")

	_, err = o.Submit(context.Background())
	req.NoError(err)
	snap := o.Snapshot()
	req.Nil(snap.Analysis())
	req.NotNil(snap.Audio())
}

func TestSubmit_NarrationFailureStillClearsAnalysis(t *testing.T) {
	req := require.New(t)
	o, backend, _ := setup(t)

	backend.EXPECT().AnalyzeText(gomock.Any(), "terms").Return(&api.Analysis{
		Clauses: []model.Clause{{ID: "1", Text: "a", RiskLevel: model.RiskLow}},
	}, nil)
	backend.EXPECT().NarrateText(gomock.Any(), "terms").Return(nil, &api.StatusError{StatusCode: 500, Status: "Internal Server Error"})

	o.SetText("terms")
	_, err := o.Submit(context.Background())
	req.NoError(err)

	o.SetMode(model.ModeNarrated)
	_, err = o.Submit(context.Background())
	req.ErrorIs(err, api.ErrServerBusy)

	snap := o.Snapshot()
	req.Equal(model.StatusIdle, snap.Status)
	req.IsType(NoOutcome{}, snap.Outcome)
	req.ErrorIs(snap.Err, api.ErrServerBusy)
}

func TestSubmit_AnalysisClearsAudioAndReleases(t *testing.T) {
	req := require.New(t)
	o, backend, store := setup(t)

	backend.EXPECT().NarrateText(gomock.Any(), "terms").Return(wav("RIFF"), nil)
	backend.EXPECT().AnalyzeText(gomock.Any(), "terms").Return(&api.Analysis{}, nil)

	o.SetText("terms")
	o.SetMode(model.ModeNarrated)
	_, err := o.Submit(context.Background())
	req.NoError(err)
	req.Equal(1, store.Live())

	o.SetMode(model.ModeStandard)
	_, err = o.Submit(context.Background())
	req.NoError(err)

	snap := o.Snapshot()
	req.Nil(snap.Audio())
	req.NotNil(snap.Analysis())
	req.Equal(0, store.Live())
}

func TestSubmit_FailureKeepsPreviousAnalysis(t *testing.T) {
	req := require.New(t)
	o, backend, _ := setup(t)

	first := &api.Analysis{Clauses: []model.Clause{{ID: "1", Text: "a", RiskLevel: model.RiskMedium}}}
	gomock.InOrder(
		backend.EXPECT().AnalyzeText(gomock.Any(), "terms").Return(first, nil),
		backend.EXPECT().AnalyzeText(gomock.Any(), "terms").Return(nil, &api.StatusError{StatusCode: 404, Status: "Not Found"}),
	)

	o.SetText("terms")
	_, err := o.Submit(context.Background())
	req.NoError(err)

	_, err = o.Submit(context.Background())
	var statusErr *api.StatusError
	req.ErrorAs(err, &statusErr)

	snap := o.Snapshot()
	req.Equal(model.StatusIdle, snap.Status)
	req.Equal(first.Clauses, snap.Analysis().Clauses)
	req.Error(snap.Err)
}

func TestSubmit_FailureSetsNothing(t *testing.T) {
	req := require.New(t)
	o, backend, store := setup(t)

	backend.EXPECT().NarrateFile(gomock.Any(), pdfFile).Return(nil, &api.StatusError{StatusCode: 502, Status: "Bad Gateway"})

	o.SelectFile(pdfFile)
	o.SetMode(model.ModeNarrated)
	_, err := o.Submit(context.Background())
	req.Error(err)

	snap := o.Snapshot()
	req.Equal(model.StatusIdle, snap.Status)
	req.Nil(snap.Analysis())
	req.Nil(snap.Audio())
	req.Equal(0, store.Live())
}

func TestSubmit_SupersededNarrationReleased(t *testing.T) {
	req := require.New(t)
	o, backend, store := setup(t)

	backend.EXPECT().NarrateText(gomock.Any(), "terms").Return(wav("first"), nil)
	backend.EXPECT().NarrateText(gomock.Any(), "terms").Return(wav("second"), nil)

	o.SetText("terms")
	o.SetMode(model.ModeNarrated)
	_, err := o.Submit(context.Background())
	req.NoError(err)
	firstHandle := o.Snapshot().Audio().Handle

	_, err = o.Submit(context.Background())
	req.NoError(err)

	req.Equal(1, store.Live())
	_, err = store.Open(firstHandle)
	req.ErrorIs(err, audio.ErrReleased)
	req.NotEqual(firstHandle, o.Snapshot().Audio().Handle)
}

func TestSubmit_InFlightGuardAndCancel(t *testing.T) {
	req := require.New(t)
	o, backend, _ := setup(t)

	started := make(chan struct{})
	backend.EXPECT().AnalyzeText(gomock.Any(), "terms").DoAndReturn(
		func(ctx context.Context, text string) (*api.Analysis, error) {
			close(started)
			<-ctx.Done()
			return nil, ctx.Err()
		})

	o.SetText("terms")
	done := make(chan error, 1)
	go func() {
		_, err := o.Submit(context.Background())
		done <- err
	}()

	<-started
	req.Equal(model.StatusInFlight, o.Snapshot().Status)

	_, err := o.Submit(context.Background())
	req.ErrorIs(err, ErrSubmissionInFlight)

	req.True(o.Cancel())
	err = <-done
	req.ErrorIs(err, context.Canceled)
	req.Equal(model.StatusIdle, o.Snapshot().Status)
	req.False(o.Cancel())
}

func TestSubmit_Timeout(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	backend := mocks.NewMockBackend(ctrl)
	store := audio.NewStore(cache.NewMemoryCache(time.Minute, time.Minute), discardLogger())
	o := New(backend, store, 20*time.Millisecond, discardLogger())
	defer o.Close()

	backend.EXPECT().NarrateText(gomock.Any(), "terms").DoAndReturn(
		func(ctx context.Context, text string) (*api.Narration, error) {
			<-ctx.Done()
			return nil, ctx.Err()
		})

	o.SetText("terms")
	o.SetMode(model.ModeNarrated)
	_, err := o.Submit(context.Background())
	req.ErrorIs(err, context.DeadlineExceeded)
	req.Equal(model.StatusIdle, o.Snapshot().Status)
}

func TestClear_ResetsAndReleases(t *testing.T) {
	req := require.New(t)
	o, backend, store := setup(t)

	backend.EXPECT().NarrateText(gomock.Any(), "terms").Return(wav("RIFF-data"), nil)

	o.SetText("terms")
	o.SetMode(model.ModeNarrated)
	_, err := o.Submit(context.Background())
	req.NoError(err)

	o.Clear()

	snap := o.Snapshot()
	req.True(snap.Input.Empty())
	req.IsType(NoOutcome{}, snap.Outcome)
	req.NoError(snap.Err)
	req.Equal(model.ModeNarrated, snap.Mode, "mode survives clear")
	req.Equal(0, store.Live())

	var out bytes.Buffer
	n, err := o.Player().Play(context.Background(), &out)
	req.NoError(err)
	req.Zero(n)
	req.Zero(out.Len())
}

func TestClear_DiscardsInFlight(t *testing.T) {
	req := require.New(t)
	o, backend, store := setup(t)

	started := make(chan struct{})
	proceed := make(chan struct{})
	backend.EXPECT().NarrateText(gomock.Any(), "terms").DoAndReturn(
		func(ctx context.Context, text string) (*api.Narration, error) {
			close(started)
			<-proceed
			return wav("late"), nil
		})

	o.SetText("terms")
	o.SetMode(model.ModeNarrated)
	done := make(chan error, 1)
	go func() {
		_, err := o.Submit(context.Background())
		done <- err
	}()

	<-started
	o.Clear()
	close(proceed)

	req.ErrorIs(<-done, ErrSuperseded)
	snap := o.Snapshot()
	req.IsType(NoOutcome{}, snap.Outcome)
	req.Equal(model.StatusIdle, snap.Status)
	req.Equal(0, store.Live())
}

func TestClose_ReleasesHeldAudio(t *testing.T) {
	req := require.New(t)
	o, backend, store := setup(t)

	backend.EXPECT().NarrateFile(gomock.Any(), pdfFile).Return(wav("RIFF-data"), nil)

	o.SelectFile(pdfFile)
	o.SetMode(model.ModeNarrated)
	_, err := o.Submit(context.Background())
	req.NoError(err)
	handle := o.Snapshot().Audio().Handle
	req.Equal(1, store.Live())

	o.Close()

	req.Equal(0, store.Live())
	_, err = store.Open(handle)
	req.ErrorIs(err, audio.ErrReleased)
	req.IsType(NoOutcome{}, o.Snapshot().Outcome)
	req.Nil(o.Player().Loaded())

	o.Close()
	req.Equal(0, store.Live())
}

func TestClose_CancelsInFlight(t *testing.T) {
	req := require.New(t)
	o, backend, store := setup(t)

	started := make(chan struct{})
	cancelled := make(chan struct{})
	backend.EXPECT().NarrateText(gomock.Any(), "terms").DoAndReturn(
		func(ctx context.Context, text string) (*api.Narration, error) {
			close(started)
			<-ctx.Done()
			close(cancelled)
			// Audio that arrives after teardown must not be kept
			return wav("late"), nil
		})

	o.SetText("terms")
	o.SetMode(model.ModeNarrated)
	done := make(chan error, 1)
	go func() {
		_, err := o.Submit(context.Background())
		done <- err
	}()

	<-started
	o.Close()
	<-cancelled

	req.ErrorIs(<-done, ErrSuperseded)
	snap := o.Snapshot()
	req.IsType(NoOutcome{}, snap.Outcome)
	req.Equal(model.StatusIdle, snap.Status)
	req.Equal(0, store.Live())
}

func TestSubmit_HeldNarrationDoesNotExpire(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	backend := mocks.NewMockBackend(ctrl)
	store := audio.NewStore(cache.NewMemoryCache(20*time.Millisecond, 10*time.Millisecond), discardLogger())
	o := New(backend, store, 5*time.Second, discardLogger())
	defer o.Close()

	backend.EXPECT().NarrateText(gomock.Any(), "terms").Return(wav("RIFF-audio"), nil)

	o.SetText("terms")
	o.SetMode(model.ModeNarrated)
	_, err := o.Submit(context.Background())
	req.NoError(err)

	time.Sleep(80 * time.Millisecond)

	req.NotNil(o.Snapshot().Audio())
	var out bytes.Buffer
	n, err := o.Player().Play(context.Background(), &out)
	req.NoError(err)
	req.Equal(int64(10), n)
	req.Equal("RIFF-audio", out.String())

	path := filepath.Join(t.TempDir(), "podcast.wav")
	req.NoError(o.Player().Save(path))
}

func TestSetInputDoesNotClearResults(t *testing.T) {
	req := require.New(t)
	o, backend, _ := setup(t)

	backend.EXPECT().AnalyzeText(gomock.Any(), "terms").Return(&api.Analysis{
		Clauses: []model.Clause{{ID: "1", Text: "a", RiskLevel: model.RiskLow}},
	}, nil)

	o.SetText("terms")
	_, err := o.Submit(context.Background())
	req.NoError(err)

	o.SetText("other terms")
	o.SelectFile(pdfFile)
	o.RemoveFile()
	req.NotNil(o.Snapshot().Analysis())
}

func TestSubmit_BackendErrorWrapped(t *testing.T) {
	o, backend, _ := setup(t)
	boom := errors.New("boom")
	backend.EXPECT().AnalyzeFile(gomock.Any(), pdfFile).Return(nil, boom)

	o.SelectFile(pdfFile)
	_, err := o.Submit(context.Background())
	require.ErrorIs(t, err, boom)
	require.Contains(t, err.Error(), "analyze-file")
}
