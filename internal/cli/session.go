package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"sync"

	"github.com/ppiankov/clauseguard/internal/model"
	"github.com/ppiankov/clauseguard/internal/orchestrator"
	"github.com/spf13/cobra"
)

var sessionMode string

// sessionCmd represents the session command
var sessionCmd = &cobra.Command{
	Use:     "session",
	Aliases: []string{"repl"},
	Short:   "Interactive session: select a document, submit, review and play results",
	Long: `Session keeps one document selection and one result at a time.
Submissions run in the background; type "help" for the commands.

Example:
  clauseguard session
  clauseguard session --mode narrated`,
	Args: cobra.NoArgs,
	RunE: runSession,
}

func init() {
	rootCmd.AddCommand(sessionCmd)
	sessionCmd.Flags().StringVar(&sessionMode, "mode", "standard", "initial mode (standard, narrated)")
}

func runSession(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	mode, err := model.ParseMode(sessionMode)
	if err != nil {
		return err
	}

	a, err := appFromViper()
	if err != nil {
		return err
	}

	s := newSession(a, cmd.InOrStdin(), cmd.OutOrStdout())
	defer s.close()
	s.orch.SetMode(mode)
	return s.run(ctx)
}

const sessionHelp = `Commands:
  file <path>        select a PDF, DOCX or text file
  remove             drop the selected file
  text <words...>    set the document text
  paste              read text lines until a line with a single "."
  url <address>      fetch a web page and use its text
  mode [standard|narrated]
  submit             send the selection in the background
  wait               block until the running submission settles
  cancel             abort the running submission
  status             show selection, mode and state
  show               print the current result
  play | pause | rewind
  save [path]        write the narrated audio to a file
  clear              reset selection and results (mode is kept)
  help | quit`

// session is a line-oriented front end over one orchestrator
type session struct {
	app  *app
	orch *orchestrator.Orchestrator
	in   *bufio.Scanner

	outMu sync.Mutex
	out   io.Writer

	mu      sync.Mutex
	pending chan struct{} // closed when the background submission settles
	playing chan struct{} // closed when background playback returns
}

func newSession(a *app, in io.Reader, out io.Writer) *session {
	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	return &session{
		app:  a,
		orch: a.orchestrator(),
		in:   scanner,
		out:  out,
	}
}

func (s *session) printf(format string, args ...any) {
	s.outMu.Lock()
	defer s.outMu.Unlock()
	fmt.Fprintf(s.out, format, args...)
}

// run reads commands until quit, EOF or ctx is done
func (s *session) run(ctx context.Context) error {
	s.printf("ClauseGuard session (%s). Type \"help\" for commands.\n", s.app.client.BaseURL())
	for {
		if ctx.Err() != nil {
			return nil
		}
		s.printf("> ")
		if !s.in.Scan() {
			s.printf("\n")
			return s.in.Err()
		}
		line := strings.TrimSpace(s.in.Text())
		if line == "" {
			continue
		}
		name, rest, _ := strings.Cut(line, " ")
		if quit := s.exec(ctx, strings.ToLower(name), strings.TrimSpace(rest)); quit {
			return nil
		}
	}
}

// exec runs one command and reports whether the session should end
func (s *session) exec(ctx context.Context, name, arg string) bool {
	switch name {
	case "file":
		s.selectFile(arg)
	case "remove":
		s.orch.RemoveFile()
		s.printf("✓ File removed\n")
	case "text":
		s.setText(arg)
	case "paste":
		s.paste()
	case "url":
		s.fetch(ctx, arg)
	case "mode":
		s.mode(arg)
	case "submit":
		s.submit(ctx)
	case "wait":
		s.wait()
	case "cancel":
		if s.orch.Cancel() {
			s.printf("✓ Cancelling submission\n")
		} else {
			s.printf("Nothing to cancel.\n")
		}
	case "status":
		s.status()
	case "show":
		s.show()
	case "play":
		s.play(ctx)
	case "pause":
		s.orch.Player().Pause()
		s.waitPlayback()
	case "rewind":
		s.orch.Player().Rewind()
		s.waitPlayback()
	case "save":
		s.save(arg)
	case "clear":
		s.orch.Clear()
		s.waitPlayback()
		s.printf("✓ Cleared\n")
	case "help", "?":
		s.printf("%s\n", sessionHelp)
	case "quit", "exit", "q":
		return true
	default:
		s.printf("Unknown command %q. Type \"help\" for commands.\n", name)
	}
	return false
}

func (s *session) selectFile(path string) {
	if path == "" {
		s.printf("Usage: file <path>\n")
		return
	}
	ref, err := s.app.loader.LoadFile(path)
	if err != nil {
		s.printf("✗ %s\n", describeError(err))
		return
	}
	s.orch.SelectFile(ref)
	s.printf("✓ Selected %s (%s, %d bytes)\n", ref.Name, ref.ContentType, ref.Size)
}

func (s *session) setText(text string) {
	s.orch.SetText(text)
	if strings.TrimSpace(text) == "" {
		s.printf("✓ Text cleared\n")
		return
	}
	s.printf("✓ Text set (%d chars)\n", len(text))
}

func (s *session) paste() {
	s.printf("Paste the document; end with a line containing only \".\"\n")
	var b strings.Builder
	for s.in.Scan() {
		line := s.in.Text()
		if strings.TrimSpace(line) == "." {
			break
		}
		b.WriteString(line)
		b.WriteByte('\n')
	}
	s.setText(strings.TrimRight(b.String(), "\n"))
}

func (s *session) fetch(ctx context.Context, rawURL string) {
	if rawURL == "" {
		s.printf("Usage: url <address>\n")
		return
	}
	page, err := s.app.fetcher.FetchPage(ctx, rawURL)
	if err != nil {
		s.printf("✗ %s\n", describeError(err))
		return
	}
	s.orch.SetText(page.Text)
	title := page.Title
	if title == "" {
		title = page.FinalURL
	}
	s.printf("✓ Fetched %q (%d chars)\n", title, len(page.Text))
}

func (s *session) mode(arg string) {
	if arg == "" {
		s.printf("Mode: %s\n", s.orch.Snapshot().Mode)
		return
	}
	m, err := model.ParseMode(arg)
	if err != nil {
		s.printf("✗ %v\n", err)
		return
	}
	s.orch.SetMode(m)
	s.printf("✓ Mode: %s\n", m)
}

// submit starts a background submission. A second submit while one is
// running is refused.
func (s *session) submit(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.pending != nil {
		select {
		case <-s.pending:
		default:
			s.printf("✗ %s\n", describeError(orchestrator.ErrSubmissionInFlight))
			return
		}
	}
	if s.orch.Snapshot().Input.Empty() {
		s.app.log.Debug("submit ignored", "reason", orchestrator.ErrNoInput)
		return
	}

	done := make(chan struct{})
	s.pending = done
	s.printf("⚙️  Submitting %s (%s)...\n", s.orch.Snapshot().Input.Describe(), s.orch.Snapshot().Mode)

	go func() {
		defer close(done)
		op, err := s.orch.Submit(ctx)
		switch {
		case errors.Is(err, orchestrator.ErrSuperseded):
			s.printf("Submission discarded.\n")
		case errors.Is(err, context.Canceled):
			s.printf("✗ Submission cancelled.\n")
		case err != nil:
			s.printf("✗ %s\n", describeError(err))
		case op.Narrated():
			s.printf("✓ Narration ready: %s\n", s.app.renderer.Audio(s.orch.Snapshot().Audio()))
		default:
			s.printf("✓ Analysis ready: %s\n", s.app.renderer.Summary(s.orch.Snapshot().Analysis()))
		}
	}()
}

func (s *session) wait() {
	s.mu.Lock()
	done := s.pending
	s.mu.Unlock()
	if done != nil {
		<-done
	}
}

func (s *session) status() {
	snap := s.orch.Snapshot()
	s.printf("Input:  %s\n", snap.Input.Describe())
	s.printf("Mode:   %s\n", snap.Mode)
	s.printf("State:  %s\n", snap.Status)
	switch snap.Outcome.(type) {
	case orchestrator.AnalysisOutcome:
		s.printf("Result: %s\n", s.app.renderer.Summary(snap.Analysis()))
	case orchestrator.NarrationOutcome:
		s.printf("Result: %s\n", s.app.renderer.Audio(snap.Audio()))
	default:
		s.printf("Result: none\n")
	}
	if snap.Err != nil {
		s.printf("Error:  %s\n", describeError(snap.Err))
	}
}

func (s *session) show() {
	snap := s.orch.Snapshot()
	switch snap.Outcome.(type) {
	case orchestrator.AnalysisOutcome:
		s.outMu.Lock()
		s.app.renderer.Table(s.out, snap.Analysis())
		s.outMu.Unlock()
	case orchestrator.NarrationOutcome:
		player := s.orch.Player()
		s.printf("%s, position %d bytes\n", s.app.renderer.Audio(snap.Audio()), player.Position())
	default:
		s.printf("No result yet.\n")
	}
}

// play starts external playback in the background; pause and rewind stop it
func (s *session) play(ctx context.Context) {
	player := s.orch.Player()
	if player.Loaded() == nil {
		s.printf("No audio loaded.\n")
		return
	}
	s.waitPlayback()

	done := make(chan struct{})
	s.mu.Lock()
	s.playing = done
	s.mu.Unlock()

	go func() {
		defer close(done)
		if _, err := player.PlayCommand(ctx, s.app.cfg.Audio.PlayerCommand); err != nil {
			s.printf("✗ %v\n", err)
		}
	}()
}

func (s *session) waitPlayback() {
	s.mu.Lock()
	done := s.playing
	s.mu.Unlock()
	if done != nil {
		<-done
	}
}

func (s *session) save(path string) {
	artifact := s.orch.Snapshot().Audio()
	if artifact == nil {
		s.printf("No audio to save.\n")
		return
	}
	if path == "" {
		path = artifact.Filename
	}
	if err := s.orch.Player().Save(path); err != nil {
		s.printf("✗ %v\n", err)
		return
	}
	s.printf("✓ Saved %s\n", path)
}

// close aborts background work and releases held audio
func (s *session) close() {
	s.orch.Close()
	s.wait()
	s.orch.Player().Pause()
	s.waitPlayback()
}
