package audio

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"sync"

	"github.com/ppiankov/clauseguard/internal/model"
)

const playChunk = 32 * 1024

// Player streams one loaded artifact and remembers its position across pauses
type Player struct {
	store *Store

	mu       sync.Mutex
	artifact *model.AudioArtifact
	pos      int64
	stop     context.CancelFunc
	done     chan struct{}
}

// NewPlayer creates a player reading from store
func NewPlayer(store *Store) *Player {
	return &Player{store: store}
}

// Load selects a as the current track, stopping and rewinding the previous one
func (p *Player) Load(a *model.AudioArtifact) {
	p.Pause()
	p.mu.Lock()
	p.artifact = a
	p.pos = 0
	p.mu.Unlock()
}

// Unload pauses, rewinds and forgets the current track
func (p *Player) Unload() {
	p.Pause()
	p.mu.Lock()
	p.artifact = nil
	p.pos = 0
	p.mu.Unlock()
}

// Loaded returns the current track, if any
func (p *Player) Loaded() *model.AudioArtifact {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.artifact
}

// Position returns the byte offset playback will resume from
func (p *Player) Position() int64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.pos
}

// Playing reports whether a Play call is currently streaming
func (p *Player) Playing() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.stop != nil
}

// Play streams the loaded track from the current position into w.
// It is a no-op (0, nil) when nothing is loaded or the handle was released.
// Pause or ctx cancellation stops it early and keeps the position.
func (p *Player) Play(ctx context.Context, w io.Writer) (int64, error) {
	return p.play(ctx, w, nil)
}

// play streams into w. onStop runs when Pause stops the stream and must
// unblock a pending w.Write.
func (p *Player) play(ctx context.Context, w io.Writer, onStop func()) (int64, error) {
	p.mu.Lock()
	if p.stop != nil {
		p.mu.Unlock()
		return 0, fmt.Errorf("already playing")
	}
	if p.artifact == nil {
		p.mu.Unlock()
		return 0, nil
	}
	data, err := p.store.Open(p.artifact.Handle)
	if err != nil {
		p.mu.Unlock()
		if errors.Is(err, ErrReleased) {
			return 0, nil
		}
		return 0, err
	}
	if p.pos >= int64(len(data)) {
		p.pos = 0
	}
	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	p.stop = cancel
	if onStop != nil {
		p.stop = func() {
			cancel()
			onStop()
		}
	}
	p.done = done
	start := p.pos
	p.mu.Unlock()

	defer func() {
		cancel()
		p.mu.Lock()
		p.stop = nil
		p.done = nil
		p.mu.Unlock()
		close(done)
	}()

	var written int64
	for off := start; off < int64(len(data)); {
		if ctx.Err() != nil {
			return written, nil
		}
		end := off + playChunk
		if end > int64(len(data)) {
			end = int64(len(data))
		}
		n, err := w.Write(data[off:end])
		written += int64(n)
		off += int64(n)

		p.mu.Lock()
		p.pos = off
		p.mu.Unlock()

		if err != nil {
			if ctx.Err() != nil {
				return written, nil
			}
			return written, fmt.Errorf("write audio: %w", err)
		}
	}

	// Finished: next Play starts from the beginning
	p.mu.Lock()
	p.pos = 0
	p.mu.Unlock()
	return written, nil
}

// Pause stops an active Play call and waits for it to return
func (p *Player) Pause() {
	p.mu.Lock()
	stop, done := p.stop, p.done
	p.mu.Unlock()
	if stop == nil {
		return
	}
	stop()
	<-done
}

// Rewind moves the position back to the start
func (p *Player) Rewind() {
	p.Pause()
	p.mu.Lock()
	p.pos = 0
	p.mu.Unlock()
}

// PlayCommand pipes the track into an external player such as ffplay.
// Pausing kills the player process, which also fails a write blocked on a
// full pipe; the position is kept.
func (p *Player) PlayCommand(ctx context.Context, command string) (int64, error) {
	fields := strings.Fields(command)
	if len(fields) == 0 {
		return 0, fmt.Errorf("no player command configured")
	}
	if p.Loaded() == nil {
		return 0, nil
	}

	cmdCtx, kill := context.WithCancel(ctx)
	defer kill()

	cmd := exec.CommandContext(cmdCtx, fields[0], fields[1:]...)
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return 0, fmt.Errorf("player stdin: %w", err)
	}
	cmd.Stderr = os.Stderr
	if err := cmd.Start(); err != nil {
		return 0, fmt.Errorf("start player %s: %w", fields[0], err)
	}

	n, playErr := p.play(cmdCtx, stdin, func() {
		kill()
		_ = stdin.Close()
	})
	paused := p.Position() != 0
	if paused {
		kill()
	}
	_ = stdin.Close()
	waitErr := cmd.Wait()

	if playErr != nil {
		return n, playErr
	}
	if waitErr != nil && !paused && ctx.Err() == nil {
		return n, fmt.Errorf("player exited: %w", waitErr)
	}
	return n, nil
}

// Save writes the full track to path (download)
func (p *Player) Save(path string) error {
	a := p.Loaded()
	if a == nil {
		return ErrReleased
	}
	data, err := p.store.Open(a.Handle)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write audio file: %w", err)
	}
	return nil
}
