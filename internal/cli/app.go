package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/ppiankov/clauseguard/internal/api"
	"github.com/ppiankov/clauseguard/internal/audio"
	"github.com/ppiankov/clauseguard/internal/cache"
	"github.com/ppiankov/clauseguard/internal/input"
	"github.com/ppiankov/clauseguard/internal/model"
	"github.com/ppiankov/clauseguard/internal/orchestrator"
	"github.com/ppiankov/clauseguard/internal/render"
	"github.com/ppiankov/clauseguard/internal/util"
	"github.com/ppiankov/clauseguard/internal/worker"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// app holds the collaborators shared by every command
type app struct {
	cfg      *model.Config
	log      *slog.Logger
	client   *api.Client
	store    *audio.Store
	loader   *input.Loader
	fetcher  *input.Fetcher
	limiter  *worker.Limiter
	renderer *render.Renderer
}

func newApp(cfg *model.Config) *app {
	log := newLogger(cfg)
	blobs := cache.NewMemoryCache(cache.NoExpiration, 0)
	limiter := worker.NewLimiter(cfg.RateLimiting.RequestsPerSecond, cfg.RateLimiting.BurstSize)

	fetcher := input.NewFetcher(cfg.Input.FetchTimeout, cfg.API.UserAgent, cfg.Input.MaxPageBytes,
		cfg.API.InsecureTLS, cfg.API.HTTPProxy, cfg.API.HTTPSProxy, cfg.API.NoProxy).
		WithThrottle(limiter).
		WithLogger(log)
	if cfg.Input.RespectRobots {
		robotsCache := cache.NewMemoryCache(cfg.Input.RobotsTTL, cfg.Input.RobotsTTL/2)
		robots := util.NewRobotsChecker(robotsCache, cfg.Input.RobotsTTL, fetcher.HTTPClient(), cfg.API.UserAgent, log)
		fetcher.WithRobots(robots)
	}

	return &app{
		cfg:      cfg,
		log:      log,
		client:   api.NewClient(cfg.API, log),
		store:    audio.NewStore(blobs, log),
		loader:   input.NewLoader(cfg.Input.MaxFileBytes, log),
		fetcher:  fetcher,
		limiter:  limiter,
		renderer: newRenderer(cfg),
	}
}

func newRenderer(cfg *model.Config) *render.Renderer {
	return render.New(render.Options{
		Color:         cfg.Output.Color,
		IncludeFooter: cfg.Output.IncludeFooter,
		Version:       Version,
	})
}

// appFromViper loads the effective config and wires the app
func appFromViper() (*app, error) {
	cfg, err := loadConfig(viper.GetViper())
	if err != nil {
		return nil, err
	}
	return newApp(cfg), nil
}

func (a *app) orchestrator() *orchestrator.Orchestrator {
	return orchestrator.New(a.client, a.store, a.cfg.Submit.Timeout, a.log)
}

// inputFlags are the mutually exclusive document sources of analyze/narrate
type inputFlags struct {
	file  string
	text  string
	stdin bool
	url   string
}

func (f *inputFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.file, "file", "", "document to submit (PDF, DOCX or plain text)")
	cmd.Flags().StringVar(&f.text, "text", "", "document text to submit")
	cmd.Flags().BoolVar(&f.stdin, "stdin", false, "read document text from stdin")
	cmd.Flags().StringVar(&f.url, "url", "", "web page to fetch and submit as text")
	cmd.MarkFlagsMutuallyExclusive("file", "text", "stdin", "url")
	cmd.MarkFlagsOneRequired("file", "text", "stdin", "url")
}

// resolve builds the input selection named by the flags
func (a *app) resolve(ctx context.Context, f inputFlags, stdin io.Reader) (model.InputSource, error) {
	switch {
	case f.file != "":
		ref, err := a.loader.LoadFile(f.file)
		if err != nil {
			return model.InputSource{}, err
		}
		return model.InputSource{File: ref}, nil

	case f.stdin:
		text, err := a.loader.ReadText(stdin)
		if err != nil {
			return model.InputSource{}, err
		}
		return model.InputSource{Text: text}, nil

	case f.url != "":
		page, err := a.fetcher.FetchPage(ctx, f.url)
		if err != nil {
			return model.InputSource{}, err
		}
		if verbose {
			fmt.Fprintf(os.Stderr, "✓ Fetched %s (%s, %d chars)\n", page.FinalURL, page.Adapter, len(page.Text))
		}
		return model.InputSource{Text: page.Text}, nil

	default:
		if strings.TrimSpace(f.text) == "" {
			return model.InputSource{}, input.ErrEmptyDocument
		}
		return model.InputSource{Text: f.text}, nil
	}
}

// describeError turns a submission failure into one user-facing line
func describeError(err error) string {
	var statusErr *api.StatusError
	switch {
	case errors.Is(err, orchestrator.ErrNoInput):
		return "Select a file or paste text first."
	case errors.Is(err, orchestrator.ErrSubmissionInFlight):
		return "A submission is already running. Use cancel to stop it."
	case errors.Is(err, input.ErrUnsupportedType),
		errors.Is(err, input.ErrFileTooLarge),
		errors.Is(err, input.ErrCorruptDocument),
		errors.Is(err, input.ErrEmptyDocument),
		errors.Is(err, input.ErrDisallowedByRobots):
		return err.Error()
	case errors.As(err, &statusErr) && statusErr.Unwrap() == nil:
		return fmt.Sprintf("The analysis service rejected the request (%d). Please try again.", statusErr.StatusCode)
	default:
		return api.UserMessage(err)
	}
}
