// Program to preview the text a legal page would be submitted with.
// Shows which adapter handled the page and the start of the extracted text.
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/ppiankov/clauseguard/internal/cache"
	"github.com/ppiankov/clauseguard/internal/input"
	"github.com/ppiankov/clauseguard/internal/model"
	"github.com/ppiankov/clauseguard/internal/util"
)

const previewChars = 400

func main() {
	fmt.Println("=== Legal Page Extraction Preview ===")
	fmt.Println()

	urls := os.Args[1:]
	if len(urls) == 0 {
		urls = []string{
			"https://policies.google.com/terms",
			"https://www.apple.com/legal/privacy/en-ww/",
		}
	}

	cfg := model.DefaultConfig()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	fetcher := input.NewFetcher(cfg.Input.FetchTimeout, cfg.API.UserAgent, cfg.Input.MaxPageBytes,
		false, "", "", "").WithLogger(log)
	robots := util.NewRobotsChecker(cache.NewMemoryCache(time.Hour, 10*time.Minute), time.Hour,
		fetcher.HTTPClient(), cfg.API.UserAgent, log)
	fetcher.WithRobots(robots)

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	failed := 0
	for _, url := range urls {
		fmt.Printf("Fetching: %s\n", url)
		fmt.Println(strings.Repeat("-", 60))

		page, err := fetcher.FetchPage(ctx, url)
		if err != nil {
			fmt.Printf("  ✗ %v\n\n", err)
			failed++
			continue
		}

		fmt.Printf("  ✓ %s\n", page.Title)
		fmt.Printf("    Final URL: %s\n", page.FinalURL)
		fmt.Printf("    Adapter:   %s\n", page.Adapter)
		fmt.Printf("    Text:      %d chars\n\n", len(page.Text))

		preview := page.Text
		if len(preview) > previewChars {
			preview = preview[:previewChars] + "..."
		}
		for _, line := range strings.Split(preview, "\n") {
			fmt.Printf("    %s\n", line)
		}
		fmt.Println()
	}

	fmt.Println("=== Preview Complete ===")
	if failed > 0 {
		os.Exit(1)
	}
}
