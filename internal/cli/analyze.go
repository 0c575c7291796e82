package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/ppiankov/clauseguard/internal/model"
	"github.com/spf13/cobra"
)

var (
	analyzeInput inputFlags
	outJSON      string
	outMD        string
	noFooter     bool
)

// analyzeCmd represents the analyze command
var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Analyze one document and print its clauses by risk",
	Long: `Analyze submits a document in standard mode and prints each clause with its
risk level (high, medium, low) and the service's explanation.

Example:
  clauseguard analyze --file terms.pdf
  clauseguard analyze --text "You waive all rights to a refund."
  pbpaste | clauseguard analyze --stdin --json report.json
  clauseguard analyze --url https://example.com/terms --md report.md`,
	Args: cobra.NoArgs,
	RunE: runAnalyze,
}

func init() {
	rootCmd.AddCommand(analyzeCmd)

	analyzeInput.register(analyzeCmd)
	analyzeCmd.Flags().StringVar(&outJSON, "json", "", "write a JSON report to this path")
	analyzeCmd.Flags().StringVar(&outMD, "md", "", "write a Markdown report to this path")
	analyzeCmd.Flags().BoolVar(&noFooter, "no-footer", false, "disable footer in Markdown reports")
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	a, err := appFromViper()
	if err != nil {
		return err
	}
	if noFooter {
		a.cfg.Output.IncludeFooter = false
		a.renderer = newRenderer(a.cfg)
	}

	in, err := a.resolve(ctx, analyzeInput, cmd.InOrStdin())
	if err != nil {
		return err
	}

	orch := a.orchestrator()
	defer orch.Close()
	orch.SetMode(model.ModeStandard)
	orch.SelectFile(in.File)
	orch.SetText(in.Text)

	if verbose {
		fmt.Fprintf(os.Stderr, "⚙️  Submitting %s to %s...\n", in.Describe(), a.client.BaseURL())
	}

	if _, err := orch.Submit(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "✗ %s\n", describeError(err))
		return fmt.Errorf("analyze failed: %w", err)
	}

	result := orch.Snapshot().Analysis()
	a.renderer.Table(cmd.OutOrStdout(), result)

	if err := a.renderer.WriteFiles(result, outJSON, outMD); err != nil {
		return fmt.Errorf("render failed: %w", err)
	}
	for _, p := range []string{outJSON, outMD} {
		if p != "" {
			fmt.Fprintf(os.Stderr, "✓ Wrote %s\n", p)
		}
	}
	return nil
}
