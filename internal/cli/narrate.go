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
	narrateInput inputFlags
	narrateOut   string
	narratePlay  bool
)

// narrateCmd represents the narrate command
var narrateCmd = &cobra.Command{
	Use:   "narrate",
	Short: "Get an audio explanation of a document (podcast mode)",
	Long: `Narrate submits a document in narrated mode. The service answers with an
audio explanation of the risky clauses, which is saved to a file and can be
played through an external player (ffplay by default, see audio.player_command).

Example:
  clauseguard narrate --file privacy.pdf
  clauseguard narrate --text "We sell your data." --out explain.wav --play`,
	Args: cobra.NoArgs,
	RunE: runNarrate,
}

func init() {
	rootCmd.AddCommand(narrateCmd)

	narrateInput.register(narrateCmd)
	narrateCmd.Flags().StringVar(&narrateOut, "out", "", "audio output path (default: the name sent by the service, e.g. podcast.wav)")
	narrateCmd.Flags().BoolVar(&narratePlay, "play", false, "play the narration after saving it")
}

func runNarrate(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	a, err := appFromViper()
	if err != nil {
		return err
	}

	in, err := a.resolve(ctx, narrateInput, cmd.InOrStdin())
	if err != nil {
		return err
	}

	orch := a.orchestrator()
	defer orch.Close()
	orch.SetMode(model.ModeNarrated)
	orch.SelectFile(in.File)
	orch.SetText(in.Text)

	if verbose {
		fmt.Fprintf(os.Stderr, "⚙️  Requesting narration of %s...\n", in.Describe())
	}

	if _, err := orch.Submit(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "✗ %s\n", describeError(err))
		return fmt.Errorf("narrate failed: %w", err)
	}

	artifact := orch.Snapshot().Audio()
	path := narrateOut
	if path == "" {
		path = artifact.Filename
	}
	if err := orch.Player().Save(path); err != nil {
		return fmt.Errorf("save narration: %w", err)
	}
	fmt.Fprintf(os.Stderr, "✓ Saved %s\n", a.renderer.Audio(artifact))
	fmt.Fprintln(cmd.OutOrStdout(), path)

	if narratePlay {
		if _, err := orch.Player().PlayCommand(ctx, a.cfg.Audio.PlayerCommand); err != nil {
			return fmt.Errorf("play narration: %w", err)
		}
	}
	return nil
}
