package cmd

import (
	"context"
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/mihaisavezi/mutual-dissent/internal/debate"
	"github.com/mihaisavezi/mutual-dissent/internal/transcript"
)

var (
	replaySynthesizer string
	replayRounds      int
	replayGroundTruth string
)

var replayCmd = &cobra.Command{
	Use:   "replay [transcript-id]",
	Short: "Replay a prior debate with additional reflection rounds",
	Long:  `Loads a saved transcript, shares its prior rounds, and extends it with additional reflection rounds and a fresh synthesis.`,
	Args:  cobra.ExactArgs(1),
	RunE:  runReplay,
}

func init() {
	replayCmd.Flags().StringVar(&replaySynthesizer, "synthesizer", "", "override the source transcript's synthesizer alias")
	replayCmd.Flags().IntVar(&replayRounds, "additional-rounds", 1, "number of extra reflection rounds to run")
	replayCmd.Flags().StringVar(&replayGroundTruth, "ground-truth", "", "known-correct answer to grade the new synthesis against")
}

func runReplay(cmd *cobra.Command, args []string) error {
	verbose, _ := cmd.Flags().GetBool("verbose")
	logFile, _ := cmd.Flags().GetBool("log-file")
	setupLogging(verbose, logFile)

	if err := ensureConfigExists(); err != nil {
		return err
	}

	cfg, err := cfgMgr.Load()
	if err != nil {
		return err
	}

	eng, err := buildEngine(cfg, logger)
	if err != nil {
		return fmt.Errorf("initialize engine: %w", err)
	}
	defer eng.Router.Close()

	source, err := eng.Store.Load(args[0])
	if err != nil {
		return fmt.Errorf("load source transcript: %w", err)
	}

	if source == nil {
		return fmt.Errorf("no transcript found matching %q", args[0])
	}

	tr, err := eng.Orchestrator.Replay(context.Background(), debate.ReplayOptions{
		Source:           source,
		Synthesizer:      replaySynthesizer,
		AdditionalRounds: replayRounds,
		GroundTruth:      replayGroundTruth,
		OnRoundComplete: func(round transcript.DebateRound) {
			color.Cyan("  round %d (%s) complete: %d response(s)", round.RoundNumber, round.RoundType, len(round.Responses))
		},
	})
	if err != nil {
		return fmt.Errorf("replay debate: %w", err)
	}

	path, err := eng.Store.Save(tr)
	if err != nil {
		return fmt.Errorf("save transcript: %w", err)
	}

	color.Green("Replay complete: %s", tr.ShortID())
	fmt.Printf("Transcript saved to: %s\n", path)

	if tr.Synthesis != nil {
		fmt.Printf("\n=== Synthesis ===\n%s\n", tr.Synthesis.Content)
	}

	return nil
}
