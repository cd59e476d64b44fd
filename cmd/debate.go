package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/mihaisavezi/mutual-dissent/internal/debate"
	"github.com/mihaisavezi/mutual-dissent/internal/transcript"
)

var (
	debatePanel       []string
	debateSynthesizer string
	debateRounds      int
	debateGroundTruth string
)

var debateCmd = &cobra.Command{
	Use:   "debate [query]",
	Short: "Run a fresh multi-model debate",
	Long:  `Runs a panel of models through an initial round, zero or more reflection rounds, and a synthesis, then saves the resulting transcript.`,
	Args:  cobra.ExactArgs(1),
	RunE:  runDebate,
}

func init() {
	debateCmd.Flags().StringSliceVar(&debatePanel, "panel", nil, "comma-separated panelist aliases (default: config's default panel)")
	debateCmd.Flags().StringVar(&debateSynthesizer, "synthesizer", "", "alias that synthesizes the final answer (default: config's default synthesizer)")
	debateCmd.Flags().IntVar(&debateRounds, "rounds", -1, "number of reflection rounds beyond the initial round (default: config's default)")
	debateCmd.Flags().StringVar(&debateGroundTruth, "ground-truth", "", "known-correct answer to grade the synthesis against")
}

func runDebate(cmd *cobra.Command, args []string) error {
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

	panel := debatePanel
	if len(panel) == 0 {
		panel = cfg.DefaultPanel
	}

	synthesizer := debateSynthesizer
	if synthesizer == "" {
		synthesizer = cfg.DefaultSynthesizer
	}

	rounds := debateRounds
	if rounds < 0 {
		rounds = cfg.DefaultRounds
	}

	eng, err := buildEngine(cfg, logger)
	if err != nil {
		return fmt.Errorf("initialize engine: %w", err)
	}
	defer eng.Router.Close()

	color.Cyan("Running debate with panel [%s], synthesizer %s, %d reflection round(s)...", strings.Join(panel, ", "), synthesizer, rounds)

	tr, err := eng.Orchestrator.Run(context.Background(), debate.RunOptions{
		Query:       args[0],
		Panel:       panel,
		Synthesizer: synthesizer,
		Rounds:      rounds,
		GroundTruth: debateGroundTruth,
		OnRoundComplete: func(round transcript.DebateRound) {
			color.Cyan("  round %d (%s) complete: %d response(s)", round.RoundNumber, round.RoundType, len(round.Responses))
		},
	})
	if err != nil {
		return fmt.Errorf("run debate: %w", err)
	}

	path, err := eng.Store.Save(tr)
	if err != nil {
		return fmt.Errorf("save transcript: %w", err)
	}

	color.Green("Debate complete: %s", tr.ShortID())
	fmt.Printf("Transcript saved to: %s\n", path)

	if tr.Synthesis != nil {
		fmt.Printf("\n=== Synthesis ===\n%s\n", tr.Synthesis.Content)
	}

	if tr.Aborted() {
		color.Yellow("Debate was cancelled before completion; partial transcript saved.")
	}

	return nil
}
