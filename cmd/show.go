package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mihaisavezi/mutual-dissent/internal/transcript"
)

var showJSON bool

var showCmd = &cobra.Command{
	Use:   "show [transcript-id]",
	Short: "Show a saved transcript",
	Long:  `Prints a saved debate transcript's synthesis and, with --json, its full structure.`,
	Args:  cobra.ExactArgs(1),
	RunE:  runShow,
}

func init() {
	showCmd.Flags().BoolVar(&showJSON, "json", false, "print the full transcript as JSON instead of a human-readable summary")
}

func runShow(cmd *cobra.Command, args []string) error {
	if err := ensureConfigExists(); err != nil {
		return err
	}

	cfg, err := cfgMgr.Load()
	if err != nil {
		return err
	}

	store, err := transcript.NewStore(cfg.TranscriptDir)
	if err != nil {
		return fmt.Errorf("open transcript store: %w", err)
	}

	tr, err := store.Load(args[0])
	if err != nil {
		return fmt.Errorf("load transcript: %w", err)
	}

	if tr == nil {
		return fmt.Errorf("no transcript found matching %q", args[0])
	}

	if showJSON {
		data, err := json.MarshalIndent(tr, "", "  ")
		if err != nil {
			return fmt.Errorf("marshal transcript: %w", err)
		}

		fmt.Println(string(data))

		return nil
	}

	fmt.Printf("Transcript: %s\n", tr.TranscriptID)
	fmt.Printf("Query: %s\n", tr.Query)
	fmt.Printf("Panel: %v\n", tr.Panel)
	fmt.Printf("Synthesizer: %s\n", tr.SynthesizerID)
	fmt.Printf("Rounds: %d\n\n", len(tr.Rounds))

	for _, round := range tr.Rounds {
		fmt.Printf("=== Round %d (%s) ===\n", round.RoundNumber, round.RoundType)

		for _, r := range round.Responses {
			if r.Failed() {
				fmt.Printf("[%s] ERROR: %s\n\n", r.ModelAlias, r.Error)
				continue
			}

			fmt.Printf("[%s]:\n%s\n\n", r.ModelAlias, r.Content)
		}
	}

	if tr.Synthesis != nil {
		fmt.Printf("=== Synthesis ===\n%s\n", tr.Synthesis.Content)
	}

	if scores, ok := tr.Metadata["scores"]; ok {
		fmt.Printf("\nScores: %+v\n", scores)
	}

	return nil
}
