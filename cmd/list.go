package cmd

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/mihaisavezi/mutual-dissent/internal/transcript"
)

var listLimit int

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List saved transcripts",
	Long:  `Lists saved debate transcripts, most recent first.`,
	RunE:  runList,
}

func init() {
	listCmd.Flags().IntVar(&listLimit, "limit", 20, "maximum number of transcripts to list (0 for no limit)")
}

func runList(cmd *cobra.Command, _ []string) error {
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

	summaries, err := store.List(listLimit)
	if err != nil {
		return fmt.Errorf("list transcripts: %w", err)
	}

	if len(summaries) == 0 {
		color.Yellow("No transcripts found in %s", cfg.TranscriptDir)
		return nil
	}

	for _, s := range summaries {
		fmt.Printf("%s  %s  panel=[%s]  synthesizer=%s  rounds=%d  %q\n",
			s.ShortID, s.CreatedAt.Format("2006-01-02 15:04"), s.Panel, s.SynthesizerID, s.RoundCount, s.Query)
	}

	return nil
}
