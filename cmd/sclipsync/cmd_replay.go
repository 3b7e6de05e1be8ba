package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/user/sclipsync/internal/record"
	"github.com/user/sclipsync/internal/store"
	"github.com/user/sclipsync/internal/types"
)

var replayFile string

func init() {
	rootCmd.AddCommand(replayCmd)
	replayCmd.Flags().StringVar(&replayFile, "file", "", "frames.jsonl to replay (overrides session lookup)")
}

var replayCmd = &cobra.Command{
	Use:   "replay [session-id]",
	Short: "Replay a recorded session through a fresh store",
	Long: `replay feeds a captured frame log back through the message store and
prints the resulting state, which is fully determined by the frames.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runReplay,
}

func runReplay(cmd *cobra.Command, args []string) error {
	cfg := loadConfig()
	setupLogging(cfg)

	var frames []types.Message
	var err error
	switch {
	case replayFile != "":
		frames, err = record.ReadFile(replayFile)
	case len(args) == 1:
		frames, err = record.New(cfg.DataDir).Load(types.SessionID(args[0]))
	default:
		return fmt.Errorf("provide a session id or --file")
	}
	if err != nil {
		return fmt.Errorf("load frames: %w", err)
	}
	if len(frames) == 0 {
		fmt.Println("No recorded frames found.")
		return nil
	}

	st := store.New()
	for _, msg := range frames {
		st.Dispatch(msg)
	}

	fmt.Printf("replayed %d frames\n", len(frames))
	printStateSummary(os.Stdout, st.Snapshot())
	return nil
}
