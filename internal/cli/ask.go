package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/clarkhq/clark/internal/service"
	"github.com/spf13/cobra"
)

var (
	askSpaceID   int64
	askThreadID  int64
	askParentID  int64
	askFork      bool
	askNoHistory bool
)

var askCmd = &cobra.Command{
	Use:   "ask <question>",
	Short: "Ask a question and stream a grounded answer",
	Long: `Ask a question against a space and stream the answer as it is
generated. Every turn is stored, so passing --thread continues an
existing conversation and --parent with --fork starts an alternative
continuation from an earlier message.

Examples:
  clark ask --space 1 "What is eventual consistency?"
  clark ask --space 1 --thread 7 "And how does that differ from linearizability?"
  clark ask --space 1 --thread 7 --parent 42 --fork "Explain it with a banking example instead"`,
	Args: cobra.ExactArgs(1),
	RunE: runAsk,
}

func init() {
	askCmd.Flags().Int64VarP(&askSpaceID, "space", "s", 0, "space to search (required)")
	askCmd.Flags().Int64VarP(&askThreadID, "thread", "t", 0, "continue an existing thread")
	askCmd.Flags().Int64Var(&askParentID, "parent", 0, "parent message id to attach to")
	askCmd.Flags().BoolVar(&askFork, "fork", false, "start an alternative continuation under --parent")
	askCmd.Flags().BoolVar(&askNoHistory, "no-history", false, "answer without prior conversation context")
	_ = askCmd.MarkFlagRequired("space")
}

func runAsk(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	a, err := getApp(ctx)
	if err != nil {
		return err
	}

	input := service.PostMessageInput{
		SpaceID:    askSpaceID,
		Text:       args[0],
		UseHistory: !askNoHistory,
		IsFork:     askFork,
	}
	if askThreadID != 0 {
		input.ThreadID = &askThreadID
	}
	if askParentID != 0 {
		input.ParentID = &askParentID
	}

	result, err := a.Chat.PostMessageStream(ctx, input, func(chunk string) {
		fmt.Print(chunk)
	})
	if err != nil {
		return fmt.Errorf("ask: %w", err)
	}
	fmt.Println()

	fmt.Fprintf(os.Stderr, "\nthread %d, message %d", result.ThreadID, result.MessageID)
	if result.Source != "" {
		fmt.Fprintf(os.Stderr, ", source: %s", result.Source)
	}
	fmt.Fprintln(os.Stderr)

	return nil
}
