package cli

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/clarkhq/clark/internal/models"
	"github.com/clarkhq/clark/internal/service"
	"github.com/spf13/cobra"
)

var branchFull bool

var threadsCmd = &cobra.Command{
	Use:   "threads <space-id>",
	Short: "List and inspect conversation threads",
	Long: `List the threads of a space or inspect one with subcommands.

Subcommands:
  show    Show a thread's message tree with fork points
  branch  Show the messages of one branch

Examples:
  clark threads 1
  clark threads show 7
  clark threads branch 42
  clark threads branch 42 --full`,
	Args: cobra.ExactArgs(1),
	RunE: runListThreads,
}

var threadsShowCmd = &cobra.Command{
	Use:   "show <thread-id>",
	Short: "Show a thread's message tree with fork points",
	Args:  cobra.ExactArgs(1),
	RunE:  runShowThread,
}

var threadsBranchCmd = &cobra.Command{
	Use:   "branch <branch-id>",
	Short: "Show the messages of one branch",
	Args:  cobra.ExactArgs(1),
	RunE:  runShowBranch,
}

func init() {
	threadsBranchCmd.Flags().BoolVar(&branchFull, "full", false, "include the shared ancestors before the fork point")

	threadsCmd.AddCommand(threadsShowCmd)
	threadsCmd.AddCommand(threadsBranchCmd)
}

func runListThreads(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	spaceID, err := parseID(args[0], "space id")
	if err != nil {
		return err
	}

	threads, err := dbClient.ThreadsForSpace(ctx, spaceID)
	if err != nil {
		return fmt.Errorf("list threads: %w", err)
	}

	if len(threads) == 0 {
		fmt.Println("No threads found.")
		return nil
	}

	fmt.Printf("Threads (%d):\n\n", len(threads))
	for _, thread := range threads {
		id, _ := models.RecordIDInt64(thread.ID)
		fmt.Printf("- [%d] %s\n", id, thread.Title)
	}

	return nil
}

func runShowThread(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	threadID, err := parseID(args[0], "thread id")
	if err != nil {
		return err
	}

	conversation := service.NewConversationService(dbClient)

	thread, err := dbClient.GetThread(ctx, threadID)
	if err != nil {
		return fmt.Errorf("get thread: %w", err)
	}
	messages, err := conversation.ThreadMessages(ctx, threadID)
	if err != nil {
		return fmt.Errorf("thread messages: %w", err)
	}
	forks, err := conversation.ForkIndex(ctx, threadID)
	if err != nil {
		return fmt.Errorf("fork index: %w", err)
	}

	fmt.Printf("Thread %d: %s\n\n", threadID, thread.Title)
	for _, msg := range messages {
		printMessage(msg)
		id, err := msg.IDInt()
		if err != nil {
			continue
		}
		for _, fork := range forks[id] {
			fmt.Printf("    ↳ branch %d: %s\n", fork.BranchID, fork.Preview)
		}
	}

	return nil
}

func runShowBranch(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	branchID, err := parseID(args[0], "branch id")
	if err != nil {
		return err
	}

	conversation := service.NewConversationService(dbClient)
	messages, err := conversation.BranchMessages(ctx, branchID, branchFull)
	if err != nil {
		return fmt.Errorf("branch messages: %w", err)
	}

	if len(messages) == 0 {
		fmt.Println("No messages found.")
		return nil
	}

	fmt.Printf("Branch %d (%d messages):\n\n", branchID, len(messages))
	for _, msg := range messages {
		printMessage(msg)
	}

	return nil
}

// printMessage renders one message with its tree position indented by depth.
func printMessage(msg models.Message) {
	depth := len(models.ParsePath(msg.Path))
	if depth > 0 {
		depth--
	}
	indent := strings.Repeat("  ", depth)

	id, _ := msg.IDInt()
	marker := ""
	if msg.IsForkStart() {
		marker = " [fork]"
	}
	fmt.Printf("%s[%d] %s%s: %s\n", indent, id, msg.Role, marker, firstLine(msg.Content))
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i]
	}
	runes := []rune(s)
	if len(runes) > 100 {
		return string(runes[:100]) + "..."
	}
	return s
}

// parseID parses a numeric command argument.
func parseID(arg, what string) (int64, error) {
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %s", what, arg)
	}
	return id, nil
}
