package cli

import (
	"context"
	"fmt"

	"github.com/clarkhq/clark/internal/models"
	"github.com/spf13/cobra"
)

var spaceDescription string

var spacesCmd = &cobra.Command{
	Use:   "spaces",
	Short: "List and create spaces",
	Long: `List spaces or manage them with subcommands.

Subcommands:
  create     Create a new space
  documents  List the documents of a space

Examples:
  clark spaces
  clark spaces create "Distributed Systems" --description "6.824 course material"
  clark spaces documents 1`,
	RunE: runListSpaces,
}

var spacesCreateCmd = &cobra.Command{
	Use:   "create <name>",
	Short: "Create a new space",
	Args:  cobra.ExactArgs(1),
	RunE:  runCreateSpace,
}

var spacesDocumentsCmd = &cobra.Command{
	Use:   "documents <space-id>",
	Short: "List the documents of a space",
	Args:  cobra.ExactArgs(1),
	RunE:  runListDocuments,
}

func init() {
	spacesCreateCmd.Flags().StringVarP(&spaceDescription, "description", "d", "", "space description")

	spacesCmd.AddCommand(spacesCreateCmd)
	spacesCmd.AddCommand(spacesDocumentsCmd)
}

func runListSpaces(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	spaces, err := dbClient.ListSpaces(ctx)
	if err != nil {
		return fmt.Errorf("list spaces: %w", err)
	}

	if len(spaces) == 0 {
		fmt.Println("No spaces found.")
		return nil
	}

	fmt.Printf("Spaces (%d):\n\n", len(spaces))
	for _, space := range spaces {
		id, _ := models.RecordIDInt64(space.ID)
		fmt.Printf("- [%d] %s\n", id, space.Name)
		if verbose {
			if space.Description != nil && *space.Description != "" {
				fmt.Printf("  %s\n", *space.Description)
			}
			chunks, err := dbClient.CountChunks(ctx, id)
			if err == nil {
				fmt.Printf("  Chunks indexed: %d\n", chunks)
			}
		}
	}

	return nil
}

func runCreateSpace(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	input := models.SpaceInput{Name: args[0]}
	if spaceDescription != "" {
		input.Description = &spaceDescription
	}

	id, err := dbClient.CreateSpace(ctx, input)
	if err != nil {
		return fmt.Errorf("create space: %w", err)
	}

	fmt.Printf("Created space %d: %s\n", id, args[0])
	return nil
}

func runListDocuments(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	spaceID, err := parseID(args[0], "space id")
	if err != nil {
		return err
	}

	documents, err := dbClient.DocumentsForSpace(ctx, spaceID)
	if err != nil {
		return fmt.Errorf("list documents: %w", err)
	}

	if len(documents) == 0 {
		fmt.Println("No documents found.")
		return nil
	}

	fmt.Printf("Documents (%d):\n\n", len(documents))
	for _, doc := range documents {
		id, _ := models.RecordIDInt64(doc.ID)
		fmt.Printf("- [%d] %s (%s)\n", id, doc.Filename, doc.FileType)
		if verbose && doc.FileURL != "" {
			fmt.Printf("  %s\n", doc.FileURL)
		}
	}

	return nil
}
