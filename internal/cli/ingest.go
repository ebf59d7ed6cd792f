package cli

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/clarkhq/clark/internal/app"
	"github.com/spf13/cobra"
)

var (
	ingestSpaceID   int64
	ingestRecursive bool
)

// ingestExtensions are the file types picked up when walking a directory.
var ingestExtensions = map[string]bool{
	".pdf": true,
	".txt": true,
	".md":  true,
}

var ingestCmd = &cobra.Command{
	Use:   "ingest <path-or-url>...",
	Short: "Ingest documents into a space",
	Long: `Ingest documents into a space: extract text, chunk it, enrich each
chunk with document context, and add it to the hybrid index.

Accepts local files, directories, and URLs. Directories pick up
.pdf, .txt, and .md files.

Examples:
  clark ingest --space 1 lecture-notes.pdf
  clark ingest --space 1 ./course-material/
  clark ingest --space 2 https://example.com/paper.pdf`,
	Args: cobra.MinimumNArgs(1),
	RunE: runIngest,
}

func init() {
	ingestCmd.Flags().Int64VarP(&ingestSpaceID, "space", "s", 0, "target space id (required)")
	ingestCmd.Flags().BoolVarP(&ingestRecursive, "recursive", "r", false, "recurse into subdirectories")
	_ = ingestCmd.MarkFlagRequired("space")
}

func runIngest(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	a, err := getApp(ctx)
	if err != nil {
		return err
	}

	var urls, files []string
	for _, arg := range args {
		if strings.HasPrefix(arg, "http://") || strings.HasPrefix(arg, "https://") {
			urls = append(urls, arg)
			continue
		}
		expanded, err := collectFiles(arg)
		if err != nil {
			return err
		}
		files = append(files, expanded...)
	}

	for _, rawURL := range urls {
		result, err := a.Ingest.IngestURL(ctx, ingestSpaceID, rawURL)
		if err != nil {
			return fmt.Errorf("ingest %s: %w", rawURL, err)
		}
		fmt.Printf("Ingested %s (%d chunks)\n", result.Filename, result.Chunks)
	}

	if len(files) == 0 {
		return nil
	}
	if len(files) == 1 {
		result, err := a.Ingest.IngestFile(ctx, ingestSpaceID, files[0])
		if err != nil {
			return fmt.Errorf("ingest %s: %w", files[0], err)
		}
		fmt.Printf("Ingested %s (%d chunks)\n", result.Filename, result.Chunks)
		return nil
	}

	return runIngestProgress(ctx, a, ingestSpaceID, files)
}

// collectFiles expands a path into the list of ingestible files.
func collectFiles(path string) ([]string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", path, err)
	}
	if !info.IsDir() {
		return []string{path}, nil
	}

	var files []string
	err = filepath.WalkDir(path, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if p != path && !ingestRecursive {
				return fs.SkipDir
			}
			return nil
		}
		if ingestExtensions[strings.ToLower(filepath.Ext(p))] {
			files = append(files, p)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk %s: %w", path, err)
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no ingestible files under %s", path)
	}
	return files, nil
}

// ingestWorker pushes files through the pipeline and reports each outcome
// to the progress UI.
func ingestWorker(ctx context.Context, a *app.App, spaceID int64, files []string, send func(msg any)) {
	for _, file := range files {
		if ctx.Err() != nil {
			return
		}
		send(fileStartMsg{name: filepath.Base(file)})

		result, err := a.Ingest.IngestFile(ctx, spaceID, file)
		send(fileDoneMsg{name: filepath.Base(file), result: result, err: err})
	}
	send(ingestFinishedMsg{})
}

// fileOutcome records one processed file for the final summary.
type fileOutcome struct {
	name   string
	chunks int
	err    error
}

func summarize(results []fileOutcome) (ingested, chunks, failed int) {
	for _, r := range results {
		if r.err != nil {
			failed++
			continue
		}
		ingested++
		chunks += r.chunks
	}
	return ingested, chunks, failed
}
