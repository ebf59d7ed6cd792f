package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/clarkhq/clark/internal/metrics"
	"github.com/spf13/cobra"
)

var statsAddr string

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show pipeline statistics from a running server",
	Long: `Show in-memory pipeline statistics of a running server: call counts,
timings, and fallback counts per stage.

Examples:
  clark stats
  clark stats --addr http://localhost:9090`,
	RunE: runStats,
}

func init() {
	statsCmd.Flags().StringVar(&statsAddr, "addr", "http://localhost:8080", "server base URL")
}

func runStats(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, statsAddr+"/stats", nil)
	if err != nil {
		return err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("fetch stats: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("fetch stats: server returned %s", resp.Status)
	}

	var snap metrics.Snapshot
	if err := json.NewDecoder(resp.Body).Decode(&snap); err != nil {
		return fmt.Errorf("decode stats: %w", err)
	}

	printStats(snap)
	return nil
}

// printStats displays pipeline statistics per stage.
func printStats(snap metrics.Snapshot) {
	fmt.Printf("Pipeline Statistics (in-memory, since restart)\n")
	fmt.Printf("═══════════════════════════════════════════════\n")
	fmt.Printf("Uptime: %.1f seconds\n", snap.UptimeSeconds)

	stages := []struct {
		name string
		op   *metrics.OperationSnapshot
	}{
		{"Embedding", snap.Embedding},
		{"Enrichment", snap.Enrich},
		{"Rerank", snap.Rerank},
		{"Generation", snap.Generate},
		{"DB Query", snap.DBQuery},
		{"Index Search", snap.IndexSearch},
	}

	for _, stage := range stages {
		if stage.op == nil {
			continue
		}
		fmt.Printf("\n%s:\n", stage.name)
		printOpStats(stage.op)
	}
}

// printOpStats displays timing statistics for an operation.
func printOpStats(op *metrics.OperationSnapshot) {
	fmt.Printf("  Calls: %d, Total: %dms\n", op.Count, op.TotalTimeMs)
	fmt.Printf("  Time: avg %.1fms, min %dms, max %dms\n",
		op.AvgTimeMs, op.MinTimeMs, op.MaxTimeMs)
	if op.Fallbacks > 0 {
		fmt.Printf("  Fallbacks: %d\n", op.Fallbacks)
	}
}
