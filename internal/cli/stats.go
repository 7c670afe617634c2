package cli

import (
	"fmt"
	"os"

	"github.com/raphaelgruber/companion/internal/metrics"
)

// printCallStats displays per-operation API call statistics on stderr.
func printCallStats(snap metrics.Snapshot) {
	w := os.Stderr
	fmt.Fprintf(w, "\nAPI Call Statistics\n")
	fmt.Fprintf(w, "═══════════════════════════════════════\n")
	fmt.Fprintf(w, "Calls: %d, Errors: %d, Uptime: %.1fs\n", snap.TotalCalls, snap.TotalErrors, snap.UptimeSeconds)

	for _, op := range snap.Operations {
		fmt.Fprintf(w, "\n%s:\n", op.Operation)
		fmt.Fprintf(w, "  Calls: %d, Errors: %d, Total: %dms\n", op.Count, op.Errors, op.TotalTimeMs)
		fmt.Fprintf(w, "  Time: avg %.1fms, min %dms, max %dms\n", op.AvgTimeMs, op.MinTimeMs, op.MaxTimeMs)
	}
}
