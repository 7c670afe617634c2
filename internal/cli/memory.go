package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/raphaelgruber/companion/internal/models"
	"github.com/spf13/cobra"
)

var (
	memoryForce bool
	memoryAll   bool
)

var memoryCmd = &cobra.Command{
	Use:   "memory",
	Short: "Review what the companion remembers",
	Long: `Review saved memories and memory candidates.

Candidates are facts the companion proposed during the current session. In
user-controlled conditions you decide which ones are saved; otherwise they
are handled automatically and only shown.

Subcommands:
  list              saved memories and candidates (default)
  candidates        candidates of the current session
  add               propose a new memory
  approve           save one candidate
  approve-selected  save several candidates at once
  edit              change a memory's text
  delete            delete a memory

Examples:
  companion memory
  companion memory add "Has a dog called Pixel"
  companion memory approve-selected <id> <id>
  companion memory delete <id> --force`,
	RunE: runMemoryList,
}

var memoryListCmd = &cobra.Command{
	Use:   "list",
	Short: "List saved memories and candidates",
	Args:  cobra.NoArgs,
	RunE:  runMemoryList,
}

var memoryCandidatesCmd = &cobra.Command{
	Use:   "candidates",
	Short: "List candidates of the current session",
	Args:  cobra.NoArgs,
	RunE:  runMemoryCandidates,
}

var memoryAddCmd = &cobra.Command{
	Use:   "add <text>",
	Short: "Propose a new memory",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runMemoryAdd,
}

var memoryApproveCmd = &cobra.Command{
	Use:   "approve <memory-id>",
	Short: "Save one candidate",
	Args:  cobra.ExactArgs(1),
	RunE:  runMemoryApprove,
}

var memoryApproveSelectedCmd = &cobra.Command{
	Use:   "approve-selected [memory-id...]",
	Short: "Save several candidates in one request",
	Long: `Save several candidates in one request. With --all every candidate of the
current session is selected.`,
	RunE: runMemoryApproveSelected,
}

var memoryEditCmd = &cobra.Command{
	Use:   "edit <memory-id> <text>",
	Short: "Change a memory's text (max 200 characters)",
	Args:  cobra.MinimumNArgs(2),
	RunE:  runMemoryEdit,
}

var memoryDeleteCmd = &cobra.Command{
	Use:   "delete <memory-id>",
	Short: "Delete a memory",
	Long:  `Delete a memory. Requires confirmation unless --force is used.`,
	Args:  cobra.ExactArgs(1),
	RunE:  runMemoryDelete,
}

func init() {
	memoryDeleteCmd.Flags().BoolVarP(&memoryForce, "force", "f", false, "skip confirmation")
	memoryApproveSelectedCmd.Flags().BoolVar(&memoryAll, "all", false, "select every candidate")

	memoryCmd.AddCommand(memoryListCmd)
	memoryCmd.AddCommand(memoryCandidatesCmd)
	memoryCmd.AddCommand(memoryAddCmd)
	memoryCmd.AddCommand(memoryApproveCmd)
	memoryCmd.AddCommand(memoryApproveSelectedCmd)
	memoryCmd.AddCommand(memoryEditCmd)
	memoryCmd.AddCommand(memoryDeleteCmd)
}

// openMemories loads the panel for the stored session.
func openMemories(ctx context.Context) error {
	if _, err := requireLogin(); err != nil {
		return err
	}
	svcs.Memory.Open(ctx)
	return nil
}

func runMemoryList(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	if err := openMemories(ctx); err != nil {
		return err
	}
	review := svcs.Memory

	saved := review.Saved()
	fmt.Printf("Saved memories (%d):\n\n", len(saved))
	for _, m := range saved {
		printMemory(m)
	}
	if len(saved) == 0 {
		fmt.Println("  none")
	}

	fmt.Println()
	return printCandidates(review.Candidates(), review.UserControlled())
}

func runMemoryCandidates(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	if err := openMemories(ctx); err != nil {
		return err
	}
	return printCandidates(svcs.Memory.Candidates(), svcs.Memory.UserControlled())
}

func printCandidates(cands []models.Memory, editable bool) error {
	fmt.Printf("Memory (%d)\n\n", len(cands))
	if !editable {
		fmt.Println("  Candidates are managed automatically in your condition.")
		return nil
	}
	for _, m := range cands {
		printMemory(m)
	}
	if len(cands) == 0 {
		fmt.Println("  No candidates.")
	}
	return nil
}

func printMemory(m models.Memory) {
	fmt.Printf("- %s\n", m.Text)
	if verbose {
		when := humanize.Time(m.CreatedAt)
		if m.UpdatedAt != nil {
			when += ", edited " + humanize.Time(*m.UpdatedAt)
		}
		fmt.Printf("  %s (%s)\n", m.MemoryID, when)
	} else {
		fmt.Printf("  %s\n", m.MemoryID)
	}
}

func runMemoryAdd(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	if err := openMemories(ctx); err != nil {
		return err
	}
	m, err := svcs.Memory.Add(ctx, strings.Join(args, " "))
	if err != nil {
		return err
	}
	fmt.Printf("Proposed memory %s.\n", m.MemoryID)
	return nil
}

func runMemoryApprove(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	if err := openMemories(ctx); err != nil {
		return err
	}
	m, err := svcs.Memory.ApproveOne(ctx, args[0])
	if err != nil {
		return err
	}
	fmt.Printf("Saved: %s\n", m.Text)
	return nil
}

func runMemoryApproveSelected(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	if err := openMemories(ctx); err != nil {
		return err
	}
	review := svcs.Memory

	ids := args
	if memoryAll {
		ids = nil
		for _, m := range review.EditableCandidates() {
			ids = append(ids, m.MemoryID)
		}
	}
	for _, id := range ids {
		if review.IsSelected(id) {
			continue
		}
		if _, err := review.ToggleSelect(id); err != nil {
			return err
		}
	}

	n, err := review.BatchApprove(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("Saved %d memories.\n", n)
	return nil
}

func runMemoryEdit(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	if err := openMemories(ctx); err != nil {
		return err
	}
	review := svcs.Memory

	if err := review.StartEdit(args[0]); err != nil {
		return err
	}
	text := strings.Join(args[1:], " ")
	if n := len([]rune(text)); n > models.MemoryTextLimit {
		fmt.Printf("Text shortened to %d characters (was %d).\n", models.MemoryTextLimit, n)
	}
	if err := review.SetEditText(text); err != nil {
		return err
	}
	if err := review.SaveEdit(ctx); err != nil {
		return err
	}
	fmt.Println("Memory updated.")
	return nil
}

func runMemoryDelete(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	if err := openMemories(ctx); err != nil {
		return err
	}
	review := svcs.Memory

	if err := review.RequestDelete(args[0]); err != nil {
		return err
	}

	// Confirm deletion
	if !memoryForce {
		for _, m := range review.Memories() {
			if m.MemoryID == args[0] {
				fmt.Printf("About to delete: %s\n", m.Text)
			}
		}
		if !confirm("Continue?") {
			review.CancelDelete()
			fmt.Println("Cancelled.")
			return nil
		}
	}

	if err := review.ConfirmDelete(ctx); err != nil {
		return err
	}
	fmt.Println("Memory deleted.")
	return nil
}
