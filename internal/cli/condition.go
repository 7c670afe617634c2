package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/raphaelgruber/companion/internal/models"
	"github.com/raphaelgruber/companion/internal/service"
	"github.com/spf13/cobra"
)

var conditionCmd = &cobra.Command{
	Use:   "condition",
	Short: "Show or override the study condition",
	Long: `Show the study condition assigned to you, or override it in developer mode.

Examples:
  companion condition
  companion condition set PERSISTENT_USER`,
	RunE: runConditionShow,
}

var conditionShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the current condition",
	Args:  cobra.NoArgs,
	RunE:  runConditionShow,
}

var conditionSetCmd = &cobra.Command{
	Use:   "set <condition>",
	Short: "Override the condition (developer mode)",
	Long: `Override the condition of the logged-in user. Requires developer mode
('companion dev unlock').

Conditions: SESSION_AUTO, SESSION_USER, PERSISTENT_AUTO, PERSISTENT_USER`,
	Args:      cobra.ExactArgs(1),
	ValidArgs: conditionIDs(),
	RunE:      runConditionSet,
}

func init() {
	conditionCmd.AddCommand(conditionShowCmd)
	conditionCmd.AddCommand(conditionSetCmd)
}

func conditionIDs() []string {
	var ids []string
	for _, c := range models.AllConditions() {
		ids = append(ids, c.ID())
	}
	return ids
}

func runConditionShow(cmd *cobra.Command, args []string) error {
	if _, err := requireLogin(); err != nil {
		return err
	}
	chat := svcs.Chat
	if err := chat.RefreshCondition(context.Background()); err != nil {
		logger.Warn("refresh condition failed, showing stored value", "error", err)
	}

	c := chat.Condition()
	fmt.Printf("Condition: %s (%s)\n", chat.ConditionID(), c.Label())
	fmt.Printf("  %s\n", chat.Banner())
	if verbose {
		fmt.Printf("  persistent memories: %t\n", c.Persistent())
		fmt.Printf("  you review memories: %t\n", c.UserControlled())
	}
	return nil
}

func runConditionSet(cmd *cobra.Command, args []string) error {
	id, err := requireLogin()
	if err != nil {
		return err
	}
	c, err := models.ParseCondition(strings.ToUpper(args[0]))
	if err != nil {
		return fmt.Errorf("%w (valid: %s)", err, strings.Join(conditionIDs(), ", "))
	}

	if err := svcs.Dev.SetCondition(context.Background(), id.UserID, c); err != nil {
		if errors.Is(err, service.ErrLocked) {
			return fmt.Errorf("%w: run 'companion dev unlock' first", err)
		}
		return err
	}
	fmt.Printf("Condition set to %s (%s).\n", c.ID(), c.Label())
	fmt.Printf("  %s\n", c.Banner())
	fmt.Println("This override is for testing and may not survive a new login.")
	return nil
}
