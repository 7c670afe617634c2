package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var devCmd = &cobra.Command{
	Use:   "dev",
	Short: "Developer mode",
	Long: `Developer mode unlocks the condition override. It is always unlocked
when COMPANION_ENVIRONMENT=development.

Subcommands:
  unlock  enter the developer password
  lock    forget a previous unlock
  status  show whether developer mode is unlocked (default)`,
	RunE: runDevStatus,
}

var devUnlockCmd = &cobra.Command{
	Use:   "unlock",
	Short: "Unlock developer mode",
	Args:  cobra.NoArgs,
	RunE:  runDevUnlock,
}

var devLockCmd = &cobra.Command{
	Use:   "lock",
	Short: "Lock developer mode",
	Args:  cobra.NoArgs,
	RunE:  runDevLock,
}

var devStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show developer mode status",
	Args:  cobra.NoArgs,
	RunE:  runDevStatus,
}

func init() {
	devCmd.AddCommand(devUnlockCmd)
	devCmd.AddCommand(devLockCmd)
	devCmd.AddCommand(devStatusCmd)
}

func runDevUnlock(cmd *cobra.Command, args []string) error {
	if svcs.Dev.Unlocked() {
		fmt.Println("Developer mode is already unlocked.")
		return nil
	}
	password, err := promptPassword("Developer password: ")
	if err != nil {
		return err
	}
	if err := svcs.Dev.Unlock(password); err != nil {
		return err
	}
	fmt.Println("Developer mode unlocked.")
	return nil
}

func runDevLock(cmd *cobra.Command, args []string) error {
	if err := svcs.Dev.Lock(); err != nil {
		return err
	}
	if cfg.Development() {
		fmt.Println("Stored unlock cleared; development environment keeps developer mode on.")
		return nil
	}
	fmt.Println("Developer mode locked.")
	return nil
}

func runDevStatus(cmd *cobra.Command, args []string) error {
	switch {
	case cfg.Development():
		fmt.Println("Developer mode: unlocked (development environment)")
	case svcs.Dev.Unlocked():
		fmt.Println("Developer mode: unlocked")
	default:
		fmt.Println("Developer mode: locked")
	}
	return nil
}
