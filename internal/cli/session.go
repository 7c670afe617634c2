package cli

import (
	"context"
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/raphaelgruber/companion/internal/models"
	"github.com/spf13/cobra"
)

var sessionCmd = &cobra.Command{
	Use:   "session",
	Short: "Manage chat sessions",
	Long: `Manage chat sessions.

Subcommands:
  new   start a new session
  show  show the current session (default)
  list  list all your sessions
  end   end a session`,
	RunE: runSessionShow,
}

var sessionNewCmd = &cobra.Command{
	Use:   "new",
	Short: "Start a new session",
	Args:  cobra.NoArgs,
	RunE:  runSessionNew,
}

var sessionShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the current session",
	Args:  cobra.NoArgs,
	RunE:  runSessionShow,
}

var sessionListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all sessions",
	Args:  cobra.NoArgs,
	RunE:  runSessionList,
}

var sessionEndCmd = &cobra.Command{
	Use:   "end [session-id]",
	Short: "End a session (default: the current one)",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runSessionEnd,
}

func init() {
	sessionCmd.AddCommand(sessionNewCmd)
	sessionCmd.AddCommand(sessionShowCmd)
	sessionCmd.AddCommand(sessionListCmd)
	sessionCmd.AddCommand(sessionEndCmd)
}

func runSessionNew(cmd *cobra.Command, args []string) error {
	if _, err := requireLogin(); err != nil {
		return err
	}
	s, err := svcs.Chat.NewSession(context.Background())
	if err != nil {
		return err
	}
	fmt.Printf("Started session %s.\n", s.SessionID)
	return nil
}

func runSessionShow(cmd *cobra.Command, args []string) error {
	if _, err := requireLogin(); err != nil {
		return err
	}
	s, err := svcs.Sessions.Current(context.Background())
	if err != nil {
		return err
	}
	printSession(*s, true)
	return nil
}

func runSessionList(cmd *cobra.Command, args []string) error {
	id, err := requireLogin()
	if err != nil {
		return err
	}
	sessions, err := svcs.Sessions.List(context.Background())
	if err != nil {
		return err
	}
	if len(sessions) == 0 {
		fmt.Println("No sessions found.")
		return nil
	}

	fmt.Printf("Sessions (%d):\n\n", len(sessions))
	for _, s := range sessions {
		printSession(s, s.SessionID == id.SessionID)
	}
	return nil
}

func runSessionEnd(cmd *cobra.Command, args []string) error {
	if _, err := requireLogin(); err != nil {
		return err
	}
	var target string
	if len(args) > 0 {
		target = args[0]
	}
	s, err := svcs.Sessions.End(context.Background(), target)
	if err != nil {
		return err
	}
	fmt.Printf("Ended session %s.\n", s.SessionID)
	return nil
}

func printSession(s models.Session, current bool) {
	mark := ""
	if current {
		mark = " [current]"
	}
	status := "active"
	if !s.Active() {
		status = "ended " + humanize.Time(*s.EndedAt)
	}
	fmt.Printf("- %s%s\n", s.SessionID, mark)
	fmt.Printf("  started %s, %s\n", humanize.Time(s.StartedAt), status)
}
