package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/raphaelgruber/companion/internal/models"
	"github.com/raphaelgruber/companion/internal/tui"
	"github.com/spf13/cobra"
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Open the interactive chat",
	Long: `Open the full-screen chat. Without a stored login the login screen is
shown first.

Keys:
  enter   send message
  ↑/↓     pick one of your messages
  ctrl+s  save the picked message as a memory (user-controlled conditions)
  ctrl+r  memory panel
  ctrl+n  new session
  ctrl+k  checkpoint survey
  ctrl+d  developer panel
  ctrl+l  log out
  ctrl+c  quit`,
	Args: cobra.NoArgs,
	RunE: runChat,
}

var sendCmd = &cobra.Command{
	Use:   "send <message>",
	Short: "Send one message and print the reply",
	Long: `Send a single message in the current session and print the companion's reply.

Examples:
  companion send "I started learning the cello this week"`,
	Args: cobra.MinimumNArgs(1),
	RunE: runSend,
}

func runChat(cmd *cobra.Command, args []string) error {
	return tui.Run(tui.Deps{
		Services:  svcs,
		Session:   sess,
		Collector: collector,
		Logger:    logger,
	})
}

func runSend(cmd *cobra.Command, args []string) error {
	if _, err := requireLogin(); err != nil {
		return err
	}
	ctx := context.Background()
	chat := svcs.Chat

	if err := chat.Load(ctx); err != nil {
		return err
	}
	before := len(chat.Transcript())

	// The reply or the apology is printed either way.
	sendErr := chat.Send(ctx, strings.Join(args, " "))

	for _, m := range chat.Transcript()[before:] {
		if m.Role == models.RoleAssistant {
			fmt.Println(m.Content)
		}
	}
	if verbose && sendErr != nil {
		fmt.Printf("\n(%v)\n", sendErr)
	}

	if n := chat.CandidateCount(); n > 0 {
		fmt.Printf("\nMemory (%d)", n)
		if chat.CanSaveMessages() {
			fmt.Print(" - review with 'companion memory candidates'")
		}
		fmt.Println()
	}
	return nil
}
