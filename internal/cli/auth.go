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

var (
	authUsername  string
	authPassword  string
	authCondition string
)

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Log in and start a new session",
	Long: `Log in with an existing account. Every login starts a fresh chat session.

Examples:
  companion login
  companion login -u ada`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runAuth(service.ModeLogin)
	},
}

var registerCmd = &cobra.Command{
	Use:   "register",
	Short: "Create an account and start a new session",
	Long: `Create an account. The study condition is normally assigned by the
server; --condition requests a specific one.

Conditions: SESSION_AUTO, SESSION_USER, PERSISTENT_AUTO, PERSISTENT_USER

Examples:
  companion register -u ada
  companion register -u ada --condition PERSISTENT_USER`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runAuth(service.ModeRegister)
	},
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Forget the stored login",
	Args:  cobra.NoArgs,
	RunE:  runLogout,
}

var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show the stored login and condition",
	Args:  cobra.NoArgs,
	RunE:  runWhoami,
}

func init() {
	for _, c := range []*cobra.Command{loginCmd, registerCmd} {
		c.Flags().StringVarP(&authUsername, "username", "u", "", "username (prompted when empty)")
		c.Flags().StringVar(&authPassword, "password", "", "password (prompted when empty)")
	}
	registerCmd.Flags().StringVar(&authCondition, "condition", "", "requested study condition")
}

func runAuth(mode service.AuthMode) error {
	var err error
	username := authUsername
	if username == "" {
		if username, err = promptLine("Username: "); err != nil {
			return err
		}
	}
	password := authPassword
	if password == "" {
		if password, err = promptPassword("Password: "); err != nil {
			return err
		}
	}

	user, err := svcs.Auth.Submit(context.Background(), service.Credentials{
		Mode:      mode,
		Username:  username,
		Password:  password,
		Condition: strings.ToUpper(authCondition),
	})
	if err != nil {
		var fe *service.FormError
		if errors.As(err, &fe) {
			return errors.New(fe.Message)
		}
		return err
	}

	verb := "Logged in"
	if mode == service.ModeRegister {
		verb = "Registered"
	}
	fmt.Printf("%s as %s.\n", verb, user.Username)
	fmt.Printf("Condition: %s\n", user.Condition().Label())
	fmt.Printf("  %s\n", models.BannerFor(user.ConditionID))
	if verbose {
		id := sess.Identity()
		fmt.Printf("User ID:    %s\nSession ID: %s\n", id.UserID, id.SessionID)
	}
	return nil
}

func runLogout(cmd *cobra.Command, args []string) error {
	if err := svcs.Auth.Logout(); err != nil {
		return err
	}
	fmt.Println("Logged out.")
	return nil
}

func runWhoami(cmd *cobra.Command, args []string) error {
	st := sess.Snapshot()
	if !sess.LoggedIn() {
		return errNotLoggedIn
	}

	fmt.Printf("Username:   %s\n", st.Username)
	fmt.Printf("User ID:    %s\n", st.UserID)
	fmt.Printf("Session ID: %s\n", st.SessionID)
	fmt.Printf("Condition:  %s (%s)\n", st.ConditionID, sess.Condition().Label())
	if st.DeveloperMode || cfg.Development() {
		fmt.Println("Developer mode: unlocked")
	}
	return nil
}
