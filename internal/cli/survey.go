package cli

import (
	"context"
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/raphaelgruber/companion/internal/tui"
	"github.com/spf13/cobra"
)

var (
	surveyType    string
	surveySession string
)

var surveyCmd = &cobra.Command{
	Use:   "survey",
	Short: "Checkpoint surveys",
	Long: `Answer checkpoint surveys and review past answers.

Completing a survey starts a new chat session.`,
}

var surveyTakeCmd = &cobra.Command{
	Use:   "take",
	Short: "Answer a checkpoint survey",
	Long: `Answer a checkpoint survey one question at a time.

Examples:
  companion survey take
  companion survey take --type final`,
	Args: cobra.NoArgs,
	RunE: runSurveyTake,
}

var surveyResponsesCmd = &cobra.Command{
	Use:   "responses",
	Short: "List your past survey answers",
	Args:  cobra.NoArgs,
	RunE:  runSurveyResponses,
}

func init() {
	surveyTakeCmd.Flags().StringVarP(&surveyType, "type", "t", "", "survey type (default mid_checkpoint)")
	surveyTakeCmd.Flags().StringVar(&surveySession, "session", "", "session the answers belong to (default: current)")
	surveyResponsesCmd.Flags().StringVarP(&surveyType, "type", "t", "", "filter by survey type")

	surveyCmd.AddCommand(surveyTakeCmd)
	surveyCmd.AddCommand(surveyResponsesCmd)
}

func runSurveyTake(cmd *cobra.Command, args []string) error {
	if _, err := requireLogin(); err != nil {
		return err
	}
	sv, err := svcs.Survey.Load(context.Background(), surveyType, surveySession)
	if err != nil {
		return err
	}

	newSession, err := tui.RunSurvey(svcs.Survey, sv)
	if err != nil {
		return err
	}
	if newSession == "" {
		fmt.Println("Survey cancelled.")
		return nil
	}
	fmt.Printf("Thank you! A new session has started (%s).\n", newSession)
	return nil
}

func runSurveyResponses(cmd *cobra.Command, args []string) error {
	if _, err := requireLogin(); err != nil {
		return err
	}
	recs, err := svcs.Survey.Responses(context.Background(), surveyType)
	if err != nil {
		return err
	}
	if len(recs) == 0 {
		fmt.Println("No survey responses found.")
		return nil
	}

	fmt.Printf("Survey responses (%d):\n\n", len(recs))
	for _, r := range recs {
		fmt.Printf("- [%s] %s\n", r.SurveyType, r.QuestionText)
		fmt.Printf("  %v (%s)\n", r.ResponseValue["value"], humanize.Time(r.CreatedAt))
	}
	return nil
}
