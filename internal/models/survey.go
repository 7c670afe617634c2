package models

import (
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"
)

// QuestionType is the kind of answer a survey question expects.
type QuestionType string

const (
	QuestionFreeResponse QuestionType = "free_response"
	QuestionMCQ          QuestionType = "mcq"
	QuestionRating       QuestionType = "rating"
	QuestionLikert       QuestionType = "likert"
	QuestionYesNo        QuestionType = "yes_no"
)

// DefaultSurveyType is used when no survey type is requested.
const DefaultSurveyType = "mid_checkpoint"

// Rating bounds used when a rating question does not declare its own.
const (
	DefaultMinRating = 1
	DefaultMaxRating = 5
)

// Yes/no answer values.
const (
	AnswerYes = "Yes"
	AnswerNo  = "No"
)

// SurveyQuestion is one question of a survey template.
type SurveyQuestion struct {
	QuestionID   string       `json:"question_id"`
	QuestionText string       `json:"question_text"`
	QuestionType QuestionType `json:"question_type"`
	Options      []string     `json:"options,omitempty"`
	MinRating    *int         `json:"min_rating,omitempty"`
	MaxRating    *int         `json:"max_rating,omitempty"`
	Required     bool         `json:"required"`
}

// RatingRange returns the inclusive rating bounds of q.
func (q SurveyQuestion) RatingRange() (int, int) {
	lo, hi := DefaultMinRating, DefaultMaxRating
	if q.MinRating != nil && *q.MinRating != 0 {
		lo = *q.MinRating
	}
	if q.MaxRating != nil && *q.MaxRating != 0 {
		hi = *q.MaxRating
	}
	return lo, hi
}

// Choices returns the selectable values of q, or nil for free-form questions.
func (q SurveyQuestion) Choices() []string {
	switch q.QuestionType {
	case QuestionMCQ, QuestionLikert:
		return q.Options
	case QuestionYesNo:
		return []string{AnswerYes, AnswerNo}
	case QuestionRating:
		lo, hi := q.RatingRange()
		var out []string
		for i := lo; i <= hi; i++ {
			out = append(out, strconv.Itoa(i))
		}
		return out
	}
	return nil
}

// SurveyTemplate is an ordered list of questions for one survey type.
type SurveyTemplate struct {
	SurveyType string           `json:"survey_type"`
	Questions  []SurveyQuestion `json:"questions"`
}

// Answer is a typed response to a single question. Rating answers carry
// Rating; all other types carry Text.
type Answer struct {
	Type   QuestionType
	Text   string
	Rating *int
}

// EmptyAnswer returns the initial answer for q: nil for ratings, "" otherwise.
func EmptyAnswer(q SurveyQuestion) Answer {
	return Answer{Type: q.QuestionType}
}

// Empty reports whether the answer is still at its initial value.
func (a Answer) Empty() bool {
	if a.Type == QuestionRating {
		return a.Rating == nil
	}
	return a.Text == ""
}

// Value returns the wire representation of the answer.
func (a Answer) Value() any {
	if a.Type == QuestionRating {
		if a.Rating == nil {
			return nil
		}
		return *a.Rating
	}
	return a.Text
}

func (a Answer) String() string {
	if a.Type == QuestionRating {
		if a.Rating == nil {
			return ""
		}
		return strconv.Itoa(*a.Rating)
	}
	return a.Text
}

// ParseAnswer converts raw user input into an Answer for q.
// Empty input yields the empty answer.
func ParseAnswer(q SurveyQuestion, raw string) (Answer, error) {
	a := EmptyAnswer(q)
	if q.QuestionType != QuestionFreeResponse {
		raw = strings.TrimSpace(raw)
	}
	if raw == "" {
		return a, nil
	}

	switch q.QuestionType {
	case QuestionRating:
		n, err := strconv.Atoi(raw)
		if err != nil {
			return a, fmt.Errorf("rating must be a number: %q", raw)
		}
		lo, hi := q.RatingRange()
		if n < lo || n > hi {
			return a, fmt.Errorf("rating must be between %d and %d", lo, hi)
		}
		a.Rating = &n
	case QuestionYesNo:
		switch strings.ToLower(raw) {
		case "y", "yes":
			a.Text = AnswerYes
		case "n", "no":
			a.Text = AnswerNo
		default:
			return a, fmt.Errorf("answer must be %s or %s", AnswerYes, AnswerNo)
		}
	case QuestionMCQ, QuestionLikert:
		if slices.Contains(q.Options, raw) {
			a.Text = raw
			break
		}
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > len(q.Options) {
			return a, fmt.Errorf("answer must be one of: %s", strings.Join(q.Options, ", "))
		}
		a.Text = q.Options[n-1]
	default:
		a.Text = raw
	}
	return a, nil
}

// ResponseValue is the value stored for one answered question.
type ResponseValue struct {
	Value any          `json:"value"`
	Type  QuestionType `json:"type"`
}

// SurveyResponseItem pairs a question with its answer.
type SurveyResponseItem struct {
	QuestionID    string        `json:"question_id"`
	ResponseValue ResponseValue `json:"response_value"`
}

// SurveySubmission is the payload for POST /survey/submit.
type SurveySubmission struct {
	UserID     string               `json:"user_id"`
	SessionID  *string              `json:"session_id"`
	SurveyType string               `json:"survey_type"`
	Responses  []SurveyResponseItem `json:"responses"`
}

// SurveyResponseRecord is a stored answer as returned by the backend.
type SurveyResponseRecord struct {
	ResponseID    string         `json:"response_id"`
	UserID        string         `json:"user_id"`
	SessionID     *string        `json:"session_id,omitempty"`
	SurveyType    string         `json:"survey_type"`
	QuestionID    string         `json:"question_id"`
	QuestionText  string         `json:"question_text"`
	ResponseType  string         `json:"response_type"`
	ResponseValue map[string]any `json:"response_value"`
	CreatedAt     time.Time      `json:"created_at"`
}

// SurveySubmitResult is returned by POST /survey/submit.
type SurveySubmitResult struct {
	Message       string                 `json:"message"`
	ResponseCount int                    `json:"response_count"`
	Responses     []SurveyResponseRecord `json:"responses"`
}
