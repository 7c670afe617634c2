package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmptyAnswer(t *testing.T) {
	rating := EmptyAnswer(SurveyQuestion{QuestionType: QuestionRating})
	assert.True(t, rating.Empty())
	assert.Nil(t, rating.Value())

	free := EmptyAnswer(SurveyQuestion{QuestionType: QuestionFreeResponse})
	assert.True(t, free.Empty())
	assert.Equal(t, "", free.Value())
}

func TestParseAnswer(t *testing.T) {
	likert := SurveyQuestion{
		QuestionID:   "privacy_1",
		QuestionType: QuestionLikert,
		Options:      []string{"Disagree", "Neutral", "Agree"},
	}
	rating := SurveyQuestion{
		QuestionID:   "trust_1",
		QuestionType: QuestionRating,
		MinRating:    Ptr(1),
		MaxRating:    Ptr(7),
	}
	numeric := SurveyQuestion{
		QuestionID:   "usage_1",
		QuestionType: QuestionMCQ,
		Options:      []string{"5", "4", "3"},
	}

	tests := []struct {
		name    string
		q       SurveyQuestion
		raw     string
		want    any
		wantErr bool
	}{
		{"free text kept verbatim", SurveyQuestion{QuestionType: QuestionFreeResponse}, "  hi there ", "  hi there ", false},
		{"rating in range", rating, "7", 7, false},
		{"rating out of range", rating, "8", nil, true},
		{"rating not a number", rating, "seven", nil, true},
		{"rating default bounds", SurveyQuestion{QuestionType: QuestionRating}, "6", nil, true},
		{"likert by option", likert, "Neutral", "Neutral", false},
		{"likert by index", likert, "3", "Agree", false},
		{"likert unknown", likert, "Maybe", "", true},
		{"numeric option by value", numeric, "3", "3", false},
		{"numeric option by index", numeric, "1", "5", false},
		{"numeric option out of range", numeric, "9", "", true},
		{"yes no short", SurveyQuestion{QuestionType: QuestionYesNo}, "y", AnswerYes, false},
		{"yes no word", SurveyQuestion{QuestionType: QuestionYesNo}, "NO", AnswerNo, false},
		{"yes no invalid", SurveyQuestion{QuestionType: QuestionYesNo}, "perhaps", "", true},
		{"empty input", rating, "   ", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, err := ParseAnswer(tt.q, tt.raw)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, a.Value())
		})
	}
}

func TestQuestionChoices(t *testing.T) {
	assert.Equal(t, []string{"1", "2", "3", "4", "5"}, SurveyQuestion{QuestionType: QuestionRating}.Choices())
	assert.Equal(t, []string{AnswerYes, AnswerNo}, SurveyQuestion{QuestionType: QuestionYesNo}.Choices())
	assert.Nil(t, SurveyQuestion{QuestionType: QuestionFreeResponse}.Choices())
}
