package service

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stemsi/eduportal-backend/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func buildSheet(t *testing.T, rows [][]interface{}) *bytes.Buffer {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()

	sheet := f.GetSheetName(0)
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		r := row
		require.NoError(t, f.SetSheetRow(sheet, cell, &r))
	}
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	return buf
}

func TestParseQuestionSheet(t *testing.T) {
	buf := buildSheet(t, [][]interface{}{
		{"Type", "Text", "Option A", "Option B", "Option C", "Option D", "Option E", "Correct"},
		{"single_choice", "2 + 2 = ?", "3", "4", "5", "", "", "b"},
		{},
		{"free_text", "Capital of France?", "", "", "", "", "", "Paris"},
	})

	reqs, err := ParseQuestionSheet(buf)
	require.NoError(t, err)
	require.Len(t, reqs, 2)

	assert.Equal(t, model.QuestionTypeSingleChoice, reqs[0].Type)
	assert.Equal(t, "2 + 2 = ?", reqs[0].Text)
	assert.Equal(t, map[string]string{"A": "3", "B": "4", "C": "5"}, reqs[0].Options)
	assert.Equal(t, "B", reqs[0].CorrectAnswer)
	assert.Equal(t, 0, reqs[0].OrderNum)

	assert.Equal(t, model.QuestionTypeFreeText, reqs[1].Type)
	assert.Nil(t, reqs[1].Options)
	assert.Equal(t, "Paris", reqs[1].CorrectAnswer)
	assert.Equal(t, 1, reqs[1].OrderNum)
}

func TestParseQuestionSheetReportsRows(t *testing.T) {
	buf := buildSheet(t, [][]interface{}{
		{"type", "text", "option_a", "option_b", "correct"},
		{"single_choice", "Pick one", "x", "y", "C"},
		{"single_choice", "", "x", "y", "A"},
		{"essay", "Explain", "", "", ""},
		{"matching", "Pair them", "", "", ""},
	})

	_, err := ParseQuestionSheet(buf)
	var ie *ImportError
	require.ErrorAs(t, err, &ie)
	assert.Len(t, ie.Rows, 3)
	assert.Contains(t, ie.Rows[2], "correct_answer")
	assert.Equal(t, "text is empty", ie.Rows[3])
	assert.Contains(t, ie.Rows[5], "unsupported question type")
	assert.Contains(t, ie.Fields(), "row 2")
}

func TestParseQuestionSheetMissingColumn(t *testing.T) {
	buf := buildSheet(t, [][]interface{}{
		{"type", "text"},
		{"free_text", "Anything"},
	})

	_, err := ParseQuestionSheet(buf)
	var ie *ImportError
	require.ErrorAs(t, err, &ie)
	assert.Equal(t, "missing column correct", ie.Rows[1])
}

func TestParseQuestionSheetUnreadable(t *testing.T) {
	_, err := ParseQuestionSheet(strings.NewReader("definitely,not,xlsx"))
	assert.ErrorIs(t, err, ErrImportUnreadable)
}

func TestValidateQuestion(t *testing.T) {
	tests := []struct {
		name  string
		req   model.AddQuestionRequest
		field string
	}{
		{
			name: "valid choice",
			req:  model.AddQuestionRequest{Type: model.QuestionTypeSingleChoice, Options: map[string]string{"A": "1", "B": "2"}, CorrectAnswer: " A "},
		},
		{
			name:  "one option",
			req:   model.AddQuestionRequest{Type: model.QuestionTypeSingleChoice, Options: map[string]string{"A": "1"}, CorrectAnswer: "A"},
			field: "options",
		},
		{
			name:  "key not an option",
			req:   model.AddQuestionRequest{Type: model.QuestionTypeSingleChoice, Options: map[string]string{"A": "1", "B": "2"}, CorrectAnswer: "a"},
			field: "correct_answer",
		},
		{
			name: "free text without key",
			req:  model.AddQuestionRequest{Type: model.QuestionTypeFreeText},
		},
		{
			name:  "free text with options",
			req:   model.AddQuestionRequest{Type: model.QuestionTypeFreeText, Options: map[string]string{"A": "1"}},
			field: "options",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateQuestion(&tt.req)
			if tt.field == "" {
				assert.NoError(t, err)
				return
			}
			var fe *FieldError
			require.ErrorAs(t, err, &fe)
			assert.Equal(t, tt.field, fe.Field)
		})
	}
}
