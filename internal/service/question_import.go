package service

import (
	"errors"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/stemsi/eduportal-backend/internal/model"
	"github.com/xuri/excelize/v2"
)

// ErrImportUnreadable is returned when the upload is not a readable workbook.
var ErrImportUnreadable = errors.New("spreadsheet could not be read")

// ImportError lists the rows of an uploaded sheet that failed validation,
// keyed by their 1-based spreadsheet row number.
type ImportError struct {
	Rows map[int]string
}

func (e *ImportError) Error() string {
	nums := make([]int, 0, len(e.Rows))
	for n := range e.Rows {
		nums = append(nums, n)
	}
	sort.Ints(nums)
	parts := make([]string, 0, len(nums))
	for _, n := range nums {
		parts = append(parts, fmt.Sprintf("row %d: %s", n, e.Rows[n]))
	}
	return "invalid rows: " + strings.Join(parts, "; ")
}

// Fields renders the row errors for a response body.
func (e *ImportError) Fields() map[string]string {
	out := make(map[string]string, len(e.Rows))
	for n, msg := range e.Rows {
		out["row "+strconv.Itoa(n)] = msg
	}
	return out
}

// optionColumns are the sheet headers mapped to option keys.
var optionColumns = []struct{ header, key string }{
	{"option_a", "A"}, {"option_b", "B"}, {"option_c", "C"}, {"option_d", "D"}, {"option_e", "E"},
}

// ParseQuestionSheet reads the first worksheet of an .xlsx upload. The first
// row is a header naming the columns type, text, option_a..option_e and
// correct in any order; every following non-empty row is one question.
func ParseQuestionSheet(r io.Reader) ([]model.AddQuestionRequest, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrImportUnreadable, err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, ErrImportUnreadable
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrImportUnreadable, err)
	}
	if len(rows) == 0 {
		return nil, &ImportError{Rows: map[int]string{1: "header row is missing"}}
	}

	cols := make(map[string]int)
	for i, h := range rows[0] {
		cols[normalizeHeader(h)] = i
	}
	for _, required := range []string{"type", "text", "correct"} {
		if _, ok := cols[required]; !ok {
			return nil, &ImportError{Rows: map[int]string{1: "missing column " + required}}
		}
	}

	cell := func(row []string, name string) string {
		i, ok := cols[name]
		if !ok || i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	var (
		reqs    []model.AddQuestionRequest
		invalid = map[int]string{}
	)
	for i, row := range rows[1:] {
		rowNum := i + 2
		if isBlankRow(row) {
			continue
		}

		req := model.AddQuestionRequest{
			Text:     cell(row, "text"),
			Type:     parseQuestionType(cell(row, "type")),
			OrderNum: len(reqs),
		}
		for _, oc := range optionColumns {
			if v := cell(row, oc.header); v != "" {
				if req.Options == nil {
					req.Options = make(map[string]string)
				}
				req.Options[oc.key] = v
			}
		}
		req.CorrectAnswer = cell(row, "correct")
		if req.Type == model.QuestionTypeSingleChoice {
			req.CorrectAnswer = strings.ToUpper(req.CorrectAnswer)
		}

		if req.Text == "" {
			invalid[rowNum] = "text is empty"
			continue
		}
		if err := ValidateQuestion(&req); err != nil {
			invalid[rowNum] = err.Error()
			continue
		}
		reqs = append(reqs, req)
	}

	if len(invalid) > 0 {
		return nil, &ImportError{Rows: invalid}
	}
	if len(reqs) == 0 {
		return nil, &ImportError{Rows: map[int]string{2: "sheet contains no questions"}}
	}
	return reqs, nil
}

func normalizeHeader(h string) string {
	h = strings.ToLower(strings.TrimSpace(h))
	return strings.NewReplacer(" ", "_", "-", "_").Replace(h)
}

func parseQuestionType(v string) model.QuestionType {
	switch normalizeHeader(v) {
	case "single_choice", "choice", "mcq":
		return model.QuestionTypeSingleChoice
	case "free_text", "text", "essay":
		return model.QuestionTypeFreeText
	default:
		return model.QuestionType(v)
	}
}

func isBlankRow(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

func itoa(n int) string { return strconv.Itoa(n) }
