package service

import (
	"maps"
	"slices"
	"strings"

	"github.com/google/uuid"
	"github.com/stemsi/eduportal-backend/internal/model"
)

// Score grades answers against the key for every question of the attempt.
// A blank or missing answer is unanswered and counts as wrong. Questions
// without a key entry, or free-text questions without a stored answer, can
// never be correct.
func Score(order []uuid.UUID, key model.AnswerKey, answers map[string]string) model.AttemptResult {
	res := model.AttemptResult{TotalQuestions: len(order)}
	for _, qid := range order {
		id := qid.String()
		given := answers[id]
		if strings.TrimSpace(given) == "" {
			res.UnansweredCount++
			res.WrongCount++
			continue
		}
		entry, ok := key[id]
		if ok && isCorrect(entry, given) {
			res.CorrectCount++
		} else {
			res.WrongCount++
		}
	}
	res.Score = res.CorrectCount
	return res
}

func isCorrect(entry model.AnswerKeyEntry, given string) bool {
	if entry.Correct == "" {
		return false
	}
	if entry.Type == model.QuestionTypeFreeText {
		return strings.EqualFold(strings.TrimSpace(given), strings.TrimSpace(entry.Correct))
	}
	// Option keys compare exactly, case included.
	return given == entry.Correct
}

// sanitizeAnswers keeps only answers for questions of the attempt, keyed by
// the canonical question id. Unknown or malformed ids are dropped. When
// several spellings name the same question the canonical one wins, then the
// first in byte order.
func sanitizeAnswers(order []uuid.UUID, raw map[string]string) map[string]string {
	allowed := make(map[uuid.UUID]struct{}, len(order))
	for _, id := range order {
		allowed[id] = struct{}{}
	}
	out := make(map[string]string, len(raw))
	for _, k := range slices.Sorted(maps.Keys(raw)) {
		id, err := uuid.Parse(k)
		if err != nil {
			continue
		}
		if _, ok := allowed[id]; !ok {
			continue
		}
		canonical := id.String()
		if _, taken := out[canonical]; taken && k != canonical {
			continue
		}
		out[canonical] = raw[k]
	}
	return out
}
