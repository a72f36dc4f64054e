package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Score is either unscored or a computed count of correct answers.
// The zero value is unscored.
type Score struct {
	value  int
	scored bool
}

// Unscored is the score of an attempt that has not been graded yet.
func Unscored() Score { return Score{} }

// Scored wraps a computed score.
func Scored(n int) Score { return Score{value: n, scored: true} }

// Value returns the score and whether it has been computed.
func (s Score) Value() (int, bool) { return s.value, s.scored }

// IsScored reports whether the score has been computed.
func (s Score) IsScored() bool { return s.scored }

func (s Score) String() string {
	if !s.scored {
		return "unscored"
	}
	return fmt.Sprintf("%d", s.value)
}

// MarshalJSON encodes unscored as null and scored as a plain integer.
func (s Score) MarshalJSON() ([]byte, error) {
	if !s.scored {
		return []byte("null"), nil
	}
	return json.Marshal(s.value)
}

// UnmarshalJSON accepts null, an integer, or the legacy -1 sentinel for unscored.
func (s *Score) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		*s = Unscored()
		return nil
	}
	var n int
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("decode score: %w", err)
	}
	if n < 0 {
		*s = Unscored()
		return nil
	}
	*s = Scored(n)
	return nil
}

// Grade counts answers whose selected option matches the answer key at the
// answer's question index. Unanswered or out-of-range questions count zero.
func Grade(questions []Question, answers []Answer) int {
	score := 0
	for _, answer := range answers {
		if answer.QuestionIndex < 0 || answer.QuestionIndex >= len(questions) {
			continue
		}
		if answer.SelectedOption == questions[answer.QuestionIndex].CorrectOption {
			score++
		}
	}
	return score
}
