package domain

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"
)

func twoQuestions() []Question {
	return []Question{
		{Text: "first", Options: []Option{{Text: "A"}, {Text: "B"}}, CorrectOption: 0},
		{Text: "second", Options: []Option{{Text: "A"}, {Text: "B"}}, CorrectOption: 1},
	}
}

func TestGradeCountsMatchingAnswers(t *testing.T) {
	cases := []struct {
		name    string
		answers []Answer
		want    int
	}{
		{"all correct", []Answer{{QuestionIndex: 0, SelectedOption: 0}, {QuestionIndex: 1, SelectedOption: 1}}, 2},
		{"all wrong", []Answer{{QuestionIndex: 0, SelectedOption: 1}, {QuestionIndex: 1, SelectedOption: 0}}, 0},
		{"one unanswered", []Answer{{QuestionIndex: 0, SelectedOption: 0}}, 1},
		{"out of range index", []Answer{{QuestionIndex: 7, SelectedOption: 0}}, 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Grade(twoQuestions(), tc.answers); got != tc.want {
				t.Fatalf("expected %d, got %d", tc.want, got)
			}
		})
	}
}

func TestMergeOverwritesAndSorts(t *testing.T) {
	var a Attempt
	t0 := time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC)
	for i, idx := range []int{3, 0, 2, 1, 2} {
		a.Merge(Answer{QuestionIndex: idx, SelectedOption: i}, t0.Add(time.Duration(i)*time.Second))
	}
	if len(a.Answers) != 4 {
		t.Fatalf("expected 4 answers, got %d", len(a.Answers))
	}
	for i := 1; i < len(a.Answers); i++ {
		if a.Answers[i-1].QuestionIndex >= a.Answers[i].QuestionIndex {
			t.Fatalf("answers not strictly increasing: %+v", a.Answers)
		}
	}
	if a.Answers[2].SelectedOption != 4 {
		t.Fatalf("expected index 2 overwritten with 4, got %d", a.Answers[2].SelectedOption)
	}
	if !a.SubmittedAt.Equal(t0.Add(4 * time.Second)) {
		t.Fatalf("expected submittedAt of last merge, got %v", a.SubmittedAt)
	}
}

func TestScoreJSON(t *testing.T) {
	data, err := json.Marshal(struct {
		A Score `json:"a"`
		B Score `json:"b"`
	}{Unscored(), Scored(0)})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(data) != `{"a":null,"b":0}` {
		t.Fatalf("unexpected encoding %s", data)
	}

	var legacy struct {
		S Score `json:"s"`
	}
	if err := json.Unmarshal([]byte(`{"s":-1}`), &legacy); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if legacy.S.IsScored() {
		t.Fatalf("expected -1 to decode as unscored")
	}
}

func TestCheckPublishableOrder(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	q := Quiz{Duration: 3, ValidTill: now.Add(-time.Hour)}
	if err := q.CheckPublishable(now); !errors.Is(err, ErrNoQuestions) {
		t.Fatalf("expected no questions first, got %v", err)
	}
	q.Questions = twoQuestions()
	err := q.CheckPublishable(now)
	if !errors.Is(err, ErrValidation) || !strings.Contains(err.Error(), "duration") {
		t.Fatalf("expected duration error, got %v", err)
	}
	q.Duration = 180
	if err := q.CheckPublishable(now); !errors.Is(err, ErrDueDatePassed) {
		t.Fatalf("expected due date error, got %v", err)
	}
	q.ValidTill = now
	if err := q.CheckPublishable(now); !errors.Is(err, ErrDueDatePassed) {
		t.Fatalf("validTill equal to now must not publish, got %v", err)
	}
	q.ValidTill = now.Add(time.Minute)
	if err := q.CheckPublishable(now); err != nil {
		t.Fatalf("expected publishable, got %v", err)
	}
}

func TestValidateQuestion(t *testing.T) {
	bad := []Question{
		{Text: "", Options: []Option{{Text: "a"}, {Text: "b"}}},
		{Text: "q", Options: []Option{{Text: "a"}}},
		{Text: "q", Options: []Option{{Text: "a"}, {Text: "b"}, {Text: "c"}, {Text: "d"}, {Text: "e"}, {Text: "f"}}},
		{Text: "q", Options: []Option{{Text: "a"}, {Text: "b"}}, CorrectOption: 2},
		{Text: "q", Options: []Option{{Text: "a"}, {Text: "b"}}, CorrectOption: -1},
	}
	for i, q := range bad {
		if err := ValidateQuestion(i, q); !errors.Is(err, ErrValidation) {
			t.Fatalf("case %d: expected validation error, got %v", i, err)
		}
	}
	if err := ValidateQuestion(0, twoQuestions()[1]); err != nil {
		t.Fatalf("expected valid question, got %v", err)
	}
}

func TestAttemptWindow(t *testing.T) {
	due := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	q := Quiz{IsPublished: true, ValidTill: due}
	grace := DefaultGraceWindow

	if got := AttemptWindow(Quiz{ValidTill: due}, nil, due.Add(-time.Hour), grace); got != WindowUnavailable {
		t.Fatalf("unpublished: got %s", got)
	}
	if got := AttemptWindow(q, nil, due, grace); got != WindowOpen {
		t.Fatalf("at due date: got %s", got)
	}
	if got := AttemptWindow(q, nil, due.Add(time.Second), grace); got != WindowClosed {
		t.Fatalf("late without attempt: got %s", got)
	}
	recent := &Attempt{SubmittedAt: due.Add(-time.Minute)}
	if got := AttemptWindow(q, recent, due.Add(2*time.Minute), grace); got != WindowOpen {
		t.Fatalf("within grace: got %s", got)
	}
	if got := AttemptWindow(q, recent, due.Add(5*time.Minute), grace); got != WindowClosed {
		t.Fatalf("grace elapsed since submission: got %s", got)
	}
	late := &Attempt{SubmittedAt: due.Add(4 * time.Minute)}
	if got := AttemptWindow(q, late, due.Add(6*time.Minute), grace); got != WindowClosed {
		t.Fatalf("past due plus grace: got %s", got)
	}
	// a stale client timestamp does not shorten the window
	stale := &Attempt{SubmittedAt: due.Add(-time.Hour), LastSavedAt: due.Add(-time.Minute)}
	if got := AttemptWindow(q, stale, due.Add(2*time.Minute), grace); got != WindowOpen {
		t.Fatalf("server save time within grace: got %s", got)
	}
}

func TestBuildAnalyticsFilterAndSort(t *testing.T) {
	q := Quiz{
		ID:        "quiz-1",
		Questions: append(twoQuestions(), twoQuestions()...),
		Attempts: []Attempt{
			{StudentID: "s1", Score: Scored(1)},
			{StudentID: "s2", Score: Scored(4)},
			{StudentID: "s3", Score: Scored(2)},
			{StudentID: "s4", Score: Unscored()},
		},
	}
	users := map[string]User{
		"s1": {ID: "s1", Name: "Carol", Email: "carol@example.com"},
		"s2": {ID: "s2", Name: "alice", Email: "alice@example.com"},
		"s3": {ID: "s3", Name: "Bob", Email: "bob@example.com"},
		"s4": {ID: "s4", Name: "Dave", Email: "dave@example.com"},
	}
	now := time.Now()

	all := BuildAnalytics(q, users, AnalyticsQuery{Sort: SortScoreDesc}, now)
	if len(all.Attempts) != 4 {
		t.Fatalf("expected 4 rows, got %d", len(all.Attempts))
	}
	if all.Attempts[0].Student.ID != "s2" || all.Attempts[3].Student.ID != "s4" {
		t.Fatalf("unexpected score order: %+v", all.Attempts)
	}
	if *all.Summary.MaxScore != 4 || *all.Summary.MinScore != 1 || all.Summary.Scored != 3 {
		t.Fatalf("unexpected summary %+v", all.Summary)
	}

	mid := BuildAnalytics(q, users, AnalyticsQuery{Bucket: Bucket50To75}, now)
	if len(mid.Attempts) != 1 || mid.Attempts[0].Student.ID != "s3" {
		t.Fatalf("expected only Bob in 50-75, got %+v", mid.Attempts)
	}

	byName := BuildAnalytics(q, users, AnalyticsQuery{Sort: SortNameAsc}, now)
	if byName.Attempts[0].Student.Name != "alice" || byName.Attempts[3].Student.Name != "Dave" {
		t.Fatalf("unexpected name order: %+v", byName.Attempts)
	}

	search := BuildAnalytics(q, users, AnalyticsQuery{Search: "BOB@"}, now)
	if len(search.Attempts) != 1 || search.Attempts[0].Student.ID != "s3" {
		t.Fatalf("unexpected search result: %+v", search.Attempts)
	}
}

func TestStudentViewHidesKeyAndOtherAttempts(t *testing.T) {
	q := Quiz{
		IsPublished: true,
		ValidTill:   time.Now().Add(time.Hour),
		Questions:   twoQuestions(),
		Attempts:    []Attempt{{StudentID: "s1"}, {StudentID: "s2"}},
	}
	view := q.StudentView("s2", time.Now(), DefaultGraceWindow)
	if view.Attempt == nil || view.Attempt.StudentID != "s2" {
		t.Fatalf("expected own attempt, got %+v", view.Attempt)
	}
	data, _ := json.Marshal(view)
	if strings.Contains(string(data), "correctOption") {
		t.Fatalf("student view leaked answer key: %s", data)
	}
	if view.Window != WindowOpen {
		t.Fatalf("expected open window, got %s", view.Window)
	}
}
