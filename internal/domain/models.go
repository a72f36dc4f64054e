package domain

import (
	"sort"
	"time"
)

// Role is the verified role claim of a caller.
type Role string

const (
	RoleInstructor Role = "instructor"
	RoleStudent    Role = "student"
)

// Actor is the authenticated caller of an operation.
type Actor struct {
	UserID string
	Role   Role
}

// User is a profile record owned by the identity collaborator.
type User struct {
	ID     string `json:"_id"`
	Name   string `json:"name"`
	Email  string `json:"email"`
	Avatar string `json:"avatar,omitempty"`
	Role   Role   `json:"role,omitempty"`
}

// Class is the roster view of a class owned by the class collaborator.
type Class struct {
	ID           string   `json:"id"`
	Title        string   `json:"title"`
	InstructorID string   `json:"instructorId"`
	StudentIDs   []string `json:"students"`
}

// HasStudent reports whether the user is enrolled in the class.
func (c Class) HasStudent(userID string) bool {
	for _, id := range c.StudentIDs {
		if id == userID {
			return true
		}
	}
	return false
}

// Option is one selectable answer of a question.
type Option struct {
	Text string `json:"text"`
}

// Question is a single-answer multiple choice question. Its position in
// Quiz.Questions is the question index that answers refer to.
type Question struct {
	Text          string   `json:"question"`
	Options       []Option `json:"options"`
	CorrectOption int      `json:"correctOption"`
}

// Answer is the option a student selected for one question.
type Answer struct {
	QuestionIndex  int    `json:"questionIndex"`
	Question       string `json:"question"`
	SelectedOption int    `json:"selectedOption"`
}

// Attempt holds one student's answers for a quiz.
type Attempt struct {
	StudentID   string    `json:"studentId"`
	Answers     []Answer  `json:"answers"`
	SubmittedAt time.Time `json:"submittedAt"`
	// LastSavedAt is the server time of the latest write. Unlike
	// SubmittedAt it is never taken from the client.
	LastSavedAt time.Time `json:"lastSavedAt"`
	Score       Score     `json:"score"`
}

// lastActivity is the server-side time used for the grace window, falling
// back to SubmittedAt for attempts stored before LastSavedAt existed.
func (a *Attempt) lastActivity() time.Time {
	if !a.LastSavedAt.IsZero() {
		return a.LastSavedAt
	}
	return a.SubmittedAt
}

// Merge records an answer: an existing answer for the same question index is
// overwritten, otherwise the answer is added. Answers stay sorted by index.
func (a *Attempt) Merge(answer Answer, submittedAt time.Time) {
	replaced := false
	for i := range a.Answers {
		if a.Answers[i].QuestionIndex == answer.QuestionIndex {
			a.Answers[i] = answer
			replaced = true
			break
		}
	}
	if !replaced {
		a.Answers = append(a.Answers, answer)
	}
	sort.SliceStable(a.Answers, func(i, j int) bool {
		return a.Answers[i].QuestionIndex < a.Answers[j].QuestionIndex
	})
	a.SubmittedAt = submittedAt
}

// Quiz is the aggregate root: question bank plus nested attempts.
type Quiz struct {
	ID          string     `json:"_id"`
	Title       string     `json:"title"`
	ClassID     string     `json:"classId"`
	CreatorID   string     `json:"creator"`
	Duration    int        `json:"duration"` // minutes
	ValidTill   time.Time  `json:"validTill"`
	Questions   []Question `json:"questions"`
	Attempts    []Attempt  `json:"attempts"`
	IsPublished bool       `json:"isPublished"`
	Version     int64      `json:"version"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

// AttemptFor returns the student's attempt, or nil if there is none.
func (q *Quiz) AttemptFor(studentID string) *Attempt {
	for i := range q.Attempts {
		if q.Attempts[i].StudentID == studentID {
			return &q.Attempts[i]
		}
	}
	return nil
}

// Clone returns a deep copy so callers can mutate without aliasing stored state.
func (q Quiz) Clone() Quiz {
	out := q
	if q.Questions != nil {
		out.Questions = make([]Question, len(q.Questions))
		for i, question := range q.Questions {
			question.Options = append([]Option(nil), question.Options...)
			out.Questions[i] = question
		}
	}
	if q.Attempts != nil {
		out.Attempts = make([]Attempt, len(q.Attempts))
		for i, attempt := range q.Attempts {
			attempt.Answers = append([]Answer(nil), attempt.Answers...)
			out.Attempts[i] = attempt
		}
	}
	return out
}

// Details is the header of a quiz shown alongside results and analytics.
type Details struct {
	Title     string    `json:"title"`
	Duration  int       `json:"duration"`
	ValidTill time.Time `json:"validTill"`
	ClassID   string    `json:"classId"`
}

// Details projects the quiz header.
func (q Quiz) Details() Details {
	return Details{Title: q.Title, Duration: q.Duration, ValidTill: q.ValidTill, ClassID: q.ClassID}
}

// QuestionView is a question without its answer key.
type QuestionView struct {
	Text    string   `json:"question"`
	Options []Option `json:"options"`
}

// StudentQuiz is what a student sees of a quiz: no answer key, only their own attempt.
type StudentQuiz struct {
	ID          string         `json:"_id"`
	Title       string         `json:"title"`
	ClassID     string         `json:"classId"`
	Duration    int            `json:"duration"`
	ValidTill   time.Time      `json:"validTill"`
	IsPublished bool           `json:"isPublished"`
	Questions   []QuestionView `json:"questions"`
	Attempt     *Attempt       `json:"attempt,omitempty"`
	Window      WindowStatus   `json:"attemptWindow"`
}

// StudentView redacts the quiz for the given student.
func (q Quiz) StudentView(studentID string, now time.Time, grace time.Duration) StudentQuiz {
	view := StudentQuiz{
		ID:          q.ID,
		Title:       q.Title,
		ClassID:     q.ClassID,
		Duration:    q.Duration,
		ValidTill:   q.ValidTill,
		IsPublished: q.IsPublished,
		Questions:   make([]QuestionView, 0, len(q.Questions)),
	}
	for _, question := range q.Questions {
		view.Questions = append(view.Questions, QuestionView{
			Text:    question.Text,
			Options: append([]Option(nil), question.Options...),
		})
	}
	if attempt := q.AttemptFor(studentID); attempt != nil {
		own := *attempt
		own.Answers = append([]Answer(nil), attempt.Answers...)
		view.Attempt = &own
	}
	view.Window = AttemptWindow(q, view.Attempt, now, grace)
	return view
}

// AttemptResult is a student's view of their finished or in-progress attempt.
// Answers (the key) is only populated once the attempt window has closed.
type AttemptResult struct {
	QuizDetails    Details      `json:"quizDetails"`
	StudentAnswers *Attempt     `json:"studentAnswers"`
	Answers        []Question   `json:"answers"`
	Window         WindowStatus `json:"attemptWindow"`
}
