package domain

import (
	"errors"
	"fmt"
)

// Error kinds. Every domain error wraps exactly one of these so callers can
// classify with errors.Is without knowing the specific condition.
var (
	ErrValidation       = errors.New("validation failed")
	ErrForbidden        = errors.New("not authorized")
	ErrNotFound         = errors.New("not found")
	ErrConflict         = errors.New("concurrent modification")
	ErrDeadlineExceeded = errors.New("deadline exceeded")
)

// Error is a classified domain error carrying a client-facing message.
type Error struct {
	Kind    error
	Message string
}

func (e *Error) Error() string { return e.Message }

func (e *Error) Unwrap() error { return e.Kind }

func newError(kind error, msg string) *Error {
	return &Error{Kind: kind, Message: msg}
}

// Validationf builds an ErrValidation error with a formatted message.
func Validationf(format string, args ...any) error {
	return newError(ErrValidation, fmt.Sprintf(format, args...))
}

var (
	// ErrQuizNotFound is returned when a quiz id does not resolve.
	ErrQuizNotFound = newError(ErrNotFound, "quiz not found")
	// ErrClassNotFound is returned when a class is missing or not visible to the caller.
	ErrClassNotFound = newError(ErrNotFound, "class not found")
	// ErrAttemptNotFound is returned when the student has not answered anything yet.
	ErrAttemptNotFound = newError(ErrNotFound, "attempt not found")
	// ErrQuestionNotFound indicates a question index outside the question bank.
	ErrQuestionNotFound = newError(ErrNotFound, "question not found")

	ErrNotQuizOwner    = newError(ErrForbidden, "not authorized to modify this quiz")
	ErrInstructorOnly  = newError(ErrForbidden, "not authorized as instructor")
	ErrStudentOnly     = newError(ErrForbidden, "not authorized as student")
	ErrNotClassMember  = newError(ErrForbidden, "not authorized to view quizzes for this class")
	ErrAnalyticsDenied = newError(ErrForbidden, "not authorized to view analytics for this quiz")

	ErrQuizPublished    = newError(ErrValidation, "quiz is published and can no longer be edited")
	ErrQuizNotPublished = newError(ErrValidation, "quiz is not published")
	ErrNoQuestions      = newError(ErrValidation, "cannot publish quiz without questions")
	ErrDurationRange    = newError(ErrValidation, fmt.Sprintf("duration must be between %d and %d minutes", MinDuration, MaxDuration))
	ErrDueDatePassed    = newError(ErrValidation, "change the due date to a future date before publishing")
	ErrTitleRequired    = newError(ErrValidation, "title is required")

	ErrAttemptClosed = newError(ErrDeadlineExceeded, "the attempt window for this quiz has closed")

	ErrConcurrentUpdate = newError(ErrConflict, "quiz was modified concurrently, please retry")
)
