package domain

import (
	"strings"
	"time"
)

const (
	MinDuration = 5
	MaxDuration = 180
	MinOptions  = 2
	MaxOptions  = 5

	// DefaultGraceWindow is how long after the due date a student who was
	// mid-attempt may keep submitting.
	DefaultGraceWindow = 5 * time.Minute
)

// ValidateQuestion checks a question before it is appended to a quiz.
func ValidateQuestion(index int, q Question) error {
	if strings.TrimSpace(q.Text) == "" {
		return Validationf("question %d: text is required", index)
	}
	if len(q.Options) < MinOptions || len(q.Options) > MaxOptions {
		return Validationf("question %d: must have between %d and %d options, got %d", index, MinOptions, MaxOptions, len(q.Options))
	}
	for i, opt := range q.Options {
		if strings.TrimSpace(opt.Text) == "" {
			return Validationf("question %d: option %d text is required", index, i)
		}
	}
	if q.CorrectOption < 0 || q.CorrectOption >= len(q.Options) {
		return Validationf("question %d: correct option %d is out of range", index, q.CorrectOption)
	}
	return nil
}

// CheckPublishable returns the first condition that blocks publishing.
func (q Quiz) CheckPublishable(now time.Time) error {
	if len(q.Questions) == 0 {
		return ErrNoQuestions
	}
	if q.Duration < MinDuration || q.Duration > MaxDuration {
		return ErrDurationRange
	}
	if !q.ValidTill.After(now) {
		return ErrDueDatePassed
	}
	return nil
}

// WindowStatus is the outcome of the attempt eligibility policy.
type WindowStatus string

const (
	WindowUnavailable WindowStatus = "unavailable"
	WindowOpen        WindowStatus = "open"
	WindowClosed      WindowStatus = "closed"
)

// AttemptWindow decides whether a student may start or continue an attempt.
// Until the due date the window is open. After it, only a student whose last
// saved answer is within the grace window may continue, and never past the due
// date plus the grace window.
func AttemptWindow(q Quiz, attempt *Attempt, now time.Time, grace time.Duration) WindowStatus {
	if !q.IsPublished {
		return WindowUnavailable
	}
	if !now.After(q.ValidTill) {
		return WindowOpen
	}
	if attempt == nil || attempt.lastActivity().IsZero() {
		return WindowClosed
	}
	if now.Sub(attempt.lastActivity()) < grace && !now.After(q.ValidTill.Add(grace)) {
		return WindowOpen
	}
	return WindowClosed
}
