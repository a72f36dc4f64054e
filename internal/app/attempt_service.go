package app

import (
	"context"
	"log"
	"time"

	"classroom-quiz-service/internal/domain"
)

// SubmitAnswer merges one answer into the student's attempt, creating the
// attempt on first submission. A zero submittedAt is replaced by the server clock.
func (s *QuizService) SubmitAnswer(ctx context.Context, actor domain.Actor, quizID string, in AnswerInput, submittedAt time.Time) (domain.Attempt, error) {
	if actor.Role != domain.RoleStudent {
		return domain.Attempt{}, domain.ErrStudentOnly
	}

	memberChecked := false
	quiz, err := s.mutate(ctx, quizID, func(quiz *domain.Quiz) (bool, error) {
		if !memberChecked {
			if err := s.requireMember(ctx, actor, quiz.ClassID); err != nil {
				return false, err
			}
			memberChecked = true
		}
		now := s.now()
		attempt := quiz.AttemptFor(actor.UserID)
		switch domain.AttemptWindow(*quiz, attempt, now, s.grace) {
		case domain.WindowUnavailable:
			return false, domain.ErrQuizNotPublished
		case domain.WindowClosed:
			return false, domain.ErrAttemptClosed
		}
		if in.QuestionIndex < 0 || in.QuestionIndex >= len(quiz.Questions) {
			return false, domain.ErrQuestionNotFound
		}
		question := quiz.Questions[in.QuestionIndex]
		if in.SelectedOption < 0 || in.SelectedOption >= len(question.Options) {
			return false, domain.Validationf("selected option %d is out of range for question %d", in.SelectedOption, in.QuestionIndex)
		}

		at := submittedAt
		if at.IsZero() {
			at = now
		}
		if attempt == nil {
			quiz.Attempts = append(quiz.Attempts, domain.Attempt{StudentID: actor.UserID, Score: domain.Unscored()})
			attempt = &quiz.Attempts[len(quiz.Attempts)-1]
		}
		attempt.Merge(domain.Answer{
			QuestionIndex:  in.QuestionIndex,
			Question:       question.Text,
			SelectedOption: in.SelectedOption,
		}, at)
		attempt.LastSavedAt = now
		quiz.UpdatedAt = now
		return true, nil
	})
	if err != nil {
		return domain.Attempt{}, err
	}
	s.publish(ctx, quiz)
	return *quiz.AttemptFor(actor.UserID), nil
}

// GetAttempt returns the student's attempt for a quiz.
func (s *QuizService) GetAttempt(ctx context.Context, quizID, studentID string) (domain.Attempt, error) {
	quiz, err := s.quizzes.Get(ctx, quizID)
	if err != nil {
		return domain.Attempt{}, err
	}
	attempt := quiz.AttemptFor(studentID)
	if attempt == nil {
		return domain.Attempt{}, domain.ErrAttemptNotFound
	}
	return *attempt, nil
}

// AttemptResult returns the student's own answers. The answer key is only
// included once the student's attempt window has closed.
func (s *QuizService) AttemptResult(ctx context.Context, actor domain.Actor, quizID string) (domain.AttemptResult, error) {
	quiz, err := s.GetQuiz(ctx, actor, quizID)
	if err != nil {
		return domain.AttemptResult{}, err
	}
	attempt := quiz.AttemptFor(actor.UserID)
	result := domain.AttemptResult{
		QuizDetails: quiz.Details(),
		Window:      domain.AttemptWindow(quiz, attempt, s.now(), s.grace),
	}
	if attempt != nil {
		own := *attempt
		result.StudentAnswers = &own
	}
	if result.Window == domain.WindowClosed || s.ownsQuiz(ctx, actor, quiz) {
		result.Answers = quiz.Questions
	}
	return result, nil
}

// ComputeScore grades the student's attempt and stores the score. Students
// may only score themselves; the quiz owner may score anyone. Repeated calls
// on unchanged answers return the same score without writing.
func (s *QuizService) ComputeScore(ctx context.Context, actor domain.Actor, quizID, studentID string) (int, error) {
	if studentID == "" {
		studentID = actor.UserID
	}
	var score int
	ownerChecked := false
	quiz, err := s.mutate(ctx, quizID, func(quiz *domain.Quiz) (bool, error) {
		if studentID != actor.UserID && !ownerChecked {
			if !s.ownsQuiz(ctx, actor, *quiz) {
				return false, domain.ErrNotQuizOwner
			}
			ownerChecked = true
		}
		attempt := quiz.AttemptFor(studentID)
		if attempt == nil {
			return false, domain.ErrAttemptNotFound
		}
		score = domain.Grade(quiz.Questions, attempt.Answers)
		if current, ok := attempt.Score.Value(); ok && current == score {
			return false, nil
		}
		attempt.Score = domain.Scored(score)
		quiz.UpdatedAt = s.now()
		return true, nil
	})
	if err != nil {
		return 0, err
	}
	log.Printf("quiz %s: scored %s at %d/%d", quizID, studentID, score, len(quiz.Questions))
	s.publish(ctx, quiz)
	return score, nil
}

// Analytics returns the instructor's projection of all attempts.
func (s *QuizService) Analytics(ctx context.Context, actor domain.Actor, quizID string, query domain.AnalyticsQuery) (domain.Analytics, error) {
	quiz, err := s.quizzes.Get(ctx, quizID)
	if err != nil {
		return domain.Analytics{}, err
	}
	if !s.ownsQuiz(ctx, actor, quiz) {
		return domain.Analytics{}, domain.ErrAnalyticsDenied
	}
	ids := make([]string, 0, len(quiz.Attempts))
	for _, attempt := range quiz.Attempts {
		ids = append(ids, attempt.StudentID)
	}
	users := map[string]domain.User{}
	if len(ids) > 0 {
		users, err = s.users.GetUsers(ctx, ids)
		if err != nil {
			return domain.Analytics{}, err
		}
	}
	return domain.BuildAnalytics(quiz, users, query, s.now()), nil
}

// SubscribeResults streams results summaries of a quiz to its owner.
// The caller must invoke the returned cancel function.
func (s *QuizService) SubscribeResults(ctx context.Context, actor domain.Actor, quizID string) (<-chan domain.Summary, func(), error) {
	if s.feeds == nil {
		return nil, nil, domain.Validationf("live results are not enabled")
	}
	quiz, err := s.quizzes.Get(ctx, quizID)
	if err != nil {
		return nil, nil, err
	}
	if !s.ownsQuiz(ctx, actor, quiz) {
		return nil, nil, domain.ErrAnalyticsDenied
	}
	return s.feeds.Subscribe(ctx, quizID, domain.Summarize(quiz, s.now()))
}

func (s *QuizService) publish(ctx context.Context, quiz domain.Quiz) {
	if s.feeds == nil {
		return
	}
	if err := s.feeds.Publish(ctx, domain.Summarize(quiz, s.now())); err != nil {
		log.Printf("quiz %s: publish results summary: %v", quiz.ID, err)
	}
}
