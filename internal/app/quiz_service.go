package app

import (
	"context"
	"errors"
	"log"
	"strings"
	"time"

	"classroom-quiz-service/internal/domain"
	"github.com/google/uuid"
)

const defaultMaxRetries = 3

// QuizService contains the quiz lifecycle, attempt, scoring and analytics use cases.
type QuizService struct {
	quizzes QuizRepository
	classes ClassDirectory
	users   UserDirectory
	feeds   FeedRegistry

	now        func() time.Time
	grace      time.Duration
	maxRetries int
}

// Option customizes a QuizService.
type Option func(*QuizService)

// WithClock overrides time.Now, mostly for tests.
func WithClock(now func() time.Time) Option {
	return func(s *QuizService) { s.now = now }
}

// WithGraceWindow sets how long past the due date an active attempt may continue.
func WithGraceWindow(d time.Duration) Option {
	return func(s *QuizService) {
		if d >= 0 {
			s.grace = d
		}
	}
}

// WithMaxRetries bounds optimistic-concurrency retries per mutation.
func WithMaxRetries(n int) Option {
	return func(s *QuizService) {
		if n > 0 {
			s.maxRetries = n
		}
	}
}

// WithFeeds enables live results summaries.
func WithFeeds(feeds FeedRegistry) Option {
	return func(s *QuizService) { s.feeds = feeds }
}

func NewQuizService(quizzes QuizRepository, classes ClassDirectory, users UserDirectory, opts ...Option) *QuizService {
	s := &QuizService{
		quizzes:    quizzes,
		classes:    classes,
		users:      users,
		now:        time.Now,
		grace:      domain.DefaultGraceWindow,
		maxRetries: defaultMaxRetries,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// GraceWindow exposes the configured grace window to presentation code.
func (s *QuizService) GraceWindow() time.Duration { return s.grace }

// Now exposes the service clock to presentation code.
func (s *QuizService) Now() time.Time { return s.now() }

// CreateQuizInput carries the fields an instructor sets on creation.
type CreateQuizInput struct {
	Title     string
	ClassID   string
	Duration  int
	ValidTill time.Time
}

// EditQuizInput replaces the mutable scalar fields of a quiz.
type EditQuizInput struct {
	Title     string
	Duration  int
	ValidTill time.Time
}

// AnswerInput is a single answer submission.
type AnswerInput struct {
	QuestionIndex  int
	SelectedOption int
}

// CreateQuiz creates an empty, unpublished quiz in a class the instructor owns.
// Duration and due date are checked at publish time, not here.
func (s *QuizService) CreateQuiz(ctx context.Context, actor domain.Actor, in CreateQuizInput) (domain.Quiz, error) {
	if actor.Role != domain.RoleInstructor {
		return domain.Quiz{}, domain.ErrInstructorOnly
	}
	if strings.TrimSpace(in.Title) == "" {
		return domain.Quiz{}, domain.ErrTitleRequired
	}
	class, err := s.classes.GetClass(ctx, in.ClassID)
	if err != nil {
		return domain.Quiz{}, err
	}
	if class.InstructorID != actor.UserID {
		return domain.Quiz{}, domain.ErrClassNotFound
	}

	now := s.now()
	quiz := domain.Quiz{
		ID:        uuid.NewString(),
		Title:     strings.TrimSpace(in.Title),
		ClassID:   class.ID,
		CreatorID: actor.UserID,
		Duration:  in.Duration,
		ValidTill: in.ValidTill,
		Questions: []domain.Question{},
		Attempts:  []domain.Attempt{},
		CreatedAt: now,
		UpdatedAt: now,
	}
	created, err := s.quizzes.Create(ctx, quiz)
	if err != nil {
		return domain.Quiz{}, err
	}
	log.Printf("quiz %s created in class %s by %s", created.ID, created.ClassID, actor.UserID)
	return created, nil
}

// AddQuestions appends questions to an unpublished quiz.
func (s *QuizService) AddQuestions(ctx context.Context, actor domain.Actor, quizID string, questions []domain.Question) (domain.Quiz, error) {
	return s.mutate(ctx, quizID, func(quiz *domain.Quiz) (bool, error) {
		if quiz.CreatorID != actor.UserID {
			return false, domain.ErrNotQuizOwner
		}
		if quiz.IsPublished {
			return false, domain.ErrQuizPublished
		}
		if len(questions) == 0 {
			return false, domain.Validationf("questions must be a non-empty array")
		}
		for i, q := range questions {
			if err := domain.ValidateQuestion(len(quiz.Questions)+i, q); err != nil {
				return false, err
			}
		}
		for _, q := range questions {
			q.Options = append([]domain.Option(nil), q.Options...)
			quiz.Questions = append(quiz.Questions, q)
		}
		quiz.UpdatedAt = s.now()
		return true, nil
	})
}

// EditQuiz replaces title, duration and due date of an unpublished quiz.
func (s *QuizService) EditQuiz(ctx context.Context, actor domain.Actor, quizID string, in EditQuizInput) (domain.Quiz, error) {
	return s.mutate(ctx, quizID, func(quiz *domain.Quiz) (bool, error) {
		if quiz.CreatorID != actor.UserID {
			return false, domain.ErrNotQuizOwner
		}
		if quiz.IsPublished {
			return false, domain.ErrQuizPublished
		}
		if strings.TrimSpace(in.Title) == "" {
			return false, domain.ErrTitleRequired
		}
		quiz.Title = strings.TrimSpace(in.Title)
		quiz.Duration = in.Duration
		quiz.ValidTill = in.ValidTill
		quiz.UpdatedAt = s.now()
		return true, nil
	})
}

// PublishQuiz makes the quiz visible to students and freezes it.
// Publishing an already published quiz returns it unchanged.
func (s *QuizService) PublishQuiz(ctx context.Context, actor domain.Actor, quizID string) (domain.Quiz, error) {
	return s.mutate(ctx, quizID, func(quiz *domain.Quiz) (bool, error) {
		if quiz.CreatorID != actor.UserID {
			return false, domain.ErrNotQuizOwner
		}
		if quiz.IsPublished {
			return false, nil
		}
		now := s.now()
		if err := quiz.CheckPublishable(now); err != nil {
			return false, err
		}
		quiz.IsPublished = true
		quiz.UpdatedAt = now
		return true, nil
	})
}

// RequireOwner fails unless the actor created the quiz. Handlers call it
// before decoding a request body so a non-owner is refused whatever they send.
func (s *QuizService) RequireOwner(ctx context.Context, actor domain.Actor, quizID string) error {
	quiz, err := s.quizzes.Get(ctx, quizID)
	if err != nil {
		return err
	}
	if !isCreator(actor, quiz) {
		return domain.ErrNotQuizOwner
	}
	return nil
}

// DeleteQuiz removes the quiz and its entry in the class quiz list. Only the
// creator may delete, even if another instructor now teaches the class.
func (s *QuizService) DeleteQuiz(ctx context.Context, actor domain.Actor, quizID string) error {
	quiz, err := s.quizzes.Get(ctx, quizID)
	if err != nil {
		return err
	}
	if !isCreator(actor, quiz) {
		return domain.ErrNotQuizOwner
	}
	if err := s.quizzes.Delete(ctx, quiz); err != nil {
		return err
	}
	log.Printf("quiz %s deleted by %s", quizID, actor.UserID)
	return nil
}

// GetQuiz returns the full quiz after an access check. Owners always have
// access; students need class membership and a published quiz. Callers must
// redact the quiz (Quiz.StudentView) before returning it to a student.
func (s *QuizService) GetQuiz(ctx context.Context, actor domain.Actor, quizID string) (domain.Quiz, error) {
	quiz, err := s.quizzes.Get(ctx, quizID)
	if err != nil {
		return domain.Quiz{}, err
	}
	if s.ownsQuiz(ctx, actor, quiz) {
		return quiz, nil
	}
	if actor.Role != domain.RoleStudent {
		return domain.Quiz{}, domain.ErrNotQuizOwner
	}
	if err := s.requireMember(ctx, actor, quiz.ClassID); err != nil {
		return domain.Quiz{}, err
	}
	if !quiz.IsPublished {
		return domain.Quiz{}, domain.ErrQuizNotFound
	}
	return quiz, nil
}

// ListClassQuizzes returns every quiz of the class to its instructor and only
// published quizzes to enrolled students.
func (s *QuizService) ListClassQuizzes(ctx context.Context, actor domain.Actor, classID string) ([]domain.Quiz, error) {
	class, err := s.classes.GetClass(ctx, classID)
	if err != nil {
		return nil, err
	}
	isInstructor := actor.Role == domain.RoleInstructor && class.InstructorID == actor.UserID
	if !isInstructor && !(actor.Role == domain.RoleStudent && class.HasStudent(actor.UserID)) {
		return nil, domain.ErrNotClassMember
	}

	quizzes, err := s.quizzes.ListByClass(ctx, classID)
	if err != nil {
		return nil, err
	}
	if isInstructor {
		return quizzes, nil
	}
	published := make([]domain.Quiz, 0, len(quizzes))
	for _, q := range quizzes {
		if q.IsPublished {
			published = append(published, q)
		}
	}
	return published, nil
}

func isCreator(actor domain.Actor, quiz domain.Quiz) bool {
	return actor.Role == domain.RoleInstructor && quiz.CreatorID == actor.UserID
}

// ownsQuiz reports whether the actor created the quiz or teaches its class.
func (s *QuizService) ownsQuiz(ctx context.Context, actor domain.Actor, quiz domain.Quiz) bool {
	if actor.Role != domain.RoleInstructor {
		return false
	}
	if quiz.CreatorID == actor.UserID {
		return true
	}
	class, err := s.classes.GetClass(ctx, quiz.ClassID)
	if err != nil {
		return false
	}
	return class.InstructorID == actor.UserID
}

func (s *QuizService) requireMember(ctx context.Context, actor domain.Actor, classID string) error {
	class, err := s.classes.GetClass(ctx, classID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.ErrNotClassMember
		}
		return err
	}
	if !class.HasStudent(actor.UserID) {
		return domain.ErrNotClassMember
	}
	return nil
}

// mutate applies fn to a fresh copy of the quiz and stores it with a version
// check, retrying on conflict. fn reports whether it changed anything; an
// unchanged quiz is returned without a write.
func (s *QuizService) mutate(ctx context.Context, quizID string, fn func(*domain.Quiz) (bool, error)) (domain.Quiz, error) {
	for attempt := 1; attempt <= s.maxRetries; attempt++ {
		quiz, err := s.quizzes.Get(ctx, quizID)
		if err != nil {
			return domain.Quiz{}, err
		}
		changed, err := fn(&quiz)
		if err != nil {
			return domain.Quiz{}, err
		}
		if !changed {
			return quiz, nil
		}
		updated, err := s.quizzes.Update(ctx, quiz)
		if err == nil {
			return updated, nil
		}
		if !errors.Is(err, domain.ErrConflict) {
			return domain.Quiz{}, err
		}
		log.Printf("quiz %s: version conflict on attempt %d/%d", quizID, attempt, s.maxRetries)
		if err := ctx.Err(); err != nil {
			return domain.Quiz{}, err
		}
	}
	return domain.Quiz{}, domain.ErrConcurrentUpdate
}
