package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"classroom-quiz-service/internal/domain"
)

// QuizStore keeps quiz documents in process. Every read and write copies the
// document so callers never alias stored state.
type QuizStore struct {
	mu           sync.RWMutex
	quizzes      map[string]domain.Quiz
	classQuizzes map[string][]string
}

func NewQuizStore() *QuizStore {
	return &QuizStore{
		quizzes:      make(map[string]domain.Quiz),
		classQuizzes: make(map[string][]string),
	}
}

func (s *QuizStore) Create(_ context.Context, quiz domain.Quiz) (domain.Quiz, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.quizzes[quiz.ID]; exists {
		return domain.Quiz{}, fmt.Errorf("create quiz %s: already exists", quiz.ID)
	}
	quiz.Version = 1
	s.quizzes[quiz.ID] = quiz.Clone()
	s.classQuizzes[quiz.ClassID] = append(s.classQuizzes[quiz.ClassID], quiz.ID)
	return quiz.Clone(), nil
}

func (s *QuizStore) Get(_ context.Context, quizID string) (domain.Quiz, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	quiz, ok := s.quizzes[quizID]
	if !ok {
		return domain.Quiz{}, domain.ErrQuizNotFound
	}
	return quiz.Clone(), nil
}

func (s *QuizStore) ListByClass(_ context.Context, classID string) ([]domain.Quiz, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := s.classQuizzes[classID]
	out := make([]domain.Quiz, 0, len(ids))
	for _, id := range ids {
		if quiz, ok := s.quizzes[id]; ok {
			out = append(out, quiz.Clone())
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *QuizStore) Update(_ context.Context, quiz domain.Quiz) (domain.Quiz, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	current, ok := s.quizzes[quiz.ID]
	if !ok {
		return domain.Quiz{}, domain.ErrQuizNotFound
	}
	if current.Version != quiz.Version {
		return domain.Quiz{}, domain.ErrConcurrentUpdate
	}
	quiz.Version++
	s.quizzes[quiz.ID] = quiz.Clone()
	return quiz.Clone(), nil
}

func (s *QuizStore) Delete(_ context.Context, quiz domain.Quiz) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	current, ok := s.quizzes[quiz.ID]
	if !ok {
		return domain.ErrQuizNotFound
	}
	delete(s.quizzes, quiz.ID)
	ids := s.classQuizzes[current.ClassID]
	for i, id := range ids {
		if id == quiz.ID {
			s.classQuizzes[current.ClassID] = append(ids[:i:i], ids[i+1:]...)
			break
		}
	}
	return nil
}
