package app

import (
	"context"

	"classroom-quiz-service/internal/domain"
)

// QuizRepository persists quiz documents (memory, Redis, Postgres).
//
// Update must be a compare-and-swap on Version: it fails with an error
// matching domain.ErrConflict when the stored version differs from
// quiz.Version, and returns the stored quiz with the incremented version.
// Create and Delete also maintain the class's quiz list atomically.
type QuizRepository interface {
	Create(ctx context.Context, quiz domain.Quiz) (domain.Quiz, error)
	Get(ctx context.Context, quizID string) (domain.Quiz, error)
	ListByClass(ctx context.Context, classID string) ([]domain.Quiz, error)
	Update(ctx context.Context, quiz domain.Quiz) (domain.Quiz, error)
	Delete(ctx context.Context, quiz domain.Quiz) error
}

// ClassDirectory resolves class rosters owned by the class service.
type ClassDirectory interface {
	GetClass(ctx context.Context, classID string) (domain.Class, error)
}

// UserDirectory resolves user profiles owned by the identity service.
type UserDirectory interface {
	GetUsers(ctx context.Context, userIDs []string) (map[string]domain.User, error)
}

// FeedRegistry fans out results summaries to subscribers of a quiz.
type FeedRegistry interface {
	Publish(ctx context.Context, summary domain.Summary) error
	Subscribe(ctx context.Context, quizID string, initial domain.Summary) (<-chan domain.Summary, func(), error)
}

// TokenVerifier resolves a bearer token to the calling actor.
type TokenVerifier interface {
	Verify(token string) (domain.Actor, error)
}
