package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"classroom-quiz-service/internal/domain"
)

func TestQuizStoreVersionCheck(t *testing.T) {
	store := NewQuizStore()
	ctx := context.Background()

	created, err := store.Create(ctx, sampleQuiz("quiz-1", time.Now()))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if created.Version != 1 {
		t.Fatalf("expected version 1, got %d", created.Version)
	}

	first, _ := store.Get(ctx, "quiz-1")
	second, _ := store.Get(ctx, "quiz-1")

	first.Title = "renamed"
	updated, err := store.Update(ctx, first)
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Version != 2 {
		t.Fatalf("expected version 2, got %d", updated.Version)
	}

	second.Title = "stale"
	if _, err := store.Update(ctx, second); !errors.Is(err, domain.ErrConflict) {
		t.Fatalf("expected conflict for stale version, got %v", err)
	}
}

func TestQuizStoreCopiesDocuments(t *testing.T) {
	store := NewQuizStore()
	ctx := context.Background()
	_, _ = store.Create(ctx, sampleQuiz("quiz-1", time.Now()))

	got, _ := store.Get(ctx, "quiz-1")
	got.Questions[0].Options[0].Text = "mutated"

	again, _ := store.Get(ctx, "quiz-1")
	if again.Questions[0].Options[0].Text == "mutated" {
		t.Fatalf("store leaked internal state")
	}
}

func TestQuizStoreClassListAndDelete(t *testing.T) {
	store := NewQuizStore()
	ctx := context.Background()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	_, _ = store.Create(ctx, sampleQuiz("quiz-2", base.Add(time.Hour)))
	_, _ = store.Create(ctx, sampleQuiz("quiz-1", base))

	list, err := store.ListByClass(ctx, "class-1")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 2 || list[0].ID != "quiz-1" {
		t.Fatalf("expected quizzes ordered by creation, got %+v", list)
	}

	q, _ := store.Get(ctx, "quiz-1")
	if err := store.Delete(ctx, q); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := store.Get(ctx, "quiz-1"); !errors.Is(err, domain.ErrQuizNotFound) {
		t.Fatalf("expected not found after delete, got %v", err)
	}
	list, _ = store.ListByClass(ctx, "class-1")
	if len(list) != 1 || list[0].ID != "quiz-2" {
		t.Fatalf("expected class list without deleted quiz, got %+v", list)
	}
	if err := store.Delete(ctx, q); !errors.Is(err, domain.ErrQuizNotFound) {
		t.Fatalf("expected not found on second delete, got %v", err)
	}
}

func sampleQuiz(id string, createdAt time.Time) domain.Quiz {
	return domain.Quiz{
		ID:        id,
		Title:     "Fractions",
		ClassID:   "class-1",
		CreatorID: "teacher-1",
		Duration:  30,
		ValidTill: createdAt.Add(24 * time.Hour),
		Questions: []domain.Question{
			{
				Text:          "What is 1/2 + 1/2?",
				Options:       []domain.Option{{Text: "1"}, {Text: "2"}},
				CorrectOption: 0,
			},
		},
		CreatedAt: createdAt,
		UpdatedAt: createdAt,
	}
}
