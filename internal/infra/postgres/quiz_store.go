package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"classroom-quiz-service/internal/domain"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
)

// QuizStore keeps quiz documents as JSONB with the version held in its own
// column, so updates are a single conditional UPDATE.
type QuizStore struct {
	pool *pgxpool.Pool
}

func NewQuizStore(pool *pgxpool.Pool) *QuizStore {
	return &QuizStore{pool: pool}
}

func (s *QuizStore) Create(ctx context.Context, quiz domain.Quiz) (domain.Quiz, error) {
	quiz.Version = 1
	data, err := json.Marshal(quiz)
	if err != nil {
		return domain.Quiz{}, fmt.Errorf("marshal quiz: %w", err)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return domain.Quiz{}, fmt.Errorf("begin create quiz: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx,
		`INSERT INTO quizzes (id, class_id, creator_id, version, data, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		quiz.ID, quiz.ClassID, quiz.CreatorID, quiz.Version, string(data), quiz.CreatedAt, quiz.UpdatedAt)
	if err != nil {
		return domain.Quiz{}, fmt.Errorf("insert quiz: %w", err)
	}
	_, err = tx.Exec(ctx, `INSERT INTO class_quizzes (class_id, quiz_id) VALUES ($1, $2)`, quiz.ClassID, quiz.ID)
	if err != nil {
		return domain.Quiz{}, fmt.Errorf("link quiz to class: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return domain.Quiz{}, fmt.Errorf("commit create quiz: %w", err)
	}
	return quiz, nil
}

func (s *QuizStore) Get(ctx context.Context, quizID string) (domain.Quiz, error) {
	row := s.pool.QueryRow(ctx, `SELECT data, version FROM quizzes WHERE id = $1`, quizID)
	quiz, err := scanQuiz(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Quiz{}, domain.ErrQuizNotFound
	}
	if err != nil {
		return domain.Quiz{}, fmt.Errorf("load quiz: %w", err)
	}
	return quiz, nil
}

func (s *QuizStore) ListByClass(ctx context.Context, classID string) ([]domain.Quiz, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT q.data, q.version
		   FROM class_quizzes cq
		   JOIN quizzes q ON q.id = cq.quiz_id
		  WHERE cq.class_id = $1
		  ORDER BY q.created_at`, classID)
	if err != nil {
		return nil, fmt.Errorf("list class quizzes: %w", err)
	}
	defer rows.Close()

	quizzes := []domain.Quiz{}
	for rows.Next() {
		quiz, err := scanQuiz(rows)
		if err != nil {
			return nil, fmt.Errorf("scan class quiz: %w", err)
		}
		quizzes = append(quizzes, quiz)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list class quizzes: %w", err)
	}
	return quizzes, nil
}

func (s *QuizStore) Update(ctx context.Context, quiz domain.Quiz) (domain.Quiz, error) {
	updated := quiz
	updated.Version = quiz.Version + 1
	data, err := json.Marshal(updated)
	if err != nil {
		return domain.Quiz{}, fmt.Errorf("marshal quiz: %w", err)
	}

	tag, err := s.pool.Exec(ctx,
		`UPDATE quizzes SET data = $1, version = version + 1, updated_at = $2
		  WHERE id = $3 AND version = $4`,
		string(data), updated.UpdatedAt, quiz.ID, quiz.Version)
	if err != nil {
		return domain.Quiz{}, fmt.Errorf("update quiz: %w", err)
	}
	if tag.RowsAffected() == 1 {
		return updated, nil
	}

	var exists bool
	if err := s.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM quizzes WHERE id = $1)`, quiz.ID).Scan(&exists); err != nil {
		return domain.Quiz{}, fmt.Errorf("check quiz: %w", err)
	}
	if !exists {
		return domain.Quiz{}, domain.ErrQuizNotFound
	}
	return domain.Quiz{}, domain.ErrConcurrentUpdate
}

func (s *QuizStore) Delete(ctx context.Context, quiz domain.Quiz) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin delete quiz: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM class_quizzes WHERE quiz_id = $1`, quiz.ID); err != nil {
		return fmt.Errorf("unlink quiz: %w", err)
	}
	tag, err := tx.Exec(ctx, `DELETE FROM quizzes WHERE id = $1`, quiz.ID)
	if err != nil {
		return fmt.Errorf("delete quiz: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrQuizNotFound
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit delete quiz: %w", err)
	}
	return nil
}

func scanQuiz(row pgx.Row) (domain.Quiz, error) {
	var (
		raw     []byte
		version int64
	)
	if err := row.Scan(&raw, &version); err != nil {
		return domain.Quiz{}, err
	}
	var quiz domain.Quiz
	if err := json.Unmarshal(raw, &quiz); err != nil {
		return domain.Quiz{}, fmt.Errorf("unmarshal quiz: %w", err)
	}
	// the column is authoritative
	quiz.Version = version
	return quiz, nil
}
