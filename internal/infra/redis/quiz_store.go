package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"classroom-quiz-service/internal/domain"
	"github.com/redis/go-redis/v9"
)

// QuizStore keeps each quiz as a JSON document in Redis.
// Documents are stored as:   SET  quiz:{quizID} {json}
// Class quiz lists as:        SADD class:{classID}:quizzes {quizID}
// Writes run inside WATCH/MULTI so a concurrent writer aborts the transaction.
type QuizStore struct {
	client *redis.Client
}

func NewQuizStore(client *redis.Client) *QuizStore {
	return &QuizStore{client: client}
}

func (s *QuizStore) Create(ctx context.Context, quiz domain.Quiz) (domain.Quiz, error) {
	quiz.Version = 1
	data, err := json.Marshal(quiz)
	if err != nil {
		return domain.Quiz{}, fmt.Errorf("marshal quiz: %w", err)
	}
	key := s.quizKey(quiz.ID)
	err = s.client.Watch(ctx, func(tx *redis.Tx) error {
		n, err := tx.Exists(ctx, key).Result()
		if err != nil {
			return err
		}
		if n > 0 {
			return fmt.Errorf("create quiz %s: already exists", quiz.ID)
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, data, 0)
			pipe.SAdd(ctx, s.classKey(quiz.ClassID), quiz.ID)
			return nil
		})
		return err
	}, key)
	if err != nil {
		return domain.Quiz{}, s.mapTxErr("create quiz", err)
	}
	return quiz, nil
}

func (s *QuizStore) Get(ctx context.Context, quizID string) (domain.Quiz, error) {
	data, err := s.client.Get(ctx, s.quizKey(quizID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return domain.Quiz{}, domain.ErrQuizNotFound
	}
	if err != nil {
		return domain.Quiz{}, fmt.Errorf("get quiz: %w", err)
	}
	return decodeQuiz(data)
}

func (s *QuizStore) ListByClass(ctx context.Context, classID string) ([]domain.Quiz, error) {
	ids, err := s.client.SMembers(ctx, s.classKey(classID)).Result()
	if err != nil {
		return nil, fmt.Errorf("list class quizzes: %w", err)
	}
	if len(ids) == 0 {
		return []domain.Quiz{}, nil
	}
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = s.quizKey(id)
	}
	values, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("load class quizzes: %w", err)
	}
	quizzes := make([]domain.Quiz, 0, len(values))
	for _, v := range values {
		raw, ok := v.(string)
		if !ok {
			// listed but already deleted
			continue
		}
		quiz, err := decodeQuiz([]byte(raw))
		if err != nil {
			return nil, err
		}
		quizzes = append(quizzes, quiz)
	}
	sort.SliceStable(quizzes, func(i, j int) bool { return quizzes[i].CreatedAt.Before(quizzes[j].CreatedAt) })
	return quizzes, nil
}

func (s *QuizStore) Update(ctx context.Context, quiz domain.Quiz) (domain.Quiz, error) {
	key := s.quizKey(quiz.ID)
	var updated domain.Quiz
	err := s.client.Watch(ctx, func(tx *redis.Tx) error {
		data, err := tx.Get(ctx, key).Bytes()
		if errors.Is(err, redis.Nil) {
			return domain.ErrQuizNotFound
		}
		if err != nil {
			return err
		}
		current, err := decodeQuiz(data)
		if err != nil {
			return err
		}
		if current.Version != quiz.Version {
			return domain.ErrConcurrentUpdate
		}

		updated = quiz
		updated.Version = current.Version + 1
		next, err := json.Marshal(updated)
		if err != nil {
			return fmt.Errorf("marshal quiz: %w", err)
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, next, 0)
			return nil
		})
		return err
	}, key)
	if err != nil {
		return domain.Quiz{}, s.mapTxErr("update quiz", err)
	}
	return updated, nil
}

func (s *QuizStore) Delete(ctx context.Context, quiz domain.Quiz) error {
	key := s.quizKey(quiz.ID)
	err := s.client.Watch(ctx, func(tx *redis.Tx) error {
		data, err := tx.Get(ctx, key).Bytes()
		if errors.Is(err, redis.Nil) {
			return domain.ErrQuizNotFound
		}
		if err != nil {
			return err
		}
		current, err := decodeQuiz(data)
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Del(ctx, key)
			pipe.SRem(ctx, s.classKey(current.ClassID), current.ID)
			return nil
		})
		return err
	}, key)
	if err != nil {
		return s.mapTxErr("delete quiz", err)
	}
	return nil
}

func (s *QuizStore) quizKey(quizID string) string {
	return "quiz:" + quizID
}

func (s *QuizStore) classKey(classID string) string {
	return "class:" + classID + ":quizzes"
}

// mapTxErr turns an aborted MULTI into a conflict and wraps infrastructure errors.
func (s *QuizStore) mapTxErr(op string, err error) error {
	var domainErr *domain.Error
	switch {
	case errors.Is(err, redis.TxFailedErr):
		return domain.ErrConcurrentUpdate
	case errors.As(err, &domainErr):
		return err
	default:
		return fmt.Errorf("%s: %w", op, err)
	}
}

func decodeQuiz(data []byte) (domain.Quiz, error) {
	var quiz domain.Quiz
	if err := json.Unmarshal(data, &quiz); err != nil {
		return domain.Quiz{}, fmt.Errorf("unmarshal quiz: %w", err)
	}
	return quiz, nil
}
