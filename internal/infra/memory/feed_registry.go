package memory

import (
	"context"
	"sync"

	"classroom-quiz-service/internal/app"
	"classroom-quiz-service/internal/domain"
)

// FeedRegistry is an in-memory implementation of app.FeedRegistry for a
// single process.
type FeedRegistry struct {
	mu    sync.RWMutex
	feeds map[string]*app.Feed
}

func NewFeedRegistry() *FeedRegistry {
	return &FeedRegistry{
		feeds: make(map[string]*app.Feed),
	}
}

func (r *FeedRegistry) Publish(_ context.Context, summary domain.Summary) error {
	if feed, ok := r.Get(summary.QuizID); ok {
		feed.Broadcast(summary)
	}
	return nil
}

func (r *FeedRegistry) Subscribe(_ context.Context, quizID string, initial domain.Summary) (<-chan domain.Summary, func(), error) {
	// subscribe under the registry lock so DeleteIfIdle cannot drop the feed in between
	r.mu.Lock()
	feed, ok := r.feeds[quizID]
	if !ok {
		feed = app.NewFeed(quizID)
		r.feeds[quizID] = feed
	}
	ch, cancel := feed.Subscribe(initial)
	r.mu.Unlock()

	return ch, func() {
		cancel()
		r.DeleteIfIdle(quizID)
	}, nil
}

func (r *FeedRegistry) Get(quizID string) (*app.Feed, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	feed, ok := r.feeds[quizID]
	return feed, ok
}

func (r *FeedRegistry) DeleteIfIdle(quizID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	feed, ok := r.feeds[quizID]
	if !ok {
		return
	}
	if feed.IsIdle() {
		delete(r.feeds, quizID)
	}
}
