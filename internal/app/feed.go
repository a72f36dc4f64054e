package app

import (
	"sync"

	"classroom-quiz-service/internal/domain"
)

// Feed is an in-process fan-out of results summaries for one quiz.
type Feed struct {
	quizID      string
	mu          sync.Mutex
	last        domain.Summary
	hasLast     bool
	subscribers map[chan domain.Summary]struct{}
}

// NewFeed is exported for infrastructure registries.
func NewFeed(quizID string) *Feed {
	return &Feed{
		quizID:      quizID,
		subscribers: make(map[chan domain.Summary]struct{}),
	}
}

// QuizID returns the quiz this feed serves.
func (f *Feed) QuizID() string { return f.quizID }

// Subscribe registers a subscriber and primes it with the newest known
// summary, falling back to initial. The returned cancel closes the channel.
func (f *Feed) Subscribe(initial domain.Summary) (<-chan domain.Summary, func()) {
	ch := make(chan domain.Summary, 8)

	f.mu.Lock()
	first := initial
	if f.hasLast && f.last.UpdatedAt.After(initial.UpdatedAt) {
		first = f.last
	}
	ch <- first
	f.subscribers[ch] = struct{}{}
	f.mu.Unlock()

	cancel := func() {
		f.mu.Lock()
		if _, ok := f.subscribers[ch]; ok {
			delete(f.subscribers, ch)
			close(ch)
		}
		f.mu.Unlock()
	}
	return ch, cancel
}

// Broadcast delivers a summary to every subscriber without blocking.
func (f *Feed) Broadcast(summary domain.Summary) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.last = summary
	f.hasLast = true
	for ch := range f.subscribers {
		select {
		case ch <- summary:
		default:
			// slow subscriber: drop its oldest pending summary
			select {
			case <-ch:
			default:
			}
			ch <- summary
		}
	}
}

// IsIdle reports whether the feed has no subscribers.
func (f *Feed) IsIdle() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.subscribers) == 0
}
