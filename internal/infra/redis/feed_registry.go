package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"

	"classroom-quiz-service/internal/app"
	"classroom-quiz-service/internal/domain"
	"github.com/redis/go-redis/v9"
)

// FeedRegistry fans results summaries out across service instances.
// Notes:
//   - Publish goes to the Redis channel quiz:feed:{quizID}, so every instance
//     with a subscriber for that quiz sees it.
//   - Each instance keeps one Redis subscription per quiz with local
//     subscribers and relays messages into an in-process app.Feed.
type FeedRegistry struct {
	client *redis.Client
	mu     sync.Mutex
	relays map[string]*relay
}

type relay struct {
	feed   *app.Feed
	pubsub *redis.PubSub
}

func NewFeedRegistry(client *redis.Client) *FeedRegistry {
	return &FeedRegistry{
		client: client,
		relays: make(map[string]*relay),
	}
}

func (r *FeedRegistry) Publish(ctx context.Context, summary domain.Summary) error {
	data, err := json.Marshal(summary)
	if err != nil {
		return fmt.Errorf("marshal summary: %w", err)
	}
	return r.client.Publish(ctx, r.channel(summary.QuizID), data).Err()
}

func (r *FeedRegistry) Subscribe(ctx context.Context, quizID string, initial domain.Summary) (<-chan domain.Summary, func(), error) {
	r.mu.Lock()
	if rl, ok := r.relays[quizID]; ok {
		defer r.mu.Unlock()
		return r.attach(rl, quizID, initial)
	}
	r.mu.Unlock()

	// the round trip runs unlocked so a slow Redis does not stall other quizzes
	pubsub := r.client.Subscribe(context.WithoutCancel(ctx), r.channel(quizID))
	// wait for the subscription to be confirmed so no publish is missed
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, nil, fmt.Errorf("subscribe results feed: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	rl, ok := r.relays[quizID]
	if ok {
		// lost the race to a concurrent subscriber
		_ = pubsub.Close()
	} else {
		rl = &relay{feed: app.NewFeed(quizID), pubsub: pubsub}
		r.relays[quizID] = rl
		go rl.run()
	}
	return r.attach(rl, quizID, initial)
}

// attach must be called with r.mu held so releaseIfIdle cannot drop the
// relay between lookup and subscribe.
func (r *FeedRegistry) attach(rl *relay, quizID string, initial domain.Summary) (<-chan domain.Summary, func(), error) {
	ch, cancel := rl.feed.Subscribe(initial)
	return ch, func() {
		cancel()
		r.releaseIfIdle(quizID)
	}, nil
}

func (r *FeedRegistry) releaseIfIdle(quizID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rl, ok := r.relays[quizID]
	if !ok || !rl.feed.IsIdle() {
		return
	}
	delete(r.relays, quizID)
	_ = rl.pubsub.Close()
}

func (r *FeedRegistry) channel(quizID string) string {
	return "quiz:feed:" + quizID
}

func (rl *relay) run() {
	for msg := range rl.pubsub.Channel() {
		var summary domain.Summary
		if err := json.Unmarshal([]byte(msg.Payload), &summary); err != nil {
			log.Printf("results feed %s: bad payload: %v", rl.feed.QuizID(), err)
			continue
		}
		rl.feed.Broadcast(summary)
	}
}
