package redis

import (
	"context"
	"sync"
	"testing"
	"time"

	"classroom-quiz-service/internal/domain"
	miniredis "github.com/alicebob/miniredis/v2"
)

func TestFeedRegistryRelaysPublishedSummaries(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	ctx := context.Background()
	subscriber := NewFeedRegistry(newClient(mr))
	// a second registry stands in for another service instance
	publisher := NewFeedRegistry(newClient(mr))

	ch, cancel, err := subscriber.Subscribe(ctx, "quiz-1", domain.Summary{QuizID: "quiz-1"})
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	<-ch // initial snapshot

	if err := publisher.Publish(ctx, domain.Summary{QuizID: "quiz-1", Attempts: 2, Scored: 1}); err != nil {
		t.Fatalf("publish: %v", err)
	}

	select {
	case update := <-ch:
		if update.Attempts != 2 || update.Scored != 1 {
			t.Fatalf("unexpected summary %+v", update)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for relayed summary")
	}

	cancel()
	subscriber.mu.Lock()
	_, still := subscriber.relays["quiz-1"]
	subscriber.mu.Unlock()
	if still {
		t.Fatalf("expected relay released after last subscriber left")
	}
}

func TestFeedRegistryConcurrentSubscribersShareOneRelay(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	ctx := context.Background()
	registry := NewFeedRegistry(newClient(mr))

	const n = 4
	chans := make([]<-chan domain.Summary, n)
	cancels := make([]func(), n)
	errs := make([]error, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			chans[i], cancels[i], errs[i] = registry.Subscribe(ctx, "quiz-1", domain.Summary{QuizID: "quiz-1"})
		}(i)
	}
	wg.Wait()
	for i, err := range errs {
		if err != nil {
			t.Fatalf("subscribe %d: %v", i, err)
		}
		<-chans[i]
	}

	registry.mu.Lock()
	relays := len(registry.relays)
	registry.mu.Unlock()
	if relays != 1 {
		t.Fatalf("expected one relay, got %d", relays)
	}
	// subscriptions that lost the race close asynchronously
	deadline := time.Now().Add(2 * time.Second)
	for mr.PubSubNumSub("quiz:feed:quiz-1")["quiz:feed:quiz-1"] != 1 {
		if time.Now().After(deadline) {
			t.Fatalf("expected one redis subscription, got %v", mr.PubSubNumSub("quiz:feed:quiz-1"))
		}
		time.Sleep(10 * time.Millisecond)
	}

	if err := registry.Publish(ctx, domain.Summary{QuizID: "quiz-1", Attempts: 3}); err != nil {
		t.Fatalf("publish: %v", err)
	}
	for i, ch := range chans {
		select {
		case update := <-ch:
			if update.Attempts != 3 {
				t.Fatalf("subscriber %d: unexpected summary %+v", i, update)
			}
		case <-time.After(2 * time.Second):
			t.Fatalf("subscriber %d: timed out waiting for relayed summary", i)
		}
	}
	for _, cancel := range cancels {
		cancel()
	}
}

func TestFeedRegistryFailedSubscribeLeavesNoRelay(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	registry := NewFeedRegistry(newClient(mr))
	mr.Close()

	if _, _, err := registry.Subscribe(context.Background(), "quiz-1", domain.Summary{}); err == nil {
		t.Fatalf("expected error with redis down")
	}
	registry.mu.Lock()
	defer registry.mu.Unlock()
	if len(registry.relays) != 0 {
		t.Fatalf("expected no relays, got %d", len(registry.relays))
	}
}
