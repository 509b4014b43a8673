package pubsub

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/barinakhq/shelter-backend/internal/cache"
)

// recordingInvalidator captures invalidation patterns.
type recordingInvalidator struct {
	mu       sync.Mutex
	patterns []string
	notify   chan struct{}
}

func (r *recordingInvalidator) Invalidate(_ context.Context, pattern string) (int, error) {
	r.mu.Lock()
	r.patterns = append(r.patterns, pattern)
	r.mu.Unlock()
	select {
	case r.notify <- struct{}{}:
	default:
	}
	return 1, nil
}

func (r *recordingInvalidator) got() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.patterns...)
}

// recordingPusher captures forwarded push events.
type recordingPusher struct {
	mu     sync.Mutex
	users  []uint
	notify chan struct{}
}

func (r *recordingPusher) PushTo(userID uint, _ string, _ any) {
	r.mu.Lock()
	r.users = append(r.users, userID)
	r.mu.Unlock()
	select {
	case r.notify <- struct{}{}:
	default:
	}
}

func newBusFixture(t *testing.T) (*Publisher, *recordingInvalidator, *recordingPusher, context.CancelFunc) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	inv := &recordingInvalidator{notify: make(chan struct{}, 8)}
	psh := &recordingPusher{notify: make(chan struct{}, 8)}

	ctx, cancel := context.WithCancel(context.Background())
	sub := NewSubscriber(client, inv, psh)
	go sub.Run(ctx)

	// Give the subscriber a moment to register its channels before tests
	// publish; miniredis delivers only to already-subscribed clients.
	time.Sleep(50 * time.Millisecond)

	return NewPublisher(client), inv, psh, cancel
}

func waitSignal(t *testing.T, ch chan struct{}) {
	t.Helper()
	select {
	case <-ch:
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for subscriber dispatch")
	}
}

func TestBus_AnimalUpdated_InvalidatesPeerCaches(t *testing.T) {
	pub, inv, _, cancel := newBusFixture(t)
	defer cancel()

	pub.AnimalUpdated(context.Background(), 7)

	waitSignal(t, inv.notify)
	waitSignal(t, inv.notify)
	pats := inv.got()
	if len(pats) != 2 || pats[0] != cache.PatternAnimalLists || pats[1] != cache.AnimalKey(7) {
		t.Fatalf("invalidated = %v", pats)
	}
}

func TestBus_AdoptionApproved_ForwardsPush(t *testing.T) {
	pub, inv, psh, cancel := newBusFixture(t)
	defer cancel()

	pub.AdoptionApproved(context.Background(), 11, 42, 7)

	waitSignal(t, psh.notify)
	psh.mu.Lock()
	users := append([]uint(nil), psh.users...)
	psh.mu.Unlock()
	if len(users) != 1 || users[0] != 42 {
		t.Fatalf("forwarded to %v; want [42]", users)
	}

	// Adoption events also invalidate the animal caches.
	waitSignal(t, inv.notify)
	if len(inv.got()) == 0 {
		t.Fatalf("adoption event must invalidate caches")
	}
}

func TestBus_NilClientIsNoop(t *testing.T) {
	pub := NewPublisher(nil)
	// Must not panic.
	pub.AnimalUpdated(context.Background(), 1)
	pub.AdoptionRejected(context.Background(), 1, 2, 3, "r")

	sub := NewSubscriber(nil, nil, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	sub.Run(ctx) // returns immediately
}
