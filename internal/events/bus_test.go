package events

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	ferrors "git.home.luguber.info/inful/calfstretch/internal/foundation/errors"
)

func receive[T any](t *testing.T, ch <-chan T) T {
	t.Helper()
	select {
	case v := <-ch:
		return v
	case <-time.After(250 * time.Millisecond):
		t.Fatal("timed out waiting for event")
	}
	var zero T
	return zero
}

func TestBus_PublishSubscribe(t *testing.T) {
	b := NewBus()
	defer b.Close()

	ch, unsubscribe := Subscribe[Advisory](b, 1)
	defer unsubscribe()

	require.NoError(t, b.Publish(context.Background(), Advisory{Kind: AdvisoryStorageDegraded}))
	assert.Equal(t, AdvisoryStorageDegraded, receive(t, ch).Kind)
}

func TestBus_InterfaceSubscriptionReceivesAllEvents(t *testing.T) {
	b := NewBus()
	defer b.Close()

	ch, unsubscribe := Subscribe[Event](b, 2)
	defer unsubscribe()

	require.NoError(t, b.Publish(context.Background(), ReminderFired{ReminderID: 1}))
	require.NoError(t, b.Publish(context.Background(), SessionCompleted{Date: "2024-01-01"}))
	assert.Equal(t, "reminder_fired", receive(t, ch).EventName())
	assert.Equal(t, "session_completed", receive(t, ch).EventName())
}

func TestBus_PublishBackpressure(t *testing.T) {
	b := NewBus()
	defer b.Close()

	_, unsubscribe := Subscribe[Advisory](b, 0)
	defer unsubscribe()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	err := b.Publish(ctx, Advisory{})
	require.Error(t, err)
	assert.True(t, ferrors.HasCategory(err, ferrors.CategoryRuntime))
}

func TestBus_PublishReachesOtherSubscribersAfterFailure(t *testing.T) {
	b := NewBus()
	defer b.Close()

	_, unsubBlocked := Subscribe[Advisory](b, 0)
	defer unsubBlocked()
	ok, unsubOK := Subscribe[Advisory](b, 1)
	defer unsubOK()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	require.Error(t, b.Publish(ctx, Advisory{Message: "x"}))
	assert.Equal(t, "x", receive(t, ok).Message)
}

func TestBus_OfferDropsWhenFull(t *testing.T) {
	b := NewBus()
	defer b.Close()

	ch, unsubscribe := Subscribe[LedgerChanged](b, 1)
	defer unsubscribe()

	n, err := b.Offer(LedgerChanged{Streak: 1})
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	n, err = b.Offer(LedgerChanged{Streak: 2})
	require.NoError(t, err)
	assert.Equal(t, 0, n)
	assert.Equal(t, uint64(1), b.Dropped())

	assert.Equal(t, 1, receive(t, ch).Streak)
}

func TestBus_Close(t *testing.T) {
	b := NewBus()
	ch, _ := Subscribe[Advisory](b, 1)
	b.Close()

	_, ok := <-ch
	assert.False(t, ok, "channel closed on bus close")

	err := b.Publish(context.Background(), Advisory{})
	require.Error(t, err)
	_, err = b.Offer(Advisory{})
	require.Error(t, err)

	late, _ := Subscribe[Advisory](b, 1)
	_, ok = <-late
	assert.False(t, ok, "subscribing to a closed bus yields a closed channel")
}

func TestBus_Unsubscribe(t *testing.T) {
	b := NewBus()
	defer b.Close()

	ch, unsubscribe := Subscribe[Advisory](b, 1)
	assert.Equal(t, 1, SubscriberCount[Advisory](b))
	unsubscribe()
	unsubscribe()
	assert.Equal(t, 0, SubscriberCount[Advisory](b))
	_, ok := <-ch
	assert.False(t, ok)
}

func TestBus_RejectsNil(t *testing.T) {
	b := NewBus()
	defer b.Close()
	require.Error(t, b.Publish(context.Background(), nil))
	_, err := b.Offer(nil)
	require.Error(t, err)
}

func TestBus_ConcurrentOfferAndUnsubscribe(t *testing.T) {
	b := NewBus()
	defer b.Close()

	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, unsubscribe := Subscribe[Advisory](b, 1)
			for range 50 {
				_, _ = b.Offer(Advisory{})
			}
			unsubscribe()
		}()
	}
	wg.Wait()
	assert.Equal(t, 0, SubscriberCount[Advisory](b))
}

func TestBus_PublishFillsBuffersAfterContextDone(t *testing.T) {
	b := NewBus()
	defer b.Close()

	ch, unsubscribe := Subscribe[Advisory](b, 1)
	defer unsubscribe()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	require.NoError(t, b.Publish(ctx, Advisory{Message: "queued"}))
	assert.Equal(t, "queued", receive(t, ch).Message)
}
