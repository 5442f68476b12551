// Package events is the typed in-process bus the tracker publishes state
// snapshots, completions and advisories on.
package events

import (
	"context"
	"errors"
	"reflect"
	"sync"
	"sync/atomic"

	ferrors "git.home.luguber.info/inful/calfstretch/internal/foundation/errors"
)

// Bus is a typed, bounded, non-durable publish/subscribe bus.
// Publish waits for every subscriber (or ctx); Offer never waits and drops the
// event for subscribers whose buffer is full.
type Bus struct {
	mu        sync.RWMutex
	subs      map[reflect.Type]map[uint64]*subscriber
	nextID    atomic.Uint64
	dropped   atomic.Uint64
	isClosed  atomic.Bool
	closeOnce sync.Once
}

type subscriber struct {
	send  func(ctx context.Context, evt any, wait bool) (bool, error)
	close func()
}

func NewBus() *Bus {
	return &Bus{subs: make(map[reflect.Type]map[uint64]*subscriber)}
}

// Subscribe registers a subscription for events of type T. An interface T
// receives every event whose concrete type implements it.
func Subscribe[T any](b *Bus, buffer int) (<-chan T, func()) {
	eventType := reflect.TypeFor[T]()
	ch := make(chan T, buffer)

	var closeOnce sync.Once
	closeChannel := func() { closeOnce.Do(func() { close(ch) }) }

	if b.isClosed.Load() {
		closeChannel()
		return ch, func() {}
	}

	id := b.nextID.Add(1)
	var unsubOnce sync.Once
	unsubscribe := func() {
		unsubOnce.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			if typeSubs, ok := b.subs[eventType]; ok {
				delete(typeSubs, id)
				if len(typeSubs) == 0 {
					delete(b.subs, eventType)
				}
			}
			closeChannel()
		})
	}

	sub := &subscriber{
		send: func(ctx context.Context, evt any, wait bool) (bool, error) {
			v, ok := evt.(T)
			if !ok {
				return false, ferrors.InternalError("event type mismatch").
					WithContext("expected", eventType.String()).
					WithContext("actual", reflect.TypeOf(evt).String()).
					Build()
			}
			// Buffer space wins over a done ctx.
			select {
			case ch <- v:
				return true, nil
			default:
			}
			if !wait {
				return false, nil
			}
			select {
			case ch <- v:
				return true, nil
			case <-ctx.Done():
				return false, ferrors.WrapError(ctx.Err(), ferrors.CategoryRuntime, "event publish canceled").
					WithContext("event_type", reflect.TypeOf(evt).String()).
					Build()
			}
		},
		close: closeChannel,
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.isClosed.Load() {
		closeChannel()
		return ch, func() {}
	}
	if b.subs[eventType] == nil {
		b.subs[eventType] = make(map[uint64]*subscriber)
	}
	b.subs[eventType][id] = sub
	return ch, unsubscribe
}

// SubscriberCount returns the number of active subscribers for events of type T.
func SubscriberCount[T any](b *Bus) int {
	if b == nil {
		return 0
	}
	eventType := reflect.TypeFor[T]()
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs[eventType])
}

// Dropped reports how many deliveries Offer skipped because a buffer was full.
func (b *Bus) Dropped() uint64 { return b.dropped.Load() }

// Publish delivers evt to all matching subscribers, waiting on each until it
// accepts the event or ctx is done. A subscriber with buffer space always
// receives it. Every subscriber is attempted; failures are joined.
func (b *Bus) Publish(ctx context.Context, evt any) error {
	if ctx == nil {
		return ferrors.ValidationError("context cannot be nil").Build()
	}
	b.mu.RLock()
	targets, err := b.targets(evt)
	b.mu.RUnlock()
	if err != nil {
		return err
	}
	var errs []error
	for _, s := range targets {
		if _, err := s.send(ctx, evt, true); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Offer delivers evt to every matching subscriber that has buffer space and
// returns the number of subscribers that received it. Sends happen under the
// read lock so a concurrent unsubscribe cannot close a channel mid-send.
func (b *Bus) Offer(evt any) (int, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	targets, err := b.targets(evt)
	if err != nil {
		return 0, err
	}
	delivered := 0
	for _, s := range targets {
		ok, err := s.send(context.Background(), evt, false)
		if err != nil {
			return delivered, err
		}
		if ok {
			delivered++
		} else {
			b.dropped.Add(1)
		}
	}
	return delivered, nil
}

// targets must be called with b.mu held.
func (b *Bus) targets(evt any) ([]*subscriber, error) {
	if evt == nil {
		return nil, ferrors.ValidationError("event cannot be nil").Build()
	}
	if b.isClosed.Load() {
		return nil, ferrors.RuntimeError("event bus is closed").Warning().Build()
	}

	evtType := reflect.TypeOf(evt)
	var targets []*subscriber
	for subType, typeSubs := range b.subs {
		match := subType == evtType
		if !match && subType.Kind() == reflect.Interface {
			match = evtType.Implements(subType)
		}
		if !match {
			continue
		}
		for _, s := range typeSubs {
			targets = append(targets, s)
		}
	}
	return targets, nil
}

// Close closes the bus and all subscription channels.
func (b *Bus) Close() {
	b.closeOnce.Do(func() {
		b.isClosed.Store(true)

		b.mu.Lock()
		var toClose []*subscriber
		for _, typeSubs := range b.subs {
			for _, s := range typeSubs {
				toClose = append(toClose, s)
			}
		}
		b.subs = make(map[reflect.Type]map[uint64]*subscriber)
		b.mu.Unlock()

		for _, s := range toClose {
			s.close()
		}
	})
}
