package docstore

import (
	"context"
	"time"

	"go.uber.org/zap"

	"taskboard/pkg/logger"
)

// Snapshot is the full current result set of a subscription. Stale snapshots
// repeat the last good result after a failed re-query; Err says why.
type Snapshot struct {
	Collection string
	Documents  []Document
	Stale      bool
	Err        error
}

// Subscriptions turns the change feed into per-listener snapshots.
type Subscriptions struct {
	store    Store
	notifier Notifier

	// RetryInterval is how long to wait before re-listening after the feed drops.
	RetryInterval time.Duration
}

func NewSubscriptions(store Store, notifier Notifier) *Subscriptions {
	return &Subscriptions{store: store, notifier: notifier, RetryInterval: time.Second}
}

type subscription struct {
	collection string
	filters    []Filter
	onSnapshot func(Snapshot)
	onError    func(error)
	last       []Document
}

// Subscribe delivers the current result set immediately and again after every
// write to collection. onError runs on every failed re-query, right before
// the stale snapshot. Callbacks of one subscription never run concurrently.
// The subscription ends when ctx is done or the returned cancel is called.
func (s *Subscriptions) Subscribe(
	ctx context.Context,
	collection string,
	filters []Filter,
	onSnapshot func(Snapshot),
	onError func(error),
) (context.CancelFunc, error) {
	if err := checkCollection(collection); err != nil {
		return nil, err
	}
	if onError == nil {
		onError = func(error) {}
	}

	ctx, cancel := context.WithCancel(ctx)
	// listen before the first query so no write in between is missed
	changes, err := s.notifier.Listen(ctx)
	if err != nil {
		cancel()
		return nil, err
	}

	sub := &subscription{collection: collection, filters: filters, onSnapshot: onSnapshot, onError: onError}
	go s.run(ctx, sub, changes)
	return cancel, nil
}

func (s *Subscriptions) run(ctx context.Context, sub *subscription, changes <-chan Change) {
	s.deliver(ctx, sub)
	for {
		select {
		case <-ctx.Done():
			return
		case ch, ok := <-changes:
			if !ok {
				if ctx.Err() != nil {
					return
				}
				s.fail(ctx, sub, ErrUnavailable)
				if changes = s.relisten(ctx); changes == nil {
					return
				}
				s.deliver(ctx, sub)
				continue
			}
			if ch.Collection != sub.collection {
				continue
			}
			drain(changes)
			s.deliver(ctx, sub)
		}
	}
}

func (s *Subscriptions) deliver(ctx context.Context, sub *subscription) {
	docs, err := s.store.Query(ctx, sub.collection, sub.filters...)
	if ctx.Err() != nil {
		return
	}
	if err != nil {
		s.fail(ctx, sub, err)
		return
	}
	sub.last = docs
	sub.onSnapshot(Snapshot{Collection: sub.collection, Documents: docs})
}

func (s *Subscriptions) fail(ctx context.Context, sub *subscription, err error) {
	if ctx.Err() != nil {
		return
	}
	logger.ErrorLogger.Error("Subscription query failed",
		zap.String("collection", sub.collection), zap.Error(err))
	sub.onError(err)
	last := sub.last
	if last == nil {
		last = []Document{}
	}
	sub.onSnapshot(Snapshot{Collection: sub.collection, Documents: last, Stale: true, Err: err})
}

func (s *Subscriptions) relisten(ctx context.Context) <-chan Change {
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(s.RetryInterval):
		}
		changes, err := s.notifier.Listen(ctx)
		if err == nil {
			return changes
		}
		logger.ErrorLogger.Error("Re-listen to change feed failed", zap.Error(err))
	}
}

// drain discards queued changes; the next query sees all of them anyway.
func drain(changes <-chan Change) {
	for {
		select {
		case _, ok := <-changes:
			if !ok {
				return
			}
		default:
			return
		}
	}
}
