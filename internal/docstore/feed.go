package docstore

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"taskboard/pkg/logger"
)

type Op string

const (
	OpCreate Op = "create"
	OpUpdate Op = "update"
	OpDelete Op = "delete"
)

// Change announces that one document was written.
type Change struct {
	Collection string `json:"collection"`
	ID         string `json:"id"`
	Op         Op     `json:"op"`
	Version    int64  `json:"version"`
}

// Notifier fans write notifications out to listeners. Listen's channel is
// closed when ctx is done.
type Notifier interface {
	Publish(ctx context.Context, ch Change) error
	Listen(ctx context.Context) (<-chan Change, error)
}

// listenerBuffer bounds how far a slow listener may fall behind before
// changes are dropped for it. Subscriptions re-query the whole collection on
// any change, so a dropped change is only lost if nothing newer arrives.
const listenerBuffer = 256

// LocalNotifier delivers changes to listeners in this process.
type LocalNotifier struct {
	mu        sync.Mutex
	listeners map[chan Change]struct{}
}

func NewLocalNotifier() *LocalNotifier {
	return &LocalNotifier{listeners: make(map[chan Change]struct{})}
}

func (n *LocalNotifier) Publish(_ context.Context, ch Change) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	for l := range n.listeners {
		select {
		case l <- ch:
		default:
			logger.ErrorLogger.Error("Change listener full, dropping change",
				zap.String("collection", ch.Collection), zap.String("id", ch.ID))
		}
	}
	return nil
}

func (n *LocalNotifier) Listen(ctx context.Context) (<-chan Change, error) {
	l := make(chan Change, listenerBuffer)
	n.mu.Lock()
	n.listeners[l] = struct{}{}
	n.mu.Unlock()

	go func() {
		<-ctx.Done()
		n.mu.Lock()
		delete(n.listeners, l)
		close(l)
		n.mu.Unlock()
	}()
	return l, nil
}

// ChangesChannel is the Redis pub/sub channel carrying Change messages.
const ChangesChannel = "docstore:changes"

// RedisNotifier shares changes between every API instance using the same Redis.
type RedisNotifier struct {
	client *redis.Client
}

func NewRedisNotifier(client *redis.Client) *RedisNotifier {
	return &RedisNotifier{client: client}
}

func (n *RedisNotifier) Publish(ctx context.Context, ch Change) error {
	raw, err := json.Marshal(ch)
	if err != nil {
		return err
	}
	return n.client.Publish(ctx, ChangesChannel, raw).Err()
}

func (n *RedisNotifier) Listen(ctx context.Context) (<-chan Change, error) {
	pubsub := n.client.Subscribe(ctx, ChangesChannel)
	// wait for the subscription confirmation so no publish after Listen is missed
	if _, err := pubsub.Receive(ctx); err != nil {
		pubsub.Close()
		return nil, err
	}

	out := make(chan Change, listenerBuffer)
	go func() {
		defer close(out)
		defer pubsub.Close()
		msgs := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-msgs:
				if !ok {
					return
				}
				var ch Change
				if err := json.Unmarshal([]byte(msg.Payload), &ch); err != nil {
					logger.ErrorLogger.Error("Malformed change message", zap.Error(err))
					continue
				}
				select {
				case out <- ch:
				default:
					logger.ErrorLogger.Error("Change listener full, dropping change",
						zap.String("collection", ch.Collection), zap.String("id", ch.ID))
				}
			}
		}
	}()
	return out, nil
}

// NotifyingStore publishes a Change after every successful write. A failed
// publish is logged; the write itself already happened and is not undone.
type NotifyingStore struct {
	Store
	notifier Notifier
}

func NewNotifyingStore(inner Store, notifier Notifier) *NotifyingStore {
	return &NotifyingStore{Store: inner, notifier: notifier}
}

func (s *NotifyingStore) Create(ctx context.Context, collection, id string, data map[string]any) (Document, error) {
	doc, err := s.Store.Create(ctx, collection, id, data)
	if err != nil {
		return Document{}, err
	}
	s.publish(ctx, Change{Collection: collection, ID: doc.ID, Op: OpCreate, Version: doc.Version})
	return doc, nil
}

func (s *NotifyingStore) Update(ctx context.Context, collection, id string, fields map[string]any, expectedVersion int64) (Document, error) {
	doc, err := s.Store.Update(ctx, collection, id, fields, expectedVersion)
	if err != nil {
		return Document{}, err
	}
	s.publish(ctx, Change{Collection: collection, ID: doc.ID, Op: OpUpdate, Version: doc.Version})
	return doc, nil
}

func (s *NotifyingStore) Delete(ctx context.Context, collection, id string) error {
	if err := s.Store.Delete(ctx, collection, id); err != nil {
		return err
	}
	s.publish(ctx, Change{Collection: collection, ID: id, Op: OpDelete})
	return nil
}

func (s *NotifyingStore) publish(ctx context.Context, ch Change) {
	if err := s.notifier.Publish(ctx, ch); err != nil {
		logger.ErrorLogger.Error("Error publishing change",
			zap.String("collection", ch.Collection), zap.String("id", ch.ID), zap.Error(err))
	}
}
