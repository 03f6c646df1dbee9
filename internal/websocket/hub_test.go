package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taskboard/internal/docstore"
)

type fakeConn struct {
	mu       sync.Mutex
	messages [][]byte
	fail     bool
	closed   bool
}

func (c *fakeConn) WriteMessage(_ int, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.fail {
		return errors.New("broken pipe")
	}
	c.messages = append(c.messages, data)
	return nil
}

func (c *fakeConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

func (c *fakeConn) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.messages)
}

func (c *fakeConn) last() map[string]any {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out map[string]any
	_ = json.Unmarshal(c.messages[len(c.messages)-1], &out)
	return out
}

func (c *fakeConn) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

func TestHubRoutesByCollection(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	hub := NewHub()
	go hub.Run(ctx)

	tasksConn, teamsConn := &fakeConn{}, &fakeConn{}
	hub.Register <- &Client{Conn: tasksConn, Collection: docstore.Tasks}
	hub.Register <- &Client{Conn: teamsConn, Collection: docstore.Teams}

	hub.Broadcast <- Message{Collection: docstore.Tasks, Payload: []byte(`{"n":1}`)}
	require.Eventually(t, func() bool { return tasksConn.count() == 1 }, time.Second, 10*time.Millisecond)
	assert.Equal(t, 0, teamsConn.count())

	// late joiners get the latest payload straight away
	lateConn := &fakeConn{}
	hub.Register <- &Client{Conn: lateConn, Collection: docstore.Tasks}
	require.Eventually(t, func() bool { return lateConn.count() == 1 }, time.Second, 10*time.Millisecond)
}

func TestHubDropsBrokenClients(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	hub := NewHub()
	done := make(chan struct{})
	go func() {
		hub.Run(ctx)
		close(done)
	}()

	broken, healthy := &fakeConn{fail: true}, &fakeConn{}
	hub.Register <- &Client{Conn: broken, Collection: docstore.Tasks}
	hub.Register <- &Client{Conn: healthy, Collection: docstore.Tasks}
	hub.Broadcast <- Message{Collection: docstore.Tasks, Payload: []byte(`{}`)}

	require.Eventually(t, broken.isClosed, time.Second, 10*time.Millisecond)
	require.Eventually(t, func() bool { return healthy.count() == 1 }, time.Second, 10*time.Millisecond)

	cancel()
	<-done
	assert.True(t, healthy.isClosed())
}

func TestEncodeSnapshot(t *testing.T) {
	raw, err := EncodeSnapshot(docstore.Snapshot{
		Collection: docstore.Tasks,
		Documents:  []docstore.Document{{ID: "t-1", Version: 3, Data: map[string]any{"title": "x"}}},
		Stale:      true,
		Err:        docstore.ErrUnavailable,
	})
	require.NoError(t, err)

	var msg map[string]any
	require.NoError(t, json.Unmarshal(raw, &msg))
	assert.Equal(t, "snapshot", msg["type"])
	assert.Equal(t, true, msg["stale"])
	assert.Equal(t, docstore.ErrUnavailable.Error(), msg["error"])
	doc := msg["documents"].([]any)[0].(map[string]any)
	assert.Equal(t, "t-1", doc["id"])
	assert.Equal(t, float64(3), doc["version"])
}

func TestFeedBroadcastsWrites(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	notifier := docstore.NewLocalNotifier()
	store := docstore.NewNotifyingStore(docstore.NewMemoryStore(), notifier)
	hub := NewHub()
	go hub.Run(ctx)
	require.NoError(t, hub.Feed(ctx, docstore.NewSubscriptions(store, notifier), docstore.Tasks))

	conn := &fakeConn{}
	hub.Register <- &Client{Conn: conn, Collection: docstore.Tasks}

	_, err := store.Create(ctx, docstore.Tasks, "", map[string]any{"title": "live"})
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		if conn.count() == 0 {
			return false
		}
		docs, _ := conn.last()["documents"].([]any)
		return len(docs) == 1
	}, 2*time.Second, 10*time.Millisecond)
}

func TestStreamable(t *testing.T) {
	assert.True(t, Streamable(docstore.Tasks))
	assert.True(t, Streamable(docstore.Tickets))
	assert.False(t, Streamable(docstore.Accounts))
	assert.False(t, Streamable(docstore.HRFeedback))
	assert.False(t, Streamable("nope"))
}

func TestStreamOnlySendsMatchingDocuments(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	notifier := docstore.NewLocalNotifier()
	store := docstore.NewNotifyingStore(docstore.NewMemoryStore(), notifier)
	subs := docstore.NewSubscriptions(store, notifier)
	hub := NewHub()
	go hub.Run(ctx)
	require.NoError(t, hub.Feed(ctx, subs, docstore.Tasks))

	_, err := store.Create(ctx, docstore.Tasks, "", map[string]any{"title": "mine", "assigned_to": "emp-1"})
	require.NoError(t, err)
	_, err = store.Create(ctx, docstore.Tasks, "", map[string]any{"title": "theirs", "assigned_to": "emp-2", "reviewpoints": 40})
	require.NoError(t, err)

	conn := &fakeConn{}
	member := &Client{Conn: conn, Collection: docstore.Tasks}
	_, err = Stream(ctx, subs, member, docstore.Where("assigned_to", "emp-1"))
	require.NoError(t, err)
	require.True(t, hub.Join(member))

	// another write reaches the shared feed; the member still only sees its own task
	_, err = store.Create(ctx, docstore.Tasks, "", map[string]any{"title": "more", "assigned_to": "emp-2"})
	require.NoError(t, err)

	require.Eventually(t, func() bool { return conn.count() >= 2 }, 2*time.Second, 10*time.Millisecond)
	time.Sleep(50 * time.Millisecond)

	conn.mu.Lock()
	defer conn.mu.Unlock()
	for _, raw := range conn.messages {
		var msg map[string]any
		require.NoError(t, json.Unmarshal(raw, &msg))
		docs := msg["documents"].([]any)
		require.Len(t, docs, 1)
		assert.Equal(t, "emp-1", docs[0].(map[string]any)["assigned_to"])
	}
}

func TestScopedClientsSkipBroadcastAndReplay(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	hub := NewHub()
	go hub.Run(ctx)

	shared := &fakeConn{}
	require.True(t, hub.Join(&Client{Conn: shared, Collection: docstore.Tasks}))
	hub.Broadcast <- Message{Collection: docstore.Tasks, Payload: []byte(`{"n":1}`)}
	require.Eventually(t, func() bool { return shared.count() == 1 }, time.Second, 10*time.Millisecond)

	scoped := &fakeConn{}
	require.True(t, hub.Join(&Client{Conn: scoped, Collection: docstore.Tasks, Scoped: true}))
	hub.Broadcast <- Message{Collection: docstore.Tasks, Payload: []byte(`{"n":2}`)}
	require.Eventually(t, func() bool { return shared.count() == 2 }, time.Second, 10*time.Millisecond)
	assert.Equal(t, 0, scoped.count())
}

func TestJoinAndLeaveAfterShutdown(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	hub := NewHub()
	stopped := make(chan struct{})
	go func() {
		hub.Run(ctx)
		close(stopped)
	}()

	client := &Client{Conn: &fakeConn{}, Collection: docstore.Tasks}
	require.True(t, hub.Join(client))
	cancel()
	<-stopped

	returned := make(chan bool)
	go func() {
		hub.Leave(client)
		late := &fakeConn{}
		ok := hub.Join(&Client{Conn: late, Collection: docstore.Tasks})
		returned <- !ok && late.isClosed()
	}()
	select {
	case ok := <-returned:
		assert.True(t, ok)
	case <-time.After(time.Second):
		t.Fatal("Join/Leave blocked after the hub stopped")
	}
}
