package docstore_test

import (
	"context"
	"database/sql"
	"fmt"
	"testing"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/ory/dockertest/v3"
	"github.com/ory/dockertest/v3/docker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"taskboard/internal/docstore"
	"taskboard/internal/repository"
)

// storeContract is the behaviour every backend and decorator must share.
func storeContract(t *testing.T, store docstore.Store) {
	ctx := context.Background()

	created, err := store.Create(ctx, docstore.Tasks, "", map[string]any{
		"title":           "Quarterly report",
		"assigned_to":     "emp-7",
		"status":          "in_progress",
		"progress_status": "in_progress",
		"comments":        []any{map[string]any{"text": "started", "userName": "Ana"}},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1), created.Version)

	got, err := store.Get(ctx, docstore.Tasks, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "Quarterly report", got.Data["title"])
	assert.Equal(t, "started", got.Data["comments"].([]any)[0].(map[string]any)["text"])

	_, err = store.Create(ctx, docstore.Tasks, "", map[string]any{"title": "Other", "assigned_to": "emp-8"})
	require.NoError(t, err)

	mine, err := store.Query(ctx, docstore.Tasks, docstore.Where("assigned_to", "emp-7"))
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, created.ID, mine[0].ID)

	updated, err := store.Update(ctx, docstore.Tasks, created.ID, map[string]any{
		"status":          "completed",
		"progress_status": nil,
	}, created.Version)
	require.NoError(t, err)
	assert.Equal(t, int64(2), updated.Version)
	assert.NotContains(t, updated.Data, "progress_status")

	_, err = store.Update(ctx, docstore.Tasks, created.ID, map[string]any{"status": "pending"}, created.Version)
	assert.ErrorIs(t, err, docstore.ErrVersionConflict)

	got, err = store.Get(ctx, docstore.Tasks, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "completed", got.Data["status"])

	require.NoError(t, store.Delete(ctx, docstore.Tasks, created.ID))
	_, err = store.Get(ctx, docstore.Tasks, created.ID)
	assert.ErrorIs(t, err, docstore.ErrNotFound)

	// filters compare scalars only; a stored array never matches one of its elements
	team, err := store.Create(ctx, docstore.Teams, "", map[string]any{"teamName": "Core", "members": []string{"emp-7", "emp-8"}, "teamLead": "emp-7"})
	require.NoError(t, err)
	teams, err := store.Query(ctx, docstore.Teams, docstore.Where("members", "emp-7"))
	require.NoError(t, err)
	assert.Empty(t, teams)
	_, err = store.Query(ctx, docstore.Teams, docstore.Where("members", []string{"emp-7"}))
	assert.ErrorIs(t, err, docstore.ErrInvalidDocument)
	teams, err = store.Query(ctx, docstore.Teams, docstore.Where("teamLead", "emp-7"))
	require.NoError(t, err)
	require.Len(t, teams, 1)
	assert.Equal(t, team.ID, teams[0].ID)

	_, err = store.Create(ctx, docstore.HRFeedback, "emp-7_2026-10-19", map[string]any{"score": 70})
	require.NoError(t, err)
	_, err = store.Create(ctx, docstore.HRFeedback, "emp-7_2026-10-19", map[string]any{"score": 70})
	assert.ErrorIs(t, err, docstore.ErrAlreadyExists)
}

func TestMemoryStoreContract(t *testing.T) {
	storeContract(t, docstore.NewMemoryStore())
}

func dockerPool(t *testing.T) *dockertest.Pool {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping docker integration test in short mode")
	}
	pool, err := dockertest.NewPool("")
	if err != nil {
		t.Skipf("docker not available: %v", err)
	}
	if err := pool.Client.Ping(); err != nil {
		t.Skipf("docker not available: %v", err)
	}
	pool.MaxWait = 90 * time.Second
	return pool
}

func run(t *testing.T, pool *dockertest.Pool, opts *dockertest.RunOptions) *dockertest.Resource {
	t.Helper()
	resource, err := pool.RunWithOptions(opts, func(hc *docker.HostConfig) {
		hc.AutoRemove = true
		hc.RestartPolicy = docker.RestartPolicy{Name: "no"}
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = pool.Purge(resource) })
	return resource
}

func TestPostgresStoreContract(t *testing.T) {
	pool := dockerPool(t)
	resource := run(t, pool, &dockertest.RunOptions{
		Repository: "postgres",
		Tag:        "16-alpine",
		Env:        []string{"POSTGRES_USER=user", "POSTGRES_PASSWORD=secret", "POSTGRES_DB=taskboard_test"},
	})

	dsn := fmt.Sprintf("host=localhost port=%s user=user password=secret dbname=taskboard_test sslmode=disable",
		resource.GetPort("5432/tcp"))
	var db *sql.DB
	require.NoError(t, pool.Retry(func() error {
		var err error
		db, err = sql.Open("postgres", dsn)
		if err != nil {
			return err
		}
		return db.Ping()
	}))
	require.NoError(t, repository.CreateTableIfNotExists(db))

	store := docstore.NewPostgresStore(db)
	defer store.Close()
	storeContract(t, store)
}

func TestMongoStoreContract(t *testing.T) {
	pool := dockerPool(t)
	resource := run(t, pool, &dockertest.RunOptions{Repository: "mongo", Tag: "7"})

	uri := fmt.Sprintf("mongodb://localhost:%s", resource.GetPort("27017/tcp"))
	var client *mongo.Client
	require.NoError(t, pool.Retry(func() error {
		var err error
		client, err = mongo.Connect(context.Background(), options.Client().ApplyURI(uri))
		if err != nil {
			return err
		}
		return client.Ping(context.Background(), nil)
	}))

	store := docstore.NewMongoStore(client, "taskboard_test")
	defer store.Close()
	storeContract(t, store)
}

func TestRedisCacheAndNotifier(t *testing.T) {
	pool := dockerPool(t)
	resource := run(t, pool, &dockertest.RunOptions{Repository: "redis", Tag: "7-alpine"})

	client := redis.NewClient(&redis.Options{Addr: "localhost:" + resource.GetPort("6379/tcp")})
	defer client.Close()
	require.NoError(t, pool.Retry(func() error {
		return client.Ping(context.Background()).Err()
	}))

	t.Run("cache", func(t *testing.T) {
		cached := docstore.NewCachedStore(docstore.NewMemoryStore(), client, time.Minute)
		storeContract(t, cached)
	})

	t.Run("subscriptions over redis", func(t *testing.T) {
		ctx := context.Background()
		notifier := docstore.NewRedisNotifier(client)
		store := docstore.NewNotifyingStore(docstore.NewMemoryStore(), notifier)
		subs := docstore.NewSubscriptions(store, notifier)

		snaps := make(chan docstore.Snapshot, 4)
		cancel, err := subs.Subscribe(ctx, docstore.Projects, nil, func(s docstore.Snapshot) { snaps <- s }, nil)
		require.NoError(t, err)
		defer cancel()

		first := <-snaps
		assert.Empty(t, first.Documents)

		_, err = store.Create(ctx, docstore.Projects, "", map[string]any{"name": "Apollo"})
		require.NoError(t, err)

		select {
		case s := <-snaps:
			require.Len(t, s.Documents, 1)
			assert.Equal(t, "Apollo", s.Documents[0].Data["name"])
		case <-time.After(5 * time.Second):
			t.Fatal("no snapshot after write")
		}
	})
}
