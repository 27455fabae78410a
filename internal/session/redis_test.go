package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/jkindrix/fitai/internal/config"
	"github.com/jkindrix/fitai/internal/domain"
)

func newRedisTestStore(t *testing.T, ttl time.Duration) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	store := NewRedisStoreWithClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}), ttl)
	t.Cleanup(func() { store.Close() })
	return store, mr
}

func TestSessionKey(t *testing.T) {
	id := uuid.MustParse("6f1c2b9e-3a4d-4e5f-8a7b-1c2d3e4f5a6b")
	if got := sessionKey(id); got != "fitai:session:6f1c2b9e-3a4d-4e5f-8a7b-1c2d3e4f5a6b" {
		t.Errorf("sessionKey() = %q", got)
	}
}

func TestNewRedisStore(t *testing.T) {
	store := NewRedisStore(&config.RedisConfig{Addr: "localhost:6379", DB: 2}, 30*time.Minute)
	defer store.Close()

	opts := store.client.Options()
	if opts.Addr != "localhost:6379" || opts.DB != 2 {
		t.Errorf("options = %s/%d", opts.Addr, opts.DB)
	}
	if store.ttl != 30*time.Minute {
		t.Errorf("ttl = %s", store.ttl)
	}
}

func TestRedisStore_SweepIsNoop(t *testing.T) {
	// Points at nothing; Sweep must not touch the network.
	store := NewRedisStoreWithClient(redis.NewClient(&redis.Options{Addr: "127.0.0.1:1"}), time.Minute)
	defer store.Close()

	n, err := store.Sweep(context.Background())
	if n != 0 || err != nil {
		t.Errorf("Sweep() = %d, %v", n, err)
	}
}

func TestRedisStore_PutGet(t *testing.T) {
	store, _ := newRedisTestStore(t, 30*time.Minute)
	ctx := context.Background()

	s := domain.NewSession(testStart)
	s.Phase = domain.PhaseQualifying
	s.StepIndex = 2
	s.Lead[domain.FieldGoal] = "🔥 Weight Loss"
	s.Lead[domain.FieldExperience] = "Beginner"
	s.Append(domain.NewMessage(domain.RoleUser, "🔥 Weight Loss", testStart.Add(time.Second)))
	s.Append(domain.NewMessage(domain.RoleAssistant, "What's your current experience level?", testStart.Add(2*time.Second)))
	if err := store.Put(ctx, s); err != nil {
		t.Fatal(err)
	}

	got, err := store.Get(ctx, s.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.ID != s.ID || got.Phase != s.Phase || got.StepIndex != 2 {
		t.Errorf("session = %+v", got)
	}
	if got.Lead[domain.FieldGoal] != "🔥 Weight Loss" || len(got.Lead) != 2 {
		t.Errorf("lead = %v", got.Lead)
	}
	if len(got.Transcript) != 2 || got.Transcript[1].Role != domain.RoleAssistant || got.Transcript[0].Content != "🔥 Weight Loss" {
		t.Errorf("transcript = %+v", got.Transcript)
	}
	if !got.CreatedAt.Equal(s.CreatedAt) || !got.UpdatedAt.Equal(s.UpdatedAt) {
		t.Errorf("timestamps = %s/%s, want %s/%s", got.CreatedAt, got.UpdatedAt, s.CreatedAt, s.UpdatedAt)
	}
}

func TestRedisStore_GetMissing(t *testing.T) {
	store, _ := newRedisTestStore(t, time.Minute)

	if _, err := store.Get(context.Background(), uuid.New()); !errors.Is(err, ErrNotFound) {
		t.Errorf("error = %v, want ErrNotFound", err)
	}
}

func TestRedisStore_Expiry(t *testing.T) {
	ttl := 30 * time.Minute
	store, mr := newRedisTestStore(t, ttl)
	ctx := context.Background()

	s := domain.NewSession(testStart)
	if err := store.Put(ctx, s); err != nil {
		t.Fatal(err)
	}
	if got := mr.TTL(sessionKey(s.ID)); got != ttl {
		t.Errorf("TTL = %s, want %s", got, ttl)
	}

	mr.FastForward(20 * time.Minute)
	if err := store.Put(ctx, s); err != nil {
		t.Fatal(err)
	}
	if got := mr.TTL(sessionKey(s.ID)); got != ttl {
		t.Errorf("TTL after second Put = %s, want it refreshed to %s", got, ttl)
	}

	mr.FastForward(ttl + time.Second)
	if _, err := store.Get(ctx, s.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("error after expiry = %v, want ErrNotFound", err)
	}
}

func TestRedisStore_Delete(t *testing.T) {
	store, _ := newRedisTestStore(t, time.Minute)
	ctx := context.Background()

	s := domain.NewSession(testStart)
	if err := store.Put(ctx, s); err != nil {
		t.Fatal(err)
	}
	if err := store.Delete(ctx, s.ID); err != nil {
		t.Fatal(err)
	}
	if _, err := store.Get(ctx, s.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("error = %v, want ErrNotFound", err)
	}
}

func TestRedisStore_Len(t *testing.T) {
	store, mr := newRedisTestStore(t, time.Minute)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if err := store.Put(ctx, domain.NewSession(testStart)); err != nil {
			t.Fatal(err)
		}
	}
	if err := mr.Set("other:key", "x"); err != nil {
		t.Fatal(err)
	}

	n, err := store.Len(ctx)
	if err != nil || n != 3 {
		t.Errorf("Len() = %d, %v, want 3", n, err)
	}
}

func TestRedisStore_CorruptValue(t *testing.T) {
	store, mr := newRedisTestStore(t, time.Minute)
	id := uuid.New()
	if err := mr.Set(sessionKey(id), "{not json"); err != nil {
		t.Fatal(err)
	}

	_, err := store.Get(context.Background(), id)
	if err == nil || errors.Is(err, ErrNotFound) {
		t.Errorf("error = %v, want a decode error", err)
	}
}

func TestRedisStore_ServerDown(t *testing.T) {
	store, mr := newRedisTestStore(t, time.Minute)
	ctx := context.Background()
	if err := store.Ping(ctx); err != nil {
		t.Fatalf("Ping() = %v", err)
	}

	mr.Close()
	if err := store.Ping(ctx); err == nil {
		t.Error("Ping() succeeded with the server down")
	}
	if _, err := store.Get(ctx, uuid.New()); err == nil || errors.Is(err, ErrNotFound) {
		t.Errorf("Get() error = %v, want a connection error", err)
	}
}
