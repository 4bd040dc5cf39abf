package profile

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
)

func newRedisStore(t *testing.T) *RedisStore {
	t.Helper()
	mr := miniredis.RunT(t)
	store, err := NewRedisStore("redis://" + mr.Addr())
	if err != nil {
		t.Fatalf("NewRedisStore: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestRedisGetMissingUsesDefault(t *testing.T) {
	store := newRedisStore(t)
	rec, err := store.Get(context.Background(), "nobody")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	want := Record{Rating: DefaultRating}
	if rec != want {
		t.Fatalf("Get missing = %+v, want %+v", rec, want)
	}
}

func TestRedisRoundTrip(t *testing.T) {
	store := newRedisStore(t)
	ctx := context.Background()
	in := Record{Rating: 1216, Wins: 5, Losses: 2, GamesPlayed: 7}
	if err := store.Update(ctx, "u1", in); err != nil {
		t.Fatalf("Update: %v", err)
	}
	out, err := store.Get(ctx, "u1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if out != in {
		t.Fatalf("round trip = %+v, want %+v", out, in)
	}
}

func TestRedisBadFieldFallsBack(t *testing.T) {
	mr := miniredis.RunT(t)
	store, err := NewRedisStore("redis://" + mr.Addr())
	if err != nil {
		t.Fatalf("NewRedisStore: %v", err)
	}
	defer store.Close()

	mr.HSet("profile:u1", "rating", "garbage", "wins", "2")
	rec, err := store.Get(context.Background(), "u1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if rec.Rating != DefaultRating || rec.Wins != 2 {
		t.Fatalf("Get = %+v", rec)
	}
}

func TestRedisRequiresURL(t *testing.T) {
	if _, err := NewRedisStore("  "); err == nil {
		t.Fatal("expected error for empty url")
	}
}
