package memstore

import (
	"context"
	"testing"
	"time"
)

func TestStore_CopiesValues(t *testing.T) {
	s := New(4, 0)
	ctx := context.Background()

	buf := []byte("abc")
	if err := s.Set(ctx, "k", buf, 0); err != nil {
		t.Fatalf("Set: %v", err)
	}
	buf[0] = 'z'

	got, ok, err := s.Get(ctx, "k")
	if err != nil || !ok || string(got) != "abc" {
		t.Fatalf("got=%q ok=%v err=%v", got, ok, err)
	}
	got[1] = 'z'
	again, _, _ := s.Get(ctx, "k")
	if string(again) != "abc" {
		t.Fatalf("stored value mutated through returned slice: %q", again)
	}
}

func TestStore_EvictsOldest(t *testing.T) {
	s := New(2, 0)
	ctx := context.Background()
	_ = s.Set(ctx, "a", []byte("1"), 0)
	_ = s.Set(ctx, "b", []byte("2"), 0)
	_ = s.Set(ctx, "c", []byte("3"), 0)

	if _, ok, _ := s.Get(ctx, "a"); ok {
		t.Fatalf("expected a to be evicted")
	}
	if s.Len() != 2 {
		t.Fatalf("len=%d want 2", s.Len())
	}
}

func TestStore_Expires(t *testing.T) {
	s := New(4, 20*time.Millisecond)
	ctx := context.Background()
	_ = s.Set(ctx, "k", []byte("v"), 0)
	time.Sleep(60 * time.Millisecond)
	if _, ok, _ := s.Get(ctx, "k"); ok {
		t.Fatalf("expected expiry")
	}
}

func TestStore_DelAndCanceledContext(t *testing.T) {
	s := New(4, 0)
	ctx := context.Background()
	_ = s.Set(ctx, "k", []byte("v"), 0)
	if err := s.Del(ctx, "k", "missing"); err != nil {
		t.Fatalf("Del: %v", err)
	}
	if _, ok, _ := s.Get(ctx, "k"); ok {
		t.Fatalf("expected k deleted")
	}

	cctx, cancel := context.WithCancel(ctx)
	cancel()
	if err := s.Set(cctx, "k", []byte("v"), 0); err == nil {
		t.Fatalf("expected canceled context error")
	}
}

func TestStore_MGetReturnsOnlyFound(t *testing.T) {
	s := New(4, 0)
	ctx := context.Background()
	_ = s.Set(ctx, "a", []byte("1"), 0)
	_ = s.Set(ctx, "c", []byte("3"), 0)

	got, err := s.MGet(ctx, []string{"a", "b", "c"})
	if err != nil {
		t.Fatalf("MGet: %v", err)
	}
	if len(got) != 2 || string(got["a"]) != "1" || string(got["c"]) != "3" {
		t.Fatalf("unexpected result: %v", got)
	}

	cctx, cancel := context.WithCancel(ctx)
	cancel()
	if _, err := s.MGet(cctx, []string{"a"}); err == nil {
		t.Fatalf("expected error on canceled context")
	}
}
