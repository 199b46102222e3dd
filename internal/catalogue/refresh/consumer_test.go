package refresh

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/IBM/sarama"
)

type fakeCatalogue struct {
	calls     atomic.Int32
	failFirst atomic.Bool
}

func (f *fakeCatalogue) Reload(context.Context) error {
	f.calls.Add(1)
	if f.failFirst.Load() {
		f.failFirst.Store(false)
		return errors.New("upstream down")
	}
	return nil
}

type sess struct {
	ctx    context.Context
	mu     sync.Mutex
	marked []int64
}

func (s *sess) Claims() map[string][]int32 { return nil }
func (s *sess) MemberID() string           { return "" }
func (s *sess) GenerationID() int32        { return 0 }
func (s *sess) MarkMessage(m *sarama.ConsumerMessage, _ string) {
	s.mu.Lock()
	s.marked = append(s.marked, m.Offset)
	s.mu.Unlock()
}
func (s *sess) ResetOffset(_ string, _ int32, _ int64, _ string) {}
func (s *sess) MarkOffset(_ string, _ int32, _ int64, _ string)  {}
func (s *sess) Context() context.Context                         { return s.ctx }
func (s *sess) Errors() <-chan error                             { return nil }
func (s *sess) Commit()                                          {}

type claim struct {
	msgs chan *sarama.ConsumerMessage
}

func (c *claim) Topic() string                            { return "restriction-updates" }
func (c *claim) Partition() int32                         { return 0 }
func (c *claim) InitialOffset() int64                     { return 0 }
func (c *claim) HighWaterMarkOffset() int64               { return 0 }
func (c *claim) Messages() <-chan *sarama.ConsumerMessage { return c.msgs }

func eventBytes(op string) []byte {
	b, _ := json.Marshal(Event{Version: 1, Op: op, Years: []int{2016}, TS: time.Now().UTC()})
	return b
}

func msg(off int64, v []byte) *sarama.ConsumerMessage {
	return &sarama.ConsumerMessage{Topic: "restriction-updates", Offset: off, Value: v}
}

func feed(msgs ...*sarama.ConsumerMessage) *claim {
	ch := make(chan *sarama.ConsumerMessage, len(msgs))
	for _, m := range msgs {
		ch <- m
	}
	close(ch)
	return &claim{msgs: ch}
}

func TestConsumeClaim_ReloadsAndMarksInOrder(t *testing.T) {
	cat := &fakeCatalogue{}
	c := New(Config{Topic: "restriction-updates"}, nil, cat)
	g := &groupHandler{process: c.ProcessOne}
	s := &sess{ctx: t.Context()}

	if err := g.ConsumeClaim(s, feed(msg(10, eventBytes("upsert")), msg(11, eventBytes("delete")))); err != nil {
		t.Fatalf("ConsumeClaim: %v", err)
	}
	if len(s.marked) != 2 || s.marked[0] != 10 || s.marked[1] != 11 {
		t.Fatalf("marked=%v want [10 11]", s.marked)
	}
	if cat.calls.Load() != 2 {
		t.Fatalf("reloads=%d want 2", cat.calls.Load())
	}
}

func TestConsumeClaim_FailedReloadLeavesOffsetUnmarked(t *testing.T) {
	cat := &fakeCatalogue{}
	cat.failFirst.Store(true)
	c := New(Config{}, nil, cat)
	g := &groupHandler{process: c.ProcessOne}
	s := &sess{ctx: t.Context()}

	m := msg(5, eventBytes("reload"))
	if err := g.ConsumeClaim(s, feed(m)); err == nil {
		t.Fatalf("expected error from failed reload")
	}
	if len(s.marked) != 0 {
		t.Fatalf("offset marked despite failure: %v", s.marked)
	}

	if err := g.ConsumeClaim(s, feed(m)); err != nil {
		t.Fatalf("redelivery: %v", err)
	}
	if len(s.marked) != 1 || s.marked[0] != 5 {
		t.Fatalf("marked=%v want [5]", s.marked)
	}
}

func TestProcessOne_DropsBadEvents(t *testing.T) {
	cat := &fakeCatalogue{}
	c := New(Config{}, nil, cat)
	ctx := context.Background()

	bad := [][]byte{
		[]byte("{not json"),
		eventBytes("truncate"),
		func() []byte { b, _ := json.Marshal(Event{Version: 2, Op: "upsert"}); return b }(),
	}
	for i, v := range bad {
		if err := c.ProcessOne(ctx, msg(int64(i), v)); err != nil {
			t.Fatalf("event %d: expected drop, got %v", i, err)
		}
	}
	if cat.calls.Load() != 0 {
		t.Fatalf("bad events must not reload; reloads=%d", cat.calls.Load())
	}
}

func TestStart_RequiresCatalogue(t *testing.T) {
	if err := New(Config{}, nil, nil).Start(context.Background()); err == nil {
		t.Fatalf("expected error without a catalogue")
	}
}
