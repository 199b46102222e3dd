package drawevents

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/IBM/sarama"
	"github.com/IBM/sarama/mocks"

	"github.com/mohammed-shakir/aoi-drawing/internal/session"
)

func TestChanged_PublishesJSONKeyedBySession(t *testing.T) {
	mp := mocks.NewAsyncProducer(t, nil)
	at := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	mp.ExpectInputWithMessageCheckerFunctionAndSucceed(func(msg *sarama.ProducerMessage) error {
		if msg.Topic != "aoi-draw" {
			return errors.New("wrong topic " + msg.Topic)
		}
		key, _ := msg.Key.Encode()
		if string(key) != "s-1" {
			return errors.New("wrong key " + string(key))
		}
		b, err := msg.Value.Encode()
		if err != nil {
			return err
		}
		var ev Event
		if err := json.Unmarshal(b, &ev); err != nil {
			return err
		}
		if ev.Op != "committed" || ev.Parameter != "Field" || len(ev.Polygons) != 1 || ev.AreaHa != 1.5 || !ev.TS.Equal(at) {
			return errors.New("unexpected event " + string(b))
		}
		return nil
	})

	p := NewPublisher(mp, "aoi-draw", 4, nil)
	p.Changed(context.Background(), session.Change{
		SessionID:    "s-1",
		Op:           "committed",
		Parameter:    "Field",
		Polygons:     [][][]float64{{{55, 37}, {55.01, 37}, {55, 37.01}}},
		AreaHectares: 1.5,
		At:           at,
	})
	if err := p.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
}

func TestProducerErrors_AreConsumed(t *testing.T) {
	mp := mocks.NewAsyncProducer(t, nil)
	mp.ExpectInputAndFail(sarama.ErrOutOfBrokers)
	mp.ExpectInputAndSucceed()

	p := NewPublisher(mp, "aoi-draw", 4, nil)
	p.Publish(Event{SessionID: "a", Op: "committed"})
	p.Publish(Event{SessionID: "b", Op: "deleted"})
	if err := p.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
}

func TestPublish_DropsWhenQueueFull(t *testing.T) {
	p := &Publisher{events: make(chan Event, 1)}
	if !p.Publish(Event{Op: "committed"}) {
		t.Fatalf("first event should be queued")
	}
	if p.Publish(Event{Op: "committed"}) {
		t.Fatalf("full queue must drop, not block")
	}
}

func TestPublish_AfterCloseIsDropped(t *testing.T) {
	mp := mocks.NewAsyncProducer(t, nil)
	p := NewPublisher(mp, "aoi-draw", 1, nil)
	if err := p.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if p.Publish(Event{Op: "committed"}) {
		t.Fatalf("publish after close must be dropped")
	}
	if err := p.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}
}
