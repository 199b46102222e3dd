// Package refresh reloads the restriction catalogue when the footprint
// publisher announces a change on Kafka.
package refresh

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/IBM/sarama"

	"github.com/mohammed-shakir/aoi-drawing/internal/core/observability"
	"github.com/mohammed-shakir/aoi-drawing/internal/logger"
)

// Event announces that the footprint set changed upstream. Years is
// informational; any accepted event reloads the whole set.
type Event struct {
	Version int       `json:"version"`
	Op      string    `json:"op"`
	Years   []int     `json:"years,omitempty"`
	TS      time.Time `json:"ts"`
}

func (e Event) Validate() error {
	if e.Version != 1 {
		return fmt.Errorf("unsupported version %d", e.Version)
	}
	switch e.Op {
	case "upsert", "delete", "reload":
		return nil
	default:
		return fmt.Errorf("unsupported op %q", e.Op)
	}
}

type Reloader interface {
	Reload(ctx context.Context) error
}

type Config struct {
	Brokers             []string
	Topic               string
	GroupID             string
	SessionTimeout      time.Duration
	Heartbeat           time.Duration
	RebalanceTimeout    time.Duration
	InitialOffsetOldest bool
	// RetryDelay is the pause after a failed Consume round.
	RetryDelay time.Duration
}

func (c Config) withDefaults() Config {
	if c.SessionTimeout <= 0 {
		c.SessionTimeout = 30 * time.Second
	}
	if c.Heartbeat <= 0 {
		c.Heartbeat = 3 * time.Second
	}
	if c.RebalanceTimeout <= 0 {
		c.RebalanceTimeout = 30 * time.Second
	}
	if c.RetryDelay <= 0 {
		c.RetryDelay = 2 * time.Second
	}
	return c
}

type Consumer struct {
	cfg Config
	log *slog.Logger
	cat Reloader
}

func New(cfg Config, log *slog.Logger, cat Reloader) *Consumer {
	if log == nil {
		log = slog.Default()
	}
	return &Consumer{cfg: cfg.withDefaults(), log: log, cat: cat}
}

// Start joins the consumer group and blocks until ctx is done.
func (c *Consumer) Start(ctx context.Context) error {
	if c.cat == nil {
		return errors.New("refresh: missing catalogue")
	}

	cfg := sarama.NewConfig()
	cfg.Version = sarama.V2_5_0_0
	cfg.Consumer.Group.Session.Timeout = c.cfg.SessionTimeout
	cfg.Consumer.Group.Heartbeat.Interval = c.cfg.Heartbeat
	cfg.Consumer.Group.Rebalance.Timeout = c.cfg.RebalanceTimeout
	if c.cfg.InitialOffsetOldest {
		cfg.Consumer.Offsets.Initial = sarama.OffsetOldest
	} else {
		cfg.Consumer.Offsets.Initial = sarama.OffsetNewest
	}
	cfg.Consumer.Offsets.AutoCommit.Enable = true

	group, err := sarama.NewConsumerGroup(c.cfg.Brokers, c.cfg.GroupID, cfg)
	if err != nil {
		return fmt.Errorf("create consumer group: %w", err)
	}
	defer func() { _ = group.Close() }()

	ctx = logger.WithComponent(ctx, "catalogue_refresh")
	handler := &groupHandler{process: c.ProcessOne}

	c.log.InfoContext(ctx, "catalogue refresh consumer starting",
		"brokers", c.cfg.Brokers, "topic", c.cfg.Topic, "group", c.cfg.GroupID)

	for {
		if err := group.Consume(ctx, []string{c.cfg.Topic}, handler); err != nil &&
			!errors.Is(err, context.Canceled) {
			c.log.ErrorContext(ctx, "catalogue refresh consume failed", "err", err)
			select {
			case <-ctx.Done():
			case <-time.After(c.cfg.RetryDelay):
			}
		}
		if ctx.Err() != nil {
			c.log.InfoContext(ctx, "catalogue refresh consumer shutting down")
			return nil
		}
	}
}

// ProcessOne reloads the catalogue for one message. Undecodable or
// unsupported events are dropped so they do not block the partition; a
// failed reload is returned and the offset stays unmarked.
func (c *Consumer) ProcessOne(ctx context.Context, msg *sarama.ConsumerMessage) error {
	var ev Event
	if err := json.Unmarshal(msg.Value, &ev); err != nil {
		observability.ObserveRefreshEvent("decode_error")
		c.log.WarnContext(ctx, "dropping undecodable refresh event",
			"topic", msg.Topic, "partition", msg.Partition, "offset", msg.Offset, "err", err)
		return nil
	}
	if err := ev.Validate(); err != nil {
		observability.ObserveRefreshEvent("invalid")
		c.log.WarnContext(ctx, "dropping invalid refresh event",
			"offset", msg.Offset, "err", err)
		return nil
	}

	if err := c.cat.Reload(ctx); err != nil {
		observability.ObserveRefreshEvent("reload_error")
		return fmt.Errorf("reload catalogue: %w", err)
	}
	observability.ObserveRefreshEvent("ok")
	c.log.InfoContext(ctx, "restriction catalogue refreshed",
		"op", ev.Op, "years", ev.Years, "offset", msg.Offset)
	return nil
}
