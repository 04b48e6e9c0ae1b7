package natscons

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/nats-io/nats.go/jetstream"
	"go.uber.org/zap"
)

type Handler func(ctx context.Context, msg jetstream.Msg) error

type Config struct {
	Durable       string
	FilterSubject string
	// Slots bounds the number of messages handled at once.
	Slots   int
	AckWait time.Duration
	MaxWait time.Duration
}

// Consumer pulls messages from a durable JetStream consumer and handles
// each in its own goroutine, acking on success and nak'ing on error.
type Consumer struct {
	cons    jetstream.Consumer
	handler Handler
	log     *zap.Logger

	maxWait  time.Duration
	maxBatch int

	slots chan struct{}

	mu     sync.Mutex
	runCtx context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewConsumer(ctx context.Context, stream jetstream.Stream, cfg Config, handler Handler, log *zap.Logger) (*Consumer, error) {
	if handler == nil {
		return nil, errors.New("handler is nil")
	}
	if cfg.Slots <= 0 {
		return nil, errors.New("slots must be > 0")
	}
	if cfg.Durable == "" {
		return nil, errors.New("durable name is empty")
	}
	if cfg.AckWait <= 0 {
		cfg.AckWait = 30 * time.Second
	}
	if cfg.MaxWait <= 0 {
		cfg.MaxWait = 2 * time.Second
	}

	cons, err := stream.CreateOrUpdateConsumer(ctx, jetstream.ConsumerConfig{
		Durable:       cfg.Durable,
		FilterSubject: cfg.FilterSubject,
		AckPolicy:     jetstream.AckExplicitPolicy,
		AckWait:       cfg.AckWait,
		MaxAckPending: cfg.Slots,
	})
	if err != nil {
		return nil, err
	}

	c := &Consumer{
		cons:     cons,
		handler:  handler,
		log:      log,
		maxWait:  cfg.MaxWait,
		maxBatch: 1,
		slots:    make(chan struct{}, cfg.Slots),
	}
	for i := 0; i < cfg.Slots; i++ {
		c.slots <- struct{}{}
	}

	return c, nil
}

// Run starts the fetch loop and returns immediately.
func (c *Consumer) Run(ctx context.Context) error {
	c.mu.Lock()
	if c.cancel != nil {
		c.mu.Unlock()
		return errors.New("consumer already running")
	}
	c.runCtx, c.cancel = context.WithCancel(ctx)
	c.wg.Add(1)
	c.mu.Unlock()

	go func() {
		defer c.wg.Done()
		c.loop()
	}()

	return nil
}

// Stop cancels the fetch loop and waits for in-flight handlers.
func (c *Consumer) Stop(ctx context.Context) error {
	c.mu.Lock()
	cancel := c.cancel
	c.cancel = nil
	c.mu.Unlock()

	if cancel != nil {
		cancel()
	}

	done := make(chan struct{})
	go func() {
		c.wg.Wait()
		close(done)
	}()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-done:
		return nil
	}
}

func (c *Consumer) loop() {
	for {
		select {
		case <-c.runCtx.Done():
			return
		case <-c.slots:
		}

		batch, err := c.cons.Fetch(c.maxBatch, jetstream.FetchMaxWait(c.maxWait))
		if err != nil {
			c.log.Debug("fetch failed", zap.Error(err))
			c.slots <- struct{}{}
			continue
		}

		got := false
		for msg := range batch.Messages() {
			got = true

			c.wg.Add(1)
			go func(m jetstream.Msg) {
				defer c.wg.Done()
				defer func() { c.slots <- struct{}{} }()

				if err := c.handler(c.runCtx, m); err != nil {
					c.log.Warn("message handling failed, requesting redelivery",
						zap.String("subject", m.Subject()),
						zap.Error(err),
					)
					_ = m.Nak()
					return
				}
				_ = m.Ack()
			}(msg)
		}

		if !got {
			c.slots <- struct{}{}
		}
	}
}
