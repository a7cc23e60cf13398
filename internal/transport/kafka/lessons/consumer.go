package lessons

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"tutordesk/internal/domain/lessons"
	"tutordesk/internal/domain/payroll"
	"tutordesk/internal/domain/rates"
	"tutordesk/internal/platform/metrics"
)

const (
	outcomeAdded     = "added"
	outcomeDuplicate = "duplicate"
	outcomeRejected  = "rejected"
	outcomeFailed    = "failed"
)

type Reader interface {
	FetchMessage(ctx context.Context) (kafkago.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafkago.Message) error
	Close() error
}

type Recorder interface {
	Record(ctx context.Context, lesson lessons.Completed) (payroll.Payslip, bool, error)
}

type Consumer struct {
	reader     Reader
	recorder   Recorder
	metrics    *metrics.Collector
	log        *slog.Logger
	retryDelay time.Duration
	maxDelay   time.Duration
}

type Option func(*Consumer)

// WithRetryBackoff sets the first and the largest wait between attempts at a message that
// failed transiently.
func WithRetryBackoff(initial, maxDelay time.Duration) Option {
	return func(c *Consumer) {
		c.retryDelay = initial
		c.maxDelay = maxDelay
	}
}

func NewReader(brokers []string, topic, groupID string) *kafkago.Reader {
	return kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:        brokers,
		Topic:          topic,
		GroupID:        groupID,
		CommitInterval: 0,
		StartOffset:    kafkago.FirstOffset,
	})
}

func NewConsumer(reader Reader, recorder Recorder, collector *metrics.Collector, logger *slog.Logger, opts ...Option) *Consumer {
	if logger == nil {
		logger = slog.Default()
	}
	c := &Consumer{
		reader:     reader,
		recorder:   recorder,
		metrics:    collector,
		log:        logger.With("component", "kafka.lessons"),
		retryDelay: 500 * time.Millisecond,
		maxDelay:   30 * time.Second,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Run consumes until ctx is cancelled. A message that fails transiently is retried with
// backoff before the next one is fetched, since committing a later offset would cover it.
func (c *Consumer) Run(ctx context.Context) {
	c.log.Info("lesson consumer started")
	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				c.log.Info("lesson consumer stopped")
				return
			}
			c.log.Error("fetch lesson message failed", "err", err)
			continue
		}

		if !c.process(ctx, msg) {
			c.log.Info("lesson consumer stopped", "pendingOffset", msg.Offset)
			return
		}
		if err := c.reader.CommitMessages(ctx, msg); err != nil {
			c.log.Error("commit lesson message failed", "offset", msg.Offset, "err", err)
		}
	}
}

// process handles msg until it may be committed. It returns false only when ctx ends first.
func (c *Consumer) process(ctx context.Context, msg kafkago.Message) bool {
	delay := c.retryDelay
	for attempt := 1; ; attempt++ {
		if c.handleMessage(ctx, msg) {
			return true
		}
		c.log.Warn("retrying lesson message", "offset", msg.Offset, "attempt", attempt, "delay", delay)
		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return false
		case <-timer.C:
		}
		delay *= 2
		if delay > c.maxDelay {
			delay = c.maxDelay
		}
	}
}

// handleMessage reports whether the offset may be committed.
func (c *Consumer) handleMessage(ctx context.Context, msg kafkago.Message) bool {
	var lesson lessons.Completed
	if err := json.Unmarshal(msg.Value, &lesson); err != nil {
		c.log.Error("decode lesson event failed", "offset", msg.Offset, "err", err)
		c.metrics.RecordEvent(outcomeRejected)
		return true
	}

	p, added, err := c.recorder.Record(ctx, lesson)
	switch {
	case err == nil && added:
		c.metrics.RecordEvent(outcomeAdded)
		c.log.Info("lesson added to payslip", "userId", lesson.UserID, "payslipId", p.ID, "lessonDate", lesson.LessonDate)
		return true
	case err == nil:
		c.metrics.RecordEvent(outcomeDuplicate)
		c.log.Debug("duplicate lesson skipped", "userId", lesson.UserID, "lessonDate", lesson.LessonDate)
		return true
	case permanent(err):
		c.metrics.RecordEvent(outcomeRejected)
		c.log.Warn("lesson event rejected", "userId", lesson.UserID, "lessonDate", lesson.LessonDate, "err", err)
		return true
	default:
		c.metrics.RecordEvent(outcomeFailed)
		c.log.Error("apply lesson event failed", "userId", lesson.UserID, "lessonDate", lesson.LessonDate, "err", err)
		return false
	}
}

// permanent errors will fail the same way on redelivery.
func permanent(err error) bool {
	return errors.Is(err, payroll.ErrInvalidInput) ||
		errors.Is(err, payroll.ErrInvalidPeriod) ||
		errors.Is(err, payroll.ErrInvalidState) ||
		errors.Is(err, rates.ErrNoRate) ||
		errors.Is(err, rates.ErrInvalidInput)
}
