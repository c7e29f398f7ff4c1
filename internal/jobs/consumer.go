package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"wanderplan/internal/middleware"
	"wanderplan/internal/models"
	"wanderplan/internal/service"

	amqp "github.com/rabbitmq/amqp091-go"
)

const (
	prefetch   = 16
	jobTimeout = 5 * time.Minute
)

// ErrBadJob marks a message that can never be processed.
var ErrBadJob = errors.New("malformed rename job")

// Propagator runs one name cascade.
type Propagator interface {
	Propagate(ctx context.Context, userID uint, name string) (*service.CascadeResult, error)
}

// Profiles looks up the username a user holds when their job runs.
type Profiles interface {
	GetByUserID(ctx context.Context, userID uint) (*models.UserProfile, error)
}

// Consumer applies rename jobs from the queue.
type Consumer struct {
	cascade  Propagator
	profiles Profiles
}

// NewConsumer builds a consumer. With profiles set, each job propagates the
// user's current username instead of the one it was enqueued with, so a
// requeued job never restores an older name.
func NewConsumer(cascade Propagator, profiles Profiles) *Consumer {
	return &Consumer{cascade: cascade, profiles: profiles}
}

// Handle decodes and runs one job.
func (c *Consumer) Handle(ctx context.Context, body []byte) (*service.CascadeResult, error) {
	var job RenameJob
	if err := json.Unmarshal(body, &job); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadJob, err)
	}
	if job.UserID == 0 || job.Username == "" {
		return nil, fmt.Errorf("%w: user_id and username are required", ErrBadJob)
	}
	name, err := c.currentName(ctx, job)
	if err != nil {
		return nil, err
	}
	return c.cascade.Propagate(ctx, job.UserID, name)
}

func (c *Consumer) currentName(ctx context.Context, job RenameJob) (string, error) {
	if c.profiles == nil {
		return job.Username, nil
	}
	profile, err := c.profiles.GetByUserID(ctx, job.UserID)
	if err != nil {
		if models.StatusFor(err) == http.StatusNotFound {
			return "", fmt.Errorf("%w: user %d no longer exists", ErrBadJob, job.UserID)
		}
		return "", err
	}
	if profile.Username != job.Username {
		middleware.Logger.InfoContext(ctx, "rename job superseded",
			slog.Uint64("user_id", uint64(job.UserID)),
			slog.String("job_username", job.Username),
			slog.String("current_username", profile.Username),
		)
	}
	return profile.Username, nil
}

// Run acks each delivery after a successful cascade. Malformed jobs are
// dropped; failed jobs are requeued once.
func (c *Consumer) Run(ctx context.Context, msgs <-chan amqp.Delivery) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-msgs:
			if !ok {
				return nil
			}
			c.process(ctx, msg)
		}
	}
}

func (c *Consumer) process(ctx context.Context, msg amqp.Delivery) {
	jobCtx, cancel := context.WithTimeout(ctx, jobTimeout)
	defer cancel()

	res, err := c.Handle(jobCtx, msg.Body)
	switch {
	case err == nil:
		middleware.Logger.InfoContext(ctx, "rename job done",
			slog.Int64("author_rows", res.AuthorRows),
			slog.Int("documents", res.Documents),
		)
		_ = msg.Ack(false)
	case errors.Is(err, ErrBadJob):
		middleware.Logger.ErrorContext(ctx, "bad message", slog.String("error", err.Error()))
		_ = msg.Nack(false, false)
	default:
		middleware.Logger.ErrorContext(ctx, "rename job failed",
			slog.Bool("redelivered", msg.Redelivered),
			slog.String("error", err.Error()),
		)
		_ = msg.Nack(false, !msg.Redelivered)
	}
}

// Consume dials url, subscribes to queue and runs c until ctx is done.
func Consume(ctx context.Context, url, queue string, c *Consumer) error {
	conn, err := amqp.Dial(url)
	if err != nil {
		return fmt.Errorf("amqp dial: %w", err)
	}
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("amqp channel: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(prefetch, 0, false); err != nil {
		return fmt.Errorf("qos: %w", err)
	}
	if err := declareQueue(ch, queue); err != nil {
		return err
	}
	msgs, err := ch.Consume(queue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("consume: %w", err)
	}

	middleware.Logger.Info("cascade worker consuming", slog.String("queue", queue))
	return c.Run(ctx, msgs)
}
