package mail

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/admissions-api/pkg/jobs"
)

// Dispatcher hands messages to a background queue so request handlers never
// wait on the mail provider.
type Dispatcher struct {
	sender Sender
	queue  *jobs.Queue[Message]
	logger *zap.Logger
}

// DispatcherConfig tunes the delivery workers.
type DispatcherConfig struct {
	Workers    int
	Retries    int
	RetryDelay time.Duration
}

// NewDispatcher wires sender behind a jobs queue.
func NewDispatcher(sender Sender, cfg DispatcherConfig, logger *zap.Logger) *Dispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	d := &Dispatcher{sender: sender, logger: logger}
	d.queue = jobs.NewQueue("mail", d.deliver, jobs.QueueConfig{
		Workers:    cfg.Workers,
		MaxRetries: cfg.Retries,
		RetryDelay: cfg.RetryDelay,
		Logger:     logger,
	})
	return d
}

// Start launches delivery workers bound to ctx.
func (d *Dispatcher) Start(ctx context.Context) { d.queue.Start(ctx) }

// Stop halts the workers.
func (d *Dispatcher) Stop() { d.queue.Stop() }

// Enqueue validates msg and schedules it for delivery.
func (d *Dispatcher) Enqueue(msg Message) error {
	if err := msg.Validate(); err != nil {
		return err
	}
	id, err := d.queue.Enqueue(msg)
	if err != nil {
		return err
	}
	d.logger.Debug("email queued", zap.String("job_id", id), zap.String("to", msg.ToEmail))
	return nil
}

func (d *Dispatcher) deliver(ctx context.Context, job jobs.Job[Message]) error {
	sendCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()
	return d.sender.Send(sendCtx, job.Payload)
}
