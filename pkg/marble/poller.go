package marble

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/Nabla7/mujoco-experiments/internal/backoff"
	"github.com/Nabla7/mujoco-experiments/pkg/domain"
)

const (
	DefaultWaitTimeout     = 15 * time.Minute
	DefaultPollInterval    = 5 * time.Second
	DefaultMaxPollInterval = 30 * time.Second
)

// WaitOptions bounds a WaitForOperation call. Zero values take the defaults
// above.
type WaitOptions struct {
	// Timeout is the wall-clock budget before giving up on the client side.
	Timeout time.Duration
	// PollInterval is the initial delay between polls (floored at 1s).
	PollInterval time.Duration
	// MaxPollInterval caps the backoff growth.
	MaxPollInterval time.Duration
}

func (o WaitOptions) withDefaults() WaitOptions {
	if o.Timeout <= 0 {
		o.Timeout = DefaultWaitTimeout
	}
	if o.PollInterval <= 0 {
		o.PollInterval = DefaultPollInterval
	}
	if o.MaxPollInterval <= 0 {
		o.MaxPollInterval = DefaultMaxPollInterval
	}
	return o
}

// WaitForOperation polls the operation until it reaches a terminal state or
// the timeout elapses. A terminal failure returns *OperationError immediately
// regardless of remaining budget; exhausting the budget returns
// ErrDeadlineExceeded, which is distinct from the operation failing. When the
// server reports both error and response payloads on a terminal operation,
// the error wins.
func (c *Client) WaitForOperation(ctx context.Context, operationID string, opts WaitOptions) (*domain.OperationResult, error) {
	if strings.TrimSpace(operationID) == "" {
		return nil, fmt.Errorf("%w: operation id is required", ErrInvalidArgument)
	}
	opts = opts.withDefaults()

	sched := backoff.Schedule{
		Initial: opts.PollInterval,
		Factor:  backoff.DefaultFactor,
		Max:     opts.MaxPollInterval,
	}
	start := c.now()
	interval := sched.First()

	for {
		res, err := c.GetOperation(ctx, operationID)
		if err != nil {
			return nil, err
		}
		if res.Done {
			if len(res.Error) > 0 {
				return nil, &OperationError{OperationID: res.OperationID, Payload: res.Error}
			}
			return res, nil
		}

		if elapsed := c.now().Sub(start); elapsed > opts.Timeout {
			return nil, fmt.Errorf("%w: operation %s after %s",
				ErrDeadlineExceeded, operationID, elapsed.Round(time.Millisecond))
		}

		c.logger.Debug("operation pending",
			"operation_id", operationID,
			"world_id", res.WorldID(),
			"next_poll_in", interval,
		)
		if err := c.sleep(ctx, interval); err != nil {
			return nil, err
		}
		interval = sched.Next(interval)
	}
}
