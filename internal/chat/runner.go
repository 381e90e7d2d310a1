package chat

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"mintsniper/internal/observability"
)

// Backoff bounds reconnect delays of a session.
type Backoff struct {
	Initial time.Duration
	Max     time.Duration
}

// DefaultBackoff returns the default session reconnect bounds.
func DefaultBackoff() Backoff {
	return Backoff{Initial: 1 * time.Second, Max: 15 * time.Second}
}

func (b Backoff) next(current time.Duration) time.Duration {
	if current <= 0 {
		return b.Initial
	}
	current *= 2
	if current > b.Max {
		return b.Max
	}
	return current
}

// Runner drives every configured session until ctx is cancelled, pushing
// normalized messages into the shared queue. Session failures are isolated:
// transient errors reconnect with backoff, ErrUnauthorized terminates only
// the offending session.
type Runner struct {
	sessions []Session
	queue    *Queue
	backoff  Backoff
	logger   zerolog.Logger
	metrics  *observability.Metrics
}

// RunnerOptions configures a Runner.
type RunnerOptions struct {
	Sessions []Session
	Queue    *Queue
	Backoff  Backoff
	Logger   zerolog.Logger
	Metrics  *observability.Metrics
}

// NewRunner creates a Runner.
func NewRunner(opts RunnerOptions) *Runner {
	backoff := opts.Backoff
	if backoff.Initial <= 0 {
		backoff = DefaultBackoff()
	}
	return &Runner{
		sessions: opts.Sessions,
		queue:    opts.Queue,
		backoff:  backoff,
		logger:   opts.Logger.With().Str("component", "chat").Logger(),
		metrics:  opts.Metrics,
	}
}

// Run blocks until ctx is cancelled. It never returns a session error; a
// dead session is logged and counted while siblings keep running.
func (r *Runner) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	for _, s := range r.sessions {
		g.Go(func() error {
			r.runSession(ctx, s)
			return nil
		})
	}
	return g.Wait()
}

func (r *Runner) runSession(ctx context.Context, s Session) {
	info := s.Describe()
	logger := r.logger.With().
		Str("platform", string(info.Platform)).
		Str("session", info.Label).
		Logger()

	delay := time.Duration(0)
	for {
		if ctx.Err() != nil {
			return
		}

		err := r.streamOnce(ctx, s, info, logger)
		if ctx.Err() != nil {
			return
		}
		if errors.Is(err, ErrUnauthorized) {
			logger.Error().Msg("session credential revoked, giving up")
			if r.metrics != nil {
				r.metrics.SessionsFailed.WithLabelValues(string(info.Platform)).Inc()
			}
			return
		}

		logger.Warn().Err(err).Msg("session failed, reconnecting")
		if r.metrics != nil {
			r.metrics.SessionReconnects.WithLabelValues(string(info.Platform)).Inc()
		}

		delay = r.backoff.next(delay)
		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}
	}
}

// streamOnce runs one connect-and-read cycle. A nil-error return does not
// happen; the cycle always ends in an error or context cancellation.
func (r *Runner) streamOnce(ctx context.Context, s Session, info SessionInfo, logger zerolog.Logger) error {
	if err := s.Connect(ctx); err != nil {
		return err
	}
	defer s.Close()
	logger.Info().Msg("session connected")

	for {
		msg, err := s.Next(ctx)
		if err != nil {
			return err
		}

		if r.metrics != nil {
			r.metrics.MessagesReceived.WithLabelValues(string(msg.Platform)).Inc()
		}
		if !r.queue.Push(msg) {
			logger.Debug().Msg("queue full, oldest message dropped")
			if r.metrics != nil {
				r.metrics.MessagesDropped.Inc()
			}
		}
	}
}
