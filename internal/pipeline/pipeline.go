// Package pipeline runs the fixed-size worker pool that turns queued chat
// messages into dispatch decisions: pop, extract, match, dispatch.
package pipeline

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"mintsniper/internal/chat"
	"mintsniper/internal/dispatch"
	"mintsniper/internal/domain"
	"mintsniper/internal/extract"
	"mintsniper/internal/observability"
)

// Pipeline is the extraction and dispatch worker pool. A stuck external
// call inside one worker delays only the message it is processing; the
// ingest connections keep filling the queue.
type Pipeline struct {
	queue      *chat.Queue
	extractor  *extract.Extractor
	dispatcher *dispatch.Dispatcher

	workers       int
	sweepInterval time.Duration

	logger  zerolog.Logger
	metrics *observability.Metrics
}

// Options configures a Pipeline.
type Options struct {
	Queue      *chat.Queue
	Extractor  *extract.Extractor
	Dispatcher *dispatch.Dispatcher

	// Workers is the pool size. Defaults to 4.
	Workers int

	// SweepInterval is how often expired dedup records are dropped.
	// Defaults to 1m.
	SweepInterval time.Duration

	Logger  zerolog.Logger
	Metrics *observability.Metrics
}

// New creates a Pipeline.
func New(opts Options) *Pipeline {
	workers := opts.Workers
	if workers <= 0 {
		workers = 4
	}
	sweepInterval := opts.SweepInterval
	if sweepInterval <= 0 {
		sweepInterval = time.Minute
	}
	return &Pipeline{
		queue:         opts.Queue,
		extractor:     opts.Extractor,
		dispatcher:    opts.Dispatcher,
		workers:       workers,
		sweepInterval: sweepInterval,
		logger:        opts.Logger.With().Str("component", "pipeline").Logger(),
		metrics:       opts.Metrics,
	}
}

// Run blocks until ctx is cancelled.
func (p *Pipeline) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	for i := 0; i < p.workers; i++ {
		g.Go(func() error {
			p.worker(ctx)
			return nil
		})
	}

	g.Go(func() error {
		ticker := time.NewTicker(p.sweepInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return nil
			case <-ticker.C:
				p.dispatcher.SweepRecords()
			}
		}
	})

	return g.Wait()
}

func (p *Pipeline) worker(ctx context.Context) {
	for {
		msg, err := p.queue.Pop(ctx)
		if err != nil {
			if !errors.Is(err, context.Canceled) {
				p.logger.Warn().Err(err).Msg("queue pop failed")
			}
			return
		}
		p.Process(ctx, msg)
	}
}

// Process runs one message through extract, match and dispatch.
func (p *Pipeline) Process(ctx context.Context, msg domain.Message) {
	start := time.Now()
	result := p.extractor.Extract(ctx, msg)
	if p.metrics != nil {
		p.metrics.ExtractionLatency.Observe(time.Since(start).Seconds())
	}
	if result.Empty() {
		return
	}

	if p.metrics != nil {
		for _, token := range result.Tokens {
			p.metrics.TokensExtracted.WithLabelValues(string(token.Method)).Inc()
		}
	}

	tasks := p.dispatcher.Match(msg)
	if len(tasks) == 0 {
		return
	}

	for _, token := range result.Tokens {
		for _, task := range tasks {
			outcome := p.dispatcher.Dispatch(ctx, task, token, msg)
			p.logger.Debug().
				Str("token", token.Address).
				Str("task_id", task.TaskID).
				Str("outcome", string(outcome)).
				Msg("dispatch decision")
		}
	}
}
