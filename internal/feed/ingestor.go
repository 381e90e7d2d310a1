package feed

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"mintsniper/internal/domain"
	"mintsniper/internal/observability"
	"mintsniper/internal/shardindex"
	"mintsniper/internal/storage"
)

// Ingestor consumes token-creation events from all configured venues and
// maintains the live shard index: inserts, periodic mirror flushes and the
// age eviction policy. No ordering is assumed across venues.
type Ingestor struct {
	index   *shardindex.Index
	mirror  storage.ShardMirrorStore
	sources []TokenSource

	flushInterval time.Duration
	evictInterval time.Duration
	maxAge        time.Duration

	logger  zerolog.Logger
	metrics *observability.Metrics
	now     func() int64
}

// IngestorOptions configures an Ingestor.
type IngestorOptions struct {
	Index   *shardindex.Index
	Mirror  storage.ShardMirrorStore // nil disables mirroring
	Sources []TokenSource

	// FlushInterval bounds mirror staleness. Defaults to 5s.
	FlushInterval time.Duration

	// MaxAge drops addresses older than this from the index. Zero disables
	// eviction (the index grows monotonically).
	MaxAge time.Duration

	// EvictInterval is how often the eviction pass runs. Defaults to 1m.
	EvictInterval time.Duration

	Logger  zerolog.Logger
	Metrics *observability.Metrics
}

// NewIngestor creates an Ingestor.
func NewIngestor(opts IngestorOptions) *Ingestor {
	flushInterval := opts.FlushInterval
	if flushInterval <= 0 {
		flushInterval = 5 * time.Second
	}
	evictInterval := opts.EvictInterval
	if evictInterval <= 0 {
		evictInterval = time.Minute
	}

	return &Ingestor{
		index:         opts.Index,
		mirror:        opts.Mirror,
		sources:       opts.Sources,
		flushInterval: flushInterval,
		evictInterval: evictInterval,
		maxAge:        opts.MaxAge,
		logger:        opts.Logger.With().Str("component", "feed").Logger(),
		metrics:       opts.Metrics,
		now:           func() int64 { return time.Now().UnixMilli() },
	}
}

// Run streams all venues until ctx is cancelled. A final mirror flush runs
// on shutdown so no committed insert is lost.
func (in *Ingestor) Run(ctx context.Context) error {
	events := make(chan domain.TokenSeen, 1024)

	g, ctx := errgroup.WithContext(ctx)

	for _, src := range in.sources {
		g.Go(func() error {
			if err := src.Run(ctx, events); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		})
	}

	g.Go(func() error {
		return in.consume(ctx, events)
	})

	return g.Wait()
}

func (in *Ingestor) consume(ctx context.Context, events <-chan domain.TokenSeen) error {
	flushTicker := time.NewTicker(in.flushInterval)
	defer flushTicker.Stop()
	evictTicker := time.NewTicker(in.evictInterval)
	defer evictTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			in.flush(context.Background())
			return nil

		case ev := <-events:
			in.handle(ev)

		case <-flushTicker.C:
			in.flush(ctx)

		case <-evictTicker.C:
			in.evict(ctx)
		}
	}
}

// Handle validates and indexes one token-creation event. Exposed for tests
// and for replaying recorded feeds.
func (in *Ingestor) Handle(ev domain.TokenSeen) {
	in.handle(ev)
}

func (in *Ingestor) handle(ev domain.TokenSeen) {
	if !domain.IsAddressShaped(ev.Address) {
		in.logger.Debug().Str("venue", ev.Venue).Str("address", ev.Address).Msg("malformed address dropped")
		if in.metrics != nil {
			in.metrics.FeedEventsMalformed.WithLabelValues(ev.Venue).Inc()
		}
		return
	}

	inserted, err := in.index.Insert(ev.Address, ev.ObservedAt)
	if err != nil {
		// Unreachable after the shape check above.
		in.logger.Warn().Err(err).Msg("index insert rejected")
		return
	}
	if !inserted {
		// A re-observed address is fresh source data: if its shard entries
		// went inconsistent, rebuild them now.
		if !in.index.Verify(ev.Address) {
			rewritten := in.index.Repair(ev.Address)
			in.logger.Warn().Str("address", ev.Address).Int("keys", rewritten).Msg("index repaired")
			if in.metrics != nil {
				in.metrics.IndexRepairs.Inc()
			}
		}
		return
	}

	in.logger.Debug().Str("venue", ev.Venue).Str("address", ev.Address).Msg("token indexed")
	if in.metrics != nil {
		in.metrics.TokensIndexed.WithLabelValues(ev.Venue).Inc()
		in.metrics.IndexSize.Set(float64(in.index.Size()))
	}
}

func (in *Ingestor) flush(ctx context.Context) {
	if in.mirror == nil {
		return
	}
	flushed, err := in.index.FlushDirty(ctx, in.mirror)
	if err != nil {
		in.logger.Warn().Err(err).Msg("mirror flush failed")
		if in.metrics != nil {
			in.metrics.MirrorFlushErrors.Inc()
		}
		return
	}
	if flushed > 0 {
		in.logger.Debug().Int("keys", flushed).Msg("mirror flushed")
	}
}

func (in *Ingestor) evict(ctx context.Context) {
	if in.maxAge <= 0 {
		return
	}
	cutoff := in.now() - in.maxAge.Milliseconds()
	removed := in.index.EvictOlderThan(cutoff)
	if len(removed) == 0 {
		return
	}

	for _, addr := range removed {
		if in.mirror == nil {
			continue
		}
		if err := in.mirror.DeleteAddress(ctx, addr); err != nil {
			in.logger.Warn().Err(err).Str("address", addr).Msg("mirror eviction failed")
		}
	}

	in.logger.Info().Int("evicted", len(removed)).Msg("age eviction pass")
	if in.metrics != nil {
		in.metrics.IndexEvictions.Add(float64(len(removed)))
		in.metrics.IndexSize.Set(float64(in.index.Size()))
	}
}
