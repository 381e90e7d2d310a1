package dispatch

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"mintsniper/internal/buy"
	"mintsniper/internal/domain"
	"mintsniper/internal/observability"
	"mintsniper/internal/storage"
)

// Dispatcher matches (token, message) pairs against the task registry and
// emits buy triggers through the gateway, at most once per (token, task)
// within the dedup window.
type Dispatcher struct {
	registry *TaskRegistry
	records  *RecordSet
	gateway  buy.Gateway
	events   storage.DispatchEventStore
	logger   zerolog.Logger
	metrics  *observability.Metrics
	now      func() int64
}

// DispatcherOptions configures a Dispatcher.
type DispatcherOptions struct {
	Registry *TaskRegistry
	Records  *RecordSet
	Gateway  buy.Gateway
	Events   storage.DispatchEventStore // nil disables the audit trail
	Logger   zerolog.Logger
	Metrics  *observability.Metrics
}

// NewDispatcher creates a Dispatcher.
func NewDispatcher(opts DispatcherOptions) *Dispatcher {
	return &Dispatcher{
		registry: opts.Registry,
		records:  opts.Records,
		gateway:  opts.Gateway,
		events:   opts.Events,
		logger:   opts.Logger.With().Str("component", "dispatch").Logger(),
		metrics:  opts.Metrics,
		now:      func() int64 { return time.Now().UnixMilli() },
	}
}

// Match returns every enabled task matching the message: platform equality,
// channel filter equality or no restriction, author filter satisfied, and
// none of the task's blacklist words present in the text. Evaluated
// independently per task; one message may match tasks of many owners.
func (d *Dispatcher) Match(msg domain.Message) []*domain.Task {
	var matched []*domain.Task
	for _, t := range d.registry.Snapshot() {
		if !t.Enabled {
			continue
		}
		if t.Platform != msg.Platform {
			continue
		}
		if t.ChannelID != "" && t.ChannelID != msg.ChannelID {
			continue
		}
		if !t.AllowsAuthor(msg.AuthorID) {
			continue
		}
		if containsAnyWord(msg.Text, t.BlacklistWords) {
			continue
		}
		matched = append(matched, t)
	}
	return matched
}

// Dispatch runs the dedup check for one (token, task) pair and emits the
// trigger if the pair is fresh. Gateway failure keeps the dedup record:
// never double-buy wins over never miss a buy.
func (d *Dispatcher) Dispatch(ctx context.Context, task *domain.Task, token domain.ExtractedToken, msg domain.Message) domain.DispatchOutcome {
	logger := d.logger.With().
		Str("token", token.Address).
		Str("task_id", task.TaskID).
		Str("owner_id", task.OwnerID).
		Logger()

	if !d.records.TryAcquire(token.Address, task.TaskID) {
		logger.Debug().Msg("duplicate suppressed")
		return d.finish(ctx, task, token, msg, domain.OutcomeSuppressed, nil)
	}

	if task.InformOnly {
		logger.Info().Msg("inform-only match")
		return d.finish(ctx, task, token, msg, domain.OutcomeInformed, nil)
	}

	trigger := domain.BuyTrigger{
		Token:           token.Address,
		TaskID:          task.TaskID,
		OwnerID:         task.OwnerID,
		BuyAmountSOL:    task.BuyAmountSOL,
		SlippagePercent: task.SlippagePercent,
		PriorityFeeSOL:  task.PriorityFeeSOL,
		WalletAddress:   task.WalletAddress,
		WalletLabel:     task.WalletLabel,
		TriggeredAt:     d.now(),
	}

	start := time.Now()
	err := d.gateway.Buy(ctx, trigger)
	if d.metrics != nil {
		d.metrics.GatewayLatency.Observe(time.Since(start).Seconds())
	}
	if err != nil {
		logger.Error().Err(err).Msg("buy delivery failed, dedup record kept")
		return d.finish(ctx, task, token, msg, domain.OutcomeGatewayError, err)
	}

	logger.Info().Float64("amount_sol", task.BuyAmountSOL).Msg("buy trigger sent")
	return d.finish(ctx, task, token, msg, domain.OutcomeBuySent, nil)
}

func (d *Dispatcher) finish(ctx context.Context, task *domain.Task, token domain.ExtractedToken, msg domain.Message, outcome domain.DispatchOutcome, cause error) domain.DispatchOutcome {
	if d.metrics != nil {
		d.metrics.Dispatches.WithLabelValues(string(outcome)).Inc()
	}
	if d.events == nil {
		return outcome
	}

	event := &domain.DispatchEvent{
		Token:        token.Address,
		TaskID:       task.TaskID,
		OwnerID:      task.OwnerID,
		Outcome:      outcome,
		Platform:     msg.Platform,
		ChannelID:    msg.ChannelID,
		AuthorID:     msg.AuthorID,
		Method:       token.Method,
		DispatchedAt: d.now(),
	}
	if cause != nil {
		event.Error = cause.Error()
	}
	if err := d.events.Insert(ctx, event); err != nil {
		d.logger.Warn().Err(err).Msg("audit insert failed")
	}
	return outcome
}

// SweepRecords expires old dedup records and updates the gauge.
func (d *Dispatcher) SweepRecords() {
	live := d.records.Sweep()
	if d.metrics != nil {
		d.metrics.DedupRecords.Set(float64(live))
	}
}

// containsAnyWord reports whether text contains any of the words,
// case-insensitively.
func containsAnyWord(text string, words []string) bool {
	if len(words) == 0 {
		return false
	}
	lower := strings.ToLower(text)
	for _, w := range words {
		if w == "" {
			continue
		}
		if strings.Contains(lower, strings.ToLower(w)) {
			return true
		}
	}
	return false
}
