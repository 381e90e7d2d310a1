// Package extract finds and confirms token addresses in chat messages.
// Extraction is two-stage: a cheap shard-window probe against the live index
// with exact full-string confirmation, then an external lookup fallback whose
// answer is itself re-confirmed against the index before acceptance.
package extract

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"mintsniper/internal/domain"
	"mintsniper/internal/observability"
	"mintsniper/internal/shardindex"
)

// Extractor implements Extract(message) -> ExtractionResult.
type Extractor struct {
	index  *shardindex.Index
	lookup Lookup

	blacklist     []string // lowercased; global short-circuit
	minLookupLen  int
	lookupTimeout time.Duration
	strict        bool

	logger  zerolog.Logger
	metrics *observability.Metrics
}

// Options configures an Extractor.
type Options struct {
	Index  *shardindex.Index
	Lookup Lookup // nil disables the fallback stage

	// Blacklist short-circuits extraction when any keyword occurs in the
	// message text (case-insensitive).
	Blacklist []string

	// MinLookupLen is the minimum text length worth a fallback call.
	MinLookupLen int

	// LookupTimeout bounds one fallback call.
	LookupTimeout time.Duration

	// StrictValidation additionally requires fallback candidates to decode
	// to an on-curve 32-byte point.
	StrictValidation bool

	Logger  zerolog.Logger
	Metrics *observability.Metrics
}

// New creates an Extractor.
func New(opts Options) *Extractor {
	blacklist := make([]string, 0, len(opts.Blacklist))
	for _, w := range opts.Blacklist {
		w = strings.ToLower(strings.TrimSpace(w))
		if w != "" {
			blacklist = append(blacklist, w)
		}
	}

	minLookupLen := opts.MinLookupLen
	if minLookupLen <= 0 {
		minLookupLen = 12
	}
	lookupTimeout := opts.LookupTimeout
	if lookupTimeout <= 0 {
		lookupTimeout = 3 * time.Second
	}

	return &Extractor{
		index:         opts.Index,
		lookup:        opts.Lookup,
		blacklist:     blacklist,
		minLookupLen:  minLookupLen,
		lookupTimeout: lookupTimeout,
		strict:        opts.StrictValidation,
		logger:        opts.Logger.With().Str("component", "extract").Logger(),
		metrics:       opts.Metrics,
	}
}

// Extract returns the confirmed token addresses of one message. Fallback
// errors and timeouts are non-fatal: the message is treated as carrying no
// token.
func (e *Extractor) Extract(ctx context.Context, msg domain.Message) domain.ExtractionResult {
	if e.Blacklisted(msg.Text) {
		return domain.ExtractionResult{}
	}

	// Stage 1: shard-window probe, then exact full-string confirmation.
	// Candidates sharing a shard key with text windows but not actually
	// present in the text are collision false positives and are dropped.
	var result domain.ExtractionResult
	for _, cand := range e.index.ContainsAny(shardindex.Windows(msg.Text)) {
		if !strings.Contains(msg.Text, cand) {
			continue
		}
		result.Tokens = append(result.Tokens, domain.ExtractedToken{
			Address: cand,
			Method:  domain.MethodPattern,
		})
	}
	if !result.Empty() {
		return result
	}

	// Stage 2: external lookup fallback, re-confirmed against the index.
	if e.lookup == nil || len(msg.Text) < e.minLookupLen {
		return domain.ExtractionResult{}
	}

	lookupCtx, cancel := context.WithTimeout(ctx, e.lookupTimeout)
	defer cancel()

	if e.metrics != nil {
		e.metrics.LookupFallbacks.Inc()
	}
	cand, err := e.lookup.FindAddress(lookupCtx, msg.Text)
	if err != nil {
		e.logger.Debug().Err(err).Msg("lookup fallback failed")
		if e.metrics != nil {
			e.metrics.LookupErrors.Inc()
		}
		return domain.ExtractionResult{}
	}
	if cand == "" || !domain.IsAddressShaped(cand) {
		return domain.ExtractionResult{}
	}
	if e.strict {
		if err := ValidateStrict(cand); err != nil {
			e.logger.Debug().Err(err).Str("candidate", cand).Msg("fallback candidate failed strict validation")
			return domain.ExtractionResult{}
		}
	}
	// The fallback may hallucinate: only containment in the live registry
	// makes a candidate a token.
	if !e.index.Contains(cand) {
		e.logger.Debug().Str("candidate", cand).Msg("fallback candidate not in index, rejected")
		return domain.ExtractionResult{}
	}

	result.Tokens = append(result.Tokens, domain.ExtractedToken{
		Address: cand,
		Method:  domain.MethodLookup,
	})
	return result
}

// Blacklisted reports whether the global keyword blacklist blocks the text.
func (e *Extractor) Blacklisted(text string) bool {
	if len(e.blacklist) == 0 {
		return false
	}
	lower := strings.ToLower(text)
	for _, w := range e.blacklist {
		if strings.Contains(lower, w) {
			return true
		}
	}
	return false
}
