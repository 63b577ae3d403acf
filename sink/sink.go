// Package sink defines the detector's persistence boundary: structured
// records for discovered opportunities, pool updates, and performance
// counters, flowing to whatever opaque store a deployment configures.
// The core never depends on a concrete store; it depends on this
// interface, the same way the decoder packages depend on DexPool
// rather than a specific AMM layout.
package sink

import (
	"context"
	"log/slog"
	"time"

	"github.com/solarb/arb-detector-go/engine"
	"github.com/solarb/arb-detector-go/validator"
)

// OpportunityRecord is the persisted shape of one scored, possibly
// simulation-verified, opportunity.
type OpportunityRecord struct {
	Opportunity engine.ArbitrageOpportunity
	Confidence  float64
	RecordedAt  time.Time
}

// PoolUpdateRecord is the persisted shape of one pool snapshot change.
type PoolUpdateRecord struct {
	PoolID     string
	Snapshot   engine.PoolSnapshot
	RecordedAt time.Time
}

// PerformanceRecord captures one scan cycle's throughput and rejection
// breakdown, mirroring validator.Stats plus wall-clock duration.
type PerformanceRecord struct {
	ScanDuration   time.Duration
	OpportunityQty int
	RejectionStats validator.Stats
	RecordedAt     time.Time
}

// Sink is the opaque persistence boundary. Each method corresponds to
// one of the three independently-gated recording flags in the
// detector's database config block. Implementations must be safe for
// concurrent use, since callers do no external locking. In this
// repository cmd/detector's scan loop calls RecordOpportunity and
// RecordPerformance; nothing calls RecordPoolUpdate.
type Sink interface {
	RecordOpportunity(ctx context.Context, record OpportunityRecord) error
	RecordPoolUpdate(ctx context.Context, record PoolUpdateRecord) error
	RecordPerformance(ctx context.Context, record PerformanceRecord) error
}

// LogSink is the default Sink: it writes every record as a structured
// log line rather than to a database, so a deployment with persistence
// disabled (or not yet wired to a real store) still gets an audit
// trail. It never returns an error.
type LogSink struct {
	logger *slog.Logger
}

// NewLogSink builds a LogSink. A nil logger falls back to slog.Default().
func NewLogSink(logger *slog.Logger) *LogSink {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogSink{logger: logger}
}

func (s *LogSink) RecordOpportunity(_ context.Context, record OpportunityRecord) error {
	opp := record.Opportunity
	s.logger.Info("opportunity recorded",
		"pair", opp.Pair,
		"pool_a", opp.PoolAID,
		"pool_b", opp.PoolBID,
		"profit_pct", opp.EstimatedProfitPct,
		"confidence", record.Confidence,
	)
	return nil
}

func (s *LogSink) RecordPoolUpdate(_ context.Context, record PoolUpdateRecord) error {
	s.logger.Debug("pool update recorded",
		"pool_id", record.PoolID,
		"slot", record.Snapshot.Slot,
	)
	return nil
}

func (s *LogSink) RecordPerformance(_ context.Context, record PerformanceRecord) error {
	s.logger.Info("performance recorded",
		"scan_duration", record.ScanDuration,
		"opportunity_qty", record.OpportunityQty,
		"valid", record.RejectionStats.ValidCount,
		"total", record.RejectionStats.Total,
		"pass_rate", record.RejectionStats.PassRate(),
	)
	return nil
}

// NoopSink discards every record. Used when a config's database block
// is absent or Enabled is false.
type NoopSink struct{}

func (NoopSink) RecordOpportunity(context.Context, OpportunityRecord) error { return nil }
func (NoopSink) RecordPoolUpdate(context.Context, PoolUpdateRecord) error   { return nil }
func (NoopSink) RecordPerformance(context.Context, PerformanceRecord) error { return nil }

// Gate wraps an underlying Sink with the three independent record_*
// flags from DatabaseConfig, so the core can unconditionally call
// every Record method and have the config decide what actually lands.
type Gate struct {
	sink                Sink
	recordOpportunities bool
	recordPoolUpdates   bool
	recordPerformance   bool
}

// NewGate wraps sink with the given flags. A nil sink is replaced with
// NoopSink so callers never need a nil check.
func NewGate(s Sink, recordOpportunities, recordPoolUpdates, recordPerformance bool) *Gate {
	if s == nil {
		s = NoopSink{}
	}
	return &Gate{
		sink:                s,
		recordOpportunities: recordOpportunities,
		recordPoolUpdates:   recordPoolUpdates,
		recordPerformance:   recordPerformance,
	}
}

func (g *Gate) RecordOpportunity(ctx context.Context, record OpportunityRecord) error {
	if !g.recordOpportunities {
		return nil
	}
	return g.sink.RecordOpportunity(ctx, record)
}

func (g *Gate) RecordPoolUpdate(ctx context.Context, record PoolUpdateRecord) error {
	if !g.recordPoolUpdates {
		return nil
	}
	return g.sink.RecordPoolUpdate(ctx, record)
}

func (g *Gate) RecordPerformance(ctx context.Context, record PerformanceRecord) error {
	if !g.recordPerformance {
		return nil
	}
	return g.sink.RecordPerformance(ctx, record)
}
