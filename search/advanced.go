package search

import (
	"log/slog"
	"time"

	"github.com/solarb/arb-detector-go/engine"
	"github.com/solarb/arb-detector-go/pricecache"
)

// AdvancedRouterConfig mirrors router_advanced.rs's AdvancedRouterConfig
// and its Default impl.
type AdvancedRouterConfig struct {
	Mode                    engine.RouterMode
	MinROIPercent           float64
	MaxHops                 int
	EnableSplitOptimization bool
	MaxSplits               int
	MinSplitAmount          float64
}

// DefaultAdvancedRouterConfig reproduces AdvancedRouterConfig::default.
func DefaultAdvancedRouterConfig() AdvancedRouterConfig {
	return AdvancedRouterConfig{
		Mode:                    engine.ModeComplete,
		MinROIPercent:           DefaultMinROIPercent,
		MaxHops:                 6,
		EnableSplitOptimization: true,
		MaxSplits:               5,
		MinSplitAmount:          100.0,
	}
}

// consistentSnapshotMaxAge and consistentSnapshotMaxSlotSpread are the
// complete_scan parameters from router_advanced.rs: 10s freshness, 50
// slot spread.
const consistentSnapshotMaxAge = 10 * time.Second

const consistentSnapshotMaxSlotSpread = 50

// freshFallbackMaxAge and freshFallbackMinPools gate the degraded path
// taken when the consistent snapshot comes back too small.
const freshFallbackMaxAge = 60 * time.Second

const freshFallbackMinPools = 10

// hybridFastScanROIThreshold is the ROI percent above which hybrid mode
// short-circuits without running the deep scan.
const hybridFastScanROIThreshold = 1.0

// AdvancedRouter dispatches between the quick scanner, the Bellman-Ford
// deep scanner and the split optimizer according to its configured mode.
type AdvancedRouter struct {
	config     AdvancedRouterConfig
	quick      *QuickScanner
	bf         *BellmanFordScanner
	optimizer  *SplitOptimizer
	priceCache *pricecache.Cache
	logger     *slog.Logger
}

// NewAdvancedRouter wires a scanner pair and split optimizer from cfg,
// reading live prices from cache.
func NewAdvancedRouter(cfg AdvancedRouterConfig, cache *pricecache.Cache, fees FeeTable, logger *slog.Logger) *AdvancedRouter {
	if logger == nil {
		logger = slog.Default()
	}
	if fees == nil {
		fees = NewFeeTable()
	}
	return &AdvancedRouter{
		config:     cfg,
		quick:      NewQuickScanner(fees, cfg.MinROIPercent),
		bf:         NewBellmanFordScanner(cfg.MaxHops, cfg.MinROIPercent, fees),
		optimizer:  NewSplitOptimizer(cfg.MaxSplits, cfg.MinSplitAmount),
		priceCache: cache,
		logger:     logger.With("component", "advanced_router"),
	}
}

// FindOptimalRoutes is the main entry point, dispatching by configured
// mode.
func (r *AdvancedRouter) FindOptimalRoutes(amount float64) []engine.OptimizedPath {
	switch r.config.Mode {
	case engine.ModeFast:
		return r.fastScan(amount)
	case engine.ModeHybrid:
		return r.hybridScan(amount)
	default:
		return r.completeScan(amount)
	}
}

// fastScan covers only the quick scanner's 2-3 hop paths.
func (r *AdvancedRouter) fastScan(amount float64) []engine.OptimizedPath {
	pools := r.priceCache.All()
	paths := r.quick.ScanDirect(pools, amount)
	paths = append(paths, r.quick.ScanTriangle(pools, amount)...)

	filtered := filterByROI(paths, r.config.MinROIPercent)
	if len(filtered) == 0 {
		r.logger.Debug("fast scan found no paths clearing ROI threshold")
		return nil
	}
	return r.applyOptimization(filtered, amount)
}

// completeScan runs quick and deep scans over a consistency-checked
// snapshot, falling back to a freshness-only view when the consistent
// set is too thin.
func (r *AdvancedRouter) completeScan(amount float64) []engine.OptimizedPath {
	pools := r.priceCache.Consistent(consistentSnapshotMaxAge, consistentSnapshotMaxSlotSpread)
	if len(pools) < freshFallbackMinPools {
		r.logger.Debug("consistent snapshot too small, falling back to fresh prices", "consistent_count", len(pools))
		pools = r.priceCache.Fresh(freshFallbackMaxAge)
	}
	if len(pools) == 0 {
		r.logger.Warn("no fresh prices available for complete scan")
		return nil
	}

	quickPaths := r.quick.ScanDirect(pools, amount)
	quickPaths = append(quickPaths, r.quick.ScanTriangle(pools, amount)...)
	deepPaths := r.bf.FindAllCycles(pools, amount)

	all := DeduplicatePaths(append(quickPaths, deepPaths...))
	filtered := filterByROI(all, r.config.MinROIPercent)
	if len(filtered) == 0 {
		return nil
	}
	return r.applyOptimization(filtered, amount)
}

// hybridScan tries the fast scan first and only pays for a complete
// scan when nothing excellent turned up.
func (r *AdvancedRouter) hybridScan(amount float64) []engine.OptimizedPath {
	quick := r.fastScan(amount)
	bestROI := 0.0
	for i, p := range quick {
		if i == 0 || p.OptimizedROI > bestROI {
			bestROI = p.OptimizedROI
		}
	}
	if len(quick) > 0 && bestROI > hybridFastScanROIThreshold {
		r.logger.Info("hybrid mode found an excellent quick opportunity, skipping deep scan", "roi_percent", bestROI)
		return quick
	}
	return r.completeScan(amount)
}

func (r *AdvancedRouter) applyOptimization(paths []engine.ArbitragePath, amount float64) []engine.OptimizedPath {
	if !r.config.EnableSplitOptimization || len(paths) == 0 {
		return unsplit(paths)
	}
	return r.optimizer.OptimizeAll(paths, amount)
}

func unsplit(paths []engine.ArbitragePath) []engine.OptimizedPath {
	out := make([]engine.OptimizedPath, len(paths))
	for i, p := range paths {
		out[i] = engine.OptimizedPath{ArbitragePath: p, OptimizedNetProfit: p.NetProfit, OptimizedROI: p.ROIPercent}
	}
	return out
}

func filterByROI(paths []engine.ArbitragePath, minROIPercent float64) []engine.ArbitragePath {
	var out []engine.ArbitragePath
	for _, p := range paths {
		if p.ROIPercent >= minROIPercent {
			out = append(out, p)
		}
	}
	return out
}

// DeduplicatePaths drops paths sharing an identical input/output token
// sequence, keeping the first occurrence.
func DeduplicatePaths(paths []engine.ArbitragePath) []engine.ArbitragePath {
	seen := make(map[string]bool, len(paths))
	out := make([]engine.ArbitragePath, 0, len(paths))
	for _, p := range paths {
		sig := p.Signature()
		if seen[sig] {
			continue
		}
		seen[sig] = true
		out = append(out, p)
	}
	return out
}

// SelectBest returns the highest-scoring valid path, or false if none
// qualify.
func SelectBest(paths []engine.OptimizedPath) (engine.OptimizedPath, bool) {
	var best engine.OptimizedPath
	found := false
	for _, p := range paths {
		if !p.IsValid() {
			continue
		}
		if !found || p.Score() > best.Score() {
			best = p
			found = true
		}
	}
	return best, found
}
