// Command detector wires every layer of the arbitrage pipeline into a
// single running process: the account-subscription transport feeds the
// price cache through the subscription router, price updates trigger
// debounced scans across the quick and deep scanners, surviving
// candidates pass the lightweight validator and (optionally) the
// on-chain simulator, and whatever remains is recorded through the
// persistence sink and exposed on the read-only HTTP API.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"math"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/solarb/arb-detector-go/api"
	"github.com/solarb/arb-detector-go/config"
	"github.com/solarb/arb-detector-go/decoder/factory"
	"github.com/solarb/arb-detector-go/engine"
	"github.com/solarb/arb-detector-go/errtracker"
	"github.com/solarb/arb-detector-go/metrics"
	"github.com/solarb/arb-detector-go/pricecache"
	"github.com/solarb/arb-detector-go/search"
	"github.com/solarb/arb-detector-go/simulator"
	"github.com/solarb/arb-detector-go/sink"
	"github.com/solarb/arb-detector-go/subscription"
	"github.com/solarb/arb-detector-go/transport"
	"github.com/solarb/arb-detector-go/validator"
	"github.com/solarb/arb-detector-go/vault"
)

// scanPrincipal is the nominal trade size, in quote-token units, every
// scan prices candidate paths against.
const scanPrincipal = 1000.0

func main() {
	rootLogHandler := slog.NewJSONHandler(os.Stdout, nil)
	rootLogger := slog.New(rootLogHandler)
	closeFatal := func() { os.Exit(1) }

	cfg, err := loadConfig()
	if err != nil {
		rootLogger.Error("failed to load configuration", "error", err)
		closeFatal()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	registerer := prometheus.DefaultRegisterer
	m := metrics.NewMetrics(registerer)

	cache := pricecache.New()
	tracker := errtracker.New(rootLogger.With("component", "errtracker"))
	vaults := vault.NewReader()
	poolFactory := factory.NewPoolFactory(nil)

	router := subscription.New(poolFactory, vaults, cache, rootLogger.With("component", "subscription"))

	pools := make([]engine.PoolDescriptor, len(cfg.Pools))
	for i, p := range cfg.Pools {
		pools[i] = engine.PoolDescriptor{PoolID: p.Address, Pair: p.Name, DexType: p.PoolType}
	}

	wsClient := transport.New(cfg.WebSocket.URL, pools, router, rootLogger.With("component", "transport"))
	go wsClient.Run(ctx)

	feeTable := search.NewFeeTable()
	routerConfig := buildRouterConfig(cfg.Router)
	advancedRouter := search.NewAdvancedRouter(routerConfig, cache, feeTable, rootLogger.With("component", "search"))

	opportunityValidator := validator.NewWithDefaults(cache)

	var sim *simulator.Simulator
	if cfg.Simulation != nil && cfg.Simulation.Enabled {
		rpcClient, err := simulator.Dial(ctx, cfg.Simulation.RPCURL)
		if err != nil {
			rootLogger.Error("failed to dial simulation RPC endpoint, continuing without on-chain re-read", "error", err)
		} else {
			simConfig := simulator.Config{
				MinConfidenceForSimulation: cfg.Simulation.MinConfidenceForSimulation,
				Timeout:                    time.Duration(cfg.Simulation.SimulationTimeoutMillis) * time.Millisecond,
				MaxConcurrent:              cfg.Simulation.MaxConcurrentSimulations,
			}
			sim = simulator.New(rpcClient, poolFactory, simConfig, rootLogger.With("component", "simulator"))
		}
	}

	persistence := buildSink(cfg.Database, rootLogger.With("component", "sink"))

	if cfg.API != nil && cfg.API.Enabled {
		server := api.New(cache, tracker, rootLogger.With("component", "api"))
		go func() {
			if err := api.ListenAndServe(cfg.API.Addr, server); err != nil && err != http.ErrServerClosed {
				rootLogger.Error("api server stopped", "error", err)
			}
		}()
	}

	d := &detector{
		cache:      cache,
		tracker:    tracker,
		router:     advancedRouter,
		validator:  opportunityValidator,
		simulator:  sim,
		sink:       persistence,
		metrics:    m,
		logger:     rootLogger.With("component", "detector"),
		maxScans:   maxConcurrentScans(cfg.EventDriven),
		debounce:   debounceDuration(cfg.EventDriven),
		threshold:  changeThreshold(cfg.EventDriven),
		scanMode:   modeLabel(routerConfig.Mode),
	}

	d.run(ctx, scanIntervalSeconds(cfg.EventDriven))
}

// detector owns the event-driven/timer-driven scan trigger and the
// scan-to-sink pipeline; it holds no subscription/transport state of
// its own.
type detector struct {
	cache     *pricecache.Cache
	tracker   *errtracker.Tracker
	router    *search.AdvancedRouter
	validator *validator.OpportunityValidator
	simulator *simulator.Simulator
	sink      *sink.Gate
	metrics   *metrics.Metrics
	logger    *slog.Logger

	maxScans  int
	debounce  time.Duration
	threshold float64
	scanMode  string

	mu            sync.Mutex // guards scansInFlight only
	scansInFlight int
}

// run drives both trigger styles: event-driven scans debounced off the
// cache's price-update broadcast, and a timer-driven fallback that
// fires on a fixed interval regardless of event traffic.
func (d *detector) run(ctx context.Context, scanIntervalSeconds int) {
	events := d.cache.Subscribe()
	ticker := time.NewTicker(time.Duration(scanIntervalSeconds) * time.Second)
	defer ticker.Stop()

	var debounceTimer *time.Timer
	var debounceCh <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			if math.IsNaN(ev.PriceChangePercent) || math.IsInf(ev.PriceChangePercent, 0) {
				continue
			}
			if ev.PriceChangePercent < d.threshold {
				continue
			}
			if debounceTimer == nil {
				debounceTimer = time.NewTimer(d.debounce)
				debounceCh = debounceTimer.C
			}
		case <-debounceCh:
			debounceTimer = nil
			debounceCh = nil
			d.tryScan(ctx)
		case <-ticker.C:
			d.tryScan(ctx)
		}
	}
}

// tryScan acquires a scan permit from the bounded semaphore; triggers
// that cannot acquire one are skipped, not queued, per the concurrency
// model's "new triggers ... are skipped (not queued)" rule.
func (d *detector) tryScan(ctx context.Context) {
	d.mu.Lock()
	if d.scansInFlight >= d.maxScans {
		d.mu.Unlock()
		d.logger.Debug("scan semaphore exhausted, skipping trigger")
		return
	}
	d.scansInFlight++
	d.mu.Unlock()

	go func() {
		defer func() {
			d.mu.Lock()
			d.scansInFlight--
			d.mu.Unlock()
		}()
		d.scan(ctx)
	}()
}

// scan runs one full cycle: a cheap raw-candidate screen gates whether
// the expensive router runs at all, the router's paths are converted
// to opportunities and re-checked against the live cache by the
// validator, surviving opportunities are (optionally) re-verified
// on-chain by the simulator, and only what comes out of that pipeline
// is recorded to the sink.
func (d *detector) scan(ctx context.Context) {
	timer := d.metrics.RecordScan(d.scanMode)
	start := time.Now()

	var stats validator.Stats
	var emitted []sink.OpportunityRecord

	rawCandidates := search.DetectOpportunities(d.cache.All())
	if len(rawCandidates) == 0 {
		d.logger.Debug("no raw price divergence this cycle, skipping router scan")
	} else {
		paths := d.router.FindOptimalRoutes(scanPrincipal)

		pathByOpportunity := make(map[engine.ArbitrageOpportunity]engine.OptimizedPath, len(paths))
		opportunities := make([]engine.ArbitrageOpportunity, 0, len(paths))
		for _, p := range paths {
			if !p.IsValid() {
				continue
			}
			opp := pathToOpportunity(p.ArbitragePath)
			pathByOpportunity[opp] = p
			opportunities = append(opportunities, opp)
		}

		var scored []validator.ScoredOpportunity
		var rejected []validator.RejectedOpportunity
		scored, rejected, stats = d.validator.ValidateBatch(opportunities, scanPrincipal)
		for _, r := range rejected {
			d.metrics.RecordRejection(string(r.Result.Kind))
		}

		if d.simulator != nil && len(scored) > 0 {
			candidates := make([]simulator.Candidate, len(scored))
			confidenceByOpportunity := make(map[engine.ArbitrageOpportunity]float64, len(scored))
			for i, s := range scored {
				candidates[i] = simulator.Candidate{Opportunity: s.Opportunity, Confidence: s.Confidence}
				confidenceByOpportunity[s.Opportunity] = s.Confidence
			}
			verified := d.simulator.VerifyBatch(ctx, candidates)
			d.logger.Info("simulation batch complete", "candidates", len(candidates), "still_profitable", len(verified))

			for _, v := range verified {
				path := pathByOpportunity[v.Opportunity]
				emitted = append(emitted, sink.OpportunityRecord{
					Opportunity: v.Opportunity,
					Confidence:  confidenceByOpportunity[v.Opportunity],
					RecordedAt:  time.Now(),
				})
				d.metrics.RecordOpportunity(string(path.Type))
			}
		} else {
			for _, s := range scored {
				path := pathByOpportunity[s.Opportunity]
				emitted = append(emitted, sink.OpportunityRecord{
					Opportunity: s.Opportunity,
					Confidence:  s.Confidence,
					RecordedAt:  time.Now(),
				})
				d.metrics.RecordOpportunity(string(path.Type))
			}
		}

		for _, rec := range emitted {
			d.sink.RecordOpportunity(ctx, rec)
		}
	}

	timer.ObserveDuration()
	d.sink.RecordPerformance(ctx, sink.PerformanceRecord{
		ScanDuration:   time.Since(start),
		OpportunityQty: len(emitted),
		RejectionStats: stats,
		RecordedAt:     time.Now(),
	})
}

// pathToOpportunity projects a full path's endpoints into the thinner
// opportunity record the sink persists; only the first and last hop
// are kept since the sink's opportunity log is keyed by pool pair, not
// by route.
func pathToOpportunity(path engine.ArbitragePath) engine.ArbitrageOpportunity {
	if len(path.Steps) == 0 {
		return engine.ArbitrageOpportunity{}
	}
	first := path.Steps[0]
	last := path.Steps[len(path.Steps)-1]
	return engine.ArbitrageOpportunity{
		PoolAID:            first.PoolID,
		PoolADex:           first.DexName,
		PoolAPrice:         first.Price,
		PoolBID:            last.PoolID,
		PoolBDex:           last.DexName,
		PoolBPrice:         last.Price,
		Pair:               fmt.Sprintf("%s/%s", path.StartToken, path.EndToken),
		PriceDiffPercent:   path.ROIPercent,
		EstimatedProfitPct: path.ROIPercent,
		DetectedAt:         path.DiscoveredAt,
	}
}

func buildRouterConfig(rc *config.RouterConfig) search.AdvancedRouterConfig {
	defaults := search.DefaultAdvancedRouterConfig()
	if rc == nil {
		return defaults
	}
	defaults.Mode = engine.ParseRouterMode(rc.Mode)
	if rc.MinROIPercent != 0 {
		defaults.MinROIPercent = rc.MinROIPercent
	}
	if rc.MaxHops != 0 {
		defaults.MaxHops = rc.MaxHops
	}
	defaults.EnableSplitOptimization = rc.EnableSplitOptimization
	if rc.SplitOptimizer != nil {
		if rc.SplitOptimizer.MaxSplits != 0 {
			defaults.MaxSplits = rc.SplitOptimizer.MaxSplits
		}
		if rc.SplitOptimizer.MinSplitAmount != 0 {
			defaults.MinSplitAmount = rc.SplitOptimizer.MinSplitAmount
		}
	}
	return defaults
}

func buildSink(dbCfg *config.DatabaseConfig, logger *slog.Logger) *sink.Gate {
	if dbCfg == nil || !dbCfg.Enabled {
		return sink.NewGate(nil, false, false, false)
	}
	return sink.NewGate(sink.NewLogSink(logger), dbCfg.RecordOpportunities, dbCfg.RecordPoolUpdates, dbCfg.RecordPerformance)
}

func maxConcurrentScans(ed *config.EventDrivenConfig) int {
	if ed == nil || ed.MaxConcurrentScans <= 0 {
		return 10
	}
	return ed.MaxConcurrentScans
}

func debounceDuration(ed *config.EventDrivenConfig) time.Duration {
	if ed == nil || ed.DebounceMillis <= 0 {
		return 200 * time.Millisecond
	}
	return time.Duration(ed.DebounceMillis) * time.Millisecond
}

func changeThreshold(ed *config.EventDrivenConfig) float64 {
	if ed == nil || ed.PriceChangeThresholdPercent <= 0 {
		return 1.0
	}
	return ed.PriceChangeThresholdPercent
}

func scanIntervalSeconds(ed *config.EventDrivenConfig) int {
	if ed == nil || ed.ScanIntervalSeconds <= 0 {
		return 5
	}
	return ed.ScanIntervalSeconds
}

func modeLabel(mode engine.RouterMode) string {
	return string(mode)
}

func loadConfig() (*config.Config, error) {
	configPath := flag.String("config", "config.yaml", "Path to the configuration file.")
	flag.Parse()
	log.Printf("loading configuration from: %s", *configPath)
	return config.Load(*configPath)
}
