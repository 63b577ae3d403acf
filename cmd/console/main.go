package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/solarb/arb-detector-go/config"
	"github.com/solarb/arb-detector-go/decoder/factory"
	"github.com/solarb/arb-detector-go/differ"
	"github.com/solarb/arb-detector-go/engine"
	"github.com/solarb/arb-detector-go/errtracker"
	"github.com/solarb/arb-detector-go/patcher"
	"github.com/solarb/arb-detector-go/pricecache"
	"github.com/solarb/arb-detector-go/subscription"
	"github.com/solarb/arb-detector-go/transport"
	"github.com/solarb/arb-detector-go/vault"
)

// slogDiffLogger adapts *slog.Logger to differ.Logger.
type slogDiffLogger struct{ *slog.Logger }

func (l slogDiffLogger) Debug(msg string, args ...any) { l.Logger.Debug(msg, args...) }
func (l slogDiffLogger) Info(msg string, args ...any)  { l.Logger.Info(msg, args...) }
func (l slogDiffLogger) Warn(msg string, args ...any)  { l.Logger.Warn(msg, args...) }
func (l slogDiffLogger) Error(msg string, args ...any) { l.Logger.Error(msg, args...) }

// changeTracker remembers the last poll shown by the "Recent Changes" view
// so it can diff it against the current cache contents.
type changeTracker struct {
	d        *differ.Differ
	p        *patcher.Patcher
	lastPoll []engine.PoolSnapshot
}

// --- VISUAL CONSTANTS ---
const (
	Reset  = "\033[0m"
	Bold   = "\033[1m"
	Red    = "\033[31m"
	Green  = "\033[32m"
	Yellow = "\033[33m"
	Cyan   = "\033[36m"
	Gray   = "\033[37m"
)

// header prints a styled section header
func header(title string) {
	fmt.Println("\n" + Bold + Cyan + ":: " + title + " ::" + Reset)
}

func main() {
	logFile, err := os.OpenFile("detector.log", os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
	if err != nil {
		panic(fmt.Sprintf("failed to open log file: %v", err))
	}
	defer logFile.Close()

	rootLogger := slog.New(slog.NewJSONHandler(logFile, nil))
	closeApp := func() {
		fmt.Println("\n" + Red + "Fatal error occurred. Check detector.log for details." + Reset)
		os.Exit(1)
	}

	cfg, err := loadConfig()
	if err != nil {
		rootLogger.Error("failed to load configuration", "error", err)
		closeApp()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cache := pricecache.New()
	tracker := errtracker.New(rootLogger.With("component", "errtracker"))
	d, err := differ.New(&differ.Config{
		Registry: prometheus.DefaultRegisterer,
		Logger:   slogDiffLogger{rootLogger.With("component", "differ")},
	})
	if err != nil {
		rootLogger.Error("failed to construct differ", "error", err)
		closeApp()
	}
	changes := &changeTracker{d: d, p: patcher.New()}
	vaults := vault.NewReader()
	poolFactory := factory.NewPoolFactory(nil)
	router := subscription.New(poolFactory, vaults, cache, rootLogger.With("component", "subscription"))

	pools := make([]engine.PoolDescriptor, len(cfg.Pools))
	for i, p := range cfg.Pools {
		pools[i] = engine.PoolDescriptor{PoolID: p.Address, Pair: p.Name, DexType: p.PoolType}
	}

	wsClient := transport.New(cfg.WebSocket.URL, pools, router, rootLogger.With("component", "transport"))
	go wsClient.Run(ctx)

	fmt.Println(Green + "Starting arbitrage detector console..." + Reset)
	fmt.Println("Logs are being written to 'detector.log'")
	runConsole(ctx, cache, tracker, changes)
}

// runConsole handles user input and display for as long as ctx is live.
func runConsole(ctx context.Context, cache *pricecache.Cache, tracker *errtracker.Tracker, changes *changeTracker) {
	reader := bufio.NewReader(os.Stdin)
	time.Sleep(500 * time.Millisecond)

	for {
		if ctx.Err() != nil {
			return
		}

		printMenu()
		fmt.Print(Bold + "Enter selection: " + Reset)
		input, err := reader.ReadString('\n')
		if err != nil {
			fmt.Println("error reading input:", err)
			continue
		}
		input = strings.TrimSpace(input)

		handleCommand(input, cache, tracker, changes, reader)

		fmt.Println("\n" + Gray + "[Press Enter to continue]" + Reset)
		reader.ReadString('\n')
	}
}

func printMenu() {
	fmt.Print("\033[H\033[2J") // Clear screen
	fmt.Println(Bold + "ARB DETECTOR CONSOLE" + Reset + Gray + " | v0.1.0" + Reset)
	fmt.Println(Gray + "-----------------------------------" + Reset)
	fmt.Printf(" %s1.%s Cache Stats    %s(population, freshness, slot alignment)%s\n", Cyan, Reset, Gray, Reset)
	fmt.Printf(" %s2.%s Find Pool      %s(by pool ID)%s\n", Cyan, Reset, Gray, Reset)
	fmt.Printf(" %s3.%s Watch Pool     %s(live price monitor)%s\n", Cyan, Reset, Gray, Reset)
	fmt.Printf(" %s4.%s Error Report   %s(decode/validation error tracker)%s\n", Cyan, Reset, Gray, Reset)
	fmt.Printf(" %s5.%s Recent Changes %s(diff since last poll)%s\n", Cyan, Reset, Gray, Reset)
	fmt.Println(Gray + "-----------------------------------" + Reset)
	fmt.Printf(" %sh.%s Help\n", Yellow, Reset)
	fmt.Printf(" %sq.%s Quit\n", Red, Reset)
	fmt.Println("")
}

func handleCommand(input string, cache *pricecache.Cache, tracker *errtracker.Tracker, changes *changeTracker, reader *bufio.Reader) {
	switch input {
	case "1":
		printCacheStats(cache)
	case "2":
		findPool(cache, reader)
	case "3":
		watchPool(cache, reader)
	case "4":
		printErrorReport(tracker)
	case "5":
		printRecentChanges(cache, changes)
	case "h":
		printHelp()
	case "q":
		exitConsole()
	default:
		fmt.Println(Red + "Unknown command." + Reset)
	}
}

func printHelp() {
	fmt.Print("\033[H\033[2J")
	header("ARBITRAGE DETECTOR ARCHITECTURE")
	fmt.Println(Bold + "Concept: Subscription-Driven Price Cache" + Reset)
	fmt.Println("Each configured pool's account is subscribed over a WebSocket stream;")
	fmt.Println("decoded updates install a snapshot in the shared price cache, which the")
	fmt.Println("scan triggers (event-driven and timer-driven) read from to search for")
	fmt.Println("cross-pool arbitrage.")
	fmt.Println("")
	fmt.Println(Bold + "1. PRICE CACHE" + Reset)
	fmt.Println("   Holds the latest " + Cyan + "PoolSnapshot" + Reset + " per pool_id: price, reserves, slot,")
	fmt.Println("   and last-update time. Vault-mode pools join two SPL token account")
	fmt.Println("   updates before a price can be derived.")
	fmt.Println("")
	fmt.Println(Bold + "2. ERROR TRACKER" + Reset)
	fmt.Println("   Coalesces decode/validation/simulation failures by key, tracking")
	fmt.Println("   first/last-seen timestamps and a handful of sample messages.")
	fmt.Println("")
	fmt.Println(Bold + "3. CHANGE TRACKING" + Reset)
	fmt.Println("   'Recent Changes' diffs the cache against the poll it last showed you,")
	fmt.Println("   then replays that diff forward to confirm it reconstructs the cache.")
	fmt.Println(Gray + "---------------------------------------------------------------" + Reset)
}

func printCacheStats(cache *pricecache.Cache) {
	header("CACHE STATS")
	quality := cache.Quality()

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 4, ' ', 0)
	fmt.Fprintln(w, "METRIC\tVALUE\t")
	fmt.Fprintln(w, "------\t-----\t")
	fmt.Fprintf(w, "Total pools\t%d\t\n", quality.Total)
	fmt.Fprintf(w, "Unique pairs\t%d\t\n", quality.UniquePairCount)
	fmt.Fprintf(w, "Fresh pools\t%d\t\n", quality.FreshCount)
	fmt.Fprintf(w, "Slot-aligned pools\t%d\t\n", quality.AlignedCount)
	fmt.Fprintf(w, "Average age (ms)\t%d\t\n", quality.AvgAgeMillis)
	fmt.Fprintf(w, "Latest slot\t%d\t\n", quality.LatestSlot)
	fmt.Fprintf(w, "Consistency score\t%.1f\t\n", quality.ConsistencyScore)
	w.Flush()
}

func findPool(cache *pricecache.Cache, reader *bufio.Reader) {
	fmt.Print("\n" + Bold + "[Find Pool] Enter pool ID: " + Reset)
	poolID := readLine(reader)
	if poolID == "" {
		return
	}
	printPoolSnapshot(cache, poolID)
}

func printPoolSnapshot(cache *pricecache.Cache, poolID string) {
	snap, ok := cache.Get(poolID)
	if !ok {
		fmt.Println(Red + "[NOT FOUND] Pool not yet observed." + Reset)
		return
	}

	header("POOL SNAPSHOT")
	fmt.Printf(" %s%-12s%s %s\n", Gray, "Pool ID:", Reset, snap.PoolID)
	fmt.Printf(" %s%-12s%s %s\n", Gray, "DEX:", Reset, snap.DexName)
	fmt.Printf(" %s%-12s%s %s\n", Gray, "Pair:", Reset, snap.Pair)
	fmt.Printf(" %s%-12s%s %s%.8f%s\n", Gray, "Price:", Reset, Green, snap.Price, Reset)
	fmt.Printf(" %s%-12s%s %d / %d\n", Gray, "Reserves:", Reset, snap.BaseReserve, snap.QuoteReserve)
	fmt.Printf(" %s%-12s%s %d\n", Gray, "Slot:", Reset, snap.Slot)
	fmt.Printf(" %s%-12s%s %s\n", Gray, "Last update:", Reset, snap.LastUpdate.Format(time.RFC3339))
}

func watchPool(cache *pricecache.Cache, reader *bufio.Reader) {
	fmt.Print("\n" + Bold + "[Watch Pool] Enter pool ID: " + Reset)
	poolID := readLine(reader)
	if poolID == "" {
		return
	}

	fmt.Println(Green + "Starting live watch... (press Enter to stop)" + Reset)
	time.Sleep(1 * time.Second)

	stopCh := make(chan struct{})
	go func() {
		reader.ReadString('\n')
		close(stopCh)
	}()

	ticker := time.NewTicker(250 * time.Millisecond)
	defer ticker.Stop()

	var lastSlot uint64
	for {
		select {
		case <-stopCh:
			return
		case <-ticker.C:
			snap, ok := cache.Get(poolID)
			if !ok || snap.Slot == lastSlot {
				continue
			}
			lastSlot = snap.Slot

			fmt.Print("\033[H\033[2J")
			fmt.Printf(Bold+"\n--- LIVE MONITOR (slot %d) ---\n"+Reset, snap.Slot)
			fmt.Println(Gray + "Press ENTER to return to menu." + Reset)
			printPoolSnapshot(cache, poolID)
		}
	}
}

func printErrorReport(tracker *errtracker.Tracker) {
	header("ERROR TRACKER REPORT")
	report := tracker.Report()
	if len(report) == 0 {
		fmt.Println(Gray + "No errors recorded." + Reset)
		return
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 4, ' ', 0)
	fmt.Fprintln(w, "KEY\tCOUNT\tFIRST SEEN\tLAST SEEN\t")
	fmt.Fprintln(w, "---\t-----\t----------\t---------\t")
	for key, stats := range report {
		fmt.Fprintf(w, "%s\t%d\t%s\t%s\t\n", key, stats.Count,
			stats.FirstSeen.Format(time.Kitchen), stats.LastSeen.Format(time.Kitchen))
	}
	w.Flush()

	fmt.Printf("\n%sTotal errors: %d across %d distinct keys%s\n",
		Bold, tracker.TotalErrors(), tracker.UniqueErrors(), Reset)
}

// printRecentChanges diffs the current cache contents against the poll
// captured by the previous call, prints what changed, then patches the
// previous poll forward and asserts the result reconstructs the current
// poll as a sanity check on the differ/patcher round trip.
func printRecentChanges(cache *pricecache.Cache, changes *changeTracker) {
	header("RECENT CHANGES")
	current := cache.All()

	if changes.lastPoll == nil {
		fmt.Println(Gray + "First poll captured; run again to see changes." + Reset)
		changes.lastPoll = current
		return
	}

	diff := changes.d.Diff(changes.lastPoll, current)
	if len(diff.Changes) == 0 {
		fmt.Println(Gray + "No changes since last poll." + Reset)
	} else {
		w := tabwriter.NewWriter(os.Stdout, 0, 0, 4, ' ', 0)
		fmt.Fprintln(w, "POOL ID\tKIND\tOLD PRICE\tNEW PRICE\t")
		fmt.Fprintln(w, "-------\t----\t---------\t---------\t")
		for _, c := range diff.Changes {
			var oldPrice, newPrice string
			if c.Old != nil {
				oldPrice = fmt.Sprintf("%.8f", c.Old.Price)
			}
			if c.New != nil {
				newPrice = fmt.Sprintf("%.8f", c.New.Price)
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t\n", c.PoolID, c.Kind, oldPrice, newPrice)
		}
		w.Flush()
	}

	reconstructed, err := changes.p.Patch(changes.lastPoll, diff)
	if err != nil {
		fmt.Printf("%s[round-trip check failed] %v%s\n", Red, err, Reset)
	} else if len(reconstructed) != len(current) {
		fmt.Printf("%s[round-trip check failed] reconstructed %d pools, expected %d%s\n", Red, len(reconstructed), len(current), Reset)
	}

	changes.lastPoll = current
}

func readLine(reader *bufio.Reader) string {
	input, _ := reader.ReadString('\n')
	return strings.TrimSpace(input)
}

func exitConsole() {
	fmt.Println(Yellow + "Exiting..." + Reset)
	os.Exit(0)
}

func loadConfig() (*config.Config, error) {
	configPath := flag.String("config", "config.yaml", "Path to the configuration file.")
	flag.Parse()
	log.Printf("loading configuration from: %s", *configPath)
	return config.Load(*configPath)
}
