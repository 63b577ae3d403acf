// Package subscription is the state machine that turns a stream of
// raw account-update events into price cache writes: it maps
// subscription IDs to configured pools or auto-discovered vaults,
// decodes account bytes through the pool factory, joins vault
// balances back into vault-mode reserves, and filters outgoing price
// updates by a minimum change threshold. It is deliberately decoupled
// from the transport, mirroring the teacher's StreamProcessor split
// between pure dataflow logic and the networking wrapper around it.
package subscription

import (
	"fmt"
	"log/slog"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/solarb/arb-detector-go/decoder/factory"
	"github.com/solarb/arb-detector-go/decoder/spltoken"
	"github.com/solarb/arb-detector-go/engine"
	"github.com/solarb/arb-detector-go/pricecache"
	"github.com/solarb/arb-detector-go/vault"
)

const (
	// vaultRequestIDBase is the floor of the dynamically requested
	// vault-subscription range: vault requests are numbered upward from
	// vaultRequestIDBase+1; configured pools use request IDs in
	// [1, vaultRequestIDBase).
	vaultRequestIDBase = 10_000

	// defaultChangeThresholdPercent gates how large a price move must
	// be before a PriceUpdateEvent is published; first observations
	// always publish regardless of this threshold.
	defaultChangeThresholdPercent = 1.0

	vaultRequestQueueSize = 256
)

// VaultSubscribeRequest asks the external transport to subscribe to
// one vault account the router discovered from a pool decode. The
// transport owns the actual subscribe call; the router only tracks
// the pending request until it is acknowledged.
type VaultSubscribeRequest struct {
	RequestID    uint64
	VaultAddress string
}

// Router maps subscription IDs to pools or vaults, decodes incoming
// account bytes, and joins vault balances back into pool snapshots
// before writing to the price cache.
type Router struct {
	mu sync.Mutex

	poolSubscriptions  map[uint64]engine.PoolDescriptor
	vaultPending       map[uint64]string // requestID -> vault address awaiting ack
	vaultSubscriptions map[uint64]string // subID -> vault address
	// rawAwaitingVaults caches a pool's raw bytes from its first
	// vault-mode observation, so the router can re-derive price on
	// every vault balance change without asking the transport to
	// resend the account. Later pool updates do not replace the
	// cached bytes; entries are dropped only by Reset.
	rawAwaitingVaults map[string][]byte
	poolPair          map[string]string // poolID -> pair, for re-derivation after vault updates
	poolLabel         map[string]string // poolID -> configured/detected dex label

	nextVaultRequestID atomic.Uint64

	factory                *factory.PoolFactory
	vaults                 *vault.Reader
	cache                  *pricecache.Cache
	changeThresholdPercent float64
	vaultRequests          chan VaultSubscribeRequest
	logger                 *slog.Logger
}

// New builds a Router. A nil logger falls back to slog.Default().
func New(f *factory.PoolFactory, vaults *vault.Reader, cache *pricecache.Cache, logger *slog.Logger) *Router {
	if logger == nil {
		logger = slog.Default()
	}
	r := &Router{
		poolSubscriptions:      make(map[uint64]engine.PoolDescriptor),
		vaultPending:           make(map[uint64]string),
		vaultSubscriptions:     make(map[uint64]string),
		rawAwaitingVaults:      make(map[string][]byte),
		poolPair:               make(map[string]string),
		poolLabel:              make(map[string]string),
		factory:                f,
		vaults:                 vaults,
		cache:                  cache,
		changeThresholdPercent: defaultChangeThresholdPercent,
		vaultRequests:          make(chan VaultSubscribeRequest, vaultRequestQueueSize),
		logger:                 logger,
	}
	r.nextVaultRequestID.Store(vaultRequestIDBase)
	return r
}

// VaultRequests returns the channel the transport reads to learn which
// vault accounts to subscribe to next, and with what request ID to
// later acknowledge.
func (r *Router) VaultRequests() <-chan VaultSubscribeRequest {
	return r.vaultRequests
}

// RegisterPool binds a configured pool's subscription ID to its
// descriptor. Configured pools use request IDs in [1, 10000).
func (r *Router) RegisterPool(subID uint64, desc engine.PoolDescriptor) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.poolSubscriptions[subID] = desc
	r.poolPair[desc.PoolID] = desc.Pair
	r.poolLabel[desc.PoolID] = desc.DexType
}

// AcknowledgeVaultSubscription completes a pending vault subscribe
// request once the transport reports the subscription ID it was
// assigned.
func (r *Router) AcknowledgeVaultSubscription(requestID, subID uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	addr, ok := r.vaultPending[requestID]
	if !ok {
		return
	}
	delete(r.vaultPending, requestID)
	r.vaultSubscriptions[subID] = addr
}

// Reset discards all subscription state. Called on transport
// reconnect: no replay is assumed, so the cache simply tolerates the
// resulting gap until fresh subscriptions land.
func (r *Router) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.poolSubscriptions = make(map[uint64]engine.PoolDescriptor)
	r.vaultPending = make(map[uint64]string)
	r.vaultSubscriptions = make(map[uint64]string)
	r.rawAwaitingVaults = make(map[string][]byte)
}

// HandleAccountUpdate dispatches one incoming account notification.
// A 165-byte blob is an SPL token (vault) account; anything else is
// looked up as a configured or auto-detected pool subscription.
func (r *Router) HandleAccountUpdate(subID uint64, data []byte, slot uint64) error {
	if len(data) == spltoken.AccountLen {
		if handled, err := r.handleVaultUpdate(subID, data, slot); handled {
			return err
		}
		// Falls through: a 165-byte pool account (unlikely but not
		// impossible) is still tried as a pool subscription below.
	}
	return r.handlePoolUpdate(subID, data, slot)
}

func (r *Router) handleVaultUpdate(subID uint64, data []byte, slot uint64) (handled bool, err error) {
	r.mu.Lock()
	vaultAddr, ok := r.vaultSubscriptions[subID]
	r.mu.Unlock()
	if !ok {
		return false, nil
	}

	account, err := spltoken.FromAccountData(data)
	if err != nil {
		return true, fmt.Errorf("subscription: decode vault account %s: %w", vaultAddr, err)
	}
	r.vaults.UpdateVault(vaultAddr, account)

	for _, poolID := range r.vaults.PoolsForVault(vaultAddr) {
		if err := r.rederivePool(poolID, slot); err != nil {
			r.logger.Warn("subscription: failed to re-derive price after vault update",
				"pool_id", poolID, "vault", vaultAddr, "err", err)
		}
	}
	return true, nil
}

func (r *Router) handlePoolUpdate(subID uint64, data []byte, slot uint64) error {
	r.mu.Lock()
	desc, ok := r.poolSubscriptions[subID]
	r.mu.Unlock()
	if !ok {
		return fmt.Errorf("subscription: unknown subscription id %d", subID)
	}

	pool, err := r.decodePool(desc, data)
	if err != nil {
		return fmt.Errorf("subscription: decode pool %s: %w", desc.PoolID, err)
	}
	if !pool.IsActive() {
		return nil
	}

	if vaultBase, vaultQuote, ok := pool.VaultAddresses(); ok {
		_, alreadyBound := r.vaults.ReservesFor(desc.PoolID)
		firstObservation := !alreadyBound
		r.vaults.RegisterPoolVaults(desc.PoolID, vaultBase, vaultQuote)
		if firstObservation {
			r.mu.Lock()
			r.rawAwaitingVaults[desc.PoolID] = append([]byte(nil), data...)
			r.mu.Unlock()
			r.requestVaultSubscription(vaultBase)
			r.requestVaultSubscription(vaultQuote)
			return nil
		}
	}

	return r.deriveAndPublish(desc.PoolID, desc.Pair, pool, slot)
}

func (r *Router) decodePool(desc engine.PoolDescriptor, data []byte) (poolDecoder, error) {
	if desc.DexType == "" || desc.DexType == "unknown" {
		return r.factory.CreateAutoDetect(desc.Pair, data)
	}
	return r.factory.Create(desc.DexType, desc.Pair, data)
}

// rederivePool re-decodes a pool's cached raw bytes (if any) and
// re-derives its price now that a vault balance changed, joining
// vault-sourced reserves over whatever the inline decode reports.
func (r *Router) rederivePool(poolID string, slot uint64) error {
	r.mu.Lock()
	raw, hasRaw := r.rawAwaitingVaults[poolID]
	pair := r.poolPair[poolID]
	label := r.poolLabel[poolID]
	r.mu.Unlock()
	if !hasRaw {
		return nil
	}

	var (
		pool poolDecoder
		err  error
	)
	if label == "" || label == "unknown" {
		pool, err = r.factory.CreateAutoDetect(pair, raw)
	} else {
		pool, err = r.factory.Create(label, pair, raw)
	}
	if err != nil {
		return err
	}
	return r.deriveAndPublish(poolID, pair, pool, slot)
}

// poolDecoder is the subset of decoder.DexPool this package uses,
// named locally to avoid an import of the decoder package solely for
// its interface name.
type poolDecoder interface {
	DexName() string
	CalculatePrice() (float64, error)
	Reserves() (uint64, uint64)
	Decimals() (uint8, uint8)
	IsActive() bool
	VaultAddresses() (base, quote string, ok bool)
}

// deriveAndPublish computes the pool's price (preferring vault-joined
// reserves when available), skips zero-valued computations, and
// writes through to the cache only when the change exceeds the
// configured threshold or this is the pool's first observation.
func (r *Router) deriveAndPublish(poolID, pair string, pool poolDecoder, slot uint64) error {
	baseDecimals, quoteDecimals := pool.Decimals()
	baseReserve, quoteReserve := pool.Reserves()

	var (
		price       float64
		vaultJoined bool
	)
	if res, ok := r.vaults.ReservesFor(poolID); ok && res.Ready {
		baseReserve, quoteReserve = res.Base, res.Quote
		vaultJoined = true
	}

	if vaultJoined {
		// Vault-mode decoders cannot compute their own price (their
		// CalculatePrice always fails: the pool account carries no
		// reserves), so once the vault reader has both sides ready
		// the router derives the ratio directly.
		price = priceFromReserves(baseReserve, baseDecimals, quoteReserve, quoteDecimals)
		if price == 0 {
			return nil
		}
	} else {
		var err error
		price, err = pool.CalculatePrice()
		if err != nil {
			return err
		}
		if price == 0 {
			return nil
		}
	}

	existing, hadExisting := r.cache.Get(poolID)
	if hadExisting && existing.Price != 0 {
		change := percentChange(existing.Price, price)
		if change < r.changeThresholdPercent {
			return nil
		}
	}

	return r.cache.Update(engine.PoolSnapshot{
		PoolID:        poolID,
		DexName:       pool.DexName(),
		Pair:          pair,
		Base:          basePart(pair),
		Quote:         quotePart(pair),
		BaseReserve:   baseReserve,
		QuoteReserve:  quoteReserve,
		BaseDecimals:  baseDecimals,
		QuoteDecimals: quoteDecimals,
		Price:         price,
		LastUpdate:    time.Now(),
		Slot:          slot,
	})
}

func (r *Router) requestVaultSubscription(vaultAddr string) {
	requestID := r.nextVaultRequestID.Add(1)
	r.mu.Lock()
	r.vaultPending[requestID] = vaultAddr
	r.mu.Unlock()

	select {
	case r.vaultRequests <- VaultSubscribeRequest{RequestID: requestID, VaultAddress: vaultAddr}:
	default:
		r.logger.Warn("subscription: vault request queue full, dropping request",
			"vault", vaultAddr, "request_id", requestID)
	}
}

// priceFromReserves computes quote-per-base after decimal
// normalization, the same formula every inline-reserve decoder uses,
// for reserves joined in from the vault reader instead of parsed
// directly out of a pool account.
func priceFromReserves(baseReserve uint64, baseDecimals uint8, quoteReserve uint64, quoteDecimals uint8) float64 {
	if baseReserve == 0 || quoteReserve == 0 {
		return 0
	}
	base := float64(baseReserve) / math.Pow(10, float64(baseDecimals))
	quote := float64(quoteReserve) / math.Pow(10, float64(quoteDecimals))
	if base == 0 {
		return 0
	}
	price := quote / base
	if math.IsNaN(price) || math.IsInf(price, 0) || price <= 0 {
		return 0
	}
	return price
}

func percentChange(oldPrice, newPrice float64) float64 {
	diff := (newPrice - oldPrice) / oldPrice * 100.0
	if diff < 0 {
		diff = -diff
	}
	return diff
}

func basePart(pair string) string {
	for i, r := range pair {
		if r == '/' {
			return pair[:i]
		}
	}
	return pair
}

func quotePart(pair string) string {
	for i, r := range pair {
		if r == '/' {
			return pair[i+1:]
		}
	}
	return ""
}
