// Package vault tracks the pool<->vault bindings for vault-mode DEXs
// and joins vault account balances back to reserves the search layer
// can use. Vault-mode pool accounts never carry reserves inline; the
// subscription router discovers a pool's two vault addresses from the
// decoded pool account, subscribes to those vault accounts separately,
// and every incoming vault balance update is pushed through Reader.
package vault

import (
	"sync"
	"sync/atomic"

	"github.com/solarb/arb-detector-go/decoder/spltoken"
)

// Reserves is a snapshot of a vault-mode pool's joined reserves.
type Reserves struct {
	Base, Quote uint64
	// Ready is true once balances for both the base and quote vault
	// have been observed at least once.
	Ready bool
}

type binding struct {
	vaultBase, vaultQuote string
}

// snapshot is the deep-copyable read view backing the lock-free Load
// path, mirroring the registry/cached-view split used elsewhere in the
// codebase for high-read-throughput shared state.
type snapshot struct {
	reserves map[string]Reserves // poolID -> joined reserves
}

// Reader maintains the pool<->vault address graph and the latest
// balance observed for each vault account.
type Reader struct {
	mu sync.RWMutex

	bindings    map[string]binding     // poolID -> vault addresses
	vaultToPool map[string][]string    // vault address -> pool IDs it feeds
	balances    map[string]uint64      // vault address -> latest raw balance
	cached      atomic.Pointer[snapshot]
}

// NewReader builds an empty vault reader.
func NewReader() *Reader {
	r := &Reader{
		bindings:    make(map[string]binding),
		vaultToPool: make(map[string][]string),
		balances:    make(map[string]uint64),
	}
	r.cached.Store(&snapshot{reserves: make(map[string]Reserves)})
	return r
}

// RegisterPoolVaults binds a pool to its base/quote vault addresses.
// Idempotent: re-registering the same pool with the same addresses is
// a no-op; re-registering with different addresses replaces the old
// binding and drops the pool from the old vaults' fan-out lists.
func (r *Reader) RegisterPoolVaults(poolID, vaultBase, vaultQuote string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.bindings[poolID]; ok {
		if existing.vaultBase == vaultBase && existing.vaultQuote == vaultQuote {
			return
		}
		r.unlinkLocked(poolID, existing)
	}

	r.bindings[poolID] = binding{vaultBase: vaultBase, vaultQuote: vaultQuote}
	r.vaultToPool[vaultBase] = appendUnique(r.vaultToPool[vaultBase], poolID)
	r.vaultToPool[vaultQuote] = appendUnique(r.vaultToPool[vaultQuote], poolID)

	r.refreshLocked()
}

func (r *Reader) unlinkLocked(poolID string, b binding) {
	r.vaultToPool[b.vaultBase] = removeValue(r.vaultToPool[b.vaultBase], poolID)
	r.vaultToPool[b.vaultQuote] = removeValue(r.vaultToPool[b.vaultQuote], poolID)
}

// UpdateVault records a new raw balance for a vault account, decoded
// from a 165-byte SPL token account, and refreshes every pool bound
// to that vault.
func (r *Reader) UpdateVault(vaultAddress string, account *spltoken.Account) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.balances[vaultAddress] = account.Amount
	r.refreshLocked()
}

// refreshLocked must be called with mu held for writing. It rebuilds
// the joined-reserves snapshot and atomically publishes it.
func (r *Reader) refreshLocked() {
	next := &snapshot{reserves: make(map[string]Reserves, len(r.bindings))}
	for poolID, b := range r.bindings {
		base, baseOK := r.balances[b.vaultBase]
		quote, quoteOK := r.balances[b.vaultQuote]
		next.reserves[poolID] = Reserves{
			Base:  base,
			Quote: quote,
			Ready: baseOK && quoteOK,
		}
	}
	r.cached.Store(next)
}

// PoolsForVault returns the pool IDs fed by the given vault address.
func (r *Reader) PoolsForVault(vaultAddress string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, len(r.vaultToPool[vaultAddress]))
	copy(out, r.vaultToPool[vaultAddress])
	return out
}

// ReservesFor returns the joined reserves for a pool, reading from the
// lock-free cached snapshot.
func (r *Reader) ReservesFor(poolID string) (Reserves, bool) {
	snap := r.cached.Load()
	if snap == nil {
		return Reserves{}, false
	}
	res, ok := snap.reserves[poolID]
	return res, ok
}

func appendUnique(list []string, v string) []string {
	for _, existing := range list {
		if existing == v {
			return list
		}
	}
	return append(list, v)
}

func removeValue(list []string, v string) []string {
	out := list[:0]
	for _, existing := range list {
		if existing != v {
			out = append(out, existing)
		}
	}
	return out
}
