// Package pmm implements the proactive/oracle market maker decoder row
// of the per-DEX contract table (Lifinity V2). Lifinity's account
// layout is not fixed across its own minor versions, so this decoder
// tries a short list of candidate offsets and accepts the first one
// that yields a plausible price, rather than a single fixed layout.
package pmm

import (
	"encoding/binary"
	"math"

	"github.com/solarb/arb-detector-go/decoder"
)

// candidateOffsets lists the byte offsets (each an 8-byte u64 base
// reserve followed immediately by an 8-byte u64 quote reserve) that
// different Lifinity V2 account revisions have been observed to use.
var candidateOffsets = []int{8, 16, 24, 40}

const minAccountLen = 48

// Pool is a decoded Lifinity-style oracle PMM pool.
type Pool struct {
	dexName       string
	pair          string
	baseReserve   uint64
	quoteReserve  uint64
	baseDecimals  uint8
	quoteDecimals uint8
	active        bool
}

// PlausibleRange bounds what counts as a plausible decoded price for a
// pair; outside of this window a candidate offset is rejected in favor
// of the next one.
type PlausibleRange struct {
	Min, Max float64
}

// DefaultPlausibleRange accepts any finite price in [1e-12, 1e12];
// callers with prior knowledge of a pair's expected range should pass
// a tighter PlausibleRange to FromAccountData.
var DefaultPlausibleRange = PlausibleRange{Min: 1e-12, Max: 1e12}

// FromAccountData tries each candidate offset in turn, decoding a pair
// of u64 reserves and computing quote/base. The first candidate whose
// derived price falls within plausible yields the result; if none do,
// the account is reported invalid.
func FromAccountData(dexName, pair string, baseDecimals, quoteDecimals uint8, plausible PlausibleRange, data []byte) (*Pool, error) {
	if len(data) < minAccountLen {
		return nil, decoder.NewDataLengthMismatch(minAccountLen, len(data))
	}

	for _, off := range candidateOffsets {
		if off+16 > len(data) {
			continue
		}
		base := binary.LittleEndian.Uint64(data[off:])
		quote := binary.LittleEndian.Uint64(data[off+8:])
		if base == 0 || quote == 0 {
			continue
		}

		price := scaledPrice(base, quote, baseDecimals, quoteDecimals)
		if math.IsNaN(price) || math.IsInf(price, 0) || price < plausible.Min || price > plausible.Max {
			continue
		}

		return &Pool{
			dexName:       dexName,
			pair:          pair,
			baseReserve:   base,
			quoteReserve:  quote,
			baseDecimals:  baseDecimals,
			quoteDecimals: quoteDecimals,
			active:        true,
		}, nil
	}

	return nil, decoder.NewInvalidData("no candidate offset produced a plausible price")
}

func (p *Pool) DexName() string { return p.dexName }

func (p *Pool) Decimals() (uint8, uint8) { return p.baseDecimals, p.quoteDecimals }

func (p *Pool) IsActive() bool { return p.active }

func (p *Pool) AdditionalInfo() string { return p.pair }

func (p *Pool) VaultAddresses() (string, string, bool) { return "", "", false }

func (p *Pool) Reserves() (uint64, uint64) { return p.baseReserve, p.quoteReserve }

func (p *Pool) CalculatePrice() (float64, error) {
	if p.baseReserve == 0 || p.quoteReserve == 0 {
		return 0, decoder.NewPoolNotActive()
	}
	price := scaledPrice(p.baseReserve, p.quoteReserve, p.baseDecimals, p.quoteDecimals)
	if math.IsNaN(price) || math.IsInf(price, 0) || price <= 0 {
		return 0, decoder.NewValidationFailed("non-finite or non-positive price")
	}
	return price, nil
}

func scaledPrice(base, quote uint64, baseDecimals, quoteDecimals uint8) float64 {
	baseUI := float64(base)
	quoteUI := float64(quote)
	for i := uint8(0); i < baseDecimals; i++ {
		quoteUI *= 10
	}
	for i := uint8(0); i < quoteDecimals; i++ {
		baseUI *= 10
	}
	if baseUI == 0 {
		return math.NaN()
	}
	return quoteUI / baseUI
}
