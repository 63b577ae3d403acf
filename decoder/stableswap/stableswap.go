// Package stableswap implements the stable-swap decoder row of the
// per-DEX contract table (Stabble). Stable pools hold reserves inline
// like a constant-product pool, but price is pegged near 1.0 and both
// legs typically share the same decimals.
package stableswap

import (
	"encoding/binary"
	"math"

	"github.com/solarb/arb-detector-go/decoder"
)

const (
	offAmplification = 0  // u64, LE
	offBaseReserve   = 8  // u64, LE
	offQuoteReserve  = 16 // u64, LE
	offBaseDecimals  = 24
	offQuoteDecimals = 25
	offStatus        = 26
	AccountLen       = 27
)

// Pool is a decoded stable-swap pool.
type Pool struct {
	dexName       string
	pair          string
	amplification uint64
	baseReserve   uint64
	quoteReserve  uint64
	baseDecimals  uint8
	quoteDecimals uint8
	active        bool
}

// FromAccountData parses a raw stable-swap account blob.
func FromAccountData(dexName, pair string, data []byte) (*Pool, error) {
	if len(data) < AccountLen {
		return nil, decoder.NewDataLengthMismatch(AccountLen, len(data))
	}

	return &Pool{
		dexName:       dexName,
		pair:          pair,
		amplification: binary.LittleEndian.Uint64(data[offAmplification:]),
		baseReserve:   binary.LittleEndian.Uint64(data[offBaseReserve:]),
		quoteReserve:  binary.LittleEndian.Uint64(data[offQuoteReserve:]),
		baseDecimals:  data[offBaseDecimals],
		quoteDecimals: data[offQuoteDecimals],
		active:        data[offStatus] != 0,
	}, nil
}

func (p *Pool) DexName() string { return p.dexName }

func (p *Pool) Decimals() (uint8, uint8) { return p.baseDecimals, p.quoteDecimals }

func (p *Pool) IsActive() bool { return p.active }

func (p *Pool) AdditionalInfo() string { return p.pair }

func (p *Pool) VaultAddresses() (string, string, bool) { return "", "", false }

func (p *Pool) Reserves() (uint64, uint64) { return p.baseReserve, p.quoteReserve }

// CalculatePrice returns reserve ratios scaled by decimals, same-asset
// stable pools settle near 1.0 but the formula is decimals-generic.
func (p *Pool) CalculatePrice() (float64, error) {
	if p.baseReserve == 0 || p.quoteReserve == 0 {
		return 0, decoder.NewPoolNotActive()
	}

	baseUI := float64(p.baseReserve)
	quoteUI := float64(p.quoteReserve)
	for i := uint8(0); i < p.baseDecimals; i++ {
		quoteUI *= 10
	}
	for i := uint8(0); i < p.quoteDecimals; i++ {
		baseUI *= 10
	}
	if baseUI == 0 {
		return 0, decoder.NewValidationFailed("zero scaled base reserve")
	}

	price := quoteUI / baseUI
	if math.IsNaN(price) || math.IsInf(price, 0) || price <= 0 {
		return 0, decoder.NewValidationFailed("non-finite or non-positive price")
	}
	return price, nil
}

// Amplification returns the pool's amplification coefficient, which
// governs how tightly price is held near the peg.
func (p *Pool) Amplification() uint64 { return p.amplification }
