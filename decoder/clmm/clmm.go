// Package clmm implements the concentrated-liquidity decoder row of
// the per-DEX contract table, shared by Raydium CLMM and Orca
// Whirlpool — both are Uniswap-V3-style forks at the account-layout
// level: tick + sqrtPriceX96 (Q64.96) + liquidity.
package clmm

import (
	"encoding/binary"
	"math"
	"math/big"

	"github.com/solarb/arb-detector-go/decoder"
	"github.com/solarb/arb-detector-go/decoder/clmm/tickmath"
)

// MinAccountLen / MaxAccountLen bound the "fixed, ~1.5 kB" blob length
// from the contract table; the factory's auto-detect tries this
// family for any blob in this window.
const (
	MinAccountLen = 1500
	MaxAccountLen = 1600
	u128Len       = 16
)

const (
	offTick         = 0
	offSqrtPriceX96 = 8
	offLiquidity    = offSqrtPriceX96 + u128Len
	offBaseDecimals = offLiquidity + u128Len
	offQuoteDecimals = offBaseDecimals + 1
	offStatus        = offQuoteDecimals + 1
)

// Pool is a decoded concentrated-liquidity pool.
type Pool struct {
	dexName       string
	pair          string
	tick          int64
	sqrtPriceX96  *big.Int
	liquidity     *big.Int
	baseDecimals  uint8
	quoteDecimals uint8
	active        bool
}

// FromAccountData parses a raw account blob. Any length within
// [MinAccountLen, MaxAccountLen] is accepted, matching the factory's
// length-biased auto-detect window.
func FromAccountData(dexName, pair string, data []byte) (*Pool, error) {
	if len(data) < MinAccountLen || len(data) > MaxAccountLen {
		return nil, decoder.NewDataLengthMismatch(MinAccountLen, len(data))
	}

	tick := int64(binary.LittleEndian.Uint64(data[offTick:]))
	if tick < tickmath.MinTick || tick > tickmath.MaxTick {
		return nil, decoder.NewValidationFailed("tick out of bounds")
	}

	sqrtPriceX96 := new(big.Int).SetBytes(reverse(data[offSqrtPriceX96 : offSqrtPriceX96+u128Len]))
	liquidity := new(big.Int).SetBytes(reverse(data[offLiquidity : offLiquidity+u128Len]))

	return &Pool{
		dexName:       dexName,
		pair:          pair,
		tick:          tick,
		sqrtPriceX96:  sqrtPriceX96,
		liquidity:     liquidity,
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

// Reserves approximates base/quote amounts from liquidity and the
// current sqrt price, per the contract table's "reserves approximated
// L-based" rule: reserve_base = L / sqrtP, reserve_quote = L * sqrtP.
func (p *Pool) Reserves() (uint64, uint64) {
	if p.liquidity.Sign() == 0 || p.sqrtPriceX96.Sign() == 0 {
		return 0, 0
	}
	q96 := new(big.Int).Lsh(big.NewInt(1), 96)
	base := new(big.Int).Div(new(big.Int).Mul(p.liquidity, q96), p.sqrtPriceX96)
	quote := new(big.Int).Div(new(big.Int).Mul(p.liquidity, p.sqrtPriceX96), q96)
	return clampUint64(base), clampUint64(quote)
}

// CalculatePrice returns (sqrtPriceX96 / 2^96)^2, the concentrated-
// liquidity price-derivation rule.
func (p *Pool) CalculatePrice() (float64, error) {
	price := tickmath.PriceFromSqrtRatio(p.sqrtPriceX96)
	if math.IsNaN(price) || math.IsInf(price, 0) || price <= 0 {
		return 0, decoder.NewValidationFailed("non-finite or non-positive price")
	}
	return price, nil
}

func clampUint64(v *big.Int) uint64 {
	if !v.IsUint64() {
		return math.MaxUint64
	}
	return v.Uint64()
}

func reverse(b []byte) []byte {
	out := make([]byte, len(b))
	for i, v := range b {
		out[len(b)-1-i] = v
	}
	return out
}
