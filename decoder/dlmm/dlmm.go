// Package dlmm implements the bin-based concentrated-liquidity decoder
// row of the per-DEX contract table (Meteora DLMM). Price is derived
// from the active bin index and the pool's bin step in basis points:
// price = (1 + bin_step/10000) ^ active_bin. Reserves are vault-mode
// (read from external SPL vault accounts, not inline).
package dlmm

import (
	"encoding/binary"
	"math"

	"github.com/solarb/arb-detector-go/decoder"
)

const (
	offActiveBin     = 0 // i32, LE
	offBinStep       = 4 // u16, LE, basis points
	offBaseDecimals  = 6
	offQuoteDecimals = 7
	offVaultBase     = 8
	offVaultQuote    = 40
	offStatus        = 72
	AccountLen       = 73
)

// Pool is a decoded Meteora-style bin-based pool.
type Pool struct {
	dexName       string
	pair          string
	activeBin     int32
	binStepBps    uint16
	baseDecimals  uint8
	quoteDecimals uint8
	vaultBase     string
	vaultQuote    string
	active        bool
}

// FromAccountData parses a raw DLMM account blob.
func FromAccountData(dexName, pair string, data []byte) (*Pool, error) {
	if len(data) < AccountLen {
		return nil, decoder.NewDataLengthMismatch(AccountLen, len(data))
	}

	activeBin := int32(binary.LittleEndian.Uint32(data[offActiveBin:]))
	binStepBps := binary.LittleEndian.Uint16(data[offBinStep:])
	if binStepBps == 0 {
		return nil, decoder.NewValidationFailed("bin step must be positive")
	}

	return &Pool{
		dexName:       dexName,
		pair:          pair,
		activeBin:     activeBin,
		binStepBps:    binStepBps,
		baseDecimals:  data[offBaseDecimals],
		quoteDecimals: data[offQuoteDecimals],
		vaultBase:     encodeKey(data[offVaultBase : offVaultBase+32]),
		vaultQuote:    encodeKey(data[offVaultQuote : offVaultQuote+32]),
		active:        data[offStatus] != 0,
	}, nil
}

func (p *Pool) DexName() string { return p.dexName }

func (p *Pool) Decimals() (uint8, uint8) { return p.baseDecimals, p.quoteDecimals }

func (p *Pool) IsActive() bool { return p.active }

func (p *Pool) AdditionalInfo() string { return p.pair }

func (p *Pool) VaultAddresses() (string, string, bool) { return p.vaultBase, p.vaultQuote, true }

// Reserves are vault-mode: the decoder never self-reports balances.
func (p *Pool) Reserves() (uint64, uint64) { return 0, 0 }

// CalculatePrice computes (1 + bin_step/10000) ^ active_bin.
func (p *Pool) CalculatePrice() (float64, error) {
	base := 1.0 + float64(p.binStepBps)/10000.0
	price := math.Pow(base, float64(p.activeBin))
	if math.IsNaN(price) || math.IsInf(price, 0) || price <= 0 {
		return 0, decoder.NewValidationFailed("non-finite or non-positive bin price")
	}
	return price, nil
}

func encodeKey(b []byte) string {
	const hexDigits = "0123456789abcdef"
	out := make([]byte, len(b)*2)
	for i, v := range b {
		out[i*2] = hexDigits[v>>4]
		out[i*2+1] = hexDigits[v&0x0f]
	}
	return string(out)
}
