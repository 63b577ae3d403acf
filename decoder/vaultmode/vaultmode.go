// Package vaultmode implements the generic external-vault decoder row
// of the per-DEX contract table: AlphaQ, SolFi V2, HumidiFi, GoonFi,
// TesseraV, Aquifer and PancakeSwap all report no inline reserves —
// the pool account only carries the two SPL vault addresses, and
// actual balances are read from those vault accounts separately.
package vaultmode

import (
	"encoding/binary"

	"github.com/solarb/arb-detector-go/decoder"
)

const pubkeyLen = 32

// Pool is a decoded external-vault pool. Its reserves are always zero
// from the decoder's own point of view; the vault reader supplies the
// real balances once both vault accounts have been observed.
type Pool struct {
	dexName       string
	pair          string
	vaultBase     string
	vaultQuote    string
	baseDecimals  uint8
	quoteDecimals uint8
	active        bool
}

// Layout describes where the two vault pubkeys and the decimals bytes
// sit in a given DEX's account blob. Every vault-mode DEX uses its own
// account struct, but they all share this shape: two pubkeys plus a
// couple of metadata bytes.
type Layout struct {
	OffVaultBase     int
	OffVaultQuote    int
	OffBaseDecimals  int
	OffQuoteDecimals int
	OffStatus        int
	MinLen           int
}

// FromAccountData parses a vault-mode pool account using the supplied
// layout. Each vault-mode DEX registers its own Layout in the factory.
func FromAccountData(dexName, pair string, layout Layout, data []byte) (*Pool, error) {
	if len(data) < layout.MinLen {
		return nil, decoder.NewDataLengthMismatch(layout.MinLen, len(data))
	}

	vaultBase := encodeKey(data[layout.OffVaultBase : layout.OffVaultBase+pubkeyLen])
	vaultQuote := encodeKey(data[layout.OffVaultQuote : layout.OffVaultQuote+pubkeyLen])

	return &Pool{
		dexName:       dexName,
		pair:          pair,
		vaultBase:     vaultBase,
		vaultQuote:    vaultQuote,
		baseDecimals:  data[layout.OffBaseDecimals],
		quoteDecimals: data[layout.OffQuoteDecimals],
		active:        data[layout.OffStatus] != 0,
	}, nil
}

func (p *Pool) DexName() string { return p.dexName }

func (p *Pool) Decimals() (uint8, uint8) { return p.baseDecimals, p.quoteDecimals }

func (p *Pool) IsActive() bool { return p.active }

func (p *Pool) AdditionalInfo() string { return p.pair }

func (p *Pool) VaultAddresses() (string, string, bool) { return p.vaultBase, p.vaultQuote, true }

// Reserves is always (0, 0): vault-mode pools never self-report
// balances, per the detector's vault-reader dataflow rule.
func (p *Pool) Reserves() (uint64, uint64) { return 0, 0 }

// CalculatePrice cannot be derived from the pool account alone; the
// router computes price from vault-reported reserves instead.
func (p *Pool) CalculatePrice() (float64, error) {
	return 0, decoder.NewPoolNotActive()
}

// encodeKey renders a raw 32-byte pubkey as a hex string, since this
// domain's addresses are opaque strings rather than typed byte arrays.
func encodeKey(b []byte) string {
	const hexDigits = "0123456789abcdef"
	out := make([]byte, len(b)*2)
	for i, v := range b {
		out[i*2] = hexDigits[v>>4]
		out[i*2+1] = hexDigits[v&0x0f]
	}
	return string(out)
}

// ExtractU64 reads a little-endian u64 at the given offset, for
// layouts that also carry an informational (non-authoritative) amount
// field some of these DEXs include alongside the vault pointers.
func ExtractU64(data []byte, offset int) uint64 {
	if offset+8 > len(data) {
		return 0
	}
	return binary.LittleEndian.Uint64(data[offset:])
}
