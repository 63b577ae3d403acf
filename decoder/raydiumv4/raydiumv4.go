// Package raydiumv4 implements the constant-product AMM decoder row
// of the per-DEX contract table: fixed-length account, inline
// reserves, price = quote/base after decimal normalization.
package raydiumv4

import (
	"encoding/binary"
	"math"

	"github.com/solarb/arb-detector-go/decoder"
)

// AccountLen is the fixed account length this layout expects. Field
// order mirrors deserializers/raydium.rs::RaydiumAmmInfo: sixteen
// leading u64 control fields, twelve pubkeys, then the two "CRITICAL"
// vault-amount reserves.
const AccountLen = 752

const (
	offStatus             = 0
	offCoinDecimals       = 4 * 8
	offPcDecimals         = 5 * 8
	u64ControlFieldsCount = 16
	pubkeyLen             = 32
	pubkeysCount          = 12
	offCoinVaultAmount    = u64ControlFieldsCount*8 + pubkeysCount*pubkeyLen
	offPcVaultAmount      = offCoinVaultAmount + 8
)

// Pool is a decoded Raydium AMM V4 style constant-product pool.
type Pool struct {
	dexName         string
	pair            string
	coinDecimals    uint8
	pcDecimals      uint8
	coinVaultAmount uint64
	pcVaultAmount   uint64
	feeBps          uint16
	status          uint64
}

// FromAccountData parses a raw account blob into a Pool.
func FromAccountData(dexName, pair string, feeBps uint16, data []byte) (*Pool, error) {
	if len(data) != AccountLen {
		return nil, decoder.NewDataLengthMismatch(AccountLen, len(data))
	}

	status := binary.LittleEndian.Uint64(data[offStatus:])
	coinDecimals := binary.LittleEndian.Uint64(data[offCoinDecimals:])
	pcDecimals := binary.LittleEndian.Uint64(data[offPcDecimals:])
	if coinDecimals > 18 || pcDecimals > 18 {
		return nil, decoder.NewValidationFailed("decimals out of plausible range")
	}

	return &Pool{
		dexName:         dexName,
		pair:            pair,
		coinDecimals:    uint8(coinDecimals),
		pcDecimals:      uint8(pcDecimals),
		coinVaultAmount: binary.LittleEndian.Uint64(data[offCoinVaultAmount:]),
		pcVaultAmount:   binary.LittleEndian.Uint64(data[offPcVaultAmount:]),
		feeBps:          feeBps,
		status:          status,
	}, nil
}

func (p *Pool) DexName() string { return p.dexName }

func (p *Pool) Reserves() (uint64, uint64) { return p.coinVaultAmount, p.pcVaultAmount }

func (p *Pool) Decimals() (uint8, uint8) { return p.coinDecimals, p.pcDecimals }

func (p *Pool) IsActive() bool { return p.status != 0 }

func (p *Pool) AdditionalInfo() string { return p.pair }

func (p *Pool) VaultAddresses() (string, string, bool) { return "", "", false }

// CalculatePrice returns quote/base after decimal normalization,
// matching the contract-table row for constant-product AMMs.
func (p *Pool) CalculatePrice() (float64, error) {
	if p.coinVaultAmount == 0 || p.pcVaultAmount == 0 {
		return 0, decoder.NewPoolNotActive()
	}
	base := float64(p.coinVaultAmount) / math.Pow(10, float64(p.coinDecimals))
	quote := float64(p.pcVaultAmount) / math.Pow(10, float64(p.pcDecimals))
	if base == 0 {
		return 0, decoder.NewValidationFailed("zero base reserve after decimal normalization")
	}
	price := quote / base
	if math.IsNaN(price) || math.IsInf(price, 0) || price <= 0 {
		return 0, decoder.NewValidationFailed("non-finite or non-positive price")
	}
	return price, nil
}

// FeeBps returns the configured fee for this pool in basis points.
func (p *Pool) FeeBps() uint16 { return p.feeBps }
