// Package spltoken parses the 165-byte SPL token account layout
// shared across every DEX's vault accounts.
package spltoken

import (
	"encoding/binary"

	"github.com/solarb/arb-detector-go/decoder"
)

// AccountLen is the fixed SPL token account size.
const AccountLen = 165

const (
	mintLen   = 32
	ownerLen  = 32
	offAmount = mintLen + ownerLen
	offState  = offAmount + 8 + 36 + 1 // amount, delegate(Option<Pubkey>=4+32), is_native discriminant
)

// Account is the subset of the SPL token account layout the detector
// needs: the balance, and whether the account is live.
type Account struct {
	Amount uint64
	State  uint8
}

// FromAccountData parses a 165-byte SPL token account blob.
func FromAccountData(data []byte) (*Account, error) {
	if len(data) != AccountLen {
		return nil, decoder.NewDataLengthMismatch(AccountLen, len(data))
	}
	amount := binary.LittleEndian.Uint64(data[offAmount:])
	return &Account{
		Amount: amount,
		State:  data[offState],
	}, nil
}

// IsInitialized reports whether the account state is initialized or
// frozen (as opposed to uninitialized).
func (a *Account) IsInitialized() bool { return a.State == 1 || a.State == 2 }

// IsFrozen reports whether the account is frozen.
func (a *Account) IsFrozen() bool { return a.State == 2 }

// AmountUI converts the raw amount to a human-readable value.
func (a *Account) AmountUI(decimals uint8) float64 {
	scale := 1.0
	for i := uint8(0); i < decimals; i++ {
		scale *= 10
	}
	return float64(a.Amount) / scale
}
