package stableswap

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func makeAccount(amp, base, quote uint64, baseDec, quoteDec, status byte) []byte {
	data := make([]byte, AccountLen)
	binary.LittleEndian.PutUint64(data[offAmplification:], amp)
	binary.LittleEndian.PutUint64(data[offBaseReserve:], base)
	binary.LittleEndian.PutUint64(data[offQuoteReserve:], quote)
	data[offBaseDecimals] = baseDec
	data[offQuoteDecimals] = quoteDec
	data[offStatus] = status
	return data
}

func TestFromAccountData_TooShort(t *testing.T) {
	_, err := FromAccountData("stabble", "USDC/USDT", make([]byte, 5))
	assert.Error(t, err)
}

func TestCalculatePrice_NearPeg(t *testing.T) {
	p, err := FromAccountData("stabble", "USDC/USDT", makeAccount(100, 1_000_000, 1_000_000, 6, 6, 1))
	require.NoError(t, err)
	price, err := p.CalculatePrice()
	require.NoError(t, err)
	assert.InDelta(t, 1.0, price, 0.01)
}

func TestCalculatePrice_ZeroReserve(t *testing.T) {
	p, err := FromAccountData("stabble", "USDC/USDT", makeAccount(100, 0, 1_000_000, 6, 6, 1))
	require.NoError(t, err)
	_, err = p.CalculatePrice()
	assert.Error(t, err)
}
