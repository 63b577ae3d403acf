package dlmm

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func makeAccount(activeBin int32, binStepBps uint16, status byte) []byte {
	data := make([]byte, AccountLen)
	binary.LittleEndian.PutUint32(data[offActiveBin:], uint32(activeBin))
	binary.LittleEndian.PutUint16(data[offBinStep:], binStepBps)
	data[offBaseDecimals] = 9
	data[offQuoteDecimals] = 6
	data[offStatus] = status
	return data
}

func TestFromAccountData_ZeroBinStepRejected(t *testing.T) {
	_, err := FromAccountData("meteora_dlmm", "SOL/USDC", makeAccount(10, 0, 1))
	assert.Error(t, err)
}

func TestCalculatePrice_PositiveBin(t *testing.T) {
	p, err := FromAccountData("meteora_dlmm", "SOL/USDC", makeAccount(100, 10, 1))
	require.NoError(t, err)
	price, err := p.CalculatePrice()
	require.NoError(t, err)
	assert.Greater(t, price, 1.0)
}

func TestCalculatePrice_NegativeBin(t *testing.T) {
	p, err := FromAccountData("meteora_dlmm", "SOL/USDC", makeAccount(-100, 10, 1))
	require.NoError(t, err)
	price, err := p.CalculatePrice()
	require.NoError(t, err)
	assert.Less(t, price, 1.0)
}

func TestReserves_AlwaysVaultMode(t *testing.T) {
	p, err := FromAccountData("meteora_dlmm", "SOL/USDC", makeAccount(0, 10, 1))
	require.NoError(t, err)
	base, quote := p.Reserves()
	assert.Equal(t, uint64(0), base)
	assert.Equal(t, uint64(0), quote)
}
