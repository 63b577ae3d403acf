package factory

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/solarb/arb-detector-go/decoder/raydiumv4"
)

func TestCanonicalType_ResolvesAliases(t *testing.T) {
	canon, ok := CanonicalType("ORCA_Whirlpool")
	require.True(t, ok)
	assert.Equal(t, typeCLMM, canon)
}

func TestCanonicalType_UnknownLabel(t *testing.T) {
	_, ok := CanonicalType("not_a_real_dex")
	assert.False(t, ok)
}

func TestCreate_UnknownLabel(t *testing.T) {
	f := NewPoolFactory(nil)
	_, err := f.Create("not_a_real_dex", "SOL/USDC", nil)
	assert.Error(t, err)
}

func TestCreate_VaultModeRequiresLayout(t *testing.T) {
	f := NewPoolFactory(nil)
	_, err := f.Create("alphaq", "SOL/USDC", make([]byte, 100))
	assert.Error(t, err)

	f2 := NewPoolFactory(VaultLayouts{
		"alphaq": {OffVaultBase: 0, OffVaultQuote: 32, OffBaseDecimals: 64, OffQuoteDecimals: 65, OffStatus: 66, MinLen: 67},
	})
	pool, err := f2.Create("alphaq", "SOL/USDC", make([]byte, 67))
	require.NoError(t, err)
	assert.NotNil(t, pool)
}

func TestCreateAutoDetect_RaydiumV4ByLength(t *testing.T) {
	f := NewPoolFactory(nil)
	data := make([]byte, raydiumv4.AccountLen)
	binary.LittleEndian.PutUint64(data[0:], 1) // status active
	pool, err := f.CreateAutoDetect("SOL/USDC", data)
	require.NoError(t, err)
	assert.Equal(t, "raydium_v4", pool.DexName())
}

func TestCreateAutoDetect_UnrecognizedLength(t *testing.T) {
	f := NewPoolFactory(nil)
	_, err := f.CreateAutoDetect("SOL/USDC", make([]byte, 3))
	assert.Error(t, err)
}
