package pmm

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromAccountData_TooShort(t *testing.T) {
	_, err := FromAccountData("lifinity_v2", "SOL/USDC", 9, 6, DefaultPlausibleRange, make([]byte, 10))
	assert.Error(t, err)
}

func TestFromAccountData_FindsFirstPlausibleCandidate(t *testing.T) {
	data := make([]byte, 64)
	binary.LittleEndian.PutUint64(data[16:], 1_000_000_000)
	binary.LittleEndian.PutUint64(data[24:], 50_000_000)

	p, err := FromAccountData("lifinity_v2", "SOL/USDC", 9, 6, DefaultPlausibleRange, data)
	require.NoError(t, err)
	assert.True(t, p.IsActive())
	price, err := p.CalculatePrice()
	require.NoError(t, err)
	assert.Greater(t, price, 0.0)
}

func TestFromAccountData_NoPlausibleCandidate(t *testing.T) {
	data := make([]byte, 64)
	_, err := FromAccountData("lifinity_v2", "SOL/USDC", 9, 6, DefaultPlausibleRange, data)
	assert.Error(t, err)
}
