package vault

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/solarb/arb-detector-go/decoder/spltoken"
)

func TestReservesFor_NotReadyUntilBothVaultsArrive(t *testing.T) {
	r := NewReader()
	r.RegisterPoolVaults("pool1", "vaultA", "vaultB")

	res, ok := r.ReservesFor("pool1")
	assert.True(t, ok)
	assert.False(t, res.Ready)

	r.UpdateVault("vaultA", &spltoken.Account{Amount: 1000})
	res, ok = r.ReservesFor("pool1")
	assert.True(t, ok)
	assert.False(t, res.Ready)

	r.UpdateVault("vaultB", &spltoken.Account{Amount: 2000})
	res, ok = r.ReservesFor("pool1")
	assert.True(t, ok)
	assert.True(t, res.Ready)
	assert.Equal(t, uint64(1000), res.Base)
	assert.Equal(t, uint64(2000), res.Quote)
}

func TestRegisterPoolVaults_IdempotentReregistration(t *testing.T) {
	r := NewReader()
	r.RegisterPoolVaults("pool1", "vaultA", "vaultB")
	r.UpdateVault("vaultA", &spltoken.Account{Amount: 100})
	r.RegisterPoolVaults("pool1", "vaultA", "vaultB")

	res, _ := r.ReservesFor("pool1")
	assert.Equal(t, uint64(100), res.Base)
}

func TestRegisterPoolVaults_RebindDropsOldFanOut(t *testing.T) {
	r := NewReader()
	r.RegisterPoolVaults("pool1", "vaultA", "vaultB")
	r.RegisterPoolVaults("pool1", "vaultC", "vaultD")

	assert.Empty(t, r.PoolsForVault("vaultA"))
	assert.Contains(t, r.PoolsForVault("vaultC"), "pool1")
}

func TestPoolsForVault_FanOutAcrossMultiplePools(t *testing.T) {
	r := NewReader()
	r.RegisterPoolVaults("pool1", "vaultShared", "vaultB")
	r.RegisterPoolVaults("pool2", "vaultShared", "vaultC")

	pools := r.PoolsForVault("vaultShared")
	assert.ElementsMatch(t, []string{"pool1", "pool2"}, pools)
}
