package transport

import (
	"context"
	"encoding/base64"
	"encoding/binary"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/solarb/arb-detector-go/decoder/factory"
	"github.com/solarb/arb-detector-go/engine"
	"github.com/solarb/arb-detector-go/pricecache"
	"github.com/solarb/arb-detector-go/subscription"
	"github.com/solarb/arb-detector-go/vault"
)

var upgrader = websocket.Upgrader{}

func raydiumBlob(coinAmount, pcAmount uint64, decimals uint64) []byte {
	data := make([]byte, 752)
	binary.LittleEndian.PutUint64(data[0:], 1)
	binary.LittleEndian.PutUint64(data[4*8:], decimals)
	binary.LittleEndian.PutUint64(data[5*8:], decimals)
	offCoinVault := 16*8 + 12*32
	binary.LittleEndian.PutUint64(data[offCoinVault:], coinAmount)
	binary.LittleEndian.PutUint64(data[offCoinVault+8:], pcAmount)
	return data
}

// fakeServer upgrades one connection, expects one subscribe request
// for a pool, acknowledges it with subscriptionID, then pushes one
// accountNotification carrying accountData at slot.
func fakeServer(t *testing.T, subscriptionID, slot uint64, accountData []byte) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		require.NoError(t, err)
		defer conn.Close()

		var req rpcRequest
		require.NoError(t, conn.ReadJSON(&req))

		ack := map[string]any{"jsonrpc": "2.0", "id": req.ID, "result": subscriptionID}
		require.NoError(t, conn.WriteJSON(ack))

		notification := map[string]any{
			"jsonrpc": "2.0",
			"method":  "accountNotification",
			"params": map[string]any{
				"subscription": subscriptionID,
				"result": map[string]any{
					"context": map[string]any{"slot": slot},
					"value": map[string]any{
						"data": [2]string{base64.StdEncoding.EncodeToString(accountData), "base64"},
					},
				},
			},
		}
		require.NoError(t, conn.WriteJSON(notification))

		time.Sleep(50 * time.Millisecond)
	}))
}

func wsURL(httpURL string) string {
	u, _ := url.Parse(httpURL)
	u.Scheme = "ws"
	return u.String()
}

func newTestRouter() (*subscription.Router, *pricecache.Cache) {
	f := factory.NewPoolFactory(nil)
	v := vault.NewReader()
	c := pricecache.New()
	return subscription.New(f, v, c, nil), c
}

func TestClient_SubscribeAckAndNotificationInstallsSnapshot(t *testing.T) {
	srv := fakeServer(t, 555, 1000, raydiumBlob(1_000_000_000, 100_000_000, 6))
	defer srv.Close()

	router, cache := newTestRouter()
	pools := []engine.PoolDescriptor{{PoolID: "pool-1", Pair: "SOL/USDC", DexType: "raydium_v4"}}
	client := New(wsURL(srv.URL), pools, router, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()
	client.Run(ctx)

	snap, ok := cache.Get("pool-1")
	require.True(t, ok)
	assert.Equal(t, uint64(1000), snap.Slot)
	assert.Greater(t, snap.Price, 0.0)
}

func TestClient_UnreachableURLReturnsWithoutPanicking(t *testing.T) {
	router, _ := newTestRouter()
	client := New("ws://127.0.0.1:1/unreachable", nil, router, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	done := make(chan struct{})
	go func() {
		client.Run(ctx)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after context cancellation")
	}
}

func TestHandleAck_RegistersConfiguredPool(t *testing.T) {
	router, _ := newTestRouter()
	pools := []engine.PoolDescriptor{{PoolID: "pool-1", Pair: "SOL/USDC", DexType: "raydium_v4"}}
	client := New("ws://unused", pools, router, nil)

	require.NoError(t, client.handleAck(1, 999))

	err := router.HandleAccountUpdate(999, raydiumBlob(1, 1, 6), 1)
	assert.NoError(t, err)
}

func TestHandleMessage_IgnoresUnrelatedFrames(t *testing.T) {
	router, _ := newTestRouter()
	client := New("ws://unused", nil, router, nil)

	err := client.handleMessage([]byte(`{"jsonrpc":"2.0","method":"somethingElse"}`))
	assert.NoError(t, err)
}

func TestHandleMessage_MalformedJSONErrors(t *testing.T) {
	router, _ := newTestRouter()
	client := New("ws://unused", nil, router, nil)

	err := client.handleMessage([]byte(strings.Repeat("{", 3)))
	assert.Error(t, err)
}
