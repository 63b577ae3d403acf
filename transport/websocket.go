// Package transport is the external collaborator the core depends
// on only through subscription.Router: it dials the account-update
// WebSocket source, sends the initial per-pool subscribe requests and
// any dynamically requested vault subscribes, and feeds every decoded
// notification back into the router. None of the arbitrage logic
// lives here — this package only understands the JSON-RPC envelope.
package transport

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/gorilla/websocket"

	"github.com/solarb/arb-detector-go/engine"
	"github.com/solarb/arb-detector-go/subscription"
)

const (
	reconnectDelay  = 5 * time.Second
	dialTimeout     = 10 * time.Second
	readLimitBytes  = 1 << 20
	subscribeMethod = "accountSubscribe"
)

// rpcRequest is the outbound subscribe envelope.
type rpcRequest struct {
	JSONRPC string `json:"jsonrpc"`
	ID      uint64 `json:"id"`
	Method  string `json:"method"`
	Params  []any  `json:"params"`
}

// rpcMessage is the shape of every inbound frame: either a
// subscription acknowledgement (has Result/ID) or an accountNotification
// (has Method/Params).
type rpcMessage struct {
	ID     *uint64         `json:"id"`
	Result *uint64         `json:"result"`
	Method string          `json:"method"`
	Params json.RawMessage `json:"params"`
}

type notificationParams struct {
	Subscription uint64 `json:"subscription"`
	Result       struct {
		Context struct {
			Slot uint64 `json:"slot"`
		} `json:"context"`
		Value struct {
			Data [2]string `json:"data"`
		} `json:"value"`
	} `json:"result"`
}

// subscribeAccountOpts is the standard encoding/commitment object the
// original Solana-style accountSubscribe call sends alongside the
// account address.
type subscribeAccountOpts struct {
	Encoding   string `json:"encoding"`
	Commitment string `json:"commitment"`
}

// Client owns the WebSocket connection lifecycle: connect, subscribe
// to every configured pool, reconnect with a fixed backoff on any
// error, and translate confirmed subscription IDs and notifications
// into calls against a subscription.Router.
type Client struct {
	url    string
	pools  []engine.PoolDescriptor
	router *subscription.Router
	logger *slog.Logger

	// requestIDToPool remembers which configured pool a pending
	// request ID (in [1, N]) belongs to, so the ack handler can
	// register it with the router once the server confirms it.
	requestIDToPool map[uint64]engine.PoolDescriptor
}

// New builds a Client. A nil logger falls back to slog.Default().
func New(url string, pools []engine.PoolDescriptor, router *subscription.Router, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	requestIDToPool := make(map[uint64]engine.PoolDescriptor, len(pools))
	for i, p := range pools {
		requestIDToPool[uint64(i+1)] = p
	}
	return &Client{url: url, pools: pools, router: router, logger: logger, requestIDToPool: requestIDToPool}
}

// Run connects and processes messages until ctx is canceled,
// reconnecting with a fixed delay on any connection error. The
// router's subscription state is reset on every reconnect since no
// message replay is assumed.
func (c *Client) Run(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}
		if err := c.connectAndProcess(ctx); err != nil {
			c.logger.Error("transport: connection lost, reconnecting", "err", err, "delay", reconnectDelay)
			c.router.Reset()
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(reconnectDelay):
		}
	}
}

func (c *Client) connectAndProcess(ctx context.Context) error {
	dialCtx, cancel := context.WithTimeout(ctx, dialTimeout)
	defer cancel()

	conn, _, err := websocket.DefaultDialer.DialContext(dialCtx, c.url, nil)
	if err != nil {
		return fmt.Errorf("transport: dial: %w", err)
	}
	defer conn.Close()
	conn.SetReadLimit(readLimitBytes)

	c.logger.Info("transport: connected", "url", c.url)

	for id, pool := range c.requestIDToPool {
		if err := c.sendSubscribe(conn, id, pool.PoolID); err != nil {
			return fmt.Errorf("transport: subscribe pool %s: %w", pool.PoolID, err)
		}
	}

	go c.drainVaultRequests(ctx, conn)

	for {
		if ctx.Err() != nil {
			return nil
		}
		_, data, err := conn.ReadMessage()
		if err != nil {
			return fmt.Errorf("transport: read: %w", err)
		}
		if err := c.handleMessage(data); err != nil {
			c.logger.Warn("transport: failed to handle message", "err", err)
		}
	}
}

// drainVaultRequests forwards every router-requested vault subscribe
// onto the wire for as long as the connection this goroutine was
// started against remains live. It exits silently once ctx is done;
// a send failure on a dead connection surfaces through ReadMessage in
// the caller's loop instead of here.
func (c *Client) drainVaultRequests(ctx context.Context, conn *websocket.Conn) {
	for {
		select {
		case <-ctx.Done():
			return
		case req := <-c.router.VaultRequests():
			if err := c.sendSubscribe(conn, req.RequestID, req.VaultAddress); err != nil {
				c.logger.Error("transport: failed to subscribe to vault", "vault", req.VaultAddress, "err", err)
			}
		}
	}
}

func (c *Client) sendSubscribe(conn *websocket.Conn, id uint64, address string) error {
	msg := rpcRequest{
		JSONRPC: "2.0",
		ID:      id,
		Method:  subscribeMethod,
		Params:  []any{address, subscribeAccountOpts{Encoding: "base64", Commitment: "confirmed"}},
	}
	return conn.WriteJSON(msg)
}

func (c *Client) handleMessage(data []byte) error {
	var msg rpcMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return fmt.Errorf("unmarshal frame: %w", err)
	}

	if msg.Method == "accountNotification" {
		return c.handleNotification(msg.Params)
	}
	if msg.Result != nil && msg.ID != nil {
		return c.handleAck(*msg.ID, *msg.Result)
	}
	return nil
}

func (c *Client) handleAck(requestID, subscriptionID uint64) error {
	if pool, ok := c.requestIDToPool[requestID]; ok {
		c.router.RegisterPool(subscriptionID, pool)
		return nil
	}
	c.router.AcknowledgeVaultSubscription(requestID, subscriptionID)
	return nil
}

func (c *Client) handleNotification(raw json.RawMessage) error {
	var params notificationParams
	if err := json.Unmarshal(raw, &params); err != nil {
		return fmt.Errorf("unmarshal notification params: %w", err)
	}

	accountData, err := base64.StdEncoding.DecodeString(params.Result.Value.Data[0])
	if err != nil {
		return fmt.Errorf("decode base64 account data: %w", err)
	}

	return c.router.HandleAccountUpdate(params.Subscription, accountData, params.Result.Context.Slot)
}
