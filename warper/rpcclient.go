package warper

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/rpc"
	"os"
	"sync"

	"github.com/rotblauer/vtsproxy/common"
)

// ServiceName is the net/rpc service name registered by cmd/warperd,
// the same naming convention as daemon/rgeod's rgeod service.
const ServiceName = "Warper"

// RPCClient is a warper.Client backed by a subprocess or remote
// process speaking net/rpc, grounded directly on daemon/rgeod: a
// slow-to-initialize daemon fronted by a lazy-
// dialing RPC client with a Ping readiness check and stale-socket
// recovery.
type RPCClient struct {
	Network string
	Address string

	mu     sync.Mutex
	client *rpc.Client
}

func NewRPCClient(network, address string) *RPCClient {
	return &RPCClient{Network: network, Address: address}
}

var ErrNotReady = errors.New("warper: rpc server not ready")

// Ping checks whether the remote warperd has finished initializing.
func (c *RPCClient) Ping(ctx context.Context) error {
	cl, err := c.dial()
	if err != nil {
		return err
	}
	var none common.RPCArgNone
	if err := c.callWithContext(ctx, cl, ServiceName+".Ping", common.ArgNone, &none); err != nil {
		return fmt.Errorf("%w: %v", ErrNotReady, err)
	}
	return nil
}

// Warp performs one warp call, dialing lazily and retrying once if the
// existing connection turns out to be stale (rpc.ErrShutdown): the
// stale connection is closed and redialed once, not retried forever.
// The socket file itself is left alone.
func (c *RPCClient) Warp(ctx context.Context, req Request) (*Response, error) {
	cl, err := c.dial()
	if err != nil {
		return nil, err
	}

	var resp Response
	err = c.callWithContext(ctx, cl, ServiceName+".Warp", &req, &resp)
	if err == nil {
		return &resp, nil
	}
	if !errors.Is(err, rpc.ErrShutdown) {
		return nil, err
	}

	slog.Warn("warper: rpc connection shut down, reconnecting", "network", c.Network, "address", c.Address)
	c.resetConnection()
	cl, err = c.dial()
	if err != nil {
		return nil, err
	}
	if err := c.callWithContext(ctx, cl, ServiceName+".Warp", &req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *RPCClient) dial() (*rpc.Client, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.client != nil {
		return c.client, nil
	}
	if c.Network == "unix" || c.Network == "unixpacket" {
		if _, err := os.Stat(c.Address); err != nil {
			return nil, fmt.Errorf("warper: socket %s not present: %w", c.Address, err)
		}
	}
	cl, err := common.DialRPC(c.Network, c.Address)
	if err != nil {
		return nil, fmt.Errorf("warper: dialing %s %s: %w", c.Network, c.Address, err)
	}
	c.client = cl
	return cl, nil
}

func (c *RPCClient) resetConnection() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.client != nil {
		c.client.Close()
		c.client = nil
	}
}

// callWithContext runs the RPC asynchronously so ctx cancellation
// aborts the caller even though net/rpc itself has no cancellation
// hook; the in-flight call is left to complete or fail on its own and
// is not joined. Cancellation happens via a Sink-attached abort token
// at the caller's level, not by tearing down the RPC connection.
func (c *RPCClient) callWithContext(ctx context.Context, cl *rpc.Client, method string, args, reply any) error {
	call := cl.Go(method, args, reply, nil)
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-call.Done:
		return call.Error
	}
}

func (c *RPCClient) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.client == nil {
		return nil
	}
	err := c.client.Close()
	c.client = nil
	return err
}
