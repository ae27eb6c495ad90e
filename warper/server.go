package warper

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/rpc"
	"os"
	"strings"
	"sync/atomic"

	"github.com/rotblauer/vtsproxy/common"
	"github.com/rotblauer/vtsproxy/params"
)

// ErrAlreadyRunning mirrors rgeod's refusal to compete for a socket
// file that another live warperd already owns.
var ErrAlreadyRunning = errors.New("warper: daemon already running")

// Server is the warperd RPC daemon: a thin net/rpc front end over a
// real Client implementation. The actual GDAL-backed warp logic is
// intentionally out of this module's scope; Server's job is the
// subprocess/RPC plumbing, grounded directly on daemon/rgeod's
// RgeoDaemon.
type Server struct {
	config *params.WarperConfig
	impl   Client

	rpcServer *rpc.Server
	ready     atomic.Bool
	interrupt chan struct{}
}

func NewServer(config *params.WarperConfig, impl Client) *Server {
	return &Server{
		config:    config,
		impl:      impl,
		interrupt: make(chan struct{}, 1),
	}
}

// Start listens and serves until Stop is called or the process is
// interrupted. It does not return until the daemon is told to stop.
func (s *Server) Start() error {
	slog.Info("warper daemon starting", "network", s.config.Listener.Network, "address", s.config.Listener.Address)

	if strings.HasPrefix(s.config.Listener.Network, "unix") {
		if _, err := os.Stat(s.config.Listener.Address); err == nil {
			if c, err := common.DialRPC(s.config.Listener.Network, s.config.Listener.Address); err == nil {
				c.Close()
				return fmt.Errorf("%w: %s", ErrAlreadyRunning, s.config.Listener.Address)
			}
			slog.Warn("warper: removing stale socket file", "address", s.config.Listener.Address)
			os.Remove(s.config.Listener.Address)
		}
		defer os.Remove(s.config.Listener.Address)
	}

	s.rpcServer = rpc.NewServer()
	if err := s.rpcServer.RegisterName(ServiceName, &warpService{s}); err != nil {
		return err
	}
	listener, err := net.Listen(s.config.Listener.Network, s.config.Listener.Address)
	if err != nil {
		return err
	}
	go s.rpcServer.Accept(listener)

	s.ready.Store(true)
	slog.Info("warper daemon ready")
	<-s.interrupt
	slog.Info("warper daemon stopped")
	return nil
}

func (s *Server) Stop() {
	s.interrupt <- struct{}{}
}

type warpService struct {
	*Server
}

func (w *warpService) Ping(_ common.RPCArgNone, _ common.RPCArgNone) error {
	if !w.ready.Load() {
		return ErrNotReady
	}
	return nil
}

func (w *warpService) Warp(req *Request, resp *Response) error {
	out, err := w.impl.Warp(context.Background(), *req)
	if err != nil {
		return err
	}
	*resp = *out
	return nil
}
