// Package adminserver is the introspection-only admin HTTP/WS surface:
// health, generator listing, and a live event stream. It is
// explicitly not the tile-serving HTTP surface, which is out of
// scope and handed to a caller entirely outside this module.
package adminserver

import (
	"log/slog"
	"net"
	"net/http"
	"os"

	ghandlers "github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/olahol/melody"

	"github.com/rotblauer/vtsproxy/params"
	"github.com/rotblauer/vtsproxy/registry"
)

// Server is the admin surface bound to one live registry.
type Server struct {
	cfg    *params.AdminConfig
	reg    *registry.Registry
	logger *slog.Logger
	melody *melody.Melody
}

func NewServer(cfg *params.AdminConfig, reg *registry.Registry, logger *slog.Logger) *Server {
	if cfg == nil {
		cfg = params.DefaultAdminConfig()
	}
	return &Server{
		cfg:    cfg,
		reg:    reg,
		logger: logger,
		melody: melody.New(),
	}
}

// Router builds the admin mux, wrapped in a combined access log and a
// panic-recovery handler, grounded on daemon/webd.NewRouter's
// loggingMiddleware/ghandlers composition.
func (s *Server) Router() http.Handler {
	s.initMelody()

	router := mux.NewRouter().StrictSlash(false)

	router.Path("/healthz").HandlerFunc(s.handleHealthz).Methods(http.MethodGet)
	router.Path("/generators").HandlerFunc(s.handleListGenerators).Methods(http.MethodGet)
	router.Path("/generators/{rf}/{group}/{id}").HandlerFunc(s.handleGetGenerator).Methods(http.MethodGet)
	router.Path("/events").HandlerFunc(s.handleEvents)

	return ghandlers.RecoveryHandler()(ghandlers.CombinedLoggingHandler(os.Stdout, router))
}

// ListenAndServe blocks serving the admin surface until the listener
// fails or is closed.
func (s *Server) ListenAndServe() error {
	ln, err := net.Listen(s.cfg.Network, s.cfg.Address)
	if err != nil {
		return err
	}
	s.logger.Info("admin surface listening", "network", s.cfg.Network, "address", ln.Addr().String())
	return http.Serve(ln, s.Router())
}
