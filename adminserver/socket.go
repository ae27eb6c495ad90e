package adminserver

import (
	"encoding/json"

	melodypkg "github.com/olahol/melody"

	"github.com/rotblauer/vtsproxy/registry"
)

type socketMessage struct {
	Kind      string              `json:"kind"`
	Snapshots []registry.Snapshot `json:"snapshots,omitempty"`
	Event     *registry.Event     `json:"event,omitempty"`
}

// initMelody wires the admin websocket: on connect, a client gets a
// full snapshot of the registry's current contents; afterward it
// streams every published registry.Event, grounded on
// daemon/webd/socket.go's connect-then-replay-then-stream pattern
// (there: cache.LastPushTTLCache items; here: registry.All()).
func (s *Server) initMelody() {
	s.melody.HandleConnect(func(session *melodypkg.Session) {
		msg := socketMessage{Kind: "snapshot", Snapshots: s.reg.All()}
		b, err := json.Marshal(msg)
		if err != nil {
			s.logger.Error("marshaling admin socket snapshot", "error", err)
			return
		}
		if err := session.Write(b); err != nil {
			s.logger.Warn("writing admin socket snapshot", "error", err)
		}
	})

	s.melody.HandleError(func(session *melodypkg.Session, err error) {
		s.logger.Warn("admin socket error", "remote", session.Request.RemoteAddr, "error", err)
	})

	events := make(chan registry.Event, 64)
	sub := s.reg.Events().Subscribe(events)
	go func() {
		defer sub.Unsubscribe()
		for {
			select {
			case ev := <-events:
				msg := socketMessage{Kind: "event", Event: &ev}
				b, err := json.Marshal(msg)
				if err != nil {
					s.logger.Error("marshaling admin socket event", "error", err)
					continue
				}
				if err := s.melody.Broadcast(b); err != nil {
					s.logger.Warn("broadcasting admin socket event", "error", err)
				}
			case err := <-sub.Err():
				if err != nil {
					s.logger.Error("admin socket event subscription failed", "error", err)
				}
				return
			}
		}
	}()
}
