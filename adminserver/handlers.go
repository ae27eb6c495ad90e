package adminserver

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/rotblauer/vtsproxy/resource"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

type healthzResponse struct {
	Ready      bool   `json:"ready"`
	Preparing  int64  `json:"preparing"`
	LastUpdate string `json:"lastUpdate,omitempty"`
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	resp := healthzResponse{
		Ready:     s.reg.Ready(),
		Preparing: s.reg.Preparing(),
	}
	if lu := s.reg.LastUpdate(); !lu.IsZero() {
		resp.LastUpdate = lu.Format("2006-01-02T15:04:05Z07:00")
	}
	status := http.StatusOK
	if !resp.Ready {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, resp)
}

func (s *Server) handleListGenerators(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.reg.All())
}

func (s *Server) handleGetGenerator(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	id := resource.ID{
		ReferenceFrame: vars["rf"],
		Group:          vars["group"],
		ID:             vars["id"],
	}
	snap, res, ok := s.reg.Get(id)
	if !ok {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, struct {
		Snapshot interface{}       `json:"snapshot"`
		Resource resource.Resource `json:"resource"`
	}{Snapshot: snap, Resource: res})
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	_ = s.melody.HandleRequest(w, r)
}
