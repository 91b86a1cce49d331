package httpapi

import "net/http"

func (s *Server) handlePerfLatency(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, s.metrics.LatencySnapshot())
}

func (s *Server) handleResetPerfLatency(w http.ResponseWriter, _ *http.Request) {
	s.metrics.ResetLatency()
	w.WriteHeader(http.StatusNoContent)
}
