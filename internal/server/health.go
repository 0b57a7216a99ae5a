package server

import "net/http"

// Health answers the liveness probe. The process is alive as long as
// the HTTP server is answering; deeper readiness (Verse connectivity)
// is surfaced through graph state, not this endpoint.
func (s *Server) Health(w http.ResponseWriter, r *http.Request) {
	httpResponseJSON(w, map[string]string{"status": "ok"}, http.StatusOK)
}
