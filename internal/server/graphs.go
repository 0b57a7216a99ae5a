package server

import (
	"net/http"
	"strings"
)

type graphSummary struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	NodeID   string `json:"node_id"`
	BufferID int    `json:"buffer_id"`
	Modules  int    `json:"modules"`
}

type moduleSummary struct {
	ID     string `json:"id"`
	Plugin string `json:"plugin"`
	Inputs int    `json:"inputs"`
}

type graphDetail struct {
	graphSummary
	Modules []moduleSummary `json:"module_list"`
}

// ListGraphs answers GET /api/v1/graphs with a summary of every live
// graph in the catalog.
func (s *Server) ListGraphs(w http.ResponseWriter, r *http.Request) {
	graphs := s.catalog.List()
	out := make([]graphSummary, 0, len(graphs))
	for _, g := range graphs {
		out = append(out, graphSummary{
			ID:       g.ID,
			Name:     g.Name,
			NodeID:   string(g.Anchor.NodeID),
			BufferID: g.Anchor.BufferID,
			Modules:  len(g.Modules()),
		})
	}
	httpResponseJSON(w, out, http.StatusOK)
}

// GetGraph answers GET /api/v1/graphs/{id} with one graph's modules.
// Expected path: {base_path}/api/v1/graphs/{id}
func (s *Server) GetGraph(w http.ResponseWriter, r *http.Request) {
	id := s.extractGraphID(r)
	if id == "" {
		httpResponse(w, "graph id is required", http.StatusBadRequest)
		return
	}

	g, ok := s.catalog.ByID(id)
	if !ok {
		httpResponse(w, "graph not found", http.StatusNotFound)
		return
	}

	modules := g.Modules()
	detail := graphDetail{
		graphSummary: graphSummary{
			ID:       g.ID,
			Name:     g.Name,
			NodeID:   string(g.Anchor.NodeID),
			BufferID: g.Anchor.BufferID,
			Modules:  len(modules),
		},
		Modules: make([]moduleSummary, 0, len(modules)),
	}
	for _, m := range modules {
		detail.Modules = append(detail.Modules, moduleSummary{
			ID:     m.ID,
			Plugin: m.Plugin.Name,
			Inputs: m.Ports.Size(),
		})
	}

	httpResponseJSON(w, detail, http.StatusOK)
}

func (s *Server) extractGraphID(r *http.Request) string {
	prefix := s.config.BasePath + "/api/v1/graphs/"
	path := r.URL.Path
	if !strings.HasPrefix(path, prefix) {
		return ""
	}
	return strings.TrimSuffix(strings.TrimPrefix(path, prefix), "/")
}
