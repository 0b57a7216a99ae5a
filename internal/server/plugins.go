package server

import "net/http"

type inputSummary struct {
	Name     string `json:"name"`
	Type     string `json:"type"`
	Required bool   `json:"required"`
}

type pluginSummary struct {
	ID      int            `json:"id"`
	Name    string         `json:"name"`
	Library string         `json:"library,omitempty"`
	Inputs  []inputSummary `json:"inputs"`
}

// ListPlugins answers GET /api/v1/plugins with every registered
// plug-in descriptor's public shape (spec.md §6's plug-in catalog,
// surfaced for operators instead of serialized to the remote XML
// node).
func (s *Server) ListPlugins(w http.ResponseWriter, r *http.Request) {
	descs := s.registry.List()
	out := make([]pluginSummary, 0, len(descs))
	for _, d := range descs {
		inputs := make([]inputSummary, 0, len(d.Inputs))
		for _, in := range d.Inputs {
			inputs = append(inputs, inputSummary{
				Name:     in.Name,
				Type:     in.Type.String(),
				Required: in.Required,
			})
		}
		out = append(out, pluginSummary{
			ID:      d.ID,
			Name:    d.Name,
			Library: d.Library,
			Inputs:  inputs,
		})
	}
	httpResponseJSON(w, out, http.StatusOK)
}
