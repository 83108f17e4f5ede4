// Package http provides http transport for windowed counts
package http

import (
	stdhttp "net/http"

	"releasepulse/internal/modkit/httpkit"
	"releasepulse/internal/modkit/swaggerkit"
	"releasepulse/internal/services/api/windows/domain"
)

// Register mounts window endpoints on the given router
func Register(r httpkit.Router, s domain.ServicePort) {
	h := &handlers{svc: s}

	// stars in [anchor, anchor+days]
	httpkit.PostJSON(r, "/count", h.count)
}

// Docs adds the window routes to the served OpenAPI document
func Docs(prefix string) swaggerkit.SpecMutator {
	return func(spec map[string]any) {
		op := swaggerkit.Op("Windows", "Count stars inside a window")
		op["requestBody"] = map[string]any{
			"required": true,
			"content": map[string]any{"application/json": map[string]any{
				"schema": map[string]any{
					"type":     "object",
					"required": []any{"repo", "anchor", "days"},
					"properties": map[string]any{
						"repo":   map[string]any{"type": "string", "example": "golang/go"},
						"anchor": map[string]any{"type": "string", "format": "date-time"},
						"days":   map[string]any{"type": "integer", "minimum": 1, "maximum": 90},
					},
				},
			}},
		}
		resps := op["responses"].(map[string]any)
		resps["422"] = map[string]any{"description": "Feed data out of order or malformed"}
		resps["502"] = map[string]any{"description": "Feed failed part way"}
		swaggerkit.AddPath(spec, prefix+"/count", "post", op)
	}
}

type handlers struct{ svc domain.ServicePort }

// swagger:route POST /windows/count Windows windowsCount
// @Summary Count stars inside a window
// @Tags Windows
// @Accept json
// @Produce json
// @Param payload body domain.CountInput true "Query"
// @Success 200 {object} domain.CountResult "ok"
// @Router /windows/count [post]
func (h *handlers) count(r *stdhttp.Request, in domain.CountInput) (any, error) {
	return h.svc.Count(r.Context(), in)
}
