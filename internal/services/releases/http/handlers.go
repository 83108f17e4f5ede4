// Package http provides http transport for collected releases
package http

import (
	stdhttp "net/http"
	"strconv"

	"releasepulse/internal/modkit/httpkit"
	"releasepulse/internal/modkit/swaggerkit"
	perr "releasepulse/internal/platform/errors"
	"releasepulse/internal/services/releases/domain"
)

// Register mounts release endpoints on the given router
func Register(r httpkit.Router, s domain.ReaderPort) {
	h := &handlers{svc: s}

	// newest first, offset paged
	httpkit.Get(r, "/", h.list)
}

// Docs adds the release routes to the served OpenAPI document
func Docs(prefix string) swaggerkit.SpecMutator {
	return func(spec map[string]any) {
		swaggerkit.AddPath(spec, prefix, "get", swaggerkit.Op("Releases", "List collected releases",
			swaggerkit.QueryParam("repo", "string", "owner/name filter"),
			swaggerkit.QueryParam("limit", "integer", "page size, 1 to 500, default 50"),
			swaggerkit.QueryParam("offset", "integer", "rows to skip"),
		))
	}
}

type handlers struct{ svc domain.ReaderPort }

// swagger:route GET /releases Releases releasesList
// @Summary List collected releases
// @Tags Releases
// @Produce json
// @Param repo query string false "owner/name"
// @Param limit query int false "page size"
// @Param offset query int false "offset"
// @Success 200 {array} domain.Record "ok"
// @Router /releases [get]
func (h *handlers) list(r *stdhttp.Request) (any, error) {
	q, err := parseListQuery(r)
	if err != nil {
		return nil, err
	}
	items, total, err := h.svc.List(r.Context(), q)
	if err != nil {
		return nil, err
	}
	return httpkit.List(items, total, q.Limit, q.Offset), nil
}

func parseListQuery(r *stdhttp.Request) (domain.ListQuery, error) {
	v := r.URL.Query()
	q := domain.ListQuery{Repo: v.Get("repo"), Limit: domain.DefaultListLimit}
	for _, f := range []struct {
		name string
		dst  *int
	}{{"limit", &q.Limit}, {"offset", &q.Offset}} {
		s := v.Get(f.name)
		if s == "" {
			continue
		}
		n, err := strconv.Atoi(s)
		if err != nil {
			return q, perr.WithField(perr.Newf(perr.ErrorCodeValidation, "%s must be an integer", f.name), f.name)
		}
		*f.dst = n
	}
	return q, nil
}
