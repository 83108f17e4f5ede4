package swaggerkit

import (
	"encoding/json"
	"net/http"
	"sync"
)

// SpecMutator lets modules add paths or schemas before the spec is served
type SpecMutator func(map[string]any)

var (
	mu       sync.Mutex
	mutators []SpecMutator
)

// Register adds a spec mutator. Modules call it from New
func Register(m SpecMutator) {
	if m == nil {
		return
	}
	mu.Lock()
	mutators = append(mutators, m)
	mu.Unlock()
}

// Op builds a minimal OAS3 operation with a JSON 200 response
func Op(tag, summary string, params ...map[string]any) map[string]any {
	op := map[string]any{
		"tags":    []any{tag},
		"summary": summary,
		"responses": map[string]any{
			"200": map[string]any{"description": "OK"},
		},
	}
	if len(params) > 0 {
		ps := make([]any, len(params))
		for i, p := range params {
			ps[i] = p
		}
		op["parameters"] = ps
	}
	return op
}

// QueryParam describes an optional query string parameter
func QueryParam(name, typ, desc string) map[string]any {
	return map[string]any{
		"name": name, "in": "query", "required": false, "description": desc,
		"schema": map[string]any{"type": typ},
	}
}

// AddPath registers op under path and method on spec
func AddPath(spec map[string]any, path, method string, op map[string]any) {
	paths, ok := spec["paths"].(map[string]any)
	if !ok {
		paths = map[string]any{}
		spec["paths"] = paths
	}
	node, ok := paths[path].(map[string]any)
	if !ok {
		node = map[string]any{}
		paths[path] = node
	}
	node[method] = op
}

// Spec builds the document from the base skeleton plus every registered mutator
func Spec(title, version string) map[string]any {
	spec := map[string]any{
		"openapi": "3.0.3",
		"info":    map[string]any{"title": title, "version": version},
		"servers": []any{map[string]any{"url": "/api/v1"}},
		"paths":   map[string]any{},
		"components": map[string]any{"schemas": map[string]any{
			"ErrorResponse": map[string]any{
				"type":        "object",
				"description": "Standard error response",
				"properties": map[string]any{
					"status_code": map[string]any{"type": "integer", "format": "int32"},
					"status":      map[string]any{"type": "string"},
					"code":        map[string]any{"type": "integer", "format": "int32"},
					"error":       map[string]any{"type": "string"},
					"field":       map[string]any{"type": "string"},
					"request_id":  map[string]any{"type": "string"},
				},
				"required": []any{"status_code", "status"},
			},
		}},
	}

	mu.Lock()
	ms := append([]SpecMutator(nil), mutators...)
	mu.Unlock()
	for _, m := range ms {
		m(spec)
	}
	addDefaultErrors(spec)
	return spec
}

// addDefaultErrors injects 400 and 500 envelope responses where an operation has none
func addDefaultErrors(spec map[string]any) {
	ref := map[string]any{
		"application/json": map[string]any{
			"schema": map[string]any{"$ref": "#/components/schemas/ErrorResponse"},
		},
	}
	paths, _ := spec["paths"].(map[string]any)
	for _, p := range paths {
		node, ok := p.(map[string]any)
		if !ok {
			continue
		}
		for _, opAny := range node {
			op, ok := opAny.(map[string]any)
			if !ok {
				continue
			}
			resps, ok := op["responses"].(map[string]any)
			if !ok {
				resps = map[string]any{}
				op["responses"] = resps
			}
			if _, ok := resps["400"]; !ok {
				resps["400"] = map[string]any{"description": "Bad Request", "content": ref}
			}
			if _, ok := resps["500"]; !ok {
				resps["500"] = map[string]any{"description": "Internal Server Error", "content": ref}
			}
		}
	}
}

func serveDocJSON(title, version string) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.Header().Set("Cache-Control", "no-store")
		_ = json.NewEncoder(w).Encode(Spec(title, version))
	}
}
