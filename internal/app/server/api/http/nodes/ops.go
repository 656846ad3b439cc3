package nodes

import (
	"net/http"

	"github.com/danielgtaylor/huma/v2"
)

func (h *Handler) getOp() huma.Operation {
	return huma.Operation{
		OperationID: "nodes-get",
		Method:      http.MethodGet,
		Path:        "/api/v1/nodes",
		Summary:     "Read the children of a path",
		Tags:        []string{"nodes"},
		Security:    []map[string][]string{{"bearer": {}}},
		Middlewares: h.middleware,
	}
}

func (h *Handler) putOp() huma.Operation {
	return huma.Operation{
		OperationID: "nodes-put",
		Method:      http.MethodPut,
		Path:        "/api/v1/nodes",
		Summary:     "Overwrite the value at a path",
		Tags:        []string{"nodes"},
		Security:    []map[string][]string{{"bearer": {}}},
		Middlewares: h.middleware,
	}
}

func (h *Handler) deleteOp() huma.Operation {
	return huma.Operation{
		OperationID: "nodes-delete",
		Method:      http.MethodDelete,
		Path:        "/api/v1/nodes",
		Summary:     "Remove a path and its descendants",
		Tags:        []string{"nodes"},
		Security:    []map[string][]string{{"bearer": {}}},
		Middlewares: h.middleware,
	}
}
