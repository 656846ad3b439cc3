package nodes

import (
	"context"
	"errors"

	"github.com/danielgtaylor/huma/v2"
	"golang.org/x/exp/slog"

	"iotsync/internal/infrastructure/remote"
)

// Store is the flat-keyed node storage behind the API.
type Store interface {
	remote.FlatStore
	Delete(ctx context.Context, path string) (int64, error)
}

type Handler struct {
	store      Store
	log        *slog.Logger
	middleware huma.Middlewares
}

func NewHandler(store Store, log *slog.Logger, mws huma.Middlewares) *Handler {
	return &Handler{
		store:      store,
		log:        log.With("component", "nodes_handler"),
		middleware: mws,
	}
}

func (h *Handler) SetupRoutes(api huma.API) {
	huma.Register(api, h.getOp(), h.get)
	huma.Register(api, h.putOp(), h.put)
	huma.Register(api, h.deleteOp(), h.delete)
}

func (h *Handler) get(ctx context.Context, input *getInput) (*getOutput, error) {
	nodes, err := h.store.GetAll(ctx, input.Path)
	if err != nil {
		h.log.Error("get nodes failed", "path", input.Path, "error", err)
		return nil, huma.Error500InternalServerError("read failed")
	}

	return &getOutput{
		Body: remote.NodesResponse{
			Status: "Ok",
			Nodes:  nodes,
		},
	}, nil
}

func (h *Handler) put(ctx context.Context, input *putInput) (*output, error) {
	err := h.store.Set(ctx, input.Path, input.Body)
	if errors.Is(err, remote.ErrEmptyPath) {
		return nil, huma.Error400BadRequest("path must not be empty")
	}
	if err != nil {
		h.log.Error("set node failed", "path", input.Path, "error", err)
		return nil, huma.Error500InternalServerError("write failed")
	}

	return &output{
		Body: response{Status: "Ok", Path: remote.JoinPath(input.Path)},
	}, nil
}

func (h *Handler) delete(ctx context.Context, input *deleteInput) (*output, error) {
	n, err := h.store.Delete(ctx, input.Path)
	if errors.Is(err, remote.ErrEmptyPath) {
		return nil, huma.Error400BadRequest("path must not be empty")
	}
	if err != nil {
		h.log.Error("delete nodes failed", "path", input.Path, "error", err)
		return nil, huma.Error500InternalServerError("delete failed")
	}
	if n == 0 {
		return nil, huma.Error404NotFound("no such path")
	}

	return &output{
		Body: response{Status: "Ok", Path: remote.JoinPath(input.Path), Deleted: n},
	}, nil
}
