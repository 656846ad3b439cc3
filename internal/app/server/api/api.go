// Package api serves the flat-keyed node store over HTTP.
//
//	GET    /api/v1/health
//	GET    /api/v1/nodes?path=<parent>   children of parent (auth)
//	PUT    /api/v1/nodes?path=<node>     overwrite node (auth)
//	DELETE /api/v1/nodes?path=<node>     remove node subtree (auth)
package api

import (
	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"golang.org/x/exp/slog"

	healthAPI "iotsync/internal/app/server/api/http/health"
	"iotsync/internal/app/server/api/http/middleware"
	"iotsync/internal/app/server/api/http/middleware/auth"
	"iotsync/internal/app/server/api/http/middleware/logger"
	nodesAPI "iotsync/internal/app/server/api/http/nodes"
)

type Handlers struct {
	Health *healthAPI.Handler
	Nodes  *nodesAPI.Handler
}

// Deps are the collaborators of the API.
type Deps struct {
	Store      nodesAPI.Store
	Checker    healthAPI.Checker
	APIKeyHash string
}

func New(deps Deps, log *slog.Logger) *chi.Mux {
	mux := chi.NewMux()

	config := huma.DefaultConfig("iotsync node store", "1.0.0")
	config.Components.SecuritySchemes = map[string]*huma.SecurityScheme{
		"bearer": {Type: "http", Scheme: "bearer"},
	}

	API := humachi.New(mux, config)

	h := handlers(deps, log)
	h.Health.SetupRoutes(API)
	h.Nodes.SetupRoutes(API)

	return mux
}

func handlers(deps Deps, log *slog.Logger) *Handlers {
	public := middleware.NewSet(logger.New(log).Middleware())
	protected := public.With(auth.New(deps.APIKeyHash, log).Middleware())

	return &Handlers{
		Health: healthAPI.NewHandler(deps.Checker, log, public.Middlewares()),
		Nodes:  nodesAPI.NewHandler(deps.Store, log, protected.Middlewares()),
	}
}
