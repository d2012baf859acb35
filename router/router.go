package router

import (
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humago"
)

type Option func(huma.API)

// New returns a handler serving the probes, the metrics and the API
// configured by opts. liveness also answers on the root path.
func New(
	title, version string,
	liveness, readiness, metrics http.HandlerFunc,
	opts ...Option,
) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", liveness)
	mux.HandleFunc("/liveness", liveness)
	mux.HandleFunc("/readiness", readiness)
	mux.HandleFunc("/metrics", metrics)

	config := huma.DefaultConfig(title, version)
	// responses are written as is, without a $schema link
	config.CreateHooks = nil
	config.Transformers = nil

	api := humago.New(mux, config)
	for _, opt := range opts {
		opt(api)
	}

	return mux
}

// OptUseMiddleware adds middlewares to the API.
func OptUseMiddleware(middlewares ...func(huma.Context, func(huma.Context))) Option {
	return func(api huma.API) { api.UseMiddleware(middlewares...) }
}

// OptGroup applies opts to a group mounted at prefix.
func OptGroup(prefix string, opts ...Option) Option {
	return func(api huma.API) {
		grp := huma.NewGroup(api, prefix)
		for _, opt := range opts {
			opt(grp)
		}
	}
}

// OptAutoRegister calls [huma.AutoRegister] with server.
func OptAutoRegister(server any) Option {
	return func(api huma.API) { huma.AutoRegister(api, server) }
}
