// Package http serves the JSON API and the event stream of the daemon.
package http

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/bnema/mediaconv/internal/adapter/http/middleware"
)

type Deps struct {
	Items       ItemService
	Conversions ConversionService
	Settings    SettingsService
	Events      EventSource
	Auth        middleware.TokenValidator
}

type Options struct {
	// BaseContext outlives single requests; background conversions started
	// through the API run under it.
	BaseContext  context.Context
	RateLimitRPM int
	Version      string
	Log          zerolog.Logger
}

type Server struct {
	mux         *http.ServeMux
	handler     http.Handler
	items       ItemService
	conversions ConversionService
	settings    SettingsService
	bus         EventSource
	baseCtx     context.Context
	keepAlive   time.Duration
	version     string
	log         zerolog.Logger
}

func NewServer(deps Deps, opts Options) *Server {
	baseCtx := opts.BaseContext
	if baseCtx == nil {
		baseCtx = context.Background()
	}
	s := &Server{
		mux:         http.NewServeMux(),
		items:       deps.Items,
		conversions: deps.Conversions,
		settings:    deps.Settings,
		bus:         deps.Events,
		baseCtx:     baseCtx,
		keepAlive:   keepAliveInterval,
		version:     opts.Version,
		log:         opts.Log,
	}

	s.registerRoutes(middleware.BearerAuth(deps.Auth))

	var h http.Handler = s.mux
	h = middleware.RateLimit(opts.RateLimitRPM, time.Minute)(h)
	h = middleware.AccessLog(opts.Log)(h)
	h = middleware.SecurityHeaders(h)
	s.handler = h
	return s
}

func (s *Server) registerRoutes(auth func(http.Handler) http.Handler) {
	protect := func(fn http.HandlerFunc) http.Handler { return auth(fn) }

	s.mux.Handle("GET /api/items", protect(s.listItems))
	s.mux.Handle("POST /api/items", protect(s.ingest))
	s.mux.Handle("DELETE /api/items", protect(s.clearItems))
	s.mux.Handle("GET /api/items/{id}", protect(s.getItem))
	s.mux.Handle("DELETE /api/items/{id}", protect(s.removeItem))
	s.mux.Handle("POST /api/items/{id}/convert", protect(s.convertItem))

	s.mux.Handle("POST /api/convert", protect(s.convertAll))
	s.mux.Handle("POST /api/cancel", protect(s.cancel))

	s.mux.Handle("GET /api/settings", protect(s.getSettings))
	s.mux.Handle("PATCH /api/settings", protect(s.patchSettings))

	s.mux.Handle("GET /api/summary", protect(s.summary))
	s.mux.Handle("GET /api/formats", protect(s.formats))
	s.mux.Handle("GET /api/events", protect(s.events))

	s.mux.Handle("GET /metrics", auth(promhttp.Handler()))
	s.mux.HandleFunc("GET /healthz", s.healthz)
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}
