package main

import (
	"net/http"
	"time"

	"github.com/kansalharshit22/solace-project/matching"
	"github.com/kansalharshit22/solace-project/store"
	"go.uber.org/zap"
)

// server bundles the dependencies shared by all handlers.
type server struct {
	cfg     Config
	store   store.Store
	matcher *matching.Service
	log     *zap.Logger
	metrics *Metrics
	feed    *matchFeed
	now     func() time.Time
}

func newServer(cfg Config, st store.Store, log *zap.Logger, metrics *Metrics) *server {
	return &server{
		cfg:     cfg,
		store:   st,
		matcher: matching.NewService(store.Profiles(st)),
		log:     log,
		metrics: metrics,
		feed:    newMatchFeed(),
		now:     time.Now,
	}
}

// routes wires every endpoint and the middleware chain.
func (s *server) routes() http.Handler {
	mux := http.NewServeMux()
	handle := func(route string, h http.Handler) {
		mux.Handle(route, s.metrics.instrument(route, h))
	}

	// Auth
	handle("/api/register", s.registerHandler())
	handle("/api/login", s.loginHandler())

	// Users: GET /api/users/{id}, PUT /api/users/{id}
	handle("/api/users/", s.usersDispatcher())

	// Matching
	handle("/api/match", s.matchHandler())
	handle("/ws/matches", s.matchFeedHandler())

	mux.Handle("/metrics", s.metrics.Handler())

	// Health check endpoint for Docker
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			writeError(w, http.StatusNotFound, "not found")
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "app": "Campus Connect Backend"})
	})

	var h http.Handler = mux
	h = dataLoaderMiddleware(s.store)(h)
	h = withAccessLog(s.log, h)
	h = withRequestID(h)
	return withCORS(s.cfg.CORSOrigins, h)
}
