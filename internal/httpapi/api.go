package httpapi

import (
	"context"
	"database/sql"
	"net/http"
	"time"

	"agora.events/internal/events"
	"agora.events/internal/identity"
	"agora.events/internal/obs"
	"agora.events/internal/permissions"
)

// ReadyProbe reports readiness, typically by pinging the database.
type ReadyProbe struct {
	DB *sql.DB
}

func (rp ReadyProbe) Check(ctx context.Context) error {
	if rp.DB == nil {
		return nil
	}
	return rp.DB.PingContext(ctx)
}

// Options collects the collaborators the HTTP layer needs.
type Options struct {
	ReadyProbe ReadyProbe
	Version    string

	Resolver  *identity.Resolver
	Events    events.Service
	Evaluator *permissions.Evaluator

	// MediaDir is where uploaded head images land.
	MediaDir string

	// RateBurst / RatePerSec configure the per-client limiter. Zero disables
	// limiting, which the tests rely on.
	RateBurst  int
	RatePerSec int
}

// API is the HTTP layer.
type API struct {
	mux        *http.ServeMux
	readyProbe ReadyProbe
	version    string

	resolver *identity.Resolver
	events   events.Service
	eval     *permissions.Evaluator
	mediaDir string

	rateBurst  int
	ratePerSec int
}

func New(opts Options) *API {
	a := &API{
		mux:        http.NewServeMux(),
		readyProbe: opts.ReadyProbe,
		version:    opts.Version,
		resolver:   opts.Resolver,
		events:     opts.Events,
		eval:       opts.Evaluator,
		mediaDir:   opts.MediaDir,
		rateBurst:  opts.RateBurst,
		ratePerSec: opts.RatePerSec,
	}

	// health/ready/info
	a.mux.HandleFunc("/healthz", a.Healthz)
	a.mux.HandleFunc("/readyz", a.Ready)

	// Prometheus metrics
	a.mux.Handle("/metrics", obs.Handler())

	// event collection and resources
	a.mux.HandleFunc("/single/", a.handleEventResource)
	a.mux.HandleFunc("/", a.handleEventsCollection)

	return a
}

// Handler returns the full middleware chain around the mux. Authentication
// runs innermost so rejected requests are still logged and counted.
func (a *API) Handler() http.Handler {
	var h http.Handler = a.withAuth(a.mux)
	h = MaxBodyBytes(h, maxUploadBytes)
	h = RateLimit(h, a.rateBurst, a.ratePerSec)
	h = LoggingJSON(h)
	h = SecurityHeaders(h)
	h = RequestID(h)
	return obs.Instrument(h)
}

func (a *API) Healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"service": "events-api",
		"version": a.version,
	})
}

func (a *API) Ready(w http.ResponseWriter, r *http.Request) {
	if err := a.readyProbe.Check(r.Context()); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{
			"status": "not_ready",
			"error":  err.Error(),
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ready",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}
