package handlers

import (
	"context"
	"encoding/json"
	"net"
	"net/http"

	"github.com/rs/zerolog"

	"transcriber/internal/domain"
	"transcriber/internal/infra"
	"transcriber/internal/infra/geoip"
)

// Enqueuer is the queue surface intake needs.
type Enqueuer interface {
	Enqueue(ctx context.Context, job domain.Job) error
}

// App bundles the dependencies of the intake handlers.
type App struct {
	Queue  Enqueuer
	Cfg    *infra.Config
	GeoIP  *geoip.Resolver
	Logger zerolog.Logger
}

func NewApp(queue Enqueuer, cfg *infra.Config, resolver *geoip.Resolver, logger zerolog.Logger) *App {
	return &App{Queue: queue, Cfg: cfg, GeoIP: resolver, Logger: logger}
}

func (a *App) json(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func (a *App) error(w http.ResponseWriter, status int, code, message string) {
	a.json(w, status, map[string]any{
		"error": map[string]string{"code": code, "message": message},
	})
}

// submitterCountry best-effort resolves the country of the request IP. Used
// only as a log annotation; "" means unresolved or unconfigured.
func (a *App) submitterCountry(r *http.Request) string {
	host := r.RemoteAddr
	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}
	code, err := a.GeoIP.Country(host)
	if err != nil {
		return ""
	}
	return code
}
