// Package health provides the liveness and readiness endpoints.
package health

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/tomkralidis/gocsw/internal/api/errs"
	"github.com/tomkralidis/gocsw/internal/domain/catalog"
	"github.com/tomkralidis/gocsw/pkg/common/logger"
	"github.com/tomkralidis/gocsw/pkg/web"
)

// Config contains all the mandatory systems required by handlers.
type Config struct {
	Build      string
	Log        *logger.Logger
	Repository catalog.MaintainableRepository
}

// Routes binds all the health check endpoints.
func Routes(app *web.App, cfg Config) {
	app.HandlerFunc(http.MethodGet, "", "/v1/liveness", liveness(cfg))
	app.HandlerFunc(http.MethodGet, "", "/v1/readiness", readiness(cfg))
}

// livenessResponse represents the response for the liveness check.
type livenessResponse struct {
	Status string `json:"status"`
	Build  string `json:"build"`
}

// Encode implements the web.Encoder interface.
func (lr livenessResponse) Encode() ([]byte, string, error) {
	data, err := json.Marshal(lr)
	if err != nil {
		return nil, "", err
	}
	return data, "application/json", nil
}

// readyResponse represents the response for the readiness check.
type readyResponse struct {
	Status string `json:"status"`
}

// Encode implements the web.Encoder interface.
func (rr readyResponse) Encode() ([]byte, string, error) {
	data, err := json.Marshal(rr)
	if err != nil {
		return nil, "", err
	}
	return data, "application/json", nil
}

func liveness(cfg Config) web.HandlerFunc {
	return func(ctx context.Context, r *http.Request) web.Encoder {
		return livenessResponse{
			Status: "ok",
			Build:  cfg.Build,
		}
	}
}

// readiness checks the record repository is answering before reporting
// ready.
func readiness(cfg Config) web.HandlerFunc {
	return func(ctx context.Context, r *http.Request) web.Encoder {
		if err := cfg.Repository.Ping(ctx); err != nil {
			cfg.Log.Error(ctx, "readiness failure", "err", err)
			return errs.New(errs.Internal, err)
		}

		return readyResponse{
			Status: "ready",
		}
	}
}
