// Package routes binds the catalogue's route groups to the application mux.
package routes

import (
	"github.com/tomkralidis/gocsw/internal/api/mux"
	"github.com/tomkralidis/gocsw/internal/api/routes/health"
	"github.com/tomkralidis/gocsw/internal/api/routes/records"
	"github.com/tomkralidis/gocsw/pkg/web"
)

// Routes constructs an add value which provides the implementation of
// RouteAdder for specifying what routes to bind to this instance.
func Routes() add {
	return add{}
}

type add struct{}

// Add implements the RouteAdder interface.
func (add) Add(app *web.App, cfg mux.Config) {
	health.Routes(app, health.Config{
		Build:      cfg.Build,
		Log:        cfg.Log,
		Repository: cfg.Repository,
	})

	records.Routes(app, records.Config{
		Log:     cfg.Log,
		Catalog: cfg.Catalog,
	})
}
