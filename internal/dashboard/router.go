// Package dashboard exposes the record, report, and KPI operations as a JSON
// API for the dashboard frontend.
package dashboard

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/sells-group/bonus-cli/internal/bonus"
	"github.com/sells-group/bonus-cli/internal/report"
)

// NewRouter creates the dashboard router with all routes configured.
func NewRouter(engine *bonus.Engine, agg *report.Aggregator) *chi.Mux {
	h := &Handler{engine: engine, agg: agg}

	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
	}))

	r.Get("/health", h.Health)

	r.Route("/api", func(r chi.Router) {
		r.Route("/records", func(r chi.Router) {
			r.Get("/", h.ListRecords)
			r.Post("/", h.SaveRecord)
			r.Route("/{agentID}/{timestamp}", func(r chi.Router) {
				r.Get("/", h.GetRecord)
				r.Put("/", h.UpdateRecord)
				r.Delete("/", h.DeleteRecord)
			})
		})

		r.Get("/kpis", h.KPIs)
		r.Get("/agents/{agentID}/report", h.IndividualReport)
	})

	return r
}
