package chi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// ServerOptions configures route registration.
type ServerOptions struct {
	BaseRouter chi.Router
	// ErrorHandlerFunc handles parameter binding failures. Defaults to a 400 JSON response.
	ErrorHandlerFunc func(w http.ResponseWriter, r *http.Request, err error)
}

// Handler registers all routes on a fresh chi router.
func Handler(s *Server) http.Handler {
	return HandlerWithOptions(s, ServerOptions{})
}

// HandlerWithOptions registers all routes on opts.BaseRouter.
func HandlerWithOptions(s *Server, opts ServerOptions) http.Handler {
	r := opts.BaseRouter
	if r == nil {
		r = chi.NewRouter()
	}
	if opts.ErrorHandlerFunc != nil {
		s.paramErrorHandler = opts.ErrorHandlerFunc
	}

	r.Get("/products/{product_id}/incidents", s.RankIncidents)
	r.Post("/products/{product_id}/incidents/{incident_id}/prism", s.ScoreIncident)
	r.Get("/products/{product_id}/incidents/{incident_id}/explanation", s.ExplainIncident)
	r.Post("/products/{product_id}/prism/bulk", s.ScoreBulk)
	r.Get("/products/{product_id}/prism/top", s.TopTransferability)
	r.Post("/prism/batch", s.ScoreBatch)
	r.Get("/usage", s.GetUsage)
	r.Get("/health", s.HealthCheck)
	r.Get("/metrics", s.Metrics)

	return r
}
