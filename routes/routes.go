package routes

import (
	"net/http"

	"github.com/julienschmidt/httprouter"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"wayfarer/itinerary"
	"wayfarer/ratelim"
	"wayfarer/suggestions"
)

// Index is a simple health check handler.
func Index(w http.ResponseWriter, _ *http.Request, _ httprouter.Params) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("200"))
}

func AddOpsRoutes(router *httprouter.Router) {
	router.GET("/health", Index)
	router.Handler(http.MethodGet, "/metrics", promhttp.Handler())
}

func AddPlanRoutes(router *httprouter.Router, h *itinerary.Handler) {
	router.GET("/plans", h.ListPlans)
	router.GET("/max-plan-id", h.MaxPlanID)
	router.POST("/new-plan/", h.NewPlan)

	router.POST("/plan/", h.IngestPlan)
	router.GET("/plan/:planId", h.GetPlan)
	router.POST("/plan/:planId", h.UpdatePlan)
	router.DELETE("/plan/:planId", h.DeletePlan)
	router.GET("/plan/:planId/export", h.ExportPlan)
	router.POST("/plan/:planId/weather", h.RefreshWeather)

	router.PUT("/plan/:planId/:day", h.AppendActivity)
	router.PUT("/plan/:planId/:day/:activityId", h.UpdateActivity)
	router.DELETE("/activity/:activityId", h.DeleteActivity)
}

// AddSuggestionRoutes registers the generative endpoints behind the limiter;
// each call spends model quota.
func AddSuggestionRoutes(router *httprouter.Router, h *suggestions.Handler, limiter *ratelim.RateLimiter) {
	router.POST("/plan-suggestion/", limiter.Limit(h.Suggest))
	router.PUT("/modify-plan-suggestion/", limiter.Limit(h.Modify))
}

// New builds the router with every route. A nil suggestion handler leaves
// the generative endpoints unregistered.
func New(plans *itinerary.Handler, sugg *suggestions.Handler, limiter *ratelim.RateLimiter) *httprouter.Router {
	router := httprouter.New()
	AddOpsRoutes(router)
	AddPlanRoutes(router, plans)
	if sugg != nil {
		AddSuggestionRoutes(router, sugg, limiter)
	}
	return router
}
