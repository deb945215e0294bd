package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/zhouzirui/pawshop/internal/config"
	"github.com/zhouzirui/pawshop/internal/handler/catalog"
	"github.com/zhouzirui/pawshop/internal/handler/chatbot"
	"github.com/zhouzirui/pawshop/internal/handler/widget"
	middlewarePkg "github.com/zhouzirui/pawshop/internal/middleware"
	catalogModel "github.com/zhouzirui/pawshop/internal/model/catalog"
	chatbotService "github.com/zhouzirui/pawshop/internal/service/chatbot"
	sessionService "github.com/zhouzirui/pawshop/internal/service/session"
	"github.com/zhouzirui/pawshop/internal/storage"
	"github.com/zhouzirui/pawshop/pkg/utils"
)

// NewRouter wires HTTP routes to core services. widgetStore may be nil, in which
// case the websocket widget is not served.
func NewRouter(cfg *config.Config, items catalogModel.Store, sessionSvc *sessionService.Service, answerer chatbot.Answerer, widgetStore storage.Store) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middlewarePkg.CORS)

	var limiter func(http.Handler) http.Handler
	if cfg.RateLimit.Enabled() {
		limiter = middlewarePkg.NewRateLimiter(cfg.RateLimit.PerSecond, cfg.RateLimit.Burst).Middleware
	}

	catalogHandler := catalog.New(items)
	chatbotHandler := chatbot.New(answerer, sessionSvc, limiter)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		utils.RespondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api", func(api chi.Router) {
		catalogHandler.RegisterRoutes(api)
		chatbotHandler.RegisterRoutes(api)
	})

	if cfg.Server.WidgetEnabled && widgetStore != nil {
		// The widget talks to the same ask pipeline in-process.
		endpoint := chatbotService.EndpointFunc(chatbotHandler.Ask)
		widget.New(widgetStore, endpoint, cfg.Chatbot.Timeout).RegisterRoutes(r)
	} else {
		r.Get("/ws/chatbot/{visitorID}", func(w http.ResponseWriter, r *http.Request) {
			utils.RespondError(w, http.StatusServiceUnavailable, "chat widget disabled")
		})
	}

	return r
}
