package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/Strob0t/TaskForge/internal/adapter/ws"
)

// MountRoutes registers all API routes on the given chi router.
// The webhook receiver endpoint lives in a separate deployment; this
// service only manages the registration lifecycle.
func MountRoutes(r chi.Router, h *Handlers, hub *ws.Hub) {
	r.Get("/healthz", h.Health)

	r.Route("/api", func(r chi.Router) {
		// Settings
		r.Get("/settings", h.GetSettings)
		r.Post("/settings", h.PostSettings)

		// Provider credentials
		r.Post("/providers", h.PostProviders)

		// Asana webhook lifecycle
		r.Route("/asana/webhook", func(r chi.Router) {
			r.Get("/status", h.WebhookStatus)
			r.Post("/create", h.CreateWebhook)
			r.Delete("/", h.DeleteWebhook)
		})
	})

	if hub != nil {
		r.Get("/ws", func(w http.ResponseWriter, r *http.Request) {
			hub.HandleWS(w, r)
		})
	}
}
