// internal/app/features/groups/routes.go
package groups

import (
	"github.com/dalemusser/groupchat/internal/app/system/auth"
	"github.com/go-chi/chi/v5"
)

// Routes returns the router mounted at /api/groups.
func Routes(h *Handler, id *auth.Identity) chi.Router {
	r := chi.NewRouter()

	// Every group route needs a caller.
	r.Group(func(pr chi.Router) {
		pr.Use(id.RequireUser)

		pr.Post("/", h.HandleCreateGroup)
		pr.Get("/", h.ServeUserGroups)
		pr.Get("/public", h.ServePublicGroups)

		// Message-level actions are addressed by message id alone.
		pr.Post("/messages/{messageId}/approve", h.HandleApprove)
		pr.Put("/messages/{messageId}", h.HandleEditMessage)
		pr.Delete("/messages/{messageId}", h.HandleDeleteMessage)

		pr.Route("/{groupId}", func(gr chi.Router) {
			gr.Get("/", h.ServeGroup)
			gr.Put("/", h.HandleUpdateSettings)
			gr.Get("/permissions", h.ServePermissions)
			gr.Post("/leave", h.HandleLeave)

			gr.Post("/members", h.HandleAddMember)
			gr.Delete("/members/{targetUserId}", h.HandleRemoveMember)
			gr.Put("/members/{targetUserId}/role", h.HandleChangeRole)
			gr.Put("/members/{targetUserId}/mute", h.HandleMute)

			gr.Post("/messages", h.HandleSendMessage)
			gr.Get("/messages", h.ServeMessages)
			gr.Get("/messages/pending", h.ServePendingMessages)
		})
	})

	return r
}
