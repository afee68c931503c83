package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/notedash/internal/account"
	"github.com/starford/notedash/internal/dashboard"
)

// Deps are the components the gateway routes to.
type Deps struct {
	Dashboard *dashboard.Dashboard
	Accounts  *account.Service
	Session   Session
	// Events, if non-nil, is mounted at GET /events inside the session group.
	Events http.Handler
}

// NewRouter creates a chi router with all gateway routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
func NewRouter(d Deps, authEnabled bool, token string) chi.Router {
	h := NewHandler(d.Dashboard, d.Accounts, d.Session)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	// Account.
	r.Post("/auth/signup", h.Signup)
	r.Post("/auth/login", h.Login)
	r.Post("/auth/logout", h.Logout)
	r.Get("/auth/me", h.Me)

	r.Group(func(r chi.Router) {
		r.Use(RequireSession(d.Session))

		// Dashboard view.
		r.Get("/dashboard", h.Dashboard)
		r.Post("/dashboard/reload", h.Reload)
		r.Post("/dashboard/clear", h.Clear)
		r.Delete("/dashboard/error", h.DismissError)

		// Search and tag filters.
		r.Post("/search", h.Search)
		r.Post("/filters/tags", h.AddTagFilter)
		r.Delete("/filters/tags/{tag}", h.RemoveTagFilter)

		// Notes.
		r.Post("/notes", h.CreateNote)
		r.Get("/notes/{id}", h.GetNote)
		r.Put("/notes/{id}", h.UpdateNote)
		r.Delete("/notes/{id}", h.DeleteNote)
		r.Post("/notes/{id}/share", h.ShareNote)

		if d.Events != nil {
			r.Get("/events", d.Events.ServeHTTP)
		}
	})

	return r
}
