package api

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/starford/notedash/internal/account"
	"github.com/starford/notedash/internal/dashboard"
	"github.com/starford/notedash/internal/models"
)

// Session exposes the current identity.
type Session interface {
	Authenticator
	Current() (models.User, bool)
}

// Handler holds API route handlers.
type Handler struct {
	dash     *dashboard.Dashboard
	accounts *account.Service
	session  Session
}

// NewHandler creates a new Handler.
func NewHandler(dash *dashboard.Dashboard, accounts *account.Service, session Session) *Handler {
	return &Handler{dash: dash, accounts: accounts, session: session}
}

// Signup handles POST /api/auth/signup.
//
//	@Summary		Register an account
//	@Tags			auth
//	@Accept			json
//	@Produce		json
//	@Param			body	body		account.SignupForm	true	"Registration form"
//	@Success		201		{object}	models.User
//	@Failure		400		{object}	errResponse
//	@Router			/auth/signup [post]
func (h *Handler) Signup(w http.ResponseWriter, r *http.Request) {
	var form account.SignupForm
	if !decodeJSON(w, r, &form) {
		return
	}
	user, err := h.accounts.Signup(r.Context(), form)
	if err != nil {
		writeError(w, "signup", err)
		return
	}
	writeJSON(w, http.StatusCreated, user)
}

// Login handles POST /api/auth/login.
//
//	@Summary		Log in
//	@Tags			auth
//	@Accept			json
//	@Produce		json
//	@Param			body	body		account.LoginForm	true	"Credentials"
//	@Success		200		{object}	models.User
//	@Failure		400		{object}	errResponse
//	@Failure		401		{object}	errResponse
//	@Router			/auth/login [post]
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var form account.LoginForm
	if !decodeJSON(w, r, &form) {
		return
	}
	user, err := h.accounts.Login(r.Context(), form)
	if err != nil {
		writeError(w, "login", err)
		return
	}
	// Failures land in the dashboard's error banner.
	if err := h.dash.LoadAll(r.Context()); err != nil {
		slog.Warn("load after login failed", slog.String("error", err.Error()))
	}
	writeJSON(w, http.StatusOK, user)
}

// Logout handles POST /api/auth/logout.
func (h *Handler) Logout(w http.ResponseWriter, _ *http.Request) {
	if err := h.accounts.Logout(); err != nil {
		writeError(w, "logout", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Me handles GET /api/auth/me.
func (h *Handler) Me(w http.ResponseWriter, _ *http.Request) {
	user, ok := h.session.Current()
	if !ok {
		writeJSON(w, http.StatusUnauthorized, errorBody("You must be logged in."))
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// Dashboard handles GET /api/dashboard.
//
//	@Summary		Current dashboard state
//	@Tags			dashboard
//	@Produce		json
//	@Success		200	{object}	DashboardResponse
//	@Security		BearerAuth
//	@Router			/dashboard [get]
func (h *Handler) Dashboard(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, dashboardResponse(h.dash.Snapshot()))
}

// Reload handles POST /api/dashboard/reload.
func (h *Handler) Reload(w http.ResponseWriter, r *http.Request) {
	if err := h.dash.LoadAll(r.Context()); err != nil {
		writeError(w, "reload", err)
		return
	}
	writeJSON(w, http.StatusOK, dashboardResponse(h.dash.Snapshot()))
}

// Clear handles POST /api/dashboard/clear.
func (h *Handler) Clear(w http.ResponseWriter, r *http.Request) {
	if err := h.dash.ClearAll(r.Context()); err != nil {
		writeError(w, "clear", err)
		return
	}
	writeJSON(w, http.StatusOK, dashboardResponse(h.dash.Snapshot()))
}

// DismissError handles DELETE /api/dashboard/error.
func (h *Handler) DismissError(w http.ResponseWriter, _ *http.Request) {
	h.dash.DismissError()
	w.WriteHeader(http.StatusNoContent)
}

// Search handles POST /api/search. A blank query leaves search mode.
//
//	@Summary		Free-text search across visible notes
//	@Tags			dashboard
//	@Accept			json
//	@Produce		json
//	@Param			body	body		SearchRequest	true	"Query"
//	@Success		200		{object}	DashboardResponse
//	@Security		BearerAuth
//	@Router			/search [post]
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	var req SearchRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := h.dash.Search(r.Context(), req.Query); err != nil {
		writeError(w, "search", err)
		return
	}
	writeJSON(w, http.StatusOK, dashboardResponse(h.dash.Snapshot()))
}

// AddTagFilter handles POST /api/filters/tags.
func (h *Handler) AddTagFilter(w http.ResponseWriter, r *http.Request) {
	var req TagRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := h.dash.AddTagFilter(r.Context(), req.Tag); err != nil {
		writeError(w, "add tag filter", err)
		return
	}
	writeJSON(w, http.StatusOK, dashboardResponse(h.dash.Snapshot()))
}

// RemoveTagFilter handles DELETE /api/filters/tags/{tag}.
func (h *Handler) RemoveTagFilter(w http.ResponseWriter, r *http.Request) {
	if err := h.dash.RemoveTagFilter(r.Context(), chi.URLParam(r, "tag")); err != nil {
		writeError(w, "remove tag filter", err)
		return
	}
	writeJSON(w, http.StatusOK, dashboardResponse(h.dash.Snapshot()))
}

// CreateNote handles POST /api/notes.
//
//	@Summary		Create a personal or project note
//	@Tags			notes
//	@Accept			json
//	@Produce		json
//	@Param			body	body		CreateNoteRequest	true	"Note to create"
//	@Success		201		{object}	models.Note
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/notes [post]
func (h *Handler) CreateNote(w http.ResponseWriter, r *http.Request) {
	var req CreateNoteRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	note, err := h.dash.Create(r.Context(), req.input())
	if err != nil {
		writeError(w, "create note", err)
		return
	}
	writeJSON(w, http.StatusCreated, note)
}

// GetNote handles GET /api/notes/{id}.
func (h *Handler) GetNote(w http.ResponseWriter, r *http.Request) {
	note, err := h.dash.Open(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, "get note", err)
		return
	}
	writeJSON(w, http.StatusOK, note)
}

// UpdateNote handles PUT /api/notes/{id}.
//
//	@Summary		Update a note
//	@Tags			notes
//	@Accept			json
//	@Produce		json
//	@Param			id		path		string				true	"Note id"
//	@Param			body	body		UpdateNoteRequest	true	"Fields to change"
//	@Success		200		{object}	models.Note
//	@Failure		400		{object}	errResponse
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/notes/{id} [put]
func (h *Handler) UpdateNote(w http.ResponseWriter, r *http.Request) {
	var patch UpdateNoteRequest
	if !decodeJSON(w, r, &patch) {
		return
	}
	note, err := h.dash.Update(r.Context(), chi.URLParam(r, "id"), patch)
	if err != nil {
		writeError(w, "update note", err)
		return
	}
	writeJSON(w, http.StatusOK, note)
}

// DeleteNote handles DELETE /api/notes/{id}?confirm=true. Without the
// confirm flag nothing is sent and 400 is returned.
func (h *Handler) DeleteNote(w http.ResponseWriter, r *http.Request) {
	confirmed, _ := strconv.ParseBool(r.URL.Query().Get("confirm"))
	err := h.dash.Delete(r.Context(), chi.URLParam(r, "id"), func(models.Note) bool { return confirmed })
	if err != nil {
		writeError(w, "delete note", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ShareNote handles POST /api/notes/{id}/share.
func (h *Handler) ShareNote(w http.ResponseWriter, r *http.Request) {
	var req ShareRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	note, err := h.dash.Share(r.Context(), chi.URLParam(r, "id"), req.Email)
	if err != nil {
		writeError(w, "share note", err)
		return
	}
	writeJSON(w, http.StatusOK, note)
}
