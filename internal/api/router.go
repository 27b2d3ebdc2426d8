package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/jotter/internal/content"
	"github.com/starford/jotter/internal/noteservice"
)

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
// tlds answers GET /tld/{domain}; a non-nil events handler serves GET /events.
func NewRouter(svc *noteservice.Service, tlds content.TLDChecker, events http.Handler, authEnabled bool, token string) chi.Router {
	h := NewHandler(svc, tlds)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	// Notes CRUD.
	r.Get("/notes", h.ListNotes)
	r.Post("/notes", h.CreateNote)
	r.Get("/notes/{guid}", h.GetNote)
	r.Put("/notes/{guid}", h.UpdateNote)
	r.Delete("/notes/{guid}", h.DeleteNote)

	// Search and tags.
	r.Get("/search", h.Search)
	r.Get("/tags", h.Tags)

	// Content pipeline.
	r.Post("/content/render", h.RenderContent)
	r.Post("/content/scrub", h.ScrubContent)
	r.Get("/tld/{domain}", h.CheckTLD)

	// Note change stream.
	if events != nil {
		r.Method(http.MethodGet, "/events", events)
	}

	return r
}
