package api

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/starford/jotter/internal/content"
	"github.com/starford/jotter/internal/index"
	"github.com/starford/jotter/internal/noteservice"
)

// Handler holds API route handlers.
type Handler struct {
	svc  *noteservice.Service
	tlds content.TLDChecker
}

// NewHandler creates a new Handler.
func NewHandler(svc *noteservice.Service, tlds content.TLDChecker) *Handler {
	return &Handler{svc: svc, tlds: tlds}
}

// ListNotes handles GET /api/notes.
//
//	@Summary		List notes with optional pagination and filtering
//	@Tags			notes
//	@Produce		json
//	@Param			limit	query		int		false	"Page size"
//	@Param			offset	query		int		false	"Page offset"
//	@Param			tag		query		string	false	"Filter by tag or hashtag"
//	@Param			sort	query		string	false	"Sort field"	Enums(updated_at, title, sort_order)
//	@Success		200		{object}	NoteListResponse
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/notes [get]
func (h *Handler) ListNotes(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, _ := strconv.Atoi(q.Get("limit"))
	offset, _ := strconv.Atoi(q.Get("offset"))

	items, total, err := h.svc.ListNotes(r.Context(), index.ListQuery{
		Limit:  limit,
		Offset: offset,
		Tag:    q.Get("tag"),
		Sort:   q.Get("sort"),
	})
	if err != nil {
		writeError(w, "list notes", err)
		return
	}
	writeJSON(w, http.StatusOK, NoteListResponse{Notes: items, Total: total})
}

// GetNote handles GET /api/notes/{guid}.
//
//	@Summary		Get a single note with its rendered content
//	@Tags			notes
//	@Produce		json
//	@Param			guid	path		string	true	"Note GUID"
//	@Success		200		{object}	NoteDetail
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/notes/{guid} [get]
func (h *Handler) GetNote(w http.ResponseWriter, r *http.Request) {
	note, err := h.svc.GetNote(r.Context(), chi.URLParam(r, "guid"))
	if err != nil {
		writeError(w, "get note", err)
		return
	}
	w.Header().Set("ETag", `"`+note.Hash+`"`)
	writeJSON(w, http.StatusOK, note)
}

// CreateNote handles POST /api/notes.
//
//	@Summary		Create a new note
//	@Tags			notes
//	@Accept			json
//	@Produce		json
//	@Param			body	body		NoteRequest	true	"Note to create"
//	@Success		201		{object}	NoteDetail
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/notes [post]
func (h *Handler) CreateNote(w http.ResponseWriter, r *http.Request) {
	var req NoteRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	note, err := h.svc.CreateNote(r.Context(), req)
	if err != nil {
		writeError(w, "create note", err)
		return
	}
	w.Header().Set("ETag", `"`+note.Hash+`"`)
	writeJSON(w, http.StatusCreated, note)
}

// UpdateNote handles PUT /api/notes/{guid}.
//
//	@Summary		Replace a note with optimistic concurrency
//	@Tags			notes
//	@Accept			json
//	@Produce		json
//	@Param			guid		path	string		true	"Note GUID"
//	@Param			If-Match	header	string		false	"Note hash for optimistic concurrency"
//	@Param			body		body	NoteRequest	true	"Replacement note"
//	@Success		200		{object}	NoteDetail
//	@Failure		400		{object}	errResponse
//	@Failure		404		{object}	errResponse
//	@Failure		409		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/notes/{guid} [put]
func (h *Handler) UpdateNote(w http.ResponseWriter, r *http.Request) {
	var req NoteRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	note, err := h.svc.UpdateNote(r.Context(), chi.URLParam(r, "guid"), req, r.Header.Get("If-Match"))
	if err != nil {
		writeError(w, "update note", err)
		return
	}
	w.Header().Set("ETag", `"`+note.Hash+`"`)
	writeJSON(w, http.StatusOK, note)
}

// DeleteNote handles DELETE /api/notes/{guid}.
//
//	@Summary		Delete a note
//	@Tags			notes
//	@Param			guid	path	string	true	"Note GUID"
//	@Success		204		"Note deleted"
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/notes/{guid} [delete]
func (h *Handler) DeleteNote(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.DeleteNote(r.Context(), chi.URLParam(r, "guid")); err != nil {
		writeError(w, "delete note", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Search handles GET /api/search.
//
//	@Summary		Full-text search across notes
//	@Tags			search
//	@Produce		json
//	@Param			q		query		string	true	"Search query"
//	@Param			limit	query		int		false	"Max results"
//	@Success		200		{object}	SearchResponse
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/search [get]
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	if q == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("query parameter 'q' is required"))
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	results, err := h.svc.Search(r.Context(), q, limit)
	if err != nil {
		writeError(w, "search", err)
		return
	}
	writeJSON(w, http.StatusOK, SearchResponse{Results: results})
}

// Tags handles GET /api/tags.
//
//	@Summary		List tags and hashtags with note counts
//	@Tags			search
//	@Produce		json
//	@Success		200	{object}	TagsResponse
//	@Security		BearerAuth
//	@Router			/tags [get]
func (h *Handler) Tags(w http.ResponseWriter, r *http.Request) {
	tags, err := h.svc.Tags(r.Context())
	if err != nil {
		writeError(w, "tags", err)
		return
	}
	writeJSON(w, http.StatusOK, TagsResponse{Tags: tags})
}

// RenderContent handles POST /api/content/render.
//
//	@Summary		Render content to plain text and sanitized HTML
//	@Tags			content
//	@Accept			json
//	@Produce		json
//	@Param			body	body		RenderRequest	true	"Content to render"
//	@Success		200		{object}	RenderResponse
//	@Failure		400		{object}	errResponse
//	@Failure		500		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/content/render [post]
func (h *Handler) RenderContent(w http.ResponseWriter, r *http.Request) {
	var req RenderRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	out, err := h.svc.Render(r.Context(), req.Content, req.Scrub, content.Options{
		ValidateLinksStrictly: req.ValidateLinksStrictly,
		ShowLinkHost:          req.ShowLinkHost,
	})
	if err != nil {
		writeError(w, "render content", err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

// ScrubContent handles POST /api/content/scrub.
//
//	@Summary		Convert editor markup to canonical content
//	@Tags			content
//	@Accept			json
//	@Produce		json
//	@Param			body	body		ScrubRequest	true	"Raw editor markup"
//	@Success		200		{object}	ScrubResponse
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/content/scrub [post]
func (h *Handler) ScrubContent(w http.ResponseWriter, r *http.Request) {
	var req ScrubRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	writeJSON(w, http.StatusOK, ScrubResponse{Content: content.Scrub(req.Content)})
}

// CheckTLD handles GET /api/tld/{domain}.
//
//	@Summary		Check whether a domain ends in a known top-level domain
//	@Tags			content
//	@Produce		json
//	@Param			domain	path		string	true	"Domain or bare TLD"
//	@Success		200		{object}	TLDResponse
//	@Security		BearerAuth
//	@Router			/tld/{domain} [get]
func (h *Handler) CheckTLD(w http.ResponseWriter, r *http.Request) {
	domain := strings.ToLower(strings.TrimSpace(chi.URLParam(r, "domain")))
	if domain == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("domain is required"))
		return
	}
	valid := h.tlds != nil && h.tlds.IsValidTLD(r.Context(), domain)
	writeJSON(w, http.StatusOK, TLDResponse{Domain: domain, Valid: valid})
}
