package api

import (
	"github.com/starford/jotter/internal/content"
	"github.com/starford/jotter/internal/index"
	"github.com/starford/jotter/internal/models"
	"github.com/starford/jotter/internal/noteservice"
)

// NoteRequest is the request body for creating or replacing a note.
type NoteRequest = noteservice.NoteInput

// NoteDetail is the full note response type (aliased from the domain layer).
type NoteDetail = noteservice.NoteDetail

// NoteListItem is a lightweight item in a list response (aliased from the domain layer).
type NoteListItem = noteservice.NoteListItem

// NoteListResponse wraps paginated note listings.
type NoteListResponse struct {
	Notes []NoteListItem `json:"notes" validate:"required"`
	Total int            `json:"total" example:"42" validate:"required"`
}

// SearchResult is a single search hit in the API response.
type SearchResult = index.SearchResult

// SearchResponse wraps search results.
type SearchResponse struct {
	Results []SearchResult `json:"results" validate:"required"`
}

// TagsResponse wraps the tag listing.
type TagsResponse struct {
	Tags []models.TagCount `json:"tags" validate:"required"`
}

// RenderRequest is the request body for POST /content/render.
type RenderRequest struct {
	Content               string `json:"content" example:"Buy milk #groceries" validate:"required"`
	Scrub                 bool   `json:"scrub"`
	ValidateLinksStrictly bool   `json:"validate_links_strictly"`
	ShowLinkHost          bool   `json:"show_link_host"`
}

// RenderResponse is the rendered view of the submitted content.
type RenderResponse = content.Rendered

// ScrubRequest is the request body for POST /content/scrub.
type ScrubRequest struct {
	Content string `json:"content" example:"<div>hello</div>" validate:"required"`
}

// ScrubResponse carries the canonical form of the submitted content.
type ScrubResponse struct {
	Content string `json:"content" example:"hello" validate:"required"`
}

// TLDResponse reports whether a domain ends in a known top-level domain.
type TLDResponse struct {
	Domain string `json:"domain" example:"example.com" validate:"required"`
	Valid  bool   `json:"valid" example:"true"`
}
