// Package models defines the domain types for Jotter.
package models

import "time"

// Default note attributes.
const (
	DefaultType      = "general"
	DefaultSortOrder = 5000
	MaxSortOrder     = 9999
)

// Note is a stored note. Content is always canonical (scrubbed) markup.
type Note struct {
	GUID      string    `json:"guid"`
	Title     string    `json:"title"`
	Type      string    `json:"type"`
	Content   string    `json:"content"`
	Tags      []string  `json:"tags"`
	Hash      string    `json:"hash"`
	SortOrder int       `json:"sort_order"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TagCount is one entry of the tag listing.
type TagCount struct {
	Tag   string `json:"tag"`
	Count int    `json:"count"`
}
