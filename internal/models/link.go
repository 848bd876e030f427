package models

import "time"

// SavedLink is a URL shared by a user, stored without any content analysis
type SavedLink struct {
	ID      string    `json:"id"`
	URL     string    `json:"url"`
	Title   string    `json:"title,omitempty"`
	Summary string    `json:"summary,omitempty"`
	Tags    []string  `json:"tags,omitempty"`
	SavedAt time.Time `json:"saved_at"`
}
