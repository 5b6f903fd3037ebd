package domain

import "time"

// Project is the record a generation job works on. Only the fields the
// pipeline reads or writes are modeled here.
type Project struct {
	ID            string        `json:"id"`
	UserID        string        `json:"user_id"`
	Name          string        `json:"name"`
	Description   string        `json:"description,omitempty"`
	Technologies  []string      `json:"technologies,omitempty"`
	Status        ProjectStatus `json:"status"`
	StatusReason  string        `json:"status_reason,omitempty"`
	Progress      int           `json:"progress"`
	RepositoryURL string        `json:"repository_url,omitempty"`
	CreatedAt     time.Time     `json:"created_at"`
	UpdatedAt     time.Time     `json:"updated_at"`
}
