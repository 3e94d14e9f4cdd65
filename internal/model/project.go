package model

import "time"

// Project is a portfolio entry owned by exactly one user.
//
// TechStack keeps the order the user entered it in ("Go", "Postgres", ...).
// Summary is usually produced by the AI endpoint but may be written by hand
// or left empty; nothing ties the two together.
type Project struct {
	ID          string    `json:"id"`
	UserID      string    `json:"user_id"`
	Title       string    `json:"title"`
	Description *string   `json:"description"`
	TechStack   []string  `json:"tech_stack"`
	GitHubLink  *string   `json:"github_link"`
	DemoLink    *string   `json:"demo_link"`
	Summary     *string   `json:"summary"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}
