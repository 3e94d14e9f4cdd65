// Package model defines the data structures used throughout the application.
package model

import "time"

// DefaultTheme is the UI theme a user gets until they pick another one.
const DefaultTheme = "light"

// User represents a portfolio owner.
//
// Most users arrive through GitHub OAuth, but a user can also be created
// directly through the users API. That is why every GitHub-derived field is a
// pointer: a nil value means "never linked" and serialises as JSON null.
//
// WHY Email *string?
// GitHub only returns a public email when the account exposes one. Storing NULL
// (not "") keeps the UNIQUE constraint on email meaningful: SQLite treats every
// NULL as distinct, so any number of email-less accounts can coexist.
//
// WHY GitHubID string?
// GitHub's numeric ID is stored as text so the column can carry identities from
// other providers later without a schema change. It is UNIQUE when present.
type User struct {
	ID              string    `json:"id"`
	Name            string    `json:"name"`
	Email           *string   `json:"email"`
	GitHubID        *string   `json:"github_id"`
	GitHubUsername  *string   `json:"github_username"`
	Bio             *string   `json:"bio"`
	ProfileImage    *string   `json:"profile_image"`
	ThemePreference string    `json:"theme_preference"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// Profile is a user together with everything they own, loaded in one read.
// It is the body returned by /auth/me.
//
// Projects and Blogs are never nil for an existing user so the JSON output is
// always an array, even when the user has not published anything yet.
type Profile struct {
	User
	Projects []Project `json:"projects"`
	Blogs    []Blog    `json:"blogs"`
}

// ExternalProfile is the subset of an identity provider's profile that we
// copy onto the local User on every login.
type ExternalProfile struct {
	ExternalID string  // provider's stable account ID, e.g. "583231"
	Login      string  // provider username, e.g. "octocat"
	Name       *string // display name, nil when the user never set one
	Email      *string // nil when the provider withholds it
	AvatarURL  *string
}

// DisplayName returns the provider display name, falling back to the login
// when the account has no display name.
func (p ExternalProfile) DisplayName() string {
	if p.Name != nil && *p.Name != "" {
		return *p.Name
	}
	return p.Login
}

// StringPtr returns a pointer to s. Handy for optional fields in literals.
func StringPtr(s string) *string {
	return &s
}
