package users

import "time"

// User is an operator account. PasswordHash is nil for GitHub-only accounts.
type User struct {
	ID           string
	Email        string
	Name         string
	PasswordHash *string
	GitHubLogin  *string
	AvatarURL    string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// GitHubProfile is the identity returned by a GitHub login.
type GitHubProfile struct {
	Login     string
	Name      string
	Email     string
	AvatarURL string
}
