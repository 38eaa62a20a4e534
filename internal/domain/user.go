package domain

import "time"

type User struct {
	ID                       string    `json:"id"`
	Email                    string    `json:"email,omitempty"`
	Username                 string    `json:"username"`
	PhotoURL                 *string   `json:"photo_url,omitempty"`
	PushToken                *string   `json:"-"`
	PasswordHash             string    `json:"-"`
	HasCompletedProfileSetup bool      `json:"has_completed_profile_setup"`
	BlockedUsers             []string  `json:"blocked_users,omitempty"`
	CreatedAt                time.Time `json:"created_at"`
	UpdatedAt                time.Time `json:"updated_at"`
}

// Profile is the public view of a user shown next to conversations and listings.
type Profile struct {
	ID       string  `json:"id"`
	Username string  `json:"username"`
	PhotoURL *string `json:"photo_url,omitempty"`
}

func (u *User) Profile() Profile {
	return Profile{ID: u.ID, Username: u.Username, PhotoURL: u.PhotoURL}
}

// HasBlocked reports whether otherID is on this user's block list.
func (u *User) HasBlocked(otherID string) bool {
	for _, id := range u.BlockedUsers {
		if id == otherID {
			return true
		}
	}
	return false
}
