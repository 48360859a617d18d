package userdomain

import "time"

// Role is the platform role carried on a user document.
type Role string

const (
	RoleUser      Role = "user"
	RoleModerator Role = "moderator"
	RoleAdmin     Role = "admin"
)

// User is a document of the users collection.
type User struct {
	ID               string    `json:"-"`
	DisplayName      string    `json:"displayName"`
	Email            string    `json:"email"`
	Username         string    `json:"username,omitempty"`
	Role             Role      `json:"role,omitempty"`
	TotalPoints      int64     `json:"totalPoints"`
	ChallengesSolved int64     `json:"challengesSolved"`
	LastActive       time.Time `json:"lastActive,omitzero"`
	LastSubmissionAt time.Time `json:"lastSubmissionAt,omitzero"`
}

// NormalizedUsername is the key this user should be indexed under, or "" when
// the user has no usable username.
func (u User) NormalizedUsername() string {
	return NormalizeUsername(u.Username)
}

// UsernameEntry is a document of the usernames collection, keyed by the
// normalized username.
type UsernameEntry struct {
	Key         string    `json:"-"`
	UserID      string    `json:"userId"`
	Username    string    `json:"username"`
	DisplayName string    `json:"displayName"`
	CreatedAt   time.Time `json:"createdAt,omitzero"`
}
