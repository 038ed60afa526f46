package models

import "time"

// User is a platform account. Identity and roles come from the external
// identity provider; this row holds the profile the platform itself owns.
// Fields is a custom-form constrained profile payload (it carries, among
// other things, the user's tag subscription list).
type User struct {
	ID        string    `json:"id" db:"id"`
	Fullname  string    `json:"fullname" db:"fullname"`
	Email     string    `json:"email,omitempty" db:"email"`
	Avatar    string    `json:"avatar,omitempty" db:"avatar"`
	Fields    Content   `json:"fields" db:"fields"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// SubscribedTags returns the tag ids the user is subscribed to.
func (u *User) SubscribedTags() []string {
	if u.Fields == nil {
		return nil
	}
	return u.Fields.Tags()
}

// Expose returns a copy safe for non-owner consumers: email, username and
// avatar are stripped.
func (u User) Expose() User {
	u.Email = ""
	u.Avatar = ""
	return u
}
