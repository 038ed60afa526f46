package models

import "time"

// Support is one citizen signature on a document. Exactly one of UserID or
// Email is set: authenticated supports carry the user id, anonymous supports
// carry the verified email plus a display name.
type Support struct {
	UserID      string    `json:"user_id,omitempty" db:"user_id"`
	Email       string    `json:"email,omitempty" db:"email"`
	DisplayName string    `json:"display_name,omitempty" db:"display_name"`
	Date        time.Time `json:"date" db:"date"`
}

// Document is the mutable envelope of a legislative project proposal. The
// content itself lives in the version chain; CurrentVersion always points at
// the newest version row for this document.
type Document struct {
	ID                string    `json:"id" db:"id"`
	Author            string    `json:"author" db:"author"`
	CustomForm        string    `json:"custom_form" db:"custom_form"` // form slug, fixed at creation
	CurrentVersion    string    `json:"current_version" db:"current_version"`
	Published         bool      `json:"published" db:"published"`
	PublishedMailSent bool      `json:"-" db:"published_mail_sent"` // one-shot, set at most once
	CommentsCount     int       `json:"comments_count" db:"comments_count"`
	Revision          int       `json:"revision" db:"revision"`
	Apoyos            []Support `json:"-" db:"-"` // never serialized: raw emails must not leave the server
	CreatedAt         time.Time `json:"created_at" db:"created_at"`
	UpdatedAt         time.Time `json:"updated_at" db:"updated_at"`
}

// HasSupportFromUser reports whether an authenticated support from userID is
// already on the list.
func (d *Document) HasSupportFromUser(userID string) bool {
	for _, s := range d.Apoyos {
		if s.UserID != "" && s.UserID == userID {
			return true
		}
	}
	return false
}

// HasSupportFromEmail reports whether an anonymous support with this email is
// already on the list.
func (d *Document) HasSupportFromEmail(email string) bool {
	for _, s := range d.Apoyos {
		if s.Email != "" && s.Email == email {
			return true
		}
	}
	return false
}
