package models

import (
	"encoding/json"
	"time"
)

// FieldArticles is the privileged content field: comments on it are
// contribution-eligible and may be merged into a new document version.
const FieldArticles = "articles"

// Comment is a citizen comment on one field of a document version. Comments
// on the articles field are candidate contributions; a comment becomes a
// contribution when its id appears in some version's contribution list.
type Comment struct {
	ID        string          `json:"id" db:"id"`
	Document  string          `json:"document" db:"document"`
	Version   string          `json:"version" db:"version"`
	User      string          `json:"user" db:"user_id"`
	Field     string          `json:"field" db:"field"`
	Content   string          `json:"content" db:"content"`
	Decoration json.RawMessage `json:"decoration,omitempty" db:"decoration"` // inline position marker, nil for field-level comments
	Resolved  bool            `json:"resolved" db:"resolved"`
	Reply     string          `json:"reply,omitempty" db:"reply"`
	CreatedAt time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt time.Time       `json:"updated_at" db:"updated_at"`
}

// IsContributionField reports whether the comment targets the privileged
// articles field.
func (c *Comment) IsContributionField() bool {
	return c.Field == FieldArticles
}

// Like is a (user, comment) pair, unique per pair, created and removed by
// toggle.
type Like struct {
	ID        string    `json:"id" db:"id"`
	User      string    `json:"user" db:"user_id"`
	Comment   string    `json:"comment" db:"comment"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}
