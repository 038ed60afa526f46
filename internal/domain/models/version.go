package models

import "time"

// Content is a custom-form constrained payload. It is stored as JSONB and
// validated against the document's form schema on every write.
type Content map[string]interface{}

// Merge returns a shallow merge of patch over c: patch keys overwrite,
// everything else is carried through. Neither input is mutated.
func (c Content) Merge(patch Content) Content {
	merged := make(Content, len(c)+len(patch))
	for k, v := range c {
		merged[k] = v
	}
	for k, v := range patch {
		merged[k] = v
	}
	return merged
}

// Title returns the content's title field, if present.
func (c Content) Title() string {
	s, _ := c["title"].(string)
	return s
}

// ClosingDate parses the content's closingDate field. Returns nil when the
// field is absent or not a parseable timestamp.
func (c Content) ClosingDate() *time.Time {
	raw, ok := c["closingDate"].(string)
	if !ok {
		return nil
	}
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02"} {
		if t, err := time.Parse(layout, raw); err == nil {
			return &t
		}
	}
	return nil
}

// Closed reports whether the content's closing date has passed as of now.
// Content without a closing date never closes.
func (c Content) Closed(now time.Time) bool {
	cd := c.ClosingDate()
	return cd != nil && now.After(*cd)
}

// Tags returns the document-tag ids referenced by this content. Tag
// references are weak: they are plain id strings inside the payload.
func (c Content) Tags() []string {
	raw, ok := c["tags"].([]interface{})
	if !ok {
		return nil
	}
	tags := make([]string, 0, len(raw))
	for _, v := range raw {
		if s, ok := v.(string); ok {
			tags = append(tags, s)
		}
	}
	return tags
}

// SetTags replaces the content's tag list in place.
func (c Content) SetTags(tags []string) {
	raw := make([]interface{}, len(tags))
	for i, t := range tags {
		raw[i] = t
	}
	c["tags"] = raw
}

// Version is one snapshot in a document's immutable chain. Version numbers
// form a gapless 1..N sequence per document; only the version currently
// pointed at by the document may be amended in place, every older version is
// historical record.
type Version struct {
	ID            string    `json:"id" db:"id"`
	Document      string    `json:"document" db:"document"`
	Version       int       `json:"version" db:"version"`
	Content       Content   `json:"content" db:"content"`
	Contributions []string  `json:"contributions" db:"contributions"` // comment ids merged into this version
	CreatedAt     time.Time `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time `json:"updated_at" db:"updated_at"`
}
