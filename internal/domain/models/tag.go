package models

// DocumentTag is a canonical categorical tag. Versions and user subscription
// preferences reference tags by id-as-string, a weak reference: deleting a
// tag must cascade-clean every referencing version and user first.
type DocumentTag struct {
	ID   string `json:"id" db:"id"`
	Name string `json:"name" db:"name"`
	Key  string `json:"key" db:"key"` // slug derived from Name, unique
}
