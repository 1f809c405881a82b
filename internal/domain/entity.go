package domain

import "time"

// Entity provides the identity and timestamp fields shared by persisted records.
// It gets embedded in every domain type that has its own table row.
type Entity struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Touch updates the UpdatedAt timestamp to the given time.
func (e *Entity) Touch(now time.Time) {
	e.UpdatedAt = now
}

// InitTimestamps sets both CreatedAt and UpdatedAt.
// Call this when creating a new entity.
func (e *Entity) InitTimestamps(now time.Time) {
	e.CreatedAt = now
	e.UpdatedAt = now
}
