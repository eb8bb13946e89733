package models

import (
	"time"
)

// BaseModel provides the identity and timestamp fields shared by stored records.
type BaseModel struct {
	ID        string    `json:"_id"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}
