package models

import "time"

// Resource is a staff member shown as a column in the schedule grid.
type Resource struct {
	ID          int64     `db:"id" json:"id"`
	DisplayName string    `db:"display_name" json:"display_name"`
	Email       *string   `db:"email" json:"email,omitempty"`
	Phone       *string   `db:"phone" json:"phone,omitempty"`
	Color       *string   `db:"color" json:"color,omitempty"`
	Active      bool      `db:"active" json:"active"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}

// ResourceFilter narrows resource listings.
type ResourceFilter struct {
	IncludeInactive bool
	IDs             []int64
}

// ResourceInput carries the writable fields of a resource.
type ResourceInput struct {
	DisplayName string  `json:"display_name" validate:"required,max=120"`
	Email       *string `json:"email,omitempty" validate:"omitempty,email"`
	Phone       *string `json:"phone,omitempty" validate:"omitempty,max=40"`
	Color       *string `json:"color,omitempty" validate:"omitempty,hexcolor"`
	Active      *bool   `json:"active,omitempty"`
}
