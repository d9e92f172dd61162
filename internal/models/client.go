package models

import "time"

// Client is a customer that appointments are booked for.
type Client struct {
	ID        int64     `db:"id" json:"id"`
	FullName  string    `db:"full_name" json:"full_name"`
	Email     *string   `db:"email" json:"email,omitempty"`
	Phone     *string   `db:"phone" json:"phone,omitempty"`
	Notes     *string   `db:"notes" json:"notes,omitempty"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// ClientFilter describes query params for listing clients.
type ClientFilter struct {
	Search    string
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}

// ClientInput carries the writable fields of a client.
type ClientInput struct {
	FullName string  `json:"full_name" validate:"required,max=160"`
	Email    *string `json:"email,omitempty" validate:"omitempty,email"`
	Phone    *string `json:"phone,omitempty" validate:"omitempty,max=40"`
	Notes    *string `json:"notes,omitempty" validate:"omitempty,max=2000"`
}
