package models

import "time"

type Team struct {
	ID          int       `json:"id"`
	Name        string    `json:"name"`
	Tag         *string   `json:"tag,omitempty"`
	Description *string   `json:"description,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// TeamCreate is the payload for POST /teams/.
type TeamCreate struct {
	Name        string  `json:"name"`
	Tag         *string `json:"tag,omitempty"`
	Description *string `json:"description,omitempty"`
}
