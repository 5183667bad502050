package models

import "time"

// TournamentStatus представляет статусы турнира, управляемые сервером.
type TournamentStatus string

const (
	TournamentUpcoming  TournamentStatus = "upcoming"
	TournamentOngoing   TournamentStatus = "ongoing"
	TournamentCompleted TournamentStatus = "completed"
)

// Tournament представляет турнир.
type Tournament struct {
	ID          int              `json:"id"`
	Name        string           `json:"name"`
	Game        string           `json:"game"`
	Description *string          `json:"description,omitempty"`
	MaxTeams    int              `json:"max_teams"`
	PrizePool   int              `json:"prize_pool"`
	StartDate   *time.Time       `json:"start_date,omitempty"`
	EndDate     *time.Time       `json:"end_date,omitempty"`
	Status      TournamentStatus `json:"status"`
	OrganizerID int              `json:"organizer_id"`
	CreatedAt   time.Time        `json:"created_at"`
}

// TournamentCreate is the payload for POST /tournaments/.
// ID, status, organizer and creation time are assigned by the server.
type TournamentCreate struct {
	Name        string     `json:"name"`
	Game        string     `json:"game"`
	Description *string    `json:"description,omitempty"`
	MaxTeams    int        `json:"max_teams"`
	PrizePool   int        `json:"prize_pool"`
	StartDate   *time.Time `json:"start_date,omitempty"`
	EndDate     *time.Time `json:"end_date,omitempty"`
}

// TournamentUpdate is the partial payload for PUT /tournaments/{id}.
// Nil fields are omitted and left unchanged by the server.
type TournamentUpdate struct {
	Name        *string    `json:"name,omitempty"`
	Game        *string    `json:"game,omitempty"`
	Description *string    `json:"description,omitempty"`
	MaxTeams    *int       `json:"max_teams,omitempty"`
	PrizePool   *int       `json:"prize_pool,omitempty"`
	StartDate   *time.Time `json:"start_date,omitempty"`
	EndDate     *time.Time `json:"end_date,omitempty"`
}
