package models

import "time"

// Participation представляет заявку команды на турнир.
type Participation struct {
	ID            int       `json:"id"`
	TournamentID  int       `json:"tournament_id"`
	TeamID        int       `json:"team_id"`
	RegisteredAt  time.Time `json:"registered_at"`
	FinalPosition *int      `json:"final_position,omitempty"`
}

// ParticipationCreate is the payload for POST /participations/.
type ParticipationCreate struct {
	TournamentID int `json:"tournament_id"`
	TeamID       int `json:"team_id"`
}
