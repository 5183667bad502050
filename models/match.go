package models

import "time"

// MatchStatus представляет статусы матча, управляемые сервером.
type MatchStatus string

const (
	MatchScheduled MatchStatus = "scheduled"
	MatchOngoing   MatchStatus = "ongoing"
	MatchCompleted MatchStatus = "completed"
)

// Match представляет матч между двумя командами в рамках турнира.
type Match struct {
	ID           int         `json:"id"`
	TournamentID int         `json:"tournament_id"`
	Round        int         `json:"round"`
	Team1ID      int         `json:"team1_id"`
	Team2ID      int         `json:"team2_id"`
	Score1       int         `json:"score1"`
	Score2       int         `json:"score2"`
	WinnerID     *int        `json:"winner_id,omitempty"`
	MatchDate    *time.Time  `json:"match_date,omitempty"`
	Status       MatchStatus `json:"status"`
}

// MatchCreate is the payload for POST /matches/.
// Winner and status are derived server-side.
type MatchCreate struct {
	TournamentID int        `json:"tournament_id"`
	Round        int        `json:"round"`
	Team1ID      int        `json:"team1_id"`
	Team2ID      int        `json:"team2_id"`
	Score1       int        `json:"score1"`
	Score2       int        `json:"score2"`
	MatchDate    *time.Time `json:"match_date,omitempty"`
}
