package room

import (
	"time"

	"piratwhist-service/internal/game"
)

// Command payloads. Every ws command has an explicit shape; nothing is
// decoded into loose maps.

type CreateRoomRequest struct {
	ClientID string `json:"clientId"`
	Name     string `json:"name"`
	Players  int    `json:"players"`
	Bots     int    `json:"bots"`
}

type JoinRoomRequest struct {
	Room     string `json:"room"`
	ClientID string `json:"clientId"`
	Name     string `json:"name"`
}

type LeaveRoomRequest struct {
	Room     string `json:"room"`
	ClientID string `json:"clientId"`
}

type UpdateLobbyRequest struct {
	Room    string `json:"room"`
	Players int    `json:"players"`
	Bots    int    `json:"bots"`
	Name    string `json:"name"`
}

type StartGameRequest struct {
	Room string `json:"room"`
}

type SetBidRequest struct {
	Room string `json:"room"`
	Bid  int    `json:"bid"`
}

type PlayCardRequest struct {
	Room string `json:"room"`
	Card string `json:"card"` // wire form, e.g. "10♠"
}

type NextRequest struct {
	Room string `json:"room"`
}

// StatePayload carries a per-seat redacted snapshot. Seat is nil for
// spectator pushes.
type StatePayload struct {
	Room  string        `json:"room"`
	Seat  *int          `json:"seat"`
	State game.Snapshot `json:"state"`
}

// Info is the admin-facing summary of a live room.
type Info struct {
	Code       string     `json:"code"`
	Players    int        `json:"players"`
	Humans     int        `json:"humans"`
	Bots       int        `json:"bots"`
	Phase      game.Phase `json:"phase"`
	RoundIndex int        `json:"roundIndex"`
	CreatedAt  time.Time  `json:"createdAt"`
}

// FinishedGame is handed to the persistence hook when a room reaches
// game_finished.
type FinishedGame struct {
	RoomCode   string
	Names      []string
	BotSeats   []int
	Points     []int
	WinnerSeat int
	History    []game.RoundResult
	StartedAt  time.Time
	EndedAt    time.Time
}
