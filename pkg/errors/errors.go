package errors

import "errors"

// Room / engine errors. These are recoverable by design: they reject the
// offending command and leave room state untouched.
var (
	ErrRoomNotFound    = errors.New("room not found")
	ErrRoomFull        = errors.New("room is full")
	ErrSeatUnavailable = errors.New("seat unavailable")
	ErrNotInRoom       = errors.New("connection is not seated in this room")
	ErrNotHost         = errors.New("only the host may do this")
	ErrPhaseMismatch   = errors.New("command not valid in current phase")
	ErrNotYourTurn     = errors.New("not your turn")
	ErrIllegalMove     = errors.New("illegal move")
	ErrInvalidBid      = errors.New("invalid bid")
	ErrLobbyOccupied   = errors.New("cannot reshape lobby while others are seated")
	ErrLobbyConfig     = errors.New("invalid lobby configuration")
)

// Scoresheet errors.
var (
	ErrSheetNotFound = errors.New("scoresheet not found")
	ErrBadCell       = errors.New("invalid scoresheet cell")
)

// Feedback / telemetry errors.
var (
	ErrEmptyFeedback      = errors.New("feedback message is empty")
	ErrUnknownEventKind   = errors.New("unknown telemetry event kind")
	ErrFeedbackNotFound   = errors.New("feedback entry not found")
	ErrGameRecordNotFound = errors.New("game record not found")
)

// Admin errors.
var (
	ErrAdminNotFound        = errors.New("admin not found")
	ErrAdminDisabled        = errors.New("admin account disabled")
	ErrInvalidAdminPassword = errors.New("invalid admin credentials")
	ErrUnauthorized         = errors.New("unauthorized")
)

// Code maps an error to the stable wire code sent to clients in error
// events. Unknown errors map to INTERNAL so callers never leak internals.
func Code(err error) string {
	switch {
	case errors.Is(err, ErrRoomNotFound):
		return "ROOM_NOT_FOUND"
	case errors.Is(err, ErrRoomFull):
		return "ROOM_FULL"
	case errors.Is(err, ErrSeatUnavailable):
		return "SEAT_UNAVAILABLE"
	case errors.Is(err, ErrNotInRoom):
		return "NOT_IN_ROOM"
	case errors.Is(err, ErrNotHost):
		return "NOT_HOST"
	case errors.Is(err, ErrPhaseMismatch):
		return "PHASE_MISMATCH"
	case errors.Is(err, ErrNotYourTurn):
		return "NOT_YOUR_TURN"
	case errors.Is(err, ErrIllegalMove):
		return "ILLEGAL_MOVE"
	case errors.Is(err, ErrInvalidBid):
		return "BAD_BID"
	case errors.Is(err, ErrLobbyOccupied), errors.Is(err, ErrLobbyConfig):
		return "BAD_LOBBY_CONFIG"
	case errors.Is(err, ErrSheetNotFound):
		return "SHEET_NOT_FOUND"
	case errors.Is(err, ErrBadCell):
		return "BAD_CELL"
	default:
		return "INTERNAL"
	}
}
