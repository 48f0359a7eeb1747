package session

import (
	"github.com/gorilla/websocket"
)

// State is the connection lifecycle position of a session. There is
// exactly one per session and Closed is terminal; re-entering a room
// means building a fresh session, not a state transition.
type State int

const (
	StateConnecting State = iota
	StateConnected
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Reason qualifies a Closed state.
type Reason int

const (
	ReasonNone Reason = iota
	ReasonClean
	ReasonUnknown
	ReasonRoomNotFound
	ReasonAdminLimit
)

// Server-assigned close codes for terminal room conditions.
const (
	closeCodeRoomNotFound = 4001
	closeCodeAdminLimit   = 4002
)

// CloseReason maps a websocket close code to a terminal reason.
func CloseReason(code int) Reason {
	switch code {
	case closeCodeAdminLimit:
		return ReasonAdminLimit
	case closeCodeRoomNotFound:
		return ReasonRoomNotFound
	case websocket.CloseNormalClosure, websocket.CloseGoingAway:
		return ReasonClean
	default:
		return ReasonUnknown
	}
}

// Message returns the user-visible text for a closed session. Clean
// closes surface nothing.
func (r Reason) Message() string {
	switch r {
	case ReasonAdminLimit:
		return "Too many admins"
	case ReasonRoomNotFound:
		return "Room not found"
	case ReasonUnknown:
		return "Connection lost"
	default:
		return ""
	}
}

func (r Reason) String() string {
	switch r {
	case ReasonClean:
		return "clean"
	case ReasonUnknown:
		return "unknown"
	case ReasonRoomNotFound:
		return "room-not-found"
	case ReasonAdminLimit:
		return "admin-limit-exceeded"
	default:
		return "none"
	}
}

// Status is the viewer-facing snapshot of the session: the lifecycle
// state, the mapped close reason, and which affordances are live.
type Status struct {
	State    State  `json:"-"`
	StateTxt string `json:"state"`
	Reason   string `json:"reason,omitempty"`
	Message  string `json:"message,omitempty"`
	RoomID   string `json:"roomId"`
	Role     string `json:"role"`
	Username string `json:"username"`
	CanDraw  bool   `json:"canDraw"`
	CanChat  bool   `json:"canChat"`
	CanStart bool   `json:"canStart"`
}
