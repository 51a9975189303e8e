package room

import (
	"encoding/json"

	"github.com/gorilla/websocket"
)

// MaxPeers is the number of sessions a room can hold.
const MaxPeers = 2

// MaxMessageLength is the longest relayed payload, in UTF-16 code units.
const MaxMessageLength = 65536

// Close codes sent to clients. Browsers depend on the exact values.
const (
	CloseNormal            = websocket.CloseNormalClosure
	CloseGoingAway         = websocket.CloseGoingAway
	CloseMessageTooBig     = websocket.CloseMessageTooBig
	CloseInternalError     = websocket.CloseInternalServerErr
	CloseInvalidRoom       = 4001
	CloseVerificationError = 4002
)

const (
	disconnectMessage = "disconnect"
	autoPing          = "ping"
	autoPong          = "pong"
)

// Role is the part a client claims when it connects.
type Role string

const (
	RoleNone     Role = ""
	RoleSender   Role = "sender"
	RoleReceiver Role = "receiver"
)

// ParseRole maps the role query parameter to a Role; unknown values carry no
// role.
func ParseRole(s string) Role {
	switch Role(s) {
	case RoleSender, RoleReceiver:
		return Role(s)
	default:
		return RoleNone
	}
}

// Policy decides who may open a room.
type Policy int

const (
	// SenderFirst turns away receivers that arrive before any sender.
	SenderFirst Policy = iota
	// AnyOrder admits either role as first or second peer.
	AnyOrder
)

// Attachment is the per-connection state that outlives an actor. A rebuilt
// actor recovers its sessions from these alone.
type Attachment struct {
	SessionID string `json:"id"`
}

// Conn is an accepted connection as seen by a room actor. Implementations
// must be safe for concurrent use.
type Conn interface {
	Send(text string) error
	Close(code int, reason string) error
	Attachment() Attachment
	SetAttachment(Attachment)
}

// Session is one admitted connection.
type Session struct {
	ID   string
	Conn Conn
}

// Status is the answer to a room status probe.
type Status struct {
	Exists    bool `json:"exists"`
	PeerCount int  `json:"peerCount"`
}

// Notice is a server-originated message on the signaling stream.
type Notice struct {
	Type    string `json:"type"`
	Code    string `json:"code,omitempty"`
	Message string `json:"message,omitempty"`
}

func (n Notice) String() string {
	b, _ := json.Marshal(n)
	return string(b)
}

var peerDisconnected = Notice{Type: "peer-disconnected"}.String()
