package models

import (
	"github.com/uptrace/bun"
)

// RoomDeadline is the moment a room expires, in Unix milliseconds.
type RoomDeadline struct {
	bun.BaseModel `bun:"table:room_deadlines"`

	Room      string `bun:",pk"`
	ExpiresAt int64  `bun:",notnull"`
}
