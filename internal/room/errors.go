package room

import "errors"

var (
	// ErrRoomFull is returned by Admit when the room already holds two peers.
	ErrRoomFull = errors.New("room is full")

	// ErrNoSender is returned by Admit when a receiver arrives at a room
	// nobody has opened yet.
	ErrNoSender = errors.New("no sender in room")

	// ErrRegistryClosed is returned once the registry is shutting down.
	ErrRegistryClosed = errors.New("room registry closed")
)
