package domain

type RoomID string

// Room is the room the local participant currently sits in.
type Room struct {
	ID      RoomID
	Members RosterSnapshot
}
