package room

// RoomState 房间阶段，只会向前推进
type RoomState int

const (
	RoomStateLobby RoomState = iota
	RoomStatePlaying
	RoomStatePresenting
	RoomStateEnd
)

func (s RoomState) String() string {
	switch s {
	case RoomStateLobby:
		return "LOBBY"
	case RoomStatePlaying:
		return "PLAYING"
	case RoomStatePresenting:
		return "PRESENTING"
	case RoomStateEnd:
		return "END"
	default:
		return "UNKNOWN"
	}
}
