package server

// Status is the externally visible state of the game server. Packets are
// routed and connections accepted only while it is Open.
type Status int32

const (
	StatusClosed Status = iota
	StatusOpen
)

func (s Status) String() string {
	if s == StatusOpen {
		return "open"
	}
	return "closed"
}
