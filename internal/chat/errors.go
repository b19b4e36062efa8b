package chat

// Error codes carried in websocket close reasons.
const (
	ErrCodeRoomNotFound    = "room_not_found"
	ErrCodeMissingIdentity = "missing_identity"
	ErrCodeAgentNotFound   = "agent_not_found"
	ErrCodeProtocol        = "protocol_error"
)

// Error is a session-terminating failure with a stable code. Every value
// is terminal to the one affected connection only; the bus and other
// sessions are never taken down by it.
type Error struct {
	Code    string
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

var (
	ErrRoomNotFound    = &Error{Code: ErrCodeRoomNotFound, Message: "room not found"}
	ErrMissingIdentity = &Error{Code: ErrCodeMissingIdentity, Message: "connection carries no identity"}
	ErrAgentNotFound   = &Error{Code: ErrCodeAgentNotFound, Message: "agent reference does not resolve"}
	ErrProtocol        = &Error{Code: ErrCodeProtocol, Message: "malformed inbound frame"}
)
