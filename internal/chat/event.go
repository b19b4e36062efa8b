package chat

import (
	"encoding/json"
	"fmt"

	"github.com/deskchat/deskchat/internal/proto"
)

// EventKind identifies an outbound event variant.
type EventKind int

const (
	// EventChatMessage carries a persisted chat message to room members.
	EventChatMessage EventKind = iota
	// EventWritingActive is the fire-and-forget typing indicator.
	EventWritingActive
	// EventUsersUpdate announces a presence change by a staff member.
	EventUsersUpdate
)

// Event is the tagged union of everything the session broadcasts. Which
// fields are meaningful depends on Kind; Encode selects the wire shape.
type Event struct {
	Kind      EventKind
	Name      string
	Message   string
	Agent     string
	Initials  string
	CreatedAt string // relative elapsed time, already formatted
}

// Encode renders the event as the wire frame for its variant.
func (e Event) Encode() ([]byte, error) {
	switch e.Kind {
	case EventChatMessage:
		return json.Marshal(proto.ChatMessage{
			Type:      proto.OutboundTypeChatMessage,
			Name:      e.Name,
			Message:   e.Message,
			Agent:     e.Agent,
			Initials:  e.Initials,
			CreatedAt: e.CreatedAt,
		})
	case EventWritingActive:
		return json.Marshal(proto.WritingActive{
			Type:     proto.OutboundTypeWritingActive,
			Message:  e.Message,
			Name:     e.Name,
			Agent:    e.Agent,
			Initials: e.Initials,
		})
	case EventUsersUpdate:
		return json.Marshal(proto.UsersUpdate{
			Type: proto.OutboundTypeUsersUpdate,
		})
	default:
		return nil, fmt.Errorf("unknown event kind %d", e.Kind)
	}
}
