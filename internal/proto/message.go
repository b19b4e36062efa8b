package proto

import (
	"encoding/json"
	"errors"
)

// ErrMissingField marks an inbound frame that decoded as JSON but lacks a
// required key.
var ErrMissingField = errors.New("missing required field")

// Inbound frame types accepted from clients.
const (
	FrameTypeMessage = "message"
	FrameTypeUpdate  = "update"
)

// Outbound frame types sent to clients.
const (
	OutboundTypeChatMessage   = "chat_message"
	OutboundTypeWritingActive = "writing_active"
	OutboundTypeUsersUpdate   = "users_update"
)

// Frame is the envelope for messages coming from the client.
// Agent is optional; empty string means no authenticated author.
type Frame struct {
	Type    string
	Name    string
	Message string
	Agent   string
}

// UnmarshalJSON enforces presence of the required keys so the session can
// tell a malformed frame apart from one carrying empty strings.
func (f *Frame) UnmarshalJSON(data []byte) error {
	var raw struct {
		Type    *string `json:"type"`
		Name    *string `json:"name"`
		Message *string `json:"message"`
		Agent   string  `json:"agent"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	switch {
	case raw.Type == nil:
		return errors.Join(ErrMissingField, errors.New("type"))
	case raw.Name == nil:
		return errors.Join(ErrMissingField, errors.New("name"))
	case raw.Message == nil:
		return errors.Join(ErrMissingField, errors.New("message"))
	}

	f.Type = *raw.Type
	f.Name = *raw.Name
	f.Message = *raw.Message
	f.Agent = raw.Agent
	return nil
}

// ChatMessage is broadcast after a message has been persisted. CreatedAt
// carries the human-relative elapsed time computed at publish time.
type ChatMessage struct {
	Type      string `json:"type"`
	Name      string `json:"name"`
	Message   string `json:"message"`
	Agent     string `json:"agent"`
	Initials  string `json:"initials"`
	CreatedAt string `json:"created_at"`
}

// WritingActive is the transient typing indicator. Never persisted.
type WritingActive struct {
	Type     string `json:"type"`
	Message  string `json:"message"`
	Name     string `json:"name"`
	Agent    string `json:"agent"`
	Initials string `json:"initials"`
}

// UsersUpdate announces that room presence changed; clients re-query the
// presence endpoint for the actual member list.
type UsersUpdate struct {
	Type string `json:"type"`
}
