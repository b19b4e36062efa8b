package chat

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/deskchat/deskchat/internal/auth"
	"github.com/deskchat/deskchat/internal/bus"
	"github.com/deskchat/deskchat/internal/presence"
	"github.com/deskchat/deskchat/internal/proto"
	"github.com/deskchat/deskchat/internal/store"
)

// TopicFor derives the broadcast topic of a room token.
func TopicFor(roomToken string) string {
	return "chat_" + roomToken
}

// Store is the slice of persistence the session needs.
type Store interface {
	store.RoomStore
	store.MessageStore
	store.UserStore
}

// Deps bundles the collaborators a session talks to.
type Deps struct {
	Store    Store
	Bus      bus.Bus
	Presence presence.Registry
	Logger   *zerolog.Logger

	// Now is the clock used for elapsed-time strings. Defaults to time.Now.
	Now func() time.Time
}

// Session is the server-side state of one client connection. It lives
// through three states: created by Join (room resolved, handle subscribed),
// active while HandleFrame is fed inbound frames, and dead after Close.
// All methods are driven by the single goroutine owning the connection;
// only Close is safe to invoke more than once.
type Session struct {
	deps     Deps
	identity auth.Identity
	room     *store.Room
	topic    string
	sub      *bus.Subscriber
	log      zerolog.Logger
	now      func() time.Time

	closeOnce sync.Once
}

// Join resolves the room, validates the identity, and registers the
// delivery handle on the bus. It fails with ErrRoomNotFound or
// ErrMissingIdentity before any state is registered, so a caller can
// still refuse the transport handshake.
func Join(ctx context.Context, deps Deps, identity auth.Identity, roomToken string, deliver func(payload []byte)) (*Session, error) {
	if identity.Username == "" {
		return nil, ErrMissingIdentity
	}

	room, err := deps.Store.GetRoomByToken(ctx, roomToken)
	if err != nil {
		if errors.Is(err, store.ErrRoomNotFound) {
			return nil, ErrRoomNotFound
		}
		return nil, fmt.Errorf("resolve room %q: %w", roomToken, err)
	}

	now := deps.Now
	if now == nil {
		now = time.Now
	}

	s := &Session{
		deps:     deps,
		identity: identity,
		room:     room,
		topic:    TopicFor(roomToken),
		sub: &bus.Subscriber{
			ID:      uuid.NewString(),
			Deliver: deliver,
		},
		log: deps.Logger.With().
			Str("room", roomToken).
			Str("user", identity.Username).
			Logger(),
		now: now,
	}

	if err := deps.Bus.Subscribe(ctx, s.topic, s.sub); err != nil {
		return nil, fmt.Errorf("subscribe %s: %w", s.topic, err)
	}

	return s, nil
}

// Announce records the participant in the presence registry and, for staff
// identities, broadcasts a users_update so current members refresh their
// member lists. Call once, after the transport handshake is accepted.
func (s *Session) Announce(ctx context.Context) error {
	if err := s.deps.Presence.Join(ctx, s.room.Token, s.identity.Username); err != nil {
		s.log.Warn().Err(err).Msg("presence join failed")
	}

	if !s.identity.IsStaff {
		return nil
	}
	return s.publish(ctx, Event{Kind: EventUsersUpdate})
}

// Room returns the room this session resolved at join time.
func (s *Session) Room() *store.Room {
	return s.room
}

// HandleFrame processes one inbound frame. A nil return means the session
// stays JOINED; a non-nil return is terminal for this connection.
func (s *Session) HandleFrame(ctx context.Context, data []byte) error {
	var frame proto.Frame
	if err := json.Unmarshal(data, &frame); err != nil {
		s.log.Warn().Err(err).Msg("malformed inbound frame")
		return ErrProtocol
	}

	switch frame.Type {
	case proto.FrameTypeMessage:
		return s.handleMessage(ctx, frame)
	case proto.FrameTypeUpdate:
		return s.handleUpdate(ctx, frame)
	default:
		// Unknown frame types are ignored rather than rejected.
		s.log.Debug().Str("type", frame.Type).Msg("ignoring unknown frame type")
		return nil
	}
}

// handleMessage persists the message, then broadcasts it with the
// server-assigned timestamp rendered relative to now. Persistence must
// settle before the broadcast so the echo carries the canonical timestamp.
func (s *Session) handleMessage(ctx context.Context, frame proto.Frame) error {
	createdBy, err := s.resolveAgent(ctx, frame.Agent)
	if err != nil {
		return err
	}

	msg, err := s.deps.Store.CreateMessage(ctx, s.room.ID, frame.Message, frame.Name, createdBy)
	if err != nil {
		return fmt.Errorf("persist message: %w", err)
	}

	return s.publish(ctx, Event{
		Kind:      EventChatMessage,
		Name:      frame.Name,
		Message:   frame.Message,
		Agent:     frame.Agent,
		Initials:  Initials(frame.Name),
		CreatedAt: TimeSince(msg.CreatedAt, s.now()),
	})
}

// handleUpdate broadcasts the typing indicator. Fire-and-forget, no store.
func (s *Session) handleUpdate(ctx context.Context, frame proto.Frame) error {
	return s.publish(ctx, Event{
		Kind:     EventWritingActive,
		Name:     frame.Name,
		Message:  frame.Message,
		Agent:    frame.Agent,
		Initials: Initials(frame.Name),
	})
}

// resolveAgent maps the optional agent reference to a stored user ID.
func (s *Session) resolveAgent(ctx context.Context, agent string) (*int64, error) {
	if agent == "" {
		return nil, nil
	}

	id, err := strconv.ParseInt(agent, 10, 64)
	if err != nil {
		return nil, ErrAgentNotFound
	}

	user, err := s.deps.Store.GetUserByID(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrUserNotFound) {
			return nil, ErrAgentNotFound
		}
		return nil, fmt.Errorf("resolve agent %q: %w", agent, err)
	}

	return &user.ID, nil
}

func (s *Session) publish(ctx context.Context, ev Event) error {
	payload, err := ev.Encode()
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}
	if err := s.deps.Bus.Publish(ctx, s.topic, payload); err != nil {
		return fmt.Errorf("publish to %s: %w", s.topic, err)
	}
	return nil
}

// Close tears the session down: the handle leaves the bus and the presence
// set, and a departing non-staff participant closes the room for good.
// Safe to call more than once; only the first call acts.
func (s *Session) Close(ctx context.Context) {
	s.closeOnce.Do(func() {
		if err := s.deps.Bus.Unsubscribe(ctx, s.topic, s.sub.ID); err != nil {
			s.log.Warn().Err(err).Msg("bus unsubscribe failed")
		}

		if err := s.deps.Presence.Leave(ctx, s.room.Token, s.identity.Username); err != nil {
			s.log.Warn().Err(err).Msg("presence leave failed")
		}

		if s.identity.IsStaff {
			return
		}

		// Re-resolve by token rather than trusting the cached row; the
		// store-level status guard keeps the transition one-way.
		if err := s.deps.Store.CloseRoom(ctx, s.room.Token); err != nil {
			s.log.Error().Err(err).Msg("failed to close room on disconnect")
			return
		}
		s.log.Info().Msg("room closed by visitor disconnect")
	})
}
