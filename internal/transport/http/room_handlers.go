package http

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/deskchat/deskchat/internal/chat"
	"github.com/deskchat/deskchat/internal/presence"
	"github.com/deskchat/deskchat/internal/store"
)

const (
	defaultHistoryLimit = 50
	maxHistoryLimit     = 200
)

// RoomHandlers provides HTTP handlers for room management endpoints.
type RoomHandlers struct {
	store    store.Store
	presence presence.Registry
	log      *zerolog.Logger
}

// NewRoomHandlers creates a new room handlers instance.
func NewRoomHandlers(st store.Store, reg presence.Registry, logger *zerolog.Logger) *RoomHandlers {
	return &RoomHandlers{
		store:    st,
		presence: reg,
		log:      logger,
	}
}

// RoomResponse represents a room in API responses.
type RoomResponse struct {
	Token     string `json:"token"`
	Status    string `json:"status"`
	CreatedAt string `json:"created_at"`
}

// MessageResponse mirrors the websocket chat_message shape so a client can
// render history and live frames with the same code path.
type MessageResponse struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	Message   string `json:"message"`
	Agent     string `json:"agent"`
	Initials  string `json:"initials"`
	CreatedAt string `json:"created_at"`
}

// CreateRoom handles room creation with a client-supplied token.
// POST /api/rooms/:token
func (h *RoomHandlers) CreateRoom(c *gin.Context) {
	token := c.Param("token")
	if len(token) < 4 || len(token) > 64 {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "room token must be 4-64 characters"})
		return
	}

	room, err := h.store.CreateRoom(c.Request.Context(), token)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE") {
			c.JSON(http.StatusConflict, ErrorResponse{Error: "room already exists"})
			return
		}
		h.log.Error().Err(err).Str("room", token).Msg("failed to create room")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	h.log.Info().Str("room", room.Token).Msg("room created")
	c.JSON(http.StatusCreated, roomResponse(room))
}

// GetRoom returns a room's status.
// GET /api/rooms/:token
func (h *RoomHandlers) GetRoom(c *gin.Context) {
	room, ok := h.resolveRoom(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, roomResponse(room))
}

// ListMessages returns a room's message history in insertion order.
// GET /api/rooms/:token/messages?limit=&before=
func (h *RoomHandlers) ListMessages(c *gin.Context) {
	room, ok := h.resolveRoom(c)
	if !ok {
		return
	}

	limit := defaultHistoryLimit
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid limit"})
			return
		}
		limit = min(parsed, maxHistoryLimit)
	}

	var beforeID *int64
	if raw := c.Query("before"); raw != "" {
		parsed, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid before cursor"})
			return
		}
		beforeID = &parsed
	}

	msgs, err := h.store.ListMessages(c.Request.Context(), room.ID, limit, beforeID)
	if err != nil {
		h.log.Error().Err(err).Str("room", room.Token).Msg("failed to list messages")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	now := time.Now()
	response := make([]MessageResponse, 0, len(msgs))
	for _, msg := range msgs {
		agent := ""
		if msg.CreatedBy != nil {
			agent = strconv.FormatInt(*msg.CreatedBy, 10)
		}
		response = append(response, MessageResponse{
			ID:        msg.ID,
			Name:      msg.SentBy,
			Message:   msg.Body,
			Agent:     agent,
			Initials:  chat.Initials(msg.SentBy),
			CreatedAt: chat.TimeSince(msg.CreatedAt, now),
		})
	}

	c.JSON(http.StatusOK, response)
}

// Presence returns the display names currently connected to the room.
// GET /api/rooms/:token/presence
func (h *RoomHandlers) Presence(c *gin.Context) {
	room, ok := h.resolveRoom(c)
	if !ok {
		return
	}

	names, err := h.presence.List(c.Request.Context(), room.Token)
	if err != nil {
		h.log.Error().Err(err).Str("room", room.Token).Msg("failed to list presence")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"users": names})
}

func (h *RoomHandlers) resolveRoom(c *gin.Context) (*store.Room, bool) {
	token := c.Param("token")
	room, err := h.store.GetRoomByToken(c.Request.Context(), token)
	if err != nil {
		if errors.Is(err, store.ErrRoomNotFound) {
			c.JSON(http.StatusNotFound, ErrorResponse{Error: "room not found"})
			return nil, false
		}
		h.log.Error().Err(err).Str("room", token).Msg("failed to resolve room")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return nil, false
	}
	return room, true
}

func roomResponse(room *store.Room) RoomResponse {
	return RoomResponse{
		Token:     room.Token,
		Status:    string(room.Status),
		CreatedAt: room.CreatedAt.Format(time.RFC3339),
	}
}
