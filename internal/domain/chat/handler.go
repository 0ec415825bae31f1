package chat

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/avtoline/avtoline-api/internal/middleware"
	"github.com/avtoline/avtoline-api/internal/pkg/response"
	"github.com/avtoline/avtoline-api/internal/pkg/validator"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 64 * 1024
)

// BusinessResolver resolves the business behind an authenticated user.
type BusinessResolver interface {
	GetBusinessIDByUser(ctx context.Context, userID uuid.UUID) (uuid.UUID, error)
}

type Handler struct {
	svc      *Service
	hub      *Hub
	resolver BusinessResolver
	upgrader websocket.Upgrader
}

func NewHandler(svc *Service, hub *Hub, resolver BusinessResolver, allowedOrigins []string) *Handler {
	return &Handler{
		svc:      svc,
		hub:      hub,
		resolver: resolver,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				if len(allowedOrigins) == 0 {
					return true
				}
				origin := r.Header.Get("Origin")
				for _, allowed := range allowedOrigins {
					if origin == allowed {
						return true
					}
				}
				log.Warn().Str("origin", origin).Msg("websocket origin rejected")
				return false
			},
		},
	}
}

func (h *Handler) Routes(authMiddleware func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(authMiddleware)

	r.Get("/ws", h.WebSocket)
	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireBusiness())
		r.Get("/business/rooms", h.BusinessRooms)
	})
	r.Get("/{id}", h.Transcript)
	r.Post("/{id}", h.PostMessage)

	return r
}

// Transcript handles GET /chats/{id}
func (h *Handler) Transcript(w http.ResponseWriter, r *http.Request) {
	roomID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		response.BadRequest(w, "invalid chat room id")
		return
	}

	limit, offset := 0, 0
	if v, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil {
		limit = v
	}
	if v, err := strconv.Atoi(r.URL.Query().Get("offset")); err == nil {
		offset = v
	}

	userID := middleware.GetUserID(r.Context())
	transcript, err := h.svc.Transcript(r.Context(), userID, roomID, limit, offset)
	if err != nil {
		h.writeError(w, err)
		return
	}
	response.OK(w, transcript)
}

// PostMessage handles POST /chats/{id}
func (h *Handler) PostMessage(w http.ResponseWriter, r *http.Request) {
	roomID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		response.BadRequest(w, "invalid chat room id")
		return
	}

	var req PostMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "invalid JSON body")
		return
	}
	if errs := validator.Validate(&req); errs != nil {
		response.ValidationError(w, errs)
		return
	}

	userID := middleware.GetUserID(r.Context())
	msg, err := h.svc.PostMessage(r.Context(), userID, roomID, req)
	if err != nil {
		h.writeError(w, err)
		return
	}
	response.Created(w, msg)
}

// BusinessRooms handles GET /chats/business/rooms
func (h *Handler) BusinessRooms(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	businessID, err := h.resolver.GetBusinessIDByUser(r.Context(), userID)
	if err != nil {
		response.Forbidden(w, "Бизнес не найден")
		return
	}

	items, err := h.svc.BusinessRooms(r.Context(), businessID)
	if err != nil {
		response.InternalError(w)
		return
	}
	response.OK(w, items)
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrRoomNotFound):
		response.NotFound(w, "Чат не найден")
	case errors.Is(err, ErrNotMember):
		response.Forbidden(w, "Вы не участник этого чата")
	default:
		response.InternalError(w)
	}
}

// WebSocket handles GET /chats/ws. Clients subscribe to rooms over the
// socket; membership is checked per subscription.
func (h *Handler) WebSocket(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == uuid.Nil {
		response.Unauthorized(w, "unauthorized")
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Error().Err(err).Msg("websocket upgrade failed")
		return
	}

	client := &Connection{
		UserID: userID,
		Conn:   conn,
		Send:   make(chan []byte, 256),
	}
	h.hub.Register(client)

	go h.wsReader(client)
	go h.wsWriter(client)
}

func (h *Handler) wsReader(client *Connection) {
	defer func() {
		h.hub.Unregister(client)
		client.Conn.Close()
	}()

	client.Conn.SetReadLimit(maxMessageSize)
	client.Conn.SetReadDeadline(time.Now().Add(pongWait))
	client.Conn.SetPongHandler(func(string) error {
		client.Conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, raw, err := client.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Error().Err(err).Str("user_id", client.UserID.String()).Msg("websocket read error")
			}
			break
		}

		var event struct {
			Type   string    `json:"type"`
			RoomID uuid.UUID `json:"room_id"`
		}
		if err := json.Unmarshal(raw, &event); err != nil {
			continue
		}

		switch event.Type {
		case "subscribe":
			if _, err := h.svc.getRoom(context.Background(), client.UserID, event.RoomID); err != nil {
				continue
			}
			h.hub.SubscribeToRoom(event.RoomID, client.UserID)
		case "unsubscribe":
			h.hub.UnsubscribeFromRoom(event.RoomID, client.UserID)
		}
	}
}

func (h *Handler) wsWriter(client *Connection) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		client.Conn.Close()
	}()

	for {
		select {
		case message, ok := <-client.Send:
			client.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				client.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := client.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			client.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := client.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
