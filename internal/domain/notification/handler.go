package notification

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/avtoline/avtoline-api/internal/middleware"
	"github.com/avtoline/avtoline-api/internal/pkg/response"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == uuid.Nil {
		response.Unauthorized(w, "unauthorized")
		return
	}

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))

	items, err := h.svc.ListForUser(r.Context(), userID, limit, offset)
	if err != nil {
		response.InternalError(w)
		return
	}
	response.OK(w, items)
}

func (h *Handler) MarkViewed(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == uuid.Nil {
		response.Unauthorized(w, "unauthorized")
		return
	}

	notificationID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		response.BadRequest(w, "invalid notification id")
		return
	}

	if err := h.svc.MarkViewed(r.Context(), userID, notificationID); err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			response.NotFound(w, "notification not found")
		case errors.Is(err, ErrNotRecipient):
			response.Forbidden(w, "notification is addressed to another user")
		default:
			response.InternalError(w)
		}
		return
	}
	response.OK(w, map[string]string{"message": "ok"})
}

type broadcastRequest struct {
	Title       *string `json:"title"`
	Message     string  `json:"message"`
	URL         *string `json:"url"`
	ForBusiness bool    `json:"for_business"`
}

func (h *Handler) Broadcast(w http.ResponseWriter, r *http.Request) {
	var req broadcastRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "invalid JSON body")
		return
	}
	if req.Message == "" {
		response.ValidationError(w, map[string]string{"message": "This field is required"})
		return
	}

	n, err := h.svc.Broadcast(r.Context(), req.Title, req.Message, req.URL, req.ForBusiness)
	if err != nil {
		response.InternalError(w)
		return
	}
	response.Created(w, n)
}

func (h *Handler) Routes(authMiddleware func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(authMiddleware)
	r.Get("/", h.List)
	r.Post("/{id}/viewed", h.MarkViewed)

	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireStaff())
		r.Post("/broadcast", h.Broadcast)
	})
	return r
}
