package request

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"path"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/avtoline/avtoline-api/internal/middleware"
	"github.com/avtoline/avtoline-api/internal/pkg/response"
	"github.com/avtoline/avtoline-api/internal/pkg/storage"
	"github.com/avtoline/avtoline-api/internal/pkg/validator"
)

const maxImageUploadSize = 20 * 1024 * 1024

type Handler struct {
	svc     *Service
	storage storage.Storage
}

func NewHandler(svc *Service, st storage.Storage) *Handler {
	return &Handler{svc: svc, storage: st}
}

// ListTypes handles GET /purchase-requests/types
func (h *Handler) ListTypes(w http.ResponseWriter, r *http.Request) {
	types, err := h.svc.ListTypes(r.Context())
	if err != nil {
		response.InternalError(w)
		return
	}
	response.OK(w, types)
}

// Create handles POST /purchase-requests
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == uuid.Nil {
		response.Unauthorized(w, "unauthorized")
		return
	}

	var req CreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "invalid JSON body")
		return
	}
	if errs := validator.Validate(&req); errs != nil {
		response.ValidationError(w, errs)
		return
	}

	pr, err := h.svc.Create(r.Context(), userID, req)
	if err != nil {
		if errors.Is(err, ErrTypeNotFound) {
			response.ValidationError(w, map[string]string{"type_id": "Тип заявки не найден"})
			return
		}
		response.InternalError(w)
		return
	}
	response.Created(w, pr)
}

// CreateVIP handles POST /purchase-requests/vip
func (h *Handler) CreateVIP(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == uuid.Nil {
		response.Unauthorized(w, "unauthorized")
		return
	}

	var req CreateVIPRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "invalid JSON body")
		return
	}
	if errs := validator.Validate(&req); errs != nil {
		response.ValidationError(w, errs)
		return
	}

	pr, err := h.svc.CreateVIP(r.Context(), userID, req)
	if err != nil {
		if errors.Is(err, ErrTypeNotFound) {
			response.ValidationError(w, map[string]string{"type_id": "Тип заявки не найден"})
			return
		}
		response.InternalError(w)
		return
	}
	response.Created(w, pr)
}

// ListMine handles GET /purchase-requests
func (h *Handler) ListMine(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	items, err := h.svc.ListMine(r.Context(), userID)
	if err != nil {
		response.InternalError(w)
		return
	}
	response.OK(w, items)
}

// Detail handles GET /purchase-requests/{id}
func (h *Handler) Detail(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	requestID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		response.BadRequest(w, "invalid purchase request id")
		return
	}

	detail, err := h.svc.Detail(r.Context(), userID, requestID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	response.OK(w, detail)
}

// Update handles PATCH /purchase-requests/{id}
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	requestID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		response.BadRequest(w, "invalid purchase request id")
		return
	}

	var req UpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "invalid JSON body")
		return
	}
	if errs := validator.Validate(&req); errs != nil {
		response.ValidationError(w, errs)
		return
	}

	pr, err := h.svc.Update(r.Context(), userID, requestID, req)
	if err != nil {
		h.writeError(w, err)
		return
	}
	response.OK(w, pr)
}

// UploadImages handles POST /purchase-requests/{id}/images (multipart)
func (h *Handler) UploadImages(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	requestID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		response.BadRequest(w, "invalid purchase request id")
		return
	}

	if err := r.ParseMultipartForm(maxImageUploadSize); err != nil {
		response.BadRequest(w, "invalid multipart form")
		return
	}

	files := r.MultipartForm.File["images"]
	if len(files) == 0 {
		response.ValidationError(w, map[string]string{"images": "This field is required"})
		return
	}

	urls := make([]string, 0, len(files))
	for _, header := range files {
		file, err := header.Open()
		if err != nil {
			response.BadRequest(w, "unreadable file in form")
			return
		}
		key := fmt.Sprintf("requests/%s/%s%s", requestID, uuid.New(), path.Ext(header.Filename))
		err = h.storage.Save(r.Context(), key, file, header.Header.Get("Content-Type"))
		file.Close()
		if err != nil {
			response.Error(w, http.StatusBadGateway, "STORAGE_ERROR", "storage error")
			return
		}
		urls = append(urls, h.storage.GetURL(key))
	}

	images, err := h.svc.AddImages(r.Context(), userID, requestID, urls)
	if err != nil {
		h.writeError(w, err)
		return
	}
	response.Created(w, images)
}

// Close handles PATCH /purchase-requests/{id}/off
func (h *Handler) Close(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	requestID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		response.BadRequest(w, "invalid purchase request id")
		return
	}

	if err := h.svc.Close(r.Context(), userID, requestID); err != nil {
		h.writeError(w, err)
		return
	}
	response.OK(w, map[string]string{"message": "Заявка закрыта"})
}

// CloseAll handles POST /purchase-requests/all-off
func (h *Handler) CloseAll(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if err := h.svc.CloseAll(r.Context(), userID); err != nil {
		response.InternalError(w)
		return
	}
	response.OK(w, map[string]string{"message": "Все заявки очищены"})
}

// BusinessFeed handles GET /purchase-requests/business
func (h *Handler) BusinessFeed(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))

	items, err := h.svc.BusinessFeed(r.Context(), userID, middleware.IsStaff(r.Context()), limit, offset)
	if err != nil {
		response.InternalError(w)
		return
	}
	response.OK(w, items)
}

// BusinessDetail handles GET /purchase-requests/business/{id}
func (h *Handler) BusinessDetail(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	requestID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		response.BadRequest(w, "invalid purchase request id")
		return
	}

	item, err := h.svc.BusinessDetail(r.Context(), userID, requestID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	response.OK(w, item)
}

type markViewedRequest struct {
	RequestID uuid.UUID `json:"purchase_request_id" validate:"required"`
}

// MarkViewed handles POST /purchase-requests/business/viewed
func (h *Handler) MarkViewed(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	var req markViewedRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "invalid JSON body")
		return
	}
	if req.RequestID == uuid.Nil {
		response.ValidationError(w, map[string]string{"purchase_request_id": "This field is required"})
		return
	}

	if err := h.svc.MarkViewed(r.Context(), req.RequestID, userID); err != nil {
		h.writeError(w, err)
		return
	}
	response.OK(w, map[string]string{"status": "marked as viewed"})
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		response.NotFound(w, "purchase request not found")
	case errors.Is(err, ErrNotOwner):
		response.Forbidden(w, "purchase request belongs to another user")
	case errors.Is(err, ErrInactive):
		response.Conflict(w, "purchase request is no longer active")
	default:
		response.InternalError(w)
	}
}

func (h *Handler) Routes(authMiddleware func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(authMiddleware)

	r.Get("/types", h.ListTypes)
	r.Post("/", h.Create)
	r.Post("/vip", h.CreateVIP)
	r.Get("/", h.ListMine)
	r.Post("/all-off", h.CloseAll)

	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireBusiness())
		r.Get("/business", h.BusinessFeed)
		r.Get("/business/{id}", h.BusinessDetail)
		r.Post("/business/viewed", h.MarkViewed)
	})

	r.Get("/{id}", h.Detail)
	r.Patch("/{id}", h.Update)
	r.Post("/{id}/images", h.UploadImages)
	r.Patch("/{id}/off", h.Close)

	return r
}
