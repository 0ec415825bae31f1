package offer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"path"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/avtoline/avtoline-api/internal/domain/request"
	"github.com/avtoline/avtoline-api/internal/middleware"
	"github.com/avtoline/avtoline-api/internal/pkg/response"
	"github.com/avtoline/avtoline-api/internal/pkg/storage"
	"github.com/avtoline/avtoline-api/internal/pkg/validator"
)

const maxImageUploadSize = 20 * 1024 * 1024

// BusinessResolver maps an authenticated user to their business
type BusinessResolver interface {
	GetBusinessIDByUser(ctx context.Context, userID uuid.UUID) (uuid.UUID, error)
}

type Handler struct {
	svc      *Service
	resolver BusinessResolver
	storage  storage.Storage
}

func NewHandler(svc *Service, resolver BusinessResolver, st storage.Storage) *Handler {
	return &Handler{svc: svc, resolver: resolver, storage: st}
}

// decodeForm reads either a JSON body or a multipart form with a
// "data" JSON field plus "images" files. Returns the uploaded image
// URLs alongside the decoded payload.
func (h *Handler) decodeForm(w http.ResponseWriter, r *http.Request, dst interface{}) ([]string, bool) {
	if !strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/") {
		if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
			response.BadRequest(w, "invalid JSON body")
			return nil, false
		}
		return nil, true
	}

	if err := r.ParseMultipartForm(maxImageUploadSize); err != nil {
		response.BadRequest(w, "invalid multipart form")
		return nil, false
	}
	if err := json.Unmarshal([]byte(r.FormValue("data")), dst); err != nil {
		response.BadRequest(w, "invalid JSON in data field")
		return nil, false
	}

	urls, err := h.storeImages(r.Context(), r.MultipartForm.File["images"])
	if err != nil {
		response.Error(w, http.StatusBadGateway, "STORAGE_ERROR", "storage error")
		return nil, false
	}
	return urls, true
}

func (h *Handler) storeImages(ctx context.Context, files []*multipart.FileHeader) ([]string, error) {
	urls := make([]string, 0, len(files))
	for _, header := range files {
		file, err := header.Open()
		if err != nil {
			return nil, err
		}
		key := fmt.Sprintf("offers/%s%s", uuid.New(), path.Ext(header.Filename))
		err = h.storage.Save(ctx, key, file, header.Header.Get("Content-Type"))
		file.Close()
		if err != nil {
			return nil, err
		}
		urls = append(urls, h.storage.GetURL(key))
	}
	return urls, nil
}

// Submit handles POST /offers
func (h *Handler) Submit(w http.ResponseWriter, r *http.Request) {
	businessID, ok := h.resolveBusiness(w, r)
	if !ok {
		return
	}

	var req SubmitRequest
	imageURLs, ok := h.decodeForm(w, r, &req)
	if !ok {
		return
	}
	if errs := validator.Validate(&req); errs != nil {
		response.ValidationError(w, errs)
		return
	}

	o, err := h.svc.Submit(r.Context(), businessID, req, imageURLs)
	if err != nil {
		switch {
		case errors.Is(err, ErrDuplicateOffer):
			response.ValidationError(w, map[string]string{"purchase_request": "У вас уже есть ответ на данную заявку"})
		case errors.Is(err, request.ErrNotFound):
			response.NotFound(w, "purchase request not found")
		case errors.Is(err, request.ErrInactive):
			response.Conflict(w, "purchase request is no longer active")
		default:
			response.InternalError(w)
		}
		return
	}
	response.Created(w, o)
}

// Get handles GET /offers/{id}
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	businessID, ok := h.resolveBusiness(w, r)
	if !ok {
		return
	}
	offerID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		response.BadRequest(w, "invalid offer id")
		return
	}

	item, err := h.svc.Get(r.Context(), businessID, offerID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	response.OK(w, item)
}

// Update handles PATCH /offers/{id}
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	businessID, ok := h.resolveBusiness(w, r)
	if !ok {
		return
	}
	offerID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		response.BadRequest(w, "invalid offer id")
		return
	}

	var req UpdateRequest
	imageURLs, ok := h.decodeForm(w, r, &req)
	if !ok {
		return
	}
	if errs := validator.Validate(&req); errs != nil {
		response.ValidationError(w, errs)
		return
	}

	item, err := h.svc.Update(r.Context(), businessID, offerID, req, imageURLs)
	if err != nil {
		h.writeError(w, err)
		return
	}
	response.OK(w, item)
}

// ListForRequest handles GET /offers/by-request/{id} for the request
// owner
func (h *Handler) ListForRequest(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	requestID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		response.BadRequest(w, "invalid purchase request id")
		return
	}

	items, err := h.svc.ListForRequestOwner(r.Context(), userID, requestID)
	if err != nil {
		switch {
		case errors.Is(err, request.ErrNotFound):
			response.NotFound(w, "purchase request not found")
		case errors.Is(err, request.ErrNotOwner):
			response.Forbidden(w, "purchase request belongs to another user")
		default:
			response.InternalError(w)
		}
		return
	}
	response.OK(w, items)
}

// AcceptedList handles GET /offers/accepted
func (h *Handler) AcceptedList(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	items, err := h.svc.AcceptedList(r.Context(), userID)
	if err != nil {
		response.InternalError(w)
		return
	}
	response.OK(w, items)
}

// DeleteAccepted handles DELETE /offers/accepted/{id}
func (h *Handler) DeleteAccepted(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	offerID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		response.BadRequest(w, "invalid offer id")
		return
	}

	if err := h.svc.DeleteAccepted(r.Context(), userID, offerID); err != nil {
		h.writeError(w, err)
		return
	}
	response.NoContent(w)
}

// DeleteAllAccepted handles DELETE /offers/accepted
func (h *Handler) DeleteAllAccepted(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if err := h.svc.DeleteAllAccepted(r.Context(), userID); err != nil {
		response.InternalError(w)
		return
	}
	response.OK(w, map[string]string{"message": "Все принятые предложения очищены"})
}

// ClearAcceptedForBusiness handles POST /offers/business/accepted/clear
func (h *Handler) ClearAcceptedForBusiness(w http.ResponseWriter, r *http.Request) {
	businessID, ok := h.resolveBusiness(w, r)
	if !ok {
		return
	}
	if err := h.svc.DeleteAllAcceptedForBusiness(r.Context(), businessID); err != nil {
		response.InternalError(w)
		return
	}
	response.OK(w, map[string]string{"message": "Все принятые заявки очищены"})
}

type choice struct {
	Value string `json:"value"`
	Title string `json:"title"`
}

// Conditions handles GET /offers/conditions
func (h *Handler) Conditions(w http.ResponseWriter, r *http.Request) {
	response.OK(w, []choice{
		{Value: string(ConditionNew), Title: ConditionTitles[ConditionNew]},
		{Value: string(ConditionUsed), Title: ConditionTitles[ConditionUsed]},
	})
}

// Availabilities handles GET /offers/availabilities
func (h *Handler) Availabilities(w http.ResponseWriter, r *http.Request) {
	response.OK(w, []choice{
		{Value: string(AvailabilityInStock), Title: AvailabilityTitles[AvailabilityInStock]},
		{Value: string(AvailabilityToOrder), Title: AvailabilityTitles[AvailabilityToOrder]},
	})
}

// Differences handles GET /offers/differences
func (h *Handler) Differences(w http.ResponseWriter, r *http.Request) {
	response.OK(w, []choice{
		{Value: string(DifferenceOriginal), Title: DifferenceTitles[DifferenceOriginal]},
		{Value: string(DifferenceAnalogue), Title: DifferenceTitles[DifferenceAnalogue]},
	})
}

func (h *Handler) resolveBusiness(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	userID := middleware.GetUserID(r.Context())
	if userID == uuid.Nil {
		response.Unauthorized(w, "unauthorized")
		return uuid.Nil, false
	}
	businessID, err := h.resolver.GetBusinessIDByUser(r.Context(), userID)
	if err != nil {
		response.NotFound(w, "business not found")
		return uuid.Nil, false
	}
	return businessID, true
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		response.NotFound(w, "offer not found")
	case errors.Is(err, ErrNotOwner):
		response.Forbidden(w, "offer belongs to another business")
	default:
		response.InternalError(w)
	}
}

func (h *Handler) Routes(authMiddleware func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(authMiddleware)

	r.Get("/conditions", h.Conditions)
	r.Get("/availabilities", h.Availabilities)
	r.Get("/differences", h.Differences)

	r.Get("/by-request/{id}", h.ListForRequest)
	r.Get("/accepted", h.AcceptedList)
	r.Delete("/accepted", h.DeleteAllAccepted)
	r.Delete("/accepted/{id}", h.DeleteAccepted)

	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireBusiness())
		r.Post("/", h.Submit)
		r.Get("/{id}", h.Get)
		r.Patch("/{id}", h.Update)
		r.Post("/business/accepted/clear", h.ClearAcceptedForBusiness)
	})

	return r
}
