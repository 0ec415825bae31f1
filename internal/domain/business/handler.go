package business

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/avtoline/avtoline-api/internal/middleware"
	"github.com/avtoline/avtoline-api/internal/pkg/response"
	"github.com/avtoline/avtoline-api/internal/pkg/validator"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// Create handles POST /business — register or reactivate
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == uuid.Nil {
		response.Unauthorized(w, "unauthorized")
		return
	}

	var req CreateBusinessRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "invalid JSON body")
		return
	}
	if errs := validator.Validate(&req); errs != nil {
		response.ValidationError(w, errs)
		return
	}

	b, err := h.svc.Create(r.Context(), userID, &req)
	if err != nil {
		if errors.Is(err, ErrAlreadyBusiness) {
			response.ValidationError(w, map[string]string{"user": "Данный пользователь уже является бизнес аккаунтом"})
			return
		}
		response.InternalError(w)
		return
	}
	response.Created(w, b)
}

// Me handles GET /business/me
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	b, err := h.svc.GetByUserID(r.Context(), userID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			response.NotFound(w, "business not found")
			return
		}
		response.InternalError(w)
		return
	}
	response.OK(w, b)
}

// Update handles PATCH /business/me
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	var req UpdateBusinessRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "invalid JSON body")
		return
	}
	if errs := validator.Validate(&req); errs != nil {
		response.ValidationError(w, errs)
		return
	}

	b, err := h.svc.Update(r.Context(), userID, &req)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			response.NotFound(w, "business not found")
			return
		}
		response.InternalError(w)
		return
	}
	response.OK(w, b)
}

// SetCarBrands handles PUT /business/car-brands
func (h *Handler) SetCarBrands(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	var req SetCarBrandsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "invalid JSON body")
		return
	}

	if err := h.svc.SetCarBrands(r.Context(), userID, req.CarBrands); err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			response.NotFound(w, "business not found")
		case errors.Is(err, ErrNoTariff):
			response.ValidationError(w, map[string]string{"tariff": "Тариф не выбран"})
		case errors.Is(err, ErrTooManyCarBrands):
			response.ValidationError(w, map[string]string{
				"car_models": "Вы не можете добавить новую марку машины. К сожалению вы превысили кол-во машин, доступных у вас в тарифе",
			})
		default:
			response.InternalError(w)
		}
		return
	}
	response.OK(w, map[string]interface{}{"car_brands": req.CarBrands})
}

// SetCommonParts handles PATCH /business/common-parts
func (h *Handler) SetCommonParts(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	var req SetCommonPartsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "invalid JSON body")
		return
	}

	if err := h.svc.SetCommonParts(r.Context(), userID, req.CommonParts); err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			response.NotFound(w, "business not found")
		case errors.Is(err, ErrNoTariff):
			response.ValidationError(w, map[string]string{"tariff": "Тариф не выбран"})
		case errors.Is(err, ErrTooManyParts):
			response.ValidationError(w, map[string]string{
				"common_parts_business": "Вы не можете добавить столько общих деталей. К сожалению вы превысили кол-во общих деталей, доступных у вас в тарифе",
			})
		default:
			response.InternalError(w)
		}
		return
	}
	response.OK(w, map[string]interface{}{"common_parts": req.CommonParts})
}

// SetFilterMode handles PATCH /business/filter-mode
func (h *Handler) SetFilterMode(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	var req SetFilterModeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "invalid JSON body")
		return
	}

	if err := h.svc.SetFilterMode(r.Context(), userID, FilterMode(req.TypesOfPurchaseRequests)); err != nil {
		switch {
		case errors.Is(err, ErrInvalidFilterMode):
			response.ValidationError(w, map[string]string{
				"types_of_purchase_requests": "Invalid value",
			})
		case errors.Is(err, ErrNotFound):
			response.NotFound(w, "business not found")
		default:
			response.InternalError(w)
		}
		return
	}
	response.OK(w, map[string]interface{}{"types_of_purchase_requests": req.TypesOfPurchaseRequests})
}

// RequestTypes handles GET /business/request-types
func (h *Handler) RequestTypes(w http.ResponseWriter, r *http.Request) {
	modes := []FilterMode{FilterByCommonParts, FilterByCarBrands, FilterAllRequests}
	items := make([]map[string]string, 0, len(modes))
	for _, m := range modes {
		items = append(items, map[string]string{
			"value": string(m),
			"title": FilterModeTitles[m],
		})
	}
	response.OK(w, items)
}

// Deactivate handles PATCH /business/deactivate
func (h *Handler) Deactivate(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if err := h.svc.Deactivate(r.Context(), userID); err != nil {
		if errors.Is(err, ErrNotFound) {
			response.NotFound(w, "business not found")
			return
		}
		response.InternalError(w)
		return
	}
	response.OK(w, map[string]interface{}{"is_active": false})
}

func (h *Handler) Routes(authMiddleware func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(authMiddleware)

	r.Post("/", h.Create)
	r.Get("/request-types", h.RequestTypes)

	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireBusiness())
		r.Get("/me", h.Me)
		r.Patch("/me", h.Update)
		r.Put("/car-brands", h.SetCarBrands)
		r.Patch("/common-parts", h.SetCommonParts)
		r.Patch("/filter-mode", h.SetFilterMode)
		r.Patch("/deactivate", h.Deactivate)
	})

	return r
}
