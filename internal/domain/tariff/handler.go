package tariff

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/avtoline/avtoline-api/internal/domain/ledger"
	"github.com/avtoline/avtoline-api/internal/middleware"
	"github.com/avtoline/avtoline-api/internal/pkg/response"
)

// BusinessResolver maps an authenticated user to their business
type BusinessResolver interface {
	GetBusinessIDByUser(ctx context.Context, userID uuid.UUID) (uuid.UUID, error)
}

type Handler struct {
	svc      *Service
	resolver BusinessResolver
}

func NewHandler(svc *Service, resolver BusinessResolver) *Handler {
	return &Handler{svc: svc, resolver: resolver}
}

// tariffItem decorates a tariff with the caller's current-selection flag
type tariffItem struct {
	*Tariff
	IsActual bool `json:"is_actual"`
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	businessID, ok := h.resolveBusiness(w, r)
	if !ok {
		return
	}

	tariffs, err := h.svc.List(r.Context())
	if err != nil {
		response.InternalError(w)
		return
	}

	currentID, err := h.svc.CurrentTariffID(r.Context(), businessID)
	if err != nil {
		response.InternalError(w)
		return
	}

	items := make([]tariffItem, 0, len(tariffs))
	for _, t := range tariffs {
		items = append(items, tariffItem{
			Tariff:   t,
			IsActual: currentID != nil && *currentID == t.ID,
		})
	}
	response.OK(w, items)
}

type changeTariffRequest struct {
	TariffID uuid.UUID `json:"tariff_id"`
}

func (h *Handler) Change(w http.ResponseWriter, r *http.Request) {
	businessID, ok := h.resolveBusiness(w, r)
	if !ok {
		return
	}

	var req changeTariffRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "invalid JSON body")
		return
	}
	if req.TariffID == uuid.Nil {
		response.ValidationError(w, map[string]string{"tariff_id": "This field is required"})
		return
	}

	t, err := h.svc.ChangeTariff(r.Context(), businessID, req.TariffID)
	if err != nil {
		switch {
		case errors.Is(err, ErrTariffNotFound):
			response.NotFound(w, "tariff not found")
		case errors.Is(err, ErrSameTariff):
			response.ValidationError(w, map[string]string{"tariff_id": "Вы уже на данном тарифе"})
		case errors.Is(err, ledger.ErrInsufficientFunds):
			response.ValidationError(w, map[string]string{"message": "Недостаточно средств на балансе"})
		default:
			response.InternalError(w)
		}
		return
	}

	response.OK(w, map[string]interface{}{
		"tariff":  t,
		"message": "Тариф успешно обновлен",
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

func (h *Handler) Routes(authMiddleware func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(authMiddleware)
	r.Use(middleware.RequireBusiness())
	r.Get("/", h.List)
	r.Patch("/change", h.Change)
	return r
}
