package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

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

func (h *Handler) Balance(w http.ResponseWriter, r *http.Request) {
	businessID, ok := h.resolveBusiness(w, r)
	if !ok {
		return
	}

	balance, err := h.svc.GetBalance(r.Context(), businessID)
	if err != nil {
		response.InternalError(w)
		return
	}
	response.OK(w, map[string]interface{}{"balance": balance})
}

func (h *Handler) Transactions(w http.ResponseWriter, r *http.Request) {
	businessID, ok := h.resolveBusiness(w, r)
	if !ok {
		return
	}

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))

	transactions, err := h.svc.ListTransactions(r.Context(), businessID, limit, offset)
	if err != nil {
		response.InternalError(w)
		return
	}
	response.OK(w, transactions)
}

type adjustBalanceRequest struct {
	BusinessID uuid.UUID       `json:"business_id"`
	Balance    decimal.Decimal `json:"balance"`
}

// AdjustBalance is the staff-only manual override
func (h *Handler) AdjustBalance(w http.ResponseWriter, r *http.Request) {
	actorID := middleware.GetUserID(r.Context())
	if actorID == uuid.Nil {
		response.Unauthorized(w, "unauthorized")
		return
	}

	var req adjustBalanceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "invalid JSON body")
		return
	}
	if req.BusinessID == uuid.Nil {
		response.BadRequest(w, "business_id is required")
		return
	}

	t, err := h.svc.AdjustBalanceManually(r.Context(), req.BusinessID, req.Balance, actorID)
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidAmount):
			response.BadRequest(w, "balance must not be negative")
		case errors.Is(err, ErrBusinessNotFound):
			response.NotFound(w, "business not found")
		default:
			response.InternalError(w)
		}
		return
	}
	response.OK(w, t)
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

	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireBusiness())
		r.Get("/balance", h.Balance)
		r.Get("/transactions", h.Transactions)
	})

	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireStaff())
		r.Post("/adjust", h.AdjustBalance)
	})

	return r
}
