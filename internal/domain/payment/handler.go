package payment

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/avtoline/avtoline-api/internal/middleware"
	"github.com/avtoline/avtoline-api/internal/pkg/paybox"
	"github.com/avtoline/avtoline-api/internal/pkg/response"
)

// resultScript is the script name Paybox signs the result callback
// with: the last path segment of the configured result URL.
const resultScript = "result"

type BusinessResolver interface {
	GetBusinessIDByUser(ctx context.Context, userID uuid.UUID) (uuid.UUID, error)
}

type Handler struct {
	svc       *Service
	resolver  BusinessResolver
	secretKey string
}

func NewHandler(svc *Service, resolver BusinessResolver, secretKey string) *Handler {
	return &Handler{svc: svc, resolver: resolver, secretKey: secretKey}
}

func (h *Handler) Routes(authMiddleware func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()
	r.Group(func(r chi.Router) {
		r.Use(authMiddleware, middleware.RequireBusiness())
		r.Post("/paybox", h.CreateOrder)
	})
	// Server-to-server callback, authenticated by signature only.
	r.Post("/paybox/result", h.Result)
	return r
}

type orderResponse struct {
	ID          uuid.UUID `json:"id"`
	RedirectURL *string   `json:"redirect_url"`
}

// CreateOrder handles POST /payments/paybox
func (h *Handler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	businessID, err := h.resolver.GetBusinessIDByUser(r.Context(), userID)
	if err != nil {
		response.Forbidden(w, "Бизнес не найден")
		return
	}

	order, err := h.svc.CreateOrder(r.Context(), businessID)
	if err != nil {
		if errors.Is(err, ErrGatewayUnavailable) {
			response.ServiceUnavailable(w, "Сервис временно недоступен")
			return
		}
		response.InternalError(w)
		return
	}
	response.Created(w, orderResponse{ID: order.ID, RedirectURL: order.RedirectURL})
}

// Result handles POST /payments/paybox/result
func (h *Handler) Result(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		response.BadRequest(w, "invalid form body")
		return
	}

	if !paybox.VerifyResultSignature(resultScript, r.PostForm, h.secretKey) {
		log.Warn().Msg("paybox callback with bad signature")
		response.Forbidden(w, "invalid signature")
		return
	}

	payload, err := paybox.ParseResultForm(r.PostForm)
	if err != nil {
		response.BadRequest(w, err.Error())
		return
	}

	if err := h.svc.HandleResult(r.Context(), payload); err != nil {
		switch {
		case errors.Is(err, ErrDuplicatePayment):
			response.OK(w, "Payment already")
		case errors.Is(err, ErrOrderNotFound):
			response.NotFound(w, "Заказ не найден")
		default:
			response.InternalError(w)
		}
		return
	}
	response.OK(w, map[string]string{"status": "ok"})
}
