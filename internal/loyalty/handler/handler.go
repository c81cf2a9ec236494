package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"dinein/internal/loyalty/models"
	ordermodels "dinein/internal/order/models"
	id "dinein/pkg/domain"
	dErrors "dinein/pkg/domain-errors"
	"dinein/pkg/platform/httputil"
	"dinein/pkg/requestcontext"
)

// Service defines the loyalty operations exposed over HTTP.
type Service interface {
	OpenAccount(ctx context.Context, customerID id.CustomerID) (*models.Account, error)
	Summary(ctx context.Context, customerID id.CustomerID) (*models.Summary, error)
	Ledger(ctx context.Context, customerID id.CustomerID) ([]models.LedgerEntry, error)
}

type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

func (h *Handler) Register(r chi.Router) {
	r.Get("/customers/{customerID}/loyalty", h.HandleSummary)
	r.Get("/customers/{customerID}/loyalty/ledger", h.HandleLedger)
	r.Post("/customers/{customerID}/loyalty", h.HandleOpen)
}

type ledgerEntryResponse struct {
	Reference string    `json:"reference"`
	Amount    int64     `json:"amount"`
	Points    int64     `json:"points"`
	CreatedAt time.Time `json:"created_at"`
}

type accountResponse struct {
	CustomerID  string    `json:"customer_id"`
	TotalPoints int64     `json:"total_points"`
	Tier        string    `json:"tier"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// HandleSummary handles GET /customers/{customerID}/loyalty.
func (h *Handler) HandleSummary(w http.ResponseWriter, r *http.Request) {
	customerID, ok := h.authorizedCustomer(w, r)
	if !ok {
		return
	}
	summary, err := h.service.Summary(r.Context(), customerID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, summary)
}

// HandleLedger handles GET /customers/{customerID}/loyalty/ledger.
func (h *Handler) HandleLedger(w http.ResponseWriter, r *http.Request) {
	customerID, ok := h.authorizedCustomer(w, r)
	if !ok {
		return
	}
	entries, err := h.service.Ledger(r.Context(), customerID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	out := make([]ledgerEntryResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, ledgerEntryResponse{
			Reference: e.Reference,
			Amount:    e.Amount,
			Points:    e.Points,
			CreatedAt: e.CreatedAt,
		})
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"customer_id": customerID,
		"entries":     out,
	})
}

// HandleOpen handles POST /customers/{customerID}/loyalty. Staff only.
func (h *Handler) HandleOpen(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor, err := ordermodels.ActorFromContext(ctx)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if !actor.Role.IsStaff() {
		httputil.WriteError(w, dErrors.New(dErrors.CodeForbidden, "only staff can open loyalty accounts"))
		return
	}
	customerID, err := id.ParseCustomerID(chi.URLParam(r, "customerID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	acct, err := h.service.OpenAccount(ctx, customerID)
	if err != nil {
		h.logger.WarnContext(ctx, "open loyalty account failed",
			"request_id", requestcontext.RequestID(ctx),
			"customer_id", customerID.String(),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, accountResponse{
		CustomerID:  acct.CustomerID.String(),
		TotalPoints: acct.TotalPoints,
		Tier:        string(acct.Tier),
		UpdatedAt:   acct.UpdatedAt,
	})
}

// authorizedCustomer parses the path customer. Guests may only read their
// own account; staff may read any.
func (h *Handler) authorizedCustomer(w http.ResponseWriter, r *http.Request) (id.CustomerID, bool) {
	ctx := r.Context()
	actor, err := ordermodels.ActorFromContext(ctx)
	if err != nil {
		httputil.WriteError(w, err)
		return id.CustomerID{}, false
	}
	customerID, err := id.ParseCustomerID(chi.URLParam(r, "customerID"))
	if err != nil {
		httputil.WriteError(w, err)
		return id.CustomerID{}, false
	}
	if actor.Role == ordermodels.RoleGuest && requestcontext.CustomerID(ctx) != customerID {
		httputil.WriteError(w, dErrors.New(dErrors.CodeNotFound, "loyalty account not found"))
		return id.CustomerID{}, false
	}
	return customerID, true
}
