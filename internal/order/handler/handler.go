package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"dinein/internal/order/models"
	"dinein/internal/order/service"
	id "dinein/pkg/domain"
	dErrors "dinein/pkg/domain-errors"
	"dinein/pkg/platform/httputil"
	"dinein/pkg/requestcontext"
)

// Service defines the order operations exposed over HTTP.
type Service interface {
	CreateOrder(ctx context.Context, actor models.Actor, req service.CreateOrderRequest) (*models.Order, error)
	Get(ctx context.Context, actor models.Actor, orderID id.OrderID) (*models.Order, error)
	ListTableOrders(ctx context.Context, actor models.Actor, tableID id.TableID, activeOnly bool) ([]*models.Order, error)
	TransitionStatus(ctx context.Context, req service.TransitionRequest) (*service.TransitionResult, error)
	History(ctx context.Context, actor models.Actor, orderID id.OrderID) ([]models.StatusChange, error)
	UpdateNotes(ctx context.Context, actor models.Actor, orderID id.OrderID, notes string) (*models.Order, error)
}

// Handler wires order endpoints to the order service.
type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{
		service: service,
		logger:  logger,
	}
}

// Register mounts order endpoints on the router. The router is expected to
// carry the actor middleware.
func (h *Handler) Register(r chi.Router) {
	r.Post("/tables/{tableID}/orders", h.HandleCreate)
	r.Get("/tables/{tableID}/orders", h.HandleListTable)
	r.Get("/orders/{orderID}", h.HandleGet)
	r.Get("/orders/{orderID}/history", h.HandleHistory)
	r.Post("/orders/{orderID}/status", h.HandleTransition)
	r.Patch("/orders/{orderID}/notes", h.HandleUpdateNotes)
}

// HandleCreate handles POST /tables/{tableID}/orders.
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	tableID, err := id.ParseTableID(chi.URLParam(r, "tableID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	req, ok := httputil.DecodeAndPrepare[CreateOrderRequest](w, r, h.logger, requestID)
	if !ok {
		return
	}

	customerID := req.parsedCustomerID
	if actor.Role == models.RoleGuest {
		// A guest orders as whoever their token says they are.
		customerID = requestcontext.CustomerID(ctx)
	}

	order, err := h.service.CreateOrder(ctx, actor, service.CreateOrderRequest{
		TableID:      tableID,
		CustomerID:   customerID,
		CustomerName: req.CustomerName,
		Notes:        req.Notes,
		Items:        req.parsedItems,
	})
	if err != nil {
		h.logger.WarnContext(ctx, "create order failed",
			"request_id", requestID,
			"table_id", tableID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, FromOrder(order))
}

// HandleListTable handles GET /tables/{tableID}/orders?active=true.
func (h *Handler) HandleListTable(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	tableID, err := id.ParseTableID(chi.URLParam(r, "tableID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	activeOnly := false
	if raw := r.URL.Query().Get("active"); raw != "" {
		activeOnly, err = strconv.ParseBool(raw)
		if err != nil {
			httputil.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "active must be true or false"))
			return
		}
	}

	orders, err := h.service.ListTableOrders(ctx, actor, tableID, activeOnly)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"table_id": tableID,
		"orders":   FromOrders(orders),
	})
}

// HandleGet handles GET /orders/{orderID}.
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor, orderID, ok := h.actorAndOrder(w, r)
	if !ok {
		return
	}
	order, err := h.service.Get(ctx, actor, orderID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromOrder(order))
}

// HandleHistory handles GET /orders/{orderID}/history.
func (h *Handler) HandleHistory(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor, orderID, ok := h.actorAndOrder(w, r)
	if !ok {
		return
	}
	history, err := h.service.History(ctx, actor, orderID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"order_id": orderID,
		"history":  fromHistory(history),
	})
}

// HandleTransition handles POST /orders/{orderID}/status. The caller sends the
// status it last saw; a mismatch is answered with 409 stale_state.
func (h *Handler) HandleTransition(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	actor, orderID, ok := h.actorAndOrder(w, r)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[TransitionRequest](w, r, h.logger, requestID)
	if !ok {
		return
	}

	result, err := h.service.TransitionStatus(ctx, service.TransitionRequest{
		OrderID:  orderID,
		Expected: req.parsedExpected,
		To:       req.parsedTo,
		Actor:    actor,
		Reason:   req.Reason,
	})
	if err != nil {
		h.logger.InfoContext(ctx, "transition rejected",
			"request_id", requestID,
			"order_id", orderID.String(),
			"expected", req.parsedExpected,
			"to", req.parsedTo,
			"actor_role", actor.Role,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, fromTransition(result))
}

// HandleUpdateNotes handles PATCH /orders/{orderID}/notes.
func (h *Handler) HandleUpdateNotes(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	actor, orderID, ok := h.actorAndOrder(w, r)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[UpdateNotesRequest](w, r, h.logger, requestID)
	if !ok {
		return
	}
	order, err := h.service.UpdateNotes(ctx, actor, orderID, req.Notes)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromOrder(order))
}

func (h *Handler) actor(w http.ResponseWriter, r *http.Request) (models.Actor, bool) {
	actor, err := models.ActorFromContext(r.Context())
	if err != nil {
		httputil.WriteError(w, err)
		return models.Actor{}, false
	}
	return actor, true
}

func (h *Handler) actorAndOrder(w http.ResponseWriter, r *http.Request) (models.Actor, id.OrderID, bool) {
	actor, ok := h.actor(w, r)
	if !ok {
		return models.Actor{}, id.OrderID{}, false
	}
	orderID, err := id.ParseOrderID(chi.URLParam(r, "orderID"))
	if err != nil {
		httputil.WriteError(w, err)
		return models.Actor{}, id.OrderID{}, false
	}
	return actor, orderID, true
}
