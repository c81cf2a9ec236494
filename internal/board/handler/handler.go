package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"dinein/internal/board"
	orderhandler "dinein/internal/order/handler"
	"dinein/internal/order/models"
	"dinein/internal/platform/middleware"
	id "dinein/pkg/domain"
	"dinein/pkg/platform/httputil"
	"dinein/pkg/requestcontext"
)

// Service defines the board reads exposed over HTTP.
type Service interface {
	ListActive(ctx context.Context) (*board.KitchenQueue, error)
	List(ctx context.Context, filter board.WaiterFilter) ([]board.Entry, error)
}

type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts the boards. The kitchen board is for kitchen staff and
// admins; the waiter board for waiters and admins.
func (h *Handler) Register(r chi.Router) {
	r.With(middleware.RequireRole(string(models.RoleKitchen), string(models.RoleAdmin))).
		Get("/kitchen/queue", h.HandleKitchenQueue)
	r.With(middleware.RequireRole(string(models.RoleWaiter), string(models.RoleAdmin))).
		Get("/waiter/queue", h.HandleWaiterQueue)
}

type EntryResponse struct {
	orderhandler.OrderResponse
	ElapsedSeconds int64 `json:"elapsed_seconds"`
}

type KitchenQueueResponse struct {
	Accepted  []EntryResponse `json:"accepted"`
	Preparing []EntryResponse `json:"preparing"`
	Ready     []EntryResponse `json:"ready"`
}

// HandleKitchenQueue handles GET /kitchen/queue.
func (h *Handler) HandleKitchenQueue(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	queue, err := h.service.ListActive(ctx)
	if err != nil {
		h.logger.ErrorContext(ctx, "kitchen queue failed",
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, KitchenQueueResponse{
		Accepted:  fromEntries(queue.Accepted),
		Preparing: fromEntries(queue.Preparing),
		Ready:     fromEntries(queue.Ready),
	})
}

// HandleWaiterQueue handles GET /waiter/queue?table=A1&status=ready,served.
func (h *Handler) HandleWaiterQueue(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var filter board.WaiterFilter

	query := r.URL.Query()
	if raw := query.Get("table"); raw != "" {
		tableID, err := id.ParseTableID(raw)
		if err != nil {
			httputil.WriteError(w, err)
			return
		}
		filter.TableID = tableID
	}
	if raw := query.Get("status"); raw != "" {
		for _, part := range strings.Split(raw, ",") {
			st, err := models.ParseStatus(part)
			if err != nil {
				httputil.WriteError(w, err)
				return
			}
			filter.Statuses = append(filter.Statuses, st)
		}
	}

	entries, err := h.service.List(ctx, filter)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"orders": fromEntries(entries),
	})
}

func fromEntries(entries []board.Entry) []EntryResponse {
	out := make([]EntryResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, EntryResponse{
			OrderResponse:  orderhandler.FromOrder(e.Order),
			ElapsedSeconds: int64(e.Elapsed.Seconds()),
		})
	}
	return out
}
