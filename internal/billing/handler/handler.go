package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"dinein/internal/billing"
	orderhandler "dinein/internal/order/handler"
	"dinein/internal/order/models"
	id "dinein/pkg/domain"
	dErrors "dinein/pkg/domain-errors"
	"dinein/pkg/platform/httputil"
	"dinein/pkg/requestcontext"
)

// Service defines the billing operations exposed over HTTP.
type Service interface {
	ComputeBill(ctx context.Context, actor models.Actor, tableID id.TableID) (*billing.Bill, error)
	Settle(ctx context.Context, req billing.SettleRequest) (*billing.Settlement, error)
	SettleTable(ctx context.Context, actor models.Actor, tableID id.TableID, method models.PaymentMethod) (*billing.Settlement, error)
}

type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

func (h *Handler) Register(r chi.Router) {
	r.Get("/tables/{tableID}/bill", h.HandleBill)
	r.Post("/tables/{tableID}/settle", h.HandleSettleTable)
	r.Post("/payments", h.HandleSettle)
}

// SettleRequest is the body of POST /payments.
type SettleRequest struct {
	OrderIDs      []string `json:"order_ids"`
	PaymentMethod string   `json:"payment_method"`

	parsedOrderIDs []id.OrderID
	parsedMethod   models.PaymentMethod
}

func (r *SettleRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	if len(r.OrderIDs) == 0 {
		return dErrors.New(dErrors.CodeInvalidInput, "order_ids is required")
	}
	method, err := models.ParsePaymentMethod(r.PaymentMethod)
	if err != nil {
		return err
	}
	r.parsedMethod = method
	r.parsedOrderIDs = make([]id.OrderID, 0, len(r.OrderIDs))
	for _, raw := range r.OrderIDs {
		orderID, err := id.ParseOrderID(strings.TrimSpace(raw))
		if err != nil {
			return err
		}
		r.parsedOrderIDs = append(r.parsedOrderIDs, orderID)
	}
	return nil
}

// SettleTableRequest is the body of POST /tables/{tableID}/settle.
type SettleTableRequest struct {
	PaymentMethod string `json:"payment_method"`

	parsedMethod models.PaymentMethod
}

func (r *SettleTableRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	method, err := models.ParsePaymentMethod(r.PaymentMethod)
	if err != nil {
		return err
	}
	r.parsedMethod = method
	return nil
}

type BillResponse struct {
	TableID    string                       `json:"table_id"`
	Orders     []orderhandler.OrderResponse `json:"orders"`
	GrandTotal int64                        `json:"grand_total"`
}

type AccrualResponse struct {
	CustomerID string `json:"customer_id"`
	Amount     int64  `json:"amount"`
	Points     int64  `json:"points"`
	Applied    bool   `json:"applied"`
	Failed     bool   `json:"failed,omitempty"`
}

type SettlementResponse struct {
	Settled     []string          `json:"settled_order_ids"`
	AlreadyPaid []string          `json:"already_paid_order_ids"`
	Failed      []FailedResponse  `json:"failed,omitempty"`
	Accruals    []AccrualResponse `json:"loyalty,omitempty"`
}

type FailedResponse struct {
	OrderID string `json:"order_id"`
	Error   string `json:"error"`
	Message string `json:"error_description,omitempty"`
}

// HandleBill handles GET /tables/{tableID}/bill.
func (h *Handler) HandleBill(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor, tableID, ok := h.actorAndTable(w, r)
	if !ok {
		return
	}
	bill, err := h.service.ComputeBill(ctx, actor, tableID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, BillResponse{
		TableID:    string(bill.TableID),
		Orders:     orderhandler.FromOrders(bill.Orders),
		GrandTotal: int64(bill.GrandTotal),
	})
}

// HandleSettle handles POST /payments.
func (h *Handler) HandleSettle(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	actor, err := models.ActorFromContext(ctx)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	req, ok := httputil.DecodeAndPrepare[SettleRequest](w, r, h.logger, requestID)
	if !ok {
		return
	}
	result, err := h.service.Settle(ctx, billing.SettleRequest{
		OrderIDs: req.parsedOrderIDs,
		Method:   req.parsedMethod,
		Actor:    actor,
	})
	h.writeSettlement(ctx, w, result, err)
}

// HandleSettleTable handles POST /tables/{tableID}/settle.
func (h *Handler) HandleSettleTable(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	actor, tableID, ok := h.actorAndTable(w, r)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[SettleTableRequest](w, r, h.logger, requestID)
	if !ok {
		return
	}
	result, err := h.service.SettleTable(ctx, actor, tableID, req.parsedMethod)
	h.writeSettlement(ctx, w, result, err)
}

// writeSettlement answers 200 when every order is paid. A partial settlement
// is a 409 that still reports what was settled.
func (h *Handler) writeSettlement(ctx context.Context, w http.ResponseWriter, result *billing.Settlement, err error) {
	if err != nil && (result == nil || !dErrors.HasCode(err, dErrors.CodePartialSettlement)) {
		httputil.WriteError(w, err)
		return
	}
	resp := fromSettlement(result)
	if err != nil {
		h.logger.WarnContext(ctx, "partial settlement",
			"request_id", requestcontext.RequestID(ctx),
			"failed", len(result.Failed),
		)
		httputil.WriteJSON(w, http.StatusConflict, struct {
			Error       string `json:"error"`
			Description string `json:"error_description"`
			SettlementResponse
		}{
			Error:              string(dErrors.CodePartialSettlement),
			Description:        dErrors.MessageOf(err),
			SettlementResponse: resp,
		})
		return
	}
	httputil.WriteJSON(w, http.StatusOK, resp)
}

func fromSettlement(s *billing.Settlement) SettlementResponse {
	resp := SettlementResponse{
		Settled:     make([]string, 0, len(s.Settled)),
		AlreadyPaid: make([]string, 0, len(s.AlreadyPaid)),
	}
	for _, o := range s.Settled {
		resp.Settled = append(resp.Settled, o.ID.String())
	}
	for _, oid := range s.AlreadyPaid {
		resp.AlreadyPaid = append(resp.AlreadyPaid, oid.String())
	}
	for _, f := range s.Failed {
		resp.Failed = append(resp.Failed, FailedResponse{OrderID: f.OrderID.String(), Error: string(f.Code), Message: f.Message})
	}
	for _, a := range s.Accruals {
		resp.Accruals = append(resp.Accruals, AccrualResponse{
			CustomerID: a.CustomerID.String(),
			Amount:     int64(a.Amount),
			Points:     a.Points,
			Applied:    a.Applied,
			Failed:     a.Err != nil,
		})
	}
	return resp
}

func (h *Handler) actorAndTable(w http.ResponseWriter, r *http.Request) (models.Actor, id.TableID, bool) {
	actor, err := models.ActorFromContext(r.Context())
	if err != nil {
		httputil.WriteError(w, err)
		return models.Actor{}, "", false
	}
	tableID, err := id.ParseTableID(chi.URLParam(r, "tableID"))
	if err != nil {
		httputil.WriteError(w, err)
		return models.Actor{}, "", false
	}
	return actor, tableID, true
}
