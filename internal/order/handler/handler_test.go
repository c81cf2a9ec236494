package handler

//go:generate mockgen -source=handler.go -destination=mocks/mocks.go -package=mocks Service

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"dinein/internal/order/handler/mocks"
	"dinein/internal/order/models"
	"dinein/internal/order/service"
	"dinein/internal/platform/logger"
	id "dinein/pkg/domain"
	dErrors "dinein/pkg/domain-errors"
	"dinein/pkg/testutil"
)

type HandlerSuite struct {
	suite.Suite
	ctrl    *gomock.Controller
	service *mocks.MockService
	router  chi.Router
	waiter  id.ActorID
}

func TestHandlerSuite(t *testing.T) {
	suite.Run(t, new(HandlerSuite))
}

func (s *HandlerSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.service = mocks.NewMockService(s.ctrl)
	s.router = chi.NewRouter()
	New(s.service, logger.Discard()).Register(s.router)
	s.waiter = id.ActorID(uuid.New())
}

func (s *HandlerSuite) TearDownTest() {
	s.ctrl.Finish()
}

func (s *HandlerSuite) sampleOrder(status models.Status) *models.Order {
	item, err := models.NewOrderItem("es-teh", "Es Teh", 2, 8000, []models.ModifierSelection{
		{OptionID: "large", Group: "size", Name: "Large", PriceDelta: 3000},
	})
	s.Require().NoError(err)
	o, err := models.NewOrder(id.NewOrderID(), "A1", id.CustomerID{}, "Budi", "", []models.OrderItem{item}, time.Now())
	s.Require().NoError(err)
	o.Status = status
	return o
}

func (s *HandlerSuite) TestCreate() {
	s.Run("guest orders for their table as their customer", func() {
		customer := id.CustomerID(uuid.New())
		order := s.sampleOrder(models.StatusPending)
		s.service.EXPECT().CreateOrder(gomock.Any(), gomock.Any(), gomock.Any()).DoAndReturn(
			func(_ context.Context, actor models.Actor, req service.CreateOrderRequest) (*models.Order, error) {
				s.Equal(models.RoleGuest, actor.Role)
				s.Equal(id.TableID("A1"), req.TableID)
				s.Equal(customer, req.CustomerID)
				s.Require().Len(req.Items, 1)
				s.Equal(id.MenuItemID("es-teh"), req.Items[0].MenuItemID)
				s.Equal([]id.ModifierOptionID{"large"}, req.Items[0].OptionIDs)
				return order, nil
			})

		req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/tables/A1/orders", map[string]any{
			"customer_id": uuid.NewString(),
			"items": []map[string]any{
				{"menu_item_id": "es-teh", "quantity": 2, "modifier_option_ids": []string{"large"}},
			},
		})
		rr := testutil.DoRequest(s.router, testutil.AsGuest(req, "A1", customer))

		s.Equal(http.StatusCreated, rr.Code, rr.Body.String())
		resp := testutil.UnmarshalResponse[OrderResponse](s.T(), rr)
		s.Equal(order.ID.String(), resp.ID)
		s.Equal(int64(22000), resp.TotalAmount)
		s.Equal("pending", resp.Items[0].Status)
		s.Equal("Large", resp.Items[0].ModifiersSelected[0].Name)
	})

	s.Run("empty order is rejected before the service", func() {
		req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/tables/A1/orders", map[string]any{"items": []any{}})
		rr := testutil.DoRequest(s.router, testutil.AsGuest(req, "A1", id.CustomerID{}))
		testutil.AssertStatusAndError(s.T(), rr, http.StatusBadRequest, "invalid_input")
	})

	s.Run("unknown body fields", func() {
		req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/tables/A1/orders", map[string]any{"price": 1})
		rr := testutil.DoRequest(s.router, testutil.AsGuest(req, "A1", id.CustomerID{}))
		testutil.AssertStatusAndError(s.T(), rr, http.StatusBadRequest, "bad_request")
	})

	s.Run("missing actor", func() {
		req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/tables/A1/orders", map[string]any{})
		rr := testutil.DoRequest(s.router, req)
		testutil.AssertStatusAndError(s.T(), rr, http.StatusUnauthorized, "unauthorized")
	})
}

func (s *HandlerSuite) TestTransition() {
	order := s.sampleOrder(models.StatusAccepted)
	path := "/orders/" + order.ID.String() + "/status"

	s.Run("applied", func() {
		s.service.EXPECT().TransitionStatus(gomock.Any(), gomock.Any()).DoAndReturn(
			func(_ context.Context, req service.TransitionRequest) (*service.TransitionResult, error) {
				s.Equal(order.ID, req.OrderID)
				s.Equal(models.StatusPending, req.Expected)
				s.Equal(models.StatusAccepted, req.To)
				s.Equal(s.waiter, req.Actor.ID)
				return &service.TransitionResult{Order: order, Changed: true}, nil
			})

		req := testutil.NewJSONRequest(s.T(), http.MethodPost, path, map[string]string{
			"expected_status": "pending",
			"status":          "accepted",
		})
		rr := testutil.DoRequest(s.router, testutil.AsActor(req, s.waiter, "waiter"))

		s.Equal(http.StatusOK, rr.Code, rr.Body.String())
		resp := testutil.UnmarshalResponse[TransitionResponse](s.T(), rr)
		s.True(resp.Changed)
		s.Equal("accepted", resp.Order.Status)
	})

	s.Run("stale expectation", func() {
		s.service.EXPECT().TransitionStatus(gomock.Any(), gomock.Any()).
			Return(nil, dErrors.New(dErrors.CodeStaleState, "order is cancelled, not pending; refresh and retry"))

		req := testutil.NewJSONRequest(s.T(), http.MethodPost, path, map[string]string{
			"expected_status": "pending",
			"status":          "accepted",
		})
		rr := testutil.DoRequest(s.router, testutil.AsActor(req, s.waiter, "kitchen"))
		testutil.AssertStatusAndError(s.T(), rr, http.StatusConflict, "stale_state")
	})

	s.Run("forbidden role", func() {
		s.service.EXPECT().TransitionStatus(gomock.Any(), gomock.Any()).
			Return(nil, dErrors.New(dErrors.CodeForbidden, "waiter may not move an order from accepted to preparing"))

		req := testutil.NewJSONRequest(s.T(), http.MethodPost, path, map[string]string{
			"expected_status": "accepted",
			"status":          "preparing",
		})
		rr := testutil.DoRequest(s.router, testutil.AsActor(req, s.waiter, "waiter"))
		testutil.AssertStatusAndError(s.T(), rr, http.StatusForbidden, "forbidden")
	})

	s.Run("unknown status", func() {
		req := testutil.NewJSONRequest(s.T(), http.MethodPost, path, map[string]string{
			"expected_status": "pending",
			"status":          "eaten",
		})
		rr := testutil.DoRequest(s.router, testutil.AsActor(req, s.waiter, "waiter"))
		testutil.AssertStatusAndError(s.T(), rr, http.StatusBadRequest, "invalid_input")
	})

	s.Run("malformed order id", func() {
		req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/orders/not-a-uuid/status", map[string]string{
			"expected_status": "pending",
			"status":          "accepted",
		})
		rr := testutil.DoRequest(s.router, testutil.AsActor(req, s.waiter, "waiter"))
		testutil.AssertStatusAndError(s.T(), rr, http.StatusBadRequest, "invalid_input")
	})
}

func (s *HandlerSuite) TestListTable() {
	s.Run("active only", func() {
		s.service.EXPECT().ListTableOrders(gomock.Any(), gomock.Any(), id.TableID("A1"), true).
			Return([]*models.Order{s.sampleOrder(models.StatusPreparing)}, nil)

		req := testutil.NewJSONRequest(s.T(), http.MethodGet, "/tables/A1/orders?active=true", nil)
		rr := testutil.DoRequest(s.router, testutil.AsGuest(req, "A1", id.CustomerID{}))

		s.Equal(http.StatusOK, rr.Code, rr.Body.String())
		resp := testutil.UnmarshalResponse[struct {
			Orders []OrderResponse `json:"orders"`
		}](s.T(), rr)
		s.Require().Len(resp.Orders, 1)
		s.Equal("preparing", resp.Orders[0].Status)
	})

	s.Run("bad active flag", func() {
		req := testutil.NewJSONRequest(s.T(), http.MethodGet, "/tables/A1/orders?active=maybe", nil)
		rr := testutil.DoRequest(s.router, testutil.AsGuest(req, "A1", id.CustomerID{}))
		testutil.AssertStatusAndError(s.T(), rr, http.StatusBadRequest, "invalid_input")
	})
}

func (s *HandlerSuite) TestGetAndHistory() {
	order := s.sampleOrder(models.StatusServed)

	s.Run("foreign order reads as not found", func() {
		s.service.EXPECT().Get(gomock.Any(), gomock.Any(), order.ID).
			Return(nil, dErrors.New(dErrors.CodeNotFound, "order not found"))

		req := testutil.NewJSONRequest(s.T(), http.MethodGet, "/orders/"+order.ID.String(), nil)
		rr := testutil.DoRequest(s.router, testutil.AsGuest(req, "B7", id.CustomerID{}))
		testutil.AssertStatusAndError(s.T(), rr, http.StatusNotFound, "not_found")
	})

	s.Run("history", func() {
		s.service.EXPECT().History(gomock.Any(), gomock.Any(), order.ID).Return([]models.StatusChange{
			{OrderID: order.ID, From: models.StatusPending, To: models.StatusAccepted, ActorID: s.waiter, Role: models.RoleWaiter, Version: 1},
			{OrderID: order.ID, From: models.StatusAccepted, To: models.StatusCancelled, Role: models.RoleKitchen, Reason: "out of stock", Version: 2},
		}, nil)

		req := testutil.NewJSONRequest(s.T(), http.MethodGet, "/orders/"+order.ID.String()+"/history", nil)
		rr := testutil.DoRequest(s.router, testutil.AsActor(req, s.waiter, "waiter"))

		s.Equal(http.StatusOK, rr.Code, rr.Body.String())
		resp := testutil.UnmarshalResponse[struct {
			History []HistoryEntryResponse `json:"history"`
		}](s.T(), rr)
		s.Require().Len(resp.History, 2)
		s.Equal(s.waiter.String(), resp.History[0].ActorID)
		s.Equal("out of stock", resp.History[1].Reason)
	})
}

func (s *HandlerSuite) TestUpdateNotes() {
	order := s.sampleOrder(models.StatusPending)
	updated := order.Clone()
	updated.Notes = "no ice"

	s.service.EXPECT().UpdateNotes(gomock.Any(), gomock.Any(), order.ID, "no ice").Return(updated, nil)

	req := testutil.NewJSONRequest(s.T(), http.MethodPatch, "/orders/"+order.ID.String()+"/notes", map[string]string{"notes": "  no ice "})
	rr := testutil.DoRequest(s.router, testutil.AsGuest(req, "A1", id.CustomerID{}))

	s.Equal(http.StatusOK, rr.Code, rr.Body.String())
	resp := testutil.UnmarshalResponse[OrderResponse](s.T(), rr)
	s.Equal("no ice", resp.Notes)
}
