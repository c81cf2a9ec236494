package handler

//go:generate mockgen -source=handler.go -destination=mocks/mocks.go -package=mocks Service

import (
	"net/http"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"dinein/internal/loyalty/handler/mocks"
	"dinein/internal/loyalty/models"
	"dinein/internal/platform/logger"
	id "dinein/pkg/domain"
	"dinein/pkg/testutil"
)

type HandlerSuite struct {
	suite.Suite
	ctrl    *gomock.Controller
	service *mocks.MockService
	router  chi.Router
}

func TestHandlerSuite(t *testing.T) {
	suite.Run(t, new(HandlerSuite))
}

func (s *HandlerSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.service = mocks.NewMockService(s.ctrl)
	s.router = chi.NewRouter()
	New(s.service, logger.Discard()).Register(s.router)
}

func (s *HandlerSuite) TearDownTest() {
	s.ctrl.Finish()
}

func (s *HandlerSuite) TestSummary() {
	customer := id.CustomerID(uuid.New())
	path := "/customers/" + customer.String() + "/loyalty"

	s.Run("guest reads own summary", func() {
		s.service.EXPECT().Summary(gomock.Any(), customer).Return(&models.Summary{
			CustomerID: customer, TotalPoints: 999, Tier: models.TierBronze, NextTier: models.TierSilver, PointsToNext: 1,
		}, nil)

		req := testutil.NewJSONRequest(s.T(), http.MethodGet, path, nil)
		rr := testutil.DoRequest(s.router, testutil.AsGuest(req, "A1", customer))

		s.Equal(http.StatusOK, rr.Code, rr.Body.String())
		resp := testutil.UnmarshalResponse[map[string]any](s.T(), rr)
		s.Equal("bronze", (*resp)["tier"])
		s.Equal("silver", (*resp)["next_tier"])
		s.Equal(float64(1), (*resp)["points_to_next_tier"])
	})

	s.Run("guest cannot read another customer", func() {
		req := testutil.NewJSONRequest(s.T(), http.MethodGet, path, nil)
		rr := testutil.DoRequest(s.router, testutil.AsGuest(req, "A1", id.CustomerID(uuid.New())))
		testutil.AssertStatusAndError(s.T(), rr, http.StatusNotFound, "not_found")
	})

	s.Run("malformed customer id", func() {
		req := testutil.NewJSONRequest(s.T(), http.MethodGet, "/customers/abc/loyalty", nil)
		rr := testutil.DoRequest(s.router, testutil.AsActor(req, id.ActorID(uuid.New()), "waiter"))
		testutil.AssertStatusAndError(s.T(), rr, http.StatusBadRequest, "invalid_input")
	})
}

func (s *HandlerSuite) TestOpenRequiresStaff() {
	customer := id.CustomerID(uuid.New())
	path := "/customers/" + customer.String() + "/loyalty"

	req := testutil.NewJSONRequest(s.T(), http.MethodPost, path, nil)
	rr := testutil.DoRequest(s.router, testutil.AsGuest(req, "A1", customer))
	testutil.AssertStatusAndError(s.T(), rr, http.StatusForbidden, "forbidden")

	s.service.EXPECT().OpenAccount(gomock.Any(), customer).Return(&models.Account{CustomerID: customer, Tier: models.TierBronze}, nil)
	req = testutil.NewJSONRequest(s.T(), http.MethodPost, path, nil)
	rr = testutil.DoRequest(s.router, testutil.AsActor(req, id.ActorID(uuid.New()), "admin"))
	s.Equal(http.StatusOK, rr.Code, rr.Body.String())
}
