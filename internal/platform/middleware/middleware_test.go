package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dinein/internal/platform/actortoken"
	"dinein/internal/platform/logger"
	"dinein/internal/platform/metrics"
	id "dinein/pkg/domain"
	dErrors "dinein/pkg/domain-errors"
	"dinein/pkg/requestcontext"
)

type stubValidator struct {
	actor *actortoken.Actor
	err   error
}

func (s stubValidator) Validate(string) (*actortoken.Actor, error) { return s.actor, s.err }

func echoActor(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	w.Header().Set("X-Role", requestcontext.ActorRole(ctx))
	w.Header().Set("X-Table", requestcontext.TableID(ctx).String())
	w.WriteHeader(http.StatusNoContent)
}

func TestRequestID(t *testing.T) {
	var seen string
	h := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = requestcontext.RequestID(r.Context())
	}))

	t.Run("propagates inbound header", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set(RequestIDHeader, "req-123")
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, req)
		assert.Equal(t, "req-123", seen)
		assert.Equal(t, "req-123", rr.Header().Get(RequestIDHeader))
	})

	t.Run("mints one when absent", func(t *testing.T) {
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))
		_, err := uuid.Parse(seen)
		assert.NoError(t, err)
	})
}

func TestRequireActor(t *testing.T) {
	log := logger.Discard()

	t.Run("missing header", func(t *testing.T) {
		h := RequireActor(stubValidator{}, log)(http.HandlerFunc(echoActor))
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))
		assert.Equal(t, http.StatusUnauthorized, rr.Code)
	})

	t.Run("invalid token", func(t *testing.T) {
		h := RequireActor(stubValidator{err: dErrors.New(dErrors.CodeUnauthorized, "invalid token")}, log)(http.HandlerFunc(echoActor))
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer junk")
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, req)
		assert.Equal(t, http.StatusUnauthorized, rr.Code)
	})

	t.Run("valid guest token populates context", func(t *testing.T) {
		actor := &actortoken.Actor{Role: "guest", TableID: "B4"}
		h := RequireActor(stubValidator{actor: actor}, log)(http.HandlerFunc(echoActor))
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer good")
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, req)
		assert.Equal(t, http.StatusNoContent, rr.Code)
		assert.Equal(t, "guest", rr.Header().Get("X-Role"))
		assert.Equal(t, "B4", rr.Header().Get("X-Table"))
	})
}

func TestRequireRole(t *testing.T) {
	h := RequireRole("kitchen", "admin")(http.HandlerFunc(echoActor))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req = req.WithContext(requestcontext.WithActor(req.Context(), id.ActorID(uuid.New()), "waiter", ""))
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusForbidden, rr.Code)

	req = req.WithContext(requestcontext.WithActor(req.Context(), id.ActorID(uuid.New()), "kitchen", ""))
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusNoContent, rr.Code)
}

func TestRecovery(t *testing.T) {
	h := Recovery(logger.Discard())(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.NotContains(t, rr.Body.String(), "boom")
}

func TestTimeoutSetsDeadline(t *testing.T) {
	var hasDeadline bool
	h := Timeout(time.Second)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, hasDeadline = r.Context().Deadline()
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	assert.True(t, hasDeadline)
}

func TestContentTypeJSON(t *testing.T) {
	h := ContentTypeJSON(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	req := httptest.NewRequest(http.MethodPost, "/", nil)
	req.ContentLength = 10
	req.Header.Set("Content-Type", "text/plain")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	req.Header.Set("Content-Type", "application/json; charset=utf-8")
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusNoContent, rr.Code)
}

func TestRateLimiter(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.NewWithRegisterer(reg)
	rl := NewRateLimiter(1, 2, logger.Discard(), m)
	h := rl.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	kitchen := id.ActorID(uuid.New())
	waiter := id.ActorID(uuid.New())
	call := func(actor id.ActorID, role string) int {
		req := httptest.NewRequest(http.MethodGet, "/kitchen/queue", nil)
		req = req.WithContext(requestcontext.WithActor(req.Context(), actor, role, ""))
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, req)
		return rr.Code
	}

	assert.Equal(t, http.StatusNoContent, call(kitchen, "kitchen"))
	assert.Equal(t, http.StatusNoContent, call(kitchen, "kitchen"))
	assert.Equal(t, http.StatusTooManyRequests, call(kitchen, "kitchen"))
	// a separate actor has its own bucket
	assert.Equal(t, http.StatusNoContent, call(waiter, "waiter"))

	assert.Equal(t, float64(1), testutil.ToFloat64(m.RateLimited.WithLabelValues("kitchen")))

	removed := rl.Cleanup(time.Now().Add(time.Hour), time.Minute)
	require.Equal(t, 2, removed)
}
