package models

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "dinein/pkg/domain"
	dErrors "dinein/pkg/domain-errors"
	"dinein/pkg/requestcontext"
)

func TestNewOrderItem(t *testing.T) {
	t.Run("modifier deltas scale with quantity", func(t *testing.T) {
		item, err := NewOrderItem("es-teh", "Es Teh", 3, 8000, []ModifierSelection{
			{OptionID: "less-sugar", Group: "sugar", Name: "Less sugar", PriceDelta: 0},
			{OptionID: "large", Group: "size", Name: "Large", PriceDelta: 2000},
		})
		require.NoError(t, err)
		assert.Equal(t, Money(30000), item.TotalPrice)
		assert.Equal(t, Money(6000), item.ModifierAdjustment())
	})

	t.Run("quantity must be positive", func(t *testing.T) {
		_, err := NewOrderItem("es-teh", "Es Teh", 0, 8000, nil)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("discount cannot go below zero", func(t *testing.T) {
		_, err := NewOrderItem("es-teh", "Es Teh", 1, 1000, []ModifierSelection{{PriceDelta: -2000}})
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})
}

func TestNewOrder(t *testing.T) {
	now := time.Now()
	a, _ := NewOrderItem("a", "A", 1, 100, nil)
	b, _ := NewOrderItem("b", "B", 2, 100, nil)

	t.Run("totals items and starts pending", func(t *testing.T) {
		o, err := NewOrder(id.NewOrderID(), "T1", id.CustomerID(uuid.New()), "", "  no onions ", []OrderItem{a, b}, now)
		require.NoError(t, err)
		assert.Equal(t, StatusPending, o.Status)
		assert.Equal(t, Money(300), o.TotalAmount)
		assert.Equal(t, "no onions", o.Notes)
		assert.NoError(t, o.CheckInvariants())
		assert.Equal(t, StatusPending, o.Items[0].DisplayStatus(o))
	})

	t.Run("anonymous guest needs a name", func(t *testing.T) {
		_, err := NewOrder(id.NewOrderID(), "T1", id.CustomerID{}, "", "", []OrderItem{a}, now)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))

		o, err := NewOrder(id.NewOrderID(), "T1", id.CustomerID{}, "Budi", "", []OrderItem{a}, now)
		require.NoError(t, err)
		assert.True(t, o.IsAnonymous())
	})

	t.Run("rejects empty orders", func(t *testing.T) {
		_, err := NewOrder(id.NewOrderID(), "T1", id.CustomerID(uuid.New()), "", "", nil, now)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})
}

func TestCloneIsDeep(t *testing.T) {
	item, _ := NewOrderItem("a", "A", 1, 100, []ModifierSelection{{OptionID: "x", PriceDelta: 10}})
	o, err := NewOrder(id.NewOrderID(), "T1", id.CustomerID(uuid.New()), "", "", []OrderItem{item}, time.Now())
	require.NoError(t, err)

	c := o.Clone()
	c.Items[0].Quantity = 99
	c.Items[0].Modifiers[0].PriceDelta = 0
	c.TotalAmount = 1

	assert.Equal(t, 1, o.Items[0].Quantity)
	assert.Equal(t, Money(10), o.Items[0].Modifiers[0].PriceDelta)
	assert.Equal(t, Money(110), o.TotalAmount)
}

func TestCanUpdateNotes(t *testing.T) {
	o := orderAt(t, StatusPending)
	assert.NoError(t, o.CanUpdateNotes("extra spicy"))

	o.Status = StatusAccepted
	assert.True(t, dErrors.HasCode(o.CanUpdateNotes("extra spicy"), dErrors.CodeInvalidTransition))
}

func TestParsers(t *testing.T) {
	st, err := ParseStatus(" Served ")
	require.NoError(t, err)
	assert.Equal(t, StatusServed, st)

	_, err = ParseStatus("eaten")
	assert.Error(t, err)

	m, err := ParsePaymentMethod("QRIS")
	require.NoError(t, err)
	assert.Equal(t, PaymentQRIS, m)

	_, err = ParsePaymentMethod("cheque")
	assert.Error(t, err)

	_, err = ParseRole("owner")
	assert.True(t, dErrors.HasCode(err, dErrors.CodeForbidden))
}

func TestActorCanSee(t *testing.T) {
	guest := Actor{Role: RoleGuest, TableID: "A1"}
	assert.True(t, guest.CanSee("A1"))
	assert.False(t, guest.CanSee("A2"))

	assert.False(t, Actor{Role: RoleGuest}.CanSee(""))
	assert.True(t, Actor{Role: RoleKitchen}.CanSee("A2"))
	assert.False(t, Actor{Role: "owner"}.CanSee("A2"))
}

func TestActorFromContext(t *testing.T) {
	t.Run("missing role", func(t *testing.T) {
		_, err := ActorFromContext(context.Background())
		assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})

	t.Run("unknown role", func(t *testing.T) {
		ctx := requestcontext.WithActor(context.Background(), id.ActorID(uuid.New()), "owner", "")
		_, err := ActorFromContext(ctx)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeForbidden))
	})

	t.Run("guest bound to table", func(t *testing.T) {
		ctx := requestcontext.WithActor(context.Background(), id.ActorID{}, "guest", "A1")
		actor, err := ActorFromContext(ctx)
		require.NoError(t, err)
		assert.Equal(t, RoleGuest, actor.Role)
		assert.Equal(t, id.TableID("A1"), actor.TableID)
	})
}
