package service

import (
	"context"
	"testing"
	"time"

	"github.com/shinyyama/chatshop-backend/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCancel_BuyerFromCreated(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	catID, subID := env.seedPool(t, 5, "10.00", "EUR")
	order := env.placeOrder(t, "buyer-1", catID, subID, 2)
	ctx := context.Background()

	got, err := env.orderSvc.Cancel(ctx, order.ID, "buyer-1", false)
	require.NoError(t, err)
	assert.Equal(t, model.OrderStatusCancelled, got.Status)

	// Cancelling releases the hold back to the pool.
	ok, err := env.inventory.CheckAndReserve(ctx, catID, subID, 5, 999, time.Now().Add(time.Hour))
	require.NoError(t, err)
	assert.True(t, ok)

	events, err := env.orderSvc.Events(ctx, order.ID)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, model.OrderStatusCreated, events[0].FromStatus)
	assert.Equal(t, model.OrderStatusCancelled, events[0].ToStatus)
	assert.Equal(t, "buyer-1", events[0].ActorUID)
}

func TestCancel_OtherBuyerForbidden(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	catID, subID := env.seedPool(t, 5, "10.00", "EUR")
	order := env.placeOrder(t, "buyer-1", catID, subID, 1)

	_, err := env.orderSvc.Cancel(context.Background(), order.ID, "buyer-2", false)
	require.ErrorIs(t, err, ErrForbidden)
}

func TestCancel_PaidNeedsOperator(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	catID, subID := env.seedPool(t, 5, "10.00", "EUR")
	order := env.placeOrder(t, "buyer-1", catID, subID, 1)
	ctx := context.Background()
	payOrder(t, env, order)

	_, err := env.orderSvc.Cancel(ctx, order.ID, "buyer-1", false)
	require.ErrorIs(t, err, ErrForbidden)

	got, err := env.orderSvc.Cancel(ctx, order.ID, "operator-1", true)
	require.NoError(t, err)
	assert.Equal(t, model.OrderStatusCancelled, got.Status)
}

func TestShip_RequiresPaidAndOperator(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	catID, subID := env.seedPool(t, 5, "10.00", "EUR")
	order := env.placeOrder(t, "buyer-1", catID, subID, 1)
	ctx := context.Background()

	// created → shipped is not an edge at all.
	_, err := env.orderSvc.Ship(ctx, order.ID, "operator-1", true)
	require.ErrorIs(t, err, ErrInvalidTransition)

	payOrder(t, env, order)

	_, err = env.orderSvc.Ship(ctx, order.ID, "buyer-1", false)
	require.ErrorIs(t, err, ErrForbidden)

	got, err := env.orderSvc.Ship(ctx, order.ID, "operator-1", true)
	require.NoError(t, err)
	assert.Equal(t, model.OrderStatusShipped, got.Status)
	require.NotNil(t, got.ShippedAt)
}

func TestPaid_FinalizesReservationIntoSale(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	catID, subID := env.seedPool(t, 5, "10.00", "EUR")
	order := env.placeOrder(t, "buyer-1", catID, subID, 3)
	ctx := context.Background()

	payOrder(t, env, order)

	// Three units now belong to the order; the reservation is gone.
	sold, err := env.items.ListByOrder(ctx, order.ID)
	require.NoError(t, err)
	assert.Len(t, sold, 3)
	for _, it := range sold {
		require.NotNil(t, it.SoldAt)
	}

	var resvs int64
	require.NoError(t, env.db.Model(&model.Reservation{}).Where("order_id = ?", order.ID).Count(&resvs).Error)
	assert.Zero(t, resvs)

	unsold, err := env.items.CountUnsold(ctx, catID, subID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), unsold)
}

func TestGet_OwnershipAndOperatorAccess(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	catID, subID := env.seedPool(t, 5, "10.00", "EUR")
	order := env.placeOrder(t, "buyer-1", catID, subID, 1)
	ctx := context.Background()

	_, err := env.orderSvc.Get(ctx, order.ID, "buyer-2", false)
	require.ErrorIs(t, err, ErrForbidden)

	got, err := env.orderSvc.Get(ctx, order.ID, "anyone", true)
	require.NoError(t, err)
	assert.Equal(t, order.ID, got.ID)

	_, err = env.orderSvc.Get(ctx, order.ID+100, "buyer-1", false)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestExpireStale_SweepsOnlyLapsedCreated(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	catID, subID := env.seedPool(t, 10, "10.00", "EUR")
	ctx := context.Background()

	stale := env.placeOrder(t, "buyer-1", catID, subID, 2)
	fresh := env.placeOrder(t, "buyer-2", catID, subID, 2)
	paid := env.placeOrder(t, "buyer-3", catID, subID, 2)
	payOrder(t, env, paid)

	// Force the first order's window into the past.
	past := time.Now().Add(-time.Minute)
	require.NoError(t, env.db.Model(&model.Order{}).Where("id = ?", stale.ID).Update("expires_at", past).Error)

	n, err := env.orderSvc.ExpireStale(ctx, time.Now(), 100)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	got, err := env.orderSvc.Get(ctx, stale.ID, "buyer-1", false)
	require.NoError(t, err)
	assert.Equal(t, model.OrderStatusExpired, got.Status)

	got, err = env.orderSvc.Get(ctx, fresh.ID, "buyer-2", false)
	require.NoError(t, err)
	assert.Equal(t, model.OrderStatusCreated, got.Status)

	got, err = env.orderSvc.Get(ctx, paid.ID, "buyer-3", false)
	require.NoError(t, err)
	assert.Equal(t, model.OrderStatusPaid, got.Status)

	// The expired order's hold is gone.
	var resvs int64
	require.NoError(t, env.db.Model(&model.Reservation{}).Where("order_id = ?", stale.ID).Count(&resvs).Error)
	assert.Zero(t, resvs)
}

func TestTransition_NotificationWritten(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	catID, subID := env.seedPool(t, 5, "10.00", "EUR")
	order := env.placeOrder(t, "buyer-1", catID, subID, 1)
	ctx := context.Background()

	_, err := env.orderSvc.Cancel(ctx, order.ID, "buyer-1", false)
	require.NoError(t, err)

	list, unread, err := env.notify.List(ctx, "buyer-1", true, 10)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, int64(1), unread)
	assert.Equal(t, "order_cancelled", list[0].Type)
	require.NotNil(t, list[0].OrderID)
	assert.Equal(t, order.ID, *list[0].OrderID)

	require.NoError(t, env.notify.MarkAllRead(ctx, "buyer-1"))
	_, unread, err = env.notify.List(ctx, "buyer-1", false, 10)
	require.NoError(t, err)
	assert.Zero(t, unread)
}

// payOrder drives the order to paid through the payment pipeline with a
// fully valid gateway event.
func payOrder(t *testing.T, env *testEnv, order *model.Order) {
	t.Helper()
	outcome, err := env.payment.Confirm(context.Background(), paymentEvent(order, order.TotalAmount.String(), "tx-"+order.PaymentAddress))
	require.NoError(t, err)
	require.Equal(t, ConfirmConfirmed, outcome.Status)
}
