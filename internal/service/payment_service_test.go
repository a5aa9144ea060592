package service

import (
	"context"
	"testing"

	"github.com/shinyyama/chatshop-backend/internal/model"
	"github.com/shinyyama/chatshop-backend/internal/txn"
	"github.com/shinyyama/chatshop-backend/internal/webhook"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func paymentEvent(order *model.Order, amount, txHash string) *webhook.Event {
	return &webhook.Event{
		Address:       order.PaymentAddress,
		Amount:        dec(amount),
		Currency:      order.Currency,
		TxHash:        txHash,
		Confirmations: 10,
	}
}

func TestConfirm_HappyPath(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	catID, subID := env.seedPool(t, 5, "10.00", "EUR")
	order := env.placeOrder(t, "buyer-1", catID, subID, 2)
	ctx := context.Background()

	outcome, err := env.payment.Confirm(ctx, paymentEvent(order, "20.00", "abc123"))
	require.NoError(t, err)
	assert.Equal(t, ConfirmConfirmed, outcome.Status)
	assert.Equal(t, order.ID, outcome.OrderID)

	got, err := env.orders.FindByID(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, model.OrderStatusPaid, got.Status)
	require.NotNil(t, got.PaidAt)

	txs, err := env.payments.ListByOrder(ctx, order.ID)
	require.NoError(t, err)
	require.Len(t, txs, 1)
	assert.Equal(t, "abc123", txs[0].TxHash)
	assert.False(t, txs[0].IsUnderpayment)
	assert.False(t, txs[0].IsOverpayment)
}

func TestConfirm_UnderpaymentTolerance(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	catID, subID := env.seedPool(t, 20, "10.00", "EUR")
	ctx := context.Background()

	// Total 100.00; 99.9% floor is 99.90.
	atFloor := env.placeOrder(t, "buyer-1", catID, subID, 10)
	outcome, err := env.payment.Confirm(ctx, paymentEvent(atFloor, "99.90", "tol1"))
	require.NoError(t, err)
	assert.Equal(t, ConfirmConfirmed, outcome.Status)

	txs, err := env.payments.ListByOrder(ctx, atFloor.ID)
	require.NoError(t, err)
	require.Len(t, txs, 1)
	assert.True(t, txs[0].IsUnderpayment, "short of the exact total, still within tolerance")

	belowFloor := env.placeOrder(t, "buyer-2", catID, subID, 10)
	_, err = env.payment.Confirm(ctx, paymentEvent(belowFloor, "99.89", "tol2"))
	require.ErrorIs(t, err, ErrUnderpayment)

	got, err := env.orders.FindByID(ctx, belowFloor.ID)
	require.NoError(t, err)
	assert.Equal(t, model.OrderStatusCreated, got.Status, "rejected payment must not advance the order")
}

func TestConfirm_OverpaymentAccepted(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	catID, subID := env.seedPool(t, 5, "10.00", "EUR")
	order := env.placeOrder(t, "buyer-1", catID, subID, 1)
	ctx := context.Background()

	outcome, err := env.payment.Confirm(ctx, paymentEvent(order, "15.00", "over1"))
	require.NoError(t, err)
	assert.Equal(t, ConfirmConfirmed, outcome.Status)

	txs, err := env.payments.ListByOrder(ctx, order.ID)
	require.NoError(t, err)
	require.Len(t, txs, 1)
	assert.True(t, txs[0].IsOverpayment)
}

func TestConfirm_ConfirmationThreshold(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	catID, subID := env.seedPool(t, 5, "0.001", "BTC")
	order := env.placeOrder(t, "buyer-1", catID, subID, 1)
	ctx := context.Background()

	ev := paymentEvent(order, "0.001", "btc1")
	ev.Confirmations = 1 // BTC needs 2
	_, err := env.payment.Confirm(ctx, ev)
	require.ErrorIs(t, err, ErrInsufficientConfirmations)

	ev = paymentEvent(order, "0.001", "btc1")
	ev.Confirmations = 2
	outcome, err := env.payment.Confirm(ctx, ev)
	require.NoError(t, err)
	assert.Equal(t, ConfirmConfirmed, outcome.Status)
}

func TestConfirm_PrecisionLimit(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	catID, subID := env.seedPool(t, 5, "0.001", "BTC")
	order := env.placeOrder(t, "buyer-1", catID, subID, 1)
	ctx := context.Background()

	// Nine significant decimal places exceeds BTC's eight.
	_, err := env.payment.Confirm(ctx, paymentEvent(order, "0.001000000001", "prec1"))
	require.ErrorIs(t, err, ErrPrecisionExceeded)

	// Trailing zeros beyond the limit are not significant.
	outcome, err := env.payment.Confirm(ctx, paymentEvent(order, "0.0010000000000", "prec2"))
	require.NoError(t, err)
	assert.Equal(t, ConfirmConfirmed, outcome.Status)
}

func TestConfirm_UnknownAssetAndCurrencyMismatch(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	catID, subID := env.seedPool(t, 5, "10.00", "EUR")
	order := env.placeOrder(t, "buyer-1", catID, subID, 1)
	ctx := context.Background()

	ev := paymentEvent(order, "10.00", "asset1")
	ev.Currency = "DOGE"
	_, err := env.payment.Confirm(ctx, ev)
	require.ErrorIs(t, err, ErrUnknownAsset)

	ev = paymentEvent(order, "10.00", "asset2")
	ev.Currency = "USDT"
	_, err = env.payment.Confirm(ctx, ev)
	require.ErrorIs(t, err, ErrCurrencyMismatch)
}

func TestConfirm_UnknownAddress(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)

	_, err := env.payment.Confirm(context.Background(), &webhook.Event{
		Address:       "no-such-address",
		Amount:        dec("10.00"),
		Currency:      "EUR",
		TxHash:        "ghost1",
		Confirmations: 1,
	})
	require.ErrorIs(t, err, ErrNotFound)
}

func TestConfirm_ReplayByTxHashIsNoOp(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	catID, subID := env.seedPool(t, 5, "10.00", "EUR")
	order := env.placeOrder(t, "buyer-1", catID, subID, 1)
	ctx := context.Background()

	outcome, err := env.payment.Confirm(ctx, paymentEvent(order, "10.00", "replay1"))
	require.NoError(t, err)
	require.Equal(t, ConfirmConfirmed, outcome.Status)

	outcome, err = env.payment.Confirm(ctx, paymentEvent(order, "10.00", "replay1"))
	require.NoError(t, err)
	assert.Equal(t, ConfirmDuplicate, outcome.Status)

	txs, err := env.payments.ListByOrder(ctx, order.ID)
	require.NoError(t, err)
	assert.Len(t, txs, 1, "replay must not record a second transaction")
}

func TestConfirm_SecondPaymentAfterPaid(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	catID, subID := env.seedPool(t, 5, "10.00", "EUR")
	order := env.placeOrder(t, "buyer-1", catID, subID, 1)
	ctx := context.Background()

	_, err := env.payment.Confirm(ctx, paymentEvent(order, "10.00", "pay1"))
	require.NoError(t, err)

	// A different hash for the same order finds it already paid.
	outcome, err := env.payment.Confirm(ctx, paymentEvent(order, "10.00", "pay2"))
	require.NoError(t, err)
	assert.Equal(t, ConfirmAlreadyProcessed, outcome.Status)

	txs, err := env.payments.ListByOrder(ctx, order.ID)
	require.NoError(t, err)
	assert.Len(t, txs, 1)
}

// Finalizing a payment pulls units out of the stock pool, so it must hold
// the pool lock: a concurrent holder forces the confirm to back off rather
// than sell from a stale snapshot.
func TestConfirm_FinalizationTakesPoolLock(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	catID, subID := env.seedPool(t, 5, "10.00", "EUR")
	order := env.placeOrder(t, "buyer-1", catID, subID, 2)
	ctx := context.Background()

	require.NoError(t, env.locker.Acquire(nil, txn.PoolKey(catID, subID)))

	_, err := env.payment.Confirm(ctx, paymentEvent(order, "20.00", "poollk1"))
	require.ErrorIs(t, err, txn.ErrLockBusy)

	// The rejected attempt must leave no trace: order still awaiting
	// payment, no transaction row committed.
	got, err := env.orders.FindByID(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, model.OrderStatusCreated, got.Status)
	txs, err := env.payments.ListByOrder(ctx, order.ID)
	require.NoError(t, err)
	assert.Empty(t, txs)

	require.NoError(t, env.locker.Release(nil, txn.PoolKey(catID, subID)))

	outcome, err := env.payment.Confirm(ctx, paymentEvent(order, "20.00", "poollk1"))
	require.NoError(t, err)
	assert.Equal(t, ConfirmConfirmed, outcome.Status)
}

func TestConfirm_MissingTxHashSynthesized(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	catID, subID := env.seedPool(t, 5, "10.00", "EUR")
	order := env.placeOrder(t, "buyer-1", catID, subID, 1)
	ctx := context.Background()

	outcome, err := env.payment.Confirm(ctx, paymentEvent(order, "10.00", ""))
	require.NoError(t, err)
	assert.Equal(t, ConfirmConfirmed, outcome.Status)

	txs, err := env.payments.ListByOrder(ctx, order.ID)
	require.NoError(t, err)
	require.Len(t, txs, 1)
	assert.NotEmpty(t, txs[0].TxHash)
}
