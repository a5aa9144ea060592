package service

import (
	"context"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/shinyyama/chatshop-backend/internal/model"
	"github.com/shinyyama/chatshop-backend/internal/repository"
	"github.com/shinyyama/chatshop-backend/internal/secure"
	"github.com/shinyyama/chatshop-backend/internal/txn"
	"github.com/shinyyama/chatshop-backend/internal/webhook"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type testEnv struct {
	db        *gorm.DB
	coord     *txn.Coordinator
	locker    *txn.MemoryLocker
	catalog   repository.CatalogRepository
	items     repository.ItemRepository
	orders    repository.OrderRepository
	payments  repository.PaymentRepository
	tiers     repository.PriceTierRepository
	inventory InventoryService
	checkout  CheckoutService
	orderSvc  OrderService
	payment   PaymentService
	notify    NotificationService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&model.Category{},
		&model.Subcategory{},
		&model.Item{},
		&model.PriceTier{},
		&model.Order{},
		&model.OrderItem{},
		&model.Reservation{},
		&model.PaymentTransaction{},
		&model.OrderEvent{},
		&model.Notification{},
	))

	locker := txn.NewMemoryLocker()
	coord := txn.NewCoordinator(db, locker, txn.Config{
		MaxRetries: 10,
		BaseDelay:  time.Millisecond,
	})
	catalog := repository.NewCatalogRepository(db)
	items := repository.NewItemRepository(db)
	orders := repository.NewOrderRepository(db)
	payments := repository.NewPaymentRepository(db)
	tiers := repository.NewPriceTierRepository(db)
	notify := NewNotificationService(repository.NewNotificationRepository(db), nil)

	env := &testEnv{
		db:        db,
		coord:     coord,
		locker:    locker,
		catalog:   catalog,
		items:     items,
		orders:    orders,
		payments:  payments,
		tiers:     tiers,
		inventory: NewInventoryService(coord),
		checkout:  NewCheckoutService(coord, catalog, tiers, secure.Plaintext{}, 30*time.Minute),
		orderSvc:  NewOrderService(coord, orders, secure.Plaintext{}, notify),
		notify:    notify,
	}
	env.payment = NewPaymentService(coord, orders, payments, webhook.NewMemorySeenStore(100), nil, notify)
	return env
}

// seedPool creates a category/subcategory pair with stock units and an
// optional tier schedule, returning the pool identifiers.
func (e *testEnv) seedPool(t *testing.T, stock int, basePrice string, currency string, tiers ...model.PriceTier) (uint64, uint64) {
	t.Helper()
	ctx := context.Background()
	cat := &model.Category{Name: "cat-" + t.Name()}
	require.NoError(t, e.catalog.CreateCategory(ctx, cat))
	sub := &model.Subcategory{
		CategoryID: cat.ID,
		Name:       "sub-" + t.Name(),
		BasePrice:  decimal.RequireFromString(basePrice),
		Currency:   currency,
	}
	require.NoError(t, e.catalog.CreateSubcategory(ctx, sub))

	if stock > 0 {
		units := make([]model.Item, 0, stock)
		for i := 0; i < stock; i++ {
			units = append(units, model.Item{CategoryID: cat.ID, SubcategoryID: sub.ID})
		}
		require.NoError(t, e.items.CreateBatch(ctx, units))
	}
	for i := range tiers {
		tiers[i].CategoryID = cat.ID
		tiers[i].SubcategoryID = sub.ID
	}
	if len(tiers) > 0 {
		require.NoError(t, e.tiers.CreateBatch(ctx, tiers))
	}
	return cat.ID, sub.ID
}

func (e *testEnv) placeOrder(t *testing.T, uid string, catID, subID uint64, qty int) *model.Order {
	t.Helper()
	order, err := e.checkout.Checkout(context.Background(), CheckoutRequest{
		UserUID:       uid,
		CategoryID:    catID,
		SubcategoryID: subID,
		Quantity:      qty,
	})
	require.NoError(t, err)
	return order
}
