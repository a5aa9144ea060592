package service

import (
	"context"
	"errors"
	"time"

	"github.com/shinyyama/chatshop-backend/internal/model"
	"github.com/shinyyama/chatshop-backend/internal/repository"
	"github.com/shinyyama/chatshop-backend/internal/txn"
	"gorm.io/gorm"
)

var ErrInsufficientStock = errors.New("insufficient_stock")

// InventoryService is the reservation ledger: time-bounded holds against a
// (category, subcategory) stock pool, serialized per pool by the
// coordinator's resource lock.
type InventoryService interface {
	// CheckAndReserve atomically verifies availability and records a hold.
	// Returns false without side effects when the pool cannot cover qty.
	CheckAndReserve(ctx context.Context, categoryID, subcategoryID uint64, qty int, orderID uint64, expiresAt time.Time) (bool, error)
	// Release drops every reservation owned by the order.
	Release(ctx context.Context, orderID uint64) error
	// GetExpired lists reservations whose hold has lapsed at the instant.
	GetExpired(ctx context.Context, now time.Time) ([]model.Reservation, error)
}

type inventoryService struct {
	coord *txn.Coordinator
}

func NewInventoryService(coord *txn.Coordinator) InventoryService {
	return &inventoryService{coord: coord}
}

// poolAvailable computes unsold minus actively reserved for the pool. It
// must run inside the pool lock: a count taken before lock acquisition
// would reintroduce the check-then-act race the lock exists to prevent.
func poolAvailable(ctx context.Context, tx *gorm.DB, categoryID, subcategoryID uint64, now time.Time) (int64, error) {
	unsold, err := repository.NewItemRepository(tx).CountUnsold(ctx, categoryID, subcategoryID)
	if err != nil {
		return 0, err
	}
	reserved, err := repository.NewReservationRepository(tx).SumActiveForPool(ctx, categoryID, subcategoryID, now)
	if err != nil {
		return 0, err
	}
	return unsold - reserved, nil
}

func (s *inventoryService) CheckAndReserve(ctx context.Context, categoryID, subcategoryID uint64, qty int, orderID uint64, expiresAt time.Time) (bool, error) {
	if qty <= 0 {
		return false, errors.New("quantity must be > 0")
	}
	err := s.coord.RunLocked(ctx, txn.PoolKey(categoryID, subcategoryID), func(tx *gorm.DB) error {
		now := time.Now()
		if !expiresAt.After(now) {
			return errors.New("expiry must be in the future")
		}
		available, err := poolAvailable(ctx, tx, categoryID, subcategoryID, now)
		if err != nil {
			return err
		}
		if available < int64(qty) {
			return ErrInsufficientStock
		}
		return repository.NewReservationRepository(tx).Create(ctx, &model.Reservation{
			OrderID:       orderID,
			CategoryID:    categoryID,
			SubcategoryID: subcategoryID,
			Quantity:      qty,
			ReservedAt:    now,
			ExpiresAt:     expiresAt,
		})
	})
	if errors.Is(err, ErrInsufficientStock) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (s *inventoryService) Release(ctx context.Context, orderID uint64) error {
	return s.coord.RunWithRetry(ctx, func(tx *gorm.DB) error {
		return repository.NewReservationRepository(tx).DeleteByOrder(ctx, orderID)
	})
}

func (s *inventoryService) GetExpired(ctx context.Context, now time.Time) ([]model.Reservation, error) {
	return repository.NewReservationRepository(s.coord.DB()).ListExpired(ctx, now)
}
