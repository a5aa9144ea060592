package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/shinyyama/chatshop-backend/internal/model"
	"github.com/shinyyama/chatshop-backend/internal/repository"
	"github.com/shinyyama/chatshop-backend/internal/secure"
	"github.com/shinyyama/chatshop-backend/internal/txn"
	"gorm.io/gorm"
)

var (
	ErrForbidden         = errors.New("forbidden")
	ErrInvalidTransition = errors.New("invalid_transition")
)

type OrderService interface {
	Get(ctx context.Context, orderID uint64, actorUID string, isOperator bool) (*model.Order, error)
	ListByUser(ctx context.Context, userUID string) ([]model.Order, error)
	FindByPaymentAddress(ctx context.Context, address string) (*model.Order, error)
	Events(ctx context.Context, orderID uint64) ([]model.OrderEvent, error)
	// Cancel is buyer-initiated from created, operator-initiated otherwise.
	Cancel(ctx context.Context, orderID uint64, actorUID string, isOperator bool) (*model.Order, error)
	// Ship moves a paid order to shipped; operators only.
	Ship(ctx context.Context, orderID uint64, actorUID string, isOperator bool) (*model.Order, error)
	// ExpireStale sweeps created orders past their expiry, releasing their
	// reservations. Returns the number of orders expired.
	ExpireStale(ctx context.Context, now time.Time, limit int) (int, error)
}

type orderService struct {
	coord     *txn.Coordinator
	orders    repository.OrderRepository
	encryptor secure.FieldEncryptor
	notify    NotificationService
}

func NewOrderService(coord *txn.Coordinator, orders repository.OrderRepository, encryptor secure.FieldEncryptor, notify NotificationService) OrderService {
	return &orderService{coord: coord, orders: orders, encryptor: encryptor, notify: notify}
}

// applyTransition validates and audits a status change inside the caller's
// order-locked transaction, then performs the field update and the
// reservation consequences of the target state. A self-transition is a
// valid no-op and returns changed=false.
func applyTransition(ctx context.Context, tx *gorm.DB, locker txn.Locker, order *model.Order, to model.OrderStatus, actorUID string, isOperator bool, reason string) (bool, error) {
	from := order.Status
	if from == to {
		return false, nil
	}
	if !model.IsValidTransition(from, to) {
		return false, fmt.Errorf("%w: %s → %s", ErrInvalidTransition, from, to)
	}
	if model.RequiresOperator(from, to) && !isOperator {
		return false, fmt.Errorf("%w: %s → %s requires an operator", ErrForbidden, from, to)
	}

	if err := repository.NewOrderEventRepository(tx).Create(ctx, &model.OrderEvent{
		OrderID:    order.ID,
		FromStatus: from,
		ToStatus:   to,
		ActorUID:   actorUID,
		Reason:     reason,
	}); err != nil {
		return false, err
	}

	now := time.Now()
	fields := map[string]interface{}{"status": to}
	switch to {
	case model.OrderStatusPaid:
		fields["paid_at"] = now
	case model.OrderStatusShipped:
		fields["shipped_at"] = now
	}
	if err := repository.NewOrderRepository(tx).UpdateFields(ctx, order.ID, fields); err != nil {
		return false, err
	}

	switch to {
	case model.OrderStatusPaid:
		if err := finalizeReservations(ctx, tx, locker, order, now); err != nil {
			return false, err
		}
	case model.OrderStatusCancelled, model.OrderStatusExpired:
		if err := repository.NewReservationRepository(tx).DeleteByOrder(ctx, order.ID); err != nil {
			return false, err
		}
	}
	order.Status = to
	return true, nil
}

// finalizeReservations turns the order's holds into a permanent sale:
// reserved items are bound to the order and the reservation rows deleted.
func finalizeReservations(ctx context.Context, tx *gorm.DB, locker txn.Locker, order *model.Order, now time.Time) error {
	resvRepo := repository.NewReservationRepository(tx)
	reservations, err := resvRepo.ListByOrder(ctx, order.ID)
	if err != nil {
		return err
	}
	for _, r := range reservations {
		if err := sellReservedUnits(ctx, tx, locker, order, r, now); err != nil {
			return err
		}
	}
	return resvRepo.DeleteByOrder(ctx, order.ID)
}

// sellReservedUnits binds one reservation's units to the order under the
// pool lock, so no two finalizations pluck the same unsold rows. Lock
// ordering is always order then pool; checkout takes only the pool lock,
// so the pair cannot deadlock. A busy pool surfaces as ErrLockBusy and the
// whole transaction retries.
func sellReservedUnits(ctx context.Context, tx *gorm.DB, locker txn.Locker, order *model.Order, r model.Reservation, now time.Time) error {
	key := txn.PoolKey(r.CategoryID, r.SubcategoryID)
	if err := locker.Acquire(tx, key); err != nil {
		return err
	}
	defer locker.Release(tx, key)

	sold, err := repository.NewItemRepository(tx).MarkSold(ctx, r.CategoryID, r.SubcategoryID, r.Quantity, order.ID, now)
	if err != nil {
		return err
	}
	if sold != int64(r.Quantity) {
		// Reserved stock vanished out from under an active hold; this is
		// ledger corruption, not contention, so never retried.
		return fmt.Errorf("stock ledger inconsistency on pool (%d,%d): reserved %d, sold %d",
			r.CategoryID, r.SubcategoryID, r.Quantity, sold)
	}
	return nil
}

// transition reloads the order under its row lock, applies the change, and
// fires a best-effort notification when something actually changed.
func (s *orderService) transition(ctx context.Context, orderID uint64, to model.OrderStatus, actorUID string, isOperator bool, reason string) (*model.Order, error) {
	var (
		order   *model.Order
		from    model.OrderStatus
		changed bool
	)
	err := s.coord.RunLocked(ctx, txn.OrderKey(orderID), func(tx *gorm.DB) error {
		o, err := repository.NewOrderRepository(tx).FindByID(ctx, orderID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}
		from = o.Status
		changed, err = applyTransition(ctx, tx, s.coord.Locker(), o, to, actorUID, isOperator, reason)
		order = o
		return err
	})
	if err != nil {
		return nil, err
	}
	if changed && s.notify != nil {
		s.notify.OrderTransitioned(ctx, order, from, to)
	}
	return order, nil
}

func (s *orderService) Get(ctx context.Context, orderID uint64, actorUID string, isOperator bool) (*model.Order, error) {
	o, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if !isOperator && o.UserUID != actorUID {
		return nil, ErrForbidden
	}
	if o.ShippingAddress != "" {
		if plain, err := s.encryptor.Decrypt(o.ShippingAddress); err == nil {
			o.ShippingAddress = plain
		}
	}
	return o, nil
}

func (s *orderService) ListByUser(ctx context.Context, userUID string) ([]model.Order, error) {
	return s.orders.ListByUser(ctx, userUID)
}

func (s *orderService) FindByPaymentAddress(ctx context.Context, address string) (*model.Order, error) {
	o, err := s.orders.FindByPaymentAddress(ctx, address)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return o, nil
}

func (s *orderService) Events(ctx context.Context, orderID uint64) ([]model.OrderEvent, error) {
	return repository.NewOrderEventRepository(s.coord.DB()).ListByOrder(ctx, orderID)
}

func (s *orderService) Cancel(ctx context.Context, orderID uint64, actorUID string, isOperator bool) (*model.Order, error) {
	o, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if !isOperator && o.UserUID != actorUID {
		return nil, ErrForbidden
	}
	reason := "cancelled by buyer"
	if isOperator {
		reason = "cancelled by operator"
	}
	return s.transition(ctx, orderID, model.OrderStatusCancelled, actorUID, isOperator, reason)
}

func (s *orderService) Ship(ctx context.Context, orderID uint64, actorUID string, isOperator bool) (*model.Order, error) {
	return s.transition(ctx, orderID, model.OrderStatusShipped, actorUID, isOperator, "shipped by operator")
}

func (s *orderService) ExpireStale(ctx context.Context, now time.Time, limit int) (int, error) {
	stale, err := s.orders.ListExpiredCreated(ctx, now, limit)
	if err != nil {
		return 0, err
	}
	expired := 0
	for _, o := range stale {
		// Revalidated under the order lock; a payment racing the sweep
		// wins or loses cleanly either way.
		if _, err := s.transition(ctx, o.ID, model.OrderStatusExpired, "", false, "expired by sweep"); err != nil {
			if errors.Is(err, ErrInvalidTransition) || errors.Is(err, ErrNotFound) {
				continue
			}
			log.Printf("expire sweep: order %d: %v", o.ID, err)
			continue
		}
		expired++
	}
	return expired, nil
}
