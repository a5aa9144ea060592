package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shinyyama/chatshop-backend/internal/model"
	"github.com/shinyyama/chatshop-backend/internal/pricing"
	"github.com/shinyyama/chatshop-backend/internal/repository"
	"github.com/shinyyama/chatshop-backend/internal/secure"
	"github.com/shinyyama/chatshop-backend/internal/txn"
	"gorm.io/gorm"
)

var ErrNotFound = errors.New("not_found")

type CheckoutRequest struct {
	UserUID         string
	CategoryID      uint64
	SubcategoryID   uint64
	Quantity        int
	ShippingAddress string
}

type CheckoutService interface {
	// Checkout prices the request, atomically reserves stock, and creates
	// an order in the created state awaiting payment.
	Checkout(ctx context.Context, req CheckoutRequest) (*model.Order, error)
	// Quote prices a quantity against a pool without touching stock.
	Quote(ctx context.Context, categoryID, subcategoryID uint64, qty int) (pricing.Breakdown, *model.Subcategory, error)
}

type checkoutService struct {
	coord     *txn.Coordinator
	catalog   repository.CatalogRepository
	tiers     repository.PriceTierRepository
	encryptor secure.FieldEncryptor
	orderTTL  time.Duration
}

func NewCheckoutService(coord *txn.Coordinator, catalog repository.CatalogRepository, tiers repository.PriceTierRepository, encryptor secure.FieldEncryptor, orderTTL time.Duration) CheckoutService {
	if orderTTL == 0 {
		orderTTL = 30 * time.Minute
	}
	return &checkoutService{coord: coord, catalog: catalog, tiers: tiers, encryptor: encryptor, orderTTL: orderTTL}
}

func (s *checkoutService) Quote(ctx context.Context, categoryID, subcategoryID uint64, qty int) (pricing.Breakdown, *model.Subcategory, error) {
	sub, err := s.catalog.FindSubcategory(ctx, categoryID, subcategoryID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pricing.Breakdown{}, nil, ErrNotFound
		}
		return pricing.Breakdown{}, nil, err
	}
	rows, err := s.tiers.ListForPool(ctx, categoryID, subcategoryID)
	if err != nil {
		return pricing.Breakdown{}, nil, err
	}
	schedule := make([]pricing.Tier, 0, len(rows))
	for _, r := range rows {
		schedule = append(schedule, pricing.Tier{MinQuantity: r.MinQuantity, UnitPrice: r.UnitPrice})
	}
	b, err := pricing.Price(schedule, qty, sub.BasePrice)
	if err != nil {
		return pricing.Breakdown{}, nil, err
	}
	return b, sub, nil
}

func (s *checkoutService) Checkout(ctx context.Context, req CheckoutRequest) (*model.Order, error) {
	if req.UserUID == "" {
		return nil, errors.New("buyer is required")
	}
	breakdown, sub, err := s.Quote(ctx, req.CategoryID, req.SubcategoryID, req.Quantity)
	if err != nil {
		return nil, err
	}

	shipping := req.ShippingAddress
	if shipping != "" {
		if shipping, err = s.encryptor.Encrypt(shipping); err != nil {
			return nil, fmt.Errorf("encrypt shipping address: %w", err)
		}
	}

	order := &model.Order{
		UserUID:         req.UserUID,
		Status:          model.OrderStatusCreated,
		TotalAmount:     breakdown.Total,
		Currency:        sub.Currency,
		PaymentAddress:  uuid.NewString(),
		ShippingAddress: shipping,
	}

	// Availability check, order creation, and the reservation all commit
	// in one pool-locked transaction.
	err = s.coord.RunLocked(ctx, txn.PoolKey(req.CategoryID, req.SubcategoryID), func(tx *gorm.DB) error {
		now := time.Now()
		order.ExpiresAt = now.Add(s.orderTTL)

		available, err := poolAvailable(ctx, tx, req.CategoryID, req.SubcategoryID, now)
		if err != nil {
			return err
		}
		if available < int64(req.Quantity) {
			return ErrInsufficientStock
		}

		order.Items = []model.OrderItem{{
			CategoryID:     req.CategoryID,
			SubcategoryID:  req.SubcategoryID,
			Quantity:       req.Quantity,
			LineTotal:      breakdown.Total,
			PriceBreakdown: breakdown.Format(pricing.Symbol(sub.Currency)),
		}}
		if err := repository.NewOrderRepository(tx).Create(ctx, order); err != nil {
			return err
		}
		return repository.NewReservationRepository(tx).Create(ctx, &model.Reservation{
			OrderID:       order.ID,
			CategoryID:    req.CategoryID,
			SubcategoryID: req.SubcategoryID,
			Quantity:      req.Quantity,
			ReservedAt:    now,
			ExpiresAt:     order.ExpiresAt,
		})
	})
	if err != nil {
		return nil, err
	}
	return order, nil
}
