package service

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/google/uuid"
	"github.com/shinyyama/chatshop-backend/internal/model"
	"github.com/shinyyama/chatshop-backend/internal/repository"
	"github.com/shinyyama/chatshop-backend/internal/txn"
	"github.com/shinyyama/chatshop-backend/internal/webhook"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

var (
	ErrUnknownAsset              = errors.New("unknown_asset")
	ErrInsufficientConfirmations = errors.New("insufficient_confirmations")
	ErrUnderpayment              = errors.New("underpayment")
	ErrPrecisionExceeded         = errors.New("precision_exceeded")
	ErrCurrencyMismatch          = errors.New("currency_mismatch")
)

// underpaymentTolerance accepts amounts at or above 99.9% of the expected
// total; overpayment is always accepted.
var underpaymentTolerance = decimal.RequireFromString("0.999")

// AssetRule is the per-currency acceptance policy.
type AssetRule struct {
	RequiredConfirmations int
	MaxDecimals           int32
}

func DefaultAssetRules() map[string]AssetRule {
	return map[string]AssetRule{
		"BTC":  {RequiredConfirmations: 2, MaxDecimals: 8},
		"LTC":  {RequiredConfirmations: 3, MaxDecimals: 8},
		"USDT": {RequiredConfirmations: 1, MaxDecimals: 6},
		"EUR":  {RequiredConfirmations: 0, MaxDecimals: 2},
	}
}

type ConfirmStatus string

const (
	ConfirmConfirmed ConfirmStatus = "confirmed"
	// ConfirmDuplicate: the tx hash was processed before.
	ConfirmDuplicate ConfirmStatus = "duplicate"
	// ConfirmAlreadyProcessed: the order left created before this event.
	ConfirmAlreadyProcessed ConfirmStatus = "already_processed"
)

type ConfirmOutcome struct {
	Status  ConfirmStatus
	OrderID uint64
}

// PaymentService validates sanitized gateway events and drives the
// created→paid transition exactly once per payment.
type PaymentService interface {
	Confirm(ctx context.Context, ev *webhook.Event) (*ConfirmOutcome, error)
}

type paymentService struct {
	coord    *txn.Coordinator
	orders   repository.OrderRepository
	payments repository.PaymentRepository
	seen     webhook.SeenStore
	rules    map[string]AssetRule
	notify   NotificationService
}

func NewPaymentService(coord *txn.Coordinator, orders repository.OrderRepository, payments repository.PaymentRepository, seen webhook.SeenStore, rules map[string]AssetRule, notify NotificationService) PaymentService {
	if rules == nil {
		rules = DefaultAssetRules()
	}
	return &paymentService{coord: coord, orders: orders, payments: payments, seen: seen, rules: rules, notify: notify}
}

func (s *paymentService) Confirm(ctx context.Context, ev *webhook.Event) (*ConfirmOutcome, error) {
	if ev.TxHash != "" {
		if dup, err := s.seen.Seen(ctx, ev.TxHash); err == nil && dup {
			log.Printf("payment replay ignored: tx %s already in cache", ev.TxHash)
			return &ConfirmOutcome{Status: ConfirmDuplicate}, nil
		}
		exists, err := s.payments.ExistsTxHash(ctx, ev.TxHash)
		if err != nil {
			return nil, err
		}
		if exists {
			log.Printf("payment replay ignored: tx %s already recorded", ev.TxHash)
			_ = s.seen.Add(ctx, ev.TxHash)
			return &ConfirmOutcome{Status: ConfirmDuplicate}, nil
		}
	}

	rule, ok := s.rules[ev.Currency]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownAsset, ev.Currency)
	}
	if ev.Confirmations < rule.RequiredConfirmations {
		return nil, fmt.Errorf("%w: got %d, need %d", ErrInsufficientConfirmations, ev.Confirmations, rule.RequiredConfirmations)
	}
	if webhook.ExceedsPrecision(ev.Amount, rule.MaxDecimals) {
		return nil, fmt.Errorf("%w: %s carries more than %d decimal places", ErrPrecisionExceeded, ev.Amount, rule.MaxDecimals)
	}

	order, err := s.orders.FindByPaymentAddress(ctx, ev.Address)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if order.Currency != ev.Currency {
		return nil, fmt.Errorf("%w: order wants %s, got %s", ErrCurrencyMismatch, order.Currency, ev.Currency)
	}
	floor := order.TotalAmount.Mul(underpaymentTolerance)
	if ev.Amount.LessThan(floor) {
		return nil, fmt.Errorf("%w: received %s of expected %s", ErrUnderpayment, ev.Amount, order.TotalAmount)
	}

	txHash := ev.TxHash
	if txHash == "" {
		// Gateway sent no hash; synthesize one so the transaction row is
		// still unique. Idempotency then rests on the order status check.
		txHash = "local-" + uuid.NewString()
	}

	already := false
	err = s.coord.RunLocked(ctx, txn.OrderKey(order.ID), func(tx *gorm.DB) error {
		o, err := repository.NewOrderRepository(tx).FindByID(ctx, order.ID)
		if err != nil {
			return err
		}
		if o.Status != model.OrderStatusCreated {
			already = true
			return nil
		}
		if err := repository.NewPaymentRepository(tx).Create(ctx, &model.PaymentTransaction{
			OrderID:        o.ID,
			InvoiceID:      ev.InvoiceID,
			TxHash:         txHash,
			ReceivedAmount: ev.Amount,
			Currency:       ev.Currency,
			Confirmations:  ev.Confirmations,
			IsUnderpayment: ev.Amount.LessThan(o.TotalAmount),
			IsOverpayment:  ev.Amount.GreaterThan(o.TotalAmount),
		}); err != nil {
			return err
		}
		_, err = applyTransition(ctx, tx, s.coord.Locker(), o, model.OrderStatusPaid, "", false,
			fmt.Sprintf("payment confirmed (tx %s)", txHash))
		return err
	})
	if err != nil {
		return nil, err
	}

	if ev.TxHash != "" {
		_ = s.seen.Add(ctx, ev.TxHash)
	}
	if already {
		log.Printf("payment replay ignored: order %d no longer awaiting payment", order.ID)
		return &ConfirmOutcome{Status: ConfirmAlreadyProcessed, OrderID: order.ID}, nil
	}
	if s.notify != nil {
		s.notify.OrderTransitioned(ctx, order, model.OrderStatusCreated, model.OrderStatusPaid)
	}
	return &ConfirmOutcome{Status: ConfirmConfirmed, OrderID: order.ID}, nil
}
