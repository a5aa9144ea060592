package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strconv"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/shinyyama/chatshop-backend/internal/model"
	"github.com/shinyyama/chatshop-backend/internal/repository"
)

type NotificationService interface {
	// OrderTransitioned records a notification for the buyer and publishes
	// an order event. Best-effort: failures are logged, never returned, so
	// the engine's state transitions cannot be blocked by the sink.
	OrderTransitioned(ctx context.Context, order *model.Order, from, to model.OrderStatus)
	List(ctx context.Context, userUID string, unreadOnly bool, limit int) ([]model.Notification, int64, error)
	MarkAllRead(ctx context.Context, userUID string) error
}

type notificationService struct {
	repo   repository.NotificationRepository
	writer *kafka.Writer
}

// NewNotificationService wires the persistent notification feed and an
// optional Kafka order-events producer. A nil writer disables publishing.
func NewNotificationService(repo repository.NotificationRepository, writer *kafka.Writer) NotificationService {
	return &notificationService{repo: repo, writer: writer}
}

type orderEventMessage struct {
	OrderID uint64 `json:"order_id"`
	UserUID string `json:"user_uid"`
	From    string `json:"from"`
	To      string `json:"to"`
	At      string `json:"at"`
}

func (s *notificationService) OrderTransitioned(ctx context.Context, order *model.Order, from, to model.OrderStatus) {
	if order == nil || order.UserUID == "" {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	orderID := order.ID
	n := &model.Notification{
		UserUID: order.UserUID,
		Type:    "order_" + string(to),
		Title:   fmt.Sprintf("Order #%d %s", order.ID, to),
		Body:    transitionBody(to),
		OrderID: &orderID,
	}
	if err := s.repo.Create(ctx, n); err != nil {
		log.Printf("notification create failed for order %d: %v", order.ID, err)
	}

	if s.writer == nil {
		return
	}
	payload, err := json.Marshal(orderEventMessage{
		OrderID: order.ID,
		UserUID: order.UserUID,
		From:    string(from),
		To:      string(to),
		At:      time.Now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		return
	}
	if err := s.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(strconv.FormatUint(order.ID, 10)),
		Value: payload,
	}); err != nil {
		log.Printf("order event publish failed for order %d: %v", order.ID, err)
	}
}

func transitionBody(to model.OrderStatus) string {
	switch to {
	case model.OrderStatusPaid:
		return "Payment confirmed. Your order is being prepared."
	case model.OrderStatusShipped:
		return "Your order has shipped."
	case model.OrderStatusCancelled:
		return "Your order was cancelled."
	case model.OrderStatusExpired:
		return "Your order expired before payment arrived."
	default:
		return ""
	}
}

func (s *notificationService) List(ctx context.Context, userUID string, unreadOnly bool, limit int) ([]model.Notification, int64, error) {
	if userUID == "" {
		return nil, 0, nil
	}
	list, err := s.repo.ListByUser(ctx, userUID, unreadOnly, limit)
	if err != nil {
		return nil, 0, err
	}
	cnt, err := s.repo.CountUnread(ctx, userUID)
	if err != nil {
		return list, 0, err
	}
	return list, cnt, nil
}

func (s *notificationService) MarkAllRead(ctx context.Context, userUID string) error {
	if userUID == "" {
		return nil
	}
	return s.repo.MarkAllRead(ctx, userUID)
}
