package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/shinyyama/chatshop-backend/internal/model"
	"github.com/shinyyama/chatshop-backend/internal/pricing"
	"github.com/shinyyama/chatshop-backend/internal/service"
)

type CheckoutHandler struct {
	svc service.CheckoutService
}

func NewCheckoutHandler(svc service.CheckoutService) *CheckoutHandler {
	return &CheckoutHandler{svc: svc}
}

type CheckoutRequest struct {
	CategoryID      uint64 `json:"categoryId"`
	SubcategoryID   uint64 `json:"subcategoryId"`
	Quantity        int    `json:"quantity"`
	ShippingAddress string `json:"shippingAddress"`
}

type OrderResponse struct {
	ID             uint64              `json:"id"`
	Status         string              `json:"status"`
	TotalAmount    string              `json:"totalAmount"`
	Currency       string              `json:"currency"`
	PaymentAddress string              `json:"paymentAddress"`
	ExpiresAt      string              `json:"expiresAt"`
	PaidAt         *string             `json:"paidAt,omitempty"`
	ShippedAt      *string             `json:"shippedAt,omitempty"`
	CreatedAt      string              `json:"createdAt"`
	Items          []OrderItemResponse `json:"items"`
}

type OrderItemResponse struct {
	CategoryID     uint64 `json:"categoryId"`
	SubcategoryID  uint64 `json:"subcategoryId"`
	Quantity       int    `json:"quantity"`
	LineTotal      string `json:"lineTotal"`
	PriceBreakdown string `json:"priceBreakdown"`
}

func toOrderResponse(o *model.Order) OrderResponse {
	var paidAt, shippedAt *string
	if o.PaidAt != nil {
		v := o.PaidAt.Format(time.RFC3339)
		paidAt = &v
	}
	if o.ShippedAt != nil {
		v := o.ShippedAt.Format(time.RFC3339)
		shippedAt = &v
	}
	items := make([]OrderItemResponse, 0, len(o.Items))
	for _, it := range o.Items {
		items = append(items, OrderItemResponse{
			CategoryID:     it.CategoryID,
			SubcategoryID:  it.SubcategoryID,
			Quantity:       it.Quantity,
			LineTotal:      it.LineTotal.Round(2).StringFixed(2),
			PriceBreakdown: it.PriceBreakdown,
		})
	}
	return OrderResponse{
		ID:             o.ID,
		Status:         string(o.Status),
		TotalAmount:    o.TotalAmount.Round(2).StringFixed(2),
		Currency:       o.Currency,
		PaymentAddress: o.PaymentAddress,
		ExpiresAt:      o.ExpiresAt.Format(time.RFC3339),
		PaidAt:         paidAt,
		ShippedAt:      shippedAt,
		CreatedAt:      o.CreatedAt.Format(time.RFC3339),
		Items:          items,
	}
}

func (h *CheckoutHandler) Checkout(c echo.Context) error {
	uid, _ := c.Get("uid").(string)
	if uid == "" {
		return c.JSON(http.StatusUnauthorized, NewErrorResponse("unauthorized", "missing uid"))
	}
	var body CheckoutRequest
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, NewErrorResponse("bad_request", "invalid body"))
	}
	order, err := h.svc.Checkout(c.Request().Context(), service.CheckoutRequest{
		UserUID:         uid,
		CategoryID:      body.CategoryID,
		SubcategoryID:   body.SubcategoryID,
		Quantity:        body.Quantity,
		ShippingAddress: body.ShippingAddress,
	})
	if err != nil {
		switch {
		case errors.Is(err, service.ErrNotFound):
			return c.JSON(http.StatusNotFound, NewErrorResponse("not_found", "unknown pool"))
		case errors.Is(err, service.ErrInsufficientStock):
			return c.JSON(http.StatusConflict, NewErrorResponse("insufficient_stock", "not enough stock available"))
		case errors.Is(err, pricing.ErrInvalidQuantity), errors.Is(err, pricing.ErrInvalidSchedule):
			return c.JSON(http.StatusBadRequest, NewErrorResponse("bad_request", err.Error()))
		default:
			return c.JSON(http.StatusInternalServerError, NewErrorResponse("internal_error", "checkout failed"))
		}
	}
	return c.JSON(http.StatusCreated, toOrderResponse(order))
}
